package app

import (
	"context"
	"log/slog"

	msql "toggl-billing/internal/adapter/mysql"
	tg "toggl-billing/internal/adapter/toggl"
	"toggl-billing/internal/config"
	"toggl-billing/internal/migrate"
	"toggl-billing/internal/usecase"
)

// Runner executes one reconciliation.
type Runner interface {
	Run(ctx context.Context, req usecase.Request) (usecase.Result, error)
}

// App wires adapters and use cases.
type App struct {
	log     *slog.Logger
	runner  Runner
	journal *msql.Client
}

func New(ctx context.Context, log *slog.Logger, cfg config.Config) (*App, error) {
	togglClient := tg.NewClient(cfg.Toggl.BaseURL, cfg.Toggl.APIToken, cfg.Toggl.WorkspaceID, log)

	uc := &usecase.ReconcileUseCase{
		Log:         log,
		Toggl:       togglClient,
		Policy:      cfg.Policy,
		Location:    cfg.Billing.Location,
		WorkspaceID: cfg.Toggl.WorkspaceID,
	}
	a := &App{log: log, runner: uc}

	if cfg.MySQL.DSN != "" {
		// Run migrations before opening the journal for use
		if err := migrate.Run(ctx, cfg.MySQL.DSN, log); err != nil {
			return nil, err
		}
		journal, err := msql.NewClient(ctx, cfg.MySQL.DSN, log)
		if err != nil {
			return nil, err
		}
		uc.Journal = journal
		a.journal = journal
	} else {
		log.Debug("MYSQL_DSN not set, run journal disabled")
	}
	return a, nil
}

// NewWithRunner builds an App around an existing Runner.
func NewWithRunner(log *slog.Logger, r Runner) *App {
	return &App{log: log, runner: r}
}

func (a *App) Reconcile(ctx context.Context, req usecase.Request) (usecase.Result, error) {
	return a.runner.Run(ctx, req)
}

// Close releases the journal connection, if any.
func (a *App) Close() error {
	if a.journal == nil {
		return nil
	}
	return a.journal.Close()
}
