package usecase

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"toggl-billing/internal/domain"
	"toggl-billing/internal/errs"
	"toggl-billing/internal/executor"
	"toggl-billing/internal/period"
	"toggl-billing/internal/policy"
	"toggl-billing/internal/ports"
	"toggl-billing/internal/reconcile"
)

// ErrRunning is returned when a reconciliation is already in progress.
var ErrRunning = errors.New("reconciliation already running")

// Request selects the reporting month and the execution mode.
type Request struct {
	MonthOffset int // 0 = current month, 1 = previous, ...
	DryRun      bool
}

// Result describes what a run computed and, for live runs, applied.
type Result struct {
	RunID      string
	Period     period.Range
	Days       []reconcile.DaySummary
	Operations []reconcile.Operation
	Rejected   []*errs.DataShapeError
	Applied    int
}

// ReconcileUseCase coordinates fetching from Toggl, reconciling per day and
// applying the resulting operations.
type ReconcileUseCase struct {
	Log         *slog.Logger
	Toggl       ports.TogglClient
	Journal     ports.Journal // optional
	Policy      policy.Policy
	Location    *time.Location
	WorkspaceID int64 // 0: the account's default workspace

	Now      func() time.Time
	NewRunID func() string

	running atomic.Bool
}

func (uc *ReconcileUseCase) Run(ctx context.Context, req Request) (Result, error) {
	if uc.Toggl == nil {
		return Result{}, errors.New("usecase not initialized: missing dependencies")
	}
	if !uc.running.CompareAndSwap(false, true) {
		return Result{}, ErrRunning
	}
	defer uc.running.Store(false)

	if err := uc.Policy.Validate(); err != nil {
		return Result{}, err
	}
	loc := uc.Location
	if loc == nil {
		loc = time.Local
	}
	rng, err := period.Month(uc.now(), req.MonthOffset, loc)
	if err != nil {
		return Result{}, err
	}
	res := Result{RunID: uc.newRunID(), Period: rng}

	uc.Log.Info("authenticating")
	me, err := uc.Toggl.Me(ctx)
	if err != nil {
		return res, err
	}
	ws := uc.WorkspaceID
	if ws == 0 {
		ws = me.DefaultWorkspaceID
	}
	uc.Log.Info("authenticated", slog.Int64("user", me.ID), slog.Int64("workspace", ws))

	entries, err := uc.fetchScoped(ctx, ws, rng)
	if err != nil {
		return res, err
	}

	groups, rejected := reconcile.GroupByDay(entries, loc)
	for _, r := range rejected {
		uc.Log.Warn("skipping time entry", slog.Int64("id", r.EntryID), slog.String("reason", r.Reason))
	}
	res.Rejected = rejected

	res.Days = reconcile.New(uc.Policy).Reconcile(groups)
	for _, d := range res.Days {
		uc.Log.Info("day reconciled",
			slog.String("date", d.Day.Format("2006-01-02")),
			slog.Int("entries", len(d.Entries)),
			slog.Int64("billable", d.Billable),
			slog.Int64("non_billable", d.NonBillable),
			slog.Int64("break_budget", d.BreakBudget),
			slog.Int("operations", len(d.Operations)),
		)
	}
	res.Operations = reconcile.Flatten(res.Days)
	uc.Log.Info("created operations", slog.Int("count", len(res.Operations)), slog.Bool("dry_run", req.DryRun))

	uc.journalStart(ctx, domain.Run{
		ID: res.RunID, WorkspaceID: ws, From: rng.From, To: rng.To,
		DryRun: req.DryRun, StartedAt: uc.now(),
	}, entries, res.Operations)

	if req.DryRun {
		uc.journalFinish(ctx, res.RunID, domain.RunPlanned, nil)
		return res, nil
	}

	x := &executor.Executor{Log: uc.Log, Remote: uc.Toggl, OnResult: uc.markFunc(ctx, res.RunID)}
	res.Applied, err = x.Run(ctx, res.Operations)
	if err != nil {
		uc.journalFinish(ctx, res.RunID, domain.RunFailed, err)
		return res, err
	}
	uc.journalFinish(ctx, res.RunID, domain.RunCompleted, nil)
	uc.Log.Info("operations applied", slog.Int("count", res.Applied))
	return res, nil
}

// fetchScoped returns the period's entries belonging to projects of the
// configured clients, ordered by start. Without configured clients every entry of the
// workspace is in scope.
func (uc *ReconcileUseCase) fetchScoped(ctx context.Context, ws int64, rng period.Range) ([]domain.TimeEntry, error) {
	uc.Log.Info("fetching time entries", slog.Time("from", rng.From), slog.Time("to", rng.To))
	entries, err := uc.Toggl.ListTimeEntries(ctx, rng.From, rng.To)
	if err != nil {
		return nil, err
	}
	uc.Log.Info("fetched time entries", slog.Int("count", len(entries)))

	// Toggl returns newest first; breaks must consume the budget in day order.
	slices.SortStableFunc(entries, func(a, b domain.TimeEntry) int { return a.Start.Compare(b.Start) })

	if len(uc.Policy.Clients) == 0 {
		return slices.DeleteFunc(entries, func(e domain.TimeEntry) bool {
			return e.WorkspaceID != 0 && e.WorkspaceID != ws
		}), nil
	}

	clients, err := uc.Toggl.ListClients(ctx, ws)
	if err != nil {
		return nil, err
	}
	clientIDs := make(map[int64]bool)
	for _, c := range clients {
		if uc.Policy.IsClient(c.Name) {
			clientIDs[c.ID] = true
		}
	}
	projects, err := uc.Toggl.ListProjects(ctx, ws)
	if err != nil {
		return nil, err
	}
	projectIDs := make(map[int64]bool)
	for _, p := range projects {
		if p.ClientID != nil && clientIDs[*p.ClientID] {
			projectIDs[p.ID] = true
		}
	}
	scoped := slices.DeleteFunc(entries, func(e domain.TimeEntry) bool {
		return e.ProjectID == nil || !projectIDs[*e.ProjectID]
	})
	uc.Log.Info("scoped time entries",
		slog.Int("clients", len(clientIDs)),
		slog.Int("projects", len(projectIDs)),
		slog.Int("entries", len(scoped)),
	)
	return scoped, nil
}

// Journal failures are logged and never change the outcome of a run.

func (uc *ReconcileUseCase) journalStart(ctx context.Context, run domain.Run, entries []domain.TimeEntry, ops []reconcile.Operation) {
	if uc.Journal == nil {
		return
	}
	if err := uc.Journal.StartRun(ctx, run); err != nil {
		uc.Log.Warn("journal: start run", slog.String("error", err.Error()))
		return
	}
	if err := uc.Journal.SnapshotEntries(ctx, entries); err != nil {
		uc.Log.Warn("journal: snapshot entries", slog.String("error", err.Error()))
	}
	if err := uc.Journal.RecordOperations(ctx, run.ID, ops); err != nil {
		uc.Log.Warn("journal: record operations", slog.String("error", err.Error()))
	}
}

func (uc *ReconcileUseCase) journalFinish(ctx context.Context, runID string, status domain.RunStatus, runErr error) {
	if uc.Journal == nil {
		return
	}
	// The run context may already be cancelled; the journal still gets its final row.
	ctx = context.WithoutCancel(ctx)
	if err := uc.Journal.FinishRun(ctx, runID, status, runErr); err != nil {
		uc.Log.Warn("journal: finish run", slog.String("error", err.Error()))
	}
}

func (uc *ReconcileUseCase) markFunc(ctx context.Context, runID string) executor.ResultFunc {
	if uc.Journal == nil {
		return nil
	}
	return func(i int, _ reconcile.Operation, opErr error) {
		status := domain.OpApplied
		if opErr != nil {
			status = domain.OpFailed
		}
		if err := uc.Journal.MarkOperation(context.WithoutCancel(ctx), runID, i, status, opErr); err != nil {
			uc.Log.Warn("journal: mark operation", slog.Int("index", i), slog.String("error", err.Error()))
		}
	}
}

func (uc *ReconcileUseCase) now() time.Time {
	if uc.Now != nil {
		return uc.Now()
	}
	return time.Now()
}

func (uc *ReconcileUseCase) newRunID() string {
	if uc.NewRunID != nil {
		return uc.NewRunID()
	}
	return uuid.New().String()
}
