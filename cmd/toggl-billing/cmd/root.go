// Package cmd provides CLI commands for toggl-billing.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"toggl-billing/internal/app"
	"toggl-billing/internal/config"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "toggl-billing",
	Short: "Reconcile Toggl time entries against a billing policy",
	Long: `toggl-billing fetches one month of Toggl time entries for the configured
clients and makes them comply with the billing policy:

- travel entries are never billable
- breaks are billable up to a daily budget derived from billable work
- a break crossing the budget is split into a billable and a non-billable part

Example:
  toggl-billing reconcile --dry
  toggl-billing reconcile -m 0 --config policy.yaml
  toggl-billing serve`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

// Execute runs the root command. Errors are printed to stderr.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "billing policy file, JSON or YAML (default $BILLING_CONFIG or config.json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(serveCmd)
}

// newApp loads configuration and wires the application.
func newApp(ctx context.Context) (*app.App, config.Config, error) {
	log := slog.Default()
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, cfg, fmt.Errorf("config: %w", err)
	}
	a, err := app.New(ctx, log, cfg)
	if err != nil {
		return nil, cfg, fmt.Errorf("init: %w", err)
	}
	return a, cfg, nil
}
