package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"toggl-billing/internal/report"
	"toggl-billing/internal/usecase"
)

var (
	monthOffset  int
	dryRun       bool
	outputFormat string
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile one month of time entries",
	Long: `Fetch the time entries of one month, compute the operations needed to comply
with the billing policy and apply them one at a time. The first failing
operation aborts the batch.

With --dry the operations are printed to stdout instead of being applied.

Example:
  toggl-billing reconcile            # previous month
  toggl-billing reconcile -m 0 -d    # current month, print only
  toggl-billing reconcile -d --format yaml`,
	RunE: runReconcile,
}

func init() {
	reconcileCmd.Flags().IntVarP(&monthOffset, "month", "m", 1, "months back from the current one (0 = current month)")
	reconcileCmd.Flags().BoolVarP(&dryRun, "dry", "d", false, "print operations instead of applying them")
	reconcileCmd.Flags().StringVar(&outputFormat, "format", "json", "dry run output format: json or yaml")
}

func runReconcile(cmd *cobra.Command, args []string) error {
	format, err := report.ParseFormat(outputFormat)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, _, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.Reconcile(ctx, usecase.Request{MonthOffset: monthOffset, DryRun: dryRun})
	if err != nil {
		return err
	}

	if dryRun {
		return report.Write(cmd.OutOrStdout(), format, report.NewBatch(res.Days))
	}
	slog.Info("reconciliation finished",
		slog.String("run_id", res.RunID),
		slog.Int("applied", res.Applied),
		slog.Int("rejected", len(res.Rejected)),
	)
	return nil
}
