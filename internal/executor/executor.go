// Package executor applies reconciliation operations to Toggl.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"toggl-billing/internal/errs"
	"toggl-billing/internal/ports"
	"toggl-billing/internal/reconcile"
)

// ResultFunc is called after each attempted operation. err is nil on success.
type ResultFunc func(index int, op reconcile.Operation, err error)

// Executor applies operations strictly one at a time, in emission order.
// A split is a shrink followed by an insert and both must land in that
// order, so there is never more than one request in flight.
type Executor struct {
	Log      *slog.Logger
	Remote   ports.TogglWriter
	OnResult ResultFunc
}

// Run applies ops and returns how many succeeded. The first failure stops
// the queue and is returned as *errs.RemoteExecutionError.
func (x *Executor) Run(ctx context.Context, ops []reconcile.Operation) (int, error) {
	if x.Remote == nil {
		return 0, errors.New("executor not initialized: missing remote")
	}
	for i, op := range ops {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		err := x.apply(ctx, op)
		if x.OnResult != nil {
			x.OnResult(i, op, err)
		}
		if err != nil {
			x.Log.Error("operation failed",
				slog.Int("index", i),
				slog.String("type", string(op.Type)),
				slog.Int64("id", op.ID),
				slog.String("error", err.Error()),
			)
			return i, &errs.RemoteExecutionError{Index: i, Op: string(op.Type), Err: err}
		}
		x.Log.Debug("operation applied",
			slog.Int("index", i),
			slog.String("type", string(op.Type)),
			slog.String("desc", op.Desc),
		)
	}
	return len(ops), nil
}

func (x *Executor) apply(ctx context.Context, op reconcile.Operation) error {
	switch op.Type {
	case reconcile.OpModify:
		if op.Patch == nil {
			return fmt.Errorf("modify %d: empty patch", op.ID)
		}
		return x.Remote.UpdateTimeEntry(ctx, op.WorkspaceID, op.ID, *op.Patch)
	case reconcile.OpInsert:
		if op.TimeEntry == nil {
			return errors.New("insert: missing time entry")
		}
		return x.Remote.CreateTimeEntry(ctx, *op.TimeEntry)
	default:
		return fmt.Errorf("unknown operation type %q", op.Type)
	}
}
