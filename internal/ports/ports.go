package ports

import (
	"context"
	"time"

	"toggl-billing/internal/domain"
	"toggl-billing/internal/reconcile"
)

// TogglReader fetches the data a reconciliation run is based on.
type TogglReader interface {
	Me(ctx context.Context) (domain.User, error)
	ListClients(ctx context.Context, workspaceID int64) ([]domain.Client, error)
	ListProjects(ctx context.Context, workspaceID int64) ([]domain.Project, error)
	ListTimeEntries(ctx context.Context, from, to time.Time) ([]domain.TimeEntry, error)
}

// TogglWriter applies operations to Toggl.
type TogglWriter interface {
	UpdateTimeEntry(ctx context.Context, workspaceID, id int64, patch reconcile.Patch) error
	CreateTimeEntry(ctx context.Context, entry reconcile.NewEntry) error
}

// TogglClient is the full remote surface used by the reconcile use case.
type TogglClient interface {
	TogglReader
	TogglWriter
}

// Journal records reconciliation runs for later auditing. Implementations
// must not influence the outcome of a run.
type Journal interface {
	StartRun(ctx context.Context, run domain.Run) error
	RecordOperations(ctx context.Context, runID string, ops []reconcile.Operation) error
	MarkOperation(ctx context.Context, runID string, index int, status domain.OpStatus, opErr error) error
	FinishRun(ctx context.Context, runID string, status domain.RunStatus, runErr error) error
	SnapshotEntries(ctx context.Context, entries []domain.TimeEntry) error
}
