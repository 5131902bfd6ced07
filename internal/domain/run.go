package domain

import "time"

// RunStatus is the lifecycle state of a reconciliation run.
type RunStatus string

const (
	RunStarted   RunStatus = "started"
	RunPlanned   RunStatus = "planned" // dry run, nothing applied
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// OpStatus is the state of a single journaled operation.
type OpStatus string

const (
	OpPlanned OpStatus = "planned"
	OpApplied OpStatus = "applied"
	OpFailed  OpStatus = "failed"
)

// Run describes one invocation of the reconciler.
type Run struct {
	ID          string
	WorkspaceID int64
	From        time.Time
	To          time.Time
	DryRun      bool
	StartedAt   time.Time
}
