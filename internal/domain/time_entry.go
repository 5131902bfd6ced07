package domain

import "time"

// TimeEntry represents a Toggl time entry in the domain.
type TimeEntry struct {
	ID          int64
	WorkspaceID int64
	ProjectID   *int64
	UserID      int64
	Description string
	Billable    bool
	Tags        []string
	Start       time.Time
	Stop        *time.Time
	DurationSec int64 // Negative means running in Toggl API semantics
}

// End returns Stop when known, otherwise Start + DurationSec.
func (e TimeEntry) End() time.Time {
	if e.Stop != nil {
		return *e.Stop
	}
	return e.Start.Add(time.Duration(e.DurationSec) * time.Second)
}
