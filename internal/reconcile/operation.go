package reconcile

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"toggl-billing/internal/domain"
)

// CreatedWith marks entries inserted by this tool.
const CreatedWith = "administrative script"

// OpType discriminates the two operation shapes.
type OpType string

const (
	OpModify OpType = "modify"
	OpInsert OpType = "insert"
)

// Patch is a partial field set applied to an existing entry.
type Patch struct {
	Duration *int64 `json:"duration,omitempty" yaml:"duration,omitempty"`
	Billable *bool  `json:"billable,omitempty" yaml:"billable,omitempty"`
}

// NewEntry is the payload of an insert. Only the whitelisted fields of the
// source entry are carried over.
type NewEntry struct {
	WorkspaceID int64     `json:"wid" yaml:"wid"`
	ProjectID   *int64    `json:"pid,omitempty" yaml:"pid,omitempty"`
	UserID      int64     `json:"uid,omitempty" yaml:"uid,omitempty"`
	Billable    bool      `json:"billable" yaml:"billable"`
	Description string    `json:"description" yaml:"description"`
	Tags        []string  `json:"tags" yaml:"tags"`
	CreatedWith string    `json:"created_with" yaml:"created_with"`
	Start       time.Time `json:"start" yaml:"start"`
	Duration    int64     `json:"duration" yaml:"duration"`
}

// Operation is either a modify of an existing entry or an insert of a new
// one. Desc is for display only and never sent to Toggl.
type Operation struct {
	Type        OpType    `json:"type" yaml:"type"`
	Desc        string    `json:"desc" yaml:"desc"`
	ID          int64     `json:"id,omitempty" yaml:"id,omitempty"`
	WorkspaceID int64     `json:"workspace_id,omitempty" yaml:"workspace_id,omitempty"`
	Patch       *Patch    `json:"patch,omitempty" yaml:"patch,omitempty"`
	TimeEntry   *NewEntry `json:"time_entry,omitempty" yaml:"time_entry,omitempty"`
}

// Modify builds a modify operation targeting e.
func Modify(e domain.TimeEntry, p Patch) Operation {
	return Operation{
		Type:        OpModify,
		Desc:        Describe(e),
		ID:          e.ID,
		WorkspaceID: e.WorkspaceID,
		Patch:       &p,
	}
}

// Insert builds an insert derived from e with the computed overrides.
func Insert(e domain.TimeEntry, start time.Time, duration int64, billable bool) Operation {
	var tags []string
	if len(e.Tags) > 0 {
		tags = append([]string(nil), e.Tags...)
	}
	var pid *int64
	if e.ProjectID != nil {
		p := *e.ProjectID
		pid = &p
	}
	return Operation{
		Type: OpInsert,
		Desc: Describe(e),
		TimeEntry: &NewEntry{
			WorkspaceID: e.WorkspaceID,
			ProjectID:   pid,
			UserID:      e.UserID,
			Billable:    billable,
			Description: e.Description,
			Tags:        tags,
			CreatedWith: CreatedWith,
			Start:       start,
			Duration:    duration,
		},
	}
}

func setBillable(v bool) Patch { return Patch{Billable: &v} }

func shrink(duration int64) Patch {
	b := true
	return Patch{Duration: &duration, Billable: &b}
}

// Describe renders "start - stop (1.5h)[tag1,tag2]".
func Describe(e domain.TimeEntry) string {
	return fmt.Sprintf("%s - %s (%sh)[%s]",
		e.Start.Format(time.RFC3339),
		e.End().Format(time.RFC3339),
		hours(e.DurationSec),
		strings.Join(e.Tags, ","),
	)
}

// hours formats seconds as hours with two significant digits.
func hours(sec int64) string {
	h := float64(sec) / 3600
	if h == 0 {
		return "0.0"
	}
	// 'e' rounds to two significant digits and yields the exact exponent.
	sci := strconv.FormatFloat(h, 'e', 1, 64)
	exp, err := strconv.Atoi(sci[strings.IndexByte(sci, 'e')+1:])
	if err != nil {
		return sci
	}
	rounded, _ := strconv.ParseFloat(sci, 64)
	return strconv.FormatFloat(rounded, 'f', max(1-exp, 0), 64)
}
