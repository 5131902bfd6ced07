package reconcile

import (
	"slices"
	"time"

	"toggl-billing/internal/domain"
	"toggl-billing/internal/errs"
)

// DayGroup holds the entries whose start falls into [Day, Day+24h) in the
// grouping location, in the order they were fetched.
type DayGroup struct {
	Day     time.Time
	Entries []domain.TimeEntry
}

// GroupByDay groups entries by the local midnight of their start and orders
// the groups ascending. Entries that cannot be reconciled are returned
// separately instead of aborting the run.
func GroupByDay(entries []domain.TimeEntry, loc *time.Location) ([]DayGroup, []*errs.DataShapeError) {
	if loc == nil {
		loc = time.Local
	}
	var (
		groups   []DayGroup
		rejected []*errs.DataShapeError
		index    = make(map[int64]int)
	)
	for _, e := range entries {
		if reason := checkShape(e); reason != "" {
			rejected = append(rejected, &errs.DataShapeError{EntryID: e.ID, Reason: reason})
			continue
		}
		day := DayOf(e.Start, loc)
		key := day.Unix()
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, DayGroup{Day: day})
		}
		groups[i].Entries = append(groups[i].Entries, e)
	}
	slices.SortFunc(groups, func(a, b DayGroup) int { return a.Day.Compare(b.Day) })
	return groups, rejected
}

// DayOf returns midnight of t's calendar day in loc.
func DayOf(t time.Time, loc *time.Location) time.Time {
	l := t.In(loc)
	y, m, d := l.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func checkShape(e domain.TimeEntry) string {
	switch {
	case e.ID == 0:
		return "missing id"
	case e.Start.IsZero():
		return "missing start"
	case e.DurationSec < 0:
		return "negative duration (entry still running)"
	}
	return ""
}
