// Package period computes reporting windows.
package period

import (
	"time"

	"toggl-billing/internal/errs"
)

// Range is a half-open interval [From, To).
type Range struct {
	From time.Time
	To   time.Time
}

// Month returns the calendar month offset months before now, evaluated in
// loc. Offset 0 is the current month, 1 the previous one.
func Month(now time.Time, offset int, loc *time.Location) (Range, error) {
	if offset < 0 {
		return Range{}, errs.NewConfigurationError("month", "offset must not be negative")
	}
	if loc == nil {
		loc = time.UTC
	}
	n := now.In(loc)
	// time.Date normalises month underflow into the previous year.
	from := time.Date(n.Year(), n.Month()-time.Month(offset), 1, 0, 0, 0, 0, loc)
	to := time.Date(n.Year(), n.Month()-time.Month(offset)+1, 1, 0, 0, 0, 0, loc)
	return Range{From: from, To: to}, nil
}

// Contains reports whether t lies in [From, To).
func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.From) && t.Before(r.To)
}
