// Package reconcile decides, per calendar day, which time entries have to
// change their billable state and which break entries have to be split so
// that the day's break time stays within the configured budget.
//
// Everything in this package is side-effect free; operations are only
// described here and applied elsewhere.
package reconcile

import (
	"math"
	"time"

	"toggl-billing/internal/domain"
	"toggl-billing/internal/policy"
)

// Reconciler applies a Policy to day groups.
type Reconciler struct {
	policy policy.Policy
}

// New returns a Reconciler for p. p is expected to be validated.
func New(p policy.Policy) *Reconciler {
	return &Reconciler{policy: p}
}

// DaySummary is the reconciliation result of one day.
type DaySummary struct {
	Day           time.Time          `json:"date" yaml:"date"`
	Billable      int64              `json:"billable" yaml:"billable"`
	NonBillable   int64              `json:"nonBillable" yaml:"nonBillable"`
	BreakBudget   int64              `json:"breakBudget" yaml:"breakBudget"`
	BreakConsumed int64              `json:"breakConsumed" yaml:"breakConsumed"`
	Entries       []domain.TimeEntry `json:"-" yaml:"-"`
	Operations    []Operation        `json:"modifications" yaml:"modifications"`
}

// Reconcile runs ReconcileDay for every group, keeping group order.
func (r *Reconciler) Reconcile(groups []DayGroup) []DaySummary {
	out := make([]DaySummary, 0, len(groups))
	for _, g := range groups {
		out = append(out, r.ReconcileDay(g))
	}
	return out
}

// ReconcileDay walks the day's entries in order. The break budget is derived
// once from the billable total before any entry is visited and is not
// revisited as corrections are decided.
func (r *Reconciler) ReconcileDay(g DayGroup) DaySummary {
	p := r.policy
	billable := policy.SumDuration(policy.Not(p.IsNonBillable), g.Entries)
	s := DaySummary{
		Day:         g.Day,
		Billable:    billable,
		NonBillable: policy.SumDuration(p.IsNonBillable, g.Entries),
		BreakBudget: int64(math.Floor(float64(billable) / p.MaxBreakRatio)),
		Entries:     g.Entries,
	}

	var consumed int64
	for _, e := range g.Entries {
		// default billable
		if !p.IsNonBillable(e) && !e.Billable {
			s.Operations = append(s.Operations, Modify(e, setBillable(true)))
		}
		// traveling is not billable
		if p.IsTravel(e) && e.Billable {
			s.Operations = append(s.Operations, Modify(e, setBillable(false)))
		}
		// a break that is also travel stays non-billable; it still consumes budget
		if p.IsBreak(e) {
			if !p.IsTravel(e) {
				s.Operations = append(s.Operations, breakOps(e, consumed, s.BreakBudget)...)
			}
			consumed += e.DurationSec
		}
	}
	s.BreakConsumed = consumed
	return s
}

// breakOps decides the operations for one break entry given the break time
// already consumed that day.
func breakOps(e domain.TimeEntry, consumed, budget int64) []Operation {
	switch {
	case consumed >= budget && e.Billable:
		return []Operation{Modify(e, setBillable(false))}
	case consumed < budget && consumed+e.DurationSec > budget:
		head := budget - consumed
		return []Operation{
			Modify(e, shrink(head)),
			Insert(e, e.Start.Add(time.Duration(head)*time.Second), e.DurationSec-head, false),
		}
	case consumed+e.DurationSec <= budget && !e.Billable:
		return []Operation{Modify(e, setBillable(true))}
	}
	return nil
}

// Flatten concatenates the operations of all days in day order.
func Flatten(days []DaySummary) []Operation {
	var n int
	for _, d := range days {
		n += len(d.Operations)
	}
	out := make([]Operation, 0, n)
	for _, d := range days {
		out = append(out, d.Operations...)
	}
	return out
}
