// Package policy holds the billing policy and the predicates that classify
// single time entries against it.
package policy

import (
	"math"
	"slices"

	"toggl-billing/internal/domain"
	"toggl-billing/internal/errs"
)

// Tags names the two labels with special billing semantics.
type Tags struct {
	Traveling string `mapstructure:"traveling" json:"traveling" yaml:"traveling"`
	Break     string `mapstructure:"break" json:"break" yaml:"break"`
}

// Policy is loaded once per run and passed explicitly to the reconciler.
type Policy struct {
	// MaxBreakRatio is the billable-seconds to break-seconds ceiling.
	MaxBreakRatio float64  `mapstructure:"maxBreakRatio" json:"maxBreakRatio" yaml:"maxBreakRatio"`
	Tags          Tags     `mapstructure:"tags" json:"tags" yaml:"tags"`
	Clients       []string `mapstructure:"clients" json:"clients" yaml:"clients"`
}

// Validate reports the first missing or invalid field.
func (p Policy) Validate() error {
	r := p.MaxBreakRatio
	if math.IsNaN(r) || math.IsInf(r, 0) || r <= 0 {
		return errs.NewConfigurationError("maxBreakRatio", "must be a positive finite number")
	}
	if p.Tags.Break == "" {
		return errs.NewConfigurationError("tags.break", "is required")
	}
	if p.Tags.Traveling == "" {
		return errs.NewConfigurationError("tags.traveling", "is required")
	}
	return nil
}

// HasTag reports whether e carries tag. Empty tags never match.
func HasTag(e domain.TimeEntry, tag string) bool {
	if tag == "" || len(e.Tags) == 0 {
		return false
	}
	return slices.Contains(e.Tags, tag)
}

// IsBreak reports whether e carries the break tag.
func (p Policy) IsBreak(e domain.TimeEntry) bool { return HasTag(e, p.Tags.Break) }

// IsTravel reports whether e carries the travel tag.
func (p Policy) IsTravel(e domain.TimeEntry) bool { return HasTag(e, p.Tags.Traveling) }

// IsNonBillable reports whether e is non-billable by category, i.e. tagged
// as break or travel. The current billable flag is irrelevant here.
func (p Policy) IsNonBillable(e domain.TimeEntry) bool {
	return p.IsBreak(e) || p.IsTravel(e)
}

// IsClient reports whether name is one of the configured clients.
func (p Policy) IsClient(name string) bool {
	return slices.Contains(p.Clients, name)
}

// SumDuration adds up DurationSec over the entries matching pred.
func SumDuration(pred func(domain.TimeEntry) bool, entries []domain.TimeEntry) int64 {
	var total int64
	for _, e := range entries {
		if pred(e) {
			total += e.DurationSec
		}
	}
	return total
}

// Not negates a predicate.
func Not(pred func(domain.TimeEntry) bool) func(domain.TimeEntry) bool {
	return func(e domain.TimeEntry) bool { return !pred(e) }
}
