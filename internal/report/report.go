// Package report renders operation batches for dry runs.
package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/goccy/go-yaml"

	"toggl-billing/internal/reconcile"
)

// Format selects the output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts "json", "yaml" and "yml". Empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown output format %q", s)
}

// Batch is the printed form of a run.
type Batch struct {
	Count      int                   `json:"count" yaml:"count"`
	Operations []reconcile.Operation `json:"operations" yaml:"operations"`
}

// NewBatch flattens days into a Batch.
func NewBatch(days []reconcile.DaySummary) Batch {
	ops := reconcile.Flatten(days)
	return Batch{Count: len(ops), Operations: ops}
}

// Write encodes b, count first, to w. An empty batch still prints an empty
// operation list.
func Write(w io.Writer, f Format, b Batch) error {
	if b.Operations == nil {
		b.Operations = []reconcile.Operation{}
	}
	b.Count = len(b.Operations)
	switch f {
	case FormatYAML:
		out, err := yaml.MarshalWithOptions(b, yaml.Indent(2), yaml.IndentSequence(false))
		if err != nil {
			return err
		}
		_, err = w.Write(out)
		return err
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(b)
	}
}
