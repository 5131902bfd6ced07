package report

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toggl-billing/internal/domain"
	"toggl-billing/internal/reconcile"
)

func sampleDays() []reconcile.DaySummary {
	start := time.Date(2025, 8, 4, 12, 0, 0, 0, time.UTC)
	e := domain.TimeEntry{ID: 5, WorkspaceID: 1, Start: start, DurationSec: 5400, Tags: []string{"break"}}
	return []reconcile.DaySummary{
		{Operations: []reconcile.Operation{
			reconcile.Modify(e, reconcile.Patch{}),
			reconcile.Insert(e, start.Add(time.Hour), 1800, false),
		}},
		{Operations: nil},
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatJSON, "json": FormatJSON, "yaml": FormatYAML, "yml": FormatYAML} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestNewBatch(t *testing.T) {
	b := NewBatch(sampleDays())
	assert.Equal(t, 2, b.Count)
	assert.Len(t, b.Operations, 2)
}

func TestWrite_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatJSON, NewBatch(sampleDays())))

	var got struct {
		Count      int              `json:"count"`
		Operations []map[string]any `json:"operations"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, 2, got.Count)
	require.Len(t, got.Operations, 2)
	assert.Equal(t, "modify", got.Operations[0]["type"])
	assert.EqualValues(t, 5, got.Operations[0]["id"])
	assert.Equal(t, "insert", got.Operations[1]["type"])

	te, ok := got.Operations[1]["time_entry"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, reconcile.CreatedWith, te["created_with"])
	assert.EqualValues(t, 1800, te["duration"])
	assert.Equal(t, false, te["billable"])
}

func TestWrite_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatYAML, NewBatch(sampleDays())))

	var got struct {
		Count      int              `yaml:"count"`
		Operations []map[string]any `yaml:"operations"`
	}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, 2, got.Count)
	require.Len(t, got.Operations, 2)
	assert.Equal(t, "insert", got.Operations[1]["type"])
	assert.Contains(t, buf.String(), "count: 2")
	assert.Contains(t, buf.String(), "created_with: administrative script")
}

func TestWrite_EmptyBatch(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatJSON, Batch{}))
	assert.JSONEq(t, `{"count": 0, "operations": []}`, buf.String())
}

func TestWrite_CountFollowsOperations(t *testing.T) {
	var buf bytes.Buffer
	b := NewBatch(sampleDays())
	b.Count = 99
	require.NoError(t, Write(&buf, FormatJSON, b))
	assert.Contains(t, buf.String(), `"count": 2`)
}
