package period

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonth(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	tests := []struct {
		name     string
		now      time.Time
		offset   int
		loc      *time.Location
		wantFrom time.Time
		wantTo   time.Time
	}{
		{
			name:     "current month",
			now:      time.Date(2025, 8, 15, 12, 0, 0, 0, time.UTC),
			offset:   0,
			loc:      time.UTC,
			wantFrom: time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC),
			wantTo:   time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "previous month across year boundary",
			now:      time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC),
			offset:   1,
			loc:      time.UTC,
			wantFrom: time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC),
			wantTo:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "thirteen months back",
			now:      time.Date(2025, 3, 31, 12, 0, 0, 0, time.UTC),
			offset:   13,
			loc:      time.UTC,
			wantFrom: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			wantTo:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "local month differs from UTC month",
			now:      time.Date(2025, 5, 31, 23, 30, 0, 0, time.UTC),
			offset:   0,
			loc:      berlin,
			wantFrom: time.Date(2025, 6, 1, 0, 0, 0, 0, berlin),
			wantTo:   time.Date(2025, 7, 1, 0, 0, 0, 0, berlin),
		},
		{
			name:     "nil location falls back to UTC",
			now:      time.Date(2025, 8, 15, 12, 0, 0, 0, time.UTC),
			offset:   2,
			wantFrom: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
			wantTo:   time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Month(tt.now, tt.offset, tt.loc)
			require.NoError(t, err)
			assert.True(t, tt.wantFrom.Equal(r.From), "from = %s", r.From)
			assert.True(t, tt.wantTo.Equal(r.To), "to = %s", r.To)
		})
	}
}

func TestMonth_NegativeOffset(t *testing.T) {
	_, err := Month(time.Now(), -1, time.UTC)
	require.Error(t, err)
}

func TestRange_Contains(t *testing.T) {
	r := Range{
		From: time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
	}
	assert.True(t, r.Contains(r.From))
	assert.False(t, r.Contains(r.To))
	assert.True(t, r.Contains(r.To.Add(-time.Second)))
	assert.False(t, r.Contains(r.From.Add(-time.Second)))
}
