package window

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestStarts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		start, end time.Time
		want       []time.Time
	}{
		{
			name:  "single day",
			start: date(2024, 6, 1),
			end:   date(2024, 6, 1),
			want:  []time.Time{date(2024, 6, 1)},
		},
		{
			name:  "shorter than a window",
			start: date(2024, 6, 1),
			end:   date(2024, 6, 20),
			want:  []time.Time{date(2024, 6, 1)},
		},
		{
			name:  "exact multiple",
			start: date(2024, 6, 1),
			end:   date(2024, 7, 31),
			want:  []time.Time{date(2024, 6, 1), date(2024, 7, 1), date(2024, 7, 31)},
		},
		{
			name:  "one short of a multiple",
			start: date(2024, 6, 1),
			end:   date(2024, 7, 30),
			want:  []time.Time{date(2024, 6, 1), date(2024, 7, 1)},
		},
		{
			name:  "inverted",
			start: date(2024, 6, 2),
			end:   date(2024, 6, 1),
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Starts(tt.start, tt.end)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, len(tt.want), Count(tt.start, tt.end))
		})
	}
}

func TestStarts_LastWithinRange(t *testing.T) {
	t.Parallel()

	start := date(2024, 1, 15)
	for days := 0; days < 400; days += 7 {
		end := start.AddDate(0, 0, days)
		starts := Starts(start, end)
		require.NotEmpty(t, starts)
		last := starts[len(starts)-1]
		assert.False(t, last.After(end), "days=%d", days)
		assert.True(t, last.AddDate(0, 0, Size).After(end), "days=%d", days)
	}
}

func TestStarts_TimeZoneIndependent(t *testing.T) {
	t.Parallel()

	kl := time.FixedZone("MYT", 8*3600)
	ny := time.FixedZone("EST", -5*3600)

	a := Starts(time.Date(2024, 3, 1, 23, 30, 0, 0, kl), time.Date(2024, 5, 10, 1, 0, 0, 0, kl))
	b := Starts(time.Date(2024, 3, 1, 0, 5, 0, 0, ny), time.Date(2024, 5, 10, 22, 0, 0, 0, ny))
	c := Starts(date(2024, 3, 1), date(2024, 5, 10))

	assert.Equal(t, c, a)
	assert.Equal(t, c, b)
}
