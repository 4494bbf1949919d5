package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/digest/internal/api"
)

func TestTimes_Defaults(t *testing.T) {
	assert.Equal(t, "08:00", Describe(Times(api.FrequencyDaily, nil)))
	assert.Equal(t, "08:00, 20:00", Describe(Times(api.FrequencyTwice, nil)))
	assert.Equal(t, "08:00, 13:00, 20:00", Describe(Times(api.FrequencyThrice, nil)))
	assert.Equal(t, "08:00", Describe(Times("weekly", nil)))
}

func TestTimes_ServerOptionsWin(t *testing.T) {
	opts := []api.FrequencyOption{{Value: api.FrequencyTwice, PushTimes: []string{"21:30", "07:15", "bogus"}}}
	assert.Equal(t, "07:15, 21:30", Describe(Times(api.FrequencyTwice, opts)))
}

func TestParseClock(t *testing.T) {
	c, err := ParseClock(" 13:05 ")
	require.NoError(t, err)
	assert.Equal(t, Clock{Hour: 13, Minute: 5}, c)

	for _, bad := range []string{"", "1305", "24:00", "12:60", "aa:bb"} {
		_, err := ParseClock(bad)
		assert.Error(t, err, bad)
	}
}

func TestNextPush(t *testing.T) {
	loc := time.FixedZone("CST", 8*60*60)
	times := Times(api.FrequencyThrice, nil)

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"before first", time.Date(2026, 1, 5, 6, 0, 0, 0, loc), time.Date(2026, 1, 5, 8, 0, 0, 0, loc)},
		{"exactly at push", time.Date(2026, 1, 5, 13, 0, 0, 0, loc), time.Date(2026, 1, 5, 20, 0, 0, 0, loc)},
		{"after last", time.Date(2026, 1, 5, 21, 0, 0, 0, loc), time.Date(2026, 1, 6, 8, 0, 0, 0, loc)},
		{"month rollover", time.Date(2026, 1, 31, 22, 0, 0, 0, loc), time.Date(2026, 2, 1, 8, 0, 0, 0, loc)},
		{"other zone input", time.Date(2026, 1, 5, 0, 30, 0, 0, time.UTC), time.Date(2026, 1, 5, 13, 0, 0, 0, loc)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextPush(times, loc, tt.now)
			assert.True(t, got.Equal(tt.want), "got %v want %v", got, tt.want)
		})
	}

	assert.True(t, NextPush(nil, loc, time.Now()).IsZero())
}

func TestCountdown(t *testing.T) {
	assert.Equal(t, "<1m", Countdown(30*time.Second))
	assert.Equal(t, "45m", Countdown(45*time.Minute))
	assert.Equal(t, "2h 3m", Countdown(2*time.Hour+3*time.Minute+59*time.Second))
}

func TestAgo(t *testing.T) {
	assert.Equal(t, "just now", Ago(-time.Second))
	assert.Equal(t, "5m ago", Ago(5*time.Minute))
	assert.Equal(t, "3h ago", Ago(3*time.Hour))
	assert.Equal(t, "2d ago", Ago(49*time.Hour))
}

func TestLocation_FallsBack(t *testing.T) {
	loc := Location("Nowhere/Atlantis")
	_, offset := time.Date(2026, 1, 1, 0, 0, 0, 0, loc).Zone()
	assert.Equal(t, 8*60*60, offset)
}
