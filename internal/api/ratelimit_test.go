package api

import (
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestRateLimitTracker_ExpiresAfterReset(t *testing.T) {
	clock := newFakeClock()
	tr := NewRateLimitTrackerWithClock(clock.Now)

	tr.Set("/subscriptions/", RateLimitInfo{Remaining: 0, ResetTime: clock.Now().Add(5 * time.Second)})

	status := tr.IsRateLimited("/subscriptions/")
	assert.True(t, status.Limited)
	assert.Equal(t, 5*time.Second, status.WaitTime)

	clock.Advance(5 * time.Second)
	status = tr.IsRateLimited("/subscriptions/")
	assert.False(t, status.Limited)
	assert.Zero(t, status.WaitTime)

	_, ok := tr.Info("/subscriptions/")
	assert.False(t, ok, "expired entry should be evicted on lookup")
	assert.Equal(t, 0, tr.Len())
}

func TestRateLimitTracker_RemainingQuotaNotLimited(t *testing.T) {
	clock := newFakeClock()
	tr := NewRateLimitTrackerWithClock(clock.Now)

	tr.Set("/history/", RateLimitInfo{Remaining: 3, ResetTime: clock.Now().Add(time.Minute)})
	assert.False(t, tr.IsRateLimited("/history/").Limited)
	assert.False(t, tr.IsRateLimited("/unknown").Limited)
}

func TestRateLimitTracker_UpdateParsesHeaders(t *testing.T) {
	clock := newFakeClock()
	tr := NewRateLimitTrackerWithClock(clock.Now)

	tests := []struct {
		name       string
		header     http.Header
		wantReset  time.Time
		wantRemain int
		wantRetry  time.Duration
	}{
		{
			name:       "delta reset",
			header:     http.Header{"X-Ratelimit-Remaining": {"0"}, "X-Ratelimit-Reset": {"30"}},
			wantReset:  clock.Now().Add(30 * time.Second),
			wantRemain: 0,
		},
		{
			name:       "epoch reset",
			header:     http.Header{"X-Ratelimit-Remaining": {"7"}, "X-Ratelimit-Reset": {"1740816600"}},
			wantReset:  time.Unix(1740816600, 0),
			wantRemain: 7,
		},
		{
			name:       "standard reset header",
			header:     http.Header{"X-Ratelimit-Remaining": {"1"}, "Ratelimit-Reset": {"10"}},
			wantReset:  clock.Now().Add(10 * time.Second),
			wantRemain: 1,
		},
		{
			name:      "retry-after only",
			header:    http.Header{"Retry-After": {"12"}},
			wantReset: clock.Now().Add(12 * time.Second),
			wantRetry: 12 * time.Second,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr.Update(tt.name, tt.header)
			info, ok := tr.Info(tt.name)
			require.True(t, ok)
			assert.True(t, tt.wantReset.Equal(info.ResetTime), "reset = %v, want %v", info.ResetTime, tt.wantReset)
			assert.Equal(t, tt.wantRemain, info.Remaining)
			assert.Equal(t, tt.wantRetry, info.RetryAfter)
		})
	}

	tr.Update("/plain", http.Header{"Content-Type": {"application/json"}})
	_, ok := tr.Info("/plain")
	assert.False(t, ok, "responses without rate-limit headers are ignored")

	tr.Update("/bad", http.Header{"X-Ratelimit-Remaining": {"many"}})
	_, ok = tr.Info("/bad")
	assert.False(t, ok)
}

func TestRateLimitTracker_RetryAfterLimitsEvenWithQuota(t *testing.T) {
	clock := newFakeClock()
	tr := NewRateLimitTrackerWithClock(clock.Now)

	tr.Update("/guidance/start", http.Header{"X-Ratelimit-Remaining": {"5"}, "Retry-After": {"3"}})
	status := tr.IsRateLimited("/guidance/start")
	assert.True(t, status.Limited)
	assert.Equal(t, 3*time.Second, status.WaitTime)
}

func TestRateLimitTracker_Sweep(t *testing.T) {
	clock := newFakeClock()
	tr := NewRateLimitTrackerWithClock(clock.Now)

	tr.Set("a", RateLimitInfo{ResetTime: clock.Now().Add(time.Second)})
	tr.Set("b", RateLimitInfo{ResetTime: clock.Now().Add(time.Hour)})
	clock.Advance(2 * time.Second)

	assert.Equal(t, 1, tr.Sweep())
	assert.Equal(t, 1, tr.Len())
	_, ok := tr.Info("b")
	assert.True(t, ok)
}

func TestRateLimitTracker_DefaultSweepInterval(t *testing.T) {
	assert.Equal(t, 5*time.Minute, DefaultSweepInterval)
}
