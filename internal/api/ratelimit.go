package api

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultSweepInterval is how often Run evicts expired entries.
	DefaultSweepInterval = 5 * time.Minute

	defaultRateLimitWindow = time.Minute
	epochSecondsThreshold  = 1_000_000_000
)

// RateLimitInfo is the last quota state reported for an endpoint.
type RateLimitInfo struct {
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

// RateLimitStatus answers whether an endpoint should be called right now.
type RateLimitStatus struct {
	Limited  bool
	WaitTime time.Duration
}

// RateLimitTracker remembers rate-limit headers per endpoint.
// Entries expire lazily on lookup and eagerly when Run sweeps.
type RateLimitTracker struct {
	mu      sync.Mutex
	entries map[string]RateLimitInfo
	now     func() time.Time
}

// NewRateLimitTracker creates an empty tracker using the wall clock.
func NewRateLimitTracker() *RateLimitTracker {
	return NewRateLimitTrackerWithClock(time.Now)
}

// NewRateLimitTrackerWithClock creates a tracker driven by now.
func NewRateLimitTrackerWithClock(now func() time.Time) *RateLimitTracker {
	if now == nil {
		now = time.Now
	}
	return &RateLimitTracker{
		entries: make(map[string]RateLimitInfo),
		now:     now,
	}
}

// Update records the rate-limit headers of a response. Responses without
// rate-limit headers leave the tracker untouched.
func (t *RateLimitTracker) Update(endpoint string, h http.Header) {
	if t == nil || h == nil {
		return
	}
	remainingRaw := strings.TrimSpace(h.Get("X-RateLimit-Remaining"))
	resetRaw := strings.TrimSpace(h.Get("X-RateLimit-Reset"))
	if resetRaw == "" {
		resetRaw = strings.TrimSpace(h.Get("RateLimit-Reset"))
	}
	retryRaw := strings.TrimSpace(h.Get("Retry-After"))
	if remainingRaw == "" && retryRaw == "" {
		return
	}

	now := t.now()
	var info RateLimitInfo
	if remainingRaw != "" {
		n, err := strconv.Atoi(remainingRaw)
		if err != nil {
			log.Printf("[DEBUG] ignoring malformed x-ratelimit-remaining %q for %s", remainingRaw, endpoint)
			return
		}
		info.Remaining = n
	}
	if retryRaw != "" {
		info.RetryAfter = parseRetryAfter(retryRaw, now)
	}
	switch {
	case resetRaw != "":
		info.ResetTime = parseReset(resetRaw, now)
	case info.RetryAfter > 0:
		info.ResetTime = now.Add(info.RetryAfter)
	default:
		info.ResetTime = now.Add(defaultRateLimitWindow)
	}
	t.Set(endpoint, info)
}

// Set stores info for endpoint, replacing any previous entry.
func (t *RateLimitTracker) Set(endpoint string, info RateLimitInfo) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[endpoint] = info
}

// Info returns the tracked entry for endpoint without evicting it.
func (t *RateLimitTracker) Info(endpoint string) (RateLimitInfo, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	info, ok := t.entries[endpoint]
	return info, ok
}

// IsRateLimited reports whether endpoint is out of quota. An entry whose reset
// time has passed is removed and reported as not limited.
func (t *RateLimitTracker) IsRateLimited(endpoint string) RateLimitStatus {
	if t == nil {
		return RateLimitStatus{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	info, ok := t.entries[endpoint]
	if !ok {
		return RateLimitStatus{}
	}
	now := t.now()
	if !now.Before(info.ResetTime) {
		delete(t.entries, endpoint)
		return RateLimitStatus{}
	}
	if info.Remaining > 0 && info.RetryAfter <= 0 {
		return RateLimitStatus{}
	}
	return RateLimitStatus{Limited: true, WaitTime: info.ResetTime.Sub(now)}
}

// Sweep evicts every expired entry and returns how many were removed.
func (t *RateLimitTracker) Sweep() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	removed := 0
	for endpoint, info := range t.entries {
		if !now.Before(info.ResetTime) {
			delete(t.entries, endpoint)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked endpoints.
func (t *RateLimitTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Run sweeps expired entries every interval until ctx is cancelled.
func (t *RateLimitTracker) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := t.Sweep(); n > 0 {
				log.Printf("[DEBUG] rate-limit sweep evicted %d entries", n)
			}
		}
	}
}

// parseReset accepts either unix epoch seconds or seconds from now.
func parseReset(raw string, now time.Time) time.Time {
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return now.Add(defaultRateLimitWindow)
	}
	if n > epochSecondsThreshold {
		return time.Unix(int64(n), 0)
	}
	return now.Add(time.Duration(n * float64(time.Second)))
}

// parseRetryAfter accepts delta seconds or an HTTP date.
func parseRetryAfter(raw string, now time.Time) time.Duration {
	if secs, err := strconv.Atoi(raw); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(raw); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
