package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/five82/digest/internal/api"
	"github.com/five82/digest/internal/state"
)

func TestCalculateBackoff(t *testing.T) {
	baseInterval := 2 * time.Second

	tests := []struct {
		name     string
		failures int
		want     time.Duration
	}{
		{"zero failures", 0, 2 * time.Second},
		{"negative failures", -1, 2 * time.Second},
		{"one failure", 1, 4 * time.Second},
		{"two failures", 2, 8 * time.Second},
		{"three failures", 3, 16 * time.Second},
		{"four failures capped", 4, 30 * time.Second}, // Would be 32s, capped to 30s
		{"many failures capped", 10, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calculateBackoff(tt.failures, baseInterval)
			if got != tt.want {
				t.Errorf("calculateBackoff(%d, %v) = %v, want %v", tt.failures, baseInterval, got, tt.want)
			}
		})
	}
}

func TestCalculateBackoff_NeverBelowBase(t *testing.T) {
	base := time.Minute
	for failures := 0; failures <= 5; failures++ {
		if got := calculateBackoff(failures, base); got != base {
			t.Errorf("calculateBackoff(%d, %v) = %v, want %v", failures, base, got, base)
		}
	}
	if got := calculateBackoff(1, 20*time.Second); got != maxBackoff {
		t.Errorf("calculateBackoff(1, 20s) = %v, want 30s", got)
	}
}

func TestCalculateBackoff_MaxCap(t *testing.T) {
	// Verify that backoff never exceeds maxBackoff regardless of input
	baseInterval := 2 * time.Second
	for failures := 0; failures <= 20; failures++ {
		got := calculateBackoff(failures, baseInterval)
		if got > maxBackoff {
			t.Errorf("calculateBackoff(%d, %v) = %v, exceeds maxBackoff %v", failures, baseInterval, got, maxBackoff)
		}
	}
}

type fakeSource struct {
	healthErr   error
	configCalls int
	warmups     int
}

func (f *fakeSource) Health(context.Context) (api.Health, error) {
	if f.healthErr != nil {
		return api.Health{}, f.healthErr
	}
	return api.Health{Status: "healthy", Version: "1.2.0"}, nil
}

func (f *fakeSource) Config(context.Context) (api.RuntimeConfig, error) {
	f.configCalls++
	return api.RuntimeConfig{Environment: "production", MaxKeywords: 10}, nil
}

func (f *fakeSource) Warmup(ctx context.Context) (api.Health, error) {
	f.warmups++
	return f.Health(ctx)
}

func TestRefreshRecordsHealthAndConfigOnce(t *testing.T) {
	store := &state.Store{}
	src := &fakeSource{}

	refresh(context.Background(), store, src)
	refresh(context.Background(), store, src)

	snap := store.Snapshot()
	if !snap.HasHealth || snap.Health.Version != "1.2.0" {
		t.Fatalf("health not recorded: %+v", snap.Health)
	}
	if !snap.HasConfig || snap.Config.MaxKeywords != 10 {
		t.Fatalf("config not recorded: %+v", snap.Config)
	}
	if src.configCalls != 1 {
		t.Fatalf("config fetched %d times, want 1", src.configCalls)
	}
}

func TestRefreshCountsFailures(t *testing.T) {
	store := &state.Store{}
	src := &fakeSource{healthErr: errors.New("connection refused")}

	refresh(context.Background(), store, src)
	refresh(context.Background(), store, src)

	snap := store.Snapshot()
	if snap.ConsecutiveFailures != 2 {
		t.Fatalf("ConsecutiveFailures = %d, want 2", snap.ConsecutiveFailures)
	}
	if !snap.IsOffline() {
		t.Fatalf("expected offline after two failures")
	}
	if src.configCalls != 0 {
		t.Fatalf("config fetched while backend unreachable")
	}
}

func TestRefreshIgnoresCancelledContext(t *testing.T) {
	store := &state.Store{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	refresh(ctx, store, &fakeSource{healthErr: context.Canceled})
	if store.Snapshot().ConsecutiveFailures != 0 {
		t.Fatalf("cancelled probe counted as failure")
	}
}

func TestWarmupUpdatesStore(t *testing.T) {
	store := &state.Store{}
	src := &fakeSource{}

	warmup(context.Background(), store, src)
	if src.warmups != 1 {
		t.Fatalf("warmups = %d, want 1", src.warmups)
	}
	if !store.Snapshot().HasHealth {
		t.Fatalf("warmup result not stored")
	}
}
