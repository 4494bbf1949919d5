package app

import (
	"context"
	"log"
	"time"

	"github.com/five82/digest/internal/api"
	"github.com/five82/digest/internal/state"
)

const (
	defaultPollInterval = 15 * time.Second
	maxBackoff          = 30 * time.Second
)

// HealthSource is the part of the backend the poller probes.
type HealthSource interface {
	Health(ctx context.Context) (api.Health, error)
	Config(ctx context.Context) (api.RuntimeConfig, error)
	Warmup(ctx context.Context) (api.Health, error)
}

// StartPoller launches a background goroutine that refreshes the store at a
// fixed cadence, backing off while the backend is unreachable. When coldStart
// is set the first probe keeps retrying until the backend wakes. It returns
// immediately.
func StartPoller(ctx context.Context, store *state.Store, src HealthSource, interval time.Duration, coldStart bool) {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	go func() {
		if coldStart {
			warmup(ctx, store, src)
		}
		for {
			refresh(ctx, store, src)

			wait := calculateBackoff(store.Snapshot().ConsecutiveFailures, interval)
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
	}()
}

func warmup(ctx context.Context, store *state.Store, src HealthSource) {
	h, err := src.Warmup(ctx)
	if err != nil {
		if ctx.Err() == nil {
			store.Update(nil, err)
			log.Printf("[WARN] backend did not wake: %v", err)
		}
		return
	}
	store.Update(&h, nil)
	log.Printf("[INFO] backend awake, status=%s", h.Status)
}

func refresh(ctx context.Context, store *state.Store, src HealthSource) {
	h, err := src.Health(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		store.Update(nil, err)
		log.Printf("[WARN] health poll failed: %v", err)
		return
	}
	store.Update(&h, nil)

	if store.Snapshot().HasConfig {
		return
	}
	cfg, err := src.Config(ctx)
	if err != nil {
		log.Printf("[DEBUG] runtime config unavailable: %v", err)
		return
	}
	store.SetConfig(cfg)
}

// calculateBackoff doubles base for every consecutive failure, capped at
// maxBackoff. The wait never drops below base.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	limit := max(base, maxBackoff)
	if failures <= 0 {
		return base
	}
	d := base
	for i := 0; i < failures; i++ {
		d *= 2
		if d >= limit {
			return limit
		}
	}
	return d
}
