package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-pkgz/repeater/v2"
)

const (
	warmupAttempts     = 6
	warmupInitialDelay = 2 * time.Second
	warmupMaxDelay     = 15 * time.Second
	healthProbeTimeout = 10 * time.Second
)

// SystemAPI binds the liveness and runtime configuration endpoints.
type SystemAPI struct {
	r Requester
}

// NewSystemAPI builds the system sub-client on r.
func NewSystemAPI(r Requester) *SystemAPI {
	return &SystemAPI{r: r}
}

// Health probes backend liveness.
func (s *SystemAPI) Health(ctx context.Context) (Health, error) {
	var h Health
	err := s.r.Request(ctx, Request{Method: http.MethodGet, Endpoint: "/health", Out: &h, Timeout: healthProbeTimeout})
	return h, err
}

// Config returns the backend's runtime configuration.
func (s *SystemAPI) Config(ctx context.Context) (RuntimeConfig, error) {
	var cfg RuntimeConfig
	err := s.r.Request(ctx, Request{Method: http.MethodGet, Endpoint: "/config", Out: &cfg})
	return cfg, err
}

// Warmup keeps probing /health until the backend answers, which wakes a
// dormant instance before the dashboard issues real requests.
func (s *SystemAPI) Warmup(ctx context.Context) (Health, error) {
	var h Health
	retrier := repeater.NewBackoff(warmupAttempts, warmupInitialDelay, repeater.WithMaxDelay(warmupMaxDelay))
	err := retrier.Do(ctx, func() error {
		got, err := s.Health(ctx)
		if err != nil {
			return err
		}
		h = got
		return nil
	})
	if err != nil {
		return Health{}, fmt.Errorf("backend warmup: %w", err)
	}
	return h, nil
}

// Services groups every sub-client over one request core.
type Services struct {
	Subscriptions *SubscriptionAPI
	History       *HistoryAPI
	Guidance      *GuidanceAPI
	Onboarding    *OnboardingAPI
	Tags          *TagAPI
	System        *SystemAPI
}

// NewServices builds all sub-clients on r.
func NewServices(r Requester) *Services {
	return &Services{
		Subscriptions: NewSubscriptionAPI(r),
		History:       NewHistoryAPI(r),
		Guidance:      NewGuidanceAPI(r),
		Onboarding:    NewOnboardingAPI(r),
		Tags:          NewTagAPI(r),
		System:        NewSystemAPI(r),
	}
}
