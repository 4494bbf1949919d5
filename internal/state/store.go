package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/five82/digest/internal/api"
)

// Snapshot is the latest backend liveness data available to the UI.
type Snapshot struct {
	Health              api.Health
	HasHealth           bool
	Config              api.RuntimeConfig
	HasConfig           bool
	LastUpdated         time.Time
	LastError           error
	ConsecutiveFailures int // Number of consecutive poll failures
}

// IsOffline returns true when the backend has been unreachable for multiple polls.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// IsWaking reports whether the last failure looks like a dormant backend starting up.
func (s Snapshot) IsWaking() bool {
	return s.LastError != nil && api.IsColdStart(s.LastError)
}

// Store coordinates concurrent updates to the snapshot.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// Update records a health probe. When err is non-nil the previous data is kept
// but the error is recorded for visibility.
func (s *Store) Update(health *api.Health, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.snapshot.LastError = err
		s.snapshot.LastUpdated = time.Now()
		s.snapshot.ConsecutiveFailures++
		return
	}

	if health != nil {
		s.snapshot.Health = *health
		s.snapshot.HasHealth = true
	} else {
		s.snapshot.HasHealth = false
	}
	s.snapshot.LastError = nil
	s.snapshot.LastUpdated = time.Now()
	s.snapshot.ConsecutiveFailures = 0
}

// SetConfig stores the backend's runtime configuration.
func (s *Store) SetConfig(cfg api.RuntimeConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Config = cloneConfig(cfg)
	s.snapshot.HasConfig = true
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Config = cloneConfig(s.snapshot.Config)
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}

func cloneConfig(cfg api.RuntimeConfig) api.RuntimeConfig {
	cfg.SupportedLanguages = cloneStrings(cfg.SupportedLanguages)
	cfg.SupportedPlatforms = cloneStrings(cfg.SupportedPlatforms)
	cfg.NewsSources = cloneStrings(cfg.NewsSources)
	return cfg
}

func cloneStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	dup := make([]string, len(in))
	copy(dup, in)
	return dup
}
