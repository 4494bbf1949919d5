package ui

import (
	"strings"

	"github.com/five82/digest/internal/api"
	"github.com/five82/digest/internal/state"
)

// Badge keys shared by themes and renderers.
const (
	statusActive  = "active"
	statusPaused  = "paused"
	statusOnline  = "online"
	statusWaking  = "waking"
	statusOffline = "offline"
)

// subscriptionStatus returns the badge key for a subscription.
func subscriptionStatus(sub *api.Subscription) string {
	if sub != nil && sub.IsActive {
		return statusActive
	}
	return statusPaused
}

// backendStatus classifies the latest health snapshot.
func backendStatus(snap state.Snapshot) string {
	switch {
	case snap.IsWaking():
		return statusWaking
	case snap.IsOffline():
		return statusOffline
	case snap.HasHealth && snap.Health.OK():
		return statusOnline
	case snap.LastError != nil:
		return statusOffline
	default:
		return ""
	}
}

// platformLabel returns the display name of a delivery platform.
func platformLabel(platform string) string {
	switch strings.ToLower(strings.TrimSpace(platform)) {
	case api.PlatformEmail:
		return "Email"
	case api.PlatformDiscord:
		return "Discord"
	default:
		return titleCase(platform)
	}
}

// frequencyLabel returns the display name of a frequency tier.
func frequencyLabel(freq string, options []api.FrequencyOption) string {
	for _, opt := range options {
		if opt.Value == freq && strings.TrimSpace(opt.Label) != "" {
			return opt.Label
		}
	}
	switch freq {
	case api.FrequencyDaily:
		return "Once a day"
	case api.FrequencyTwice:
		return "Twice a day"
	case api.FrequencyThrice:
		return "Three times a day"
	default:
		return titleCase(freq)
	}
}
