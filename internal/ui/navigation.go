package ui

import (
	"strings"

	"github.com/five82/digest/internal/session"
)

// Route names a dashboard screen. The values mirror the web app's paths so
// links and the --route flag read the same.
type Route string

const (
	RouteRoot         Route = "/"
	RouteLogin        Route = "/login"
	RouteDashboard    Route = "/dashboard"
	RouteSubscription Route = "/subscription"
	RouteHistory      Route = "/history"
	RouteQuickSetup   Route = "/quick-setup"
	RouteGuidance     Route = "/guidance"
	RouteLogs         Route = "/logs"
)

// navOrder is the tab cycle for signed-in users.
var navOrder = []Route{
	RouteDashboard,
	RouteSubscription,
	RouteHistory,
	RouteQuickSetup,
	RouteGuidance,
	RouteLogs,
}

// ParseRoute accepts "/history", "history" and similar spellings.
func ParseRoute(raw string) (Route, bool) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return RouteRoot, true
	}
	if !strings.HasPrefix(raw, "/") {
		raw = "/" + raw
	}
	r := Route(strings.TrimSuffix(raw, "/"))
	if r == "" {
		return RouteRoot, true
	}
	for _, known := range append([]Route{RouteLogin}, navOrder...) {
		if r == known {
			return r, true
		}
	}
	return RouteRoot, false
}

// Title is the label shown in the header and tab bar.
func (r Route) Title() string {
	switch r {
	case RouteLogin:
		return "Sign in"
	case RouteDashboard:
		return "Dashboard"
	case RouteSubscription:
		return "Subscription"
	case RouteHistory:
		return "History"
	case RouteQuickSetup:
		return "Quick setup"
	case RouteGuidance:
		return "Guidance"
	case RouteLogs:
		return "Logs"
	default:
		return "Home"
	}
}

// Restorable reports whether the screen is reopened on the next start.
// Setup wizards are not: their progress is not persisted.
func (r Route) Restorable() bool {
	switch r {
	case RouteDashboard, RouteSubscription, RouteHistory, RouteLogs:
		return true
	default:
		return false
	}
}

// Guard decides where a request for route lands given the auth state.
//
// While auth is still settling the route is kept so nothing flashes. Signed-out
// users always land on the login screen; signed-in users never see it, and the
// bare root forwards them to the dashboard.
func Guard(route Route, auth session.State) Route {
	if auth.Loading || auth.Status == session.StatusUninitialized || auth.Status == session.StatusLoading {
		return route
	}
	if !auth.Authenticated() {
		return RouteLogin
	}
	if route == RouteRoot || route == RouteLogin || route == "" {
		return RouteDashboard
	}
	return route
}

func nextRoute(current Route, step int) Route {
	idx := 0
	for i, r := range navOrder {
		if r == current {
			idx = i
			break
		}
	}
	n := len(navOrder)
	return navOrder[((idx+step)%n+n)%n]
}
