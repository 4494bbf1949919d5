// Package ui provides the terminal dashboard for the digest service.
//
// # Architecture Overview
//
// The UI is a Bubble Tea program. Model is the single root model; screens are
// plain render/handle method pairs on it rather than nested models. Domain
// state lives in the internal/state controllers, which are safe for concurrent
// use. The model never blocks on the network: controller calls run inside
// tea.Cmds and the model copies every controller's State() snapshot after
// each command finishes (syncedMsg, resultMsg) and on every poll tick.
//
// # Package Structure
//
//   - app.go: Model, Options, Init/Update/View, route changes and Run
//   - navigation.go: routes and the auth guard
//   - header.go: logo, backend badge, screen tabs and command bar
//   - dashboard.go, subscription.go, history.go, quicksetup.go, guidance.go,
//     login.go, logs.go: the screens
//   - delivery.go, fields.go, box.go: shared form rows and boxes
//   - coldstart.go: the "server is waking up" alert with spinner and progress bar
//   - toast.go: notifications bridged from state.Notifier
//   - modal.go, help.go, keys.go, theme.go: overlays, bindings and palettes
//
// # Routes
//
// Guard maps every route through the current session.State:
//
//   - While the session is loading the route is left alone
//   - Unauthenticated users always land on /login
//   - Authenticated users on / or /login are sent to /dashboard
//
// Session changes arrive on a channel filled by session.Controller.Subscribe
// in Run, so sign-in, sign-out and token expiry re-guard the route without
// waiting for the next tick.
//
// # Timers
//
//   - Poll tick (Options.PollTick, default 1s): backend snapshot, controller
//     pull, toast expiry, cold-start progress and log follow
//   - Countdown tick (schedule.CountdownInterval): advances the next-push
//     countdown on the dashboard
//
// # Usage Example
//
//	err := ui.Run(ui.Options{
//		Context:       ctx,
//		Session:       sess,
//		Subscriptions: subs,
//		History:       hist,
//		Guidance:      guide,
//		QuickSetup:    quick,
//		Store:         store,
//		Toaster:       toaster,
//		Config:        cfg,
//	})
//
// # Key Bindings
//
//   - 1-6: Dashboard, Subscription, History, Quick setup, Guided setup, Logs
//   - Tab/Shift+Tab: Cycle screens
//   - r: Refresh the current screen
//   - p: Pause or resume delivery
//   - ctrl+s: Save the current form
//   - /, n/N: Search logs, next/previous match
//   - T: Cycle theme (saved to prefs)
//   - X: Sign out
//   - ?: Help
//   - e or Ctrl+C: Exit
package ui
