// Package app provides the orchestration layer for the digest dashboard.
//
// # Overview
//
// This package wires together configuration, identity, the request core,
// the domain controllers and the UI. It is the composition root: every
// dependency is created here and handed to the packages that use it.
//
// # Architecture
//
// Build performs the wiring shared with the one-shot CLI commands:
//
//  1. Load .env.local/.env and ~/.config/digest/config.toml
//  2. Create the api.Client and its per-resource api.Services
//  3. Create the identity client when the project URL and anon key are set,
//     otherwise fall back to session.Unconfigured
//  4. Create the session.Controller that feeds access tokens to the client
//
// Run adds the long-lived pieces and starts the TUI:
//
//   - identity.Client.AutoRefresh keeps the session fresh
//   - RateLimitTracker.Run sweeps expired rate-limit windows
//   - StartPoller probes the backend health endpoint
//   - ui.Run subscribes to session changes, then starts the session
//     controller, and blocks until the user quits or ctx is cancelled
//
// # Components
//
//   - app.go: Options, Build, Deps and Run
//   - poller.go: background health poller with exponential backoff
//
// # Data Flow
//
//	┌──────────────┐
//	│   Run()      │ Initialize everything
//	└──────┬───────┘
//	       │
//	       ├─────> Build()                 config, api, identity, session
//	       ├─────> state controllers       subscription, history, guidance, quick setup
//	       ├─────> StartPoller()           launch health probes
//	       └─────> ui.Run()                subscribe, session.Start(), TUI (blocks)
//
//	Background Poller Loop:
//	┌─────────────────────────────────────────┐
//	│ StartPoller() goroutine                 │
//	│  ├─> Warmup()   (cold-start hosts only) │
//	│  ├─> Health()                           │
//	│  ├─> Config()   (until first success)   │
//	│  └─> store.Update()                     │
//	│      └─> UI reads store.Snapshot()      │
//	└─────────────────────────────────────────┘
//
// # Polling Behavior
//
// The poller probes /health every PollEvery seconds (default 15). Each
// consecutive failure doubles the wait, capped at 30 seconds, and the first
// success resets it. Hosts that sleep when idle are woken with
// SystemAPI.Warmup before the first regular probe.
//
// # Error Handling
//
// Fatal errors (returned from Run):
//   - Config file present but unreadable or invalid TOML
//   - Backend URL that cannot be parsed
//   - Identity URL that cannot be parsed
//   - Unknown start route
//
// Recoverable errors (logged, the dashboard keeps running):
//   - Health and config probe failures
//   - Session resolution and refresh failures
//   - Missing or placeholder settings, reported as config warnings
package app
