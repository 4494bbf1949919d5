// Package state holds the data the dashboard renders and the controllers that
// keep it current.
//
// # Store
//
// Store is the backend liveness snapshot written by the health poller and
// read by the UI. Update keeps the last good data on failure and counts
// consecutive failures; two in a row mark the backend offline. IsWaking tells
// the UI to show the cold-start alert instead of a plain error.
//
//	Producer (poller):              Consumer (UI):
//	System.Health() → store.Update  store.Snapshot() → render
//
// Snapshots are copies; the UI may keep them across frames.
//
// # Controllers
//
// SubscriptionController, HistoryController, GuidanceController and
// QuickSetupController wrap the API sub-clients. Each:
//
//   - tracks loading and error text per data set
//   - converts sub-client failures into messages instead of returning them
//     unhandled; mutations answer with a Result
//   - notifies through a Notifier, except for 404s and network errors which
//     are expected while a dormant backend wakes
//   - takes a context on every call and drops results that arrive after the
//     context ended or after the data was reset (sign-out, wizard cancel)
//
// SubscriptionController.Sync is the auth gate: it waits while the session
// is resolving, runs the one-time parallel fetch of the subscription and the
// frequency options once signed in, and clears itself on sign-out so the next
// sign-in fetches again.
//
// # History Pagination
//
// FetchHistory requests offset = len(items). HasMore follows the server's
// has_more or total fields when present. Without them a full page is taken
// to mean more may follow, so a final page that exactly fills the limit costs
// one extra, empty request.
package state
