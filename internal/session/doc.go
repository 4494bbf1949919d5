// Package session holds the signed-in state shared by the dashboard and the
// CLI commands.
//
// A Controller moves from uninitialized to loading on Start and settles on
// authenticated or unauthenticated once the provider answers. Every provider
// change event replaces the whole tuple (user, session, loading=false, no
// error) and pushes the new access token, or its absence, to the TokenSink.
// Errors are recorded next to the status rather than replacing it.
//
// Start's own result is dropped when a change event arrived while it waited,
// so a slow session lookup never overwrites a newer sign-in or sign-out.
package session
