// Package identity signs users in against a Supabase GoTrue project and
// keeps their session alive.
//
// # Sign-in
//
// SignInWithOAuth runs the PKCE authorization-code flow from a terminal:
//
//  1. A random code verifier and its S256 challenge are generated
//  2. A callback server listens on 127.0.0.1:{callback_port} under a one-time path
//  3. The authorize URL (/auth/v1/authorize?provider=google&...) is handed to OpenURL
//  4. The browser returns to the loopback address with ?code=...
//  5. The code is exchanged at /auth/v1/token?grant_type=pkce
//
// # Sessions
//
// The resulting Session is persisted through a SessionStore. FileStore writes
// TOML with 0600 permissions. When a token response omits expires_at the
// expiry and user id are read from the access token's claims; signatures are
// not verified because the backend holds the signing key.
//
// GetSession loads the stored session on first use and refreshes it when it
// expires within a minute. AutoRefresh does the same in the background, with
// repeater backoff for transient failures. A refresh token the provider
// rejects (400/401/403) signs the user out locally.
//
// # Events
//
// OnAuthStateChange listeners receive INITIAL_SESSION (first load),
// SIGNED_IN, TOKEN_REFRESHED and SIGNED_OUT. Listeners run synchronously on
// the goroutine that caused the transition and must not call back into the
// Client while holding their own locks.
package identity
