// Package api provides the HTTP client for the digest backend REST API.
//
// # Overview
//
// Every call goes through one request core, Client.Request, which resolves the
// endpoint against {NEXT_PUBLIC_API_URL}/api/v1, attaches default headers and the
// bearer token, picks a timeout tier, decodes JSON and classifies failures.
// Thin sub-clients (SubscriptionAPI, HistoryAPI, GuidanceAPI, OnboardingAPI,
// TagAPI, SystemAPI) bind a path, verb and payload type each and hold no logic
// of their own.
//
// # Timeout Tiers
//
//   - 90s: guidance analysis routes (analyze-keywords, investment-focus,
//     finalize, optimization-suggestions)
//   - 60s: every other route when the backend runs on a cold-start prone host
//   - 30s: everything else
//
// Request.Timeout overrides the tier for a single call.
//
// # Cold Starts
//
// Free instances on the hosting provider sleep when idle and take tens of
// seconds to wake. When the base URL points at such a host, requests to
// /subscriptions, /guidance and any */status route that fail with a
// cold-start-like error (status 0, 503, 504, or a timeout/ECONNREFUSED/fetch
// failed message) are retried three more times after 3000, 4500 and 6750 ms.
// Other errors and other routes fail immediately. IsColdStart is exported so
// the UI can show its own "waking up" alert from the same classification.
//
// # Errors
//
// Non-2xx responses and transport failures produce *RequestError:
//
//   - Status is the HTTP status, or 0 when no response arrived
//   - Message comes from the JSON body ("detail", "message" or "error"), else
//     "HTTP error! status: N"; status-0 messages start with "Network error"
//   - Details holds the decoded error body, empty when it was not JSON
//
// A 204 response leaves the output value untouched.
//
// # Authentication
//
// SetAuthToken and ClearAuthToken change the token every later request is sent
// with. The token lives in a mutex-guarded holder owned by the Client, so
// concurrent requests read a consistent value at dispatch time. WithToken and
// WithoutToken bind a token to a context for a single call chain.
//
// # Rate Limits
//
// Every response feeds the client's RateLimitTracker, keyed by endpoint. Callers
// ask IsRateLimited before issuing a call; entries expire lazily on lookup and
// RateLimitTracker.Run sweeps them every five minutes for as long as its
// context lives.
package api
