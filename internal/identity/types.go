package identity

import "time"

// Event names an auth state transition.
type Event string

const (
	EventInitialSession Event = "INITIAL_SESSION"
	EventSignedIn       Event = "SIGNED_IN"
	EventSignedOut      Event = "SIGNED_OUT"
	EventTokenRefreshed Event = "TOKEN_REFRESHED"
)

// Listener receives auth state changes. session is nil after sign-out.
type Listener func(event Event, session *Session)

// User is the identity provider's account record.
type User struct {
	ID           string         `json:"id" toml:"id" yaml:"id"`
	Email        string         `json:"email" toml:"email" yaml:"email"`
	Role         string         `json:"role,omitempty" toml:"role,omitempty" yaml:"role,omitempty"`
	UserMetadata map[string]any `json:"user_metadata,omitempty" toml:"user_metadata,omitempty" yaml:"metadata,omitempty"`
	CreatedAt    string         `json:"created_at,omitempty" toml:"created_at,omitempty" yaml:"created_at,omitempty"`
}

// DisplayName prefers the provider-supplied full name and falls back to the email.
func (u User) DisplayName() string {
	for _, key := range []string{"full_name", "name"} {
		if v, ok := u.UserMetadata[key].(string); ok && v != "" {
			return v
		}
	}
	return u.Email
}

// Session is a signed-in session as returned by the token endpoint.
type Session struct {
	AccessToken  string `json:"access_token" toml:"access_token"`
	TokenType    string `json:"token_type" toml:"token_type"`
	ExpiresIn    int64  `json:"expires_in" toml:"expires_in"`
	ExpiresAt    int64  `json:"expires_at" toml:"expires_at"`
	RefreshToken string `json:"refresh_token" toml:"refresh_token"`
	User         User   `json:"user" toml:"user"`
}

// Expiry returns when the access token stops being accepted.
func (s *Session) Expiry() time.Time {
	if s == nil || s.ExpiresAt == 0 {
		return time.Time{}
	}
	return time.Unix(s.ExpiresAt, 0)
}

// NeedsRefresh reports whether the token expires within margin of now.
func (s *Session) NeedsRefresh(now time.Time, margin time.Duration) bool {
	exp := s.Expiry()
	if exp.IsZero() {
		return false
	}
	return !now.Add(margin).Before(exp)
}
