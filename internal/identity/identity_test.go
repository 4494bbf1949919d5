package identity

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) listen(event Event, _ *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) got() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

type fakeGoTrue struct {
	mu         sync.Mutex
	srv        *httptest.Server
	tokenCalls []url.Values
	bodies     []map[string]string
	rejectNext bool
	logouts    int
	session    Session
}

func newFakeGoTrue(t *testing.T) *fakeGoTrue {
	t.Helper()
	f := &fakeGoTrue{session: Session{
		AccessToken:  "access-1",
		TokenType:    "bearer",
		ExpiresIn:    3600,
		RefreshToken: "refresh-1",
		User:         User{ID: "u-1", Email: "ann@example.org"},
	}}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if r.Header.Get("apikey") != "anon" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/auth/v1/token":
			data, _ := io.ReadAll(r.Body)
			body := map[string]string{}
			_ = json.Unmarshal(data, &body)
			f.tokenCalls = append(f.tokenCalls, r.URL.Query())
			f.bodies = append(f.bodies, body)
			if f.rejectNext {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid Refresh Token"}`))
				return
			}
			_ = json.NewEncoder(w).Encode(f.session)
		case "/auth/v1/user":
			_ = json.NewEncoder(w).Encode(f.session.User)
		case "/auth/v1/logout":
			f.logouts++
			w.WriteHeader(http.StatusNoContent)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func newTestClient(t *testing.T, f *fakeGoTrue, store SessionStore, now func() time.Time) *Client {
	t.Helper()
	c, err := NewClient(Options{URL: f.srv.URL, AnonKey: "anon", Store: store, Now: now})
	require.NoError(t, err)
	return c
}

func TestNewClient_RequiresConfiguration(t *testing.T) {
	_, err := NewClient(Options{URL: "", AnonKey: "anon"})
	require.ErrorIs(t, err, ErrNotConfigured)
	_, err = NewClient(Options{URL: "https://abcd.supabase.co", AnonKey: " "})
	require.ErrorIs(t, err, ErrNotConfigured)

	c, err := NewClient(Options{URL: "abcd.supabase.co/", AnonKey: "anon"})
	require.NoError(t, err)
	assert.Equal(t, "https://abcd.supabase.co/auth/v1", c.authURL.String())
}

func TestAuthorizeURL(t *testing.T) {
	c, err := NewClient(Options{URL: "https://abcd.supabase.co", AnonKey: "anon"})
	require.NoError(t, err)

	u, err := url.Parse(c.AuthorizeURL(ProviderGoogle, "http://127.0.0.1:5000/auth/callback/x", "chal"))
	require.NoError(t, err)
	assert.Equal(t, "/auth/v1/authorize", u.Path)
	assert.Equal(t, "google", u.Query().Get("provider"))
	assert.Equal(t, "http://127.0.0.1:5000/auth/callback/x", u.Query().Get("redirect_to"))
	assert.Equal(t, "chal", u.Query().Get("code_challenge"))
	assert.Equal(t, "s256", u.Query().Get("code_challenge_method"))
}

func TestPKCE(t *testing.T) {
	// RFC 7636 appendix B.
	assert.Equal(t, "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM", challengeFor("dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"))

	pair, err := newPKCE()
	require.NoError(t, err)
	assert.Len(t, pair.Verifier, 64)
	assert.Equal(t, challengeFor(pair.Verifier), pair.Challenge)
}

func TestParseClaims(t *testing.T) {
	exp := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tok := signedToken(t, jwt.MapClaims{"sub": "u-9", "email": "bo@example.org", "exp": exp.Unix()})

	c, err := ParseClaims(tok)
	require.NoError(t, err)
	assert.Equal(t, "u-9", c.Subject)
	assert.Equal(t, "bo@example.org", c.Email)
	assert.Equal(t, exp.Unix(), c.ExpiresAt)

	_, err = ParseClaims("not-a-token")
	require.Error(t, err)
}

func TestExchangeCode_StoresSessionAndEmitsSignedIn(t *testing.T) {
	f := newFakeGoTrue(t)
	now := time.Unix(1_700_000_000, 0)
	store := &MemoryStore{}
	c := newTestClient(t, f, store, func() time.Time { return now })

	rec := &recorder{}
	c.OnAuthStateChange(rec.listen)

	s, err := c.ExchangeCode(context.Background(), "code-1", "verifier-1")
	require.NoError(t, err)
	assert.Equal(t, "access-1", s.AccessToken)
	assert.Equal(t, now.Add(time.Hour).Unix(), s.ExpiresAt)
	assert.Equal(t, []Event{EventSignedIn}, rec.got())

	require.Len(t, f.tokenCalls, 1)
	assert.Equal(t, "pkce", f.tokenCalls[0].Get("grant_type"))
	assert.Equal(t, map[string]string{"auth_code": "code-1", "code_verifier": "verifier-1"}, f.bodies[0])

	stored, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, s, stored)
}

func TestGetSession_RefreshesExpiringSession(t *testing.T) {
	f := newFakeGoTrue(t)
	f.session.AccessToken = "access-2"
	now := time.Unix(1_700_000_000, 0)
	store := &MemoryStore{s: &Session{AccessToken: "old", RefreshToken: "refresh-1", ExpiresAt: now.Add(30 * time.Second).Unix(), User: User{ID: "u-1"}}}
	c := newTestClient(t, f, store, func() time.Time { return now })

	rec := &recorder{}
	c.OnAuthStateChange(rec.listen)

	s, err := c.GetSession(context.Background())
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "access-2", s.AccessToken)
	assert.Equal(t, []Event{EventInitialSession, EventTokenRefreshed}, rec.got())
	require.Len(t, f.tokenCalls, 1)
	assert.Equal(t, "refresh_token", f.tokenCalls[0].Get("grant_type"))
	assert.Equal(t, "refresh-1", f.bodies[0]["refresh_token"])
}

func TestGetSession_FreshSessionIsReturnedAsIs(t *testing.T) {
	f := newFakeGoTrue(t)
	now := time.Unix(1_700_000_000, 0)
	stored := &Session{AccessToken: "a", RefreshToken: "r", ExpiresAt: now.Add(time.Hour).Unix(), User: User{ID: "u"}}
	c := newTestClient(t, f, &MemoryStore{s: stored}, func() time.Time { return now })

	s, err := c.GetSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, stored, s)
	assert.Empty(t, f.tokenCalls)
}

func TestGetSession_RejectedRefreshSignsOut(t *testing.T) {
	f := newFakeGoTrue(t)
	f.rejectNext = true
	now := time.Unix(1_700_000_000, 0)
	store := &MemoryStore{s: &Session{AccessToken: "old", RefreshToken: "bad", ExpiresAt: now.Unix() - 10, User: User{ID: "u-1"}}}
	c := newTestClient(t, f, store, func() time.Time { return now })

	rec := &recorder{}
	c.OnAuthStateChange(rec.listen)

	s, err := c.GetSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, s)
	assert.Equal(t, []Event{EventInitialSession, EventSignedOut}, rec.got())
	assert.Nil(t, store.s)
}

func TestSignOut_RevokesAndClears(t *testing.T) {
	f := newFakeGoTrue(t)
	store := &MemoryStore{}
	c := newTestClient(t, f, store, nil)
	_, err := c.ExchangeCode(context.Background(), "code", "verifier")
	require.NoError(t, err)

	rec := &recorder{}
	unsubscribe := c.OnAuthStateChange(rec.listen)

	require.NoError(t, c.SignOut(context.Background()))
	assert.Equal(t, 1, f.logouts)
	assert.Nil(t, c.Session())
	assert.Nil(t, store.s)
	assert.Equal(t, []Event{EventSignedOut}, rec.got())

	unsubscribe()
	unsubscribe()
	_, err = c.ExchangeCode(context.Background(), "code", "verifier")
	require.NoError(t, err)
	assert.Equal(t, []Event{EventSignedOut}, rec.got(), "unsubscribed listener must not fire")
}

func TestUser(t *testing.T) {
	f := newFakeGoTrue(t)
	c := newTestClient(t, f, nil, nil)

	_, err := c.User(context.Background())
	require.Error(t, err)

	_, err = c.ExchangeCode(context.Background(), "code", "verifier")
	require.NoError(t, err)
	u, err := c.User(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ann@example.org", u.Email)
}

func TestSignInWithOAuth_CompletesThroughLoopback(t *testing.T) {
	f := newFakeGoTrue(t)
	c, err := NewClient(Options{
		URL:     f.srv.URL,
		AnonKey: "anon",
		OpenURL: func(authorize string) error {
			u, err := url.Parse(authorize)
			if err != nil {
				return err
			}
			redirect := u.Query().Get("redirect_to")
			go func() {
				resp, err := http.Get(redirect + "?code=browser-code")
				if err == nil {
					_ = resp.Body.Close()
				}
			}()
			return nil
		},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.SignInWithOAuth(ctx, ProviderGoogle))

	require.NotNil(t, c.Session())
	assert.Equal(t, "browser-code", f.bodies[0]["auth_code"])
	assert.NotEmpty(t, f.bodies[0]["code_verifier"])
}

func TestSignInWithOAuth_ProviderErrorIsReported(t *testing.T) {
	f := newFakeGoTrue(t)
	c, err := NewClient(Options{
		URL:     f.srv.URL,
		AnonKey: "anon",
		OpenURL: func(authorize string) error {
			u, _ := url.Parse(authorize)
			go func() {
				resp, err := http.Get(u.Query().Get("redirect_to") + "?error=access_denied&error_description=user+cancelled")
				if err == nil {
					_ = resp.Body.Close()
				}
			}()
			return nil
		},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = c.SignInWithOAuth(ctx, ProviderGoogle)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user cancelled")
	assert.Empty(t, f.tokenCalls)
}

func TestCallbackServer_IgnoresWrongNonce(t *testing.T) {
	cb, err := startCallbackServer(0)
	require.NoError(t, err)
	defer func() { _ = cb.Close() }()

	u, err := url.Parse(cb.RedirectURL())
	require.NoError(t, err)
	resp, err := http.Get("http://" + u.Host + "/auth/callback/wrong?code=x")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = cb.Wait(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.toml")
	store := NewFileStore(path)

	s, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, s)

	want := &Session{AccessToken: "a", RefreshToken: "r", ExpiresAt: 1_700_000_000, User: User{ID: "u", Email: "e@x.org"}}
	require.NoError(t, store.Save(want))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.NoError(t, os.WriteFile(path, []byte("access_token = ["), 0o600))
	got, err = store.Load()
	require.NoError(t, err)
	assert.Nil(t, got, "corrupt file reads as signed out")

	require.NoError(t, store.Clear())
	require.NoError(t, store.Clear())
}

func TestSession_NeedsRefresh(t *testing.T) {
	now := time.Unix(1_000, 0)
	assert.False(t, (&Session{}).NeedsRefresh(now, time.Minute))
	assert.False(t, (&Session{ExpiresAt: 2_000}).NeedsRefresh(now, time.Minute))
	assert.True(t, (&Session{ExpiresAt: 1_030}).NeedsRefresh(now, time.Minute))
	assert.True(t, (&Session{ExpiresAt: 900}).NeedsRefresh(now, time.Minute))
}

func TestUser_DisplayName(t *testing.T) {
	assert.Equal(t, "Ann Lee", User{Email: "a@x.org", UserMetadata: map[string]any{"full_name": "Ann Lee"}}.DisplayName())
	assert.Equal(t, "a@x.org", User{Email: "a@x.org"}.DisplayName())
}
