package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-pkgz/repeater/v2"
)

const (
	// ProviderGoogle is the only social provider the dashboard offers.
	ProviderGoogle = "google"

	defaultHTTPTimeout = 15 * time.Second
	refreshMargin      = 60 * time.Second
	idlePollInterval   = time.Minute
)

// ErrNotConfigured is returned when the identity project URL or key is missing.
var ErrNotConfigured = errors.New("identity provider is not configured")

// AuthError is a failure reported by the identity provider.
type AuthError struct {
	Status  int
	Code    string
	Message string
}

func (e *AuthError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("auth %s: %s (status %d)", e.Code, e.Message, e.Status)
	}
	return fmt.Sprintf("auth: %s (status %d)", e.Message, e.Status)
}

// IsRejected reports whether the provider refused the credentials, as opposed
// to being unreachable.
func IsRejected(err error) bool {
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		return false
	}
	switch authErr.Status {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
		return true
	}
	return false
}

// Options configures a Client.
type Options struct {
	URL          string
	AnonKey      string
	Store        SessionStore
	HTTPClient   *http.Client
	CallbackPort int
	// OpenURL presents the authorization URL to the user. The default logs it.
	OpenURL func(string) error
	Now     func() time.Time
}

// Client talks to a Supabase GoTrue endpoint and owns the current session.
type Client struct {
	authURL *url.URL
	anonKey string
	http    *http.Client
	store   SessionStore
	port    int
	openURL func(string) error
	now     func() time.Time

	mu        sync.Mutex
	session   *Session
	loaded    bool
	listeners map[int]Listener
	nextID    int
}

// NewClient validates opts and returns a client. No network call is made.
func NewClient(opts Options) (*Client, error) {
	raw := strings.TrimSpace(opts.URL)
	if raw == "" || strings.TrimSpace(opts.AnonKey) == "" {
		return nil, ErrNotConfigured
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse identity url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("identity url missing host: %q", opts.URL)
	}
	parsed.Path = strings.TrimRight(parsed.Path, "/") + "/auth/v1"

	c := &Client{
		authURL:   parsed,
		anonKey:   strings.TrimSpace(opts.AnonKey),
		http:      opts.HTTPClient,
		store:     opts.Store,
		port:      opts.CallbackPort,
		openURL:   opts.OpenURL,
		now:       opts.Now,
		listeners: make(map[int]Listener),
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: defaultHTTPTimeout}
	}
	if c.store == nil {
		c.store = &MemoryStore{}
	}
	if c.openURL == nil {
		c.openURL = func(u string) error {
			log.Printf("[INFO] open this address in a browser to sign in: %s", u)
			return nil
		}
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c, nil
}

// OnAuthStateChange registers fn for every later auth event and returns the
// function that unregisters it.
func (c *Client) OnAuthStateChange(fn Listener) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.listeners, id)
			c.mu.Unlock()
		})
	}
}

func (c *Client) emit(event Event, s *Session) {
	c.mu.Lock()
	fns := make([]Listener, 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	log.Printf("[DEBUG] auth event %s", event)
	for _, fn := range fns {
		fn(event, s)
	}
}

// Session returns the in-memory session without touching the store or network.
func (c *Client) Session() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// GetSession returns the current session, loading it from the store on first
// use and refreshing it when the access token is about to expire. A session
// the provider no longer accepts is cleared and reported as nil.
func (c *Client) GetSession(ctx context.Context) (*Session, error) {
	c.mu.Lock()
	first := !c.loaded
	if first {
		stored, err := c.store.Load()
		if err != nil {
			c.mu.Unlock()
			return nil, err
		}
		fillFromClaims(stored)
		c.session = stored
		c.loaded = true
	}
	current := c.session
	c.mu.Unlock()

	if first {
		c.emit(EventInitialSession, current)
	}
	if current == nil || !current.NeedsRefresh(c.now(), refreshMargin) {
		return current, nil
	}
	if current.RefreshToken == "" {
		_ = c.drop()
		return nil, nil
	}

	refreshed, err := c.Refresh(ctx)
	if err != nil {
		if IsRejected(err) {
			return nil, nil
		}
		return nil, err
	}
	return refreshed, nil
}

// AuthorizeURL builds the provider redirect for a PKCE sign-in.
func (c *Client) AuthorizeURL(provider, redirectTo, challenge string) string {
	u := *c.authURL
	u.Path += "/authorize"
	q := url.Values{}
	q.Set("provider", provider)
	q.Set("redirect_to", redirectTo)
	q.Set("code_challenge", challenge)
	q.Set("code_challenge_method", "s256")
	u.RawQuery = q.Encode()
	return u.String()
}

// SignInWithOAuth runs the browser sign-in: it serves a loopback callback,
// hands the authorization URL to OpenURL, waits for the redirect and exchanges
// the code. It blocks until sign-in completes or ctx ends.
func (c *Client) SignInWithOAuth(ctx context.Context, provider string) error {
	pair, err := newPKCE()
	if err != nil {
		return err
	}
	cb, err := startCallbackServer(c.port)
	if err != nil {
		return err
	}
	defer func() {
		if err := cb.Close(); err != nil {
			log.Printf("[WARN] %v", err)
		}
	}()

	if err := c.openURL(c.AuthorizeURL(provider, cb.RedirectURL(), pair.Challenge)); err != nil {
		return fmt.Errorf("open authorization url: %w", err)
	}

	code, err := cb.Wait(ctx)
	if err != nil {
		return err
	}
	if _, err := c.ExchangeCode(ctx, code, pair.Verifier); err != nil {
		return err
	}
	return nil
}

// ExchangeCode trades an authorization code for a session and makes it current.
func (c *Client) ExchangeCode(ctx context.Context, code, verifier string) (*Session, error) {
	body := map[string]string{"auth_code": code, "code_verifier": verifier}
	s, err := c.tokenRequest(ctx, "pkce", body)
	if err != nil {
		return nil, err
	}
	if err := c.adopt(s); err != nil {
		return nil, err
	}
	log.Printf("[INFO] signed in as %s", s.User.Email)
	c.emit(EventSignedIn, s)
	return s, nil
}

// Refresh exchanges the refresh token for a new session. When the provider
// rejects the refresh token the session is dropped and SIGNED_OUT is emitted.
func (c *Client) Refresh(ctx context.Context) (*Session, error) {
	current := c.Session()
	if current == nil || current.RefreshToken == "" {
		return nil, errors.New("no session to refresh")
	}

	s, err := c.tokenRequest(ctx, "refresh_token", map[string]string{"refresh_token": current.RefreshToken})
	if err != nil {
		if IsRejected(err) {
			log.Printf("[WARN] refresh token rejected, signing out: %v", err)
			_ = c.drop()
		}
		return nil, err
	}
	if s.User.ID == "" {
		s.User = current.User
	}
	if err := c.adopt(s); err != nil {
		return nil, err
	}
	c.emit(EventTokenRefreshed, s)
	return s, nil
}

// User fetches the account record for the current session.
func (c *Client) User(ctx context.Context) (User, error) {
	s := c.Session()
	if s == nil {
		return User{}, errors.New("not signed in")
	}
	var u User
	if err := c.call(ctx, http.MethodGet, "/user", nil, s.AccessToken, nil, &u); err != nil {
		return User{}, err
	}
	return u, nil
}

// SignOut revokes the session remotely when possible and always clears it locally.
func (c *Client) SignOut(ctx context.Context) error {
	s := c.Session()
	if s != nil {
		if err := c.call(ctx, http.MethodPost, "/logout", nil, s.AccessToken, nil, nil); err != nil {
			log.Printf("[WARN] remote sign-out failed: %v", err)
		}
	}
	return c.drop()
}

// AutoRefresh keeps the session fresh until ctx ends, refreshing shortly
// before expiry and retrying transient failures with backoff.
func (c *Client) AutoRefresh(ctx context.Context) {
	for {
		timer := time.NewTimer(c.untilRefresh())
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		s := c.Session()
		if s == nil || s.RefreshToken == "" || !s.NeedsRefresh(c.now(), refreshMargin) {
			continue
		}

		retrier := repeater.NewBackoff(3, time.Second, repeater.WithMaxDelay(10*time.Second))
		err := retrier.Do(ctx, func() error {
			_, err := c.Refresh(ctx)
			if IsRejected(err) {
				return nil
			}
			return err
		})
		if err != nil && ctx.Err() == nil {
			log.Printf("[WARN] session refresh failed: %v", err)
			sleep := time.NewTimer(idlePollInterval)
			select {
			case <-ctx.Done():
				sleep.Stop()
				return
			case <-sleep.C:
			}
		}
	}
}

func (c *Client) untilRefresh() time.Duration {
	s := c.Session()
	if s == nil || s.Expiry().IsZero() {
		return idlePollInterval
	}
	wait := s.Expiry().Add(-refreshMargin).Sub(c.now())
	if wait < 0 {
		return 0
	}
	return wait
}

func (c *Client) adopt(s *Session) error {
	fillFromClaims(s)
	if s.ExpiresAt == 0 && s.ExpiresIn > 0 {
		s.ExpiresAt = c.now().Add(time.Duration(s.ExpiresIn) * time.Second).Unix()
	}
	c.mu.Lock()
	c.session = s
	c.loaded = true
	c.mu.Unlock()
	if err := c.store.Save(s); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	return nil
}

func (c *Client) drop() error {
	c.mu.Lock()
	c.session = nil
	c.loaded = true
	c.mu.Unlock()
	err := c.store.Clear()
	c.emit(EventSignedOut, nil)
	return err
}

func (c *Client) tokenRequest(ctx context.Context, grant string, body any) (*Session, error) {
	q := url.Values{}
	q.Set("grant_type", grant)
	var s Session
	if err := c.call(ctx, http.MethodPost, "/token", q, c.anonKey, body, &s); err != nil {
		return nil, err
	}
	if s.AccessToken == "" {
		return nil, errors.New("token response carried no access token")
	}
	return &s, nil
}

func (c *Client) call(ctx context.Context, method, path string, query url.Values, bearer string, body, out any) error {
	u := *c.authURL
	u.Path += path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAuthError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAuthError(resp *http.Response) error {
	var payload struct {
		Error       string `json:"error"`
		Description string `json:"error_description"`
		Msg         string `json:"msg"`
		Message     string `json:"message"`
		Code        any    `json:"code"`
		ErrorCode   string `json:"error_code"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	_ = json.Unmarshal(data, &payload)

	e := &AuthError{Status: resp.StatusCode, Code: payload.ErrorCode}
	if e.Code == "" {
		e.Code = payload.Error
	}
	for _, msg := range []string{payload.Description, payload.Msg, payload.Message, payload.Error} {
		if msg != "" {
			e.Message = msg
			break
		}
	}
	if e.Message == "" {
		e.Message = http.StatusText(resp.StatusCode)
	}
	return e
}
