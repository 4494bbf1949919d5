package session

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/five82/digest/internal/identity"
)

// Status is the coarse auth state the rest of the program branches on.
type Status int

const (
	StatusUninitialized Status = iota
	StatusLoading
	StatusAuthenticated
	StatusUnauthenticated
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusAuthenticated:
		return "authenticated"
	case StatusUnauthenticated:
		return "unauthenticated"
	default:
		return "uninitialized"
	}
}

// State is a snapshot of the auth tuple. Err is orthogonal to Status.
type State struct {
	Status  Status
	User    *identity.User
	Session *identity.Session
	Loading bool
	Err     string
}

// Authenticated reports whether a session is present and settled.
func (s State) Authenticated() bool {
	return s.Status == StatusAuthenticated
}

// Provider is the identity backend the controller delegates to.
type Provider interface {
	GetSession(ctx context.Context) (*identity.Session, error)
	OnAuthStateChange(fn identity.Listener) (unsubscribe func())
	SignInWithOAuth(ctx context.Context, provider string) error
	SignOut(ctx context.Context) error
}

// TokenSink receives the access token whenever the session changes.
type TokenSink interface {
	SetAuthToken(token string)
	ClearAuthToken()
}

// Controller tracks who is signed in and keeps the request core's token in sync.
type Controller struct {
	provider Provider
	tokens   TokenSink

	mu          sync.Mutex
	state       State
	generation  uint64
	unsubscribe func()
	observers   map[int]func(State)
	nextID      int
}

// New returns a controller in the uninitialized state.
func New(provider Provider, tokens TokenSink) *Controller {
	return &Controller{
		provider:  provider,
		tokens:    tokens,
		observers: make(map[int]func(State)),
	}
}

// Start subscribes to provider changes and resolves the current session.
// Calling Start twice is a no-op.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.unsubscribe != nil {
		c.mu.Unlock()
		return nil
	}
	c.state.Status = StatusLoading
	c.state.Loading = true
	c.mu.Unlock()
	c.publish()

	unsubscribe := c.provider.OnAuthStateChange(c.handleChange)
	c.mu.Lock()
	c.unsubscribe = unsubscribe
	gen := c.generation
	c.mu.Unlock()

	s, err := c.provider.GetSession(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}

	c.mu.Lock()
	// a change event delivered while waiting is newer than s
	if c.generation == gen {
		c.apply(s)
	}
	if err != nil {
		c.state.Err = err.Error()
		log.Printf("[WARN] resolve session: %v", err)
	}
	c.mu.Unlock()
	c.publish()
	return err
}

// SignInWithGoogle marks the state loading and runs the provider's browser
// sign-in. Completion arrives as a SIGNED_IN change event.
func (c *Controller) SignInWithGoogle(ctx context.Context) error {
	c.mu.Lock()
	c.state.Loading = true
	c.state.Status = StatusLoading
	c.state.Err = ""
	c.mu.Unlock()
	c.publish()

	err := c.provider.SignInWithOAuth(ctx, identity.ProviderGoogle)
	if err == nil {
		return nil
	}

	c.mu.Lock()
	c.state.Loading = false
	c.state.Status = statusFor(c.state.Session)
	if !errors.Is(err, context.Canceled) {
		c.state.Err = err.Error()
	}
	c.mu.Unlock()
	c.publish()
	return err
}

// SignOut asks the provider to end the session. The resulting SIGNED_OUT
// event clears the state.
func (c *Controller) SignOut(ctx context.Context) error {
	if err := c.provider.SignOut(ctx); err != nil {
		c.mu.Lock()
		c.state.Err = err.Error()
		c.mu.Unlock()
		c.publish()
		return err
	}
	return nil
}

// State returns the current snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe calls fn with every new snapshot until the returned function is called.
func (c *Controller) Subscribe(fn func(State)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.observers[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.observers, id)
		c.mu.Unlock()
	}
}

// Close drops the provider subscription.
func (c *Controller) Close() {
	c.mu.Lock()
	unsubscribe := c.unsubscribe
	c.unsubscribe = nil
	c.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

func (c *Controller) handleChange(event identity.Event, s *identity.Session) {
	log.Printf("[DEBUG] session change %s", event)
	c.mu.Lock()
	c.generation++
	c.apply(s)
	c.mu.Unlock()
	c.publish()
}

// apply resets the full tuple from s. Caller holds c.mu.
func (c *Controller) apply(s *identity.Session) {
	c.state = State{Session: s, Status: statusFor(s)}
	if s != nil {
		u := s.User
		c.state.User = &u
	}
	if c.tokens == nil {
		return
	}
	if s != nil && s.AccessToken != "" {
		c.tokens.SetAuthToken(s.AccessToken)
		return
	}
	c.tokens.ClearAuthToken()
}

func (c *Controller) publish() {
	c.mu.Lock()
	snapshot := c.state
	fns := make([]func(State), 0, len(c.observers))
	for _, fn := range c.observers {
		fns = append(fns, fn)
	}
	c.mu.Unlock()
	for _, fn := range fns {
		fn(snapshot)
	}
}

func statusFor(s *identity.Session) Status {
	if s != nil {
		return StatusAuthenticated
	}
	return StatusUnauthenticated
}

// Unconfigured is a Provider for builds without identity settings: nobody is
// ever signed in and sign-in reports why.
type Unconfigured struct{}

func (Unconfigured) GetSession(context.Context) (*identity.Session, error) { return nil, nil }

func (Unconfigured) OnAuthStateChange(identity.Listener) func() { return func() {} }

func (Unconfigured) SignInWithOAuth(context.Context, string) error {
	return identity.ErrNotConfigured
}

func (Unconfigured) SignOut(context.Context) error { return nil }
