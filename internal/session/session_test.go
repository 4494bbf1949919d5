package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/digest/internal/identity"
)

type fakeProvider struct {
	mu        sync.Mutex
	session   *identity.Session
	getErr    error
	signInErr error
	listeners []identity.Listener
	active    int
	onGet     func()
	signOuts  int
}

func (f *fakeProvider) GetSession(context.Context) (*identity.Session, error) {
	if f.onGet != nil {
		f.onGet()
	}
	return f.session, f.getErr
}

func (f *fakeProvider) OnAuthStateChange(fn identity.Listener) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listeners = append(f.listeners, fn)
	f.active++
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.active--
	}
}

func (f *fakeProvider) SignInWithOAuth(context.Context, string) error { return f.signInErr }

func (f *fakeProvider) SignOut(context.Context) error {
	f.signOuts++
	f.emit(identity.EventSignedOut, nil)
	return nil
}

func (f *fakeProvider) emit(event identity.Event, s *identity.Session) {
	f.mu.Lock()
	fns := append([]identity.Listener(nil), f.listeners...)
	f.mu.Unlock()
	for _, fn := range fns {
		fn(event, s)
	}
}

type fakeTokens struct {
	token string
	sets  int
}

func (f *fakeTokens) SetAuthToken(tok string) {
	f.token = tok
	f.sets++
}

func (f *fakeTokens) ClearAuthToken() { f.token = "" }

func testSession(token string) *identity.Session {
	return &identity.Session{AccessToken: token, User: identity.User{ID: "u-1", Email: "ann@example.org"}}
}

func TestStart_AuthenticatedPushesToken(t *testing.T) {
	p := &fakeProvider{session: testSession("tok-1")}
	tokens := &fakeTokens{}
	c := New(p, tokens)
	assert.Equal(t, StatusUninitialized, c.State().Status)

	var seen []Status
	c.Subscribe(func(s State) { seen = append(seen, s.Status) })

	require.NoError(t, c.Start(context.Background()))
	st := c.State()
	assert.Equal(t, StatusAuthenticated, st.Status)
	assert.True(t, st.Authenticated())
	assert.False(t, st.Loading)
	require.NotNil(t, st.User)
	assert.Equal(t, "ann@example.org", st.User.Email)
	assert.Equal(t, "tok-1", tokens.token)
	assert.Equal(t, []Status{StatusLoading, StatusAuthenticated}, seen)
}

func TestStart_NoSessionIsUnauthenticated(t *testing.T) {
	tokens := &fakeTokens{token: "stale"}
	c := New(&fakeProvider{}, tokens)
	require.NoError(t, c.Start(context.Background()))
	assert.Equal(t, StatusUnauthenticated, c.State().Status)
	assert.Empty(t, tokens.token)
}

func TestStart_ErrorIsRecordedBesideStatus(t *testing.T) {
	c := New(&fakeProvider{getErr: errors.New("identity unreachable")}, &fakeTokens{})
	err := c.Start(context.Background())
	require.Error(t, err)
	st := c.State()
	assert.Equal(t, StatusUnauthenticated, st.Status)
	assert.False(t, st.Loading)
	assert.Equal(t, "identity unreachable", st.Err)
}

func TestStart_ChangeDuringLookupWins(t *testing.T) {
	p := &fakeProvider{session: nil}
	p.onGet = func() { p.emit(identity.EventSignedIn, testSession("fresh")) }
	tokens := &fakeTokens{}
	c := New(p, tokens)

	require.NoError(t, c.Start(context.Background()))
	assert.Equal(t, StatusAuthenticated, c.State().Status)
	assert.Equal(t, "fresh", tokens.token)
}

func TestStart_CancelledLookupLeavesStateLoading(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := &fakeProvider{session: testSession("tok")}
	p.onGet = cancel
	c := New(p, &fakeTokens{})

	require.ErrorIs(t, c.Start(ctx), context.Canceled)
	assert.Equal(t, StatusLoading, c.State().Status)
}

func TestChangeEvents_ResetTupleAndResyncToken(t *testing.T) {
	p := &fakeProvider{session: testSession("tok-1")}
	tokens := &fakeTokens{}
	c := New(p, tokens)
	require.NoError(t, c.Start(context.Background()))

	p.emit(identity.EventTokenRefreshed, testSession("tok-2"))
	assert.Equal(t, "tok-2", tokens.token)

	require.NoError(t, c.SignOut(context.Background()))
	st := c.State()
	assert.Equal(t, StatusUnauthenticated, st.Status)
	assert.Nil(t, st.User)
	assert.Nil(t, st.Session)
	assert.Empty(t, st.Err)
	assert.Empty(t, tokens.token)
	assert.Equal(t, 1, p.signOuts)
}

func TestSignInWithGoogle(t *testing.T) {
	p := &fakeProvider{}
	c := New(p, &fakeTokens{})
	require.NoError(t, c.Start(context.Background()))

	var loadingSeen bool
	c.Subscribe(func(s State) {
		if s.Loading {
			loadingSeen = true
		}
	})

	p.signInErr = errors.New("sign-in rejected: access_denied")
	require.Error(t, c.SignInWithGoogle(context.Background()))
	assert.True(t, loadingSeen)
	st := c.State()
	assert.False(t, st.Loading)
	assert.Equal(t, StatusUnauthenticated, st.Status)
	assert.Equal(t, "sign-in rejected: access_denied", st.Err)

	p.signInErr = nil
	require.NoError(t, c.SignInWithGoogle(context.Background()))
	p.emit(identity.EventSignedIn, testSession("tok"))
	assert.Equal(t, StatusAuthenticated, c.State().Status)
	assert.Empty(t, c.State().Err)
}

func TestClose_Unsubscribes(t *testing.T) {
	p := &fakeProvider{}
	c := New(p, &fakeTokens{})
	require.NoError(t, c.Start(context.Background()))
	require.NoError(t, c.Start(context.Background()))
	assert.Equal(t, 1, p.active)

	c.Close()
	c.Close()
	assert.Equal(t, 0, p.active)
}

func TestUnconfigured(t *testing.T) {
	c := New(Unconfigured{}, nil)
	require.NoError(t, c.Start(context.Background()))
	assert.Equal(t, StatusUnauthenticated, c.State().Status)
	require.ErrorIs(t, c.SignInWithGoogle(context.Background()), identity.ErrNotConfigured)
}
