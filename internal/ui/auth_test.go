package ui

import (
	"context"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/digest/internal/api"
	"github.com/five82/digest/internal/identity"
	"github.com/five82/digest/internal/session"
	"github.com/five82/digest/internal/state"
)

type fakeProvider struct {
	mu        sync.Mutex
	session   *identity.Session
	listeners []identity.Listener
}

func (f *fakeProvider) GetSession(context.Context) (*identity.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session, nil
}

func (f *fakeProvider) OnAuthStateChange(fn identity.Listener) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listeners = append(f.listeners, fn)
	return func() {}
}

func (f *fakeProvider) SignInWithOAuth(context.Context, string) error { return nil }

func (f *fakeProvider) SignOut(context.Context) error {
	f.emit(identity.EventSignedOut, nil)
	return nil
}

func (f *fakeProvider) emit(event identity.Event, s *identity.Session) {
	f.mu.Lock()
	f.session = s
	fns := append([]identity.Listener(nil), f.listeners...)
	f.mu.Unlock()
	for _, fn := range fns {
		fn(event, s)
	}
}

var storedSession = &identity.Session{
	AccessToken: "tok",
	User:        identity.User{ID: "u1", Email: "alice@example.com"},
}

func activeSubscription() *api.Subscription {
	return &api.Subscription{
		ID:                "sub-1",
		DeliveryPlatform:  api.PlatformEmail,
		DeliveryTarget:    "alice@example.com",
		Keywords:          []string{"TSMC", "Fed"},
		PushFrequencyType: api.FrequencyDaily,
		IsActive:          true,
	}
}

func newSessionModel(t *testing.T, sess *session.Controller, subs *state.SubscriptionController) Model {
	t.Helper()
	m := New(Options{
		Session:       sess,
		Subscriptions: subs,
		PrefsPath:     t.TempDir() + "/prefs.toml",
	})
	return update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
}

// runCmd executes cmd and flattens batches. Commands that block (timers,
// channel waits) are abandoned after a short wait.
func runCmd(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()
	select {
	case msg := <-done:
		if batch, ok := msg.(tea.BatchMsg); ok {
			var out []tea.Msg
			for _, c := range batch {
				out = append(out, runCmd(c)...)
			}
			return out
		}
		if msg == nil {
			return nil
		}
		return []tea.Msg{msg}
	case <-time.After(50 * time.Millisecond):
		return nil
	}
}

// settle feeds the auth, sync and result messages produced by cmd back into
// the model until no more arrive.
func settle(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	pending := []tea.Cmd{cmd}
	for round := 0; round < 5 && len(pending) > 0; round++ {
		var next []tea.Cmd
		for _, c := range pending {
			for _, msg := range runCmd(c) {
				switch msg.(type) {
				case authMsg, syncedMsg, resultMsg:
					model, out := m.Update(msg)
					m = model.(Model)
					next = append(next, out)
				}
			}
		}
		pending = next
	}
	return m
}

func TestSessionResolvedBeforeStartLoadsSubscription(t *testing.T) {
	svc := &stubSubs{sub: activeSubscription()}
	subs := state.NewSubscriptionController(svc, nil)
	sess := session.New(&fakeProvider{session: storedSession}, nil)
	require.NoError(t, sess.Start(context.Background()))

	m := newSessionModel(t, sess, subs)
	m = settle(t, m, m.Init())

	assert.Equal(t, RouteDashboard, m.route)
	assert.Equal(t, 1, svc.gets)
	assert.True(t, m.subs.Initialized)
	require.NotNil(t, m.subs.Subscription)
	assert.Contains(t, m.View(), "TSMC")
	assert.NotContains(t, m.View(), "Set up your first digest")
}

func TestSignInSeenByTickBeforeAuthMessage(t *testing.T) {
	svc := &stubSubs{sub: activeSubscription()}
	subs := state.NewSubscriptionController(svc, nil)
	provider := &fakeProvider{}
	sess := session.New(provider, nil)
	require.NoError(t, sess.Start(context.Background()))

	m := newSessionModel(t, sess, subs)
	m = settle(t, m, m.Init())
	require.Equal(t, RouteLogin, m.route)

	// the channel message is late; the tick sees the new state first
	provider.emit(identity.EventSignedIn, storedSession)
	next, cmd := m.Update(tickMsg(time.Now()))
	m = settle(t, next.(Model), cmd)

	assert.Equal(t, RouteDashboard, m.route)
	assert.Equal(t, 1, svc.gets)
	require.NotNil(t, m.subs.Subscription)

	// the late message must not trigger a second load
	m = settle(t, m, func() tea.Msg { return authMsg(sess.State()) })
	assert.Equal(t, 1, svc.gets)
}

func TestSignOutSeenByPullResetsScreens(t *testing.T) {
	svc := &stubSubs{sub: activeSubscription()}
	subs := state.NewSubscriptionController(svc, nil)
	provider := &fakeProvider{session: storedSession}
	sess := session.New(provider, nil)
	require.NoError(t, sess.Start(context.Background()))

	m := newSessionModel(t, sess, subs)
	m = settle(t, m, m.Init())
	require.Equal(t, RouteDashboard, m.route)

	m.subForm.dirty = true
	m.subForm.err = "left over"
	m.guideUI.picked["tech"] = true

	provider.emit(identity.EventSignedOut, nil)
	m = settle(t, m, func() tea.Msg { return syncedMsg{} })

	assert.Equal(t, RouteLogin, m.route)
	assert.False(t, m.subForm.dirty)
	assert.Empty(t, m.subForm.err)
	assert.Empty(t, m.guideUI.picked)
	assert.Nil(t, m.subs.Subscription)
}

func TestQuickSetupSuccessNavigatesToDashboard(t *testing.T) {
	m := newTestModel(t, nil)
	m = update(t, m, authMsg(signedIn))
	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("4")})
	require.Equal(t, RouteQuickSetup, m.route)

	m.quickUI.submitting = true
	m = update(t, m, resultMsg{action: actionQuickSetup, result: state.Result{Success: false, Error: "Network error: boom"}})
	assert.Equal(t, RouteQuickSetup, m.route)
	assert.Equal(t, "Network error: boom", m.quickUI.err)
	assert.False(t, m.quickUI.submitting)

	m = update(t, m, resultMsg{action: actionQuickSetup, result: state.Result{Success: true, Subscription: activeSubscription()}})
	assert.Equal(t, RouteDashboard, m.route)
	assert.Empty(t, m.quickUI.err)
}
