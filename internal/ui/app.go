package ui

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/digest/internal/config"
	"github.com/five82/digest/internal/prefs"
	"github.com/five82/digest/internal/schedule"
	"github.com/five82/digest/internal/session"
	"github.com/five82/digest/internal/state"
)

// Options configures the UI.
type Options struct {
	Context       context.Context
	Session       *session.Controller
	Subscriptions *state.SubscriptionController
	History       *state.HistoryController
	Guidance      *state.GuidanceController
	QuickSetup    *state.QuickSetupController
	Store         *state.Store
	Toaster       *Toaster
	Config        *config.Config
	ColdStartHost bool
	PollTick      time.Duration
	ThemeName     string
	PrefsPath     string
	StartRoute    Route
	Now           func() time.Time
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx           context.Context
	session       *session.Controller
	subsCtl       *state.SubscriptionController
	histCtl       *state.HistoryController
	guideCtl      *state.GuidanceController
	quickCtl      *state.QuickSetupController
	store         *state.Store
	toaster       *Toaster
	config        *config.Config
	coldStartHost bool
	prefsPath     string
	pollTick      time.Duration
	clock         func() time.Time
	authCh        chan session.State

	// UI state
	keys   keyMap
	theme  Theme
	route  Route
	width  int
	height int
	ready  bool

	// Data state, copied from the controllers on every tick
	auth        session.State
	authSeen    session.Status // last settled status acted upon by applyAuth
	snapshot    state.Snapshot
	lastUpdated time.Time
	subs        state.SubscriptionState
	hist        state.HistoryState
	guide       state.GuidanceState
	quick       state.QuickSetupState

	// now drives the push countdown and only advances on countdown ticks.
	now time.Time

	// Overlays
	toasts   []toast
	showHelp bool
	modal    Modal
	cold     coldStartState

	// Screens
	login    loginState
	subForm  subFormState
	history  historyState
	quickUI  quickSetupState
	guideUI  guidanceState
	logState logState

	histViewport viewport.Model
	logViewport  viewport.Model
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	pollTick := opts.PollTick
	if pollTick == 0 {
		pollTick = DefaultUIInterval
	}

	themeName := opts.ThemeName
	if themeName == "" {
		themeName = DefaultThemeName
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	clock := opts.Now
	if clock == nil {
		clock = time.Now
	}

	route := opts.StartRoute
	if route == "" {
		route = RouteRoot
	}

	m := Model{
		ctx:           ctx,
		session:       opts.Session,
		subsCtl:       opts.Subscriptions,
		histCtl:       opts.History,
		guideCtl:      opts.Guidance,
		quickCtl:      opts.QuickSetup,
		store:         opts.Store,
		toaster:       opts.Toaster,
		config:        opts.Config,
		coldStartHost: opts.ColdStartHost,
		prefsPath:     prefsPath,
		pollTick:      pollTick,
		clock:         clock,
		keys:          DefaultKeyMap(),
		theme:         GetTheme(themeName),
		route:         route,
		now:           clock(),
		cold:          newColdStartState(),
		subForm:       newSubFormState(),
		quickUI:       newQuickSetupState(),
		guideUI:       newGuidanceState(),
		logState:      newLogState(),
	}
	if m.session != nil {
		m.auth = m.session.State()
		m.authCh = make(chan session.State, 8)
	}
	m.route = Guard(m.route, m.auth)
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tea.EnterAltScreen,
		tickCmd(m.pollTick),
		countdownCmd(schedule.CountdownInterval),
	}
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	if m.toaster != nil {
		cmds = append(cmds, waitToastCmd(m.toaster))
	}
	if m.authCh != nil {
		cmds = append(cmds, waitAuthCmd(m.authCh))
	}
	if cmd := m.currentAuthCmd(); cmd != nil {
		cmds = append(cmds, cmd)
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resizeViewports()
		return m, nil

	case tickMsg:
		return m.handleTick()

	case countdownMsg:
		m.now = m.clock()
		return m, countdownCmd(schedule.CountdownInterval)

	case snapshotMsg:
		m.snapshot = state.Snapshot(msg)
		m.lastUpdated = m.clock()
		cmd := m.updateColdStart()
		return m, cmd

	case authMsg:
		return m.handleAuth(session.State(msg))

	case toastMsg:
		m.toasts = pushToast(m.toasts, toast(msg), m.clock())
		return m, waitToastCmd(m.toaster)

	case syncedMsg:
		m.pull()
		m.syncScreens()
		authCmd := m.observeAuth()
		cmd := m.updateColdStart()
		return m, tea.Batch(authCmd, cmd)

	case resultMsg:
		return m.handleResult(msg)

	case signInDoneMsg:
		m.login.waiting = false
		m.login.err = msg.err
		m.pull()
		cmd := m.observeAuth()
		return m, cmd

	case logLinesMsg:
		m.handleLogLines(msg)
		return m, nil

	default:
		if cmd, handled := m.cold.update(msg); handled {
			return m, cmd
		}
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	if m.showHelp {
		return m.renderHelp()
	}

	if m.modal != nil {
		return m.modal.View(m.theme, m.width, m.height)
	}

	return m.renderMain()
}

// handleKey processes keyboard input. Focused text inputs and modals see keys
// before the global bindings.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	if m.modal != nil {
		next, cmd, done := m.modal.Update(msg, m.keys)
		if done {
			m.modal = nil
		} else {
			m.modal = next
		}
		return m, cmd
	}

	if m.inputFocused() {
		return m.handleScreenKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.prefsPath != "" && m.route.Restorable() {
			route := string(m.route)
			if err := prefs.Update(m.prefsPath, func(p *prefs.Prefs) { p.LastRoute = route }); err != nil {
				log.Printf("[WARN] save prefs: %v", err)
			}
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		if m.prefsPath != "" {
			name := m.theme.Name
			if err := prefs.Update(m.prefsPath, func(p *prefs.Prefs) { p.Theme = name }); err != nil {
				log.Printf("[WARN] save prefs: %v", err)
			}
		}
		return m, nil
	}

	if !m.auth.Authenticated() {
		return m.handleScreenKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Tab):
		return m.navigate(nextRoute(m.route, 1))
	case key.Matches(msg, m.keys.ShiftTab):
		return m.navigate(nextRoute(m.route, -1))
	case key.Matches(msg, m.keys.ViewDashboard):
		return m.navigate(RouteDashboard)
	case key.Matches(msg, m.keys.ViewSubscription):
		return m.navigate(RouteSubscription)
	case key.Matches(msg, m.keys.ViewHistory):
		return m.navigate(RouteHistory)
	case key.Matches(msg, m.keys.ViewQuickSetup):
		return m.navigate(RouteQuickSetup)
	case key.Matches(msg, m.keys.ViewGuidance):
		return m.navigate(RouteGuidance)
	case key.Matches(msg, m.keys.ViewLogs):
		return m.navigate(RouteLogs)
	case key.Matches(msg, m.keys.Escape) && m.route != RouteDashboard && !m.logSearchApplied():
		return m.navigate(RouteDashboard)
	case key.Matches(msg, m.keys.SignOut):
		return m, m.signOutCmd()
	case key.Matches(msg, m.keys.Refresh):
		cmd := m.refreshRoute()
		return m, cmd
	}

	return m.handleScreenKey(msg)
}

// handleScreenKey dispatches to the active screen.
func (m Model) handleScreenKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.route {
	case RouteLogin:
		return m.handleLoginKey(msg)
	case RouteDashboard:
		return m.handleDashboardKey(msg)
	case RouteSubscription:
		return m.handleSubscriptionKey(msg)
	case RouteHistory:
		return m.handleHistoryKey(msg)
	case RouteQuickSetup:
		return m.handleQuickSetupKey(msg)
	case RouteGuidance:
		return m.handleGuidanceKey(msg)
	case RouteLogs:
		return m.handleLogsKey(msg)
	}
	return m, nil
}

// inputFocused reports whether a text field on the active screen owns the keyboard.
func (m Model) inputFocused() bool {
	switch m.route {
	case RouteSubscription:
		return m.subForm.editing
	case RouteQuickSetup:
		return m.quickUI.editing
	case RouteGuidance:
		return m.guideUI.editing
	case RouteLogs:
		return m.logState.searchActive
	}
	return false
}

// navigate moves to route through the guard and loads what the screen needs.
func (m Model) navigate(route Route) (tea.Model, tea.Cmd) {
	m.route = Guard(route, m.auth)
	cmd := m.enterRoute()
	return m, cmd
}

// enterRoute returns the loads a screen needs when it becomes visible.
func (m *Model) enterRoute() tea.Cmd {
	switch m.route {
	case RouteSubscription:
		m.subForm.seed(m.subs.Subscription)
	case RouteHistory:
		if len(m.hist.Items) == 0 && !m.hist.Loading {
			return m.refreshRoute()
		}
	case RouteQuickSetup:
		if len(m.quick.Templates) == 0 && !m.quick.Loading {
			return m.refreshRoute()
		}
	case RouteGuidance:
		if len(m.guide.FocusAreas) == 0 && !m.guide.Loading {
			return m.refreshRoute()
		}
	case RouteLogs:
		return m.refreshLogs(true)
	}
	return nil
}

// refreshRoute reloads the data behind the active screen.
func (m *Model) refreshRoute() tea.Cmd {
	switch m.route {
	case RouteDashboard, RouteSubscription:
		cmds := []tea.Cmd{}
		if m.subsCtl != nil {
			subs := m.subsCtl
			cmds = append(cmds, m.run(func(ctx context.Context) { subs.Refresh(ctx) }))
		}
		if m.histCtl != nil {
			hist := m.histCtl
			cmds = append(cmds, m.run(func(ctx context.Context) { _ = hist.FetchStats(ctx) }))
		}
		return tea.Batch(cmds...)
	case RouteHistory:
		if m.histCtl == nil {
			return nil
		}
		hist := m.histCtl
		m.history.cursor = 0
		return m.run(func(ctx context.Context) { _ = hist.Refresh(ctx) })
	case RouteQuickSetup:
		if m.quickCtl == nil {
			return nil
		}
		quick := m.quickCtl
		return m.run(func(ctx context.Context) { _ = quick.LoadTemplates(ctx) })
	case RouteGuidance:
		if m.guideCtl == nil {
			return nil
		}
		guide := m.guideCtl
		hasSub := m.subs.Subscription != nil
		return m.run(func(ctx context.Context) {
			if err := guide.LoadStatus(ctx); err != nil {
				return
			}
			if hasSub {
				_ = guide.LoadSuggestions(ctx)
			}
			_ = guide.Start(ctx)
		})
	case RouteLogs:
		return m.refreshLogs(true)
	}
	return nil
}

// handleAuth applies an auth snapshot from the session channel. The
// controller's current state wins over the message, which may be stale.
func (m Model) handleAuth(st session.State) (tea.Model, tea.Cmd) {
	if m.session != nil {
		st = m.session.State()
	}
	cmds := []tea.Cmd{m.applyAuth(st)}
	if m.authCh != nil {
		cmds = append(cmds, waitAuthCmd(m.authCh))
	}
	m.pull()
	return m, tea.Batch(cmds...)
}

// observeAuth re-reads the session controller and applies any transition the
// channel did not deliver.
func (m *Model) observeAuth() tea.Cmd {
	if m.session == nil {
		return nil
	}
	return m.applyAuth(m.session.State())
}

// currentAuthCmd delivers the session state as it is when the program starts,
// so a session resolved before the model existed still loads its data.
func (m Model) currentAuthCmd() tea.Cmd {
	if m.session == nil {
		return nil
	}
	sess := m.session
	return func() tea.Msg { return authMsg(sess.State()) }
}

// applyAuth guards the route and acts once per settled status change:
// signing in syncs the subscription and loads the screens, signing out
// clears them.
func (m *Model) applyAuth(st session.State) tea.Cmd {
	m.auth = st
	m.route = Guard(m.route, st)
	if !authSettled(st) || st.Status == m.authSeen {
		return nil
	}
	wasAuthed := m.authSeen == session.StatusAuthenticated
	m.authSeen = st.Status

	var cmds []tea.Cmd
	if m.subsCtl != nil {
		subs := m.subsCtl
		cmds = append(cmds, m.run(func(ctx context.Context) { subs.Sync(ctx, st) }))
	}
	switch {
	case st.Authenticated():
		cmds = append(cmds, m.onSignedIn())
	case wasAuthed:
		m.resetScreens()
	}
	return tea.Batch(cmds...)
}

func authSettled(st session.State) bool {
	if st.Loading {
		return false
	}
	return st.Status == session.StatusAuthenticated || st.Status == session.StatusUnauthenticated
}

// onSignedIn starts the loads the dashboard shows right away.
func (m *Model) onSignedIn() tea.Cmd {
	var cmds []tea.Cmd
	if m.histCtl != nil {
		hist := m.histCtl
		cmds = append(cmds, m.run(func(ctx context.Context) { _ = hist.Refresh(ctx) }))
	}
	if cmd := m.enterRoute(); cmd != nil {
		cmds = append(cmds, cmd)
	}
	return tea.Batch(cmds...)
}

func (m *Model) resetScreens() {
	if m.histCtl != nil {
		m.histCtl.Reset()
	}
	if m.guideCtl != nil {
		m.guideCtl.Cancel()
	}
	m.subForm = newSubFormState()
	m.quickUI = newQuickSetupState()
	m.guideUI = newGuidanceState()
	m.history = historyState{}
}

// pull copies every controller snapshot into the model.
func (m *Model) pull() {
	if m.subsCtl != nil {
		m.subs = m.subsCtl.State()
	}
	if m.histCtl != nil {
		m.hist = m.histCtl.State()
	}
	if m.guideCtl != nil {
		m.guide = m.guideCtl.State()
	}
	if m.quickCtl != nil {
		m.quick = m.quickCtl.State()
	}
}

// syncScreens keeps screen-local state consistent with fresh controller data.
func (m *Model) syncScreens() {
	if m.route == RouteSubscription && !m.subForm.dirty {
		m.subForm.seed(m.subs.Subscription)
	}
	m.history.cursor = clampInt(m.history.cursor, 0, max(len(m.hist.Items)-1, 0))
	m.updateHistoryViewport()
}

// handleTick processes the polling tick.
func (m Model) handleTick() (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}

	m.pull()
	if cmd := m.observeAuth(); cmd != nil {
		cmds = append(cmds, cmd)
	}
	m.toasts = pruneToasts(m.toasts, m.clock())
	if cmd := m.updateColdStart(); cmd != nil {
		cmds = append(cmds, cmd)
	}

	if m.route == RouteLogs && m.logState.follow {
		if cmd := m.refreshLogs(false); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}

	cmds = append(cmds, tickCmd(m.pollTick))
	return m, tea.Batch(cmds...)
}

// handleResult reacts to a finished mutation.
func (m Model) handleResult(msg resultMsg) (tea.Model, tea.Cmd) {
	m.pull()
	switch msg.action {
	case actionSave:
		m.subForm.saving = false
		if !msg.result.Success {
			m.subForm.err = msg.result.Error
			return m, nil
		}
		m.subForm = newSubFormState()
		return m.navigate(RouteDashboard)
	case actionDelete:
		if msg.result.Success {
			m.subForm = newSubFormState()
			return m.navigate(RouteDashboard)
		}
	case actionQuickSetup:
		m.quickUI.submitting = false
		if !msg.result.Success {
			m.quickUI.err = msg.result.Error
			return m, nil
		}
		m.quickUI = newQuickSetupState()
		return m.navigate(RouteDashboard)
	case actionFinalize:
		if msg.result.Success && m.subsCtl != nil && msg.result.Subscription != nil {
			m.subsCtl.Adopt(msg.result.Subscription)
			m.pull()
		}
	}
	return m, nil
}

// renderMain renders header, command bar, alerts, content and notifications.
func (m Model) renderMain() string {
	parts := []string{m.renderHeader(), m.renderCommandBar()}
	if m.cold.active {
		parts = append(parts, m.renderColdStartAlert())
	}
	toasts := m.renderToasts()

	used := lipgloss.Height(strings.Join(parts, "\n"))
	if toasts != "" {
		used += lipgloss.Height(toasts)
	}
	contentHeight := max(m.height-used, 3)

	content := lipgloss.NewStyle().
		Width(m.width).
		Height(contentHeight).
		MaxHeight(contentHeight).
		Render(m.renderContent(contentHeight))
	parts = append(parts, content)
	if toasts != "" {
		parts = append(parts, lipgloss.PlaceHorizontal(m.width, lipgloss.Right, toasts))
	}
	return strings.Join(parts, "\n")
}

// renderContent renders the active screen.
func (m Model) renderContent(height int) string {
	switch m.route {
	case RouteLogin:
		return m.renderLogin(height)
	case RouteDashboard:
		return m.renderDashboard(height)
	case RouteSubscription:
		return m.renderSubscription(height)
	case RouteHistory:
		return m.renderHistory(height)
	case RouteQuickSetup:
		return m.renderQuickSetup(height)
	case RouteGuidance:
		return m.renderGuidance(height)
	case RouteLogs:
		return m.renderLogs(height)
	default:
		return m.theme.Styles().MutedText.Render("Checking session...")
	}
}

func (m *Model) resizeViewports() {
	h := max(m.height-6, 3)
	w := max(m.width-4, 10)
	if m.histViewport.Width == 0 {
		m.histViewport = viewport.New(w, h)
	}
	if m.logViewport.Width == 0 {
		m.logViewport = viewport.New(w, h)
	}
	m.histViewport.Width, m.histViewport.Height = w, max(h-4, 3)
	m.logViewport.Width, m.logViewport.Height = w, h
	m.updateHistoryViewport()
	m.updateLogViewport()
}

// run executes fn off the UI goroutine and asks for a state pull afterwards.
func (m Model) run(fn func(ctx context.Context)) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		fn(ctx)
		return syncedMsg{}
	}
}

// mutate executes a controller mutation and reports its Result.
func (m Model) mutate(action string, fn func(ctx context.Context) state.Result) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return resultMsg{action: action, result: fn(ctx)}
	}
}

func (m Model) signOutCmd() tea.Cmd {
	if m.session == nil {
		return nil
	}
	sess := m.session
	return m.run(func(ctx context.Context) { _ = sess.SignOut(ctx) })
}

// Messages

type tickMsg time.Time

type countdownMsg time.Time

type snapshotMsg state.Snapshot

type authMsg session.State

type syncedMsg struct{}

type signInDoneMsg struct{ err error }

// Mutation names carried by resultMsg.
const (
	actionSave       = "save"
	actionDelete     = "delete"
	actionToggle     = "toggle"
	actionQuickSetup = "quick-setup"
	actionFinalize   = "finalize"
)

type resultMsg struct {
	action string
	result state.Result
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func countdownCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return countdownMsg(t)
	})
}

func fetchSnapshotCmd(store *state.Store) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(store.Snapshot())
	}
}

func waitAuthCmd(ch chan session.State) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		return authMsg(<-ch)
	}
}

// Run starts the Bubble Tea program and blocks until it exits.
func Run(opts Options) error {
	m := New(opts)
	if m.session != nil {
		ch := m.authCh
		unsubscribe := m.session.Subscribe(func(st session.State) {
			select {
			case ch <- st:
			default:
				// A newer snapshot follows; the UI also pulls state every tick.
			}
		})
		defer unsubscribe()

		// Start after subscribing so the first settled state is not missed.
		sess, ctx := m.session, m.ctx
		go func() {
			if err := sess.Start(ctx); err != nil && ctx.Err() == nil {
				log.Printf("[WARN] session start: %v", err)
			}
		}()
	}
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	_, err := p.Run()
	return err
}
