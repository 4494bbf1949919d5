package ui

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/digest/internal/logtail"
)

// logState holds all log-related state.
type logState struct {
	rawLines    []string
	entries     []logtail.Entry
	follow      bool
	loading     bool
	lastRefresh time.Time
	err         error

	// Search
	searchActive   bool
	searchQuery    string
	searchRegex    *regexp.Regexp
	searchInput    textinput.Model
	searchMatches  []int // Line indices that match
	searchMatchIdx int   // Current match index
}

func newLogState() logState {
	ti := textinput.New()
	ti.Placeholder = "Search logs..."
	ti.CharLimit = 100
	return logState{follow: true, searchInput: ti}
}

type logLinesMsg struct {
	lines []string
	err   error
}

func (m Model) logPath() string {
	if m.config == nil {
		return ""
	}
	return m.config.LogFile
}

// refreshLogs reads the log file tail unless a read is in flight or the last
// one is recent. force skips the rate limit.
func (m *Model) refreshLogs(force bool) tea.Cmd {
	path := m.logPath()
	if path == "" || m.logState.loading {
		return nil
	}
	now := m.clock()
	if !force && now.Sub(m.logState.lastRefresh) < LogRefreshInterval {
		return nil
	}
	m.logState.loading = true
	m.logState.lastRefresh = now
	return func() tea.Msg {
		lines, err := logtail.Read(path, LogTailLines)
		return logLinesMsg{lines: lines, err: err}
	}
}

func (m *Model) handleLogLines(msg logLinesMsg) {
	m.logState.loading = false
	m.logState.err = msg.err
	if msg.err != nil {
		return
	}
	m.logState.rawLines = msg.lines
	m.logState.entries = logtail.ParseLines(msg.lines)
	m.findSearchMatches()
	m.updateLogViewport()
}

// updateLogViewport re-renders the log lines into the viewport.
func (m *Model) updateLogViewport() {
	if m.logViewport.Width == 0 {
		return
	}
	m.logViewport.Style = lipgloss.NewStyle().Background(lipgloss.Color(m.theme.FocusBg))
	m.logViewport.SetContent(m.renderLogContent())
	if m.logState.follow {
		m.logViewport.GotoBottom()
	}
}

func (m Model) renderLogs(height int) string {
	bg := NewBgStyle(m.theme.FocusBg)
	styles := m.theme.Styles()

	title := "Log"
	if path := m.logPath(); path != "" {
		title = "Log · " + truncateMiddle(path, max(m.width/2, 20))
	}
	box := m.renderTitledBox(title, m.logViewport.View(), m.width, max(height-1, 3), true)
	return box + "\n" + m.renderLogStatus(styles, bg)
}

// renderLogStatus renders the line below the log box.
func (m Model) renderLogStatus(styles Styles, bg BgStyle) string {
	ls := m.logState
	if ls.searchActive {
		return bg.Render("/", styles.AccentText) + ls.searchInput.View()
	}
	if ls.searchRegex != nil && len(ls.searchMatches) > 0 {
		return bg.Render(fmt.Sprintf("/%s", ls.searchQuery), styles.AccentText) +
			bg.Render(" - ", styles.FaintText) +
			bg.Render(fmt.Sprintf("%d/%d", ls.searchMatchIdx+1, len(ls.searchMatches)), styles.WarningText) +
			bg.Render(" - Press ", styles.FaintText) +
			bg.Render("n", styles.AccentText) +
			bg.Render(" for next, ", styles.FaintText) +
			bg.Render("N", styles.AccentText) +
			bg.Render(" for previous, ", styles.FaintText) +
			bg.Render("Esc", styles.AccentText) +
			bg.Render(" to clear", styles.FaintText)
	}
	if ls.searchRegex != nil {
		return bg.Render("Pattern not found: "+ls.searchQuery, styles.DangerText)
	}
	if ls.err != nil {
		return bg.Render(ls.err.Error(), styles.DangerText)
	}

	autoTail := "off"
	if ls.follow {
		autoTail = "on"
	}
	status := fmt.Sprintf("%d lines auto-tail %s", len(ls.rawLines), autoTail)
	if !ls.lastRefresh.IsZero() {
		status += " · read " + humanizeDuration(m.clock().Sub(ls.lastRefresh)) + " ago"
	}
	return bg.Render(status, styles.FaintText)
}

// renderLogContent renders every line with its number and search highlight.
func (m *Model) renderLogContent() string {
	bg := NewBgStyle(m.theme.FocusBg)
	styles := m.theme.Styles()
	width := m.logViewport.Width

	if m.logPath() == "" {
		return bg.FillLine(bg.Render("File logging is disabled (set log_file in the config)", styles.MutedText), width)
	}
	if len(m.logState.entries) == 0 {
		return bg.FillLine(bg.Render("No log entries", styles.MutedText), width)
	}

	matchSet := make(map[int]bool, len(m.logState.searchMatches))
	for _, idx := range m.logState.searchMatches {
		matchSet[idx] = true
	}
	activeMatchLine := -1
	if m.logState.searchMatchIdx < len(m.logState.searchMatches) {
		activeMatchLine = m.logState.searchMatches[m.logState.searchMatchIdx]
	}

	var b strings.Builder
	for i, entry := range m.logState.entries {
		lineNum := fmt.Sprintf("%4d │ ", i+1)

		var line string
		switch {
		case i == activeMatchLine:
			hl := lipgloss.NewStyle().
				Background(lipgloss.Color(m.theme.Warning)).
				Foreground(lipgloss.Color(m.theme.Background))
			line = hl.Render(lineNum + entry.Raw)
		case matchSet[i]:
			line = bg.Render(lineNum, styles.AccentText) + bg.Render(entry.Raw, styles.AccentText)
		default:
			line = bg.Render(lineNum, styles.FaintText) + m.colorizeEntry(entry, styles, bg)
		}

		b.WriteString(bg.FillLine(line, width))
		if i < len(m.logState.entries)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// colorizeEntry styles a parsed line: time, level, caller, message.
func (m *Model) colorizeEntry(e logtail.Entry, styles Styles, bg BgStyle) string {
	if e.Level == "" && !e.HasTime() {
		return bg.Render(e.Raw, styles.Text)
	}
	var parts []string
	if e.HasTime() {
		parts = append(parts, bg.Render(e.Time.Format("15:04:05.000"), styles.FaintText))
	}
	if e.Level != "" {
		parts = append(parts, bg.Render(padRight(e.Level, 5), levelStyle(e.Level, styles).Bold(true)))
	}
	if e.Caller != "" {
		parts = append(parts, bg.Render(e.Caller, styles.MutedText))
	}
	parts = append(parts, bg.Render(e.Message, styles.Text))
	return bg.Join(parts, " ")
}

func levelStyle(level string, styles Styles) lipgloss.Style {
	switch level {
	case "INFO":
		return styles.SuccessText
	case "WARN":
		return styles.WarningText
	case "ERROR", "PANIC", "FATAL":
		return styles.DangerText
	case "DEBUG", "TRACE":
		return styles.InfoText
	default:
		return styles.Text
	}
}

func (m Model) handleLogsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.logState.searchActive {
		return m.handleLogSearchInput(msg)
	}

	switch {
	case key.Matches(msg, m.keys.ToggleFollow):
		m.logState.follow = !m.logState.follow
		m.updateLogViewport()
		if m.logState.follow {
			cmd := m.refreshLogs(true)
			return m, cmd
		}

	case key.Matches(msg, m.keys.Search):
		m.logState.searchActive = true
		m.logState.searchInput.SetValue("")
		cmd := m.logState.searchInput.Focus()
		return m, cmd

	case key.Matches(msg, m.keys.Escape):
		m.clearLogSearch()
		m.updateLogViewport()

	case key.Matches(msg, m.keys.NextMatch):
		m.stepSearchMatch(1)

	case key.Matches(msg, m.keys.PrevMatch):
		m.stepSearchMatch(-1)

	case key.Matches(msg, m.keys.Top):
		m.logViewport.GotoTop()
		m.logState.follow = false

	case key.Matches(msg, m.keys.Bottom):
		m.logViewport.GotoBottom()
		m.logState.follow = true

	case key.Matches(msg, m.keys.Down):
		m.logViewport.ScrollDown(1)
		m.logState.follow = false

	case key.Matches(msg, m.keys.Up):
		m.logViewport.ScrollUp(1)
		m.logState.follow = false

	case key.Matches(msg, m.keys.PageDown):
		m.logViewport.PageDown()
		m.logState.follow = false

	case key.Matches(msg, m.keys.PageUp):
		m.logViewport.PageUp()
		m.logState.follow = false
	}
	return m, nil
}

// handleLogSearchInput handles keyboard input during log search.
func (m Model) handleLogSearchInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		query := m.logState.searchInput.Value()
		m.logState.searchActive = false
		m.logState.searchInput.Blur()
		if query == "" {
			m.clearLogSearch()
			m.updateLogViewport()
			return m, nil
		}

		re, err := regexp.Compile("(?i)" + query)
		if err != nil {
			re = regexp.MustCompile("(?i)" + regexp.QuoteMeta(query))
		}
		m.logState.searchRegex = re
		m.logState.searchQuery = query
		m.findSearchMatches()
		m.logState.searchMatchIdx = 0
		m.updateLogViewport()
		m.scrollToSearchMatch()
		return m, nil

	case key.Matches(msg, m.keys.Escape):
		m.logState.searchActive = false
		m.logState.searchInput.Blur()
		m.clearLogSearch()
		m.updateLogViewport()
		return m, nil
	}

	var cmd tea.Cmd
	m.logState.searchInput, cmd = m.logState.searchInput.Update(msg)
	return m, cmd
}

// logSearchApplied reports whether Esc should clear a log search rather than leave the screen.
func (m Model) logSearchApplied() bool {
	return m.route == RouteLogs && m.logState.searchRegex != nil
}

func (m *Model) clearLogSearch() {
	m.logState.searchRegex = nil
	m.logState.searchQuery = ""
	m.logState.searchMatches = nil
	m.logState.searchMatchIdx = 0
}

// findSearchMatches finds all lines matching the current search regex.
func (m *Model) findSearchMatches() {
	m.logState.searchMatches = nil
	if m.logState.searchRegex == nil {
		return
	}
	for i, line := range m.logState.rawLines {
		if m.logState.searchRegex.MatchString(line) {
			m.logState.searchMatches = append(m.logState.searchMatches, i)
		}
	}
	if m.logState.searchMatchIdx >= len(m.logState.searchMatches) {
		m.logState.searchMatchIdx = 0
	}
}

// stepSearchMatch moves the active match by step, wrapping around.
func (m *Model) stepSearchMatch(step int) {
	n := len(m.logState.searchMatches)
	if n == 0 {
		return
	}
	m.logState.searchMatchIdx = ((m.logState.searchMatchIdx+step)%n + n) % n
	m.updateLogViewport()
	m.scrollToSearchMatch()
}

// scrollToSearchMatch centers the active match and stops following.
func (m *Model) scrollToSearchMatch() {
	if m.logState.searchMatchIdx >= len(m.logState.searchMatches) {
		return
	}
	target := m.logState.searchMatches[m.logState.searchMatchIdx]
	m.logState.follow = false
	m.logViewport.SetYOffset(max(target-m.logViewport.Height/2, 0))
}
