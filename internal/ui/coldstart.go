package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// coldStartState backs the "server is waking up" alert.
type coldStartState struct {
	active       bool
	since        time.Time
	loadingSince time.Time
	spinner      spinner.Model
	bar          progress.Model
}

func newColdStartState() coldStartState {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return coldStartState{
		spinner: sp,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
	}
}

// update forwards spinner ticks while the alert is visible.
func (c *coldStartState) update(msg tea.Msg) (tea.Cmd, bool) {
	tick, ok := msg.(spinner.TickMsg)
	if !ok {
		return nil, false
	}
	if !c.active {
		return nil, true
	}
	var cmd tea.Cmd
	c.spinner, cmd = c.spinner.Update(tick)
	return cmd, true
}

// coldStartProgress estimates wake-up progress, never reaching 100% on its own.
func coldStartProgress(elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	p := float64(elapsed) / float64(ColdStartExpected)
	if p > 0.95 {
		return 0.95
	}
	return p
}

// updateColdStart shows the alert when the health probe classifies the last
// failure as a cold start, or when a request on a cold-start host has been
// loading past the grace period. It returns the spinner command when the
// alert appears.
func (m *Model) updateColdStart() tea.Cmd {
	now := m.clock()
	loading := m.subs.Loading || m.hist.Loading || m.guide.Loading || m.quick.Loading || m.quick.Submitting
	if m.coldStartHost && loading {
		if m.cold.loadingSince.IsZero() {
			m.cold.loadingSince = now
		}
	} else {
		m.cold.loadingSince = time.Time{}
	}

	show := m.snapshot.IsWaking() ||
		(!m.cold.loadingSince.IsZero() && now.Sub(m.cold.loadingSince) >= ColdStartGrace)

	switch {
	case show && !m.cold.active:
		m.cold.active = true
		m.cold.since = now
		return m.cold.spinner.Tick
	case !show:
		m.cold.active = false
	}
	return nil
}

func (m Model) renderColdStartAlert() string {
	styles := m.theme.Styles().WithBackground(m.theme.SurfaceAlt)
	bg := NewBgStyle(m.theme.SurfaceAlt)

	elapsed := m.clock().Sub(m.cold.since)
	m.cold.bar.Width = clampInt(m.width/3, 10, 40)

	line := m.cold.spinner.View() + bg.Space() +
		bg.Render("Server is waking up", styles.WarningText.Bold(true)) + bg.Spaces(2) +
		bg.Render("free instances sleep when idle; this can take up to a minute", styles.MutedText) + bg.Spaces(2) +
		m.cold.bar.ViewAs(coldStartProgress(elapsed)) + bg.Space() +
		bg.Render(fmt.Sprintf("%ds", int(elapsed.Seconds())), styles.FaintText)

	return lipgloss.NewStyle().
		Background(lipgloss.Color(m.theme.SurfaceAlt)).
		Width(m.width).
		Padding(0, 1).
		Render(line)
}
