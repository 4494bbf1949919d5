package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/digest/internal/api"
	"github.com/five82/digest/internal/schedule"
	"github.com/five82/digest/internal/state"
)

const dashboardRecentItems = 5

func (m Model) handleDashboardKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.TogglePush):
		return m, m.toggleCmd()
	case key.Matches(msg, m.keys.Confirm):
		if m.subs.Subscription == nil {
			return m.navigate(RouteQuickSetup)
		}
		return m.navigate(RouteSubscription)
	}
	return m, nil
}

func (m Model) toggleCmd() tea.Cmd {
	if m.subsCtl == nil || m.subs.Subscription == nil {
		return nil
	}
	subs := m.subsCtl
	return m.mutate(actionToggle, func(ctx context.Context) state.Result { return subs.Toggle(ctx) })
}

// renderDashboard shows the subscription summary, or the onboarding call to
// action when the user has none yet.
func (m Model) renderDashboard(height int) string {
	styles := m.theme.Styles()

	switch {
	case m.subs.Loading && !m.subs.Initialized:
		return center(m.width, height, styles.MutedText.Render("Loading your subscription..."), m.theme)
	case m.subs.Error != "" && m.subs.Subscription == nil:
		msg := styles.DangerText.Render("Could not load your subscription") + "\n" +
			styles.MutedText.Render(m.subs.Error) + "\n\n" +
			styles.AccentText.Render("r") + styles.MutedText.Render(" retry")
		return center(m.width, height, msg, m.theme)
	case m.subs.Subscription == nil:
		return m.renderOnboardingCTA(height)
	}

	sub := m.subs.Subscription
	sections := []string{
		m.renderStatCards(sub),
		m.renderKeywords(sub),
		m.renderRecentPushes(),
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderOnboardingCTA replaces the stat cards for users without a subscription.
func (m Model) renderOnboardingCTA(height int) string {
	styles := m.theme.Styles()
	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render("Set up your first digest"))
	b.WriteString("\n\n")
	b.WriteString(styles.MutedText.Render("Pick the topics you follow and where the summaries should go."))
	b.WriteString("\n\n")
	options := []hint{
		{"4 / enter", "Quick setup: choose a template, done in one step"},
		{"5", "Guided setup: focus areas, keyword analysis, focus score"},
		{"2", "Manual: enter keywords and delivery yourself"},
	}
	for _, o := range options {
		b.WriteString(styles.AccentText.Render(padRight(o.key, 11)))
		b.WriteString(styles.Text.Render(o.desc))
		b.WriteString("\n")
	}
	card := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(m.theme.Accent)).
		Padding(1, 3).
		Render(b.String())
	return center(m.width, height, card, m.theme)
}

func (m Model) renderStatCards(sub *api.Subscription) string {
	styles := m.theme.Styles()
	perRow := 4
	if m.width < LayoutCardsWidth {
		perRow = 2
	}
	cardWidth := max(m.width/perRow, 16)

	status := subscriptionStatus(sub)
	statusStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.StatusColor(status)))
	statusDetail := "Press p to pause"
	if !sub.IsActive {
		statusDetail = "Press p to resume"
	}

	times := schedule.Times(sub.PushFrequencyType, m.subs.FrequencyOptions)
	nextValue, nextDetail := "Paused", schedule.Describe(times)
	if sub.IsActive {
		loc := schedule.Location(m.subs.Timezone)
		if next := schedule.NextPush(times, loc, m.now); !next.IsZero() {
			nextValue = schedule.Countdown(next.Sub(m.now))
			nextDetail = next.Format("Mon 15:04") + " " + next.Format("MST")
		}
	}

	pushes, pushDetail := "–", ""
	if m.hist.Stats != nil {
		pushes = fmt.Sprintf("%d", m.hist.Stats.TotalPushes)
		pushDetail = fmt.Sprintf("%d in the last 7 days", m.hist.Stats.RecentPushes)
	} else if m.hist.StatsLoading {
		pushes = "..."
	}
	if sub.LastPushedAt != nil {
		pushDetail = "last " + schedule.Ago(m.now.Sub(*sub.LastPushedAt))
	}

	cards := []string{
		m.renderCard("Delivery", titleCase(status), statusDetail, cardWidth, statusStyle),
		m.renderCard("Next push", nextValue, nextDetail, cardWidth, styles.AccentText),
		m.renderCard(platformLabel(sub.DeliveryPlatform), frequencyLabel(sub.PushFrequencyType, m.subs.FrequencyOptions), maskTarget(sub.DeliveryTarget), cardWidth, styles.Text),
		m.renderCard("Pushes", pushes, pushDetail, cardWidth, styles.InfoText),
	}

	rows := make([]string, 0, 2)
	for i := 0; i < len(cards); i += perRow {
		end := min(i+perRow, len(cards))
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cards[i:end]...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m Model) renderKeywords(sub *api.Subscription) string {
	styles := m.theme.Styles()
	chip := lipgloss.NewStyle().
		Foreground(lipgloss.Color(m.theme.Background)).
		Background(lipgloss.Color(m.theme.Accent)).
		Padding(0, 1).
		MarginRight(1)

	chips := make([]string, 0, len(sub.Keywords))
	for _, kw := range sub.Keywords {
		chips = append(chips, chip.Render(kw))
	}
	line := styles.MutedText.Render(fmt.Sprintf("Keywords (%d/%d) ", len(sub.Keywords), api.MaxKeywords))
	if len(chips) == 0 {
		return line + styles.FaintText.Render("none")
	}
	return lipgloss.NewStyle().Width(m.width).Render(line + strings.Join(chips, ""))
}

func (m Model) renderRecentPushes() string {
	styles := m.theme.Styles()
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(styles.Text.Bold(true).Render("Recent pushes"))
	b.WriteString("\n")

	switch {
	case m.hist.Loading && len(m.hist.Items) == 0:
		b.WriteString(styles.MutedText.Render("Loading..."))
		return b.String()
	case len(m.hist.Items) == 0:
		b.WriteString(styles.FaintText.Render("Nothing delivered yet. Your first digest arrives at the next push time."))
		return b.String()
	}

	for i, item := range m.hist.Items {
		if i == dashboardRecentItems {
			break
		}
		b.WriteString(m.formatHistoryLine(item, m.width-2, false))
		b.WriteString("\n")
	}
	return b.String()
}
