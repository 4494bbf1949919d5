package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/digest/internal/api"
	"github.com/five82/digest/internal/schedule"
)

// historyState holds the history screen's cursor.
type historyState struct {
	cursor int
}

func (m Model) handleHistoryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	n := len(m.hist.Items)
	switch {
	case key.Matches(msg, m.keys.Down):
		if m.history.cursor < n-1 {
			m.history.cursor++
		}
		m.updateHistoryViewport()
		if m.history.cursor >= n-1 {
			return m, m.loadMoreCmd()
		}
	case key.Matches(msg, m.keys.Up):
		if m.history.cursor > 0 {
			m.history.cursor--
		}
		m.updateHistoryViewport()
	case key.Matches(msg, m.keys.Top):
		m.history.cursor = 0
		m.updateHistoryViewport()
	case key.Matches(msg, m.keys.Bottom):
		m.history.cursor = max(n-1, 0)
		m.updateHistoryViewport()
	case key.Matches(msg, m.keys.PageDown):
		m.history.cursor = clampInt(m.history.cursor+m.histViewport.Height/2, 0, max(n-1, 0))
		m.updateHistoryViewport()
	case key.Matches(msg, m.keys.PageUp):
		m.history.cursor = clampInt(m.history.cursor-m.histViewport.Height/2, 0, max(n-1, 0))
		m.updateHistoryViewport()
	case key.Matches(msg, m.keys.LoadMore):
		return m, m.loadMoreCmd()
	}
	return m, nil
}

// loadMoreCmd fetches the next page unless one is loading or nothing is left.
func (m Model) loadMoreCmd() tea.Cmd {
	if m.histCtl == nil || m.hist.Loading || !m.hist.HasMore {
		return nil
	}
	hist := m.histCtl
	return m.run(func(ctx context.Context) { _ = hist.LoadMore(ctx) })
}

func (m *Model) updateHistoryViewport() {
	if m.histViewport.Width == 0 {
		return
	}
	width := m.histViewport.Width
	lines := make([]string, 0, len(m.hist.Items)+1)
	for i, item := range m.hist.Items {
		lines = append(lines, m.formatHistoryLine(item, width, i == m.history.cursor))
	}
	styles := m.theme.Styles()
	switch {
	case m.hist.Loading:
		lines = append(lines, styles.MutedText.Render("Loading..."))
	case m.hist.Error != "":
		lines = append(lines, styles.DangerText.Render(m.hist.Error))
	case m.hist.HasMore && len(m.hist.Items) > 0:
		lines = append(lines, styles.FaintText.Render("m: load more"))
	case len(m.hist.Items) == 0:
		lines = append(lines, styles.FaintText.Render("No pushes yet."))
	}
	m.histViewport.SetContent(strings.Join(lines, "\n"))

	// Keep the cursor row visible.
	if m.history.cursor < m.histViewport.YOffset {
		m.histViewport.SetYOffset(m.history.cursor)
	} else if m.history.cursor >= m.histViewport.YOffset+m.histViewport.Height {
		m.histViewport.SetYOffset(m.history.cursor - m.histViewport.Height + 1)
	}
}

// formatHistoryLine renders "pushed-at  source  title".
func (m Model) formatHistoryLine(item api.PushHistoryItem, width int, selected bool) string {
	styles := m.theme.Styles()
	when := padRight(schedule.Ago(m.clock().Sub(item.PushedAt)), 9)
	title, source := item.ArticleID, ""
	if item.Article != nil {
		title = item.Article.Title
		source = item.Article.Source
	}
	source = padRight(truncate(source, 14), 14)
	title = truncate(title, max(width-len(when)-len(source)-4, 10))

	if selected {
		return styles.Selected.Width(width).Render(when + "  " + source + "  " + title)
	}
	return styles.FaintText.Render(when) + "  " + styles.MutedText.Render(source) + "  " + styles.Text.Render(title)
}

func (m Model) renderHistory(height int) string {
	styles := m.theme.Styles()

	summary := styles.MutedText.Render("Loading stats...")
	switch {
	case m.hist.Stats != nil:
		s := m.hist.Stats
		summary = fmt.Sprintf("%s %s   %s %s",
			styles.MutedText.Render("Total"), styles.Text.Bold(true).Render(fmt.Sprintf("%d", s.TotalPushes)),
			styles.MutedText.Render("Last 7 days"), styles.Text.Bold(true).Render(fmt.Sprintf("%d", s.RecentPushes)))
		if s.MostActiveDay != "" {
			summary += "   " + styles.MutedText.Render("Busiest") + " " + styles.Text.Render(s.MostActiveDay)
		}
	case m.hist.StatsError != "":
		summary = styles.DangerText.Render(m.hist.StatsError)
	case !m.hist.StatsLoading:
		summary = ""
	}
	if m.hist.Total != nil {
		summary += "   " + styles.FaintText.Render(fmt.Sprintf("%d/%d loaded", len(m.hist.Items), *m.hist.Total))
	}

	detail := m.renderHistoryDetail()
	listHeight := max(height-4-strings.Count(detail, "\n"), 3)
	box := m.renderTitledBox("Push history", m.histViewport.View(), m.width, listHeight, true)
	return summary + "\n" + box + "\n" + detail
}

// renderHistoryDetail shows the selected article's source link and summary.
func (m Model) renderHistoryDetail() string {
	if m.history.cursor >= len(m.hist.Items) {
		return ""
	}
	item := m.hist.Items[m.history.cursor]
	if item.Article == nil {
		return ""
	}
	styles := m.theme.Styles()
	lines := []string{styles.AccentText.Render(truncate(item.Article.URL, m.width-2))}
	if s := item.Article.PlainSummary(); s != "" {
		lines = append(lines, styles.Text.Width(m.width-2).Render(truncate(s, 2*m.width)))
	}
	return strings.Join(lines, "\n")
}
