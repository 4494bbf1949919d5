package ui

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// renderHeader renders the top status bar: logo, backend health, screen tabs and user.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	compact := m.width < LayoutCompactWidth

	parts := []string{bg.Render("digest", styles.Logo)}

	if status := backendStatus(m.snapshot); status != "" {
		label := "● " + strings.ToUpper(status)
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.StatusColor(status)))
		parts = append(parts, bg.Render(label, style))
	} else {
		parts = append(parts, bg.Render("● CONNECTING", styles.WarningText))
	}

	if m.auth.Authenticated() {
		parts = append(parts, m.renderTabs(compact, styles, bg))
	}

	if ts := m.formatTimestamp(); ts != "" && !compact {
		parts = append(parts, bg.Render(ts, styles.MutedText))
	}

	if m.snapshot.LastError != nil && !m.snapshot.IsWaking() {
		maxErr := ternaryInt(compact, 30, 60)
		parts = append(parts, bg.Pair("ERROR", truncate(m.snapshot.LastError.Error(), maxErr), styles.DangerText, styles.DangerText))
	}

	if m.auth.User != nil {
		parts = append(parts, bg.Render(truncate(m.auth.User.DisplayName(), 32), styles.AccentText))
	}

	return styles.Header.Width(m.width).Render(bg.Join(parts, "  "))
}

// renderTabs renders the screen list with the active one highlighted.
func (m Model) renderTabs(compact bool, styles Styles, bg BgStyle) string {
	tabs := make([]string, 0, len(navOrder))
	for i, r := range navOrder {
		label := r.Title()
		if compact {
			label = string([]rune(label)[:1])
		}
		label = string(rune('1'+i)) + " " + label
		if r == m.route {
			tabs = append(tabs, bg.Render(label, styles.Selected.Bold(true)))
			continue
		}
		tabs = append(tabs, bg.Render(label, styles.MutedText))
	}
	return bg.Join(tabs, " ")
}

// formatTimestamp formats the last snapshot time with a relative indicator.
func (m Model) formatTimestamp() string {
	if m.lastUpdated.IsZero() {
		return ""
	}
	since := m.clock().Sub(m.lastUpdated)
	ts := m.lastUpdated.Format("15:04:05")
	if since >= 5*time.Second {
		ts += " (" + humanizeDuration(since) + " ago)"
	}
	return ts
}

// renderCommandBar renders the key hints for the active screen.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	var commands []hint

	switch m.route {
	case RouteLogin:
		commands = []hint{{"enter", "Sign in with Google"}, {"e", "Quit"}}
	case RouteDashboard:
		if m.subs.Subscription == nil {
			commands = []hint{{"4", "Quick setup"}, {"5", "Guided setup"}, {"2", "Manual"}}
		} else {
			commands = []hint{
				{"p", ternary(m.subs.Subscription.IsActive, "Pause", "Resume")},
				{"enter", "Edit"},
				{"3", "History"},
			}
		}
	case RouteSubscription:
		if m.subForm.editing {
			commands = []hint{{"enter", "Apply"}, {"esc", "Cancel"}}
		} else {
			commands = []hint{{"j/k", "Field"}, {"←/→", "Change"}, {"enter", "Edit"}, {"ctrl+s", "Save"}}
			if m.subs.Subscription != nil {
				commands = append(commands, hint{"p", "Pause/Resume"}, hint{"D", "Delete"})
			}
		}
	case RouteHistory:
		commands = []hint{{"j/k", "Navigate"}, {"m", "More"}, {"r", "Refresh"}}
	case RouteQuickSetup:
		if m.quickUI.editing {
			commands = []hint{{"enter", "Apply"}, {"esc", "Cancel"}}
		} else {
			commands = []hint{{"j/k", "Field"}, {"←/→", "Change"}, {"enter", "Edit"}, {"ctrl+s", "Create"}}
		}
	case RouteGuidance:
		commands = m.guidanceCommands()
	case RouteLogs:
		commands = []hint{
			{"f", ternary(m.logState.follow, "Pause", "Follow")},
			{"/", "Search"},
			{"n/N", "Next/Prev"},
		}
	}
	if m.auth.Authenticated() && !m.inputFocused() {
		commands = append(commands, hint{"tab", "Screens"}, hint{"X", "Sign out"}, hint{"?", "More"})
	}

	colon := bg.Render(":", styles.FaintText)
	segments := make([]string, 0, len(commands)+2)
	for _, c := range commands {
		segments = append(segments, bg.Render(c.key, styles.AccentText)+colon+bg.Render(c.desc, styles.MutedText))
	}

	if m.route == RouteLogs && m.logState.searchQuery != "" {
		segments = append(segments, bg.Render("/"+truncate(m.logState.searchQuery, 18), styles.AccentText))
	}

	segments = append(segments, bg.Render("T", styles.AccentText)+colon+bg.Render(m.theme.Name, styles.FaintText))

	return styles.Header.Width(m.width).Render(strings.Join(segments, bg.Spaces(2)))
}

// hint is one "key:description" entry of the command bar.
type hint struct{ key, desc string }

func ternaryInt(cond bool, a, b int) int {
	if cond {
		return a
	}
	return b
}
