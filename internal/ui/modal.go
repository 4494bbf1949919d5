package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Modal is the interface for modal dialogs.
// Update returns the updated modal, a command, and whether the modal should close.
type Modal interface {
	Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool)
	View(theme Theme, width, height int) string
}

// confirmModal asks a yes/no question and runs onYes when confirmed.
type confirmModal struct {
	title   string
	message string
	onYes   func() tea.Cmd
}

func (c confirmModal) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return c, nil, false
	}
	switch {
	case k.String() == "y", key.Matches(k, keys.Confirm):
		var cmd tea.Cmd
		if c.onYes != nil {
			cmd = c.onYes()
		}
		return c, cmd, true
	case k.String() == "n", key.Matches(k, keys.Escape):
		return c, nil, true
	}
	return c, nil, false
}

func (c confirmModal) View(theme Theme, width, height int) string {
	styles := theme.Styles()
	var b strings.Builder
	b.WriteString(styles.DangerText.Render(c.title))
	b.WriteString("\n\n")
	b.WriteString(styles.Text.Render(c.message))
	b.WriteString("\n\n")
	b.WriteString(styles.AccentText.Render("y/enter") + styles.MutedText.Render(" confirm   "))
	b.WriteString(styles.AccentText.Render("n/esc") + styles.MutedText.Render(" cancel"))

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(theme.Danger)).
		Padding(1, 2).
		Width(min(56, max(width-4, 20)))
	return center(width, height, box.Render(b.String()), theme)
}
