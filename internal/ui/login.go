package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// loginState tracks an in-flight browser sign-in.
type loginState struct {
	waiting bool
	err     error
}

func (m Model) handleLoginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if !key.Matches(msg, m.keys.Confirm) || m.login.waiting || m.session == nil {
		return m, nil
	}
	if m.config != nil && !m.config.IdentityConfigured() {
		return m, nil
	}
	m.login.waiting = true
	m.login.err = nil
	sess := m.session
	ctx := m.ctx
	return m, func() tea.Msg {
		return signInDoneMsg{err: sess.SignInWithGoogle(ctx)}
	}
}

func (m Model) renderLogin(height int) string {
	styles := m.theme.Styles()

	lines := []string{
		styles.Logo.Render("digest"),
		styles.MutedText.Render("Financial news summaries, delivered on your schedule."),
		"",
	}

	configured := m.config == nil || m.config.IdentityConfigured()
	switch {
	case !configured:
		lines = append(lines, styles.WarningText.Render("Sign-in is not configured."))
		if m.config != nil {
			for _, w := range m.config.Warnings {
				lines = append(lines, styles.FaintText.Render("· "+w))
			}
		}
	case m.login.waiting || m.auth.Loading:
		lines = append(lines,
			styles.AccentText.Render("Waiting for the browser..."),
			styles.FaintText.Render("Finish signing in with Google, then return here."))
	default:
		lines = append(lines, styles.Text.Render("Press ")+styles.AccentText.Render("enter")+styles.Text.Render(" to sign in with Google"))
	}

	switch {
	case m.login.err != nil:
		lines = append(lines, "", m.renderFormError(m.login.err.Error()))
	case m.auth.Err != "":
		lines = append(lines, "", m.renderFormError(m.auth.Err))
	}

	card := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(m.theme.BorderFocus)).
		Padding(1, 4).
		Render(strings.Join(lines, "\n"))
	return center(m.width, height, card, m.theme)
}
