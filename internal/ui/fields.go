package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/digest/internal/api"
)

var (
	defaultPlatforms   = []string{api.PlatformEmail, api.PlatformDiscord}
	defaultFrequencies = []string{api.FrequencyDaily, api.FrequencyTwice, api.FrequencyThrice}
	defaultLanguages   = []string{api.DefaultSummaryLanguage, "zh-cn", "en"}
)

func newInput(placeholder string) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 200
	ti.Width = 48
	return ti
}

// cycle returns the choice step positions away from current, wrapping around.
// An unknown current value starts from the first choice.
func cycle(choices []string, current string, step int) string {
	if len(choices) == 0 {
		return current
	}
	idx := -1
	for i, c := range choices {
		if c == current {
			idx = i
			break
		}
	}
	if idx < 0 {
		return choices[0]
	}
	n := len(choices)
	return choices[((idx+step)%n+n)%n]
}

func (m Model) platformChoices() []string {
	if m.snapshot.HasConfig && len(m.snapshot.Config.SupportedPlatforms) > 0 {
		return m.snapshot.Config.SupportedPlatforms
	}
	return defaultPlatforms
}

func (m Model) frequencyChoices() []string {
	if len(m.subs.FrequencyOptions) == 0 {
		return defaultFrequencies
	}
	out := make([]string, 0, len(m.subs.FrequencyOptions))
	for _, opt := range m.subs.FrequencyOptions {
		out = append(out, opt.Value)
	}
	return out
}

func (m Model) languageChoices() []string {
	if m.snapshot.HasConfig && len(m.snapshot.Config.SupportedLanguages) > 0 {
		return m.snapshot.Config.SupportedLanguages
	}
	return defaultLanguages
}

// targetPlaceholder explains what the target field expects for platform.
func targetPlaceholder(platform string) string {
	if platform == api.PlatformDiscord {
		return "https://discord.com/api/webhooks/..."
	}
	return "you@example.com"
}

// renderField renders one "label  value" form row.
func (m Model) renderField(label, value string, focused bool, hint string) string {
	styles := m.theme.Styles()
	marker := "  "
	labelStyle := styles.MutedText
	if focused {
		marker = styles.AccentText.Render("▸ ")
		labelStyle = styles.AccentText.Bold(true)
	}
	row := marker + labelStyle.Render(padRight(label, 12)) + " " + value
	if focused && hint != "" {
		row += "  " + styles.FaintText.Render(hint)
	}
	return row
}

// renderChoice renders choices with the current one highlighted.
func (m Model) renderChoice(choices []string, current string, label func(string) string) string {
	styles := m.theme.Styles()
	parts := make([]string, 0, len(choices))
	for _, c := range choices {
		text := label(c)
		if c == current {
			parts = append(parts, styles.Selected.Padding(0, 1).Render(text))
			continue
		}
		parts = append(parts, styles.MutedText.Padding(0, 1).Render(text))
	}
	return strings.Join(parts, " ")
}

// renderFormError renders a validation or server error under a form.
func (m Model) renderFormError(msg string) string {
	if msg == "" {
		return ""
	}
	return m.theme.Styles().DangerText.Render("✗ " + msg)
}

func (m Model) formBox(title string, rows []string, height int) string {
	content := lipgloss.JoinVertical(lipgloss.Left, rows...)
	return m.renderTitledBox(title, content, min(m.width, 100), height, true)
}

func asIs(s string) string { return s }
