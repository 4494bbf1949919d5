package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/digest/internal/api"
	"github.com/five82/digest/internal/state"
)

// guidanceState is the wizard's screen-local state. The answers themselves
// live in the GuidanceController.
type guidanceState struct {
	cursor   int
	picked   map[string]bool
	kwCursor int
	editing  bool
	input    textinput.Model
	delivery deliveryForm
	err      string
}

func newGuidanceState() guidanceState {
	return guidanceState{
		picked:   map[string]bool{},
		input:    newInput("custom keyword"),
		delivery: newDeliveryForm(),
	}
}

// pickedAreas returns the selected focus area codes in display order.
func (m Model) pickedAreas() []string {
	var out []string
	for _, area := range m.guide.FocusAreas {
		if m.guideUI.picked[area.Code] {
			out = append(out, area.Code)
		}
	}
	return out
}

// suggestions lists suggested keywords not yet chosen.
func (m Model) suggestions() []string {
	chosen := make(map[string]bool, len(m.guide.Keywords))
	for _, kw := range m.guide.Keywords {
		chosen[strings.ToLower(kw)] = true
	}
	var out []string
	for _, kw := range m.guide.Suggested {
		if !chosen[strings.ToLower(kw)] {
			out = append(out, kw)
		}
	}
	return out
}

func (m Model) handleGuidanceKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	g := &m.guideUI
	if m.guideCtl == nil || m.guide.Loading {
		return m, nil
	}
	if g.editing {
		return m.handleGuidanceInput(msg)
	}
	guide := m.guideCtl

	switch m.guide.Step {
	case state.StepFocus:
		n := len(m.guide.FocusAreas)
		switch {
		case key.Matches(msg, m.keys.Up):
			g.cursor = clampInt(g.cursor-1, 0, max(n-1, 0))
		case key.Matches(msg, m.keys.Down):
			g.cursor = clampInt(g.cursor+1, 0, max(n-1, 0))
		case key.Matches(msg, m.keys.Select):
			if g.cursor < n {
				code := m.guide.FocusAreas[g.cursor].Code
				g.picked[code] = !g.picked[code]
			}
		case key.Matches(msg, m.keys.Confirm):
			areas := m.pickedAreas()
			if len(areas) == 0 {
				g.err = "pick at least one focus area"
				return m, nil
			}
			g.err = ""
			g.cursor = 0
			return m, m.run(func(ctx context.Context) { _ = guide.SelectFocus(ctx, areas) })
		}

	case state.StepKeywords:
		suggested := m.suggestions()
		switch {
		case key.Matches(msg, m.keys.Up):
			g.cursor = clampInt(g.cursor-1, 0, max(len(suggested)-1, 0))
		case key.Matches(msg, m.keys.Down):
			g.cursor = clampInt(g.cursor+1, 0, max(len(suggested)-1, 0))
		case key.Matches(msg, m.keys.Left):
			g.kwCursor = clampInt(g.kwCursor-1, 0, max(len(m.guide.Keywords)-1, 0))
		case key.Matches(msg, m.keys.Right):
			g.kwCursor = clampInt(g.kwCursor+1, 0, max(len(m.guide.Keywords)-1, 0))
		case key.Matches(msg, m.keys.Select):
			if g.cursor < len(suggested) {
				m.addGuidanceKeyword(suggested[g.cursor])
				g.cursor = clampInt(g.cursor, 0, max(len(m.suggestions())-1, 0))
			}
		case key.Matches(msg, m.keys.AddKeyword):
			g.editing = true
			g.input.SetValue("")
			cmd := g.input.Focus()
			return m, cmd
		case key.Matches(msg, m.keys.DropItem):
			if g.kwCursor < len(m.guide.Keywords) {
				guide.RemoveKeyword(m.guide.Keywords[g.kwCursor])
				m.pull()
				g.kwCursor = clampInt(g.kwCursor, 0, max(len(m.guide.Keywords)-1, 0))
			}
		case key.Matches(msg, m.keys.Confirm):
			if len(m.guide.Keywords) == 0 {
				g.err = "add at least one keyword"
				return m, nil
			}
			g.err = ""
			return m, m.run(func(ctx context.Context) { _ = guide.Analyze(ctx) })
		case key.Matches(msg, m.keys.Back):
			guide.Back()
			m.pull()
		}

	case state.StepAnalysis:
		switch {
		case key.Matches(msg, m.keys.Confirm):
			guide.Proceed()
			m.pull()
		case key.Matches(msg, m.keys.Select):
			if m.guide.Analysis != nil {
				for _, kw := range m.guide.Analysis.RecommendedAdd {
					m.addGuidanceKeyword(kw)
				}
			}
		case key.Matches(msg, m.keys.Back):
			guide.Back()
			m.pull()
		}

	case state.StepFinalize:
		d := &g.delivery
		switch {
		case key.Matches(msg, m.keys.Up):
			d.field = (d.field - 1 + deliveryFieldCount) % deliveryFieldCount
		case key.Matches(msg, m.keys.Down):
			d.field = (d.field + 1) % deliveryFieldCount
		case key.Matches(msg, m.keys.Left):
			d.cycle(m, -1)
		case key.Matches(msg, m.keys.Right):
			d.cycle(m, 1)
		case key.Matches(msg, m.keys.Confirm):
			if d.field == deliveryTarget {
				cmd := d.edit()
				g.editing = d.editing
				return m, cmd
			}
			return m, m.finalizeGuidanceCmd()
		case key.Matches(msg, m.keys.Save):
			return m, m.finalizeGuidanceCmd()
		case key.Matches(msg, m.keys.Back):
			guide.Back()
			m.pull()
		}

	case state.StepDone:
		if key.Matches(msg, m.keys.Confirm) {
			guide.Cancel()
			m.guideUI = newGuidanceState()
			return m.navigate(RouteDashboard)
		}
	}
	return m, nil
}

func (m *Model) addGuidanceKeyword(kw string) {
	if err := m.guideCtl.AddKeyword(kw); err != nil {
		m.guideUI.err = err.Error()
	} else {
		m.guideUI.err = ""
	}
	m.pull()
}

func (m Model) handleGuidanceInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	g := &m.guideUI
	if m.guide.Step == state.StepFinalize {
		cmd, err := g.delivery.handleInput(msg, m.keys)
		g.editing = g.delivery.editing
		if err != nil {
			g.err = err.Error()
		} else if !g.editing {
			g.err = ""
		}
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Escape):
		g.editing = false
		g.input.Blur()
		return m, nil
	case key.Matches(msg, m.keys.Confirm):
		value := strings.TrimSpace(g.input.Value())
		if value == "" {
			g.editing = false
			g.input.Blur()
			return m, nil
		}
		m.addGuidanceKeyword(value)
		g.input.SetValue("")
		return m, nil
	}
	var cmd tea.Cmd
	g.input, cmd = g.input.Update(msg)
	return m, cmd
}

func (m *Model) finalizeGuidanceCmd() tea.Cmd {
	if m.guideCtl == nil {
		return nil
	}
	d := m.guideUI.delivery
	guide := m.guideCtl
	delivery := state.Delivery{
		Platform:        d.platform,
		Target:          d.target,
		Frequency:       d.frequency,
		SummaryLanguage: d.language,
	}
	return m.mutate(actionFinalize, func(ctx context.Context) state.Result { return guide.Finalize(ctx, delivery) })
}

// guidanceCommands returns the command bar hints for the current wizard step.
func (m Model) guidanceCommands() []hint {
	if m.guideUI.editing {
		return []hint{{"enter", "Apply"}, {"esc", "Cancel"}}
	}
	switch m.guide.Step {
	case state.StepKeywords:
		return []hint{{"space", "Add suggestion"}, {"a", "Custom"}, {"x", "Remove"}, {"enter", "Analyze"}, {"b", "Back"}}
	case state.StepAnalysis:
		return []hint{{"enter", "Continue"}, {"space", "Add recommended"}, {"b", "Back"}}
	case state.StepFinalize:
		return []hint{{"j/k", "Field"}, {"←/→", "Change"}, {"ctrl+s", "Finish"}, {"b", "Back"}}
	case state.StepDone:
		return []hint{{"enter", "Dashboard"}}
	default:
		return []hint{{"j/k", "Navigate"}, {"space", "Toggle"}, {"enter", "Next"}}
	}
}

var guidanceSteps = []state.GuidanceStep{state.StepFocus, state.StepKeywords, state.StepAnalysis, state.StepFinalize}

func (m Model) renderGuidance(height int) string {
	styles := m.theme.Styles()

	var steps []string
	for i, s := range guidanceSteps {
		label := fmt.Sprintf("%d %s", i+1, titleCase(s.String()))
		switch {
		case s == m.guide.Step:
			steps = append(steps, styles.Selected.Padding(0, 1).Render(label))
		case s < m.guide.Step:
			steps = append(steps, styles.SuccessText.Padding(0, 1).Render("✓ "+label))
		default:
			steps = append(steps, styles.FaintText.Padding(0, 1).Render(label))
		}
	}
	progress := strings.Join(steps, styles.FaintText.Render("›"))

	var body string
	switch {
	case m.guide.Loading && len(m.guide.FocusAreas) == 0:
		body = styles.MutedText.Render("Loading focus areas...")
	default:
		switch m.guide.Step {
		case state.StepKeywords:
			body = m.renderGuidanceKeywords()
		case state.StepAnalysis:
			body = m.renderGuidanceAnalysis()
		case state.StepFinalize:
			body = strings.Join(m.guideUI.delivery.rows(m, true), "\n")
		case state.StepDone:
			body = m.renderGuidanceDone()
		default:
			body = m.renderGuidanceFocus()
		}
	}

	footer := ""
	switch {
	case m.guide.Loading:
		footer = styles.MutedText.Render("Working...")
	case m.guideUI.err != "":
		footer = m.renderFormError(m.guideUI.err)
	case m.guide.Error != "":
		footer = m.renderFormError(m.guide.Error)
	}

	parts := []string{progress, "", body}
	if footer != "" {
		parts = append(parts, "", footer)
	}
	if s := m.renderOptimization(); s != "" && m.guide.Step == state.StepFocus {
		parts = append(parts, "", s)
	}
	content := lipgloss.JoinVertical(lipgloss.Left, parts...)
	return m.renderTitledBox("Guided setup", content, m.width, height, true)
}

func (m Model) renderGuidanceFocus() string {
	styles := m.theme.Styles()
	lines := []string{styles.MutedText.Render("Which markets do you follow? Select one or more.")}
	if m.guide.Status != nil && m.guide.Status.IsCompleted {
		lines = append(lines, styles.FaintText.Render("Finishing again replaces your current keywords."))
	}
	for i, area := range m.guide.FocusAreas {
		box := "[ ]"
		if m.guideUI.picked[area.Code] {
			box = "[x]"
		}
		row := fmt.Sprintf("%s %s", box, area.Name)
		if i == m.guideUI.cursor {
			lines = append(lines, styles.Selected.Render("▸ "+row))
		} else {
			lines = append(lines, styles.Text.Render("  "+row))
		}
		if i == m.guideUI.cursor && area.Description != "" {
			lines = append(lines, styles.FaintText.Render("    "+truncate(area.Description, m.width-8)))
		}
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderGuidanceKeywords() string {
	styles := m.theme.Styles()
	lines := []string{
		styles.MutedText.Render(fmt.Sprintf("Your keywords (%d/%d)", len(m.guide.Keywords), api.MaxKeywords)),
	}
	var chips []string
	for i, kw := range m.guide.Keywords {
		style := styles.AccentText.Padding(0, 1)
		if i == m.guideUI.kwCursor {
			style = styles.Selected.Padding(0, 1)
		}
		chips = append(chips, style.Render(kw))
	}
	if len(chips) == 0 {
		chips = append(chips, styles.FaintText.Render("none yet"))
	}
	lines = append(lines, strings.Join(chips, " "), "")
	if m.guideUI.editing {
		lines = append(lines, m.guideUI.input.View(), "")
	}

	lines = append(lines, styles.MutedText.Render("Suggestions"))
	suggested := m.suggestions()
	if len(suggested) == 0 {
		lines = append(lines, styles.FaintText.Render("  none left"))
	}
	for i, kw := range suggested {
		if i == m.guideUI.cursor {
			lines = append(lines, styles.Selected.Render("▸ "+kw))
			continue
		}
		lines = append(lines, styles.Text.Render("  "+kw))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderGuidanceAnalysis() string {
	styles := m.theme.Styles()
	a := m.guide.Analysis
	if a == nil {
		return styles.MutedText.Render("No analysis yet.")
	}
	lines := []string{m.renderFocusScore(a.FocusScore)}
	if a.PrimaryTopic != "" {
		lines = append(lines, styles.MutedText.Render("Primary topic  ")+styles.Text.Render(a.PrimaryTopic))
	}
	if len(a.Clusters) > 0 {
		lines = append(lines, "", styles.MutedText.Render("Clusters"))
		for _, c := range a.Clusters {
			lines = append(lines, fmt.Sprintf("  %s %s", styles.Text.Bold(true).Render(c.Name), styles.FaintText.Render(strings.Join(c.Keywords, ", "))))
		}
	}
	for _, w := range a.Warnings {
		lines = append(lines, styles.WarningText.Render("! "+w))
	}
	for _, s := range a.Suggestions {
		lines = append(lines, styles.InfoText.Render("· "+s))
	}
	if len(a.RecommendedAdd) > 0 {
		lines = append(lines, "", styles.MutedText.Render("Recommended: ")+styles.AccentText.Render(strings.Join(a.RecommendedAdd, ", ")))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderGuidanceDone() string {
	styles := m.theme.Styles()
	lines := []string{styles.SuccessText.Bold(true).Render("Your digest is set up")}
	if r := m.guide.Result; r != nil {
		if r.Message != "" {
			lines = append(lines, styles.Text.Render(r.Message))
		}
		lines = append(lines, m.renderFocusScore(r.FocusScore))
	}
	lines = append(lines, "", styles.FaintText.Render("enter to open the dashboard"))
	return strings.Join(lines, "\n")
}

// renderFocusScore renders a 0..1 score as a percentage bar.
func (m Model) renderFocusScore(score float64) string {
	styles := m.theme.Styles()
	score = max(0, min(score, 1))
	const width = 20
	filled := int(score*width + 0.5)
	style := styles.SuccessText
	switch {
	case score < 0.4:
		style = styles.DangerText
	case score < 0.7:
		style = styles.WarningText
	}
	bar := style.Render(strings.Repeat("█", filled)) + styles.FaintText.Render(strings.Repeat("░", width-filled))
	return styles.MutedText.Render("Focus score    ") + bar + " " + style.Render(fmt.Sprintf("%.0f%%", score*100))
}

// renderOptimization shows advice for an existing subscription's keywords.
func (m Model) renderOptimization() string {
	s := m.guide.Suggestions
	if s == nil {
		return ""
	}
	styles := m.theme.Styles()
	lines := []string{styles.Text.Bold(true).Render("Current subscription"), m.renderFocusScore(s.FocusScore)}
	if s.ImprovementHint != "" {
		lines = append(lines, styles.InfoText.Render(s.ImprovementHint))
	}
	if len(s.AddKeywords) > 0 {
		lines = append(lines, styles.MutedText.Render("Consider adding   ")+styles.SuccessText.Render(strings.Join(s.AddKeywords, ", ")))
	}
	if len(s.RemoveKeywords) > 0 {
		lines = append(lines, styles.MutedText.Render("Consider removing ")+styles.WarningText.Render(strings.Join(s.RemoveKeywords, ", ")))
	}
	return strings.Join(lines, "\n")
}
