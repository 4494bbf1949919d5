package ui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/digest/internal/state"
)

// quickSetupState tracks the template list cursor and the delivery answers.
// focus 0 is the template list; 1.. are the delivery rows.
type quickSetupState struct {
	cursor     int
	focus      int
	delivery   deliveryForm
	editing    bool
	submitting bool
	err        string
}

func newQuickSetupState() quickSetupState {
	return quickSetupState{delivery: newDeliveryForm()}
}

func (q quickSetupState) form(category string) state.QuickSetupForm {
	return state.QuickSetupForm{
		InterestCategory:  category,
		DeliveryPlatform:  q.delivery.platform,
		DeliveryTarget:    q.delivery.target,
		PushFrequencyType: q.delivery.frequency,
		SummaryLanguage:   q.delivery.language,
	}
}

func (m Model) selectedTemplateCategory() string {
	if m.quickUI.cursor < len(m.quick.Templates) {
		return m.quick.Templates[m.quickUI.cursor].Category
	}
	return ""
}

func (m Model) handleQuickSetupKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	q := &m.quickUI
	if q.editing {
		cmd, err := q.delivery.handleInput(msg, m.keys)
		q.editing = q.delivery.editing
		if err != nil {
			q.err = err.Error()
		} else if !q.editing {
			q.err = ""
		}
		return m, cmd
	}

	rows := 1 + deliveryFieldCount
	switch {
	case key.Matches(msg, m.keys.Up):
		if q.focus == 0 {
			if q.cursor > 0 {
				q.cursor--
			}
			return m, nil
		}
		q.focus--
	case key.Matches(msg, m.keys.Down):
		if q.focus == 0 && q.cursor < len(m.quick.Templates)-1 {
			q.cursor++
			return m, nil
		}
		q.focus = min(q.focus+1, rows-1)
	case key.Matches(msg, m.keys.Left), key.Matches(msg, m.keys.Right):
		if q.focus == 0 {
			return m, nil
		}
		step := 1
		if key.Matches(msg, m.keys.Left) {
			step = -1
		}
		q.delivery.field = q.focus - 1
		q.delivery.cycle(m, step)
	case key.Matches(msg, m.keys.Confirm):
		if q.focus == 0 {
			q.focus = 1 + deliveryTarget
			q.delivery.field = deliveryTarget
			if q.delivery.target != "" {
				cmd := m.submitQuickSetupCmd()
				return m, cmd
			}
		} else {
			q.delivery.field = q.focus - 1
			if q.delivery.field != deliveryTarget {
				cmd := m.submitQuickSetupCmd()
				return m, cmd
			}
		}
		cmd := q.delivery.edit()
		q.editing = q.delivery.editing
		return m, cmd
	case key.Matches(msg, m.keys.Save):
		cmd := m.submitQuickSetupCmd()
		return m, cmd
	}
	if q.focus > 0 {
		q.delivery.field = q.focus - 1
	}
	return m, nil
}

// submitQuickSetupCmd validates the form and creates the subscription.
func (m *Model) submitQuickSetupCmd() tea.Cmd {
	q := &m.quickUI
	if q.submitting || m.quickCtl == nil {
		return nil
	}
	f := q.form(m.selectedTemplateCategory())
	if err := f.Validate(); err != nil {
		q.err = err.Error()
		return nil
	}
	q.err = ""
	q.submitting = true
	quick := m.quickCtl
	return m.mutate(actionQuickSetup, func(ctx context.Context) state.Result { return quick.Submit(ctx, f) })
}

func (m Model) renderQuickSetup(height int) string {
	styles := m.theme.Styles()
	q := m.quickUI

	if m.quick.Loading && len(m.quick.Templates) == 0 {
		return center(m.width, height, styles.MutedText.Render("Loading templates..."), m.theme)
	}
	if m.quick.Error != "" && len(m.quick.Templates) == 0 {
		return center(m.width, height, m.renderFormError(m.quick.Error)+"\n"+styles.FaintText.Render("r to retry"), m.theme)
	}

	listWidth := m.width
	if m.width >= LayoutCompactWidth {
		listWidth = m.width * 2 / 5
	}

	var list strings.Builder
	for i, tpl := range m.quick.Templates {
		name := truncate(tpl.Name, listWidth-6)
		switch {
		case i == q.cursor && q.focus == 0:
			list.WriteString(styles.Selected.Width(listWidth - 4).Render(" " + name))
		case i == q.cursor:
			list.WriteString(styles.AccentText.Render("▸ " + name))
		default:
			list.WriteString(styles.Text.Render("  " + name))
		}
		list.WriteString("\n")
	}

	detail := ""
	if q.cursor < len(m.quick.Templates) {
		tpl := m.quick.Templates[q.cursor]
		lines := []string{
			styles.Text.Bold(true).Render(tpl.Name),
			styles.MutedText.Width(max(m.width-listWidth-4, 20)).Render(tpl.Description),
			"",
			styles.MutedText.Render("Keywords  ") + styles.Text.Render(strings.Join(tpl.Keywords, ", ")),
		}
		if len(tpl.NewsSources) > 0 {
			lines = append(lines, styles.MutedText.Render("Sources   ")+styles.FaintText.Render(strings.Join(tpl.NewsSources, ", ")))
		}
		detail = strings.Join(lines, "\n")
	}

	listHeight := max(min(len(m.quick.Templates)+2, height/2), 4)
	templates := m.renderTitledBox("Templates", list.String(), listWidth, listHeight, q.focus == 0)
	top := templates + "\n" + detail
	if m.width >= LayoutCompactWidth {
		top = lipgloss.JoinHorizontal(lipgloss.Top, templates, "  ", detail)
	}

	rows := q.delivery.rows(m, q.focus > 0)
	rows = append(rows, "")
	switch {
	case q.submitting:
		rows = append(rows, styles.MutedText.Render("Creating subscription..."))
	case q.err != "":
		rows = append(rows, m.renderFormError(q.err))
	default:
		rows = append(rows, styles.FaintText.Render("enter/ctrl+s to create"))
	}
	delivery := m.formBox("Delivery", rows, len(rows)+2)
	return top + "\n" + delivery
}
