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
	"github.com/five82/digest/internal/form"
	"github.com/five82/digest/internal/schedule"
	"github.com/five82/digest/internal/state"
)

// Subscription form rows.
const (
	subFieldPlatform = iota
	subFieldTarget
	subFieldKeywords
	subFieldFrequency
	subFieldLanguage
	subFieldCount
)

// subFormState is the editable copy of the subscription.
type subFormState struct {
	form     form.SubscriptionForm
	field    int
	kwCursor int
	editing  bool
	input    textinput.Model
	dirty    bool
	saving   bool
	err      string
}

func newSubFormState() subFormState {
	return subFormState{
		form:  form.FromSubscription(nil),
		input: newInput(""),
	}
}

// seed resets the form from sub unless the user has unsaved edits.
func (s *subFormState) seed(sub *api.Subscription) {
	if s.dirty || s.editing {
		return
	}
	s.form = form.FromSubscription(sub)
	s.kwCursor = 0
	s.err = ""
}

func (m Model) handleSubscriptionKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	f := &m.subForm
	if f.editing {
		return m.handleSubscriptionInput(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Up):
		f.field = (f.field - 1 + subFieldCount) % subFieldCount
	case key.Matches(msg, m.keys.Down):
		f.field = (f.field + 1) % subFieldCount
	case key.Matches(msg, m.keys.Left), key.Matches(msg, m.keys.Right):
		step := 1
		if key.Matches(msg, m.keys.Left) {
			step = -1
		}
		m.cycleSubField(step)
	case key.Matches(msg, m.keys.Confirm), key.Matches(msg, m.keys.AddKeyword):
		switch {
		case f.field == subFieldTarget:
			f.input = newInput(targetPlaceholder(f.form.Platform))
			f.input.SetValue(f.form.Target)
		case f.field == subFieldKeywords || key.Matches(msg, m.keys.AddKeyword):
			f.field = subFieldKeywords
			f.input = newInput("keyword, then enter")
		default:
			return m, nil
		}
		f.editing = true
		cmd := f.input.Focus()
		return m, cmd
	case key.Matches(msg, m.keys.DropItem):
		if f.field == subFieldKeywords {
			values := f.form.Keywords.Values()
			if f.kwCursor < len(values) {
				f.form.Keywords.Remove(values[f.kwCursor])
				f.kwCursor = clampInt(f.kwCursor, 0, max(f.form.Keywords.Len()-1, 0))
				f.dirty = true
			}
		}
	case key.Matches(msg, m.keys.Save):
		cmd := m.saveSubscriptionCmd()
		return m, cmd
	case key.Matches(msg, m.keys.TogglePush):
		return m, m.toggleCmd()
	case key.Matches(msg, m.keys.Delete):
		if m.subs.Subscription != nil && m.subsCtl != nil {
			subs := m.subsCtl
			run := m.mutate
			m.modal = confirmModal{
				title:   "Delete subscription?",
				message: "Deliveries stop immediately and your keywords are removed.",
				onYes: func() tea.Cmd {
					return run(actionDelete, func(ctx context.Context) state.Result { return subs.Delete(ctx) })
				},
			}
		}
	}
	return m, nil
}

func (m *Model) cycleSubField(step int) {
	f := &m.subForm
	switch f.field {
	case subFieldPlatform:
		f.form.Platform = cycle(m.platformChoices(), f.form.Platform, step)
	case subFieldFrequency:
		f.form.Frequency = cycle(m.frequencyChoices(), f.form.Frequency, step)
	case subFieldLanguage:
		f.form.SummaryLanguage = cycle(m.languageChoices(), f.form.SummaryLanguage, step)
	case subFieldKeywords:
		if n := f.form.Keywords.Len(); n > 0 {
			f.kwCursor = ((f.kwCursor+step)%n + n) % n
		}
		return
	default:
		return
	}
	f.dirty = true
	f.err = ""
}

func (m Model) handleSubscriptionInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	f := &m.subForm
	switch {
	case key.Matches(msg, m.keys.Escape):
		f.editing = false
		f.input.Blur()
		return m, nil
	case key.Matches(msg, m.keys.Confirm):
		value := strings.TrimSpace(f.input.Value())
		if f.field == subFieldTarget {
			f.form.Target = value
			f.editing = false
			f.input.Blur()
			f.dirty = true
			f.err = ""
			if err := form.ValidateTarget(f.form.Platform, value); err != nil {
				f.err = err.Error()
			}
			return m, nil
		}
		if value == "" {
			f.editing = false
			f.input.Blur()
			return m, nil
		}
		if err := f.form.Keywords.Add(value); err != nil {
			f.err = err.Error()
			return m, nil
		}
		f.dirty = true
		f.err = ""
		f.input.SetValue("")
		if f.form.Keywords.Full() {
			f.editing = false
			f.input.Blur()
		}
		return m, nil
	}
	var cmd tea.Cmd
	f.input, cmd = f.input.Update(msg)
	return m, cmd
}

// saveSubscriptionCmd validates locally, then creates or updates.
func (m *Model) saveSubscriptionCmd() tea.Cmd {
	f := &m.subForm
	if f.saving || m.subsCtl == nil {
		return nil
	}
	if err := f.form.Validate(); err != nil {
		f.err = err.Error()
		return nil
	}
	f.err = ""
	f.saving = true
	subs := m.subsCtl
	if m.subs.Subscription == nil {
		in := f.form.Create()
		return m.mutate(actionSave, func(ctx context.Context) state.Result { return subs.Create(ctx, in) })
	}
	in := f.form.Update()
	return m.mutate(actionSave, func(ctx context.Context) state.Result { return subs.Update(ctx, in) })
}

func (m Model) renderSubscription(height int) string {
	f := m.subForm
	styles := m.theme.Styles()

	title := "New subscription"
	if m.subs.Subscription != nil {
		title = "Subscription · " + titleCase(subscriptionStatus(m.subs.Subscription))
	}

	target := f.form.Target
	if target == "" {
		target = styles.FaintText.Render(targetPlaceholder(f.form.Platform))
	}
	if f.editing && f.field == subFieldTarget {
		target = f.input.View()
	}

	times := schedule.Times(f.form.Frequency, m.subs.FrequencyOptions)
	rows := []string{
		m.renderField("Platform", m.renderChoice(m.platformChoices(), f.form.Platform, platformLabel), f.field == subFieldPlatform, "←/→"),
		m.renderField("Target", target, f.field == subFieldTarget, "enter to edit"),
		m.renderField("Keywords", m.renderKeywordList(f), f.field == subFieldKeywords, "a add · x remove"),
		m.renderField("Frequency", m.renderChoice(m.frequencyChoices(), f.form.Frequency, func(v string) string {
			return frequencyLabel(v, m.subs.FrequencyOptions)
		}), f.field == subFieldFrequency, schedule.Describe(times)),
		m.renderField("Language", m.renderChoice(m.languageChoices(), f.form.SummaryLanguage, asIs), f.field == subFieldLanguage, "←/→"),
		"",
	}
	if f.editing && f.field == subFieldKeywords {
		rows = append(rows, "  "+f.input.View())
	}
	switch {
	case f.saving:
		rows = append(rows, styles.MutedText.Render("Saving..."))
	case f.err != "":
		rows = append(rows, m.renderFormError(f.err))
	case m.subs.Error != "":
		rows = append(rows, m.renderFormError(m.subs.Error))
	case f.dirty:
		rows = append(rows, styles.WarningText.Render("Unsaved changes · ctrl+s to save"))
	}
	if m.subs.OptionsError != "" {
		rows = append(rows, styles.FaintText.Render("Using default push times: "+m.subs.OptionsError))
	}

	return m.formBox(title, rows, min(height, len(rows)+4))
}

func (m Model) renderKeywordList(f subFormState) string {
	styles := m.theme.Styles()
	values := f.form.Keywords.Values()
	if len(values) == 0 {
		return styles.FaintText.Render("none yet")
	}
	parts := make([]string, 0, len(values)+1)
	for i, kw := range values {
		style := lipgloss.NewStyle().Padding(0, 1).
			Background(lipgloss.Color(m.theme.SurfaceAlt)).
			Foreground(lipgloss.Color(m.theme.Text))
		if f.field == subFieldKeywords && i == f.kwCursor {
			style = styles.Selected.Padding(0, 1)
		}
		parts = append(parts, style.Render(kw))
	}
	parts = append(parts, styles.FaintText.Render(fmt.Sprintf("%d/%d", len(values), api.MaxKeywords)))
	return strings.Join(parts, " ")
}
