package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/digest/internal/api"
	"github.com/five82/digest/internal/form"
	"github.com/five82/digest/internal/schedule"
)

// Delivery rows shared by quick setup and the guidance finalize step.
const (
	deliveryPlatform = iota
	deliveryTarget
	deliveryFrequency
	deliveryLanguage
	deliveryFieldCount
)

// deliveryForm collects where and how often digests are sent.
type deliveryForm struct {
	platform  string
	target    string
	frequency string
	language  string

	field   int
	editing bool
	input   textinput.Model
}

func newDeliveryForm() deliveryForm {
	return deliveryForm{
		platform:  api.PlatformEmail,
		frequency: api.FrequencyDaily,
		language:  api.DefaultSummaryLanguage,
		input:     newInput(""),
	}
}

// cycle steps the focused choice row. Text rows are left alone.
func (d *deliveryForm) cycle(m Model, step int) {
	switch d.field {
	case deliveryPlatform:
		d.platform = cycle(m.platformChoices(), d.platform, step)
	case deliveryFrequency:
		d.frequency = cycle(m.frequencyChoices(), d.frequency, step)
	case deliveryLanguage:
		d.language = cycle(m.languageChoices(), d.language, step)
	}
}

// edit opens the target input when the target row is focused.
func (d *deliveryForm) edit() tea.Cmd {
	if d.field != deliveryTarget {
		return nil
	}
	d.input = newInput(targetPlaceholder(d.platform))
	d.input.SetValue(d.target)
	d.editing = true
	return d.input.Focus()
}

// handleInput feeds msg to the open target input. It returns the validation
// error of a committed value, if any.
func (d *deliveryForm) handleInput(msg tea.KeyMsg, keys keyMap) (tea.Cmd, error) {
	switch {
	case key.Matches(msg, keys.Escape):
		d.editing = false
		d.input.Blur()
		return nil, nil
	case key.Matches(msg, keys.Confirm):
		d.target = strings.TrimSpace(d.input.Value())
		d.editing = false
		d.input.Blur()
		return nil, form.ValidateTarget(d.platform, d.target)
	}
	var cmd tea.Cmd
	d.input, cmd = d.input.Update(msg)
	return cmd, nil
}

// rows renders the delivery fields. focused is false while another part of
// the screen owns the cursor.
func (d deliveryForm) rows(m Model, focused bool) []string {
	styles := m.theme.Styles()
	target := d.target
	if target == "" {
		target = styles.FaintText.Render(targetPlaceholder(d.platform))
	}
	if d.editing {
		target = d.input.View()
	}
	on := func(field int) bool { return focused && d.field == field }
	times := schedule.Times(d.frequency, m.subs.FrequencyOptions)
	return []string{
		m.renderField("Platform", m.renderChoice(m.platformChoices(), d.platform, platformLabel), on(deliveryPlatform), "←/→"),
		m.renderField("Target", target, on(deliveryTarget), "enter to edit"),
		m.renderField("Frequency", m.renderChoice(m.frequencyChoices(), d.frequency, func(v string) string {
			return frequencyLabel(v, m.subs.FrequencyOptions)
		}), on(deliveryFrequency), schedule.Describe(times)),
		m.renderField("Language", m.renderChoice(m.languageChoices(), d.language, asIs), on(deliveryLanguage), "←/→"),
	}
}
