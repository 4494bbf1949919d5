package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the application.
type keyMap struct {
	// Global
	Quit       key.Binding
	Help       key.Binding
	CycleTheme key.Binding
	Tab        key.Binding
	ShiftTab   key.Binding
	Escape     key.Binding
	Refresh    key.Binding
	SignOut    key.Binding

	// Screen switching
	ViewDashboard    key.Binding
	ViewSubscription key.Binding
	ViewHistory      key.Binding
	ViewQuickSetup   key.Binding
	ViewGuidance     key.Binding
	ViewLogs         key.Binding

	// Navigation
	Up       key.Binding
	Down     key.Binding
	Left     key.Binding
	Right    key.Binding
	Top      key.Binding
	Bottom   key.Binding
	PageUp   key.Binding
	PageDown key.Binding

	// Subscription actions
	TogglePush key.Binding
	Save       key.Binding
	Delete     key.Binding
	AddKeyword key.Binding
	DropItem   key.Binding

	// History
	LoadMore key.Binding

	// Guidance
	Select key.Binding
	Back   key.Binding

	// Logs
	ToggleFollow key.Binding
	Search       key.Binding
	NextMatch    key.Binding
	PrevMatch    key.Binding

	// Input
	Confirm key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "e"),
			key.WithHelp("e", "Quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "Toggle help"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "Cycle theme"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "Next screen"),
		),
		ShiftTab: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "Previous screen"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "Back to dashboard"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "Refresh"),
		),
		SignOut: key.NewBinding(
			key.WithKeys("X"),
			key.WithHelp("X", "Sign out"),
		),

		ViewDashboard: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "Dashboard"),
		),
		ViewSubscription: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "Subscription"),
		),
		ViewHistory: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "History"),
		),
		ViewQuickSetup: key.NewBinding(
			key.WithKeys("4"),
			key.WithHelp("4", "Quick setup"),
		),
		ViewGuidance: key.NewBinding(
			key.WithKeys("5"),
			key.WithHelp("5", "Guidance"),
		),
		ViewLogs: key.NewBinding(
			key.WithKeys("6", "l"),
			key.WithHelp("6/l", "Logs"),
		),

		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "Move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "Move down"),
		),
		Left: key.NewBinding(
			key.WithKeys("left"),
			key.WithHelp("left", "Previous choice"),
		),
		Right: key.NewBinding(
			key.WithKeys("right"),
			key.WithHelp("right", "Next choice"),
		),
		Top: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "Go to top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "Go to bottom"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup", "ctrl+u"),
			key.WithHelp("pgup", "Page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown", "ctrl+d"),
			key.WithHelp("pgdown", "Page down"),
		),

		TogglePush: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "Pause/resume delivery"),
		),
		Save: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "Save"),
		),
		Delete: key.NewBinding(
			key.WithKeys("D"),
			key.WithHelp("D", "Delete subscription"),
		),
		AddKeyword: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "Add keyword"),
		),
		DropItem: key.NewBinding(
			key.WithKeys("x", "backspace"),
			key.WithHelp("x", "Remove keyword"),
		),

		LoadMore: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "Load more"),
		),

		Select: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("Space", "Select"),
		),
		Back: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "Previous step"),
		),

		ToggleFollow: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "Toggle follow mode"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "Search logs"),
		),
		NextMatch: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "Next match"),
		),
		PrevMatch: key.NewBinding(
			key.WithKeys("N"),
			key.WithHelp("N", "Previous match"),
		),

		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Confirm"),
		),
	}
}

// ShortHelp returns key bindings for the short help view.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab, k.ViewDashboard, k.ViewSubscription, k.ViewHistory, k.ViewQuickSetup, k.ViewGuidance, k.ViewLogs},
		{k.Up, k.Down, k.Top, k.Bottom, k.PageUp, k.PageDown},
		{k.TogglePush, k.Save, k.Delete, k.AddKeyword, k.DropItem},
		{k.LoadMore, k.Select, k.Back},
		{k.ToggleFollow, k.Search, k.NextMatch, k.PrevMatch},
		{k.Refresh, k.CycleTheme, k.SignOut, k.Help, k.Quit},
	}
}
