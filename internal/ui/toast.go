package ui

import (
	"log"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/digest/internal/state"
)

const (
	toastBuffer  = 32
	maxToasts    = 3
	toastMaxWide = 60
)

// Toaster is the state.Notifier the controllers report to. Notifications are
// queued on a channel and drained by the Bubble Tea program, so controllers
// may call Notify from any goroutine.
type Toaster struct {
	ch chan toast
}

type toast struct {
	level   state.Level
	message string
	expires time.Time
}

// NewToaster returns a notifier with a bounded queue.
func NewToaster() *Toaster {
	return &Toaster{ch: make(chan toast, toastBuffer)}
}

// Notify queues a message. When the queue is full the message is logged and dropped.
func (t *Toaster) Notify(level state.Level, message string) {
	if t == nil {
		return
	}
	select {
	case t.ch <- toast{level: level, message: message}:
	default:
		log.Printf("[WARN] notification dropped: %s", message)
	}
}

type toastMsg toast

// waitToastCmd blocks until the next notification arrives.
func waitToastCmd(t *Toaster) tea.Cmd {
	if t == nil {
		return nil
	}
	return func() tea.Msg {
		return toastMsg(<-t.ch)
	}
}

// pushToast appends tt, stamping its expiry and keeping the newest maxToasts.
func pushToast(list []toast, tt toast, now time.Time) []toast {
	tt.expires = now.Add(ToastTTL)
	list = append(list, tt)
	if len(list) > maxToasts {
		list = list[len(list)-maxToasts:]
	}
	return list
}

// pruneToasts drops expired notifications.
func pruneToasts(list []toast, now time.Time) []toast {
	kept := list[:0]
	for _, tt := range list {
		if now.Before(tt.expires) {
			kept = append(kept, tt)
		}
	}
	return kept
}

// renderToasts stacks notifications, newest last.
func (m Model) renderToasts() string {
	if len(m.toasts) == 0 {
		return ""
	}
	lines := make([]string, 0, len(m.toasts))
	for _, tt := range m.toasts {
		color := m.theme.Info
		icon := "i"
		switch tt.level {
		case state.LevelSuccess:
			color, icon = m.theme.Success, "✓"
		case state.LevelError:
			color, icon = m.theme.Danger, "✗"
		}
		style := lipgloss.NewStyle().
			Background(lipgloss.Color(m.theme.Surface)).
			Foreground(lipgloss.Color(color)).
			Padding(0, 1)
		lines = append(lines, style.Render(icon+" "+truncate(tt.message, toastMaxWide)))
	}
	return lipgloss.JoinVertical(lipgloss.Right, lines...)
}
