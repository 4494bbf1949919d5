package state

import (
	"strings"

	"github.com/five82/digest/internal/api"
)

// Level classifies a user notification.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelError
)

// Notifier shows transient messages to the user.
type Notifier interface {
	Notify(level Level, message string)
}

// NotifyFunc adapts a function to Notifier.
type NotifyFunc func(level Level, message string)

func (f NotifyFunc) Notify(level Level, message string) { f(level, message) }

type nopNotifier struct{}

func (nopNotifier) Notify(Level, string) {}

func orNop(n Notifier) Notifier {
	if n == nil {
		return nopNotifier{}
	}
	return n
}

// quietFailure reports whether err should stay out of notifications: missing
// resources and network errors during cold starts are expected and noisy.
func quietFailure(err error) bool {
	return api.IsNotFound(err) || strings.Contains(api.MessageOf(err), api.NetworkErrorPrefix)
}
