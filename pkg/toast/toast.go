// Package toast is a single-slot notification channel for interactive clients.
package toast

import (
	"strings"
	"sync"
)

// Severity tags a toast for rendering.
type Severity string

const (
	Success Severity = "success"
	Error   Severity = "error"
	Info    Severity = "info"
	Warning Severity = "warning"
)

// Valid reports whether the severity is one of the known tags.
func (s Severity) Valid() bool {
	switch s {
	case Success, Error, Info, Warning:
		return true
	default:
		return false
	}
}

// Toast is the content of the slot.
type Toast struct {
	Message  string
	Severity Severity
	Visible  bool
}

// Notifier holds at most one toast. Showing a new toast replaces the current one; nothing is queued.
type Notifier struct {
	mu       sync.RWMutex
	current  Toast
	onChange func(Toast)
}

// Option customises a Notifier.
type Option func(*Notifier)

// WithRenderer registers a callback invoked after every change with the new slot contents.
func WithRenderer(fn func(Toast)) Option {
	return func(n *Notifier) {
		n.onChange = fn
	}
}

// NewNotifier constructs an empty notifier.
func NewNotifier(opts ...Option) *Notifier {
	n := &Notifier{}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Show makes message the visible toast. Unknown severities render as info.
func (n *Notifier) Show(message string, severity Severity) {
	if !severity.Valid() {
		severity = Info
	}

	n.mu.Lock()
	n.current = Toast{
		Message:  strings.TrimSpace(message),
		Severity: severity,
		Visible:  true,
	}
	current := n.current
	n.mu.Unlock()

	n.notify(current)
}

// Dismiss hides the current toast. The message is kept so a fading UI can still render it.
func (n *Notifier) Dismiss() {
	n.mu.Lock()
	if !n.current.Visible {
		n.mu.Unlock()
		return
	}
	n.current.Visible = false
	current := n.current
	n.mu.Unlock()

	n.notify(current)
}

// Current returns a copy of the slot.
func (n *Notifier) Current() Toast {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.current
}

func (n *Notifier) notify(t Toast) {
	if n.onChange != nil {
		n.onChange(t)
	}
}
