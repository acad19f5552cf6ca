// Package notify is the fire-and-forget notification surface used for
// welcome, logout and error messages.
package notify

import (
	"sync"
	"time"
)

type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
	SeverityInfo    Severity = "info"
	SeverityLoading Severity = "loading"
)

type Options struct {
	Severity Severity
	Duration time.Duration
}

// Notifier never blocks on acknowledgment and never reports failure
type Notifier interface {
	Notify(message string, opts Options)
}

// Success and Error mirror the option sets used throughout the client
func Success(d time.Duration) Options { return Options{Severity: SeveritySuccess, Duration: d} }
func Error(d time.Duration) Options   { return Options{Severity: SeverityError, Duration: d} }
func Info(d time.Duration) Options    { return Options{Severity: SeverityInfo, Duration: d} }
func Loading(d time.Duration) Options { return Options{Severity: SeverityLoading, Duration: d} }

// Multi fans a notification out to every notifier
type Multi []Notifier

func (m Multi) Notify(message string, opts Options) {
	for _, n := range m {
		n.Notify(message, opts)
	}
}

// Notification is one recorded call
type Notification struct {
	Message string
	Options Options
}

// Recorder keeps every notification it receives
type Recorder struct {
	mu   sync.Mutex
	sent []Notification
}

func (r *Recorder) Notify(message string, opts Options) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, Notification{Message: message, Options: opts})
}

func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.sent))
	copy(out, r.sent)
	return out
}

// BySeverity returns the recorded notifications with the given severity
func (r *Recorder) BySeverity(s Severity) []Notification {
	var out []Notification
	for _, n := range r.All() {
		if n.Options.Severity == s {
			out = append(out, n)
		}
	}
	return out
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = nil
}
