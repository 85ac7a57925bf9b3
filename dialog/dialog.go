// Package dialog provides non-blocking modal abstractions. Alerts and
// confirmations return immediately with a channel that completes when the
// user has responded, so callers decide whether to wait.
package dialog

import "context"

// Level classifies an alert.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Dialog shows messages and asks yes/no questions.
type Dialog interface {
	// Alert shows message. The returned channel is closed once the alert
	// has been acknowledged or dismissed.
	Alert(ctx context.Context, level Level, message string) <-chan struct{}
	// Confirm asks a yes/no question. The returned channel receives exactly
	// one answer; a cancelled context or failed prompt answers false.
	Confirm(ctx context.Context, message string) <-chan bool
}

func closedSignal() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

func answer(v bool) <-chan bool {
	ch := make(chan bool, 1)
	ch <- v
	return ch
}
