package dialog

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// Message is an alert recorded by Static.
type Message struct {
	Level Level
	Text  string
}

// Static answers every confirmation with a fixed value and records what it
// was shown. It backs non-interactive runs (--yes) and tests.
type Static struct {
	mu       sync.Mutex
	answer   bool
	out      io.Writer
	alerts   []Message
	confirms []string
}

var _ Dialog = (*Static)(nil)

// NewStatic returns a Static that answers confirmations with yes. A non-nil
// out receives one line per alert.
func NewStatic(yes bool, out io.Writer) *Static {
	return &Static{answer: yes, out: out}
}

func (s *Static) Alert(_ context.Context, level Level, message string) <-chan struct{} {
	s.mu.Lock()
	s.alerts = append(s.alerts, Message{Level: level, Text: message})
	s.mu.Unlock()
	if s.out != nil {
		fmt.Fprintf(s.out, "[%s] %s\n", level, message)
	}
	return closedSignal()
}

func (s *Static) Confirm(ctx context.Context, message string) <-chan bool {
	s.mu.Lock()
	s.confirms = append(s.confirms, message)
	yes := s.answer
	s.mu.Unlock()
	if ctx.Err() != nil {
		return answer(false)
	}
	return answer(yes)
}

// Alerts returns the alerts shown so far.
func (s *Static) Alerts() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.alerts...)
}

// Confirms returns the questions asked so far.
func (s *Static) Confirms() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.confirms...)
}

// SetAnswer changes the answer given to later confirmations.
func (s *Static) SetAnswer(yes bool) {
	s.mu.Lock()
	s.answer = yes
	s.mu.Unlock()
}
