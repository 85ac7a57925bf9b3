package dialog

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

var levelStyles = map[Level]lipgloss.Style{
	LevelInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
	LevelSuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
	LevelWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
	LevelError:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
}

// Prompt is a terminal Dialog. Alerts are printed as styled notifications;
// confirmations run a huh form on a separate goroutine.
type Prompt struct {
	in         *LineReader
	out        io.Writer
	accessible bool

	// forms share the terminal, so only one runs at a time.
	mu sync.Mutex
}

var _ Dialog = (*Prompt)(nil)

// PromptOption configures a Prompt.
type PromptOption func(*Prompt)

// WithAccessible switches huh to its line-based accessible mode, which
// reads plain lines from the input instead of driving a full-screen form.
func WithAccessible(on bool) PromptOption {
	return func(p *Prompt) {
		p.accessible = on
	}
}

// NewPrompt creates a terminal dialog reading from in and writing to out.
// Pass the same LineReader to anything else reading in.
func NewPrompt(in io.Reader, out io.Writer, opts ...PromptOption) *Prompt {
	p := &Prompt{in: NewLineReader(in), out: out}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Prompt) Alert(_ context.Context, level Level, message string) <-chan struct{} {
	style, ok := levelStyles[level]
	if !ok {
		style = levelStyles[LevelInfo]
	}
	fmt.Fprintln(p.out, style.Render(fmt.Sprintf("[%s] %s", level, message)))
	return closedSignal()
}

func (p *Prompt) Confirm(ctx context.Context, message string) <-chan bool {
	if ctx.Err() != nil {
		return answer(false)
	}
	result := make(chan bool, 1)
	go func() {
		p.mu.Lock()
		defer p.mu.Unlock()

		var confirmed bool
		form := huh.NewForm(huh.NewGroup(
			huh.NewConfirm().
				Title(message).
				Affirmative("Yes").
				Negative("No").
				Value(&confirmed),
		)).
			WithInput(p.input(false)).
			WithOutput(p.out).
			WithAccessible(p.accessible)

		if err := form.RunWithContext(ctx); err != nil {
			result <- false
			return
		}
		result <- confirmed
	}()
	return result
}

// Input asks for a single line of text. When secret is set the input is
// masked.
func (p *Prompt) Input(ctx context.Context, title string, secret bool) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var value string
	field := huh.NewInput().Title(title).Value(&value)
	_, tty := p.in.Terminal()
	// accessible mode can only mask a password typed on a terminal
	if secret && (tty || !p.accessible) {
		field = field.EchoMode(huh.EchoModePassword)
	}
	form := huh.NewForm(huh.NewGroup(field)).
		WithInput(p.input(secret)).
		WithOutput(p.out).
		WithAccessible(p.accessible)
	if err := form.RunWithContext(ctx); err != nil {
		return "", fmt.Errorf("prompt failed: %w", err)
	}
	return value, nil
}

// input picks what huh reads from. Full-screen forms need the raw terminal;
// accessible forms read line by line, except masked passwords which read
// the terminal fd directly.
func (p *Prompt) input(secret bool) io.Reader {
	if !p.accessible {
		return p.in.Source()
	}
	if fd, ok := p.in.Terminal(); ok && secret {
		return ttyLines{LineReader: p.in, fd: fd}
	}
	return p.in
}
