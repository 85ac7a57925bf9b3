// Package router orchestrates in-app navigation: it consults the
// navigation guard for every request, keeps the platform history in sync,
// and invokes the render callback of the committed path.
//
// A Router is driven from a single goroutine. Every navigation, including
// its redirects, completes before Navigate returns, so there is never more
// than one navigation in flight and no locking is needed.
package router

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jmcleod/eventdesk/dialog"
	"github.com/jmcleod/eventdesk/guard"
	"github.com/jmcleod/eventdesk/route"
	"github.com/jmcleod/eventdesk/session"
)

// DefaultMaxRedirects bounds the redirect chain of one navigation.
const DefaultMaxRedirects = 8

// ErrRedirectLoop is logged when a navigation exceeds its redirect budget.
var ErrRedirectLoop = errors.New("navigation redirect limit exceeded")

// History is the platform's address bar and back/forward stack.
type History interface {
	// Push adds path as a new entry and makes it current.
	Push(path string)
	// Replace overwrites the current entry with path.
	Replace(path string)
	// Location returns the current entry.
	Location() string
	// Subscribe registers fn to run after the user moves back or forward.
	// The returned function removes the subscription.
	Subscribe(fn func(path string)) (cancel func())
}

// SessionReader is the read side of the session store.
type SessionReader interface {
	Read() (session.Session, bool)
}

// Outcome describes one step of a navigation.
type Outcome string

const (
	OutcomeCommitted  Outcome = "committed"
	OutcomeRedirected Outcome = "redirected"
	OutcomeDenied     Outcome = "denied"
	OutcomeFallback   Outcome = "fallback"
	OutcomeAbandoned  Outcome = "abandoned"
)

// ObserverFunc is notified of every navigation step.
type ObserverFunc func(path string, outcome Outcome)

// Router maps paths to views and gates them on the current session.
type Router struct {
	routes       *route.Table
	sessions     SessionReader
	history      History
	policy       guard.Policy
	dialog       dialog.Dialog
	logger       *slog.Logger
	observe      ObserverFunc
	maxRedirects int

	current     string
	unsubscribe func()
}

// Option configures a Router.
type Option func(*Router)

// WithPolicy replaces guard.DefaultPolicy.
func WithPolicy(p guard.Policy) Option {
	return func(r *Router) {
		r.policy = p
	}
}

// WithDialog sets where denial messages are surfaced.
func WithDialog(d dialog.Dialog) Option {
	return func(r *Router) {
		r.dialog = d
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) {
		r.logger = logger
	}
}

// WithMaxRedirects bounds how many redirects one navigation may follow.
func WithMaxRedirects(n int) Option {
	return func(r *Router) {
		if n > 0 {
			r.maxRedirects = n
		}
	}
}

// WithObserver registers a callback for every navigation step.
func WithObserver(fn ObserverFunc) Option {
	return func(r *Router) {
		r.observe = fn
	}
}

// WithRoutes uses an existing route table instead of an empty one.
func WithRoutes(t *route.Table) Option {
	return func(r *Router) {
		r.routes = t
	}
}

// New creates a Router and subscribes it to history's back/forward signal.
// It fails if the policy's redirect targets are not terminal.
func New(sessions SessionReader, history History, opts ...Option) (*Router, error) {
	r := &Router{
		sessions:     sessions,
		history:      history,
		policy:       guard.DefaultPolicy(),
		dialog:       dialog.NewStatic(false, nil),
		logger:       slog.Default(),
		observe:      func(string, Outcome) {},
		maxRedirects: DefaultMaxRedirects,
	}
	for _, opt := range opts {
		opt(r)
	}
	if err := r.policy.Validate(); err != nil {
		return nil, err
	}
	r.logger = r.logger.With("component", "router")
	if r.routes == nil {
		r.routes = route.NewTable(r.logger)
	}
	r.unsubscribe = history.Subscribe(func(path string) {
		r.navigate(context.Background(), path, true)
	})
	return r, nil
}

// Close removes the back/forward subscription.
func (r *Router) Close() {
	if r.unsubscribe != nil {
		r.unsubscribe()
		r.unsubscribe = nil
	}
}

// Register associates a render callback with an exact path.
func (r *Router) Register(path string, fn route.RenderFunc) {
	r.routes.Register(path, fn)
}

// Routes returns the registered paths.
func (r *Router) Routes() []string {
	return r.routes.Paths()
}

// Policy returns the navigation policy in force.
func (r *Router) Policy() guard.Policy {
	return r.policy
}

// Current returns the last committed path, or "" before the first commit.
func (r *Router) Current() string {
	return r.current
}

// Navigate is the sole entry point for changing the visible view. It never
// fails: every request ends in a committed view, or, if the redirect budget
// is exhausted, in a logged error with the current view left as it was.
func (r *Router) Navigate(ctx context.Context, path string) {
	r.navigate(ctx, path, false)
}

func (r *Router) navigate(ctx context.Context, requested string, popped bool) {
	target := requested
	for hop := 0; hop <= r.maxRedirects; hop++ {
		// Read on every hop: a render callback or an earlier hop may have
		// changed the session.
		var current *session.Session
		if s, ok := r.sessions.Read(); ok {
			current = &s
		}

		d := r.policy.Decide(target, current)
		switch d.Kind {
		case guard.Redirect:
			r.logger.Debug("navigation redirected",
				slog.String("from", target),
				slog.String("to", d.Path))
			r.observe(target, OutcomeRedirected)
			target = d.Path
			continue
		case guard.Deny:
			r.logger.Info("navigation denied",
				slog.String("path", target),
				slog.String("to", d.Path))
			r.observe(target, OutcomeDenied)
			r.dialog.Alert(ctx, dialog.LevelError, d.Message)
			target = d.Path
			continue
		}

		render, ok := r.routes.Resolve(target)
		if !ok {
			r.logger.Warn("no view registered, falling back to login",
				slog.String("path", target))
			r.observe(target, OutcomeFallback)
			target = r.policy.LoginPath
			continue
		}

		r.commit(requested, target, popped)
		r.observe(target, OutcomeCommitted)
		render(ctx)
		return
	}

	// A popped navigation already moved the history; put the address back
	// on the view that is still showing.
	if popped && r.current != "" {
		r.history.Replace(r.current)
	}
	r.observe(requested, OutcomeAbandoned)
	r.logger.Error("navigation abandoned",
		slog.String("path", requested),
		slog.String("last_target", target),
		slog.Int("max_redirects", r.maxRedirects),
		"error", ErrRedirectLoop)
}

// commit makes target the visible address. A back/forward navigation has
// already moved the history, so it only rewrites the entry if a redirect
// landed somewhere else.
func (r *Router) commit(requested, target string, popped bool) {
	switch {
	case popped && target == requested:
	case popped:
		r.history.Replace(target)
	case r.history.Location() != target:
		r.history.Push(target)
	}
	r.current = target
	r.logger.Debug("navigation committed", slog.String("path", target))
}
