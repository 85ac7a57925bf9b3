// Package app wires the session store, history, router, views and backend
// client into the eventdesk terminal application and implements the user
// actions the shell dispatches.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jmcleod/eventdesk/dialog"
	"github.com/jmcleod/eventdesk/guard"
	"github.com/jmcleod/eventdesk/history"
	"github.com/jmcleod/eventdesk/model"
	"github.com/jmcleod/eventdesk/router"
	"github.com/jmcleod/eventdesk/session"
	"github.com/jmcleod/eventdesk/views"
)

// Backend is the subset of the REST client the application uses.
type Backend interface {
	views.Source
	Login(ctx context.Context, email, password string) (model.User, error)
	CreateUser(ctx context.Context, req model.CreateUserRequest) (model.User, error)
	GetEvent(ctx context.Context, eventID string) (model.Event, error)
	CreateEvent(ctx context.Context, in model.EventInput) (model.Event, error)
	UpdateEvent(ctx context.Context, eventID string, in model.EventInput) (model.Event, error)
	DeleteEvent(ctx context.Context, eventID string) error
	Register(ctx context.Context, eventID string) (model.Registration, error)
	Unregister(ctx context.Context, eventID string) error
}

// App is the running terminal application.
type App struct {
	sessions *session.Store
	history  *history.Memory
	router   *router.Router
	views    *views.Views
	backend  Backend
	dialog   dialog.Dialog
	logger   *slog.Logger
	metrics  *metrics
	now      func() time.Time

	registerer  prometheus.Registerer
	policy      guard.Policy
	maxHops     int
	viewOptions []views.Option
}

// Option configures an App.
type Option func(*App)

// WithLogger sets the logger shared by the application's components.
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) {
		a.logger = logger
	}
}

// WithRegisterer sets where navigation and action counters are registered.
// By default they go to a private registry.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(a *App) {
		a.registerer = reg
	}
}

// WithClock overrides the clock used for form checks and badges.
func WithClock(now func() time.Time) Option {
	return func(a *App) {
		a.now = now
	}
}

// WithPolicy overrides the navigation policy.
func WithPolicy(p guard.Policy) Option {
	return func(a *App) {
		a.policy = p
	}
}

// WithMaxRedirects bounds the redirect chain of one navigation.
func WithMaxRedirects(n int) Option {
	return func(a *App) {
		a.maxHops = n
	}
}

// WithViewOptions passes options through to the views.
func WithViewOptions(opts ...views.Option) Option {
	return func(a *App) {
		a.viewOptions = append(a.viewOptions, opts...)
	}
}

// New assembles an App rendering to out. The router subscribes to hist; call
// Close to release it.
func New(sessions *session.Store, hist *history.Memory, backend Backend, dlg dialog.Dialog, out io.Writer, opts ...Option) (*App, error) {
	a := &App{
		sessions: sessions,
		history:  hist,
		backend:  backend,
		dialog:   dlg,
		logger:   slog.Default(),
		policy:   guard.DefaultPolicy(),
		maxHops:  router.DefaultMaxRedirects,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.registerer == nil {
		a.registerer = prometheus.NewRegistry()
	}
	m, err := newMetrics(a.registerer)
	if err != nil {
		return nil, fmt.Errorf("registering metrics: %w", err)
	}
	a.metrics = m

	r, err := router.New(sessions, hist,
		router.WithPolicy(a.policy),
		router.WithDialog(dlg),
		router.WithLogger(a.logger),
		router.WithMaxRedirects(a.maxHops),
		router.WithObserver(a.metrics.observeNavigation),
	)
	if err != nil {
		return nil, err
	}
	a.router = r

	viewOpts := append([]views.Option{views.WithLogger(a.logger), views.WithClock(a.now)}, a.viewOptions...)
	a.views = views.New(out, backend, sessions, viewOpts...)
	a.views.RegisterAll(r)

	a.logger = a.logger.With("component", "app")
	return a, nil
}

// Close stops listening to history changes.
func (a *App) Close() {
	a.router.Close()
}

// Router exposes the application's router.
func (a *App) Router() *router.Router {
	return a.router
}

// Views exposes the application's views.
func (a *App) Views() *views.Views {
	return a.views
}

// Session returns the current session, if any.
func (a *App) Session() (session.Session, bool) {
	return a.sessions.Read()
}

// Boot shows the first view for the restored location. Signed-out users
// land on the login page unless they are already on login or register;
// signed-in users on login, register or the root land on their home.
func (a *App) Boot(ctx context.Context) {
	sess, ok := a.sessions.Read()
	path := a.history.Location()
	authOnly := path == a.policy.LoginPath || a.policy.IsAuthOnly(path)

	switch {
	case !ok && !authOnly:
		a.router.Navigate(ctx, a.policy.LoginPath)
	case ok && (authOnly || path == "/"):
		a.router.Navigate(ctx, a.policy.HomeFor(&sess))
	case path == "/":
		a.router.Navigate(ctx, a.policy.LoginPath)
	default:
		a.router.Navigate(ctx, path)
	}
}

// Open navigates to path.
func (a *App) Open(ctx context.Context, path string) {
	a.router.Navigate(ctx, path)
}

// Refresh re-renders the current view.
func (a *App) Refresh(ctx context.Context) {
	if cur := a.router.Current(); cur != "" {
		a.router.Navigate(ctx, cur)
	}
}

// Back moves one entry back in history. The router re-navigates to the
// restored path.
func (a *App) Back(ctx context.Context) {
	if !a.history.Back() {
		a.notify(ctx, dialog.LevelInfo, "No previous page")
	}
}

// Forward moves one entry forward in history.
func (a *App) Forward(ctx context.Context) {
	if !a.history.Forward() {
		a.notify(ctx, dialog.LevelInfo, "No next page")
	}
}

// Filter narrows the events page and shows it.
func (a *App) Filter(ctx context.Context, f views.Filter) {
	a.views.SetFilter(f)
	a.router.Navigate(ctx, views.PathEvents)
}

func (a *App) notify(ctx context.Context, level dialog.Level, msg string) {
	a.dialog.Alert(ctx, level, msg)
}

// confirm asks msg and waits for the answer. A cancelled context answers
// no.
func (a *App) confirm(ctx context.Context, msg string) bool {
	select {
	case yes := <-a.dialog.Confirm(ctx, msg):
		return yes
	case <-ctx.Done():
		return false
	}
}
