// Package backend is the development REST backend for eventdesk: accounts,
// events and registrations over a storage.Repository.
package backend

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-openapi/runtime/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jmcleod/eventdesk/internal/util"
	"github.com/jmcleod/eventdesk/internal/validate"
	"github.com/jmcleod/eventdesk/model"
	"github.com/jmcleod/eventdesk/session"
	"github.com/jmcleod/eventdesk/storage"
)

// API holds the dependencies needed by the REST handlers.
type API struct {
	store       *store
	audit       *auditLogger
	metrics     *metrics
	registry    *prometheus.Registry
	alertFn     AlertFunc
	kdf         util.Argon2idParams
	now         func() time.Time
	docsBaseURL string
}

//go:embed openapi.yaml
var openapiSpec []byte

// Option configures the API instance.
type Option func(*API)

// WithLogger sets the structured logger for audit events.
// If not set, a default JSON logger writing to stderr is used.
func WithLogger(logger *slog.Logger) Option {
	return func(a *API) {
		a.audit = newAuditLogger(logger)
	}
}

// WithRegistry sets the prometheus registry metrics are registered with and
// served from. By default each API gets its own registry.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(a *API) {
		a.registry = registry
	}
}

// WithAlertFunc sets the callback for login failure spikes.
func WithAlertFunc(fn AlertFunc) Option {
	return func(a *API) {
		a.alertFn = fn
	}
}

// WithPasswordParams overrides the argon2id parameters for new passwords.
func WithPasswordParams(p util.Argon2idParams) Option {
	return func(a *API) {
		a.kdf = p
	}
}

// WithClock overrides the clock used for timestamps and date validation.
func WithClock(now func() time.Time) Option {
	return func(a *API) {
		a.now = now
	}
}

// WithDocsBaseURL sets the prefix the API is mounted under, so the docs
// page can find the OpenAPI document.
func WithDocsBaseURL(prefix string) Option {
	return func(a *API) {
		a.docsBaseURL = prefix
	}
}

// New creates a new API instance.
func New(repo storage.Repository, opts ...Option) (*API, error) {
	kdf, _ := util.Argon2idProfile(util.KDFProfileInteractive)
	a := &API{
		kdf: kdf,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if err := util.ValidateArgon2idParams(a.kdf); err != nil {
		return nil, fmt.Errorf("password parameters: %w", err)
	}
	if a.audit == nil {
		a.audit = newAuditLogger(slog.New(slog.NewJSONHandler(os.Stderr, nil)))
	}
	if a.registry == nil {
		a.registry = prometheus.NewRegistry()
	}
	a.metrics = newMetrics(a.registry, a.alertFn)
	a.audit.metrics = a.metrics
	a.store = &store{repo: repo, now: a.now}
	return a, nil
}

// Router returns a chi.Router with all API routes mounted.
func (a *API) Router() chi.Router {
	r := chi.NewRouter()
	if a.metrics != nil {
		r.Use(a.metrics.instrument)
	}
	r.Use(SecurityHeaders)

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(openapiSpec)
	})

	r.Handle("/docs*", middleware.SwaggerUI(middleware.SwaggerUIOpts{
		SpecURL: a.docsBaseURL + "/openapi.yaml",
		Path:    strings.TrimLeft(a.docsBaseURL+"/docs", "/"),
	}, nil))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	if a.metrics != nil {
		r.Handle("/metrics", a.metrics.handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(a.Identify)

		r.Post("/auth/login", a.Login)
		r.Post("/users", a.CreateUser)
		r.With(a.RequireUser).Get("/users/{userID}", a.GetUser)
		r.With(a.RequireUser).Get("/users/{userID}/events", a.ListUserEvents)

		r.Get("/events", a.ListEvents)
		r.With(a.RequireAdmin).Post("/events", a.CreateEvent)
		r.Route("/events/{eventID}", func(r chi.Router) {
			r.Get("/", a.GetEvent)
			r.With(a.RequireAdmin).Put("/", a.UpdateEvent)
			r.With(a.RequireAdmin).Delete("/", a.DeleteEvent)
			r.With(a.RequireUser).Post("/registrations", a.RegisterForEvent)
			r.With(a.RequireUser).Delete("/registrations/{userID}", a.UnregisterFromEvent)
		})
	})

	return r
}

// EnsureAdmin creates an administrator account unless one with email
// already exists. It reports whether an account was created.
func (a *API) EnsureAdmin(fullName, email, password string) (bool, error) {
	email = validate.NormalizeEmail(email)
	req := model.CreateUserRequest{FullName: fullName, Email: email, Password: password}
	if err := validateNewUser(req); err != nil {
		return false, fmt.Errorf("bootstrap admin: %w", err)
	}
	if _, err := a.store.userByEmail(email); err == nil {
		return false, nil
	} else if !errors.Is(err, ErrUserNotFound) {
		return false, fmt.Errorf("looking up admin: %w", err)
	}
	hash, err := util.HashPassword(password, a.kdf)
	if err != nil {
		return false, fmt.Errorf("hashing admin password: %w", err)
	}
	u, err := a.store.createUser(req, session.RoleAdmin, hash)
	if err != nil {
		return false, fmt.Errorf("creating admin: %w", err)
	}
	a.audit.logEvent(AuditAdminBootstrapped, nil, u.ID, slog.String("email", u.Email))
	return true, nil
}
