package backend

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jmcleod/eventdesk/internal/util"
	"github.com/jmcleod/eventdesk/internal/validate"
	"github.com/jmcleod/eventdesk/model"
	"github.com/jmcleod/eventdesk/session"
)

func validateNewUser(req model.CreateUserRequest) error {
	if err := validate.Required("full name", req.FullName); err != nil {
		return invalid(err)
	}
	if err := validate.Name(req.FullName); err != nil {
		return invalid(err)
	}
	if err := validate.Email(req.Email); err != nil {
		return invalid(err)
	}
	return invalid(validate.Password(req.Password))
}

func (a *API) validateEvent(in model.EventInput) error {
	for _, f := range []struct{ name, value string }{
		{"event name", in.Name},
		{"description", in.Description},
		{"location", in.Location},
		{"event date", in.Date},
	} {
		if err := validate.Required(f.name, f.value); err != nil {
			return invalid(err)
		}
	}
	day, err := time.Parse(model.DateLayout, in.Date)
	if err != nil {
		return invalid(errors.New("event date must be formatted as YYYY-MM-DD"))
	}
	if err := validate.EventDate(day, a.now().UTC()); err != nil {
		return invalid(err)
	}
	if !in.Category.Valid() {
		return invalid(errors.New("unknown event category"))
	}
	switch in.Status {
	case "", model.StatusActive, model.StatusCancelled:
	default:
		return invalid(errors.New("unknown event status"))
	}
	return invalid(validate.Capacity(in.MaxCapacity))
}

// selfOrAdmin reports whether the caller may act on behalf of userID.
func selfOrAdmin(r *http.Request, userID string) bool {
	u := callerFromContext(r.Context())
	return u != nil && (u.ID == userID || u.Role == session.RoleAdmin)
}

// Login handles POST /auth/login.
// Verifies the password and returns the account so the client can open a
// session for it.
func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[model.LoginRequest](w, r, maxBodySize)
	if !ok {
		return
	}
	if err := validate.Email(req.Email); err != nil {
		mapError(w, invalid(err))
		return
	}
	if err := validate.Required("password", req.Password); err != nil {
		mapError(w, invalid(err))
		return
	}

	email := validate.NormalizeEmail(req.Email)
	rec, err := a.store.userByEmail(email)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		mapError(w, err)
		return
	}
	match := false
	if err == nil {
		match, err = util.VerifyPassword(req.Password, rec.PasswordHash)
		if err != nil {
			mapError(w, err)
			return
		}
	}
	if !match {
		a.audit.logFailure(AuditLoginFailure, r, "invalid credentials", slog.String("email", email))
		mapError(w, ErrInvalidCredentials)
		return
	}

	a.audit.logEvent(AuditLoginSuccess, r, rec.ID)
	writeJSON(w, http.StatusOK, rec.User)
}

// CreateUser handles POST /users.
// Self-registration always produces a guest account.
func (a *API) CreateUser(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[model.CreateUserRequest](w, r, maxBodySize)
	if !ok {
		return
	}
	req.Email = validate.NormalizeEmail(req.Email)
	if err := validateNewUser(req); err != nil {
		mapError(w, err)
		return
	}

	hash, err := util.HashPassword(req.Password, a.kdf)
	if err != nil {
		mapError(w, err)
		return
	}
	u, err := a.store.createUser(req, session.RoleGuest, hash)
	if err != nil {
		mapError(w, err)
		return
	}

	a.audit.logEvent(AuditUserCreated, r, u.ID)
	writeJSON(w, http.StatusCreated, u)
}

// GetUser handles GET /users/{userID}.
func (a *API) GetUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if !selfOrAdmin(r, userID) {
		mapError(w, ErrForbidden)
		return
	}
	rec, err := a.store.user(userID)
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec.User)
}

// ListUserEvents handles GET /users/{userID}/events.
func (a *API) ListUserEvents(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if !selfOrAdmin(r, userID) {
		mapError(w, ErrForbidden)
		return
	}
	events, err := a.store.userEvents(userID)
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// ListEvents handles GET /events.
// An optional status query parameter filters the result; limit and offset
// page through it.
func (a *API) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := a.store.listEvents()
	if err != nil {
		mapError(w, err)
		return
	}
	if status := model.Status(r.URL.Query().Get("status")); status != "" {
		filtered := events[:0]
		for _, ev := range events {
			if ev.Status == status {
				filtered = append(filtered, ev)
			}
		}
		events = filtered
	}
	limit, offset := parsePagination(r)
	start, end, meta := paginateSlice(len(events), limit, offset)
	meta.setHeaders(w)
	writeJSON(w, http.StatusOK, events[start:end])
}

// GetEvent handles GET /events/{eventID}.
func (a *API) GetEvent(w http.ResponseWriter, r *http.Request) {
	ev, err := a.store.event(chi.URLParam(r, "eventID"))
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// CreateEvent handles POST /events.
func (a *API) CreateEvent(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeJSON[model.EventInput](w, r, maxBodySize)
	if !ok {
		return
	}
	if err := a.validateEvent(in); err != nil {
		mapError(w, err)
		return
	}
	caller := callerFromContext(r.Context())
	ev, err := a.store.createEvent(in, caller.ID)
	if err != nil {
		mapError(w, err)
		return
	}
	a.audit.logEvent(AuditEventCreated, r, caller.ID, slog.String("event_id", ev.ID))
	writeJSON(w, http.StatusCreated, ev)
}

// UpdateEvent handles PUT /events/{eventID}.
func (a *API) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeJSON[model.EventInput](w, r, maxBodySize)
	if !ok {
		return
	}
	if err := a.validateEvent(in); err != nil {
		mapError(w, err)
		return
	}
	eventID := chi.URLParam(r, "eventID")
	ev, err := a.store.updateEvent(eventID, in)
	if err != nil {
		mapError(w, err)
		return
	}
	a.audit.logEvent(AuditEventUpdated, r, callerFromContext(r.Context()).ID, slog.String("event_id", eventID))
	writeJSON(w, http.StatusOK, ev)
}

// DeleteEvent handles DELETE /events/{eventID}.
// Registrations for the event are removed with it.
func (a *API) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")
	if err := a.store.deleteEvent(eventID); err != nil {
		mapError(w, err)
		return
	}
	a.audit.logEvent(AuditEventDeleted, r, callerFromContext(r.Context()).ID, slog.String("event_id", eventID))
	w.WriteHeader(http.StatusNoContent)
}

// RegisterForEvent handles POST /events/{eventID}/registrations.
// Registers the caller.
func (a *API) RegisterForEvent(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")
	caller := callerFromContext(r.Context())
	reg, err := a.store.register(eventID, caller.ID)
	if err != nil {
		mapError(w, err)
		return
	}
	a.audit.logEvent(AuditRegistrationCreated, r, caller.ID, slog.String("event_id", eventID))
	writeJSON(w, http.StatusCreated, reg)
}

// UnregisterFromEvent handles DELETE /events/{eventID}/registrations/{userID}.
// Users may only remove themselves; admins may remove anyone.
func (a *API) UnregisterFromEvent(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")
	userID := chi.URLParam(r, "userID")
	if !selfOrAdmin(r, userID) {
		mapError(w, ErrForbidden)
		return
	}
	if err := a.store.unregister(eventID, userID); err != nil {
		mapError(w, err)
		return
	}
	a.audit.logEvent(AuditRegistrationDeleted, r, callerFromContext(r.Context()).ID,
		slog.String("event_id", eventID),
		slog.String("registrant_id", userID))
	w.WriteHeader(http.StatusNoContent)
}
