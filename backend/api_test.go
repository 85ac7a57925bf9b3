package backend_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/eventdesk/backend"
	"github.com/jmcleod/eventdesk/model"
	"github.com/jmcleod/eventdesk/session"
	"github.com/jmcleod/eventdesk/storage/memory"
)

var testNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

const (
	adminEmail    = "admin@example.com"
	adminPassword = "admin-password"
)

type harness struct {
	t     *testing.T
	srv   *httptest.Server
	api   *backend.API
	admin model.User
}

func setupServer(t *testing.T) *harness {
	t.Helper()
	a, err := backend.New(memory.NewRepository(),
		backend.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		backend.WithClock(func() time.Time { return testNow }),
		backend.WithDocsBaseURL("/api/v1"),
	)
	require.NoError(t, err)

	created, err := a.EnsureAdmin("Site Admin", adminEmail, adminPassword)
	require.NoError(t, err)
	require.True(t, created)

	r := chi.NewRouter()
	r.Mount("/api/v1", a.Router())
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	h := &harness{t: t, srv: srv, api: a}
	resp := h.do(http.MethodPost, "/auth/login", "", model.LoginRequest{Email: adminEmail, Password: adminPassword})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	h.decode(resp, &h.admin)
	return h
}

func (h *harness) do(method, path, userID string, body any) *http.Response {
	h.t.Helper()
	var reqBody bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&reqBody).Encode(body))
	}
	req, err := http.NewRequestWithContext(h.t.Context(), method, h.srv.URL+"/api/v1"+path, &reqBody)
	require.NoError(h.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set(backend.UserHeader, userID)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(h.t, err)
	h.t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (h *harness) decode(resp *http.Response, v any) {
	h.t.Helper()
	require.NoError(h.t, json.NewDecoder(resp.Body).Decode(v))
}

func (h *harness) errorOf(resp *http.Response) string {
	h.t.Helper()
	var e model.ErrorResponse
	h.decode(resp, &e)
	return e.Error
}

func (h *harness) signUp(name, email string) model.User {
	h.t.Helper()
	resp := h.do(http.MethodPost, "/users", "", model.CreateUserRequest{FullName: name, Email: email, Password: "secret1"})
	require.Equal(h.t, http.StatusCreated, resp.StatusCode)
	var u model.User
	h.decode(resp, &u)
	return u
}

func (h *harness) createEvent(capacity int) model.Event {
	h.t.Helper()
	resp := h.do(http.MethodPost, "/events", h.admin.ID, sampleEvent(capacity))
	require.Equal(h.t, http.StatusCreated, resp.StatusCode)
	var ev model.Event
	h.decode(resp, &ev)
	return ev
}

func sampleEvent(capacity int) model.EventInput {
	return model.EventInput{
		Name:        "Go Meetup",
		Description: "Talks and pizza",
		Date:        "2026-06-01",
		Category:    model.CategoryTechnology,
		Location:    "Berlin",
		MaxCapacity: capacity,
	}
}

func TestSignUpAndLogin(t *testing.T) {
	h := setupServer(t)

	u := h.signUp("Ada Lovelace", " Ada@Example.com ")
	assert.Equal(t, "ada@example.com", u.Email)
	assert.Equal(t, session.RoleGuest, u.Role)
	assert.NotEmpty(t, u.ID)

	resp := h.do(http.MethodPost, "/auth/login", "", model.LoginRequest{Email: "ada@example.com", Password: "secret1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got model.User
	h.decode(resp, &got)
	assert.Equal(t, u.ID, got.ID)

	resp = h.do(http.MethodPost, "/auth/login", "", model.LoginRequest{Email: "ada@example.com", Password: "wrong-one"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "invalid credentials", h.errorOf(resp))

	resp = h.do(http.MethodPost, "/auth/login", "", model.LoginRequest{Email: "nobody@example.com", Password: "secret1"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSignUpValidation(t *testing.T) {
	h := setupServer(t)

	tests := []struct {
		name string
		req  model.CreateUserRequest
		want string
	}{
		{"MissingName", model.CreateUserRequest{Email: "a@example.com", Password: "secret1"}, "full name is required"},
		{"ShortName", model.CreateUserRequest{FullName: "A", Email: "a@example.com", Password: "secret1"}, "full name must be at least 2 characters"},
		{"BadEmail", model.CreateUserRequest{FullName: "Ada", Email: "nope", Password: "secret1"}, "invalid email format"},
		{"ShortPassword", model.CreateUserRequest{FullName: "Ada", Email: "a@example.com", Password: "12345"}, "password must be at least 6 characters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := h.do(http.MethodPost, "/users", "", tt.req)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, tt.want, h.errorOf(resp))
		})
	}

	h.signUp("Ada", "ada@example.com")
	resp := h.do(http.MethodPost, "/users", "", model.CreateUserRequest{FullName: "Ada", Email: "ADA@example.com", Password: "secret1"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "email already registered", h.errorOf(resp))
}

func TestUnknownFieldsRejected(t *testing.T) {
	h := setupServer(t)
	resp := h.do(http.MethodPost, "/users", "", map[string]string{
		"fullName": "Mallory", "email": "m@example.com", "password": "secret1", "role": "admin",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestEventCRUD(t *testing.T) {
	h := setupServer(t)
	ev := h.createEvent(50)
	assert.Equal(t, model.StatusActive, ev.Status)
	assert.Equal(t, h.admin.ID, ev.CreatedBy)
	assert.Zero(t, ev.CurrentAttendees)

	resp := h.do(http.MethodGet, "/events/"+ev.ID, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	in := sampleEvent(80)
	in.Name = "Go Meetup XL"
	resp = h.do(http.MethodPut, "/events/"+ev.ID, h.admin.ID, in)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var updated model.Event
	h.decode(resp, &updated)
	assert.Equal(t, "Go Meetup XL", updated.Name)
	assert.Equal(t, 80, updated.MaxCapacity)
	assert.Equal(t, testNow, updated.UpdatedAt)

	resp = h.do(http.MethodGet, "/events", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get("X-Total-Count"))
	var list []model.Event
	h.decode(resp, &list)
	require.Len(t, list, 1)
	assert.Equal(t, ev.ID, list[0].ID)

	resp = h.do(http.MethodDelete, "/events/"+ev.ID, h.admin.ID, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = h.do(http.MethodGet, "/events/"+ev.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "event not found", h.errorOf(resp))
}

func TestEventValidation(t *testing.T) {
	h := setupServer(t)

	past := sampleEvent(10)
	past.Date = "2026-04-30"
	resp := h.do(http.MethodPost, "/events", h.admin.ID, past)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "event date must be today or later", h.errorOf(resp))

	today := sampleEvent(10)
	today.Date = "2026-05-01"
	resp = h.do(http.MethodPost, "/events", h.admin.ID, today)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	tooBig := sampleEvent(10001)
	resp = h.do(http.MethodPost, "/events", h.admin.ID, tooBig)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	badCategory := sampleEvent(10)
	badCategory.Category = "party"
	resp = h.do(http.MethodPost, "/events", h.admin.ID, badCategory)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAdminOnlyMutations(t *testing.T) {
	h := setupServer(t)
	guest := h.signUp("Grace", "grace@example.com")
	ev := h.createEvent(10)

	resp := h.do(http.MethodPost, "/events", "", sampleEvent(10))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = h.do(http.MethodPost, "/events", guest.ID, sampleEvent(10))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "admin privileges required", h.errorOf(resp))

	resp = h.do(http.MethodPut, "/events/"+ev.ID, guest.ID, sampleEvent(10))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = h.do(http.MethodDelete, "/events/"+ev.ID, guest.ID, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = h.do(http.MethodGet, "/events", "not-a-user", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "unknown user", h.errorOf(resp))
}

func TestRegistrationLifecycle(t *testing.T) {
	h := setupServer(t)
	ada := h.signUp("Ada", "ada@example.com")
	grace := h.signUp("Grace", "grace@example.com")
	ev := h.createEvent(1)

	resp := h.do(http.MethodPost, "/events/"+ev.ID+"/registrations", ada.ID, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var reg model.Registration
	h.decode(resp, &reg)
	assert.Equal(t, ada.ID, reg.UserID)

	resp = h.do(http.MethodPost, "/events/"+ev.ID+"/registrations", ada.ID, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "already registered for this event", h.errorOf(resp))

	resp = h.do(http.MethodPost, "/events/"+ev.ID+"/registrations", grace.ID, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "event is at full capacity", h.errorOf(resp))

	resp = h.do(http.MethodGet, "/users/"+ada.ID+"/events", ada.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var mine []model.Event
	h.decode(resp, &mine)
	require.Len(t, mine, 1)
	assert.Equal(t, 1, mine[0].CurrentAttendees)

	resp = h.do(http.MethodGet, "/users/"+ada.ID+"/events", grace.ID, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = h.do(http.MethodPut, "/events/"+ev.ID, h.admin.ID, sampleEvent(0))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = h.do(http.MethodDelete, "/events/"+ev.ID+"/registrations/"+ada.ID, grace.ID, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = h.do(http.MethodDelete, "/events/"+ev.ID+"/registrations/"+ada.ID, ada.ID, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = h.do(http.MethodDelete, "/events/"+ev.ID+"/registrations/"+ada.ID, ada.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = h.do(http.MethodGet, "/events/"+ev.ID, "", nil)
	var after model.Event
	h.decode(resp, &after)
	assert.Zero(t, after.CurrentAttendees)

	resp = h.do(http.MethodPost, "/events/"+ev.ID+"/registrations", grace.ID, nil)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestCapacityBelowAttendees(t *testing.T) {
	h := setupServer(t)
	ada := h.signUp("Ada", "ada@example.com")
	grace := h.signUp("Grace", "grace@example.com")
	ev := h.createEvent(5)
	for _, u := range []model.User{ada, grace} {
		resp := h.do(http.MethodPost, "/events/"+ev.ID+"/registrations", u.ID, nil)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp := h.do(http.MethodPut, "/events/"+ev.ID, h.admin.ID, sampleEvent(1))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "cannot set max capacity below current attendees", h.errorOf(resp))

	resp = h.do(http.MethodPut, "/events/"+ev.ID, h.admin.ID, sampleEvent(2))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var updated model.Event
	h.decode(resp, &updated)
	assert.Equal(t, 2, updated.CurrentAttendees)
}

func TestDeleteEventRemovesRegistrations(t *testing.T) {
	h := setupServer(t)
	ada := h.signUp("Ada", "ada@example.com")
	ev := h.createEvent(5)
	resp := h.do(http.MethodPost, "/events/"+ev.ID+"/registrations", ada.ID, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = h.do(http.MethodDelete, "/events/"+ev.ID, h.admin.ID, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = h.do(http.MethodGet, "/users/"+ada.ID+"/events", ada.ID, nil)
	var mine []model.Event
	h.decode(resp, &mine)
	assert.Empty(t, mine)
}

func TestCancelledEventsRejectRegistrations(t *testing.T) {
	h := setupServer(t)
	ada := h.signUp("Ada", "ada@example.com")
	ev := h.createEvent(5)

	in := sampleEvent(5)
	in.Status = model.StatusCancelled
	resp := h.do(http.MethodPut, "/events/"+ev.ID, h.admin.ID, in)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = h.do(http.MethodPost, "/events/"+ev.ID+"/registrations", ada.ID, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = h.do(http.MethodGet, "/events?status=active", "", nil)
	var active []model.Event
	h.decode(resp, &active)
	assert.Empty(t, active)
}

func TestGetUser(t *testing.T) {
	h := setupServer(t)
	ada := h.signUp("Ada", "ada@example.com")
	grace := h.signUp("Grace", "grace@example.com")

	resp := h.do(http.MethodGet, "/users/"+ada.ID, ada.ID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = h.do(http.MethodGet, "/users/"+ada.ID, h.admin.ID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = h.do(http.MethodGet, "/users/"+ada.ID, grace.ID, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = h.do(http.MethodGet, "/users/"+ada.ID, "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestEnsureAdminIsIdempotent(t *testing.T) {
	h := setupServer(t)
	created, err := h.api.EnsureAdmin("Site Admin", adminEmail, adminPassword)
	require.NoError(t, err)
	assert.False(t, created)

	_, err = h.api.EnsureAdmin("Site Admin", "other@example.com", "short")
	assert.Error(t, err)
}

func TestUtilityRoutes(t *testing.T) {
	h := setupServer(t)

	resp := h.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = h.do(http.MethodGet, "/openapi.yaml", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/yaml", resp.Header.Get("Content-Type"))

	h.do(http.MethodGet, "/events", "", nil)
	resp = h.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "eventdesk_http_requests_total")
	assert.Contains(t, string(body), `route="/api/v1/events"`)
	assert.Contains(t, string(body), `eventdesk_audit_events_total{event="login_success"} 1`)
}
