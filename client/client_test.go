package client_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/eventdesk/backend"
	"github.com/jmcleod/eventdesk/client"
	"github.com/jmcleod/eventdesk/model"
	"github.com/jmcleod/eventdesk/session"
	"github.com/jmcleod/eventdesk/storage/memory"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type env struct {
	client   *client.Client
	sessions *session.Store
}

func setup(t *testing.T) *env {
	t.Helper()
	a, err := backend.New(memory.NewRepository(),
		backend.WithLogger(quiet),
		backend.WithClock(func() time.Time { return time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC) }),
	)
	require.NoError(t, err)
	_, err = a.EnsureAdmin("Site Admin", "admin@example.com", "admin-password")
	require.NoError(t, err)

	srv := httptest.NewServer(a.Router())
	t.Cleanup(srv.Close)

	sessions := session.NewStore(memory.NewRepository(), session.WithLogger(quiet))
	return &env{
		client:   client.New(srv.URL+"/", sessions, client.WithLogger(quiet)),
		sessions: sessions,
	}
}

func (e *env) loginAs(t *testing.T, email, password string) model.User {
	t.Helper()
	u, err := e.client.Login(t.Context(), email, password)
	require.NoError(t, err)
	require.NoError(t, e.sessions.Create(u.Identity()))
	return u
}

func event(name string, capacity int) model.EventInput {
	return model.EventInput{
		Name:        name,
		Description: "desc",
		Date:        "2026-05-20",
		Category:    model.CategoryWorkshop,
		Location:    "Lisbon",
		MaxCapacity: capacity,
	}
}

func TestLoginFailureIsAPIError(t *testing.T) {
	e := setup(t)
	_, err := e.client.Login(t.Context(), "admin@example.com", "nope-nope")
	require.Error(t, err)

	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "invalid credentials", apiErr.Message)
	assert.True(t, client.IsStatus(err, http.StatusUnauthorized))
}

func TestMemberCallsNeedSession(t *testing.T) {
	e := setup(t)
	_, err := e.client.UserEvents(t.Context())
	assert.ErrorIs(t, err, client.ErrNotAuthenticated)
	_, err = e.client.Register(t.Context(), "x")
	assert.ErrorIs(t, err, client.ErrNotAuthenticated)
	assert.ErrorIs(t, e.client.Unregister(t.Context(), "x"), client.ErrNotAuthenticated)
}

func TestAdminCallsFailFastForGuests(t *testing.T) {
	e := setup(t)
	_, err := e.client.CreateUser(t.Context(), model.CreateUserRequest{FullName: "Grace", Email: "grace@example.com", Password: "secret1"})
	require.NoError(t, err)
	e.loginAs(t, "grace@example.com", "secret1")

	_, err = e.client.CreateEvent(t.Context(), event("x", 1))
	assert.ErrorIs(t, err, client.ErrAdminRequired)
	_, err = e.client.UpdateEvent(t.Context(), "x", event("x", 1))
	assert.ErrorIs(t, err, client.ErrAdminRequired)
	assert.ErrorIs(t, e.client.DeleteEvent(t.Context(), "x"), client.ErrAdminRequired)
}

func TestEventLifecycle(t *testing.T) {
	e := setup(t)
	e.loginAs(t, "admin@example.com", "admin-password")

	ev, err := e.client.CreateEvent(t.Context(), event("Intro to Go", 2))
	require.NoError(t, err)

	got, err := e.client.GetEvent(t.Context(), ev.ID)
	require.NoError(t, err)
	assert.Equal(t, "Intro to Go", got.Name)

	updated, err := e.client.UpdateEvent(t.Context(), ev.ID, event("Advanced Go", 3))
	require.NoError(t, err)
	assert.Equal(t, "Advanced Go", updated.Name)

	reg, err := e.client.Register(t.Context(), ev.ID)
	require.NoError(t, err)
	assert.Equal(t, ev.ID, reg.EventID)

	_, err = e.client.Register(t.Context(), ev.ID)
	assert.True(t, client.IsStatus(err, http.StatusConflict))

	mine, err := e.client.UserEvents(t.Context())
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, 1, mine[0].CurrentAttendees)

	require.NoError(t, e.client.Unregister(t.Context(), ev.ID))
	mine, err = e.client.UserEvents(t.Context())
	require.NoError(t, err)
	assert.Empty(t, mine)

	require.NoError(t, e.client.DeleteEvent(t.Context(), ev.ID))
	_, err = e.client.GetEvent(t.Context(), ev.ID)
	assert.True(t, client.IsStatus(err, http.StatusNotFound))
}

func TestListEventsFollowsPages(t *testing.T) {
	e := setup(t)
	e.loginAs(t, "admin@example.com", "admin-password")
	for i := 0; i < 205; i++ {
		_, err := e.client.CreateEvent(t.Context(), event("Event", 10))
		require.NoError(t, err)
	}

	events, err := e.client.ListEvents(t.Context())
	require.NoError(t, err)
	assert.Len(t, events, 205)
}

func TestNonJSONErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	c := client.New(srv.URL, session.NewStore(memory.NewRepository(), session.WithLogger(quiet)), client.WithLogger(quiet))
	_, err := c.GetEvent(t.Context(), "abc")
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "upstream exploded", apiErr.Message)
}
