// Package client talks to the eventdesk backend on behalf of the current
// session.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jmcleod/eventdesk/model"
	"github.com/jmcleod/eventdesk/session"
)

// UserHeader carries the caller's user ID to the backend.
const UserHeader = "X-User-ID"

const (
	defaultTimeout = 30 * time.Second
	pageSize       = 200
)

var (
	// ErrNotAuthenticated is returned by member calls made without a session.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrAdminRequired is returned by admin calls made from a non-admin
	// session. The request is not sent.
	ErrAdminRequired = errors.New("admin privileges required")
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
	return e.Message
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// SessionReader is the read side of the session store.
type SessionReader interface {
	Read() (session.Session, bool)
}

// Client is the backend REST client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	sessions   SessionReader
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger for request failures.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a client for the backend at baseURL, for example
// http://127.0.0.1:8080/api/v1.
func New(baseURL string, sessions SessionReader, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		sessions:   sessions,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "client")
	return c
}

func (c *Client) member() (session.Session, error) {
	sess, ok := c.sessions.Read()
	if !ok {
		return session.Session{}, ErrNotAuthenticated
	}
	return sess, nil
}

func (c *Client) admin() (session.Session, error) {
	sess, err := c.member()
	if err != nil {
		return sess, err
	}
	if !sess.IsAdmin() {
		return sess, ErrAdminRequired
	}
	return sess, nil
}

// do sends a JSON request and decodes a JSON response into out when out is
// non-nil. userID, when set, identifies the caller.
func (c *Client) do(ctx context.Context, method, path, userID string, body, out any) (http.Header, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set(UserHeader, userID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("backend request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.Header, parseError(resp)
	}
	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.Header, fmt.Errorf("decoding response: %w", err)
		}
	}
	return resp.Header, nil
}

func parseError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	apiErr := &APIError{Status: resp.StatusCode}
	var e model.ErrorResponse
	if err := json.Unmarshal(body, &e); err == nil && e.Error != "" {
		apiErr.Message = e.Error
	} else {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	return apiErr
}

// Login verifies credentials and returns the account. It does not touch
// the session store; the caller decides whether to open a session.
func (c *Client) Login(ctx context.Context, email, password string) (model.User, error) {
	var u model.User
	_, err := c.do(ctx, http.MethodPost, "/auth/login", "", model.LoginRequest{Email: email, Password: password}, &u)
	return u, err
}

// CreateUser registers a guest account.
func (c *Client) CreateUser(ctx context.Context, req model.CreateUserRequest) (model.User, error) {
	var u model.User
	_, err := c.do(ctx, http.MethodPost, "/users", "", req, &u)
	return u, err
}

// ListEvents returns every event, following the backend's pagination.
func (c *Client) ListEvents(ctx context.Context) ([]model.Event, error) {
	events := []model.Event{}
	for offset := 0; ; {
		q := url.Values{}
		q.Set("limit", strconv.Itoa(pageSize))
		q.Set("offset", strconv.Itoa(offset))

		var page []model.Event
		h, err := c.do(ctx, http.MethodGet, "/events?"+q.Encode(), "", nil, &page)
		if err != nil {
			return nil, err
		}
		events = append(events, page...)
		if h.Get("X-Has-More") != "true" || len(page) == 0 {
			return events, nil
		}
		offset += len(page)
	}
}

// GetEvent returns one event.
func (c *Client) GetEvent(ctx context.Context, eventID string) (model.Event, error) {
	var ev model.Event
	_, err := c.do(ctx, http.MethodGet, "/events/"+url.PathEscape(eventID), "", nil, &ev)
	return ev, err
}

// CreateEvent creates an event. Admin only.
func (c *Client) CreateEvent(ctx context.Context, in model.EventInput) (model.Event, error) {
	sess, err := c.admin()
	if err != nil {
		return model.Event{}, err
	}
	var ev model.Event
	_, err = c.do(ctx, http.MethodPost, "/events", sess.UserID, in, &ev)
	return ev, err
}

// UpdateEvent replaces the editable fields of an event. Admin only.
func (c *Client) UpdateEvent(ctx context.Context, eventID string, in model.EventInput) (model.Event, error) {
	sess, err := c.admin()
	if err != nil {
		return model.Event{}, err
	}
	var ev model.Event
	_, err = c.do(ctx, http.MethodPut, "/events/"+url.PathEscape(eventID), sess.UserID, in, &ev)
	return ev, err
}

// DeleteEvent removes an event and its registrations. Admin only.
func (c *Client) DeleteEvent(ctx context.Context, eventID string) error {
	sess, err := c.admin()
	if err != nil {
		return err
	}
	_, err = c.do(ctx, http.MethodDelete, "/events/"+url.PathEscape(eventID), sess.UserID, nil, nil)
	return err
}

// Register signs the current user up for an event.
func (c *Client) Register(ctx context.Context, eventID string) (model.Registration, error) {
	sess, err := c.member()
	if err != nil {
		return model.Registration{}, err
	}
	var reg model.Registration
	_, err = c.do(ctx, http.MethodPost, "/events/"+url.PathEscape(eventID)+"/registrations", sess.UserID, nil, &reg)
	return reg, err
}

// Unregister removes the current user's registration for an event.
func (c *Client) Unregister(ctx context.Context, eventID string) error {
	sess, err := c.member()
	if err != nil {
		return err
	}
	path := "/events/" + url.PathEscape(eventID) + "/registrations/" + url.PathEscape(sess.UserID)
	_, err = c.do(ctx, http.MethodDelete, path, sess.UserID, nil, nil)
	return err
}

// UserEvents returns the events the current user is registered for.
func (c *Client) UserEvents(ctx context.Context) ([]model.Event, error) {
	sess, err := c.member()
	if err != nil {
		return nil, err
	}
	var events []model.Event
	_, err = c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(sess.UserID)+"/events", sess.UserID, nil, &events)
	return events, err
}
