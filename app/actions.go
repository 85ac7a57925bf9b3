package app

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/awnumar/memguard"

	"github.com/jmcleod/eventdesk/client"
	"github.com/jmcleod/eventdesk/dialog"
	"github.com/jmcleod/eventdesk/guard"
	"github.com/jmcleod/eventdesk/internal/validate"
	"github.com/jmcleod/eventdesk/model"
)

const (
	msgLoginOK        = "Login successful! Welcome back."
	msgBadLogin       = "Invalid email or password"
	msgRegistered     = "Account created successfully! Please login."
	msgPasswordsDiff  = "passwords do not match"
	msgLogoutConfirm  = "Are you sure you want to logout?"
	msgLoggedOut      = "Logged out successfully"
	msgJoined         = "Successfully registered to event"
	msgLeaveConfirm   = "Are you sure you want to cancel your registration?"
	msgLeft           = "Successfully unregistered from event"
	msgCreated        = "Event created successfully"
	msgUpdated        = "Event updated successfully"
	msgDeleteConfirm  = "Are you sure you want to delete this event? This action cannot be undone."
	msgDeleted        = "Event deleted successfully"
	msgNeedLogin      = "Please login first"
	msgSessionFailed  = "Could not save your session. Please try again."
	msgUnexpectedFail = "An error occurred. Please try again."
)

// FormError is input rejected before anything was sent to the backend.
type FormError struct {
	Err error
}

func (e *FormError) Error() string { return e.Err.Error() }

func (e *FormError) Unwrap() error { return e.Err }

func formError(err error) error {
	if err == nil {
		return nil
	}
	return &FormError{Err: err}
}

// Seal moves b into an encrypted enclave and wipes b. Empty input seals to
// nil.
func Seal(b []byte) *memguard.Enclave {
	if len(b) == 0 {
		return nil
	}
	return memguard.NewEnclave(b)
}

// RegisterForm is the input of the sign-up page.
type RegisterForm struct {
	FullName string
	Email    string
	Password *memguard.Enclave
	Confirm  *memguard.Enclave
}

// userMessage turns err into the text shown to the user.
func userMessage(err error) string {
	var formErr *FormError
	var apiErr *client.APIError
	switch {
	case errors.As(err, &formErr):
		return formErr.Error()
	case errors.Is(err, client.ErrAdminRequired):
		return guard.DeniedMessage
	case errors.Is(err, client.ErrNotAuthenticated):
		return msgNeedLogin
	case errors.As(err, &apiErr) && apiErr.Message != "":
		return apiErr.Message
	}
	return msgUnexpectedFail
}

// fail reports err to the user and logs anything that is not the user's
// doing.
func (a *App) fail(ctx context.Context, action string, err error) error {
	var formErr *FormError
	var apiErr *client.APIError
	if !errors.As(err, &formErr) && !(errors.As(err, &apiErr) && apiErr.Status < http.StatusInternalServerError) {
		a.logger.Error("action failed", "action", action, "error", err)
	}
	a.notify(ctx, dialog.LevelError, userMessage(err))
	a.metrics.action(action, err, false)
	return err
}

func (a *App) succeed(ctx context.Context, action, msg string) {
	a.notify(ctx, dialog.LevelSuccess, msg)
	a.metrics.action(action, nil, false)
}

func (a *App) cancelled(action string) error {
	a.metrics.action(action, nil, true)
	return nil
}

func openSecret(e *memguard.Enclave, field string) (*memguard.LockedBuffer, error) {
	if e == nil {
		return nil, formError(&validate.RequiredError{Field: field})
	}
	return e.Open()
}

// Login verifies credentials with the backend, opens a session and shows
// the user's home page.
func (a *App) Login(ctx context.Context, email string, password *memguard.Enclave) error {
	const action = "login"
	if err := validate.Email(email); err != nil {
		return a.fail(ctx, action, formError(err))
	}
	buf, err := openSecret(password, "password")
	if err != nil {
		return a.fail(ctx, action, err)
	}
	defer buf.Destroy()

	u, err := a.backend.Login(ctx, validate.NormalizeEmail(email), string(buf.Bytes()))
	if client.IsStatus(err, http.StatusUnauthorized) {
		return a.fail(ctx, action, formError(errors.New(msgBadLogin)))
	}
	if err != nil {
		return a.fail(ctx, action, err)
	}
	if err := a.sessions.Create(u.Identity()); err != nil {
		a.logger.Error("creating session failed", "error", err)
		a.notify(ctx, dialog.LevelError, msgSessionFailed)
		a.metrics.action(action, err, false)
		return err
	}
	a.succeed(ctx, action, msgLoginOK)
	sess, _ := a.sessions.Read()
	a.router.Navigate(ctx, a.policy.HomeFor(&sess))
	return nil
}

func validateRegistration(form RegisterForm, password, confirm *memguard.LockedBuffer) error {
	if err := validate.Required("full name", form.FullName); err != nil {
		return err
	}
	if err := validate.Name(form.FullName); err != nil {
		return err
	}
	if err := validate.Email(form.Email); err != nil {
		return err
	}
	if err := validate.Password(string(password.Bytes())); err != nil {
		return err
	}
	if !confirm.EqualTo(password.Bytes()) {
		return errors.New(msgPasswordsDiff)
	}
	return nil
}

// Register creates a guest account and sends the user to the login page.
func (a *App) Register(ctx context.Context, form RegisterForm) error {
	const action = "register"
	password, err := openSecret(form.Password, "password")
	if err != nil {
		return a.fail(ctx, action, err)
	}
	defer password.Destroy()
	confirm, err := openSecret(form.Confirm, "password confirmation")
	if err != nil {
		return a.fail(ctx, action, err)
	}
	defer confirm.Destroy()

	if err := validateRegistration(form, password, confirm); err != nil {
		return a.fail(ctx, action, formError(err))
	}
	_, err = a.backend.CreateUser(ctx, model.CreateUserRequest{
		FullName: strings.TrimSpace(form.FullName),
		Email:    validate.NormalizeEmail(form.Email),
		Password: string(password.Bytes()),
	})
	if err != nil {
		return a.fail(ctx, action, err)
	}
	a.succeed(ctx, action, msgRegistered)
	a.router.Navigate(ctx, a.policy.LoginPath)
	return nil
}

// Logout asks for confirmation, then ends the session.
func (a *App) Logout(ctx context.Context) error {
	const action = "logout"
	if !a.confirm(ctx, msgLogoutConfirm) {
		return a.cancelled(action)
	}
	if err := a.sessions.Destroy(); err != nil {
		return a.fail(ctx, action, err)
	}
	a.succeed(ctx, action, msgLoggedOut)
	a.router.Navigate(ctx, a.policy.LoginPath)
	return nil
}

// Join registers the current user for an event.
func (a *App) Join(ctx context.Context, eventID string) error {
	const action = "join"
	if _, err := a.backend.Register(ctx, eventID); err != nil {
		return a.fail(ctx, action, err)
	}
	a.succeed(ctx, action, msgJoined)
	a.Refresh(ctx)
	return nil
}

// Leave cancels the current user's registration after confirmation.
func (a *App) Leave(ctx context.Context, eventID string) error {
	const action = "leave"
	if !a.confirm(ctx, msgLeaveConfirm) {
		return a.cancelled(action)
	}
	if err := a.backend.Unregister(ctx, eventID); err != nil {
		return a.fail(ctx, action, err)
	}
	a.succeed(ctx, action, msgLeft)
	a.Refresh(ctx)
	return nil
}

// ValidateEvent applies the form checks the admin page runs before
// sending an event to the backend.
func ValidateEvent(in model.EventInput, now time.Time) error {
	if err := validate.Required("event name", in.Name); err != nil {
		return err
	}
	if err := validate.Required("description", in.Description); err != nil {
		return err
	}
	if err := validate.Required("location", in.Location); err != nil {
		return err
	}
	day, err := time.Parse(model.DateLayout, strings.TrimSpace(in.Date))
	if err != nil {
		return errors.New("event date must be formatted as YYYY-MM-DD")
	}
	if err := validate.EventDate(day, now); err != nil {
		return err
	}
	if !in.Category.Valid() {
		return errors.New("unknown event category")
	}
	return validate.Capacity(in.MaxCapacity)
}

// CreateEvent adds an event. Admin only.
func (a *App) CreateEvent(ctx context.Context, in model.EventInput) (model.Event, error) {
	const action = "create_event"
	if err := ValidateEvent(in, a.now()); err != nil {
		return model.Event{}, a.fail(ctx, action, formError(err))
	}
	ev, err := a.backend.CreateEvent(ctx, in)
	if err != nil {
		return model.Event{}, a.fail(ctx, action, err)
	}
	a.succeed(ctx, action, msgCreated)
	a.Refresh(ctx)
	return ev, nil
}

// UpdateEvent replaces an event's editable fields. Admin only.
func (a *App) UpdateEvent(ctx context.Context, eventID string, in model.EventInput) (model.Event, error) {
	const action = "update_event"
	if err := ValidateEvent(in, a.now()); err != nil {
		return model.Event{}, a.fail(ctx, action, formError(err))
	}
	ev, err := a.backend.UpdateEvent(ctx, eventID, in)
	if err != nil {
		return model.Event{}, a.fail(ctx, action, err)
	}
	a.succeed(ctx, action, msgUpdated)
	a.Refresh(ctx)
	return ev, nil
}

// DeleteEvent removes an event after confirmation. Admin only.
func (a *App) DeleteEvent(ctx context.Context, eventID string) error {
	const action = "delete_event"
	if !a.confirm(ctx, msgDeleteConfirm) {
		return a.cancelled(action)
	}
	if err := a.backend.DeleteEvent(ctx, eventID); err != nil {
		return a.fail(ctx, action, err)
	}
	a.succeed(ctx, action, msgDeleted)
	a.Refresh(ctx)
	return nil
}

// Event fetches one event, for pre-filling the edit form.
func (a *App) Event(ctx context.Context, eventID string) (model.Event, error) {
	ev, err := a.backend.GetEvent(ctx, eventID)
	if err != nil {
		return ev, a.fail(ctx, "get_event", err)
	}
	return ev, nil
}
