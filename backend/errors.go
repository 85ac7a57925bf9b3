package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/jmcleod/eventdesk/internal/util"
	"github.com/jmcleod/eventdesk/model"
	"github.com/jmcleod/eventdesk/storage"
)

const maxBodySize = 64 << 10

var (
	ErrEmailTaken             = errors.New("email already registered")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrAuthRequired           = errors.New("authentication required")
	ErrUnknownUser            = errors.New("unknown user")
	ErrAdminRequired          = errors.New("admin privileges required")
	ErrForbidden              = errors.New("not allowed to act for another user")
	ErrEventFull              = errors.New("event is at full capacity")
	ErrEventClosed            = errors.New("event is not open for registration")
	ErrAlreadyRegistered      = errors.New("already registered for this event")
	ErrNotRegistered          = errors.New("not registered for this event")
	ErrCapacityBelowAttendees = errors.New("cannot set max capacity below current attendees")
	ErrEventNotFound          = errors.New("event not found")
	ErrUserNotFound           = errors.New("user not found")
)

// inputError marks a request the client can fix by changing its input.
type inputError struct {
	err error
}

func (e *inputError) Error() string { return e.err.Error() }

func (e *inputError) Unwrap() error { return e.err }

func invalid(err error) error {
	if err == nil {
		return nil
	}
	return &inputError{err: err}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func mapError(w http.ResponseWriter, err error) {
	var in *inputError
	switch {
	case errors.As(err, &in):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrCapacityBelowAttendees):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrAuthRequired),
		errors.Is(err, ErrUnknownUser):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrAdminRequired), errors.Is(err, ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, ErrEmailTaken),
		errors.Is(err, ErrEventFull),
		errors.Is(err, ErrEventClosed),
		errors.Is(err, ErrAlreadyRegistered):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrNotRegistered),
		errors.Is(err, ErrEventNotFound),
		errors.Is(err, ErrUserNotFound),
		storage.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, util.ErrInvalidHash):
		writeError(w, http.StatusInternalServerError, "stored credentials are corrupt")
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// decodeJSON reads a JSON body of at most limit bytes into a T. On failure
// it writes a 400 response and reports false.
func decodeJSON[T any](w http.ResponseWriter, r *http.Request, limit int64) (T, bool) {
	var v T
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return v, false
	}
	return v, true
}
