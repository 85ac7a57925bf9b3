// Package validate holds the form checks shared by the shell and the
// backend. Each check returns nil or an error whose text is suitable for
// showing to the user.
package validate

import (
	"errors"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jmcleod/eventdesk/internal/util"
)

const (
	MinPasswordLen = 6
	MinNameLen     = 2
	MaxCapacity    = 10000
)

var (
	ErrInvalidEmail     = errors.New("invalid email format")
	ErrPasswordTooShort = errors.New("password must be at least 6 characters")
	ErrNameTooShort     = errors.New("full name must be at least 2 characters")
	ErrPastDate         = errors.New("event date must be today or later")
	ErrInvalidCapacity  = errors.New("capacity must be between 1 and 10000")
)

// RequiredError names a missing field.
type RequiredError struct {
	Field string
}

func (e *RequiredError) Error() string {
	return e.Field + " is required"
}

// NormalizeEmail folds compatibility forms, trims and lower-cases email so
// that lookups are insensitive to how it was typed.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(util.Normalize(email)))
}

// Email accepts a single bare address of the form local@domain.tld.
func Email(email string) error {
	email = strings.TrimSpace(email)
	if email == "" || strings.ContainsAny(email, " \t") {
		return ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return ErrInvalidEmail
	}
	at := strings.LastIndexByte(email, '@')
	domain := email[at+1:]
	dot := strings.LastIndexByte(domain, '.')
	if dot <= 0 || dot == len(domain)-1 {
		return ErrInvalidEmail
	}
	return nil
}

func Password(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLen {
		return ErrPasswordTooShort
	}
	return nil
}

func Name(name string) error {
	if utf8.RuneCountInString(strings.TrimSpace(name)) < MinNameLen {
		return ErrNameTooShort
	}
	return nil
}

func Required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &RequiredError{Field: field}
	}
	return nil
}

// EventDate accepts dates on or after the first instant of today in the
// location of now.
func EventDate(date, now time.Time) error {
	if date.IsZero() {
		return &RequiredError{Field: "event date"}
	}
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	if date.Before(today) {
		return ErrPastDate
	}
	return nil
}

func Capacity(n int) error {
	if n < 1 || n > MaxCapacity {
		return ErrInvalidCapacity
	}
	return nil
}
