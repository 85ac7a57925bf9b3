// Package model defines the records exchanged between the client and the
// backend, along with the presentation rules derived from them.
package model

import (
	"math"
	"time"

	"github.com/jmcleod/eventdesk/session"
)

// DateLayout is the wire and input format of event dates.
const DateLayout = "2006-01-02"

type Category string

const (
	CategoryTechnology Category = "technology"
	CategoryWorkshop   Category = "workshop"
	CategoryConference Category = "conference"
	CategoryNetworking Category = "networking"
)

// Categories lists the accepted categories in display order.
var Categories = []Category{CategoryTechnology, CategoryWorkshop, CategoryConference, CategoryNetworking}

func (c Category) Valid() bool {
	for _, k := range Categories {
		if c == k {
			return true
		}
	}
	return false
}

type Status string

const (
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
)

// User is an account as returned by the backend. The password hash never
// leaves the backend.
type User struct {
	ID        string       `json:"id"`
	FullName  string       `json:"fullName"`
	Email     string       `json:"email"`
	Role      session.Role `json:"role"`
	CreatedAt time.Time    `json:"createdAt"`
}

// Identity converts u into the fields a session is created from.
func (u User) Identity() session.Identity {
	return session.Identity{ID: u.ID, FullName: u.FullName, Email: u.Email, Role: u.Role}
}

type Event struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	Date             string    `json:"date"`
	Category         Category  `json:"category"`
	Location         string    `json:"location"`
	MaxCapacity      int       `json:"maxCapacity"`
	CurrentAttendees int       `json:"currentAttendees"`
	Status           Status    `json:"status"`
	CreatedBy        string    `json:"createdBy"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt,omitzero"`
}

// Registration links a user to an event.
type Registration struct {
	EventID      string    `json:"eventId"`
	UserID       string    `json:"userId"`
	RegisteredAt time.Time `json:"registeredAt"`
}

// Day parses e.Date. A malformed date yields the zero time.
func (e Event) Day() time.Time {
	t, err := time.Parse(DateLayout, e.Date)
	if err != nil {
		return time.Time{}
	}
	return t
}

func (e Event) IsFull() bool {
	return e.CurrentAttendees >= e.MaxCapacity
}

func (e Event) IsActive() bool {
	return e.Status == StatusActive
}

// CapacityPercent returns the rounded fill percentage; 0 when the event
// has no capacity.
func (e Event) CapacityPercent() int {
	if e.MaxCapacity <= 0 {
		return 0
	}
	return int(math.Round(float64(e.CurrentAttendees) / float64(e.MaxCapacity) * 100))
}

// DaysUntil counts calendar days from now to the event. Past events are
// negative.
func (e Event) DaysUntil(now time.Time) int {
	day := e.Day()
	if day.IsZero() {
		return math.MinInt32
	}
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return int(day.Sub(today).Hours() / 24)
}

type Badge string

const (
	BadgeNone       Badge = ""
	BadgeFull       Badge = "Full"
	BadgeAlmostFull Badge = "Almost Full"
	BadgeComingSoon Badge = "Coming Soon"
	BadgePast       Badge = "Past Event"
)

// AlmostFullPercent is the fill level from which an event is flagged.
const AlmostFullPercent = 80

// ComingSoonDays is how close an event must be to be flagged.
const ComingSoonDays = 7

// BadgeAt picks the single status badge shown for e, in priority order.
func (e Event) BadgeAt(now time.Time) Badge {
	days := e.DaysUntil(now)
	switch {
	case e.IsFull():
		return BadgeFull
	case e.CapacityPercent() >= AlmostFullPercent:
		return BadgeAlmostFull
	case days < 0:
		return BadgePast
	case days <= ComingSoonDays:
		return BadgeComingSoon
	}
	return BadgeNone
}

// LoginRequest is the JSON body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// CreateUserRequest is the JSON body for POST /users.
type CreateUserRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// EventInput is the JSON body for POST /events and PUT /events/{eventID}.
type EventInput struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Date        string   `json:"date"`
	Category    Category `json:"category"`
	Location    string   `json:"location"`
	MaxCapacity int      `json:"maxCapacity"`
	Status      Status   `json:"status,omitempty"`
}

// ErrorResponse is the body of every non-2xx backend response.
type ErrorResponse struct {
	Error string `json:"error"`
}
