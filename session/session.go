// Package session holds the browser-local record of the authenticated
// principal. At most one session exists at a time, persisted under a single
// fixed key so that it survives restarts of the client.
package session

import "time"

// Role is the authorization level of a principal.
type Role string

const (
	RoleGuest Role = "guest"
	RoleAdmin Role = "admin"
)

// Identity is a verified principal as returned by the backend on login.
type Identity struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
}

// Session is the persisted layout of the current principal.
type Session struct {
	UserID    string    `json:"userId"`
	FullName  string    `json:"fullName"`
	Email     string    `json:"email"`
	Role      Role      `json:"role,omitempty"`
	LoginTime time.Time `json:"loginTime"`
}

// IsAdmin reports whether the session carries the admin role. A missing or
// unrecognised role is never admin.
func (s Session) IsAdmin() bool {
	return s.Role == RoleAdmin
}
