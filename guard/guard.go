// Package guard decides whether a requested path is reachable given the
// current session. Decisions are pure: the guard reads the session and the
// policy and never mutates either.
package guard

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/jmcleod/eventdesk/session"
)

// DeniedMessage is shown when a non-admin requests the admin path.
const DeniedMessage = "Access denied. Admin privileges required."

// ErrInvalidPolicy is returned by Policy.Validate.
var ErrInvalidPolicy = errors.New("invalid navigation policy")

// Kind is the outcome of a navigation decision.
type Kind int

const (
	Allow Kind = iota
	Redirect
	Deny
)

func (k Kind) String() string {
	switch k {
	case Allow:
		return "allow"
	case Redirect:
		return "redirect"
	case Deny:
		return "deny"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Decision is the guard's verdict on one navigation request. For Redirect,
// Path is the new target. For Deny, Message is user-facing and Path is
// where the user is sent afterwards.
type Decision struct {
	Kind    Kind
	Path    string
	Message string
}

// Policy names the paths the guard reasons about.
type Policy struct {
	// LoginPath is where unauthenticated visitors are sent.
	LoginPath string
	// DefaultHome is the landing path for authenticated non-admins.
	DefaultHome string
	// AdminHome is the landing path for admins.
	AdminHome string
	// AdminPath requires the admin role.
	AdminPath string
	// Protected paths require any authenticated session.
	Protected []string
	// AuthOnly paths are only for visitors without a session.
	AuthOnly []string
}

// DefaultPolicy returns the event application's route policy.
func DefaultPolicy() Policy {
	return Policy{
		LoginPath:   "/login",
		DefaultHome: "/events",
		AdminHome:   "/admin",
		AdminPath:   "/admin",
		Protected:   []string{"/events", "/my-events", "/admin"},
		AuthOnly:    []string{"/login", "/register"},
	}
}

// IsProtected reports whether path requires an authenticated session.
func (p Policy) IsProtected(path string) bool {
	return slices.Contains(p.Protected, path)
}

// IsAuthOnly reports whether path is only for unauthenticated visitors.
func (p Policy) IsAuthOnly(path string) bool {
	return slices.Contains(p.AuthOnly, path)
}

// HomeFor returns the landing path for s. A nil session gets DefaultHome.
func (p Policy) HomeFor(s *session.Session) string {
	if s != nil && s.IsAdmin() {
		return p.AdminHome
	}
	return p.DefaultHome
}

// Decide evaluates the rules top to bottom; the first match wins.
//  1. protected path without a session: redirect to login
//  2. auth-only path with a session: redirect to the role's home
//  3. admin path without the admin role: deny, then the role's home
//  4. anything else: allow
func (p Policy) Decide(path string, s *session.Session) Decision {
	switch {
	case s == nil && p.IsProtected(path):
		return Decision{Kind: Redirect, Path: p.LoginPath}
	case s != nil && p.IsAuthOnly(path):
		return Decision{Kind: Redirect, Path: p.HomeFor(s)}
	case path == p.AdminPath && (s == nil || !s.IsAdmin()):
		return Decision{Kind: Deny, Path: p.HomeFor(s), Message: DeniedMessage}
	default:
		return Decision{Kind: Allow}
	}
}

// Validate checks that every redirect target is terminal: landing on it
// under the session state that caused the redirect is allowed outright.
func (p Policy) Validate() error {
	for name, v := range map[string]string{
		"login path":   p.LoginPath,
		"default home": p.DefaultHome,
		"admin home":   p.AdminHome,
		"admin path":   p.AdminPath,
	} {
		if !strings.HasPrefix(v, "/") {
			return fmt.Errorf("%w: %s %q must start with /", ErrInvalidPolicy, name, v)
		}
	}
	if p.IsProtected(p.LoginPath) {
		return fmt.Errorf("%w: login path %s is protected", ErrInvalidPolicy, p.LoginPath)
	}
	if p.LoginPath == p.AdminPath {
		return fmt.Errorf("%w: login path %s is the admin path", ErrInvalidPolicy, p.LoginPath)
	}
	for _, home := range []string{p.DefaultHome, p.AdminHome} {
		if p.IsAuthOnly(home) {
			return fmt.Errorf("%w: home path %s is auth-only", ErrInvalidPolicy, home)
		}
	}
	if p.DefaultHome == p.AdminPath {
		return fmt.Errorf("%w: default home %s requires admin", ErrInvalidPolicy, p.DefaultHome)
	}
	return nil
}
