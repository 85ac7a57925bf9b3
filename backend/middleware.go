package backend

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/jmcleod/eventdesk/model"
	"github.com/jmcleod/eventdesk/session"
)

type contextKey int

const userKeyCtx contextKey = iota

// UserHeader carries the caller's user ID. The development backend trusts
// it the way the original single-page client trusted its local session.
const UserHeader = "X-User-ID"

func contextOf(r *http.Request) context.Context {
	if r == nil {
		return context.Background()
	}
	return r.Context()
}

// callerFromContext returns the user resolved by Identify, or nil.
func callerFromContext(ctx context.Context) *model.User {
	u, _ := ctx.Value(userKeyCtx).(*model.User)
	return u
}

// Identify resolves the X-User-ID header to a stored user and puts it on
// the request context. Requests without the header pass through
// anonymously; an unknown ID is rejected.
func (a *API) Identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(UserHeader)
		if id == "" {
			next.ServeHTTP(w, r)
			return
		}
		rec, err := a.store.user(id)
		if err != nil {
			a.audit.logFailure(AuditAccessDenied, r, "unknown user", slog.String("user_id", id))
			writeError(w, http.StatusUnauthorized, ErrUnknownUser.Error())
			return
		}
		u := rec.User
		ctx := context.WithValue(r.Context(), userKeyCtx, &u)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireUser rejects anonymous requests.
func (a *API) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if callerFromContext(r.Context()) == nil {
			writeError(w, http.StatusUnauthorized, ErrAuthRequired.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects requests whose caller is not an administrator.
func (a *API) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u := callerFromContext(r.Context())
		if u == nil {
			writeError(w, http.StatusUnauthorized, ErrAuthRequired.Error())
			return
		}
		if u.Role != session.RoleAdmin {
			a.audit.logFailure(AuditAccessDenied, r, "admin required",
				slog.String("user_id", u.ID),
				slog.String("path", r.URL.Path))
			writeError(w, http.StatusForbidden, ErrAdminRequired.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SecurityHeaders is middleware that sets standard security response headers
// on every response. It should be placed early in the middleware chain.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}
