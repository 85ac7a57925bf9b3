package backend

import (
	"log/slog"
	"net/http"
	"time"
)

// AuditEvent identifies the type of action being logged.
type AuditEvent string

const (
	AuditLoginSuccess        AuditEvent = "login_success"
	AuditLoginFailure        AuditEvent = "login_failure"
	AuditUserCreated         AuditEvent = "user_created"
	AuditAdminBootstrapped   AuditEvent = "admin_bootstrapped"
	AuditAccessDenied        AuditEvent = "access_denied"
	AuditEventCreated        AuditEvent = "event_created"
	AuditEventUpdated        AuditEvent = "event_updated"
	AuditEventDeleted        AuditEvent = "event_deleted"
	AuditRegistrationCreated AuditEvent = "registration_created"
	AuditRegistrationDeleted AuditEvent = "registration_deleted"
)

// auditLogger wraps slog.Logger for structured audit logging.
type auditLogger struct {
	logger  *slog.Logger
	metrics *metrics
}

func newAuditLogger(logger *slog.Logger) *auditLogger {
	return &auditLogger{
		logger: logger.With("component", "audit"),
	}
}

// log writes a structured audit log entry. r may be nil for events that do
// not originate from a request.
func (al *auditLogger) log(event AuditEvent, r *http.Request, attrs ...slog.Attr) {
	baseAttrs := []slog.Attr{
		slog.String("event", string(event)),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}
	ctx := contextOf(r)
	if r != nil {
		baseAttrs = append(baseAttrs, slog.String("remote_addr", r.RemoteAddr))
	}
	baseAttrs = append(baseAttrs, attrs...)

	al.logger.LogAttrs(ctx, slog.LevelInfo, "audit", baseAttrs...)
	al.metrics.recordAudit(event)
}

// logEvent is a convenience for events performed by a known user.
func (al *auditLogger) logEvent(event AuditEvent, r *http.Request, userID string, extra ...slog.Attr) {
	attrs := []slog.Attr{
		slog.String("user_id", userID),
	}
	attrs = append(attrs, extra...)
	al.log(event, r, attrs...)
}

// logFailure logs a rejected attempt.
func (al *auditLogger) logFailure(event AuditEvent, r *http.Request, reason string, extra ...slog.Attr) {
	attrs := []slog.Attr{
		slog.String("reason", reason),
	}
	attrs = append(attrs, extra...)
	al.log(event, r, attrs...)
}
