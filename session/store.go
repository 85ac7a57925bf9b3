package session

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmcleod/eventdesk/storage"
)

const (
	// Bucket is the storage bucket holding browser-local state.
	Bucket = "local"
	// Key is the fixed key of the persisted session record.
	Key = "session"
)

// Store reads and writes the single persisted session. It never caches:
// every Read goes to the repository so it reflects the latest completed
// write.
type Store struct {
	repo   storage.Repository
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used to report persistence failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithClock overrides the clock used to stamp LoginTime.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates a session store backed by repo.
func NewStore(repo storage.Repository, opts ...Option) *Store {
	s := &Store{
		repo:   repo,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "session")
	return s
}

// Create persists id as the current session, replacing any existing one.
// A persistence failure is logged and returned; it never panics.
func (s *Store) Create(id Identity) error {
	sess := Session{
		UserID:    id.ID,
		FullName:  id.FullName,
		Email:     id.Email,
		Role:      id.Role,
		LoginTime: s.now().UTC(),
	}
	data, err := json.Marshal(sess)
	if err != nil {
		s.logger.Error("encoding session failed", "error", err)
		return fmt.Errorf("encoding session: %w", err)
	}
	if err := s.repo.Put(Bucket, Key, data); err != nil {
		s.logger.Error("creating session failed", "error", err)
		return fmt.Errorf("persisting session: %w", err)
	}
	s.logger.Info("session created",
		slog.String("user_id", sess.UserID),
		slog.String("role", string(sess.Role)))
	return nil
}

// Read returns the current session. A missing key, unparseable data, or a
// failed read all yield false; corrupt data is logged, not returned. A
// loginTime that is not RFC 3339 makes the record unparseable.
func (s *Store) Read() (Session, bool) {
	data, err := s.repo.Get(Bucket, Key)
	if err != nil {
		if !storage.IsNotFound(err) {
			s.logger.Warn("reading session failed", "error", err)
		}
		return Session{}, false
	}
	var sess *Session
	if err := json.Unmarshal(data, &sess); err != nil {
		s.logger.Warn("discarding unparseable session", "error", err)
		return Session{}, false
	}
	if sess == nil {
		return Session{}, false
	}
	return *sess, true
}

// Destroy removes the current session. Destroying an absent session
// succeeds.
func (s *Store) Destroy() error {
	err := s.repo.Delete(Bucket, Key)
	if err != nil && !storage.IsNotFound(err) {
		s.logger.Error("destroying session failed", "error", err)
		return fmt.Errorf("removing session: %w", err)
	}
	s.logger.Info("session destroyed")
	return nil
}

// IsAuthenticated reports whether a session is present.
func (s *Store) IsAuthenticated() bool {
	_, ok := s.Read()
	return ok
}

// IsAdmin reports whether a session is present and has the admin role.
func (s *Store) IsAdmin() bool {
	sess, ok := s.Read()
	return ok && sess.IsAdmin()
}
