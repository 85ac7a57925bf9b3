// Package history provides an in-process browser history: a stack of
// visited paths with back/forward movement and pop notifications.
package history

import (
	"log/slog"

	"github.com/jmcleod/eventdesk/storage"
)

const (
	// Bucket is the storage bucket holding browser-local state.
	Bucket = "local"
	// Key is where the current location is remembered between runs.
	Key = "location"
)

type listener struct {
	id int
	fn func(path string)
}

// Memory is a history stack. Push truncates any forward entries, like a
// browser does when the user navigates after going back.
type Memory struct {
	entries   []string
	index     int
	listeners []listener
	nextID    int
	repo      storage.Repository
	logger    *slog.Logger
}

// Option configures a Memory history.
type Option func(*Memory)

// WithStore remembers the current location in repo so that a new Memory
// starts where the last one left off, like a page reload.
func WithStore(repo storage.Repository) Option {
	return func(m *Memory) {
		m.repo = repo
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Memory) {
		m.logger = logger
	}
}

// NewMemory creates a history whose single entry is initial, or the
// remembered location when a store is configured and holds one.
func NewMemory(initial string, opts ...Option) *Memory {
	m := &Memory{logger: slog.Default()}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With("component", "history")
	if m.repo != nil {
		data, err := m.repo.Get(Bucket, Key)
		switch {
		case err == nil && len(data) > 0:
			initial = string(data)
		case err != nil && !storage.IsNotFound(err):
			m.logger.Warn("restoring location failed", "error", err)
		}
	}
	if initial == "" {
		initial = "/"
	}
	m.entries = []string{initial}
	return m
}

// Push adds path after the current entry and drops any forward entries.
func (m *Memory) Push(path string) {
	m.entries = append(m.entries[:m.index+1], path)
	m.index = len(m.entries) - 1
	m.persist()
}

// Replace overwrites the current entry.
func (m *Memory) Replace(path string) {
	m.entries[m.index] = path
	m.persist()
}

// Location returns the current entry.
func (m *Memory) Location() string {
	return m.entries[m.index]
}

// Entries returns a copy of the stack and the index of the current entry.
func (m *Memory) Entries() ([]string, int) {
	return append([]string(nil), m.entries...), m.index
}

// CanGoBack reports whether Back would move.
func (m *Memory) CanGoBack() bool {
	return m.index > 0
}

// CanGoForward reports whether Forward would move.
func (m *Memory) CanGoForward() bool {
	return m.index < len(m.entries)-1
}

// Back moves one entry back and notifies subscribers. It reports false
// when already at the oldest entry.
func (m *Memory) Back() bool {
	if !m.CanGoBack() {
		return false
	}
	m.index--
	m.pop()
	return true
}

// Forward moves one entry forward and notifies subscribers. It reports
// false when already at the newest entry.
func (m *Memory) Forward() bool {
	if !m.CanGoForward() {
		return false
	}
	m.index++
	m.pop()
	return true
}

// Subscribe registers fn for back/forward moves.
func (m *Memory) Subscribe(fn func(path string)) (cancel func()) {
	id := m.nextID
	m.nextID++
	m.listeners = append(m.listeners, listener{id: id, fn: fn})
	return func() {
		for i, l := range m.listeners {
			if l.id == id {
				m.listeners = append(m.listeners[:i], m.listeners[i+1:]...)
				return
			}
		}
	}
}

func (m *Memory) pop() {
	m.persist()
	path := m.Location()
	// Listeners may navigate, which can Push or Replace; iterate a copy.
	for _, l := range append([]listener(nil), m.listeners...) {
		l.fn(path)
	}
}

func (m *Memory) persist() {
	if m.repo == nil {
		return
	}
	if err := m.repo.Put(Bucket, Key, []byte(m.Location())); err != nil {
		m.logger.Warn("remembering location failed", "error", err)
	}
}
