package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/eventdesk/storage/memory"
)

func TestMemory_PushBackForward(t *testing.T) {
	h := NewMemory("/login")
	h.Push("/events")
	h.Push("/my-events")
	assert.Equal(t, "/my-events", h.Location())

	var popped []string
	h.Subscribe(func(p string) { popped = append(popped, p) })

	require.True(t, h.Back())
	assert.Equal(t, "/events", h.Location())
	require.True(t, h.Back())
	assert.Equal(t, "/login", h.Location())
	assert.False(t, h.Back())

	require.True(t, h.Forward())
	assert.Equal(t, "/events", h.Location())

	assert.Equal(t, []string{"/events", "/login", "/events"}, popped)
}

func TestMemory_PushTruncatesForward(t *testing.T) {
	h := NewMemory("/login")
	h.Push("/events")
	h.Push("/my-events")
	h.Back()
	h.Push("/admin")

	entries, idx := h.Entries()
	assert.Equal(t, []string{"/login", "/events", "/admin"}, entries)
	assert.Equal(t, 2, idx)
	assert.False(t, h.CanGoForward())
}

func TestMemory_Replace(t *testing.T) {
	h := NewMemory("/login")
	h.Push("/admin")
	h.Replace("/events")

	entries, _ := h.Entries()
	assert.Equal(t, []string{"/login", "/events"}, entries)
}

func TestMemory_Unsubscribe(t *testing.T) {
	h := NewMemory("/login")
	h.Push("/events")

	calls := 0
	cancel := h.Subscribe(func(string) { calls++ })
	cancel()
	h.Back()
	assert.Zero(t, calls)
}

func TestMemory_ListenerMayNavigate(t *testing.T) {
	h := NewMemory("/login")
	h.Push("/admin")
	h.Push("/events")

	// A listener that rewrites the entry it was popped to, as the router
	// does after a redirect.
	h.Subscribe(func(p string) {
		if p == "/admin" {
			h.Replace("/events")
		}
	})
	h.Back()

	entries, idx := h.Entries()
	assert.Equal(t, []string{"/login", "/events", "/events"}, entries)
	assert.Equal(t, 1, idx)
}

func TestMemory_DefaultsToRoot(t *testing.T) {
	assert.Equal(t, "/", NewMemory("").Location())
}

func TestMemory_RestoresLocation(t *testing.T) {
	repo := memory.NewRepository()

	h := NewMemory("/", WithStore(repo))
	h.Push("/my-events")

	reloaded := NewMemory("/", WithStore(repo))
	assert.Equal(t, "/my-events", reloaded.Location())
	assert.False(t, reloaded.CanGoBack())
}
