package validate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmail(t *testing.T) {
	valid := []string{"ada@example.com", " ada@example.com ", "a.b+c@sub.example.org"}
	for _, e := range valid {
		assert.NoError(t, Email(e), e)
	}

	invalid := []string{"", "ada", "ada@", "@example.com", "ada@example", "ada@example.", "a da@example.com", "Ada <ada@example.com>"}
	for _, e := range invalid {
		assert.ErrorIs(t, Email(e), ErrInvalidEmail, e)
	}
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "ada@example.com", NormalizeEmail("  Ada@Example.COM "))
	assert.Equal(t, "ada@example.com", NormalizeEmail("ａｄａ@example.com"))
}

func TestPassword(t *testing.T) {
	assert.ErrorIs(t, Password(""), ErrPasswordTooShort)
	assert.ErrorIs(t, Password("12345"), ErrPasswordTooShort)
	assert.NoError(t, Password("123456"))
}

func TestName(t *testing.T) {
	assert.ErrorIs(t, Name(" a "), ErrNameTooShort)
	assert.NoError(t, Name("Al"))
	assert.NoError(t, Name("Zoë"))
}

func TestRequired(t *testing.T) {
	err := Required("Event name", "   ")
	require.Error(t, err)
	var reqErr *RequiredError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, "Event name", reqErr.Field)
	assert.EqualError(t, err, "Event name is required")

	assert.NoError(t, Required("Event name", "Go Meetup"))
}

func TestEventDate(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 30, 0, 0, time.UTC)

	assert.NoError(t, EventDate(time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), now), "today counts")
	assert.NoError(t, EventDate(now.AddDate(0, 1, 0), now))
	assert.ErrorIs(t, EventDate(time.Date(2026, 3, 13, 23, 59, 0, 0, time.UTC), now), ErrPastDate)

	var reqErr *RequiredError
	assert.ErrorAs(t, EventDate(time.Time{}, now), &reqErr)
}

func TestCapacity(t *testing.T) {
	for _, n := range []int{1, 50, MaxCapacity} {
		assert.NoError(t, Capacity(n), n)
	}
	for _, n := range []int{-1, 0, MaxCapacity + 1} {
		assert.ErrorIs(t, Capacity(n), ErrInvalidCapacity, n)
	}
}
