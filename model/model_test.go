package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var now = time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)

func TestEvent_CapacityPercent(t *testing.T) {
	assert.Equal(t, 0, Event{MaxCapacity: 0, CurrentAttendees: 3}.CapacityPercent())
	assert.Equal(t, 33, Event{MaxCapacity: 3, CurrentAttendees: 1}.CapacityPercent())
	assert.Equal(t, 67, Event{MaxCapacity: 3, CurrentAttendees: 2}.CapacityPercent())
	assert.Equal(t, 100, Event{MaxCapacity: 10, CurrentAttendees: 10}.CapacityPercent())
}

func TestEvent_DaysUntil(t *testing.T) {
	assert.Equal(t, 0, Event{Date: "2026-05-01"}.DaysUntil(now))
	assert.Equal(t, 7, Event{Date: "2026-05-08"}.DaysUntil(now))
	assert.Equal(t, -1, Event{Date: "2026-04-30"}.DaysUntil(now))
}

func TestEvent_BadgeAt(t *testing.T) {
	tests := []struct {
		name  string
		event Event
		want  Badge
	}{
		{"Full", Event{Date: "2026-09-01", MaxCapacity: 10, CurrentAttendees: 10}, BadgeFull},
		{"FullBeatsSoon", Event{Date: "2026-05-02", MaxCapacity: 1, CurrentAttendees: 1}, BadgeFull},
		{"AlmostFull", Event{Date: "2026-09-01", MaxCapacity: 10, CurrentAttendees: 8}, BadgeAlmostFull},
		{"ComingSoon", Event{Date: "2026-05-08", MaxCapacity: 10, CurrentAttendees: 1}, BadgeComingSoon},
		{"Today", Event{Date: "2026-05-01", MaxCapacity: 10}, BadgeComingSoon},
		{"Past", Event{Date: "2026-04-01", MaxCapacity: 10}, BadgePast},
		{"Plain", Event{Date: "2026-05-09", MaxCapacity: 10, CurrentAttendees: 7}, BadgeNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.event.BadgeAt(now))
		})
	}
}

func TestCategory_Valid(t *testing.T) {
	for _, c := range Categories {
		assert.True(t, c.Valid(), c)
	}
	assert.False(t, Category("party").Valid())
}

func TestUser_Identity(t *testing.T) {
	u := User{ID: "u-1", FullName: "Ada", Email: "ada@example.com", Role: "admin"}
	id := u.Identity()
	assert.Equal(t, "u-1", id.ID)
	assert.Equal(t, u.Role, id.Role)
}
