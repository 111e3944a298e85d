package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDaily_Next(t *testing.T) {
	trigger := Daily{Hour: 6, Minute: 0}

	// Before today's firing time: fires later today.
	after := time.Date(2026, 8, 31, 3, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 8, 31, 6, 0, 0, 0, time.UTC), trigger.Next(after))

	// Exactly at the firing time: strictly after, so tomorrow.
	after = time.Date(2026, 8, 31, 6, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 9, 1, 6, 0, 0, 0, time.UTC), trigger.Next(after))

	// Past today's firing time: tomorrow.
	after = time.Date(2026, 8, 31, 18, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 9, 1, 6, 0, 0, 0, time.UTC), trigger.Next(after))
}

func TestDaily_Next_NonUTCInput(t *testing.T) {
	trigger := Daily{Hour: 6, Minute: 0}

	// 03:00 UTC expressed in UTC+2; the schedule stays on the UTC clock.
	loc := time.FixedZone("CEST", 2*60*60)
	after := time.Date(2026, 8, 31, 5, 0, 0, 0, loc)
	assert.Equal(t, time.Date(2026, 8, 31, 6, 0, 0, 0, time.UTC), trigger.Next(after))
}

func TestDaily_Next_MonthRollover(t *testing.T) {
	trigger := Daily{Hour: 6, Minute: 0}
	after := time.Date(2026, 2, 28, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC), trigger.Next(after))
}

func TestWeekly_Next(t *testing.T) {
	trigger := Weekly{Weekday: time.Monday, Hour: 9, Minute: 0}

	// 2026-08-31 is a Monday.
	after := time.Date(2026, 8, 31, 3, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC), trigger.Next(after))

	// Already past Monday 09:00: next week.
	after = time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 9, 7, 9, 0, 0, 0, time.UTC), trigger.Next(after))

	// Mid-week: upcoming Monday.
	after = time.Date(2026, 9, 2, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 9, 7, 9, 0, 0, 0, time.UTC), trigger.Next(after))

	// Exactly at the firing time: strictly after, so next week.
	after = time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 9, 7, 9, 0, 0, 0, time.UTC), trigger.Next(after))
}

func TestTrigger_String(t *testing.T) {
	assert.Equal(t, "daily at 06:00 UTC", Daily{Hour: 6}.String())
	assert.Equal(t, "weekly on Monday at 09:00 UTC", Weekly{Weekday: time.Monday, Hour: 9}.String())
}
