package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInISOWeek(t *testing.T) {
	// 2026-03-10 is a Tuesday in ISO week 11.
	tue := time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)
	assert.True(t, InISOWeek(tue, 2026, 11))
	assert.False(t, InISOWeek(tue, 2026, 12))
	assert.False(t, InISOWeek(tue, 2025, 11))

	// 2027-01-01 is a Friday belonging to ISO week 53 of 2026.
	newYear := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.True(t, InISOWeek(newYear, 2026, 53))
	assert.False(t, InISOWeek(newYear, 2027, 1))
}

func TestISOWeekOf(t *testing.T) {
	y, w := ISOWeekOf(time.Date(2026, 3, 10, 23, 59, 0, 0, time.UTC))
	assert.Equal(t, 2026, y)
	assert.Equal(t, 11, w)

	// Non-UTC input is normalized before bucketing.
	offset := time.FixedZone("ahead", 10*3600)
	y, w = ISOWeekOf(time.Date(2026, 3, 16, 2, 0, 0, 0, offset)) // Monday 02:00 +10 = Sunday 16:00 UTC
	assert.Equal(t, 2026, y)
	assert.Equal(t, 11, w)
}

func TestStartOfDay(t *testing.T) {
	got := StartOfDay(time.Date(2026, 3, 10, 14, 30, 45, 123, time.UTC))
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), got)
}

func TestDaysSince(t *testing.T) {
	assert.Equal(t, 0, DaysSince(Now()))
	// Day boundaries, not 24-hour spans: three calendar days back is three
	// days regardless of the current time of day.
	assert.Equal(t, 3, DaysSince(Now().AddDate(0, 0, -3)))
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "2026-03-10", FormatDate(time.Date(2026, 3, 10, 23, 59, 0, 0, time.UTC)))

	offset := time.FixedZone("ahead", 10*3600)
	assert.Equal(t, "2026-03-15", FormatDate(time.Date(2026, 3, 16, 2, 0, 0, 0, offset)))
}
