package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCronExpression(t *testing.T) {
	tests := []struct {
		expr    string
		wantErr bool
	}{
		{"*/5 * * * *", false},
		{"0 21 * * *", false},
		{"0 0 * * 0", false},
		{"15,45 9-17 * * 1-5", false},
		{"* * * *", true},
		{"61 * * * *", true},
		{"* * * * mon", true},
	}

	for _, tt := range tests {
		_, err := ParseCronExpression(tt.expr)
		if tt.wantErr {
			assert.Error(t, err, tt.expr)
		} else {
			assert.NoError(t, err, tt.expr)
		}
	}
}

func TestCronExpression_Next(t *testing.T) {
	ce, err := ParseCronExpression("0 21 * * *")
	require.NoError(t, err)

	after := time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)
	next := ce.Next(after)

	assert.Equal(t, time.Date(2026, 3, 10, 21, 0, 0, 0, time.UTC), next)

	// Already past today's slot, rolls to tomorrow.
	next = ce.Next(time.Date(2026, 3, 10, 21, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2026, 3, 11, 21, 0, 0, 0, time.UTC), next)
}

func TestCronExpression_EveryFiveMinutes(t *testing.T) {
	ce, err := ParseCronExpression("*/5 * * * *")
	require.NoError(t, err)

	after := time.Date(2026, 3, 10, 14, 32, 10, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 10, 14, 35, 0, 0, time.UTC), ce.Next(after))
}

func TestCronExpression_DayFieldsUnionWhenBothRestricted(t *testing.T) {
	// Midnight on the 1st of the month or on Mondays, classic cron union.
	ce, err := ParseCronExpression("0 0 1 * 1")
	require.NoError(t, err)

	// 2026-08-31 is a Monday, fires before the 1st arrives.
	next := ce.Next(time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC), next)

	// Then the 1st, a Tuesday.
	assert.Equal(t, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), ce.Next(next))

	// With day-of-month unrestricted, the weekday alone governs.
	weekly, err := ParseCronExpression("0 0 * * 1")
	require.NoError(t, err)
	next = weekly.Next(time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC), next)
}
