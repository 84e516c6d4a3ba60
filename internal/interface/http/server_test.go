package http

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterAllowAndRefill(t *testing.T) {
	rl := newRateLimiter(2, time.Hour)
	defer rl.stop()

	assert.True(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("1.2.3.4"))
	assert.False(t, rl.Allow("1.2.3.4"))

	// Other keys carry their own bucket.
	assert.True(t, rl.Allow("5.6.7.8"))
}

func TestRateLimiterStop(t *testing.T) {
	rl := newRateLimiter(1, time.Minute)

	rl.stop()
	// Idempotent; a second stop must not panic on the closed channel.
	rl.stop()
}
