// Package objectstore implements the blob storage client used to fetch
// curriculum payloads that were too large to inline in the database.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// RATE LIMITER
// ══════════════════════════════════════════════════════════════════════════════

// RateLimiterConfig tunes the token bucket in front of the object store.
type RateLimiterConfig struct {
	// RequestsPerSecond is the sustained rate the bucket refills at.
	RequestsPerSecond float64

	// BurstSize is the bucket capacity.
	BurstSize int

	// MinInterval spaces out requests even while tokens remain.
	MinInterval time.Duration

	// WaitTimeout bounds how long Allow blocks for a token.
	WaitTimeout time.Duration

	// RetryAfter is the fallback pause when the upstream rate-limits us
	// without naming its own.
	RetryAfter time.Duration
}

// DefaultRateLimiterConfig is tuned for a managed object store. Blob reads
// are cheap upstream, so the sustained rate runs well above what a scraper
// against a public site could afford.
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		RequestsPerSecond: 10.0,
		BurstSize:         20,
		MinInterval:       20 * time.Millisecond,
		WaitTimeout:       10 * time.Second,
		RetryAfter:        30 * time.Second,
	}
}

// RateLimiter is a token bucket guarding outbound blob fetches. Curriculum
// resolution can fan out into many fetches at once, so the bucket keeps bulk
// work from tripping upstream limits.
type RateLimiter struct {
	mu sync.Mutex

	capacity   float64
	rate       float64
	level      float64
	refilledAt time.Time

	minGap    time.Duration
	lastGrant time.Time

	waitCap   time.Duration
	retryHint time.Duration

	// strikes counts grants denied in a row and drives the backoff.
	strikes int
}

// NewRateLimiter builds a limiter starting with a full bucket.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	now := time.Now()
	return &RateLimiter{
		capacity:   float64(config.BurstSize),
		rate:       config.RequestsPerSecond,
		level:      float64(config.BurstSize),
		refilledAt: now,
		minGap:     config.MinInterval,
		lastGrant:  now.Add(-config.MinInterval),
		waitCap:    config.WaitTimeout,
		retryHint:  config.RetryAfter,
	}
}

// RateLimitError reports a denied grant together with a suggested pause.
type RateLimitError struct {
	RetryAfter time.Duration
	Message    string
}

func (e *RateLimitError) Error() string {
	return e.Message
}

// Allow blocks until a token is granted, the context ends, or the wait
// budget runs out.
func (rl *RateLimiter) Allow(ctx context.Context) error {
	deadline := time.Now().Add(rl.waitCap)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		delay, ok := rl.reserve()
		if ok {
			return nil
		}
		if time.Now().Add(delay).After(deadline) {
			return &RateLimitError{
				RetryAfter: delay,
				Message:    fmt.Sprintf("rate limit exceeded, retry after %s", delay),
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// TryAllow grants a token if one is available right now.
func (rl *RateLimiter) TryAllow() bool {
	_, ok := rl.reserve()
	return ok
}

// reserve takes a token or reports how long to wait before asking again.
func (rl *RateLimiter) reserve() (time.Duration, bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refill()

	if gap := time.Since(rl.lastGrant); gap < rl.minGap {
		return rl.minGap - gap, false
	}

	if rl.level < 1.0 {
		wait := time.Duration((1.0 - rl.level) / rl.rate * float64(time.Second))
		// Denials in a row double the wait, capped at 32x.
		wait <<= uint(min(rl.strikes, 5))
		rl.strikes++
		return wait, false
	}

	rl.level--
	rl.lastGrant = time.Now()
	rl.strikes = 0
	return 0, true
}

// refill tops up the bucket for the time elapsed. Caller holds the lock.
func (rl *RateLimiter) refill() {
	now := time.Now()
	if elapsed := now.Sub(rl.refilledAt).Seconds(); elapsed > 0 {
		rl.level = min(rl.level+elapsed*rl.rate, rl.capacity)
		rl.refilledAt = now
	}
}

// RecordRateLimitHit reacts to an upstream 429: the bucket drains, the
// sustained rate drops by a fifth, and the upstream's own retry hint
// replaces ours when it sent one.
func (rl *RateLimiter) RecordRateLimitHit(retryAfter time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.level = 0
	if retryAfter > 0 {
		rl.retryHint = retryAfter
	}
	rl.rate *= 0.8
	rl.lastGrant = time.Now()
	rl.strikes++
}

// Reset refills the bucket and clears the backoff state.
func (rl *RateLimiter) Reset() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.level = rl.capacity
	rl.refilledAt = time.Now()
	rl.lastGrant = time.Now().Add(-rl.minGap)
	rl.strikes = 0
}

// RateLimiterStatus is a diagnostic snapshot of the limiter.
type RateLimiterStatus struct {
	AvailableTokens  float64
	MaxTokens        float64
	RefillRate       float64
	LastRefill       time.Time
	LastRequest      time.Time
	ConsecutiveWaits int
}

// Status snapshots the limiter after a refill.
func (rl *RateLimiter) Status() RateLimiterStatus {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refill()

	return RateLimiterStatus{
		AvailableTokens:  rl.level,
		MaxTokens:        rl.capacity,
		RefillRate:       rl.rate,
		LastRefill:       rl.refilledAt,
		LastRequest:      rl.lastGrant,
		ConsecutiveWaits: rl.strikes,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CIRCUIT BREAKER
// ══════════════════════════════════════════════════════════════════════════════

// CircuitState is the breaker position.
type CircuitState int

const (
	// CircuitClosed passes requests through.
	CircuitClosed CircuitState = iota

	// CircuitOpen fails requests fast.
	CircuitOpen

	// CircuitHalfOpen lets a few probes through to test recovery.
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig tunes the breaker thresholds.
type CircuitBreakerConfig struct {
	// FailureThreshold opens the circuit after this many failures.
	FailureThreshold int

	// SuccessThreshold closes a half-open circuit after this many successes.
	SuccessThreshold int

	// Timeout is how long an open circuit holds before probing.
	Timeout time.Duration

	// HalfOpenMaxRetries caps concurrent probes while half-open.
	HalfOpenMaxRetries int
}

// DefaultCircuitBreakerConfig returns sensible defaults.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold:   5,
		SuccessThreshold:   2,
		Timeout:            30 * time.Second,
		HalfOpenMaxRetries: 3,
	}
}

// CircuitBreaker fails blob fetches fast while the object store is down,
// so curriculum resolution falls back instead of stacking blocked requests.
type CircuitBreaker struct {
	mu  sync.RWMutex
	cfg CircuitBreakerConfig

	state       CircuitState
	failures    int
	successes   int
	probes      int
	lastFailure time.Time
	changedAt   time.Time
}

// NewCircuitBreaker builds a breaker in the closed state.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{
		cfg:       config,
		state:     CircuitClosed,
		changedAt: time.Now(),
	}
}

// ErrCircuitOpen is returned while the breaker refuses requests.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Allow reports whether a request may go out, moving an expired open
// circuit to half-open on the way.
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitOpen:
		if time.Since(cb.changedAt) <= cb.cfg.Timeout {
			return ErrCircuitOpen
		}
		cb.transition(CircuitHalfOpen)
		return nil

	case CircuitHalfOpen:
		if cb.probes >= cb.cfg.HalfOpenMaxRetries {
			return ErrCircuitOpen
		}
		cb.probes++
		return nil

	default:
		return nil
	}
}

// RecordSuccess counts a success toward closing a half-open circuit.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitHalfOpen:
		cb.successes++
		if cb.successes >= cb.cfg.SuccessThreshold {
			cb.transition(CircuitClosed)
		}
	case CircuitClosed:
		cb.failures = 0
	}
}

// RecordFailure counts a failure; enough of them open the circuit, and any
// failure during a half-open probe reopens it immediately.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailure = time.Now()

	switch cb.state {
	case CircuitClosed:
		if cb.failures >= cb.cfg.FailureThreshold {
			cb.transition(CircuitOpen)
		}
	case CircuitHalfOpen:
		cb.transition(CircuitOpen)
	}
}

// State returns the breaker position.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// Reset forces the breaker closed.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.transition(CircuitClosed)
}

// transition moves the breaker and clears per-state counters. Caller holds
// the lock.
func (cb *CircuitBreaker) transition(to CircuitState) {
	cb.state = to
	cb.successes = 0
	cb.probes = 0
	if to == CircuitClosed {
		cb.failures = 0
	}
	cb.changedAt = time.Now()
}

// CircuitBreakerStatus is a diagnostic snapshot of the breaker.
type CircuitBreakerStatus struct {
	State           CircuitState
	Failures        int
	Successes       int
	LastFailureTime time.Time
	LastStateChange time.Time
}

// Status snapshots the breaker.
func (cb *CircuitBreaker) Status() CircuitBreakerStatus {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	return CircuitBreakerStatus{
		State:           cb.state,
		Failures:        cb.failures,
		Successes:       cb.successes,
		LastFailureTime: cb.lastFailure,
		LastStateChange: cb.changedAt,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// RETRY BACKOFF
// ══════════════════════════════════════════════════════════════════════════════

// RetryConfig describes the backoff between failed fetch attempts.
type RetryConfig struct {
	// MaxRetries caps the number of attempts after the first.
	MaxRetries int

	// InitialBackoff is the first pause.
	InitialBackoff time.Duration

	// MaxBackoff caps the pause however many attempts have failed.
	MaxBackoff time.Duration

	// BackoffMultiplier grows the pause per attempt.
	BackoffMultiplier float64

	// Jitter spreads the pause by up to this fraction, 0 to 1.
	Jitter float64
}

// DefaultRetryConfig returns sensible defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:        3,
		InitialBackoff:    250 * time.Millisecond,
		MaxBackoff:        10 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            0.1,
	}
}

// CalculateBackoff returns the pause before the given attempt, with a
// deterministic jitter keyed on the attempt number so retries of distinct
// requests spread out without shared state.
func (c RetryConfig) CalculateBackoff(attempt int) time.Duration {
	if attempt <= 0 {
		return c.InitialBackoff
	}

	pause := float64(c.InitialBackoff)
	for i := 0; i < attempt && pause < float64(c.MaxBackoff); i++ {
		pause *= c.BackoffMultiplier
	}
	pause = min(pause, float64(c.MaxBackoff))

	if c.Jitter > 0 {
		spread := pause * c.Jitter
		pause += spread*float64((attempt*37)%100)/100.0 - spread/2
	}

	return time.Duration(pause)
}
