// Package retry provides bounded retry with exponential backoff and jitter.
// Its main consumer is the continuity writer, which retries optimistic-lock
// conflicts on the student+course row a few times before giving up.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// RetryableError marks an error as worth another attempt.
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retryable wraps err so the retrier will attempt again.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// IsRetryable reports whether err was marked with Retryable.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

// PermanentError marks an error as final.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err so the retrier stops immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

// Config controls attempt count and backoff shape.
type Config struct {
	// MaxAttempts counts the first try too.
	MaxAttempts int

	// InitialDelay is the sleep before the second attempt; each further
	// attempt multiplies it by Multiplier, capped at MaxDelay.
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64

	// JitterFactor spreads each delay by up to +/- this fraction.
	JitterFactor float64
}

// Retrier executes operations under a Config.
type Retrier struct {
	cfg Config
}

// New returns a Retrier for the given config, filling zero fields with
// defaults (3 attempts, 100ms initial, 30s cap, x2, 10% jitter).
func New(cfg Config) *Retrier {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = 100 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 30 * time.Second
	}
	if cfg.Multiplier < 1.0 {
		cfg.Multiplier = 2.0
	}
	if cfg.JitterFactor < 0 || cfg.JitterFactor > 1.0 {
		cfg.JitterFactor = 0.1
	}
	return &Retrier{cfg: cfg}
}

// ConflictRetrier is tuned for optimistic-lock write conflicts. Contention
// is scoped to a single student+course pair, so a few fast attempts are
// enough.
func ConflictRetrier() *Retrier {
	return New(Config{
		MaxAttempts:  3,
		InitialDelay: 25 * time.Millisecond,
		MaxDelay:     500 * time.Millisecond,
		Multiplier:   2.0,
		JitterFactor: 0.2,
	})
}

// Do runs op until it succeeds, returns a permanent error, returns an
// unmarked error, or attempts run out. Only errors wrapped with Retryable
// trigger another attempt; the marker wrappers are stripped from the
// returned error.
func (r *Retrier) Do(ctx context.Context, op func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}

		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if IsPermanent(err) {
			return errors.Unwrap(err)
		}
		if !IsRetryable(err) {
			return err
		}
		if attempt == r.cfg.MaxAttempts {
			return errors.Unwrap(err)
		}

		select {
		case <-ctx.Done():
			return lastErr
		case <-time.After(r.delay(attempt)):
		}
	}

	return lastErr
}

func (r *Retrier) delay(attempt int) time.Duration {
	d := float64(r.cfg.InitialDelay) * math.Pow(r.cfg.Multiplier, float64(attempt-1))
	if d > float64(r.cfg.MaxDelay) {
		d = float64(r.cfg.MaxDelay)
	}
	if r.cfg.JitterFactor > 0 {
		d += d * r.cfg.JitterFactor * (rand.Float64()*2 - 1)
	}
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}
