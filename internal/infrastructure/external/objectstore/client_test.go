package objectstore

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/shared"
)

func testClientConfig(baseURL string) ClientConfig {
	cfg := DefaultClientConfig(baseURL)
	cfg.BucketID = "curricula"
	cfg.RateLimiterConfig = RateLimiterConfig{
		RequestsPerSecond: 1000,
		BurstSize:         1000,
		MinInterval:       0,
		WaitTimeout:       time.Second,
		RetryAfter:        time.Millisecond,
	}
	cfg.RetryConfig = RetryConfig{
		MaxRetries:        2,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
	return cfg
}

func TestClientFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/storage/buckets/curricula/files/file-1/download", r.URL.Path)
		assert.Equal(t, "proj", r.Header.Get("X-Project-ID"))
		assert.Equal(t, "key", r.Header.Get("X-API-Key"))
		w.Write([]byte(`{"entries":[]}`))
	}))
	defer srv.Close()

	cfg := testClientConfig(srv.URL)
	cfg.ProjectID = "proj"
	cfg.APIKey = "key"
	client := NewClient(cfg)

	data, err := client.Fetch(context.Background(), "file-1")
	require.NoError(t, err)
	assert.Equal(t, `{"entries":[]}`, string(data))
}

func TestClientFetchNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(testClientConfig(srv.URL))

	_, err := client.Fetch(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	// A 404 must not trip the breaker
	assert.Equal(t, CircuitClosed, client.circuitBreaker.State())
}

func TestClientFetchEmptyID(t *testing.T) {
	client := NewClient(testClientConfig("http://localhost:1"))

	_, err := client.Fetch(context.Background(), "  ")
	require.Error(t, err)
	assert.True(t, shared.IsValidation(err))
}

func TestClientFetchRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("payload"))
	}))
	defer srv.Close()

	client := NewClient(testClientConfig(srv.URL))

	data, err := client.Fetch(context.Background(), "flaky")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
	assert.Equal(t, int32(3), calls.Load())
}

func TestClientFetchExhaustsRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(testClientConfig(srv.URL))

	_, err := client.Fetch(context.Background(), "down")
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrUpstreamUnavailable)
}

func TestClientFetchSizeCap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, 2048))
	}))
	defer srv.Close()

	cfg := testClientConfig(srv.URL)
	cfg.MaxObjectBytes = 1024
	client := NewClient(cfg)

	_, err := client.Fetch(context.Background(), "huge")
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrValueOutOfRange)
}

func TestCircuitBreakerTransitions(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold:   2,
		SuccessThreshold:   1,
		Timeout:            10 * time.Millisecond,
		HalfOpenMaxRetries: 1,
	})

	require.NoError(t, cb.Allow())
	cb.RecordFailure()
	cb.RecordFailure()
	assert.Equal(t, CircuitOpen, cb.State())
	assert.ErrorIs(t, cb.Allow(), ErrCircuitOpen)

	time.Sleep(15 * time.Millisecond)
	require.NoError(t, cb.Allow())
	assert.Equal(t, CircuitHalfOpen, cb.State())

	cb.RecordSuccess()
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestRateLimiterBurstThenBlock(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		RequestsPerSecond: 0.001,
		BurstSize:         2,
		MinInterval:       0,
		WaitTimeout:       time.Millisecond,
	})

	assert.True(t, rl.TryAllow())
	assert.True(t, rl.TryAllow())
	assert.False(t, rl.TryAllow())

	rl.Reset()
	assert.True(t, rl.TryAllow())
}

func TestRetryBackoffGrowth(t *testing.T) {
	cfg := RetryConfig{
		MaxRetries:        5,
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        time.Second,
		BackoffMultiplier: 2.0,
	}

	first := cfg.CalculateBackoff(1)
	second := cfg.CalculateBackoff(2)
	assert.Greater(t, second, first)
	assert.LessOrEqual(t, cfg.CalculateBackoff(10), time.Second)
}
