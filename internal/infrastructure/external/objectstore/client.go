package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// ClientConfig contains configuration for the object store client.
type ClientConfig struct {
	// BaseURL is the object store API base URL
	BaseURL string

	// ProjectID identifies the project on the hosting service
	ProjectID string

	// APIKey is the server-side API key
	APIKey string

	// BucketID is the bucket holding curriculum payloads
	BucketID string

	// Timeout bounds each HTTP request
	Timeout time.Duration

	// MaxObjectBytes caps a single downloaded object. Zero means no cap.
	MaxObjectBytes int64

	// RateLimiterConfig throttles outbound fetches
	RateLimiterConfig RateLimiterConfig

	// CircuitBreakerConfig guards against a failing upstream
	CircuitBreakerConfig CircuitBreakerConfig

	// RetryConfig shapes the backoff between attempts
	RetryConfig RetryConfig

	// Logger receives request-level events
	Logger *slog.Logger

	// Debug turns on request-level logging
	Debug bool
}

// DefaultClientConfig pairs the default limiter, breaker, and retry tuning.
func DefaultClientConfig(baseURL string) ClientConfig {
	return ClientConfig{
		BaseURL:              baseURL,
		Timeout:              30 * time.Second,
		MaxObjectBytes:       16 << 20, // 16 MiB
		RateLimiterConfig:    DefaultRateLimiterConfig(),
		CircuitBreakerConfig: DefaultCircuitBreakerConfig(),
		RetryConfig:          DefaultRetryConfig(),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client fetches blob payloads from the object store. It satisfies the
// codec FileStore interface, so the curriculum resolver can hand it blob
// references transparently.
type Client struct {
	config         ClientConfig
	httpClient     *http.Client
	logger         *slog.Logger
	rateLimiter    *RateLimiter
	circuitBreaker *CircuitBreaker
}

// NewClient creates a new object store client.
func NewClient(config ClientConfig) *Client {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger:         config.Logger,
		rateLimiter:    NewRateLimiter(config.RateLimiterConfig),
		circuitBreaker: NewCircuitBreaker(config.CircuitBreakerConfig),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// FETCH OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// Fetch downloads the raw contents of a stored object by its file ID.
func (c *Client) Fetch(ctx context.Context, fileID string) ([]byte, error) {
	if strings.TrimSpace(fileID) == "" {
		return nil, shared.NewDomainError("objectstore", "Fetch", shared.ErrInvalidID, "file ID cannot be empty")
	}

	path := fmt.Sprintf("/v1/storage/buckets/%s/files/%s/download",
		url.PathEscape(c.config.BucketID), url.PathEscape(fileID))

	data, err := c.doRequest(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("fetch object %s: %w", fileID, err)
	}
	return data, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HTTP REQUEST HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// doRequest performs a GET with rate limiting, circuit breaking, and retries.
func (c *Client) doRequest(ctx context.Context, path string) ([]byte, error) {
	if err := c.circuitBreaker.Allow(); err != nil {
		return nil, shared.WrapError("objectstore", "Fetch", shared.ErrUpstreamUnavailable, "circuit breaker open", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.RetryConfig.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.config.RetryConfig.CalculateBackoff(attempt)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		if err := c.rateLimiter.Allow(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		data, err := c.doSingleRequest(ctx, path)
		if err == nil {
			c.circuitBreaker.RecordSuccess()
			return data, nil
		}

		lastErr = err

		if !c.isRetryable(err) {
			// A 404 is a definitive answer, not an upstream fault.
			if !shared.IsNotFound(err) {
				c.circuitBreaker.RecordFailure()
			}
			return nil, err
		}

		var rateLimitErr *RateLimitError
		if errors.As(err, &rateLimitErr) {
			c.rateLimiter.RecordRateLimitHit(rateLimitErr.RetryAfter)
		}
	}

	c.circuitBreaker.RecordFailure()
	return nil, shared.WrapError("objectstore", "Fetch", shared.ErrUpstreamUnavailable,
		fmt.Sprintf("request failed after %d retries", c.config.RetryConfig.MaxRetries), lastErr)
}

// doSingleRequest performs a single download request.
func (c *Client) doSingleRequest(ctx context.Context, path string) ([]byte, error) {
	fullURL := c.config.BaseURL + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "*/*")
	if c.config.ProjectID != "" {
		req.Header.Set("X-Project-ID", c.config.ProjectID)
	}
	if c.config.APIKey != "" {
		req.Header.Set("X-API-Key", c.config.APIKey)
	}

	if c.config.Debug {
		c.logger.Debug("object store request", "path", path)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter := 30 * time.Second
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if seconds, err := strconv.Atoi(ra); err == nil {
				retryAfter = time.Duration(seconds) * time.Second
			}
		}
		return nil, &RateLimitError{
			RetryAfter: retryAfter,
			Message:    "object store rate limit exceeded",
		}

	case resp.StatusCode == http.StatusNotFound:
		return nil, shared.ErrObjectNotFound

	case resp.StatusCode >= 500:
		return nil, &upstreamError{status: resp.StatusCode}

	case resp.StatusCode >= 400:
		return nil, shared.NewDomainError("objectstore", "Fetch", shared.ErrInvalidInput,
			fmt.Sprintf("object store rejected request with status %d", resp.StatusCode))
	}

	reader := io.Reader(resp.Body)
	if c.config.MaxObjectBytes > 0 {
		reader = io.LimitReader(resp.Body, c.config.MaxObjectBytes+1)
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if c.config.MaxObjectBytes > 0 && int64(len(data)) > c.config.MaxObjectBytes {
		return nil, shared.NewDomainError("objectstore", "Fetch", shared.ErrValueOutOfRange,
			fmt.Sprintf("object exceeds size cap of %d bytes", c.config.MaxObjectBytes))
	}

	return data, nil
}

// upstreamError marks 5xx responses so the retry loop can distinguish them
// from client-side mistakes.
type upstreamError struct {
	status int
}

func (e *upstreamError) Error() string {
	return fmt.Sprintf("object store returned status %d", e.status)
}

// isRetryable checks if an error is retryable.
func (c *Client) isRetryable(err error) bool {
	if err == nil {
		return false
	}

	var rateLimitErr *RateLimitError
	if errors.As(err, &rateLimitErr) {
		return true
	}

	var upErr *upstreamError
	if errors.As(err, &upErr) {
		return true
	}

	errStr := err.Error()
	for _, sub := range []string{"timeout", "connection refused", "temporary", "reset", "EOF"} {
		if strings.Contains(errStr, sub) {
			return true
		}
	}
	return false
}

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH AND STATUS
// ══════════════════════════════════════════════════════════════════════════════

// IsHealthy checks if the object store is reachable.
func (c *Client) IsHealthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/v1/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// ClientStatus reports the state of the client's protective layers.
type ClientStatus struct {
	RateLimiter    RateLimiterStatus
	CircuitBreaker CircuitBreakerStatus
	IsHealthy      bool
}

// Status snapshots the limiter and breaker for diagnostics.
func (c *Client) Status(ctx context.Context) ClientStatus {
	return ClientStatus{
		RateLimiter:    c.rateLimiter.Status(),
		CircuitBreaker: c.circuitBreaker.Status(),
		IsHealthy:      c.IsHealthy(ctx),
	}
}

// Reset clears the limiter and breaker, for recovery tooling.
func (c *Client) Reset() {
	c.rateLimiter.Reset()
	c.circuitBreaker.Reset()
}
