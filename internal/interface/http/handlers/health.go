// Package handlers contains HTTP handler support types: health checking,
// authentication, and shared middleware used by the API server.
package handlers

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH CHECKING
// ══════════════════════════════════════════════════════════════════════════════

// HealthChecker aggregates named probes into one status for the health
// endpoints.
type HealthChecker interface {
	Check(ctx context.Context) HealthStatus
	AddCheck(name string, check HealthCheckFunc)
}

// HealthCheckFunc probes one dependency; nil means healthy.
type HealthCheckFunc func(ctx context.Context) error

// HealthStatus is the aggregate answer served on /health and /ready.
type HealthStatus struct {
	Healthy   bool                   `json:"healthy"`
	Ready     bool                   `json:"ready"`
	Message   string                 `json:"message,omitempty"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
	Uptime    string                 `json:"uptime,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version,omitempty"`
}

// CheckResult is one probe's outcome.
type CheckResult struct {
	Healthy     bool      `json:"healthy"`
	Message     string    `json:"message,omitempty"`
	Duration    string    `json:"duration,omitempty"`
	LastChecked time.Time `json:"last_checked,omitempty"`
}

// CompositeHealthChecker runs every registered probe with a per-probe
// timeout. Probes here are cheap pings, so they run sequentially.
type CompositeHealthChecker struct {
	mu        sync.RWMutex
	checks    map[string]HealthCheckFunc
	startTime time.Time
	version   string
	timeout   time.Duration
}

// NewCompositeHealthChecker creates an empty checker stamped with the
// service version.
func NewCompositeHealthChecker(version string) *CompositeHealthChecker {
	return &CompositeHealthChecker{
		checks:    make(map[string]HealthCheckFunc),
		startTime: time.Now(),
		version:   version,
		timeout:   5 * time.Second,
	}
}

// AddCheck registers a probe under name, replacing any previous one.
func (c *CompositeHealthChecker) AddCheck(name string, check HealthCheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// Check runs all probes and aggregates. One failing probe marks the whole
// service unhealthy and not ready.
func (c *CompositeHealthChecker) Check(ctx context.Context) HealthStatus {
	c.mu.RLock()
	names := make([]string, 0, len(c.checks))
	checks := make(map[string]HealthCheckFunc, len(c.checks))
	for name, check := range c.checks {
		names = append(names, name)
		checks[name] = check
	}
	c.mu.RUnlock()
	sort.Strings(names)

	status := HealthStatus{
		Healthy:   true,
		Ready:     true,
		Checks:    make(map[string]CheckResult),
		Uptime:    time.Since(c.startTime).Round(time.Second).String(),
		Timestamp: time.Now().UTC(),
		Version:   c.version,
	}

	if len(names) == 0 {
		status.Message = "no health checks registered"
		return status
	}

	var failed []string
	for _, name := range names {
		result := c.runCheck(ctx, checks[name])
		status.Checks[name] = result
		if !result.Healthy {
			status.Healthy = false
			status.Ready = false
			failed = append(failed, name)
		}
	}

	if status.Healthy {
		status.Message = "all checks passed"
	} else {
		status.Message = "failed: " + strings.Join(failed, ", ")
	}
	return status
}

func (c *CompositeHealthChecker) runCheck(ctx context.Context, check HealthCheckFunc) CheckResult {
	checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	err := check(checkCtx)

	result := CheckResult{
		Healthy:     err == nil,
		Message:     "ok",
		Duration:    time.Since(start).Round(time.Millisecond).String(),
		LastChecked: time.Now().UTC(),
	}
	if err != nil {
		result.Message = err.Error()
	}
	return result
}

// ══════════════════════════════════════════════════════════════════════════════
// PROBES
// ══════════════════════════════════════════════════════════════════════════════

// Pinger is satisfied by the PostgreSQL connection and the Redis cache client.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewDatabaseCheck probes the database connection.
func NewDatabaseCheck(db Pinger) HealthCheckFunc {
	return func(ctx context.Context) error {
		return db.Ping(ctx)
	}
}

// NewCacheCheck probes the cache connection.
func NewCacheCheck(cache Pinger) HealthCheckFunc {
	return func(ctx context.Context) error {
		return cache.Ping(ctx)
	}
}

// ObjectStoreChecker reports reachability of the blob store.
type ObjectStoreChecker interface {
	IsHealthy(ctx context.Context) bool
}

// NewObjectStoreCheck probes the blob store.
func NewObjectStoreCheck(store ObjectStoreChecker) HealthCheckFunc {
	return func(ctx context.Context) error {
		if !store.IsHealthy(ctx) {
			return errors.New("object store unreachable")
		}
		return nil
	}
}
