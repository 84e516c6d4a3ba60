// Package redis implements the Redis caching layer for the scheduling backend.
// A single JSON cache client backs the typed caches for students, the course
// catalog, and resolved curricula. Overlay writes invalidate the curriculum
// keys; everything else is TTL-bounded.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config holds Redis connection settings.
type Config struct {
	Host     string
	Port     int
	Password string
	DB       int

	PoolSize     int
	MinIdleConns int
	MaxRetries   int

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolTimeout  time.Duration
}

// DefaultConfig returns settings suitable for a local instance.
func DefaultConfig() Config {
	return Config{
		Host:         "localhost",
		Port:         6379,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolTimeout:  4 * time.Second,
	}
}

// Addr returns the address in "host:port" form.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ConfigFromURL parses a redis:// URL into a Config. Pool settings not
// expressible in the URL keep their defaults.
func ConfigFromURL(rawURL string) (Config, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return Config{}, fmt.Errorf("cache: invalid redis URL: %w", err)
	}

	cfg := DefaultConfig()
	host, port, found := strings.Cut(opt.Addr, ":")
	cfg.Host = host
	if found {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Port = p
		}
	}
	cfg.Password = opt.Password
	cfg.DB = opt.DB
	return cfg, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS & KEYS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrCacheMiss is returned when the requested key is not present.
	ErrCacheMiss = errors.New("cache: key not found")

	// ErrCacheConnection is returned when the initial ping fails.
	ErrCacheConnection = errors.New("cache: connection failed")

	// ErrCacheSerialization is returned when JSON encoding or decoding fails.
	ErrCacheSerialization = errors.New("cache: serialization failed")

	// ErrCacheKeyEmpty rejects operations on an empty key.
	ErrCacheKeyEmpty = errors.New("cache: key cannot be empty")
)

// Key prefixes, one namespace per cached aggregate.
const (
	PrefixStudent    = "student:"
	PrefixCourse     = "course:"
	PrefixCurriculum = "curriculum:"
	PrefixCatalog    = "catalog:"
)

// TTLs per aggregate. Courses change rarely and get the longest window;
// resolved curricula are invalidated explicitly on overlay writes, so their
// TTL only bounds staleness from document republishing.
const (
	TTLStudentCache       = 10 * time.Minute
	TTLCourseCache        = 30 * time.Minute
	TTLResolvedCurriculum = 15 * time.Minute
)

// StudentKey returns the cache key for a student.
func StudentKey(studentID string) string {
	return PrefixStudent + studentID
}

// CourseKey returns the cache key for a course.
func CourseKey(courseID string) string {
	return PrefixCourse + courseID
}

// CurriculumKey returns the cache key for a resolved student+course
// curriculum.
func CurriculumKey(studentID, courseID string) string {
	return PrefixCurriculum + studentID + ":" + courseID
}

// CatalogKey returns the cache key for a course's published candidate pool.
func CatalogKey(courseID string) string {
	return PrefixCatalog + courseID
}

// ══════════════════════════════════════════════════════════════════════════════
// CACHE CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Cache is a JSON-serializing cache over a Redis client.
type Cache struct {
	client *redis.Client
}

// NewCache connects to Redis and verifies the connection with a ping.
func NewCache(cfg Config) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolTimeout:  cfg.PoolTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCacheConnection, err)
	}

	return &Cache{client: client}, nil
}

// Close shuts down the Redis client.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Ping verifies Redis answers.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Set stores value under key as JSON with the given TTL.
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if key == "" {
		return ErrCacheKeyEmpty
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCacheSerialization, err)
	}
	return c.client.Set(ctx, key, data, ttl).Err()
}

// Get loads key into dest. Returns ErrCacheMiss when absent.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) error {
	if key == "" {
		return ErrCacheKeyEmpty
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		return err
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheSerialization, err)
	}
	return nil
}

// Delete removes the given keys.
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// DeleteByPattern removes all keys matching pattern via SCAN, deleting in
// batches of 100.
func (c *Cache) DeleteByPattern(ctx context.Context, pattern string) error {
	if pattern == "" {
		return ErrCacheKeyEmpty
	}

	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string

	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) >= 100 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
			keys = keys[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}

	if len(keys) > 0 {
		return c.client.Del(ctx, keys...).Err()
	}
	return nil
}
