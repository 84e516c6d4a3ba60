package redis

import (
	"context"
	"errors"
	"time"

	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/course"
	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/shared"
)

// CourseCache implements the course.Cache interface on top of the generic
// Redis cache client.
type CourseCache struct {
	cache *Cache
}

// NewCourseCache creates a new CourseCache.
func NewCourseCache(cache *Cache) *CourseCache {
	return &CourseCache{cache: cache}
}

// Get fetches a course from cache.
func (c *CourseCache) Get(ctx context.Context, id shared.CourseID) (*course.Course, error) {
	var crs course.Course
	err := c.cache.Get(ctx, CourseKey(string(id)), &crs)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, shared.WrapError("course", "CacheGet", shared.ErrNotFound, "course not cached", err)
		}
		return nil, err
	}
	return &crs, nil
}

// Set stores a course in cache.
func (c *CourseCache) Set(ctx context.Context, crs *course.Course, ttl time.Duration) error {
	if crs == nil {
		return nil
	}
	return c.cache.Set(ctx, CourseKey(string(crs.ID)), crs, ttl)
}

// Invalidate removes a course's cache entries.
func (c *CourseCache) Invalidate(ctx context.Context, id shared.CourseID) error {
	return c.cache.Delete(ctx, CourseKey(string(id)))
}
