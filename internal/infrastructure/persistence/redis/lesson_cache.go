package redis

import (
	"context"
	"errors"
	"time"

	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/lesson"
	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/shared"
)

// LessonCache implements the lesson.Cache interface on top of the generic
// Redis cache client. It caches the published candidate pool per course.
type LessonCache struct {
	cache *Cache
}

// NewLessonCache creates a new LessonCache.
func NewLessonCache(cache *Cache) *LessonCache {
	return &LessonCache{cache: cache}
}

// GetPool fetches a course's candidate pool from cache.
func (c *LessonCache) GetPool(ctx context.Context, courseID shared.CourseID) ([]*lesson.Template, error) {
	var pool []*lesson.Template
	err := c.cache.Get(ctx, CatalogKey(string(courseID)), &pool)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, shared.WrapError("lesson", "CacheGetPool", shared.ErrNotFound, "catalog not cached", err)
		}
		return nil, err
	}
	return pool, nil
}

// SetPool stores a course's candidate pool in cache. An empty pool is
// cached too; it is a valid catalog state.
func (c *LessonCache) SetPool(ctx context.Context, courseID shared.CourseID, pool []*lesson.Template, ttl time.Duration) error {
	return c.cache.Set(ctx, CatalogKey(string(courseID)), pool, ttl)
}

// InvalidatePool removes a course's cached pool.
func (c *LessonCache) InvalidatePool(ctx context.Context, courseID shared.CourseID) error {
	return c.cache.Delete(ctx, CatalogKey(string(courseID)))
}
