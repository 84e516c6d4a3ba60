package redis

import (
	"context"
	"errors"
	"time"

	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/curriculum"
	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/shared"
)

// CurriculumCache implements the curriculum.Cache interface on top of the
// generic Redis cache client. Resolved curricula are keyed by the
// (student, course) pair and invalidated whenever the overlay changes.
type CurriculumCache struct {
	cache *Cache
}

// NewCurriculumCache creates a new CurriculumCache.
func NewCurriculumCache(cache *Cache) *CurriculumCache {
	return &CurriculumCache{cache: cache}
}

// GetResolved fetches a resolved curriculum from the cache.
func (c *CurriculumCache) GetResolved(ctx context.Context, studentID shared.StudentID, courseID shared.CourseID) (*curriculum.ResolvedCurriculum, error) {
	var rc curriculum.ResolvedCurriculum
	err := c.cache.Get(ctx, CurriculumKey(string(studentID), string(courseID)), &rc)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, shared.WrapError("curriculum", "CacheGet", shared.ErrNotFound, "resolved curriculum not cached", err)
		}
		return nil, err
	}
	return &rc, nil
}

// SetResolved stores a resolved curriculum with the given TTL.
func (c *CurriculumCache) SetResolved(ctx context.Context, studentID shared.StudentID, courseID shared.CourseID, rc *curriculum.ResolvedCurriculum, ttl time.Duration) error {
	if rc == nil {
		return nil
	}
	return c.cache.Set(ctx, CurriculumKey(string(studentID), string(courseID)), rc, ttl)
}

// Invalidate removes the cached resolution for a pair.
func (c *CurriculumCache) Invalidate(ctx context.Context, studentID shared.StudentID, courseID shared.CourseID) error {
	return c.cache.Delete(ctx, CurriculumKey(string(studentID), string(courseID)))
}

// InvalidateStudent removes every cached resolution for a student. Used when
// an account is deleted or its enrollments are rewritten wholesale.
func (c *CurriculumCache) InvalidateStudent(ctx context.Context, studentID shared.StudentID) error {
	return c.cache.DeleteByPattern(ctx, PrefixCurriculum+string(studentID)+":*")
}
