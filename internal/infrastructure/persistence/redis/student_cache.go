package redis

import (
	"context"
	"errors"
	"time"

	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/shared"
	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/student"
)

// StudentCache implements the student.Cache interface on top of the generic
// Redis cache client.
type StudentCache struct {
	cache *Cache
}

// NewStudentCache wraps the shared cache with student keys and TTL.
func NewStudentCache(cache *Cache) *StudentCache {
	return &StudentCache{cache: cache}
}

// Get fetches a student from cache.
func (s *StudentCache) Get(ctx context.Context, id shared.StudentID) (*student.Student, error) {
	var st student.Student
	err := s.cache.Get(ctx, StudentKey(string(id)), &st)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, shared.WrapError("student", "CacheGet", shared.ErrNotFound, "student not cached", err)
		}
		return nil, err
	}
	return &st, nil
}

// Set stores a student in cache.
func (s *StudentCache) Set(ctx context.Context, st *student.Student, ttl time.Duration) error {
	if st == nil {
		return nil
	}
	return s.cache.Set(ctx, StudentKey(string(st.ID)), st, ttl)
}

// Invalidate removes a student's cache entries.
func (s *StudentCache) Invalidate(ctx context.Context, id shared.StudentID) error {
	return s.cache.Delete(ctx, StudentKey(string(id)))
}

// InvalidateAll clears the entire student cache.
func (s *StudentCache) InvalidateAll(ctx context.Context) error {
	return s.cache.DeleteByPattern(ctx, PrefixStudent+"*")
}
