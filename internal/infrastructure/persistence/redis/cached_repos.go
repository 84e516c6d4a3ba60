package redis

import (
	"context"
	"time"

	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/course"
	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/lesson"
	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/shared"
	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// READ-THROUGH REPOSITORY DECORATORS
// Cache failures never fail the read: the decorators fall through to the
// underlying repository and treat the cache as best effort.
// ══════════════════════════════════════════════════════════════════════════════

// CachedStudentRepository wraps a student.Repository with a read-through
// cache on GetByID. Writes invalidate.
type CachedStudentRepository struct {
	repo  student.Repository
	cache student.Cache
	ttl   time.Duration
}

// NewCachedStudentRepository creates the decorator.
func NewCachedStudentRepository(repo student.Repository, cache student.Cache, ttl time.Duration) *CachedStudentRepository {
	return &CachedStudentRepository{repo: repo, cache: cache, ttl: ttl}
}

// GetByID returns a student, consulting the cache first.
func (r *CachedStudentRepository) GetByID(ctx context.Context, id shared.StudentID) (*student.Student, error) {
	if s, err := r.cache.Get(ctx, id); err == nil {
		return s, nil
	}

	s, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	_ = r.cache.Set(ctx, s, r.ttl)
	return s, nil
}

// GetByUserID returns the student linked to an authentication account.
// Lookups by user ID bypass the cache; it is keyed by student ID.
func (r *CachedStudentRepository) GetByUserID(ctx context.Context, userID string) (*student.Student, error) {
	return r.repo.GetByUserID(ctx, userID)
}

// Create persists a new student.
func (r *CachedStudentRepository) Create(ctx context.Context, s *student.Student) error {
	return r.repo.Create(ctx, s)
}

// Update persists changes and invalidates the cached entry.
func (r *CachedStudentRepository) Update(ctx context.Context, s *student.Student) error {
	if err := r.repo.Update(ctx, s); err != nil {
		return err
	}
	_ = r.cache.Invalidate(ctx, s.ID)
	return nil
}

// Exists checks existence by ID without loading the row.
func (r *CachedStudentRepository) Exists(ctx context.Context, id shared.StudentID) (bool, error) {
	return r.repo.Exists(ctx, id)
}

// CachedCourseRepository wraps a course.Repository with a read-through cache
// on GetByID. The catalog changes rarely, so entries carry a long TTL.
type CachedCourseRepository struct {
	repo  course.Repository
	cache course.Cache
	ttl   time.Duration
}

// NewCachedCourseRepository creates the decorator.
func NewCachedCourseRepository(repo course.Repository, cache course.Cache, ttl time.Duration) *CachedCourseRepository {
	return &CachedCourseRepository{repo: repo, cache: cache, ttl: ttl}
}

// GetByID returns a course, consulting the cache first.
func (r *CachedCourseRepository) GetByID(ctx context.Context, id shared.CourseID) (*course.Course, error) {
	if c, err := r.cache.Get(ctx, id); err == nil {
		return c, nil
	}

	c, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	_ = r.cache.Set(ctx, c, r.ttl)
	return c, nil
}

// GetByCode returns a course by its SQA code, bypassing the cache.
func (r *CachedCourseRepository) GetByCode(ctx context.Context, code shared.CourseCode) (*course.Course, error) {
	return r.repo.GetByCode(ctx, code)
}

// ListActive returns all courses open for scheduling, bypassing the cache.
func (r *CachedCourseRepository) ListActive(ctx context.Context) ([]*course.Course, error) {
	return r.repo.ListActive(ctx)
}

// CachedLessonRepository wraps a lesson.Repository with a read-through
// cache on the published candidate pool. Every context assembly loads the
// full pool for its course, which makes this the hottest read in the
// pipeline; publishing happens outside this service, so the TTL bounds how
// long a republish can go unseen.
type CachedLessonRepository struct {
	repo  lesson.Repository
	cache lesson.Cache
	ttl   time.Duration
}

// NewCachedLessonRepository creates the decorator.
func NewCachedLessonRepository(repo lesson.Repository, cache lesson.Cache, ttl time.Duration) *CachedLessonRepository {
	return &CachedLessonRepository{repo: repo, cache: cache, ttl: ttl}
}

// GetByID returns a single template, bypassing the cache; it is keyed by
// course, not template.
func (r *CachedLessonRepository) GetByID(ctx context.Context, id string) (*lesson.Template, error) {
	return r.repo.GetByID(ctx, id)
}

// ListPublishedByCourse returns the candidate pool, consulting the cache
// first. An empty pool is cached like any other; it is a valid catalog
// state, not a miss.
func (r *CachedLessonRepository) ListPublishedByCourse(ctx context.Context, courseID shared.CourseID) ([]*lesson.Template, error) {
	if pool, err := r.cache.GetPool(ctx, courseID); err == nil {
		return pool, nil
	}

	pool, err := r.repo.ListPublishedByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	_ = r.cache.SetPool(ctx, courseID, pool, r.ttl)
	return pool, nil
}
