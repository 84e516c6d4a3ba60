package course

import (
	"context"
	"time"

	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/shared"
)

// Repository defines storage operations for the course catalog.
type Repository interface {
	// GetByID returns a course by internal ID.
	// Returns ErrCourseNotFound if no such course exists.
	GetByID(ctx context.Context, id shared.CourseID) (*Course, error)

	// GetByCode returns a course by its SQA code.
	// Returns ErrCourseNotFound if no such course exists.
	GetByCode(ctx context.Context, code shared.CourseCode) (*Course, error)

	// ListActive returns all courses open for scheduling.
	ListActive(ctx context.Context) ([]*Course, error)
}

// Cache defines caching operations for the course catalog. The catalog
// changes rarely, so entries carry a long TTL.
type Cache interface {
	// Get fetches a course from the cache. Returns ErrNotFound on a miss.
	Get(ctx context.Context, id shared.CourseID) (*Course, error)

	// Set stores a course in the cache with the given TTL.
	Set(ctx context.Context, c *Course, ttl time.Duration) error

	// Invalidate removes a course's cache entries.
	Invalidate(ctx context.Context, id shared.CourseID) error
}
