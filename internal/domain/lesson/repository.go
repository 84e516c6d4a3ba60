package lesson

import (
	"context"
	"time"

	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/shared"
)

// Repository defines storage operations for the lesson catalog.
type Repository interface {
	// GetByID returns a template by ID. Returns ErrNotFound if absent.
	GetByID(ctx context.Context, id string) (*Template, error)

	// ListPublishedByCourse returns the published candidate pool for a
	// course. An empty result is a valid return here; the assembler decides
	// whether that is fatal.
	ListPublishedByCourse(ctx context.Context, courseID shared.CourseID) ([]*Template, error)
}

// Cache defines caching operations for the published catalog. The cached
// unit is a course's whole candidate pool; publishing happens outside this
// service, so the TTL bounds how long a republish can go unseen.
type Cache interface {
	// GetPool fetches a course's candidate pool. Returns ErrNotFound on a miss.
	GetPool(ctx context.Context, courseID shared.CourseID) ([]*Template, error)

	// SetPool stores a course's candidate pool with the given TTL.
	SetPool(ctx context.Context, courseID shared.CourseID, pool []*Template, ttl time.Duration) error

	// InvalidatePool removes a course's cached pool.
	InvalidatePool(ctx context.Context, courseID shared.CourseID) error
}
