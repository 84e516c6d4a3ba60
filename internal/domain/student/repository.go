package student

import (
	"context"
	"time"

	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// These interfaces define the storage contract. Implementations live in
// infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository defines storage operations for students.
type Repository interface {
	// GetByID returns a student by internal ID.
	// Returns ErrStudentNotFound if no such student exists.
	GetByID(ctx context.Context, id shared.StudentID) (*Student, error)

	// GetByUserID returns the student linked to an authentication account.
	// Returns ErrStudentNotFound if no such student exists.
	GetByUserID(ctx context.Context, userID string) (*Student, error)

	// Create persists a new student.
	// Returns ErrAlreadyExists if the ID is taken.
	Create(ctx context.Context, s *Student) error

	// Update persists changes to an existing student.
	// Returns ErrStudentNotFound if no such student exists.
	Update(ctx context.Context, s *Student) error

	// Exists checks existence by ID without loading the row.
	Exists(ctx context.Context, id shared.StudentID) (bool, error)
}

// Cache defines caching operations for student records.
type Cache interface {
	// Get fetches a student from the cache. Returns ErrNotFound on a miss.
	Get(ctx context.Context, id shared.StudentID) (*Student, error)

	// Set stores a student in the cache with the given TTL.
	Set(ctx context.Context, s *Student, ttl time.Duration) error

	// Invalidate removes a student's cache entries.
	Invalidate(ctx context.Context, id shared.StudentID) error
}
