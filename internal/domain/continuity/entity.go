// Package continuity contains the recommendation-thread continuity record,
// which lets the external recommendation engine resume a prior run for a
// (student, course) pair instead of starting cold.
package continuity

import (
	"context"
	"time"

	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/shared"
)

// Record tracks the external engine's thread for one (student, course) pair.
type Record struct {
	// ID is the record's unique identifier.
	ID string

	// StudentID and CourseID form the natural key. One record per pair.
	StudentID shared.StudentID
	CourseID  shared.CourseID

	// ThreadID is the external engine's run or thread identifier.
	ThreadID string

	// RecommendationCount increments on every saved recommendation run.
	RecommendationCount int

	// Version supports optimistic locking. Updates must carry the version
	// they read; a mismatch at write time surfaces ErrContinuityConflict.
	Version int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Touch records a new run: adopts the thread id and bumps the counter.
func (r *Record) Touch(threadID string) {
	r.ThreadID = threadID
	r.RecommendationCount++
	r.UpdatedAt = time.Now().UTC()
}

// Repository defines storage operations for continuity records. Update is
// compare-and-swap on Version; callers retry on ErrContinuityConflict.
type Repository interface {
	// Get returns the record for a (student, course) pair.
	// Returns ErrContinuityNotFound if the pair has none yet.
	Get(ctx context.Context, studentID shared.StudentID, courseID shared.CourseID) (*Record, error)

	// Create persists a new record with Version 1.
	// Returns ErrAlreadyExists if the pair already has one.
	Create(ctx context.Context, rec *Record) error

	// Update persists changes if the stored version still matches
	// rec.Version, then increments it. Returns ErrContinuityConflict on a
	// concurrent modification.
	Update(ctx context.Context, rec *Record) error
}
