package progress

import (
	"context"
	"time"

	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/shared"
)

// MasteryRepository defines storage operations for mastery records.
type MasteryRepository interface {
	// Get returns the mastery record for a (student, course) pair.
	// Returns ErrMasteryNotFound if the pair has none yet.
	Get(ctx context.Context, studentID shared.StudentID, courseID shared.CourseID) (*MasteryRecord, error)

	// Upsert writes the record, creating it if absent.
	Upsert(ctx context.Context, rec *MasteryRecord) error
}

// RoutineRepository defines storage operations for routine records.
type RoutineRepository interface {
	// Get returns the routine record for a (student, course) pair.
	// Returns ErrRoutineNotFound if the pair has none yet.
	Get(ctx context.Context, studentID shared.StudentID, courseID shared.CourseID) (*RoutineRecord, error)

	// Upsert writes the record, creating it if absent.
	Upsert(ctx context.Context, rec *RoutineRecord) error

	// ListDueBefore returns records with at least one outcome due at or
	// before the cutoff, oldest first. Used by the background sweep.
	ListDueBefore(ctx context.Context, cutoff time.Time, limit int) ([]*RoutineRecord, error)
}
