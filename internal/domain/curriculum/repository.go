package curriculum

import (
	"context"
	"time"

	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// ══════════════════════════════════════════════════════════════════════════════

// DocumentRepository defines storage operations for canonical curriculum
// documents. There is deliberately no write side here: documents are
// published by an external authoring workflow.
type DocumentRepository interface {
	// GetByID returns a document by ID.
	// Returns ErrDocumentNotFound if no such document exists.
	GetByID(ctx context.Context, id string) (*Document, error)
}

// ReferenceRepository defines storage operations for enrollment references.
// UpdateOverlay is the only supported mutation of student-specific curriculum
// state; there is no API for writing canonical entries.
type ReferenceRepository interface {
	// GetByStudentCourse returns the reference for a (student, course) pair.
	// Returns ErrReferenceNotFound if the student is not enrolled via this
	// mechanism.
	GetByStudentCourse(ctx context.Context, studentID shared.StudentID, courseID shared.CourseID) (*Reference, error)

	// Create persists a new reference.
	// Returns ErrReferenceExists if the pair already has one.
	Create(ctx context.Context, ref *Reference) error

	// UpdateOverlay replaces the stored overlay for a (student, course) pair.
	// Returns ErrReferenceNotFound if no reference exists.
	UpdateOverlay(ctx context.Context, studentID shared.StudentID, courseID shared.CourseID, overlayRaw string) error

	// ListRecent returns references ordered by most recent update. Used by
	// the cache warming job to find active pairs.
	ListRecent(ctx context.Context, limit int) ([]*Reference, error)
}

// LegacyEntry is a row from the flat pre-reference curriculum table. Kept
// read-only as a fallback for enrollments that predate the reference
// architecture.
type LegacyEntry struct {
	Order            int
	LessonTemplateID string
	PlannedAt        *time.Time
}

// LegacyEntryRepository reads the flat legacy table.
type LegacyEntryRepository interface {
	// ListByStudentCourse returns legacy entries ordered ascending by order.
	// An empty slice means the pair has no legacy data either.
	ListByStudentCourse(ctx context.Context, studentID shared.StudentID, courseID shared.CourseID) ([]LegacyEntry, error)
}

// Cache defines caching for resolved curricula. Resolution involves a fetch
// plus decompress per read, so hot pairs are worth caching briefly.
type Cache interface {
	// GetResolved fetches a resolved curriculum from the cache.
	// Returns ErrNotFound on a miss.
	GetResolved(ctx context.Context, studentID shared.StudentID, courseID shared.CourseID) (*ResolvedCurriculum, error)

	// SetResolved stores a resolved curriculum with the given TTL.
	SetResolved(ctx context.Context, studentID shared.StudentID, courseID shared.CourseID, rc *ResolvedCurriculum, ttl time.Duration) error

	// Invalidate removes the cached resolution for a pair. Called after
	// overlay writes.
	Invalidate(ctx context.Context, studentID shared.StudentID, courseID shared.CourseID) error
}
