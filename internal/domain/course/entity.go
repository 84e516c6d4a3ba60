// Package course contains the course catalog domain model.
package course

import (
	"time"

	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENUMS
// ══════════════════════════════════════════════════════════════════════════════

// Status is the lifecycle state of a course in the catalog.
type Status string

const (
	// StatusActive means the course is open for scheduling.
	StatusActive Status = "active"
	// StatusDraft means the course is being authored and not yet visible.
	StatusDraft Status = "draft"
	// StatusArchived means the course is retired. Existing enrollments keep
	// their history but no new scheduling happens against it.
	StatusArchived Status = "archived"
)

// IsValid reports whether the status is a known value.
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusDraft, StatusArchived:
		return true
	default:
		return false
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: COURSE
// ══════════════════════════════════════════════════════════════════════════════

// Course is a catalog entry describing an SQA course offering.
type Course struct {
	// ID is the internal unique identifier (UUID in string form).
	ID shared.CourseID

	// Code is the SQA course code, e.g. "C844 73".
	Code shared.CourseCode

	// Subject is the human-readable subject name, e.g. "Applications of Mathematics".
	Subject string

	// Level is the SCQF level label, e.g. "National 3" or "Higher".
	Level string

	// Status is the catalog lifecycle state.
	Status Status

	// CreatedAt is when the record was created.
	CreatedAt time.Time

	// UpdatedAt is when the record was last modified.
	UpdatedAt time.Time
}

// Validate checks entity invariants. Used before persistence.
func (c *Course) Validate() error {
	if !c.ID.IsValid() {
		return shared.NewDomainError("course", "Validate", shared.ErrInvalidID, "course ID must be a valid UUID")
	}
	if !c.Code.IsValid() {
		return shared.ErrInvalidCourseCode
	}
	if !c.Status.IsValid() {
		return shared.NewDomainError("course", "Validate", shared.ErrValidation, "unknown course status")
	}
	return nil
}

// IsSchedulable reports whether the course can receive new scheduling work.
func (c *Course) IsSchedulable() bool {
	return c.Status == StatusActive
}
