// Package student contains the student domain model. This is core business
// logic with no external dependencies.
package student

import (
	"strings"
	"time"

	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: STUDENT
// ══════════════════════════════════════════════════════════════════════════════

// Student is the learner the scheduler plans for. A student exists
// independently of any course; course membership is modelled through
// enrollments.
type Student struct {
	// ID is the internal unique identifier (UUID in string form).
	ID shared.StudentID

	// UserID links the student to their authentication account.
	UserID string

	// DisplayName is the name shown in the UI. Never empty.
	DisplayName string

	// AccommodationTags lists accessibility accommodations, e.g. "dyslexia"
	// or "extra-time". Passed through to downstream planners untouched.
	AccommodationTags []string

	// EnrolledCourseIDs lists the courses the student is actively enrolled in.
	EnrolledCourseIDs []shared.CourseID

	// CreatedAt is when the record was created.
	CreatedAt time.Time

	// UpdatedAt is when the record was last modified.
	UpdatedAt time.Time
}

// NewStudent creates a student, validating the identity fields.
func NewStudent(id shared.StudentID, userID, displayName string) (*Student, error) {
	if !id.IsValid() {
		return nil, shared.ErrInvalidStudentID
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, shared.ErrEmptyDisplayName
	}
	now := time.Now().UTC()
	return &Student{
		ID:          id,
		UserID:      userID,
		DisplayName: displayName,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Validate checks entity invariants. Used before persistence.
func (s *Student) Validate() error {
	if !s.ID.IsValid() {
		return shared.ErrInvalidStudentID
	}
	if strings.TrimSpace(s.DisplayName) == "" {
		return shared.ErrEmptyDisplayName
	}
	return nil
}

// IsEnrolledIn reports whether the student is enrolled in the given course.
func (s *Student) IsEnrolledIn(courseID shared.CourseID) bool {
	for _, id := range s.EnrolledCourseIDs {
		if id == courseID {
			return true
		}
	}
	return false
}

// Enroll adds a course to the student's enrollments. Idempotent.
func (s *Student) Enroll(courseID shared.CourseID) {
	if s.IsEnrolledIn(courseID) {
		return
	}
	s.EnrolledCourseIDs = append(s.EnrolledCourseIDs, courseID)
	s.UpdatedAt = time.Now().UTC()
}

// HasAccommodation reports whether the student carries the given tag.
func (s *Student) HasAccommodation(tag string) bool {
	for _, t := range s.AccommodationTags {
		if t == tag {
			return true
		}
	}
	return false
}
