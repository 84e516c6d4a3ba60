// Package shared contains common domain types, errors, and value objects
// that are used across all domain packages.
package shared

import (
	"regexp"
	"strings"
)

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// UUID validation regex (simple version).
var uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// StudentID represents a unique student identifier (UUID format).
type StudentID string

// IsValid checks if the student ID is a valid UUID.
func (s StudentID) IsValid() bool {
	return uuidRegex.MatchString(string(s))
}

// String returns the string representation.
func (s StudentID) String() string {
	return string(s)
}

// IsEmpty checks if the ID is empty.
func (s StudentID) IsEmpty() bool {
	return s == ""
}

// NewStudentID creates a new StudentID with validation.
func NewStudentID(id string) (StudentID, error) {
	sid := StudentID(strings.ToLower(strings.TrimSpace(id)))
	if !sid.IsValid() {
		return "", NewDomainError("shared", "NewStudentID", ErrInvalidID, "invalid student ID format")
	}
	return sid, nil
}

// CourseID represents a unique course identifier (UUID format).
type CourseID string

// IsValid checks if the course ID is a valid UUID.
func (c CourseID) IsValid() bool {
	return uuidRegex.MatchString(string(c))
}

// String returns the string representation.
func (c CourseID) String() string {
	return string(c)
}

// IsEmpty checks if the ID is empty.
func (c CourseID) IsEmpty() bool {
	return c == ""
}

// NewCourseID creates a new CourseID with validation.
func NewCourseID(id string) (CourseID, error) {
	cid := CourseID(strings.ToLower(strings.TrimSpace(id)))
	if !cid.IsValid() {
		return "", NewDomainError("shared", "NewCourseID", ErrInvalidID, "invalid course ID format")
	}
	return cid, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Course Code
// ═══════════════════════════════════════════════════════════════════════════

// CourseCode is the fixed-format code identifying a course offering:
// one uppercase letter, three digits, a space, two digits (e.g. "C844 73").
type CourseCode string

var courseCodeRegex = regexp.MustCompile(`^[A-Z][0-9]{3} [0-9]{2}$`)

// IsValid checks if the course code matches the required format.
func (c CourseCode) IsValid() bool {
	return courseCodeRegex.MatchString(string(c))
}

// String returns the string representation.
func (c CourseCode) String() string {
	return string(c)
}

// NewCourseCode creates a new CourseCode with validation.
func NewCourseCode(code string) (CourseCode, error) {
	cc := CourseCode(strings.TrimSpace(code))
	if !cc.IsValid() {
		return "", ErrInvalidCourseCode
	}
	return cc, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// EMA Value
// ═══════════════════════════════════════════════════════════════════════════

// EMA boundaries. Proficiency estimates always live in the unit interval.
const (
	MinEMA = 0.0
	MaxEMA = 1.0
)

// EMAValue is a per-outcome proficiency estimate in [0,1].
type EMAValue float64

// IsValid checks if the EMA value is within the unit interval.
func (e EMAValue) IsValid() bool {
	return float64(e) >= MinEMA && float64(e) <= MaxEMA
}

// Float64 returns the underlying float64 value.
func (e EMAValue) Float64() float64 {
	return float64(e)
}

// Clamp returns the value clamped to [0,1].
func (e EMAValue) Clamp() EMAValue {
	if e < MinEMA {
		return MinEMA
	}
	if e > MaxEMA {
		return MaxEMA
	}
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Lesson Duration
// ═══════════════════════════════════════════════════════════════════════════

// LessonType distinguishes ordinary lessons from mock-exam sittings, which
// are allowed to run longer.
type LessonType string

const (
	LessonTypeOrdinary LessonType = "ordinary"
	LessonTypeMockExam LessonType = "mock_exam"
)

// IsValid checks if the lesson type is known.
func (t LessonType) IsValid() bool {
	return t == LessonTypeOrdinary || t == LessonTypeMockExam
}

// Duration bounds in minutes per lesson type.
const (
	MinLessonMinutes   = 5
	MaxLessonMinutes   = 120
	MaxMockExamMinutes = 180
)

// DurationBounds returns the inclusive [min,max] estimated-minutes range
// for the lesson type. Unknown types get the ordinary bounds.
func (t LessonType) DurationBounds() (min, max int) {
	if t == LessonTypeMockExam {
		return MinLessonMinutes, MaxMockExamMinutes
	}
	return MinLessonMinutes, MaxLessonMinutes
}

// ValidDuration reports whether the estimated minutes are in range for
// the lesson type.
func (t LessonType) ValidDuration(minutes int) bool {
	min, max := t.DurationBounds()
	return minutes >= min && minutes <= max
}
