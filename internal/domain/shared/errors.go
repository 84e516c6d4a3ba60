// Package shared contains common domain types, errors, and value objects
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is checks across layers.
// Store adapters translate driver-level failures into these sentinels so
// that no caller ever has to classify errors by message substring.
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrInvalidFormat   = errors.New("invalid format")

	// Reference errors
	ErrReferentialIntegrity = errors.New("reference points at a missing target")
	ErrMigrationRequired    = errors.New("record predates the reference schema and requires migration")
	ErrCircularReference    = errors.New("circular reference detected")

	// Payload errors
	ErrDecompression = errors.New("malformed encoded payload")

	// Authorization errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Concurrency errors
	ErrOptimisticLock = errors.New("optimistic lock failure")

	// External service errors
	ErrUpstreamUnavailable = errors.New("upstream service unavailable")
	ErrTimeout             = errors.New("operation timeout")
	ErrRateLimited         = errors.New("rate limited")
)

// DomainError carries where and why an operation failed inside the domain.
type DomainError struct {
	Domain  string // e.g., "student", "curriculum", "assembler"
	Op      string // Operation that failed, e.g., "Resolve", "Assemble"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error renders domain, operation, and cause.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is matches against the wrapped sentinel.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Student domain errors
var (
	ErrStudentNotFound    = NewDomainError("student", "Get", ErrNotFound, "student not found")
	ErrInvalidStudentID   = NewDomainError("student", "Validate", ErrInvalidID, "invalid student ID")
	ErrEmptyDisplayName   = NewDomainError("student", "Validate", ErrEmptyValue, "display name cannot be empty")
	ErrStudentNotEnrolled = NewDomainError("student", "CheckEnrollment", ErrForbidden, "student is not enrolled in this course")
)

// Course domain errors
var (
	ErrCourseNotFound    = NewDomainError("course", "Get", ErrNotFound, "course not found")
	ErrInvalidCourseCode = NewDomainError("course", "Validate", ErrInvalidFormat, "course code does not match required format")
	ErrCourseNotActive   = NewDomainError("course", "CheckStatus", ErrValidation, "course is not active")
)

// Curriculum domain errors
var (
	ErrDocumentNotFound    = NewDomainError("curriculum", "GetDocument", ErrNotFound, "curriculum document not found")
	ErrReferenceNotFound   = NewDomainError("curriculum", "GetReference", ErrNotFound, "enrollment reference not found")
	ErrReferenceExists     = NewDomainError("curriculum", "CreateReference", ErrAlreadyExists, "enrollment reference already exists")
	ErrDanglingReference   = NewDomainError("curriculum", "Resolve", ErrReferentialIntegrity, "enrollment reference points at a missing curriculum document")
	ErrReferenceUnmigrated = NewDomainError("curriculum", "Resolve", ErrMigrationRequired, "enrollment reference is missing its source document pointer")
	ErrDuplicateEntryOrder = NewDomainError("curriculum", "Validate", ErrValidation, "curriculum entry order is not unique within the document")
)

// Lesson catalog errors
var (
	ErrNoLessonTemplates    = NewDomainError("lesson", "List", ErrNotFound, "no lesson templates found for course")
	ErrInvalidDuration      = NewDomainError("lesson", "Validate", ErrValueOutOfRange, "estimated minutes outside allowed range")
	ErrPrerequisiteCycle    = NewDomainError("lesson", "CheckPrerequisites", ErrCircularReference, "prerequisite graph contains a cycle")
	ErrMalformedOutcomeRefs = NewDomainError("lesson", "Decode", ErrDecompression, "lesson template outcome references are malformed")
)

// Progress errors
var (
	ErrMasteryNotFound  = NewDomainError("progress", "GetMastery", ErrNotFound, "mastery record not found")
	ErrRoutineNotFound  = NewDomainError("progress", "GetRoutine", ErrNotFound, "routine record not found")
	ErrEMAOutOfRange    = NewDomainError("progress", "Validate", ErrValueOutOfRange, "EMA value outside [0,1]")
	ErrInvalidAlpha     = NewDomainError("progress", "Validate", ErrValueOutOfRange, "alpha must be in (0,1]")
	ErrNegativeObsCount = NewDomainError("progress", "Validate", ErrValueOutOfRange, "observation count cannot be negative")
)

// Continuity errors
var (
	ErrContinuityNotFound = NewDomainError("continuity", "Get", ErrNotFound, "continuity record not found")
	ErrContinuityExists   = NewDomainError("continuity", "Create", ErrAlreadyExists, "continuity record already exists")
	ErrContinuityConflict = NewDomainError("continuity", "Update", ErrOptimisticLock, "continuity record was modified concurrently")
)

// External service errors
var (
	ErrObjectStoreUnavailable = NewDomainError("objectstore", "Fetch", ErrUpstreamUnavailable, "object store is unavailable")
	ErrObjectNotFound         = NewDomainError("objectstore", "Fetch", ErrNotFound, "object not found in blob store")
)

// IsNotFound reports a missing-entity failure.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists reports a duplicate-entity failure.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation reports a rejected input.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrValueOutOfRange) ||
		errors.Is(err, ErrInvalidFormat)
}

// IsUpstream checks if the error came from an external collaborator.
func IsUpstream(err error) bool {
	return errors.Is(err, ErrUpstreamUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrRateLimited)
}

// IsRetryable reports whether repeating the operation could succeed.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrUpstreamUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrOptimisticLock)
}
