// Package curriculum contains the authored-curriculum domain model: the
// canonical versioned document, the per-student enrollment reference, and the
// customization overlay layered on top of it.
//
// The central design decision lives here: an enrollment reference never
// stores a copy of curriculum entries. It always dereferences the canonical
// document at read time, so a republish by curriculum authors is visible to
// every enrolled student immediately.
package curriculum

import (
	"time"

	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CURRICULUM DOCUMENT
// ══════════════════════════════════════════════════════════════════════════════

// Document is the canonical, versioned, authored sequence of lessons for a
// course. Owned by curriculum authors; read-only to students.
type Document struct {
	// ID is the document's unique identifier.
	ID string

	// CourseID is the course this document belongs to.
	CourseID shared.CourseID

	// Version is the authoring version tag, e.g. "2". Republishing creates
	// a new version; enrollment references pin the tag they were created with.
	Version string

	// EntriesRaw is the encoded entry list as stored. Large documents are
	// compressed or blob-indirected; the codec package decodes this.
	EntriesRaw string

	// MetadataRaw is the encoded free-form metadata as stored.
	MetadataRaw string

	// AccessibilityNotes carries author guidance for accommodations.
	AccessibilityNotes string

	// CreatedAt is when this version was published.
	CreatedAt time.Time

	// UpdatedAt is when the record was last modified.
	UpdatedAt time.Time
}

// Entry is one position in a curriculum document's ordered sequence.
type Entry struct {
	// Order is a positive integer, unique within the document.
	Order int `json:"order"`

	// LessonTemplateID points into the lesson catalog.
	LessonTemplateID string `json:"lessonTemplateId"`

	// PlannedAt is the author-suggested teaching date, if any.
	PlannedAt *time.Time `json:"plannedAt,omitempty"`
}

// ValidateEntries checks the decoded entry list against document invariants:
// every order is positive and unique within the document.
func ValidateEntries(entries []Entry) error {
	seen := make(map[int]struct{}, len(entries))
	for _, e := range entries {
		if e.Order <= 0 {
			return shared.NewDomainError("curriculum", "Validate", shared.ErrValidation,
				"curriculum entry order must be a positive integer")
		}
		if _, dup := seen[e.Order]; dup {
			return shared.ErrDuplicateEntryOrder
		}
		seen[e.Order] = struct{}{}
	}
	return nil
}
