package curriculum

import (
	"encoding/json"
	"time"

	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENROLLMENT REFERENCE
// ══════════════════════════════════════════════════════════════════════════════

// Reference is the per (student, course) pointer to a curriculum document
// version. It holds a pointer and an overlay, never a copy of the entries.
type Reference struct {
	// ID is the reference's unique identifier.
	ID string

	// StudentID and CourseID form the natural key. One reference per pair.
	StudentID shared.StudentID
	CourseID  shared.CourseID

	// SourceDocumentID points at the canonical curriculum document. Empty on
	// rows created before the reference schema; such rows require migration
	// before they can be resolved.
	SourceDocumentID string

	// SourceVersion is the document version tag the reference was created
	// against. Informational; resolution always follows SourceDocumentID.
	SourceVersion string

	// OverlayRaw is the customization overlay as stored, plain JSON.
	// Absent or empty means no customizations.
	OverlayRaw string

	// CreatedAt is when the student was enrolled via this mechanism.
	CreatedAt time.Time

	// UpdatedAt is when the overlay was last touched.
	UpdatedAt time.Time
}

// IsMigrated reports whether the reference carries its source-document
// pointer. Unmigrated rows predate the reference schema.
func (r *Reference) IsMigrated() bool {
	return r.SourceDocumentID != ""
}

// DecodeOverlay parses the stored overlay JSON. An absent overlay yields an
// empty map, not an error.
func (r *Reference) DecodeOverlay() (Overlay, error) {
	if r.OverlayRaw == "" {
		return Overlay{}, nil
	}
	var o Overlay
	if err := json.Unmarshal([]byte(r.OverlayRaw), &o); err != nil {
		return nil, shared.WrapError("curriculum", "DecodeOverlay", shared.ErrDecompression,
			"overlay is not valid JSON", err)
	}
	return o, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// CUSTOMIZATION OVERLAY
// ══════════════════════════════════════════════════════════════════════════════

// Overlay maps a curriculum entry order to student-specific annotations.
// It is purely additive: it annotates canonical entries or injects extra
// orders, and never removes or reorders what the document defines.
type Overlay map[int]OverlayEntry

// OverlayEntry is the set of per-entry annotations a student (or their
// teacher) may layer over the canonical sequence.
type OverlayEntry struct {
	// Skipped excludes the entry from next-lesson selection and progress
	// denominators. The canonical entry itself is untouched.
	Skipped bool `json:"skipped,omitempty"`

	// PlannedAt reschedules the entry for this student.
	PlannedAt *time.Time `json:"plannedAt,omitempty"`

	// CustomLessonID substitutes a different lesson template.
	CustomLessonID string `json:"custom_lesson_id,omitempty"`

	// AddedManually marks an entry injected by the overlay rather than
	// present in the canonical document.
	AddedManually bool `json:"added_manually,omitempty"`

	// Notes is free-form teacher/student commentary.
	Notes string `json:"notes,omitempty"`
}

// Encode serializes the overlay for storage.
func (o Overlay) Encode() (string, error) {
	if len(o) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(o)
	if err != nil {
		return "", shared.WrapError("curriculum", "EncodeOverlay", shared.ErrInvalidInput,
			"overlay cannot be serialized", err)
	}
	return string(b), nil
}

// Validate rejects annotations that would violate the additive contract.
func (o Overlay) Validate() error {
	for order := range o {
		if order <= 0 {
			return shared.NewDomainError("curriculum", "ValidateOverlay", shared.ErrValidation,
				"overlay keys must be positive entry orders")
		}
	}
	return nil
}
