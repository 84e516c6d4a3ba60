// Package lesson contains the lesson catalog domain model: the templates the
// scheduler chooses from, with their outcome references and prerequisites.
package lesson

import (
	"fmt"
	"time"

	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENUMS
// ══════════════════════════════════════════════════════════════════════════════

// Status is the authoring state of a lesson template.
type Status string

const (
	// StatusDraft means the template is being authored and must not be
	// offered to students.
	StatusDraft Status = "draft"
	// StatusPublished means the template is part of the candidate pool.
	StatusPublished Status = "published"
)

// IsValid reports whether the status is a known value.
func (s Status) IsValid() bool {
	return s == StatusDraft || s == StatusPublished
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: LESSON TEMPLATE
// ══════════════════════════════════════════════════════════════════════════════

// Template is a reusable lesson definition in the catalog. Outcome references
// and prerequisites may be stored in encoded form; the parsed fields are
// populated during assembly.
type Template struct {
	// ID is the template's unique identifier.
	ID string

	// CourseID is the course this template belongs to.
	CourseID shared.CourseID

	// Title is the lesson title shown to students.
	Title string

	// OutcomeRefsRaw is the encoded outcome-reference list as stored.
	OutcomeRefsRaw string

	// OutcomeRefs is the decoded outcome-id list. Malformed encoded data
	// here is fatal to assembly: outcome ids drive recommendation scoring.
	OutcomeRefs []string

	// PrereqsRaw is the encoded prerequisite list as stored.
	PrereqsRaw string

	// Prereqs is the decoded prerequisite template-id list. Malformed
	// encoded data here decays to an empty list.
	Prereqs []string

	// EstMinutes is the estimated teaching time.
	EstMinutes int

	// Status is the authoring state.
	Status Status

	// Type distinguishes ordinary lessons from mock exams, which carry a
	// wider duration bound.
	Type shared.LessonType

	// Difficulty is a coarse 1..5 rating used by the recommendation engine.
	Difficulty int

	// CreatedAt is when the record was created.
	CreatedAt time.Time

	// UpdatedAt is when the record was last modified.
	UpdatedAt time.Time
}

// ValidateDuration enforces the duration bound for the template's type.
func (t *Template) ValidateDuration() error {
	if !t.Type.ValidDuration(t.EstMinutes) {
		lo, hi := t.Type.DurationBounds()
		return shared.NewDomainError("lesson", "Validate", shared.ErrValueOutOfRange,
			fmt.Sprintf("lesson %s: estimated minutes %d outside [%d,%d]", t.ID, t.EstMinutes, lo, hi))
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// PREREQUISITE GRAPH
// ══════════════════════════════════════════════════════════════════════════════

// DetectCycle runs a depth-first search over the prerequisite graph
// restricted to the given templates. A length-1 self-reference counts as a
// cycle. Prerequisites pointing outside the set are ignored; they belong to
// templates that were not fetched and cannot close a cycle within it.
func DetectCycle(templates []*Template) error {
	adj := make(map[string][]string, len(templates))
	for _, t := range templates {
		adj[t.ID] = t.Prereqs
	}

	const (
		unvisited = 0
		inStack   = 1
		done      = 2
	)
	state := make(map[string]int, len(adj))

	var visit func(id string) bool
	visit = func(id string) bool {
		state[id] = inStack
		for _, dep := range adj[id] {
			if _, known := adj[dep]; !known {
				continue
			}
			switch state[dep] {
			case inStack:
				return true
			case unvisited:
				if visit(dep) {
					return true
				}
			}
		}
		state[id] = done
		return false
	}

	for id := range adj {
		if state[id] == unvisited && visit(id) {
			return shared.ErrPrerequisiteCycle
		}
	}
	return nil
}
