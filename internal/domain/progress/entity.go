// Package progress contains per-student learning state: mastery estimates
// per outcome and spaced-repetition routine bookkeeping.
package progress

import (
	"time"

	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// MASTERY RECORD
// ══════════════════════════════════════════════════════════════════════════════

// MasteryRecord holds per-outcome EMA proficiency estimates for one
// (student, course) pair.
type MasteryRecord struct {
	StudentID shared.StudentID
	CourseID  shared.CourseID

	// EMAByOutcome maps outcomeId to its current estimate in [0,1].
	EMAByOutcome map[string]float64

	// ObservationCounts maps outcomeId to how many observations have fed
	// its estimate. Drives the adaptive alpha in the updater.
	ObservationCounts map[string]int

	UpdatedAt time.Time
}

// Validate checks the EMA bound for every outcome.
func (m *MasteryRecord) Validate() error {
	for _, v := range m.EMAByOutcome {
		if !shared.EMAValue(v).IsValid() {
			return shared.ErrEMAOutOfRange
		}
	}
	for _, n := range m.ObservationCounts {
		if n < 0 {
			return shared.ErrNegativeObsCount
		}
	}
	return nil
}

// EMA returns the estimate for an outcome, or nil when the outcome has never
// been observed.
func (m *MasteryRecord) EMA(outcomeID string) *float64 {
	if v, ok := m.EMAByOutcome[outcomeID]; ok {
		return &v
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ROUTINE RECORD
// ══════════════════════════════════════════════════════════════════════════════

// RoutineRecord holds spaced-repetition due dates for one (student, course)
// pair.
type RoutineRecord struct {
	StudentID shared.StudentID
	CourseID  shared.CourseID

	// DueByOutcome maps outcomeId to its next review timestamp.
	DueByOutcome map[string]time.Time

	// LastTaughtAt is when the student last had a lesson in this course.
	LastTaughtAt *time.Time

	UpdatedAt time.Time
}

// OverdueOutcomes returns the outcome ids whose due date is at or before now.
func (r *RoutineRecord) OverdueOutcomes(now time.Time) []string {
	var overdue []string
	for id, due := range r.DueByOutcome {
		if !due.After(now) {
			overdue = append(overdue, id)
		}
	}
	return overdue
}
