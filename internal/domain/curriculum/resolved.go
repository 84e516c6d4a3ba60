package curriculum

import (
	"math"
	"sort"
	"time"

	"github.com/schoolofai/ScottishAILessons-sub002/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// RESOLVED VIEW
// ══════════════════════════════════════════════════════════════════════════════

// Source identifies which storage path produced a resolved curriculum.
type Source string

const (
	// SourceReference means the curriculum came through an enrollment
	// reference dereferencing a canonical document.
	SourceReference Source = "reference"
	// SourceLegacy means the curriculum came from the flat legacy table
	// that predates the reference architecture.
	SourceLegacy Source = "legacy"
)

// ResolvedEntry is one canonical entry merged with its overlay annotations.
type ResolvedEntry struct {
	Order            int        `json:"order"`
	LessonTemplateID string     `json:"lessonTemplateId"`
	PlannedAt        *time.Time `json:"plannedAt,omitempty"`
	Skipped          bool       `json:"skipped,omitempty"`
	AddedManually    bool       `json:"addedManually,omitempty"`
	Notes            string     `json:"notes,omitempty"`
}

// ResolvedCurriculum is the merged read-time view: canonical entries plus
// metadata plus overlay annotations. Computed fresh on every resolve; the
// canonical document is never mutated.
type ResolvedCurriculum struct {
	DocumentID string          `json:"documentId"`
	Version    string          `json:"version"`
	Entries    []ResolvedEntry `json:"entries"`
	Metadata   map[string]any  `json:"metadata,omitempty"`
	Source     Source          `json:"source"`
}

// Merge combines canonical entries with an overlay into the resolved view.
// Overlay annotations are applied per order; overlay keys with no canonical
// counterpart become injected entries. The result is sorted ascending by
// order.
func Merge(entries []Entry, overlay Overlay) []ResolvedEntry {
	resolved := make([]ResolvedEntry, 0, len(entries))
	seen := make(map[int]struct{}, len(entries))

	for _, e := range entries {
		seen[e.Order] = struct{}{}
		re := ResolvedEntry{
			Order:            e.Order,
			LessonTemplateID: e.LessonTemplateID,
			PlannedAt:        e.PlannedAt,
		}
		if ov, ok := overlay[e.Order]; ok {
			re.Skipped = ov.Skipped
			re.Notes = ov.Notes
			if ov.PlannedAt != nil {
				re.PlannedAt = ov.PlannedAt
			}
			if ov.CustomLessonID != "" {
				re.LessonTemplateID = ov.CustomLessonID
			}
		}
		resolved = append(resolved, re)
	}

	// Orders present only in the overlay are manual insertions.
	for order, ov := range overlay {
		if _, ok := seen[order]; ok {
			continue
		}
		resolved = append(resolved, ResolvedEntry{
			Order:            order,
			LessonTemplateID: ov.CustomLessonID,
			PlannedAt:        ov.PlannedAt,
			Skipped:          ov.Skipped,
			AddedManually:    true,
			Notes:            ov.Notes,
		})
	}

	sort.Slice(resolved, func(i, j int) bool {
		return resolved[i].Order < resolved[j].Order
	})
	return resolved
}

// NextLesson returns the first entry, in ascending order, that is neither
// skipped nor already completed. Returns nil when nothing remains.
func (c *ResolvedCurriculum) NextLesson(completedLessonIDs []string) *ResolvedEntry {
	done := make(map[string]struct{}, len(completedLessonIDs))
	for _, id := range completedLessonIDs {
		done[id] = struct{}{}
	}
	for i := range c.Entries {
		e := &c.Entries[i]
		if e.Skipped {
			continue
		}
		if _, ok := done[e.LessonTemplateID]; ok {
			continue
		}
		return e
	}
	return nil
}

// ProgressPercent returns completed over total non-skipped entries, rounded
// to a whole percent. An all-skipped curriculum reports zero.
func (c *ResolvedCurriculum) ProgressPercent(completedLessonIDs []string) int {
	done := make(map[string]struct{}, len(completedLessonIDs))
	for _, id := range completedLessonIDs {
		done[id] = struct{}{}
	}
	total, completed := 0, 0
	for _, e := range c.Entries {
		if e.Skipped {
			continue
		}
		total++
		if _, ok := done[e.LessonTemplateID]; ok {
			completed++
		}
	}
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}

// EntriesDueInWeek returns entries whose planned date falls in the given ISO
// week. Entries without a planned date never match.
func (c *ResolvedCurriculum) EntriesDueInWeek(isoYear, isoWeek int) []ResolvedEntry {
	var due []ResolvedEntry
	for _, e := range c.Entries {
		if e.PlannedAt == nil {
			continue
		}
		if timeutil.InISOWeek(*e.PlannedAt, isoYear, isoWeek) {
			due = append(due, e)
		}
	}
	return due
}
