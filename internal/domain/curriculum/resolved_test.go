package curriculum

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/shared"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestValidateEntries(t *testing.T) {
	t.Run("unique positive orders pass", func(t *testing.T) {
		err := ValidateEntries([]Entry{
			{Order: 1, LessonTemplateID: "lt-1"},
			{Order: 2, LessonTemplateID: "lt-2"},
			{Order: 5, LessonTemplateID: "lt-3"},
		})
		assert.NoError(t, err)
	})

	t.Run("duplicate order rejected", func(t *testing.T) {
		err := ValidateEntries([]Entry{
			{Order: 1, LessonTemplateID: "lt-1"},
			{Order: 1, LessonTemplateID: "lt-2"},
		})
		assert.ErrorIs(t, err, shared.ErrDuplicateEntryOrder)
	})

	t.Run("non-positive order rejected", func(t *testing.T) {
		err := ValidateEntries([]Entry{{Order: 0, LessonTemplateID: "lt-1"}})
		assert.Error(t, err)
	})
}

func TestMerge(t *testing.T) {
	entries := []Entry{
		{Order: 1, LessonTemplateID: "lt-1"},
		{Order: 2, LessonTemplateID: "lt-2", PlannedAt: date(2026, time.September, 7)},
		{Order: 3, LessonTemplateID: "lt-3"},
	}

	t.Run("empty overlay is passthrough", func(t *testing.T) {
		resolved := Merge(entries, Overlay{})
		require.Len(t, resolved, 3)
		assert.Equal(t, "lt-1", resolved[0].LessonTemplateID)
		assert.False(t, resolved[0].Skipped)
	})

	t.Run("overlay annotates without mutating canonical entries", func(t *testing.T) {
		overlay := Overlay{
			2: {Skipped: true, Notes: "covered in class"},
		}
		resolved := Merge(entries, overlay)
		require.Len(t, resolved, 3)
		assert.True(t, resolved[1].Skipped)
		assert.Equal(t, "covered in class", resolved[1].Notes)

		// canonical slice untouched
		assert.Equal(t, "lt-2", entries[1].LessonTemplateID)
	})

	t.Run("custom lesson substitutes the template", func(t *testing.T) {
		resolved := Merge(entries, Overlay{1: {CustomLessonID: "lt-custom"}})
		assert.Equal(t, "lt-custom", resolved[0].LessonTemplateID)
	})

	t.Run("overlay-only order is injected and sorted into place", func(t *testing.T) {
		overlay := Overlay{
			2: {PlannedAt: date(2026, time.September, 14)},
			4: {CustomLessonID: "lt-extra", AddedManually: true},
		}
		resolved := Merge(entries, overlay)
		require.Len(t, resolved, 4)
		assert.Equal(t, 4, resolved[3].Order)
		assert.True(t, resolved[3].AddedManually)
		assert.Equal(t, "lt-extra", resolved[3].LessonTemplateID)
		// overlay plannedAt wins over canonical
		assert.Equal(t, *date(2026, time.September, 14), *resolved[1].PlannedAt)
	})
}

func TestNextLesson(t *testing.T) {
	rc := &ResolvedCurriculum{
		Entries: []ResolvedEntry{
			{Order: 1, LessonTemplateID: "lt-1"},
			{Order: 2, LessonTemplateID: "lt-2", Skipped: true},
			{Order: 3, LessonTemplateID: "lt-3"},
		},
	}

	t.Run("first incomplete non-skipped entry", func(t *testing.T) {
		next := rc.NextLesson([]string{"lt-1"})
		require.NotNil(t, next)
		assert.Equal(t, 3, next.Order)
	})

	t.Run("skipped entry never selected", func(t *testing.T) {
		next := rc.NextLesson(nil)
		require.NotNil(t, next)
		assert.Equal(t, "lt-1", next.LessonTemplateID)

		next = rc.NextLesson([]string{"lt-1", "lt-3"})
		assert.Nil(t, next)
	})
}

func TestProgressPercent(t *testing.T) {
	rc := &ResolvedCurriculum{
		Entries: []ResolvedEntry{
			{Order: 1, LessonTemplateID: "lt-1"},
			{Order: 2, LessonTemplateID: "lt-2", Skipped: true},
			{Order: 3, LessonTemplateID: "lt-3"},
			{Order: 4, LessonTemplateID: "lt-4"},
		},
	}

	// skipped entries are excluded from the denominator
	assert.Equal(t, 33, rc.ProgressPercent([]string{"lt-1"}))
	assert.Equal(t, 100, rc.ProgressPercent([]string{"lt-1", "lt-3", "lt-4"}))
	assert.Equal(t, 0, rc.ProgressPercent(nil))

	allSkipped := &ResolvedCurriculum{
		Entries: []ResolvedEntry{{Order: 1, LessonTemplateID: "lt-1", Skipped: true}},
	}
	assert.Equal(t, 0, allSkipped.ProgressPercent(nil))
}

func TestEntriesDueInWeek(t *testing.T) {
	rc := &ResolvedCurriculum{
		Entries: []ResolvedEntry{
			{Order: 1, LessonTemplateID: "lt-1", PlannedAt: date(2026, time.September, 7)},  // ISO week 37
			{Order: 2, LessonTemplateID: "lt-2", PlannedAt: date(2026, time.September, 13)}, // Sunday of week 37
			{Order: 3, LessonTemplateID: "lt-3", PlannedAt: date(2026, time.September, 14)}, // week 38
			{Order: 4, LessonTemplateID: "lt-4"},
		},
	}

	due := rc.EntriesDueInWeek(2026, 37)
	require.Len(t, due, 2)
	assert.Equal(t, 1, due[0].Order)
	assert.Equal(t, 2, due[1].Order)

	assert.Empty(t, rc.EntriesDueInWeek(2026, 40))
}

func TestDecodeOverlay(t *testing.T) {
	t.Run("absent overlay yields empty map", func(t *testing.T) {
		ref := &Reference{}
		o, err := ref.DecodeOverlay()
		assert.NoError(t, err)
		assert.Empty(t, o)
	})

	t.Run("valid JSON parses", func(t *testing.T) {
		ref := &Reference{OverlayRaw: `{"2":{"skipped":true,"notes":"revisit later"}}`}
		o, err := ref.DecodeOverlay()
		require.NoError(t, err)
		assert.True(t, o[2].Skipped)
		assert.Equal(t, "revisit later", o[2].Notes)
	})

	t.Run("malformed JSON fails", func(t *testing.T) {
		ref := &Reference{OverlayRaw: `{not json`}
		_, err := ref.DecodeOverlay()
		assert.Error(t, err)
	})
}

func TestOverlayEncodeRoundTrip(t *testing.T) {
	o := Overlay{3: {Skipped: true, CustomLessonID: "lt-x"}}
	raw, err := o.Encode()
	require.NoError(t, err)

	ref := &Reference{OverlayRaw: raw}
	decoded, err := ref.DecodeOverlay()
	require.NoError(t, err)
	assert.Equal(t, o, decoded)
}
