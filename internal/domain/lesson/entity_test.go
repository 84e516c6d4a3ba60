package lesson

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/shared"
)

func TestValidateDuration(t *testing.T) {
	tests := []struct {
		name    string
		typ     shared.LessonType
		minutes int
		valid   bool
	}{
		{"ordinary lower bound", shared.LessonTypeOrdinary, 5, true},
		{"ordinary upper bound", shared.LessonTypeOrdinary, 120, true},
		{"ordinary too long", shared.LessonTypeOrdinary, 121, false},
		{"ordinary too short", shared.LessonTypeOrdinary, 4, false},
		{"mock exam extended bound", shared.LessonTypeMockExam, 180, true},
		{"mock exam too long", shared.LessonTypeMockExam, 181, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl := &Template{ID: "lt-1", Type: tt.typ, EstMinutes: tt.minutes}
			err := tmpl.ValidateDuration()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, shared.ErrValueOutOfRange)
			}
		})
	}
}

func TestDetectCycle(t *testing.T) {
	t.Run("acyclic chain passes", func(t *testing.T) {
		templates := []*Template{
			{ID: "a", Prereqs: []string{"b"}},
			{ID: "b", Prereqs: []string{"c"}},
			{ID: "c"},
		}
		assert.NoError(t, DetectCycle(templates))
	})

	t.Run("self-reference is a cycle", func(t *testing.T) {
		templates := []*Template{{ID: "a", Prereqs: []string{"a"}}}
		assert.ErrorIs(t, DetectCycle(templates), shared.ErrCircularReference)
	})

	t.Run("two-node cycle detected", func(t *testing.T) {
		templates := []*Template{
			{ID: "a", Prereqs: []string{"b"}},
			{ID: "b", Prereqs: []string{"a"}},
		}
		assert.ErrorIs(t, DetectCycle(templates), shared.ErrCircularReference)
	})

	t.Run("prereq outside fetched set is ignored", func(t *testing.T) {
		templates := []*Template{
			{ID: "a", Prereqs: []string{"missing"}},
		}
		assert.NoError(t, DetectCycle(templates))
	})

	t.Run("diamond is not a cycle", func(t *testing.T) {
		templates := []*Template{
			{ID: "a", Prereqs: []string{"b", "c"}},
			{ID: "b", Prereqs: []string{"d"}},
			{ID: "c", Prereqs: []string{"d"}},
			{ID: "d"},
		}
		assert.NoError(t, DetectCycle(templates))
	})
}
