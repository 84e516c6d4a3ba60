package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCourseCode(t *testing.T) {
	tests := []struct {
		code  string
		valid bool
	}{
		{"C844 73", true},
		{"H225 76", true},
		{"INVALID-FORMAT", false},
		{"c844 73", false},  // lowercase letter
		{"C84 73", false},   // too few digits
		{"C8444 73", false}, // too many digits
		{"C844  73", false}, // double space
		{"C844 7", false},   // short suffix
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.valid, CourseCode(tt.code).IsValid())
		})
	}
}

func TestNewCourseCode(t *testing.T) {
	cc, err := NewCourseCode("  C844 73  ")
	assert.NoError(t, err)
	assert.Equal(t, CourseCode("C844 73"), cc)

	_, err = NewCourseCode("INVALID-FORMAT")
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestEMAValueClamp(t *testing.T) {
	assert.Equal(t, EMAValue(0.0), EMAValue(-0.5).Clamp())
	assert.Equal(t, EMAValue(1.0), EMAValue(1.5).Clamp())
	assert.Equal(t, EMAValue(0.42), EMAValue(0.42).Clamp())
	assert.False(t, EMAValue(1.1).IsValid())
	assert.True(t, EMAValue(1.0).IsValid())
}

func TestLessonTypeDurationBounds(t *testing.T) {
	assert.True(t, LessonTypeOrdinary.ValidDuration(5))
	assert.True(t, LessonTypeOrdinary.ValidDuration(120))
	assert.False(t, LessonTypeOrdinary.ValidDuration(121))
	assert.False(t, LessonTypeOrdinary.ValidDuration(4))

	assert.True(t, LessonTypeMockExam.ValidDuration(180))
	assert.False(t, LessonTypeMockExam.ValidDuration(181))
}
