package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolofai/ScottishAILessons-sub002/internal/codec"
	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/curriculum"
	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/shared"
)

func encodedEntries(t *testing.T, entries []curriculum.Entry) string {
	t.Helper()
	s, err := codec.Encode(entries)
	require.NoError(t, err)
	return s
}

func newResolver(refs *fakeRefRepo, docs *fakeDocRepo, store codec.FileStore) *ResolveCurriculumHandler {
	return NewResolveCurriculumHandler(refs, docs, nil, store, time.Minute, testLogger())
}

func testDocument(t *testing.T) *curriculum.Document {
	return &curriculum.Document{
		ID:       testDocID,
		CourseID: testCourseID,
		Version:  "2",
		EntriesRaw: encodedEntries(t, []curriculum.Entry{
			{Order: 1, LessonTemplateID: "lt-1"},
			{Order: 2, LessonTemplateID: "lt-2"},
			{Order: 3, LessonTemplateID: "lt-3"},
		}),
	}
}

func testReference(overlayRaw string) *curriculum.Reference {
	return &curriculum.Reference{
		ID:               "ref-1",
		StudentID:        testStudentID,
		CourseID:         testCourseID,
		SourceDocumentID: testDocID,
		SourceVersion:    "2",
		OverlayRaw:       overlayRaw,
	}
}

func TestResolveCurriculum(t *testing.T) {
	ctx := context.Background()

	t.Run("no reference resolves to nil, not an error", func(t *testing.T) {
		h := newResolver(&fakeRefRepo{refs: map[pairKey]*curriculum.Reference{}}, &fakeDocRepo{}, nil)

		rc, err := h.Handle(ctx, ResolveCurriculumQuery{StudentID: testStudentID, CourseID: testCourseID})
		assert.NoError(t, err)
		assert.Nil(t, rc)
	})

	t.Run("dereferences the document and merges the overlay", func(t *testing.T) {
		refs := &fakeRefRepo{refs: map[pairKey]*curriculum.Reference{
			{testStudentID, testCourseID}: testReference(`{"2":{"skipped":true}}`),
		}}
		docs := &fakeDocRepo{docs: map[string]*curriculum.Document{testDocID: testDocument(t)}}

		rc, err := newResolver(refs, docs, nil).Handle(ctx, ResolveCurriculumQuery{StudentID: testStudentID, CourseID: testCourseID})
		require.NoError(t, err)
		require.NotNil(t, rc)
		assert.Equal(t, testDocID, rc.DocumentID)
		assert.Equal(t, curriculum.SourceReference, rc.Source)
		require.Len(t, rc.Entries, 3)
		assert.True(t, rc.Entries[1].Skipped)
	})

	t.Run("unmigrated reference fails with migration required", func(t *testing.T) {
		ref := testReference("")
		ref.SourceDocumentID = ""
		refs := &fakeRefRepo{refs: map[pairKey]*curriculum.Reference{{testStudentID, testCourseID}: ref}}

		_, err := newResolver(refs, &fakeDocRepo{}, nil).Handle(ctx, ResolveCurriculumQuery{StudentID: testStudentID, CourseID: testCourseID})
		assert.ErrorIs(t, err, shared.ErrMigrationRequired)
	})

	t.Run("missing document fails with referential integrity", func(t *testing.T) {
		refs := &fakeRefRepo{refs: map[pairKey]*curriculum.Reference{
			{testStudentID, testCourseID}: testReference(""),
		}}
		docs := &fakeDocRepo{docs: map[string]*curriculum.Document{}}

		_, err := newResolver(refs, docs, nil).Handle(ctx, ResolveCurriculumQuery{StudentID: testStudentID, CourseID: testCourseID})
		assert.ErrorIs(t, err, shared.ErrReferentialIntegrity)
	})

	t.Run("blob-indirected entries resolve through the file store", func(t *testing.T) {
		payload := encodedEntries(t, []curriculum.Entry{{Order: 1, LessonTemplateID: "lt-1"}})
		store := &fakeFileStore{blobs: map[string][]byte{"file-9": []byte(payload)}}

		doc := testDocument(t)
		doc.EntriesRaw = codec.BlobRef("file-9")

		refs := &fakeRefRepo{refs: map[pairKey]*curriculum.Reference{
			{testStudentID, testCourseID}: testReference(""),
		}}
		docs := &fakeDocRepo{docs: map[string]*curriculum.Document{testDocID: doc}}

		rc, err := newResolver(refs, docs, store).Handle(ctx, ResolveCurriculumQuery{StudentID: testStudentID, CourseID: testCourseID})
		require.NoError(t, err)
		require.Len(t, rc.Entries, 1)
		assert.Equal(t, "lt-1", rc.Entries[0].LessonTemplateID)
	})

	t.Run("duplicate orders in the document are rejected", func(t *testing.T) {
		doc := testDocument(t)
		doc.EntriesRaw = encodedEntries(t, []curriculum.Entry{
			{Order: 1, LessonTemplateID: "lt-1"},
			{Order: 1, LessonTemplateID: "lt-2"},
		})
		refs := &fakeRefRepo{refs: map[pairKey]*curriculum.Reference{
			{testStudentID, testCourseID}: testReference(""),
		}}
		docs := &fakeDocRepo{docs: map[string]*curriculum.Document{testDocID: doc}}

		_, err := newResolver(refs, docs, nil).Handle(ctx, ResolveCurriculumQuery{StudentID: testStudentID, CourseID: testCourseID})
		assert.ErrorIs(t, err, shared.ErrValidation)
	})
}

func TestDerivedQueries(t *testing.T) {
	ctx := context.Background()
	planned := time.Date(2026, time.September, 9, 0, 0, 0, 0, time.UTC) // ISO week 37

	refs := &fakeRefRepo{refs: map[pairKey]*curriculum.Reference{
		{testStudentID, testCourseID}: testReference(`{"1":{"skipped":true},"2":{"plannedAt":"2026-09-09T00:00:00Z"}}`),
	}}
	docs := &fakeDocRepo{docs: map[string]*curriculum.Document{testDocID: testDocument(t)}}
	h := newResolver(refs, docs, nil)

	t.Run("next lesson skips overlay-skipped and completed entries", func(t *testing.T) {
		res, err := h.NextLesson(ctx, NextLessonQuery{
			StudentID:          testStudentID,
			CourseID:           testCourseID,
			CompletedLessonIDs: []string{"lt-2"},
		})
		require.NoError(t, err)
		require.NotNil(t, res.Entry)
		assert.Equal(t, "lt-3", res.Entry.LessonTemplateID)
	})

	t.Run("progress excludes skipped entries from the denominator", func(t *testing.T) {
		res, err := h.Progress(ctx, ProgressQuery{
			StudentID:          testStudentID,
			CourseID:           testCourseID,
			CompletedLessonIDs: []string{"lt-2"},
		})
		require.NoError(t, err)
		assert.Equal(t, 2, res.Total)
		assert.Equal(t, 50, res.Percent)
	})

	t.Run("entries due in week filters on overlay planned dates", func(t *testing.T) {
		y, w := planned.ISOWeek()
		due, err := h.EntriesDueInWeek(ctx, EntriesDueQuery{
			StudentID: testStudentID,
			CourseID:  testCourseID,
			ISOYear:   y,
			ISOWeek:   w,
		})
		require.NoError(t, err)
		require.Len(t, due, 1)
		assert.Equal(t, 2, due[0].Order)
	})

	t.Run("derived queries need an enrollment", func(t *testing.T) {
		empty := newResolver(&fakeRefRepo{refs: map[pairKey]*curriculum.Reference{}}, docs, nil)
		_, err := empty.NextLesson(ctx, NextLessonQuery{StudentID: testStudentID, CourseID: testCourseID})
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}
