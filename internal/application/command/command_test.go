package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/continuity"
	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/curriculum"
	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/progress"
	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/shared"
	"github.com/schoolofai/ScottishAILessons-sub002/pkg/logger"
)

const (
	testStudentID = shared.StudentID("7ed99bd0-87b2-4dbb-a97b-596c3f29c49b")
	testCourseID  = shared.CourseID("9ca4322d-ebd5-4ffa-a340-56fe811bbab1")
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{Level: logger.LevelError, Development: true})
}

type pairKey struct {
	student shared.StudentID
	course  shared.CourseID
}

type fakeRefRepo struct {
	refs map[pairKey]*curriculum.Reference
}

func (f *fakeRefRepo) GetByStudentCourse(_ context.Context, sid shared.StudentID, cid shared.CourseID) (*curriculum.Reference, error) {
	if r, ok := f.refs[pairKey{sid, cid}]; ok {
		return r, nil
	}
	return nil, shared.ErrReferenceNotFound
}

func (f *fakeRefRepo) Create(_ context.Context, ref *curriculum.Reference) error {
	k := pairKey{ref.StudentID, ref.CourseID}
	if _, exists := f.refs[k]; exists {
		return shared.ErrReferenceExists
	}
	f.refs[k] = ref
	return nil
}

func (f *fakeRefRepo) UpdateOverlay(_ context.Context, sid shared.StudentID, cid shared.CourseID, raw string) error {
	r, ok := f.refs[pairKey{sid, cid}]
	if !ok {
		return shared.ErrReferenceNotFound
	}
	r.OverlayRaw = raw
	return nil
}

func (f *fakeRefRepo) ListRecent(_ context.Context, limit int) ([]*curriculum.Reference, error) {
	var out []*curriculum.Reference
	for _, r := range f.refs {
		if len(out) >= limit {
			break
		}
		out = append(out, r)
	}
	return out, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// CreateReference
// ──────────────────────────────────────────────────────────────────────────────

func TestCreateReference(t *testing.T) {
	ctx := context.Background()
	doc := &curriculum.Document{ID: "doc-1", CourseID: testCourseID, Version: "3"}

	t.Run("creates a pointer only", func(t *testing.T) {
		repo := &fakeRefRepo{refs: map[pairKey]*curriculum.Reference{}}
		h := NewCreateReferenceHandler(repo, testLogger())

		ref, err := h.Handle(ctx, CreateReferenceCommand{
			StudentID: testStudentID,
			CourseID:  testCourseID,
			Document:  doc,
		})
		require.NoError(t, err)
		assert.Equal(t, "doc-1", ref.SourceDocumentID)
		assert.Equal(t, "3", ref.SourceVersion)
		assert.Equal(t, "{}", ref.OverlayRaw)
		assert.NotEmpty(t, ref.ID)
	})

	t.Run("refuses a document without an ID", func(t *testing.T) {
		h := NewCreateReferenceHandler(&fakeRefRepo{refs: map[pairKey]*curriculum.Reference{}}, testLogger())

		_, err := h.Handle(ctx, CreateReferenceCommand{
			StudentID: testStudentID,
			CourseID:  testCourseID,
			Document:  &curriculum.Document{Version: "1"},
		})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("duplicate enrollment is rejected", func(t *testing.T) {
		repo := &fakeRefRepo{refs: map[pairKey]*curriculum.Reference{}}
		h := NewCreateReferenceHandler(repo, testLogger())
		cmd := CreateReferenceCommand{StudentID: testStudentID, CourseID: testCourseID, Document: doc}

		_, err := h.Handle(ctx, cmd)
		require.NoError(t, err)
		_, err = h.Handle(ctx, cmd)
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
	})
}

// ──────────────────────────────────────────────────────────────────────────────
// UpdateOverlay
// ──────────────────────────────────────────────────────────────────────────────

func TestUpdateOverlay(t *testing.T) {
	ctx := context.Background()

	t.Run("stores the encoded overlay", func(t *testing.T) {
		repo := &fakeRefRepo{refs: map[pairKey]*curriculum.Reference{
			{testStudentID, testCourseID}: {StudentID: testStudentID, CourseID: testCourseID, OverlayRaw: "{}"},
		}}
		h := NewUpdateOverlayHandler(repo, nil, testLogger())

		err := h.Handle(ctx, UpdateOverlayCommand{
			StudentID: testStudentID,
			CourseID:  testCourseID,
			Overlay:   curriculum.Overlay{2: {Skipped: true}},
		})
		require.NoError(t, err)

		stored := repo.refs[pairKey{testStudentID, testCourseID}]
		decoded, err := stored.DecodeOverlay()
		require.NoError(t, err)
		assert.True(t, decoded[2].Skipped)
	})

	t.Run("no enrollment reference fails", func(t *testing.T) {
		h := NewUpdateOverlayHandler(&fakeRefRepo{refs: map[pairKey]*curriculum.Reference{}}, nil, testLogger())

		err := h.Handle(ctx, UpdateOverlayCommand{
			StudentID: testStudentID,
			CourseID:  testCourseID,
			Overlay:   curriculum.Overlay{},
		})
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("non-positive overlay keys are rejected", func(t *testing.T) {
		h := NewUpdateOverlayHandler(&fakeRefRepo{refs: map[pairKey]*curriculum.Reference{}}, nil, testLogger())

		err := h.Handle(ctx, UpdateOverlayCommand{
			StudentID: testStudentID,
			CourseID:  testCourseID,
			Overlay:   curriculum.Overlay{0: {Skipped: true}},
		})
		assert.ErrorIs(t, err, shared.ErrValidation)
	})
}

// ──────────────────────────────────────────────────────────────────────────────
// SaveContinuity
// ──────────────────────────────────────────────────────────────────────────────

type fakeContinuityRepo struct {
	records      map[pairKey]*continuity.Record
	conflictHits int
}

func (f *fakeContinuityRepo) Get(_ context.Context, sid shared.StudentID, cid shared.CourseID) (*continuity.Record, error) {
	if r, ok := f.records[pairKey{sid, cid}]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, shared.ErrContinuityNotFound
}

func (f *fakeContinuityRepo) Create(_ context.Context, rec *continuity.Record) error {
	k := pairKey{rec.StudentID, rec.CourseID}
	if _, exists := f.records[k]; exists {
		return shared.ErrAlreadyExists
	}
	cp := *rec
	f.records[k] = &cp
	return nil
}

func (f *fakeContinuityRepo) Update(_ context.Context, rec *continuity.Record) error {
	k := pairKey{rec.StudentID, rec.CourseID}
	stored, ok := f.records[k]
	if !ok {
		return shared.ErrContinuityNotFound
	}
	if f.conflictHits > 0 {
		f.conflictHits--
		return shared.ErrContinuityConflict
	}
	if stored.Version != rec.Version {
		return shared.ErrContinuityConflict
	}
	cp := *rec
	cp.Version++
	f.records[k] = &cp
	return nil
}

func TestSaveContinuity(t *testing.T) {
	ctx := context.Background()

	t.Run("first run creates the record", func(t *testing.T) {
		repo := &fakeContinuityRepo{records: map[pairKey]*continuity.Record{}}
		h := NewSaveContinuityHandler(repo, testLogger())

		rec, err := h.Handle(ctx, SaveContinuityCommand{
			StudentID: testStudentID, CourseID: testCourseID, ThreadID: "thread-1",
		})
		require.NoError(t, err)
		assert.Equal(t, "thread-1", rec.ThreadID)
		assert.Equal(t, 1, rec.RecommendationCount)
	})

	t.Run("subsequent runs increment the counter", func(t *testing.T) {
		repo := &fakeContinuityRepo{records: map[pairKey]*continuity.Record{}}
		h := NewSaveContinuityHandler(repo, testLogger())
		cmd := SaveContinuityCommand{StudentID: testStudentID, CourseID: testCourseID, ThreadID: "thread-1"}

		_, err := h.Handle(ctx, cmd)
		require.NoError(t, err)
		rec, err := h.Handle(ctx, cmd)
		require.NoError(t, err)
		assert.Equal(t, 2, rec.RecommendationCount)
	})

	t.Run("transient conflict is retried", func(t *testing.T) {
		repo := &fakeContinuityRepo{
			records: map[pairKey]*continuity.Record{
				{testStudentID, testCourseID}: {StudentID: testStudentID, CourseID: testCourseID, ThreadID: "old", Version: 4, RecommendationCount: 9},
			},
			conflictHits: 1,
		}
		h := NewSaveContinuityHandler(repo, testLogger())

		rec, err := h.Handle(ctx, SaveContinuityCommand{
			StudentID: testStudentID, CourseID: testCourseID, ThreadID: "thread-2",
		})
		require.NoError(t, err)
		assert.Equal(t, "thread-2", rec.ThreadID)
		assert.Equal(t, 10, rec.RecommendationCount)
	})

	t.Run("empty thread id is rejected", func(t *testing.T) {
		h := NewSaveContinuityHandler(&fakeContinuityRepo{records: map[pairKey]*continuity.Record{}}, testLogger())

		_, err := h.Handle(ctx, SaveContinuityCommand{StudentID: testStudentID, CourseID: testCourseID})
		assert.ErrorIs(t, err, shared.ErrEmptyValue)
	})
}

// ──────────────────────────────────────────────────────────────────────────────
// RecordEvidence
// ──────────────────────────────────────────────────────────────────────────────

type fakeMasteryRepo struct {
	records map[pairKey]*progress.MasteryRecord
}

func (f *fakeMasteryRepo) Get(_ context.Context, sid shared.StudentID, cid shared.CourseID) (*progress.MasteryRecord, error) {
	if r, ok := f.records[pairKey{sid, cid}]; ok {
		return r, nil
	}
	return nil, shared.ErrMasteryNotFound
}

func (f *fakeMasteryRepo) Upsert(_ context.Context, rec *progress.MasteryRecord) error {
	f.records[pairKey{rec.StudentID, rec.CourseID}] = rec
	return nil
}

func TestRecordEvidence(t *testing.T) {
	ctx := context.Background()

	t.Run("first batch bootstraps every outcome", func(t *testing.T) {
		repo := &fakeMasteryRepo{records: map[pairKey]*progress.MasteryRecord{}}
		h := NewRecordEvidenceHandler(repo, progress.DefaultEMAConfig(), testLogger())

		res, err := h.Handle(ctx, RecordEvidenceCommand{
			StudentID:    testStudentID,
			CourseID:     testCourseID,
			Observations: map[string]float64{"o1": 0.8, "o2": 0.6},
		})
		require.NoError(t, err)
		assert.True(t, res.Updated["o1"].WasBootstrapped)
		assert.Equal(t, 0.8, res.Updated["o1"].NewEMA)

		stored := repo.records[pairKey{testStudentID, testCourseID}]
		assert.Equal(t, 1, stored.ObservationCounts["o1"])
	})

	t.Run("later batches smooth against the existing estimate", func(t *testing.T) {
		repo := &fakeMasteryRepo{records: map[pairKey]*progress.MasteryRecord{
			{testStudentID, testCourseID}: {
				StudentID:         testStudentID,
				CourseID:          testCourseID,
				EMAByOutcome:      map[string]float64{"o1": 0.8},
				ObservationCounts: map[string]int{"o1": 1},
			},
		}}
		h := NewRecordEvidenceHandler(repo, progress.DefaultEMAConfig(), testLogger())

		res, err := h.Handle(ctx, RecordEvidenceCommand{
			StudentID:    testStudentID,
			CourseID:     testCourseID,
			Observations: map[string]float64{"o1": 0.3},
		})
		require.NoError(t, err)
		assert.Equal(t, 0.5, res.Updated["o1"].EffectiveAlpha)
		assert.InDelta(t, 0.55, res.Updated["o1"].NewEMA, 1e-9)
	})

	t.Run("empty batch is rejected", func(t *testing.T) {
		h := NewRecordEvidenceHandler(&fakeMasteryRepo{records: map[pairKey]*progress.MasteryRecord{}}, progress.DefaultEMAConfig(), testLogger())

		_, err := h.Handle(ctx, RecordEvidenceCommand{StudentID: testStudentID, CourseID: testCourseID})
		assert.ErrorIs(t, err, shared.ErrEmptyValue)
	})
}
