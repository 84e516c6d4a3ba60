package query

import (
	"context"
	"time"

	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/continuity"
	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/course"
	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/curriculum"
	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/lesson"
	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/progress"
	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/shared"
	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/student"
	"github.com/schoolofai/ScottishAILessons-sub002/pkg/logger"
)

// In-memory fakes for handler tests. Each fake returns its configured err
// first, then falls back to its stored data.

func testLogger() *logger.Logger {
	return logger.New(logger.Options{Level: logger.LevelError, Development: true})
}

type fakeStudentRepo struct {
	students map[shared.StudentID]*student.Student
	err      error
}

func (f *fakeStudentRepo) GetByID(_ context.Context, id shared.StudentID) (*student.Student, error) {
	if f.err != nil {
		return nil, f.err
	}
	if s, ok := f.students[id]; ok {
		return s, nil
	}
	return nil, shared.ErrStudentNotFound
}

func (f *fakeStudentRepo) GetByUserID(_ context.Context, userID string) (*student.Student, error) {
	for _, s := range f.students {
		if s.UserID == userID {
			return s, nil
		}
	}
	return nil, shared.ErrStudentNotFound
}

func (f *fakeStudentRepo) Create(_ context.Context, s *student.Student) error {
	f.students[s.ID] = s
	return nil
}

func (f *fakeStudentRepo) Update(_ context.Context, s *student.Student) error {
	f.students[s.ID] = s
	return nil
}

func (f *fakeStudentRepo) Exists(_ context.Context, id shared.StudentID) (bool, error) {
	_, ok := f.students[id]
	return ok, nil
}

type fakeCourseRepo struct {
	courses map[shared.CourseID]*course.Course
	err     error
}

func (f *fakeCourseRepo) GetByID(_ context.Context, id shared.CourseID) (*course.Course, error) {
	if f.err != nil {
		return nil, f.err
	}
	if c, ok := f.courses[id]; ok {
		return c, nil
	}
	return nil, shared.ErrCourseNotFound
}

func (f *fakeCourseRepo) GetByCode(_ context.Context, code shared.CourseCode) (*course.Course, error) {
	for _, c := range f.courses {
		if c.Code == code {
			return c, nil
		}
	}
	return nil, shared.ErrCourseNotFound
}

func (f *fakeCourseRepo) ListActive(_ context.Context) ([]*course.Course, error) {
	var out []*course.Course
	for _, c := range f.courses {
		if c.Status == course.StatusActive {
			out = append(out, c)
		}
	}
	return out, nil
}

type pairKey struct {
	student shared.StudentID
	course  shared.CourseID
}

type fakeRefRepo struct {
	refs map[pairKey]*curriculum.Reference
	err  error
}

func (f *fakeRefRepo) GetByStudentCourse(_ context.Context, sid shared.StudentID, cid shared.CourseID) (*curriculum.Reference, error) {
	if f.err != nil {
		return nil, f.err
	}
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
	if f.err != nil {
		return nil, f.err
	}
	var out []*curriculum.Reference
	for _, r := range f.refs {
		if len(out) >= limit {
			break
		}
		out = append(out, r)
	}
	return out, nil
}

type fakeDocRepo struct {
	docs map[string]*curriculum.Document
	err  error
}

func (f *fakeDocRepo) GetByID(_ context.Context, id string) (*curriculum.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	if d, ok := f.docs[id]; ok {
		return d, nil
	}
	return nil, shared.ErrDocumentNotFound
}

type fakeLegacyRepo struct {
	entries map[pairKey][]curriculum.LegacyEntry
	err     error
}

func (f *fakeLegacyRepo) ListByStudentCourse(_ context.Context, sid shared.StudentID, cid shared.CourseID) ([]curriculum.LegacyEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.entries[pairKey{sid, cid}], nil
}

type fakeLessonRepo struct {
	templates map[shared.CourseID][]*lesson.Template
	err       error
}

func (f *fakeLessonRepo) GetByID(_ context.Context, id string) (*lesson.Template, error) {
	for _, ts := range f.templates {
		for _, t := range ts {
			if t.ID == id {
				return t, nil
			}
		}
	}
	return nil, shared.ErrNotFound
}

func (f *fakeLessonRepo) ListPublishedByCourse(_ context.Context, cid shared.CourseID) ([]*lesson.Template, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.templates[cid], nil
}

type fakeMasteryRepo struct {
	records map[pairKey]*progress.MasteryRecord
	err     error
}

func (f *fakeMasteryRepo) Get(_ context.Context, sid shared.StudentID, cid shared.CourseID) (*progress.MasteryRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	if r, ok := f.records[pairKey{sid, cid}]; ok {
		return r, nil
	}
	return nil, shared.ErrMasteryNotFound
}

func (f *fakeMasteryRepo) Upsert(_ context.Context, rec *progress.MasteryRecord) error {
	if f.records == nil {
		f.records = map[pairKey]*progress.MasteryRecord{}
	}
	f.records[pairKey{rec.StudentID, rec.CourseID}] = rec
	return nil
}

type fakeRoutineRepo struct {
	records map[pairKey]*progress.RoutineRecord
	err     error
}

func (f *fakeRoutineRepo) Get(_ context.Context, sid shared.StudentID, cid shared.CourseID) (*progress.RoutineRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	if r, ok := f.records[pairKey{sid, cid}]; ok {
		return r, nil
	}
	return nil, shared.ErrRoutineNotFound
}

func (f *fakeRoutineRepo) Upsert(_ context.Context, rec *progress.RoutineRecord) error {
	if f.records == nil {
		f.records = map[pairKey]*progress.RoutineRecord{}
	}
	f.records[pairKey{rec.StudentID, rec.CourseID}] = rec
	return nil
}

func (f *fakeRoutineRepo) ListDueBefore(_ context.Context, cutoff time.Time, limit int) ([]*progress.RoutineRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*progress.RoutineRecord
	for _, r := range f.records {
		if len(out) >= limit {
			break
		}
		if len(r.OverdueOutcomes(cutoff)) > 0 {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeContinuityRepo struct {
	records map[pairKey]*continuity.Record
	err     error
}

func (f *fakeContinuityRepo) Get(_ context.Context, sid shared.StudentID, cid shared.CourseID) (*continuity.Record, error) {
	if f.err != nil {
		return nil, f.err
	}
	if r, ok := f.records[pairKey{sid, cid}]; ok {
		return r, nil
	}
	return nil, shared.ErrContinuityNotFound
}

func (f *fakeContinuityRepo) Create(_ context.Context, rec *continuity.Record) error {
	if f.records == nil {
		f.records = map[pairKey]*continuity.Record{}
	}
	k := pairKey{rec.StudentID, rec.CourseID}
	if _, exists := f.records[k]; exists {
		return shared.ErrAlreadyExists
	}
	f.records[k] = rec
	return nil
}

func (f *fakeContinuityRepo) Update(_ context.Context, rec *continuity.Record) error {
	k := pairKey{rec.StudentID, rec.CourseID}
	stored, ok := f.records[k]
	if !ok {
		return shared.ErrContinuityNotFound
	}
	if stored.Version != rec.Version {
		return shared.ErrContinuityConflict
	}
	rec.Version++
	f.records[k] = rec
	return nil
}

type fakeFileStore struct {
	blobs map[string][]byte
	err   error
}

func (f *fakeFileStore) Fetch(_ context.Context, id string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	if b, ok := f.blobs[id]; ok {
		return b, nil
	}
	return nil, shared.ErrObjectNotFound
}

// fixture helpers

const (
	testStudentID = shared.StudentID("7ed99bd0-87b2-4dbb-a97b-596c3f29c49b")
	testCourseID  = shared.CourseID("9ca4322d-ebd5-4ffa-a340-56fe811bbab1")
	testDocID     = "doc-1"
)

func testStudent() *student.Student {
	return &student.Student{
		ID:                testStudentID,
		UserID:            "user-1",
		DisplayName:       "Aileen",
		AccommodationTags: []string{"extra-time"},
		EnrolledCourseIDs: []shared.CourseID{testCourseID},
		CreatedAt:         time.Now().UTC(),
	}
}

func testCourse() *course.Course {
	return &course.Course{
		ID:      testCourseID,
		Code:    shared.CourseCode("C844 73"),
		Subject: "Applications of Mathematics",
		Level:   "National 3",
		Status:  course.StatusActive,
	}
}
