// Package query contains read operations following the CQRS pattern.
// Queries never modify state. Each query is a self-contained use case with
// its own request/response types.
package query

import (
	"context"
	"time"

	"github.com/schoolofai/ScottishAILessons-sub002/internal/codec"
	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/curriculum"
	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/shared"
	"github.com/schoolofai/ScottishAILessons-sub002/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// RESOLVE CURRICULUM QUERY
// Dereferences a (student, course) enrollment to its canonical curriculum
// document and merges the customization overlay. The document is never
// copied and never mutated.
// ══════════════════════════════════════════════════════════════════════════════

// ResolveCurriculumQuery identifies the enrollment to resolve.
type ResolveCurriculumQuery struct {
	StudentID shared.StudentID
	CourseID  shared.CourseID
}

// Validate checks the query parameters.
func (q *ResolveCurriculumQuery) Validate() error {
	if !q.StudentID.IsValid() {
		return shared.ErrInvalidStudentID
	}
	if q.CourseID.IsEmpty() {
		return shared.NewDomainError("query", "ResolveCurriculum", shared.ErrInvalidID, "course ID cannot be empty")
	}
	return nil
}

// ResolveCurriculumHandler resolves enrollments to curricula.
type ResolveCurriculumHandler struct {
	refRepo   curriculum.ReferenceRepository
	docRepo   curriculum.DocumentRepository
	cache     curriculum.Cache
	fileStore codec.FileStore
	cacheTTL  time.Duration
	log       *logger.Logger
}

// NewResolveCurriculumHandler creates the handler. cache and fileStore may
// be nil; resolution then skips caching and fails on blob-indirected
// payloads respectively.
func NewResolveCurriculumHandler(
	refRepo curriculum.ReferenceRepository,
	docRepo curriculum.DocumentRepository,
	cache curriculum.Cache,
	fileStore codec.FileStore,
	cacheTTL time.Duration,
	log *logger.Logger,
) *ResolveCurriculumHandler {
	return &ResolveCurriculumHandler{
		refRepo:   refRepo,
		docRepo:   docRepo,
		cache:     cache,
		fileStore: fileStore,
		cacheTTL:  cacheTTL,
		log:       log,
	}
}

// Handle resolves the enrollment. A (nil, nil) return means the pair has no
// enrollment reference, which is a valid state, not an error.
func (h *ResolveCurriculumHandler) Handle(ctx context.Context, q ResolveCurriculumQuery) (*curriculum.ResolvedCurriculum, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	if h.cache != nil {
		if rc, err := h.cache.GetResolved(ctx, q.StudentID, q.CourseID); err == nil {
			return rc, nil
		}
	}

	ref, err := h.refRepo.GetByStudentCourse(ctx, q.StudentID, q.CourseID)
	if err != nil {
		if shared.IsNotFound(err) {
			// not yet enrolled via this mechanism
			return nil, nil
		}
		return nil, err
	}

	if !ref.IsMigrated() {
		return nil, shared.ErrReferenceUnmigrated
	}

	doc, err := h.docRepo.GetByID(ctx, ref.SourceDocumentID)
	if err != nil {
		if shared.IsNotFound(err) {
			// the reference outlived its target document
			return nil, shared.ErrDanglingReference
		}
		return nil, err
	}

	entries, err := h.decodeEntries(ctx, doc)
	if err != nil {
		return nil, err
	}
	if err := curriculum.ValidateEntries(entries); err != nil {
		return nil, err
	}

	metadata, err := h.decodeMetadata(ctx, doc)
	if err != nil {
		return nil, err
	}

	overlay, err := ref.DecodeOverlay()
	if err != nil {
		return nil, err
	}

	rc := &curriculum.ResolvedCurriculum{
		DocumentID: doc.ID,
		Version:    doc.Version,
		Entries:    curriculum.Merge(entries, overlay),
		Metadata:   metadata,
		Source:     curriculum.SourceReference,
	}

	if h.cache != nil {
		if err := h.cache.SetResolved(ctx, q.StudentID, q.CourseID, rc, h.cacheTTL); err != nil {
			h.log.Warn("failed to cache resolved curriculum",
				logger.StudentID(string(q.StudentID)),
				logger.CourseID(string(q.CourseID)),
				logger.Err(err))
		}
	}

	return rc, nil
}

func (h *ResolveCurriculumHandler) decodeEntries(ctx context.Context, doc *curriculum.Document) ([]curriculum.Entry, error) {
	if doc.EntriesRaw == "" {
		return nil, nil
	}
	decoded, err := codec.DecodeRef(ctx, doc.EntriesRaw, h.fileStore)
	if err != nil {
		return nil, err
	}
	var entries []curriculum.Entry
	if err := codec.DecodeInto(decoded, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (h *ResolveCurriculumHandler) decodeMetadata(ctx context.Context, doc *curriculum.Document) (map[string]any, error) {
	if doc.MetadataRaw == "" {
		return nil, nil
	}
	decoded, err := codec.DecodeRef(ctx, doc.MetadataRaw, h.fileStore)
	if err != nil {
		return nil, err
	}
	md, ok := decoded.(map[string]any)
	if !ok {
		return nil, shared.NewDomainError("curriculum", "DecodeMetadata", shared.ErrDecompression,
			"document metadata is not a JSON object")
	}
	return md, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DERIVED QUERIES
// Built on top of Handle; they never touch storage directly.
// ══════════════════════════════════════════════════════════════════════════════

// NextLessonQuery asks for the first unfinished, non-skipped entry.
type NextLessonQuery struct {
	StudentID shared.StudentID
	CourseID  shared.CourseID

	// CompletedLessonIDs is the external completion list: lesson template
	// ids the student has already finished.
	CompletedLessonIDs []string
}

// NextLessonResult reports the next entry, if any remains.
type NextLessonResult struct {
	Entry *curriculum.ResolvedEntry `json:"entry"`
	Done  bool                      `json:"done"`
}

// NextLesson returns the first entry, ascending by order, that is neither
// skipped in the overlay nor already completed. Returns ErrReferenceNotFound
// when the pair has no enrollment reference.
func (h *ResolveCurriculumHandler) NextLesson(ctx context.Context, q NextLessonQuery) (*NextLessonResult, error) {
	rc, err := h.Handle(ctx, ResolveCurriculumQuery{StudentID: q.StudentID, CourseID: q.CourseID})
	if err != nil {
		return nil, err
	}
	if rc == nil {
		return nil, shared.ErrReferenceNotFound
	}
	entry := rc.NextLesson(q.CompletedLessonIDs)
	return &NextLessonResult{Entry: entry, Done: entry == nil}, nil
}

// ProgressQuery asks for completion percentage.
type ProgressQuery struct {
	StudentID          shared.StudentID
	CourseID           shared.CourseID
	CompletedLessonIDs []string
}

// ProgressResult reports completion over non-skipped entries.
type ProgressResult struct {
	Percent int `json:"percent"`
	Total   int `json:"total"`
}

// Progress returns completed over total non-skipped entries, rounded to a
// whole percent.
func (h *ResolveCurriculumHandler) Progress(ctx context.Context, q ProgressQuery) (*ProgressResult, error) {
	rc, err := h.Handle(ctx, ResolveCurriculumQuery{StudentID: q.StudentID, CourseID: q.CourseID})
	if err != nil {
		return nil, err
	}
	if rc == nil {
		return nil, shared.ErrReferenceNotFound
	}
	total := 0
	for _, e := range rc.Entries {
		if !e.Skipped {
			total++
		}
	}
	return &ProgressResult{
		Percent: rc.ProgressPercent(q.CompletedLessonIDs),
		Total:   total,
	}, nil
}

// EntriesDueQuery asks for entries planned in a given ISO week.
type EntriesDueQuery struct {
	StudentID shared.StudentID
	CourseID  shared.CourseID
	ISOYear   int
	ISOWeek   int
}

// EntriesDueInWeek returns the entries whose planned date falls in the given
// ISO week.
func (h *ResolveCurriculumHandler) EntriesDueInWeek(ctx context.Context, q EntriesDueQuery) ([]curriculum.ResolvedEntry, error) {
	if q.ISOWeek < 1 || q.ISOWeek > 53 {
		return nil, shared.NewDomainError("query", "EntriesDueInWeek", shared.ErrValueOutOfRange, "ISO week must be in [1,53]")
	}
	rc, err := h.Handle(ctx, ResolveCurriculumQuery{StudentID: q.StudentID, CourseID: q.CourseID})
	if err != nil {
		return nil, err
	}
	if rc == nil {
		return nil, shared.ErrReferenceNotFound
	}
	return rc.EntriesDueInWeek(q.ISOYear, q.ISOWeek), nil
}
