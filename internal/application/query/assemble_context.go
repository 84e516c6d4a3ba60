package query

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/schoolofai/ScottishAILessons-sub002/internal/codec"
	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/continuity"
	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/course"
	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/curriculum"
	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/lesson"
	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/progress"
	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/shared"
	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/student"
	"github.com/schoolofai/ScottishAILessons-sub002/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ASSEMBLE SCHEDULING CONTEXT QUERY
// Orchestrates the resolver, lesson catalog, mastery, routine, and
// continuity stores into one validated snapshot for the recommendation
// engine. The pipeline is linear: each step either aborts (required),
// degrades (optional), or passes its output forward. The context is never
// persisted; every request computes it fresh.
// ══════════════════════════════════════════════════════════════════════════════

// AssembleContextQuery identifies the pair to assemble for.
type AssembleContextQuery struct {
	StudentID shared.StudentID
	CourseID  shared.CourseID
}

// Validate checks the query parameters.
func (q *AssembleContextQuery) Validate() error {
	if !q.StudentID.IsValid() {
		return shared.ErrInvalidStudentID
	}
	if q.CourseID.IsEmpty() {
		return shared.NewDomainError("query", "AssembleContext", shared.ErrInvalidID, "course ID cannot be empty")
	}
	return nil
}

// StudentSummary is the student slice of the context.
type StudentSummary struct {
	ID                string   `json:"id"`
	DisplayName       string   `json:"displayName"`
	AccommodationTags []string `json:"accommodationTags,omitempty"`
}

// CourseSummary is the course slice of the context.
type CourseSummary struct {
	ID      string `json:"id"`
	Code    string `json:"code"`
	Subject string `json:"subject"`
	Level   string `json:"level"`
}

// TemplateDTO is a lesson template with its encoded fields parsed.
type TemplateDTO struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	OutcomeRefs []string `json:"outcomeRefs"`
	Prereqs     []string `json:"prereqs,omitempty"`
	EstMinutes  int      `json:"estMinutes"`
	Type        string   `json:"type"`
	Difficulty  int      `json:"difficulty"`
}

// RoutineDTO is the spaced-repetition slice of the context.
type RoutineDTO struct {
	DueByOutcome map[string]time.Time `json:"dueByOutcome"`
	LastTaughtAt *time.Time           `json:"lastTaughtAt,omitempty"`
}

// Constraints is the static scheduling policy handed to the engine. Not
// computed here; these are product-level knobs.
type Constraints struct {
	MaxBlockMinutes  int  `json:"maxBlockMinutes"`
	PreferOverdue    bool `json:"preferOverdue"`
	PreferLowMastery bool `json:"preferLowMastery"`
}

// DefaultConstraints returns the current policy.
func DefaultConstraints() Constraints {
	return Constraints{
		MaxBlockMinutes:  90,
		PreferOverdue:    true,
		PreferLowMastery: true,
	}
}

// SchedulingContext is the assembled, validated output. Optional slices are
// nil when their fetch degraded.
type SchedulingContext struct {
	Student     StudentSummary             `json:"student"`
	Course      CourseSummary              `json:"course"`
	Entries     []curriculum.ResolvedEntry `json:"entries"`
	Templates   []TemplateDTO              `json:"templates"`
	Mastery     map[string]float64         `json:"mastery,omitempty"`
	Routine     *RoutineDTO                `json:"routine,omitempty"`
	Constraints Constraints                `json:"constraints"`
	ThreadID    string                     `json:"threadId,omitempty"`
	GeneratedAt time.Time                  `json:"generatedAt"`
}

// AssembleContextHandler builds scheduling contexts.
type AssembleContextHandler struct {
	studentRepo    student.Repository
	courseRepo     course.Repository
	resolver       *ResolveCurriculumHandler
	legacyRepo     curriculum.LegacyEntryRepository
	lessonRepo     lesson.Repository
	masteryRepo    progress.MasteryRepository
	routineRepo    progress.RoutineRepository
	continuityRepo continuity.Repository
	fileStore      codec.FileStore
	log            *logger.Logger
}

// NewAssembleContextHandler creates the handler. All store handles are
// injected; the handler holds no ambient state.
func NewAssembleContextHandler(
	studentRepo student.Repository,
	courseRepo course.Repository,
	resolver *ResolveCurriculumHandler,
	legacyRepo curriculum.LegacyEntryRepository,
	lessonRepo lesson.Repository,
	masteryRepo progress.MasteryRepository,
	routineRepo progress.RoutineRepository,
	continuityRepo continuity.Repository,
	fileStore codec.FileStore,
	log *logger.Logger,
) *AssembleContextHandler {
	return &AssembleContextHandler{
		studentRepo:    studentRepo,
		courseRepo:     courseRepo,
		resolver:       resolver,
		legacyRepo:     legacyRepo,
		lessonRepo:     lessonRepo,
		masteryRepo:    masteryRepo,
		routineRepo:    routineRepo,
		continuityRepo: continuityRepo,
		fileStore:      fileStore,
		log:            log,
	}
}

// Handle runs the assembly pipeline. Required-step failures return a single
// wrapped error carrying the original cause; optional-step failures are
// logged and their field left absent.
func (h *AssembleContextHandler) Handle(ctx context.Context, q AssembleContextQuery) (*SchedulingContext, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	log := h.log.With(
		logger.StudentID(string(q.StudentID)),
		logger.CourseID(string(q.CourseID)))

	// ── required: student ────────────────────────────────────────────────
	st, err := h.fetchStudent(ctx, q)
	if err != nil {
		return nil, err
	}

	// ── required: course ─────────────────────────────────────────────────
	crs, err := h.fetchCourse(ctx, q)
	if err != nil {
		return nil, err
	}

	// ── best-effort: curriculum, with legacy fallback ────────────────────
	entries := h.resolveEntries(ctx, q, log)

	// ── required: lesson catalog ─────────────────────────────────────────
	templates, err := h.fetchCatalog(ctx, q, log)
	if err != nil {
		return nil, err
	}
	if err := lesson.DetectCycle(templates); err != nil {
		return nil, shared.WrapError("assembler", "Assemble", shared.ErrCircularReference,
			fmt.Sprintf("Prerequisite cycle detected in lesson catalog for course %s", q.CourseID), err)
	}

	sc := &SchedulingContext{
		Student: StudentSummary{
			ID:                string(st.ID),
			DisplayName:       st.DisplayName,
			AccommodationTags: st.AccommodationTags,
		},
		Course: CourseSummary{
			ID:      string(crs.ID),
			Code:    string(crs.Code),
			Subject: crs.Subject,
			Level:   crs.Level,
		},
		Entries:     entries,
		Templates:   toTemplateDTOs(templates),
		Constraints: DefaultConstraints(),
		GeneratedAt: time.Now().UTC(),
	}

	// ── optional: mastery, routine, continuity ───────────────────────────
	h.attachMastery(ctx, q, sc, log)
	h.attachRoutine(ctx, q, sc, log)
	h.attachContinuity(ctx, q, sc, log)

	// ── validate the assembled structure ─────────────────────────────────
	if err := h.validate(sc, templates); err != nil {
		return nil, err
	}

	return sc, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Required steps
// ──────────────────────────────────────────────────────────────────────────────

func (h *AssembleContextHandler) fetchStudent(ctx context.Context, q AssembleContextQuery) (*student.Student, error) {
	st, err := h.studentRepo.GetByID(ctx, q.StudentID)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, shared.WrapError("assembler", "Assemble", shared.ErrNotFound,
				fmt.Sprintf("Student with ID %s not found", q.StudentID), err)
		}
		return nil, shared.WrapError("assembler", "Assemble", shared.ErrUpstreamUnavailable,
			fmt.Sprintf("Failed to fetch student %s", q.StudentID), err)
	}
	// enrollment is verified strictly: an inconclusive membership check is
	// a denial, not a pass
	if !st.IsEnrolledIn(q.CourseID) {
		return nil, shared.WrapError("assembler", "Assemble", shared.ErrForbidden,
			fmt.Sprintf("Student %s is not enrolled in course %s", q.StudentID, q.CourseID),
			shared.ErrStudentNotEnrolled)
	}
	return st, nil
}

func (h *AssembleContextHandler) fetchCourse(ctx context.Context, q AssembleContextQuery) (*course.Course, error) {
	crs, err := h.courseRepo.GetByID(ctx, q.CourseID)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, shared.WrapError("assembler", "Assemble", shared.ErrNotFound,
				fmt.Sprintf("Course with ID %s not found", q.CourseID), err)
		}
		return nil, shared.WrapError("assembler", "Assemble", shared.ErrUpstreamUnavailable,
			fmt.Sprintf("Failed to fetch course %s", q.CourseID), err)
	}
	if !crs.Code.IsValid() {
		return nil, shared.WrapError("assembler", "Assemble", shared.ErrInvalidFormat,
			fmt.Sprintf("Course %s has malformed course code %q", q.CourseID, crs.Code),
			shared.ErrInvalidCourseCode)
	}
	return crs, nil
}

func (h *AssembleContextHandler) fetchCatalog(ctx context.Context, q AssembleContextQuery, log *logger.Logger) ([]*lesson.Template, error) {
	templates, err := h.lessonRepo.ListPublishedByCourse(ctx, q.CourseID)
	if err != nil {
		return nil, shared.WrapError("assembler", "Assemble", shared.ErrUpstreamUnavailable,
			fmt.Sprintf("Failed to fetch lesson catalog for course %s", q.CourseID), err)
	}
	if len(templates) == 0 {
		return nil, shared.WrapError("assembler", "Assemble", shared.ErrNotFound,
			"No lesson templates found for course", shared.ErrNoLessonTemplates)
	}

	for _, t := range templates {
		if err := h.parseTemplate(ctx, t, log); err != nil {
			return nil, err
		}
		if err := t.ValidateDuration(); err != nil {
			return nil, shared.WrapError("assembler", "Assemble", shared.ErrValueOutOfRange,
				fmt.Sprintf("Lesson template %s has invalid duration", t.ID), err)
		}
	}
	return templates, nil
}

// parseTemplate decodes the encoded catalog fields. Outcome refs fund the
// recommendation score, so malformed outcome data is fatal; malformed
// prerequisite data decays to an empty list.
func (h *AssembleContextHandler) parseTemplate(ctx context.Context, t *lesson.Template, log *logger.Logger) error {
	if t.OutcomeRefsRaw != "" && t.OutcomeRefs == nil {
		decoded, err := codec.DecodeRef(ctx, t.OutcomeRefsRaw, h.fileStore)
		if err == nil {
			err = codec.DecodeInto(decoded, &t.OutcomeRefs)
		}
		if err != nil {
			return shared.WrapError("assembler", "Assemble", shared.ErrDecompression,
				fmt.Sprintf("Lesson template %s has malformed outcome references", t.ID), err)
		}
	}
	if t.PrereqsRaw != "" && t.Prereqs == nil {
		decoded, err := codec.DecodeRef(ctx, t.PrereqsRaw, h.fileStore)
		if err == nil {
			err = codec.DecodeInto(decoded, &t.Prereqs)
		}
		if err != nil {
			log.Warn("malformed prerequisite data, defaulting to empty",
				logger.LessonID(t.ID), logger.Err(err))
			t.Prereqs = nil
		}
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Best-effort curriculum
// ──────────────────────────────────────────────────────────────────────────────

// resolveEntries tries the reference-based resolver first, then the flat
// legacy table. Curricula that predate the reference architecture live only
// in the legacy table, so resolver errors degrade to the fallback rather
// than aborting. An empty result from both is valid.
func (h *AssembleContextHandler) resolveEntries(ctx context.Context, q AssembleContextQuery, log *logger.Logger) []curriculum.ResolvedEntry {
	rc, err := h.resolver.Handle(ctx, ResolveCurriculumQuery{StudentID: q.StudentID, CourseID: q.CourseID})
	if err == nil && rc != nil {
		return rc.Entries
	}
	if err != nil {
		log.Warn("reference resolution failed, trying legacy table", logger.Err(err))
	}

	legacy, err := h.legacyRepo.ListByStudentCourse(ctx, q.StudentID, q.CourseID)
	if err != nil {
		log.Warn("legacy curriculum lookup failed", logger.Err(err))
		return nil
	}
	if len(legacy) == 0 {
		return nil
	}

	entries := make([]curriculum.ResolvedEntry, len(legacy))
	for i, le := range legacy {
		entries[i] = curriculum.ResolvedEntry{
			Order:            le.Order,
			LessonTemplateID: le.LessonTemplateID,
			PlannedAt:        le.PlannedAt,
		}
	}
	return entries
}

// ──────────────────────────────────────────────────────────────────────────────
// Optional steps
// ──────────────────────────────────────────────────────────────────────────────

func (h *AssembleContextHandler) attachMastery(ctx context.Context, q AssembleContextQuery, sc *SchedulingContext, log *logger.Logger) {
	rec, err := h.masteryRepo.Get(ctx, q.StudentID, q.CourseID)
	if err != nil {
		if !shared.IsNotFound(err) {
			log.Warn("mastery fetch failed, omitting", logger.Step("FetchMastery"), logger.Err(err))
		}
		return
	}
	if err := rec.Validate(); err != nil {
		log.Warn("mastery record failed validation, omitting", logger.Step("FetchMastery"), logger.Err(err))
		return
	}
	sc.Mastery = rec.EMAByOutcome
}

func (h *AssembleContextHandler) attachRoutine(ctx context.Context, q AssembleContextQuery, sc *SchedulingContext, log *logger.Logger) {
	rec, err := h.routineRepo.Get(ctx, q.StudentID, q.CourseID)
	if err != nil {
		if !shared.IsNotFound(err) {
			log.Warn("routine fetch failed, omitting", logger.Step("FetchRoutine"), logger.Err(err))
		}
		return
	}
	sc.Routine = &RoutineDTO{
		DueByOutcome: rec.DueByOutcome,
		LastTaughtAt: rec.LastTaughtAt,
	}
}

// attachContinuity fetches, or lazily creates, the thread record so the
// engine can resume a prior run. Any failure leaves the field absent.
func (h *AssembleContextHandler) attachContinuity(ctx context.Context, q AssembleContextQuery, sc *SchedulingContext, log *logger.Logger) {
	rec, err := h.continuityRepo.Get(ctx, q.StudentID, q.CourseID)
	if err == nil {
		sc.ThreadID = rec.ThreadID
		return
	}
	if !shared.IsNotFound(err) {
		log.Warn("continuity fetch failed, omitting", logger.Step("FetchContinuity"), logger.Err(err))
		return
	}

	now := time.Now().UTC()
	rec = &continuity.Record{
		ID:        uuid.NewString(),
		StudentID: q.StudentID,
		CourseID:  q.CourseID,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.continuityRepo.Create(ctx, rec); err != nil && !shared.IsAlreadyExists(err) {
		log.Warn("continuity create failed, omitting", logger.Step("FetchContinuity"), logger.Err(err))
	}
	// a fresh record has no thread yet; ThreadID stays absent
}

// ──────────────────────────────────────────────────────────────────────────────
// Final validation
// ──────────────────────────────────────────────────────────────────────────────

// validate re-checks every numeric bound over the assembled structure. The
// individual steps already enforce these; a violation here means a bug
// upstream, and it is still fatal.
func (h *AssembleContextHandler) validate(sc *SchedulingContext, templates []*lesson.Template) error {
	for outcomeID, v := range sc.Mastery {
		if !shared.EMAValue(v).IsValid() {
			return shared.WrapError("assembler", "Validate", shared.ErrValueOutOfRange,
				fmt.Sprintf("Assembled mastery value for outcome %s outside [0,1]", outcomeID),
				shared.ErrEMAOutOfRange)
		}
	}
	for _, t := range templates {
		if err := t.ValidateDuration(); err != nil {
			return shared.WrapError("assembler", "Validate", shared.ErrValueOutOfRange,
				fmt.Sprintf("Assembled lesson template %s has invalid duration", t.ID), err)
		}
	}
	return nil
}

func toTemplateDTOs(templates []*lesson.Template) []TemplateDTO {
	dtos := make([]TemplateDTO, len(templates))
	for i, t := range templates {
		dtos[i] = TemplateDTO{
			ID:          t.ID,
			Title:       t.Title,
			OutcomeRefs: t.OutcomeRefs,
			Prereqs:     t.Prereqs,
			EstMinutes:  t.EstMinutes,
			Type:        string(t.Type),
			Difficulty:  t.Difficulty,
		}
	}
	return dtos
}
