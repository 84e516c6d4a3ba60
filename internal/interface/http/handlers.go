package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/schoolofai/ScottishAILessons-sub002/internal/application/command"
	"github.com/schoolofai/ScottishAILessons-sub002/internal/application/query"
	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/curriculum"
	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/shared"
	"github.com/schoolofai/ScottishAILessons-sub002/pkg/logger"
	"github.com/schoolofai/ScottishAILessons-sub002/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleHealth returns the overall health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	status := s.deps.HealthChecker.Check(r.Context())

	httpStatus := http.StatusOK
	if !status.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, status)
}

// handleReady reports readiness to accept traffic.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
		return
	}

	status := s.deps.HealthChecker.Check(r.Context())
	if !status.Ready {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":  "not_ready",
			"message": status.Message,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive reports process liveness. Always 200 while the process serves.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// handleRoot returns basic service info.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSONError(w, http.StatusNotFound, "not_found", "The requested resource was not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"service": "scheduling-backend",
		"version": "v1",
		"status":  "running",
		"uptime":  s.Uptime().Round(time.Second).String(),
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// SCHEDULING QUERY HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleAssembleContext returns the full scheduling context for a pair.
//
//	GET /api/v1/students/{studentId}/courses/{courseId}/context
func (s *Server) handleAssembleContext(w http.ResponseWriter, r *http.Request) {
	studentID, courseID, ok := s.pairFromPath(w, r)
	if !ok {
		return
	}

	sc, err := s.deps.AssembleContextHandler.Handle(r.Context(), query.AssembleContextQuery{
		StudentID: studentID,
		CourseID:  courseID,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, sc)
}

// handleResolveCurriculum returns the resolved curriculum for a pair.
//
//	GET /api/v1/students/{studentId}/courses/{courseId}/curriculum
func (s *Server) handleResolveCurriculum(w http.ResponseWriter, r *http.Request) {
	studentID, courseID, ok := s.pairFromPath(w, r)
	if !ok {
		return
	}

	resolved, err := s.deps.ResolveCurriculumHandler.Handle(r.Context(), query.ResolveCurriculumQuery{
		StudentID: studentID,
		CourseID:  courseID,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resolved)
}

// handleNextLesson returns the first incomplete, non-skipped entry.
//
//	GET /api/v1/students/{studentId}/courses/{courseId}/next-lesson?completed=a,b
func (s *Server) handleNextLesson(w http.ResponseWriter, r *http.Request) {
	studentID, courseID, ok := s.pairFromPath(w, r)
	if !ok {
		return
	}

	result, err := s.deps.ResolveCurriculumHandler.NextLesson(r.Context(), query.NextLessonQuery{
		StudentID:          studentID,
		CourseID:           courseID,
		CompletedLessonIDs: getCompletedParam(r),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleProgress returns completion percentage over non-skipped entries.
//
//	GET /api/v1/students/{studentId}/courses/{courseId}/progress?completed=a,b
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	studentID, courseID, ok := s.pairFromPath(w, r)
	if !ok {
		return
	}

	result, err := s.deps.ResolveCurriculumHandler.Progress(r.Context(), query.ProgressQuery{
		StudentID:          studentID,
		CourseID:           courseID,
		CompletedLessonIDs: getCompletedParam(r),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleEntriesDue returns entries planned for a given ISO week. Defaults to
// the current week when year/week are omitted.
//
//	GET /api/v1/students/{studentId}/courses/{courseId}/due?year=2026&week=35
func (s *Server) handleEntriesDue(w http.ResponseWriter, r *http.Request) {
	studentID, courseID, ok := s.pairFromPath(w, r)
	if !ok {
		return
	}

	nowYear, nowWeek := timeutil.ISOWeekOf(timeutil.Now())
	q := query.EntriesDueQuery{
		StudentID: studentID,
		CourseID:  courseID,
		ISOYear:   getQueryParamInt(r, "year", nowYear),
		ISOWeek:   getQueryParamInt(r, "week", nowWeek),
	}

	entries, err := s.deps.ResolveCurriculumHandler.EntriesDueInWeek(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"year":    q.ISOYear,
		"week":    q.ISOWeek,
		"entries": entries,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// SCHEDULING COMMAND HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type createReferenceRequest struct {
	DocumentID      string `json:"documentId" validate:"required"`
	DocumentVersion string `json:"documentVersion"`
}

// handleCreateReference enrolls the pair against a curriculum document.
//
//	POST /api/v1/students/{studentId}/courses/{courseId}/reference
func (s *Server) handleCreateReference(w http.ResponseWriter, r *http.Request) {
	studentID, courseID, ok := s.pairFromPath(w, r)
	if !ok {
		return
	}

	var req createReferenceRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	ref, err := s.deps.CreateReferenceHandler.Handle(r.Context(), command.CreateReferenceCommand{
		StudentID: studentID,
		CourseID:  courseID,
		Document: &curriculum.Document{
			ID:       req.DocumentID,
			CourseID: courseID,
			Version:  req.DocumentVersion,
		},
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, ref)
}

type updateOverlayRequest struct {
	Overlay curriculum.Overlay `json:"overlay" validate:"required"`
}

// handleUpdateOverlay replaces the pair's customization overlay.
//
//	PUT /api/v1/students/{studentId}/courses/{courseId}/overlay
func (s *Server) handleUpdateOverlay(w http.ResponseWriter, r *http.Request) {
	studentID, courseID, ok := s.pairFromPath(w, r)
	if !ok {
		return
	}

	var req updateOverlayRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	err := s.deps.UpdateOverlayHandler.Handle(r.Context(), command.UpdateOverlayCommand{
		StudentID: studentID,
		CourseID:  courseID,
		Overlay:   req.Overlay,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"updated": true,
		"entries": len(req.Overlay),
	})
}

type saveContinuityRequest struct {
	ThreadID string `json:"threadId" validate:"required"`
}

// handleSaveContinuity records the external engine's run identifier.
//
//	POST /api/v1/students/{studentId}/courses/{courseId}/continuity
func (s *Server) handleSaveContinuity(w http.ResponseWriter, r *http.Request) {
	studentID, courseID, ok := s.pairFromPath(w, r)
	if !ok {
		return
	}

	var req saveContinuityRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	rec, err := s.deps.SaveContinuityHandler.Handle(r.Context(), command.SaveContinuityCommand{
		StudentID: studentID,
		CourseID:  courseID,
		ThreadID:  req.ThreadID,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

type recordEvidenceRequest struct {
	Observations map[string]float64 `json:"observations" validate:"required,min=1"`
}

// handleRecordEvidence folds assessment observations into mastery estimates.
//
//	POST /api/v1/students/{studentId}/courses/{courseId}/evidence
func (s *Server) handleRecordEvidence(w http.ResponseWriter, r *http.Request) {
	studentID, courseID, ok := s.pairFromPath(w, r)
	if !ok {
		return
	}

	var req recordEvidenceRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	result, err := s.deps.RecordEvidenceHandler.Handle(r.Context(), command.RecordEvidenceCommand{
		StudentID:    studentID,
		CourseID:     courseID,
		Observations: req.Observations,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST PARSING & VALIDATION
// ══════════════════════════════════════════════════════════════════════════════

// requestValidator wraps struct tag validation for request bodies.
type requestValidator struct {
	v *validator.Validate
}

func newRequestValidator() *requestValidator {
	return &requestValidator{v: validator.New(validator.WithRequiredStructEnabled())}
}

func (rv *requestValidator) Struct(s interface{}) error {
	return rv.v.Struct(s)
}

// pairFromPath extracts and validates the student/course identifiers from the
// URL. Writes the error response itself; callers bail out on ok == false.
func (s *Server) pairFromPath(w http.ResponseWriter, r *http.Request) (shared.StudentID, shared.CourseID, bool) {
	studentID, err := shared.NewStudentID(r.PathValue("studentId"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_student_id", "Student ID is missing or malformed")
		return "", "", false
	}

	courseID, err := shared.NewCourseID(r.PathValue("courseId"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_course_id", "Course ID is missing or malformed")
		return "", "", false
	}

	return studentID, courseID, true
}

// decodeBody decodes and validates a JSON request body. Writes the error
// response itself; callers bail out on false.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			writeJSONError(w, http.StatusBadRequest, "empty_body", "Request body is required")
			return false
		}
		writeJSONErrorWithDetails(w, http.StatusBadRequest, "invalid_json", "Request body is not valid JSON", err.Error())
		return false
	}

	if err := s.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		details := ""
		if errors.As(err, &verrs) && len(verrs) > 0 {
			details = verrs[0].Field() + " failed " + verrs[0].Tag() + " validation"
		}
		writeJSONErrorWithDetails(w, http.StatusBadRequest, "validation_failed", "Request body failed validation", details)
		return false
	}

	return true
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// writeDomainError translates domain errors into HTTP status codes.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var de *shared.DomainError
	message := "An unexpected error occurred"
	if errors.As(err, &de) {
		message = de.Message
	}

	switch {
	case shared.IsValidation(err):
		writeJSONError(w, http.StatusBadRequest, "validation_failed", message)
	case errors.Is(err, shared.ErrUnauthorized):
		writeJSONError(w, http.StatusUnauthorized, "unauthorized", message)
	case errors.Is(err, shared.ErrForbidden):
		writeJSONError(w, http.StatusForbidden, "forbidden", message)
	case shared.IsNotFound(err):
		writeJSONError(w, http.StatusNotFound, "not_found", message)
	case shared.IsAlreadyExists(err):
		writeJSONError(w, http.StatusConflict, "already_exists", message)
	case errors.Is(err, shared.ErrOptimisticLock):
		writeJSONError(w, http.StatusConflict, "conflict", message)
	case errors.Is(err, shared.ErrMigrationRequired):
		writeJSONError(w, http.StatusConflict, "migration_required", message)
	case errors.Is(err, shared.ErrReferentialIntegrity):
		writeJSONError(w, http.StatusConflict, "dangling_reference", message)
	case errors.Is(err, shared.ErrCircularReference):
		writeJSONError(w, http.StatusUnprocessableEntity, "circular_reference", message)
	case shared.IsUpstream(err), errors.Is(err, shared.ErrDecompression):
		writeJSONError(w, http.StatusBadGateway, "upstream_error", message)
	default:
		s.logger.Error("unhandled domain error",
			logger.Err(err),
			logger.String("path", r.URL.Path),
			logger.String("request_id", getRequestID(r.Context())),
		)
		writeJSONError(w, http.StatusInternalServerError, "internal_server_error", "An unexpected error occurred")
	}
}
