package postgres

import (
	"context"
	"fmt"

	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/lesson"
	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LESSON CATALOG REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// LessonRepository implements lesson.Repository for PostgreSQL.
type LessonRepository struct {
	conn *Connection
}

// NewLessonRepository creates a new LessonRepository.
func NewLessonRepository(conn *Connection) *LessonRepository {
	return &LessonRepository{conn: conn}
}

const lessonColumns = `id, course_id, title, outcome_refs_raw, prereqs_raw, est_minutes, status, lesson_type, difficulty, created_at, updated_at`

// GetByID returns a template by ID.
func (r *LessonRepository) GetByID(ctx context.Context, id string) (*lesson.Template, error) {
	query := fmt.Sprintf(`SELECT %s FROM lesson_templates WHERE id = $1`, lessonColumns)
	return r.scanTemplate(r.conn.QueryRow(ctx, query, id))
}

// ListPublishedByCourse returns the published candidate pool for a course.
func (r *LessonRepository) ListPublishedByCourse(ctx context.Context, courseID shared.CourseID) ([]*lesson.Template, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM lesson_templates
		WHERE course_id = $1 AND status = 'published'
		ORDER BY created_at ASC
	`, lessonColumns)

	rows, err := r.conn.Query(ctx, query, string(courseID))
	if err != nil {
		return nil, fmt.Errorf("failed to query lesson templates: %w", err)
	}
	defer rows.Close()

	var templates []*lesson.Template
	for rows.Next() {
		t, err := r.scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

func (r *LessonRepository) scanTemplate(row rowScanner) (*lesson.Template, error) {
	var (
		t                     lesson.Template
		courseID              string
		statusStr, lessonType string
	)

	err := row.Scan(&t.ID, &courseID, &t.Title, &t.OutcomeRefsRaw, &t.PrereqsRaw,
		&t.EstMinutes, &statusStr, &lessonType, &t.Difficulty, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.WrapError("lesson", "Get", shared.ErrNotFound, "lesson template not found", err)
		}
		return nil, fmt.Errorf("failed to scan lesson template: %w", err)
	}

	t.CourseID = shared.CourseID(courseID)
	t.Status = lesson.Status(statusStr)
	t.Type = shared.LessonType(lessonType)
	return &t, nil
}
