package postgres

import (
	"context"
	"fmt"

	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/course"
	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// COURSE REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// CourseRepository implements course.Repository for PostgreSQL.
type CourseRepository struct {
	conn *Connection
}

// NewCourseRepository creates a new CourseRepository.
func NewCourseRepository(conn *Connection) *CourseRepository {
	return &CourseRepository{conn: conn}
}

const courseColumns = `id, code, subject, level, status, created_at, updated_at`

// GetByID returns a course by internal ID.
func (r *CourseRepository) GetByID(ctx context.Context, id shared.CourseID) (*course.Course, error) {
	query := fmt.Sprintf(`SELECT %s FROM courses WHERE id = $1`, courseColumns)
	return r.scanCourse(r.conn.QueryRow(ctx, query, string(id)))
}

// GetByCode returns a course by its SQA code.
func (r *CourseRepository) GetByCode(ctx context.Context, code shared.CourseCode) (*course.Course, error) {
	query := fmt.Sprintf(`SELECT %s FROM courses WHERE code = $1`, courseColumns)
	return r.scanCourse(r.conn.QueryRow(ctx, query, string(code)))
}

// ListActive returns all courses open for scheduling.
func (r *CourseRepository) ListActive(ctx context.Context) ([]*course.Course, error) {
	query := fmt.Sprintf(`SELECT %s FROM courses WHERE status = 'active' ORDER BY code`, courseColumns)

	rows, err := r.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query active courses: %w", err)
	}
	defer rows.Close()

	var courses []*course.Course
	for rows.Next() {
		c, err := r.scanCourse(rows)
		if err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

func (r *CourseRepository) scanCourse(row rowScanner) (*course.Course, error) {
	var (
		c            course.Course
		id, code     string
		statusString string
	)

	err := row.Scan(&id, &code, &c.Subject, &c.Level, &statusString, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to scan course: %w", err)
	}

	c.ID = shared.CourseID(id)
	c.Code = shared.CourseCode(code)
	c.Status = course.Status(statusString)
	return &c, nil
}
