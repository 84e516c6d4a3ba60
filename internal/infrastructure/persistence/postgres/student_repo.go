package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/shared"
	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// StudentRepository implements student.Repository for PostgreSQL.
type StudentRepository struct {
	conn *Connection
}

// NewStudentRepository creates a new StudentRepository.
func NewStudentRepository(conn *Connection) *StudentRepository {
	return &StudentRepository{conn: conn}
}

const studentColumns = `id, user_id, display_name, accommodation_tags, enrolled_course_ids, created_at, updated_at`

// GetByID returns a student by internal ID.
func (r *StudentRepository) GetByID(ctx context.Context, id shared.StudentID) (*student.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students WHERE id = $1`, studentColumns)
	return r.scanStudent(r.conn.QueryRow(ctx, query, string(id)))
}

// GetByUserID returns the student linked to an authentication account.
func (r *StudentRepository) GetByUserID(ctx context.Context, userID string) (*student.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students WHERE user_id = $1`, studentColumns)
	return r.scanStudent(r.conn.QueryRow(ctx, query, userID))
}

// Create persists a new student.
func (r *StudentRepository) Create(ctx context.Context, s *student.Student) error {
	query := `
		INSERT INTO students (id, user_id, display_name, accommodation_tags, enrolled_course_ids, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	tags, err := json.Marshal(s.AccommodationTags)
	if err != nil {
		return fmt.Errorf("failed to marshal accommodation tags: %w", err)
	}
	courses, err := json.Marshal(s.EnrolledCourseIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal enrolled courses: %w", err)
	}

	_, err = r.conn.Exec(ctx, query,
		string(s.ID), s.UserID, s.DisplayName, tags, courses, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create student: %w", err)
	}
	return nil
}

// Update persists changes to an existing student.
func (r *StudentRepository) Update(ctx context.Context, s *student.Student) error {
	query := `
		UPDATE students SET
			display_name = $2,
			accommodation_tags = $3,
			enrolled_course_ids = $4,
			updated_at = $5
		WHERE id = $1
	`

	tags, err := json.Marshal(s.AccommodationTags)
	if err != nil {
		return fmt.Errorf("failed to marshal accommodation tags: %w", err)
	}
	courses, err := json.Marshal(s.EnrolledCourseIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal enrolled courses: %w", err)
	}

	tag, err := r.conn.Exec(ctx, query, string(s.ID), s.DisplayName, tags, courses, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update student: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrStudentNotFound
	}
	return nil
}

// Exists checks existence by ID without loading the row.
func (r *StudentRepository) Exists(ctx context.Context, id shared.StudentID) (bool, error) {
	var exists bool
	err := r.conn.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM students WHERE id = $1)`, string(id)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check student existence: %w", err)
	}
	return exists, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *StudentRepository) scanStudent(row rowScanner) (*student.Student, error) {
	var (
		s           student.Student
		id          string
		tagsJSON    []byte
		coursesJSON []byte
	)

	err := row.Scan(&id, &s.UserID, &s.DisplayName, &tagsJSON, &coursesJSON, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to scan student: %w", err)
	}

	s.ID = shared.StudentID(id)
	if err := json.Unmarshal(tagsJSON, &s.AccommodationTags); err != nil {
		return nil, fmt.Errorf("failed to unmarshal accommodation tags: %w", err)
	}
	if err := json.Unmarshal(coursesJSON, &s.EnrolledCourseIDs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal enrolled courses: %w", err)
	}
	return &s, nil
}
