package postgres

import (
	"context"
	"fmt"

	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/continuity"
	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONTINUITY REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// ContinuityRepository implements continuity.Repository for PostgreSQL.
// Update uses compare-and-swap on the version column: a concurrent writer
// surfaces as shared.ErrContinuityConflict, which callers retry by re-reading.
type ContinuityRepository struct {
	conn *Connection
}

// NewContinuityRepository creates a new ContinuityRepository.
func NewContinuityRepository(conn *Connection) *ContinuityRepository {
	return &ContinuityRepository{conn: conn}
}

const continuityColumns = `
	id, student_id, course_id, thread_id,
	recommendation_count, version, created_at, updated_at
`

// Get returns the continuity record for a (student, course) pair.
func (r *ContinuityRepository) Get(ctx context.Context, studentID shared.StudentID, courseID shared.CourseID) (*continuity.Record, error) {
	query := `
		SELECT ` + continuityColumns + `
		FROM continuity_records
		WHERE student_id = $1 AND course_id = $2
	`

	rec, err := r.scanRecord(r.conn.QueryRow(ctx, query, string(studentID), string(courseID)))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrContinuityNotFound
		}
		return nil, fmt.Errorf("failed to scan continuity record: %w", err)
	}
	return rec, nil
}

// Create inserts a new record. The (student, course) pair is unique, so a
// racing creator gets shared.ErrContinuityExists.
func (r *ContinuityRepository) Create(ctx context.Context, rec *continuity.Record) error {
	query := `
		INSERT INTO continuity_records (` + continuityColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.conn.Exec(ctx, query,
		rec.ID,
		string(rec.StudentID),
		string(rec.CourseID),
		rec.ThreadID,
		rec.RecommendationCount,
		rec.Version,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrContinuityExists
		}
		return fmt.Errorf("failed to create continuity record: %w", err)
	}
	return nil
}

// Update persists a modified record. The WHERE clause pins the version the
// caller read; zero rows affected means someone else won the race.
func (r *ContinuityRepository) Update(ctx context.Context, rec *continuity.Record) error {
	query := `
		UPDATE continuity_records
		SET thread_id = $4,
		    recommendation_count = $5,
		    version = version + 1,
		    updated_at = $6
		WHERE student_id = $1 AND course_id = $2 AND version = $3
	`

	tag, err := r.conn.Exec(ctx, query,
		string(rec.StudentID),
		string(rec.CourseID),
		rec.Version,
		rec.ThreadID,
		rec.RecommendationCount,
		rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update continuity record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrContinuityConflict
	}

	rec.Version++
	return nil
}

func (r *ContinuityRepository) scanRecord(row rowScanner) (*continuity.Record, error) {
	var rec continuity.Record
	var studentID, courseID string

	err := row.Scan(
		&rec.ID,
		&studentID,
		&courseID,
		&rec.ThreadID,
		&rec.RecommendationCount,
		&rec.Version,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.StudentID = shared.StudentID(studentID)
	rec.CourseID = shared.CourseID(courseID)
	return &rec, nil
}
