package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/progress"
	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// MASTERY REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// MasteryRepository implements progress.MasteryRepository for PostgreSQL.
// Per-outcome mappings are stored as JSONB.
type MasteryRepository struct {
	conn *Connection
}

// NewMasteryRepository creates a new MasteryRepository.
func NewMasteryRepository(conn *Connection) *MasteryRepository {
	return &MasteryRepository{conn: conn}
}

// Get returns the mastery record for a (student, course) pair.
func (r *MasteryRepository) Get(ctx context.Context, studentID shared.StudentID, courseID shared.CourseID) (*progress.MasteryRecord, error) {
	query := `
		SELECT ema_by_outcome, observation_counts, updated_at
		FROM mastery_records
		WHERE student_id = $1 AND course_id = $2
	`

	var emaJSON, countsJSON []byte
	rec := &progress.MasteryRecord{StudentID: studentID, CourseID: courseID}

	err := r.conn.QueryRow(ctx, query, string(studentID), string(courseID)).Scan(&emaJSON, &countsJSON, &rec.UpdatedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrMasteryNotFound
		}
		return nil, fmt.Errorf("failed to scan mastery record: %w", err)
	}

	if err := json.Unmarshal(emaJSON, &rec.EMAByOutcome); err != nil {
		return nil, fmt.Errorf("failed to unmarshal EMA mapping: %w", err)
	}
	if err := json.Unmarshal(countsJSON, &rec.ObservationCounts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal observation counts: %w", err)
	}
	return rec, nil
}

// Upsert writes the record, creating it if absent.
func (r *MasteryRepository) Upsert(ctx context.Context, rec *progress.MasteryRecord) error {
	query := `
		INSERT INTO mastery_records (student_id, course_id, ema_by_outcome, observation_counts, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (student_id, course_id)
		DO UPDATE SET ema_by_outcome = $3, observation_counts = $4, updated_at = $5
	`

	emaJSON, err := json.Marshal(rec.EMAByOutcome)
	if err != nil {
		return fmt.Errorf("failed to marshal EMA mapping: %w", err)
	}
	countsJSON, err := json.Marshal(rec.ObservationCounts)
	if err != nil {
		return fmt.Errorf("failed to marshal observation counts: %w", err)
	}

	_, err = r.conn.Exec(ctx, query,
		string(rec.StudentID), string(rec.CourseID), emaJSON, countsJSON, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert mastery record: %w", err)
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ROUTINE REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// RoutineRepository implements progress.RoutineRepository for PostgreSQL.
type RoutineRepository struct {
	conn *Connection
}

// NewRoutineRepository creates a new RoutineRepository.
func NewRoutineRepository(conn *Connection) *RoutineRepository {
	return &RoutineRepository{conn: conn}
}

// Get returns the routine record for a (student, course) pair.
func (r *RoutineRepository) Get(ctx context.Context, studentID shared.StudentID, courseID shared.CourseID) (*progress.RoutineRecord, error) {
	query := `
		SELECT due_by_outcome, last_taught_at, updated_at
		FROM routine_records
		WHERE student_id = $1 AND course_id = $2
	`

	var dueJSON []byte
	rec := &progress.RoutineRecord{StudentID: studentID, CourseID: courseID}

	err := r.conn.QueryRow(ctx, query, string(studentID), string(courseID)).Scan(&dueJSON, &rec.LastTaughtAt, &rec.UpdatedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrRoutineNotFound
		}
		return nil, fmt.Errorf("failed to scan routine record: %w", err)
	}

	if err := json.Unmarshal(dueJSON, &rec.DueByOutcome); err != nil {
		return nil, fmt.Errorf("failed to unmarshal due mapping: %w", err)
	}
	return rec, nil
}

// Upsert writes the record, creating it if absent.
func (r *RoutineRepository) Upsert(ctx context.Context, rec *progress.RoutineRecord) error {
	query := `
		INSERT INTO routine_records (student_id, course_id, due_by_outcome, last_taught_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (student_id, course_id)
		DO UPDATE SET due_by_outcome = $3, last_taught_at = $4, updated_at = $5
	`

	dueJSON, err := json.Marshal(rec.DueByOutcome)
	if err != nil {
		return fmt.Errorf("failed to marshal due mapping: %w", err)
	}

	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}

	_, err = r.conn.Exec(ctx, query,
		string(rec.StudentID), string(rec.CourseID), dueJSON, rec.LastTaughtAt, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert routine record: %w", err)
	}
	return nil
}

// ListDueBefore returns records with at least one outcome due at or before
// the cutoff. Due dates live inside the JSONB mapping as RFC 3339 strings,
// so the predicate casts each value to timestamptz.
func (r *RoutineRepository) ListDueBefore(ctx context.Context, cutoff time.Time, limit int) ([]*progress.RoutineRecord, error) {
	query := `
		SELECT student_id, course_id, due_by_outcome, last_taught_at, updated_at
		FROM routine_records rr
		WHERE EXISTS (
			SELECT 1 FROM jsonb_each_text(rr.due_by_outcome) kv
			WHERE (kv.value)::timestamptz <= $1
		)
		ORDER BY rr.updated_at ASC
		LIMIT $2
	`

	rows, err := r.conn.Query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query routine records: %w", err)
	}
	defer rows.Close()

	var recs []*progress.RoutineRecord
	for rows.Next() {
		var (
			rec      progress.RoutineRecord
			sid, cid string
			dueJSON  []byte
		)
		if err := rows.Scan(&sid, &cid, &dueJSON, &rec.LastTaughtAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan routine record: %w", err)
		}
		if err := json.Unmarshal(dueJSON, &rec.DueByOutcome); err != nil {
			return nil, fmt.Errorf("failed to unmarshal due mapping: %w", err)
		}
		rec.StudentID = shared.StudentID(sid)
		rec.CourseID = shared.CourseID(cid)
		recs = append(recs, &rec)
	}
	return recs, rows.Err()
}
