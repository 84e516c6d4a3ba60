package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/curriculum"
	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CURRICULUM DOCUMENT REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// DocumentRepository implements curriculum.DocumentRepository for PostgreSQL.
type DocumentRepository struct {
	conn *Connection
}

// NewDocumentRepository creates a new DocumentRepository.
func NewDocumentRepository(conn *Connection) *DocumentRepository {
	return &DocumentRepository{conn: conn}
}

// GetByID returns a document by ID.
func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*curriculum.Document, error) {
	query := `
		SELECT id, course_id, version, entries_raw, metadata_raw, accessibility_notes, created_at, updated_at
		FROM curriculum_documents
		WHERE id = $1
	`

	var (
		d        curriculum.Document
		courseID string
	)
	err := r.conn.QueryRow(ctx, query, id).Scan(
		&d.ID, &courseID, &d.Version, &d.EntriesRaw, &d.MetadataRaw,
		&d.AccessibilityNotes, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to scan curriculum document: %w", err)
	}

	d.CourseID = shared.CourseID(courseID)
	return &d, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ENROLLMENT REFERENCE REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// ReferenceRepository implements curriculum.ReferenceRepository for
// PostgreSQL. source_document_id is nullable in the schema; a NULL scans to
// an empty string, which the domain treats as unmigrated.
type ReferenceRepository struct {
	conn *Connection
}

// NewReferenceRepository creates a new ReferenceRepository.
func NewReferenceRepository(conn *Connection) *ReferenceRepository {
	return &ReferenceRepository{conn: conn}
}

// GetByStudentCourse returns the reference for a (student, course) pair.
func (r *ReferenceRepository) GetByStudentCourse(ctx context.Context, studentID shared.StudentID, courseID shared.CourseID) (*curriculum.Reference, error) {
	query := `
		SELECT id, student_id, course_id, source_document_id, source_version, overlay_raw, created_at, updated_at
		FROM enrollment_references
		WHERE student_id = $1 AND course_id = $2
	`

	var (
		ref      curriculum.Reference
		sid, cid string
		srcDocID *string
	)
	err := r.conn.QueryRow(ctx, query, string(studentID), string(courseID)).Scan(
		&ref.ID, &sid, &cid, &srcDocID, &ref.SourceVersion,
		&ref.OverlayRaw, &ref.CreatedAt, &ref.UpdatedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrReferenceNotFound
		}
		return nil, fmt.Errorf("failed to scan enrollment reference: %w", err)
	}

	ref.StudentID = shared.StudentID(sid)
	ref.CourseID = shared.CourseID(cid)
	if srcDocID != nil {
		ref.SourceDocumentID = *srcDocID
	}
	return &ref, nil
}

// Create persists a new reference.
func (r *ReferenceRepository) Create(ctx context.Context, ref *curriculum.Reference) error {
	query := `
		INSERT INTO enrollment_references (id, student_id, course_id, source_document_id, source_version, overlay_raw, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.conn.Exec(ctx, query,
		ref.ID, string(ref.StudentID), string(ref.CourseID),
		ref.SourceDocumentID, ref.SourceVersion, ref.OverlayRaw,
		ref.CreatedAt, ref.UpdatedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrReferenceExists
		}
		return fmt.Errorf("failed to create enrollment reference: %w", err)
	}
	return nil
}

// UpdateOverlay replaces the stored overlay for a (student, course) pair.
func (r *ReferenceRepository) UpdateOverlay(ctx context.Context, studentID shared.StudentID, courseID shared.CourseID, overlayRaw string) error {
	query := `
		UPDATE enrollment_references
		SET overlay_raw = $3, updated_at = $4
		WHERE student_id = $1 AND course_id = $2
	`

	tag, err := r.conn.Exec(ctx, query, string(studentID), string(courseID), overlayRaw, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to update overlay: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrReferenceNotFound
	}
	return nil
}

// ListRecent returns references ordered by most recent update.
func (r *ReferenceRepository) ListRecent(ctx context.Context, limit int) ([]*curriculum.Reference, error) {
	query := `
		SELECT id, student_id, course_id, source_document_id, source_version, overlay_raw, created_at, updated_at
		FROM enrollment_references
		ORDER BY updated_at DESC
		LIMIT $1
	`

	rows, err := r.conn.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query enrollment references: %w", err)
	}
	defer rows.Close()

	var refs []*curriculum.Reference
	for rows.Next() {
		var (
			ref      curriculum.Reference
			sid, cid string
			srcDocID *string
		)
		err := rows.Scan(&ref.ID, &sid, &cid, &srcDocID, &ref.SourceVersion,
			&ref.OverlayRaw, &ref.CreatedAt, &ref.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan enrollment reference: %w", err)
		}
		ref.StudentID = shared.StudentID(sid)
		ref.CourseID = shared.CourseID(cid)
		if srcDocID != nil {
			ref.SourceDocumentID = *srcDocID
		}
		refs = append(refs, &ref)
	}
	return refs, rows.Err()
}

// ══════════════════════════════════════════════════════════════════════════════
// LEGACY ENTRY REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// LegacyEntryRepository implements curriculum.LegacyEntryRepository for
// PostgreSQL. Read-only: the legacy table is frozen, awaiting backfill.
type LegacyEntryRepository struct {
	conn *Connection
}

// NewLegacyEntryRepository creates a new LegacyEntryRepository.
func NewLegacyEntryRepository(conn *Connection) *LegacyEntryRepository {
	return &LegacyEntryRepository{conn: conn}
}

// ListByStudentCourse returns legacy entries ordered ascending by order.
func (r *LegacyEntryRepository) ListByStudentCourse(ctx context.Context, studentID shared.StudentID, courseID shared.CourseID) ([]curriculum.LegacyEntry, error) {
	query := `
		SELECT entry_order, lesson_template_id, planned_at
		FROM curriculum_entries_legacy
		WHERE student_id = $1 AND course_id = $2
		ORDER BY entry_order ASC
	`

	rows, err := r.conn.Query(ctx, query, string(studentID), string(courseID))
	if err != nil {
		return nil, fmt.Errorf("failed to query legacy entries: %w", err)
	}
	defer rows.Close()

	var entries []curriculum.LegacyEntry
	for rows.Next() {
		var e curriculum.LegacyEntry
		if err := rows.Scan(&e.Order, &e.LessonTemplateID, &e.PlannedAt); err != nil {
			return nil, fmt.Errorf("failed to scan legacy entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
