// Package command contains write operations following the CQRS pattern.
// Each command is a self-contained use case with its own request type and
// handler.
package command

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/curriculum"
	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/shared"
	"github.com/schoolofai/ScottishAILessons-sub002/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// CREATE REFERENCE COMMAND
// Enrolls a student in a course by creating a pointer to a canonical
// curriculum document. Only the pointer is stored; entries are dereferenced
// at read time.
// ══════════════════════════════════════════════════════════════════════════════

// CreateReferenceCommand enrolls a student against a curriculum document.
type CreateReferenceCommand struct {
	StudentID shared.StudentID
	CourseID  shared.CourseID

	// Document is the canonical document to point at. Must carry an ID.
	Document *curriculum.Document
}

// Validate checks the command parameters. A document without an ID is
// refused outright: a reference without a target would be unresolvable from
// the moment it is written.
func (c *CreateReferenceCommand) Validate() error {
	if !c.StudentID.IsValid() {
		return shared.ErrInvalidStudentID
	}
	if c.CourseID.IsEmpty() {
		return shared.NewDomainError("command", "CreateReference", shared.ErrInvalidID, "course ID cannot be empty")
	}
	if c.Document == nil || c.Document.ID == "" {
		return shared.NewDomainError("command", "CreateReference", shared.ErrInvalidInput,
			"curriculum document must have an ID; refusing to create a dangling reference")
	}
	return nil
}

// CreateReferenceHandler creates enrollment references.
type CreateReferenceHandler struct {
	refRepo curriculum.ReferenceRepository
	log     *logger.Logger
}

// NewCreateReferenceHandler creates the handler.
func NewCreateReferenceHandler(refRepo curriculum.ReferenceRepository, log *logger.Logger) *CreateReferenceHandler {
	return &CreateReferenceHandler{refRepo: refRepo, log: log}
}

// Handle creates the reference. Returns ErrReferenceExists when the pair is
// already enrolled.
func (h *CreateReferenceHandler) Handle(ctx context.Context, cmd CreateReferenceCommand) (*curriculum.Reference, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	ref := &curriculum.Reference{
		ID:               uuid.NewString(),
		StudentID:        cmd.StudentID,
		CourseID:         cmd.CourseID,
		SourceDocumentID: cmd.Document.ID,
		SourceVersion:    cmd.Document.Version,
		OverlayRaw:       "{}",
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := h.refRepo.Create(ctx, ref); err != nil {
		return nil, err
	}

	h.log.Info("enrollment reference created",
		logger.StudentID(string(cmd.StudentID)),
		logger.CourseID(string(cmd.CourseID)),
		logger.DocumentID(cmd.Document.ID))

	return ref, nil
}
