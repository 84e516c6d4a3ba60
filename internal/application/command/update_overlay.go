package command

import (
	"context"

	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/curriculum"
	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/shared"
	"github.com/schoolofai/ScottishAILessons-sub002/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE OVERLAY COMMAND
// The only supported mutation of student-specific curriculum state. There is
// no command for writing canonical entries; the canonical document belongs
// to the authoring workflow.
// ══════════════════════════════════════════════════════════════════════════════

// UpdateOverlayCommand replaces the customization overlay for an enrollment.
type UpdateOverlayCommand struct {
	StudentID shared.StudentID
	CourseID  shared.CourseID
	Overlay   curriculum.Overlay
}

// Validate checks the command parameters.
func (c *UpdateOverlayCommand) Validate() error {
	if !c.StudentID.IsValid() {
		return shared.ErrInvalidStudentID
	}
	if c.CourseID.IsEmpty() {
		return shared.NewDomainError("command", "UpdateOverlay", shared.ErrInvalidID, "course ID cannot be empty")
	}
	return c.Overlay.Validate()
}

// UpdateOverlayHandler writes customization overlays.
type UpdateOverlayHandler struct {
	refRepo curriculum.ReferenceRepository
	cache   curriculum.Cache
	log     *logger.Logger
}

// NewUpdateOverlayHandler creates the handler. cache may be nil.
func NewUpdateOverlayHandler(refRepo curriculum.ReferenceRepository, cache curriculum.Cache, log *logger.Logger) *UpdateOverlayHandler {
	return &UpdateOverlayHandler{refRepo: refRepo, cache: cache, log: log}
}

// Handle stores the overlay and invalidates the cached resolution. Returns
// ErrReferenceNotFound when the pair has no enrollment reference.
func (h *UpdateOverlayHandler) Handle(ctx context.Context, cmd UpdateOverlayCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	raw, err := cmd.Overlay.Encode()
	if err != nil {
		return err
	}

	if err := h.refRepo.UpdateOverlay(ctx, cmd.StudentID, cmd.CourseID, raw); err != nil {
		return err
	}

	if h.cache != nil {
		if err := h.cache.Invalidate(ctx, cmd.StudentID, cmd.CourseID); err != nil {
			h.log.Warn("failed to invalidate resolved curriculum cache",
				logger.StudentID(string(cmd.StudentID)),
				logger.CourseID(string(cmd.CourseID)),
				logger.Err(err))
		}
	}

	h.log.Info("customization overlay updated",
		logger.StudentID(string(cmd.StudentID)),
		logger.CourseID(string(cmd.CourseID)),
		logger.Int("annotated_orders", len(cmd.Overlay)))

	return nil
}
