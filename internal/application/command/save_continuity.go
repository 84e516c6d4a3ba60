package command

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/continuity"
	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/shared"
	"github.com/schoolofai/ScottishAILessons-sub002/pkg/logger"
	"github.com/schoolofai/ScottishAILessons-sub002/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// SAVE CONTINUITY COMMAND
// Upserts the recommendation-thread record after a recommendation run.
// Contention is scoped to a single (student, course) pair, so conflicts are
// rare and short; a small bounded retry absorbs them.
// ══════════════════════════════════════════════════════════════════════════════

// SaveContinuityCommand records a recommendation run against a thread.
type SaveContinuityCommand struct {
	StudentID shared.StudentID
	CourseID  shared.CourseID

	// ThreadID is the external engine's run identifier for this pair.
	ThreadID string
}

// Validate checks the command parameters.
func (c *SaveContinuityCommand) Validate() error {
	if !c.StudentID.IsValid() {
		return shared.ErrInvalidStudentID
	}
	if c.CourseID.IsEmpty() {
		return shared.NewDomainError("command", "SaveContinuity", shared.ErrInvalidID, "course ID cannot be empty")
	}
	if c.ThreadID == "" {
		return shared.NewDomainError("command", "SaveContinuity", shared.ErrEmptyValue, "thread ID cannot be empty")
	}
	return nil
}

// SaveContinuityHandler upserts continuity records.
type SaveContinuityHandler struct {
	repo    continuity.Repository
	retrier *retry.Retrier
	log     *logger.Logger
}

// NewSaveContinuityHandler creates the handler.
func NewSaveContinuityHandler(repo continuity.Repository, log *logger.Logger) *SaveContinuityHandler {
	return &SaveContinuityHandler{
		repo:    repo,
		retrier: retry.ConflictRetrier(),
		log:     log,
	}
}

// Handle upserts the record and increments its recommendation counter.
// Optimistic-lock conflicts are retried a bounded number of times with the
// record re-read each attempt; a pair that keeps conflicting surfaces
// ErrContinuityConflict to the caller.
func (h *SaveContinuityHandler) Handle(ctx context.Context, cmd SaveContinuityCommand) (*continuity.Record, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	var saved *continuity.Record
	err := h.retrier.Do(ctx, func(ctx context.Context) error {
		rec, err := h.upsertOnce(ctx, cmd)
		if err != nil {
			if shared.IsRetryable(err) {
				return retry.Retryable(err)
			}
			return retry.Permanent(err)
		}
		saved = rec
		return nil
	})
	if err != nil {
		return nil, err
	}

	h.log.Info("continuity record saved",
		logger.StudentID(string(cmd.StudentID)),
		logger.CourseID(string(cmd.CourseID)),
		logger.String("thread_id", cmd.ThreadID),
		logger.Int("recommendation_count", saved.RecommendationCount))

	return saved, nil
}

func (h *SaveContinuityHandler) upsertOnce(ctx context.Context, cmd SaveContinuityCommand) (*continuity.Record, error) {
	rec, err := h.repo.Get(ctx, cmd.StudentID, cmd.CourseID)
	if err != nil {
		if !shared.IsNotFound(err) {
			return nil, err
		}
		now := time.Now().UTC()
		rec = &continuity.Record{
			ID:        uuid.NewString(),
			StudentID: cmd.StudentID,
			CourseID:  cmd.CourseID,
			Version:   1,
			CreatedAt: now,
		}
		rec.Touch(cmd.ThreadID)
		if err := h.repo.Create(ctx, rec); err != nil {
			if shared.IsAlreadyExists(err) {
				// lost the create race; retry path re-reads and updates
				return nil, shared.ErrContinuityConflict
			}
			return nil, err
		}
		return rec, nil
	}

	rec.Touch(cmd.ThreadID)
	if err := h.repo.Update(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}
