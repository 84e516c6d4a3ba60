package command

import (
	"context"
	"time"

	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/progress"
	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/shared"
	"github.com/schoolofai/ScottishAILessons-sub002/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD EVIDENCE COMMAND
// Feeds fresh assessment observations into the per-outcome mastery
// estimates. Each outcome updates independently through the adaptive EMA.
// ══════════════════════════════════════════════════════════════════════════════

// RecordEvidenceCommand carries one batch of observations for a pair.
type RecordEvidenceCommand struct {
	StudentID shared.StudentID
	CourseID  shared.CourseID

	// Observations maps outcomeId to a score in [0,1]. Out-of-range scores
	// are clamped, not rejected; upstream assessment tooling occasionally
	// emits 1.0000001-style artifacts.
	Observations map[string]float64
}

// Validate checks the command parameters.
func (c *RecordEvidenceCommand) Validate() error {
	if !c.StudentID.IsValid() {
		return shared.ErrInvalidStudentID
	}
	if c.CourseID.IsEmpty() {
		return shared.NewDomainError("command", "RecordEvidence", shared.ErrInvalidID, "course ID cannot be empty")
	}
	if len(c.Observations) == 0 {
		return shared.NewDomainError("command", "RecordEvidence", shared.ErrEmptyValue, "at least one observation is required")
	}
	return nil
}

// RecordEvidenceResult reports the per-outcome update metadata.
type RecordEvidenceResult struct {
	Updated map[string]progress.EMAResult `json:"updated"`
}

// RecordEvidenceHandler applies observation batches to mastery records.
type RecordEvidenceHandler struct {
	masteryRepo progress.MasteryRepository
	cfg         progress.EMAConfig
	log         *logger.Logger
}

// NewRecordEvidenceHandler creates the handler.
func NewRecordEvidenceHandler(masteryRepo progress.MasteryRepository, cfg progress.EMAConfig, log *logger.Logger) *RecordEvidenceHandler {
	return &RecordEvidenceHandler{masteryRepo: masteryRepo, cfg: cfg, log: log}
}

// Handle loads the mastery record, applies the batch, bumps observation
// counts, and writes the record back. A pair with no record yet starts from
// an empty one; every observed outcome bootstraps.
func (h *RecordEvidenceHandler) Handle(ctx context.Context, cmd RecordEvidenceCommand) (*RecordEvidenceResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	rec, err := h.masteryRepo.Get(ctx, cmd.StudentID, cmd.CourseID)
	if err != nil {
		if !shared.IsNotFound(err) {
			return nil, err
		}
		rec = &progress.MasteryRecord{
			StudentID:         cmd.StudentID,
			CourseID:          cmd.CourseID,
			EMAByOutcome:      map[string]float64{},
			ObservationCounts: map[string]int{},
		}
	}
	if rec.EMAByOutcome == nil {
		rec.EMAByOutcome = map[string]float64{}
	}
	if rec.ObservationCounts == nil {
		rec.ObservationCounts = map[string]int{}
	}

	updated, results := progress.UpdateEMABatch(rec.EMAByOutcome, rec.ObservationCounts, cmd.Observations, h.cfg)
	rec.EMAByOutcome = updated
	for outcomeID := range cmd.Observations {
		rec.ObservationCounts[outcomeID]++
	}
	rec.UpdatedAt = time.Now().UTC()

	if err := rec.Validate(); err != nil {
		return nil, err
	}
	if err := h.masteryRepo.Upsert(ctx, rec); err != nil {
		return nil, err
	}

	h.log.Info("mastery evidence recorded",
		logger.StudentID(string(cmd.StudentID)),
		logger.CourseID(string(cmd.CourseID)),
		logger.Int("outcomes", len(cmd.Observations)))

	return &RecordEvidenceResult{Updated: results}, nil
}
