// Package jobs contains implementations of scheduled jobs for the scheduling
// backend.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/progress"
	"github.com/schoolofai/ScottishAILessons-sub002/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// ROUTINE SWEEP JOB
// ══════════════════════════════════════════════════════════════════════════════

// RoutineSweepJob scans spaced-repetition routine records for outcomes whose
// review date has passed. The sweep is a reporting pass: scheduling itself
// happens at context assembly time, so the job's output is the operational
// signal that a cohort's review backlog is growing.
type RoutineSweepJob struct {
	routineRepo progress.RoutineRepository
	logger      *slog.Logger

	config RoutineSweepConfig

	lastRunStats atomic.Value // *RoutineSweepStats
}

// RoutineSweepConfig contains configuration for the routine sweep job.
type RoutineSweepConfig struct {
	// BatchSize is the maximum number of records fetched per sweep.
	BatchSize int

	// BacklogWarnThreshold is the overdue-outcome count per pair above which
	// the sweep logs a warning instead of an info line.
	BacklogWarnThreshold int

	// Timeout is the maximum duration for the job.
	Timeout time.Duration
}

// DefaultRoutineSweepConfig returns sensible defaults.
func DefaultRoutineSweepConfig() RoutineSweepConfig {
	return RoutineSweepConfig{
		BatchSize:            500,
		BacklogWarnThreshold: 10,
		Timeout:              2 * time.Minute,
	}
}

// RoutineSweepStats contains statistics from a sweep run.
type RoutineSweepStats struct {
	StartedAt          time.Time
	CompletedAt        time.Time
	Duration           time.Duration
	PairsChecked       int
	PairsOverdue       int
	OverdueOutcomes    int
	LargestBacklog     int
	LargestBacklogPair string
	OldestDueDate      time.Time
}

// NewRoutineSweepJob creates a new routine sweep job.
func NewRoutineSweepJob(routineRepo progress.RoutineRepository, logger *slog.Logger, config RoutineSweepConfig) *RoutineSweepJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &RoutineSweepJob{
		routineRepo: routineRepo,
		logger:      logger,
		config:      config,
	}
}

// Name returns the job name.
func (j *RoutineSweepJob) Name() string {
	return "routine_sweep"
}

// Description returns a human-readable description.
func (j *RoutineSweepJob) Description() string {
	return "Reports spaced-repetition outcomes whose review date has passed"
}

// Run executes the sweep.
func (j *RoutineSweepJob) Run(ctx context.Context) error {
	startedAt := timeutil.Now()
	stats := &RoutineSweepStats{StartedAt: startedAt}

	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	records, err := j.routineRepo.ListDueBefore(ctx, startedAt, j.config.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to list due routine records: %w", err)
	}

	stats.PairsChecked = len(records)

	for _, rec := range records {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		overdue := rec.OverdueOutcomes(startedAt)
		if len(overdue) == 0 {
			continue
		}

		stats.PairsOverdue++
		stats.OverdueOutcomes += len(overdue)

		if len(overdue) > stats.LargestBacklog {
			stats.LargestBacklog = len(overdue)
			stats.LargestBacklogPair = string(rec.StudentID) + "/" + string(rec.CourseID)
		}
		for _, id := range overdue {
			due := rec.DueByOutcome[id]
			if stats.OldestDueDate.IsZero() || due.Before(stats.OldestDueDate) {
				stats.OldestDueDate = due
			}
		}

		if len(overdue) >= j.config.BacklogWarnThreshold {
			j.logger.Warn("review backlog exceeds threshold",
				"student_id", rec.StudentID,
				"course_id", rec.CourseID,
				"overdue_outcomes", len(overdue),
			)
		}
	}

	stats.CompletedAt = timeutil.Now()
	stats.Duration = stats.CompletedAt.Sub(startedAt)
	j.lastRunStats.Store(stats)

	attrs := []any{
		"duration", stats.Duration.String(),
		"pairs_checked", stats.PairsChecked,
		"pairs_overdue", stats.PairsOverdue,
		"overdue_outcomes", stats.OverdueOutcomes,
	}
	if !stats.OldestDueDate.IsZero() {
		attrs = append(attrs,
			"oldest_due", timeutil.FormatDate(stats.OldestDueDate),
			"oldest_due_age_days", timeutil.DaysSince(stats.OldestDueDate),
		)
	}
	j.logger.Info("routine_sweep completed", attrs...)

	return nil
}

// LastRunStats returns statistics from the last sweep.
func (j *RoutineSweepJob) LastRunStats() *RoutineSweepStats {
	stats := j.lastRunStats.Load()
	if stats == nil {
		return nil
	}
	return stats.(*RoutineSweepStats)
}
