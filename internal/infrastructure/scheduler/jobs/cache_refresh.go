package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/schoolofai/ScottishAILessons-sub002/internal/application/query"
	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/curriculum"
)

// ══════════════════════════════════════════════════════════════════════════════
// CACHE REFRESH JOB
// ══════════════════════════════════════════════════════════════════════════════

// CacheRefreshJob re-resolves curricula for recently active enrollments so
// the cache stays warm across TTL expiry. Resolution is the expensive read
// path (fetch, decompress, overlay merge); paying it in the background keeps
// it off interactive requests for hot pairs.
type CacheRefreshJob struct {
	refRepo  curriculum.ReferenceRepository
	resolver *query.ResolveCurriculumHandler
	logger   *slog.Logger

	config CacheRefreshConfig

	lastRunStats atomic.Value // *CacheRefreshStats
}

// CacheRefreshConfig contains configuration for the cache refresh job.
type CacheRefreshConfig struct {
	// MaxPairs is the number of most recently updated enrollments to warm.
	MaxPairs int

	// PerPairTimeout bounds a single resolution.
	PerPairTimeout time.Duration

	// Timeout is the maximum duration for the whole job.
	Timeout time.Duration
}

// DefaultCacheRefreshConfig returns sensible defaults.
func DefaultCacheRefreshConfig() CacheRefreshConfig {
	return CacheRefreshConfig{
		MaxPairs:       200,
		PerPairTimeout: 10 * time.Second,
		Timeout:        5 * time.Minute,
	}
}

// CacheRefreshStats contains statistics from a refresh run.
type CacheRefreshStats struct {
	StartedAt   time.Time
	CompletedAt time.Time
	Duration    time.Duration
	PairsFound  int
	Warmed      int
	Skipped     int
	Failed      int
}

// NewCacheRefreshJob creates a new cache refresh job.
func NewCacheRefreshJob(
	refRepo curriculum.ReferenceRepository,
	resolver *query.ResolveCurriculumHandler,
	logger *slog.Logger,
	config CacheRefreshConfig,
) *CacheRefreshJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &CacheRefreshJob{
		refRepo:  refRepo,
		resolver: resolver,
		logger:   logger,
		config:   config,
	}
}

// Name returns the job name.
func (j *CacheRefreshJob) Name() string {
	return "cache_refresh"
}

// Description returns a human-readable description.
func (j *CacheRefreshJob) Description() string {
	return "Warms the resolved-curriculum cache for recently active enrollments"
}

// Run executes the refresh.
func (j *CacheRefreshJob) Run(ctx context.Context) error {
	startedAt := time.Now().UTC()
	stats := &CacheRefreshStats{StartedAt: startedAt}

	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	refs, err := j.refRepo.ListRecent(ctx, j.config.MaxPairs)
	if err != nil {
		return fmt.Errorf("failed to list enrollment references: %w", err)
	}

	stats.PairsFound = len(refs)

	for _, ref := range refs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		// Unmigrated enrollments resolve through the legacy fallback and
		// are not cached; skip them rather than logging a failure.
		if ref.SourceDocumentID == "" {
			stats.Skipped++
			continue
		}

		if err := j.warmPair(ctx, ref); err != nil {
			stats.Failed++
			j.logger.Warn("cache warm failed",
				"student_id", ref.StudentID,
				"course_id", ref.CourseID,
				"error", err,
			)
			continue
		}
		stats.Warmed++
	}

	stats.CompletedAt = time.Now().UTC()
	stats.Duration = stats.CompletedAt.Sub(startedAt)
	j.lastRunStats.Store(stats)

	j.logger.Info("cache_refresh completed",
		"duration", stats.Duration.String(),
		"pairs_found", stats.PairsFound,
		"warmed", stats.Warmed,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
	)

	return nil
}

// warmPair resolves one enrollment. The resolver writes the result through
// to the cache as a side effect of a successful resolution.
func (j *CacheRefreshJob) warmPair(ctx context.Context, ref *curriculum.Reference) error {
	if j.config.PerPairTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.PerPairTimeout)
		defer cancel()
	}

	_, err := j.resolver.Handle(ctx, query.ResolveCurriculumQuery{
		StudentID: ref.StudentID,
		CourseID:  ref.CourseID,
	})
	return err
}

// LastRunStats returns statistics from the last refresh.
func (j *CacheRefreshJob) LastRunStats() *CacheRefreshStats {
	stats := j.lastRunStats.Load()
	if stats == nil {
		return nil
	}
	return stats.(*CacheRefreshStats)
}
