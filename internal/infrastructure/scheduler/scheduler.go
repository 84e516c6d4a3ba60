// Package scheduler runs the backend's periodic maintenance jobs: the
// spaced-repetition routine sweep and the curriculum cache refresh.
// Schedules are either fixed intervals or cron expressions.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// JOB INTERFACE
// ══════════════════════════════════════════════════════════════════════════════

// Job is a unit of periodic work.
type Job interface {
	// Name identifies the job; registration rejects duplicates.
	Name() string

	// Run executes the job. The context is cancelled when the scheduler
	// is stopping.
	Run(ctx context.Context) error

	// Description says what the job does, for the job listing.
	Description() string
}

// Schedule decides when a registered job fires.
type Schedule interface {
	// Next computes the first firing strictly after the given time.
	Next(t time.Time) time.Time

	// String returns a human-readable representation of the schedule.
	String() string
}

// ══════════════════════════════════════════════════════════════════════════════
// SCHEDULER
// ══════════════════════════════════════════════════════════════════════════════

// Scheduler drives registered jobs on their schedules from a single loop.
type Scheduler struct {
	mu sync.RWMutex

	logger   *slog.Logger
	timezone *time.Location

	jobs      map[string]*scheduledJob
	running   bool
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startedAt time.Time
}

type scheduledJob struct {
	job      Job
	schedule Schedule

	lastRun      time.Time
	nextRun      time.Time
	lastErr      error
	lastDuration time.Duration
	runCount     int64
	failCount    int64
}

// SchedulerConfig carries the scheduler's logger and timezone.
type SchedulerConfig struct {
	// Logger receives job lifecycle events.
	Logger *slog.Logger

	// Timezone for schedule calculations (default: UTC).
	Timezone *time.Location
}

// DefaultSchedulerConfig runs jobs in UTC with a default logger.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Logger:   slog.Default(),
		Timezone: time.UTC,
	}
}

// NewScheduler creates a Scheduler with the given configuration.
func NewScheduler(config SchedulerConfig) *Scheduler {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Timezone == nil {
		config.Timezone = time.UTC
	}

	return &Scheduler{
		logger:   config.Logger,
		timezone: config.Timezone,
		jobs:     make(map[string]*scheduledJob),
	}
}

// Register attaches a job to a schedule. Fails once the loop is running.
func (s *Scheduler) Register(job Job, schedule Schedule) error {
	if job == nil {
		return ErrNilJob
	}
	if schedule == nil {
		return ErrNilSchedule
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	name := job.Name()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("%w: %s", ErrJobAlreadyExists, name)
	}

	sj := &scheduledJob{
		job:      job,
		schedule: schedule,
		nextRun:  schedule.Next(time.Now().In(s.timezone)),
	}
	s.jobs[name] = sj

	s.logger.Info("job registered",
		"job", name,
		"description", job.Description(),
		"schedule", schedule.String(),
		"next_run", sj.nextRun.Format(time.RFC3339),
	)

	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Start launches the dispatch loop in its own goroutine.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrSchedulerAlreadyRunning
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.running = true
	s.startedAt = time.Now()
	s.mu.Unlock()

	s.logger.Info("scheduler started", "jobs_count", len(s.jobs))

	s.wg.Add(1)
	go s.runLoop()

	return nil
}

// Stop stops the loop and waits for in-flight jobs to finish.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()

	s.logger.Info("scheduler stopped", "uptime", time.Since(s.startedAt).String())
	return nil
}

// IsRunning reports whether the loop is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func (s *Scheduler) runLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.dispatchDue()
		}
	}
}

func (s *Scheduler) dispatchDue() {
	now := time.Now().In(s.timezone)

	s.mu.Lock()
	var due []*scheduledJob
	for _, sj := range s.jobs {
		if !sj.nextRun.IsZero() && now.After(sj.nextRun) {
			// Advance before running so a slow job cannot pile up.
			sj.lastRun = now
			sj.nextRun = sj.schedule.Next(now)
			sj.runCount++
			due = append(due, sj)
		}
	}
	s.mu.Unlock()

	for _, sj := range due {
		s.wg.Add(1)
		go s.execute(sj)
	}
}

func (s *Scheduler) execute(sj *scheduledJob) {
	defer s.wg.Done()

	name := sj.job.Name()
	startedAt := time.Now()
	s.logger.Info("job started", "job", name)

	err := sj.job.Run(s.ctx)
	duration := time.Since(startedAt)

	s.mu.Lock()
	sj.lastErr = err
	sj.lastDuration = duration
	if err != nil {
		sj.failCount++
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("job failed", "job", name, "duration", duration.String(), "error", err)
	} else {
		s.logger.Info("job completed", "job", name, "duration", duration.String())
	}
}

// RunNow executes a job immediately, outside its schedule.
func (s *Scheduler) RunNow(ctx context.Context, jobName string) error {
	s.mu.RLock()
	sj, exists := s.jobs[jobName]
	s.mu.RUnlock()
	if !exists {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobName)
	}

	startedAt := time.Now()
	s.logger.Info("manual job execution started", "job", jobName)

	err := sj.job.Run(ctx)
	duration := time.Since(startedAt)

	s.mu.Lock()
	sj.lastRun = startedAt
	sj.lastErr = err
	sj.lastDuration = duration
	sj.runCount++
	if err != nil {
		sj.failCount++
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("manual job execution failed", "job", jobName, "duration", duration.String(), "error", err)
		return err
	}
	s.logger.Info("manual job execution completed", "job", jobName, "duration", duration.String())
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// STATUS
// ══════════════════════════════════════════════════════════════════════════════

// JobInfo is a snapshot of a registered job's state.
type JobInfo struct {
	Name         string
	Description  string
	Schedule     string
	LastRun      time.Time
	NextRun      time.Time
	LastError    error
	LastDuration time.Duration
	RunCount     int64
	FailCount    int64
}

// ListJobs returns a snapshot of every registered job.
func (s *Scheduler) ListJobs() []JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]JobInfo, 0, len(s.jobs))
	for name, sj := range s.jobs {
		infos = append(infos, JobInfo{
			Name:         name,
			Description:  sj.job.Description(),
			Schedule:     sj.schedule.String(),
			LastRun:      sj.lastRun,
			NextRun:      sj.nextRun,
			LastError:    sj.lastErr,
			LastDuration: sj.lastDuration,
			RunCount:     sj.runCount,
			FailCount:    sj.failCount,
		})
	}
	return infos
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	ErrNilJob                  = fmt.Errorf("job cannot be nil")
	ErrNilSchedule             = fmt.Errorf("schedule cannot be nil")
	ErrJobAlreadyExists        = fmt.Errorf("job already exists")
	ErrJobNotFound             = fmt.Errorf("job not found")
	ErrSchedulerAlreadyRunning = fmt.Errorf("scheduler is already running")
	ErrSchedulerNotRunning     = fmt.Errorf("scheduler is not running")
)
