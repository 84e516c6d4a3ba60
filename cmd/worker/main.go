// Package main is the entry point for the scheduling backend maintenance
// worker.
//
// The worker runs the periodic jobs: the spaced-repetition routine sweep and
// the resolved-curriculum cache refresh.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/schoolofai/ScottishAILessons-sub002/config"
	"github.com/schoolofai/ScottishAILessons-sub002/internal/application/query"
	"github.com/schoolofai/ScottishAILessons-sub002/internal/codec"
	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/curriculum"
	"github.com/schoolofai/ScottishAILessons-sub002/internal/infrastructure/external/objectstore"
	"github.com/schoolofai/ScottishAILessons-sub002/internal/infrastructure/persistence/postgres"
	"github.com/schoolofai/ScottishAILessons-sub002/internal/infrastructure/persistence/redis"
	"github.com/schoolofai/ScottishAILessons-sub002/internal/infrastructure/scheduler"
	"github.com/schoolofai/ScottishAILessons-sub002/internal/infrastructure/scheduler/jobs"
	"github.com/schoolofai/ScottishAILessons-sub002/pkg/logger"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. Configuration
	// ─────────────────────────────────────────────────────────────────────────
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. Logging
	// The scheduler framework logs through slog; application handlers use
	// the structured logger.
	// ─────────────────────────────────────────────────────────────────────────
	level := logger.LevelInfo
	if cfg.App.Debug {
		level = logger.LevelDebug
	}
	log := logger.New(logger.Options{Level: level, Development: !cfg.IsProduction()})
	defer log.Sync()

	slogger := newSlog(cfg)

	log.Info("starting scheduling backend worker",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. PostgreSQL
	// ─────────────────────────────────────────────────────────────────────────
	dbConn, err := postgres.NewConnection(ctx, postgres.Config{
		URL:          cfg.Database.URL,
		MaxConns:     cfg.Database.MaxConns,
		MinConns:     cfg.Database.MinConns,
		QueryTimeout: cfg.Database.QueryTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer dbConn.Close()

	if err := postgres.NewMigrator(dbConn).Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. Redis (the cache refresh job is pointless without it)
	// ─────────────────────────────────────────────────────────────────────────
	var redisCache *redis.Cache
	if !cfg.Redis.Disabled {
		redisCfg, err := redis.ConfigFromURL(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("failed to parse redis URL: %w", err)
		}
		redisCfg.PoolSize = cfg.Redis.PoolSize
		redisCfg.MinIdleConns = cfg.Redis.MinIdleConns

		redisCache, err = redis.NewCache(redisCfg)
		if err != nil {
			log.Warn("redis unavailable, cache refresh will be skipped", logger.Err(err))
			redisCache = nil
		} else {
			defer redisCache.Close()
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. Object store (optional)
	// ─────────────────────────────────────────────────────────────────────────
	var fileStore codec.FileStore
	if cfg.ObjectStore.BaseURL != "" {
		osCfg := objectstore.DefaultClientConfig(cfg.ObjectStore.BaseURL)
		osCfg.ProjectID = cfg.ObjectStore.ProjectID
		osCfg.APIKey = cfg.ObjectStore.APIKey
		osCfg.BucketID = cfg.ObjectStore.BucketID
		osCfg.Timeout = cfg.ObjectStore.Timeout
		osCfg.RateLimiterConfig.RequestsPerSecond = cfg.ObjectStore.RequestsPerSecond
		osCfg.RateLimiterConfig.BurstSize = cfg.ObjectStore.BurstSize
		osCfg.Logger = slogger
		fileStore = objectstore.NewClient(osCfg)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. Jobs
	// ─────────────────────────────────────────────────────────────────────────
	routineRepo := postgres.NewRoutineRepository(dbConn)
	refRepo := postgres.NewReferenceRepository(dbConn)
	docRepo := postgres.NewDocumentRepository(dbConn)

	schedConfig := scheduler.DefaultSchedulerConfig()
	schedConfig.Logger = slogger
	sched := scheduler.NewScheduler(schedConfig)

	var sweepSchedule scheduler.Schedule = scheduler.NewIntervalSchedule(cfg.Scheduler.RoutineSweepInterval)
	if cfg.Scheduler.RoutineSweepCron != "" {
		expr, err := scheduler.ParseCronExpression(cfg.Scheduler.RoutineSweepCron)
		if err != nil {
			return fmt.Errorf("invalid ROUTINE_SWEEP_CRON: %w", err)
		}
		sweepSchedule = expr
	}

	sweep := jobs.NewRoutineSweepJob(routineRepo, slogger, jobs.DefaultRoutineSweepConfig())
	if err := sched.Register(sweep, sweepSchedule); err != nil {
		return fmt.Errorf("failed to register routine sweep: %w", err)
	}

	if redisCache != nil {
		var curriculumCache curriculum.Cache = redis.NewCurriculumCache(redisCache)
		resolver := query.NewResolveCurriculumHandler(refRepo, docRepo, curriculumCache, fileStore, cfg.Redis.DocumentTTL, log)

		refresh := jobs.NewCacheRefreshJob(refRepo, resolver, slogger, jobs.DefaultCacheRefreshConfig())
		if err := sched.Register(refresh, scheduler.NewIntervalSchedule(cfg.Scheduler.CacheRefreshInterval)); err != nil {
			return fmt.Errorf("failed to register cache refresh: %w", err)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 7. Run until signalled
	// ─────────────────────────────────────────────────────────────────────────
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", logger.String("signal", sig.String()))
	case <-ctx.Done():
	}

	if err := sched.Stop(); err != nil {
		return fmt.Errorf("failed to stop scheduler: %w", err)
	}

	log.Info("shutdown complete")
	return nil
}

// newSlog builds the slog logger used by the scheduler framework.
func newSlog(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if cfg.App.Debug {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.IsProduction() {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}
