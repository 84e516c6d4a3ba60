// Package main is the entry point for the scheduling backend API server.
//
// The server exposes the REST surface for context assembly, curriculum
// resolution, overlay edits, continuity checkpoints, and evidence recording.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/schoolofai/ScottishAILessons-sub002/config"
	"github.com/schoolofai/ScottishAILessons-sub002/internal/application/command"
	"github.com/schoolofai/ScottishAILessons-sub002/internal/application/query"
	"github.com/schoolofai/ScottishAILessons-sub002/internal/codec"
	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/curriculum"
	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/progress"
	"github.com/schoolofai/ScottishAILessons-sub002/internal/infrastructure/external/objectstore"
	"github.com/schoolofai/ScottishAILessons-sub002/internal/infrastructure/persistence/postgres"
	"github.com/schoolofai/ScottishAILessons-sub002/internal/infrastructure/persistence/redis"
	httpapi "github.com/schoolofai/ScottishAILessons-sub002/internal/interface/http"
	"github.com/schoolofai/ScottishAILessons-sub002/internal/interface/http/handlers"
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
	// ─────────────────────────────────────────────────────────────────────────
	level := logger.LevelInfo
	if cfg.App.Debug {
		level = logger.LevelDebug
	}
	log := logger.New(logger.Options{
		Level:       level,
		Development: !cfg.IsProduction(),
		AddCaller:   cfg.App.Debug,
	})
	defer log.Sync()

	log.Info("starting scheduling backend API",
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
	log.Info("database ready")

	// ─────────────────────────────────────────────────────────────────────────
	// 4. Redis (optional)
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
			log.Warn("redis unavailable, caching disabled", logger.Err(err))
			redisCache = nil
		} else {
			defer redisCache.Close()
			log.Info("redis ready")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. Object store (optional)
	// ─────────────────────────────────────────────────────────────────────────
	var fileStore codec.FileStore
	var osClient *objectstore.Client
	if cfg.ObjectStore.BaseURL != "" {
		osCfg := objectstore.DefaultClientConfig(cfg.ObjectStore.BaseURL)
		osCfg.ProjectID = cfg.ObjectStore.ProjectID
		osCfg.APIKey = cfg.ObjectStore.APIKey
		osCfg.BucketID = cfg.ObjectStore.BucketID
		osCfg.Timeout = cfg.ObjectStore.Timeout
		osCfg.RateLimiterConfig.RequestsPerSecond = cfg.ObjectStore.RequestsPerSecond
		osCfg.RateLimiterConfig.BurstSize = cfg.ObjectStore.BurstSize
		osCfg.Debug = cfg.App.Debug

		osClient = objectstore.NewClient(osCfg)
		fileStore = osClient
		log.Info("object store client ready", logger.String("bucket", cfg.ObjectStore.BucketID))
	} else {
		log.Warn("no object store configured, blob-indirected payloads will fail to resolve")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. Repositories and caches
	// ─────────────────────────────────────────────────────────────────────────
	studentRepo := postgres.NewStudentRepository(dbConn)
	courseRepo := postgres.NewCourseRepository(dbConn)
	docRepo := postgres.NewDocumentRepository(dbConn)
	refRepo := postgres.NewReferenceRepository(dbConn)
	legacyRepo := postgres.NewLegacyEntryRepository(dbConn)
	lessonRepo := postgres.NewLessonRepository(dbConn)
	masteryRepo := postgres.NewMasteryRepository(dbConn)
	routineRepo := postgres.NewRoutineRepository(dbConn)
	continuityRepo := postgres.NewContinuityRepository(dbConn)

	var curriculumCache curriculum.Cache
	if redisCache != nil {
		curriculumCache = redis.NewCurriculumCache(redisCache)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 7. Application handlers
	// ─────────────────────────────────────────────────────────────────────────
	resolver := query.NewResolveCurriculumHandler(refRepo, docRepo, curriculumCache, fileStore, cfg.Redis.DocumentTTL, log)

	deps := httpapi.Dependencies{
		ResolveCurriculumHandler: resolver,
		CreateReferenceHandler:   command.NewCreateReferenceHandler(refRepo, log),
		UpdateOverlayHandler:     command.NewUpdateOverlayHandler(refRepo, curriculumCache, log),
		SaveContinuityHandler:    command.NewSaveContinuityHandler(continuityRepo, log),
		RecordEvidenceHandler:    command.NewRecordEvidenceHandler(masteryRepo, progress.DefaultEMAConfig(), log),
		Auth:                     handlers.NewSessionAuth(cfg.Auth.JWTSecret, cfg.Auth.CookieName),
		Logger:                   log,
	}

	if redisCache != nil {
		cachedStudents := redis.NewCachedStudentRepository(studentRepo, redis.NewStudentCache(redisCache), redis.TTLStudentCache)
		cachedCourses := redis.NewCachedCourseRepository(courseRepo, redis.NewCourseCache(redisCache), redis.TTLCourseCache)
		cachedCatalog := redis.NewCachedLessonRepository(lessonRepo, redis.NewLessonCache(redisCache), cfg.Redis.CatalogTTL)
		deps.AssembleContextHandler = query.NewAssembleContextHandler(
			cachedStudents, cachedCourses, resolver, legacyRepo, cachedCatalog,
			masteryRepo, routineRepo, continuityRepo, fileStore, log)
	} else {
		deps.AssembleContextHandler = query.NewAssembleContextHandler(
			studentRepo, courseRepo, resolver, legacyRepo, lessonRepo,
			masteryRepo, routineRepo, continuityRepo, fileStore, log)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 8. Health checks
	// ─────────────────────────────────────────────────────────────────────────
	health := handlers.NewCompositeHealthChecker(cfg.App.Version)
	health.AddCheck("database", handlers.NewDatabaseCheck(dbConn))
	if redisCache != nil {
		health.AddCheck("cache", handlers.NewCacheCheck(redisCache))
	}
	if osClient != nil {
		health.AddCheck("object_store", handlers.NewObjectStoreCheck(osClient))
	}
	deps.HealthChecker = health

	// ─────────────────────────────────────────────────────────────────────────
	// 9. HTTP server
	// ─────────────────────────────────────────────────────────────────────────
	serverCfg := httpapi.DefaultConfig()
	serverCfg.Host = cfg.HTTP.Host
	serverCfg.Port = cfg.HTTP.Port
	serverCfg.ReadTimeout = cfg.HTTP.ReadTimeout
	serverCfg.WriteTimeout = cfg.HTTP.WriteTimeout
	serverCfg.IdleTimeout = cfg.HTTP.IdleTimeout

	server := httpapi.NewServer(serverCfg, deps)

	errCh := server.StartAsync()
	log.Info("API server listening", logger.String("address", server.Address()))

	// ─────────────────────────────────────────────────────────────────────────
	// 10. Graceful shutdown
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", logger.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	log.Info("shutdown complete")
	return nil
}
