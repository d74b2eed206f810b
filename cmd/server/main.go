package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"athena/interview/internal/attempts"
	"athena/interview/internal/catalog"
	"athena/interview/internal/config"
	"athena/interview/internal/evaluation"
	"athena/interview/internal/events"
	"athena/interview/internal/handlers"
	"athena/interview/internal/jobs"
	"athena/interview/internal/llm"
	_ "athena/interview/internal/llm/gemini"
	"athena/interview/internal/metrics"
	authmw "athena/interview/internal/middleware"
	"athena/interview/internal/models"
	"athena/interview/internal/pipeline"
	"athena/interview/internal/prompts"
	"athena/interview/internal/repositories"
	"athena/interview/internal/routers"
	"athena/interview/internal/storage"
	"athena/interview/internal/transcription"
	"athena/interview/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func registerRoutes(router *chi.Mux, attemptHandler *handlers.AttemptHandler, adminHandler *handlers.AdminHandler, healthHandler *handlers.HealthHandler, auth func(http.Handler) http.Handler) {
	routers.HealthRoutes(router, healthHandler)
	routers.InterviewRoutes(router, attemptHandler, adminHandler, auth)
}

// newRouter builds the router with the shared middleware stack. Uploads carry
// whole recordings, so the request timeout is generous.
func newRouter(cfg *config.Config) *chi.Mux {
	router := chi.NewRouter()

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	router.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	router.Use(metrics.Middleware("interview"))
	router.Use(middleware.Timeout(10 * time.Minute))
	return router
}

// initDatabase opens Postgres and migrates the attempt tables
func initDatabase(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

// initRedis returns nil when REDIS_ADDR is unset; callers fall back to
// in-process locking and drop lifecycle events.
func initRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	if cfg.RedisAddr == "" {
		return nil, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return rdb, nil
}

// initCatalog serves prompt sets from Mongo when configured, with the bundled
// sets as fallback for versions Mongo does not know.
func initCatalog(ctx context.Context, cfg *config.Config, logger *zap.Logger) (catalog.Catalog, func(), error) {
	embedded, err := catalog.LoadEmbedded()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load bundled prompt sets: %w", err)
	}
	noop := func() {}
	if cfg.MongoURI == "" {
		return embedded, noop, nil
	}

	client, err := catalog.Connect(ctx, cfg.MongoURI)
	if err != nil {
		logger.Warn("Prompt catalog falling back to bundled sets", zap.Error(err))
		return embedded, noop, nil
	}
	closeFn := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		client.Disconnect(ctx)
	}
	primary := catalog.NewMongoCatalog(client.Database(cfg.MongoDatabase), "")
	return catalog.Fallback{Primary: primary, Secondary: embedded}, closeFn, nil
}

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()
	utils.SetLogger(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	logger.Info("Configuration loaded",
		zap.String("provider", cfg.Provider),
		zap.String("promptVersion", cfg.PromptVersionID),
		zap.String("evaluatorVersion", cfg.EvaluatorVersionID))

	rootCtx, stopRoot := context.WithCancel(context.Background())
	defer stopRoot()

	// prompt manager
	promptManager, err := prompts.NewPromptManager()
	if err != nil {
		logger.Fatal("Failed to initialize prompt manager", zap.Error(err))
	}
	if !promptManager.HasVersion(cfg.EvaluatorVersionID) {
		logger.Fatal("No prompt templates for evaluator version",
			zap.String("evaluatorVersion", cfg.EvaluatorVersionID),
			zap.Strings("loaded", promptManager.GetTemplates()))
	}

	// AI provider based on configuration
	aiProvider, err := llm.NewProvider(cfg.Provider)
	if err != nil {
		logger.Fatal("Failed to initialize AI provider", zap.Error(err))
	}

	db, err := initDatabase(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("Failed to access database handle", zap.Error(err))
	}

	rdb, err := initRedis(rootCtx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize redis", zap.Error(err))
	}
	var locker pipeline.Locker = pipeline.NewLocalLocker()
	var publisher events.Publisher = events.Nop{}
	if rdb != nil {
		defer rdb.Close()
		locker = pipeline.NewRedisLocker(rdb)
		publisher = events.NewRedisPublisher(rdb, logger)
		logger.Info("Redis enabled for locks and events", zap.String("addr", cfg.RedisAddr))
	} else {
		logger.Warn("REDIS_ADDR not set, using in-process locks; run a single instance")
	}

	promptCatalog, closeCatalog, err := initCatalog(rootCtx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize prompt catalog", zap.Error(err))
	}
	defer closeCatalog()

	blobs, err := storage.NewLocalStore(cfg.BlobDir)
	if err != nil {
		logger.Fatal("Failed to initialize recording storage", zap.Error(err))
	}

	attemptRepo := &repositories.AttemptRepository{DB: db}

	runner := pipeline.NewRunner(pipeline.Deps{
		Attempts:    attemptRepo,
		Blobs:       blobs,
		Catalog:     promptCatalog,
		Transcriber: transcription.NewLLMTranscriber(aiProvider, promptManager, logger),
		Evaluator:   evaluation.NewLLMEvaluator(aiProvider, promptManager, logger),
		Locker:      locker,
		Publisher:   publisher,
		Logger:      logger,
	}, pipeline.Config{
		StageTimeout:     cfg.StageTimeout,
		MaxRetries:       cfg.StageMaxRetries,
		RetryBackoff:     cfg.RetryBackoff,
		MaxArtifactBytes: cfg.MaxArtifactSize,
	})
	dispatcher := pipeline.NewDispatcher(runner, cfg.PipelineWorkers, cfg.PipelineQueueSize, logger)
	dispatcher.Start(rootCtx)

	service := attempts.NewService(attempts.Deps{
		Attempts:  attemptRepo,
		Lockouts:  &repositories.LockoutRepository{DB: db},
		Catalog:   promptCatalog,
		Blobs:     blobs,
		Signer:    storage.NewURLSigner(cfg.UploadSecret, cfg.PublicBaseURL, cfg.UploadURLTTL),
		Queue:     dispatcher,
		Publisher: publisher,
		Logger:    logger,
	}, attempts.Config{
		PromptVersionID:            cfg.PromptVersionID,
		EvaluatorVersionID:         cfg.EvaluatorVersionID,
		Cooldown:                   cfg.Cooldown,
		MaxArtifactBytes:           cfg.MaxArtifactSize,
		InProgressTimeout:          cfg.InProgressTimeout,
		UploadedUnsubmittedTimeout: cfg.UploadedUnsubmittedTimeout,
		ProcessingStaleAfter:       cfg.ProcessingStaleAfter,
	})

	sweepJob := jobs.NewSweepJob(service, &jobs.SweepConfig{
		Schedule: cfg.SweepSchedule,
		Timeout:  time.Minute,
	}, logger)
	// picks up attempts left processing by a previous instance
	if _, err := sweepJob.RunOnce(rootCtx); err != nil {
		logger.Error("Startup sweep failed", zap.Error(err))
	}
	if err := sweepJob.Start(); err != nil {
		logger.Fatal("Failed to start sweep job", zap.Error(err))
	}

	healthHandler := handlers.NewHealthHandler(sqlDB, aiProvider, promptManager, promptCatalog, cfg)
	attemptHandler := handlers.NewAttemptHandler(service, logger)
	adminHandler := handlers.NewAdminHandler(service, logger)

	router := newRouter(cfg)
	registerRoutes(router, attemptHandler, adminHandler, healthHandler, authmw.Authenticate(cfg.JWTSecret, logger))

	serverAddr := ":" + cfg.Port

	// http server with timeouts; uploads need room for large bodies
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       10 * time.Minute,
		WriteTimeout:      10 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	// starting server in a goroutine
	go func() {
		logger.Info("Interview service starting", zap.String("addr", serverAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// wait for interrupt signal to gracefully shutdown the server
	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)
	<-shutdownChan

	logger.Info("Interview service shutting down...")

	sweepJob.Stop()

	// graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	// in-flight stages are cancelled; the persisted stage lets the next
	// instance resume them
	stopRoot()
	dispatcher.Stop()

	logger.Info("Interview service exited")
}
