package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/vandap/vandap-backend/internal/audio"
	"github.com/vandap/vandap-backend/internal/config"
	"github.com/vandap/vandap-backend/internal/database"
	"github.com/vandap/vandap-backend/internal/handler"
	"github.com/vandap/vandap-backend/internal/logger"
	"github.com/vandap/vandap-backend/internal/notify"
	"github.com/vandap/vandap-backend/internal/repository"
	"github.com/vandap/vandap-backend/internal/router"
	"github.com/vandap/vandap-backend/internal/service"
	"github.com/vandap/vandap-backend/internal/storage"
	"github.com/vandap/vandap-backend/internal/validator"
	"github.com/vandap/vandap-backend/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting Vandap Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Storage ────────────────────────────────────────────
	recordingStore, err := storage.NewDiskArtifactStore(cfg.RecordingDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to prepare recording store")
	}

	// ─── Initialize Repositories ───────────────────────────────────────
	studentRepo := repository.NewStudentRepository(pool)
	supervisorRepo := repository.NewSupervisorRepository(pool)
	examRepo := repository.NewExamRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	participantRepo := repository.NewParticipantRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, rdb)
	studentService := service.NewStudentService(studentRepo, authService, log)
	examService := service.NewExamService(examRepo, participantRepo, log)
	questionService := service.NewQuestionService(questionRepo, log)
	mediaService := service.NewMediaService(cfg)
	monitorService := service.NewMonitorService(examRepo, participantRepo, log)
	reportService := service.NewReportService(examRepo, participantRepo, log)
	attemptService := service.NewAttemptService(
		participantRepo,
		questionRepo,
		examRepo,
		recordingStore,
		storage.NewRedisArtifactStage(rdb),
		storage.NewRedisResetGuard(rdb, log),
		worker.NewRedisTranscodeQueue(rdb),
		notify.NewRedisNotifier(rdb, log),
		log,
	)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:     handler.NewAuthHandler(authService, studentService, supervisorRepo),
		Attempt:  handler.NewAttemptHandler(attemptService, mediaService, log),
		Exam:     handler.NewExamHandler(examService, attemptService, monitorService, reportService, recordingStore, log),
		Student:  handler.NewStudentHandler(studentService),
		Question: handler.NewQuestionHandler(questionService),
		Media:    handler.NewMediaHandler(mediaService),
		Monitor:  handler.NewMonitorHandler(rdb, monitorService, log),
		WS:       handler.NewWSHandler(rdb, attemptService, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	expiryWorker := worker.NewExpiryWorker(attemptService, cfg.ExpirySweepEvery, log)
	transcodeWorker := worker.NewTranscodeWorker(
		rdb,
		participantRepo,
		recordingStore,
		audio.NewFFmpegTranscoder(cfg.FFmpegBin, log),
		log,
	)

	go expiryWorker.Start(workerCtx)
	go transcodeWorker.Start(workerCtx)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers and wait for in-flight work to finish.
	workerCancel()
	time.Sleep(2 * time.Second)

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
