package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	_ "github.com/raveone/lms-api/api/swagger"
	"github.com/raveone/lms-api/internal/handler"
	"github.com/raveone/lms-api/internal/middleware"
	"github.com/raveone/lms-api/internal/repository"
	"github.com/raveone/lms-api/internal/service"
	"github.com/raveone/lms-api/pkg/cache"
	"github.com/raveone/lms-api/pkg/config"
	"github.com/raveone/lms-api/pkg/database"
	"github.com/raveone/lms-api/pkg/jobs"
	"github.com/raveone/lms-api/pkg/logger"
	corsmiddleware "github.com/raveone/lms-api/pkg/middleware/cors"
	reqidmiddleware "github.com/raveone/lms-api/pkg/middleware/requestid"
	"github.com/raveone/lms-api/pkg/storage"
	"github.com/raveone/lms-api/pkg/tracing"
)

// @title LMS API
// @version 1.0.0
// @description Drip-fed lessons, grading and exam booking for calendar-paced programs
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	shutdownTracing, err := tracing.Init(ctx, cfg, logr)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logr.Warn("tracing shutdown failed", zap.Error(err))
		}
	}()

	db, err := database.NewPostgres(ctx, cfg.Database, logr)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db, logr); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, caching and notifications disabled", zap.Error(err))
	} else {
		defer redisClient.Close()
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	enrollmentRepo := repository.NewEnrollmentRepository(db)
	lessonRepo := repository.NewLessonRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	examRepo := repository.NewExamRepository(db)
	batchRepo := repository.NewBatchRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	notificationRepo := repository.NewNotificationRepository(redisClient, cfg.Notifications.ChannelPrefix)

	audit := service.NewAuditService(auditRepo, logr)
	notifier := service.NewNotificationService(notificationRepo, metrics, logr)
	queue := jobs.NewQueue("notifications", notifier.Handle, jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		MaxRetries: cfg.Notifications.Retries,
		RetryDelay: cfg.Notifications.RetryDelay,
		Logger:     logr,
	})
	notifier.AttachQueue(queue)
	queue.Start(ctx)
	defer queue.Stop()

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Grading.CacheTTL, logr, cfg.Grading.CacheEnabled && redisClient != nil)
	authSvc := service.NewAuthService(service.AuthConfig{AccessTokenSecret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer}, logr)

	pattern := cfg.Calendar.Pattern
	drip := service.NewDripService(enrollmentRepo, lessonRepo, progressRepo, pattern, audit, metrics, logr)
	enrollments := service.NewEnrollmentService(enrollmentRepo, batchRepo, drip, pattern, audit, validate, logr)
	batches := service.NewBatchService(batchRepo, pattern, audit, validate, logr)
	sessions := service.NewSessionService(sessionRepo, batches, service.SessionServiceConfig{
		Location: cfg.Sessions.Location,
		JoinLead: cfg.Sessions.JoinLead,
	}, audit, validate, logr)

	store, err := storage.NewLocalStorage(cfg.Submissions.StorageDir, cfg.Submissions.MaxFileSizeBytes)
	if err != nil {
		return fmt.Errorf("init submission storage: %w", err)
	}
	assignments := service.NewAssignmentService(assignmentRepo, enrollmentRepo, service.AssignmentServiceConfig{
		Pattern:  pattern,
		Weights:  cfg.Grading.Weights,
		Cache:    cacheSvc,
		Notifier: notifier,
		Audit:    audit,
		Metrics:  metrics,
		Store:    store,
		Signer:   storage.NewSignedURLSigner(cfg.Submissions.SignedURLSecret, cfg.Submissions.SignedURLTTL),
	}, validate, logr)
	grades := service.NewGradeService(gradeRepo, assignmentRepo, enrollmentRepo, service.GradeServiceConfig{
		Weights:          cfg.Grading.Weights,
		Scale:            cfg.Grading.Scale,
		TotalAssignments: cfg.Grading.TotalAssignments,
		CacheTTL:         cfg.Grading.CacheTTL,
	}, cacheSvc, notifier, audit, metrics, validate, logr)
	transcripts := service.NewTranscriptService(grades, gradeRepo, logr)
	exams := service.NewExamService(examRepo, service.ExamServiceConfig{
		MeetingURLTemplate:  cfg.Exams.MeetingURLTemplate,
		ProctorInstructions: cfg.Exams.ProctorInstructions,
	}, notifier, audit, metrics, validate, logr)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	if cfg.Tracing.Enabled {
		r.Use(otelgin.Middleware(cfg.Tracing.ServiceName))
	}
	r.Use(middleware.Metrics(metrics))
	r.Use(middleware.WithResponseMeta())

	checks := map[string]handler.ReadinessCheck{
		"postgres": db.PingContext,
	}
	if redisClient != nil {
		checks["redis"] = cacheRepo.Ping
	}
	ops := handler.NewMetricsHandler(metrics, checks)
	r.GET("/health", ops.Health)
	r.GET("/ready", ops.Ready)
	r.GET("/metrics", ops.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	h := handler.Handlers{
		Drip:        handler.NewDripHandler(drip),
		Enrollments: handler.NewEnrollmentHandler(enrollments),
		Assignments: handler.NewAssignmentHandler(assignments),
		Grades:      handler.NewGradeHandler(grades, transcripts),
		Exams:       handler.NewExamHandler(exams),
		Batches:     handler.NewBatchHandler(batches),
		Sessions:    handler.NewSessionHandler(sessions),
	}
	if cfg.LegacyAPI.Enabled {
		h.Dispatch = handler.NewDispatchHandler(authSvc, handler.DispatchServices{
			Drip:        drip,
			Enrollments: enrollments,
			Assignments: assignments,
			Grades:      grades,
			Exams:       exams,
			Sessions:    sessions,
		})
	}
	handler.RegisterRoutes(r.Group(cfg.APIPrefix), h, authSvc)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
