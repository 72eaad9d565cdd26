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
	"go.uber.org/zap"

	_ "github.com/noah-isme/attendance-tracker-api/api/swagger"
	"github.com/noah-isme/attendance-tracker-api/internal/handler"
	"github.com/noah-isme/attendance-tracker-api/internal/middleware"
	"github.com/noah-isme/attendance-tracker-api/internal/repository"
	"github.com/noah-isme/attendance-tracker-api/internal/service"
	"github.com/noah-isme/attendance-tracker-api/pkg/cache"
	"github.com/noah-isme/attendance-tracker-api/pkg/calendar"
	"github.com/noah-isme/attendance-tracker-api/pkg/config"
	"github.com/noah-isme/attendance-tracker-api/pkg/database"
	"github.com/noah-isme/attendance-tracker-api/pkg/events"
	"github.com/noah-isme/attendance-tracker-api/pkg/export"
	"github.com/noah-isme/attendance-tracker-api/pkg/jobs"
	"github.com/noah-isme/attendance-tracker-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/attendance-tracker-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/attendance-tracker-api/pkg/middleware/requestid"
)

// @title Attendance Tracker API
// @version 1.0.0
// @description Attendance marking, streaks and semester projections
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const shutdownTimeout = 15 * time.Second

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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("database unavailable", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		redisClient = nil
	}

	holidays := calendar.DefaultHolidays()
	if len(cfg.Attendance.Holidays) > 0 {
		if holidays, err = calendar.NewHolidays(cfg.Attendance.Holidays); err != nil {
			logr.Fatal("invalid holiday table", zap.Error(err))
		}
	}
	logr.Info("holiday table loaded", zap.Int("holidays", holidays.Len()))
	cal := calendar.New(holidays, logr)

	attendanceRepo := repository.NewAttendanceRepository(db)
	streakRepo := repository.NewStreakRepository(db)
	classroomRepo := repository.NewClassroomRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.ProjectionTTL, logr, cfg.Cache.Enabled && redisClient != nil)

	publisher := events.NewKafkaPublisher(cfg.Kafka, logr)
	defer publisher.Close() //nolint:errcheck

	authSvc := service.NewAuthService(logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		Issuer:            cfg.JWT.Issuer,
		Audience:          cfg.JWT.Audience,
		Leeway:            30 * time.Second,
	})
	attendanceSvc := service.NewAttendanceService(service.AttendanceServiceParams{
		Store:      attendanceRepo,
		Classrooms: classroomRepo,
		Calendar:   cal,
		Cache:      cacheSvc,
		Metrics:    metricsSvc,
		Publisher:  publisher,
		CSV:        export.NewCSVExporter(),
		PDF:        export.NewPDFExporter(),
		Validator:  validator.New(),
		Logger:     logr,
		Config:     service.AttendanceServiceConfig{StatsCacheTTL: cfg.Cache.StatsTTL},
	})
	streakSvc := service.NewStreakService(streakRepo, attendanceRepo, logr)
	projectionSvc := service.NewProjectionService(attendanceRepo, cal, cacheSvc, metricsSvc, logr, service.ProjectionServiceConfig{
		CacheTTL:      cfg.Cache.ProjectionTTL,
		DefaultTarget: cfg.Attendance.DefaultTargetPercentage,
		MaxWindowDays: cfg.Attendance.MaxWindowDays,
	})
	calendarSvc := service.NewCalendarService(cal, logr, service.CalendarServiceConfig{MaxWindowDays: cfg.Attendance.MaxWindowDays})

	backfillWorker := service.NewBackfillWorker(attendanceSvc, metricsSvc, logr)
	backfillQueue := jobs.NewQueue("attendance-backfill", backfillWorker.Handle, jobs.QueueConfig{
		Workers:    cfg.Backfill.Workers,
		MaxRetries: cfg.Backfill.MaxRetries,
		RetryDelay: cfg.Backfill.RetryDelay,
		Logger:     logr,
	})
	backfillSvc := service.NewBackfillService(backfillQueue, logr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	// Jobs drain on shutdown, so workers do not inherit the signal context.
	backfillQueue.Start(context.Background())

	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc, backfillSvc, streakSvc)
	projectionHandler := handler.NewProjectionHandler(projectionSvc)
	calendarHandler := handler.NewCalendarHandler(calendarSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc,
		handler.ReadinessCheck{Name: "database", Check: func(ctx context.Context) error { return database.Ping(ctx, db) }},
		handler.ReadinessCheck{Name: "redis", Check: func(ctx context.Context) error {
			if redisClient == nil {
				return nil
			}
			return redisClient.Ping(ctx).Err()
		}},
	)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.WithResponseMeta())
	r.Use(middleware.Metrics(metricsSvc, "/metrics", "/health", "/ready"))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	r.GET("/metrics/summary", metricsHandler.Summary)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(authSvc))
	{
		attendance := api.Group("/attendance")
		attendance.POST("/mark", middleware.Audit(logr, "attendance.mark"), attendanceHandler.Mark)
		attendance.PATCH("/status", middleware.Audit(logr, "attendance.correct"), attendanceHandler.CorrectStatus)
		attendance.POST("/backfill", middleware.Audit(logr, "attendance.backfill"), attendanceHandler.Backfill)
		attendance.GET("/stats", attendanceHandler.Stats)
		attendance.GET("/stats/export", attendanceHandler.ExportStats)
		attendance.GET("/streak", attendanceHandler.Streak)
		attendance.POST("/streak/reconcile", middleware.Audit(logr, "attendance.streak_reconcile"), attendanceHandler.ReconcileStreak)
		attendance.GET("/projection", projectionHandler.Dashboard)

		calendarRoutes := api.Group("/calendar")
		calendarRoutes.GET("/working-days", calendarHandler.WorkingDays)
		calendarRoutes.GET("/progress", calendarHandler.Progress)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Error("server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("http shutdown", zap.Error(err))
	}
	backfillQueue.Stop(shutdownCtx)
}
