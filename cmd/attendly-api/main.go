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
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/sankalp-sachan/ATTENDLY/api/swagger"
	"github.com/sankalp-sachan/ATTENDLY/internal/handler"
	internalmiddleware "github.com/sankalp-sachan/ATTENDLY/internal/middleware"
	"github.com/sankalp-sachan/ATTENDLY/internal/models"
	"github.com/sankalp-sachan/ATTENDLY/internal/notification"
	"github.com/sankalp-sachan/ATTENDLY/internal/notifier"
	"github.com/sankalp-sachan/ATTENDLY/internal/repository"
	"github.com/sankalp-sachan/ATTENDLY/internal/service"
	"github.com/sankalp-sachan/ATTENDLY/pkg/cache"
	"github.com/sankalp-sachan/ATTENDLY/pkg/config"
	"github.com/sankalp-sachan/ATTENDLY/pkg/database"
	"github.com/sankalp-sachan/ATTENDLY/pkg/jobs"
	"github.com/sankalp-sachan/ATTENDLY/pkg/logger"
	corsmiddleware "github.com/sankalp-sachan/ATTENDLY/pkg/middleware/cors"
	ratelimitmiddleware "github.com/sankalp-sachan/ATTENDLY/pkg/middleware/ratelimit"
	reqidmiddleware "github.com/sankalp-sachan/ATTENDLY/pkg/middleware/requestid"
)

// @title Attendly API
// @version 1.0.0
// @description Attendance statistics and study reminders.
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			logr.Fatal("failed to migrate database", zap.Error(err))
		}
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, dashboard cache disabled", zap.Error(err))
		redisClient = nil
	}

	app, err := buildApp(cfg, db, redisClient, logr)
	if err != nil {
		logr.Fatal("failed to wire application", zap.Error(err))
	}
	if cfg.Notifications.Enabled {
		app.sessions.Run(ctx)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           app.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("http shutdown", zap.Error(err))
	}
	app.sessions.Shutdown()
	if redisClient != nil {
		_ = redisClient.Close()
	}
}

type application struct {
	router   *gin.Engine
	sessions *service.SessionManager
}

func buildApp(cfg *config.Config, db *sqlx.DB, redisClient *redis.Client, logr *zap.Logger) (*application, error) {
	validate := validator.New()
	metrics := service.NewMetricsService()

	classRepo := repository.NewClassRepository(db)
	stateRepo := repository.NewNotificationStateRepository(db)
	inboxRepo := repository.NewNotificationRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient)

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Dashboard.CacheTTL, logr, cfg.Dashboard.CacheEnabled && redisClient != nil)
	tokens := service.NewTokenService(cfg.JWT)

	policy, err := notification.NewPolicy(
		cfg.Notifications.MorningReminder,
		cfg.Notifications.EveningReminder,
		cfg.Notifications.MotivationStart,
		cfg.Notifications.MotivationEnd,
		cfg.Notifications.Seed,
	)
	if err != nil {
		return nil, fmt.Errorf("notification policy: %w", err)
	}

	fanout, err := notifier.New(cfg.Notifications.Channels, notifier.Options{
		Logger: logr.Named("notifier"),
		Inbox:  inboxRepo,
		Email: notifier.EmailOptions{
			APIKey:    cfg.Email.SendGridAPIKey,
			Host:      cfg.Email.SendGridHost,
			FromName:  cfg.Email.FromName,
			FromEmail: cfg.Email.FromEmail,
		},
	})
	if err != nil {
		return nil, err
	}

	defaultLoc, err := time.LoadLocation(cfg.Notifications.DefaultTimezone)
	if err != nil {
		return nil, fmt.Errorf("default time zone: %w", err)
	}

	notificationSvc := service.NewNotificationService(service.NotificationServiceParams{
		Classes:  classRepo,
		States:   stateRepo,
		Inbox:    inboxRepo,
		Notifier: fanout,
		Policy:   policy,
		Cache:    cacheSvc,
		Metrics:  metrics,
		Logger:   logr.Named("notifications"),
		Config: service.NotificationServiceConfig{
			DefaultLocation: defaultLoc,
			RetryFailed:     cfg.Notifications.RetryFailed,
			DeliveryTimeout: cfg.Notifications.DeliveryTimeout,
		},
	})

	sessions := service.NewSessionManager(notificationSvc, service.SessionManagerConfig{
		TickInterval:     cfg.Notifications.TickInterval,
		DefaultTimeZone:  cfg.Notifications.DefaultTimezone,
		ImmediateOnStart: cfg.Notifications.ImmediateOnStart,
		Queue: jobs.QueueConfig{
			Workers:    cfg.Notifications.Workers,
			BufferSize: cfg.Notifications.QueueBuffer,
			MaxRetries: 1,
			RetryDelay: 2 * time.Second,
		},
	}, metrics, logr)

	classSvc := service.NewClassService(classRepo, cacheSvc, nil, validate, logr.Named("classes"), cfg.Notifications.DefaultTarget)
	if cfg.Notifications.Enabled {
		classSvc.SetScheduler(sessions)
	}
	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Classes: classRepo,
		States:  stateRepo,
		Inbox:   inboxRepo,
		Cache:   cacheSvc,
		Metrics: metrics,
		Logger:  logr.Named("dashboard"),
		Config:  service.DashboardServiceConfig{CacheTTL: cfg.Dashboard.CacheTTL},
	})
	reportSvc := service.NewReportService(classRepo, logr.Named("reports"))

	classHandler := handler.NewClassHandler(classSvc)
	attendanceHandler := handler.NewAttendanceHandler(classSvc, dashboardSvc, sessions)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc, sessions)
	reportHandler := handler.NewReportHandler(reportSvc, sessions)
	notificationHandler := handler.NewNotificationHandler(sessions, notificationSvc, validate)
	metricsHandler := handler.NewMetricsHandler(metrics, map[string]handler.PingFunc{
		"postgres": db.PingContext,
		"redis":    cacheRepo.Ping,
	})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))
	r.Use(internalmiddleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(internalmiddleware.JWT(tokens))

	limited := func(h gin.HandlerFunc) []gin.HandlerFunc {
		return []gin.HandlerFunc{h}
	}
	if cfg.RateLimit.Enabled {
		limiter := ratelimitmiddleware.Middleware(cfg.RateLimit.Requests, cfg.RateLimit.Window, ratelimitmiddleware.ClientIP)
		limited = func(h gin.HandlerFunc) []gin.HandlerFunc {
			return []gin.HandlerFunc{limiter, h}
		}
	}

	classes := api.Group("/classes")
	classes.GET("", classHandler.List)
	classes.POST("", classHandler.Create)
	classes.GET("/:id", classHandler.Get)
	classes.PATCH("/:id", classHandler.Update)
	classes.DELETE("/:id", classHandler.Delete)
	classes.GET("/:id/stats", attendanceHandler.Stats)
	classes.PUT("/:id/attendance/:date", limited(attendanceHandler.Mark)...)
	classes.DELETE("/:id/attendance/:date", limited(attendanceHandler.Clear)...)

	api.GET("/dashboard", dashboardHandler.Get)
	api.GET("/reports/attendance", reportHandler.Attendance)

	notifications := api.Group("/notifications")
	notifications.GET("", notificationHandler.Inbox)
	notifications.POST("/:id/read", notificationHandler.MarkRead)
	notifications.GET("/session", notificationHandler.SessionStatus)
	notifications.POST("/session", notificationHandler.StartSession)
	notifications.DELETE("/session", notificationHandler.StopSession)
	notifications.POST("/tick", notificationHandler.Tick)

	admin := api.Group("/admin", internalmiddleware.RequireRoles(models.RoleAdmin))
	admin.GET("/metrics", metricsHandler.Snapshot)

	return &application{router: r, sessions: sessions}, nil
}
