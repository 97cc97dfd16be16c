package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/andesgrid/bess-dispatch-go/internal/api"
	"github.com/andesgrid/bess-dispatch-go/internal/cache"
	"github.com/andesgrid/bess-dispatch-go/internal/config"
	"github.com/andesgrid/bess-dispatch-go/internal/database"
	"github.com/andesgrid/bess-dispatch-go/internal/logging"
	"github.com/andesgrid/bess-dispatch-go/internal/middleware"
	"github.com/andesgrid/bess-dispatch-go/internal/services"
	"github.com/andesgrid/bess-dispatch-go/internal/telemetry"
	"github.com/andesgrid/bess-dispatch-go/pkg/spot"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is fine; config falls back to real env vars.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logrus.SetLevel(logging.ParseLogrusLevel(cfg.LogLevel))
	logrus.SetFormatter(&logrus.JSONFormatter{})
	stdLogger := logging.NewStandardLogger(cfg.LogLevel, cfg.Environment)

	provider, err := telemetry.InitTelemetry(telemetry.TelemetryConfig{
		Enabled:      cfg.Telemetry.Enabled,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		Environment:  cfg.Environment,
		ServiceName:  cfg.Telemetry.ServiceName,
		SampleRate:   cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logrus.WithError(err).Warn("Failed to shut down telemetry")
		}
	}()

	// Backends. The gateway must keep producing plans on an isolated
	// edge device, so a failed backend degrades instead of aborting.
	var db *database.PostgresDB
	var repo *database.PriceRepository
	if db, err = database.NewPostgresConnection(cfg.Database); err != nil {
		logrus.WithError(err).Warn("Postgres unavailable, running without persistence")
		db = nil
	} else {
		defer db.Close()
		repo = database.NewPriceRepository(db.Pool)
	}

	var redisClient *database.RedisClient
	var scheduleCache *cache.RedisScheduleCache
	if redisClient, err = database.NewRedisConnection(cfg.Redis); err != nil {
		logrus.WithError(err).Warn("Redis unavailable, running without response cache")
		redisClient = nil
	} else {
		defer redisClient.Close()
		scheduleCache = cache.NewRedisScheduleCache(redisClient.Client, cfg.Dispatch.ScheduleCacheTTLDuration())
	}

	ctx := context.Background()

	notifier := services.NewNotificationService(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
	alertManager := services.NewAlertManager(cfg.Site.ID, notifier)
	observer := telemetry.NewComputeObserver()

	reportService := services.NewReportService(ctx, cfg.Site.ID, statsProvider(repo), nil, notifier)

	dispatchService := services.NewDispatchService(ctx, cfg,
		planStore(repo), cacheOrNil(scheduleCache), observer, alertManager, reportService)
	if repo != nil {
		seedCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		if err := dispatchService.SeedFromStore(seedCtx, repo); err != nil {
			logrus.WithError(err).Warn("History seeding failed, starting cold")
		}
		cancel()
	}
	dispatchService.Start()
	defer dispatchService.Stop()

	analysisService := services.NewAnalysisService(dispatchService)

	var collectorService *services.CollectorService
	if cfg.Collector.Enabled {
		feed := spot.NewClient(&cfg.Feed)
		collectorService = services.NewCollectorService(ctx, cfg, feed,
			observationWriter(repo), dispatchService, alertManager)
		if err := collectorService.Start(); err != nil {
			logrus.WithError(err).Warn("Collector failed to start")
		} else {
			defer collectorService.Stop()
		}
	}

	var cleanupService *services.CleanupService
	if repo != nil {
		cleanupService = services.NewCleanupService(ctx, repo, cfg.Cleanup)
		cleanupService.Start()
		defer cleanupService.Stop()
	}

	performanceMonitor := services.NewPerformanceMonitor(ctx, alertManager)
	performanceMonitor.Start()
	defer performanceMonitor.Stop()

	// Late-bound: the report needs the dispatch service that needed the
	// report as its timing sink.
	reportService.BindDispatch(dispatchService)
	reportService.Start()
	defer reportService.Stop()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.TelemetryMiddleware())
	router.Use(otelgin.Middleware(telemetry.ServiceName))
	router.Use(middleware.CORSMiddleware(cfg.Server.AllowedOrigins))

	api.SetupRoutes(router, api.Dependencies{
		Config:        cfg,
		Version:       Version,
		DB:            db,
		Redis:         redisClient,
		ScheduleCache: scheduleCache,
		Dispatch:      dispatchService,
		Collector:     collectorService,
		Analysis:      analysisService,
		Alerts:        alertManager,
		Cleanup:       cleanupService,
		Monitor:       performanceMonitor,
		Observer:      observer,
		Auth:          middleware.NewAuthMiddleware(cfg.Security.JWTSecret, cfg.Security.APIKeyHash),
		Admin:         middleware.NewAdminMiddleware(cfg.Security.AdminAPIKey),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       15 * time.Second,
	}

	go func() {
		stdLogger.LogStartup(telemetry.ServiceName, Version, cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	stdLogger.LogShutdown(telemetry.ServiceName, "signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

// The nil checks below keep typed-nil interface values out of the
// services: a nil *PriceRepository wrapped in an interface is not nil.

func planStore(repo *database.PriceRepository) services.PlanStore {
	if repo == nil {
		return nil
	}
	return repo
}

func statsProvider(repo *database.PriceRepository) services.NodeStatsProvider {
	if repo == nil {
		return nil
	}
	return repo
}

func observationWriter(repo *database.PriceRepository) services.ObservationWriter {
	if repo == nil {
		return nil
	}
	return repo
}

func cacheOrNil(c *cache.RedisScheduleCache) services.ScheduleCache {
	if c == nil {
		return nil
	}
	return c
}
