package api

import (
	"github.com/gin-gonic/gin"

	"github.com/andesgrid/bess-dispatch-go/internal/api/handlers"
	"github.com/andesgrid/bess-dispatch-go/internal/cache"
	"github.com/andesgrid/bess-dispatch-go/internal/config"
	"github.com/andesgrid/bess-dispatch-go/internal/database"
	"github.com/andesgrid/bess-dispatch-go/internal/middleware"
	"github.com/andesgrid/bess-dispatch-go/internal/services"
	"github.com/andesgrid/bess-dispatch-go/internal/telemetry"
)

// Dependencies carries everything the route tree needs. Optional fields
// may be nil; the affected endpoints degrade instead of panicking.
type Dependencies struct {
	Config        *config.Config
	Version       string
	DB            *database.PostgresDB
	Redis         *database.RedisClient
	ScheduleCache *cache.RedisScheduleCache
	Dispatch      *services.DispatchService
	Collector     *services.CollectorService
	Analysis      *services.AnalysisService
	Alerts        *services.AlertManager
	Cleanup       *services.CleanupService
	Monitor       *services.PerformanceMonitor
	Observer      *telemetry.ComputeObserver
	Auth          *middleware.AuthMiddleware
	Admin         *middleware.AdminMiddleware
}

// SetupRoutes registers the full route tree on the router.
func SetupRoutes(router *gin.Engine, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler(deps.DB, deps.Redis, deps.Version)
	scheduleHandler := handlers.NewScheduleHandler(deps.Dispatch)
	forecastHandler := handlers.NewForecastHandler(deps.Dispatch)
	statusHandler := handlers.NewStatusHandler(deps.Config, deps.Dispatch, deps.Collector, deps.Monitor, deps.Version)
	analysisHandler := handlers.NewAnalysisHandler(deps.Analysis, deps.Dispatch)
	alertsHandler := handlers.NewAlertsHandler(deps.Alerts)
	authHandler := handlers.NewAuthHandler(deps.Auth, deps.Config.Site.ID, deps.Config.Security.JWTExpiry)
	adminHandler := handlers.NewAdminHandler(deps.ScheduleCache, deps.Cleanup, deps.Dispatch, deps.Observer)

	// Probes live outside the versioned tree so orchestrators can reach
	// them without auth.
	router.GET("/health", healthHandler.Health)
	router.GET("/health/ready", healthHandler.Ready)
	router.GET("/health/live", healthHandler.Live)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthHandler.Health)
		v1.GET("/health/ready", healthHandler.Ready)
		v1.GET("/health/live", healthHandler.Live)
		v1.GET("/version", statusHandler.GetVersion)
		v1.POST("/auth/token", authHandler.IssueToken)

		protected := v1.Group("")
		protected.Use(deps.Auth.RequireAuth())
		{
			protected.GET("/schedule", scheduleHandler.GetSchedule)
			protected.POST("/soc", scheduleHandler.UpdateSoc)
			protected.GET("/forecast", forecastHandler.GetForecast)
			protected.GET("/status", statusHandler.GetStatus)
			protected.GET("/analysis", analysisHandler.GetAnalysis)

			alerts := protected.Group("/alerts")
			{
				alerts.GET("", alertsHandler.GetAlerts)
				alerts.POST("/:name/resolve", alertsHandler.ResolveAlert)
				alerts.POST("/resolve-all", alertsHandler.ResolveAllAlerts)
			}
		}

		admin := v1.Group("/admin")
		admin.Use(deps.Admin.RequireAdminAuth())
		{
			admin.POST("/cache/invalidate", adminHandler.InvalidateCache)
			admin.POST("/history/prune", adminHandler.PruneHistory)
			admin.GET("/stats", adminHandler.GetStats)
		}
	}
}
