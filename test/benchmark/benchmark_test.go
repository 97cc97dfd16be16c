package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/andesgrid/bess-dispatch-go/internal/api"
	"github.com/andesgrid/bess-dispatch-go/internal/config"
	"github.com/andesgrid/bess-dispatch-go/internal/dispatch"
	"github.com/andesgrid/bess-dispatch-go/internal/forecast"
	"github.com/andesgrid/bess-dispatch-go/internal/middleware"
	"github.com/andesgrid/bess-dispatch-go/internal/services"
)

func benchConfig() *config.Config {
	return &config.Config{
		Environment: "test",
		Site:        config.SiteConfig{ID: "edge-001", Nodes: []string{"Maitencillo"}},
		Forecast: config.ForecastConfig{
			HistoryWindow:     192,
			SmoothingAlpha:    0.3,
			CacheTTL:          "30m",
			InvalidationDelta: 5.0,
		},
		Dispatch: config.DispatchConfig{
			CapacityKwh:       1000,
			MaxPowerKw:        500,
			MinSocPct:         10,
			MaxSocPct:         95,
			Efficiency:        0.92,
			MaxChargeHours:    6,
			MaxDischargeHours: 4,
			MinConfidence:     0.4,
			MinSpread:         30,
			RecomputeInterval: "1h",
		},
		Security: config.SecurityConfig{JWTSecret: "bench-secret"},
	}
}

func seededPredictor() *forecast.Predictor {
	p := forecast.NewPredictor(forecast.Config{Node: "Maitencillo", HistoryWindow: 192})
	shape := []float64{38, 36, 35, 34, 34, 36, 42, 55, 62, 58, 52, 48,
		45, 44, 46, 50, 58, 72, 85, 90, 80, 65, 50, 42}
	for day := 0; day < 4; day++ {
		for hour, price := range shape {
			p.Update(hour, price)
		}
	}
	return p
}

// BenchmarkForecast measures a full 24-hour forecast computation with
// the cache bypassed.
func BenchmarkForecast(b *testing.B) {
	p := seededPredictor()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p.InvalidateCache()
		p.Forecast(12, nil)
	}
}

// BenchmarkForecastCached measures the predictor's internal cache hit
// path.
func BenchmarkForecastCached(b *testing.B) {
	p := seededPredictor()
	p.Forecast(12, nil)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p.Forecast(12, nil)
	}
}

// BenchmarkPlanCompute measures scheduler plan construction over a
// fixed forecast.
func BenchmarkPlanCompute(b *testing.B) {
	p := seededPredictor()
	forecasts := p.Forecast(12, nil)
	scheduler := dispatch.NewScheduler(dispatch.Config{
		Node:        "Maitencillo",
		CapacityKwh: 1000,
		MaxPowerKw:  500,
	})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		scheduler.Compute(forecasts, 50)
	}
}

// BenchmarkScheduleEndpoint measures the full request path without a
// shared cache, so every request recomputes forecast and plan.
func BenchmarkScheduleEndpoint(b *testing.B) {
	gin.SetMode(gin.ReleaseMode)
	cfg := benchConfig()

	ds := services.NewDispatchService(context.Background(), cfg, nil, nil, nil, nil, nil)
	defer ds.Stop()
	shape := []float64{38, 36, 35, 34, 34, 36, 42, 55, 62, 58, 52, 48,
		45, 44, 46, 50, 58, 72, 85, 90, 80, 65, 50, 42}
	for hour, price := range shape {
		ds.RecordPrice("Maitencillo", hour, price)
	}

	router := gin.New()
	api.SetupRoutes(router, api.Dependencies{
		Config:   cfg,
		Version:  "bench",
		Dispatch: ds,
		Analysis: services.NewAnalysisService(ds),
		Alerts:   services.NewAlertManager(cfg.Site.ID, nil),
		Auth:     middleware.NewAuthMiddleware(cfg.Security.JWTSecret, ""),
		Admin:    middleware.NewAdminMiddleware(""),
	})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/schedule", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			b.Fatalf("unexpected status %d", w.Code)
		}
	}
}

// BenchmarkAnnualizedReturn measures the economics projection.
func BenchmarkAnnualizedReturn(b *testing.B) {
	p := seededPredictor()
	forecasts := p.Forecast(12, nil)
	scheduler := dispatch.NewScheduler(dispatch.Config{Node: "Maitencillo"})
	plan := scheduler.Compute(forecasts, 50)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		dispatch.AnnualizedReturn(plan, 720000, 950, 350)
	}
}
