package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.False(t, cfg.Enabled)
	assert.Equal(t, "localhost:4318", cfg.OTLPEndpoint)
	assert.Equal(t, ServiceName, cfg.ServiceName)
	assert.Equal(t, 1.0, cfg.SampleRate)
}

func TestInitTelemetry_Disabled(t *testing.T) {
	// Disabled telemetry still yields a working provider (stdout export)
	provider, err := InitTelemetry(TelemetryConfig{
		Enabled:     false,
		Environment: "test",
		SampleRate:  1.0,
	})
	require.NoError(t, err)
	require.NotNil(t, provider)

	assert.NoError(t, provider.Shutdown(context.Background()))
}

func TestInitTelemetry_InvalidSampleRate(t *testing.T) {
	provider, err := InitTelemetry(TelemetryConfig{
		Enabled:     false,
		Environment: "test",
		SampleRate:  -3,
	})
	require.NoError(t, err)
	assert.NoError(t, provider.Shutdown(context.Background()))
}

func TestProvider_Shutdown_Nil(t *testing.T) {
	var provider *Provider
	assert.NoError(t, provider.Shutdown(context.Background()))
}

func TestGetTracers(t *testing.T) {
	assert.NotNil(t, GetHTTPTracer())
	assert.NotNil(t, GetComputeTracer())
}

func TestComputeObserver_ForecastCounters(t *testing.T) {
	obs := NewComputeObserver()

	obs.ForecastComputed("Maitencillo", "model", false, 3*time.Millisecond)
	obs.ForecastComputed("Maitencillo", "model", true, time.Millisecond)
	obs.ForecastComputed("Quillota", "smoothing", false, 2*time.Millisecond)

	stats := obs.Stats()
	assert.Equal(t, int64(3), stats["forecasts_computed"])
	assert.Equal(t, int64(1), stats["forecast_cache_hits"])

	byMethod := stats["forecast_by_method"].(map[string]int64)
	assert.Equal(t, int64(2), byMethod["model"])
	assert.Equal(t, int64(1), byMethod["smoothing"])
	assert.Contains(t, stats, "last_forecast_at")
}

func TestComputeObserver_PlanCounters(t *testing.T) {
	obs := NewComputeObserver()

	obs.PlanComputed("Maitencillo", 5, 4, 91900, 2*time.Millisecond)
	obs.PlanComputed("Maitencillo", 6, 4, 88000, time.Millisecond)

	stats := obs.Stats()
	assert.Equal(t, int64(2), stats["plans_computed"])
	assert.Equal(t, 88000.0, stats["last_plan_net"])
	assert.Equal(t, int64(11), stats["charge_hours_total"])
	assert.Equal(t, int64(8), stats["discharge_hours_tot"])
}

func TestComputeObserver_EmptyStats(t *testing.T) {
	obs := NewComputeObserver()

	stats := obs.Stats()
	assert.Equal(t, int64(0), stats["forecasts_computed"])
	assert.NotContains(t, stats, "last_forecast_at")
	assert.NotContains(t, stats, "last_plan_at")
}

func TestComputeObserver_ConcurrentUse(t *testing.T) {
	obs := NewComputeObserver()

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 50; j++ {
				obs.ForecastComputed("Maitencillo", "smoothing", j%2 == 0, time.Microsecond)
				obs.PlanComputed("Maitencillo", 5, 4, 1000, time.Microsecond)
			}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}

	stats := obs.Stats()
	assert.Equal(t, int64(400), stats["forecasts_computed"])
	assert.Equal(t, int64(400), stats["plans_computed"])
}
