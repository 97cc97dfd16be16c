package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ComputeObserver satisfies the forecast and dispatch observer contracts:
// it records a span per computation and keeps rolling counters the status
// endpoint exposes. Safe for concurrent use.
type ComputeObserver struct {
	mu sync.Mutex

	forecastCount    int64
	forecastCacheHit int64
	forecastByMethod map[string]int64
	lastForecastAt   time.Time

	planCount      int64
	lastPlanNet    float64
	lastPlanAt     time.Time
	totalChargeH   int64
	totalDischgH   int64
	forecastTimeMs int64
	planTimeMs     int64
}

// NewComputeObserver creates an observer with zeroed counters.
func NewComputeObserver() *ComputeObserver {
	return &ComputeObserver{
		forecastByMethod: make(map[string]int64),
	}
}

// ForecastComputed records one forecast computation.
func (o *ComputeObserver) ForecastComputed(node, method string, cacheHit bool, duration time.Duration) {
	o.mu.Lock()
	o.forecastCount++
	if cacheHit {
		o.forecastCacheHit++
	}
	o.forecastByMethod[method]++
	o.forecastTimeMs += duration.Milliseconds()
	o.lastForecastAt = time.Now()
	o.mu.Unlock()

	_, span := GetComputeTracer().Start(context.Background(), "forecast.computed",
		trace.WithAttributes(
			attribute.String("node", node),
			attribute.String("method", method),
			attribute.Bool("cache_hit", cacheHit),
			attribute.Int64("duration_ms", duration.Milliseconds()),
		))
	span.End()
}

// PlanComputed records one dispatch plan computation.
func (o *ComputeObserver) PlanComputed(node string, chargeHours, dischargeHours int, net float64, duration time.Duration) {
	o.mu.Lock()
	o.planCount++
	o.totalChargeH += int64(chargeHours)
	o.totalDischgH += int64(dischargeHours)
	o.lastPlanNet = net
	o.planTimeMs += duration.Milliseconds()
	o.lastPlanAt = time.Now()
	o.mu.Unlock()

	_, span := GetComputeTracer().Start(context.Background(), "plan.computed",
		trace.WithAttributes(
			attribute.String("node", node),
			attribute.Int("charge_hours", chargeHours),
			attribute.Int("discharge_hours", dischargeHours),
			attribute.Float64("projected_net", net),
			attribute.Int64("duration_ms", duration.Milliseconds()),
		))
	span.End()
}

// Stats returns a snapshot of the counters for the status endpoint.
func (o *ComputeObserver) Stats() map[string]interface{} {
	o.mu.Lock()
	defer o.mu.Unlock()

	byMethod := make(map[string]int64, len(o.forecastByMethod))
	for k, v := range o.forecastByMethod {
		byMethod[k] = v
	}

	stats := map[string]interface{}{
		"forecasts_computed":  o.forecastCount,
		"forecast_cache_hits": o.forecastCacheHit,
		"forecast_by_method":  byMethod,
		"plans_computed":      o.planCount,
		"last_plan_net":       o.lastPlanNet,
		"charge_hours_total":  o.totalChargeH,
		"discharge_hours_tot": o.totalDischgH,
	}
	if !o.lastForecastAt.IsZero() {
		stats["last_forecast_at"] = o.lastForecastAt
	}
	if !o.lastPlanAt.IsZero() {
		stats["last_plan_at"] = o.lastPlanAt
	}
	return stats
}
