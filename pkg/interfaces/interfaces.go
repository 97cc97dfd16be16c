// Package interfaces holds the public contracts for embedding the
// forecast and dispatch core in other services.
package interfaces

import (
	"context"
	"time"

	"github.com/andesgrid/bess-dispatch-go/internal/models"
)

// ForecastEngine produces 24-hour spot price forecasts for one grid node.
// Implementations must be safe for concurrent use.
type ForecastEngine interface {
	// Forecast returns 24 hourly forecasts starting at (currentHour+1)
	// mod 24. A non-nil currentPrice is recorded as an observation first.
	Forecast(currentHour int, currentPrice *float64) []models.HourlyPriceForecast

	// Update feeds one observed price into the rolling history.
	Update(hour int, price float64)

	// InvalidateCache forces a recompute on the next Forecast call.
	InvalidateCache()

	// ModelLoaded reports whether the machine-learned path is active.
	ModelLoaded() bool
}

// DispatchPlanner converts a forecast plus the current state of charge
// into a dispatch plan. Compute never fails: degenerate inputs yield an
// empty or all-hold plan.
type DispatchPlanner interface {
	Compute(forecasts []models.HourlyPriceForecast, currentSoc float64) *models.DispatchPlan
}

// SpotFeed is the upstream price source contract.
type SpotFeed interface {
	// GetLatest returns the most recent price for a node.
	GetLatest(ctx context.Context, node string) (hour int, priceKwh float64, err error)
}

// PlanObserver receives side-channel notifications from the compute
// path. Implementations must be safe for concurrent use and must not
// block: they run inline with dispatch-critical computation.
type PlanObserver interface {
	ForecastComputed(node, method string, cacheHit bool, duration time.Duration)
	PlanComputed(node string, chargeHours, dischargeHours int, net float64, duration time.Duration)
}

// AlertSink receives fired alerts for escalation.
type AlertSink interface {
	Fire(level, name, message string) *models.Alert
}
