package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/andesgrid/bess-dispatch-go/internal/models"
	"github.com/andesgrid/bess-dispatch-go/pkg/spot"
)

// ScheduleCache caches computed plans and forecasts per node.
type ScheduleCache interface {
	GetPlan(ctx context.Context, node string) (*models.DispatchPlan, bool)
	SetPlan(ctx context.Context, node string, plan *models.DispatchPlan)
	GetForecast(ctx context.Context, node string) ([]models.HourlyPriceForecast, bool)
	SetForecast(ctx context.Context, node string, forecasts []models.HourlyPriceForecast)
	Invalidate(ctx context.Context, node string) error
}

// ObservationWriter persists one observed spot price.
type ObservationWriter interface {
	InsertObservation(ctx context.Context, node string, hour int, price decimal.Decimal, source string, observedAt time.Time) (*models.PriceObservation, error)
}

// ObservationStore retrieves stored spot price observations.
type ObservationStore interface {
	RecentObservations(ctx context.Context, node string, limit int) ([]models.PriceObservation, error)
}

// PlanStore persists computed dispatch plans.
type PlanStore interface {
	StorePlan(ctx context.Context, plan *models.StoredDispatchPlan) error
}

// ObservationPruner deletes observations past the retention horizon.
type ObservationPruner interface {
	PruneObservations(ctx context.Context, olderThan time.Time) (int64, error)
}

// NodeStatsProvider aggregates stored observations for reporting.
type NodeStatsProvider interface {
	NodeStats(ctx context.Context, node string, since time.Time) (*models.NodePriceStats, error)
}

// PriceSource is the upstream spot feed.
type PriceSource interface {
	GetLatest(ctx context.Context, node string) (*spot.SpotPrice, error)
	HealthCheck(ctx context.Context) (*spot.HealthResponse, error)
}

// PriceRecorder accepts freshly observed prices for forecasting.
type PriceRecorder interface {
	RecordPrice(node string, hour int, price float64)
}

// Notifier delivers operator-facing messages.
type Notifier interface {
	Enabled() bool
	SendAlert(ctx context.Context, alert *models.Alert) error
	SendPlanSummary(ctx context.Context, plan *models.DispatchPlan) error
	SendReport(ctx context.Context, report string) error
}

// TimingRecorder collects operation latencies for percentile reporting.
type TimingRecorder interface {
	RecordTiming(operation string, duration time.Duration)
}
