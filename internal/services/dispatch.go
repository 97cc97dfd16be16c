package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/andesgrid/bess-dispatch-go/internal/config"
	"github.com/andesgrid/bess-dispatch-go/internal/dispatch"
	"github.com/andesgrid/bess-dispatch-go/internal/forecast"
	"github.com/andesgrid/bess-dispatch-go/internal/models"
)

const defaultSoc = 50.0

// PlanObserver receives notifications for both forecast and plan
// computations.
type PlanObserver interface {
	forecast.Observer
	dispatch.Observer
}

type nodeState struct {
	predictor *forecast.Predictor
	scheduler *dispatch.Scheduler
	soc       float64
	lastPrice float64
	hasPrice  bool
}

// DispatchService owns one predictor/scheduler pair per configured grid
// node and drives the recompute loop. It is the write path for observed
// prices and the read path for forecasts and plans.
type DispatchService struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	config  *config.Config
	repo    PlanStore
	cache   ScheduleCache
	alerts  *AlertManager
	timings TimingRecorder

	mu    sync.RWMutex
	nodes map[string]*nodeState

	invalidationDelta float64
	recomputeInterval time.Duration
	startedAt         time.Time
}

// NewDispatchService builds the per-node compute cores from configuration
// and loads forecast model artifacts. repo, scheduleCache, observer, and
// timings may be nil.
func NewDispatchService(ctx context.Context, cfg *config.Config, repo PlanStore, scheduleCache ScheduleCache, observer PlanObserver, alerts *AlertManager, timings TimingRecorder) *DispatchService {
	serviceCtx, cancel := context.WithCancel(ctx)

	recompute := 15 * time.Minute
	if cfg.Dispatch.RecomputeInterval != "" {
		if d, err := time.ParseDuration(cfg.Dispatch.RecomputeInterval); err == nil && d > 0 {
			recompute = d
		}
	}

	ds := &DispatchService{
		ctx:               serviceCtx,
		cancel:            cancel,
		config:            cfg,
		repo:              repo,
		cache:             scheduleCache,
		alerts:            alerts,
		timings:           timings,
		nodes:             make(map[string]*nodeState),
		invalidationDelta: cfg.Forecast.InvalidationDelta,
		recomputeInterval: recompute,
		startedAt:         time.Now(),
	}

	var forecastObserver forecast.Observer = forecast.NopObserver()
	var planObserver dispatch.Observer = dispatch.NopObserver()
	if observer != nil {
		forecastObserver = observer
		planObserver = observer
	}

	for _, node := range cfg.Site.Nodes {
		predictor := forecast.NewPredictor(forecast.Config{
			Node:              node,
			ModelPath:         cfg.Forecast.ModelPath,
			ModelP10Path:      cfg.Forecast.ModelP10Path,
			ModelP90Path:      cfg.Forecast.ModelP90Path,
			HistoryWindow:     cfg.Forecast.HistoryWindow,
			Alpha:             cfg.Forecast.SmoothingAlpha,
			CacheTTL:          cfg.Forecast.CacheTTLDuration(),
			InvalidationDelta: cfg.Forecast.InvalidationDelta,
			Observer:          forecastObserver,
		})
		predictor.Load()

		scheduler := dispatch.NewScheduler(dispatch.Config{
			Node:              node,
			CapacityKwh:       cfg.Dispatch.CapacityKwh,
			MaxPowerKw:        cfg.Dispatch.MaxPowerKw,
			MinSoc:            cfg.Dispatch.MinSocPct,
			MaxSoc:            cfg.Dispatch.MaxSocPct,
			Efficiency:        cfg.Dispatch.Efficiency,
			MaxChargeHours:    cfg.Dispatch.MaxChargeHours,
			MaxDischargeHours: cfg.Dispatch.MaxDischargeHours,
			MinConfidence:     cfg.Dispatch.MinConfidence,
			MinSpread:         cfg.Dispatch.MinSpread,
			Observer:          planObserver,
		})

		ds.nodes[node] = &nodeState{
			predictor: predictor,
			scheduler: scheduler,
			soc:       defaultSoc,
		}
	}

	return ds
}

// SeedFromStore loads recent observations for every node into the rolling
// forecast history, oldest first.
func (ds *DispatchService) SeedFromStore(ctx context.Context, store ObservationStore) error {
	if store == nil {
		return nil
	}

	for node, state := range ds.snapshot() {
		observations, err := store.RecentObservations(ctx, node, ds.config.Forecast.HistoryWindow)
		if err != nil {
			return fmt.Errorf("failed to seed history for node %s: %w", node, err)
		}
		for _, obs := range observations {
			price, _ := obs.Price.Float64()
			state.predictor.Update(obs.Hour, price)
		}
		logrus.WithFields(logrus.Fields{
			"node": node,
			"rows": len(observations),
		}).Info("Seeded forecast history from store")
	}
	return nil
}

// Start launches the periodic plan recompute loop.
func (ds *DispatchService) Start() {
	ds.wg.Add(1)
	go ds.recomputeLoop()
	logrus.WithField("interval", ds.recomputeInterval).Info("Dispatch recompute loop started")
}

// Stop terminates background work and waits for it to finish.
func (ds *DispatchService) Stop() {
	ds.cancel()
	ds.wg.Wait()
	logrus.Info("Dispatch service stopped")
}

func (ds *DispatchService) recomputeLoop() {
	defer ds.wg.Done()

	ticker := time.NewTicker(ds.recomputeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ds.ctx.Done():
			return
		case <-ticker.C:
			ds.recomputeAll()
		}
	}
}

func (ds *DispatchService) recomputeAll() {
	for node := range ds.snapshot() {
		if _, _, err := ds.ComputePlan(ds.ctx, node, models.ScheduleRequest{Node: node}); err != nil {
			logrus.WithError(err).WithField("node", node).Warn("Scheduled plan recompute failed")
		}
	}
}

// RecordPrice feeds one observed price into the node's forecast history.
// A move larger than the invalidation delta also drops the cached plan
// and forecast for the node.
func (ds *DispatchService) RecordPrice(node string, hour int, price float64) {
	state := ds.node(node)
	if state == nil {
		return
	}

	state.predictor.Update(hour, price)

	ds.mu.Lock()
	jumped := state.hasPrice && math.Abs(price-state.lastPrice) >= ds.invalidationDelta && ds.invalidationDelta > 0
	state.lastPrice = price
	state.hasPrice = true
	ds.mu.Unlock()

	if jumped && ds.cache != nil {
		if err := ds.cache.Invalidate(context.Background(), node); err != nil {
			logrus.WithError(err).WithField("node", node).Warn("Failed to invalidate schedule cache")
		}
		logrus.WithFields(logrus.Fields{
			"node":  node,
			"price": price,
		}).Info("Price jump invalidated cached schedule")
	}
}

// Forecast returns the 24-hour forecast for a node. Requests without an
// explicit hour or price override are served from the shared cache when
// possible.
func (ds *DispatchService) Forecast(ctx context.Context, node string, hour *int, price *float64) ([]models.HourlyPriceForecast, bool, error) {
	state := ds.node(node)
	if state == nil {
		return nil, false, fmt.Errorf("unknown node: %s", node)
	}

	overridden := hour != nil || price != nil
	if !overridden && ds.cache != nil {
		if cached, ok := ds.cache.GetForecast(ctx, node); ok {
			return cached, true, nil
		}
	}

	currentHour := time.Now().Hour()
	if hour != nil {
		currentHour = *hour
	}

	start := time.Now()
	forecasts := state.predictor.Forecast(currentHour, price)
	if ds.timings != nil {
		ds.timings.RecordTiming("forecast", time.Since(start))
	}

	if len(forecasts) > 0 && forecasts[0].Method == models.MethodDegraded && ds.alerts != nil {
		ds.alerts.Fire(models.AlertLevelWarning, "forecast_degraded",
			fmt.Sprintf("Forecast for %s fell back to degraded mode", node))
	}

	if !overridden && ds.cache != nil {
		ds.cache.SetForecast(ctx, node, forecasts)
	}
	return forecasts, false, nil
}

// ComputePlan produces a dispatch plan for a node. Requests with default
// sizing are cache-eligible; capacity or power overrides always compute
// fresh against a one-off scheduler.
func (ds *DispatchService) ComputePlan(ctx context.Context, node string, req models.ScheduleRequest) (*models.DispatchPlan, bool, error) {
	state := ds.node(node)
	if state == nil {
		return nil, false, fmt.Errorf("unknown node: %s", node)
	}

	overridden := req.CapacityKwh > 0 || req.MaxPowerKw > 0
	if !overridden && ds.cache != nil {
		if cached, ok := ds.cache.GetPlan(ctx, node); ok {
			return cached, true, nil
		}
	}

	forecasts, _, err := ds.Forecast(ctx, node, nil, nil)
	if err != nil {
		return nil, false, err
	}

	soc := ds.Soc(node)
	if req.Soc > 0 {
		soc = req.Soc
	}

	scheduler := state.scheduler
	if overridden {
		cfg := ds.config.Dispatch
		scheduler = dispatch.NewScheduler(dispatch.Config{
			Node:              node,
			CapacityKwh:       firstPositive(req.CapacityKwh, cfg.CapacityKwh),
			MaxPowerKw:        firstPositive(req.MaxPowerKw, cfg.MaxPowerKw),
			MinSoc:            cfg.MinSocPct,
			MaxSoc:            cfg.MaxSocPct,
			Efficiency:        cfg.Efficiency,
			MaxChargeHours:    cfg.MaxChargeHours,
			MaxDischargeHours: cfg.MaxDischargeHours,
			MinConfidence:     cfg.MinConfidence,
			MinSpread:         cfg.MinSpread,
		})
	}

	start := time.Now()
	plan := scheduler.Compute(forecasts, soc)
	if ds.timings != nil {
		ds.timings.RecordTiming("plan_compute", time.Since(start))
	}

	if plan.IsAllHold() && len(plan.HourlySchedule) > 0 && ds.alerts != nil {
		ds.alerts.Fire(models.AlertLevelInfo, "plan_all_hold",
			fmt.Sprintf("Dispatch plan for %s holds all 24 hours", node))
	}

	if !overridden {
		if ds.cache != nil {
			ds.cache.SetPlan(ctx, node, plan)
		}
		if ds.repo != nil {
			if err := ds.repo.StorePlan(ctx, storedPlan(plan)); err != nil {
				logrus.WithError(err).WithField("node", node).Warn("Failed to persist dispatch plan")
			}
		}
	}

	return plan, false, nil
}

// AnnualizedReturn computes the annualized return on capex implied by a
// plan, using the configured site economics.
func (ds *DispatchService) AnnualizedReturn(plan *models.DispatchPlan) float64 {
	econ := ds.config.Economics
	return dispatch.AnnualizedReturn(plan, econ.CapexUSD, econ.USDRate, econ.OperatingDays)
}

// UpdateSoc records the measured state of charge for a node.
func (ds *DispatchService) UpdateSoc(node string, soc float64) {
	state := ds.node(node)
	if state == nil {
		return
	}
	ds.mu.Lock()
	state.soc = soc
	ds.mu.Unlock()
}

// Soc returns the last known state of charge for a node.
func (ds *DispatchService) Soc(node string) float64 {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	if state, ok := ds.nodes[node]; ok {
		return state.soc
	}
	return defaultSoc
}

// RecentPrices returns the newest n observed prices for a node, oldest
// first.
func (ds *DispatchService) RecentPrices(node string, n int) ([]float64, error) {
	state := ds.node(node)
	if state == nil {
		return nil, fmt.Errorf("unknown node: %s", node)
	}
	return state.predictor.RecentPrices(n), nil
}

// Nodes lists the configured grid nodes.
func (ds *DispatchService) Nodes() []string {
	nodes := make([]string, 0, len(ds.nodes))
	for _, node := range ds.config.Site.Nodes {
		if _, ok := ds.nodes[node]; ok {
			nodes = append(nodes, node)
		}
	}
	return nodes
}

// HasNode reports whether a node is configured.
func (ds *DispatchService) HasNode(node string) bool {
	return ds.node(node) != nil
}

// Predictor exposes the forecast core for a node.
func (ds *DispatchService) Predictor(node string) *forecast.Predictor {
	if state := ds.node(node); state != nil {
		return state.predictor
	}
	return nil
}

// Uptime reports how long the service has been running.
func (ds *DispatchService) Uptime() time.Duration {
	return time.Since(ds.startedAt)
}

// Status summarizes the forecast core state for the status endpoint.
// Values describe the first node unless one is named.
func (ds *DispatchService) Status(node string) map[string]interface{} {
	if node == "" {
		nodes := ds.Nodes()
		if len(nodes) == 0 {
			return map[string]interface{}{}
		}
		node = nodes[0]
	}

	state := ds.node(node)
	if state == nil {
		return map[string]interface{}{}
	}

	return map[string]interface{}{
		"node":              node,
		"model_loaded":      state.predictor.ModelLoaded(),
		"quantiles_loaded":  state.predictor.QuantilesLoaded(),
		"history_size":      state.predictor.HistorySize(),
		"cache_age_seconds": state.predictor.CacheAge().Seconds(),
		"soc":               ds.Soc(node),
	}
}

func (ds *DispatchService) node(name string) *nodeState {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	return ds.nodes[name]
}

func (ds *DispatchService) snapshot() map[string]*nodeState {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	out := make(map[string]*nodeState, len(ds.nodes))
	for node, state := range ds.nodes {
		out[node] = state
	}
	return out
}

func storedPlan(plan *models.DispatchPlan) *models.StoredDispatchPlan {
	schedule, err := json.Marshal(plan.HourlySchedule)
	if err != nil {
		schedule = []byte("[]")
	}
	return &models.StoredDispatchPlan{
		Node:             plan.Node,
		CapacityKwh:      decimal.NewFromFloat(plan.Capacity),
		Efficiency:       decimal.NewFromFloat(plan.Efficiency),
		ProjectedRevenue: decimal.NewFromFloat(plan.ProjectedRevenue),
		ProjectedCost:    decimal.NewFromFloat(plan.ProjectedCost),
		ProjectedNet:     decimal.NewFromFloat(plan.ProjectedNet),
		NChargeHours:     plan.NChargeHours,
		NDischargeHours:  plan.NDischargeHours,
		Schedule:         schedule,
		GeneratedAt:      plan.GeneratedAt,
	}
}

func firstPositive(values ...float64) float64 {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
