// Package dispatch converts a 24-hour price forecast plus the current
// state of charge into a bounded charge/discharge/hold plan. The
// scheduler never fails: degenerate inputs produce an empty or all-hold
// plan so the dispatch path always has a safe answer.
package dispatch

import (
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/andesgrid/bess-dispatch-go/internal/models"
)

// Defaults applied by NewScheduler for zero-valued Config fields. Sized
// for a 1 MWh containerized unit on the Chilean spot market.
const (
	DefaultCapacityKwh       = 1000.0
	DefaultMaxPowerKw        = 500.0
	DefaultMinSoc            = 10.0
	DefaultMaxSoc            = 95.0
	DefaultEfficiency        = 0.92
	DefaultMaxChargeHours    = 6
	DefaultMaxDischargeHours = 4
	DefaultMinConfidence     = 0.4
	DefaultMinSpread         = 30.0
)

// Capital assumptions for the annualized return estimate.
const (
	DefaultCapexUsd          = 720000.0
	DefaultUsdExchangeRate   = 950.0
	DefaultOperatingDaysYear = 350
)

// Observer receives a side-channel notification after each plan
// computation. Implementations must be safe for concurrent use.
type Observer interface {
	PlanComputed(node string, chargeHours, dischargeHours int, net float64, duration time.Duration)
}

type nopObserver struct{}

func (nopObserver) PlanComputed(string, int, int, float64, time.Duration) {}

// NopObserver returns an Observer that does nothing.
func NopObserver() Observer { return nopObserver{} }

// Config holds Scheduler construction parameters. Zero values select the
// documented defaults.
type Config struct {
	Node              string
	CapacityKwh       float64
	MaxPowerKw        float64
	MinSoc            float64
	MaxSoc            float64
	Efficiency        float64
	MaxChargeHours    int
	MaxDischargeHours int
	MinConfidence     float64
	MinSpread         float64
	Logger            *slog.Logger
	Observer          Observer
	Now               func() time.Time
}

// Scheduler plans battery dispatch for one grid node. All methods are
// safe for concurrent use; Compute touches no shared mutable state.
type Scheduler struct {
	node              string
	capacityKwh       float64
	maxPowerKw        float64
	minSoc            float64
	maxSoc            float64
	efficiency        float64
	maxChargeHours    int
	maxDischargeHours int
	minConfidence     float64
	minSpread         float64

	logger   *slog.Logger
	observer Observer
	now      func() time.Time
}

// NewScheduler creates a Scheduler, replacing out-of-range Config values
// with the defaults.
func NewScheduler(cfg Config) *Scheduler {
	if cfg.Node == "" {
		cfg.Node = "Maitencillo"
	}
	if cfg.CapacityKwh <= 0 {
		cfg.CapacityKwh = DefaultCapacityKwh
	}
	if cfg.MaxPowerKw <= 0 {
		cfg.MaxPowerKw = DefaultMaxPowerKw
	}
	if cfg.MaxSoc <= 0 || cfg.MaxSoc > 100 {
		cfg.MaxSoc = DefaultMaxSoc
	}
	if cfg.MinSoc <= 0 || cfg.MinSoc >= cfg.MaxSoc {
		cfg.MinSoc = DefaultMinSoc
	}
	if cfg.Efficiency <= 0 || cfg.Efficiency > 1 {
		cfg.Efficiency = DefaultEfficiency
	}
	if cfg.MaxChargeHours <= 0 {
		cfg.MaxChargeHours = DefaultMaxChargeHours
	}
	if cfg.MaxDischargeHours <= 0 {
		cfg.MaxDischargeHours = DefaultMaxDischargeHours
	}
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = DefaultMinConfidence
	}
	if cfg.MinSpread <= 0 {
		cfg.MinSpread = DefaultMinSpread
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Observer == nil {
		cfg.Observer = nopObserver{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Scheduler{
		node:              cfg.Node,
		capacityKwh:       cfg.CapacityKwh,
		maxPowerKw:        cfg.MaxPowerKw,
		minSoc:            cfg.MinSoc,
		maxSoc:            cfg.MaxSoc,
		efficiency:        cfg.Efficiency,
		maxChargeHours:    cfg.MaxChargeHours,
		maxDischargeHours: cfg.MaxDischargeHours,
		minConfidence:     cfg.MinConfidence,
		minSpread:         cfg.MinSpread,
		logger:            cfg.Logger,
		observer:          cfg.Observer,
		now:               cfg.Now,
	}
}

// Compute produces a dispatch plan for the given forecasts and starting
// state of charge. It never returns an error: empty input yields an
// empty plan and an untradeable spread yields an all-hold plan.
//
// All monetary fields are in the forecast's price unit times kWh,
// accumulated directly as power × price with no rescaling.
func (s *Scheduler) Compute(forecasts []models.HourlyPriceForecast, currentSoc float64) *models.DispatchPlan {
	start := time.Now()
	plan := s.compute(forecasts, currentSoc)
	s.observer.PlanComputed(s.node, plan.NChargeHours, plan.NDischargeHours, plan.ProjectedNet, time.Since(start))
	return plan
}

func (s *Scheduler) compute(forecasts []models.HourlyPriceForecast, currentSoc float64) *models.DispatchPlan {
	if len(forecasts) == 0 {
		s.logger.Warn("no forecasts available, returning empty plan", "node", s.node)
		return s.emptyPlan()
	}

	viable := make([]models.HourlyPriceForecast, 0, len(forecasts))
	var skippedHours []int
	for _, f := range forecasts {
		if f.Confidence >= s.minConfidence {
			viable = append(viable, f)
		} else {
			skippedHours = append(skippedHours, f.Hour)
		}
	}
	if len(skippedHours) > 0 {
		sort.Ints(skippedHours)
		s.logger.Info("low-confidence hours forced to hold",
			"node", s.node, "count", len(skippedHours), "hours", skippedHours)
	}

	spread := effectiveSpread(viable)
	if spread < s.minSpread {
		s.logger.Info("price spread below trading threshold, holding all hours",
			"node", s.node, "spread", models.Round1(spread), "min_spread", s.minSpread)
		return s.allHoldPlan(forecasts, currentSoc)
	}

	chargeSet, dischargeSet := s.pickCandidates(viable)

	sorted := sortByHour(forecasts)
	soc := currentSoc
	totalRevenue, totalCost := 0.0, 0.0
	nCharge, nDischarge := 0, 0
	slots := make([]models.DispatchSlot, 0, len(sorted))

	for _, f := range sorted {
		socBefore := soc
		switch {
		case chargeSet[f.Hour] && soc < s.maxSoc:
			energyNeeded := (s.maxSoc - soc) / 100 * s.capacityKwh
			power := math.Min(s.maxPowerKw, energyNeeded)
			soc = math.Min(s.maxSoc, soc+power/s.capacityKwh*100)
			cost := power * f.Price
			totalCost += cost
			nCharge++
			slots = append(slots, models.NewDispatchSlot(f, models.ActionCharge, power, socBefore, soc, -cost))

		case dischargeSet[f.Hour] && soc > s.minSoc:
			available := (soc - s.minSoc) / 100 * s.capacityKwh
			raw := math.Min(s.maxPowerKw, available)
			delivered := raw * s.efficiency
			soc = math.Max(s.minSoc, soc-raw/s.capacityKwh*100)
			revenue := delivered * f.Price
			totalRevenue += revenue
			nDischarge++
			slots = append(slots, models.NewDispatchSlot(f, models.ActionDischarge, -delivered, socBefore, soc, revenue))

		default:
			slots = append(slots, models.NewDispatchSlot(f, models.ActionHold, 0, socBefore, soc, 0))
		}
	}

	revenue := math.Round(totalRevenue)
	cost := math.Round(totalCost)
	plan := &models.DispatchPlan{
		Node:             s.node,
		Capacity:         s.capacityKwh,
		Efficiency:       s.efficiency,
		ProjectedRevenue: revenue,
		ProjectedCost:    cost,
		ProjectedNet:     revenue - cost,
		NChargeHours:     nCharge,
		NDischargeHours:  nDischarge,
		HourlySchedule:   slots,
		GeneratedAt:      s.now(),
	}

	s.logger.Info("dispatch plan computed",
		"node", s.node,
		"charge_hours", nCharge,
		"discharge_hours", nDischarge,
		"projected_net", plan.ProjectedNet,
		"avg_confidence", models.Round3(meanConfidence(viable)),
		"effective_spread", models.Round1(spread))
	return plan
}

// pickCandidates selects up to maxChargeHours of the cheapest viable
// hours priced below mean - 0.5 sigma, and up to maxDischargeHours of
// the priciest hours above mean + 0.5 sigma. An hour qualifying for both
// goes to discharge.
func (s *Scheduler) pickCandidates(viable []models.HourlyPriceForecast) (chargeSet, dischargeSet map[int]bool) {
	prices := make([]float64, 0, len(viable))
	for _, f := range viable {
		prices = append(prices, f.Price)
	}
	m := meanOf(prices)
	sigma := populationStdDev(prices, m)
	chargeThreshold := m - 0.5*sigma
	dischargeThreshold := m + 0.5*sigma

	asc := make([]models.HourlyPriceForecast, len(viable))
	copy(asc, viable)
	sort.SliceStable(asc, func(i, j int) bool { return asc[i].Price < asc[j].Price })

	chargeSet = make(map[int]bool)
	for i, f := range asc {
		if i >= s.maxChargeHours {
			break
		}
		if f.Price < chargeThreshold {
			chargeSet[f.Hour] = true
		}
	}

	dischargeSet = make(map[int]bool)
	for i := 0; i < len(asc) && i < s.maxDischargeHours; i++ {
		f := asc[len(asc)-1-i]
		if f.Price > dischargeThreshold {
			dischargeSet[f.Hour] = true
		}
	}

	for h := range dischargeSet {
		delete(chargeSet, h)
	}
	return chargeSet, dischargeSet
}

func (s *Scheduler) emptyPlan() *models.DispatchPlan {
	return &models.DispatchPlan{
		Node:           s.node,
		Capacity:       s.capacityKwh,
		Efficiency:     s.efficiency,
		HourlySchedule: []models.DispatchSlot{},
		GeneratedAt:    s.now(),
	}
}

// allHoldPlan preserves the given state of charge across every hour.
func (s *Scheduler) allHoldPlan(forecasts []models.HourlyPriceForecast, soc float64) *models.DispatchPlan {
	sorted := sortByHour(forecasts)
	slots := make([]models.DispatchSlot, 0, len(sorted))
	for _, f := range sorted {
		slots = append(slots, models.NewDispatchSlot(f, models.ActionHold, 0, soc, soc, 0))
	}
	return &models.DispatchPlan{
		Node:           s.node,
		Capacity:       s.capacityKwh,
		Efficiency:     s.efficiency,
		HourlySchedule: slots,
		GeneratedAt:    s.now(),
	}
}

// Node returns the grid node this scheduler serves.
func (s *Scheduler) Node() string { return s.node }

// Capacity returns the configured usable capacity in kWh.
func (s *Scheduler) Capacity() float64 { return s.capacityKwh }

// Efficiency returns the configured round-trip efficiency.
func (s *Scheduler) Efficiency() float64 { return s.efficiency }

// AnnualizedReturn estimates the yearly return on capital for a daily
// plan: net value per day times operating days, over the capital cost
// converted to the plan's currency.
func AnnualizedReturn(plan *models.DispatchPlan, capexUsd, exchangeRate float64, operatingDays int) float64 {
	if plan == nil {
		return 0
	}
	capex := capexUsd * exchangeRate
	if capex <= 0 {
		return 0
	}
	return plan.ProjectedNet * float64(operatingDays) / capex
}

func effectiveSpread(viable []models.HourlyPriceForecast) float64 {
	if len(viable) == 0 {
		return 0
	}
	maxHigh := viable[0].PriceHigh
	minLow := viable[0].PriceLow
	for _, f := range viable[1:] {
		if f.PriceHigh > maxHigh {
			maxHigh = f.PriceHigh
		}
		if f.PriceLow < minLow {
			minLow = f.PriceLow
		}
	}
	return maxHigh - minLow
}

func sortByHour(forecasts []models.HourlyPriceForecast) []models.HourlyPriceForecast {
	out := make([]models.HourlyPriceForecast, len(forecasts))
	copy(out, forecasts)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Hour < out[j].Hour })
	return out
}

func meanConfidence(forecasts []models.HourlyPriceForecast) float64 {
	if len(forecasts) == 0 {
		return 0
	}
	sum := 0.0
	for _, f := range forecasts {
		sum += f.Confidence
	}
	return sum / float64(len(forecasts))
}

func meanOf(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// populationStdDev is the n denominator standard deviation, matching how
// the candidate thresholds are calibrated.
func populationStdDev(vals []float64, m float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(vals)))
}
