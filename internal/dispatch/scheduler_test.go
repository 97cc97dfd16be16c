package dispatch

import (
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andesgrid/bess-dispatch-go/internal/forecast"
	"github.com/andesgrid/bess-dispatch-go/internal/models"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type planCall struct {
	node           string
	chargeHours    int
	dischargeHours int
	net            float64
}

type spyObserver struct {
	mu    sync.Mutex
	calls []planCall
}

func (s *spyObserver) PlanComputed(node string, chargeHours, dischargeHours int, net float64, _ time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, planCall{node, chargeHours, dischargeHours, net})
}

func newTestScheduler(cfg Config) *Scheduler {
	if cfg.Logger == nil {
		cfg.Logger = discardLogger()
	}
	return NewScheduler(cfg)
}

// day builds a 24-slot forecast with explicit +-10 uncertainty bands.
func day(prices []float64, confidence float64) []models.HourlyPriceForecast {
	out := make([]models.HourlyPriceForecast, 0, len(prices))
	for h, p := range prices {
		out = append(out, models.NewHourlyPriceForecast(
			h, p, confidence, models.MethodModel, p-10, p+10))
	}
	return out
}

// flatDay builds a uniform-price forecast with default bands.
func flatDay(price, confidence float64) []models.HourlyPriceForecast {
	out := make([]models.HourlyPriceForecast, 0, 24)
	for h := 0; h < 24; h++ {
		out = append(out, models.NewHourlyPriceForecast(
			h, price, confidence, models.MethodSmoothing, 0, 0))
	}
	return out
}

// tradingDay has an evening price spike and cheap late-night hours, so a
// plan discharges early and recharges at the end of the day.
func tradingDay() []models.HourlyPriceForecast {
	prices := make([]float64, 24)
	for h := range prices {
		prices[h] = 40
	}
	prices[19] = 75
	prices[20] = 80
	prices[21] = 78
	prices[22] = 18
	prices[23] = 20
	return day(prices, 0.9)
}

func assertPlanInvariants(t *testing.T, plan *models.DispatchPlan, minSoc, maxSoc float64, maxCharge, maxDischarge int) {
	t.Helper()
	nCharge, nDischarge := 0, 0
	for i, slot := range plan.HourlySchedule {
		assert.GreaterOrEqual(t, slot.SocAfter, minSoc)
		assert.LessOrEqual(t, slot.SocAfter, maxSoc)
		if i > 0 {
			assert.Equal(t, plan.HourlySchedule[i-1].SocAfter, slot.SocBefore,
				"state of charge must carry across hours")
		}
		switch slot.Action {
		case models.ActionCharge:
			nCharge++
			assert.Positive(t, slot.Power)
			assert.LessOrEqual(t, slot.Revenue, 0.0)
		case models.ActionDischarge:
			nDischarge++
			assert.Negative(t, slot.Power)
			assert.GreaterOrEqual(t, slot.Revenue, 0.0)
		case models.ActionHold:
			assert.Zero(t, slot.Power)
			assert.Zero(t, slot.Revenue)
		default:
			t.Fatalf("unknown action %q", slot.Action)
		}
	}
	assert.Equal(t, nCharge, plan.NChargeHours, "charge count must reflect realized slots")
	assert.Equal(t, nDischarge, plan.NDischargeHours, "discharge count must reflect realized slots")
	assert.LessOrEqual(t, plan.NChargeHours, maxCharge)
	assert.LessOrEqual(t, plan.NDischargeHours, maxDischarge)
	assert.Equal(t, plan.ProjectedNet, plan.ProjectedRevenue-plan.ProjectedCost)
}

func TestNewScheduler_Defaults(t *testing.T) {
	s := newTestScheduler(Config{})

	assert.Equal(t, "Maitencillo", s.Node())
	assert.Equal(t, DefaultCapacityKwh, s.Capacity())
	assert.Equal(t, DefaultEfficiency, s.Efficiency())
	assert.Equal(t, DefaultMaxPowerKw, s.maxPowerKw)
	assert.Equal(t, DefaultMinSoc, s.minSoc)
	assert.Equal(t, DefaultMaxSoc, s.maxSoc)
	assert.Equal(t, DefaultMaxChargeHours, s.maxChargeHours)
	assert.Equal(t, DefaultMaxDischargeHours, s.maxDischargeHours)
	assert.Equal(t, DefaultMinConfidence, s.minConfidence)
	assert.Equal(t, DefaultMinSpread, s.minSpread)
}

func TestNewScheduler_ReplacesInvalidValues(t *testing.T) {
	s := newTestScheduler(Config{
		Efficiency: 1.5,
		MinSoc:     50,
		MaxSoc:     40,
	})

	assert.Equal(t, DefaultEfficiency, s.efficiency)
	assert.Equal(t, DefaultMaxSoc, s.maxSoc)
	assert.Equal(t, DefaultMinSoc, s.minSoc)
}

func TestScheduler_Compute_EmptyForecasts(t *testing.T) {
	s := newTestScheduler(Config{})

	plan := s.Compute(nil, 50)

	require.NotNil(t, plan)
	assert.Empty(t, plan.HourlySchedule)
	assert.Zero(t, plan.ProjectedRevenue)
	assert.Zero(t, plan.ProjectedCost)
	assert.Zero(t, plan.ProjectedNet)
	assert.Zero(t, plan.NChargeHours)
	assert.Zero(t, plan.NDischargeHours)
	assert.Equal(t, "Maitencillo", plan.Node)
	assert.False(t, plan.GeneratedAt.IsZero())
}

func TestScheduler_Compute_FlatPricesHoldsEverything(t *testing.T) {
	s := newTestScheduler(Config{})

	plan := s.Compute(flatDay(40, 0.9), 55)

	require.Len(t, plan.HourlySchedule, 24)
	assert.True(t, plan.IsAllHold())
	assert.Zero(t, plan.NDischargeHours)
	assert.LessOrEqual(t, plan.ProjectedNet, 0.0)
	for _, slot := range plan.HourlySchedule {
		assert.Equal(t, models.ActionHold, slot.Action)
		assert.Equal(t, 55.0, slot.SocBefore)
		assert.Equal(t, 55.0, slot.SocAfter, "an untradeable spread must preserve the state of charge")
	}
}

func TestScheduler_Compute_LowConfidenceForcedToHold(t *testing.T) {
	s := newTestScheduler(Config{})
	forecasts := tradingDay()
	// knock the most attractive discharge hour below the threshold
	forecasts[20] = models.NewHourlyPriceForecast(20, 80, 0.2, models.MethodSmoothing, 70, 90)

	plan := s.Compute(forecasts, 60)

	require.Len(t, plan.HourlySchedule, 24)
	assert.Equal(t, models.ActionHold, plan.HourlySchedule[20].Action,
		"a low-confidence hour must never trade, whatever its price")
}

func TestScheduler_Compute_TradingDay(t *testing.T) {
	s := newTestScheduler(Config{})

	plan := s.Compute(tradingDay(), 60)

	require.Len(t, plan.HourlySchedule, 24)
	assertPlanInvariants(t, plan, 10, 95, 6, 4)

	// One full-power discharge empties the battery to the floor, then the
	// two cheap late hours refill it.
	assert.Equal(t, 2, plan.NChargeHours)
	assert.Equal(t, 1, plan.NDischargeHours)
	assert.Equal(t, 34500.0, plan.ProjectedRevenue)
	assert.Equal(t, 16000.0, plan.ProjectedCost)
	assert.Equal(t, 18500.0, plan.ProjectedNet)

	discharge := plan.HourlySchedule[19]
	assert.Equal(t, models.ActionDischarge, discharge.Action)
	assert.Equal(t, -460.0, discharge.Power)
	assert.Equal(t, 60.0, discharge.SocBefore)
	assert.Equal(t, 10.0, discharge.SocAfter)
	assert.Equal(t, 34500.0, discharge.Revenue)

	assert.Equal(t, models.ActionHold, plan.HourlySchedule[20].Action,
		"an empty battery cannot discharge again")
	assert.Equal(t, models.ActionHold, plan.HourlySchedule[21].Action)

	firstCharge := plan.HourlySchedule[22]
	assert.Equal(t, models.ActionCharge, firstCharge.Action)
	assert.Equal(t, 500.0, firstCharge.Power)
	assert.Equal(t, 10.0, firstCharge.SocBefore)
	assert.Equal(t, 60.0, firstCharge.SocAfter)
	assert.Equal(t, -9000.0, firstCharge.Revenue)

	secondCharge := plan.HourlySchedule[23]
	assert.Equal(t, models.ActionCharge, secondCharge.Action)
	assert.Equal(t, 350.0, secondCharge.Power, "the last charge tops up to the ceiling, not full power")
	assert.Equal(t, 95.0, secondCharge.SocAfter)
	assert.Equal(t, -7000.0, secondCharge.Revenue)
}

func TestScheduler_Compute_DoublingCapacityNeverLowersNet(t *testing.T) {
	small := newTestScheduler(Config{CapacityKwh: 1000})
	big := newTestScheduler(Config{CapacityKwh: 2000})
	forecasts := tradingDay()

	smallPlan := small.Compute(forecasts, 60)
	bigPlan := big.Compute(forecasts, 60)

	assertPlanInvariants(t, bigPlan, 10, 95, 6, 4)
	assert.GreaterOrEqual(t, bigPlan.ProjectedNet, smallPlan.ProjectedNet)
}

func TestScheduler_Compute_DischargeWinsDuplicateHour(t *testing.T) {
	s := newTestScheduler(Config{})
	forecasts := []models.HourlyPriceForecast{
		models.NewHourlyPriceForecast(5, 10, 0.9, models.MethodModel, 8, 12),
		models.NewHourlyPriceForecast(5, 90, 0.9, models.MethodModel, 85, 95),
		models.NewHourlyPriceForecast(12, 50, 0.9, models.MethodModel, 45, 55),
	}

	plan := s.Compute(forecasts, 50)

	assert.Zero(t, plan.NChargeHours,
		"an hour qualifying for both sides must go to discharge")
	assert.Equal(t, 1, plan.NDischargeHours)
}

func TestScheduler_Compute_NotifiesObserver(t *testing.T) {
	spy := &spyObserver{}
	s := newTestScheduler(Config{Node: "Quillota", Observer: spy})

	s.Compute(tradingDay(), 60)

	require.Len(t, spy.calls, 1)
	call := spy.calls[0]
	assert.Equal(t, "Quillota", call.node)
	assert.Equal(t, 2, call.chargeHours)
	assert.Equal(t, 1, call.dischargeHours)
	assert.Equal(t, 18500.0, call.net)
}

func TestScheduler_Compute_FixedClock(t *testing.T) {
	at := time.Date(2024, 5, 15, 10, 30, 0, 0, time.UTC)
	s := newTestScheduler(Config{Now: func() time.Time { return at }})

	plan := s.Compute(flatDay(40, 0.9), 50)

	assert.Equal(t, at, plan.GeneratedAt)
}

func TestAnnualizedReturn(t *testing.T) {
	plan := &models.DispatchPlan{ProjectedNet: 68400}

	// 68400 * 350 / (720000 * 950)
	roe := AnnualizedReturn(plan, DefaultCapexUsd, DefaultUsdExchangeRate, DefaultOperatingDaysYear)

	assert.InDelta(t, 0.035, roe, 1e-9)
}

func TestAnnualizedReturn_DegenerateInputs(t *testing.T) {
	assert.Zero(t, AnnualizedReturn(nil, DefaultCapexUsd, DefaultUsdExchangeRate, 350))
	assert.Zero(t, AnnualizedReturn(&models.DispatchPlan{ProjectedNet: 100}, 0, 950, 350))
	assert.Zero(t, AnnualizedReturn(&models.DispatchPlan{ProjectedNet: 100}, 720000, -1, 350))
}

func TestSchedulerWithPredictor_EndToEnd(t *testing.T) {
	// A realistic Chilean day profile: morning ramp, midday solar trough,
	// evening peak.
	dayPrices := [24]float64{
		38, 36, 35, 34, 34, 35,
		42, 58, 71, 62, 48, 39,
		22, 21, 21, 21, 22, 29,
		44, 62, 78, 71, 58, 46,
	}

	p := forecast.NewPredictor(forecast.Config{
		Logger:    discardLogger(),
		ModelPath: filepath.Join(t.TempDir(), "absent.json"),
	})
	for d := 0; d < 3; d++ {
		for h := 0; h < 24; h++ {
			p.Update(h, dayPrices[h])
		}
	}

	forecasts := p.Forecast(8, nil)
	require.Len(t, forecasts, 24)
	for _, f := range forecasts {
		assert.Equal(t, models.MethodSmoothing, f.Method)
	}

	s := newTestScheduler(Config{
		CapacityKwh: 1000,
		MaxPowerKw:  500,
		MinSoc:      10,
		MaxSoc:      95,
		Efficiency:  0.92,
	})
	plan := s.Compute(forecasts, 50)

	require.Len(t, plan.HourlySchedule, 24)
	assertPlanInvariants(t, plan, 10, 95, 6, 4)
	assert.LessOrEqual(t, plan.NChargeHours, 6)
	assert.LessOrEqual(t, plan.NDischargeHours, 4)
	assert.GreaterOrEqual(t, plan.ProjectedNet, 0.0,
		"selling the morning ramp and refilling in the trough must profit")
	assert.Positive(t, plan.NDischargeHours, "the morning ramp hour is tradeable from hour 8")
}
