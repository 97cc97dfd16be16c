package interfaces

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/andesgrid/bess-dispatch-go/internal/dispatch"
	"github.com/andesgrid/bess-dispatch-go/internal/forecast"
	"github.com/andesgrid/bess-dispatch-go/internal/models"
	"github.com/andesgrid/bess-dispatch-go/internal/telemetry"
)

// The concrete core types must satisfy the public contracts.
var (
	_ ForecastEngine  = (*forecast.Predictor)(nil)
	_ DispatchPlanner = (*dispatch.Scheduler)(nil)
	_ PlanObserver    = (*telemetry.ComputeObserver)(nil)
)

func TestForecastEngine_Conformance(t *testing.T) {
	var engine ForecastEngine = forecast.NewPredictor(forecast.Config{Node: "Maitencillo"})

	engine.Update(12, 25.0)
	forecasts := engine.Forecast(8, nil)

	assert.Len(t, forecasts, 24)
	assert.False(t, engine.ModelLoaded())
	engine.InvalidateCache()
}

func TestDispatchPlanner_Conformance(t *testing.T) {
	var planner DispatchPlanner = dispatch.NewScheduler(dispatch.Config{Node: "Maitencillo"})

	plan := planner.Compute([]models.HourlyPriceForecast{}, 50)
	assert.NotNil(t, plan)
	assert.Empty(t, plan.HourlySchedule)
}

func TestPlanObserver_Conformance(t *testing.T) {
	var observer PlanObserver = telemetry.NewComputeObserver()

	observer.ForecastComputed("Maitencillo", models.MethodSmoothing, false, time.Millisecond)
	observer.PlanComputed("Maitencillo", 5, 4, 91900, time.Millisecond)
}
