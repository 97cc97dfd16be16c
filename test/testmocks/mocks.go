// Package testmocks provides shared testify mocks for the service
// interfaces, for use by integration and benchmark suites.
package testmocks

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/andesgrid/bess-dispatch-go/internal/models"
	"github.com/andesgrid/bess-dispatch-go/pkg/spot"
)

// MockScheduleCache implements services.ScheduleCache.
type MockScheduleCache struct {
	mock.Mock
}

func (m *MockScheduleCache) GetPlan(ctx context.Context, node string) (*models.DispatchPlan, bool) {
	args := m.Called(ctx, node)
	plan, _ := args.Get(0).(*models.DispatchPlan)
	return plan, args.Bool(1)
}

func (m *MockScheduleCache) SetPlan(ctx context.Context, node string, plan *models.DispatchPlan) {
	m.Called(ctx, node, plan)
}

func (m *MockScheduleCache) GetForecast(ctx context.Context, node string) ([]models.HourlyPriceForecast, bool) {
	args := m.Called(ctx, node)
	forecasts, _ := args.Get(0).([]models.HourlyPriceForecast)
	return forecasts, args.Bool(1)
}

func (m *MockScheduleCache) SetForecast(ctx context.Context, node string, forecasts []models.HourlyPriceForecast) {
	m.Called(ctx, node, forecasts)
}

func (m *MockScheduleCache) Invalidate(ctx context.Context, node string) error {
	args := m.Called(ctx, node)
	return args.Error(0)
}

// MockPlanStore implements services.PlanStore.
type MockPlanStore struct {
	mock.Mock
}

func (m *MockPlanStore) StorePlan(ctx context.Context, plan *models.StoredDispatchPlan) error {
	args := m.Called(ctx, plan)
	return args.Error(0)
}

// MockObservationWriter implements services.ObservationWriter.
type MockObservationWriter struct {
	mock.Mock
}

func (m *MockObservationWriter) InsertObservation(ctx context.Context, node string, hour int, price decimal.Decimal, source string, observedAt time.Time) (*models.PriceObservation, error) {
	args := m.Called(ctx, node, hour, price, source, observedAt)
	obs, _ := args.Get(0).(*models.PriceObservation)
	return obs, args.Error(1)
}

// MockPriceSource implements services.PriceSource.
type MockPriceSource struct {
	mock.Mock
}

func (m *MockPriceSource) GetLatest(ctx context.Context, node string) (*spot.SpotPrice, error) {
	args := m.Called(ctx, node)
	price, _ := args.Get(0).(*spot.SpotPrice)
	return price, args.Error(1)
}

func (m *MockPriceSource) HealthCheck(ctx context.Context) (*spot.HealthResponse, error) {
	args := m.Called(ctx)
	health, _ := args.Get(0).(*spot.HealthResponse)
	return health, args.Error(1)
}

// MockNotifier implements services.Notifier.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Enabled() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockNotifier) SendAlert(ctx context.Context, alert *models.Alert) error {
	args := m.Called(ctx, alert)
	return args.Error(0)
}

func (m *MockNotifier) SendPlanSummary(ctx context.Context, plan *models.DispatchPlan) error {
	args := m.Called(ctx, plan)
	return args.Error(0)
}

func (m *MockNotifier) SendReport(ctx context.Context, report string) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}
