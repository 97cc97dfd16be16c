package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andesgrid/bess-dispatch-go/internal/config"
	"github.com/andesgrid/bess-dispatch-go/internal/models"
	"github.com/andesgrid/bess-dispatch-go/pkg/spot"
)

type fakeFeed struct {
	mu      sync.Mutex
	price   *spot.SpotPrice
	err     error
	healthy bool
	calls   int
}

func (f *fakeFeed) GetLatest(_ context.Context, _ string) (*spot.SpotPrice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.price, nil
}

func (f *fakeFeed) HealthCheck(_ context.Context) (*spot.HealthResponse, error) {
	if !f.healthy {
		return nil, fmt.Errorf("feed unreachable")
	}
	return &spot.HealthResponse{Status: "healthy"}, nil
}

type capturingWriter struct {
	mu   sync.Mutex
	rows []models.PriceObservation
}

func (w *capturingWriter) InsertObservation(_ context.Context, node string, hour int, price decimal.Decimal, source string, observedAt time.Time) (*models.PriceObservation, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	obs := models.PriceObservation{Node: node, Hour: hour, Price: price, Source: source, ObservedAt: observedAt}
	w.rows = append(w.rows, obs)
	return &obs, nil
}

type capturingRecorder struct {
	mu     sync.Mutex
	prices []float64
}

func (r *capturingRecorder) RecordPrice(_ string, _ int, price float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prices = append(r.prices, price)
}

func collectorConfig() *config.Config {
	cfg := testConfig()
	cfg.Collector = config.CollectorConfig{Enabled: true, CollectionInterval: "1h"}
	return cfg
}

func TestCollectorService_CollectNode(t *testing.T) {
	feed := &fakeFeed{
		healthy: true,
		price: &spot.SpotPrice{
			Node:       "Maitencillo",
			Hour:       14,
			PriceKwh:   41.7,
			Currency:   "CLP",
			ObservedAt: time.Now(),
		},
	}
	writer := &capturingWriter{}
	recorder := &capturingRecorder{}
	cs := NewCollectorService(context.Background(), collectorConfig(), feed, writer, recorder, nil)
	defer cs.Stop()

	worker := cs.createWorker("Maitencillo")
	cs.collectNode(worker)

	require.Len(t, writer.rows, 1)
	assert.Equal(t, "Maitencillo", writer.rows[0].Node)
	assert.Equal(t, 14, writer.rows[0].Hour)
	assert.Equal(t, models.SourceFeed, writer.rows[0].Source)

	require.Len(t, recorder.prices, 1)
	assert.InDelta(t, 41.7, recorder.prices[0], 0.001)
	assert.Equal(t, 0, worker.errorCount)
}

func TestCollectorService_ErrorsAccumulateAndAlert(t *testing.T) {
	feed := &fakeFeed{healthy: true, err: fmt.Errorf("connection refused")}
	alerts := NewAlertManager("edge-001", nil)
	cs := NewCollectorService(context.Background(), collectorConfig(), feed, nil, nil, alerts)
	defer cs.Stop()

	worker := cs.createWorker("Maitencillo")
	for i := 0; i < collectorMaxErrors; i++ {
		cs.collectNode(worker)
	}

	assert.Equal(t, collectorMaxErrors, worker.errorCount)
	active := alerts.Active()
	require.Len(t, active, 1)
	assert.Equal(t, "feed_unreachable_Maitencillo", active[0].Name)
	assert.Equal(t, models.AlertLevelCritical, active[0].Level)
}

func TestCollectorService_RecoveryResolvesAlert(t *testing.T) {
	feed := &fakeFeed{healthy: true, err: fmt.Errorf("connection refused")}
	alerts := NewAlertManager("edge-001", nil)
	cs := NewCollectorService(context.Background(), collectorConfig(), feed, nil, nil, alerts)
	defer cs.Stop()

	worker := cs.createWorker("Maitencillo")
	for i := 0; i < collectorMaxErrors; i++ {
		cs.collectNode(worker)
	}
	require.Len(t, alerts.Active(), 1)

	feed.mu.Lock()
	feed.err = nil
	feed.price = &spot.SpotPrice{Node: "Maitencillo", Hour: 15, PriceKwh: 40}
	feed.mu.Unlock()

	cs.collectNode(worker)
	assert.Equal(t, 0, worker.errorCount)
	assert.Empty(t, alerts.Active(), "successful collection resolves the feed alert")
}

func TestCollectorService_StartStop(t *testing.T) {
	feed := &fakeFeed{
		healthy: true,
		price:   &spot.SpotPrice{Node: "Maitencillo", Hour: 10, PriceKwh: 39.5},
	}
	cs := NewCollectorService(context.Background(), collectorConfig(), feed, nil, nil, nil)

	require.NoError(t, cs.Start())
	assert.True(t, cs.IsRunning())
	assert.Error(t, cs.Start(), "double start must fail")

	status := cs.GetStatus()
	assert.Equal(t, true, status["running"])
	nodes, ok := status["nodes"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, nodes, "Maitencillo")

	cs.Stop()
	assert.False(t, cs.IsRunning())
	cs.Stop() // idempotent
}

func TestCollectorService_StartWithoutFeed(t *testing.T) {
	cs := NewCollectorService(context.Background(), collectorConfig(), nil, nil, nil, nil)
	assert.Error(t, cs.Start())
}

func TestCollectorService_CollectsImmediatelyOnStart(t *testing.T) {
	feed := &fakeFeed{
		healthy: true,
		price:   &spot.SpotPrice{Node: "Maitencillo", Hour: 10, PriceKwh: 39.5},
	}
	recorder := &capturingRecorder{}
	cs := NewCollectorService(context.Background(), collectorConfig(), feed, nil, recorder, nil)

	require.NoError(t, cs.Start())
	defer cs.Stop()

	assert.Eventually(t, func() bool {
		recorder.mu.Lock()
		defer recorder.mu.Unlock()
		return len(recorder.prices) >= 1
	}, 2*time.Second, 10*time.Millisecond, "startup collection must run before the first tick")
}
