package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/andesgrid/bess-dispatch-go/internal/config"
	"github.com/andesgrid/bess-dispatch-go/internal/models"
)

const collectorMaxErrors = 5

// nodeWorker polls the spot feed for one grid node.
type nodeWorker struct {
	node       string
	interval   time.Duration
	ctx        context.Context
	cancel     context.CancelFunc
	errorCount int
	lastPrice  float64
	lastRun    time.Time
	mu         sync.Mutex
}

// CollectorService runs one polling worker per configured node, writing
// each observation to the store and feeding it to the forecast history.
type CollectorService struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	feed     PriceSource
	store    ObservationWriter
	recorder PriceRecorder
	alerts   *AlertManager

	interval time.Duration
	nodes    []string

	mu      sync.RWMutex
	workers map[string]*nodeWorker
	running bool
}

// NewCollectorService creates a collector. store, recorder, and alerts
// may be nil; the collector then only logs what it sees.
func NewCollectorService(ctx context.Context, cfg *config.Config, feed PriceSource, store ObservationWriter, recorder PriceRecorder, alerts *AlertManager) *CollectorService {
	serviceCtx, cancel := context.WithCancel(ctx)

	interval := 5 * time.Minute
	if cfg.Collector.CollectionInterval != "" {
		if d, err := time.ParseDuration(cfg.Collector.CollectionInterval); err == nil && d > 0 {
			interval = d
		}
	}

	return &CollectorService{
		ctx:      serviceCtx,
		cancel:   cancel,
		feed:     feed,
		store:    store,
		recorder: recorder,
		alerts:   alerts,
		interval: interval,
		nodes:    cfg.Site.Nodes,
		workers:  make(map[string]*nodeWorker),
	}
}

// Start verifies the feed is reachable and launches one worker per node.
func (cs *CollectorService) Start() error {
	if cs.feed == nil {
		return fmt.Errorf("no price feed configured")
	}

	healthCtx, healthCancel := context.WithTimeout(cs.ctx, 10*time.Second)
	defer healthCancel()
	if _, err := cs.feed.HealthCheck(healthCtx); err != nil {
		logrus.WithError(err).Warn("Spot feed health check failed, starting collector anyway")
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.running {
		return fmt.Errorf("collector already running")
	}

	for _, node := range cs.nodes {
		worker := cs.createWorker(node)
		cs.workers[node] = worker
		cs.wg.Add(1)
		go cs.runWorker(worker)
	}
	cs.running = true

	logrus.WithFields(logrus.Fields{
		"nodes":    len(cs.workers),
		"interval": cs.interval,
	}).Info("Price collector started")
	return nil
}

// Stop terminates all workers and waits for them to exit.
func (cs *CollectorService) Stop() {
	cs.mu.Lock()
	if !cs.running {
		cs.mu.Unlock()
		return
	}
	cs.running = false
	for _, worker := range cs.workers {
		worker.cancel()
	}
	cs.mu.Unlock()

	cs.cancel()
	cs.wg.Wait()
	logrus.Info("Price collector stopped")
}

// IsRunning reports whether the workers are active.
func (cs *CollectorService) IsRunning() bool {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.running
}

func (cs *CollectorService) createWorker(node string) *nodeWorker {
	workerCtx, workerCancel := context.WithCancel(cs.ctx)
	return &nodeWorker{
		node:     node,
		interval: cs.interval,
		ctx:      workerCtx,
		cancel:   workerCancel,
	}
}

func (cs *CollectorService) runWorker(worker *nodeWorker) {
	defer cs.wg.Done()

	// Collect once at startup so a fresh process has a price before the
	// first tick.
	cs.collectNode(worker)

	ticker := time.NewTicker(worker.interval)
	defer ticker.Stop()

	for {
		select {
		case <-worker.ctx.Done():
			logrus.WithField("node", worker.node).Info("Collector worker stopped")
			return
		case <-ticker.C:
			cs.collectNode(worker)
		}
	}
}

func (cs *CollectorService) collectNode(worker *nodeWorker) {
	ctx, cancel := context.WithTimeout(worker.ctx, 30*time.Second)
	defer cancel()

	price, err := cs.feed.GetLatest(ctx, worker.node)
	if err != nil {
		cs.recordError(worker, err)
		return
	}

	worker.mu.Lock()
	worker.errorCount = 0
	worker.lastPrice = price.PriceKwh
	worker.lastRun = time.Now()
	worker.mu.Unlock()

	if cs.store != nil {
		observedAt := price.ObservedAt
		if observedAt.IsZero() {
			observedAt = time.Now()
		}
		if _, err := cs.store.InsertObservation(ctx, worker.node, price.Hour,
			decimal.NewFromFloat(price.PriceKwh), models.SourceFeed, observedAt); err != nil {
			logrus.WithError(err).WithField("node", worker.node).Warn("Failed to store observation")
		}
	}

	if cs.recorder != nil {
		cs.recorder.RecordPrice(worker.node, price.Hour, price.PriceKwh)
	}

	if cs.alerts != nil {
		cs.alerts.Resolve("feed_unreachable_" + worker.node)
	}

	logrus.WithFields(logrus.Fields{
		"node":  worker.node,
		"hour":  price.Hour,
		"price": price.PriceKwh,
	}).Debug("Collected spot price")
}

func (cs *CollectorService) recordError(worker *nodeWorker, err error) {
	worker.mu.Lock()
	worker.errorCount++
	count := worker.errorCount
	worker.mu.Unlock()

	logrus.WithError(err).WithFields(logrus.Fields{
		"node":   worker.node,
		"errors": count,
	}).Warn("Price collection failed")

	if count >= collectorMaxErrors && cs.alerts != nil {
		caser := cases.Title(language.English)
		cs.alerts.Fire(models.AlertLevelCritical, "feed_unreachable_"+worker.node,
			fmt.Sprintf("%s: %d consecutive feed failures",
				caser.String(strings.ReplaceAll(worker.node, "_", " ")), count))
	}
}

// GetStatus reports per-node collection state for the status endpoint.
func (cs *CollectorService) GetStatus() map[string]interface{} {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	nodes := make(map[string]interface{}, len(cs.workers))
	for name, worker := range cs.workers {
		worker.mu.Lock()
		entry := map[string]interface{}{
			"errors":     worker.errorCount,
			"last_price": worker.lastPrice,
		}
		if !worker.lastRun.IsZero() {
			entry["last_run"] = worker.lastRun
		}
		worker.mu.Unlock()
		nodes[name] = entry
	}

	return map[string]interface{}{
		"running":  cs.running,
		"interval": cs.interval.String(),
		"nodes":    nodes,
	}
}
