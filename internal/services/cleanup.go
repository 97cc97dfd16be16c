package services

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/andesgrid/bess-dispatch-go/internal/config"
)

// CleanupService prunes price observations past the retention horizon on
// a fixed interval. Edge devices run on small disks, so the horizon is
// days, not months.
type CleanupService struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	pruner        ObservationPruner
	retentionDays int
	interval      time.Duration
}

// NewCleanupService creates a cleanup service over an observation pruner.
func NewCleanupService(ctx context.Context, pruner ObservationPruner, cfg config.CleanupConfig) *CleanupService {
	cleanupCtx, cancel := context.WithCancel(ctx)

	retention := cfg.ObservationRetentionDays
	if retention <= 0 {
		retention = 30
	}
	interval := time.Duration(cfg.CleanupIntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = 6 * time.Hour
	}

	return &CleanupService{
		ctx:           cleanupCtx,
		cancel:        cancel,
		pruner:        pruner,
		retentionDays: retention,
		interval:      interval,
	}
}

// Start launches the periodic pruning loop.
func (cs *CleanupService) Start() {
	cs.wg.Add(1)
	go cs.loop()
	logrus.WithFields(logrus.Fields{
		"retention_days": cs.retentionDays,
		"interval":       cs.interval,
	}).Info("Cleanup service started")
}

// Stop terminates the pruning loop.
func (cs *CleanupService) Stop() {
	cs.cancel()
	cs.wg.Wait()
}

func (cs *CleanupService) loop() {
	defer cs.wg.Done()

	ticker := time.NewTicker(cs.interval)
	defer ticker.Stop()

	for {
		select {
		case <-cs.ctx.Done():
			return
		case <-ticker.C:
			cs.RunCleanup(cs.ctx)
		}
	}
}

// RunCleanup prunes observations older than the retention horizon and
// returns the number of rows deleted.
func (cs *CleanupService) RunCleanup(ctx context.Context) int64 {
	if cs.pruner == nil {
		return 0
	}

	cutoff := cs.Cutoff(time.Now())
	deleted, err := cs.pruner.PruneObservations(ctx, cutoff)
	if err != nil {
		logrus.WithError(err).Warn("Observation pruning failed")
		return 0
	}
	if deleted > 0 {
		logrus.WithFields(logrus.Fields{
			"deleted": deleted,
			"cutoff":  cutoff.Format(time.RFC3339),
		}).Info("Pruned old price observations")
	}
	return deleted
}

// Cutoff returns the retention boundary relative to now.
func (cs *CleanupService) Cutoff(now time.Time) time.Time {
	return now.AddDate(0, 0, -cs.retentionDays)
}
