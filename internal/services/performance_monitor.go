package services

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/sirupsen/logrus"

	"github.com/andesgrid/bess-dispatch-go/internal/models"
)

const (
	defaultSampleInterval  = time.Minute
	memoryWarningPercent   = 90.0
	diskWarningPercent     = 90.0
	performanceAlertMemory = "host_memory_pressure"
	performanceAlertDisk   = "host_disk_pressure"
)

// PerformanceMonitor samples host resource usage for an edge device and
// raises alerts when memory or disk cross their thresholds.
type PerformanceMonitor struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	alerts   *AlertManager
	interval time.Duration

	mu   sync.RWMutex
	last map[string]interface{}
}

// NewPerformanceMonitor creates a monitor. alerts may be nil.
func NewPerformanceMonitor(ctx context.Context, alerts *AlertManager) *PerformanceMonitor {
	monitorCtx, cancel := context.WithCancel(ctx)
	return &PerformanceMonitor{
		ctx:      monitorCtx,
		cancel:   cancel,
		alerts:   alerts,
		interval: defaultSampleInterval,
	}
}

// SetInterval overrides the sampling interval.
func (pm *PerformanceMonitor) SetInterval(d time.Duration) {
	pm.interval = d
}

// Start launches the periodic sampling loop.
func (pm *PerformanceMonitor) Start() {
	pm.wg.Add(1)
	go pm.loop()
	logrus.WithField("interval", pm.interval).Info("Performance monitor started")
}

// Stop terminates the sampling loop.
func (pm *PerformanceMonitor) Stop() {
	pm.cancel()
	pm.wg.Wait()
}

func (pm *PerformanceMonitor) loop() {
	defer pm.wg.Done()

	pm.sample()

	ticker := time.NewTicker(pm.interval)
	defer ticker.Stop()

	for {
		select {
		case <-pm.ctx.Done():
			return
		case <-ticker.C:
			pm.sample()
		}
	}
}

func (pm *PerformanceMonitor) sample() {
	snapshot := pm.Snapshot()

	pm.mu.Lock()
	pm.last = snapshot
	pm.mu.Unlock()

	if pm.alerts == nil {
		return
	}
	if memPct, ok := snapshot["memory_percent"].(float64); ok && memPct >= memoryWarningPercent {
		pm.alerts.Fire(models.AlertLevelWarning, performanceAlertMemory,
			fmt.Sprintf("Host memory usage at %.1f%%", memPct))
	}
	if diskPct, ok := snapshot["disk_percent"].(float64); ok && diskPct >= diskWarningPercent {
		pm.alerts.Fire(models.AlertLevelWarning, performanceAlertDisk,
			fmt.Sprintf("Host disk usage at %.1f%%", diskPct))
	}
}

// Snapshot collects a point-in-time view of host and process resources.
// Collector errors degrade individual fields instead of failing the call.
func (pm *PerformanceMonitor) Snapshot() map[string]interface{} {
	snapshot := map[string]interface{}{
		"goroutines":   runtime.NumGoroutine(),
		"go_version":   runtime.Version(),
		"num_cpu":      runtime.NumCPU(),
		"collected_at": time.Now(),
	}

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	snapshot["heap_alloc_mb"] = float64(memStats.HeapAlloc) / 1024 / 1024
	snapshot["gc_cycles"] = memStats.NumGC

	if vm, err := mem.VirtualMemory(); err == nil {
		snapshot["memory_percent"] = vm.UsedPercent
		snapshot["memory_total_mb"] = float64(vm.Total) / 1024 / 1024
		snapshot["memory_available_mb"] = float64(vm.Available) / 1024 / 1024
	} else {
		logrus.WithError(err).Debug("Failed to sample virtual memory")
	}

	if percentages, err := cpu.Percent(0, false); err == nil && len(percentages) > 0 {
		snapshot["cpu_percent"] = percentages[0]
	} else if err != nil {
		logrus.WithError(err).Debug("Failed to sample CPU usage")
	}

	if usage, err := disk.Usage("/"); err == nil {
		snapshot["disk_percent"] = usage.UsedPercent
		snapshot["disk_free_gb"] = float64(usage.Free) / 1024 / 1024 / 1024
	} else {
		logrus.WithError(err).Debug("Failed to sample disk usage")
	}

	return snapshot
}

// Last returns the most recent sampled snapshot, or nil before the first
// sample.
func (pm *PerformanceMonitor) Last() map[string]interface{} {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.last
}
