package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/andesgrid/bess-dispatch-go/internal/models"
)

const (
	maxTimingSamples     = 1000
	reportStatsWindow    = 24 * time.Hour
	defaultReportPeriod  = 24 * time.Hour
	reportDeliveryBudget = 30 * time.Second
)

// ReportService assembles the daily operations report: price statistics,
// the latest plan economics, and compute latency percentiles. It also
// acts as the timing sink for the dispatch service.
type ReportService struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	siteID   string
	stats    NodeStatsProvider
	dispatch *DispatchService
	notifier Notifier
	period   time.Duration

	mu      sync.Mutex
	timings map[string][]float64
}

// NewReportService creates a report service. stats and notifier may be
// nil; the report then omits the corresponding sections or is only
// logged.
func NewReportService(ctx context.Context, siteID string, stats NodeStatsProvider, dispatchService *DispatchService, notifier Notifier) *ReportService {
	reportCtx, cancel := context.WithCancel(ctx)
	return &ReportService{
		ctx:      reportCtx,
		cancel:   cancel,
		siteID:   siteID,
		stats:    stats,
		dispatch: dispatchService,
		notifier: notifier,
		period:   defaultReportPeriod,
		timings:  make(map[string][]float64),
	}
}

// SetPeriod overrides the report delivery period.
func (rs *ReportService) SetPeriod(d time.Duration) {
	rs.period = d
}

// BindDispatch attaches the dispatch service after construction. The
// dispatch service takes the report service as its timing sink, so one
// of the two has to be bound late.
func (rs *ReportService) BindDispatch(ds *DispatchService) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.dispatch = ds
}

func (rs *ReportService) dispatchService() *DispatchService {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.dispatch
}

// RecordTiming adds one latency sample for an operation. The sample set
// is capped; old samples fall off the front.
func (rs *ReportService) RecordTiming(operation string, duration time.Duration) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	samples := append(rs.timings[operation], float64(duration.Microseconds())/1000)
	if len(samples) > maxTimingSamples {
		samples = samples[len(samples)-maxTimingSamples:]
	}
	rs.timings[operation] = samples
}

// TimingPercentiles returns p50/p95/p99 latency in milliseconds for one
// operation. ok is false when no samples exist.
func (rs *ReportService) TimingPercentiles(operation string) (p50, p95, p99 float64, ok bool) {
	rs.mu.Lock()
	samples := make([]float64, len(rs.timings[operation]))
	copy(samples, rs.timings[operation])
	rs.mu.Unlock()

	if len(samples) == 0 {
		return 0, 0, 0, false
	}
	sort.Float64s(samples)
	return percentile(samples, 50), percentile(samples, 95), percentile(samples, 99), true
}

// percentile uses nearest-rank on a sorted slice.
func percentile(sorted []float64, pct float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(pct/100*float64(len(sorted))+0.5) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(sorted) {
		rank = len(sorted) - 1
	}
	return sorted[rank]
}

// Start launches periodic report delivery.
func (rs *ReportService) Start() {
	rs.wg.Add(1)
	go rs.loop()
	logrus.WithField("period", rs.period).Info("Report service started")
}

// Stop terminates report delivery.
func (rs *ReportService) Stop() {
	rs.cancel()
	rs.wg.Wait()
}

func (rs *ReportService) loop() {
	defer rs.wg.Done()

	ticker := time.NewTicker(rs.period)
	defer ticker.Stop()

	for {
		select {
		case <-rs.ctx.Done():
			return
		case <-ticker.C:
			rs.deliver()
		}
	}
}

func (rs *ReportService) deliver() {
	dispatch := rs.dispatchService()
	if dispatch == nil {
		return
	}

	ctx, cancel := context.WithTimeout(rs.ctx, reportDeliveryBudget)
	defer cancel()

	for _, node := range dispatch.Nodes() {
		report, err := rs.DailyReport(ctx, node)
		if err != nil {
			logrus.WithError(err).WithField("node", node).Warn("Failed to build daily report")
			continue
		}
		if rs.notifier != nil && rs.notifier.Enabled() {
			if err := rs.notifier.SendReport(ctx, report); err != nil {
				logrus.WithError(err).WithField("node", node).Warn("Failed to deliver daily report")
			}
		} else {
			logrus.WithField("node", node).Info("Daily report:\n" + report)
		}
	}
}

// DailyReport renders the operations report for one node as Markdown.
func (rs *ReportService) DailyReport(ctx context.Context, node string) (string, error) {
	dispatch := rs.dispatchService()
	if dispatch == nil {
		return "", fmt.Errorf("dispatch service not bound")
	}

	plan, _, err := dispatch.ComputePlan(ctx, node, models.ScheduleRequest{Node: node})
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📊 *Daily Report — %s / %s*\n", rs.siteID, node))
	sb.WriteString(fmt.Sprintf("%s\n\n", time.Now().Format("2006-01-02")))

	if rs.stats != nil {
		if stats, err := rs.stats.NodeStats(ctx, node, time.Now().Add(-reportStatsWindow)); err == nil && stats != nil && stats.Count > 0 {
			sb.WriteString("*Prices (24h)*\n")
			sb.WriteString(fmt.Sprintf("Observations: %d\n", stats.Count))
			sb.WriteString(fmt.Sprintf("Mean: %s  StdDev: %s\n", stats.MeanPrice.StringFixed(2), stats.StdDevPrice.StringFixed(2)))
			sb.WriteString(fmt.Sprintf("Range: %s – %s\n", stats.MinPrice.StringFixed(2), stats.MaxPrice.StringFixed(2)))
			sb.WriteString(fmt.Sprintf("Last: %s at %s\n\n", stats.LastPrice.StringFixed(2), stats.LastObserved.Format("15:04")))
		} else if err != nil {
			logrus.WithError(err).WithField("node", node).Debug("Node stats unavailable for report")
		}
	}

	sb.WriteString("*Plan*\n")
	sb.WriteString(fmt.Sprintf("Charge %dh / discharge %dh\n", plan.NChargeHours, plan.NDischargeHours))
	sb.WriteString(fmt.Sprintf("Projected net: %.0f CLP\n", plan.ProjectedNet))
	sb.WriteString(fmt.Sprintf("Annualized return on capex: %.2f%%\n\n", dispatch.AnnualizedReturn(plan)*100))

	sb.WriteString("*Compute latency (ms)*\n")
	wrote := false
	for _, operation := range []string{"forecast", "plan_compute"} {
		if p50, p95, p99, ok := rs.TimingPercentiles(operation); ok {
			sb.WriteString(fmt.Sprintf("%s: p50 %.2f  p95 %.2f  p99 %.2f\n", operation, p50, p95, p99))
			wrote = true
		}
	}
	if !wrote {
		sb.WriteString("no samples\n")
	}

	return sb.String(), nil
}
