package services

import (
	"github.com/andesgrid/bess-dispatch-go/internal/cache"
	"github.com/andesgrid/bess-dispatch-go/internal/database"
	"github.com/andesgrid/bess-dispatch-go/internal/telemetry"
	"github.com/andesgrid/bess-dispatch-go/pkg/spot"
)

// The production types must satisfy the service contracts they are wired
// into by cmd/server.
var (
	_ ScheduleCache     = (*cache.RedisScheduleCache)(nil)
	_ ObservationWriter = (*database.PriceRepository)(nil)
	_ ObservationStore  = (*database.PriceRepository)(nil)
	_ PlanStore         = (*database.PriceRepository)(nil)
	_ ObservationPruner = (*database.PriceRepository)(nil)
	_ NodeStatsProvider = (*database.PriceRepository)(nil)
	_ PriceSource       = (*spot.Client)(nil)
	_ Notifier          = (*NotificationService)(nil)
	_ PlanObserver      = (*telemetry.ComputeObserver)(nil)
	_ PriceRecorder     = (*DispatchService)(nil)
	_ PriceHistory      = (*DispatchService)(nil)
	_ TimingRecorder    = (*ReportService)(nil)
)
