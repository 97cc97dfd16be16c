package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/andesgrid/bess-dispatch-go/internal/config"
	"github.com/andesgrid/bess-dispatch-go/internal/models"
	"github.com/andesgrid/bess-dispatch-go/internal/services"
)

// ServiceName is the canonical service identifier in API responses.
const ServiceName = "bess-dispatch-gateway"

// StatusHandler serves the site snapshot and build information.
type StatusHandler struct {
	cfg       *config.Config
	dispatch  *services.DispatchService
	collector *services.CollectorService
	monitor   *services.PerformanceMonitor
	version   string
}

// NewStatusHandler creates the status handler. collector and monitor may
// be nil.
func NewStatusHandler(cfg *config.Config, dispatchService *services.DispatchService, collector *services.CollectorService, monitor *services.PerformanceMonitor, version string) *StatusHandler {
	return &StatusHandler{
		cfg:       cfg,
		dispatch:  dispatchService,
		collector: collector,
		monitor:   monitor,
		version:   version,
	}
}

// GetStatus returns the full site snapshot.
func (h *StatusHandler) GetStatus(c *gin.Context) {
	node := c.Query("node")
	if node != "" && !h.dispatch.HasNode(node) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown node: " + node})
		return
	}

	core := h.dispatch.Status(node)

	response := models.StatusResponse{
		Service:       ServiceName,
		Version:       h.version,
		Environment:   h.cfg.Environment,
		SiteID:        h.cfg.Site.ID,
		Nodes:         h.dispatch.Nodes(),
		UptimeSeconds: h.dispatch.Uptime().Seconds(),
		Timestamp:     time.Now(),
	}
	if v, ok := core["model_loaded"].(bool); ok {
		response.ModelLoaded = v
	}
	if v, ok := core["quantiles_loaded"].(bool); ok {
		response.QuantilesLoaded = v
	}
	if v, ok := core["history_size"].(int); ok {
		response.HistorySize = v
	}
	if v, ok := core["cache_age_seconds"].(float64); ok {
		response.CacheAgeSeconds = v
	}
	if h.collector != nil {
		response.Collector = h.collector.GetStatus()
	}
	if h.monitor != nil {
		response.Process = h.monitor.Last()
	}

	c.JSON(http.StatusOK, response)
}

// GetVersion returns build information.
func (h *StatusHandler) GetVersion(c *gin.Context) {
	c.JSON(http.StatusOK, models.VersionResponse{
		Service:   ServiceName,
		Version:   h.version,
		GoVersion: runtime.Version(),
	})
}
