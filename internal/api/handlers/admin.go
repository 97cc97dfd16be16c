package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/andesgrid/bess-dispatch-go/internal/cache"
	"github.com/andesgrid/bess-dispatch-go/internal/services"
	"github.com/andesgrid/bess-dispatch-go/internal/telemetry"
)

// AdminHandler serves operator maintenance endpoints.
type AdminHandler struct {
	scheduleCache *cache.RedisScheduleCache
	cleanup       *services.CleanupService
	dispatch      *services.DispatchService
	observer      *telemetry.ComputeObserver
}

// NewAdminHandler creates the admin handler. Any dependency may be nil;
// the matching endpoint then reports unavailable.
func NewAdminHandler(scheduleCache *cache.RedisScheduleCache, cleanup *services.CleanupService, dispatchService *services.DispatchService, observer *telemetry.ComputeObserver) *AdminHandler {
	return &AdminHandler{
		scheduleCache: scheduleCache,
		cleanup:       cleanup,
		dispatch:      dispatchService,
		observer:      observer,
	}
}

// InvalidateCache drops cached plans and forecasts, for one node or all.
func (h *AdminHandler) InvalidateCache(c *gin.Context) {
	if h.scheduleCache == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "schedule cache is not configured"})
		return
	}

	node := c.Query("node")
	if node != "" {
		if h.dispatch != nil && !h.dispatch.HasNode(node) {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown node: " + node})
			return
		}
		if err := h.scheduleCache.Invalidate(c.Request.Context(), node); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to invalidate cache"})
			return
		}
		if h.dispatch != nil {
			if predictor := h.dispatch.Predictor(node); predictor != nil {
				predictor.InvalidateCache()
			}
		}
		c.JSON(http.StatusOK, gin.H{"invalidated": node})
		return
	}

	if err := h.scheduleCache.Clear(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to clear cache"})
		return
	}
	if h.dispatch != nil {
		for _, n := range h.dispatch.Nodes() {
			if predictor := h.dispatch.Predictor(n); predictor != nil {
				predictor.InvalidateCache()
			}
		}
	}
	c.JSON(http.StatusOK, gin.H{"invalidated": "all"})
}

// PruneHistory runs one retention pass over stored observations.
func (h *AdminHandler) PruneHistory(c *gin.Context) {
	if h.cleanup == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "cleanup service is not configured"})
		return
	}

	deleted := h.cleanup.RunCleanup(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"deleted":   deleted,
		"pruned_at": time.Now(),
	})
}

// GetStats exposes cache counters and compute-observer statistics.
func (h *AdminHandler) GetStats(c *gin.Context) {
	stats := gin.H{"timestamp": time.Now()}
	if h.scheduleCache != nil {
		stats["cache"] = h.scheduleCache.GetStats()
		stats["cache_hit_rate"] = h.scheduleCache.HitRate()
	}
	if h.observer != nil {
		stats["compute"] = h.observer.Stats()
	}
	c.JSON(http.StatusOK, stats)
}
