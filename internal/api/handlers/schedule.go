package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/andesgrid/bess-dispatch-go/internal/models"
	"github.com/andesgrid/bess-dispatch-go/internal/services"
)

// ScheduleHandler serves dispatch plans and state-of-charge updates.
type ScheduleHandler struct {
	dispatch *services.DispatchService
}

// NewScheduleHandler creates the schedule handler.
func NewScheduleHandler(dispatchService *services.DispatchService) *ScheduleHandler {
	return &ScheduleHandler{dispatch: dispatchService}
}

// GetSchedule computes (or serves from cache) the 24-hour dispatch plan
// for a node. capacity_kwh and max_power_kw size a one-off plan.
func (h *ScheduleHandler) GetSchedule(c *gin.Context) {
	var req models.ScheduleRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters: " + err.Error()})
		return
	}

	node := req.Node
	if node == "" {
		node = h.defaultNode()
	}
	if !h.dispatch.HasNode(node) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown node: " + node})
		return
	}
	if req.Soc < 0 || req.Soc > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "soc must be in [0, 100]"})
		return
	}

	plan, cached, err := h.dispatch.ComputePlan(c.Request.Context(), node, req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute plan"})
		return
	}

	c.JSON(http.StatusOK, models.ScheduleResponse{
		Plan:        *plan,
		Cached:      cached,
		GeneratedAt: plan.GeneratedAt,
	})
}

// UpdateSoc records the measured state of charge reported by the BMS.
func (h *ScheduleHandler) UpdateSoc(c *gin.Context) {
	node := c.DefaultQuery("node", h.defaultNode())
	if !h.dispatch.HasNode(node) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown node: " + node})
		return
	}

	socParam := c.Query("soc")
	soc, err := strconv.ParseFloat(socParam, 64)
	if err != nil || soc < 0 || soc > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "soc must be a number in [0, 100]"})
		return
	}

	h.dispatch.UpdateSoc(node, soc)
	c.JSON(http.StatusOK, gin.H{
		"node":       node,
		"soc":        soc,
		"updated_at": time.Now(),
	})
}

func (h *ScheduleHandler) defaultNode() string {
	nodes := h.dispatch.Nodes()
	if len(nodes) == 0 {
		return ""
	}
	return nodes[0]
}
