package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/andesgrid/bess-dispatch-go/internal/models"
	"github.com/andesgrid/bess-dispatch-go/internal/services"
)

// ForecastHandler serves 24-hour price forecasts.
type ForecastHandler struct {
	dispatch *services.DispatchService
}

// NewForecastHandler creates the forecast handler.
func NewForecastHandler(dispatchService *services.DispatchService) *ForecastHandler {
	return &ForecastHandler{dispatch: dispatchService}
}

// GetForecast returns the 24 hourly forecasts for a node. An explicit
// hour pins the forecast start; an explicit price is recorded as an
// observation first.
func (h *ForecastHandler) GetForecast(c *gin.Context) {
	node := c.DefaultQuery("node", h.defaultNode())
	if !h.dispatch.HasNode(node) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown node: " + node})
		return
	}

	var hour *int
	if hourParam := c.Query("hour"); hourParam != "" {
		parsed, err := strconv.Atoi(hourParam)
		if err != nil || parsed < 0 || parsed > 23 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "hour must be an integer in [0, 23]"})
			return
		}
		hour = &parsed
	}

	var price *float64
	if priceParam := c.Query("price"); priceParam != "" {
		parsed, err := strconv.ParseFloat(priceParam, 64)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "price must be a non-negative number"})
			return
		}
		price = &parsed
	}

	forecasts, cached, err := h.dispatch.Forecast(c.Request.Context(), node, hour, price)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute forecast"})
		return
	}

	entries := make([]models.HourlyForecastResponse, 0, len(forecasts))
	for _, f := range forecasts {
		entries = append(entries, models.NewHourlyForecastResponse(f))
	}

	c.JSON(http.StatusOK, models.ForecastResponse{
		Node:        node,
		Forecasts:   entries,
		Count:       len(entries),
		Cached:      cached,
		GeneratedAt: time.Now(),
	})
}

func (h *ForecastHandler) defaultNode() string {
	nodes := h.dispatch.Nodes()
	if len(nodes) == 0 {
		return ""
	}
	return nodes[0]
}
