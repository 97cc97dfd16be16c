package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/andesgrid/bess-dispatch-go/internal/services"
)

// AlertsHandler serves the active alert list and resolution.
type AlertsHandler struct {
	alerts *services.AlertManager
}

// NewAlertsHandler creates the alerts handler.
func NewAlertsHandler(alertManager *services.AlertManager) *AlertsHandler {
	return &AlertsHandler{alerts: alertManager}
}

// GetAlerts returns active alerts with severity counts.
func (h *AlertsHandler) GetAlerts(c *gin.Context) {
	c.JSON(http.StatusOK, h.alerts.Summary())
}

// ResolveAlert resolves one named alert.
func (h *AlertsHandler) ResolveAlert(c *gin.Context) {
	name := c.Param("name")
	if !h.alerts.Resolve(name) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no active alert named " + name})
		return
	}
	c.JSON(http.StatusOK, gin.H{"resolved": name})
}

// ResolveAllAlerts resolves every active alert.
func (h *AlertsHandler) ResolveAllAlerts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"resolved": h.alerts.ResolveAll()})
}
