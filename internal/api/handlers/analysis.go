package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/andesgrid/bess-dispatch-go/internal/services"
	"github.com/andesgrid/bess-dispatch-go/internal/utils"
)

// AnalysisHandler serves the indicator summary over recent prices.
type AnalysisHandler struct {
	analysis *services.AnalysisService
	dispatch *services.DispatchService
}

// NewAnalysisHandler creates the analysis handler.
func NewAnalysisHandler(analysisService *services.AnalysisService, dispatchService *services.DispatchService) *AnalysisHandler {
	return &AnalysisHandler{analysis: analysisService, dispatch: dispatchService}
}

// GetAnalysis returns SMA/EMA/RSI and volatility over the recent price
// window for a node.
func (h *AnalysisHandler) GetAnalysis(c *gin.Context) {
	node := c.DefaultQuery("node", h.defaultNode())
	if !h.dispatch.HasNode(node) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown node: " + node})
		return
	}

	result, err := h.analysis.Analyze(node)
	if err != nil {
		if utils.IsValidationError(err) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *AnalysisHandler) defaultNode() string {
	nodes := h.dispatch.Nodes()
	if len(nodes) == 0 {
		return ""
	}
	return nodes[0]
}
