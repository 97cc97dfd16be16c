package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/andesgrid/bess-dispatch-go/internal/database"
)

// HealthResponse is the health probe payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Services  Services  `json:"services"`
}

// Services reports per-dependency health.
type Services struct {
	Database string `json:"database"`
	Redis    string `json:"redis"`
}

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	db      *database.PostgresDB
	redis   *database.RedisClient
	version string
}

// NewHealthHandler creates the health handler. db and redis may be nil
// when those backends are not configured.
func NewHealthHandler(db *database.PostgresDB, redisClient *database.RedisClient, version string) *HealthHandler {
	return &HealthHandler{db: db, redis: redisClient, version: version}
}

// Health reports overall status, degraded when a dependency is down.
func (h *HealthHandler) Health(c *gin.Context) {
	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   h.version,
		Services: Services{
			Database: "ok",
			Redis:    "ok",
		},
	}

	if h.db != nil {
		if err := h.db.HealthCheck(c.Request.Context()); err != nil {
			response.Services.Database = "error"
			response.Status = "degraded"
		}
	} else {
		response.Services.Database = "disabled"
	}

	if h.redis != nil {
		if err := h.redis.HealthCheck(c.Request.Context()); err != nil {
			response.Services.Redis = "error"
			response.Status = "degraded"
		}
	} else {
		response.Services.Redis = "disabled"
	}

	statusCode := http.StatusOK
	if response.Status == "degraded" {
		statusCode = http.StatusServiceUnavailable
	}
	c.JSON(statusCode, response)
}

// Ready reports readiness: the process can serve plans even with
// degraded backends, so this only fails while dependencies are entirely
// unreachable at startup.
func (h *HealthHandler) Ready(c *gin.Context) {
	if h.db != nil {
		if err := h.db.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"ready": false, "reason": "database unreachable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"ready": true})
}

// Live always reports success while the process is running.
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"alive": true})
}
