package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andesgrid/bess-dispatch-go/internal/models"
)

func scheduleRouter(t *testing.T) (*gin.Engine, *ScheduleHandler) {
	t.Helper()
	handler := NewScheduleHandler(newTestDispatchService(t))
	router := gin.New()
	router.GET("/schedule", handler.GetSchedule)
	router.POST("/soc", handler.UpdateSoc)
	return router, handler
}

func TestGetSchedule(t *testing.T) {
	router, _ := scheduleRouter(t)

	w := performRequest(router, http.MethodGet, "/schedule")
	require.Equal(t, http.StatusOK, w.Code)

	var response models.ScheduleResponse
	decodeBody(t, w, &response)
	assert.Equal(t, "Maitencillo", response.Plan.Node)
	assert.Len(t, response.Plan.HourlySchedule, 24)
	assert.False(t, response.Cached)
	assert.False(t, response.GeneratedAt.IsZero())
}

func TestGetSchedule_ExplicitNode(t *testing.T) {
	router, _ := scheduleRouter(t)

	w := performRequest(router, http.MethodGet, "/schedule?node=Maitencillo&soc=35")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetSchedule_UnknownNode(t *testing.T) {
	router, _ := scheduleRouter(t)

	w := performRequest(router, http.MethodGet, "/schedule?node=Quillota")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "unknown node")
}

func TestGetSchedule_InvalidSoc(t *testing.T) {
	router, _ := scheduleRouter(t)

	w := performRequest(router, http.MethodGet, "/schedule?soc=150")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetSchedule_CapacityOverride(t *testing.T) {
	router, _ := scheduleRouter(t)

	w := performRequest(router, http.MethodGet, "/schedule?capacity_kwh=2000&max_power_kw=800")
	require.Equal(t, http.StatusOK, w.Code)

	var response models.ScheduleResponse
	decodeBody(t, w, &response)
	assert.InDelta(t, 2000, response.Plan.Capacity, 0.001)
}

func TestUpdateSoc(t *testing.T) {
	router, handler := scheduleRouter(t)

	w := performRequest(router, http.MethodPost, "/soc?soc=72.5")
	require.Equal(t, http.StatusOK, w.Code)
	assert.InDelta(t, 72.5, handler.dispatch.Soc("Maitencillo"), 0.001)
}

func TestUpdateSoc_Invalid(t *testing.T) {
	router, _ := scheduleRouter(t)

	for _, path := range []string{"/soc", "/soc?soc=abc", "/soc?soc=-5", "/soc?soc=101"} {
		w := performRequest(router, http.MethodPost, path)
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
	}
}

func TestUpdateSoc_UnknownNode(t *testing.T) {
	router, _ := scheduleRouter(t)

	w := performRequest(router, http.MethodPost, "/soc?node=Quillota&soc=50")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
