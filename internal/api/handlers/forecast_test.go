package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andesgrid/bess-dispatch-go/internal/models"
)

func forecastRouter(t *testing.T) *gin.Engine {
	t.Helper()
	handler := NewForecastHandler(newTestDispatchService(t))
	router := gin.New()
	router.GET("/forecast", handler.GetForecast)
	return router
}

func TestGetForecast(t *testing.T) {
	router := forecastRouter(t)

	w := performRequest(router, http.MethodGet, "/forecast")
	require.Equal(t, http.StatusOK, w.Code)

	var response models.ForecastResponse
	decodeBody(t, w, &response)
	assert.Equal(t, "Maitencillo", response.Node)
	assert.Equal(t, 24, response.Count)
	require.Len(t, response.Forecasts, 24)
	for _, f := range response.Forecasts {
		assert.GreaterOrEqual(t, f.Hour, 0)
		assert.LessOrEqual(t, f.Hour, 23)
		assert.LessOrEqual(t, f.PriceLow, f.PriceHigh)
		assert.NotEmpty(t, f.Method)
		assert.NotEmpty(t, f.DispatchHint)
	}
}

func TestGetForecast_HourOverride(t *testing.T) {
	router := forecastRouter(t)

	w := performRequest(router, http.MethodGet, "/forecast?hour=8")
	require.Equal(t, http.StatusOK, w.Code)

	var response models.ForecastResponse
	decodeBody(t, w, &response)
	assert.Equal(t, 9, response.Forecasts[0].Hour)
}

func TestGetForecast_PriceOverride(t *testing.T) {
	router := forecastRouter(t)

	w := performRequest(router, http.MethodGet, "/forecast?hour=8&price=44.2")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetForecast_InvalidParams(t *testing.T) {
	router := forecastRouter(t)

	for _, path := range []string{"/forecast?hour=24", "/forecast?hour=-1", "/forecast?hour=abc", "/forecast?price=-3", "/forecast?price=abc"} {
		w := performRequest(router, http.MethodGet, path)
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
	}
}

func TestGetForecast_UnknownNode(t *testing.T) {
	router := forecastRouter(t)

	w := performRequest(router, http.MethodGet, "/forecast?node=Quillota")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
