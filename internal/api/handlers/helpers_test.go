package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/andesgrid/bess-dispatch-go/internal/config"
	"github.com/andesgrid/bess-dispatch-go/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestConfig() *config.Config {
	return &config.Config{
		Environment: "test",
		Site:        config.SiteConfig{ID: "edge-001", Nodes: []string{"Maitencillo"}},
		Forecast: config.ForecastConfig{
			HistoryWindow:     192,
			SmoothingAlpha:    0.3,
			CacheTTL:          "30m",
			InvalidationDelta: 5.0,
		},
		Dispatch: config.DispatchConfig{
			CapacityKwh:       1000,
			MaxPowerKw:        500,
			MinSocPct:         10,
			MaxSocPct:         95,
			Efficiency:        0.92,
			MaxChargeHours:    6,
			MaxDischargeHours: 4,
			MinConfidence:     0.4,
			MinSpread:         30,
			RecomputeInterval: "1h",
			ScheduleCacheTTL:  "15m",
		},
		Economics: config.EconomicsConfig{
			CapexUSD:      720000,
			USDRate:       950,
			OperatingDays: 350,
		},
	}
}

func newTestDispatchService(t *testing.T) *services.DispatchService {
	t.Helper()
	ds := services.NewDispatchService(context.Background(), newTestConfig(), nil, nil, nil, nil, nil)
	t.Cleanup(ds.Stop)
	return ds
}

func performRequest(router *gin.Engine, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}

func performJSONRequest(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}
