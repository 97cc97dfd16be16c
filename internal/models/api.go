package models

import "time"

// ScheduleRequest represents query parameters for the schedule endpoint
type ScheduleRequest struct {
	Node        string  `json:"node" form:"node"`
	CapacityKwh float64 `json:"capacity_kwh" form:"capacity_kwh"`
	MaxPowerKw  float64 `json:"max_power_kw" form:"max_power_kw"`
	Soc         float64 `json:"soc" form:"soc"`
}

// ScheduleResponse wraps a dispatch plan with cache metadata
type ScheduleResponse struct {
	Plan        DispatchPlan `json:"plan"`
	Cached      bool         `json:"cached"`
	GeneratedAt time.Time    `json:"generated_at"`
}

// ForecastRequest represents query parameters for the forecast endpoint
type ForecastRequest struct {
	Node  string   `json:"node" form:"node"`
	Hour  *int     `json:"hour" form:"hour"`
	Price *float64 `json:"price" form:"price"`
}

// HourlyForecastResponse is one forecast hour with its derived fields
type HourlyForecastResponse struct {
	Hour         int     `json:"hour"`
	Price        float64 `json:"price"`
	PriceLow     float64 `json:"price_low"`
	PriceHigh    float64 `json:"price_high"`
	Confidence   float64 `json:"confidence"`
	Method       string  `json:"method"`
	IsPeak       bool    `json:"is_peak"`
	IsTrough     bool    `json:"is_trough"`
	BandWidth    float64 `json:"band_width"`
	DispatchHint string  `json:"dispatch_hint"`
}

// NewHourlyForecastResponse flattens a forecast and its derived fields.
func NewHourlyForecastResponse(f HourlyPriceForecast) HourlyForecastResponse {
	return HourlyForecastResponse{
		Hour:         f.Hour,
		Price:        f.Price,
		PriceLow:     f.PriceLow,
		PriceHigh:    f.PriceHigh,
		Confidence:   f.Confidence,
		Method:       f.Method,
		IsPeak:       f.IsPeakHour(),
		IsTrough:     f.IsTroughHour(),
		BandWidth:    f.BandWidth(),
		DispatchHint: f.DispatchHint(),
	}
}

// ForecastResponse represents the forecast list for API responses
type ForecastResponse struct {
	Node        string                   `json:"node"`
	Forecasts   []HourlyForecastResponse `json:"forecasts"`
	Count       int                      `json:"count"`
	Cached      bool                     `json:"cached"`
	GeneratedAt time.Time                `json:"generated_at"`
}

// StatusResponse represents the site snapshot for the status endpoint
type StatusResponse struct {
	Service         string                 `json:"service"`
	Version         string                 `json:"version"`
	Environment     string                 `json:"environment"`
	SiteID          string                 `json:"site_id"`
	Nodes           []string               `json:"nodes"`
	UptimeSeconds   float64                `json:"uptime_seconds"`
	ModelLoaded     bool                   `json:"model_loaded"`
	QuantilesLoaded bool                   `json:"quantiles_loaded"`
	HistorySize     int                    `json:"history_size"`
	CacheAgeSeconds float64                `json:"cache_age_seconds"`
	Collector       map[string]interface{} `json:"collector,omitempty"`
	Process         map[string]interface{} `json:"process,omitempty"`
	Timestamp       time.Time              `json:"timestamp"`
}

// AnalysisResponse summarizes recent price history with indicator values
type AnalysisResponse struct {
	Node       string    `json:"node"`
	Window     int       `json:"window"`
	MeanPrice  float64   `json:"mean_price"`
	StdDev     float64   `json:"stddev"`
	MinPrice   float64   `json:"min_price"`
	MaxPrice   float64   `json:"max_price"`
	LastPrice  float64   `json:"last_price"`
	Sma        float64   `json:"sma"`
	Ema        float64   `json:"ema"`
	Rsi        float64   `json:"rsi"`
	Volatility float64   `json:"volatility"`
	Trend      string    `json:"trend"`
	Timestamp  time.Time `json:"timestamp"`
}

// AlertsResponse represents the active alert list
type AlertsResponse struct {
	Alerts    []*Alert  `json:"alerts"`
	Count     int       `json:"count"`
	Critical  int       `json:"critical"`
	Warning   int       `json:"warning"`
	Timestamp time.Time `json:"timestamp"`
}

// TokenRequest represents an API-key-for-JWT exchange request
type TokenRequest struct {
	APIKey string `json:"api_key" binding:"required"`
}

// TokenResponse represents an issued JWT
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// VersionResponse represents build information
type VersionResponse struct {
	Service   string `json:"service"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	BuiltAt   string `json:"built_at,omitempty"`
}

// ErrorResponse represents a standard API error body
type ErrorResponse struct {
	Error string `json:"error"`
}
