package models

import "math"

// Forecast method tags identifying which estimation tier produced a value.
const (
	MethodModel        = "model"
	MethodSmoothing    = "smoothing"
	MethodHistoricMean = "historic_mean"
	MethodDegraded     = "degraded"
)

// Dispatch actions for one schedule slot.
const (
	ActionCharge    = "charge"
	ActionDischarge = "discharge"
	ActionHold      = "hold"
)

// Price thresholds for the quick dispatch hint (CLP/kWh).
const (
	dispatchHighPrice = 50.0
	dispatchLowPrice  = 30.0
)

// peakHours are the SEN evening demand peak; troughHours are the midday
// hours where solar generation typically depresses spot prices.
var (
	peakHours   = map[int]bool{18: true, 19: true, 20: true, 21: true, 22: true}
	troughHours = map[int]bool{11: true, 12: true, 13: true, 14: true, 15: true, 16: true}
)

// IsPeakHour reports whether hour falls in the fixed evening peak window.
func IsPeakHour(hour int) bool {
	return peakHours[hour]
}

// IsTroughHour reports whether hour falls in the fixed solar trough window.
func IsTroughHour(hour int) bool {
	return troughHours[hour]
}

// HourlyPriceForecast represents a single-hour spot price forecast with
// uncertainty bands
type HourlyPriceForecast struct {
	Hour       int     `json:"hour"`
	Price      float64 `json:"price"`
	PriceLow   float64 `json:"price_low"`
	PriceHigh  float64 `json:"price_high"`
	Confidence float64 `json:"confidence"`
	Method     string  `json:"method"`
}

// NewHourlyPriceForecast constructs a forecast, applying the default
// ±15% uncertainty band for any bound not supplied by a quantile model.
func NewHourlyPriceForecast(hour int, price, confidence float64, method string, priceLow, priceHigh float64) HourlyPriceForecast {
	f := HourlyPriceForecast{
		Hour:       hour,
		Price:      Round2(price),
		PriceLow:   Round2(priceLow),
		PriceHigh:  Round2(priceHigh),
		Confidence: Round3(confidence),
		Method:     method,
	}
	if f.PriceHigh == 0 {
		f.PriceHigh = Round2(f.Price * 1.15)
	}
	if f.PriceLow == 0 {
		f.PriceLow = Round2(f.Price * 0.85)
	}
	return f
}

// IsPeakHour reports whether this forecast covers an evening peak hour.
func (f HourlyPriceForecast) IsPeakHour() bool {
	return IsPeakHour(f.Hour)
}

// IsTroughHour reports whether this forecast covers a solar trough hour.
func (f HourlyPriceForecast) IsTroughHour() bool {
	return IsTroughHour(f.Hour)
}

// BandWidth returns the p90 - p10 uncertainty band width.
func (f HourlyPriceForecast) BandWidth() float64 {
	return Round2(f.PriceHigh - f.PriceLow)
}

// IsHighConfidence reports whether the uncertainty band is below 20% of
// the point estimate. Always false for non-positive prices.
func (f HourlyPriceForecast) IsHighConfidence() bool {
	if f.Price <= 0 {
		return false
	}
	return (f.BandWidth() / f.Price) < 0.20
}

// DispatchHint returns a quick scheduling label: discharge on expensive
// peak hours, charge on cheap trough hours, hold otherwise.
func (f HourlyPriceForecast) DispatchHint() string {
	if f.IsPeakHour() && f.Price > dispatchHighPrice {
		return ActionDischarge
	}
	if f.IsTroughHour() && f.Price < dispatchLowPrice {
		return ActionCharge
	}
	return ActionHold
}

// Round2 rounds to two decimal places (prices and bands).
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Round3 rounds to three decimal places (confidence values).
func Round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// Round1 rounds to one decimal place (power and SOC percentages).
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}
