package spot

import "time"

// SpotPrice is one marginal-cost observation published by the feed.
type SpotPrice struct {
	Node       string    `json:"node"`
	Hour       int       `json:"hour"`
	PriceKwh   float64   `json:"price_kwh"`
	Currency   string    `json:"currency"`
	ObservedAt time.Time `json:"observed_at"`
}

// LatestResponse is the feed's answer for the most recent price at a node.
type LatestResponse struct {
	Success bool      `json:"success"`
	Price   SpotPrice `json:"price"`
}

// DayResponse is the feed's answer for one calendar day of hourly prices.
type DayResponse struct {
	Success bool        `json:"success"`
	Node    string      `json:"node"`
	Date    string      `json:"date"`
	Prices  []SpotPrice `json:"prices"`
}

// HealthResponse is the feed's health probe payload.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// ErrorResponse is the feed's error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}
