package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Observation sources.
const (
	SourceFeed   = "feed"
	SourceCSV    = "csv"
	SourceManual = "manual"
)

// PriceObservation represents one observed spot price stored in the database
type PriceObservation struct {
	ID         int64           `json:"id" db:"id"`
	Node       string          `json:"node" db:"node"`
	Hour       int             `json:"hour" db:"hour"`
	Price      decimal.Decimal `json:"price" db:"price"`
	Source     string          `json:"source" db:"source"`
	ObservedAt time.Time       `json:"observed_at" db:"observed_at"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

// StoredDispatchPlan is the persisted form of a computed plan: summary
// columns for querying plus the full schedule as JSONB.
type StoredDispatchPlan struct {
	ID               string          `json:"id" db:"id"`
	Node             string          `json:"node" db:"node"`
	CapacityKwh      decimal.Decimal `json:"capacity_kwh" db:"capacity_kwh"`
	Efficiency       decimal.Decimal `json:"efficiency" db:"efficiency"`
	ProjectedRevenue decimal.Decimal `json:"projected_revenue" db:"projected_revenue"`
	ProjectedCost    decimal.Decimal `json:"projected_cost" db:"projected_cost"`
	ProjectedNet     decimal.Decimal `json:"projected_net" db:"projected_net"`
	NChargeHours     int             `json:"n_charge_hours" db:"n_charge_hours"`
	NDischargeHours  int             `json:"n_discharge_hours" db:"n_discharge_hours"`
	Schedule         []byte          `json:"-" db:"schedule"`
	GeneratedAt      time.Time       `json:"generated_at" db:"generated_at"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
}

// NodePriceStats aggregates stored observations for one node over a window
type NodePriceStats struct {
	Node         string          `json:"node" db:"node"`
	Count        int64           `json:"count" db:"count"`
	MeanPrice    decimal.Decimal `json:"mean_price" db:"mean_price"`
	StdDevPrice  decimal.Decimal `json:"stddev_price" db:"stddev_price"`
	MinPrice     decimal.Decimal `json:"min_price" db:"min_price"`
	MaxPrice     decimal.Decimal `json:"max_price" db:"max_price"`
	FirstSeen    time.Time       `json:"first_seen" db:"first_seen"`
	LastSeen     time.Time       `json:"last_seen" db:"last_seen"`
	LastPrice    decimal.Decimal `json:"last_price" db:"last_price"`
	LastObserved time.Time       `json:"last_observed" db:"last_observed"`
}
