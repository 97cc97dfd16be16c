package models

import (
	"fmt"
	"math"
	"time"
)

// DispatchSlot is one hour of a dispatch plan. Power is signed: positive
// while charging (drawing from the grid), negative while discharging.
type DispatchSlot struct {
	Hour       int     `json:"hour"`
	Action     string  `json:"action"`
	Power      float64 `json:"power"`
	Price      float64 `json:"price"`
	PriceLow   float64 `json:"price_low"`
	PriceHigh  float64 `json:"price_high"`
	Confidence float64 `json:"confidence"`
	SocBefore  float64 `json:"soc_before"`
	SocAfter   float64 `json:"soc_after"`
	Revenue    float64 `json:"revenue"`
	IsPeak     bool    `json:"is_peak"`
}

// NewDispatchSlot builds a slot from its forecast, rounding power and SOC
// to one decimal and revenue to a whole currency unit.
func NewDispatchSlot(forecast HourlyPriceForecast, action string, power, socBefore, socAfter, revenue float64) DispatchSlot {
	return DispatchSlot{
		Hour:       forecast.Hour,
		Action:     action,
		Power:      Round1(power),
		Price:      forecast.Price,
		PriceLow:   forecast.PriceLow,
		PriceHigh:  forecast.PriceHigh,
		Confidence: Round3(forecast.Confidence),
		SocBefore:  Round1(socBefore),
		SocAfter:   Round1(socAfter),
		Revenue:    math.Round(revenue),
		IsPeak:     forecast.IsPeakHour(),
	}
}

// DispatchPlan is a complete 24-hour dispatch schedule with projected
// economics. Slots are ordered by hour.
type DispatchPlan struct {
	Node             string         `json:"node"`
	Capacity         float64        `json:"capacity"`
	Efficiency       float64        `json:"efficiency"`
	ProjectedRevenue float64        `json:"projected_revenue"`
	ProjectedCost    float64        `json:"projected_cost"`
	ProjectedNet     float64        `json:"projected_net"`
	NChargeHours     int            `json:"n_charge_hours"`
	NDischargeHours  int            `json:"n_discharge_hours"`
	HourlySchedule   []DispatchSlot `json:"hourly_schedule"`
	GeneratedAt      time.Time      `json:"generated_at"`
}

// Summary returns a compact human-readable rendering for logs and reports.
func (p DispatchPlan) Summary() string {
	return fmt.Sprintf(
		"DispatchPlan %s: charge %dh, discharge %dh, revenue %.0f, cost %.0f, net %.0f",
		p.Node, p.NChargeHours, p.NDischargeHours,
		p.ProjectedRevenue, p.ProjectedCost, p.ProjectedNet,
	)
}

// IsAllHold reports whether the plan trades at all.
func (p DispatchPlan) IsAllHold() bool {
	for _, slot := range p.HourlySchedule {
		if slot.Action != ActionHold {
			return false
		}
	}
	return true
}
