package forecast

import (
	"sort"

	"github.com/andesgrid/bess-dispatch-go/internal/models"
)

// windowSize is how many hours the best-window helpers return.
const windowSize = 4

// BestChargeWindow returns the hours most suitable for charging: hinted
// charge hours ranked by lowest price, then highest confidence.
func BestChargeWindow(forecasts []models.HourlyPriceForecast) []int {
	candidates := filterByHint(forecasts, models.ActionCharge)
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Price != candidates[j].Price {
			return candidates[i].Price < candidates[j].Price
		}
		return candidates[i].Confidence > candidates[j].Confidence
	})
	return hoursOf(candidates, windowSize)
}

// BestDischargeWindow returns the hours most suitable for discharging:
// hinted discharge hours ranked by highest price, then highest confidence.
func BestDischargeWindow(forecasts []models.HourlyPriceForecast) []int {
	candidates := filterByHint(forecasts, models.ActionDischarge)
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Price != candidates[j].Price {
			return candidates[i].Price > candidates[j].Price
		}
		return candidates[i].Confidence > candidates[j].Confidence
	})
	return hoursOf(candidates, windowSize)
}

// ProjectedRevenue estimates daily arbitrage revenue using point-estimate
// prices: one full cycle charged at the cheapest hour and discharged at
// the most expensive.
func ProjectedRevenue(forecasts []models.HourlyPriceForecast, capacityKwh, efficiency float64) float64 {
	if len(forecasts) == 0 {
		return 0
	}
	minPrice := forecasts[0].Price
	maxPrice := forecasts[0].Price
	for _, f := range forecasts[1:] {
		if f.Price < minPrice {
			minPrice = f.Price
		}
		if f.Price > maxPrice {
			maxPrice = f.Price
		}
	}
	dispatched := capacityKwh * efficiency
	return models.Round2(dispatched*maxPrice - capacityKwh*minPrice)
}

// ProjectedRevenueConservative estimates revenue with worst-case bands:
// charging at the highest p90 anywhere, discharging at the lowest p10
// among peak hours. Zero discharge price when no peak hour is present.
func ProjectedRevenueConservative(forecasts []models.HourlyPriceForecast, capacityKwh, efficiency float64) float64 {
	if len(forecasts) == 0 {
		return 0
	}
	chargePrice := 0.0
	for _, f := range forecasts {
		if f.PriceHigh > chargePrice {
			chargePrice = f.PriceHigh
		}
	}
	dischargePrice := 0.0
	first := true
	for _, f := range forecasts {
		if !f.IsPeakHour() {
			continue
		}
		if first || f.PriceLow < dischargePrice {
			dischargePrice = f.PriceLow
			first = false
		}
	}
	energy := capacityKwh * efficiency
	return models.Round2(energy*dischargePrice - capacityKwh*chargePrice)
}

func filterByHint(forecasts []models.HourlyPriceForecast, hint string) []models.HourlyPriceForecast {
	out := make([]models.HourlyPriceForecast, 0, len(forecasts))
	for _, f := range forecasts {
		if f.DispatchHint() == hint {
			out = append(out, f)
		}
	}
	return out
}

func hoursOf(forecasts []models.HourlyPriceForecast, limit int) []int {
	if len(forecasts) > limit {
		forecasts = forecasts[:limit]
	}
	hours := make([]int, 0, len(forecasts))
	for _, f := range forecasts {
		hours = append(hours, f.Hour)
	}
	return hours
}
