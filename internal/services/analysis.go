package services

import (
	"math"
	"time"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/momentum"
	"github.com/cinar/indicator/v2/trend"

	"github.com/andesgrid/bess-dispatch-go/internal/models"
	"github.com/andesgrid/bess-dispatch-go/internal/utils"
)

const (
	analysisWindow   = 48
	indicatorPeriod  = 14
	minAnalysisRows  = 4
	trendDeadbandPct = 0.5
)

// PriceHistory supplies recent observed prices for one node, oldest first.
type PriceHistory interface {
	RecentPrices(node string, n int) ([]float64, error)
}

// AnalysisService computes technical indicators over recent spot prices.
// The indicators are advisory: the scheduler never reads them, operators
// do.
type AnalysisService struct {
	history PriceHistory
}

// NewAnalysisService creates an analysis service over a price history.
func NewAnalysisService(history PriceHistory) *AnalysisService {
	return &AnalysisService{history: history}
}

// Analyze summarizes the recent price window for a node with SMA, EMA,
// RSI, and realized volatility.
func (as *AnalysisService) Analyze(node string) (*models.AnalysisResponse, error) {
	prices, err := as.history.RecentPrices(node, analysisWindow)
	if err != nil {
		return nil, err
	}
	if len(prices) < minAnalysisRows {
		return nil, utils.NewValidationErrorf("insufficient history for node %s: %d prices", node, len(prices))
	}

	m := meanOf(prices)
	sd := stdDevOf(prices, m)
	low, high := prices[0], prices[0]
	for _, p := range prices {
		low = math.Min(low, p)
		high = math.Max(high, p)
	}
	last := prices[len(prices)-1]

	sma := lastIndicatorValue(computeSma(prices), last)
	ema := lastIndicatorValue(computeEma(prices), last)
	rsi := lastIndicatorValue(computeRsi(prices), 50)

	return &models.AnalysisResponse{
		Node:       node,
		Window:     len(prices),
		MeanPrice:  models.Round2(m),
		StdDev:     models.Round2(sd),
		MinPrice:   models.Round2(low),
		MaxPrice:   models.Round2(high),
		LastPrice:  models.Round2(last),
		Sma:        models.Round2(sma),
		Ema:        models.Round2(ema),
		Rsi:        models.Round2(rsi),
		Volatility: models.Round3(realizedVolatility(prices)),
		Trend:      trendLabel(last, sma),
		Timestamp:  time.Now(),
	}, nil
}

func computeSma(prices []float64) []float64 {
	period := indicatorPeriod
	if period > len(prices) {
		period = len(prices)
	}
	sma := trend.NewSmaWithPeriod[float64](period)
	return helper.ChanToSlice(sma.Compute(helper.SliceToChan(prices)))
}

func computeEma(prices []float64) []float64 {
	period := indicatorPeriod
	if period > len(prices) {
		period = len(prices)
	}
	ema := trend.NewEmaWithPeriod[float64](period)
	return helper.ChanToSlice(ema.Compute(helper.SliceToChan(prices)))
}

func computeRsi(prices []float64) []float64 {
	if len(prices) <= indicatorPeriod {
		return nil
	}
	rsi := momentum.NewRsiWithPeriod[float64](indicatorPeriod)
	return helper.ChanToSlice(rsi.Compute(helper.SliceToChan(prices)))
}

func lastIndicatorValue(values []float64, fallback float64) float64 {
	if len(values) == 0 {
		return fallback
	}
	v := values[len(values)-1]
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return v
}

// realizedVolatility is the standard deviation of hour-over-hour returns.
func realizedVolatility(prices []float64) float64 {
	var returns []float64
	for i := 1; i < len(prices); i++ {
		if prices[i-1] != 0 {
			returns = append(returns, (prices[i]-prices[i-1])/prices[i-1])
		}
	}
	if len(returns) == 0 {
		return 0
	}
	m := meanOf(returns)
	return stdDevOf(returns, m)
}

func trendLabel(last, sma float64) string {
	if sma == 0 {
		return "flat"
	}
	deviation := (last - sma) / sma * 100
	switch {
	case deviation > trendDeadbandPct:
		return "rising"
	case deviation < -trendDeadbandPct:
		return "falling"
	default:
		return "flat"
	}
}

func meanOf(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func stdDevOf(vals []float64, m float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += (v - m) * (v - m)
	}
	return math.Sqrt(sum / float64(len(vals)-1))
}
