// Package forecast implements the 24-hour spot price predictor: a bounded
// rolling observation history, per-hour exponential smoothing, and an
// optional model-backed inference path with quantile uncertainty bands and
// graceful degradation to the statistical baseline.
package forecast

import (
	"log/slog"
	"math"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/andesgrid/bess-dispatch-go/internal/models"
)

// hourlyMeanPrice is the empirical hourly price profile for the Chilean
// SEN (CLP/kWh, 2023-2024 aggregate). Used as the smoothing seed and as
// the asymptotic baseline for long-horizon forecasts.
var hourlyMeanPrice = [24]float64{
	38.2, 36.1, 34.8, 34.1, 33.9, 35.2, // 00-05 off-peak
	42.1, 58.3, 71.2, 61.4, 48.3, 38.9, // 06-11 morning ramp
	29.4, 24.1, 22.8, 21.3, 22.1, 28.7, // 12-17 solar trough
	44.2, 62.3, 78.4, 71.2, 58.3, 46.1, // 18-23 evening peak
}

// Defaults applied by NewPredictor for zero-valued Config fields.
const (
	DefaultHistoryWindow     = 192 // 8 days hourly, supports the 168h lag
	DefaultAlpha             = 0.3
	DefaultCacheTTL          = 30 * time.Minute
	DefaultInvalidationDelta = 5.0
	DefaultModelPath         = "models/price_predictor.json"
)

// Observer receives side-channel notifications after each forecast
// computation. Implementations must be safe for concurrent use.
type Observer interface {
	ForecastComputed(node, method string, cacheHit bool, duration time.Duration)
}

type nopObserver struct{}

func (nopObserver) ForecastComputed(string, string, bool, time.Duration) {}

// NopObserver returns an Observer that does nothing.
func NopObserver() Observer { return nopObserver{} }

// Config holds Predictor construction parameters. Zero values select the
// documented defaults.
type Config struct {
	Node              string
	ModelPath         string
	ModelP10Path      string
	ModelP90Path      string
	HistoryWindow     int
	Alpha             float64
	CacheTTL          time.Duration
	InvalidationDelta float64
	Logger            *slog.Logger
	Observer          Observer
	Now               func() time.Time
}

type observation struct {
	hour  int
	price float64
}

type forecastCache struct {
	generatedAt time.Time
	forecasts   []models.HourlyPriceForecast
}

// Predictor produces cached 24-hour price forecasts for one grid node.
// All methods are safe for concurrent use.
type Predictor struct {
	node              string
	modelPath         string
	p10Path           string
	p90Path           string
	historyWindow     int
	alpha             float64
	cacheTTL          time.Duration
	invalidationDelta float64

	logger   *slog.Logger
	observer Observer
	now      func() time.Time

	mu             sync.Mutex
	history        []observation
	smooth         [24]float64
	cache          *forecastCache
	session        ModelSession
	sessionP10     ModelSession
	sessionP90     ModelSession
	nFeatures      int
	modelLoaded    bool
	quantileLoaded bool
}

// NewPredictor creates a Predictor seeded with the historic hourly mean
// profile. Call Load before the first Forecast to enable the model path.
func NewPredictor(cfg Config) *Predictor {
	if cfg.Node == "" {
		cfg.Node = "Maitencillo"
	}
	if cfg.ModelPath == "" {
		cfg.ModelPath = DefaultModelPath
	}
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = DefaultHistoryWindow
	}
	if cfg.Alpha == 0 {
		cfg.Alpha = DefaultAlpha
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.InvalidationDelta == 0 {
		cfg.InvalidationDelta = DefaultInvalidationDelta
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Observer == nil {
		cfg.Observer = nopObserver{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	p := &Predictor{
		node:              cfg.Node,
		modelPath:         cfg.ModelPath,
		p10Path:           quantilePath(cfg.ModelPath, cfg.ModelP10Path, "_p10"),
		p90Path:           quantilePath(cfg.ModelPath, cfg.ModelP90Path, "_p90"),
		historyWindow:     cfg.HistoryWindow,
		alpha:             cfg.Alpha,
		cacheTTL:          cfg.CacheTTL,
		invalidationDelta: cfg.InvalidationDelta,
		logger:            cfg.Logger,
		observer:          cfg.Observer,
		now:               cfg.Now,
		nFeatures:         9,
	}
	for h := 0; h < 24; h++ {
		p.smooth[h] = hourlyMeanPrice[h]
	}
	return p
}

// quantilePath derives a quantile artifact path from the base model path
// unless an explicit override is given.
func quantilePath(base, override, suffix string) string {
	if override != "" {
		return override
	}
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext) + suffix + ext
}

// Load attempts to load the point model and, if that succeeds, the two
// quantile models independently. Failure to load is a degraded-but-valid
// state, never an error: the Predictor then runs on smoothing for its
// lifetime.
func (p *Predictor) Load() {
	session, err := LoadModel(p.modelPath)
	if err != nil {
		p.logger.Info("price model unavailable, using smoothing fallback",
			"node", p.node, "path", p.modelPath, "reason", err.Error())
		return
	}

	p.mu.Lock()
	p.session = session
	p.nFeatures = session.NumFeatures()
	p.modelLoaded = true
	p.mu.Unlock()
	p.logger.Info("price model loaded",
		"node", p.node, "path", p.modelPath, "n_features", session.NumFeatures())

	for _, q := range []struct {
		path  string
		label string
		dst   *ModelSession
	}{
		{p.p10Path, "p10", &p.sessionP10},
		{p.p90Path, "p90", &p.sessionP90},
	} {
		qs, qerr := LoadModel(q.path)
		if qerr != nil {
			p.logger.Warn("quantile model unavailable",
				"node", p.node, "label", q.label, "path", q.path, "reason", qerr.Error())
			continue
		}
		p.mu.Lock()
		*q.dst = qs
		p.quantileLoaded = true
		p.mu.Unlock()
		p.logger.Info("quantile model loaded", "node", p.node, "label", q.label, "path", q.path)
	}
}

// Update feeds one observed price, refreshing the smoothing state and
// invalidating the forecast cache on a large price movement.
func (p *Predictor) Update(hour int, price float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updateLocked(hour, price)
}

func (p *Predictor) updateLocked(hour int, price float64) {
	h := normalizeHour(hour)

	if p.cache != nil && len(p.history) > 0 &&
		math.Abs(price-p.history[len(p.history)-1].price) > p.invalidationDelta {
		p.cache = nil
	}

	p.history = append(p.history, observation{hour: h, price: price})
	if len(p.history) > p.historyWindow {
		p.history = p.history[1:]
	}

	p.smooth[h] = p.alpha*price + (1-p.alpha)*p.smooth[h]
}

// InvalidateCache forces a recompute on the next Forecast call.
func (p *Predictor) InvalidateCache() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cache = nil
}

// Forecast returns 24 hourly forecasts ordered by horizon, starting at
// (currentHour+1) mod 24. A non-nil currentPrice is recorded via Update
// first. Results are cached for the configured TTL.
func (p *Predictor) Forecast(currentHour int, currentPrice *float64) []models.HourlyPriceForecast {
	start := time.Now()
	hour := normalizeHour(currentHour)

	p.mu.Lock()
	if currentPrice != nil {
		p.updateLocked(hour, *currentPrice)
	}

	if p.cache != nil && p.now().Sub(p.cache.generatedAt) < p.cacheTTL {
		out := copyForecasts(p.cache.forecasts)
		p.mu.Unlock()
		p.observer.ForecastComputed(p.node, methodOf(out), true, time.Since(start))
		return out
	}

	var result []models.HourlyPriceForecast
	if p.session != nil {
		price := 0.0
		if currentPrice != nil {
			price = *currentPrice
		}
		result = p.modelForecastLocked(hour, price)
	} else {
		result = p.smoothingForecastLocked(hour)
	}
	p.cache = &forecastCache{generatedAt: p.now(), forecasts: result}
	out := copyForecasts(result)
	p.mu.Unlock()

	p.observer.ForecastComputed(p.node, methodOf(out), false, time.Since(start))
	return out
}

// smoothingForecastLocked is the statistical path: per-hour smoothed
// estimates with horizon-decayed confidence, blended toward the historic
// mean beyond 12 hours out.
func (p *Predictor) smoothingForecastLocked(currentHour int) []models.HourlyPriceForecast {
	cv := 0.5
	recent := recentPrices(p.history, 24)
	if len(recent) >= 2 {
		m := mean(recent)
		if m > 0 {
			cv = sampleStdDev(recent, m) / m
		}
	}

	forecasts := make([]models.HourlyPriceForecast, 0, 24)
	for offset := 1; offset <= 24; offset++ {
		h := (currentHour + offset) % 24
		predicted := p.smooth[h]
		decay := math.Exp(-float64(offset) / 12)
		confidence := math.Max(0.1, (1-cv)*decay)

		if offset > 12 {
			w := float64(offset-12) / 12
			predicted = (1-w)*predicted + w*hourlyMeanPrice[h]
		}

		band := predicted * (0.3 - 0.2*confidence)
		forecasts = append(forecasts, models.NewHourlyPriceForecast(
			h, predicted, confidence, models.MethodSmoothing,
			math.Max(0, predicted-band), predicted+band,
		))
	}
	return forecasts
}

// modelForecastLocked is the inference path. A per-hour failure falls
// back to the smoothing value for that hour only, tagged degraded, and
// the loop continues.
func (p *Predictor) modelForecastLocked(currentHour int, currentPrice float64) []models.HourlyPriceForecast {
	recent := recentPrices(p.history, 24)
	if len(recent) == 0 {
		recent = []float64{currentPrice}
	}
	recentMean := mean(recent)
	recentStd := 5.0
	if len(recent) > 1 {
		recentStd = sampleStdDev(recent, recentMean)
	}

	lag1 := currentPrice
	if n := len(p.history); n > 0 {
		lag1 = p.history[n-1].price
	}
	lag24 := recentMean
	if n := len(p.history); n >= 24 {
		lag24 = p.history[n-24].price
	}
	lag168 := recentMean
	if n := len(p.history); n >= 168 {
		lag168 = p.history[n-168].price
	}

	dayOfWeek, weekend := dayOfWeekFeatures(p.now())

	forecasts := make([]models.HourlyPriceForecast, 0, 24)
	for offset := 1; offset <= 24; offset++ {
		h := (currentHour + offset) % 24
		features := p.featureVector(h, dayOfWeek, weekend, recentMean, recentStd, lag1, lag24, lag168)

		raw, err := p.session.Run(features)
		if err != nil {
			p.logger.Warn("inference failed, degrading hour to smoothing",
				"node", p.node, "hour", h, "error", err.Error())
			forecasts = append(forecasts, models.NewHourlyPriceForecast(
				h, p.smooth[h], 0.3, models.MethodDegraded, 0, 0,
			))
			continue
		}

		predicted := math.Max(0, raw)
		confidence := 0.85

		p10, p90 := 0.0, 0.0
		if p.quantileLoaded {
			if v, ok := runQuantile(p.sessionP10, features); ok {
				p10 = v
				if v2, ok2 := runQuantile(p.sessionP90, features); ok2 {
					p90 = v2
				}
			}
			// Narrow bands raise confidence, wide bands lower it
			if predicted > 0 && p90 > p10 {
				bandRatio := (p90 - p10) / predicted
				confidence = math.Max(0.3, math.Min(0.98, 1-bandRatio*0.5))
			}
		}

		forecasts = append(forecasts, models.NewHourlyPriceForecast(
			h, predicted, confidence, models.MethodModel, p10, p90,
		))
	}
	return forecasts
}

// featureVector builds the model input. Layout must stay in sync with the
// offline training pipeline: 11 features for v2 artifacts, 9 for v1.
func (p *Predictor) featureVector(h int, dayOfWeek, weekend, recentMean, recentStd, lag1, lag24, lag168 float64) []float64 {
	peak := 0.0
	if models.IsPeakHour(h) {
		peak = 1.0
	}
	trough := 0.0
	if models.IsTroughHour(h) {
		trough = 1.0
	}

	const socPlaceholder = 50.0
	if p.nFeatures == 11 {
		return []float64{
			socPlaceholder, float64(h), dayOfWeek,
			recentMean, recentStd,
			peak, trough,
			lag1, lag24, lag168, weekend,
		}
	}
	return []float64{
		socPlaceholder, float64(h), dayOfWeek,
		recentMean, recentStd,
		peak, trough,
		lag1, lag24,
	}
}

// ModelLoaded reports whether the point model is active.
func (p *Predictor) ModelLoaded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.modelLoaded
}

// QuantilesLoaded reports whether at least one quantile model is active.
func (p *Predictor) QuantilesLoaded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.quantileLoaded
}

// HistorySize returns the current observation count.
func (p *Predictor) HistorySize() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.history)
}

// CacheAge returns how old the cached forecast is, 0 when no cache exists.
func (p *Predictor) CacheAge() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cache == nil {
		return 0
	}
	return p.now().Sub(p.cache.generatedAt)
}

// Node returns the grid node this predictor serves.
func (p *Predictor) Node() string { return p.node }

// RecentPrices returns up to n most recent observed prices, oldest first.
func (p *Predictor) RecentPrices(n int) []float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return recentPrices(p.history, n)
}

func runQuantile(s ModelSession, features []float64) (float64, bool) {
	if s == nil {
		return 0, false
	}
	v, err := s.Run(features)
	if err != nil {
		return 0, false
	}
	return math.Max(0, v), true
}

// dayOfWeekFeatures maps a timestamp to the training convention:
// Monday = 0 through Sunday = 6, weekend flag for days 5 and 6.
func dayOfWeekFeatures(t time.Time) (dayOfWeek, weekend float64) {
	dow := (int(t.Weekday()) + 6) % 7
	dayOfWeek = float64(dow)
	if dow >= 5 {
		weekend = 1.0
	}
	return dayOfWeek, weekend
}

func normalizeHour(hour int) int {
	return ((hour % 24) + 24) % 24
}

func methodOf(forecasts []models.HourlyPriceForecast) string {
	if len(forecasts) == 0 {
		return ""
	}
	return forecasts[0].Method
}

func copyForecasts(src []models.HourlyPriceForecast) []models.HourlyPriceForecast {
	out := make([]models.HourlyPriceForecast, len(src))
	copy(out, src)
	return out
}

func recentPrices(history []observation, n int) []float64 {
	start := 0
	if len(history) > n {
		start = len(history) - n
	}
	out := make([]float64, 0, len(history)-start)
	for _, obs := range history[start:] {
		out = append(out, obs.price)
	}
	return out
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// sampleStdDev is the n-1 denominator standard deviation.
func sampleStdDev(vals []float64, m float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(vals)-1))
}
