package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/andesgrid/bess-dispatch-go/internal/models"
)

// ScheduleCacheEntry wraps a cached dispatch plan with metadata
type ScheduleCacheEntry struct {
	Plan      models.DispatchPlan `json:"plan"`
	CachedAt  time.Time           `json:"cached_at"`
	ExpiresAt time.Time           `json:"expires_at"`
}

// ForecastCacheEntry wraps a cached forecast list with metadata
type ForecastCacheEntry struct {
	Forecasts []models.HourlyPriceForecast `json:"forecasts"`
	CachedAt  time.Time                    `json:"cached_at"`
	ExpiresAt time.Time                    `json:"expires_at"`
}

// ScheduleCacheStats tracks cache performance metrics
type ScheduleCacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Sets   int64 `json:"sets"`
	mu     sync.RWMutex
}

// RedisScheduleCache caches computed dispatch plans and forecasts in
// Redis, keyed by grid node, so repeated dashboard requests inside the
// TTL window never touch the compute path.
type RedisScheduleCache struct {
	redis          *redis.Client
	ttl            time.Duration
	stats          *ScheduleCacheStats
	planPrefix     string
	forecastPrefix string
}

// NewRedisScheduleCache creates a new Redis-based schedule cache
func NewRedisScheduleCache(redisClient *redis.Client, ttl time.Duration) *RedisScheduleCache {
	return &RedisScheduleCache{
		redis:          redisClient,
		ttl:            ttl,
		stats:          &ScheduleCacheStats{},
		planPrefix:     "schedule_cache:",
		forecastPrefix: "forecast_cache:",
	}
}

// GetPlan retrieves a cached dispatch plan for a node
func (c *RedisScheduleCache) GetPlan(ctx context.Context, node string) (*models.DispatchPlan, bool) {
	cacheKey := c.planPrefix + node

	data, err := c.redis.Get(ctx, cacheKey).Result()
	if err == redis.Nil {
		c.recordMiss()
		return nil, false
	}
	if err != nil {
		logrus.WithError(err).WithField("node", node).Warn("Redis error getting cached plan")
		c.recordMiss()
		return nil, false
	}

	var entry ScheduleCacheEntry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		logrus.WithError(err).WithField("node", node).Warn("Error deserializing cached plan")
		c.recordMiss()
		return nil, false
	}

	c.recordHit()
	return &entry.Plan, true
}

// SetPlan stores a dispatch plan for a node with the configured TTL
func (c *RedisScheduleCache) SetPlan(ctx context.Context, node string, plan *models.DispatchPlan) {
	cacheKey := c.planPrefix + node

	now := time.Now()
	entry := ScheduleCacheEntry{
		Plan:      *plan,
		CachedAt:  now,
		ExpiresAt: now.Add(c.ttl),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		logrus.WithError(err).WithField("node", node).Warn("Error serializing plan for cache")
		return
	}

	if err := c.redis.Set(ctx, cacheKey, data, c.ttl).Err(); err != nil {
		logrus.WithError(err).WithField("node", node).Warn("Redis error setting cached plan")
		return
	}

	c.recordSet()
}

// GetForecast retrieves a cached forecast list for a node
func (c *RedisScheduleCache) GetForecast(ctx context.Context, node string) ([]models.HourlyPriceForecast, bool) {
	cacheKey := c.forecastPrefix + node

	data, err := c.redis.Get(ctx, cacheKey).Result()
	if err == redis.Nil {
		c.recordMiss()
		return nil, false
	}
	if err != nil {
		logrus.WithError(err).WithField("node", node).Warn("Redis error getting cached forecast")
		c.recordMiss()
		return nil, false
	}

	var entry ForecastCacheEntry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		logrus.WithError(err).WithField("node", node).Warn("Error deserializing cached forecast")
		c.recordMiss()
		return nil, false
	}

	c.recordHit()
	return entry.Forecasts, true
}

// SetForecast stores a forecast list for a node with the configured TTL
func (c *RedisScheduleCache) SetForecast(ctx context.Context, node string, forecasts []models.HourlyPriceForecast) {
	cacheKey := c.forecastPrefix + node

	now := time.Now()
	entry := ForecastCacheEntry{
		Forecasts: forecasts,
		CachedAt:  now,
		ExpiresAt: now.Add(c.ttl),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		logrus.WithError(err).WithField("node", node).Warn("Error serializing forecast for cache")
		return
	}

	if err := c.redis.Set(ctx, cacheKey, data, c.ttl).Err(); err != nil {
		logrus.WithError(err).WithField("node", node).Warn("Redis error setting cached forecast")
		return
	}

	c.recordSet()
}

// Invalidate removes the cached plan and forecast for one node
func (c *RedisScheduleCache) Invalidate(ctx context.Context, node string) error {
	if err := c.redis.Del(ctx, c.planPrefix+node, c.forecastPrefix+node).Err(); err != nil {
		return fmt.Errorf("error invalidating cache for %s: %w", node, err)
	}
	return nil
}

// Clear removes all cached plans and forecasts
func (c *RedisScheduleCache) Clear(ctx context.Context) error {
	var keys []string
	for _, pattern := range []string{c.planPrefix + "*", c.forecastPrefix + "*"} {
		iter := c.redis.Scan(ctx, 0, pattern, 0).Iterator()
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			return fmt.Errorf("error scanning cache keys: %w", err)
		}
	}

	if len(keys) == 0 {
		return nil
	}

	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("error clearing cache: %w", err)
	}

	logrus.WithField("entries", len(keys)).Info("Schedule cache cleared")
	return nil
}

// CachedNodes returns the nodes that currently have a cached plan
func (c *RedisScheduleCache) CachedNodes(ctx context.Context) ([]string, error) {
	var nodes []string
	iter := c.redis.Scan(ctx, 0, c.planPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if len(key) > len(c.planPrefix) {
			nodes = append(nodes, key[len(c.planPrefix):])
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("error scanning cache keys: %w", err)
	}
	return nodes, nil
}

// GetStats returns current cache statistics
func (c *RedisScheduleCache) GetStats() ScheduleCacheStats {
	c.stats.mu.RLock()
	defer c.stats.mu.RUnlock()
	return ScheduleCacheStats{
		Hits:   c.stats.Hits,
		Misses: c.stats.Misses,
		Sets:   c.stats.Sets,
	}
}

// HitRate returns the cache hit percentage, 0 when nothing was requested
func (c *RedisScheduleCache) HitRate() float64 {
	stats := c.GetStats()
	total := stats.Hits + stats.Misses
	if total == 0 {
		return 0
	}
	return float64(stats.Hits) / float64(total) * 100
}

func (c *RedisScheduleCache) recordHit() {
	c.stats.mu.Lock()
	c.stats.Hits++
	c.stats.mu.Unlock()
}

func (c *RedisScheduleCache) recordMiss() {
	c.stats.mu.Lock()
	c.stats.Misses++
	c.stats.mu.Unlock()
}

func (c *RedisScheduleCache) recordSet() {
	c.stats.mu.Lock()
	c.stats.Sets++
	c.stats.mu.Unlock()
}
