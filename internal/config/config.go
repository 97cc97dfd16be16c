package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

type Config struct {
	Environment string          `mapstructure:"environment"`
	LogLevel    string          `mapstructure:"log_level"`
	Server      ServerConfig    `mapstructure:"server"`
	Site        SiteConfig      `mapstructure:"site"`
	Database    DatabaseConfig  `mapstructure:"database"`
	Redis       RedisConfig     `mapstructure:"redis"`
	Feed        FeedConfig      `mapstructure:"feed"`
	Telegram    TelegramConfig  `mapstructure:"telegram"`
	Collector   CollectorConfig `mapstructure:"collector"`
	Cleanup     CleanupConfig   `mapstructure:"cleanup"`
	Forecast    ForecastConfig  `mapstructure:"forecast"`
	Dispatch    DispatchConfig  `mapstructure:"dispatch"`
	Economics   EconomicsConfig `mapstructure:"economics"`
	Security    SecurityConfig  `mapstructure:"security"`
	Telemetry   TelemetryConfig `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type SiteConfig struct {
	ID    string   `mapstructure:"id"`
	Nodes []string `mapstructure:"nodes"`
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	DatabaseURL     string `mapstructure:"database_url"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime string `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime string `mapstructure:"conn_max_idle_time"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type FeedConfig struct {
	ServiceURL string `mapstructure:"service_url"`
	Timeout    int    `mapstructure:"timeout"`
}

type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

type CollectorConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	CollectionInterval string `mapstructure:"collection_interval"`
	HistorySeedRows    int    `mapstructure:"history_seed_rows"`
}

type CleanupConfig struct {
	ObservationRetentionDays int `mapstructure:"observation_retention_days"`
	CleanupIntervalMinutes   int `mapstructure:"cleanup_interval_minutes"`
}

type ForecastConfig struct {
	ModelPath         string  `mapstructure:"model_path"`
	ModelP10Path      string  `mapstructure:"model_p10_path"`
	ModelP90Path      string  `mapstructure:"model_p90_path"`
	HistoryWindow     int     `mapstructure:"history_window"`
	SmoothingAlpha    float64 `mapstructure:"smoothing_alpha"`
	CacheTTL          string  `mapstructure:"cache_ttl"`
	InvalidationDelta float64 `mapstructure:"invalidation_delta"`
}

type DispatchConfig struct {
	CapacityKwh       float64 `mapstructure:"capacity_kwh"`
	MaxPowerKw        float64 `mapstructure:"max_power_kw"`
	MinSocPct         float64 `mapstructure:"min_soc_pct"`
	MaxSocPct         float64 `mapstructure:"max_soc_pct"`
	Efficiency        float64 `mapstructure:"efficiency"`
	MaxChargeHours    int     `mapstructure:"max_charge_hours"`
	MaxDischargeHours int     `mapstructure:"max_discharge_hours"`
	MinConfidence     float64 `mapstructure:"min_confidence"`
	MinSpread         float64 `mapstructure:"min_spread"`
	RecomputeInterval string  `mapstructure:"recompute_interval"`
	ScheduleCacheTTL  string  `mapstructure:"schedule_cache_ttl"`
}

type EconomicsConfig struct {
	CapexUSD       float64 `mapstructure:"capex_usd"`
	USDRate        float64 `mapstructure:"usd_rate"`
	OperatingDays  int     `mapstructure:"operating_days"`
	DegradationUSD float64 `mapstructure:"degradation_usd"`
}

type SecurityConfig struct {
	APIKeyHash  string `mapstructure:"api_key_hash" json:"-" yaml:"-"`
	AdminAPIKey string `mapstructure:"admin_api_key" json:"-" yaml:"-"`
	JWTSecret   string `mapstructure:"jwt_secret" json:"-" yaml:"-"`
	JWTExpiry   string `mapstructure:"jwt_expiry"`
	BcryptCost  int    `mapstructure:"bcrypt_cost"`
}

type TelemetryConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SampleRate   float64 `mapstructure:"sample_rate"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	// Set default values
	setDefaults()

	// Enable environment variable support
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Bind specific environment variables
	envBindings := map[string]string{
		"security.jwt_secret":    "JWT_SECRET",
		"security.api_key_hash":  "API_KEY_HASH",
		"security.admin_api_key": "ADMIN_API_KEY",
		"telegram.bot_token":     "TELEGRAM_BOT_TOKEN",
		"telegram.chat_id":       "TELEGRAM_CHAT_ID",
		"database.database_url":  "DATABASE_URL",
	}
	for key, env := range envBindings {
		if err := viper.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s environment variable: %w", env, err)
		}
	}

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		// Config file not found, use defaults and environment variables
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Normalize environment to lowercase for consistent comparison
	environment := strings.ToLower(config.Environment)

	// Validate JWT secret in non-development environments
	if environment != "development" && config.Security.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET environment variable is required in non-development environments")
	}

	// Validate JWT expiry duration
	if config.Security.JWTExpiry != "" {
		if _, err := time.ParseDuration(config.Security.JWTExpiry); err != nil {
			return nil, fmt.Errorf("invalid JWT expiry duration: %w", err)
		}
	}

	// Validate bcrypt cost parameter
	if config.Security.BcryptCost < bcrypt.MinCost || config.Security.BcryptCost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost must be between %d and %d, got %d",
			bcrypt.MinCost, bcrypt.MaxCost, config.Security.BcryptCost)
	}

	// Validate duration strings used by background loops
	for key, value := range map[string]string{
		"forecast.cache_ttl":            config.Forecast.CacheTTL,
		"dispatch.recompute_interval":   config.Dispatch.RecomputeInterval,
		"dispatch.schedule_cache_ttl":   config.Dispatch.ScheduleCacheTTL,
		"collector.collection_interval": config.Collector.CollectionInterval,
	} {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return nil, fmt.Errorf("invalid duration for %s: %w", key, err)
		}
	}

	if err := validateForecast(&config.Forecast); err != nil {
		return nil, err
	}
	if err := validateDispatch(&config.Dispatch); err != nil {
		return nil, err
	}

	// Update config with normalized environment
	config.Environment = environment

	return &config, nil
}

func validateForecast(fc *ForecastConfig) error {
	if fc.SmoothingAlpha < 0 || fc.SmoothingAlpha > 1 {
		return fmt.Errorf("forecast smoothing alpha must be in [0, 1], got %v", fc.SmoothingAlpha)
	}
	if fc.HistoryWindow <= 0 {
		return fmt.Errorf("forecast history window must be positive, got %d", fc.HistoryWindow)
	}
	if fc.InvalidationDelta < 0 {
		return fmt.Errorf("forecast invalidation delta must be non-negative, got %v", fc.InvalidationDelta)
	}
	return nil
}

func validateDispatch(dc *DispatchConfig) error {
	if dc.Efficiency <= 0 || dc.Efficiency > 1 {
		return fmt.Errorf("dispatch efficiency must be in (0, 1], got %v", dc.Efficiency)
	}
	if dc.MinSocPct < 0 || dc.MaxSocPct > 100 || dc.MinSocPct >= dc.MaxSocPct {
		return fmt.Errorf("dispatch SOC bounds must satisfy 0 <= min < max <= 100, got [%v, %v]",
			dc.MinSocPct, dc.MaxSocPct)
	}
	if dc.MinConfidence < 0 || dc.MinConfidence > 1 {
		return fmt.Errorf("dispatch min confidence must be in [0, 1], got %v", dc.MinConfidence)
	}
	if dc.CapacityKwh <= 0 || dc.MaxPowerKw <= 0 {
		return fmt.Errorf("dispatch capacity and max power must be positive, got %v kWh / %v kW",
			dc.CapacityKwh, dc.MaxPowerKw)
	}
	return nil
}

// GetServiceURL returns the configured spot feed base URL.
func (fc FeedConfig) GetServiceURL() string {
	return fc.ServiceURL
}

// GetTimeout returns the feed HTTP timeout in seconds.
func (fc FeedConfig) GetTimeout() int {
	return fc.Timeout
}

// CacheTTLDuration returns the parsed forecast cache TTL.
func (fc ForecastConfig) CacheTTLDuration() time.Duration {
	d, err := time.ParseDuration(fc.CacheTTL)
	if err != nil || d <= 0 {
		return 30 * time.Minute
	}
	return d
}

// ScheduleCacheTTLDuration returns the parsed schedule response cache TTL.
func (dc DispatchConfig) ScheduleCacheTTLDuration() time.Duration {
	d, err := time.ParseDuration(dc.ScheduleCacheTTL)
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}

func setDefaults() {
	// Environment
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")

	// Server
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	// Site
	viper.SetDefault("site.id", "edge-001")
	viper.SetDefault("site.nodes", []string{"Maitencillo"})

	// Set database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.dbname", "bess_dispatch")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.database_url", "")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", "300s")
	viper.SetDefault("database.conn_max_idle_time", "60s")

	// Redis
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// Spot price feed
	viper.SetDefault("feed.service_url", "http://localhost:3001")
	viper.SetDefault("feed.timeout", 30)

	// Telegram
	viper.SetDefault("telegram.bot_token", "")
	viper.SetDefault("telegram.chat_id", "")

	// Collector
	viper.SetDefault("collector.enabled", true)
	viper.SetDefault("collector.collection_interval", "5m")
	viper.SetDefault("collector.history_seed_rows", 192)

	// Cleanup
	viper.SetDefault("cleanup.observation_retention_days", 30)
	viper.SetDefault("cleanup.cleanup_interval_minutes", 60)

	// Forecast
	viper.SetDefault("forecast.model_path", "models/price_predictor.json")
	viper.SetDefault("forecast.model_p10_path", "")
	viper.SetDefault("forecast.model_p90_path", "")
	viper.SetDefault("forecast.history_window", 192)
	viper.SetDefault("forecast.smoothing_alpha", 0.3)
	viper.SetDefault("forecast.cache_ttl", "30m")
	viper.SetDefault("forecast.invalidation_delta", 5.0)

	// Dispatch
	viper.SetDefault("dispatch.capacity_kwh", 1000.0)
	viper.SetDefault("dispatch.max_power_kw", 500.0)
	viper.SetDefault("dispatch.min_soc_pct", 10.0)
	viper.SetDefault("dispatch.max_soc_pct", 95.0)
	viper.SetDefault("dispatch.efficiency", 0.92)
	viper.SetDefault("dispatch.max_charge_hours", 6)
	viper.SetDefault("dispatch.max_discharge_hours", 4)
	viper.SetDefault("dispatch.min_confidence", 0.4)
	viper.SetDefault("dispatch.min_spread", 30.0)
	viper.SetDefault("dispatch.recompute_interval", "15m")
	viper.SetDefault("dispatch.schedule_cache_ttl", "15m")

	// Economics
	viper.SetDefault("economics.capex_usd", 720000.0)
	viper.SetDefault("economics.usd_rate", 950.0)
	viper.SetDefault("economics.operating_days", 350)
	viper.SetDefault("economics.degradation_usd", 4.5)

	// Security
	viper.SetDefault("security.api_key_hash", "")
	viper.SetDefault("security.admin_api_key", "")
	viper.SetDefault("security.jwt_secret", "")
	viper.SetDefault("security.jwt_expiry", "24h")
	viper.SetDefault("security.bcrypt_cost", 12)

	// Telemetry
	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.otlp_endpoint", "localhost:4318")
	viper.SetDefault("telemetry.service_name", "bess-dispatch-gateway")
	viper.SetDefault("telemetry.sample_rate", 1.0)
}
