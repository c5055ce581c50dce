package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"twoziq/internal/logger"
)

// Config represents the application configuration.
type Config struct {
	App       AppConfig       `yaml:"app"`
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Market    MarketConfig    `yaml:"market"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Logging   logger.Config   `yaml:"logging"`
}

// AppConfig represents application identity configuration.
type AppConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Env     string `yaml:"env"` // development, production, test
}

// ServerConfig represents HTTP server configuration.
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	MaxHeaderBytes int           `yaml:"max_header_bytes"`
}

// DatabaseConfig represents the price-store database configuration.
type DatabaseConfig struct {
	Host     string        `yaml:"host"`
	Port     int           `yaml:"port"`
	User     string        `yaml:"user"`
	Password string        `yaml:"password"`
	DBName   string        `yaml:"dbname"`
	SSLMode  string        `yaml:"sslmode"`
	MaxOpen  int           `yaml:"max_open"`
	MaxIdle  int           `yaml:"max_idle"`
	Timeout  time.Duration `yaml:"timeout"`
}

// RedisConfig represents Redis cache configuration.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

// MarketConfig represents the market-data collaborator configuration.
type MarketConfig struct {
	// Basket is the fixed constituent list for valuation aggregation.
	Basket   []string      `yaml:"basket"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// AnalyticsConfig holds engine defaults.
type AnalyticsConfig struct {
	AnalysisWindow int    `yaml:"analysis_window"` // rolling window, trading days
	HistogramBins  int    `yaml:"histogram_bins"`
	ForecastDays   int    `yaml:"forecast_days"`
	SimulationRuns int    `yaml:"simulation_runs"`
	SamplePaths    int    `yaml:"sample_paths"`
	Workers        int    `yaml:"workers"`
	TrendStart     string `yaml:"trend_start"` // default deep-analysis start date
}

// SchedulerConfig represents the cache pre-warm scheduler configuration.
type SchedulerConfig struct {
	Enabled bool `yaml:"enabled"`
	// PrewarmSpec is a cron expression; defaults to shortly after US close.
	PrewarmSpec string `yaml:"prewarm_spec"`
}

// RateLimitConfig represents per-client rate limiting configuration.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
	Burst             int  `yaml:"burst"`
}

// DefaultBasket is the market-cap top 8 used when no basket is configured.
var DefaultBasket = []string{"AAPL", "MSFT", "GOOGL", "AMZN", "NVDA", "META", "TSLA", "AVGO"}

// Load loads configuration from a YAML file, applies environment overrides
// and fills defaults.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyEnvOverrides()
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Default returns a configuration with all defaults applied and no file input.
func Default() *Config {
	var config Config
	config.applyEnvOverrides()
	config.applyDefaults()
	return &config
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "twoziq"
	}
	if c.App.Env == "" {
		c.App.Env = "development"
	}
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 60 * time.Second
	}
	if c.Server.RequestTimeout == 0 {
		// Matches the dashboard's observed client-side timeout budget.
		c.Server.RequestTimeout = 30 * time.Second
	}
	if c.Server.MaxHeaderBytes == 0 {
		c.Server.MaxHeaderBytes = 1 << 20
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Database.Timeout == 0 {
		c.Database.Timeout = 5 * time.Second
	}
	if len(c.Market.Basket) == 0 {
		c.Market.Basket = append([]string(nil), DefaultBasket...)
	}
	if c.Market.CacheTTL == 0 {
		c.Market.CacheTTL = 15 * time.Minute
	}
	if c.Analytics.AnalysisWindow == 0 {
		c.Analytics.AnalysisWindow = 252
	}
	if c.Analytics.HistogramBins == 0 {
		c.Analytics.HistogramBins = 30
	}
	if c.Analytics.ForecastDays == 0 {
		c.Analytics.ForecastDays = 120
	}
	if c.Analytics.SimulationRuns == 0 {
		c.Analytics.SimulationRuns = 1000
	}
	if c.Analytics.SamplePaths == 0 {
		c.Analytics.SamplePaths = 10
	}
	if c.Analytics.TrendStart == "" {
		c.Analytics.TrendStart = "2011-01-01"
	}
	if c.Scheduler.PrewarmSpec == "" {
		// 21:30 UTC, after the US close.
		c.Scheduler.PrewarmSpec = "30 21 * * 1-5"
	}
	if c.RateLimit.RequestsPerMinute == 0 {
		c.RateLimit.RequestsPerMinute = 120
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 30
	}
	if c.Logging.Level == "" {
		c.Logging = logger.DefaultConfig
	}
}

// applyEnvOverrides maps a small set of deploy-time environment variables
// over the file configuration.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("TWOZIQ_ENV"); v != "" {
		c.App.Env = v
	}
	if v := os.Getenv("TWOZIQ_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("TWOZIQ_DB_HOST"); v != "" {
		c.Database.Host = v
	}
	if v := os.Getenv("TWOZIQ_DB_PASSWORD"); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv("TWOZIQ_REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	if v := os.Getenv("TWOZIQ_LOG_LEVEL"); v != "" {
		c.Logging.Level = logger.LogLevel(v)
	}
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Analytics.AnalysisWindow < 2 {
		return fmt.Errorf("analysis window must be >= 2, got %d", c.Analytics.AnalysisWindow)
	}
	if c.Analytics.SamplePaths > c.Analytics.SimulationRuns {
		return fmt.Errorf("sample_paths (%d) cannot exceed simulation_runs (%d)",
			c.Analytics.SamplePaths, c.Analytics.SimulationRuns)
	}
	if c.Analytics.SamplePaths > 30 {
		return fmt.Errorf("sample_paths capped at 30, got %d", c.Analytics.SamplePaths)
	}
	return nil
}
