package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	libconfig "chargelens/backend/libs/config"
)

// Entity store backends.
const (
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

const defaultPort = "8084"

// Config defines telemetry service configuration.
type Config struct {
	HTTP struct {
		Port            string        `yaml:"port" env:"TELEMETRY_HTTP_PORT"`
		ShutdownTimeout time.Duration `yaml:"shutdownTimeout" env:"TELEMETRY_HTTP_SHUTDOWN_TIMEOUT"`
		WSWriteTimeout  time.Duration `yaml:"wsWriteTimeout" env:"TELEMETRY_WS_WRITE_TIMEOUT"`
	} `yaml:"http"`
	Database struct {
		DSN            string `yaml:"dsn" env:"TELEMETRY_POSTGRES_DSN"`
		MaxOpenConns   int    `yaml:"maxOpenConns" env:"TELEMETRY_POSTGRES_MAX_OPEN_CONNS"`
		MigrateOnStart bool   `yaml:"migrateOnStart" env:"TELEMETRY_MIGRATE_ON_START"`
	} `yaml:"database"`
	Redis struct {
		Addr     string `yaml:"addr" env:"TELEMETRY_REDIS_ADDR"`
		Password string `yaml:"password" env:"TELEMETRY_REDIS_PASSWORD"`
		DB       int    `yaml:"db" env:"TELEMETRY_REDIS_DB"`
		PoolSize int    `yaml:"poolSize" env:"TELEMETRY_REDIS_POOL_SIZE"`
	} `yaml:"redis"`
	// Store.Backend selects where current status lives. History and mappings stay in Postgres
	// for every backend except memory.
	Store struct {
		Backend string `yaml:"backend" env:"TELEMETRY_STORE_BACKEND"`
	} `yaml:"store"`
	Analytics struct {
		Lookback  time.Duration `yaml:"lookback" env:"TELEMETRY_ANALYTICS_LOOKBACK"`
		Tolerance time.Duration `yaml:"tolerance" env:"TELEMETRY_ANALYTICS_TOLERANCE"`
		Threshold float64       `yaml:"threshold" env:"TELEMETRY_ANALYTICS_THRESHOLD"`
	} `yaml:"analytics"`
	Ingest struct {
		// RateLimit is readings per second across all clients; 0 disables the limiter.
		RateLimit float64 `yaml:"rateLimit" env:"TELEMETRY_INGEST_RATE_LIMIT"`
		Burst     int     `yaml:"burst" env:"TELEMETRY_INGEST_BURST"`
	} `yaml:"ingest"`
}

// Default returns the configuration used before file and env overrides.
func Default() *Config {
	cfg := &Config{}
	cfg.HTTP.Port = defaultPort
	cfg.HTTP.ShutdownTimeout = 10 * time.Second
	cfg.HTTP.WSWriteTimeout = 10 * time.Second
	cfg.Database.MigrateOnStart = true
	cfg.Redis.Addr = "localhost:6379"
	cfg.Store.Backend = BackendPostgres
	cfg.Analytics.Lookback = 24 * time.Hour
	cfg.Analytics.Tolerance = 5 * time.Minute
	cfg.Analytics.Threshold = 0.85
	cfg.Ingest.Burst = 1
	return cfg
}

// Load configuration using shared helper.
func Load() (*Config, error) {
	cfg := Default()
	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field requirements.
func (c *Config) Validate() error {
	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))
	switch c.Store.Backend {
	case BackendPostgres, BackendRedis, BackendMemory:
	default:
		return fmt.Errorf("config: unknown store backend %q", c.Store.Backend)
	}

	if c.Store.Backend != BackendMemory && strings.TrimSpace(c.Database.DSN) == "" {
		return errors.New("config: database dsn required")
	}
	if c.Store.Backend == BackendRedis && strings.TrimSpace(c.Redis.Addr) == "" {
		return errors.New("config: redis addr required")
	}
	if c.Analytics.Lookback <= 0 || c.Analytics.Tolerance <= 0 {
		return errors.New("config: analytics lookback and tolerance must be positive")
	}
	if c.Analytics.Threshold <= 0 || c.Analytics.Threshold > 10 {
		return errors.New("config: analytics threshold must be within (0, 10]")
	}
	if c.Ingest.RateLimit < 0 {
		return errors.New("config: ingest rate limit must not be negative")
	}
	if c.Ingest.RateLimit > 0 && c.Ingest.Burst < 1 {
		return errors.New("config: ingest burst must be at least 1")
	}
	return nil
}

// HTTPAddress returns :port style.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = defaultPort
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}
