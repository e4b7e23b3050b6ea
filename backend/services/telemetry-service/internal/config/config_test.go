package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("DOTENV_FILE", filepath.Join(t.TempDir(), "none.env"))
	require.NoError(t, os.WriteFile(os.Getenv("DOTENV_FILE"), nil, 0o600))
}

func TestLoadDefaultsWithDSN(t *testing.T) {
	isolate(t)
	t.Setenv("TELEMETRY_POSTGRES_DSN", "postgres://localhost/telemetry")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8084", cfg.HTTPAddress())
	assert.Equal(t, BackendPostgres, cfg.Store.Backend)
	assert.Equal(t, 24*time.Hour, cfg.Analytics.Lookback)
	assert.Equal(t, 5*time.Minute, cfg.Analytics.Tolerance)
	assert.InDelta(t, 0.85, cfg.Analytics.Threshold, 1e-9)
	assert.True(t, cfg.Database.MigrateOnStart)
}

func TestLoadFromYAMLAndEnv(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "telemetry.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http:
  port: ":9090"
database:
  dsn: postgres://db/telemetry
store:
  backend: Redis
redis:
  addr: cache:6379
analytics:
  tolerance: 2m
ingest:
  rateLimit: 50
  burst: 100
`), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("TELEMETRY_ANALYTICS_THRESHOLD", "0.9")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTPAddress())
	assert.Equal(t, BackendRedis, cfg.Store.Backend)
	assert.Equal(t, "cache:6379", cfg.Redis.Addr)
	assert.Equal(t, 2*time.Minute, cfg.Analytics.Tolerance)
	assert.Equal(t, 24*time.Hour, cfg.Analytics.Lookback)
	assert.InDelta(t, 0.9, cfg.Analytics.Threshold, 1e-9)
	assert.InDelta(t, 50.0, cfg.Ingest.RateLimit, 1e-9)
	assert.Equal(t, 100, cfg.Ingest.Burst)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(c *Config){
		"missing dsn":     func(c *Config) { c.Database.DSN = "" },
		"unknown backend": func(c *Config) { c.Store.Backend = "etcd" },
		"redis without addr": func(c *Config) {
			c.Store.Backend = BackendRedis
			c.Redis.Addr = ""
		},
		"zero tolerance":    func(c *Config) { c.Analytics.Tolerance = 0 },
		"threshold too big": func(c *Config) { c.Analytics.Threshold = 11 },
		"negative rate":     func(c *Config) { c.Ingest.RateLimit = -1 },
		"rate without burst": func(c *Config) {
			c.Ingest.RateLimit = 10
			c.Ingest.Burst = 0
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			cfg.Database.DSN = "postgres://localhost/telemetry"
			mutate(cfg)
			require.Error(t, cfg.Validate())
		})
	}

	memory := Default()
	memory.Store.Backend = BackendMemory
	require.NoError(t, memory.Validate())
}
