package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "sqlite", c.Storage.Backend)
	assert.Equal(t, "agrismart.db", c.Storage.Path)
	assert.Equal(t, "agrismart", c.Storage.Namespace)
	assert.Equal(t, "bcrypt", c.Auth.Digest)
	assert.Equal(t, "/auth.html", c.Auth.SignInPath)
	assert.Equal(t, 2, c.Booking.CostDays)
	assert.Equal(t, 15*time.Second, c.Forecast.Timeout)
	assert.Equal(t, "http://127.0.0.1:5000", c.Forecast.PredictURL)
	assert.Equal(t, "gemini-2.5-flash", c.Advisor.Model)
	assert.Equal(t, "127.0.0.1:8080", c.HTTP.Addr)
	assert.NoError(t, c.Validate())
}

func TestLoadFileOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agri.yaml")
	yml := `
storage:
  backend: redis
  redis_addr: redis:6379
booking:
  cost_days: 3
forecast:
  timeout: 5s
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "redis", c.Storage.Backend)
	assert.Equal(t, "redis:6379", c.Storage.RedisAddr)
	assert.Equal(t, "agrismart", c.Storage.Namespace, "unset fields keep defaults")
	assert.Equal(t, 3, c.Booking.CostDays)
	assert.Equal(t, 5*time.Second, c.Forecast.Timeout)
	assert.Equal(t, "debug", c.Logging.Level)
}

func TestLoadValidatesAfterOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agri.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage:\n  backend: etcd\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage.backend")

	c, err := Load(path, func(c *Config) { c.Storage.Backend = "memory" })
	require.NoError(t, err)
	assert.Equal(t, "memory", c.Storage.Backend)

	_, err = Load(path, func(c *Config) {
		c.Storage.Backend = "memory"
		c.Booking.CostDays = 0
	})
	assert.Error(t, err, "overrides are validated too")
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	var c Config
	c.LoadDefaults()
	env := map[string]string{
		"AGRISMART_STORAGE_BACKEND": "memory",
		"GEMINI_API_KEY":            "k-123",
		"DATA_GOV_API_KEY":          "gov",
		"AGRISMART_REDIS_DB":        "4",
		"AGRISMART_LOG_LEVEL":       "",
	}
	c.applyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})

	assert.Equal(t, "memory", c.Storage.Backend)
	assert.Equal(t, "k-123", c.Advisor.APIKey)
	assert.Equal(t, "gov", c.Forecast.MarketKey)
	assert.Equal(t, 4, c.Storage.RedisDB)
	assert.Equal(t, "info", c.Logging.Level, "empty values are ignored")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"backend", func(c *Config) { c.Storage.Backend = "etcd" }, "storage.backend"},
		{"digest", func(c *Config) { c.Auth.Digest = "md5" }, "auth.digest"},
		{"cost days", func(c *Config) { c.Booking.CostDays = 0 }, "booking.cost_days"},
		{"forecast timeout", func(c *Config) { c.Forecast.Timeout = 0 }, "forecast.timeout"},
		{"advisor timeout", func(c *Config) { c.Advisor.Timeout = -time.Second }, "advisor.timeout"},
		{"log level", func(c *Config) { c.Logging.Level = "chatty" }, "logging.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Config
			c.LoadDefaults()
			tt.mutate(&c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
