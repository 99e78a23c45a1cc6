// Package config loads AgriSmart settings: built-in defaults, then an optional
// YAML file, then environment variables. Command-line flags are applied last
// by the CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// DefaultFile is read when no --config flag is given and the file exists.
const DefaultFile = "agrismart.yaml"

// Config holds all AgriSmart configuration.
type Config struct {
	Storage  StorageConfig  `yaml:"storage"`
	Auth     AuthConfig     `yaml:"auth"`
	Booking  BookingConfig  `yaml:"booking"`
	Forecast ForecastConfig `yaml:"forecast"`
	Advisor  AdvisorConfig  `yaml:"advisor"`
	HTTP     HTTPConfig     `yaml:"http"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// StorageConfig selects the key-value backend.
type StorageConfig struct {
	Backend       string `yaml:"backend"` // sqlite, redis, memory
	Path          string `yaml:"path"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	Namespace     string `yaml:"namespace"`
}

// AuthConfig controls credential digests.
type AuthConfig struct {
	Digest     string `yaml:"digest"` // bcrypt or legacy
	BcryptCost int    `yaml:"bcrypt_cost"`
	SignInPath string `yaml:"sign_in_path"`
}

type BookingConfig struct {
	CostDays int `yaml:"cost_days"`
}

// ForecastConfig points at the market-price and prediction services.
type ForecastConfig struct {
	MarketURL   string        `yaml:"market_url"`
	MarketKey   string        `yaml:"market_api_key"`
	MarketLimit int           `yaml:"market_limit"`
	PredictURL  string        `yaml:"predict_url"`
	Timeout     time.Duration `yaml:"timeout"`
}

type AdvisorConfig struct {
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

type HTTPConfig struct {
	Addr          string `yaml:"addr"`
	DashboardPath string `yaml:"dashboard_path"`
}

type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// LoadDefaults populates c with development defaults.
func (c *Config) LoadDefaults() {
	c.Storage = StorageConfig{
		Backend:   "sqlite",
		Path:      "agrismart.db",
		RedisAddr: "localhost:6379",
		Namespace: "agrismart",
	}
	c.Auth = AuthConfig{
		Digest:     "bcrypt",
		BcryptCost: 10,
		SignInPath: "/auth.html",
	}
	c.Booking = BookingConfig{CostDays: 2}
	c.Forecast = ForecastConfig{
		MarketURL:   "https://api.data.gov.in/resource/9ef84268-d588-465a-a308-a864a43d0070",
		MarketLimit: 1000,
		PredictURL:  "http://127.0.0.1:5000",
		Timeout:     15 * time.Second,
	}
	c.Advisor = AdvisorConfig{
		Model:   "gemini-2.5-flash",
		Timeout: 30 * time.Second,
	}
	c.HTTP = HTTPConfig{
		Addr:          "127.0.0.1:8080",
		DashboardPath: "/dashboard.html",
	}
	c.Logging = LoggingConfig{Level: "info"}
}

// Load applies defaults, then the YAML file at path, then the environment,
// then each override in order, and validates the result. An empty path falls
// back to DefaultFile when it exists.
func Load(path string, overrides ...func(*Config)) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	if err := cfg.loadFile(path); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	cfg.applyEnv(os.LookupEnv)
	for _, override := range overrides {
		override(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	str := func(name string, dst *string) {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}
	str("AGRISMART_STORAGE_BACKEND", &c.Storage.Backend)
	str("AGRISMART_DB_PATH", &c.Storage.Path)
	str("AGRISMART_REDIS_ADDR", &c.Storage.RedisAddr)
	str("AGRISMART_HTTP_ADDR", &c.HTTP.Addr)
	str("DATA_GOV_API_KEY", &c.Forecast.MarketKey)
	str("AGRISMART_PREDICT_URL", &c.Forecast.PredictURL)
	str("GEMINI_API_KEY", &c.Advisor.APIKey)
	str("AGRISMART_LOG_LEVEL", &c.Logging.Level)

	if v, ok := lookup("AGRISMART_REDIS_DB"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.Storage.RedisDB = n
		}
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Storage.Backend) {
	case "sqlite", "redis", "memory":
	default:
		return fmt.Errorf("storage.backend: unknown backend %q", c.Storage.Backend)
	}
	switch strings.ToLower(c.Auth.Digest) {
	case "bcrypt", "legacy":
	default:
		return fmt.Errorf("auth.digest: must be bcrypt or legacy, got %q", c.Auth.Digest)
	}
	if c.Booking.CostDays <= 0 {
		return fmt.Errorf("booking.cost_days: must be positive, got %d", c.Booking.CostDays)
	}
	if c.Forecast.Timeout <= 0 {
		return fmt.Errorf("forecast.timeout: must be positive")
	}
	if c.Advisor.Timeout <= 0 {
		return fmt.Errorf("advisor.timeout: must be positive")
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	return nil
}
