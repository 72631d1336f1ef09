package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"PriceCast/pkg/logger"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"30s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"120s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		MaxUploadBytes  int64         `yaml:"max_upload_bytes" default:"10485760"`
		CORSOrigins     []string      `yaml:"cors_origins"`
	} `yaml:"server"`
	Log     logger.Config `yaml:"log"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Assets   []string `yaml:"assets" default:"[\"Bitcoin\",\"TeraWulf\"]"`
	Forecast struct {
		WindowYears     int    `yaml:"window_years" default:"2"`
		TargetYear      int    `yaml:"target_year" default:"2030"`
		MinObservations int    `yaml:"min_observations" default:"10"`
		MaxP            int    `yaml:"max_p" default:"5"`
		MaxD            int    `yaml:"max_d" default:"2"`
		MaxQ            int    `yaml:"max_q" default:"5"`
		Criterion       string `yaml:"criterion" default:"aic"`
		Stepwise        bool   `yaml:"stepwise" default:"true"`
		StationTest     string `yaml:"station_test" default:"kpss"`
	} `yaml:"forecast"`
	Chart struct {
		WidthInches  float64 `yaml:"width_in" default:"14"`
		HeightInches float64 `yaml:"height_in" default:"7"`
	} `yaml:"chart"`
	Session struct {
		Store      string        `yaml:"store" default:"memory"`
		TTL        time.Duration `yaml:"ttl" default:"30m"`
		MaxEntries int           `yaml:"max_entries" default:"1024"`
		CookieName string        `yaml:"cookie_name" default:"pricecast_session"`
	} `yaml:"session"`
	Redis struct {
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix" default:"pricecast:upload"`
	} `yaml:"redis"`
	RateLimit struct {
		PerSecond float64 `yaml:"per_second" default:"1"`
		Burst     int     `yaml:"burst" default:"5"`
	} `yaml:"rate_limit"`
}

// Default returns a configuration populated only from struct defaults.
func Default() *Config {
	var c Config
	if err := defaults.Set(&c); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return &c
}

// Load reads and parses a YAML configuration file. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	c := Default()

	b, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(b) > 0 {
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("PRICECAST_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("PRICECAST_PORT: %w", err)
		}
		c.Server.Port = p
	}
	if v := os.Getenv("PRICECAST_TARGET_YEAR"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("PRICECAST_TARGET_YEAR: %w", err)
		}
		c.Forecast.TargetYear = y
	}
	if v := os.Getenv("PRICECAST_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("PRICECAST_SESSION_STORE"); v != "" {
		c.Session.Store = v
	}
	if v := os.Getenv("PRICECAST_REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("PRICECAST_ASSETS"); v != "" {
		c.Assets = strings.Split(v, ",")
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port)
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("server.max_upload_bytes must be positive")
	}
	if len(c.Assets) == 0 {
		return fmt.Errorf("assets cannot be empty")
	}
	for _, a := range c.Assets {
		if strings.TrimSpace(a) == "" {
			return fmt.Errorf("assets cannot contain blank labels")
		}
	}
	if c.Forecast.WindowYears <= 0 {
		return fmt.Errorf("forecast.window_years must be positive")
	}
	if c.Forecast.MinObservations < 3 {
		return fmt.Errorf("forecast.min_observations must be at least 3")
	}
	if c.Forecast.MaxP < 0 || c.Forecast.MaxD < 0 || c.Forecast.MaxQ < 0 {
		return fmt.Errorf("forecast orders cannot be negative")
	}
	switch c.Forecast.Criterion {
	case "aic", "aicc", "bic":
	default:
		return fmt.Errorf("forecast.criterion must be 'aic', 'aicc' or 'bic', got '%s'", c.Forecast.Criterion)
	}
	if c.Forecast.StationTest != "kpss" && c.Forecast.StationTest != "adf" {
		return fmt.Errorf("forecast.station_test must be 'kpss' or 'adf', got '%s'", c.Forecast.StationTest)
	}
	if c.Chart.WidthInches <= 0 || c.Chart.HeightInches <= 0 {
		return fmt.Errorf("chart dimensions must be positive")
	}
	if c.Session.Store != "memory" && c.Session.Store != "redis" {
		return fmt.Errorf("session.store must be 'memory' or 'redis', got '%s'", c.Session.Store)
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("session.ttl must be positive")
	}
	if c.Session.Store == "redis" && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required for the redis session store")
	}
	if c.RateLimit.PerSecond <= 0 || c.RateLimit.Burst <= 0 {
		return fmt.Errorf("rate_limit values must be positive")
	}
	return nil
}

// HasAsset reports whether label is one of the configured assets.
func (c *Config) HasAsset(label string) bool {
	for _, a := range c.Assets {
		if a == label {
			return true
		}
	}
	return false
}
