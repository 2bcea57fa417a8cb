// Package config loads the service configuration from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all configuration for the service, loaded from environment variables.
type Config struct {
	Port     int    `env:"PORT" envDefault:"8080"`
	DataDir  string `env:"DATA_DIR" envDefault:"./data"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"INFO"`

	// Empty allows all origins.
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	CacheMaxSize      int64         `env:"CACHE_MAX_SIZE" envDefault:"64"`
	CacheItemsToPrune uint32        `env:"CACHE_ITEMS_TO_PRUNE" envDefault:"8"`
	CacheTTL          time.Duration `env:"CACHE_TTL" envDefault:"30m"`

	DegreesPerTile      float64 `env:"DEGREES_PER_TILE" envDefault:"10"`
	MaxAbsErrorPx       float64 `env:"MAX_ABS_ERROR_PX" envDefault:"0.5"`
	MaxPointsPerRequest int     `env:"MAX_POINTS_PER_REQUEST" envDefault:"10000"`
}

// Load parses the configuration from the environment and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration values.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be in 1..65535, got %d", c.Port)
	}
	if c.DataDir == "" {
		return fmt.Errorf("DATA_DIR must not be empty")
	}
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of DEBUG, INFO, WARN, ERROR, got %q", c.LogLevel)
	}
	if c.CacheMaxSize <= 0 {
		return fmt.Errorf("CACHE_MAX_SIZE must be positive, got %d", c.CacheMaxSize)
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive, got %s", c.CacheTTL)
	}
	if c.DegreesPerTile <= 0 {
		return fmt.Errorf("DEGREES_PER_TILE must be positive, got %v", c.DegreesPerTile)
	}
	if c.MaxAbsErrorPx <= 0 {
		return fmt.Errorf("MAX_ABS_ERROR_PX must be positive, got %v", c.MaxAbsErrorPx)
	}
	if c.MaxPointsPerRequest <= 0 {
		return fmt.Errorf("MAX_POINTS_PER_REQUEST must be positive, got %d", c.MaxPointsPerRequest)
	}
	return nil
}
