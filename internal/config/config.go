package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration sourced from environment variables.
type Config struct {
	AppEnv string `envconfig:"APP_ENV" default:"development"`
	Port   string `envconfig:"PORT" default:"8080"`
	DBPath string `envconfig:"DB_PATH" default:"./dev.db"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	RateLimitPerMinute int           `envconfig:"RATE_LIMIT_PER_MINUTE" default:"120"`
	RequestTimeout     time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`

	// SeedDefaultPrinter is created on startup when no printer exists. Empty disables it.
	SeedDefaultPrinter string `envconfig:"SEED_DEFAULT_PRINTER" default:"Default Printer"`

	// DotEnvKeys lists the variables Load took from .env.
	DotEnvKeys []string `ignored:"true"`
}

// Load reads environment variables and returns a populated Config.
func Load() (Config, error) {
	loaded, err := loadDotEnv(".env")
	if err != nil {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("process environment: %w", err)
	}
	cfg.DotEnvKeys = loaded
	if cfg.RateLimitPerMinute <= 0 {
		return Config{}, fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive, got %d", cfg.RateLimitPerMinute)
	}
	if cfg.RequestTimeout <= 0 {
		return Config{}, fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", cfg.RequestTimeout)
	}
	return cfg, nil
}

// IsDev reports whether the server runs in development mode.
func (c Config) IsDev() bool {
	return c.AppEnv == "" || c.AppEnv == "development"
}

// IsProduction reports whether the server runs in production.
func (c Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return ":" + c.Port
}
