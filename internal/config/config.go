// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds everything the api, worker, and console binaries need.
// A .env file in the working directory is merged in when present.
type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevelRaw string `envconfig:"LOG_LEVEL" default:"info"`

	RedisURL     string `envconfig:"REDIS_URL" default:"localhost:6379"`
	GameStateTTL int    `envconfig:"GAMESTATE_TTL_MINUTES" default:"1440"`

	// Oracle (LLM) backend.
	OracleAPIKey  string  `envconfig:"ORACLE_API_KEY"`
	OracleBaseURL string  `envconfig:"ORACLE_BASE_URL"` // empty means the provider default
	OracleModel   string  `envconfig:"ORACLE_MODEL" default:"gpt-4o-mini"`
	OracleTemp    float32 `envconfig:"ORACLE_TEMPERATURE" default:"0.8"`

	// Illustration backend. Disabled when the key is empty.
	ImageAPIKey string `envconfig:"IMAGE_API_KEY"`
	ImageModel  string `envconfig:"IMAGE_MODEL" default:"dall-e-3"`

	WorkerConcurrency int `envconfig:"WORKER_CONCURRENCY" default:"4"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	// Best effort: absence of a .env file is the normal production case.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}
	return &cfg, nil
}

// LogLevel parses the configured level, defaulting to info.
func (c *Config) LogLevel() slog.Level {
	switch strings.ToLower(c.LogLevelRaw) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
