package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the process configuration shared by the api, worker and CLI.
type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	RawLogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogLevel    slog.Level

	RedisURL string        `env:"REDIS_URL" envDefault:"redis://localhost:6379"`
	StoryTTL time.Duration `env:"STORY_TTL" envDefault:"24h"`

	// DataDir holds actions.json, atoms.json and hierarchies.json.
	DataDir     string `env:"DATA_DIR" envDefault:"./data"`
	PolicyFile  string `env:"POLICY_FILE"`
	ArchivePath string `env:"ARCHIVE_PATH" envDefault:"./data/archive.db"`

	WorkerID string `env:"WORKER_ID"`

	// QueueSteps makes the api enqueue step requests for the worker
	// instead of stepping stories inline.
	QueueSteps bool `env:"QUEUE_STEPS" envDefault:"false"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.LogLevel = parseLogLevel(cfg.RawLogLevel)
	if cfg.StoryTTL < 0 {
		return nil, fmt.Errorf("STORY_TTL must not be negative, got %s", cfg.StoryTTL)
	}
	return cfg, nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
