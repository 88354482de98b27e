package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Storage backends.
const (
	StorageRedis  = "redis"
	StorageSQLite = "sqlite"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    slog.Level

	LLMBaseURL string
	LLMAPIKey  string
	StoryModel string // streams puzzle generation
	FastModel  string // referee and hints

	Storage    string
	RedisURL   string
	SQLitePath string

	TagCatalog string // optional YAML file replacing the embedded catalog
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    parseLogLevel(getEnv("LOG_LEVEL", "info")),
		LLMBaseURL:  strings.TrimRight(getEnv("LLM_BASE_URL", "https://api.openai.com/v1"), "/"),
		LLMAPIKey:   os.Getenv("LLM_API_KEY"),
		StoryModel:  os.Getenv("STORY_MODEL"),
		FastModel:   os.Getenv("FAST_MODEL"),
		Storage:     strings.ToLower(getEnv("STORAGE", StorageSQLite)),
		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379"),
		SQLitePath:  getEnv("SQLITE_PATH", "turtle-soup.db"),
		TagCatalog:  os.Getenv("TAG_CATALOG"),
	}
	if cfg.FastModel == "" {
		cfg.FastModel = cfg.StoryModel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first missing or invalid setting.
func (c *Config) Validate() error {
	if c.LLMAPIKey == "" {
		return fmt.Errorf("LLM_API_KEY is required")
	}
	if c.StoryModel == "" {
		return fmt.Errorf("STORY_MODEL is required")
	}
	switch c.Storage {
	case StorageRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required for redis storage")
		}
	case StorageSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for sqlite storage")
		}
	default:
		return fmt.Errorf("invalid STORAGE %q (supported: %s, %s)", c.Storage, StorageRedis, StorageSQLite)
	}
	return nil
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

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
