package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	AppEnv              string
	Port                string
	DatabaseURL         string
	RedisURL            string
	LogLevel            string
	LogFormat           string
	SnapshotPageSize    int
	CoalesceMinInterval time.Duration
	MaxClients          int
}

func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "text"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	var err error
	cfg.SnapshotPageSize, err = getEnvInt("SNAPSHOT_PAGE_SIZE", 10)
	if err != nil {
		return nil, err
	}
	if cfg.SnapshotPageSize < 1 {
		return nil, fmt.Errorf("SNAPSHOT_PAGE_SIZE must be positive")
	}

	cfg.MaxClients, err = getEnvInt("WS_MAX_CLIENTS", 500)
	if err != nil {
		return nil, err
	}

	// Minimum delay between snapshot publishes. Zero means publish as soon
	// as a drain cycle completes.
	intervalMs, err := getEnvInt("COALESCE_MIN_INTERVAL_MS", 0)
	if err != nil {
		return nil, err
	}
	if intervalMs < 0 {
		return nil, fmt.Errorf("COALESCE_MIN_INTERVAL_MS must not be negative")
	}
	cfg.CoalesceMinInterval = time.Duration(intervalMs) * time.Millisecond

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}
