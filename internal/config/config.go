package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv         string
	Port           string
	AllowedOrigins string

	DBHost string
	DBUser string
	DBPass string
	DBName string
	DBPort string

	RedisURL string

	// Event log stream the gateway appends to and the aggregator drains.
	EventStream string

	// Aggregator batch shape.
	RollupBatchSize int
	RollupInterval  time.Duration

	// Durable append retry bounds before the gateway surfaces Unavailable.
	AppendRetries int
	AppendBackoff time.Duration

	// Active-user recency window for the live dashboard.
	ActiveWindow time.Duration
}

func Load() (*Config, error) {
	// Don't fail if .env doesn't exist (might be prod env vars)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "http://localhost:3000"),

		DBHost: getEnv("DB_HOST", "localhost"),
		DBUser: getEnv("DB_USER", "postgres"),
		DBPass: os.Getenv("DB_PASS"),
		DBName: getEnv("DB_NAME", "campus_pulse"),
		DBPort: getEnv("DB_PORT", "5432"),

		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379/0"),
		EventStream: getEnv("EVENT_STREAM", "events:log"),
	}

	var err error
	cfg.RollupBatchSize, err = parseInt(getEnv("ROLLUP_BATCH_SIZE", "500"))
	if err != nil {
		return nil, fmt.Errorf("invalid ROLLUP_BATCH_SIZE: %w", err)
	}
	cfg.RollupInterval, err = time.ParseDuration(getEnv("ROLLUP_INTERVAL", "1m"))
	if err != nil {
		return nil, fmt.Errorf("invalid ROLLUP_INTERVAL: %w", err)
	}
	cfg.AppendRetries, err = parseInt(getEnv("APPEND_RETRIES", "3"))
	if err != nil {
		return nil, fmt.Errorf("invalid APPEND_RETRIES: %w", err)
	}
	cfg.AppendBackoff, err = time.ParseDuration(getEnv("APPEND_BACKOFF", "100ms"))
	if err != nil {
		return nil, fmt.Errorf("invalid APPEND_BACKOFF: %w", err)
	}
	cfg.ActiveWindow, err = time.ParseDuration(getEnv("ACTIVE_WINDOW", "15m"))
	if err != nil {
		return nil, fmt.Errorf("invalid ACTIVE_WINDOW: %w", err)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func parseInt(s string) (int, error) {
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
		return 0, err
	}
	return n, nil
}
