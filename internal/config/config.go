package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Port        string
	Env         string
	DatabaseURL string // PostgreSQL; empty selects SQLite
	SQLitePath  string
	RedisURL    string

	// Origins allowed to open a websocket connection. Empty means
	// same-host requests only.
	AllowedOrigins []string

	// Bcrypt hash of the key the upstream auth service presents when
	// issuing sessions. Empty disables the check (development only).
	ServiceKeyHash string

	SessionTTL time.Duration
}

// Load reads configuration from environment variables.
// In development, it loads from .env file if present.
func Load() *Config {
	// Load .env file if it exists (for development)
	_ = godotenv.Load()

	cfg := &Config{
		Port:           getEnv("PORT", "5000"),
		Env:            getEnv("ENV", "development"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		SQLitePath:     os.Getenv("SQLITE_PATH"),
		RedisURL:       getEnv("REDIS_URL", "redis://localhost:6379"),
		ServiceKeyHash: os.Getenv("SERVICE_KEY_HASH"),
		SessionTTL:     getDuration("SESSION_TTL", 7*24*time.Hour),
	}

	// Parse allowed origins (comma-separated)
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		for _, entry := range strings.Split(origins, ",") {
			entry = strings.TrimSpace(entry)
			if entry != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, entry)
			}
		}
	}

	// In production, session issuance must be guarded
	if cfg.Env == "production" && cfg.ServiceKeyHash == "" {
		panic("SERVICE_KEY_HASH is required in production")
	}

	return cfg
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}
