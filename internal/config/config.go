package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	Port               string
	Environment        string
	DBHost             string
	DBPort             string
	DBUser             string
	DBPassword         string
	DBName             string
	DBMaxConnections   int
	RedisURL           string
	JWTSecret          string
	JWTExpirationHours int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Port:               envOrDefault("SERVER_PORT", "8080"),
		Environment:        envOrDefault("ENVIRONMENT", "development"),
		DBHost:             envOrDefault("DB_HOST", "localhost"),
		DBPort:             envOrDefault("DB_PORT", "5432"),
		DBUser:             envOrDefault("DB_USER", "postgres"),
		DBPassword:         envOrDefault("DB_PASSWORD", "postgres"),
		DBName:             envOrDefault("DB_NAME", "travillian"),
		DBMaxConnections:   envIntOrDefault("DB_MAX_CONNECTIONS", 10),
		RedisURL:           envOrDefault("REDIS_URL", "redis://localhost:6379/0"),
		JWTSecret:          envOrDefault("JWT_SECRET", "dev-secret-change-me"),
		JWTExpirationHours: envIntOrDefault("JWT_EXPIRATION_HOURS", 24),
	}
}

// DatabaseURL assembles the Postgres connection string.
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

// IsDevelopment reports whether the server runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOrDefault(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
