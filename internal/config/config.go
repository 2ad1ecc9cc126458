// Package config provides configuration management for the transfer dashboard
// application. It handles loading configuration from environment variables with
// sensible defaults and validates the configuration so the service refuses to
// start with a broken setup.
//
// The package supports multiple database backends (SQLite and PostgreSQL), an
// optional Redis connection for sharing the daily API quota counter between
// processes, and the throttling ceilings applied to the external sports-data
// API.
//
// Environment Variables:
//
// Application Settings:
//   - PORT: Server port (default: 8080)
//   - LOG_LEVEL: Logging level (default: info)
//   - TLS_CERT_FILE / TLS_KEY_FILE: Optional TLS certificate pair
//
// Sports API Configuration:
//   - SPORTS_API_KEY: API key for the external sports-data API (required)
//   - SPORTS_API_BASE_URL: Base URL of the API (default: https://v3.football.api-sports.io)
//   - API_REQUESTS_PER_SECOND: Outbound pacing ceiling (default: 5)
//   - API_MAX_HOURLY_REQUESTS: Rolling-hour request ceiling (default: 1000)
//   - API_DAILY_CALL_LIMIT: Daily quota ceiling for enrichment calls (default: 3000)
//   - API_MAX_RETRIES: Retry attempts per request (default: 3)
//   - API_REQUEST_TIMEOUT: Per-request timeout (default: 30s)
//
// Database Configuration:
//   - DATABASE_TYPE: Database type - "sqlite" or "postgres" (default: sqlite)
//   - DATABASE_PATH: SQLite database file path (default: ./transfer_dashboard.db)
//   - POSTGRES_HOST: PostgreSQL host (required if using PostgreSQL)
//   - POSTGRES_PORT: PostgreSQL port (default: 5432)
//   - POSTGRES_DB: PostgreSQL database name (required if using PostgreSQL)
//   - POSTGRES_USER: PostgreSQL username (required if using PostgreSQL)
//   - POSTGRES_PASSWORD: PostgreSQL password
//   - POSTGRES_SSL_MODE: PostgreSQL SSL mode (default: disable)
//
// Redis Configuration (optional, shared quota counter):
//   - REDIS_ADDRESS: Redis server address (empty disables the shared counter)
//   - REDIS_PASSWORD: Redis password
//   - REDIS_DB: Redis database number 0-15 (default: 0)
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration values for the transfer dashboard. All fields
// correspond to environment variables that can be set to override defaults.
//
// The configuration is loaded with Load() and must be validated with
// Validate() before use.
type Config struct {
	// Application settings
	Port        string // Server port number
	LogLevel    string // Logging level (debug, info, warn, error)
	TLSCertFile string // Optional TLS certificate path
	TLSKeyFile  string // Optional TLS key path

	// External sports-data API
	APIKey            string        // API key (required)
	APIBaseURL        string        // API base URL
	RequestsPerSecond int           // Pacing ceiling for outbound calls
	MaxHourlyRequests int           // Rolling-hour ceiling for outbound calls
	DailyCallLimit    int           // Daily quota ceiling for enrichment calls
	MaxRetries        int           // Retry attempts per API request
	RequestTimeout    time.Duration // Per-request timeout

	// Database configuration
	DatabaseType     string // "sqlite" or "postgres"
	DatabasePath     string // SQLite database file path
	PostgresHost     string // PostgreSQL host address
	PostgresPort     string // PostgreSQL port number
	PostgresDB       string // PostgreSQL database name
	PostgresUser     string // PostgreSQL username
	PostgresPassword string // PostgreSQL password
	PostgresSSLMode  string // PostgreSQL SSL mode

	// Redis configuration for the shared daily quota counter
	RedisAddress  string // Redis server address (empty disables)
	RedisPassword string // Redis authentication password
	RedisDB       string // Redis database number (0-15)
}

// Load creates a new Config instance with values loaded from environment
// variables. Unset variables fall back to their defaults.
//
// Load does not validate the configuration - call Validate() on the returned
// Config before using it.
func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		TLSCertFile: getEnv("TLS_CERT_FILE", ""),
		TLSKeyFile:  getEnv("TLS_KEY_FILE", ""),

		APIKey:            getEnv("SPORTS_API_KEY", ""),
		APIBaseURL:        getEnv("SPORTS_API_BASE_URL", "https://v3.football.api-sports.io"),
		RequestsPerSecond: getIntEnv("API_REQUESTS_PER_SECOND", 5),
		MaxHourlyRequests: getIntEnv("API_MAX_HOURLY_REQUESTS", 1000),
		DailyCallLimit:    getIntEnv("API_DAILY_CALL_LIMIT", 3000),
		MaxRetries:        getIntEnv("API_MAX_RETRIES", 3),
		RequestTimeout:    getDurationEnv("API_REQUEST_TIMEOUT", 30*time.Second),

		DatabaseType:     getEnv("DATABASE_TYPE", "sqlite"),
		DatabasePath:     getEnv("DATABASE_PATH", "./transfer_dashboard.db"),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresDB:       getEnv("POSTGRES_DB", "transfer_dashboard"),
		PostgresUser:     getEnv("POSTGRES_USER", "postgres"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", ""),
		PostgresSSLMode:  getEnv("POSTGRES_SSL_MODE", "disable"),

		RedisAddress:  getEnv("REDIS_ADDRESS", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnv("REDIS_DB", "0"),
	}
}

// Validate checks that all required values are set and that numeric values are
// in range. The pipeline must not start with an invalid configuration, so
// validation failures here are fatal at construction time.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("SPORTS_API_KEY environment variable is required")
	}

	if c.APIBaseURL == "" {
		return fmt.Errorf("SPORTS_API_BASE_URL must not be empty")
	}

	if port, err := strconv.Atoi(c.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be a valid port number between 1 and 65535")
	}

	if c.RequestsPerSecond < 1 {
		return fmt.Errorf("API_REQUESTS_PER_SECOND must be a positive number")
	}
	if c.MaxHourlyRequests < 1 {
		return fmt.Errorf("API_MAX_HOURLY_REQUESTS must be a positive number")
	}
	if c.DailyCallLimit < 1 {
		return fmt.Errorf("API_DAILY_CALL_LIMIT must be a positive number")
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("API_MAX_RETRIES must be a positive number")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("API_REQUEST_TIMEOUT must be a positive duration")
	}

	switch c.DatabaseType {
	case "sqlite", "postgres", "postgresql":
		// Valid database types
	default:
		return fmt.Errorf("DATABASE_TYPE must be 'sqlite' or 'postgres'")
	}

	if c.DatabaseType == "postgres" || c.DatabaseType == "postgresql" {
		if c.PostgresHost == "" {
			return fmt.Errorf("POSTGRES_HOST is required when using PostgreSQL")
		}
		if c.PostgresDB == "" {
			return fmt.Errorf("POSTGRES_DB is required when using PostgreSQL")
		}
		if c.PostgresUser == "" {
			return fmt.Errorf("POSTGRES_USER is required when using PostgreSQL")
		}
		if port, err := strconv.Atoi(c.PostgresPort); err != nil || port < 1 || port > 65535 {
			return fmt.Errorf("POSTGRES_PORT must be a valid port number")
		}
	}

	if c.RedisAddress != "" {
		if db, err := strconv.Atoi(c.RedisDB); err != nil || db < 0 || db > 15 {
			return fmt.Errorf("REDIS_DB must be a number between 0 and 15")
		}
	}

	return nil
}

// getEnv retrieves an environment variable or returns the default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnv retrieves an integer environment variable or returns the default
// value when unset or unparseable.
func getIntEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// getDurationEnv retrieves a duration environment variable or returns the
// default value when unset or unparseable.
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
