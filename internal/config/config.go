package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration values for the application
type Config struct {
	Port           string
	AllowedOrigins []string
	LogLevel       string
	Environment    string

	// Persistence backend selector: memory, redis or postgres. Empty picks
	// postgres when DatabaseURL is set, then redis, then memory.
	StorageBackend string
	RedisURL       string
	DatabaseURL    string

	// Backend API the session core authenticates against
	APIBaseURL     string
	APIKey         string
	RequestTimeout time.Duration
	HTTPLogging    bool

	// Paywall SDK backend
	PaywallBaseURL string
	PaywallAPIKey  string
	PaywallDebug   bool

	// Push gateway for local notification delivery; empty falls back to the
	// log sender
	PushGatewayURL       string
	NotificationsEnabled bool

	// Session token signing
	JWTSecret       string
	SessionTokenTTL time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	return &Config{
		Port:                 getEnv("PORT", "8080"),
		AllowedOrigins:       parseOrigins(getEnv("ALLOWED_ORIGINS", "http://localhost:5173")),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		Environment:          getEnv("ENVIRONMENT", "production"),
		StorageBackend:       getEnv("STORAGE_BACKEND", ""),
		RedisURL:             getEnv("REDIS_URL", ""),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		APIBaseURL:           getEnv("API_BASE_URL", ""),
		APIKey:               getEnv("API_KEY", ""),
		RequestTimeout:       getDurationEnv("REQUEST_TIMEOUT", 30*time.Second),
		HTTPLogging:          getBoolEnv("HTTP_LOGGING", false),
		PaywallBaseURL:       getEnv("PAYWALL_BASE_URL", ""),
		PaywallAPIKey:        getEnv("PAYWALL_API_KEY", ""),
		PaywallDebug:         getBoolEnv("PAYWALL_DEBUG", false),
		PushGatewayURL:       getEnv("PUSH_GATEWAY_URL", ""),
		NotificationsEnabled: getBoolEnv("NOTIFICATIONS_ENABLED", true),
		JWTSecret:            getEnv("JWT_SECRET", ""),
		SessionTokenTTL:      getDurationEnv("SESSION_TOKEN_TTL", 30*24*time.Hour),
	}, nil
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// parseOrigins parses comma-separated origins into a slice
func parseOrigins(origins string) []string {
	if origins == "" {
		return []string{}
	}

	parts := strings.Split(origins, ",")
	result := make([]string, 0, len(parts))

	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// getBoolEnv gets a boolean environment variable with a fallback value
func getBoolEnv(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

// getDurationEnv gets a duration environment variable with a fallback value
func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}
