package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL string

	JWTSecret   string
	JWTIssuer   string
	JWTAudience string
	TokenTTL    time.Duration

	ServerPort  string
	ServerHost  string
	Environment string

	LogLevel  string
	LogFormat string

	RedisURL               string
	RateLimitEnabled       bool
	RateLimitIPAttempts    int
	RateLimitIPWindow      time.Duration
	RateLimitBlockDuration time.Duration
}

var (
	ErrMissingDatabaseURL = errors.New("DATABASE_URL is required")
	ErrMissingJWTSecret   = errors.New("JWT_SECRET is required")
	ErrMissingJWTIssuer   = errors.New("JWT_ISSUER is required")
	ErrMissingJWTAudience = errors.New("JWT_AUDIENCE is required")
	ErrInvalidTokenTTL    = errors.New("invalid token TTL")
)

// Load reads configuration from the environment (and .env when present).
// Missing required values are startup faults: Load fails and the process
// never serves a request with a partial configuration.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		JWTIssuer:   os.Getenv("JWT_ISSUER"),
		JWTAudience: os.Getenv("JWT_AUDIENCE"),
		ServerPort:  getEnvOrDefault("SERVER_PORT", "8080"),
		ServerHost:  getEnvOrDefault("SERVER_HOST", "localhost"),
		Environment: getEnvOrDefault("ENV", "development"),
		LogLevel:    getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:   getEnvOrDefault("LOG_FORMAT", "json"),
		RedisURL:    getEnvOrDefault("REDIS_URL", "redis://localhost:6379/0"),

		RateLimitEnabled:    getEnvOrDefaultBool("RATE_LIMIT_ENABLED", false),
		RateLimitIPAttempts: getEnvOrDefaultInt("RATE_LIMIT_IP_ATTEMPTS", 10),
	}

	if cfg.DatabaseURL == "" {
		return nil, ErrMissingDatabaseURL
	}
	if cfg.JWTSecret == "" {
		return nil, ErrMissingJWTSecret
	}
	if cfg.JWTIssuer == "" {
		return nil, ErrMissingJWTIssuer
	}
	if cfg.JWTAudience == "" {
		return nil, ErrMissingJWTAudience
	}

	ttlMinutes, err := strconv.Atoi(getEnvOrDefault("JWT_TOKEN_EXPIRATION_MINUTES", "15"))
	if err != nil || ttlMinutes <= 0 {
		return nil, ErrInvalidTokenTTL
	}
	cfg.TokenTTL = time.Duration(ttlMinutes) * time.Minute

	ipWindow, err := parseSeconds(getEnvOrDefault("RATE_LIMIT_IP_WINDOW", "900"))
	if err != nil {
		return nil, ErrInvalidTokenTTL
	}
	cfg.RateLimitIPWindow = ipWindow

	blockDuration, err := parseSeconds(getEnvOrDefault("RATE_LIMIT_BLOCK_DURATION", "1800"))
	if err != nil {
		return nil, ErrInvalidTokenTTL
	}
	cfg.RateLimitBlockDuration = blockDuration

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvOrDefaultBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}

func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}

func parseSeconds(value string) (time.Duration, error) {
	seconds, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return time.Duration(seconds) * time.Second, nil
}
