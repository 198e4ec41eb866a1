package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL string
	ServerHost  string
	ServerPort  string
	Environment string

	JWTSecret      string
	AccessTokenTTL time.Duration

	LogLevel  string
	LogFormat string

	// Ledger RPC boundary. An empty URL disables mirroring entirely.
	LedgerRPCURL            string
	LedgerAPIKey            string
	LedgerTimeout           time.Duration
	LedgerReconcileInterval time.Duration
	LedgerReconcileBatch    int
	RegisterSyncWait        time.Duration
	MirrorAttempts          int
	MirrorWindow            time.Duration

	// Sandbox boundary.
	SandboxCommand []string
	SandboxTimeout time.Duration

	// Execution endpoint boundary. An empty URL means fallback execution.
	ExecutionEndpointURL string
	ExecutionAPIKey      string
	ExecutionTimeout     time.Duration

	RedisURL               string
	RateLimitEnabled       bool
	RegisterAttempts       int
	RegisterAttemptsWindow time.Duration

	CORSEnabled          bool
	CORSAllowedOrigins   []string
	CORSAllowCredentials bool
}

var (
	ErrMissingDatabaseURL = errors.New("DATABASE_URL is required")
	ErrMissingJWTSecret   = errors.New("JWT_SECRET is required")
)

func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		ServerHost:  getEnvOrDefault("SERVER_HOST", "localhost"),
		ServerPort:  getEnvOrDefault("SERVER_PORT", "8080"),
		Environment: getEnvOrDefault("ENV", "development"),

		JWTSecret:      os.Getenv("JWT_SECRET"),
		AccessTokenTTL: getEnvOrDefaultDuration("ACCESS_TOKEN_TTL", time.Hour),

		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "json"),

		LedgerRPCURL:            os.Getenv("LEDGER_RPC_URL"),
		LedgerAPIKey:            os.Getenv("LEDGER_API_KEY"),
		LedgerTimeout:           getEnvOrDefaultDuration("LEDGER_TIMEOUT", 10*time.Second),
		LedgerReconcileInterval: getEnvOrDefaultDuration("LEDGER_RECONCILE_INTERVAL", 5*time.Minute),
		LedgerReconcileBatch:    getEnvOrDefaultInt("LEDGER_RECONCILE_BATCH", 20),
		RegisterSyncWait:        getEnvOrDefaultDuration("REGISTER_SYNC_WAIT", 2*time.Second),
		MirrorAttempts:          getEnvOrDefaultInt("LEDGER_MIRROR_ATTEMPTS", 5),
		MirrorWindow:            getEnvOrDefaultDuration("LEDGER_MIRROR_WINDOW", time.Minute),

		SandboxCommand: strings.Fields(getEnvOrDefault("SANDBOX_COMMAND", "docker run --rm agentity-sandbox")),
		SandboxTimeout: getEnvOrDefaultDuration("SANDBOX_TIMEOUT", 10*time.Second),

		ExecutionEndpointURL: os.Getenv("EXECUTION_ENDPOINT_URL"),
		ExecutionAPIKey:      os.Getenv("EXECUTION_API_KEY"),
		ExecutionTimeout:     getEnvOrDefaultDuration("EXECUTION_TIMEOUT", 15*time.Second),

		RedisURL:               getEnvOrDefault("REDIS_URL", "redis://localhost:6379/0"),
		RateLimitEnabled:       getEnvOrDefaultBool("RATE_LIMIT_ENABLED", true),
		RegisterAttempts:       getEnvOrDefaultInt("REGISTER_RATE_LIMIT_ATTEMPTS", 30),
		RegisterAttemptsWindow: getEnvOrDefaultDuration("REGISTER_RATE_LIMIT_WINDOW", time.Minute),

		CORSEnabled:          getEnvOrDefaultBool("CORS_ENABLED", true),
		CORSAllowCredentials: getEnvOrDefaultBool("CORS_ALLOW_CREDENTIALS", true),
		CORSAllowedOrigins:   parseAllowedOrigins(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "")),
	}

	if cfg.DatabaseURL == "" {
		return nil, ErrMissingDatabaseURL
	}
	if cfg.JWTSecret == "" {
		return nil, ErrMissingJWTSecret
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvOrDefaultBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvOrDefaultInt(key string, defaultValue int) int {
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

func getEnvOrDefaultDuration(key string, defaultValue time.Duration) time.Duration {
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

func parseAllowedOrigins(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
