package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Token formats handed to clients on login.
const (
	TokenFormatOpaque = "opaque"
	TokenFormatJWT    = "jwt"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port        int
	Env         string
	ServiceName string
	Version     string
	GitSHA      string
	CORSOrigins []string

	// Logging
	LogLevel string
	LogMode  string // json, console

	// Store
	StoreDriver      string
	DatabaseURL      string
	DBMaxConns       int
	DBMinConns       int
	DBConnectRetries int
	InitialBackoff   time.Duration

	// Redis (optional: tenant cache + readiness)
	RedisURL string

	// Sessions / Auth
	SessionTTL      time.Duration
	BcryptCost      int
	HashConcurrency int
	TokenFormat     string
	JWTSecret       string
	JWTIssuer       string
	JWTAudience     string
	TenantCacheTTL  time.Duration

	// Bootstrap
	BootstrapEnabled       bool
	BootstrapTenantSlug    string
	BootstrapAdminEmail    string
	BootstrapAdminPassword string

	// Observability
	OTLPEndpoint string
	OTLPInsecure bool

	// Runner
	RunnerInterval time.Duration
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:        getEnvInt("PORT", 8080),
		Env:         getEnv("ENV", "dev"),
		ServiceName: getEnv("SERVICE_NAME", "core"),
		Version:     getEnv("APP_VERSION", "0.1.0-dev"),
		GitSHA:      getEnv("GIT_SHA", "dev"),
		CORSOrigins: getEnvList("CORS_ALLOWED_ORIGINS"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogMode:  getEnv("LOG_MODE", "json"),

		StoreDriver:      getEnv("STORE_DRIVER", DriverPostgres),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		DBMaxConns:       getEnvInt("DB_MAX_CONNS", 10),
		DBMinConns:       getEnvInt("DB_MIN_CONNS", 1),
		DBConnectRetries: getEnvInt("DB_CONNECT_RETRIES", 5),
		InitialBackoff:   getEnvDuration("INITIAL_BACKOFF", 200*time.Millisecond),

		RedisURL: getEnv("REDIS_URL", ""),

		SessionTTL:      getEnvDuration("SESSION_TTL", 12*time.Hour),
		BcryptCost:      getEnvInt("BCRYPT_COST", 12),
		HashConcurrency: getEnvInt("HASH_CONCURRENCY", 8),
		TokenFormat:     getEnv("AUTH_TOKEN_FORMAT", TokenFormatOpaque),
		JWTSecret:       getEnv("JWT_SECRET", ""),
		JWTIssuer:       getEnv("JWT_ISSUER", "nextcrm"),
		JWTAudience:     getEnv("JWT_AUDIENCE", "nextcrm"),
		TenantCacheTTL:  getEnvDuration("TENANT_CACHE_TTL", time.Minute),

		BootstrapEnabled:       getEnvBool("BOOTSTRAP_ENABLED", true),
		BootstrapTenantSlug:    getEnv("BOOTSTRAP_TENANT_SLUG", "demo"),
		BootstrapAdminEmail:    getEnv("BOOTSTRAP_ADMIN_EMAIL", "admin@demo.local"),
		BootstrapAdminPassword: getEnv("BOOTSTRAP_ADMIN_PASSWORD", "admin123"),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTLPInsecure: getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", false),

		RunnerInterval: getEnvDuration("RUNNER_INTERVAL", 10*time.Second),
	}
}

// Validate rejects combinations the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	switch c.StoreDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres store"))
		}
	case DriverMemory:
	default:
		errs = append(errs, errors.New("STORE_DRIVER must be postgres or memory"))
	}
	switch c.TokenFormat {
	case TokenFormatOpaque:
	case TokenFormatJWT:
		if c.JWTSecret == "" {
			errs = append(errs, errors.New("JWT_SECRET is required when AUTH_TOKEN_FORMAT=jwt"))
		}
	default:
		errs = append(errs, errors.New("AUTH_TOKEN_FORMAT must be opaque or jwt"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

// getEnvBool accepts 1/0 as well as true/false, matching older deployments.
func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
