package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/almoud/foodcost/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// Redis configuration (login rate limiter)
	Redis RedisConfig

	// Auth configuration
	Auth AuthConfig

	// Tenancy configuration
	Tenancy TenancyConfig

	// Observability configuration
	Observability ObservabilityConfig

	// Audit configuration
	Audit AuditConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
	ConnLifetime time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	URL      string
	Password string
	DB       int
}

// AuthConfig holds credential issuance and verification settings
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration

	// Login rate limiting
	LoginRateLimit  int
	LoginRateWindow time.Duration
}

// TenancyConfig holds tenant resolution settings
type TenancyConfig struct {
	// RootDomain is the reserved operator domain; principals whose email
	// domain equals it are super admins, and tenant subdomains hang off it
	// (e.g. latrattoria.almoud.pe).
	RootDomain string

	// TenantCacheSize and TenantCacheTTL bound the in-process
	// tenant-by-subdomain cache in front of the directory.
	TenantCacheSize int
	TenantCacheTTL  time.Duration
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool
}

// AuditConfig holds audit log settings
type AuditConfig struct {
	Retention time.Duration
	// CleanupSchedule is a cron expression for the retention job
	CleanupSchedule string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("FOODCOST_HOST", "0.0.0.0"),
			Port:            getEnv("FOODCOST_PORT", "8080"),
			ReadTimeout:     getEnvDuration("FOODCOST_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("FOODCOST_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("FOODCOST_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("FOODCOST_SHUTDOWN_TIMEOUT", 30*time.Second),
			HealthPort:      getEnv("FOODCOST_HEALTH_PORT", "9090"),
		},
		Database: DatabaseConfig{
			URL:          getEnv("FOODCOST_POSTGRES_URL", ""),
			MaxOpenConns: getEnvInt("FOODCOST_POSTGRES_MAX_CONNS", 20),
			MaxIdleConns: getEnvInt("FOODCOST_POSTGRES_IDLE_CONNS", 5),
			ConnLifetime: getEnvDuration("FOODCOST_POSTGRES_CONN_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL:      getEnv("FOODCOST_REDIS_URL", ""),
			Password: getEnv("FOODCOST_REDIS_PASSWORD", ""),
			DB:       getEnvInt("FOODCOST_REDIS_DB", 0),
		},
		Auth: AuthConfig{
			JWTSecret:       getEnv("FOODCOST_JWT_SECRET", ""),
			TokenTTL:        getEnvDuration("FOODCOST_TOKEN_TTL", 24*time.Hour),
			LoginRateLimit:  getEnvInt("FOODCOST_LOGIN_RATE_LIMIT", 10),
			LoginRateWindow: getEnvDuration("FOODCOST_LOGIN_RATE_WINDOW", time.Minute),
		},
		Tenancy: TenancyConfig{
			RootDomain:      getEnv("FOODCOST_ROOT_DOMAIN", "almoud.pe"),
			TenantCacheSize: getEnvInt("FOODCOST_TENANT_CACHE_SIZE", 1024),
			TenantCacheTTL:  getEnvDuration("FOODCOST_TENANT_CACHE_TTL", 30*time.Second),
		},
		Observability: ObservabilityConfig{
			LogLevel:       parseLogLevel(getEnv("FOODCOST_LOG_LEVEL", "info")),
			MetricsEnabled: getEnvBool("FOODCOST_METRICS_ENABLED", true),
		},
		Audit: AuditConfig{
			Retention:       getEnvDuration("FOODCOST_AUDIT_RETENTION", 90*24*time.Hour),
			CleanupSchedule: getEnv("FOODCOST_AUDIT_CLEANUP_SCHEDULE", "0 3 * * *"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("postgres URL is required")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("token TTL must be positive")
	}

	if c.Tenancy.RootDomain == "" {
		return fmt.Errorf("root domain is required")
	}
	if strings.Contains(c.Tenancy.RootDomain, "@") {
		return fmt.Errorf("root domain must not contain '@': %s", c.Tenancy.RootDomain)
	}

	return nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
