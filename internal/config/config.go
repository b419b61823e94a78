// internal/config/config.go
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	Scheduler SchedulerConfig
}

type ServerConfig struct {
	HTTPPort    string
	Environment string
}

type DatabaseConfig struct {
	Driver   string // "postgres" or "sqlite"
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	Path     string // sqlite only
}

type AuthConfig struct {
	// SessionSecret verifies user session tokens.
	SessionSecret string

	// ServiceKey signs automation tokens for service-to-service calls.
	ServiceKey string

	// ServiceSecret is the shared x-service-secret header value. Empty
	// means the header is not required.
	ServiceSecret string

	SessionTokenDuration    time.Duration
	AutomationTokenDuration time.Duration
}

type SchedulerConfig struct {
	// EndpointURL is the remote scheduling endpoint. Empty means the
	// dispatch client always runs the engine in process.
	EndpointURL string

	// CronSpec drives the periodic batch run.
	CronSpec string

	RequestTimeout time.Duration
}

func Load() (*Config, error) {
	return &Config{
		Server: ServerConfig{
			HTTPPort:    getEnv("HTTP_PORT", "8080"),
			Environment: getEnv("ENVIRONMENT", "development"),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "postgres"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "homedesk"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
			Path:     getEnv("SQLITE_PATH", "homedesk.db"),
		},
		Auth: AuthConfig{
			SessionSecret:           getEnv("JWT_SESSION_SECRET", getEnv("JWT_SECRET", "dev-session-secret-change-in-production")),
			ServiceKey:              getEnv("SERVICE_KEY", getEnv("JWT_SECRET", "dev-service-key-change-in-production")),
			ServiceSecret:           os.Getenv("SERVICE_SECRET"),
			SessionTokenDuration:    getEnvAsDuration("SESSION_TOKEN_DURATION", 15*time.Minute),
			AutomationTokenDuration: getEnvAsDuration("AUTOMATION_TOKEN_DURATION", 5*time.Minute),
		},
		Scheduler: SchedulerConfig{
			EndpointURL:    getEnv("SCHEDULER_URL", DeriveEndpointURL(os.Getenv("SERVICE_BASE_URL"))),
			CronSpec:       getEnv("SCHEDULER_CRON", "0 6 * * *"),
			RequestTimeout: getEnvAsDuration("SCHEDULER_REQUEST_TIMEOUT", 30*time.Second),
		},
	}, nil
}

// DeriveEndpointURL maps the platform base URL to the remote scheduling
// endpoint. The derivation happens once at load time; nothing else reads
// SERVICE_BASE_URL.
func DeriveEndpointURL(base string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return ""
	}
	return strings.TrimRight(base, "/") + "/recurring-tasks"
}

func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	// Try parsing as duration string (e.g., "15m", "24h")
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}

	return defaultValue
}
