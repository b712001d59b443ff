package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fedbridge/fedbridge/pkg/observability"
)

// Config holds all application configuration.
type Config struct {
	Server        ServerConfig
	Store         StoreConfig
	Connection    ConnectionConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// StoreConfig selects and configures the storage backend.
type StoreConfig struct {
	// Type is one of memory, redis, postgres, sqlite.
	Type string

	// RedisURL is a redis:// connection URL.
	RedisURL string
	// RedisNamespace prefixes every key the broker writes.
	RedisNamespace string

	// PostgresURL is a postgres:// connection URL.
	PostgresURL string

	// SQLitePath is the database file path.
	SQLitePath string

	// CacheSize > 0 wraps the backend in an in-process LRU read cache.
	CacheSize int

	// JanitorSchedule is a cron expression for index-reconciliation
	// sweeps. Empty disables the janitor.
	JanitorSchedule string
}

// ConnectionConfig holds connection-controller settings.
type ConnectionConfig struct {
	// ManifestDir holds JSON connection manifests provisioned at boot.
	ManifestDir string
	// WatchManifests re-provisions when manifest files change.
	WatchManifests bool
	// CertCommonName is the subject on generated SP signing certificates.
	CertCommonName string
	// ValidateOIDCDiscovery probes OIDC discovery URLs during creation.
	ValidateOIDCDiscovery bool
}

// ObservabilityConfig holds logging and metrics settings.
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("FEDBRIDGE_HOST", "0.0.0.0"),
			Port:            getEnv("FEDBRIDGE_PORT", "5225"),
			ReadTimeout:     getEnvDuration("FEDBRIDGE_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("FEDBRIDGE_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("FEDBRIDGE_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("FEDBRIDGE_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Store: StoreConfig{
			Type:            getEnv("FEDBRIDGE_STORE_TYPE", "memory"),
			RedisURL:        getEnv("FEDBRIDGE_REDIS_URL", ""),
			RedisNamespace:  getEnv("FEDBRIDGE_REDIS_NAMESPACE", "fedbridge"),
			PostgresURL:     getEnv("FEDBRIDGE_POSTGRES_URL", ""),
			SQLitePath:      getEnv("FEDBRIDGE_SQLITE_PATH", ""),
			CacheSize:       getEnvInt("FEDBRIDGE_CACHE_SIZE", 0),
			JanitorSchedule: getEnv("FEDBRIDGE_JANITOR_SCHEDULE", ""),
		},
		Connection: ConnectionConfig{
			ManifestDir:           getEnv("FEDBRIDGE_MANIFEST_DIR", ""),
			WatchManifests:        getEnvBool("FEDBRIDGE_MANIFEST_WATCH", false),
			CertCommonName:        getEnv("FEDBRIDGE_CERT_COMMON_NAME", "FedBridge"),
			ValidateOIDCDiscovery: getEnvBool("FEDBRIDGE_VALIDATE_OIDC_DISCOVERY", false),
		},
		Observability: ObservabilityConfig{
			LogLevel:       observability.ParseLevel(getEnv("FEDBRIDGE_LOG_LEVEL", "info")),
			MetricsEnabled: getEnvBool("FEDBRIDGE_METRICS_ENABLED", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	switch c.Store.Type {
	case "memory":
	case "redis":
		if c.Store.RedisURL == "" {
			return fmt.Errorf("redis URL is required for redis store")
		}
	case "postgres":
		if c.Store.PostgresURL == "" {
			return fmt.Errorf("postgres URL is required for postgres store")
		}
	case "sqlite":
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("sqlite path is required for sqlite store")
		}
	default:
		return fmt.Errorf("invalid store type: %s (must be memory, redis, postgres, or sqlite)", c.Store.Type)
	}

	if c.Connection.WatchManifests && c.Connection.ManifestDir == "" {
		return fmt.Errorf("manifest dir is required when manifest watching is enabled")
	}
	return nil
}

// getEnv returns an environment variable value or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
