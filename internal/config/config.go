// Package config provides configuration management for the backend server.
package config

import (
	"os"
	"strconv"
	"strings"
)

// Config holds all configuration for the server.
type Config struct {
	// Server configuration
	Port     int
	LogLevel string

	// CORS configuration
	CORSAllowedOrigins string

	// OIDC configuration
	OIDC OIDCConfig

	// Persistence configuration
	Persistence PersistenceConfig

	// MigrationsPath overrides the embedded migrations directory, for tests.
	MigrationsPath string
}

// PersistenceConfig configures the persistence provider and its optional
// remote/sync behavior, per spec.md 6's canonical variable list.
type PersistenceConfig struct {
	ProviderType        string // local | remote | hybrid
	RemoteURL           string
	RemoteAnonKey       string
	RemoteServiceRoleKey string
	ProjectID           string
	DefaultPrivacy      string // private | team | public
	AutoShare           bool
	AutoImport          bool
	SyncIntervalMs      int
}

// OIDCConfig holds OIDC authentication configuration.
type OIDCConfig struct {
	Issuer       string
	ClientID     string
	ClientSecret string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Port:               getEnvAsInt("AGENTIC_SERVER_PORT", getEnvAsInt("PORT", 8080)),
		LogLevel:           getEnv("AGENTIC_LOG_LEVEL", getEnv("LOG_LEVEL", "info")),
		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", ""),
		MigrationsPath:     getEnv("AGENTIC_MIGRATIONS_PATH", ""),
		OIDC: OIDCConfig{
			Issuer:       getEnv("OIDC_ISSUER", "https://token.actions.githubusercontent.com"),
			ClientID:     getEnv("OIDC_CLIENT_ID", ""),
			ClientSecret: getEnv("OIDC_CLIENT_SECRET", ""),
		},
		Persistence: PersistenceConfig{
			ProviderType:         getEnv("AGENTIC_PROVIDER_TYPE", "local"),
			RemoteURL:            getEnv("AGENTIC_REMOTE_URL", ""),
			RemoteAnonKey:        getEnv("AGENTIC_REMOTE_ANON_KEY", ""),
			RemoteServiceRoleKey: getEnv("AGENTIC_REMOTE_SERVICE_ROLE_KEY", ""),
			ProjectID:            getEnv("AGENTIC_PROJECT_ID", ""),
			DefaultPrivacy:       getEnv("AGENTIC_DEFAULT_PRIVACY", "private"),
			AutoShare:            getEnvAsBool("AGENTIC_AUTO_SHARE", false),
			AutoImport:           getEnvAsBool("AGENTIC_AUTO_IMPORT", false),
			SyncIntervalMs:       getEnvAsInt("AGENTIC_SYNC_INTERVAL_MS", 30000),
		},
	}
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer or returns a default value.
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool gets an environment variable as a bool or returns a default value.
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	switch strings.ToLower(valueStr) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	default:
		return defaultValue
	}
}
