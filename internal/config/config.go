// Package config handles application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Server settings
	Host string
	Port int

	// PublicURL is the externally reachable base URL of this gateway. It is
	// used to build the webhook address handed to the image backend, so it
	// must match the address the backend can actually reach.
	PublicURL string

	// Database
	DatabaseURL    string
	TursoURL       string // embedded replica primary; optional
	TursoAuthToken string

	// Dialog backend (chat)
	DifyAPIURL string

	// Image backend
	ReplicateAPIKey string
	ReplicateAPIURL string

	// Content-addressed store
	IPFSURL string

	// CORS
	CORSOrigins []string

	// Image job tuning
	ImageWaitTimeout time.Duration // synchronous wait before 408 continuation
	StaleJobMaxAge   time.Duration // boot-time sweep threshold
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Host: getEnv("HOST", "0.0.0.0"),
		Port: getEnvInt("PORT", 8223),

		PublicURL: getEnv("PUBLIC_URL", ""),

		DatabaseURL:    getEnv("DATABASE_URL", "file:oaigate.db?_journal=WAL&_timeout=5000"),
		TursoURL:       getEnv("TURSO_URL", ""),
		TursoAuthToken: getEnv("TURSO_AUTH_TOKEN", ""),

		DifyAPIURL: getEnv("DIFY_API_URL", ""),

		ReplicateAPIKey: getEnv("REPLICATE_API_KEY", ""),
		ReplicateAPIURL: getEnv("REPLICATE_API_URL", "https://api.replicate.com/v1"),

		IPFSURL: getEnv("IPFS_URL", "https://ipfs.infura.io:5001"),

		CORSOrigins: getEnvSlice("CORS_ORIGINS", []string{"*"}),

		ImageWaitTimeout: getEnvDuration("IMAGE_WAIT_TIMEOUT", 30*time.Second),
		StaleJobMaxAge:   getEnvDuration("STALE_JOB_MAX_AGE", time.Hour),
	}

	if cfg.PublicURL == "" {
		return nil, fmt.Errorf("PUBLIC_URL is required")
	}
	if cfg.DifyAPIURL == "" {
		return nil, fmt.Errorf("DIFY_API_URL is required")
	}
	if cfg.ReplicateAPIKey == "" {
		return nil, fmt.Errorf("REPLICATE_API_KEY is required")
	}
	cfg.PublicURL = strings.TrimRight(cfg.PublicURL, "/")
	cfg.ReplicateAPIURL = strings.TrimRight(cfg.ReplicateAPIURL, "/")
	cfg.IPFSURL = strings.TrimRight(cfg.IPFSURL, "/")

	return cfg, nil
}

// ListenAddr returns the host:port the HTTP server binds to.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// WebhookURL returns the backend-facing webhook address for a job id.
func (c *Config) WebhookURL(id string) string {
	return fmt.Sprintf("%s/v1/webhook/replicate/%s", c.PublicURL, id)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}
