package config

import (
	"os"
	"strconv"
	"time"

	"openach/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Site     SiteConfig
	SMTP     SMTPConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL string
}

// ServerConfig holds web and API server settings
type ServerConfig struct {
	Port    string
	APIPort string
}

// SiteConfig holds site-wide behavior settings
type SiteConfig struct {
	Name                  string
	Domain                string
	AccountRequired       bool
	InviteRequired        bool
	EditRemoveEnabled     bool
	BoardSearchResultsMax int
	MetricsCacheTTL       time.Duration
	SessionTTL            time.Duration
	PrivacyURL            string
	DonateBitcoinAddress  string
}

// SMTPConfig holds outgoing mail settings for notification digests
type SMTPConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Server: ServerConfig{
			Port:    envOrDefault("PORT", "8080"),
			APIPort: envOrDefault("API_PORT", "8081"),
		},
		Site: SiteConfig{
			Name:                  envOrDefault("SITE_NAME", "Open Synthesis"),
			Domain:                envOrDefault("SITE_DOMAIN", "localhost:8080"),
			AccountRequired:       envBool("ACCOUNT_REQUIRED", false),
			InviteRequired:        envBool("INVITE_REQUIRED", false),
			EditRemoveEnabled:     envBool("EDIT_REMOVE_ENABLED", true),
			BoardSearchResultsMax: envInt("BOARD_SEARCH_RESULTS_MAX", 5),
			MetricsCacheTTL:       envDuration("METRICS_CACHE_TTL", 2*time.Minute),
			SessionTTL:            envDuration("SESSION_TTL", 14*24*time.Hour),
			PrivacyURL:            os.Getenv("PRIVACY_URL"),
			DonateBitcoinAddress:  os.Getenv("DONATE_BITCOIN_ADDRESS"),
		},
		SMTP: SMTPConfig{
			Enabled:  envBool("SMTP_ENABLED", false),
			Host:     os.Getenv("SMTP_HOST"),
			Port:     envInt("SMTP_PORT", 587),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     envOrDefault("SMTP_FROM", "digest@localhost"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is internally consistent
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return errors.ConfigInvalid("DATABASE_URL is required")
	}
	if c.SMTP.Enabled && c.SMTP.Host == "" {
		return errors.ConfigInvalid("SMTP_HOST is required when SMTP_ENABLED is set")
	}
	if c.Site.BoardSearchResultsMax <= 0 {
		return errors.ConfigInvalid("BOARD_SEARCH_RESULTS_MAX must be positive")
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return parsed
}
