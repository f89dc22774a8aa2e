package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Config holds all service configuration
type Config struct {
	// Gmail API Configuration
	Gmail GmailConfig `json:"gmail"`

	// Extraction Configuration
	Extraction ExtractionConfig `json:"extraction"`

	// HTTP Server Configuration
	Server ServerConfig `json:"server"`
}

// GmailConfig holds Gmail-specific configuration
type GmailConfig struct {
	// OAuth2 Settings
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	RefreshToken string `json:"refresh_token"`
	AccessToken  string `json:"access_token"`

	// Mailbox the service reads; defaults to the authenticated account
	UserEmail string `json:"user_email"`

	// Request Settings
	MaxResults     int64         `json:"max_results"`
	RateLimitDelay time.Duration `json:"rate_limit_delay"`
}

// ExtractionConfig holds code extraction pipeline configuration
type ExtractionConfig struct {
	// OwnerID identifies the mailbox owner runs are coordinated for
	OwnerID string `json:"owner_id"`

	// SenderDomains restricts the search to trusted airline senders
	SenderDomains []string `json:"sender_domains"`

	// Schedule is the cron expression for periodic runs
	Schedule string `json:"schedule"`

	// DBPath is the SQLite database location
	DBPath string `json:"db_path"`

	// DisableOCR turns the image fallback off when Tesseract is unavailable
	DisableOCR bool `json:"disable_ocr"`

	// DryRun extracts and logs without persisting or notifying
	DryRun bool `json:"dry_run"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `json:"host"`
	Port string `json:"port"`

	// DisableRateLimit turns off the manual trigger cooldown
	DisableRateLimit bool `json:"disable_rate_limit"`
}

// GetDisableRateLimit implements the rate limiter's config interface
func (c *ServerConfig) GetDisableRateLimit() bool {
	return c.DisableRateLimit
}

// Address returns the host:port the server listens on
func (c *ServerConfig) Address() string {
	return c.Host + ":" + c.Port
}

// validate checks required fields
func (c *Config) validate() error {
	if c.Gmail.ClientID == "" {
		return errors.New("gmail.client_id is required")
	}
	if c.Gmail.ClientSecret == "" {
		return errors.New("gmail.client_secret is required")
	}
	if c.Gmail.RefreshToken == "" && c.Gmail.AccessToken == "" {
		return errors.New("one of gmail.refresh_token or gmail.access_token is required")
	}
	if c.Extraction.OwnerID == "" {
		return errors.New("extraction.owner_id is required")
	}
	if len(c.Extraction.SenderDomains) == 0 {
		return errors.New("extraction.sender_domains must not be empty")
	}
	if c.Extraction.DBPath == "" {
		return errors.New("extraction.db_path is required")
	}
	if c.Server.Port == "" {
		return errors.New("server.port is required")
	}
	return nil
}

// ToJSON returns the configuration as JSON with secrets redacted, for
// startup logging.
func (c *Config) ToJSON() (string, error) {
	safe := *c
	safe.Gmail.ClientSecret = redact(safe.Gmail.ClientSecret)
	safe.Gmail.RefreshToken = redact(safe.Gmail.RefreshToken)
	safe.Gmail.AccessToken = redact(safe.Gmail.AccessToken)

	data, err := json.MarshalIndent(safe, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}
	return string(data), nil
}

// redact masks a secret, keeping a short prefix for identification
func redact(value string) string {
	if value == "" {
		return ""
	}
	if len(value) <= 8 {
		return "***"
	}
	return value[:4] + "***"
}
