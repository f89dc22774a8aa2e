package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// LoadConfigWithViper loads service configuration using Viper
func LoadConfigWithViper(v *viper.Viper) (*Config, error) {
	// Set defaults
	setDefaults(v)

	// Set up environment variable binding
	setupEnvBinding(v)

	// Load configuration file if specified
	if err := loadConfigFile(v); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	// Unmarshal configuration
	config := &Config{}
	if err := unmarshalConfig(v, config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults sets default values for service configuration
func setDefaults(v *viper.Viper) {
	// Gmail defaults
	v.SetDefault("gmail.max_results", 100)
	v.SetDefault("gmail.rate_limit_delay", "100ms")

	// Extraction defaults
	v.SetDefault("extraction.owner_id", "default")
	v.SetDefault("extraction.sender_domains", []string{
		"info.latam.com",
		"comunicado.smiles.com.br",
	})
	v.SetDefault("extraction.schedule", "*/15 * * * *")
	v.SetDefault("extraction.db_path", "./codes.db")
	v.SetDefault("extraction.disable_ocr", false)
	v.SetDefault("extraction.dry_run", false)

	// Server defaults
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.disable_rate_limit", false)
}

// setupEnvBinding sets up environment variable binding
func setupEnvBinding(v *viper.Viper) {
	// Set environment variable prefix
	v.SetEnvPrefix("CODE_COURIER")
	v.AutomaticEnv()

	envBindings := map[string]string{
		// Gmail
		"gmail.client_id":        "GMAIL_CLIENT_ID",
		"gmail.client_secret":    "GMAIL_CLIENT_SECRET",
		"gmail.refresh_token":    "GMAIL_REFRESH_TOKEN",
		"gmail.access_token":     "GMAIL_ACCESS_TOKEN",
		"gmail.user_email":       "GMAIL_USER_EMAIL",
		"gmail.max_results":      "GMAIL_MAX_RESULTS",
		"gmail.rate_limit_delay": "GMAIL_RATE_LIMIT_DELAY",

		// Extraction
		"extraction.owner_id":       "EXTRACTION_OWNER_ID",
		"extraction.sender_domains": "EXTRACTION_SENDER_DOMAINS",
		"extraction.schedule":       "EXTRACTION_SCHEDULE",
		"extraction.db_path":        "EXTRACTION_DB_PATH",
		"extraction.disable_ocr":    "EXTRACTION_DISABLE_OCR",
		"extraction.dry_run":        "EXTRACTION_DRY_RUN",

		// Server
		"server.host":               "SERVER_HOST",
		"server.port":               "SERVER_PORT",
		"server.disable_rate_limit": "SERVER_DISABLE_RATE_LIMIT",
	}

	for configKey, envSuffix := range envBindings {
		v.BindEnv(configKey, "CODE_COURIER_"+envSuffix)
	}

	// Bind unprefixed Gmail credentials so existing OAuth setups keep working
	credentialBindings := map[string]string{
		"gmail.client_id":     "GMAIL_CLIENT_ID",
		"gmail.client_secret": "GMAIL_CLIENT_SECRET",
		"gmail.refresh_token": "GMAIL_REFRESH_TOKEN",
		"gmail.access_token":  "GMAIL_ACCESS_TOKEN",
		"gmail.user_email":    "GMAIL_USER_EMAIL",
	}

	for configKey, envVar := range credentialBindings {
		v.BindEnv(configKey, envVar)
	}
}

// loadConfigFile loads configuration file if it exists
func loadConfigFile(v *viper.Viper) error {
	// Check if a specific config file was set
	if v.ConfigFileUsed() == "" {
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.code-courier")
		v.SetConfigName("code-courier")
	}

	// Try to read config file
	if err := v.ReadInConfig(); err != nil {
		// Config file is optional, only return error if it's not a "not found" error
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return err
		}
	}

	return nil
}

// unmarshalConfig unmarshals Viper configuration into the Config struct
func unmarshalConfig(v *viper.Viper, config *Config) error {
	// Gmail configuration
	config.Gmail.ClientID = v.GetString("gmail.client_id")
	config.Gmail.ClientSecret = v.GetString("gmail.client_secret")
	config.Gmail.RefreshToken = v.GetString("gmail.refresh_token")
	config.Gmail.AccessToken = v.GetString("gmail.access_token")
	config.Gmail.UserEmail = v.GetString("gmail.user_email")
	config.Gmail.MaxResults = v.GetInt64("gmail.max_results")

	var err error
	config.Gmail.RateLimitDelay, err = time.ParseDuration(v.GetString("gmail.rate_limit_delay"))
	if err != nil {
		return fmt.Errorf("invalid gmail rate limit delay: %w", err)
	}

	// Extraction configuration
	config.Extraction.OwnerID = v.GetString("extraction.owner_id")
	config.Extraction.SenderDomains = v.GetStringSlice("extraction.sender_domains")
	config.Extraction.Schedule = v.GetString("extraction.schedule")
	config.Extraction.DBPath = v.GetString("extraction.db_path")
	config.Extraction.DisableOCR = v.GetBool("extraction.disable_ocr")
	config.Extraction.DryRun = v.GetBool("extraction.dry_run")

	// Server configuration
	config.Server.Host = v.GetString("server.host")
	config.Server.Port = v.GetString("server.port")
	config.Server.DisableRateLimit = v.GetBool("server.disable_rate_limit")

	return nil
}
