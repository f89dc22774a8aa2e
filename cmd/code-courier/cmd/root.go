// Copyright 2025 Code Courier
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"code-courier/internal/config"
	"code-courier/internal/database"
	"code-courier/internal/email"
	"code-courier/internal/ocr"
	"code-courier/internal/parser"
	"code-courier/internal/workers"
)

const (
	// Version information
	Version   = "1.0.0"
	BuildDate = "development"
)

var (
	configFile string
	dryRun     bool
	full       bool
	ownerID    string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "code-courier",
	Short: "Extract airline verification codes from a Gmail mailbox",
	Long: `Code Courier v1.0.0

DESCRIPTION:
    Scans a Gmail mailbox for verification emails from trusted airline
    senders (LATAM, Smiles, TAM, GOL), extracts the one-time codes from
    their HTML bodies or attached images, and stores them in SQLite.

    Running the command performs a single extraction pass and prints a
    summary. Use the server binary for scheduled runs, the HTTP API and
    WebSocket notifications.

CONFIGURATION:
    Configuration is done via environment variables and .env files:

    Gmail API Configuration:
        GMAIL_CLIENT_ID                       - OAuth2 client ID
        GMAIL_CLIENT_SECRET                   - OAuth2 client secret
        GMAIL_REFRESH_TOKEN                   - OAuth2 refresh token
        GMAIL_ACCESS_TOKEN                    - OAuth2 access token
        GMAIL_USER_EMAIL                      - Mailbox to read (default: authenticated account)
        CODE_COURIER_GMAIL_MAX_RESULTS        - Maximum emails per search (default: 100)
        CODE_COURIER_GMAIL_RATE_LIMIT_DELAY   - Delay between Gmail API calls (default: 100ms)

    Extraction Configuration:
        CODE_COURIER_EXTRACTION_OWNER_ID       - Mailbox owner identifier (default: default)
        CODE_COURIER_EXTRACTION_SENDER_DOMAINS - Trusted sender domains
        CODE_COURIER_EXTRACTION_DB_PATH        - SQLite database path (default: ./codes.db)
        CODE_COURIER_EXTRACTION_DISABLE_OCR    - Skip the image OCR fallback (default: false)
        CODE_COURIER_EXTRACTION_DRY_RUN        - Extract codes without saving them (default: false)

EXAMPLES:
    # Basic usage with OAuth2
    export GMAIL_CLIENT_ID="your-client-id"
    export GMAIL_CLIENT_SECRET="your-client-secret"
    export GMAIL_REFRESH_TOKEN="your-refresh-token"
    code-courier

    # With a configuration file
    code-courier --config=code-courier.yaml

    # Re-scan the whole mailbox instead of only new messages
    code-courier --full

    # Dry run mode for testing
    code-courier --dry-run`,
	Version: "1.0.0",
	RunE:    runCodeCourier,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	fang.Execute(context.Background(), rootCmd)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is .env in current directory)")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "extract codes without saving or notifying")
	rootCmd.PersistentFlags().BoolVar(&full, "full", false, "scan the whole mailbox instead of only messages newer than the last saved code")
	rootCmd.PersistentFlags().StringVar(&ownerID, "owner", "", "owner id to record codes under (default from configuration)")
}

// loadConfiguration loads configuration from files and environment variables
func loadConfiguration() (*config.Config, error) {
	v := viper.New()

	if configFile != "" {
		if isEnvFile(configFile) {
			config.LoadEnvFile(configFile)
		} else {
			v.SetConfigFile(configFile)
		}
	} else {
		config.LoadEnvFile(".env")
	}

	cfg, err := config.LoadConfigWithViper(v)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// Override with CLI flags
	if dryRun {
		cfg.Extraction.DryRun = true
	}
	if ownerID != "" {
		cfg.Extraction.OwnerID = ownerID
	}

	return cfg, nil
}

// isEnvFile reports whether a config path points at a KEY=VALUE env file
// rather than a structured Viper config file.
func isEnvFile(path string) bool {
	base := filepath.Base(path)
	return strings.HasSuffix(path, ".env") || strings.HasPrefix(base, ".env") || !strings.Contains(base, ".")
}

// runCodeCourier performs a single extraction pass
func runCodeCourier(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfiguration()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	logger.Info("Starting extraction run",
		"version", Version,
		"build_date", BuildDate,
		"owner_id", cfg.Extraction.OwnerID,
		"dry_run", cfg.Extraction.DryRun)

	db, err := database.Open(cfg.Extraction.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	mail, err := email.NewGmailClient(&email.GmailConfig{
		ClientID:       cfg.Gmail.ClientID,
		ClientSecret:   cfg.Gmail.ClientSecret,
		RefreshToken:   cfg.Gmail.RefreshToken,
		AccessToken:    cfg.Gmail.AccessToken,
		UserEmail:      cfg.Gmail.UserEmail,
		MaxResults:     cfg.Gmail.MaxResults,
		RateLimitDelay: cfg.Gmail.RateLimitDelay,
	})
	if err != nil {
		return fmt.Errorf("failed to create Gmail client: %w", err)
	}
	defer mail.Close()

	var images workers.ImageCodeExtractor
	if !cfg.Extraction.DisableOCR {
		images = ocr.NewImageExtractor(ocr.NewTesseractRecognizer(), parser.NewExtractor())
	}

	coordinator := workers.NewCoordinator(&workers.CoordinatorConfig{
		SenderDomains: cfg.Extraction.SenderDomains,
		DryRun:        cfg.Extraction.DryRun,
	}, mail, db.Codes, nil, images, logger)

	summary, err := coordinator.RunExtraction(cfg.Extraction.OwnerID, !full)
	if err != nil {
		return fmt.Errorf("extraction run failed: %w", err)
	}

	fmt.Printf("Examined:   %d\n", summary.Examined)
	fmt.Printf("Accepted:   %d\n", summary.Accepted)
	fmt.Printf("Saved:      %d\n", summary.Saved)
	fmt.Printf("Duplicates: %d\n", summary.Duplicates)
	fmt.Printf("Errors:     %d\n", summary.Errors)

	return nil
}
