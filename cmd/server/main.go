package main

import (
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/viper"

	"code-courier/internal/config"
	"code-courier/internal/database"
	"code-courier/internal/email"
	"code-courier/internal/notify"
	"code-courier/internal/ocr"
	"code-courier/internal/parser"
	"code-courier/internal/ratelimit"
	"code-courier/internal/server"
	"code-courier/internal/workers"
)

func main() {
	config.LoadEnvFile(".env")

	// Load configuration
	cfg, err := config.LoadConfigWithViper(viper.New())
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if out, err := cfg.ToJSON(); err == nil {
		log.Printf("Configuration:\n%s", out)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	// Initialize database
	db, err := database.Open(cfg.Extraction.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	log.Printf("Database initialized at %s", cfg.Extraction.DBPath)

	// Connect to Gmail
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
		log.Fatalf("Failed to create Gmail client: %v", err)
	}
	defer mail.Close()

	// OCR fallback for codes embedded in images
	var images workers.ImageCodeExtractor
	if cfg.Extraction.DisableOCR {
		log.Println("OCR fallback disabled")
	} else {
		images = ocr.NewImageExtractor(ocr.NewTesseractRecognizer(), parser.NewExtractor())
	}

	hub := notify.NewHub(logger)

	coordinator := workers.NewCoordinator(&workers.CoordinatorConfig{
		SenderDomains: cfg.Extraction.SenderDomains,
		DryRun:        cfg.Extraction.DryRun,
	}, mail, db.Codes, hub, images, logger)

	scheduler := workers.NewScheduler(coordinator, cfg.Extraction.OwnerID, cfg.Extraction.Schedule, logger)
	if err := scheduler.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	limiter := ratelimit.NewTriggerLimiter(&cfg.Server)

	handler := server.NewRouter(server.Options{
		DB:      db,
		Runner:  coordinator,
		Limiter: limiter,
		Hub:     hub,
	})

	srv := &http.Server{
		Addr:    cfg.Server.Address(),
		Handler: handler,

		// Timeouts
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Handle server startup and graceful shutdown
	shutdownTimeout := 30 * time.Second
	if err := server.HandleSignals(srv, shutdownTimeout, scheduler.Stop, hub.Close); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
