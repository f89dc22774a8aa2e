package workers

import (
	"log/slog"
	"sync"
	"time"

	"code-courier/internal/database"
	"code-courier/internal/email"
	"code-courier/internal/ocr"
	"code-courier/internal/parser"
)

// MailClient is the mail transport the coordinator fetches messages through.
type MailClient interface {
	ListMessages(query string) ([]string, error)
	GetMessage(id string) (*email.RawMessage, error)
	GetAttachment(messageID, attachmentID string) ([]byte, error)
}

// CodeStore persists extracted codes with deduplication.
type CodeStore interface {
	InsertIfAbsent(code *database.VerificationCode) (bool, error)
	LastEmailDate(ownerID string) (time.Time, error)
}

// Notifier announces newly saved codes. Fire and forget.
type Notifier interface {
	NotifyNewCode(code *database.VerificationCode)
}

// ImageCodeExtractor is the OCR fallback for messages with no codes in text.
type ImageCodeExtractor interface {
	ExtractFromImages(payload *email.MimePart, fetch ocr.FetchAttachment) ([]string, error)
}

// ExtractedEmail is the per-message artifact assembled once a message is
// accepted: identity headers, the deduplicated codes, and a short body
// excerpt kept for later inspection.
type ExtractedEmail struct {
	ID           string    `json:"id"`
	From         string    `json:"from"`
	To           string    `json:"to"`
	Subject      string    `json:"subject"`
	Date         time.Time `json:"date"`
	Airline      string    `json:"airline"`
	Codes        []string  `json:"codes"`
	CustomerName string    `json:"customer_name,omitempty"`
	BodyExcerpt  string    `json:"body_excerpt"`
}

// bodyExcerptLimit caps the stored excerpt at 500 characters.
const bodyExcerptLimit = 500

func bodyExcerpt(body string) string {
	runes := []rune(body)
	if len(runes) <= bodyExcerptLimit {
		return body
	}
	return string(runes[:bodyExcerptLimit])
}

// RunSummary reports what one extraction run did.
type RunSummary struct {
	Examined   int  `json:"examined"`
	Accepted   int  `json:"accepted"`
	Saved      int  `json:"saved"`
	Duplicates int  `json:"duplicates"`
	Errors     int  `json:"errors"`
	Busy       bool `json:"busy,omitempty"`
}

// CoordinatorConfig holds the coordinator's settings.
type CoordinatorConfig struct {
	// SenderDomains restricts the mail search to trusted senders.
	SenderDomains []string

	// DryRun extracts and logs codes without persisting or notifying.
	DryRun bool
}

// Coordinator drives the classify-extract-validate-persist pipeline for one
// owner at a time. Overlapping runs for the same owner are rejected, not
// queued; runs for different owners may proceed concurrently.
type Coordinator struct {
	config     *CoordinatorConfig
	mail       MailClient
	store      CodeStore
	notifier   Notifier
	images     ImageCodeExtractor
	classifier *parser.Classifier
	extractor  *parser.Extractor
	logger     *slog.Logger

	mu         sync.Mutex
	activeRuns map[string]bool
}

// NewCoordinator creates a run coordinator.
func NewCoordinator(config *CoordinatorConfig, mail MailClient, store CodeStore, notifier Notifier, images ImageCodeExtractor, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		config:     config,
		mail:       mail,
		store:      store,
		notifier:   notifier,
		images:     images,
		classifier: parser.NewClassifier(),
		extractor:  parser.NewExtractor(),
		logger:     logger,
		activeRuns: make(map[string]bool),
	}
}

// RunExtraction fetches, classifies and extracts codes for one owner. When
// onlyNew is set the fetch window starts one second after the owner's most
// recent stored message. Returns immediately with Busy set if a run for the
// same owner is already active.
func (c *Coordinator) RunExtraction(ownerID string, onlyNew bool) (*RunSummary, error) {
	if !c.tryAcquire(ownerID) {
		c.logger.Info("Extraction already running, skipping", "owner_id", ownerID)
		return &RunSummary{Busy: true}, nil
	}
	defer c.release(ownerID)

	logger := c.logger.With("owner_id", ownerID)
	summary := &RunSummary{}

	var after time.Time
	if onlyNew {
		last, err := c.store.LastEmailDate(ownerID)
		if err != nil {
			logger.Error("Failed to load last email date, fetching full window", "error", err)
		} else if !last.IsZero() {
			after = last.Add(time.Second)
		}
	}

	query := email.BuildSearchQuery(c.config.SenderDomains, after)
	ids, err := c.mail.ListMessages(query)
	if err != nil {
		logger.Error("Mail search failed", "error", err)
		return summary, err
	}

	logger.Info("Starting extraction run", "messages", len(ids), "only_new", onlyNew)

	for _, id := range ids {
		msg, err := c.mail.GetMessage(id)
		if err != nil {
			logger.Error("Failed to fetch message", "message_id", id, "error", err)
			summary.Errors++
			continue
		}

		summary.Examined++

		if !c.classifier.ShouldProcess(msg.From, msg.Subject) {
			continue
		}

		codes := c.extractor.Extract(msg.Body)

		if len(codes) == 0 && c.images != nil && msg.Payload != nil {
			codes = c.extractFromImages(msg, logger)
		}

		if len(codes) == 0 {
			logger.Debug("No codes found in message", "message_id", id)
			continue
		}

		summary.Accepted++

		airline := c.classifier.IdentifyAirline(msg.From, msg.Subject)
		extracted := &ExtractedEmail{
			ID:           msg.ID,
			From:         msg.From,
			To:           msg.To,
			Subject:      msg.Subject,
			Date:         msg.Date,
			Airline:      airline,
			Codes:        codes,
			CustomerName: parser.ExtractCustomerName(msg.Body, airline),
			BodyExcerpt:  bodyExcerpt(msg.Body),
		}

		c.persistCodes(ownerID, extracted, summary, logger)
	}

	logger.Info("Extraction run finished",
		"examined", summary.Examined,
		"accepted", summary.Accepted,
		"saved", summary.Saved,
		"duplicates", summary.Duplicates,
		"errors", summary.Errors)

	return summary, nil
}

// extractFromImages runs the OCR fallback. Its errors never fail the message.
func (c *Coordinator) extractFromImages(msg *email.RawMessage, logger *slog.Logger) []string {
	fetch := func(attachmentID string) ([]byte, error) {
		return c.mail.GetAttachment(msg.ID, attachmentID)
	}

	codes, err := c.images.ExtractFromImages(msg.Payload, fetch)
	if err != nil {
		logger.Error("OCR fallback failed", "message_id", msg.ID, "error", err)
		return nil
	}
	return codes
}

// persistCodes saves each code and updates the run counters. A failed insert
// counts as an error without stopping the batch.
func (c *Coordinator) persistCodes(ownerID string, msg *ExtractedEmail, summary *RunSummary, logger *slog.Logger) {
	for _, code := range msg.Codes {
		if c.config.DryRun {
			logger.Info("Dry run, not saving code", "message_id", msg.ID, "airline", msg.Airline, "code", code)
			continue
		}

		record := &database.VerificationCode{
			OwnerID:      ownerID,
			EmailID:      msg.ID,
			Code:         code,
			Airline:      msg.Airline,
			Sender:       msg.From,
			Recipient:    msg.To,
			Subject:      msg.Subject,
			CustomerName: msg.CustomerName,
			BodyExcerpt:  msg.BodyExcerpt,
		}
		if !msg.Date.IsZero() {
			date := msg.Date
			record.EmailDate = &date
		}

		inserted, err := c.store.InsertIfAbsent(record)
		if err != nil {
			logger.Error("Failed to save code", "message_id", msg.ID, "code", code, "error", err)
			summary.Errors++
			continue
		}
		if !inserted {
			summary.Duplicates++
			continue
		}

		summary.Saved++
		logger.Info("Saved new verification code", "message_id", msg.ID, "airline", msg.Airline, "code", code)

		if c.notifier != nil {
			c.notifier.NotifyNewCode(record)
		}
	}
}

// tryAcquire claims the per-owner run slot without blocking.
func (c *Coordinator) tryAcquire(ownerID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.activeRuns[ownerID] {
		return false
	}
	c.activeRuns[ownerID] = true
	return true
}

func (c *Coordinator) release(ownerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.activeRuns, ownerID)
}
