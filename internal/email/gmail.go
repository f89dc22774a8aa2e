package email

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// GmailClient implements MailClient for the Gmail API
type GmailClient struct {
	service *gmail.Service
	userID  string
	config  *GmailConfig
	ctx     context.Context
}

// GmailConfig holds Gmail API configuration
type GmailConfig struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	AccessToken  string
	UserEmail    string

	// Request limits
	MaxResults     int64
	RateLimitDelay time.Duration
}

// NewGmailClient creates a new Gmail API client
func NewGmailClient(config *GmailConfig) (*GmailClient, error) {
	ctx := context.Background()

	oauthConfig := &oauth2.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		Scopes:       []string{gmail.GmailReadonlyScope},
		Endpoint:     google.Endpoint,
	}

	token := &oauth2.Token{
		AccessToken:  config.AccessToken,
		RefreshToken: config.RefreshToken,
		TokenType:    "Bearer",
	}

	httpClient := oauthConfig.Client(ctx, token)

	service, err := gmail.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	userID := "me"
	if config.UserEmail != "" {
		userID = config.UserEmail
	}

	client := &GmailClient{
		service: service,
		userID:  userID,
		config:  config,
		ctx:     ctx,
	}

	if err := client.HealthCheck(); err != nil {
		return nil, fmt.Errorf("Gmail client health check failed: %w", err)
	}

	return client, nil
}

// ListMessages performs a Gmail search query and returns matching message IDs,
// following pagination until MaxResults is reached.
func (g *GmailClient) ListMessages(query string) ([]string, error) {
	log.Printf("Searching Gmail with query: %s", query)

	var ids []string
	pageToken := ""

	for {
		time.Sleep(g.config.RateLimitDelay)

		req := g.service.Users.Messages.List(g.userID).Q(query)
		if g.config.MaxResults > 0 {
			remaining := g.config.MaxResults - int64(len(ids))
			if remaining <= 0 {
				break
			}
			if remaining > 100 {
				remaining = 100
			}
			req = req.MaxResults(remaining)
		}
		if pageToken != "" {
			req = req.PageToken(pageToken)
		}

		resp, err := req.Do()
		if err != nil {
			return nil, fmt.Errorf("Gmail search failed: %w", err)
		}

		for _, msg := range resp.Messages {
			ids = append(ids, msg.Id)
		}

		pageToken = resp.NextPageToken
		if pageToken == "" || (g.config.MaxResults > 0 && int64(len(ids)) >= g.config.MaxResults) {
			break
		}
	}

	log.Printf("Found %d messages", len(ids))
	return ids, nil
}

// GetMessage retrieves the full content of a specific message
func (g *GmailClient) GetMessage(id string) (*RawMessage, error) {
	msg, err := g.service.Users.Messages.Get(g.userID, id).Format("full").Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", id, err)
	}

	return g.parseGmailMessage(msg), nil
}

// GetAttachment downloads and decodes an attachment body
func (g *GmailClient) GetAttachment(messageID, attachmentID string) ([]byte, error) {
	att, err := g.service.Users.Messages.Attachments.Get(g.userID, messageID, attachmentID).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get attachment %s of message %s: %w", attachmentID, messageID, err)
	}

	data, err := base64.URLEncoding.DecodeString(att.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode attachment %s: %w", attachmentID, err)
	}

	return data, nil
}

// parseGmailMessage converts a Gmail API message to a RawMessage
func (g *GmailClient) parseGmailMessage(msg *gmail.Message) *RawMessage {
	raw := &RawMessage{
		ID: msg.Id,
	}

	if msg.Payload == nil {
		return raw
	}

	for _, header := range msg.Payload.Headers {
		switch strings.ToLower(header.Name) {
		case "from":
			raw.From = header.Value
		case "to":
			raw.To = header.Value
		case "subject":
			raw.Subject = header.Value
		case "date":
			if date, err := mail.ParseDate(header.Value); err == nil {
				raw.Date = date
			}
		}
	}

	raw.Payload = convertPart(msg.Payload)
	raw.Body = StripHeaderLines(AssembleBody(raw.Payload))

	return raw
}

// convertPart maps a Gmail payload part onto the MimePart tree
func convertPart(part *gmail.MessagePart) *MimePart {
	if part == nil {
		return nil
	}

	converted := &MimePart{
		MimeType: part.MimeType,
		Filename: part.Filename,
	}

	if part.Body != nil {
		converted.Data = part.Body.Data
		converted.AttachmentID = part.Body.AttachmentId
	}

	for _, child := range part.Parts {
		converted.Parts = append(converted.Parts, convertPart(child))
	}

	return converted
}

// AssembleBody walks the MIME tree collecting every text/plain and text/html
// part into a single string. Parts that fail to decode contribute nothing.
func AssembleBody(part *MimePart) string {
	if part == nil {
		return ""
	}

	var sb strings.Builder
	assembleBody(part, &sb)
	return sb.String()
}

func assembleBody(part *MimePart, sb *strings.Builder) {
	if part.MimeType == "text/plain" || part.MimeType == "text/html" {
		if part.Data != "" {
			if decoded, err := base64.URLEncoding.DecodeString(part.Data); err == nil {
				sb.Write(decoded)
				sb.WriteString(" ")
			} else {
				log.Printf("Failed to decode %s part: %v", part.MimeType, err)
			}
		}
	}

	for _, child := range part.Parts {
		assembleBody(child, sb)
	}
}

var headerLinePattern = regexp.MustCompile(`(?mi)^(Para|To|De|From|Assunto|Subject|Data|Date|Reply-To|Responder para):[^\n]*\n?`)

// StripHeaderLines removes quoted mail header lines from a body so that
// addresses and subjects are not fed to the code extractor.
func StripHeaderLines(body string) string {
	return headerLinePattern.ReplaceAllString(body, "")
}

// HealthCheck verifies the Gmail connection is working
func (g *GmailClient) HealthCheck() error {
	profile, err := g.service.Users.GetProfile(g.userID).Do()
	if err != nil {
		return fmt.Errorf("failed to get Gmail profile: %w", err)
	}

	log.Printf("Connected to Gmail account: %s", profile.EmailAddress)
	return nil
}

// Close cleans up resources
func (g *GmailClient) Close() error {
	// Gmail API client doesn't require explicit cleanup
	return nil
}

// BuildSearchQuery constructs a Gmail search query restricted to the given
// sender domains, optionally bounded to messages after a date.
// Gmail only supports day granularity in after: filters; finer filtering is
// left to the store's uniqueness constraint.
func BuildSearchQuery(domains []string, after time.Time) string {
	var senders []string
	for _, domain := range domains {
		senders = append(senders, fmt.Sprintf("from:%s", domain))
	}

	query := fmt.Sprintf("(%s)", strings.Join(senders, " OR "))

	if !after.IsZero() {
		query += fmt.Sprintf(" after:%s", after.Format("2006/01/02"))
	}

	return query
}
