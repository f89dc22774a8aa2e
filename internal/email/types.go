package email

import (
	"strings"
	"time"
)

// MailClient defines the interface for the mailbox transport
type MailClient interface {
	// ListMessages performs a mailbox search query and returns matching message IDs
	ListMessages(query string) ([]string, error)

	// GetMessage retrieves the full content of a specific message
	GetMessage(id string) (*RawMessage, error)

	// GetAttachment downloads the raw bytes of a message attachment
	GetAttachment(messageID, attachmentID string) ([]byte, error)

	// HealthCheck verifies the client connection is working
	HealthCheck() error

	// Close cleans up resources
	Close() error
}

// RawMessage represents a fetched email message with parsed headers,
// an assembled text body and the original MIME part tree.
// The message is immutable input; the pipeline never mutates it.
type RawMessage struct {
	ID      string    `json:"id"`
	From    string    `json:"from"`
	To      string    `json:"to"`
	Subject string    `json:"subject"`
	Date    time.Time `json:"date"`

	// Body is the concatenated text/plain and text/html content of every
	// part, with mail header lines stripped
	Body string `json:"body"`

	// Payload is the root of the MIME part tree (nil for metadata-only fetches)
	Payload *MimePart `json:"payload,omitempty"`
}

// MimePart is one node of a message's MIME tree. Inline content arrives
// base64url-encoded in Data; larger bodies are referenced by AttachmentID
// and must be downloaded separately.
type MimePart struct {
	MimeType     string      `json:"mime_type"`
	Filename     string      `json:"filename,omitempty"`
	Data         string      `json:"data,omitempty"`
	AttachmentID string      `json:"attachment_id,omitempty"`
	Parts        []*MimePart `json:"parts,omitempty"`
}

// IsImage reports whether this part carries image content.
func (p *MimePart) IsImage() bool {
	return strings.HasPrefix(p.MimeType, "image/")
}
