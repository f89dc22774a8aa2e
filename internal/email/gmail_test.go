package email

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBuildSearchQuery(t *testing.T) {
	tests := []struct {
		name     string
		domains  []string
		after    time.Time
		expected string
	}{
		{
			name:     "single domain no date",
			domains:  []string{"info.latam.com"},
			after:    time.Time{},
			expected: "(from:info.latam.com)",
		},
		{
			name:     "multiple domains",
			domains:  []string{"info.latam.com", "comunicado.smiles.com.br"},
			after:    time.Time{},
			expected: "(from:info.latam.com OR from:comunicado.smiles.com.br)",
		},
		{
			name:     "with after date",
			domains:  []string{"latam.com"},
			after:    time.Date(2025, 3, 7, 14, 30, 0, 0, time.UTC),
			expected: "(from:latam.com) after:2025/03/07",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, BuildSearchQuery(tt.domains, tt.after))
		})
	}
}

func TestStripHeaderLines(t *testing.T) {
	body := "Para: alguem@gmail.com\nAssunto: Seu código\nOlá Maria,\nseu código é 794945\n"
	stripped := StripHeaderLines(body)

	assert.NotContains(t, stripped, "alguem@gmail.com")
	assert.NotContains(t, stripped, "Assunto")
	assert.Contains(t, stripped, "Olá Maria,")
	assert.Contains(t, stripped, "794945")
}

func TestStripHeaderLinesCaseInsensitive(t *testing.T) {
	body := "FROM: noreply@latam.com\nto: user@gmail.com\ncontent here"
	stripped := StripHeaderLines(body)

	assert.NotContains(t, stripped, "noreply@latam.com")
	assert.NotContains(t, stripped, "user@gmail.com")
	assert.Contains(t, stripped, "content here")
}

func TestAssembleBody(t *testing.T) {
	encode := func(s string) string {
		return base64.URLEncoding.EncodeToString([]byte(s))
	}

	tree := &MimePart{
		MimeType: "multipart/mixed",
		Parts: []*MimePart{
			{
				MimeType: "multipart/alternative",
				Parts: []*MimePart{
					{MimeType: "text/plain", Data: encode("plain text version")},
					{MimeType: "text/html", Data: encode("<p>html version</p>")},
				},
			},
			{
				MimeType:     "image/png",
				Filename:     "code.png",
				AttachmentID: "att-1",
			},
		},
	}

	body := AssembleBody(tree)
	assert.Contains(t, body, "plain text version")
	assert.Contains(t, body, "<p>html version</p>")
}

func TestAssembleBodySkipsBadData(t *testing.T) {
	tree := &MimePart{
		MimeType: "multipart/mixed",
		Parts: []*MimePart{
			{MimeType: "text/plain", Data: "!!!not base64!!!"},
			{MimeType: "text/html", Data: base64.URLEncoding.EncodeToString([]byte("good part"))},
		},
	}

	body := AssembleBody(tree)
	assert.Contains(t, body, "good part")
	assert.NotContains(t, body, "not base64")
}

func TestMimePartIsImage(t *testing.T) {
	assert.True(t, (&MimePart{MimeType: "image/png"}).IsImage())
	assert.True(t, (&MimePart{MimeType: "image/jpeg"}).IsImage())
	assert.False(t, (&MimePart{MimeType: "text/html"}).IsImage())
	assert.False(t, (&MimePart{MimeType: "application/pdf"}).IsImage())
}
