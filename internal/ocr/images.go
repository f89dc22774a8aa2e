package ocr

import (
	"encoding/base64"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"code-courier/internal/email"
	"code-courier/internal/parser"
)

// FetchAttachment downloads the raw bytes of one attachment. Provided by the
// mail transport so this package stays decoupled from it.
type FetchAttachment func(attachmentID string) ([]byte, error)

// ImageExtractor OCRs the images embedded in a message and runs the code
// extraction pipeline over the recognized text. Used as a fallback when the
// text body yields no codes.
type ImageExtractor struct {
	recognizer Recognizer
	extractor  *parser.Extractor
}

// NewImageExtractor creates an image extractor.
func NewImageExtractor(recognizer Recognizer, extractor *parser.Extractor) *ImageExtractor {
	return &ImageExtractor{
		recognizer: recognizer,
		extractor:  extractor,
	}
}

// ExtractFromImages walks the MIME tree, OCRs every image part and returns
// the validated codes found across all of them, deduplicated and sorted.
// Failures on one image are logged and do not stop the remaining images.
// All staging files are removed before returning.
func (ie *ImageExtractor) ExtractFromImages(payload *email.MimePart, fetch FetchAttachment) ([]string, error) {
	imageParts := collectImageParts(payload, nil)
	if len(imageParts) == 0 {
		return nil, nil
	}

	tempDir, err := os.MkdirTemp("", "mail-ocr-")
	if err != nil {
		return nil, fmt.Errorf("failed to create OCR staging directory: %w", err)
	}
	defer os.RemoveAll(tempDir)

	log.Printf("Found %d image(s) to OCR", len(imageParts))

	codes := make(map[string]bool)

	for i, part := range imageParts {
		data, err := imageBytes(part, fetch)
		if err != nil {
			log.Printf("Skipping image %d: %v", i, err)
			continue
		}
		if len(data) == 0 {
			continue
		}

		imagePath := filepath.Join(tempDir, fmt.Sprintf("image-%d%s", i, imageExtension(part.MimeType)))
		if err := os.WriteFile(imagePath, data, 0600); err != nil {
			log.Printf("Failed to stage image %d: %v", i, err)
			continue
		}

		text, err := ie.recognizer.Recognize(imagePath)
		os.Remove(imagePath)
		if err != nil {
			log.Printf("OCR failed for image %d: %v", i, err)
			continue
		}

		for _, code := range ie.extractor.Extract(text) {
			codes[code] = true
		}
	}

	result := make([]string, 0, len(codes))
	for code := range codes {
		result = append(result, code)
	}
	sort.Strings(result)
	return result, nil
}

// collectImageParts gathers every image part in the MIME tree, depth first.
func collectImageParts(part *email.MimePart, acc []*email.MimePart) []*email.MimePart {
	if part == nil {
		return acc
	}
	if part.IsImage() {
		acc = append(acc, part)
	}
	for _, child := range part.Parts {
		acc = collectImageParts(child, acc)
	}
	return acc
}

// imageBytes resolves a part's content, inline data first, attachment second.
func imageBytes(part *email.MimePart, fetch FetchAttachment) ([]byte, error) {
	if part.Data != "" {
		data, err := base64.URLEncoding.DecodeString(part.Data)
		if err != nil {
			return nil, fmt.Errorf("inline image data is not valid base64: %w", err)
		}
		return data, nil
	}

	if part.AttachmentID == "" {
		return nil, nil
	}
	if fetch == nil {
		return nil, fmt.Errorf("no attachment fetcher for attachment %s", part.AttachmentID)
	}

	return fetch(part.AttachmentID)
}

// imageExtension maps a media type to a file extension Tesseract understands.
func imageExtension(mimeType string) string {
	if idx := strings.Index(mimeType, "/"); idx != -1 && idx < len(mimeType)-1 {
		return "." + mimeType[idx+1:]
	}
	return ".png"
}
