package ocr

import (
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// Recognizer turns an image file into text.
type Recognizer interface {
	Recognize(imagePath string) (string, error)
}

// TesseractRecognizer runs Tesseract configured for Portuguese and English,
// the languages airline mails arrive in.
type TesseractRecognizer struct {
	languages []string
}

// NewTesseractRecognizer creates a Tesseract-backed recognizer.
func NewTesseractRecognizer() *TesseractRecognizer {
	return &TesseractRecognizer{languages: []string{"por", "eng"}}
}

// Recognize extracts text from the image at imagePath. A fresh client is
// created per call since gosseract clients are not safe for reuse across
// goroutines.
func (r *TesseractRecognizer) Recognize(imagePath string) (string, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(r.languages...); err != nil {
		return "", fmt.Errorf("failed to set OCR languages: %w", err)
	}
	if err := client.SetImage(imagePath); err != nil {
		return "", fmt.Errorf("failed to load image %s: %w", imagePath, err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR failed for %s: %w", imagePath, err)
	}

	return text, nil
}
