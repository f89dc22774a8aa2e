package parser

import (
	"regexp"
	"strings"
)

// uppercase letters including the Portuguese accented set
const upperLetters = `A-ZÁÉÍÓÚÀÈÌÒÙÂÊÎÔÛÃÕÇ`

var (
	latamNamePattern = regexp.MustCompile(`(?i)Olá\s+([` + upperLetters + `][` + upperLetters + `\s]+?)[,.]`)

	smilesSpanNamePattern   = regexp.MustCompile(`(?i)<span[^>]*font-weight[^>]*700[^>]*>([` + upperLetters + `][` + upperLetters + `\s]+?)</span>[\s\S]*?use esse código`)
	smilesSimpleNamePattern = regexp.MustCompile(`(?i)([` + upperLetters + `][` + upperLetters + `\s]{3,50}?),\s*use esse código`)
)

// ExtractCustomerName pulls the recipient's name out of a message body using
// the sender's greeting template. Returns "" when no template matches.
// Cosmetic only; extraction succeeds without it.
func ExtractCustomerName(body, airline string) string {
	if body == "" {
		return ""
	}

	switch airline {
	case AirlineLATAM, AirlineTAM:
		if match := latamNamePattern.FindStringSubmatch(body); match != nil {
			return strings.TrimSpace(match[1])
		}
	case AirlineSmiles:
		if match := smilesSpanNamePattern.FindStringSubmatch(body); match != nil {
			return strings.TrimSpace(match[1])
		}
		if match := smilesSimpleNamePattern.FindStringSubmatch(body); match != nil {
			return strings.TrimSpace(match[1])
		}
	}

	return ""
}
