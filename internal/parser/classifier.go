package parser

import (
	"regexp"
	"strings"
)

// Airline tags returned by classification
const (
	AirlineLATAM   = "LATAM"
	AirlineSmiles  = "SMILES"
	AirlineTAM     = "TAM"
	AirlineGOL     = "GOL"
	AirlineUnknown = "UNKNOWN"
)

// trusted sender domains mapped to their airline tag
var airlineDomains = map[string]string{
	"info.latam.com":           AirlineLATAM,
	"latam.com":                AirlineLATAM,
	"tam.com.br":               AirlineTAM,
	"gol.com.br":               AirlineGOL,
	"smiles.com.br":            AirlineSmiles,
	"comunicado.smiles.com.br": AirlineSmiles,
}

// airline names recognized anywhere in the sender or subject
var airlineNames = []string{
	"latam", "tam", "gol", "smiles",
}

// subject phrases accepted per airline, compared after normalization
var validSubjects = map[string][]string{
	AirlineLATAM: {
		"código de verificação",
		"codigo de verificacao",
		"verification code",
		"código de verificaçao",
	},
	AirlineSmiles: {
		"aqui está seu código de acesso, não compartilhe",
		"aqui esta seu codigo de acesso, nao compartilhe",
		"aqui está seu código de acesso",
		"aqui esta seu codigo de acesso",
		"seu código de acesso",
		"código de acesso",
		"codigo de acesso",
		"aqui está seu código",
		"aqui esta seu codigo",
		"código de acesso, não compartilhe",
		"codigo de acesso, nao compartilhe",
	},
	AirlineTAM: {
		"código de verificação",
		"codigo de verificacao",
		"verification code",
		"código de verificaçao",
	},
	AirlineGOL: {
		"código de verificação",
		"codigo de verificacao",
		"verification code",
		"código de verificaçao",
	},
}

// keyword pairs that also qualify a subject when both appear
var subjectKeywordPairs = map[string][][2]string{
	AirlineLATAM:  {{"código", "verificação"}, {"codigo", "verificacao"}},
	AirlineSmiles: {{"código", "acesso"}, {"codigo", "acesso"}},
	AirlineTAM:    {{"código", "verificação"}, {"codigo", "verificacao"}},
	AirlineGOL:    {{"código", "verificação"}, {"codigo", "verificacao"}},
}

// subjects carrying any of these words are marketing, never verification
var promotionKeywords = []string{
	"promoção", "promocao", "promotion", "promo",
	"desconto", "discount", "off", "% off", "porcentagem",
	"milhas", "miles", "bônus", "bonus", "pontos", "points",
	"cupom", "coupon", "válido até", "valido ate", "expira",
	"só até", "so ate", "aproveite", "aproveite já", "aproveite ja",
	"últimas horas", "ultimas horas", "última chance", "ultima chance",
	"crescer livre", "crescer com limite", "faltam horas",
	"oferta", "offer", "black friday", "cyber monday", "natal",
	"réveillon", "reveillon", "especial", "imperdível", "imperdivel",
	"grátis", "gratis", "free", "ganhe", "ganhe até", "ganhe ate",
}

var trailingPunct = regexp.MustCompile(`[.,;:!?]+$`)

// Classifier decides whether a message comes from a trusted airline sender
// with a verification-code subject.
type Classifier struct{}

// NewClassifier creates a message classifier.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// IsPromotion reports whether a subject contains any marketing keyword.
func (c *Classifier) IsPromotion(subject string) bool {
	lower := strings.ToLower(subject)
	for _, keyword := range promotionKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// ShouldProcess reports whether an email from the given sender with the given
// subject is a verification-code email worth extracting from. Promotion
// subjects are rejected before any sender check.
func (c *Classifier) ShouldProcess(from, subject string) bool {
	if c.IsPromotion(subject) {
		return false
	}

	fromLower := strings.ToLower(from)
	normalized := normalizeSubject(subject)

	for domain, airline := range airlineDomains {
		if !strings.Contains(fromLower, domain) {
			continue
		}
		return c.subjectMatches(airline, normalized)
	}

	// untrusted sender
	return false
}

// subjectMatches checks a normalized subject against the airline's accepted
// phrases, in either containment direction, and its keyword pairs.
func (c *Classifier) subjectMatches(airline, normalized string) bool {
	for _, pair := range subjectKeywordPairs[airline] {
		if strings.Contains(normalized, pair[0]) && strings.Contains(normalized, pair[1]) {
			return true
		}
	}

	for _, valid := range validSubjects[airline] {
		validNorm := normalizeSubject(valid)
		if strings.Contains(normalized, validNorm) || strings.Contains(validNorm, normalized) {
			return true
		}
	}

	return false
}

// IdentifyAirline returns the airline tag for a sender/subject pair.
// Name mentions win over domain matches.
func (c *Classifier) IdentifyAirline(from, subject string) string {
	text := strings.ToLower(from + " " + subject)

	for _, name := range airlineNames {
		if strings.Contains(text, name) {
			return strings.ToUpper(name)
		}
	}

	fromLower := strings.ToLower(from)
	for domain, airline := range airlineDomains {
		if strings.Contains(fromLower, domain) {
			return airline
		}
	}

	return AirlineUnknown
}

// normalizeSubject lowercases a subject and strips trailing punctuation so
// "Código de verificação." and "código de verificação" compare equal.
func normalizeSubject(subject string) string {
	lower := strings.ToLower(strings.TrimSpace(subject))
	lower = trailingPunct.ReplaceAllString(lower, "")
	return strings.TrimSpace(lower)
}
