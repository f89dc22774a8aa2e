package parser

import (
	"regexp"
	"strconv"
	"strings"
)

// Words that look like codes to the shape gate but never are. Includes
// keyword fragments the cleanup step can leave behind and header vocabulary.
var nonCodeWords = map[string]bool{
	"MUITO": true, "ATEN": true, "TEMPO": true, "MAIS": true, "MENOS": true,
	"TANTO": true, "QUANTO": true,
	"HOJE": true, "AMANHA": true, "ONTEM": true, "AGORA": true,
	"DEPOIS": true, "ANTES": true,
	"AQUI": true, "ALI": true, "ONDE": true, "QUANDO": true,
	"COMO": true, "PORQUE": true,
	"VERDE": true, "AZUL": true, "VERMELHO": true, "AMARELO": true,
	"PRETO": true, "BRANCO": true,
	"GRANDE": true, "PEQUENO": true, "ALTO": true, "BAIXO": true,
	"LONGO": true, "CURTO": true,
	"LATAM": true, "LATA": true, "TAM": true, "GOL": true, "SMILES": true,
	"AVIANCA": true,
	"TOKENS":  true, "TOKEN": true, "SMS": true, "EMAIL": true, "MENSAGEM": true,
	"CÓDIGO": true, "CODIGO": true, "CODE": true,
	"VERIFICAÇÃO": true, "VERIFICACAO": true, "VERIFICA": true,
	"ACESSO": true, "ACCESS": true,
	"CONFIRMAÇÃO": true, "CONFIRMACAO": true, "CONFIRMA": true,
	"VERIFICATION": true, "CONFIRMATION": true, "VERIFY": true, "CONFIRM": true,
	"GMAIL": true, "COM": true, "BR": true, "ORG": true, "NET": true, "EDU": true,
	"PARA": true, "FROM": true, "REPLY": true, "REPLYTO": true, "REPLY-TO": true,
}

// numeric values that show up constantly in mail bodies but never as codes
var fakeNumbers = map[string]bool{
	"1234": true, "0000": true, "1111": true, "9999": true,
	"2023": true, "2024": true, "2025": true, "2026": true,
	"1000": true, "2000": true, "3000": true, "4000": true, "5000": true,
	"6000": true, "7000": true, "8000": true, "9000": true,
}

// vocabulary that marks a nearby token as part of a quoted mail header
var headerWords = []string{
	"para:", "to:", "de:", "from:", "assunto:", "subject:",
	"reply-to:", "replyto:", "responder para:", "reply to:",
	"data:", "date:", "enviado por:", "sent by:",
	"@", ".com", ".br", ".org", ".net", "gmail", "hotmail", "yahoo",
}

// vocabulary that marks a nearby token as a price, quantity or promo figure
var promoWords = []string{
	"desconto", "discount", "off", "promoção", "promotion", "cupom", "coupon",
	"r$", "reais", "real", "dólar", "dollar", "us$", "valor", "value",
	"preço", "price",
	"milhas", "miles", "pontos", "points", "%", "porcentagem", "percentage",
	"bônus", "bonus",
	"mil", "milh", "milhões", "milhoes", "milhares",
}

// conditionalPromoWord is promo-adjacent vocabulary that is legitimate when
// it appears in a phrase about the code's own validity window.
type conditionalPromoWord struct {
	word          string
	validContexts []string
}

var conditionalPromoWords = []conditionalPromoWord{
	{"válido", []string{"válido por", "valido por", "válido até", "valido ate", "código válido", "codigo valido"}},
	{"valid", []string{"valid for", "valid until", "code valid"}},
	{"expira", []string{"expira em", "código expira", "codigo expira"}},
	{"expires", []string{"expires in", "expires at", "code expires"}},
	{"até", []string{"válido até", "valido ate", "código até", "codigo ate"}},
	{"until", []string{"valid until", "code until"}},
}

var (
	allDigits = regexp.MustCompile(`^\d+$`)
	yearShape = regexp.MustCompile(`^(19|20)\d{2}$`)
)

// Validator applies the false-positive heuristics to extracted candidates.
type Validator struct{}

// NewValidator creates a candidate validator.
func NewValidator() *Validator {
	return &Validator{}
}

// IsValid reports whether a candidate token is a plausible verification code
// given the collapsed body text it was found in. Rules run in order; the
// first rejection wins. Alphanumeric candidates only face the denylist,
// header-proximity and promo-proximity rules.
func (v *Validator) IsValid(code, context string) bool {
	upper := strings.ToUpper(code)

	if nonCodeWords[upper] {
		return false
	}

	if v.nearHeaderVocabulary(code, context) {
		return false
	}

	if fakeNumbers[upper] {
		return false
	}

	numeric := allDigits.MatchString(code)

	if numeric && len(code) >= 7 {
		return false
	}

	if numeric && (len(code) == 5 || len(code) == 6) {
		num, _ := strconv.Atoi(code)
		if num >= 10000 && num%1000 == 0 {
			return false
		}
		if num >= 100000 && num%10000 == 0 {
			return false
		}
	}

	if v.nearPromoVocabulary(code, context) {
		return false
	}

	if numeric {
		if yearShape.MatchString(code) {
			if year, _ := strconv.Atoi(code); year >= 1900 && year <= 2100 {
				return false
			}
		}

		if len(code) < 4 || len(code) > 6 {
			return false
		}

		if repeatedDigits(code) {
			return false
		}
	}

	return true
}

// nearHeaderVocabulary checks 20 characters around the token for quoted
// header vocabulary. Header labels (the colon-suffixed entries) only count
// when they start a word, so the "de:" inside "code:" is not a label.
func (v *Validator) nearHeaderVocabulary(code, context string) bool {
	surrounding, found := surroundingWindow(code, context, 20)
	if !found {
		return false
	}
	for _, word := range headerWords {
		if strings.HasSuffix(word, ":") {
			if containsAtWordStart(surrounding, word) {
				return true
			}
			continue
		}
		if strings.Contains(surrounding, word) {
			return true
		}
	}
	return false
}

// containsAtWordStart reports whether word occurs in s with no letter
// immediately before it.
func containsAtWordStart(s, word string) bool {
	for idx := 0; ; {
		rel := strings.Index(s[idx:], word)
		if rel < 0 {
			return false
		}
		pos := idx + rel
		if pos == 0 || !isASCIILetter(s[pos-1]) {
			return true
		}
		idx = pos + 1
	}
}

func isASCIILetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// nearPromoVocabulary checks 50 characters around the token for promotional
// or monetary vocabulary. Conditional words only reject when they appear
// outside their approved validity phrasings.
func (v *Validator) nearPromoVocabulary(code, context string) bool {
	surrounding, found := surroundingWindow(code, context, 50)
	if !found {
		return false
	}

	for _, word := range promoWords {
		if strings.Contains(surrounding, word) {
			return true
		}
	}

	for _, conditional := range conditionalPromoWords {
		if !strings.Contains(surrounding, conditional.word) {
			continue
		}
		inValidContext := false
		for _, phrase := range conditional.validContexts {
			if strings.Contains(surrounding, phrase) {
				inValidContext = true
				break
			}
		}
		if !inValidContext {
			return true
		}
	}

	return false
}

// surroundingWindow returns the lowercased text within n characters before
// and after the first occurrence of code in context.
func surroundingWindow(code, context string, n int) (string, bool) {
	// Offsets are computed and applied on the lowercased image only; case
	// folding can change byte lengths.
	lower := strings.ToLower(context)
	lowerCode := strings.ToLower(code)
	idx := strings.Index(lower, lowerCode)
	if idx == -1 {
		return "", false
	}

	start := idx - n
	if start < 0 {
		start = 0
	}
	end := idx + len(lowerCode) + n
	if end > len(lower) {
		end = len(lower)
	}

	return lower[start:idx] + " " + lower[idx+len(lowerCode):end], true
}

// repeatedDigits reports whether every character of a numeric string is the
// same digit.
func repeatedDigits(code string) bool {
	for i := 1; i < len(code); i++ {
		if code[i] != code[0] {
			return false
		}
	}
	return len(code) > 1
}
