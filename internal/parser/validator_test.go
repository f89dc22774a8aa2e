package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidAcceptances(t *testing.T) {
	validator := NewValidator()

	tests := []struct {
		name    string
		code    string
		context string
	}{
		{"alphanumeric code", "A1B2C3", "seu código de verificação é A1B2C3"},
		{"six digit non-round number", "794945", "código de acesso 794945"},
		{"four digit number", "4839", "seu código 4839"},
		{"round-looking but odd", "10500", "código 10500"},
		{"conditional word in validity phrasing", "483920", "código 483920 válido por 10 minutos"},
		{"expiry phrasing", "483920", "código 483920 expira em 5 minutos"},
		{"header label inside another word", "A1B2C3", "Your verification code: A1B2C3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, validator.IsValid(tt.code, tt.context))
		})
	}
}

func TestIsValidRejections(t *testing.T) {
	validator := NewValidator()

	tests := []struct {
		name    string
		code    string
		context string
	}{
		{"denylisted word", "LATAM", "voe LATAM para o mundo"},
		{"denylisted keyword fragment", "ACESSO", "ACESSO liberado"},
		{"header proximity at-sign", "482913", "para: fulano@gmail.com 482913"},
		{"header proximity subject", "482913", "assunto: 482913 confirmação"},
		{"header proximity sender label", "482913", "de: latam 482913"},
		{"fake number", "1234", "código 1234"},
		{"year in fake set", "2025", "código 2025"},
		{"bare year outside fake set", "1987", "código 1987"},
		{"seven digits", "1234567", "código 1234567"},
		{"round multiple of 1000", "50000", "código 50000"},
		{"round multiple of 10000", "200000", "código 200000"},
		{"promo proximity discount", "4839", "ganhe 4839 de desconto agora"},
		{"promo proximity miles", "90000", "resgate 90000 milhas hoje"},
		{"conditional word outside validity phrasing", "4839", "oferta 4839 válida até sexta"},
		{"repeated digits four", "7777", "código 7777"},
		{"repeated digits six", "999999", "código 999999"},
		{"three digit number", "123", "código 123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, validator.IsValid(tt.code, tt.context), tt.name)
		})
	}
}

func TestSurroundingWindow(t *testing.T) {
	window, found := surroundingWindow("483920", "meu código 483920 chegou", 5)
	assert.True(t, found)
	assert.Contains(t, window, "digo")
	assert.Contains(t, window, " cheg")
	assert.NotContains(t, window, "483920")

	_, found = surroundingWindow("000000", "texto sem o token", 5)
	assert.False(t, found)

	// Case folding shrinks the leading rune, so the window after the token
	// must be measured against the lowered code.
	window, found = surroundingWindow("\u212AB12", "x \u212AB12 y promo", 50)
	assert.True(t, found)
	assert.Contains(t, window, "y promo")
	assert.NotContains(t, window, "b12")
}

func TestRepeatedDigits(t *testing.T) {
	assert.True(t, repeatedDigits("1111"))
	assert.True(t, repeatedDigits("999999"))
	assert.False(t, repeatedDigits("1112"))
	assert.False(t, repeatedDigits("794945"))
}
