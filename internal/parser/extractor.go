package parser

import (
	"sort"
	"strings"
)

// Extractor pulls verification-code candidates out of a message body with a
// tiered pattern cascade and gates every match through the Validator.
type Extractor struct {
	validator *Validator
}

// NewExtractor creates an extractor with a fresh validator.
func NewExtractor() *Extractor {
	return &Extractor{validator: NewValidator()}
}

// Extract returns the validated codes found in body, upper-cased, deduplicated
// and sorted. Contextual patterns run first; generic patterns only when the
// contextual tier found nothing; the keyword-proximity tier only when both
// earlier tiers came up empty.
func (e *Extractor) Extract(body string) []string {
	if body == "" {
		return nil
	}

	views := [3]string{
		viewRaw:       body,
		viewCollapsed: CollapseHTML(body),
		viewLines:     DecodeEntities(body),
	}
	context := views[viewCollapsed]

	codes := make(map[string]bool)

	e.runPatterns(contextualPatterns, views, context, codes)

	if len(codes) == 0 {
		e.runPatterns(genericPatterns, views, context, codes)
	}

	if len(codes) == 0 {
		e.runProximityTier(context, codes)
	}

	result := make([]string, 0, len(codes))
	for code := range codes {
		result = append(result, code)
	}
	sort.Strings(result)
	return result
}

func (e *Extractor) runPatterns(patterns []codePattern, views [3]string, context string, codes map[string]bool) {
	for _, pattern := range patterns {
		matches := pattern.regex.FindAllStringSubmatch(views[pattern.view], -1)
		for _, match := range matches {
			captured := match[0]
			if len(match) > 1 && match[1] != "" {
				captured = match[1]
			}

			code := cleanCandidate(captured)
			if len(code) < 4 {
				continue
			}
			if !candidateShape.MatchString(code) {
				continue
			}

			upper := strings.ToUpper(code)
			if nonCodeWords[upper] {
				continue
			}
			if e.validator.IsValid(code, context) {
				codes[upper] = true
			}
		}
	}
}

// runProximityTier scans for bare 4-6 digit tokens and keeps those with a
// code keyword within 100 characters on either side.
func (e *Extractor) runProximityTier(context string, codes map[string]bool) {
	// Match offsets must index the same string they slice; case folding can
	// change byte lengths, so the scan runs on the lowercased image.
	lower := strings.ToLower(context)

	for _, match := range proximityToken.FindAllStringSubmatchIndex(lower, -1) {
		start, end := match[2], match[3]
		code := lower[start:end]

		windowStart := start - 100
		if windowStart < 0 {
			windowStart = 0
		}
		windowEnd := end + 100
		if windowEnd > len(lower) {
			windowEnd = len(lower)
		}
		window := lower[windowStart:start] + " " + lower[end:windowEnd]

		hasKeyword := false
		for _, keyword := range proximityKeywords {
			if strings.Contains(window, keyword) {
				hasKeyword = true
				break
			}
		}
		if !hasKeyword {
			continue
		}

		upper := strings.ToUpper(code)
		if nonCodeWords[upper] {
			continue
		}
		if e.validator.IsValid(code, context) {
			codes[upper] = true
		}
	}
}

// cleanCandidate strips keyword fragments the capture group may have
// swallowed and any trailing separators.
func cleanCandidate(captured string) string {
	code := leadingKeywordFragment.ReplaceAllString(captured, "")
	code = trailingSeparators.ReplaceAllString(code, "")
	return strings.TrimSpace(code)
}
