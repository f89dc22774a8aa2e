package parser

import (
	"regexp"
	"strings"
)

var (
	htmlTagPattern    = regexp.MustCompile(`<[^>]+>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

var entityReplacer = strings.NewReplacer(
	"&nbsp;", " ",
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
)

// CollapseHTML strips tags, decodes the common entities and collapses all
// whitespace into single spaces. This is the view used for keyword-proximity
// checks and for patterns that read across markup.
func CollapseHTML(text string) string {
	collapsed := htmlTagPattern.ReplaceAllString(text, " ")
	collapsed = entityReplacer.Replace(collapsed)
	collapsed = whitespacePattern.ReplaceAllString(collapsed, " ")
	return collapsed
}

// DecodeEntities decodes the common entities while preserving line breaks,
// for patterns that expect the code on its own line.
func DecodeEntities(text string) string {
	return entityReplacer.Replace(text)
}
