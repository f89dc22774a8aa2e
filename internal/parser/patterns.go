package parser

import "regexp"

// bodyView selects which normalization of the message body a pattern runs on.
type bodyView int

const (
	// viewRaw is the original body, HTML intact. Patterns that anchor on
	// tags or inline styles need it.
	viewRaw bodyView = iota
	// viewCollapsed is the tag-stripped, entity-decoded, whitespace-collapsed
	// body.
	viewCollapsed
	// viewLines keeps line breaks but decodes entities, for phrases where
	// the code sits on its own line.
	viewLines
)

// codePattern is one extraction rule with the view it operates on.
type codePattern struct {
	regex       *regexp.Regexp
	view        bodyView
	description string
}

// Contextual patterns are anchored to a verification-code phrase or to a
// sender template fingerprint, and run first. Keyword phrases accept both
// accented and plain spellings since OCR output frequently drops accents.
var contextualPatterns = []codePattern{
	{
		regex:       regexp.MustCompile(`(?i)\b(?:seu\s+c[óo]digo\s+de\s+verifica[çc][ãa]o\s+[ée]|seu\s+code\s+of\s+verification\s+is)[:\s\n]*([A-Za-z0-9]{4,8})\b`),
		view:        viewLines,
		description: "verification phrase followed by code, possibly on the next line",
	},
	{
		regex:       regexp.MustCompile(`(?i)\bseu\s+c[óo]digo\s+de\s+verifica[çc][ãa]o\s+[ée][^<]*<p[^>]*>[\s\n]*([A-Za-z0-9]{4,8})[\s\n]*</p>`),
		view:        viewRaw,
		description: "verification phrase with the code in a following <p>",
	},
	{
		regex:       regexp.MustCompile(`(?i)\b(?:c[óo]digo\s+de\s+verifica[çc][ãa]o|c[óo]digo\s+de\s+acesso)[^<]*<p[^>]*>[\s\n]*([A-Za-z0-9]{4,8})[\s\n]*</p>`),
		view:        viewRaw,
		description: "code keyword phrase with the code in a following <p>",
	},
	{
		regex:       regexp.MustCompile(`(?i)\b(?:c[óo]digo|code|verification|verifica[çc][ãa]o|confirmation|confirma[çc][ãa]o)\b[:\s\-]*\b([A-Za-z0-9]{4,8})\b`),
		view:        viewCollapsed,
		description: "single code keyword directly before the token",
	},
	{
		regex:       regexp.MustCompile(`(?i)\b(?:verification|confirmation|access)\s+code\b[:\s\-]*\b([A-Za-z0-9]{4,8})\b`),
		view:        viewCollapsed,
		description: "english qualifier-code order before the token",
	},
	{
		regex:       regexp.MustCompile(`(?i)\b(?:seu\s+)?(?:c[óo]digo|code)\s+(?:[ée]|is|de|of)[:\s\-]+([A-Za-z0-9]{4,8})\b`),
		view:        viewCollapsed,
		description: "code is/é phrasing",
	},
	{
		regex:       regexp.MustCompile(`(?i)\b(?:c[óo]digo|code)\s+(?:de\s+)?(?:verifica[çc][ãa]o|verification|acesso|access)\b[:\s\-]*\b([A-Za-z0-9]{4,8})\b`),
		view:        viewCollapsed,
		description: "verification/access code phrasing",
	},
	{
		regex:       regexp.MustCompile(`(?i)\b(?:seu\s+)?(?:c[óo]digo\s+de\s+acesso|code\s+of\s+access)\b[:\s\-]*\b([A-Za-z0-9]{4,8})\b`),
		view:        viewCollapsed,
		description: "access code phrasing",
	},
	{
		regex:       regexp.MustCompile(`(?i)\b(?:aqui\s+est[áa]\s+seu\s+)?(?:c[óo]digo|code)\b[:\s\-]*\b([A-Za-z0-9]{4,8})\b`),
		view:        viewCollapsed,
		description: "here-is-your-code phrasing",
	},
	{
		regex:       regexp.MustCompile(`(?i)(?:seu\s+c[óo]digo\s+de\s+verifica[çc][ãa]o\s+[ée]|your\s+verification\s+code\s+is)[\s\S]{0,500}?<p[^>]*(?:font-size[^>]*:\s*24px|font-weight[^>]*:\s*700)[^>]*(?:font-size[^>]*:\s*24px|font-weight[^>]*:\s*700)[^>]*>[\s\n]*([A-Za-z0-9]{4,8})[\s\n]*</p>`),
		view:        viewRaw,
		description: "LATAM template: styled <p> within 500 chars of the phrase",
	},
	{
		regex:       regexp.MustCompile(`(?i)<td[^>]*(?:font-size[^>]*:\s*40px|font-weight[^>]*:\s*bold)[^>]*(?:font-size[^>]*:\s*40px|font-weight[^>]*:\s*bold)[^>]*>[\s\n]*([A-Za-z0-9]{4,8})[\s\n]*</td>`),
		view:        viewRaw,
		description: "Smiles template: 40px bold <td>",
	},
	{
		regex:       regexp.MustCompile(`(?i)<p[^>]*(?:font-size[^>]*:\s*24px|font-weight[^>]*:\s*700)[^>]*(?:font-size[^>]*:\s*24px|font-weight[^>]*:\s*700)[^>]*>[\s\n]*([A-Za-z0-9]{4,8})[\s\n]*</p>`),
		view:        viewRaw,
		description: "styled <p> without the phrase anchor",
	},
	{
		regex:       regexp.MustCompile(`(?i)<div[^>]*class[^>]*code[^>]*>\s*([A-Za-z0-9]{4,8})\s*</div>`),
		view:        viewRaw,
		description: "div with a code class",
	},
	{
		regex:       regexp.MustCompile(`(?i)<span[^>]*class[^>]*code[^>]*>\s*([A-Za-z0-9]{4,8})\s*</span>`),
		view:        viewRaw,
		description: "span with a code class",
	},
	{
		regex:       regexp.MustCompile(`\[([A-Z0-9]{4,8})\]`),
		view:        viewCollapsed,
		description: "bracketed token",
	},
	{
		regex:       regexp.MustCompile(`\(([A-Z0-9]{4,8})\)`),
		view:        viewCollapsed,
		description: "parenthesized token",
	},
}

// Generic patterns match visually highlighted tokens with no keyword anchor.
// They only run when no contextual pattern produced an accepted candidate.
var genericPatterns = []codePattern{
	{
		regex:       regexp.MustCompile(`(?i)<[^>]*font-size[^>]*:\s*[2-9]\d+px[^>]*>([A-Za-z0-9]{4,8})</[^>]*>`),
		view:        viewRaw,
		description: "large font-size wrapper",
	},
	{
		regex:       regexp.MustCompile(`(?i)<[^>]*style[^>]*font[^>]*>([A-Za-z0-9]{4,8})</[^>]*>`),
		view:        viewRaw,
		description: "font-styled wrapper",
	},
	{
		regex:       regexp.MustCompile(`(?i)<td[^>]*font-size[^>]*:\s*[3-9]\d+px[^>]*>[\s\n]*([A-Za-z0-9]{4,8})[\s\n]*</td>`),
		view:        viewRaw,
		description: "large font-size <td>",
	},
	{
		regex:       regexp.MustCompile(`(?i)<p[^>]*>\s*([A-Za-z0-9]{4,8})\s*</p>`),
		view:        viewRaw,
		description: "isolated token in <p>",
	},
	{
		regex:       regexp.MustCompile(`(?i)<div[^>]*>\s*([A-Za-z0-9]{4,8})\s*</div>`),
		view:        viewRaw,
		description: "isolated token in <div>",
	},
}

// proximityToken matches bare numeric tokens for the last-resort tier.
var proximityToken = regexp.MustCompile(`\b(\d{4,6})\b`)

// keywords that qualify a bare numeric token in the proximity tier
var proximityKeywords = []string{
	"código", "codigo", "code", "verificação", "verificacao", "verification",
	"acesso", "access",
	"seu código", "seu codigo", "your code",
	"código de verificação", "codigo de verificacao", "verification code",
	"código de acesso", "codigo de acesso", "access code",
}

// Captured groups sometimes swallow a keyword fragment ("CODIGO", "ACESSO")
// when the phrase and token share a line. These strip it before validation.
var (
	leadingKeywordFragment = regexp.MustCompile(`(?i)^(c[óo]digo|code|verification|verifica[çc][ãa]o|verifica|confirmation|confirma[çc][ãa]o|confirma|seu|[ée]|is|de|of|acesso|access)[:\s\-]*`)
	trailingSeparators     = regexp.MustCompile(`[:\s\-]+$`)
)

// candidateShape is the final shape gate applied after cleanup.
var candidateShape = regexp.MustCompile(`^[A-Za-z0-9]{4,8}$`)
