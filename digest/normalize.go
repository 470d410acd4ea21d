package digest

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	urlRE          = regexp.MustCompile(`https?://\S+`)
	hashtagRE      = regexp.MustCompile(`#[\w\-]+`)
	mediaOnlyRE    = regexp.MustCompile(`(?i)^\[(?:photo|image|video|voice|sticker|animation)\]$`)
	forwardRE      = regexp.MustCompile(`(?i)^(?:Forwarded from|転送元:?|Forwarded message)$`)
	relativeOnlyRE = regexp.MustCompile(`(?i)^(?:soon\b|later\b|まもなく|すぐ|程なく|直後|今夜|後で|今すぐ)`)
)

// emojiTable covers the emoji presentation blocks plus ZWJ/variation
// selectors so joined sequences strip cleanly. Go's RE2 has no \p{Emoji},
// so the ranges are explicit.
var emojiTable = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x200D, Hi: 0x200D, Stride: 1}, // zero-width joiner
		{Lo: 0x2600, Hi: 0x27BF, Stride: 1}, // misc symbols, dingbats
		{Lo: 0x2B00, Hi: 0x2BFF, Stride: 1}, // arrows, stars
		{Lo: 0xFE0E, Hi: 0xFE0F, Stride: 1}, // variation selectors
	},
	R32: []unicode.Range32{
		{Lo: 0x1F1E6, Hi: 0x1F1FF, Stride: 1}, // regional indicators
		{Lo: 0x1F300, Hi: 0x1F5FF, Stride: 1},
		{Lo: 0x1F600, Hi: 0x1F64F, Stride: 1},
		{Lo: 0x1F680, Hi: 0x1F6FF, Stride: 1},
		{Lo: 0x1F900, Hi: 0x1F9FF, Stride: 1},
		{Lo: 0x1FA70, Hi: 0x1FAFF, Stride: 1},
	},
}

func stripEmoji(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.Is(emojiTable, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Normalize cleans raw message text for classification. The operation order
// is fixed: strip URLs, then hashtags, then emoji, then collapse whitespace.
// Normalize is idempotent.
func Normalize(text string) string {
	s := urlRE.ReplaceAllString(text, " ")
	s = hashtagRE.ReplaceAllString(s, " ")
	s = stripEmoji(s)
	return strings.Join(strings.Fields(s), " ")
}

// Tokenize splits cleaned text into its ordered whitespace-delimited tokens.
func Tokenize(clean string) []string {
	return strings.Fields(clean)
}

// IsNoise reports whether a raw message carries no usable signal: forwarded
// markers, media placeholders, URL- or emoji-only bodies, texts with two or
// fewer meaningful characters left after normalization, and relative-timing
// throwaways ("soon", 「まもなく」).
func IsNoise(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return true
	}
	if forwardRE.MatchString(trimmed) {
		return true
	}
	if mediaOnlyRE.MatchString(trimmed) {
		return true
	}
	if strings.TrimSpace(stripEmoji(urlRE.ReplaceAllString(trimmed, " "))) == "" {
		return true
	}
	clean := Normalize(trimmed)
	if meaningfulRunes(clean) <= 2 {
		return true
	}
	if relativeOnlyRE.MatchString(strings.ToLower(clean)) {
		return true
	}
	return false
}

func meaningfulRunes(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			n++
		}
	}
	return n
}

// truncateRunes hard-cuts s to at most max runes.
func truncateRunes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// ellipsize cuts s to at most max runes, ellipsis included.
func ellipsize(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 1 {
		return "…"
	}
	return string(runes[:max-1]) + "…"
}
