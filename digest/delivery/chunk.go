package delivery

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// DefaultChunkLimit matches the Discord webhook message-size cap with a
// little slack for markdown rendering.
const DefaultChunkLimit = 1900

// paginationMarker is the header substring the page counter attaches to.
const paginationMarker = "6hダイジェスト"

const (
	headerPadding = 12
	minBodyBudget = 400
)

// Chunk splits digest markdown into transport-safe messages of at most limit
// characters each (characters, not bytes). Section and topic boundaries are
// preserved, every chunk repeats the header, multi-chunk output paginates
// the header, and a topic split across chunks re-emits its section heading
// suffixed (続き) so a later normalization pass can re-merge it.
func Chunk(markdown string, limit int) []string {
	if limit <= 0 {
		limit = DefaultChunkLimit
	}
	header, sections := parseSections(markdown)
	if header == "" {
		header = "6hダイジェスト"
	}
	return assembleMessages(header, sections, limit)
}

type section struct {
	header string
	lines  []string
}

// parseSections splits the document into its header line and "## " sections.
// Content before the first heading is dropped; a document with no headings
// becomes a single その他 section.
func parseSections(markdown string) (string, []section) {
	lines := strings.Split(strings.TrimSpace(markdown), "\n")
	if len(lines) == 0 || (len(lines) == 1 && strings.TrimSpace(lines[0]) == "") {
		return "", nil
	}
	header := strings.TrimSpace(lines[0])

	var sections []section
	var current *section
	for _, line := range lines[1:] {
		line = strings.TrimRight(line, " \t")
		stripped := strings.TrimSpace(line)
		if strings.HasPrefix(stripped, "## ") {
			if current != nil {
				sections = append(sections, *current)
			}
			current = &section{header: stripped}
			continue
		}
		if current == nil {
			continue
		}
		current.lines = append(current.lines, line)
	}
	if current != nil {
		sections = append(sections, *current)
	}
	if len(sections) == 0 {
		rest := make([]string, 0, len(lines)-1)
		for _, line := range lines[1:] {
			rest = append(rest, strings.TrimRight(line, " \t"))
		}
		sections = []section{{header: "## その他", lines: rest}}
	}
	return header, sections
}

// splitTopics groups section lines into topic blocks, each opened by a
// bold-wrapped headline.
func splitTopics(lines []string) []string {
	var topics []string
	var current []string
	for _, line := range lines {
		stripped := strings.TrimSpace(line)
		if strings.HasPrefix(stripped, "**") && strings.HasSuffix(stripped, "**") && len(current) > 0 {
			topics = append(topics, strings.TrimSpace(strings.Join(current, "\n")))
			current = []string{line}
		} else {
			current = append(current, line)
		}
	}
	if len(current) > 0 {
		topics = append(topics, strings.TrimSpace(strings.Join(current, "\n")))
	}

	filtered := topics[:0]
	for _, t := range topics {
		if t != "" {
			filtered = append(filtered, t)
		}
	}
	if len(filtered) == 0 {
		return []string{"該当なし"}
	}
	return filtered
}

// splitByLength splits text to fit limit characters, preferring blank-line
// paragraph boundaries and falling back to raw character slicing only when a
// single paragraph is itself oversized.
func splitByLength(text string, limit int) []string {
	if runeLen(text) <= limit {
		return []string{text}
	}
	if limit < 1 {
		limit = 1
	}

	var parts []string
	var current []string
	for _, para := range splitParagraphs(text) {
		candidate := para
		if len(current) > 0 {
			candidate = strings.Join(current, "\n\n") + "\n\n" + para
		}
		if runeLen(candidate) <= limit {
			current = append(current, para)
			continue
		}
		if len(current) > 0 {
			parts = append(parts, strings.Join(current, "\n\n"))
			current = []string{para}
			continue
		}
		runes := []rune(para)
		for i := 0; i < len(runes); i += limit {
			end := i + limit
			if end > len(runes) {
				end = len(runes)
			}
			parts = append(parts, string(runes[i:end]))
		}
		current = nil
	}
	if len(current) > 0 {
		parts = append(parts, strings.Join(current, "\n\n"))
	}

	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func splitParagraphs(text string) []string {
	var paras []string
	var current []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			if len(current) > 0 {
				paras = append(paras, strings.Join(current, "\n"))
				current = nil
			}
			continue
		}
		current = append(current, line)
	}
	if len(current) > 0 {
		paras = append(paras, strings.Join(current, "\n"))
	}
	return paras
}

// buildSectionBlocks packs one section's topics into blocks that each fit the
// body budget, re-emitting the section heading with a (続き) suffix whenever
// a section or topic continues into a new block.
func buildSectionBlocks(s section, bodyLimit int) []string {
	topics := splitTopics(s.lines)
	var blocks []string
	current := []string{s.header}
	headerCont := s.header + " (続き)"

	// Continuation blocks carry the heading themselves, so pieces must leave
	// room for it or the block busts the budget.
	pieceLimit := bodyLimit - runeLen(headerCont) - 2
	if pieceLimit < 1 {
		pieceLimit = 1
	}

	for _, topic := range topics {
		for _, chunk := range splitByLength(topic, bodyLimit) {
			candidate := strings.Join(append(append([]string(nil), current...), chunk), "\n\n")
			if runeLen(candidate) <= bodyLimit {
				current = append(current, chunk)
				continue
			}
			blocks = append(blocks, strings.Join(current, "\n\n"))
			if runeLen(chunk) > pieceLimit {
				for _, piece := range splitByLength(chunk, pieceLimit) {
					blocks = append(blocks, headerCont+"\n\n"+piece)
				}
				current = []string{headerCont}
			} else {
				current = []string{headerCont, chunk}
			}
		}
	}
	if len(current) > 0 {
		blocks = append(blocks, strings.Join(current, "\n\n"))
	}

	out := blocks[:0]
	for _, b := range blocks {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// assembleMessages greedily packs section blocks into chunks under the body
// budget, then prefixes each chunk with the (paginated) header.
func assembleMessages(headerLine string, sections []section, limit int) []string {
	// The padding absorbs the page marker and the blank line joining header
	// and body; header budget + 2 + body budget never exceeds the limit.
	// Small limits shrink the header allowance rather than letting the body
	// budget float past the cap.
	headerBudget := runeLen(headerLine) + headerPadding - 2
	bodyLimit := limit - headerBudget - 2
	if bodyLimit < minBodyBudget {
		if share := limit / 4; headerBudget > share {
			headerBudget = share
		}
		if headerBudget < 1 {
			headerBudget = 1
		}
		bodyLimit = limit - headerBudget - 2
		if bodyLimit < 1 {
			bodyLimit = 1
		}
	}

	var blocks []string
	for _, s := range sections {
		blocks = append(blocks, buildSectionBlocks(s, bodyLimit)...)
	}

	var bodies []string
	var current []string
	currentLen := 0
	for _, block := range blocks {
		addition := runeLen(block)
		if len(current) > 0 {
			addition += 2
		}
		if len(current) > 0 && currentLen+addition > bodyLimit {
			bodies = append(bodies, strings.Join(current, "\n\n"))
			current = []string{block}
			currentLen = runeLen(block)
		} else {
			current = append(current, block)
			currentLen += addition
		}
	}
	if len(current) > 0 {
		bodies = append(bodies, strings.Join(current, "\n\n"))
	}
	if len(bodies) == 0 {
		bodies = []string{""}
	}

	total := len(bodies)
	chunks := make([]string, 0, total)
	for i, body := range bodies {
		header := formatHeader(headerLine, i+1, total, headerBudget)
		chunks = append(chunks, strings.TrimSpace(header+"\n\n"+body))
	}
	return chunks
}

// formatHeader rewrites the header with an (i/total) page marker when more
// than one chunk results. The marker lands next to the known digest marker
// when present, else is appended; headers over budget are ellipsized, and
// bold markers are dropped when the budget cannot carry them.
func formatHeader(base string, index, total, budget int) string {
	header := strings.TrimSpace(base)

	bold := strings.HasPrefix(header, "**") && strings.HasSuffix(header, "**") && runeLen(header) >= 4
	inner := header
	if bold {
		inner = header[2 : len(header)-2]
		if budget >= 6 {
			budget -= 4
		} else {
			bold = false
		}
	}
	if total > 1 {
		page := fmt.Sprintf("(%d/%d)", index, total)
		if strings.Contains(inner, paginationMarker) {
			inner = strings.Replace(inner, paginationMarker, paginationMarker+page, 1)
		} else {
			inner = inner + " " + page
		}
	}
	if runeLen(inner) > budget {
		inner = ellipsizeRunes(inner, budget)
	}
	if bold {
		return "**" + inner + "**"
	}
	return inner
}

func ellipsizeRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 1 {
		return "…"
	}
	return string(runes[:max-1]) + "…"
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
