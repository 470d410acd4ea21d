// Package delivery canonicalizes the composed digest markdown and reflows it
// into transport-safe chunks for the outbound webhook.
package delivery

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// MaxTopicsPerSection caps how many topics a section may keep before the
// overflow is compacted into one synthetic summary topic.
const MaxTopicsPerSection = 12

// ForcedSections are always present in normalized output, in this order,
// even when empty.
var ForcedSections = [4]string{"Now", "Heads-up", "Context", "その他"}

// sectionAliases maps tolerated label spellings (space-stripped, with 続き
// continuation suffixes removed) to the canonical section names.
var sectionAliases = map[string]string{
	"now":      "Now",
	"heads-up": "Heads-up",
	"headsup":  "Heads-up",
	"context":  "Context",
	"その他":      "その他",
	"そのた":      "その他",
}

var continuationSuffixes = []string{"(続き)", "（続き）", "続き", "(続)"}

var (
	mentionRE = regexp.MustCompile(`言及×(\d+)`)
	footerRE  = regexp.MustCompile(`^（言及×\d+(?: / .*?)?）$`)
)

var headlineSeparators = []string{"—", "―", "–", " - ", " — ", " ‐ "}

// textReplacements canonicalizes known misspellings and shorthand in the
// final output.
var textReplacements = [][2]string{
	{"バイナンス", "Binance"},
	{"バイナ", "Binance"},
	{"nashinashi133", "ryutaro (nashinashi133)"},
}

// Topic is one normalized digest topic: a bold headline, a single dense
// paragraph, and a provenance footer.
type Topic struct {
	Headline     string
	Paragraph    string
	Footer       string
	MentionCount int
}

// NormalizeDigest reflows arbitrary digest markdown — including malformed,
// partially structured, or empty model output — into the canonical schema: a
// bold header line, the four forced sections in fixed order, deduplicated
// topics, and a synthesized footer wherever one was missing. Extra sections
// the input introduced are appended after the forced four in first-seen
// order; empty input yields the header and the empty-section skeleton.
func NormalizeDigest(markdown string) string {
	var lines []string
	for _, line := range strings.Split(markdown, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		lines = append(lines, strings.TrimRight(line, " \t"))
	}

	header := ""
	rest := lines
	if len(lines) > 0 {
		header = strings.TrimSpace(lines[0])
		rest = lines[1:]
	}
	switch {
	case strings.HasPrefix(header, "### "):
		header = strings.TrimSpace(header[4:])
	case strings.HasPrefix(header, "## "):
		header = strings.TrimSpace(header[3:])
	}

	doc := scanTopics(rest)
	return renderDigest(header, doc)
}

type scannedDoc struct {
	topics map[string][]Topic
	order  []string
}

// scanTopics is the line state machine: section labels flush and switch,
// headline lines flush and open a new topic, footers and body lines attach
// to the open topic, and everything before the first headline is dropped.
func scanTopics(lines []string) scannedDoc {
	doc := scannedDoc{topics: make(map[string][]Topic)}
	currentSection := ""
	var currentTopic []string

	ensureSection := func(name string) {
		if _, ok := doc.topics[name]; !ok {
			doc.topics[name] = []Topic{}
			doc.order = append(doc.order, name)
		}
	}

	flush := func() {
		var kept []string
		for _, l := range currentTopic {
			if s := strings.TrimSpace(l); s != "" {
				kept = append(kept, s)
			}
		}
		currentTopic = nil
		if len(kept) == 0 {
			return
		}
		section := currentSection
		if section == "" {
			section = ForcedSections[0]
		}
		ensureSection(section)

		headline := strings.Trim(kept[0], "* ")
		var bodyLines []string
		footerLine := ""
		for _, entry := range kept[1:] {
			if footerRE.MatchString(entry) {
				footerLine = entry
			} else {
				bodyLines = append(bodyLines, entry)
			}
		}
		footer, mentions := parseFooter(footerLine, 0)
		doc.topics[section] = append(doc.topics[section], Topic{
			Headline:     headline,
			Paragraph:    strings.Join(bodyLines, " "),
			Footer:       footer,
			MentionCount: mentions,
		})
	}

	for _, raw := range lines {
		stripped := strings.TrimSpace(raw)
		if stripped == "" {
			continue
		}
		if label := normalizeSectionLabel(stripped); label != "" {
			flush()
			currentSection = label
			ensureSection(label)
			continue
		}
		if looksLikeHeadline(stripped) {
			flush()
			currentTopic = []string{stripped}
			continue
		}
		if len(currentTopic) == 0 {
			continue
		}
		currentTopic = append(currentTopic, stripped)
	}
	flush()
	return doc
}

func renderDigest(header string, doc scannedDoc) string {
	for _, name := range ForcedSections {
		if _, ok := doc.topics[name]; !ok {
			doc.topics[name] = []Topic{}
		}
	}
	var extras []string
	for _, name := range doc.order {
		if !isForcedSection(name) {
			extras = append(extras, name)
		}
	}

	if header == "" {
		header = "6h Digest"
	}
	if !strings.HasPrefix(header, "**") {
		header = "**" + header + "**"
	}

	out := []string{header, ""}
	globalSeen := make(map[[2]string]struct{})

	renderSection := func(name string) {
		out = append(out, "## "+name)
		deduped := dedupeTopics(doc.topics[name])
		deduped = summarizeRemainder(deduped)
		if len(deduped) == 0 {
			out = append(out, "該当なし", "")
			return
		}
		for _, topic := range deduped {
			headline := strings.TrimSpace(topic.Headline)
			paragraph := strings.TrimSpace(topic.Paragraph)
			key := [2]string{strings.ToLower(strings.Trim(headline, "* ")), paragraph}
			if _, ok := globalSeen[key]; ok {
				continue
			}
			globalSeen[key] = struct{}{}
			if !strings.HasPrefix(headline, "**") {
				out = append(out, "**"+headline+"**")
			} else {
				out = append(out, headline)
			}
			if paragraph != "" {
				out = append(out, paragraph)
			}
			footer := topic.Footer
			if footer == "" {
				footer = "（言及×-）"
			}
			out = append(out, footer, "")
		}
	}

	for _, name := range ForcedSections {
		renderSection(name)
	}
	for _, name := range extras {
		renderSection(name)
	}

	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}

	result := strings.Join(out, "\n")
	for _, repl := range textReplacements {
		result = strings.ReplaceAll(result, repl[0], repl[1])
	}
	return result
}

// normalizeSectionLabel maps a line to a canonical section name, tolerating
// heading markers, stray spaces, and 続き continuation suffixes. Returns ""
// when the line is not a section label.
func normalizeSectionLabel(raw string) string {
	token := strings.TrimSpace(strings.Trim(strings.TrimSpace(raw), "#"))
	if token == "" {
		return ""
	}
	for _, suffix := range continuationSuffixes {
		token = strings.ReplaceAll(token, suffix, "")
	}
	normalized := strings.ReplaceAll(token, " ", "")
	if name, ok := sectionAliases[normalized]; ok {
		return name
	}
	if name, ok := sectionAliases[strings.ToLower(normalized)]; ok {
		return name
	}
	return ""
}

// looksLikeHeadline recognizes topic openers: bold-wrapped lines, or lines
// carrying an em/en-dash style separator, excluding footers and headings.
func looksLikeHeadline(text string) bool {
	if text == "" || strings.HasPrefix(text, "（言及×") || strings.HasPrefix(text, "##") {
		return false
	}
	if strings.HasPrefix(text, "**") && strings.HasSuffix(text, "**") {
		return true
	}
	for _, sep := range headlineSeparators {
		if strings.Contains(text, sep) {
			return true
		}
	}
	return false
}

// parseFooter extracts the mention count via the 言及×N pattern and
// synthesizes a footer when the line was empty.
func parseFooter(line string, defaultMentions int) (string, int) {
	stripped := strings.TrimSpace(line)
	mentions := defaultMentions
	if m := mentionRE.FindStringSubmatch(stripped); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			mentions = n
		}
	}
	if stripped == "" {
		stripped = fmt.Sprintf("（言及×%d）", mentions)
	}
	return stripped, mentions
}

// dedupeTopics drops later topics whose headline matches an earlier one
// case- and whitespace-insensitively.
func dedupeTopics(topics []Topic) []Topic {
	seen := make(map[string]struct{}, len(topics))
	out := make([]Topic, 0, len(topics))
	for _, t := range topics {
		key := strings.ToLower(strings.Trim(t.Headline, "* "))
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}

// summarizeRemainder compacts overflow topics into one synthetic
// その他主要トピック topic listing up to 8 of the dropped headlines, with the
// sum of their mention counts.
func summarizeRemainder(topics []Topic) []Topic {
	if len(topics) <= MaxTopicsPerSection {
		return topics
	}
	keepCount := MaxTopicsPerSection - 1
	if keepCount < 1 {
		keepCount = 1
	}
	keep := topics[:keepCount]
	remainder := topics[keepCount:]

	titles := make([]string, 0, 8)
	total := 0
	for _, t := range remainder {
		if len(titles) < 8 {
			titles = append(titles, t.Headline)
		}
		total += t.MentionCount
	}

	sentence := "その他の主な話題があります。"
	if len(titles) > 0 {
		sentence = "その他の主な話題: " + strings.Join(titles, " / ")
	}
	footer := "（言及×-）"
	if total > 0 {
		footer = fmt.Sprintf("（言及×%d）", total)
	}

	return append(append([]Topic(nil), keep...), Topic{
		Headline:     "その他主要トピック",
		Paragraph:    sentence,
		Footer:       footer,
		MentionCount: total,
	})
}

func isForcedSection(name string) bool {
	for _, s := range ForcedSections {
		if s == name {
			return true
		}
	}
	return false
}
