package digest

import (
	"fmt"
	"strings"
	"time"

	"github.com/theimaginaryfoundation/digest-o-bot/digest/fileutils"
)

const cleanTextLen = 320

// ExtractSpans turns one window of raw messages into classified, scored
// spans, skipping noise. Spans keep the message's position in the window as
// SourceIndex.
func ExtractSpans(messages []Message, lookup AliasLookup) []Span {
	spans := make([]Span, 0, len(messages))
	for i, msg := range messages {
		if IsNoise(msg.Text) {
			continue
		}
		clean := Normalize(msg.Text)
		tokens := Tokenize(clean)
		alias := lookup.Resolve(clean, tokens)
		category, tags := Classify(clean, alias)
		project := alias
		if project == "" {
			project = GuessProject(clean, tokens)
		}
		spans = append(spans, Span{
			SourceIndex:  i,
			Category:     category,
			Project:      project,
			Alias:        alias,
			RawText:      msg.Text,
			CleanText:    truncateRunes(clean, cleanTextLen),
			TimestampUTC: msg.TimestampUTC,
			Score:        Score(tags, project, lookup),
			Tags:         tags,
			Tokens:       tokens,
		})
	}
	return spans
}

// Result carries every intermediate artifact of one pipeline run.
type Result struct {
	Spans      []Span
	Candidates []Candidate
	Bundles    []TopicBundle
	Seeds      []StorySeed
}

// Run executes the full extraction pipeline. It is a pure function of its
// inputs: identical messages and alias table always produce identical
// candidates, bundles, and seeds.
func Run(messages []Message, table AliasTable) Result {
	lookup := BuildLookup(table)
	spans := ExtractSpans(messages, lookup)
	candidates := Dedupe(spans)
	bundles := Group(candidates)
	seeds := BuildStorySeeds(bundles, DefaultMaxTopics, DefaultMaxTimeline)
	return Result{Spans: spans, Candidates: candidates, Bundles: bundles, Seeds: seeds}
}

// conversationGapMinutes is the maximum silence inside one conversation.
const conversationGapMinutes = 8

// BundleConversations groups messages of the same channel posted within a
// short gap window into conversation blocks, preserving arrival order inside
// each block. Used to give the compose prompt local context.
func BundleConversations(messages []Message) [][]Message {
	var bundles [][]Message
	var current []Message
	var lastTime time.Time
	var lastChannel string

	for _, m := range messages {
		t, ok := ParseTimestamp(m.TimestampUTC)
		if len(current) == 0 {
			current = []Message{m}
			lastTime, lastChannel = t, m.ChannelHandle
			continue
		}
		sameChannel := m.ChannelHandle == lastChannel
		within := ok && !lastTime.IsZero() && t.Sub(lastTime) <= conversationGapMinutes*time.Minute
		if sameChannel && within {
			current = append(current, m)
		} else {
			bundles = append(bundles, current)
			current = []Message{m}
		}
		lastTime, lastChannel = t, m.ChannelHandle
	}
	if len(current) > 0 {
		bundles = append(bundles, current)
	}
	return bundles
}

// FlattenConversations renders conversation blocks as a prompt transcript,
// one line per message, blocks separated by "---".
func FlattenConversations(bundles [][]Message) string {
	var b strings.Builder
	for _, conv := range bundles {
		b.WriteString("---\n")
		for _, m := range conv {
			b.WriteString(m.TimestampUTC)
			b.WriteString(" ")
			b.WriteString(m.ChannelHandle)
			b.WriteString(": ")
			b.WriteString(fileutils.SanitizeNewlines(m.Text))
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// forcedSectionNames mirrors the delivery normalizer's section schema so the
// fallback digest is already canonical.
var forcedSectionNames = [4]string{"Now", "Heads-up", "Context", "その他"}

// FallbackDigest renders a deterministic digest straight from topic bundles,
// used when the model completion is empty, truncated, or unusable. Sections
// are assigned by tag precedence: risk or actionable topics are live fire
// (Now), dated ones are upcoming (Heads-up), market chatter is background
// (Context), the rest lands in その他.
func FallbackDigest(bundles []TopicBundle, startWIB, endWIB string) string {
	header := "**6hダイジェスト"
	if startWIB != "" && endWIB != "" {
		header += "（" + startWIB + "–" + endWIB + " WIB）"
	}
	header += "**"

	sections := map[string][]string{}
	for _, b := range bundles {
		sections[fallbackSection(b)] = append(sections[fallbackSection(b)], fallbackTopic(b))
	}

	lines := []string{header, ""}
	for _, name := range forcedSectionNames {
		lines = append(lines, "## "+name)
		if len(sections[name]) == 0 {
			lines = append(lines, "該当なし", "")
			continue
		}
		lines = append(lines, sections[name]...)
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}

func fallbackSection(b TopicBundle) string {
	tags := b.unionTags()
	switch {
	case tags.Has(TagRisk) || tags.Has(TagActionable):
		return "Now"
	case tags.Has(TagAbsoluteDate):
		return "Heads-up"
	case tags.Has(TagMarket):
		return "Context"
	}
	return "その他"
}

func fallbackTopic(b TopicBundle) string {
	var body string
	if len(b.Messages) > 0 {
		body = ellipsize(b.Messages[0].CleanText, timelineSnippetLen)
	}
	if extra := len(b.Messages) - 1; extra > 0 {
		body += fmt.Sprintf(" ほか%d件の言及。", extra)
	}
	return "**" + b.Name + "**\n" + body + "\n" + fallbackFooter(b) + "\n"
}

func fallbackFooter(b TopicBundle) string {
	// Min/max over parsed times, not formatted clocks: a window crossing
	// midnight WIB would otherwise render its bounds swapped.
	var startTS, endTS string
	var startT, endT time.Time
	for _, m := range b.Messages {
		t, ok := ParseTimestamp(m.TimestampUTC)
		if !ok {
			continue
		}
		if startTS == "" || t.Before(startT) {
			startT, startTS = t, m.TimestampUTC
		}
		if endTS == "" || t.After(endT) {
			endT, endTS = t, m.TimestampUTC
		}
	}
	mentions := fmt.Sprintf("言及×%d", len(b.Messages))
	start, end := WIBClock(startTS), WIBClock(endTS)
	switch {
	case start == "":
		return "（" + mentions + "）"
	case start == end:
		return "（" + mentions + " / " + start + " WIB）"
	}
	return "（" + mentions + " / " + start + "–" + end + " WIB）"
}
