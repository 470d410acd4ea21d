package digest

import (
	"reflect"
	"strings"
	"testing"
)

func pipelineMessages() []Message {
	return []Message{
		{Text: "Legion claim 100 USDT before 2026-09-01 https://t.me/x", TimestampUTC: "2026-08-30 10:00:00", ChannelHandle: "alpha"},
		{Text: "[Photo]", TimestampUTC: "2026-08-30 10:01:00", ChannelHandle: "alpha"},
		{Text: "相場が荒れているので注意", TimestampUTC: "2026-08-30 10:05:00", ChannelHandle: "alpha"},
		{Text: "zora mint starts 2026-09-02", TimestampUTC: "2026-08-30 11:00:00", ChannelHandle: "beta"},
	}
}

func TestExtractSpans_SkipsNoiseAndKeepsIndex(t *testing.T) {
	t.Parallel()

	lookup := BuildLookup(testTable())
	spans := ExtractSpans(pipelineMessages(), lookup)
	if len(spans) != 3 {
		t.Fatalf("got %d spans, want 3 (media placeholder skipped)", len(spans))
	}
	if spans[0].SourceIndex != 0 || spans[1].SourceIndex != 2 {
		t.Fatalf("source indexes %d,%d, want 0,2", spans[0].SourceIndex, spans[1].SourceIndex)
	}
	if spans[0].Alias != "Legion" {
		t.Fatalf("Alias=%q, want Legion", spans[0].Alias)
	}
	if strings.Contains(spans[0].CleanText, "https://") {
		t.Fatalf("CleanText kept a URL: %q", spans[0].CleanText)
	}
}

func TestExtractSpans_AirdropScoring(t *testing.T) {
	t.Parallel()

	messages := []Message{{
		Text:         "Legion airdrop claim opens 2025-09-27, min 2500 USDT, FCFS",
		TimestampUTC: "2025-09-20 10:00:00",
	}}
	spans := ExtractSpans(messages, BuildLookup(AliasTable{}))
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	s := spans[0]
	if s.Category != CategoryAirdrop {
		t.Fatalf("category=%q, want airdrop", s.Category)
	}
	for _, want := range []Tag{TagNumeric, TagAbsoluteDate, TagActionable} {
		if !s.Tags.Has(want) {
			t.Fatalf("missing tag %q in %v", want, s.Tags.List())
		}
	}
	if s.Score != 6.0 {
		t.Fatalf("score=%v, want 6.0", s.Score)
	}
}

func TestRun_Deterministic(t *testing.T) {
	t.Parallel()

	messages := pipelineMessages()
	table := testTable()
	first := Run(messages, table)
	second := Run(messages, table)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("two runs over identical input diverged")
	}
	if len(first.Candidates) == 0 || len(first.Bundles) == 0 {
		t.Fatalf("expected non-empty candidates and bundles")
	}
}

func TestRun_EmptyInput(t *testing.T) {
	t.Parallel()

	result := Run(nil, AliasTable{})
	if len(result.Spans) != 0 || len(result.Candidates) != 0 || len(result.Bundles) != 0 || len(result.Seeds) != 0 {
		t.Fatalf("expected empty result, got %+v", result)
	}
}

func TestBundleConversations(t *testing.T) {
	t.Parallel()

	messages := []Message{
		{Text: "a", TimestampUTC: "2026-08-30 10:00:00", ChannelHandle: "alpha"},
		{Text: "b", TimestampUTC: "2026-08-30 10:05:00", ChannelHandle: "alpha"},
		// Gap over eight minutes splits the conversation.
		{Text: "c", TimestampUTC: "2026-08-30 10:20:00", ChannelHandle: "alpha"},
		// Channel switch splits even inside the gap window.
		{Text: "d", TimestampUTC: "2026-08-30 10:21:00", ChannelHandle: "beta"},
	}
	bundles := BundleConversations(messages)
	if len(bundles) != 3 {
		t.Fatalf("got %d conversations, want 3", len(bundles))
	}
	if len(bundles[0]) != 2 {
		t.Fatalf("first conversation has %d messages, want 2", len(bundles[0]))
	}
}

func TestFlattenConversations(t *testing.T) {
	t.Parallel()

	bundles := [][]Message{{
		{Text: "line one\nline two", TimestampUTC: "2026-08-30 10:00:00", ChannelHandle: "alpha"},
	}}
	got := FlattenConversations(bundles)
	want := "---\n2026-08-30 10:00:00 alpha: line one\\nline two"
	if got != want {
		t.Fatalf("FlattenConversations=%q, want %q", got, want)
	}
}

func TestFallbackDigest_SchemaAndSections(t *testing.T) {
	t.Parallel()

	bundles := []TopicBundle{
		{
			Name: "Legion",
			Messages: []Span{{
				CleanText:    "claim open",
				TimestampUTC: "2026-08-30 10:00:00",
				Tags:         tagsOf(TagActionable),
			}},
		},
		{
			Name: "Zora",
			Messages: []Span{{
				CleanText:    "snapshot 2026-09-01",
				TimestampUTC: "2026-08-30 11:00:00",
				Tags:         tagsOf(TagAbsoluteDate),
			}},
		},
	}
	got := FallbackDigest(bundles, "13:00", "19:00")

	if !strings.HasPrefix(got, "**6hダイジェスト（13:00–19:00 WIB）**") {
		t.Fatalf("header missing: %q", got)
	}
	for _, section := range []string{"## Now", "## Heads-up", "## Context", "## その他"} {
		if !strings.Contains(got, section) {
			t.Fatalf("missing section %q in:\n%s", section, got)
		}
	}
	// Actionable topic lands in Now, dated one in Heads-up; empty sections
	// render 該当なし.
	nowIdx := strings.Index(got, "## Now")
	headsIdx := strings.Index(got, "## Heads-up")
	legionIdx := strings.Index(got, "**Legion**")
	zoraIdx := strings.Index(got, "**Zora**")
	if legionIdx < nowIdx || legionIdx > headsIdx {
		t.Fatalf("Legion not inside Now section:\n%s", got)
	}
	if zoraIdx < headsIdx {
		t.Fatalf("Zora not inside Heads-up section:\n%s", got)
	}
	if !strings.Contains(got, "該当なし") {
		t.Fatalf("empty sections should render 該当なし:\n%s", got)
	}
	if !strings.Contains(got, "（言及×1 / 17:00 WIB）") {
		t.Fatalf("footer missing single-clock form:\n%s", got)
	}
}

func TestFallbackDigest_FooterRange(t *testing.T) {
	t.Parallel()

	bundles := []TopicBundle{{
		Name: "Legion",
		Messages: []Span{
			{CleanText: "a", TimestampUTC: "2026-08-30 10:00:00", Tags: tagsOf(TagRisk)},
			{CleanText: "b", TimestampUTC: "2026-08-30 11:30:00", Tags: tagsOf()},
		},
	}}
	got := FallbackDigest(bundles, "13:00", "19:00")
	if !strings.Contains(got, "（言及×2 / 17:00–18:30 WIB）") {
		t.Fatalf("footer range missing:\n%s", got)
	}
}

func TestFallbackDigest_FooterCrossesMidnight(t *testing.T) {
	t.Parallel()

	// 16:50 UTC is 23:50 WIB; 17:10 UTC is 00:10 WIB the next day. The
	// footer keeps chronological order, not lexicographic clock order.
	bundles := []TopicBundle{{
		Name: "Legion",
		Messages: []Span{
			{CleanText: "a", TimestampUTC: "2026-08-30 16:50:00", Tags: tagsOf(TagRisk)},
			{CleanText: "b", TimestampUTC: "2026-08-30 17:10:00", Tags: tagsOf()},
		},
	}}
	got := FallbackDigest(bundles, "23:00", "05:00")
	if !strings.Contains(got, "（言及×2 / 23:50–00:10 WIB）") {
		t.Fatalf("midnight-crossing footer wrong:\n%s", got)
	}
}
