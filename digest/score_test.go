package digest

import "testing"

func tagsOf(tags ...Tag) TagSet {
	s := make(TagSet, len(tags))
	for _, t := range tags {
		s.Add(t)
	}
	return s
}

func TestScore(t *testing.T) {
	t.Parallel()

	lookup := BuildLookup(testTable())
	cases := []struct {
		name    string
		tags    TagSet
		project string
		want    float64
	}{
		{"empty", tagsOf(), "", 0},
		{"actionable numeric known", tagsOf(TagActionable, TagNumeric), "Legion", 5},
		{"all additive", tagsOf(TagActionable, TagNumeric, TagAbsoluteDate, TagRisk), "Legion", 8},
		{"unknown project no bonus", tagsOf(TagActionable), "Unknown", 2},
		{"date and numeric stack", tagsOf(TagNumeric, TagAbsoluteDate), "", 4},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Score(tc.tags, tc.project, lookup); got != tc.want {
				t.Fatalf("Score=%v, want %v", got, tc.want)
			}
		})
	}
}

func TestDedupe_KeepsHigherScore(t *testing.T) {
	t.Parallel()

	spans := []Span{
		{Category: CategoryAirdrop, Project: "Legion", CleanText: "first", Score: 3},
		{Category: CategoryAirdrop, Project: "Legion", CleanText: "second", Score: 5},
	}
	got := Dedupe(spans)
	if len(got) != 1 {
		t.Fatalf("got %d candidates, want 1", len(got))
	}
	if got[0].CleanText != "second" {
		t.Fatalf("kept %q, want the higher-scoring span", got[0].CleanText)
	}
}

func TestDedupe_TieKeepsFirst(t *testing.T) {
	t.Parallel()

	spans := []Span{
		{Category: CategoryAirdrop, Project: "Legion", CleanText: "first", Score: 3},
		{Category: CategoryAirdrop, Project: "Legion", CleanText: "second", Score: 3},
	}
	got := Dedupe(spans)
	if len(got) != 1 {
		t.Fatalf("got %d candidates, want 1", len(got))
	}
	if got[0].CleanText != "first" {
		t.Fatalf("kept %q, want the first-seen span on a tie", got[0].CleanText)
	}
}

func TestDedupe_PrefixKeyWhenNoProject(t *testing.T) {
	t.Parallel()

	long := ""
	for i := 0; i < 70; i++ {
		long += "x"
	}
	// Same 60-rune prefix, different tails: one key.
	spans := []Span{
		{Category: CategoryOther, CleanText: long + "a", Score: 1},
		{Category: CategoryOther, CleanText: long + "b", Score: 2},
	}
	if got := Dedupe(spans); len(got) != 1 {
		t.Fatalf("got %d candidates, want 1 (shared prefix key)", len(got))
	}

	// Different category keeps both.
	spans[1].Category = CategoryMarket
	if got := Dedupe(spans); len(got) != 2 {
		t.Fatalf("got %d candidates, want 2 (distinct categories)", len(got))
	}
}

func TestDedupe_Ordering(t *testing.T) {
	t.Parallel()

	spans := []Span{
		{Category: CategoryOther, Project: "B", CleanText: "b", TimestampUTC: "2026-08-30 10:00:00", Score: 2},
		{Category: CategoryAirdrop, Project: "A", CleanText: "a", TimestampUTC: "2026-08-30 11:00:00", Score: 5},
		{Category: CategoryMint, Project: "C", CleanText: "c", TimestampUTC: "2026-08-30 09:00:00", Score: 2},
	}
	got := Dedupe(spans)
	if len(got) != 3 {
		t.Fatalf("got %d candidates, want 3", len(got))
	}
	if got[0].Project != "A" {
		t.Fatalf("got[0]=%q, want highest score first", got[0].Project)
	}
	// Equal scores order by timestamp ascending.
	if got[1].Project != "C" || got[2].Project != "B" {
		t.Fatalf("tie order=%q,%q, want C,B", got[1].Project, got[2].Project)
	}
}
