package digest

import "testing"

func TestNormalize_StripOrder(t *testing.T) {
	t.Parallel()

	got := Normalize("Check https://example.com/x #airdrop 🚀  now")
	want := "Check now"
	if got != want {
		t.Fatalf("Normalize=%q, want %q", got, want)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"Legion claim 開始 https://t.me/x #legion ✨",
		"  spaced   out\ttext ",
		"プレーンなテキスト",
	}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Fatalf("Normalize not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestNormalize_CollapsesWhitespace(t *testing.T) {
	t.Parallel()

	got := Normalize("a\n\nb\t c")
	if got != "a b c" {
		t.Fatalf("Normalize=%q, want %q", got, "a b c")
	}
}

func TestIsNoise(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		text string
		want bool
	}{
		{"empty", "", true},
		{"whitespace only", "   \n ", true},
		{"forward marker", "Forwarded from", true},
		{"media placeholder", "[Photo]", true},
		{"url only", "https://example.com/a", true},
		{"emoji only", "🚀🔥", true},
		{"url plus emoji", "https://example.com 🚀", true},
		{"too short", "ok", true},
		{"relative only", "まもなく開始", true},
		{"relative english", "soon everyone", true},
		{"real signal", "Legion claim is live", false},
		{"japanese signal", "Legionのクレームが開始", false},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := IsNoise(tc.text); got != tc.want {
				t.Fatalf("IsNoise(%q)=%v, want %v", tc.text, got, tc.want)
			}
		})
	}
}

func TestTruncateRunes(t *testing.T) {
	t.Parallel()

	if got := truncateRunes("あいうえお", 3); got != "あいう" {
		t.Fatalf("truncateRunes=%q, want %q", got, "あいう")
	}
	if got := truncateRunes("abc", 10); got != "abc" {
		t.Fatalf("truncateRunes=%q, want %q", got, "abc")
	}
	if got := truncateRunes("abc", 0); got != "" {
		t.Fatalf("truncateRunes=%q, want empty", got)
	}
}

func TestEllipsize(t *testing.T) {
	t.Parallel()

	if got := ellipsize("あいうえお", 3); got != "あい…" {
		t.Fatalf("ellipsize=%q, want %q", got, "あい…")
	}
	if got := ellipsize("abc", 3); got != "abc" {
		t.Fatalf("ellipsize=%q, want %q", got, "abc")
	}
}
