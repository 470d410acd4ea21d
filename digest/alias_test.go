package digest

import (
	"os"
	"path/filepath"
	"testing"
)

func testTable() AliasTable {
	return AliasTable{
		Aliases: map[string]string{
			"legion": "Legion",
			"lgn":    "Legion",
			"zora":   "Zora",
		},
		Chains: []string{"Base", "Solana"},
	}
}

func TestResolve_CanonicalBeatsAlias(t *testing.T) {
	t.Parallel()

	lookup := BuildLookup(testTable())
	// Both a canonical ("Zora") and an alias ("lgn") appear; the canonical
	// substring scan runs first, in sorted canonical order.
	text := "zora と lgn の話"
	got := lookup.Resolve(text, Tokenize(text))
	if got != "Zora" {
		t.Fatalf("Resolve=%q, want %q", got, "Zora")
	}
}

func TestResolve_AliasSubstring(t *testing.T) {
	t.Parallel()

	lookup := BuildLookup(testTable())
	text := "LGNのクレーム開始"
	got := lookup.Resolve(text, Tokenize(text))
	if got != "Legion" {
		t.Fatalf("Resolve=%q, want %q", got, "Legion")
	}
}

func TestResolve_NoMatch(t *testing.T) {
	t.Parallel()

	lookup := BuildLookup(testTable())
	if got := lookup.Resolve("nothing here", []string{"nothing", "here"}); got != "" {
		t.Fatalf("Resolve=%q, want empty", got)
	}
}

func TestResolve_Deterministic(t *testing.T) {
	t.Parallel()

	// Two aliases both match; resolution must pick the same winner every
	// build because scan order is sorted, not map order.
	table := AliasTable{Aliases: map[string]string{
		"aaa": "Alpha",
		"bbb": "Bravo",
	}}
	text := "aaa bbb"
	for i := 0; i < 20; i++ {
		lookup := BuildLookup(table)
		if got := lookup.Resolve(text, Tokenize(text)); got != "Alpha" {
			t.Fatalf("iteration %d: Resolve=%q, want %q", i, got, "Alpha")
		}
	}
}

func TestKnownTerm(t *testing.T) {
	t.Parallel()

	lookup := BuildLookup(testTable())
	for _, term := range []string{"legion", "Legion", "LGN", "base", "Solana"} {
		if !lookup.KnownTerm(term) {
			t.Fatalf("KnownTerm(%q)=false, want true", term)
		}
	}
	if lookup.KnownTerm("unknown") {
		t.Fatalf("KnownTerm(unknown)=true, want false")
	}
}

func TestLoadAliasTable_Degrades(t *testing.T) {
	t.Parallel()

	table := LoadAliasTable(filepath.Join(t.TempDir(), "missing.yml"))
	if len(table.Aliases) != 0 || len(table.Chains) != 0 {
		t.Fatalf("expected empty table for missing file, got %+v", table)
	}

	bad := filepath.Join(t.TempDir(), "bad.yml")
	if err := os.WriteFile(bad, []byte("aliases: [not a map"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	table = LoadAliasTable(bad)
	if len(table.Aliases) != 0 {
		t.Fatalf("expected empty table for malformed file, got %+v", table)
	}
}

func TestLoadAliasTable_Roundtrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "aliases.yml")
	doc := "aliases:\n  legion: Legion\n  zora: Zora\nchains:\n  - Base\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	table := LoadAliasTable(path)
	if table.Aliases["legion"] != "Legion" {
		t.Fatalf("Aliases[legion]=%q, want Legion", table.Aliases["legion"])
	}
	if len(table.Chains) != 1 || table.Chains[0] != "Base" {
		t.Fatalf("Chains=%v, want [Base]", table.Chains)
	}
}

func TestDictionaryLines_SortedAndCapped(t *testing.T) {
	t.Parallel()

	lines := testTable().DictionaryLines(0)
	want := []string{
		"- legion: Legion",
		"- lgn: Legion",
		"- zora: Zora",
		"- チェーン: Base",
		"- チェーン: Solana",
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d: %v", len(lines), len(want), lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("lines[%d]=%q, want %q", i, lines[i], want[i])
		}
	}

	if capped := testTable().DictionaryLines(2); len(capped) != 2 {
		t.Fatalf("capped to %d lines, want 2", len(capped))
	}
}
