package digest

import (
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// AliasTable is the on-disk alias configuration: lowercase alias strings
// mapped to canonical display names, plus a list of canonical chain names.
type AliasTable struct {
	Aliases map[string]string `yaml:"aliases"`
	Chains  []string          `yaml:"chains"`
}

// LoadAliasTable reads an alias YAML file. Missing or malformed files
// degrade to an empty table; resolution then simply never succeeds.
func LoadAliasTable(path string) AliasTable {
	b, err := os.ReadFile(path)
	if err != nil {
		return AliasTable{}
	}
	var t AliasTable
	if err := yaml.Unmarshal(b, &t); err != nil {
		return AliasTable{}
	}
	return t
}

// DictionaryLines renders the table as prompt-dictionary lines, capped at max.
func (t AliasTable) DictionaryLines(max int) []string {
	lines := make([]string, 0, len(t.Aliases)+len(t.Chains))
	for _, alias := range sortedKeys(t.Aliases) {
		if alias == "" || t.Aliases[alias] == "" {
			continue
		}
		lines = append(lines, "- "+alias+": "+t.Aliases[alias])
	}
	for _, chain := range t.Chains {
		if chain != "" {
			lines = append(lines, "- チェーン: "+chain)
		}
	}
	if max > 0 && len(lines) > max {
		lines = lines[:max]
	}
	return lines
}

type aliasPair struct {
	alias     string // lowercase
	canonical string
}

// AliasLookup is the resolver's precomputed view of an AliasTable. YAML maps
// carry no ordering in Go, so both scan lists are sorted at build time; the
// resulting iteration order is a fixed total order and resolution is
// reproducible run to run.
type AliasLookup struct {
	pairs      []aliasPair // sorted by alias
	canonicals []string    // canonical display names, deduped, sorted
	lowered    []string    // lowercase forms of canonicals, same order
	byToken    map[string]string
	terms      map[string]struct{}
}

// BuildLookup precomputes alias and canonical scan tables from an AliasTable.
func BuildLookup(t AliasTable) AliasLookup {
	l := AliasLookup{
		byToken: make(map[string]string, len(t.Aliases)),
		terms:   make(map[string]struct{}, len(t.Aliases)*2+len(t.Chains)),
	}

	seenCanonical := make(map[string]struct{}, len(t.Aliases))
	for _, alias := range sortedKeys(t.Aliases) {
		canonical := strings.TrimSpace(t.Aliases[alias])
		lower := strings.ToLower(strings.TrimSpace(alias))
		if lower == "" || canonical == "" {
			continue
		}
		l.pairs = append(l.pairs, aliasPair{alias: lower, canonical: canonical})
		l.byToken[lower] = canonical
		l.terms[lower] = struct{}{}
		l.terms[strings.ToLower(canonical)] = struct{}{}
		seenCanonical[canonical] = struct{}{}
	}
	for canonical := range seenCanonical {
		l.canonicals = append(l.canonicals, canonical)
	}
	sort.Strings(l.canonicals)
	for _, c := range l.canonicals {
		l.lowered = append(l.lowered, strings.ToLower(c))
	}
	for _, chain := range t.Chains {
		if chain = strings.TrimSpace(chain); chain != "" {
			l.terms[strings.ToLower(chain)] = struct{}{}
		}
	}
	return l
}

// Resolve returns the canonical name mentioned by the text, or "" when none
// resolves. Precedence is fixed: a canonical name appearing as a substring
// wins over any alias substring, which wins over an exact token match.
func (l AliasLookup) Resolve(text string, tokens []string) string {
	lowered := strings.ToLower(text)
	for i, form := range l.lowered {
		if strings.Contains(lowered, form) {
			return l.canonicals[i]
		}
	}
	for _, p := range l.pairs {
		if strings.Contains(lowered, p.alias) {
			return p.canonical
		}
	}
	for _, tok := range tokens {
		if canonical, ok := l.byToken[strings.ToLower(tok)]; ok {
			return canonical
		}
	}
	return ""
}

// KnownTerm reports whether s matches a known canonical, alias, or chain
// name, case-insensitively.
func (l AliasLookup) KnownTerm(s string) bool {
	_, ok := l.terms[strings.ToLower(s)]
	return ok
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
