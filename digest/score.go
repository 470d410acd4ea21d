package digest

import "sort"

// scoreWeights is a policy table, not a law of nature: the weights encode
// current editorial judgement about what makes a span worth surfacing.
// Numeric and absolute-date bonuses are additive, so a span carrying both a
// quantity and a date outranks one with either alone.
var scoreWeights = struct {
	Actionable   float64
	Numeric      float64
	AbsoluteDate float64
	Risk         float64
	KnownProject float64
}{
	Actionable:   2.0,
	Numeric:      2.0,
	AbsoluteDate: 2.0,
	Risk:         1.0,
	KnownProject: 1.0,
}

// Score computes the deterministic span score from its tags and project.
func Score(tags TagSet, project string, lookup AliasLookup) float64 {
	s := 0.0
	if tags.Has(TagActionable) {
		s += scoreWeights.Actionable
	}
	if tags.Has(TagNumeric) {
		s += scoreWeights.Numeric
	}
	if tags.Has(TagAbsoluteDate) {
		s += scoreWeights.AbsoluteDate
	}
	if tags.Has(TagRisk) {
		s += scoreWeights.Risk
	}
	if project != "" && lookup.KnownTerm(project) {
		s += scoreWeights.KnownProject
	}
	return s
}

// dedupeKeyPrefixLen is how much clean text stands in for a subject when a
// span resolved no project.
const dedupeKeyPrefixLen = 60

type dedupeKey struct {
	category Category
	subject  string
}

func keyOf(s Span) dedupeKey {
	subject := s.Project
	if subject == "" {
		subject = truncateRunes(s.CleanText, dedupeKeyPrefixLen)
	}
	return dedupeKey{category: s.Category, subject: subject}
}

// Dedupe collapses spans sharing a (category, project-or-text-prefix) key,
// keeping the span with the strictly greater score; ties keep the span seen
// first in arrival order. The surviving candidates are returned sorted by
// (-score, timestamp, project, clean text) — a total order, so two runs over
// identical input produce identical candidate sequences.
func Dedupe(spans []Span) []Candidate {
	best := make(map[dedupeKey]Span, len(spans))
	for _, s := range spans {
		key := keyOf(s)
		existing, ok := best[key]
		if !ok || s.Score > existing.Score {
			best[key] = s
		}
	}

	out := make([]Candidate, 0, len(best))
	for _, s := range best {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.TimestampUTC != b.TimestampUTC {
			return a.TimestampUTC < b.TimestampUTC
		}
		if a.Project != b.Project {
			return a.Project < b.Project
		}
		return a.CleanText < b.CleanText
	})
	return out
}
