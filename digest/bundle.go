package digest

import (
	"sort"
	"strconv"
)

// perMemberBonus rewards topics with broad corroboration over a single
// high-scoring outlier without letting sheer volume dominate signal quality.
const perMemberBonus = 0.1

// Group buckets deduplicated candidate spans into ranked topic bundles.
// The grouping key precedence per span is resolved alias, then guessed
// project, then first token, then a synthetic per-span "Topic-<n>" name from
// a monotonic per-run counter, guaranteeing singleton bundles rather than
// silent merging. Every span lands in exactly one bundle.
func Group(candidates []Candidate) []TopicBundle {
	byName := make(map[string]*TopicBundle, len(candidates))
	order := make([]string, 0, len(candidates))
	synthetic := 0

	for _, c := range candidates {
		name := c.Alias
		if name == "" {
			name = c.Project
		}
		if name == "" && len(c.Tokens) > 0 {
			name = c.Tokens[0]
		}
		if name == "" {
			synthetic++
			name = "Topic-" + strconv.Itoa(synthetic)
		}

		b, ok := byName[name]
		if !ok {
			b = &TopicBundle{Name: name}
			byName[name] = b
			order = append(order, name)
		}
		if b.Alias == "" && c.Alias != "" {
			b.Alias = c.Alias
		}
		b.Messages = append(b.Messages, c)
	}

	bundles := make([]TopicBundle, 0, len(order))
	for _, name := range order {
		b := byName[name]
		sort.Slice(b.Messages, func(i, j int) bool {
			a, c := b.Messages[i], b.Messages[j]
			if a.Score != c.Score {
				return a.Score > c.Score
			}
			if a.TimestampUTC != c.TimestampUTC {
				return a.TimestampUTC < c.TimestampUTC
			}
			return a.CleanText < c.CleanText
		})
		total := 0.0
		for _, m := range b.Messages {
			total += m.Score
		}
		b.Score = total + perMemberBonus*float64(len(b.Messages))
		bundles = append(bundles, *b)
	}

	sort.Slice(bundles, func(i, j int) bool {
		if bundles[i].Score != bundles[j].Score {
			return bundles[i].Score > bundles[j].Score
		}
		return bundles[i].Name < bundles[j].Name
	})
	return bundles
}
