// Package digest implements the deterministic signal-extraction pipeline:
// raw chat messages are normalized, classified, scored, deduplicated, and
// grouped into ranked topic bundles that seed the composed digest.
package digest

import (
	"encoding/json"
	"sort"
)

// Category classifies what a span is about.
type Category string

const (
	CategorySale     Category = "sale"
	CategoryAirdrop  Category = "airdrop"
	CategoryMint     Category = "mint"
	CategoryStake    Category = "stake"
	CategoryKYC      Category = "kyc"
	CategoryWaitlist Category = "waitlist"
	CategoryRisk     Category = "risk"
	CategoryMarket   Category = "market"
	CategoryAction   Category = "action"
	CategoryOther    Category = "other"
)

// Tag marks a detail property detected on a span, independent of its category.
type Tag string

const (
	TagNumeric      Tag = "numeric"
	TagAbsoluteDate Tag = "absolute_date"
	TagActionable   Tag = "actionable"
	TagRisk         Tag = "risk"
	TagMarket       Tag = "market"
	TagProject      Tag = "project"
)

// TagSet is an unordered set of tags. List returns a sorted slice so any
// serialized form is reproducible.
type TagSet map[Tag]struct{}

func (s TagSet) Add(t Tag) { s[t] = struct{}{} }

func (s TagSet) Has(t Tag) bool {
	_, ok := s[t]
	return ok
}

// List returns the tags in sorted order.
func (s TagSet) List() []Tag {
	out := make([]Tag, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// MarshalJSON encodes the set as its sorted list form so serialized spans
// are reproducible.
func (s TagSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.List())
}

func (s *TagSet) UnmarshalJSON(data []byte) error {
	var tags []Tag
	if err := json.Unmarshal(data, &tags); err != nil {
		return err
	}
	set := make(TagSet, len(tags))
	for _, t := range tags {
		set.Add(t)
	}
	*s = set
	return nil
}

// Union merges other into a copy of s.
func (s TagSet) Union(other TagSet) TagSet {
	out := make(TagSet, len(s)+len(other))
	for t := range s {
		out.Add(t)
	}
	for t := range other {
		out.Add(t)
	}
	return out
}

// Message is one raw chat message as delivered by a message source. The
// pipeline never mutates messages; it only reads them by index.
type Message struct {
	SourceIndex   int    `json:"source_index"`
	Text          string `json:"text"`
	TimestampUTC  string `json:"timestamp_utc"`
	ChannelTitle  string `json:"channel_title,omitempty"`
	ChannelHandle string `json:"channel_handle,omitempty"`
}

// Span is one classified, scored, non-noise unit derived from a single input
// message. Spans are created once per message and never mutated afterwards.
type Span struct {
	SourceIndex  int      `json:"source_index"`
	Category     Category `json:"category"`
	Project      string   `json:"project,omitempty"`
	Alias        string   `json:"alias,omitempty"`
	RawText      string   `json:"raw_text"`
	CleanText    string   `json:"clean_text"`
	TimestampUTC string   `json:"timestamp_utc"`
	Score        float64  `json:"score"`
	Tags         TagSet   `json:"tags,omitempty"`
	Tokens       []string `json:"tokens,omitempty"`
}

// Candidate is a deduplication-survivor span: for each (category, subject)
// key at most one candidate exists, the highest-scoring span under that key.
type Candidate = Span

// TopicBundle is a ranked group of candidates sharing a resolved subject.
type TopicBundle struct {
	Name     string  `json:"name"`
	Alias    string  `json:"alias,omitempty"`
	Messages []Span  `json:"messages"`
	Score    float64 `json:"score"`
}

// unionTags collects the union of tags across the bundle's spans.
func (b TopicBundle) unionTags() TagSet {
	tags := make(TagSet)
	for _, m := range b.Messages {
		tags = tags.Union(m.Tags)
	}
	return tags
}

// StorySeed is a narrative-ready digest of a TopicBundle: a short timeline
// plus heuristic hints. Seeds are regenerated every run and never persisted.
type StorySeed struct {
	Topic    string   `json:"topic"`
	Timeline []string `json:"timeline"`
	Why      string   `json:"why,omitempty"`
	Impact   string   `json:"impact,omitempty"`
	Next     string   `json:"next,omitempty"`
	Score    float64  `json:"score"`
}
