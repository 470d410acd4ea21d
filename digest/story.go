package digest

// Defaults for story seed building.
const (
	DefaultMaxTopics   = 8
	DefaultMaxTimeline = 4
)

const timelineSnippetLen = 200

// BuildStorySeeds derives narrative seeds for the top maxTopics bundles:
// a short timeline plus one-line why/impact/next hints from a fixed decision
// table over the union of the bundle's tags. Hints may be empty; callers
// must tolerate that.
func BuildStorySeeds(bundles []TopicBundle, maxTopics, maxTimeline int) []StorySeed {
	if maxTopics <= 0 {
		maxTopics = DefaultMaxTopics
	}
	if maxTimeline <= 0 {
		maxTimeline = DefaultMaxTimeline
	}
	if len(bundles) > maxTopics {
		bundles = bundles[:maxTopics]
	}

	seeds := make([]StorySeed, 0, len(bundles))
	for _, b := range bundles {
		timeline := make([]string, 0, maxTimeline)
		for _, m := range b.Messages {
			if len(timeline) == maxTimeline {
				break
			}
			timeline = append(timeline, timelineLine(m.CleanText, m.TimestampUTC))
		}
		tags := b.unionTags()
		seeds = append(seeds, StorySeed{
			Topic:    b.Name,
			Timeline: timeline,
			Why:      whyHint(tags),
			Impact:   impactHint(tags),
			Next:     nextHint(tags),
			Score:    b.Score,
		})
	}
	return seeds
}

func timelineLine(text, timestampUTC string) string {
	snippet := ellipsize(text, timelineSnippetLen)
	if timestampUTC == "" {
		return "- " + snippet
	}
	return "- " + timestampUTC + ": " + snippet
}

func whyHint(tags TagSet) string {
	switch {
	case tags.Has(TagActionable):
		return "参加アクションと回収判断が焦点"
	case tags.Has(TagNumeric):
		return "具体的な数値や条件が共有"
	case tags.Has(TagMarket):
		return "地合い変化の兆しを議論"
	}
	return ""
}

func impactHint(tags TagSet) string {
	switch {
	case tags.Has(TagRisk):
		return "警戒要素が拡散"
	case tags.Has(TagMarket):
		return "市場全体のムードに影響"
	}
	return ""
}

func nextHint(tags TagSet) string {
	switch {
	case tags.Has(TagAbsoluteDate):
		return "日程・締切の確認が必要"
	case tags.Has(TagActionable):
		return "次のステップを決める準備"
	}
	return ""
}
