package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/theimaginaryfoundation/digest-o-bot/digest"
)

const analyzePrompt = `You are an analyst for a crypto community Telegram workspace.
Break the supplied conversation transcript into structured JSON without omitting any crypto-relevant detail.

Guidelines:
- Always return valid JSON matching the provided schema. No Markdown or commentary outside JSON.
- section_hint must be one of ["Now", "Heads-up", "Context", "その他"]. Choose based on urgency: live fire for Now, upcoming actions for Heads-up, background for Context, everything else for その他.
- mention_count should reflect how many source messages refer to the topic.
- time range fields capture the earliest and latest WIB hh:mm observed in the thread; leave empty when unavailable.
- Never drop critical details such as amounts, fees, KYC, FCFS instructions, error messages, or platform-specific steps.
- Prefer grouping nearby, same-entity messages into one thread; create multiple threads only when topics clearly diverge.`

const composePrompt = `You are an editorial assistant composing a Discord-ready digest for a crypto community team.
Input is a JSON payload containing the analyzed threads and entities, the coverage window (UTC+7, WIB), and a term dictionary.

Produce a Markdown digest that satisfies every rule below:
1. Header: one bold line, 「**6hダイジェスト（HH:MM–HH:MM WIB）**」 using the coverage window. Never use 「今日」.
2. Sections: emit exactly four level-2 headings in this order: ## Now, ## Heads-up, ## Context, ## その他. Always emit 「## その他」 even if it only contains one topic.
3. Topics: under each section, begin each topic with a bold headline (1 line) describing entity and theme, e.g. 「**Legion — Direct contract / refund**」.
4. Paragraph body: full sentences capturing every concrete data point (amounts, hours, fees, KYC, bugs, FCFS windows, warnings). Do not drop information.
5. Merge messages about the same entity and close time range into a single paragraph.
6. Provenance footer: end every topic with 「（言及×N / HH:MM–HH:MM WIB）」 using the thread's mention count and time range. If the end time is missing, use the start time only.
7. 「その他」 must capture every remaining crypto-relevant thread that does not fit the earlier sections. Nothing is allowed to fall through.
8. Do not output URLs or message IDs in the body.
9. Use Japanese for the narrative, but keep normalized English terms where the team expects them.
10. Maintain neutral, factual tone focused on operational relevance.`

type analyzeResult struct {
	Meta     analyzeMeta     `json:"meta"`
	Entities []analyzeEntity `json:"entities"`
	Threads  []analyzeThread `json:"threads"`
}

type analyzeMeta struct {
	Timezone string `json:"timezone"`
}

type analyzeEntity struct {
	Canonical string   `json:"canonical"`
	Type      string   `json:"type"`
	Aliases   []string `json:"aliases"`
}

type analyzeThread struct {
	ThreadID     string   `json:"thread_id"`
	Title        string   `json:"title"`
	EntityRefs   []string `json:"entity_refs"`
	Facts        []string `json:"facts"`
	Notes        []string `json:"notes"`
	Risks        []string `json:"risks"`
	SectionHint  string   `json:"section_hint"`
	MentionCount int      `json:"mention_count"`
	StartWIB     string   `json:"start_wib"`
	EndWIB       string   `json:"end_wib"`
}

// buildAnalyzeInput renders the analyze-stage user turn: the recent-window
// transcript, preceded by older context so threads spanning the boundary keep
// their beginning.
func buildAnalyzeInput(contextTranscript, recentTranscript string) string {
	var b strings.Builder
	if contextTranscript != "" {
		b.WriteString("# 直前の文脈（参照のみ、ダイジェスト対象外）\n")
		b.WriteString(contextTranscript)
		b.WriteString("\n\n")
	}
	b.WriteString("# ダイジェスト対象の会話\n")
	b.WriteString(recentTranscript)
	return b.String()
}

// buildComposeInput renders the compose-stage user turn: the analysis JSON,
// the coverage window, and the alias/glossary dictionaries.
func buildComposeInput(analysis analyzeResult, startWIB, endWIB string, table digest.AliasTable, glossary digest.Glossary) (string, error) {
	payload, err := json.MarshalIndent(analysis, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal analysis: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# 対象時間帯\n%s–%s WIB\n\n", startWIB, endWIB)
	b.WriteString("# 分析結果\n")
	b.Write(payload)

	if lines := table.DictionaryLines(50); len(lines) > 0 {
		b.WriteString("\n\n# エイリアス\n")
		b.WriteString(strings.Join(lines, "\n"))
	}
	if lines := glossary.DictionaryLines(50); len(lines) > 0 {
		b.WriteString("\n\n# 用語メモ\n")
		b.WriteString(strings.Join(lines, "\n"))
	}
	return b.String(), nil
}

// usableCompletion rejects model output too short to be a real digest, so
// the deterministic fallback kicks in.
func usableCompletion(markdown string) bool {
	trimmed := strings.TrimSpace(markdown)
	if len([]rune(trimmed)) < 80 {
		return false
	}
	return strings.Contains(trimmed, "##")
}
