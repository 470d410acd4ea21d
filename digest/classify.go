package digest

import (
	"regexp"
	"strings"
)

// categoryRule pairs a category with its keyword group. All keywords are
// stored lowercase and matched as case-insensitive substrings.
type categoryRule struct {
	category Category
	keywords []string
}

var (
	riskWords = []string{
		"リスク", "危険", "詐欺", "scam", "運営売り", "高fdv", "薄い板", "rug", "警告", "注意",
	}
	marketWords = []string{
		"相場", "マーケット", "市場", "地合い", "ブーム", "フロー", "勢い", "トレンド",
	}
	actionWords = []string{
		"claim", "register", "stake", "mint", "apply", "submit", "join", "swap",
		"bridge", "farm", "deposit", "kyc",
		"ハント", "登録", "応募", "申請", "参加", "受け取り", "請求", "ステーク",
		"ミント", "ブリッジ", "フォロー",
	}
)

// categoryRules is the single ordered classification pass. Risk words win
// outright, then the category keyword groups in fixed order, then market
// phrasing, then generic action verbs. First match decides the category.
var categoryRules = []categoryRule{
	{CategoryRisk, riskWords},
	{CategorySale, []string{"ido", "launch", "sale", "プレセール", "ラウンチ", "トークンセール"}},
	{CategoryAirdrop, []string{"airdrop", "エアドロ", "配布", "claim", "クレーム", "ドロップ"}},
	{CategoryMint, []string{"mint", "ミント", "铸造"}},
	{CategoryStake, []string{"stake", "ステーク", "ステーキング", "委任", "ロック"}},
	{CategoryKYC, []string{"kyc", "本人確認"}},
	{CategoryWaitlist, []string{"waitlist", "登録", "ホワイトリスト", "wl"}},
	{CategoryMarket, marketWords},
	{CategoryAction, actionWords},
}

var (
	numericRE      = regexp.MustCompile(`(?i)\b\d+(?:\.\d+)?(?:%|x|倍|枚|人|pt|ポイント|usd|usdt|eth|sol|btc|k|m|b)?\b`)
	absoluteDateRE = regexp.MustCompile(`\b20\d{2}-\d{2}-\d{2}\b`)
	upperTokenRE   = regexp.MustCompile(`\b[A-Z0-9][A-Z0-9\-]{1,10}\b`)
	allDigitsRE    = regexp.MustCompile(`^[0-9]+$`)
)

// Classify assigns a category and detail tags to cleaned text. resolved is
// the canonical name the alias resolver found, or "". Tags are computed
// independently of the category decision.
func Classify(clean string, resolved string) (Category, TagSet) {
	lowered := strings.ToLower(clean)

	category := CategoryOther
	for _, rule := range categoryRules {
		if containsAny(lowered, rule.keywords) {
			category = rule.category
			break
		}
	}

	tags := make(TagSet)
	if numericRE.MatchString(clean) {
		tags.Add(TagNumeric)
	}
	if absoluteDateRE.MatchString(clean) {
		tags.Add(TagAbsoluteDate)
	}
	if containsAny(lowered, actionWords) {
		tags.Add(TagActionable)
	}
	if containsAny(lowered, riskWords) {
		tags.Add(TagRisk)
	}
	if containsAny(lowered, marketWords) {
		tags.Add(TagMarket)
	}
	if resolved != "" {
		tags.Add(TagProject)
	}
	return category, tags
}

// GuessProject falls back when the alias resolver found nothing: the first
// all-uppercase alphanumeric token of length >= 3 that isn't purely numeric,
// else the first token, else "".
func GuessProject(clean string, tokens []string) string {
	for _, tok := range upperTokenRE.FindAllString(clean, -1) {
		if len(tok) >= 3 && !allDigitsRE.MatchString(tok) {
			return tok
		}
	}
	if len(tokens) > 0 {
		return tokens[0]
	}
	return ""
}

func containsAny(lowered string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}
