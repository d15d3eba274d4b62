package query

import (
	"regexp"
	"sort"
	"strings"
)

// DefaultTopK bounds how many ranked passages feed the downstream prompt.
const DefaultTopK = 5

// Tier classifies how a passage earned its score.
type Tier string

const (
	TierPlain   Tier = "plain"   // no numeric signal at all
	TierNumeric Tier = "numeric" // currency, percentage or digit matches
	TierTable   Tier = "table"   // mentions a table, strongest signal
)

// ScoredPassage is a retrieved passage annotated with its relevance score.
type ScoredPassage struct {
	Text  string `json:"text"`
	Score int    `json:"score"`
	Tier  Tier   `json:"tier"`
}

// ScoringConfig holds the numeric-richness patterns and weights. The
// pattern boundaries vary across regulators' document styles, so they are
// configuration rather than constants; the weights encode that currency
// figures answer tariff questions best, percentages next, and bare digits
// (page numbers, dates) barely at all.
type ScoringConfig struct {
	Currency *regexp.Regexp
	Percent  *regexp.Regexp
	Number   *regexp.Regexp

	CurrencyWeight int
	PercentWeight  int
	NumberWeight   int
	TableBonus     int
}

// DefaultScoring returns the stock configuration: weights 5/3/1 with a
// flat +3 for passages that mention a table. Pattern counts may overlap
// (the digits inside $5.20 also count as bare numbers), which keeps the
// scoring a pure sum of independent pattern counts.
func DefaultScoring() *ScoringConfig {
	return &ScoringConfig{
		Currency:       regexp.MustCompile(`[$₹]\s?\d+(?:,\d+)*(?:\.\d+)?[KMB]?|Rs\.?\s?\d+(?:,\d+)*(?:\.\d+)?`),
		Percent:        regexp.MustCompile(`\d+(?:\.\d+)?\s?%`),
		Number:         regexp.MustCompile(`\d+`),
		CurrencyWeight: 5,
		PercentWeight:  3,
		NumberWeight:   1,
		TableBonus:     3,
	}
}

// Ranker orders retrieved passages by numeric richness.
type Ranker struct {
	cfg *ScoringConfig
}

// NewRanker creates a ranker; a nil config selects DefaultScoring.
func NewRanker(cfg *ScoringConfig) *Ranker {
	if cfg == nil {
		cfg = DefaultScoring()
	}
	return &Ranker{cfg: cfg}
}

// Score computes the numeric-richness score and tier for one passage.
// It never fails: text that matches nothing scores 0.
func (r *Ranker) Score(text string) (int, Tier) {
	score := r.cfg.CurrencyWeight*len(r.cfg.Currency.FindAllString(text, -1)) +
		r.cfg.PercentWeight*len(r.cfg.Percent.FindAllString(text, -1)) +
		r.cfg.NumberWeight*len(r.cfg.Number.FindAllString(text, -1))

	tier := TierPlain
	if score > 0 {
		tier = TierNumeric
	}
	if strings.Contains(strings.ToLower(text), "table") {
		score += r.cfg.TableBonus
		tier = TierTable
	}
	return score, tier
}

// Rank deduplicates the passages by exact text (first occurrence wins),
// scores each, sorts descending and truncates to topK. The sort is
// stable: passages with equal scores keep their retrieval order, which
// is itself a relevance signal from the backends. The same input always
// yields the same output.
func (r *Ranker) Rank(passages []string, topK int) []ScoredPassage {
	if topK <= 0 {
		topK = DefaultTopK
	}

	seen := make(map[string]struct{}, len(passages))
	scored := make([]ScoredPassage, 0, len(passages))
	for _, text := range passages {
		if _, ok := seen[text]; ok {
			continue
		}
		seen[text] = struct{}{}
		score, tier := r.Score(text)
		scored = append(scored, ScoredPassage{Text: text, Score: score, Tier: tier})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored
}
