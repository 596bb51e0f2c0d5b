// Package matcher implements the semantic matcher (spec.md §4.D): given a
// query and a named index, it returns up to K candidates ranked by a
// hybrid score combining semantic similarity, token-Jaccard overlap, and
// containment. The matcher is pure — it neither persists nor logs.
package matcher

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/Aviraj-Roy/billverify/internal/config"
	"github.com/Aviraj-Roy/billverify/pkg/catalog"
	"github.com/Aviraj-Roy/billverify/pkg/embedding"
	"github.com/Aviraj-Roy/billverify/pkg/model"
	"github.com/Aviraj-Roy/billverify/pkg/normalize"
)

var tokenRe = regexp.MustCompile(`[a-z0-9]+`)

// stopwords are removed before computing token_overlap / containment
// (spec.md §4.D).
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "of": {}, "for": {}, "and": {}, "or": {},
	"to": {}, "in": {}, "on": {}, "with": {}, "per": {}, "is": {}, "at": {},
	"by": {}, "from": {}, "as": {},
}

// Tokenize splits normalized text into content-word tokens: stopwords,
// pure-number tokens, and tokens shorter than 2 characters are discarded.
func Tokenize(normalizedText string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, tok := range tokenRe.FindAllString(normalizedText, -1) {
		if len(tok) < 2 {
			continue
		}
		if _, isStop := stopwords[tok]; isStop {
			continue
		}
		if _, err := strconv.ParseFloat(tok, 64); err == nil {
			continue
		}
		tokens[tok] = struct{}{}
	}
	return tokens
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	intersection := 0
	for t := range a {
		if _, ok := b[t]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func containment(query, candidate map[string]struct{}) float64 {
	if len(candidate) == 0 {
		return 0
	}
	intersection := 0
	for t := range query {
		if _, ok := candidate[t]; ok {
			intersection++
		}
	}
	return float64(intersection) / float64(len(candidate))
}

// Matcher computes hybrid scores using a fixed weighting.
type Matcher struct {
	cfg *config.MatcherConfig
}

func New(cfg *config.MatcherConfig) *Matcher {
	if cfg == nil {
		cfg = config.DefaultMatcherConfig()
	}
	return &Matcher{cfg: cfg}
}

// MatchItems scores queryText (already embedded as queryVector) against
// every candidate item, and returns up to TopK candidates sorted
// descending by hybrid score.
func (m *Matcher) MatchItems(queryText string, queryVector embedding.Vector, candidates []catalog.ItemNode) []model.CandidateMatch {
	queryNorm := normalize.WithMedicalCore(queryText)
	queryTokens := Tokenize(queryNorm)

	results := make([]model.CandidateMatch, 0, len(candidates))
	for i := range candidates {
		c := candidates[i]
		candidateTokens := Tokenize(c.NormalizedName)

		semantic := embedding.Dot(queryVector, c.Vector)
		overlap := jaccard(queryTokens, candidateTokens)
		contain := containment(queryTokens, candidateTokens)
		hybrid := m.cfg.WeightSemantic*semantic + m.cfg.WeightTokenOverlap*overlap + m.cfg.WeightContainment*contain

		item := c.Item
		results = append(results, model.CandidateMatch{
			ItemName:     c.Name,
			Semantic:     semantic,
			TokenOverlap: overlap,
			Containment:  contain,
			Hybrid:       hybrid,
			TieUpItem:    &item,
			IsBundleOnly: item.Type == model.TieUpItemBundle,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Hybrid > results[j].Hybrid
	})

	k := m.cfg.TopK
	if k <= 0 || k > len(results) {
		k = len(results)
	}
	return results[:k]
}

// BestCandidate returns the single highest-hybrid-score candidate from a
// MatchItems call, or ok=false when there were none.
func BestCandidate(candidates []model.CandidateMatch) (model.CandidateMatch, bool) {
	if len(candidates) == 0 {
		return model.CandidateMatch{}, false
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Hybrid > best.Hybrid {
			best = c
		}
	}
	return best, true
}

// NormalizedTokenString is a debug helper exposing the token set as a
// sorted, space-joined string (used by the debug render view, §4.K).
func NormalizedTokenString(tokens map[string]struct{}) string {
	list := make([]string, 0, len(tokens))
	for t := range tokens {
		list = append(list, t)
	}
	sort.Strings(list)
	return strings.Join(list, " ")
}
