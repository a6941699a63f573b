package extract

import (
	"strings"

	"github.com/Koolhand111/eva-finance/internal/domain"
)

// heuristicResult is the deterministic fallback's output before it is
// folded into a ProcessedPost; kept separate so the multi-brand
// comparative rule can inspect and override intent/tags before assembly.
type heuristicResult struct {
	Brands    []string
	Tags      []string
	Sentiment domain.Sentiment
	Intent    domain.Intent
}

// extractHeuristic implements spec.md §4.3 step 2/3: pure lexicon matching,
// no network calls, guaranteed to return a result (possibly with every
// field empty/none).
func extractHeuristic(vocab Vocabulary, text string) heuristicResult {
	lower := strings.ToLower(text)

	result := heuristicResult{
		Brands:    vocab.detectBrands(lower),
		Tags:      vocab.detectTags(lower),
		Sentiment: classifySentiment(vocab, lower),
		Intent:    classifyIntent(vocab, lower),
	}

	enforceMultiBrandComparative(vocab, lower, &result)
	return result
}

func classifySentiment(vocab Vocabulary, lowerText string) domain.Sentiment {
	pos := countMatches(lowerText, vocab.PositiveWords)
	neg := countMatches(lowerText, vocab.NegativeWords)

	switch {
	case pos >= 2 && neg == 0:
		return domain.StrongPositive
	case pos > neg:
		return domain.Positive
	case neg >= 2 && pos == 0:
		return domain.StrongNegative
	case neg > pos:
		return domain.Negative
	default:
		return domain.Neutral
	}
}

func classifyIntent(vocab Vocabulary, lowerText string) domain.Intent {
	switch {
	case containsAny(lowerText, vocab.ComplaintCues):
		return domain.IntentComplaint
	case containsAny(lowerText, vocab.PurchaseVerbs):
		return domain.IntentBuy
	case containsAny(lowerText, vocab.OwnershipVerbs):
		return domain.IntentOwn
	case containsAny(lowerText, vocab.RecommendationCues):
		return domain.IntentRecommend
	default:
		return domain.IntentNone
	}
}

func countMatches(lowerText string, words []string) int {
	n := 0
	for _, w := range words {
		if strings.Contains(lowerText, w) {
			n++
		}
	}
	return n
}

// enforceMultiBrandComparative implements spec.md §4.3 step 3: when two or
// more distinct brands appear alongside a switch cue, brand-switch MUST be
// tagged and intent MUST be own (or buy if a purchase verb dominates).
func enforceMultiBrandComparative(vocab Vocabulary, lowerText string, result *heuristicResult) {
	if len(result.Brands) < 2 || !containsAny(lowerText, vocab.SwitchCues) {
		return
	}

	if !hasTag(result.Tags, "brand-switch") {
		result.Tags = append(result.Tags, "brand-switch")
	}

	if containsAny(lowerText, vocab.PurchaseVerbs) {
		result.Intent = domain.IntentBuy
	} else {
		result.Intent = domain.IntentOwn
	}
}

func hasTag(tags []string, want string) bool {
	for _, t := range tags {
		if t == want {
			return true
		}
	}
	return false
}
