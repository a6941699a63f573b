package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Koolhand111/eva-finance/internal/domain"
)

func TestExtractHeuristic_DetectsBrandAndTag(t *testing.T) {
	vocab := DefaultVocabulary()
	result := extractHeuristic(vocab, "These Hoka shoes are so comfortable for running")

	assert.Contains(t, result.Brands, "Hoka")
	assert.Contains(t, result.Tags, "comfort")
	assert.Contains(t, result.Tags, "running")
	assert.Equal(t, domain.Positive, result.Sentiment)
}

func TestClassifySentiment_StrongPositiveRequiresTwoPositiveNoNegative(t *testing.T) {
	vocab := DefaultVocabulary()
	assert.Equal(t, domain.StrongPositive, classifySentiment(vocab, "love these, they are great"))
	assert.Equal(t, domain.Positive, classifySentiment(vocab, "love these, great fit, but broke after a month"))
	assert.Equal(t, domain.Neutral, classifySentiment(vocab, "just bought new shoes"))
}

func TestClassifySentiment_StrongNegativeRequiresTwoNegativeNoPositive(t *testing.T) {
	vocab := DefaultVocabulary()
	assert.Equal(t, domain.StrongNegative, classifySentiment(vocab, "terrible, awful quality"))
	assert.Equal(t, domain.Negative, classifySentiment(vocab, "terrible, worst fit ever, but comfortable enough"))
}

func TestClassifyIntent_PrecedenceComplaintBeatsPurchase(t *testing.T) {
	vocab := DefaultVocabulary()
	intent := classifyIntent(vocab, "bought these but asked for a refund, never again")
	assert.Equal(t, domain.IntentComplaint, intent)
}

func TestClassifyIntent_BuyThenOwnThenRecommend(t *testing.T) {
	vocab := DefaultVocabulary()
	assert.Equal(t, domain.IntentBuy, classifyIntent(vocab, "just ordered a new pair"))
	assert.Equal(t, domain.IntentOwn, classifyIntent(vocab, "been wearing these for months"))
	assert.Equal(t, domain.IntentRecommend, classifyIntent(vocab, "you should try these out"))
	assert.Equal(t, domain.IntentNone, classifyIntent(vocab, "just a regular day"))
}

func TestEnforceMultiBrandComparative_TagsSwitchAndSetsIntent(t *testing.T) {
	vocab := DefaultVocabulary()
	result := extractHeuristic(vocab, "switched from Nike instead of Adidas, much better")

	assert.Contains(t, result.Brands, "Nike")
	assert.Contains(t, result.Brands, "Adidas")
	assert.Contains(t, result.Tags, "brand-switch")
	assert.Equal(t, domain.IntentOwn, result.Intent)
}

func TestEnforceMultiBrandComparative_PurchaseVerbSetsBuyIntent(t *testing.T) {
	vocab := DefaultVocabulary()
	result := extractHeuristic(vocab, "switched from Nike instead of Adidas and grabbed a pair yesterday")

	assert.Equal(t, domain.IntentBuy, result.Intent)
}

func TestEnforceMultiBrandComparative_NoOpWithSingleBrand(t *testing.T) {
	vocab := DefaultVocabulary()
	result := heuristicResult{Brands: []string{"Nike"}, Intent: domain.IntentNone}
	enforceMultiBrandComparative(vocab, "switched from my old nike shoes", &result)

	assert.NotContains(t, result.Tags, "brand-switch")
	assert.Equal(t, domain.IntentNone, result.Intent)
}
