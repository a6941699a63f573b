package validate

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/Koolhand111/eva-finance/internal/config"
	"github.com/Koolhand111/eva-finance/internal/domain"
)

func pointsWithInterest(prior, recent float64) []searchInterestPoint {
	points := make([]searchInterestPoint, 0, 90)
	for i := 0; i < 60; i++ {
		points = append(points, searchInterestPoint{Interest: prior})
	}
	for i := 0; i < 30; i++ {
		points = append(points, searchInterestPoint{Interest: recent})
	}
	return points
}

func newTestValidator() *SearchValidator {
	return NewSearchValidator(config.TrendsConfig{Enabled: true}, zerolog.Nop())
}

func TestClassify_TooFewPointsIsPending(t *testing.T) {
	v := newTestValidator()
	result := v.classify("Acme", pointsWithInterest(0.3, 0.3)[:89])
	assert.Equal(t, domain.ValidationPending, result.ValidationStatus)
}

func TestClassify_RisingAndValidates(t *testing.T) {
	v := newTestValidator()
	result := v.classify("Acme", pointsWithInterest(0.2, 0.4))

	assert.Equal(t, domain.TrendRising, result.TrendDirection)
	assert.True(t, result.ValidatesSignal)
	assert.InDelta(t, 0.06, result.ConfidenceBoost, 0.001)
	assert.Equal(t, domain.ValidationCompleted, result.ValidationStatus)
}

func TestClassify_FallingAlwaysPenalizes(t *testing.T) {
	v := newTestValidator()
	result := v.classify("Acme", pointsWithInterest(0.5, 0.3))

	assert.Equal(t, domain.TrendFalling, result.TrendDirection)
	assert.False(t, result.ValidatesSignal)
	assert.InDelta(t, -0.075, result.ConfidenceBoost, 1e-9)
}

func TestClassify_StableHighInterestValidates(t *testing.T) {
	v := newTestValidator()
	result := v.classify("Acme", pointsWithInterest(0.5, 0.55))

	assert.Equal(t, domain.TrendStable, result.TrendDirection)
	assert.True(t, result.ValidatesSignal)
	assert.Greater(t, result.ConfidenceBoost, 0.0)
}

func TestClassify_StableLowInterestDoesNotValidate(t *testing.T) {
	v := newTestValidator()
	result := v.classify("Acme", pointsWithInterest(0.3, 0.3))

	assert.Equal(t, domain.TrendStable, result.TrendDirection)
	assert.False(t, result.ValidatesSignal)
	assert.Equal(t, 0.0, result.ConfidenceBoost)
}

func TestClassify_ZeroPriorMeanIsUnknownDirection(t *testing.T) {
	v := newTestValidator()
	result := v.classify("Acme", pointsWithInterest(0, 0.1))
	assert.Equal(t, domain.TrendUnknown, result.TrendDirection)
}

func TestClassify_BoostIsCappedAtFifteenPercent(t *testing.T) {
	v := newTestValidator()
	result := v.classify("Acme", pointsWithInterest(0.2, 1.0))
	assert.LessOrEqual(t, result.ConfidenceBoost, 0.15)
}

func TestMeanInterest_EmptyIsZero(t *testing.T) {
	assert.Equal(t, 0.0, meanInterest(nil))
}

func TestMeanInterest_Average(t *testing.T) {
	points := []searchInterestPoint{{Interest: 0.2}, {Interest: 0.4}, {Interest: 0.6}}
	assert.InDelta(t, 0.4, meanInterest(points), 1e-9)
}

func TestPendingResult_SetsUnknownDirectionAndPendingStatus(t *testing.T) {
	result := pendingResult("Acme")
	assert.Equal(t, domain.ValidationPending, result.ValidationStatus)
	assert.Equal(t, domain.TrendUnknown, result.TrendDirection)
	assert.Equal(t, "Acme", result.Brand)
}
