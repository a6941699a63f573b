package score

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Koolhand111/eva-finance/internal/domain"
)

func TestAccelerationFactor_ZeroGrowthIsMidpoint(t *testing.T) {
	assert.InDelta(t, 0.5, accelerationFactor(0), 1e-9)
	assert.Greater(t, accelerationFactor(2), 0.5)
	assert.Less(t, accelerationFactor(-2), 0.5)
}

func TestIntentFactor_DiscountsForEvaluativeChatter(t *testing.T) {
	assert.InDelta(t, 0.8, intentFactor(0.8, 0), 1e-9)
	assert.InDelta(t, 0.3, intentFactor(0.8, 1.0), 1e-9)
	assert.Equal(t, 0.0, intentFactor(0, 1.0))
}

func TestSpreadFactor_MonotonicInDistinctPlatforms(t *testing.T) {
	assert.Equal(t, 0.0, spreadFactor(0, 0))
	assert.InDelta(t, 0.6667, spreadFactor(0, 3), 0.001)
	assert.Greater(t, spreadFactor(0, 5), spreadFactor(0, 3))
}

func TestSpreadFactor_TakesWiderOfSourcesOrPlatforms(t *testing.T) {
	assert.InDelta(t, 0.6667, spreadFactor(3, 1), 0.001)
	assert.Equal(t, spreadFactor(3, 1), spreadFactor(1, 3))
	assert.Equal(t, 1.0, spreadFactor(10, 1))
}

func TestBaselineFactor_FewerThanTwoHistoricalPointsIsMidpoint(t *testing.T) {
	assert.InDelta(t, 0.5, baselineFactor(10, nil), 1e-9)
	assert.InDelta(t, 0.5, baselineFactor(10, []int{5}), 1e-9)
}

func TestBaselineFactor_ZeroStddevAboveMeanSaturates(t *testing.T) {
	assert.Equal(t, 1.0, baselineFactor(10, []int{5, 5, 5}))
	assert.InDelta(t, 0.5, baselineFactor(5, []int{5, 5, 5}), 1e-9)
}

func TestBaselineFactor_AboveMeanScoresAboveMidpoint(t *testing.T) {
	above := baselineFactor(20, []int{5, 6, 7, 8})
	assert.Greater(t, above, 0.5)
}

func TestSuppressionFactor_IsComplementOfMemeRisk(t *testing.T) {
	assert.Equal(t, 1.0, suppressionFactor(0))
	assert.Equal(t, 0.0, suppressionFactor(1))
	assert.InDelta(t, 0.7, suppressionFactor(0.3), 1e-9)
}

func TestComputeFactors_AssemblesAllFive(t *testing.T) {
	c := domain.CandidateSignal{
		YesterdayDelta:        1.0,
		MemeRisk:              0.2,
		HistoricalDailyCounts: []int{5, 6, 7, 8},
	}
	c.MessageCount = 20
	c.DistinctPlatforms = 3
	c.DistinctSources = 1

	factors := computeFactors(c)

	assert.Greater(t, factors.Acceleration, 0.5)
	assert.InDelta(t, 0.8, factors.Suppression, 1e-9)
	assert.InDelta(t, 0.6667, factors.Spread, 0.001)
}
