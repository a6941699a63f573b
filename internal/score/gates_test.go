package score

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Koolhand111/eva-finance/internal/config"
	"github.com/Koolhand111/eva-finance/internal/domain"
)

func testScoringCfg() config.ScoringConfig {
	return config.ScoringConfig{
		GateIntent:      0.2,
		GateSuppression: 0.3,
		GateSpread:      0.1,
		BandHigh:        0.75,
		BandWatchlist:   0.4,
	}
}

func TestEvaluateGates_PassesWhenAboveAllThresholds(t *testing.T) {
	factors := domain.FactorScores{Intent: 0.5, Suppression: 0.5, Spread: 0.5}
	result := evaluateGates(factors, testScoringCfg())
	assert.True(t, result.Passed)
}

func TestEvaluateGates_FailsIntentFirst(t *testing.T) {
	factors := domain.FactorScores{Intent: 0.1, Suppression: 0.1, Spread: 0.05}
	result := evaluateGates(factors, testScoringCfg())
	assert.False(t, result.Passed)
	assert.Equal(t, domain.GateIntent, result.Failed)
}

func TestEvaluateGates_FailsSuppressionWhenIntentPasses(t *testing.T) {
	factors := domain.FactorScores{Intent: 0.5, Suppression: 0.1, Spread: 0.05}
	result := evaluateGates(factors, testScoringCfg())
	assert.False(t, result.Passed)
	assert.Equal(t, domain.GateSuppression, result.Failed)
}

func TestEvaluateGates_FailsSpreadLast(t *testing.T) {
	factors := domain.FactorScores{Intent: 0.5, Suppression: 0.5, Spread: 0.05}
	result := evaluateGates(factors, testScoringCfg())
	assert.False(t, result.Passed)
	assert.Equal(t, domain.GateSpread, result.Failed)
}

func TestEvaluateGates_ExactlyAtThresholdPasses(t *testing.T) {
	cfg := testScoringCfg()
	factors := domain.FactorScores{Intent: cfg.GateIntent, Suppression: 0.5, Spread: 0.5}
	result := evaluateGates(factors, cfg)
	assert.True(t, result.Passed, "gate comparison is strict '<', so a candidate exactly at threshold must pass")
}

func TestClassifyBand_ThresholdsAreInclusive(t *testing.T) {
	cfg := testScoringCfg()
	assert.Equal(t, domain.BandHigh, classifyBand(0.75, cfg))
	assert.Equal(t, domain.BandWatchlist, classifyBand(0.4, cfg))
	assert.Equal(t, domain.BandSuppressed, classifyBand(0.39, cfg))
}
