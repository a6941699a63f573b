package score

import (
	"fmt"

	"github.com/Koolhand111/eva-finance/internal/config"
	"github.com/Koolhand111/eva-finance/internal/domain"
)

// gateResult mirrors the teacher's hard-entry-gate evaluation shape: a
// pass/fail per named gate plus the reason for any failure, so the scorer
// can report exactly which gate suppressed a candidate.
type gateResult struct {
	Passed  bool
	Reasons map[string]string
	Failed  domain.GateFailureReason
}

// evaluateGates applies the three hard gates of spec.md §4.5 in a fixed
// order (intent, suppression, spread) and records the first one that
// fails. A candidate exactly at a threshold passes — the gate is "<", not
// "<=".
func evaluateGates(factors domain.FactorScores, cfg config.ScoringConfig) gateResult {
	result := gateResult{Passed: true, Reasons: map[string]string{}}

	if factors.Intent < cfg.GateIntent {
		result.Passed = false
		result.Failed = domain.GateIntent
		result.Reasons["intent"] = fmt.Sprintf("intent %.2f < %.2f minimum", factors.Intent, cfg.GateIntent)
		return result
	}
	if factors.Suppression < cfg.GateSuppression {
		result.Passed = false
		result.Failed = domain.GateSuppression
		result.Reasons["suppression"] = fmt.Sprintf("suppression %.2f < %.2f minimum", factors.Suppression, cfg.GateSuppression)
		return result
	}
	if factors.Spread < cfg.GateSpread {
		result.Passed = false
		result.Failed = domain.GateSpread
		result.Reasons["spread"] = fmt.Sprintf("spread %.2f < %.2f minimum", factors.Spread, cfg.GateSpread)
		return result
	}

	return result
}

// classifyBand applies the band thresholds; promotion uses ">=", matching
// spec.md §8's "exactly BAND_HIGH classifies as HIGH" edge case.
func classifyBand(final float64, cfg config.ScoringConfig) domain.Band {
	switch {
	case final >= cfg.BandHigh:
		return domain.BandHigh
	case final >= cfg.BandWatchlist:
		return domain.BandWatchlist
	default:
		return domain.BandSuppressed
	}
}
