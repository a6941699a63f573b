// Package score implements the confidence scorer (spec.md §4.5): five
// factor scores, hard gates, band classification, and the optional
// external-search cross-validation adjustment.
package score

import (
	"math"

	"github.com/Koolhand111/eva-finance/internal/domain"
)

// computeFactors derives the five [0,1] factor scores from one
// candidate-signal projection row. Each closed form is monotonic in its
// driving statistic and bounded to [0,1]; the exact shape is a design
// choice (documented in DESIGN.md) since spec.md leaves it to the
// implementer beyond the worked examples.
func computeFactors(c domain.CandidateSignal) domain.FactorScores {
	return domain.FactorScores{
		Acceleration: accelerationFactor(c.YesterdayDelta),
		Intent:       intentFactor(c.ActionIntentRate, c.EvalIntentRate),
		Spread:       spreadFactor(c.DistinctSources, c.DistinctPlatforms),
		Baseline:     baselineFactor(c.MessageCount, c.HistoricalDailyCounts),
		Suppression:  suppressionFactor(c.MemeRisk),
	}
}

// accelerationFactor maps day-over-day growth onto [0,1] via a centered
// tanh: 0% growth sits at 0.5, large positive growth saturates toward 1,
// a total drop-off saturates toward 0.
func accelerationFactor(yesterdayDelta float64) float64 {
	return clamp01(0.5 + 0.5*math.Tanh(yesterdayDelta))
}

// intentFactor rewards action-oriented language (buy/own/recommendation)
// and discounts for purely evaluative chatter riding along with it.
func intentFactor(actionRate, evalRate float64) float64 {
	return clamp01(actionRate - 0.5*evalRate)
}

// spreadFactor measures breadth across distinct sources and distinct
// platforms, independent of raw volume, taking whichever axis is wider:
// four distinct sources on one platform scores the same as one source
// spread across four platforms, each saturating at 1 by a count of 4.
func spreadFactor(distinctSources, distinctPlatforms int) float64 {
	bySources := clamp01(float64(distinctSources-1) / 3)
	byPlatforms := clamp01(float64(distinctPlatforms-1) / 3)
	return math.Max(bySources, byPlatforms)
}

// baselineFactor compares today's count against the historical mean and
// standard deviation for the same (brand, tag), via a centered tanh of the
// z-score — today exactly at the historical mean scores 0.5.
func baselineFactor(today int, history []int) float64 {
	if len(history) < 2 {
		return 0.5
	}
	mean, stddev := meanStddev(history)
	if stddev == 0 {
		if float64(today) > mean {
			return 1
		}
		return 0.5
	}
	z := (float64(today) - mean) / stddev
	return clamp01(0.5 + 0.5*math.Tanh(z/2))
}

// suppressionFactor is the complement of meme risk: noisy, low-conviction
// evaluative chatter (high meme risk) suppresses confidence.
func suppressionFactor(memeRisk float64) float64 {
	return clamp01(1 - memeRisk)
}

func meanStddev(xs []int) (mean, stddev float64) {
	var sum float64
	for _, x := range xs {
		sum += float64(x)
	}
	mean = sum / float64(len(xs))

	var variance float64
	for _, x := range xs {
		d := float64(x) - mean
		variance += d * d
	}
	variance /= float64(len(xs))
	stddev = math.Sqrt(variance)
	return mean, stddev
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
