package score

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/Koolhand111/eva-finance/internal/config"
	"github.com/Koolhand111/eva-finance/internal/domain"
	"github.com/Koolhand111/eva-finance/internal/metrics"
	"github.com/Koolhand111/eva-finance/internal/store"
	"github.com/Koolhand111/eva-finance/internal/validate"
)

// Scorer runs the confidence-scoring pass over one day's candidate-signal
// projection (spec.md §4.5).
type Scorer struct {
	cfg         config.ScoringConfig
	projections store.Projections
	scores      store.ConfidenceScoreStore
	events      store.SignalEventStore
	validator   validate.Validator
	metrics     *metrics.Registry
	log         zerolog.Logger
}

// SetMetrics attaches a Prometheus registry; nil (the default) disables
// instrumentation.
func (s *Scorer) SetMetrics(m *metrics.Registry) { s.metrics = m }

// New constructs a Scorer. RunDay calls validator only when trends are
// enabled (TRENDS_ENABLED) and a gate-passing candidate's final score is at
// least the minimum validation confidence; any status other than
// ValidationCompleted leaves the score unadjusted.
func New(cfg config.ScoringConfig, projections store.Projections, scores store.ConfidenceScoreStore, events store.SignalEventStore, validator validate.Validator, log zerolog.Logger) *Scorer {
	return &Scorer{cfg: cfg, projections: projections, scores: scores, events: events, validator: validator, log: log}
}

// RunDay scores every (brand, tag) candidate for day, persists the result,
// and emits WATCHLIST_WARM / RECOMMENDATION_ELIGIBLE on band transitions.
// It returns the number of candidates scored.
func (s *Scorer) RunDay(ctx context.Context, day time.Time, minValidationConf float64, trendsCfg config.TrendsConfig) (int, error) {
	day = day.UTC().Truncate(24 * time.Hour)

	candidates, err := s.projections.CandidateSignals(ctx, day, s.cfg.LookbackDays)
	if err != nil {
		return 0, domain.NewStoreTransient("score", "load candidate signals", err)
	}

	for _, c := range candidates {
		if err := s.scoreOne(ctx, day, c, minValidationConf, trendsCfg); err != nil {
			s.log.Error().Err(err).Str("brand", c.Brand).Str("tag", c.Tag).Msg("scoring candidate failed")
		}
	}
	return len(candidates), nil
}

func (s *Scorer) scoreOne(ctx context.Context, day time.Time, c domain.CandidateSignal, minValidationConf float64, trendsCfg config.TrendsConfig) error {
	prior, err := s.scores.Get(ctx, day, c.Brand, c.Tag, s.cfg.ScoringVersion)
	if err != nil {
		return domain.NewStoreTransient("score", "load prior confidence score", err)
	}

	factors := computeFactors(c)
	final := weightedFinal(factors, s.cfg)

	gate := evaluateGates(factors, s.cfg)
	band := domain.BandSuppressed
	if gate.Passed {
		band = classifyBand(final, s.cfg)
	} else {
		final = 0
		if s.metrics != nil {
			s.metrics.GateFailures.WithLabelValues(string(gate.Failed)).Inc()
		}
	}

	details := map[string]interface{}{
		"message_count":      c.MessageCount,
		"distinct_sources":   c.DistinctSources,
		"distinct_platforms": c.DistinctPlatforms,
		"yesterday_delta":    c.YesterdayDelta,
		"meme_risk":          c.MemeRisk,
	}
	if !gate.Passed {
		details["gate_reasons"] = gate.Reasons
	}

	if gate.Passed && trendsCfg.Enabled && final >= minValidationConf {
		validation := s.validator.Validate(ctx, c.Brand)
		if validation.ValidationStatus == domain.ValidationCompleted {
			final = clamp01(final + validation.ConfidenceBoost)
			band = classifyBand(final, s.cfg)
			details["validation"] = "completed"
			details["validation_boost"] = validation.ConfidenceBoost
			details["validation_direction"] = string(validation.TrendDirection)
		} else {
			details["validation"] = "pending"
		}
	}

	score := domain.ConfidenceScore{
		Day:              day,
		Brand:            c.Brand,
		Tag:              c.Tag,
		ScoringVersion:   s.cfg.ScoringVersion,
		Factors:          factors,
		Final:            final,
		Band:             band,
		GateFailedReason: gate.Failed,
		Details:          details,
	}
	if err := s.scores.Upsert(ctx, score); err != nil {
		return domain.NewStoreTransient("score", "upsert confidence score", err)
	}
	if s.metrics != nil {
		s.metrics.BandCounts.WithLabelValues(string(band)).Inc()
	}

	return s.emitTransitionEvents(ctx, day, c, prior, band)
}

// emitTransitionEvents fires WATCHLIST_WARM / RECOMMENDATION_ELIGIBLE only
// when the band actually changed from the previous persisted score for
// this (day, brand, tag) — a re-run that reproduces the same HIGH band
// must not re-emit the event (spec.md's idempotent-upsert invariant,
// mirrored onto event emission via SignalEventStore.Emit's own unique-key
// dedupe as a second line of defense).
func (s *Scorer) emitTransitionEvents(ctx context.Context, day time.Time, c domain.CandidateSignal, prior *domain.ConfidenceScore, band domain.Band) error {
	priorBand := domain.Band("")
	if prior != nil {
		priorBand = prior.Band
	}
	if priorBand == band {
		return nil
	}

	var kind domain.EventKind
	var severity domain.Severity
	switch band {
	case domain.BandWatchlist:
		kind = domain.EventWatchlistWarm
		severity = domain.SeverityInfo
	case domain.BandHigh:
		kind = domain.EventRecommendationEligible
		severity = domain.SeverityWarning
	default:
		return nil
	}

	_, err := s.events.Emit(ctx, domain.SignalEvent{
		Kind:  kind,
		Tag:   c.Tag,
		Brand: c.Brand,
		Day:   day,
		Severity: severity,
		Payload: map[string]interface{}{
			"message_count": c.MessageCount,
		},
	})
	if err != nil {
		return domain.NewStoreTransient("score", "emit band transition event", err)
	}
	return nil
}

// weightedFinal implements spec.md §4.5's final-score formula.
func weightedFinal(f domain.FactorScores, cfg config.ScoringConfig) float64 {
	final := cfg.WeightAcceleration*f.Acceleration +
		cfg.WeightIntent*f.Intent +
		cfg.WeightSpread*f.Spread +
		cfg.WeightBaseline*f.Baseline +
		cfg.WeightSuppression*f.Suppression
	return clamp01(final)
}
