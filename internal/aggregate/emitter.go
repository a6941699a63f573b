// Package aggregate implements the trigger emitter (spec.md §4.4): it
// turns the daily projections into append-only SignalEvents, and owns the
// tag-level BehaviorState transitions those events report on.
package aggregate

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/Koolhand111/eva-finance/internal/domain"
	"github.com/Koolhand111/eva-finance/internal/store"
)

// elevationGrowthThreshold is the day-over-day growth ratio at which a
// tag's BehaviorState latches into ELEVATED. Chosen to match the "five
// posts... spread rises" worked example in spec.md §8: a tag whose message
// count has at least doubled since yesterday (or that had no messages
// yesterday) is elevated.
const elevationGrowthThreshold = 1.0

// shareChangeThresholdPct is spec.md §4.4's "at least 5 percentage points"
// BRAND_DIVERGENCE trigger.
const shareChangeThresholdPct = 5.0

// criticalZScoreThreshold is spec.md §4.4's severity cutoff.
const criticalZScoreThreshold = 2.0

// Emitter computes tag elevation and brand-divergence triggers for one day
// and emits the corresponding SignalEvents, deduped by the store's unique
// (kind, tag, brand, day) constraint.
type Emitter struct {
	projections store.Projections
	behavior    store.BehaviorStateStore
	events      store.SignalEventStore
	log         zerolog.Logger
}

// New constructs an Emitter.
func New(projections store.Projections, behavior store.BehaviorStateStore, events store.SignalEventStore, log zerolog.Logger) *Emitter {
	return &Emitter{projections: projections, behavior: behavior, events: events, log: log}
}

// RunDay evaluates both triggers for day and returns the number of events
// emitted (duplicates are not counted as new emissions).
func (e *Emitter) RunDay(ctx context.Context, day time.Time) (int, error) {
	day = day.UTC().Truncate(24 * time.Hour)

	emitted := 0

	n, err := e.runTagElevation(ctx, day)
	if err != nil {
		return emitted, err
	}
	emitted += n

	n, err = e.runBrandDivergence(ctx, day)
	if err != nil {
		return emitted, err
	}
	emitted += n

	return emitted, nil
}

// runTagElevation aggregates today's per-tag message volume across all
// brands, advances BehaviorState for tags whose volume has surged, and
// emits TAG_ELEVATED for every tag currently ELEVATED with recent activity.
func (e *Emitter) runTagElevation(ctx context.Context, day time.Time) (int, error) {
	today, err := e.projections.DailyBrandTagSummary(ctx, day)
	if err != nil {
		return 0, domain.NewStoreTransient("aggregate", "load today's brand-tag summary", err)
	}
	yesterday, err := e.projections.DailyBrandTagSummary(ctx, day.AddDate(0, 0, -1))
	if err != nil {
		return 0, domain.NewStoreTransient("aggregate", "load yesterday's brand-tag summary", err)
	}

	todayByTag := sumByTag(today)
	yesterdayByTag := sumByTag(yesterday)

	for tag, count := range todayByTag {
		if err := e.advanceTagState(ctx, day, tag, count, yesterdayByTag[tag]); err != nil {
			e.log.Error().Err(err).Str("tag", tag).Msg("advancing tag behavior state failed")
		}
	}

	elevated, err := e.behavior.ListElevatedSince(ctx, day.AddDate(0, 0, -1))
	if err != nil {
		return 0, domain.NewStoreTransient("aggregate", "list elevated tags", err)
	}

	emitted := 0
	for _, bs := range elevated {
		result, err := e.events.Emit(ctx, domain.SignalEvent{
			Kind:     domain.EventTagElevated,
			Tag:      bs.Tag,
			Day:      day,
			Severity: domain.SeverityInfo,
			Payload: map[string]interface{}{
				"confidence": bs.Confidence,
			},
		})
		if err != nil {
			e.log.Error().Err(err).Str("tag", bs.Tag).Msg("emit TAG_ELEVATED failed")
			continue
		}
		if !result.Duplicate {
			emitted++
		}
	}
	return emitted, nil
}

func (e *Emitter) advanceTagState(ctx context.Context, day time.Time, tag string, todayCount, yesterdayCount int) error {
	existing, err := e.behavior.Get(ctx, tag)
	if err != nil {
		return domain.NewStoreTransient("aggregate", "get behavior state", err)
	}

	state := domain.StateNormal
	confidence := 0.0
	if existing != nil {
		state = existing.State
		confidence = existing.Confidence
	}

	growth := growthRatio(todayCount, yesterdayCount)
	if growth >= elevationGrowthThreshold {
		state = domain.StateElevated
		confidence = clamp01Growth(growth)
	}

	now := day.Add(23*time.Hour + 59*time.Minute)
	firstSeen := now
	if existing != nil {
		firstSeen = existing.FirstSeen
	}

	return e.behavior.Upsert(ctx, domain.BehaviorState{
		Tag:        tag,
		State:      state,
		Confidence: confidence,
		FirstSeen:  firstSeen,
		LastSeen:   now,
	})
}

// runBrandDivergence emits BRAND_DIVERGENCE for every (brand, tag) whose
// share-of-voice moved by at least shareChangeThresholdPct percentage
// points since yesterday.
func (e *Emitter) runBrandDivergence(ctx context.Context, day time.Time) (int, error) {
	today, err := e.projections.DailyBrandTagSummary(ctx, day)
	if err != nil {
		return 0, domain.NewStoreTransient("aggregate", "load today's brand-tag summary", err)
	}

	tags := distinctTags(today)
	emitted := 0

	for _, tag := range tags {
		changes, err := e.projections.ShareOfVoiceChange(ctx, tag, day)
		if err != nil {
			e.log.Error().Err(err).Str("tag", tag).Msg("share-of-voice computation failed")
			continue
		}

		for _, c := range changes {
			if absFloat(c.DeltaPct) < shareChangeThresholdPct {
				continue
			}

			severity := domain.SeverityWarning
			if absFloat(c.ZScore) > criticalZScoreThreshold {
				severity = domain.SeverityCritical
			}

			result, err := e.events.Emit(ctx, domain.SignalEvent{
				Kind:     domain.EventBrandDivergence,
				Brand:    c.Brand,
				Tag:      tag,
				Day:      day,
				Severity: severity,
				Payload: map[string]interface{}{
					"share_pct_today": c.SharePctToday,
					"share_pct_prior": c.SharePctPrior,
					"delta_pct":       c.DeltaPct,
					"z_score":         c.ZScore,
				},
			})
			if err != nil {
				e.log.Error().Err(err).Str("brand", c.Brand).Str("tag", tag).Msg("emit BRAND_DIVERGENCE failed")
				continue
			}
			if !result.Duplicate {
				emitted++
			}
		}
	}
	return emitted, nil
}

func sumByTag(rows []domain.DailyBrandTag) map[string]int {
	out := make(map[string]int, len(rows))
	for _, r := range rows {
		out[r.Tag] += r.MessageCount
	}
	return out
}

func distinctTags(rows []domain.DailyBrandTag) []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range rows {
		if !seen[r.Tag] {
			seen[r.Tag] = true
			out = append(out, r.Tag)
		}
	}
	return out
}

func growthRatio(today, yesterday int) float64 {
	if yesterday == 0 {
		if today == 0 {
			return 0
		}
		return 1.0
	}
	return (float64(today) - float64(yesterday)) / float64(yesterday)
}

func clamp01Growth(growth float64) float64 {
	c := 0.5 + growth/4
	if c > 1 {
		return 1
	}
	if c < 0 {
		return 0
	}
	return c
}

func absFloat(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
