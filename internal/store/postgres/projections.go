package postgres

import (
	"context"
	"math"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Koolhand111/eva-finance/internal/domain"
	"github.com/Koolhand111/eva-finance/internal/store"
)

type projections struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewProjections creates the PostgreSQL-backed read-only projections of
// spec.md §3. Every query here is re-derivable from raw_posts +
// processed_posts; no projection result is itself persisted as a source
// of truth.
func NewProjections(db *sqlx.DB, timeout time.Duration) store.Projections {
	return &projections{db: db, timeout: timeout}
}

// dailyBrandTagQuery unnests each processed post's brand/tag sets into one
// row per (brand, tag) it contributed to, then aggregates per day. A post
// with brands {Nike, Hoka} and tags {comfort, running} contributes to all
// four (brand, tag) pairs — this is deliberate: the candidate-signal
// projection is defined over (day, brand, tag) tuples, and a
// multi-brand-comparative post is evidence for every brand it names.
const dailyBrandTagQuery = `
	WITH exploded AS (
		SELECT
			rp.occurred_at::date AS day,
			rp.source AS source,
			COALESCE(rp.meta->>'community', rp.source) AS platform,
			b AS brand,
			t AS tag,
			pp.intent AS intent
		FROM processed_posts pp
		JOIN raw_posts rp ON rp.id = pp.raw_id
		CROSS JOIN LATERAL unnest(pp.brands) AS b
		CROSS JOIN LATERAL unnest(pp.tags) AS t
		WHERE rp.occurred_at::date = $1
	)
	SELECT
		day, brand, tag,
		count(*) AS message_count,
		count(DISTINCT source) AS distinct_sources,
		count(DISTINCT platform) AS distinct_platforms,
		avg(CASE WHEN intent IN ('buy','own','recommendation') THEN 1.0 ELSE 0.0 END) AS action_intent_rate,
		avg(CASE WHEN intent = 'recommendation' THEN 1.0 ELSE 0.0 END) AS eval_intent_rate
	FROM exploded
	GROUP BY day, brand, tag`

type dailyBrandTagRow struct {
	Day               time.Time `db:"day"`
	Brand             string    `db:"brand"`
	Tag               string    `db:"tag"`
	MessageCount      int       `db:"message_count"`
	DistinctSources   int       `db:"distinct_sources"`
	DistinctPlatforms int       `db:"distinct_platforms"`
	ActionIntentRate  float64   `db:"action_intent_rate"`
	EvalIntentRate    float64   `db:"eval_intent_rate"`
}

func (r dailyBrandTagRow) toDomain() domain.DailyBrandTag {
	return domain.DailyBrandTag{
		Day:               r.Day,
		Brand:             r.Brand,
		Tag:               r.Tag,
		MessageCount:      r.MessageCount,
		DistinctSources:   r.DistinctSources,
		DistinctPlatforms: r.DistinctPlatforms,
		ActionIntentRate:  r.ActionIntentRate,
		EvalIntentRate:    r.EvalIntentRate,
	}
}

func (p *projections) DailyBrandTagSummary(ctx context.Context, day time.Time) ([]domain.DailyBrandTag, error) {
	ctx, cancel := withTimeout(ctx, p.timeout)
	defer cancel()

	var rows []dailyBrandTagRow
	if err := p.db.SelectContext(ctx, &rows, dailyBrandTagQuery, day); err != nil {
		return nil, wrapStoreErr("aggregation", "daily brand-tag summary", err)
	}
	out := make([]domain.DailyBrandTag, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

// CandidateSignals enriches each today row with yesterday's message count
// (for the scorer's acceleration factor) and the historical daily counts
// over lookbackDays (for the baseline factor).
func (p *projections) CandidateSignals(ctx context.Context, day time.Time, lookbackDays int) ([]domain.CandidateSignal, error) {
	ctx, cancel := withTimeout(ctx, p.timeout)
	defer cancel()

	today, err := p.DailyBrandTagSummary(ctx, day)
	if err != nil {
		return nil, err
	}
	yesterday, err := p.dailyBrandTagSummaryNoTimeout(ctx, day.AddDate(0, 0, -1))
	if err != nil {
		return nil, err
	}
	yesterdayCounts := make(map[string]int, len(yesterday))
	for _, r := range yesterday {
		yesterdayCounts[r.Brand+"\x00"+r.Tag] = r.MessageCount
	}

	out := make([]domain.CandidateSignal, 0, len(today))
	for _, row := range today {
		key := row.Brand + "\x00" + row.Tag
		yCount := yesterdayCounts[key]

		history, err := p.historicalCounts(ctx, row.Brand, row.Tag, day, lookbackDays)
		if err != nil {
			return nil, err
		}

		var delta float64
		if yCount > 0 {
			delta = float64(row.MessageCount-yCount) / float64(yCount)
		} else if row.MessageCount > 0 {
			delta = 1.0
		}

		memeRisk := 0.0
		if row.EvalIntentRate > 0 {
			memeRisk = row.EvalIntentRate - row.ActionIntentRate
			if memeRisk < 0 {
				memeRisk = 0
			}
			if memeRisk > 1 {
				memeRisk = 1
			}
		}

		out = append(out, domain.CandidateSignal{
			DailyBrandTag:          row,
			YesterdayMessageCount:  yCount,
			YesterdayDelta:         delta,
			MemeRisk:               memeRisk,
			HistoricalDailyCounts:  history,
		})
	}
	return out, nil
}

func (p *projections) dailyBrandTagSummaryNoTimeout(ctx context.Context, day time.Time) ([]domain.DailyBrandTag, error) {
	var rows []dailyBrandTagRow
	if err := p.db.SelectContext(ctx, &rows, dailyBrandTagQuery, day); err != nil {
		return nil, wrapStoreErr("aggregation", "daily brand-tag summary (yesterday)", err)
	}
	out := make([]domain.DailyBrandTag, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

func (p *projections) historicalCounts(ctx context.Context, brand, tag string, day time.Time, lookbackDays int) ([]int, error) {
	const query = `
		WITH exploded AS (
			SELECT rp.occurred_at::date AS day, b AS brand, t AS tag
			FROM processed_posts pp
			JOIN raw_posts rp ON rp.id = pp.raw_id
			CROSS JOIN LATERAL unnest(pp.brands) AS b
			CROSS JOIN LATERAL unnest(pp.tags) AS t
			WHERE rp.occurred_at::date >= $1 AND rp.occurred_at::date < $2
		)
		SELECT day, count(*) AS c FROM exploded WHERE brand = $3 AND tag = $4 GROUP BY day ORDER BY day`

	from := day.AddDate(0, 0, -lookbackDays)
	var rows []struct {
		Day time.Time `db:"day"`
		C   int       `db:"c"`
	}
	if err := p.db.SelectContext(ctx, &rows, query, from, day, brand, tag); err != nil {
		return nil, wrapStoreErr("aggregation", "historical daily counts", err)
	}
	out := make([]int, len(rows))
	for i, r := range rows {
		out[i] = r.C
	}
	return out, nil
}

// ShareOfVoiceChange computes, for each brand active within tag on day,
// its share of the tag's total messages today vs yesterday, plus a
// z-score of that delta against the brand's recent share history
// (spec.md §4.4 BRAND_DIVERGENCE).
func (p *projections) ShareOfVoiceChange(ctx context.Context, tag string, day time.Time) ([]store.BrandShareChange, error) {
	ctx, cancel := withTimeout(ctx, p.timeout)
	defer cancel()

	today, err := p.brandShareForDay(ctx, tag, day)
	if err != nil {
		return nil, err
	}
	yesterday, err := p.brandShareForDay(ctx, tag, day.AddDate(0, 0, -1))
	if err != nil {
		return nil, err
	}
	yesterdayShare := make(map[string]float64, len(yesterday))
	for _, r := range yesterday {
		yesterdayShare[r.brand] = r.share
	}

	out := make([]store.BrandShareChange, 0, len(today))
	for _, r := range today {
		prior := yesterdayShare[r.brand]
		delta := (r.share - prior) * 100

		history, err := p.brandShareHistory(ctx, tag, r.brand, day, 30)
		if err != nil {
			return nil, err
		}
		z := zScore(delta, history)

		out = append(out, store.BrandShareChange{
			Brand:         r.brand,
			SharePctToday: r.share * 100,
			SharePctPrior: prior * 100,
			DeltaPct:      delta,
			ZScore:        z,
		})
	}
	return out, nil
}

type brandShare struct {
	brand string
	share float64
}

func (p *projections) brandShareForDay(ctx context.Context, tag string, day time.Time) ([]brandShare, error) {
	const query = `
		WITH exploded AS (
			SELECT b AS brand
			FROM processed_posts pp
			JOIN raw_posts rp ON rp.id = pp.raw_id
			CROSS JOIN LATERAL unnest(pp.brands) AS b
			CROSS JOIN LATERAL unnest(pp.tags) AS t
			WHERE rp.occurred_at::date = $1 AND t = $2
		)
		SELECT brand, count(*)::float / NULLIF((SELECT count(*) FROM exploded), 0) AS share
		FROM exploded GROUP BY brand`

	var rows []struct {
		Brand string  `db:"brand"`
		Share float64 `db:"share"`
	}
	if err := p.db.SelectContext(ctx, &rows, query, day, tag); err != nil {
		return nil, wrapStoreErr("aggregation", "brand share for day", err)
	}
	out := make([]brandShare, len(rows))
	for i, r := range rows {
		out[i] = brandShare{brand: r.Brand, share: r.Share}
	}
	return out, nil
}

func (p *projections) brandShareHistory(ctx context.Context, tag, brand string, day time.Time, days int) ([]float64, error) {
	deltas := make([]float64, 0, days)
	prevShare := -1.0
	for d := days; d >= 1; d-- {
		shares, err := p.brandShareForDay(ctx, tag, day.AddDate(0, 0, -d))
		if err != nil {
			return nil, err
		}
		cur := 0.0
		for _, s := range shares {
			if s.brand == brand {
				cur = s.share
				break
			}
		}
		if prevShare >= 0 {
			deltas = append(deltas, (cur-prevShare)*100)
		}
		prevShare = cur
	}
	return deltas, nil
}

// Excerpts fetches raw post text for evidence bundling (spec.md §4.7): the
// brand/tag filter mirrors dailyBrandTagQuery's unnest join, windowed
// around centeredOn and ordered most-recent-first so the caller can take
// the top N.
func (p *projections) Excerpts(ctx context.Context, brand, tag string, centeredOn time.Time, window time.Duration, limit int) ([]store.RawExcerpt, error) {
	ctx, cancel := withTimeout(ctx, p.timeout)
	defer cancel()

	const query = `
		SELECT DISTINCT rp.id AS raw_id, rp.occurred_at, rp.text, COALESCE(rp.url, '') AS url
		FROM processed_posts pp
		JOIN raw_posts rp ON rp.id = pp.raw_id
		WHERE $1 = ANY(pp.brands) AND $2 = ANY(pp.tags)
			AND rp.occurred_at BETWEEN $3 AND $4
		ORDER BY rp.occurred_at DESC
		LIMIT $5`

	from := centeredOn.Add(-window)
	to := centeredOn.Add(window)

	var rows []struct {
		RawID      int64     `db:"raw_id"`
		OccurredAt time.Time `db:"occurred_at"`
		Text       string    `db:"text"`
		URL        string    `db:"url"`
	}
	if err := p.db.SelectContext(ctx, &rows, query, brand, tag, from, to, limit); err != nil {
		return nil, wrapStoreErr("aggregation", "excerpts", err)
	}
	out := make([]store.RawExcerpt, len(rows))
	for i, r := range rows {
		out[i] = store.RawExcerpt{RawID: r.RawID, OccurredAt: r.OccurredAt, Text: r.Text, URL: r.URL}
	}
	return out, nil
}

func zScore(x float64, history []float64) float64 {
	if len(history) < 2 {
		return 0
	}
	var sum float64
	for _, v := range history {
		sum += v
	}
	mean := sum / float64(len(history))

	var variance float64
	for _, v := range history {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(history))
	stddev := math.Sqrt(variance)
	if stddev == 0 {
		return 0
	}
	return (x - mean) / stddev
}
