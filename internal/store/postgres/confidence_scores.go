package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Koolhand111/eva-finance/internal/domain"
	"github.com/Koolhand111/eva-finance/internal/store"
)

type confidenceScoreStore struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewConfidenceScoreStore creates a PostgreSQL-backed ConfidenceScoreStore.
func NewConfidenceScoreStore(db *sqlx.DB, timeout time.Duration) store.ConfidenceScoreStore {
	return &confidenceScoreStore{db: db, timeout: timeout}
}

type confidenceScoreRow struct {
	ID               int64     `db:"id"`
	Day              time.Time `db:"day"`
	Brand            string    `db:"brand"`
	Tag              string    `db:"tag"`
	ScoringVersion   string    `db:"scoring_version"`
	Acceleration     float64   `db:"acceleration"`
	Intent           float64   `db:"intent"`
	Spread           float64   `db:"spread"`
	Baseline         float64   `db:"baseline"`
	Suppression      float64   `db:"suppression"`
	Final            float64   `db:"final"`
	Band             string    `db:"band"`
	GateFailedReason string    `db:"gate_failed_reason"`
	Details          []byte    `db:"details"`
	CreatedAt        time.Time `db:"created_at"`
}

func (r confidenceScoreRow) toDomain() (domain.ConfidenceScore, error) {
	cs := domain.ConfidenceScore{
		ID:             r.ID,
		Day:            r.Day,
		Brand:          r.Brand,
		Tag:            r.Tag,
		ScoringVersion: r.ScoringVersion,
		Factors: domain.FactorScores{
			Acceleration: r.Acceleration,
			Intent:       r.Intent,
			Spread:       r.Spread,
			Baseline:     r.Baseline,
			Suppression:  r.Suppression,
		},
		Final:            r.Final,
		Band:             domain.Band(r.Band),
		GateFailedReason: domain.GateFailureReason(r.GateFailedReason),
		CreatedAt:        r.CreatedAt,
	}
	if len(r.Details) > 0 {
		if err := json.Unmarshal(r.Details, &cs.Details); err != nil {
			return domain.ConfidenceScore{}, err
		}
	}
	return cs, nil
}

// Upsert replaces any prior row for (day, brand, tag, scoring_version),
// making repeated scorer runs idempotent (spec.md §8).
func (s *confidenceScoreStore) Upsert(ctx context.Context, cs domain.ConfidenceScore) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	detailsJSON, err := json.Marshal(cs.Details)
	if err != nil {
		return domain.NewStorePermanent("scorer", "marshal score details", err)
	}

	const query = `
		INSERT INTO confidence_scores
			(day, brand, tag, scoring_version, acceleration, intent, spread, baseline, suppression, final, band, gate_failed_reason, details)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (day, brand, tag, scoring_version) DO UPDATE SET
			acceleration = EXCLUDED.acceleration,
			intent = EXCLUDED.intent,
			spread = EXCLUDED.spread,
			baseline = EXCLUDED.baseline,
			suppression = EXCLUDED.suppression,
			final = EXCLUDED.final,
			band = EXCLUDED.band,
			gate_failed_reason = EXCLUDED.gate_failed_reason,
			details = EXCLUDED.details`

	_, err = s.db.ExecContext(ctx, query, cs.Day, cs.Brand, cs.Tag, cs.ScoringVersion,
		cs.Factors.Acceleration, cs.Factors.Intent, cs.Factors.Spread, cs.Factors.Baseline, cs.Factors.Suppression,
		cs.Final, string(cs.Band), string(cs.GateFailedReason), detailsJSON)
	if err != nil {
		return wrapStoreErr("scorer", "upsert confidence score", err)
	}
	return nil
}

func (s *confidenceScoreStore) Get(ctx context.Context, day time.Time, brand, tag, scoringVersion string) (*domain.ConfidenceScore, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var row confidenceScoreRow
	const query = `
		SELECT id, day, brand, tag, scoring_version, acceleration, intent, spread, baseline, suppression, final, band, gate_failed_reason, details, created_at
		FROM confidence_scores WHERE day = $1 AND brand = $2 AND tag = $3 AND scoring_version = $4`
	if err := s.db.GetContext(ctx, &row, query, day, brand, tag, scoringVersion); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapStoreErr("store", "get confidence score", err)
	}
	cs, err := row.toDomain()
	if err != nil {
		return nil, domain.NewStorePermanent("store", "decode confidence score", err)
	}
	return &cs, nil
}

// NearEventTime returns scores for brand within window of eventTime,
// ordered so the recommendation builder's preference order (exact tag
// match, then at-or-before, then closest absolute time) can be applied by
// the caller (spec.md §4.7).
func (s *confidenceScoreStore) NearEventTime(ctx context.Context, brand, tag string, eventTime time.Time, window time.Duration) ([]domain.ConfidenceScore, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	from := eventTime.Add(-window)
	to := eventTime.Add(window)

	const query = `
		SELECT id, day, brand, tag, scoring_version, acceleration, intent, spread, baseline, suppression, final, band, gate_failed_reason, details, created_at
		FROM confidence_scores
		WHERE brand = $1 AND day >= $2 AND day <= $3
		ORDER BY day ASC`

	var rows []confidenceScoreRow
	if err := s.db.SelectContext(ctx, &rows, query, brand, from, to); err != nil {
		return nil, wrapStoreErr("recommend", "list scores near event time", err)
	}
	out := make([]domain.ConfidenceScore, 0, len(rows))
	for _, r := range rows {
		cs, err := r.toDomain()
		if err != nil {
			return nil, domain.NewStorePermanent("recommend", "decode confidence score", err)
		}
		out = append(out, cs)
	}
	_ = tag // filtering/preference ordering by tag match is applied by the caller
	return out, nil
}
