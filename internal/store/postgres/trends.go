package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Koolhand111/eva-finance/internal/domain"
	"github.com/Koolhand111/eva-finance/internal/store"
)

type trendsValidationStore struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewTrendsValidationStore creates a PostgreSQL-backed
// TrendsValidationStore. This is an audit trail of validator calls, not
// the validator's own TTL cache (which is in-process, see
// internal/validate).
func NewTrendsValidationStore(db *sqlx.DB, timeout time.Duration) store.TrendsValidationStore {
	return &trendsValidationStore{db: db, timeout: timeout}
}

func (s *trendsValidationStore) Insert(ctx context.Context, v domain.TrendsValidation) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	const query = `
		INSERT INTO trends_validations
			(brand, checked_at, search_interest, trend_direction, validates_signal, confidence_boost, validation_status)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`

	_, err := s.db.ExecContext(ctx, query, v.Brand, v.CheckedAt, v.SearchInterest,
		string(v.TrendDirection), v.ValidatesSignal, v.ConfidenceBoost, string(v.ValidationStatus))
	if err != nil {
		return wrapStoreErr("validate", "insert trends validation", err)
	}
	return nil
}

func (s *trendsValidationStore) LatestForBrand(ctx context.Context, brand string, since time.Time) (*domain.TrendsValidation, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var row struct {
		ID               int64     `db:"id"`
		Brand            string    `db:"brand"`
		CheckedAt        time.Time `db:"checked_at"`
		SearchInterest   float64   `db:"search_interest"`
		TrendDirection   string    `db:"trend_direction"`
		ValidatesSignal  bool      `db:"validates_signal"`
		ConfidenceBoost  float64   `db:"confidence_boost"`
		ValidationStatus string    `db:"validation_status"`
	}

	const query = `
		SELECT id, brand, checked_at, search_interest, trend_direction, validates_signal, confidence_boost, validation_status
		FROM trends_validations
		WHERE lower(brand) = lower($1) AND checked_at >= $2
		ORDER BY checked_at DESC LIMIT 1`

	if err := s.db.GetContext(ctx, &row, query, brand, since); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapStoreErr("validate", "get latest trends validation", err)
	}

	return &domain.TrendsValidation{
		ID:               row.ID,
		Brand:            row.Brand,
		CheckedAt:        row.CheckedAt,
		SearchInterest:   row.SearchInterest,
		TrendDirection:   domain.TrendDirection(row.TrendDirection),
		ValidatesSignal:  row.ValidatesSignal,
		ConfidenceBoost:  row.ConfidenceBoost,
		ValidationStatus: domain.ValidationStatus(row.ValidationStatus),
	}, nil
}
