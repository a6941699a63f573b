// Package postgres implements internal/store's repository interfaces
// against PostgreSQL via sqlx and lib/pq, in the pattern of the teacher's
// internal/persistence/postgres package: one file per entity, context
// timeouts on every call, ON CONFLICT upserts for idempotent writes, and
// wrapped errors that preserve the underlying *pq.Error for callers that
// need to distinguish store-transient from store-permanent failures.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/Koolhand111/eva-finance/internal/config"
	"github.com/Koolhand111/eva-finance/internal/store"
)

// Open connects to Postgres and configures the bounded pool described in
// spec.md §5 ("A bounded connection pool fronts the store (default 2-10)").
func Open(cfg config.DBConfig) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	return db, nil
}

// NewStore wires every repository implementation against db, with the
// configured per-call statement timeout.
func NewStore(db *sqlx.DB, statementTimeout time.Duration) *store.Store {
	return &store.Store{
		RawPosts:     NewRawPostStore(db, statementTimeout),
		Processed:    NewProcessedPostStore(db, statementTimeout),
		Behavior:     NewBehaviorStateStore(db, statementTimeout),
		Events:       NewSignalEventStore(db, statementTimeout),
		Scores:       NewConfidenceScoreStore(db, statementTimeout),
		Drafts:       NewRecommendationDraftStore(db, statementTimeout),
		BrandTickers: NewBrandTickerStore(db, statementTimeout),
		Positions:    NewPaperPositionStore(db, statementTimeout),
		Trends:       NewTrendsValidationStore(db, statementTimeout),
		Projections:  NewProjections(db, statementTimeout),
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, d)
}
