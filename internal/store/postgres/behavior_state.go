package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Koolhand111/eva-finance/internal/domain"
	"github.com/Koolhand111/eva-finance/internal/store"
)

type behaviorStateStore struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewBehaviorStateStore creates a PostgreSQL-backed BehaviorStateStore.
func NewBehaviorStateStore(db *sqlx.DB, timeout time.Duration) store.BehaviorStateStore {
	return &behaviorStateStore{db: db, timeout: timeout}
}

func (s *behaviorStateStore) Get(ctx context.Context, tag string) (*domain.BehaviorState, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var bs domain.BehaviorState
	const query = `SELECT tag, state, confidence, first_seen, last_seen FROM behavior_states WHERE tag = $1`
	if err := s.db.GetContext(ctx, &bs, query, tag); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, wrapStoreErr("aggregation", "get behavior state", err)
	}
	return &bs, nil
}

// Upsert advances LastSeen monotonically (GREATEST) and otherwise applies
// the caller's state transition and confidence outright. The trigger
// emitter is the only caller; it latches ELEVATED and never reverts a tag
// to NORMAL.
func (s *behaviorStateStore) Upsert(ctx context.Context, bs domain.BehaviorState) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	const query = `
		INSERT INTO behavior_states (tag, state, confidence, first_seen, last_seen)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (tag) DO UPDATE SET
			state = EXCLUDED.state,
			confidence = EXCLUDED.confidence,
			first_seen = LEAST(behavior_states.first_seen, EXCLUDED.first_seen),
			last_seen = GREATEST(behavior_states.last_seen, EXCLUDED.last_seen)`

	_, err := s.db.ExecContext(ctx, query, bs.Tag, string(bs.State), bs.Confidence, bs.FirstSeen, bs.LastSeen)
	if err != nil {
		return wrapStoreErr("aggregation", "upsert behavior state", err)
	}
	return nil
}

func (s *behaviorStateStore) ListElevatedSince(ctx context.Context, since time.Time) ([]domain.BehaviorState, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	const query = `SELECT tag, state, confidence, first_seen, last_seen FROM behavior_states
		WHERE state = 'ELEVATED' AND last_seen >= $1`

	var out []domain.BehaviorState
	if err := s.db.SelectContext(ctx, &out, query, since); err != nil {
		return nil, wrapStoreErr("aggregation", "list elevated behavior states", err)
	}
	return out, nil
}
