package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Koolhand111/eva-finance/internal/domain"
	"github.com/Koolhand111/eva-finance/internal/store"
)

type signalEventStore struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewSignalEventStore creates a PostgreSQL-backed SignalEventStore.
func NewSignalEventStore(db *sqlx.DB, timeout time.Duration) store.SignalEventStore {
	return &signalEventStore{db: db, timeout: timeout}
}

type signalEventRow struct {
	ID           int64     `db:"id"`
	Kind         string    `db:"kind"`
	Tag          string    `db:"tag"`
	Brand        string    `db:"brand"`
	Day          time.Time `db:"day"`
	Severity     string    `db:"severity"`
	Payload      []byte    `db:"payload"`
	Acknowledged bool      `db:"acknowledged"`
	CreatedAt    time.Time `db:"created_at"`
}

func (r signalEventRow) toDomain() (domain.SignalEvent, error) {
	e := domain.SignalEvent{
		ID:           r.ID,
		Kind:         domain.EventKind(r.Kind),
		Tag:          r.Tag,
		Brand:        r.Brand,
		Day:          r.Day,
		Severity:     domain.Severity(r.Severity),
		Acknowledged: r.Acknowledged,
		CreatedAt:    r.CreatedAt,
	}
	if len(r.Payload) > 0 {
		if err := json.Unmarshal(r.Payload, &e.Payload); err != nil {
			return domain.SignalEvent{}, err
		}
	}
	return e, nil
}

// Emit inserts the event, deduped on (kind, tag, brand, day) per spec.md
// §3's SignalEvent invariant. Repeat runs over an unchanged projection are
// no-ops, satisfying the §8 idempotence law.
func (s *signalEventStore) Emit(ctx context.Context, e domain.SignalEvent) (store.InsertResult, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	payloadJSON, err := json.Marshal(e.Payload)
	if err != nil {
		return store.InsertResult{}, domain.NewStorePermanent("trigger", "marshal event payload", err)
	}

	const query = `
		INSERT INTO signal_events (kind, tag, brand, day, severity, payload, acknowledged)
		VALUES ($1, $2, $3, $4, $5, $6, false)
		ON CONFLICT (kind, tag, brand, day) DO NOTHING
		RETURNING id`

	var id int64
	err = s.db.QueryRowxContext(ctx, query, string(e.Kind), e.Tag, e.Brand, e.Day, string(e.Severity), payloadJSON).Scan(&id)
	if err == sql.ErrNoRows {
		existing, lookupErr := s.lookup(ctx, e.Kind, e.Tag, e.Brand, e.Day)
		if lookupErr != nil {
			return store.InsertResult{}, wrapStoreErr("trigger", "lookup duplicate event", lookupErr)
		}
		return store.InsertResult{ID: existing.ID, Duplicate: true}, nil
	}
	if err != nil {
		return store.InsertResult{}, wrapStoreErr("trigger", "insert signal event", err)
	}
	return store.InsertResult{ID: id, Duplicate: false}, nil
}

func (s *signalEventStore) lookup(ctx context.Context, kind domain.EventKind, tag, brand string, day time.Time) (domain.SignalEvent, error) {
	var row signalEventRow
	const query = `SELECT id, kind, tag, brand, day, severity, payload, acknowledged, created_at
		FROM signal_events WHERE kind = $1 AND tag = $2 AND brand = $3 AND day = $4`
	if err := s.db.GetContext(ctx, &row, query, string(kind), tag, brand, day); err != nil {
		return domain.SignalEvent{}, err
	}
	return row.toDomain()
}

func (s *signalEventStore) ListByDay(ctx context.Context, kind domain.EventKind, day time.Time) ([]domain.SignalEvent, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	const query = `SELECT id, kind, tag, brand, day, severity, payload, acknowledged, created_at
		FROM signal_events WHERE kind = $1 AND day = $2`

	var rows []signalEventRow
	if err := s.db.SelectContext(ctx, &rows, query, string(kind), day); err != nil {
		return nil, wrapStoreErr("store", "list events by day", err)
	}
	out := make([]domain.SignalEvent, 0, len(rows))
	for _, r := range rows {
		e, err := r.toDomain()
		if err != nil {
			return nil, domain.NewStorePermanent("store", "decode signal event", err)
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *signalEventStore) GetByID(ctx context.Context, id int64) (*domain.SignalEvent, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var row signalEventRow
	const query = `SELECT id, kind, tag, brand, day, severity, payload, acknowledged, created_at
		FROM signal_events WHERE id = $1`
	if err := s.db.GetContext(ctx, &row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, wrapStoreErr("store", "get signal event", err)
	}
	e, err := row.toDomain()
	if err != nil {
		return nil, domain.NewStorePermanent("store", "decode signal event", err)
	}
	return &e, nil
}
