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

type paperPositionStore struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewPaperPositionStore creates a PostgreSQL-backed PaperPositionStore.
func NewPaperPositionStore(db *sqlx.DB, timeout time.Duration) store.PaperPositionStore {
	return &paperPositionStore{db: db, timeout: timeout}
}

type positionRow struct {
	ID           int64          `db:"id"`
	EventID      int64          `db:"event_id"`
	Brand        string         `db:"brand"`
	Tag          string         `db:"tag"`
	Ticker       string         `db:"ticker"`
	EntryDate    time.Time      `db:"entry_date"`
	EntryPrice   float64        `db:"entry_price"`
	CurrentPrice float64        `db:"current_price"`
	SizeDollars  float64        `db:"size_dollars"`
	Status       string         `db:"status"`
	ExitDate     sql.NullTime   `db:"exit_date"`
	ExitPrice    sql.NullFloat64 `db:"exit_price"`
	ExitReason   string         `db:"exit_reason"`
	ReturnPct    float64        `db:"return_pct"`
	ReturnDollar float64        `db:"return_dollar"`
	DaysHeld     int            `db:"days_held"`
	CreatedAt    time.Time      `db:"created_at"`
}

func (r positionRow) toDomain() domain.PaperPosition {
	p := domain.PaperPosition{
		ID:           r.ID,
		EventID:      r.EventID,
		Brand:        r.Brand,
		Tag:          r.Tag,
		Ticker:       r.Ticker,
		EntryDate:    r.EntryDate,
		EntryPrice:   r.EntryPrice,
		CurrentPrice: r.CurrentPrice,
		SizeDollars:  r.SizeDollars,
		Status:       domain.PositionStatus(r.Status),
		ExitReason:   domain.ExitReason(r.ExitReason),
		ReturnPct:    r.ReturnPct,
		ReturnDollar: r.ReturnDollar,
		DaysHeld:     r.DaysHeld,
		CreatedAt:    r.CreatedAt,
	}
	if r.ExitDate.Valid {
		v := r.ExitDate.Time
		p.ExitDate = &v
	}
	if r.ExitPrice.Valid {
		v := r.ExitPrice.Float64
		p.ExitPrice = &v
	}
	return p
}

func (s *paperPositionStore) Insert(ctx context.Context, p domain.PaperPosition) (int64, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	const query = `
		INSERT INTO paper_positions
			(event_id, brand, tag, ticker, entry_date, entry_price, current_price, size_dollars, status, return_pct, return_dollar, days_held, exit_reason)
		VALUES ($1,$2,$3,$4,$5,$6,$6,$7,'open',0,0,0,'')
		ON CONFLICT (event_id) DO NOTHING
		RETURNING id`

	var id int64
	err := s.db.QueryRowxContext(ctx, query, p.EventID, p.Brand, p.Tag, p.Ticker, p.EntryDate, p.EntryPrice, p.SizeDollars).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		existing, lookupErr := s.GetByEventID(ctx, p.EventID)
		if lookupErr != nil {
			return 0, lookupErr
		}
		return existing.ID, nil
	}
	if err != nil {
		return 0, wrapStoreErr("position", "insert paper position", err)
	}
	return id, nil
}

func (s *paperPositionStore) GetByEventID(ctx context.Context, eventID int64) (*domain.PaperPosition, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var row positionRow
	const query = `
		SELECT id, event_id, brand, tag, ticker, entry_date, entry_price, current_price, size_dollars, status,
			exit_date, exit_price, exit_reason, return_pct, return_dollar, days_held, created_at
		FROM paper_positions WHERE event_id = $1`
	if err := s.db.GetContext(ctx, &row, query, eventID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapStoreErr("store", "get position by event id", err)
	}
	p := row.toDomain()
	return &p, nil
}

func (s *paperPositionStore) ListOpen(ctx context.Context) ([]domain.PaperPosition, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	const query = `
		SELECT id, event_id, brand, tag, ticker, entry_date, entry_price, current_price, size_dollars, status,
			exit_date, exit_price, exit_reason, return_pct, return_dollar, days_held, created_at
		FROM paper_positions WHERE status = 'open'`

	var rows []positionRow
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, wrapStoreErr("position", "list open positions", err)
	}
	out := make([]domain.PaperPosition, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

// Update writes the full row back — current price, return figures,
// days-held, and (on close) the exit fields, all atomically with the
// status transition, per spec.md §4.9's invariant.
func (s *paperPositionStore) Update(ctx context.Context, p domain.PaperPosition) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	const query = `
		UPDATE paper_positions SET
			current_price = $2, status = $3, exit_date = $4, exit_price = $5,
			exit_reason = $6, return_pct = $7, return_dollar = $8, days_held = $9
		WHERE id = $1`

	_, err := s.db.ExecContext(ctx, query, p.ID, p.CurrentPrice, string(p.Status),
		p.ExitDate, p.ExitPrice, string(p.ExitReason), p.ReturnPct, p.ReturnDollar, p.DaysHeld)
	if err != nil {
		return wrapStoreErr("position", "update paper position", err)
	}
	return nil
}
