package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Koolhand111/eva-finance/internal/domain"
	"github.com/Koolhand111/eva-finance/internal/store"
)

type brandTickerStore struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewBrandTickerStore creates a PostgreSQL-backed BrandTickerStore. Brand
// lookups are case-insensitive per spec.md §3, enforced with a unique
// index on lower(brand) and a lower(brand) predicate on read.
func NewBrandTickerStore(db *sqlx.DB, timeout time.Duration) store.BrandTickerStore {
	return &brandTickerStore{db: db, timeout: timeout}
}

type brandTickerRow struct {
	Brand    string         `db:"brand"`
	Ticker   sql.NullString `db:"ticker"`
	Parent   string         `db:"parent"`
	Material bool           `db:"material"`
	Exchange string         `db:"exchange"`
}

func (r brandTickerRow) toDomain() domain.BrandTickerMap {
	m := domain.BrandTickerMap{Brand: r.Brand, Parent: r.Parent, Material: r.Material, Exchange: r.Exchange}
	if r.Ticker.Valid {
		v := r.Ticker.String
		m.Ticker = &v
	}
	return m
}

func (s *brandTickerStore) Lookup(ctx context.Context, brand string) (*domain.BrandTickerMap, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var row brandTickerRow
	const query = `SELECT brand, ticker, parent, material, exchange FROM brand_ticker_map WHERE lower(brand) = lower($1)`
	if err := s.db.GetContext(ctx, &row, query, strings.TrimSpace(brand)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapStoreErr("position", "lookup brand ticker", err)
	}
	m := row.toDomain()
	return &m, nil
}

func (s *brandTickerStore) Upsert(ctx context.Context, m domain.BrandTickerMap) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	const query = `
		INSERT INTO brand_ticker_map (brand, ticker, parent, material, exchange)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (lower(brand)) DO UPDATE SET
			ticker = EXCLUDED.ticker, parent = EXCLUDED.parent,
			material = EXCLUDED.material, exchange = EXCLUDED.exchange`

	_, err := s.db.ExecContext(ctx, query, m.Brand, m.Ticker, m.Parent, m.Material, m.Exchange)
	if err != nil {
		return wrapStoreErr("ops", "upsert brand ticker map", err)
	}
	return nil
}

// ListUnmapped returns brands seen in processed posts that have no
// brand_ticker_map row, for the `list-unmapped-brands` CLI command.
func (s *brandTickerStore) ListUnmapped(ctx context.Context) ([]string, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	const query = `
		SELECT DISTINCT b FROM (
			SELECT unnest(brands) AS b FROM processed_posts
		) seen
		WHERE NOT EXISTS (
			SELECT 1 FROM brand_ticker_map m WHERE lower(m.brand) = lower(seen.b)
		)
		ORDER BY b`

	var out []string
	if err := s.db.SelectContext(ctx, &out, query); err != nil {
		return nil, wrapStoreErr("ops", "list unmapped brands", err)
	}
	return out, nil
}
