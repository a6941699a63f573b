package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Koolhand111/eva-finance/internal/domain"
	"github.com/Koolhand111/eva-finance/internal/store"
)

type processedPostStore struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewProcessedPostStore creates a PostgreSQL-backed ProcessedPostStore.
func NewProcessedPostStore(db *sqlx.DB, timeout time.Duration) store.ProcessedPostStore {
	return &processedPostStore{db: db, timeout: timeout}
}

type processedPostRow struct {
	ID               int64          `db:"id"`
	RawID            int64          `db:"raw_id"`
	Brands           pq.StringArray `db:"brands"`
	Tags             pq.StringArray `db:"tags"`
	Sentiment        string         `db:"sentiment"`
	Intent           string         `db:"intent"`
	Tickers          pq.StringArray `db:"tickers"`
	ProcessorVersion string         `db:"processor_version"`
	CreatedAt        time.Time      `db:"created_at"`
}

func (r processedPostRow) toDomain() domain.ProcessedPost {
	return domain.ProcessedPost{
		ID:               r.ID,
		RawID:            r.RawID,
		Brands:           []string(r.Brands),
		Tags:             []string(r.Tags),
		Sentiment:        domain.Sentiment(r.Sentiment),
		Intent:           domain.Intent(r.Intent),
		Tickers:          []string(r.Tickers),
		ProcessorVersion: r.ProcessorVersion,
		CreatedAt:        r.CreatedAt,
	}
}

// Insert writes the processed row. ClaimUnprocessed only leases the raw
// post; the extractor calls this after extraction succeeds and then flips
// the raw post's processed flag via RawPostStore.MarkProcessed, so
// "processed = true" only ever holds once a ProcessedPost exists
// (spec.md §4.3: "the raw row is marked processed only after the processed
// row is written"). ON CONFLICT DO NOTHING makes a retried insert safe if a
// prior attempt wrote this row but crashed before MarkProcessed ran.
func (s *processedPostStore) Insert(ctx context.Context, p domain.ProcessedPost) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	const query = `
		INSERT INTO processed_posts (raw_id, brands, tags, sentiment, intent, tickers, processor_version)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (raw_id) DO NOTHING`

	_, err := s.db.ExecContext(ctx, query, p.RawID, pq.Array(p.Brands), pq.Array(p.Tags),
		string(p.Sentiment), string(p.Intent), pq.Array(p.Tickers), p.ProcessorVersion)
	if err != nil {
		return wrapStoreErr("extractor", "insert processed post", err)
	}
	return nil
}

func (s *processedPostStore) GetByRawID(ctx context.Context, rawID int64) (*domain.ProcessedPost, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var row processedPostRow
	const query = `SELECT id, raw_id, brands, tags, sentiment, intent, tickers, processor_version, created_at
		FROM processed_posts WHERE raw_id = $1`
	if err := s.db.GetContext(ctx, &row, query, rawID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, wrapStoreErr("store", "get processed post", err)
	}
	p := row.toDomain()
	return &p, nil
}

func (s *processedPostStore) ListForDay(ctx context.Context, day time.Time) ([]domain.ProcessedPost, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	const query = `
		SELECT pp.id, pp.raw_id, pp.brands, pp.tags, pp.sentiment, pp.intent, pp.tickers, pp.processor_version, pp.created_at
		FROM processed_posts pp
		JOIN raw_posts rp ON rp.id = pp.raw_id
		WHERE rp.occurred_at >= $1 AND rp.occurred_at < $1 + interval '1 day'`

	var rows []processedPostRow
	if err := s.db.SelectContext(ctx, &rows, query, day); err != nil {
		return nil, wrapStoreErr("aggregation", "list processed posts for day", err)
	}
	out := make([]domain.ProcessedPost, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}
