package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Koolhand111/eva-finance/internal/domain"
	"github.com/Koolhand111/eva-finance/internal/store"
)

type rawPostStore struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewRawPostStore creates a PostgreSQL-backed RawPostStore.
func NewRawPostStore(db *sqlx.DB, timeout time.Duration) store.RawPostStore {
	return &rawPostStore{db: db, timeout: timeout}
}

// rawPostRow mirrors domain.RawPost with db-friendly scalar columns; Meta
// round-trips through JSONB.
type rawPostRow struct {
	ID         int64          `db:"id"`
	Source     string         `db:"source"`
	PlatformID string         `db:"platform_id"`
	OccurredAt time.Time      `db:"occurred_at"`
	Text       string         `db:"text"`
	URL        sql.NullString `db:"url"`
	Meta       []byte         `db:"meta"`
	ClaimedAt  sql.NullTime   `db:"claimed_at"`
	Processed  bool           `db:"processed"`
	CreatedAt  time.Time      `db:"created_at"`
}

func (r rawPostRow) toDomain() (domain.RawPost, error) {
	p := domain.RawPost{
		ID:         r.ID,
		Source:     r.Source,
		PlatformID: r.PlatformID,
		OccurredAt: r.OccurredAt,
		Text:       r.Text,
		Processed:  r.Processed,
		CreatedAt:  r.CreatedAt,
	}
	if r.URL.Valid {
		url := r.URL.String
		p.URL = &url
	}
	if r.ClaimedAt.Valid {
		claimedAt := r.ClaimedAt.Time
		p.ClaimedAt = &claimedAt
	}
	if len(r.Meta) > 0 {
		if err := json.Unmarshal(r.Meta, &p.Meta); err != nil {
			return domain.RawPost{}, err
		}
	}
	return p, nil
}

func (s *rawPostStore) Insert(ctx context.Context, p domain.RawPost) (store.InsertResult, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	metaJSON, err := json.Marshal(p.Meta)
	if err != nil {
		return store.InsertResult{}, domain.NewInvalidInput("admission", "meta is not serializable")
	}

	const query = `
		INSERT INTO raw_posts (source, platform_id, occurred_at, text, url, meta, processed)
		VALUES ($1, $2, $3, $4, $5, $6, false)
		ON CONFLICT (source, platform_id) DO NOTHING
		RETURNING id`

	var id int64
	err = s.db.QueryRowxContext(ctx, query, p.Source, p.PlatformID, p.OccurredAt, p.Text, p.URL, metaJSON).Scan(&id)
	if err == sql.ErrNoRows {
		// Conflict: no row returned from DO NOTHING. Look up the existing id.
		existing, lookupErr := s.lookup(ctx, p.Source, p.PlatformID)
		if lookupErr != nil {
			return store.InsertResult{}, wrapStoreErr("admission", "lookup duplicate raw post", lookupErr)
		}
		return store.InsertResult{ID: existing.ID, Duplicate: true}, nil
	}
	if err != nil {
		return store.InsertResult{}, wrapStoreErr("admission", "insert raw post", err)
	}
	return store.InsertResult{ID: id, Duplicate: false}, nil
}

func (s *rawPostStore) lookup(ctx context.Context, source, platformID string) (domain.RawPost, error) {
	var row rawPostRow
	const query = `SELECT id, source, platform_id, occurred_at, text, url, meta, claimed_at, processed, created_at
		FROM raw_posts WHERE source = $1 AND platform_id = $2`
	if err := s.db.GetContext(ctx, &row, query, source, platformID); err != nil {
		return domain.RawPost{}, err
	}
	return row.toDomain()
}

// ClaimUnprocessed implements the lease-based claim model of spec.md §4.3:
// select-then-lease inside one transaction with row-level skip-locked
// semantics, so concurrent extractor workers never double-claim a raw post.
// A row is eligible once it is unprocessed and either never claimed or its
// previous lease has expired (lease), so a worker that crashes mid-extraction
// does not orphan the row forever. processed is flipped to true only by
// MarkProcessed, once the ProcessedPost insert that row depends on has
// actually succeeded — never here.
func (s *rawPostStore) ClaimUnprocessed(ctx context.Context, limit int, lease time.Duration) ([]domain.RawPost, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, wrapStoreErr("extractor", "begin claim transaction", err)
	}
	defer tx.Rollback()

	const selectQuery = `
		SELECT id, source, platform_id, occurred_at, text, url, meta, claimed_at, processed, created_at
		FROM raw_posts
		WHERE processed = false
		  AND (claimed_at IS NULL OR claimed_at < now() - ($2 * interval '1 second'))
		ORDER BY occurred_at ASC
		FOR UPDATE SKIP LOCKED
		LIMIT $1`

	var rows []rawPostRow
	if err := tx.SelectContext(ctx, &rows, selectQuery, limit, lease.Seconds()); err != nil {
		return nil, wrapStoreErr("extractor", "select unprocessed raw posts", err)
	}
	if len(rows) == 0 {
		return nil, tx.Commit()
	}

	ids := make([]int64, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}

	const updateQuery = `UPDATE raw_posts SET claimed_at = now() WHERE id = ANY($1)`
	if _, err := tx.ExecContext(ctx, updateQuery, pq.Array(ids)); err != nil {
		return nil, wrapStoreErr("extractor", "lease raw posts", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, wrapStoreErr("extractor", "commit claim transaction", err)
	}

	now := time.Now().UTC()
	posts := make([]domain.RawPost, 0, len(rows))
	for _, r := range rows {
		p, err := r.toDomain()
		if err != nil {
			return nil, domain.NewStorePermanent("extractor", "decode claimed raw post", err)
		}
		p.ClaimedAt = &now
		posts = append(posts, p)
	}
	return posts, nil
}

// MarkProcessed permanently marks a raw post processed and releases its
// claim lease. Callers must only invoke this once the corresponding
// ProcessedPost row is durably written, so "processed = true" only ever
// holds once exactly one ProcessedPost references this row.
func (s *rawPostStore) MarkProcessed(ctx context.Context, id int64) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	const query = `UPDATE raw_posts SET processed = true, claimed_at = NULL WHERE id = $1`
	if _, err := s.db.ExecContext(ctx, query, id); err != nil {
		return wrapStoreErr("extractor", "mark raw post processed", err)
	}
	return nil
}

func (s *rawPostStore) GetByID(ctx context.Context, id int64) (*domain.RawPost, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var row rawPostRow
	const query = `SELECT id, source, platform_id, occurred_at, text, url, meta, claimed_at, processed, created_at
		FROM raw_posts WHERE id = $1`
	if err := s.db.GetContext(ctx, &row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, wrapStoreErr("store", "get raw post", err)
	}
	p, err := row.toDomain()
	if err != nil {
		return nil, domain.NewStorePermanent("store", "decode raw post", err)
	}
	return &p, nil
}
