package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Koolhand111/eva-finance/internal/domain"
	"github.com/Koolhand111/eva-finance/internal/store"
)

type draftStore struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewRecommendationDraftStore creates a PostgreSQL-backed
// RecommendationDraftStore.
func NewRecommendationDraftStore(db *sqlx.DB, timeout time.Duration) store.RecommendationDraftStore {
	return &draftStore{db: db, timeout: timeout}
}

type draftRow struct {
	ID           int64          `db:"id"`
	EventID      int64          `db:"event_id"`
	Brand        string         `db:"brand"`
	Tag          string         `db:"tag"`
	EventTime    time.Time      `db:"event_time"`
	Confidence   float64        `db:"confidence"`
	Band         string         `db:"band"`
	BundlePath   string         `db:"bundle_path"`
	BundleSHA256 string         `db:"bundle_sha256"`
	DraftPath    string         `db:"draft_path"`
	DraftSHA256  string         `db:"draft_sha256"`
	Approved     bool           `db:"approved"`
	ApprovedBy   sql.NullString `db:"approved_by"`
	ApprovedAt   sql.NullTime   `db:"approved_at"`
	NotifiedAt   sql.NullTime   `db:"notified_at"`
	Attempts     int            `db:"attempts"`
	LastError    string         `db:"last_error"`
	CreatedAt    time.Time      `db:"created_at"`
}

func (r draftRow) toDomain() domain.RecommendationDraft {
	d := domain.RecommendationDraft{
		ID:           r.ID,
		EventID:      r.EventID,
		Brand:        r.Brand,
		Tag:          r.Tag,
		EventTime:    r.EventTime,
		Confidence:   r.Confidence,
		Band:         domain.Band(r.Band),
		BundlePath:   r.BundlePath,
		BundleSHA256: r.BundleSHA256,
		DraftPath:    r.DraftPath,
		DraftSHA256:  r.DraftSHA256,
		Approved:     r.Approved,
		Attempts:     r.Attempts,
		LastError:    r.LastError,
		CreatedAt:    r.CreatedAt,
	}
	if r.ApprovedBy.Valid {
		v := r.ApprovedBy.String
		d.ApprovedBy = &v
	}
	if r.ApprovedAt.Valid {
		v := r.ApprovedAt.Time
		d.ApprovedAt = &v
	}
	if r.NotifiedAt.Valid {
		v := r.NotifiedAt.Time
		d.NotifiedAt = &v
	}
	return d
}

// InsertIfAbsent registers a draft keyed by EventID (spec.md §4.7: "on
// conflict: no-op").
func (s *draftStore) InsertIfAbsent(ctx context.Context, d domain.RecommendationDraft) (domain.RecommendationDraft, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	const query = `
		INSERT INTO recommendation_drafts
			(event_id, brand, tag, event_time, confidence, band, bundle_path, bundle_sha256, draft_path, draft_sha256, approved, attempts, last_error)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,false,0,'')
		ON CONFLICT (event_id) DO NOTHING
		RETURNING id`

	var id int64
	err := s.db.QueryRowxContext(ctx, query, d.EventID, d.Brand, d.Tag, d.EventTime, d.Confidence,
		string(d.Band), d.BundlePath, d.BundleSHA256, d.DraftPath, d.DraftSHA256).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		existing, lookupErr := s.GetByEventID(ctx, d.EventID)
		if lookupErr != nil {
			return domain.RecommendationDraft{}, lookupErr
		}
		return *existing, nil
	}
	if err != nil {
		return domain.RecommendationDraft{}, wrapStoreErr("recommend", "insert draft", err)
	}
	d.ID = id
	d.Approved = false
	d.Attempts = 0
	return d, nil
}

func (s *draftStore) GetByEventID(ctx context.Context, eventID int64) (*domain.RecommendationDraft, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var row draftRow
	const query = `
		SELECT id, event_id, brand, tag, event_time, confidence, band, bundle_path, bundle_sha256, draft_path, draft_sha256,
			approved, approved_by, approved_at, notified_at, attempts, last_error, created_at
		FROM recommendation_drafts WHERE event_id = $1`
	if err := s.db.GetContext(ctx, &row, query, eventID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapStoreErr("store", "get draft by event id", err)
	}
	d := row.toDomain()
	return &d, nil
}

// ClaimApproved implements the notifier's claim algorithm (spec.md §4.8):
// in one transaction, select up to limit drafts that are approved,
// unnotified, and under maxAttempts, ordered by creation time ascending,
// locking rows with FOR UPDATE SKIP LOCKED so two concurrent workers never
// claim the same draft — and increment attempts for every claimed row
// before returning, so a crash between claim and delivery still counted as
// an attempt.
func (s *draftStore) ClaimApproved(ctx context.Context, limit, maxAttempts int) ([]domain.RecommendationDraft, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, wrapStoreErr("notifier", "begin claim transaction", err)
	}
	defer tx.Rollback()

	const selectQuery = `
		SELECT id, event_id, brand, tag, event_time, confidence, band, bundle_path, bundle_sha256, draft_path, draft_sha256,
			approved, approved_by, approved_at, notified_at, attempts, last_error, created_at
		FROM recommendation_drafts
		WHERE approved = true AND notified_at IS NULL AND attempts < $1
		ORDER BY created_at ASC
		FOR UPDATE SKIP LOCKED
		LIMIT $2`

	var rows []draftRow
	if err := tx.SelectContext(ctx, &rows, selectQuery, maxAttempts, limit); err != nil {
		return nil, wrapStoreErr("notifier", "select claimable drafts", err)
	}
	if len(rows) == 0 {
		return nil, tx.Commit()
	}

	ids := make([]int64, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}

	const updateQuery = `UPDATE recommendation_drafts SET attempts = attempts + 1 WHERE id = ANY($1)`
	if _, err := tx.ExecContext(ctx, updateQuery, pq.Array(ids)); err != nil {
		return nil, wrapStoreErr("notifier", "increment claimed draft attempts", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, wrapStoreErr("notifier", "commit claim transaction", err)
	}

	out := make([]domain.RecommendationDraft, len(rows))
	for i, r := range rows {
		d := r.toDomain()
		d.Attempts++
		out[i] = d
	}
	return out, nil
}

// MarkNotified sets notified_at only if approved still holds, defending
// against an approval revoked between claim and delivery (spec.md §4.8,
// §9 Open Questions).
func (s *draftStore) MarkNotified(ctx context.Context, id int64, at time.Time) (bool, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	const query = `
		UPDATE recommendation_drafts
		SET notified_at = $2, last_error = ''
		WHERE id = $1 AND approved = true AND notified_at IS NULL`

	res, err := s.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return false, wrapStoreErr("notifier", "mark draft notified", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, wrapStoreErr("notifier", "read rows affected", err)
	}
	return n == 1, nil
}

func (s *draftStore) MarkFailed(ctx context.Context, id int64, lastError string) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	const query = `UPDATE recommendation_drafts SET last_error = $2 WHERE id = $1`
	if _, err := s.db.ExecContext(ctx, query, id, lastError); err != nil {
		return wrapStoreErr("notifier", "record draft failure", err)
	}
	return nil
}

func (s *draftStore) Approve(ctx context.Context, eventID int64, approver string, at time.Time) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	const query = `
		UPDATE recommendation_drafts
		SET approved = true, approved_by = $2, approved_at = $3
		WHERE event_id = $1`
	res, err := s.db.ExecContext(ctx, query, eventID, approver, at)
	if err != nil {
		return wrapStoreErr("recommend", "approve draft", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapStoreErr("recommend", "read rows affected", err)
	}
	if n == 0 {
		return domain.NewInvalidInput("recommend", "no draft for event id")
	}
	return nil
}

// ResetAttempts is the operator-initiated recovery for a poison draft
// (spec.md §7 "Poison state... Excluded from claims until an operator
// resets").
func (s *draftStore) ResetAttempts(ctx context.Context, id int64) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	const query = `UPDATE recommendation_drafts SET attempts = 0, last_error = '' WHERE id = $1`
	res, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return wrapStoreErr("ops", "reset draft attempts", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapStoreErr("ops", "read rows affected", err)
	}
	if n == 0 {
		return domain.NewInvalidInput("ops", "no draft with that id")
	}
	return nil
}
