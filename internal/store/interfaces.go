// Package store defines the repository interfaces every stage depends on.
// internal/store/postgres provides the relational implementation. No test
// exercises that package; github.com/DATA-DOG/go-sqlmock is listed in
// go.mod, but no test imports it.
package store

import (
	"context"
	"time"

	"github.com/Koolhand111/eva-finance/internal/domain"
)

// InsertResult reports whether an idempotent insert created a new row or
// hit an existing one (the admission endpoint's duplicate-detection
// contract, spec.md §4.2).
type InsertResult struct {
	ID        int64
	Duplicate bool
}

// RawPostStore persists RawPost rows, deduped on (Source, PlatformID).
type RawPostStore interface {
	// Insert writes a RawPost, or returns the existing row's id with
	// Duplicate=true on a (source, platform_id) conflict.
	Insert(ctx context.Context, p domain.RawPost) (InsertResult, error)
	// ClaimUnprocessed atomically selects up to limit unprocessed rows and
	// stamps a ClaimedAt lease on them in the same transaction, so concurrent
	// extractor workers never double-claim a row. A row whose lease is older
	// than lease (a crashed or stuck worker) is eligible to be re-claimed.
	// Processed is NOT set here — see MarkProcessed.
	ClaimUnprocessed(ctx context.Context, limit int, lease time.Duration) ([]domain.RawPost, error)
	// MarkProcessed permanently flips processed=true and clears the claim
	// lease. Callers must only call this after the corresponding
	// ProcessedPost has been durably written.
	MarkProcessed(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*domain.RawPost, error)
}

// ProcessedPostStore persists ProcessedPost rows, one per RawID.
type ProcessedPostStore interface {
	Insert(ctx context.Context, p domain.ProcessedPost) error
	GetByRawID(ctx context.Context, rawID int64) (*domain.ProcessedPost, error)
	// ListForDay returns processed posts whose raw post occurred on day
	// (UTC), used by the aggregation projections.
	ListForDay(ctx context.Context, day time.Time) ([]domain.ProcessedPost, error)
}

// BehaviorStateStore persists the tag-level state machine.
type BehaviorStateStore interface {
	Get(ctx context.Context, tag string) (*domain.BehaviorState, error)
	// Upsert advances LastSeen monotonically and applies the given state
	// transition. Its only caller is the trigger emitter
	// (internal/aggregate), which moves NORMAL->ELEVATED and never writes
	// NORMAL back, so ELEVATED latches; no scorer run reverts it.
	Upsert(ctx context.Context, s domain.BehaviorState) error
	ListElevatedSince(ctx context.Context, since time.Time) ([]domain.BehaviorState, error)
}

// SignalEventStore persists append-only SignalEvent rows, deduped on
// (Kind, Tag, Brand, Day).
type SignalEventStore interface {
	// Emit inserts the event, or is a no-op (InsertResult.Duplicate=true)
	// if one already exists for the unique tuple.
	Emit(ctx context.Context, e domain.SignalEvent) (InsertResult, error)
	ListByDay(ctx context.Context, kind domain.EventKind, day time.Time) ([]domain.SignalEvent, error)
	GetByID(ctx context.Context, id int64) (*domain.SignalEvent, error)
}

// ConfidenceScoreStore persists one row per (Day, Brand, Tag, ScoringVersion).
type ConfidenceScoreStore interface {
	// Upsert writes the score, replacing any prior row for the same key so
	// re-running the scorer is idempotent (spec.md §8 round-trip law).
	Upsert(ctx context.Context, s domain.ConfidenceScore) error
	Get(ctx context.Context, day time.Time, brand, tag, scoringVersion string) (*domain.ConfidenceScore, error)
	// NearEventTime returns scores for brand within the time window, used
	// by the recommendation builder to pick the best confidence snapshot
	// (spec.md §4.7).
	NearEventTime(ctx context.Context, brand string, tag string, eventTime time.Time, window time.Duration) ([]domain.ConfidenceScore, error)
}

// RecommendationDraftStore persists the human-gate drafts.
type RecommendationDraftStore interface {
	// InsertIfAbsent registers a draft keyed by EventID; on conflict it is
	// a no-op and returns the existing row.
	InsertIfAbsent(ctx context.Context, d domain.RecommendationDraft) (domain.RecommendationDraft, error)
	GetByEventID(ctx context.Context, eventID int64) (*domain.RecommendationDraft, error)
	// ClaimApproved selects up to limit approved, unnotified,
	// under-max-attempts drafts with row-level skip-locked semantics,
	// incrementing Attempts atomically for each claimed row.
	ClaimApproved(ctx context.Context, limit, maxAttempts int) ([]domain.RecommendationDraft, error)
	// MarkNotified sets NotifiedAt only if Approved still holds.
	MarkNotified(ctx context.Context, id int64, at time.Time) (bool, error)
	MarkFailed(ctx context.Context, id int64, lastError string) error
	Approve(ctx context.Context, eventID int64, approver string, at time.Time) error
	ResetAttempts(ctx context.Context, id int64) error
}

// BrandTickerStore resolves brands to tickers, case-insensitively.
type BrandTickerStore interface {
	Lookup(ctx context.Context, brand string) (*domain.BrandTickerMap, error)
	Upsert(ctx context.Context, m domain.BrandTickerMap) error
	ListUnmapped(ctx context.Context) ([]string, error)
}

// PaperPositionStore persists simulated positions.
type PaperPositionStore interface {
	Insert(ctx context.Context, p domain.PaperPosition) (int64, error)
	GetByEventID(ctx context.Context, eventID int64) (*domain.PaperPosition, error)
	ListOpen(ctx context.Context) ([]domain.PaperPosition, error)
	Update(ctx context.Context, p domain.PaperPosition) error
}

// TrendsValidationStore persists external-search cross-check results.
type TrendsValidationStore interface {
	Insert(ctx context.Context, v domain.TrendsValidation) error
	LatestForBrand(ctx context.Context, brand string, since time.Time) (*domain.TrendsValidation, error)
}

// Projections exposes the read-only aggregation views of spec.md §3.
type Projections interface {
	// DailyBrandTagSummary computes message count, distinct sources,
	// action/eval intent rates per (brand, tag) for the given day.
	DailyBrandTagSummary(ctx context.Context, day time.Time) ([]domain.DailyBrandTag, error)
	// CandidateSignals enriches DailyBrandTagSummary with yesterday's
	// delta and historical daily counts over the configured lookback.
	CandidateSignals(ctx context.Context, day time.Time, lookbackDays int) ([]domain.CandidateSignal, error)
	// ShareOfVoiceChange returns, per brand within tag, the day-over-day
	// percentage-point change in share of that tag's messages, and its
	// z-score against the tag's recent history.
	ShareOfVoiceChange(ctx context.Context, tag string, day time.Time) ([]BrandShareChange, error)
	// Excerpts returns up to limit raw post texts that mention brand and
	// tag within the window around centeredOn, most recent first, used by
	// the recommendation builder for evidence excerpts (spec.md §4.7).
	Excerpts(ctx context.Context, brand, tag string, centeredOn time.Time, window time.Duration, limit int) ([]RawExcerpt, error)
}

// RawExcerpt is one raw post's text and provenance, for recommendation
// evidence bundles.
type RawExcerpt struct {
	RawID      int64
	OccurredAt time.Time
	Text       string
	URL        string
}

// BrandShareChange is one brand's share-of-voice delta within a tag-day.
type BrandShareChange struct {
	Brand        string
	SharePctToday float64
	SharePctPrior float64
	DeltaPct      float64
	ZScore        float64
}

// Store aggregates every repository the pipeline needs, constructed once
// at process start and handed to each stage.
type Store struct {
	RawPosts      RawPostStore
	Processed     ProcessedPostStore
	Behavior      BehaviorStateStore
	Events        SignalEventStore
	Scores        ConfidenceScoreStore
	Drafts        RecommendationDraftStore
	BrandTickers  BrandTickerStore
	Positions     PaperPositionStore
	Trends        TrendsValidationStore
	Projections   Projections
}
