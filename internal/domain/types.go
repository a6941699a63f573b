// Package domain holds the core entities of the EVA-Finance signal
// pipeline: the types are semantic, not a schema — persistence lives in
// internal/store.
package domain

import "time"

// Sentiment is the closed enum of post-level sentiment.
type Sentiment string

const (
	StrongPositive Sentiment = "strong_positive"
	Positive       Sentiment = "positive"
	Neutral        Sentiment = "neutral"
	Negative       Sentiment = "negative"
	StrongNegative Sentiment = "strong_negative"
)

// Intent is the closed enum of post-level intent.
type Intent string

const (
	IntentBuy           Intent = "buy"
	IntentOwn           Intent = "own"
	IntentRecommend     Intent = "recommendation"
	IntentComplaint     Intent = "complaint"
	IntentNone          Intent = "none"
)

// BehaviorStateKind is the closed enum for BehaviorState.State.
type BehaviorStateKind string

const (
	StateNormal   BehaviorStateKind = "NORMAL"
	StateElevated BehaviorStateKind = "ELEVATED"
)

// EventKind is the closed enum for SignalEvent.Kind.
type EventKind string

const (
	EventTagElevated          EventKind = "TAG_ELEVATED"
	EventBrandDivergence      EventKind = "BRAND_DIVERGENCE"
	EventWatchlistWarm        EventKind = "WATCHLIST_WARM"
	EventRecommendationEligible EventKind = "RECOMMENDATION_ELIGIBLE"
)

// Severity is the closed enum for SignalEvent.Severity.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Band is the confidence-score classification.
type Band string

const (
	BandHigh       Band = "HIGH"
	BandWatchlist  Band = "WATCHLIST"
	BandSuppressed Band = "SUPPRESSED"
)

// GateFailureReason names which hard gate forced a SUPPRESSED band.
type GateFailureReason string

const (
	GateIntent      GateFailureReason = "GATE_INTENT"
	GateSuppression GateFailureReason = "GATE_SUPPRESSION"
	GateSpread      GateFailureReason = "GATE_SPREAD"
	GateNone        GateFailureReason = ""
)

// ValidationStatus is the closed enum for TrendsValidation.ValidationStatus.
type ValidationStatus string

const (
	ValidationCompleted ValidationStatus = "completed"
	ValidationPending    ValidationStatus = "pending"
)

// TrendDirection is the closed enum for TrendsValidation.TrendDirection.
type TrendDirection string

const (
	TrendRising  TrendDirection = "rising"
	TrendStable  TrendDirection = "stable"
	TrendFalling TrendDirection = "falling"
	TrendUnknown TrendDirection = "unknown"
)

// PositionStatus is the closed enum for PaperPosition.Status.
type PositionStatus string

const (
	PositionOpen   PositionStatus = "open"
	PositionClosed PositionStatus = "closed"
)

// ExitReason is the closed enum for PaperPosition.ExitReason.
type ExitReason string

const (
	ExitNone         ExitReason = ""
	ExitProfitTarget ExitReason = "profit_target"
	ExitStopLoss     ExitReason = "stop_loss"
	ExitTimeExit     ExitReason = "time_exit"
	ExitManual       ExitReason = "manual"
)

// RawPost is an immutable record of one ingested post.
// Invariant: (Source, PlatformID) is unique; text is never mutated in place
// after insert. Invariant: Processed flips to true only once, and only after
// its ProcessedPost has been written (MarkProcessed runs after the
// ProcessedPost insert succeeds) — ClaimedAt is a separate, expiring lease
// and carries no such guarantee.
type RawPost struct {
	ID          int64             `json:"id" db:"id"`
	Source      string            `json:"source" db:"source"`
	PlatformID  string            `json:"platform_id" db:"platform_id"`
	OccurredAt  time.Time         `json:"occurred_at" db:"occurred_at"`
	Text        string            `json:"text" db:"text"`
	URL         *string           `json:"url,omitempty" db:"url"`
	Meta        map[string]string `json:"meta" db:"meta"`
	ClaimedAt   *time.Time        `json:"claimed_at,omitempty" db:"claimed_at"`
	Processed   bool              `json:"processed" db:"processed"`
	CreatedAt   time.Time         `json:"created_at" db:"created_at"`
}

// ProcessedPost is the derived structured view of one RawPost.
// Invariant: at most one row per RawID.
type ProcessedPost struct {
	ID               int64     `json:"id" db:"id"`
	RawID            int64     `json:"raw_id" db:"raw_id"`
	Brands           []string  `json:"brands" db:"brands"`
	Tags             []string  `json:"tags" db:"tags"`
	Sentiment        Sentiment `json:"sentiment" db:"sentiment"`
	Intent           Intent    `json:"intent" db:"intent"`
	Tickers          []string  `json:"tickers" db:"tickers"`
	ProcessorVersion string    `json:"processor_version" db:"processor_version"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

// BehaviorState is the tag-level state machine.
// Invariant: at most one row per Tag; transitions to ELEVATED latch until a
// future scoring run decides otherwise.
type BehaviorState struct {
	Tag        string            `json:"tag" db:"tag"`
	State      BehaviorStateKind `json:"state" db:"state"`
	Confidence float64           `json:"confidence" db:"confidence"`
	FirstSeen  time.Time         `json:"first_seen" db:"first_seen"`
	LastSeen   time.Time         `json:"last_seen" db:"last_seen"`
}

// SignalEvent is an append-only emission record.
// Invariant: unique on (Kind, Tag, Brand, Day).
type SignalEvent struct {
	ID           int64                  `json:"id" db:"id"`
	Kind         EventKind              `json:"kind" db:"kind"`
	Tag          string                 `json:"tag" db:"tag"`
	Brand        string                 `json:"brand" db:"brand"`
	Day          time.Time              `json:"day" db:"day"`
	Severity     Severity               `json:"severity" db:"severity"`
	Payload      map[string]interface{} `json:"payload" db:"payload"`
	Acknowledged bool                   `json:"acknowledged" db:"acknowledged"`
	CreatedAt    time.Time              `json:"created_at" db:"created_at"`
}

// FactorScores holds the five [0,1] factor scores that feed ConfidenceScore.
type FactorScores struct {
	Acceleration float64 `json:"acceleration"`
	Intent       float64 `json:"intent"`
	Spread       float64 `json:"spread"`
	Baseline     float64 `json:"baseline"`
	Suppression  float64 `json:"suppression"`
}

// ConfidenceScore is one row per (Day, Brand, Tag, ScoringVersion).
type ConfidenceScore struct {
	ID              int64                  `json:"id" db:"id"`
	Day             time.Time              `json:"day" db:"day"`
	Brand           string                 `json:"brand" db:"brand"`
	Tag             string                 `json:"tag" db:"tag"`
	ScoringVersion  string                 `json:"scoring_version" db:"scoring_version"`
	Factors         FactorScores           `json:"factors" db:"factors"`
	Final           float64                `json:"final" db:"final"`
	Band            Band                   `json:"band" db:"band"`
	GateFailedReason GateFailureReason     `json:"gate_failed_reason" db:"gate_failed_reason"`
	Details         map[string]interface{} `json:"details" db:"details"`
	CreatedAt       time.Time              `json:"created_at" db:"created_at"`
}

// RecommendationDraft is the human-gate record for one eligible event.
// Invariants: one draft per EventID; NotifiedAt set only when Approved;
// once Attempts reaches the notifier's MAX_ATTEMPTS the row is no longer
// claimable.
type RecommendationDraft struct {
	ID               int64      `json:"id" db:"id"`
	EventID          int64      `json:"event_id" db:"event_id"`
	Brand            string     `json:"brand" db:"brand"`
	Tag              string     `json:"tag" db:"tag"`
	EventTime        time.Time  `json:"event_time" db:"event_time"`
	Confidence       float64    `json:"confidence" db:"confidence"`
	Band             Band       `json:"band" db:"band"`
	BundlePath       string     `json:"bundle_path" db:"bundle_path"`
	BundleSHA256     string     `json:"bundle_sha256" db:"bundle_sha256"`
	DraftPath        string     `json:"draft_path" db:"draft_path"`
	DraftSHA256      string     `json:"draft_sha256" db:"draft_sha256"`
	Approved         bool       `json:"approved" db:"approved"`
	ApprovedBy       *string    `json:"approved_by,omitempty" db:"approved_by"`
	ApprovedAt       *time.Time `json:"approved_at,omitempty" db:"approved_at"`
	NotifiedAt       *time.Time `json:"notified_at,omitempty" db:"notified_at"`
	Attempts         int        `json:"attempts" db:"attempts"`
	LastError        string     `json:"last_error" db:"last_error"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
}

// BrandTickerMap maps a brand (case-insensitively) to a tradable ticker.
type BrandTickerMap struct {
	Brand    string `json:"brand" db:"brand"`
	Ticker   *string `json:"ticker,omitempty" db:"ticker"`
	Parent   string `json:"parent" db:"parent"`
	Material bool   `json:"material" db:"material"`
	Exchange string `json:"exchange" db:"exchange"`
}

// PaperPosition simulates a $1,000 investment position opened off an
// approved eligible signal.
// Invariants: Closed implies all exit fields populated; ExitDate >= EntryDate.
type PaperPosition struct {
	ID           int64      `json:"id" db:"id"`
	EventID      int64      `json:"event_id" db:"event_id"`
	Brand        string     `json:"brand" db:"brand"`
	Tag          string     `json:"tag" db:"tag"`
	Ticker       string     `json:"ticker" db:"ticker"`
	EntryDate    time.Time  `json:"entry_date" db:"entry_date"`
	EntryPrice   float64    `json:"entry_price" db:"entry_price"`
	CurrentPrice float64    `json:"current_price" db:"current_price"`
	SizeDollars  float64    `json:"size_dollars" db:"size_dollars"`
	Status       PositionStatus `json:"status" db:"status"`
	ExitDate     *time.Time `json:"exit_date,omitempty" db:"exit_date"`
	ExitPrice    *float64   `json:"exit_price,omitempty" db:"exit_price"`
	ExitReason   ExitReason `json:"exit_reason" db:"exit_reason"`
	ReturnPct    float64    `json:"return_pct" db:"return_pct"`
	ReturnDollar float64    `json:"return_dollar" db:"return_dollar"`
	DaysHeld     int        `json:"days_held" db:"days_held"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}

// TrendsValidation is the external-search cross-check result for one brand.
type TrendsValidation struct {
	ID               int64            `json:"id" db:"id"`
	Brand            string           `json:"brand" db:"brand"`
	CheckedAt        time.Time        `json:"checked_at" db:"checked_at"`
	SearchInterest   float64          `json:"search_interest" db:"search_interest"`
	TrendDirection   TrendDirection   `json:"trend_direction" db:"trend_direction"`
	ValidatesSignal  bool             `json:"validates_signal" db:"validates_signal"`
	ConfidenceBoost  float64          `json:"confidence_boost" db:"confidence_boost"`
	ValidationStatus ValidationStatus `json:"validation_status" db:"validation_status"`
}

// DailyBrandTag is the read-only daily brand+tag summary projection.
type DailyBrandTag struct {
	Day               time.Time `json:"day" db:"day"`
	Brand             string    `json:"brand" db:"brand"`
	Tag               string    `json:"tag" db:"tag"`
	MessageCount      int       `json:"message_count" db:"message_count"`
	DistinctSources   int       `json:"distinct_sources" db:"distinct_sources"`
	DistinctPlatforms int       `json:"distinct_platforms" db:"distinct_platforms"`
	ActionIntentRate  float64   `json:"action_intent_rate" db:"action_intent_rate"`
	EvalIntentRate    float64   `json:"eval_intent_rate" db:"eval_intent_rate"`
}

// CandidateSignal is the candidate-signal projection: a DailyBrandTag
// enriched with yesterday's delta and a meme-risk heuristic.
type CandidateSignal struct {
	DailyBrandTag
	YesterdayMessageCount int     `json:"yesterday_message_count"`
	YesterdayDelta        float64 `json:"yesterday_delta"`
	MemeRisk               float64 `json:"meme_risk"`
	HistoricalDailyCounts  []int   `json:"historical_daily_counts"`
}
