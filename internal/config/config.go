// Package config loads the process-wide EVA-Finance configuration once, at
// start, into an immutable value — every setting in spec.md §6 reaches code
// through this surface, never through an ad-hoc os.Getenv scattered in a
// component.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ScoringConfig holds the confidence scorer's gates, bands, and factor
// weights (spec.md §4.5). Weights must sum to 1.
type ScoringConfig struct {
	GateIntent      float64
	GateSuppression float64
	GateSpread      float64
	BandHigh        float64
	BandWatchlist   float64

	WeightAcceleration float64
	WeightIntent       float64
	WeightSpread       float64
	WeightBaseline     float64
	WeightSuppression  float64

	ScoringVersion   string
	LookbackDays     int // configurable multi-day accumulation window (Open Question, see DESIGN.md)
}

// TrendsConfig holds the external-search validator's configuration
// (spec.md §4.6).
type TrendsConfig struct {
	Enabled        bool
	CacheTTL       time.Duration
	MinConfidence  float64
	RequestPacing  time.Duration
	BackoffBase    time.Duration
	BackoffCap     time.Duration
	MaxRetries     int
	ProviderURL    string
	APIKey         string
}

// DBConfig holds relational-store connection settings.
type DBConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	StatementTimeout time.Duration
}

// LLMConfig holds the primary extraction provider's settings.
type LLMConfig struct {
	ProviderURL string
	APIKey      string
	Model       string
	Timeout     time.Duration
}

// IngestConfig holds the ingestion conductor's cadence and pacing.
type IngestConfig struct {
	CycleInterval   time.Duration
	FeedPacingDelay time.Duration
	PerFeedLimit    int
	MinBodyLength   int
}

// ExtractConfig holds the extractor's claim-loop settings.
type ExtractConfig struct {
	BatchSize   int
	IdleSleep   time.Duration
	LLMTimeout  time.Duration
	// ClaimLease bounds how long a claimed-but-not-yet-processed raw post
	// stays invisible to other workers before it is eligible to be
	// re-claimed, the way a crashed or stuck worker releases its lease.
	ClaimLease  time.Duration
}

// NotifyConfig holds the notifier's claim/delivery settings.
type NotifyConfig struct {
	ClaimBatchSize int
	MaxAttempts    int
	DeliveryTimeout time.Duration
	GatewayURL     string
	PollInterval   time.Duration
}

// RecommendConfig holds the recommendation builder's bundle/draft output
// settings (spec.md §4.7).
type RecommendConfig struct {
	OutputDir        string
	MaxExcerpts      int
	MaxExcerptChars  int
	SnapshotWindow   time.Duration
}

// PositionConfig holds the paper-position loop's simulated-trading
// parameters (spec.md §4.9).
type PositionConfig struct {
	SizeDollars       float64
	ProfitTargetPct   float64
	StopLossPct       float64
	TimeExitDays      int
	MarketPriceURL    string
	MarketPriceKey    string
	TickerLookupURL   string
	TickerLookupKey   string
}

// Config is the immutable, process-wide configuration, loaded once at
// start by Load.
type Config struct {
	Env           string
	LogLevel      string
	LogPretty     bool
	AdmissionAddr string
	MetricsAddr   string

	DB       DBConfig
	LLM      LLMConfig
	Scoring  ScoringConfig
	Trends   TrendsConfig
	Ingest    IngestConfig
	Extract   ExtractConfig
	Notify    NotifyConfig
	Recommend RecommendConfig
	Position  PositionConfig

	// FeedsFile is the optional path named by EVA_FEEDS_FILE. When set,
	// FeedList holds its parsed contents and Ingest's feed list and
	// Scoring's weights are overridden from it; see LoadFeedList.
	FeedsFile string
	FeedList  *FeedListFile
}

// Load reads the environment (optionally seeded by a .env file, the way
// y437li-agentic_valuation and ChoSanghyuk-blackholedex both load local
// secrets) into a validated Config. It is meant to run exactly once, at
// process start.
func Load() (*Config, error) {
	_ = godotenv.Load() // best-effort; absence of a .env file is not an error

	cfg := &Config{
		Env:           getString("EVA_ENV", "development"),
		LogLevel:      getString("EVA_LOG_LEVEL", "info"),
		LogPretty:     getBool("EVA_LOG_PRETTY", true),
		AdmissionAddr: getString("EVA_ADMISSION_ADDR", ":8080"),
		MetricsAddr:   getString("EVA_METRICS_ADDR", ":9090"),

		DB: DBConfig{
			DSN:              getString("EVA_DB_DSN", "postgres://localhost:5432/evafinance?sslmode=disable"),
			MaxOpenConns:     getInt("EVA_DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:     getInt("EVA_DB_MAX_IDLE_CONNS", 2),
			ConnMaxLifetime:  getDuration("EVA_DB_CONN_MAX_LIFETIME", 30*time.Minute),
			StatementTimeout: getDuration("EVA_DB_STATEMENT_TIMEOUT", 10*time.Second),
		},

		LLM: LLMConfig{
			ProviderURL: getString("EVA_LLM_URL", ""),
			APIKey:      getString("EVA_LLM_API_KEY", ""),
			Model:       getString("EVA_LLM_MODEL", ""),
			Timeout:     getDuration("EVA_LLM_TIMEOUT", 20*time.Second),
		},

		Scoring: ScoringConfig{
			GateIntent:      getFloat("EVA_GATE_INTENT", 0.50),
			GateSuppression: getFloat("EVA_GATE_SUPPRESSION", 0.40),
			GateSpread:      getFloat("EVA_GATE_SPREAD", 0.25),
			BandHigh:        getFloat("EVA_BAND_HIGH", 0.60),
			BandWatchlist:   getFloat("EVA_BAND_WATCHLIST", 0.50),

			WeightAcceleration: getFloat("EVA_WEIGHT_ACCELERATION", 0.15),
			WeightIntent:       getFloat("EVA_WEIGHT_INTENT", 0.35),
			WeightSpread:       getFloat("EVA_WEIGHT_SPREAD", 0.25),
			WeightBaseline:     getFloat("EVA_WEIGHT_BASELINE", 0.15),
			WeightSuppression:  getFloat("EVA_WEIGHT_SUPPRESSION", 0.10),

			ScoringVersion: getString("EVA_SCORING_VERSION", "v1"),
			LookbackDays:   getInt("EVA_SCORING_LOOKBACK_DAYS", 14),
		},

		Trends: TrendsConfig{
			Enabled:       getBool("TRENDS_ENABLED", true),
			CacheTTL:      time.Duration(getInt("TRENDS_CACHE_HOURS", 24)) * time.Hour,
			MinConfidence: getFloat("TRENDS_MIN_CONFIDENCE", 0.60),
			RequestPacing: getDuration("TRENDS_REQUEST_PACING", 1500*time.Millisecond),
			BackoffBase:   getDuration("TRENDS_BACKOFF_BASE", 5*time.Second),
			BackoffCap:    getDuration("TRENDS_BACKOFF_CAP", 120*time.Second),
			MaxRetries:    getInt("TRENDS_MAX_RETRIES", 3),
			ProviderURL:   getString("TRENDS_PROVIDER_URL", ""),
			APIKey:        getString("TRENDS_API_KEY", ""),
		},

		Ingest: IngestConfig{
			CycleInterval:   getDuration("EVA_INGEST_CYCLE_INTERVAL", 15*time.Minute),
			FeedPacingDelay: getDuration("EVA_INGEST_FEED_PACING", 2*time.Second),
			PerFeedLimit:    getInt("EVA_INGEST_PER_FEED_LIMIT", 100),
			MinBodyLength:   getInt("EVA_INGEST_MIN_BODY_LENGTH", 10),
		},

		Extract: ExtractConfig{
			BatchSize:  getInt("EVA_EXTRACT_BATCH_SIZE", 20),
			IdleSleep:  getDuration("EVA_EXTRACT_IDLE_SLEEP", 10*time.Second),
			LLMTimeout: getDuration("EVA_EXTRACT_LLM_TIMEOUT", 20*time.Second),
			ClaimLease: getDuration("EVA_EXTRACT_CLAIM_LEASE", 5*time.Minute),
		},

		Notify: NotifyConfig{
			ClaimBatchSize:  getInt("EVA_NOTIFY_CLAIM_BATCH_SIZE", 10),
			MaxAttempts:     getInt("EVA_NOTIFY_MAX_ATTEMPTS", 5),
			DeliveryTimeout: getDuration("EVA_NOTIFY_DELIVERY_TIMEOUT", 10*time.Second),
			GatewayURL:      getString("EVA_PUSH_GATEWAY_URL", ""),
			PollInterval:    getDuration("EVA_NOTIFY_POLL_INTERVAL", 30*time.Second),
		},

		Recommend: RecommendConfig{
			OutputDir:       getString("EVA_RECOMMEND_OUTPUT_DIR", "./data/recommendations"),
			MaxExcerpts:     getInt("EVA_RECOMMEND_MAX_EXCERPTS", 15),
			MaxExcerptChars: getInt("EVA_RECOMMEND_MAX_EXCERPT_CHARS", 400),
			SnapshotWindow:  getDuration("EVA_RECOMMEND_SNAPSHOT_WINDOW", 48*time.Hour),
		},

		Position: PositionConfig{
			SizeDollars:     getFloat("EVA_POSITION_SIZE_DOLLARS", 1000.0),
			ProfitTargetPct: getFloat("EVA_POSITION_PROFIT_TARGET", 0.15),
			StopLossPct:     getFloat("EVA_POSITION_STOP_LOSS", -0.10),
			TimeExitDays:    getInt("EVA_POSITION_TIME_EXIT_DAYS", 90),
			MarketPriceURL:  getString("EVA_MARKET_PRICE_URL", ""),
			MarketPriceKey:  getString("EVA_MARKET_PRICE_KEY", ""),
			TickerLookupURL: getString("EVA_TICKER_LOOKUP_URL", ""),
			TickerLookupKey: getString("EVA_TICKER_LOOKUP_KEY", ""),
		},
	}

	cfg.FeedsFile = getString("EVA_FEEDS_FILE", "")
	feedList, err := LoadFeedList(cfg.FeedsFile)
	if err != nil {
		return nil, err
	}
	if feedList != nil {
		cfg.FeedList = feedList
		feedList.Weights.Apply(&cfg.Scoring)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	s := c.Scoring
	sum := s.WeightAcceleration + s.WeightIntent + s.WeightSpread + s.WeightBaseline + s.WeightSuppression
	if sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("scoring weights must sum to 1.0, got %f", sum)
	}
	for name, v := range map[string]float64{
		"EVA_GATE_INTENT":      s.GateIntent,
		"EVA_GATE_SUPPRESSION": s.GateSuppression,
		"EVA_GATE_SPREAD":      s.GateSpread,
		"EVA_BAND_HIGH":        s.BandHigh,
		"EVA_BAND_WATCHLIST":   s.BandWatchlist,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be in [0,1], got %f", name, v)
		}
	}
	if s.BandWatchlist > s.BandHigh {
		return fmt.Errorf("EVA_BAND_WATCHLIST must be <= EVA_BAND_HIGH")
	}
	if c.Notify.MaxAttempts < 1 {
		return fmt.Errorf("EVA_NOTIFY_MAX_ATTEMPTS must be >= 1")
	}
	return nil
}

func getString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return def
}

func getBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
