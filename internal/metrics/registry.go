// Package metrics exposes the pipeline's Prometheus metrics: one counter
// or histogram per stage outcome named in spec.md §5's "connection and
// rate-limit resources" and §8's worked-example invariants, grounded on
// the teacher's internal/interfaces/http.MetricsRegistry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Registry holds every Prometheus collector the pipeline's stages write
// to. One Registry is constructed per process and shared by every stage.
type Registry struct {
	PostsIngested   *prometheus.CounterVec
	PostsDuplicate  prometheus.Counter
	PostsFiltered   prometheus.Counter
	FeedFailures    *prometheus.CounterVec

	ExtractionTotal  *prometheus.CounterVec
	ExtractionLatency *prometheus.HistogramVec

	GateFailures *prometheus.CounterVec
	BandCounts   *prometheus.CounterVec

	ValidatorCacheHits   prometheus.Counter
	ValidatorCacheMisses prometheus.Counter
	ValidatorLatency     prometheus.Histogram

	NotifierAttempts *prometheus.CounterVec
	NotifierPoisoned prometheus.Counter

	OpenPositions    prometheus.Gauge
	ClosedPositions  *prometheus.CounterVec
	RealizedPnLTotal prometheus.Gauge
}

// New constructs and registers the Registry against prometheus's default
// registerer.
func New() *Registry {
	r := &Registry{
		PostsIngested: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eva_posts_ingested_total",
				Help: "Total posts admitted by source.",
			},
			[]string{"source"},
		),
		PostsDuplicate: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "eva_posts_duplicate_total",
				Help: "Total posts rejected as duplicates at admission.",
			},
		),
		PostsFiltered: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "eva_posts_filtered_total",
				Help: "Total posts dropped by the ingestion filter policy before admission.",
			},
		),
		FeedFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eva_feed_failures_total",
				Help: "Total feed fetch failures by feed name.",
			},
			[]string{"feed"},
		),

		ExtractionTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eva_extraction_total",
				Help: "Total extraction attempts by processor version (llm/v1, heuristic/v1) and outcome.",
			},
			[]string{"processor_version", "outcome"},
		),
		ExtractionLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "eva_extraction_latency_seconds",
				Help:    "Time to extract structure from one raw post.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"processor_version"},
		),

		GateFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eva_gate_failures_total",
				Help: "Total confidence-scoring gate failures by reason.",
			},
			[]string{"reason"},
		),
		BandCounts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eva_band_assignments_total",
				Help: "Total confidence score rows by assigned band.",
			},
			[]string{"band"},
		),

		ValidatorCacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "eva_validator_cache_hits_total",
				Help: "Total search-interest validator cache hits.",
			},
		),
		ValidatorCacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "eva_validator_cache_misses_total",
				Help: "Total search-interest validator cache misses.",
			},
		),
		ValidatorLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "eva_validator_latency_seconds",
				Help:    "Search-interest validator round-trip latency, cache misses only.",
				Buckets: prometheus.DefBuckets,
			},
		),

		NotifierAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eva_notifier_attempts_total",
				Help: "Total draft delivery attempts by outcome.",
			},
			[]string{"outcome"},
		),
		NotifierPoisoned: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "eva_notifier_poisoned_total",
				Help: "Total drafts that reached MAX_ATTEMPTS and stopped being claimed.",
			},
		),

		OpenPositions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "eva_open_positions",
				Help: "Current count of open paper positions.",
			},
		),
		ClosedPositions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eva_closed_positions_total",
				Help: "Total paper positions closed by exit reason.",
			},
			[]string{"exit_reason"},
		),
		RealizedPnLTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "eva_realized_pnl_dollars_total",
				Help: "Sum of return_dollar across all closed paper positions.",
			},
		),
	}

	prometheus.MustRegister(
		r.PostsIngested, r.PostsDuplicate, r.PostsFiltered, r.FeedFailures,
		r.ExtractionTotal, r.ExtractionLatency,
		r.GateFailures, r.BandCounts,
		r.ValidatorCacheHits, r.ValidatorCacheMisses, r.ValidatorLatency,
		r.NotifierAttempts, r.NotifierPoisoned,
		r.OpenPositions, r.ClosedPositions, r.RealizedPnLTotal,
	)

	log.Info().Msg("metrics registry initialized")
	return r
}

// Handler exposes the registry on the process's metrics HTTP endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.Handler()
}
