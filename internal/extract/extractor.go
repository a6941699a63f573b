// Package extract converts RawPost rows into ProcessedPost rows (spec.md
// §4.3): a model-backed primary path with a deterministic lexicon fallback
// that guarantees extraction never blocks the pipeline.
package extract

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Koolhand111/eva-finance/internal/config"
	"github.com/Koolhand111/eva-finance/internal/domain"
	"github.com/Koolhand111/eva-finance/internal/metrics"
	"github.com/Koolhand111/eva-finance/internal/store"
)

const processorVersionLLM = "llm/v1"
const processorVersionHeuristic = "heuristic/v1"

// Extractor runs the claim-and-process loop described in spec.md §4.3.
type Extractor struct {
	cfg    config.ExtractConfig
	rawPosts store.RawPostStore
	processed store.ProcessedPostStore
	llm    *llmClient
	vocab  Vocabulary
	metrics *metrics.Registry
	log    zerolog.Logger
}

// SetMetrics attaches a Prometheus registry; nil (the default) disables
// instrumentation.
func (e *Extractor) SetMetrics(m *metrics.Registry) { e.metrics = m }

// New constructs an Extractor. llmCfg.ProviderURL empty disables the
// primary path entirely and every post goes straight to the heuristic.
func New(cfg config.ExtractConfig, llmCfg config.LLMConfig, rawPosts store.RawPostStore, processed store.ProcessedPostStore, log zerolog.Logger) *Extractor {
	return &Extractor{
		cfg:       cfg,
		rawPosts:  rawPosts,
		processed: processed,
		llm:       newLLMClient(llmCfg),
		vocab:     DefaultVocabulary(),
		log:       log,
	}
}

// RunCycle claims up to BatchSize unprocessed raw posts and extracts each.
// It returns the number processed. Zero claimed is not an error — the
// caller (the poll loop) is responsible for the idle sleep.
func (e *Extractor) RunCycle(ctx context.Context) (int, error) {
	claimed, err := e.rawPosts.ClaimUnprocessed(ctx, e.cfg.BatchSize, e.cfg.ClaimLease)
	if err != nil {
		return 0, domain.NewStoreTransient("extract", "claim unprocessed raw posts", err)
	}

	for _, raw := range claimed {
		if err := e.processOne(ctx, raw); err != nil {
			e.log.Error().Err(err).Int64("raw_id", raw.ID).Msg("extraction failed, row stays leased for reclaim after lease expiry")
		}
	}
	return len(claimed), nil
}

// PollLoop runs RunCycle repeatedly until ctx is cancelled, sleeping
// IdleSleep whenever a cycle claims nothing (spec.md §4.3 "work-conserving
// loop with a short sleep when the batch is empty").
func (e *Extractor) PollLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, err := e.RunCycle(ctx)
		if err != nil {
			e.log.Error().Err(err).Msg("extraction cycle failed")
		}
		if n == 0 {
			select {
			case <-time.After(e.cfg.IdleSleep):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func (e *Extractor) processOne(ctx context.Context, raw domain.RawPost) error {
	started := time.Now()
	result, processorVersion := e.extract(ctx, raw.Text)
	if e.metrics != nil {
		e.metrics.ExtractionLatency.WithLabelValues(processorVersion).Observe(time.Since(started).Seconds())
	}

	processed := domain.ProcessedPost{
		RawID:            raw.ID,
		Brands:           result.Brands,
		Tags:             result.Tags,
		Sentiment:        result.Sentiment,
		Intent:           result.Intent,
		Tickers:          nil,
		ProcessorVersion: processorVersion,
	}
	if processed.Sentiment == "" {
		processed.Sentiment = domain.Neutral
	}
	if processed.Intent == "" {
		processed.Intent = domain.IntentNone
	}

	if err := e.processed.Insert(ctx, processed); err != nil {
		if e.metrics != nil {
			e.metrics.ExtractionTotal.WithLabelValues(processorVersion, "error").Inc()
		}
		return domain.NewStoreTransient("extract", "insert processed post", err)
	}

	// Only now, with the ProcessedPost durably written, is it safe to flip
	// processed=true: a raw post must never carry processed=true without a
	// ProcessedPost to match it. If this fails the row stays leased and
	// falls back to the claim pool once the lease expires; Insert above is
	// idempotent (ON CONFLICT (raw_id) DO NOTHING) so the retry is safe.
	if err := e.rawPosts.MarkProcessed(ctx, raw.ID); err != nil {
		if e.metrics != nil {
			e.metrics.ExtractionTotal.WithLabelValues(processorVersion, "error").Inc()
		}
		return domain.NewStoreTransient("extract", "mark raw post processed", err)
	}

	if e.metrics != nil {
		e.metrics.ExtractionTotal.WithLabelValues(processorVersion, "ok").Inc()
	}
	return nil
}

// extract tries the primary model-backed path; any failure there falls
// through to the deterministic heuristic, which always succeeds (spec.md
// §4.3: "Extraction MUST NOT fail").
func (e *Extractor) extract(ctx context.Context, text string) (heuristicResult, string) {
	resp, err := e.llm.extract(ctx, text)
	if err != nil {
		e.log.Debug().Err(err).Msg("primary extraction unavailable, using heuristic fallback")
		return extractHeuristic(e.vocab, text), processorVersionHeuristic
	}

	result := resp.toHeuristicResult()
	enforceMultiBrandComparative(e.vocab, strings.ToLower(text), &result)
	return result, processorVersionLLM
}
