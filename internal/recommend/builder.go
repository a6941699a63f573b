package recommend

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/Koolhand111/eva-finance/internal/config"
	"github.com/Koolhand111/eva-finance/internal/domain"
	atomicio "github.com/Koolhand111/eva-finance/internal/io"
	"github.com/Koolhand111/eva-finance/internal/store"
)

// Builder turns RECOMMENDATION_ELIGIBLE events into evidence bundles,
// markdown drafts, and RecommendationDraft rows.
type Builder struct {
	cfg      config.RecommendConfig
	events   store.SignalEventStore
	scores   store.ConfidenceScoreStore
	proj     store.Projections
	drafts   store.RecommendationDraftStore
	log      zerolog.Logger
}

// New constructs a Builder.
func New(cfg config.RecommendConfig, events store.SignalEventStore, scores store.ConfidenceScoreStore, proj store.Projections, drafts store.RecommendationDraftStore, log zerolog.Logger) *Builder {
	return &Builder{cfg: cfg, events: events, scores: scores, proj: proj, drafts: drafts, log: log}
}

// RunDay builds drafts for every RECOMMENDATION_ELIGIBLE event on day that
// does not already have one, returning the count newly registered.
func (b *Builder) RunDay(ctx context.Context, day time.Time) (int, error) {
	events, err := b.events.ListByDay(ctx, domain.EventRecommendationEligible, day)
	if err != nil {
		return 0, domain.NewStoreTransient("recommend", "list eligible events", err)
	}

	if err := os.MkdirAll(filepath.Join(b.cfg.OutputDir, "bundles"), 0755); err != nil {
		return 0, domain.NewStorePermanent("recommend", "create bundle output dir", err)
	}
	if err := os.MkdirAll(filepath.Join(b.cfg.OutputDir, "drafts"), 0755); err != nil {
		return 0, domain.NewStorePermanent("recommend", "create draft output dir", err)
	}

	built := 0
	for _, event := range events {
		ok, err := b.buildOne(ctx, event)
		if err != nil {
			b.log.Error().Err(err).Int64("event_id", event.ID).Msg("recommendation build failed")
			continue
		}
		if ok {
			built++
		}
	}
	return built, nil
}

func (b *Builder) buildOne(ctx context.Context, event domain.SignalEvent) (bool, error) {
	existing, err := b.drafts.GetByEventID(ctx, event.ID)
	if err != nil {
		return false, domain.NewStoreTransient("recommend", "get existing draft", err)
	}
	if existing != nil {
		return false, nil
	}

	window := b.cfg.SnapshotWindow
	candidates, err := b.scores.NearEventTime(ctx, event.Brand, event.Tag, event.Day, window)
	if err != nil {
		return false, domain.NewStoreTransient("recommend", "load confidence snapshots", err)
	}
	snapshot := pickSnapshot(candidates, event.Tag, event.Day)

	excerpts, err := b.proj.Excerpts(ctx, event.Brand, event.Tag, event.Day, window, b.cfg.MaxExcerpts)
	if err != nil {
		return false, domain.NewStoreTransient("recommend", "load excerpts", err)
	}

	now := time.Now().UTC()
	bundle := buildBundle(event, snapshot, excerpts, b.cfg.MaxExcerpts, b.cfg.MaxExcerptChars, now)

	bundleData, bundleSHA, err := marshalAndHash(bundle)
	if err != nil {
		return false, domain.NewStorePermanent("recommend", "marshal bundle", err)
	}
	bundlePath := filepath.Join(b.cfg.OutputDir, "bundles", fmt.Sprintf("event-%d-%s.json", event.ID, bundleSHA[:12]))
	if err := atomicio.WriteFileAtomic(bundlePath, bundleData); err != nil {
		return false, domain.NewStorePermanent("recommend", "write bundle file", err)
	}

	draftData, err := renderDraft(event, bundle, bundleSHA)
	if err != nil {
		return false, domain.NewStorePermanent("recommend", "render draft", err)
	}
	draftSum := sha256.Sum256(draftData)
	draftSHA := hex.EncodeToString(draftSum[:])
	draftPath := filepath.Join(b.cfg.OutputDir, "drafts", fmt.Sprintf("event-%d-%s.md", event.ID, draftSHA[:12]))
	if err := atomicio.WriteFileAtomic(draftPath, draftData); err != nil {
		return false, domain.NewStorePermanent("recommend", "write draft file", err)
	}

	confidence := 0.0
	band := domain.BandWatchlist
	if snapshot != nil {
		confidence = snapshot.Final
		band = snapshot.Band
	}

	_, err = b.drafts.InsertIfAbsent(ctx, domain.RecommendationDraft{
		EventID:      event.ID,
		Brand:        event.Brand,
		Tag:          event.Tag,
		EventTime:    event.Day,
		Confidence:   confidence,
		Band:         band,
		BundlePath:   bundlePath,
		BundleSHA256: bundleSHA,
		DraftPath:    draftPath,
		DraftSHA256:  draftSHA,
	})
	if err != nil {
		return false, domain.NewStoreTransient("recommend", "register draft", err)
	}

	b.log.Info().Int64("event_id", event.ID).Str("brand", event.Brand).Str("tag", event.Tag).Msg("recommendation draft registered")
	return true, nil
}
