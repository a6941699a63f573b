package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Koolhand111/eva-finance/internal/admission"
	"github.com/Koolhand111/eva-finance/internal/aggregate"
	"github.com/Koolhand111/eva-finance/internal/config"
	"github.com/Koolhand111/eva-finance/internal/extract"
	"github.com/Koolhand111/eva-finance/internal/ingest"
	"github.com/Koolhand111/eva-finance/internal/metrics"
	"github.com/Koolhand111/eva-finance/internal/notify"
	"github.com/Koolhand111/eva-finance/internal/position"
	"github.com/Koolhand111/eva-finance/internal/recommend"
	"github.com/Koolhand111/eva-finance/internal/score"
	"github.com/Koolhand111/eva-finance/internal/validate"
)

// globalMetrics is process-wide: every subcommand's stage shares one
// Prometheus registry so a single /metrics endpoint reflects all of them.
var globalMetrics = metrics.New()

func newServeCommand(cfg *config.Config) *cobra.Command {
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run a long-lived pipeline stage",
	}

	serve.AddCommand(&cobra.Command{
		Use:   "admission",
		Short: "Run the admission HTTP endpoint",
		RunE:  func(cmd *cobra.Command, args []string) error { return runAdmission(cfg) },
	})
	serve.AddCommand(&cobra.Command{
		Use:   "ingest",
		Short: "Poll configured feeds and deliver admitted posts",
		RunE:  func(cmd *cobra.Command, args []string) error { return runIngest(cfg) },
	})
	serve.AddCommand(&cobra.Command{
		Use:   "extract",
		Short: "Claim unprocessed posts and extract structure",
		RunE:  func(cmd *cobra.Command, args []string) error { return runExtract(cfg) },
	})
	serve.AddCommand(&cobra.Command{
		Use:   "score",
		Short: "Run one day's aggregation, scoring, and recommendation build",
		RunE:  func(cmd *cobra.Command, args []string) error { return runScoreOnce(cfg, time.Now().UTC()) },
	})
	serve.AddCommand(&cobra.Command{
		Use:   "notify",
		Short: "Poll for approved drafts and deliver them",
		RunE:  func(cmd *cobra.Command, args []string) error { return runNotify(cfg) },
	})
	serve.AddCommand(&cobra.Command{
		Use:   "positions",
		Short: "Run the paper-position entry and update loop",
		RunE:  func(cmd *cobra.Command, args []string) error { return runPositions(cfg) },
	})
	serve.AddCommand(&cobra.Command{
		Use:   "metrics",
		Short: "Expose the Prometheus /metrics endpoint",
		RunE:  func(cmd *cobra.Command, args []string) error { return runMetrics(cfg) },
	})

	return serve
}

func runMetrics(cfg *config.Config) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", globalMetrics.Handler())
	srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}

	ctx, cancel := appContext()
	defer cancel()
	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := appContext()
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", cfg.MetricsAddr).Msg("metrics server listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return providerError(err)
	}
	return nil
}

func runAdmission(cfg *config.Config) error {
	_, st, err := openStore(cfg)
	if err != nil {
		return err
	}
	srv, err := admission.New(admission.DefaultConfig(cfg.AdmissionAddr), st.RawPosts, log.Logger.With().Str("stage", "admission").Logger())
	if err != nil {
		return storeError(err)
	}

	ctx, cancel := appContext()
	defer cancel()
	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := appContext()
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.Start(); err != nil {
		return providerError(err)
	}
	return nil
}

// defaultFeeds is the built-in feed list used when EVA_FEEDS_FILE is unset.
func defaultFeeds() []ingest.Feed {
	return []ingest.Feed{
		ingest.NewRedditFeed("running", "https://www.reddit.com"),
		ingest.NewRedditFeed("sneakers", "https://www.reddit.com"),
	}
}

func runIngest(cfg *config.Config) error {
	_, st, err := openStore(cfg)
	if err != nil {
		return err
	}
	_ = st // ingestion posts through admission's HTTP surface, not the store directly

	feeds := defaultFeeds()
	if cfg.FeedList != nil {
		feeds = make([]ingest.Feed, 0, len(cfg.FeedList.Feeds))
		for _, f := range cfg.FeedList.Feeds {
			feeds = append(feeds, ingest.NewRedditFeed(f.Community, f.BaseURL))
		}
		log.Info().Str("file", cfg.FeedsFile).Int("count", len(feeds)).Msg("loaded feed list from EVA_FEEDS_FILE")
	}
	conductor := ingest.New(cfg.Ingest, feeds, "http://"+cfg.AdmissionAddr, log.Logger.With().Str("stage", "ingest").Logger())
	conductor.SetMetrics(globalMetrics)

	ctx, cancel := appContext()
	defer cancel()
	if err := conductor.PollLoop(ctx); err != nil && ctx.Err() == nil {
		return providerError(err)
	}
	return nil
}

func runExtract(cfg *config.Config) error {
	_, st, err := openStore(cfg)
	if err != nil {
		return err
	}
	extractor := extract.New(cfg.Extract, cfg.LLM, st.RawPosts, st.Processed, log.Logger.With().Str("stage", "extract").Logger())
	extractor.SetMetrics(globalMetrics)

	ctx, cancel := appContext()
	defer cancel()
	if err := extractor.PollLoop(ctx); err != nil && ctx.Err() == nil {
		return providerError(err)
	}
	return nil
}

func runScoreOnce(cfg *config.Config, day time.Time) error {
	_, st, err := openStore(cfg)
	if err != nil {
		return err
	}
	lg := log.Logger

	em := aggregate.New(st.Projections, st.Behavior, st.Events, lg.With().Str("stage", "aggregate").Logger())
	if _, err := em.RunDay(context.Background(), day); err != nil {
		return storeError(err)
	}

	validator := validate.NewSearchValidator(cfg.Trends, lg.With().Str("stage", "validate").Logger())
	validator.SetMetrics(globalMetrics)
	scorer := score.New(cfg.Scoring, st.Projections, st.Scores, st.Events, validator, lg.With().Str("stage", "score").Logger())
	scorer.SetMetrics(globalMetrics)
	if _, err := scorer.RunDay(context.Background(), day, cfg.Trends.MinConfidence, cfg.Trends); err != nil {
		return storeError(err)
	}

	builder := recommend.New(cfg.Recommend, st.Events, st.Scores, st.Projections, st.Drafts, lg.With().Str("stage", "recommend").Logger())
	if _, err := builder.RunDay(context.Background(), day); err != nil {
		return storeError(err)
	}

	fmt.Println("score-now complete for", day.Format("2006-01-02"))
	return nil
}

func runNotify(cfg *config.Config) error {
	_, st, err := openStore(cfg)
	if err != nil {
		return err
	}
	notifier := notify.New(cfg.Notify, st.Drafts, log.Logger.With().Str("stage", "notify").Logger())
	notifier.SetMetrics(globalMetrics)

	ctx, cancel := appContext()
	defer cancel()
	if err := notifier.PollLoop(ctx); err != nil && ctx.Err() == nil {
		return providerError(err)
	}
	return nil
}

func runPositions(cfg *config.Config) error {
	_, st, err := openStore(cfg)
	if err != nil {
		return err
	}
	prices := position.NewPriceClient(cfg.Position)
	runner := position.New(cfg.Position, st.Positions, st.BrandTickers, st.Events, prices, log.Logger.With().Str("stage", "position").Logger())
	runner.SetMetrics(globalMetrics)

	ctx, cancel := appContext()
	defer cancel()
	ticker := time.NewTicker(12 * time.Hour)
	defer ticker.Stop()

	for {
		day := time.Now().UTC()
		if _, err := runner.RunEntries(ctx, day); err != nil {
			log.Error().Err(err).Msg("position entry cycle failed")
		}
		if _, err := runner.RunUpdates(ctx); err != nil {
			log.Error().Err(err).Msg("position update cycle failed")
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil
		}
	}
}
