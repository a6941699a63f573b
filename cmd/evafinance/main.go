package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jmoiron/sqlx"

	"github.com/Koolhand111/eva-finance/internal/config"
	applog "github.com/Koolhand111/eva-finance/internal/log"
	"github.com/Koolhand111/eva-finance/internal/store"
	"github.com/Koolhand111/eva-finance/internal/store/postgres"
)

const (
	appName = "evafinance"
	version = "v1.0.0"
)

// cliError wraps an exit code alongside the underlying error (spec.md §6:
// 0 success, 1 user error, 2 store error, 3 external provider error).
type cliError struct {
	code int
	err  error
}

func (e *cliError) Error() string { return e.err.Error() }
func (e *cliError) Unwrap() error { return e.err }

func userError(err error) error     { return &cliError{code: 1, err: err} }
func storeError(err error) error    { return &cliError{code: 2, err: err} }
func providerError(err error) error { return &cliError{code: 3, err: err} }

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var ce *cliError
	if e, ok := err.(*cliError); ok {
		ce = e
	}
	if ce != nil {
		return ce.code
	}
	return 1
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	applog.Init(cfg.LogPretty, cfg.LogLevel)

	root := newRootCommand(cfg)
	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg(appName + " exited with error")
		os.Exit(exitCode(err))
	}
}

func newRootCommand(cfg *config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:     appName,
		Short:   "EVA-Finance behavioral brand signal pipeline",
		Version: version,
		Long: `EVA-Finance converts social-media posts into multi-factor behavioral
brand signals: ingestion, extraction, confidence scoring, recommendation
drafting, notification, and paper-position tracking.

Each stage is a long-lived poll loop started with 'serve', or a one-shot
operator task below it.`,
	}

	root.AddCommand(newServeCommand(cfg))
	root.AddCommand(newListUnmappedBrandsCommand(cfg))
	root.AddCommand(newMapBrandCommand(cfg))
	root.AddCommand(newScoreNowCommand(cfg))
	root.AddCommand(newValidateBrandCommand(cfg))
	root.AddCommand(newResetRetriesCommand(cfg))

	return root
}

// appContext returns a context cancelled on SIGINT/SIGTERM, the
// cooperative shutdown signal every poll loop in this module observes
// between cycles (spec.md §5).
func appContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func openStore(cfg *config.Config) (*sqlx.DB, *store.Store, error) {
	db, err := postgres.Open(cfg.DB)
	if err != nil {
		return nil, nil, storeError(err)
	}
	return db, postgres.NewStore(db, cfg.DB.StatementTimeout), nil
}
