// Package log wraps zerolog with the stage + correlation-id conventions
// every long-lived component in EVA-Finance shares.
package log

import (
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init configures the global zerolog logger the way cmd/evafinance's main
// does at process start: RFC3339 timestamps, a console writer in dev,
// JSON in production.
func Init(pretty bool, level string) {
	zerolog.TimeFieldFormat = time.RFC3339
	if lvl, err := zerolog.ParseLevel(level); err == nil && level != "" {
		zerolog.SetGlobalLevel(lvl)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
}

// NewRunID mints a correlation id for one poll-loop cycle or one-shot task.
func NewRunID() string {
	return uuid.NewString()
}

// Stage returns a sub-logger stamped with a stage name and a run id, the
// unit every component logs through. Never pass raw post text or anything
// but a hashed identifier through fields on this logger (spec: operator
// logs must never contain PII).
func Stage(stage, runID string) zerolog.Logger {
	return log.With().Str("stage", stage).Str("run_id", runID).Logger()
}
