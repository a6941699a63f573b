package domain

import (
	"fmt"
	"time"
)

// ErrKind classifies failures by the taxonomy of spec.md §7, not by Go type.
type ErrKind string

const (
	// KindTransientExternal covers timeouts and rate-limit responses from
	// the LLM, search, market-price, and push providers. Recovered locally
	// by retry with backoff.
	KindTransientExternal ErrKind = "transient_external"
	// KindPermanentExternal covers auth failures and 4xx contract
	// violations from an external provider. Recorded and skipped for the
	// current cycle.
	KindPermanentExternal ErrKind = "permanent_external"
	// KindStoreTransient covers lost connections and deadlocks. Stages
	// return or log it; no store call is retried with backoff.
	KindStoreTransient ErrKind = "store_transient"
	// KindStorePermanent covers constraint violations and schema
	// mismatches. Must never be swallowed.
	KindStorePermanent ErrKind = "store_permanent"
	// KindInvalidInput covers admission-endpoint validation failures.
	// Returned to the caller without side effects.
	KindInvalidInput ErrKind = "invalid_input"
	// KindPoison marks a RecommendationDraft whose attempts are exhausted.
	KindPoison ErrKind = "poison"
)

// PipelineError is the wrapped error type every stage returns instead of an
// ambient panic. It names its kind and, for transient kinds, a retry hint.
type PipelineError struct {
	Kind      ErrKind
	Stage     string
	Message   string
	RetryHint time.Duration // meaningful only when Kind is a transient kind
	Cause     error
}

func (e *PipelineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s[%s]: %s: %v", e.Stage, e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s[%s]: %s", e.Stage, e.Kind, e.Message)
}

func (e *PipelineError) Unwrap() error { return e.Cause }

// Transient reports whether the error kind is recoverable by local retry.
func (e *PipelineError) Transient() bool {
	return e.Kind == KindTransientExternal || e.Kind == KindStoreTransient
}

// NewTransientExternal wraps an external-provider failure expected to
// recover with the given backoff hint.
func NewTransientExternal(stage, message string, hint time.Duration, cause error) *PipelineError {
	return &PipelineError{Kind: KindTransientExternal, Stage: stage, Message: message, RetryHint: hint, Cause: cause}
}

// NewPermanentExternal wraps an external-provider failure that will not
// recover on retry within the current cycle (auth failure, 4xx contract
// violation).
func NewPermanentExternal(stage, message string, cause error) *PipelineError {
	return &PipelineError{Kind: KindPermanentExternal, Stage: stage, Message: message, Cause: cause}
}

// NewStoreTransient wraps a recoverable store failure (lost connection,
// deadlock).
func NewStoreTransient(stage, message string, cause error) *PipelineError {
	return &PipelineError{Kind: KindStoreTransient, Stage: stage, Message: message, Cause: cause}
}

// NewStorePermanent wraps a non-recoverable store failure (constraint
// violation, schema mismatch). Callers must propagate this, never swallow
// it.
func NewStorePermanent(stage, message string, cause error) *PipelineError {
	return &PipelineError{Kind: KindStorePermanent, Stage: stage, Message: message, Cause: cause}
}

// NewInvalidInput wraps a client-caused validation failure.
func NewInvalidInput(stage, message string) *PipelineError {
	return &PipelineError{Kind: KindInvalidInput, Stage: stage, Message: message}
}

// NewPoison marks a draft excluded from notifier claims pending operator
// action.
func NewPoison(stage, message string) *PipelineError {
	return &PipelineError{Kind: KindPoison, Stage: stage, Message: message}
}
