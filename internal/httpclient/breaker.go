// Package httpclient provides the resilient outbound HTTP client shared by
// every external-provider call: LLM extraction, search-interest
// validation, market-price lookup, ticker lookup, and push-gateway
// delivery. Every provider call runs through a gobreaker circuit breaker
// so a degraded provider trips open instead of piling up blocked workers.
package httpclient

import (
	"time"

	cb "github.com/sony/gobreaker"
)

// Breaker wraps a named gobreaker.CircuitBreaker with the same trip policy
// across every provider: three consecutive failures, or a >5% failure rate
// once at least 20 requests have been seen in the rolling interval.
type Breaker struct {
	cb *cb.CircuitBreaker
}

// NewBreaker creates a circuit breaker for the named provider.
func NewBreaker(name string) *Breaker {
	st := cb.Settings{Name: name}
	st.Interval = 60 * time.Second
	st.Timeout = 60 * time.Second
	st.ReadyToTrip = func(counts cb.Counts) bool {
		if counts.ConsecutiveFailures >= 3 {
			return true
		}
		total := counts.Requests
		if total < 20 {
			return false
		}
		return float64(counts.TotalFailures)/float64(total) > 0.05
	}
	return &Breaker{cb: cb.NewCircuitBreaker(st)}
}

// Execute runs fn through the breaker, returning its result unchanged, or
// gobreaker.ErrOpenState/gobreaker.ErrTooManyRequests when the breaker is
// open or half-open-saturated.
func (b *Breaker) Execute(fn func() (any, error)) (any, error) {
	return b.cb.Execute(fn)
}

// State reports the breaker's current open/closed/half-open state, for
// health/metrics reporting.
func (b *Breaker) State() cb.State {
	return b.cb.State()
}
