// Package validate implements the external-search cross-validation hook
// (spec.md §4.6): given a brand, it asks a search-interest provider for its
// trailing interest curve and turns that into a bounded, non-blocking
// adjustment to the confidence scorer's output.
package validate

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	cb "github.com/sony/gobreaker"

	"github.com/Koolhand111/eva-finance/internal/config"
	"github.com/Koolhand111/eva-finance/internal/domain"
	"github.com/Koolhand111/eva-finance/internal/httpclient"
	"github.com/Koolhand111/eva-finance/internal/metrics"
	"github.com/Koolhand111/eva-finance/internal/net/ratelimit"
)

const pacingProvider = "search-interest"
const pacingHost = "global"

// Validator is what the confidence scorer depends on; Validate is the only
// method it calls. The concrete *SearchValidator owns all rate-limit state.
type Validator interface {
	Validate(ctx context.Context, brand string) domain.TrendsValidation
}

// SearchValidator implements Validator against a search-interest HTTP
// provider, with the rate-limit discipline spec.md §4.6 requires: a
// per-brand 24h cache, a global minimum delay between requests, and
// exponential backoff with a session reset on rate-limit responses.
type SearchValidator struct {
	cfg     config.TrendsConfig
	client  *http.Client
	breaker *httpclient.Breaker
	backoff httpclient.BackoffSchedule
	pacing  *ratelimit.Manager
	cache   *cache.Cache
	metrics *metrics.Registry
	log     zerolog.Logger
}

// SetMetrics attaches a Prometheus registry; nil (the default) disables
// instrumentation.
func (v *SearchValidator) SetMetrics(m *metrics.Registry) { v.metrics = m }

// NewSearchValidator constructs a validator with its own TTL cache and
// circuit breaker, borrowed from the rest of the pack the way
// internal/validate borrows patrickmn/go-cache rather than rolling a
// bespoke expiring map.
func NewSearchValidator(cfg config.TrendsConfig, log zerolog.Logger) *SearchValidator {
	pacing := ratelimit.NewManager()
	rps := 1.0
	if cfg.RequestPacing > 0 {
		rps = float64(time.Second) / float64(cfg.RequestPacing)
	}
	pacing.AddProvider(pacingProvider, rps, 1)

	return &SearchValidator{
		cfg:     cfg,
		client:  &http.Client{Timeout: 20 * time.Second},
		breaker: httpclient.NewBreaker("search-interest"),
		backoff: httpclient.BackoffSchedule{Base: 5 * time.Second, Cap: 120 * time.Second, MaxRetries: 3},
		pacing:  pacing,
		cache:   cache.New(cfg.CacheTTL, cfg.CacheTTL/2),
		log:     log,
	}
}

// Validate returns a TrendsValidation for brand. On cache hit it returns the
// cached verdict unchanged (re-stamping CheckedAt). On exhausted retries or
// a tripped breaker it returns ValidationPending — the scorer treats this
// as "no data," never as a penalty.
func (v *SearchValidator) Validate(ctx context.Context, brand string) domain.TrendsValidation {
	key := strings.ToLower(strings.TrimSpace(brand))

	if cached, ok := v.cache.Get(key); ok {
		if v.metrics != nil {
			v.metrics.ValidatorCacheHits.Inc()
		}
		result := cached.(domain.TrendsValidation)
		result.CheckedAt = time.Now().UTC()
		return result
	}
	if v.metrics != nil {
		v.metrics.ValidatorCacheMisses.Inc()
	}

	if !v.cfg.Enabled {
		return pendingResult(brand)
	}

	started := time.Now()
	result := v.fetchWithRetry(ctx, brand)
	if v.metrics != nil {
		v.metrics.ValidatorLatency.Observe(time.Since(started).Seconds())
	}
	if result.ValidationStatus == domain.ValidationCompleted {
		v.cache.Set(key, result, cache.DefaultExpiration)
	}
	return result
}

type searchInterestPoint struct {
	Day       string  `json:"day"`
	Interest  float64 `json:"interest"`
}

type searchInterestResponse struct {
	Points []searchInterestPoint `json:"points"`
}

func (v *SearchValidator) fetchWithRetry(ctx context.Context, brand string) domain.TrendsValidation {
	var lastErr error
	for attempt := 1; attempt <= v.cfg.MaxRetries+1; attempt++ {
		if err := v.pacing.Wait(ctx, pacingProvider, pacingHost); err != nil {
			return pendingResult(brand)
		}

		points, err := v.fetchOnce(ctx, brand)
		if err == nil {
			return v.classify(brand, points)
		}
		lastErr = err

		if !isRateLimited(err) {
			v.log.Warn().Err(err).Str("brand", brand).Msg("search interest fetch failed, non-retryable")
			return pendingResult(brand)
		}

		v.log.Warn().Err(err).Int("attempt", attempt).Str("brand", brand).Msg("search interest rate limited, backing off")
		if attempt <= v.cfg.MaxRetries {
			if sleepErr := v.backoff.Sleep(ctx, attempt); sleepErr != nil {
				return pendingResult(brand)
			}
			v.resetSession()
		}
	}
	v.log.Warn().Err(lastErr).Str("brand", brand).Msg("search interest validator exhausted retries")
	return pendingResult(brand)
}

// resetSession forces a fresh connection on the next request, the "session
// reset between attempts" spec.md §4.6 calls for when a provider is
// rate-limiting by connection fingerprint.
func (v *SearchValidator) resetSession() {
	v.client.CloseIdleConnections()
}

type rateLimitError struct{ status int }

func (e rateLimitError) Error() string { return fmt.Sprintf("rate limited: status %d", e.status) }

func isRateLimited(err error) bool {
	rle, ok := err.(rateLimitError)
	return ok && (rle.status == http.StatusTooManyRequests || rle.status == http.StatusServiceUnavailable)
}

func (v *SearchValidator) fetchOnce(ctx context.Context, brand string) ([]searchInterestPoint, error) {
	raw, err := v.breaker.Execute(func() (any, error) {
		url := fmt.Sprintf("%s/interest?brand=%s&days=90", v.cfg.ProviderURL, brand)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("X-Identity-Token", requestIdentity())
		if v.cfg.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+v.cfg.APIKey)
		}

		resp, err := v.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable {
			return nil, rateLimitError{status: resp.StatusCode}
		}
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			return nil, fmt.Errorf("search interest provider returned %d: %s", resp.StatusCode, string(body))
		}

		var parsed searchInterestResponse
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			return nil, err
		}
		return parsed.Points, nil
	})
	if err != nil {
		if err == cb.ErrOpenState || err == cb.ErrTooManyRequests {
			return nil, rateLimitError{status: http.StatusServiceUnavailable}
		}
		return nil, err
	}
	return raw.([]searchInterestPoint), nil
}

// classify implements the §4.6 protocol: last-30-day mean vs prior-60-day
// mean decides direction, then direction and interest level decide whether
// the signal validates and how much confidence it buys or costs.
func (v *SearchValidator) classify(brand string, points []searchInterestPoint) domain.TrendsValidation {
	if len(points) < 90 {
		return pendingResult(brand)
	}

	prior60 := points[:60]
	last30 := points[60:90]

	priorMean := meanInterest(prior60)
	recentMean := meanInterest(last30)
	interest := recentMean

	var direction domain.TrendDirection
	switch {
	case priorMean == 0:
		direction = domain.TrendUnknown
	case recentMean >= priorMean*1.20:
		direction = domain.TrendRising
	case recentMean <= priorMean*0.80:
		direction = domain.TrendFalling
	default:
		direction = domain.TrendStable
	}

	validates := (direction == domain.TrendRising && interest >= 0.30) ||
		(direction == domain.TrendStable && interest >= 0.50)

	var boost float64
	switch {
	case direction == domain.TrendRising && validates:
		boost = 0.15 * interest
	case direction == domain.TrendStable && validates:
		boost = 0.05 * interest
	case direction == domain.TrendFalling:
		boost = -0.075
	default:
		boost = 0
	}
	if boost > 0.15 {
		boost = 0.15
	}
	if boost < -0.10 {
		boost = -0.10
	}

	return domain.TrendsValidation{
		Brand:            brand,
		CheckedAt:        time.Now().UTC(),
		SearchInterest:   interest,
		TrendDirection:   direction,
		ValidatesSignal:  validates,
		ConfidenceBoost:  boost,
		ValidationStatus: domain.ValidationCompleted,
	}
}

func pendingResult(brand string) domain.TrendsValidation {
	return domain.TrendsValidation{
		Brand:            brand,
		CheckedAt:        time.Now().UTC(),
		ValidationStatus: domain.ValidationPending,
		TrendDirection:   domain.TrendUnknown,
	}
}

func meanInterest(points []searchInterestPoint) float64 {
	if len(points) == 0 {
		return 0
	}
	var sum float64
	for _, p := range points {
		sum += p.Interest
	}
	return sum / float64(len(points))
}

func requestIdentity() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return "eva-finance-" + hex.EncodeToString(buf)
}
