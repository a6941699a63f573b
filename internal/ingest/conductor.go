// Package ingest implements the ingestion conductor (spec.md §4.1): it
// periodically polls a configured list of community feeds and delivers
// each admitted envelope to the admission endpoint exactly once per
// (source, platform_id).
package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	cb "github.com/sony/gobreaker"

	"github.com/Koolhand111/eva-finance/internal/config"
	"github.com/Koolhand111/eva-finance/internal/httpclient"
	"github.com/Koolhand111/eva-finance/internal/metrics"
	"github.com/Koolhand111/eva-finance/internal/net/ratelimit"
)

const pacingProvider = "ingest-feeds"

// CycleSummary reports one RunCycle's outcome, the result spec.md §4.1
// names explicitly ("fetched/filtered/posted/duplicate/failure counts").
// AdmissionUnavailable distinguishes the conductor-wide failure of §4.1A
// (the admission breaker tripped open) from an ordinary per-feed or
// per-post Failures increment.
type CycleSummary struct {
	Fetched              int
	Filtered             int
	Posted               int
	Duplicate            int
	Failures             int
	AdmissionUnavailable bool
}

// Conductor iterates the configured feed list each cycle, applying a
// pacing delay between feeds and posting admitted envelopes to the
// admission HTTP server at admissionAddr.
type Conductor struct {
	cfg           config.IngestConfig
	feeds         []Feed
	filter        FilterPolicy
	admissionAddr string
	client        *http.Client
	breaker       *httpclient.Breaker
	pacing        *ratelimit.Manager
	metrics       *metrics.Registry
	log           zerolog.Logger
}

// SetMetrics attaches a Prometheus registry; nil (the default) disables
// instrumentation.
func (c *Conductor) SetMetrics(m *metrics.Registry) { c.metrics = m }

// New constructs a Conductor. admissionAddr is the admission server's
// base URL (e.g. "http://127.0.0.1:8090").
func New(cfg config.IngestConfig, feeds []Feed, admissionAddr string, log zerolog.Logger) *Conductor {
	pacing := ratelimit.NewManager()
	rps := 1.0
	if cfg.FeedPacingDelay > 0 {
		rps = float64(time.Second) / float64(cfg.FeedPacingDelay)
	}
	pacing.AddProvider(pacingProvider, rps, 1)

	return &Conductor{
		cfg:           cfg,
		feeds:         feeds,
		filter:        DefaultFilterPolicy(),
		admissionAddr: admissionAddr,
		client:        &http.Client{Timeout: 10 * time.Second},
		breaker:       httpclient.NewBreaker("admission"),
		pacing:        pacing,
		log:           log,
	}
}

// RunCycle fetches each feed in turn, paced by the configured inter-feed
// delay, filters and posts admitted envelopes to admission. A single
// feed's failure is logged and does not stop the cycle (spec.md §4.1).
func (c *Conductor) RunCycle(ctx context.Context) CycleSummary {
	var summary CycleSummary

	for _, feed := range c.feeds {
		if err := c.pacing.Wait(ctx, pacingProvider, "global"); err != nil {
			return summary
		}

		envelopes, err := feed.Fetch(ctx, c.cfg.PerFeedLimit)
		if err != nil {
			c.log.Warn().Err(err).Str("feed", feed.Name()).Msg("feed fetch failed, continuing to next feed")
			summary.Failures++
			if c.metrics != nil {
				c.metrics.FeedFailures.WithLabelValues(feed.Name()).Inc()
			}
			continue
		}
		summary.Fetched += len(envelopes)

		for _, e := range envelopes {
			if !c.filter.Admit(e) {
				summary.Filtered++
				if c.metrics != nil {
					c.metrics.PostsFiltered.Inc()
				}
				continue
			}
			duplicate, err := c.post(ctx, e)
			if err != nil {
				if isBreakerOpen(err) {
					c.log.Error().Err(err).Msg("admission unreachable past bounded retry window, aborting cycle")
					summary.AdmissionUnavailable = true
					return summary
				}
				c.log.Warn().Err(err).Str("feed", feed.Name()).Str("platform_id", e.PlatformID).Msg("admission post failed")
				summary.Failures++
				continue
			}
			if duplicate {
				summary.Duplicate++
				if c.metrics != nil {
					c.metrics.PostsDuplicate.Inc()
				}
			} else {
				summary.Posted++
				if c.metrics != nil {
					c.metrics.PostsIngested.WithLabelValues(feed.Name()).Inc()
				}
			}
		}
	}

	return summary
}

// PollLoop runs RunCycle on the configured wall-clock interval until ctx
// is cancelled.
func (c *Conductor) PollLoop(ctx context.Context) error {
	ticker := time.NewTicker(c.cfg.CycleInterval)
	defer ticker.Stop()

	for {
		summary := c.RunCycle(ctx)
		c.log.Info().
			Int("fetched", summary.Fetched).
			Int("filtered", summary.Filtered).
			Int("posted", summary.Posted).
			Int("duplicate", summary.Duplicate).
			Int("failures", summary.Failures).
			Bool("admission_unavailable", summary.AdmissionUnavailable).
			Msg("ingestion cycle complete")

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

type admissionResponse struct {
	Status string `json:"status"`
	ID     int64  `json:"id,omitempty"`
}

// post delivers one envelope through the admission breaker, matching every
// other outbound call in this pipeline (extract/llm.go, notify/notifier.go,
// validate/validator.go, position/priceclient.go, ingest/reddit_feed.go). A
// tripped breaker surfaces as isBreakerOpen(err), the conductor-wide failure
// of spec.md §4.1 rather than one more per-post Failures increment.
func (c *Conductor) post(ctx context.Context, e PostEnvelope) (duplicate bool, err error) {
	raw, err := c.breaker.Execute(func() (any, error) {
		payload, err := json.Marshal(e)
		if err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.admissionAddr+"/intake/message", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusConflict {
			return nil, fmt.Errorf("admission returned %d", resp.StatusCode)
		}

		var parsed admissionResponse
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			return nil, err
		}
		return parsed.Status == "duplicate", nil
	})
	if err != nil {
		return false, err
	}
	return raw.(bool), nil
}

// isBreakerOpen reports whether err came from the admission breaker being
// open or half-open-saturated, rather than from the request itself.
func isBreakerOpen(err error) bool {
	return err == cb.ErrOpenState || err == cb.ErrTooManyRequests
}
