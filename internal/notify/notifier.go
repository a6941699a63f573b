// Package notify implements the notifier (spec.md §4.8): claims approved
// drafts, delivers them to the push gateway at-least-once with bounded
// retries, and enforces the poison cap.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/Koolhand111/eva-finance/internal/config"
	"github.com/Koolhand111/eva-finance/internal/domain"
	"github.com/Koolhand111/eva-finance/internal/httpclient"
	"github.com/Koolhand111/eva-finance/internal/metrics"
	"github.com/Koolhand111/eva-finance/internal/store"
)

// Notifier polls for approved, unnotified drafts and delivers them.
type Notifier struct {
	cfg     config.NotifyConfig
	drafts  store.RecommendationDraftStore
	client  *http.Client
	breaker *httpclient.Breaker
	metrics *metrics.Registry
	log     zerolog.Logger
}

// SetMetrics attaches a Prometheus registry; nil (the default) disables
// instrumentation.
func (n *Notifier) SetMetrics(m *metrics.Registry) { n.metrics = m }

// New constructs a Notifier.
func New(cfg config.NotifyConfig, drafts store.RecommendationDraftStore, log zerolog.Logger) *Notifier {
	return &Notifier{
		cfg:     cfg,
		drafts:  drafts,
		client:  &http.Client{Timeout: cfg.DeliveryTimeout},
		breaker: httpclient.NewBreaker("push-gateway"),
		log:     log,
	}
}

// RunCycle claims up to the configured batch size and attempts delivery
// for each, returning the number successfully delivered.
func (n *Notifier) RunCycle(ctx context.Context) (int, error) {
	claimed, err := n.drafts.ClaimApproved(ctx, n.cfg.ClaimBatchSize, n.cfg.MaxAttempts)
	if err != nil {
		return 0, domain.NewStoreTransient("notify", "claim approved drafts", err)
	}

	delivered := 0
	for _, d := range claimed {
		if err := n.deliver(ctx, d); err != nil {
			n.log.Warn().Err(err).Int64("draft_id", d.ID).Int("attempts", d.Attempts).Msg("delivery failed")
			if markErr := n.drafts.MarkFailed(ctx, d.ID, normalizeError(err)); markErr != nil {
				n.log.Error().Err(markErr).Int64("draft_id", d.ID).Msg("mark failed write failed")
			}
			if d.Attempts >= n.cfg.MaxAttempts {
				n.log.Error().Int64("draft_id", d.ID).Str("last_error", normalizeError(err)).Msg("draft reached max attempts, now poison")
				if n.metrics != nil {
					n.metrics.NotifierPoisoned.Inc()
				}
			}
			if n.metrics != nil {
				n.metrics.NotifierAttempts.WithLabelValues("failure").Inc()
			}
			continue
		}

		ok, err := n.drafts.MarkNotified(ctx, d.ID, time.Now().UTC())
		if err != nil {
			n.log.Error().Err(err).Int64("draft_id", d.ID).Msg("mark notified write failed")
			continue
		}
		if ok {
			delivered++
			if n.metrics != nil {
				n.metrics.NotifierAttempts.WithLabelValues("success").Inc()
			}
		}
	}
	return delivered, nil
}

// PollLoop runs RunCycle on the configured interval until ctx is
// cancelled.
func (n *Notifier) PollLoop(ctx context.Context) error {
	ticker := time.NewTicker(n.cfg.PollInterval)
	defer ticker.Stop()

	for {
		delivered, err := n.RunCycle(ctx)
		if err != nil {
			n.log.Error().Err(err).Msg("notifier cycle failed")
		} else {
			n.log.Info().Int("delivered", delivered).Msg("notifier cycle complete")
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

type pushPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Link  string `json:"link"`
}

func (n *Notifier) deliver(ctx context.Context, d domain.RecommendationDraft) error {
	payload := pushPayload{
		Title: fmt.Sprintf("%s / %s — %s", d.Brand, d.Tag, d.Band),
		Body:  fmt.Sprintf("Confidence %.2f. Draft: %s", d.Confidence, d.DraftPath),
		Link:  d.DraftPath,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return domain.NewPermanentExternal("notify", "marshal push payload", err)
	}

	deliveryCtx, cancel := context.WithTimeout(ctx, n.cfg.DeliveryTimeout)
	defer cancel()

	_, err = n.breaker.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(deliveryCtx, http.MethodPost, n.cfg.GatewayURL, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := n.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("push gateway returned %d", resp.StatusCode)
		}
		return nil, nil
	})
	if err != nil {
		return domain.NewTransientExternal("notify", "push gateway delivery failed", 5*time.Second, err)
	}
	return nil
}

func normalizeError(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
