package ingest

import (
	"context"
	"time"
)

// PostEnvelope is the wire contract a Feed returns and the admission
// endpoint accepts (spec.md §4.1 "Envelope contract").
type PostEnvelope struct {
	Source     string            `json:"source"`
	PlatformID string            `json:"platform_id"`
	Timestamp  time.Time         `json:"timestamp"`
	Text       string            `json:"text"`
	URL        string            `json:"url,omitempty"`
	Meta       map[string]string `json:"meta"`
}

// Feed fetches recent post envelopes from one community source.
type Feed interface {
	// Name identifies the feed for logging/metrics.
	Name() string
	// Fetch returns up to limit recent envelopes.
	Fetch(ctx context.Context, limit int) ([]PostEnvelope, error)
}
