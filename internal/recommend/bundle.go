// Package recommend implements the recommendation builder (spec.md §4.7):
// for each RECOMMENDATION_ELIGIBLE event it writes a content-addressed
// evidence bundle and a markdown draft, then registers a
// RecommendationDraft idempotently keyed by event id.
package recommend

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/Koolhand111/eva-finance/internal/domain"
	"github.com/Koolhand111/eva-finance/internal/store"
)

// EvidenceBundle is the append-only serialized record anchored to one
// event, carrying the best confidence snapshot and sanitized excerpts.
// Bundles are content-addressed by SHA-256 and never rewritten in place.
type EvidenceBundle struct {
	EventID    int64                  `json:"event_id"`
	Brand      string                 `json:"brand"`
	Tag        string                 `json:"tag"`
	Day        time.Time              `json:"day"`
	Severity   domain.Severity        `json:"severity"`
	Payload    map[string]interface{} `json:"event_payload"`
	Snapshot   *domain.ConfidenceScore `json:"snapshot,omitempty"`
	Excerpts   []string               `json:"excerpts"`
	GeneratedAt time.Time             `json:"generated_at"`
}

var (
	urlPattern      = regexp.MustCompile(`https?://\S+`)
	usernamePattern = regexp.MustCompile(`(?i)(^|\s)(u/|@)\w+`)
)

// sanitizeExcerpt strips URLs and usernames and truncates to maxChars
// (spec.md §4.7 sanitization invariant).
func sanitizeExcerpt(text string, maxChars int) string {
	clean := urlPattern.ReplaceAllString(text, "[link]")
	clean = usernamePattern.ReplaceAllString(clean, "$1[user]")
	clean = strings.TrimSpace(clean)
	runes := []rune(clean)
	if len(runes) > maxChars {
		clean = string(runes[:maxChars])
	}
	return clean
}

// pickSnapshot selects the best confidence snapshot within the event's
// window: exact tag match preferred, then at-or-before the event time,
// then closest in absolute time (spec.md §4.7).
func pickSnapshot(candidates []domain.ConfidenceScore, tag string, eventTime time.Time) *domain.ConfidenceScore {
	if len(candidates) == 0 {
		return nil
	}

	var best *domain.ConfidenceScore
	bestRank := [3]float64{}

	for i := range candidates {
		c := &candidates[i]
		exactTag := 0.0
		if c.Tag == tag {
			exactTag = 1.0
		}
		atOrBefore := 0.0
		if !c.Day.After(eventTime) {
			atOrBefore = 1.0
		}
		distance := c.Day.Sub(eventTime)
		if distance < 0 {
			distance = -distance
		}

		rank := [3]float64{exactTag, atOrBefore, -float64(distance)}
		if best == nil || rankLess(bestRank, rank) {
			best = c
			bestRank = rank
		}
	}
	return best
}

// rankLess reports whether a is worse than b under lexicographic
// comparison (higher is better on every axis).
func rankLess(a, b [3]float64) bool {
	for i := 0; i < 3; i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// buildBundle assembles the evidence bundle from its inputs; it does not
// touch the filesystem.
func buildBundle(event domain.SignalEvent, snapshot *domain.ConfidenceScore, excerpts []store.RawExcerpt, maxExcerpts, maxChars int, now time.Time) EvidenceBundle {
	if len(excerpts) > maxExcerpts {
		excerpts = excerpts[:maxExcerpts]
	}
	sanitized := make([]string, 0, len(excerpts))
	for _, e := range excerpts {
		s := sanitizeExcerpt(e.Text, maxChars)
		if s != "" {
			sanitized = append(sanitized, s)
		}
	}

	return EvidenceBundle{
		EventID:     event.ID,
		Brand:       event.Brand,
		Tag:         event.Tag,
		Day:         event.Day,
		Severity:    event.Severity,
		Payload:     event.Payload,
		Snapshot:    snapshot,
		Excerpts:    sanitized,
		GeneratedAt: now,
	}
}

// marshalAndHash serializes the bundle deterministically and returns its
// bytes alongside the hex SHA-256 content address (spec.md §4.7:
// "bundles are content-addressed by their SHA-256").
func marshalAndHash(b EvidenceBundle) ([]byte, string, error) {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return nil, "", err
	}
	sum := sha256.Sum256(data)
	return data, hex.EncodeToString(sum[:]), nil
}
