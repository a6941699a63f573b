package recommend

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Koolhand111/eva-finance/internal/domain"
)

func TestRenderDraft_WithSnapshot(t *testing.T) {
	event := domain.SignalEvent{
		Kind:     domain.EventRecommendationEligible,
		Tag:      "sneaker-drop",
		Brand:    "Acme",
		Day:      time.Date(2026, 7, 20, 0, 0, 0, 0, time.UTC),
		Severity: domain.SeverityCritical,
	}
	snapshot := &domain.ConfidenceScore{
		Factors: domain.FactorScores{Acceleration: 0.8, Intent: 0.6, Spread: 0.4, Baseline: 0.2, Suppression: 0.1},
		Final:   0.74,
		Band:    domain.BandWatchlist,
	}
	bundle := EvidenceBundle{
		Brand:       "Acme",
		Tag:         "sneaker-drop",
		Snapshot:    snapshot,
		Excerpts:    []string{"great shoes", "[link]"},
		GeneratedAt: time.Date(2026, 7, 20, 12, 0, 0, 0, time.UTC),
	}

	out, err := renderDraft(event, bundle, "deadbeef")
	require.NoError(t, err)

	text := string(out)
	assert.Contains(t, text, "Acme / sneaker-drop")
	assert.Contains(t, text, "`deadbeef`")
	assert.Contains(t, text, "0.74")
	assert.Contains(t, text, "great shoes")
	assert.NotContains(t, text, "No confidence snapshot was found")
}

func TestRenderDraft_WithoutSnapshotOrExcerpts(t *testing.T) {
	event := domain.SignalEvent{
		Kind:     domain.EventRecommendationEligible,
		Tag:      "sneaker-drop",
		Brand:    "Acme",
		Day:      time.Date(2026, 7, 20, 0, 0, 0, 0, time.UTC),
		Severity: domain.SeverityInfo,
	}
	bundle := EvidenceBundle{
		Brand:       "Acme",
		Tag:         "sneaker-drop",
		Snapshot:    nil,
		Excerpts:    nil,
		GeneratedAt: time.Date(2026, 7, 20, 12, 0, 0, 0, time.UTC),
	}

	out, err := renderDraft(event, bundle, "cafebabe")
	require.NoError(t, err)

	text := string(out)
	assert.Contains(t, text, "No confidence snapshot was found")
	assert.Contains(t, text, "No sanitized excerpts were available")
	assert.True(t, strings.Contains(text, "Generated 2026-07-20T12:00:00Z"))
}
