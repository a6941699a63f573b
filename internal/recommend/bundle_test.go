package recommend

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Koolhand111/eva-finance/internal/domain"
	"github.com/Koolhand111/eva-finance/internal/store"
)

func TestSanitizeExcerpt_StripsURLsAndUsernames(t *testing.T) {
	in := "check out u/runnerfan22 loving these shoes https://reddit.com/r/running/abc @brandlover"
	out := sanitizeExcerpt(in, 200)

	assert.NotContains(t, out, "u/runnerfan22")
	assert.NotContains(t, out, "@brandlover")
	assert.NotContains(t, out, "https://")
	assert.Contains(t, out, "[user]")
	assert.Contains(t, out, "[link]")
}

func TestSanitizeExcerpt_TruncatesToMaxChars(t *testing.T) {
	in := strRepeat("a", 500)
	out := sanitizeExcerpt(in, 50)
	assert.Len(t, []rune(out), 50)
}

func strRepeat(s string, n int) string {
	out := make([]byte, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, s[0])
	}
	return string(out)
}

func TestPickSnapshot_PrefersExactTagMatch(t *testing.T) {
	eventTime := time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)
	candidates := []domain.ConfidenceScore{
		{Tag: "other-tag", Day: eventTime, Final: 0.5},
		{Tag: "target-tag", Day: eventTime.Add(-48 * time.Hour), Final: 0.7},
	}

	best := pickSnapshot(candidates, "target-tag", eventTime)
	require.NotNil(t, best)
	assert.Equal(t, "target-tag", best.Tag)
}

func TestPickSnapshot_PrefersAtOrBeforeOverAfter(t *testing.T) {
	eventTime := time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)
	candidates := []domain.ConfidenceScore{
		{Tag: "tag", Day: eventTime.Add(1 * time.Hour)},  // after, closer
		{Tag: "tag", Day: eventTime.Add(-5 * time.Hour)}, // at-or-before, farther
	}

	best := pickSnapshot(candidates, "tag", eventTime)
	require.NotNil(t, best)
	assert.True(t, !best.Day.After(eventTime))
}

func TestPickSnapshot_EmptyReturnsNil(t *testing.T) {
	assert.Nil(t, pickSnapshot(nil, "tag", time.Now()))
}

func TestBuildBundle_CapsExcerptsAndDropsEmpty(t *testing.T) {
	event := domain.SignalEvent{ID: 42, Brand: "Acme", Tag: "sneaker-drop", Day: time.Now().UTC()}
	excerpts := []store.RawExcerpt{
		{Text: "great shoes"},
		{Text: "https://example.com"}, // sanitizes to "[link]", still non-empty
		{Text: "  "},                  // sanitizes to empty, dropped
		{Text: "past the cap"},        // beyond maxExcerpts, never read
	}

	bundle := buildBundle(event, nil, excerpts, 3, 400, time.Now().UTC())

	assert.Len(t, bundle.Excerpts, 2)
	assert.Equal(t, int64(42), bundle.EventID)
}

func TestMarshalAndHash_Deterministic(t *testing.T) {
	bundle := EvidenceBundle{EventID: 1, Brand: "Acme", Tag: "x", GeneratedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}

	_, hashA, err := marshalAndHash(bundle)
	require.NoError(t, err)
	_, hashB, err := marshalAndHash(bundle)
	require.NoError(t, err)

	assert.Equal(t, hashA, hashB)
	assert.Len(t, hashA, 64)
}
