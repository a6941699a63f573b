package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFeedList_EmptyPathIsNotAnError(t *testing.T) {
	doc, err := LoadFeedList("")
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestLoadFeedList_MissingFileIsAnError(t *testing.T) {
	_, err := LoadFeedList(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	assert.Error(t, err)
}

func TestLoadFeedList_ParsesFeedsAndWeights(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feeds.yaml")
	contents := `
feeds:
  - community: running
    base_url: https://www.reddit.com
  - community: golf
    base_url: https://www.reddit.com
weights:
  intent: 0.4
  spread: 0.2
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	doc, err := LoadFeedList(path)
	require.NoError(t, err)
	require.NotNil(t, doc)
	require.Len(t, doc.Feeds, 2)
	assert.Equal(t, "running", doc.Feeds[0].Community)
	assert.Equal(t, "https://www.reddit.com", doc.Feeds[0].BaseURL)
	require.NotNil(t, doc.Weights.Intent)
	assert.Equal(t, 0.4, *doc.Weights.Intent)
	assert.Nil(t, doc.Weights.Acceleration)
}

func TestLoadFeedList_NoFeedsIsAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(path, []byte("feeds: []\n"), 0o644))

	_, err := LoadFeedList(path)
	assert.Error(t, err)
}

func TestWeightOverrides_ApplyOnlySetsNonNilFields(t *testing.T) {
	s := ScoringConfig{
		WeightAcceleration: 0.15,
		WeightIntent:       0.35,
		WeightSpread:       0.25,
		WeightBaseline:     0.15,
		WeightSuppression:  0.10,
	}
	intent := 0.5
	w := WeightOverrides{Intent: &intent}
	w.Apply(&s)

	assert.Equal(t, 0.5, s.WeightIntent)
	assert.Equal(t, 0.15, s.WeightAcceleration)
	assert.Equal(t, 0.25, s.WeightSpread)
}

func TestLoad_FeedsFileOverridesWeights(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "feeds.yaml")
	contents := `
feeds:
  - community: running
    base_url: https://www.reddit.com
weights:
  intent: 0.30
  spread: 0.30
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	os.Setenv("EVA_FEEDS_FILE", path)
	t.Cleanup(func() { os.Unsetenv("EVA_FEEDS_FILE") })

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg.FeedList)
	assert.Equal(t, 0.30, cfg.Scoring.WeightIntent)
	assert.Equal(t, 0.30, cfg.Scoring.WeightSpread)
}
