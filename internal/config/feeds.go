package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FeedSpec names one community feed to poll. BaseURL is overridable per
// feed so a self-hosted or regional mirror can be substituted without a
// code change.
type FeedSpec struct {
	Community string `yaml:"community"`
	BaseURL   string `yaml:"base_url"`
}

// WeightOverrides optionally replaces a subset of ScoringConfig's factor
// weights. Fields left nil keep the env-derived default.
type WeightOverrides struct {
	Acceleration *float64 `yaml:"acceleration"`
	Intent       *float64 `yaml:"intent"`
	Spread       *float64 `yaml:"spread"`
	Baseline     *float64 `yaml:"baseline"`
	Suppression  *float64 `yaml:"suppression"`
}

// FeedListFile is the optional YAML document named by EVA_FEEDS_FILE: the
// ingestion conductor's feed list plus an optional scoring weight
// override, so ops can add a feed or retune the scorer without a redeploy.
type FeedListFile struct {
	Feeds   []FeedSpec      `yaml:"feeds"`
	Weights WeightOverrides `yaml:"weights"`
}

// LoadFeedList reads path as a FeedListFile. An empty path is not an
// error: callers fall back to the built-in default feed list.
func LoadFeedList(path string) (*FeedListFile, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read feed list %s: %w", path, err)
	}
	var doc FeedListFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("config: parse feed list %s: %w", path, err)
	}
	if len(doc.Feeds) == 0 {
		return nil, fmt.Errorf("config: feed list %s declares no feeds", path)
	}
	return &doc, nil
}

// Apply overrides non-nil weight fields onto s, leaving the rest
// untouched. Callers must re-validate the resulting Config since an
// override file can break the "weights sum to 1.0" invariant.
func (w WeightOverrides) Apply(s *ScoringConfig) {
	if w.Acceleration != nil {
		s.WeightAcceleration = *w.Acceleration
	}
	if w.Intent != nil {
		s.WeightIntent = *w.Intent
	}
	if w.Spread != nil {
		s.WeightSpread = *w.Spread
	}
	if w.Baseline != nil {
		s.WeightBaseline = *w.Baseline
	}
	if w.Suppression != nil {
		s.WeightSuppression = *w.Suppression
	}
}
