package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		for _, prefix := range []string{"EVA_", "TRENDS_"} {
			if len(kv) >= len(prefix) && kv[:len(prefix)] == prefix {
				name := kv[:indexOf(kv, '=')]
				orig, had := os.LookupEnv(name)
				os.Unsetenv(name)
				if had {
					t.Cleanup(func() { os.Setenv(name, orig) })
				}
			}
		}
	}
}

func indexOf(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return len(s)
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 0.50, cfg.Scoring.GateIntent)
	assert.Equal(t, 0.40, cfg.Scoring.GateSuppression)
	assert.Equal(t, 0.25, cfg.Scoring.GateSpread)
	assert.Equal(t, 0.60, cfg.Scoring.BandHigh)
	assert.Equal(t, 0.50, cfg.Scoring.BandWatchlist)
	assert.True(t, cfg.Trends.Enabled)
	assert.Equal(t, 5, cfg.Notify.MaxAttempts)
}

func TestLoad_WeightsMustSumToOne(t *testing.T) {
	clearEnv(t)
	os.Setenv("EVA_WEIGHT_INTENT", "0.9")
	t.Cleanup(func() { os.Unsetenv("EVA_WEIGHT_INTENT") })

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_GateOutOfRangeRejected(t *testing.T) {
	clearEnv(t)
	os.Setenv("EVA_GATE_INTENT", "1.5")
	t.Cleanup(func() { os.Unsetenv("EVA_GATE_INTENT") })

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_BandWatchlistAboveHighRejected(t *testing.T) {
	clearEnv(t)
	os.Setenv("EVA_BAND_WATCHLIST", "0.9")
	t.Cleanup(func() { os.Unsetenv("EVA_BAND_WATCHLIST") })

	_, err := Load()
	assert.Error(t, err)
}
