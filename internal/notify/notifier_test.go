package notify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Koolhand111/eva-finance/internal/config"
	"github.com/Koolhand111/eva-finance/internal/domain"
)

func TestNormalizeError(t *testing.T) {
	assert.Equal(t, "", normalizeError(nil))
	assert.Equal(t, "boom", normalizeError(errors.New("boom")))
}

func TestDeliver_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	n := New(config.NotifyConfig{
		GatewayURL:      srv.URL,
		DeliveryTimeout: 2 * time.Second,
	}, nil, zerolog.Nop())

	draft := domain.RecommendationDraft{ID: 1, Brand: "Acme", Tag: "sneaker-drop", Band: domain.BandWatchlist, Confidence: 0.7, DraftPath: "drafts/x.md"}

	err := n.deliver(context.Background(), draft)
	require.NoError(t, err)
}

func TestDeliver_NonSuccessStatusIsTransientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := New(config.NotifyConfig{
		GatewayURL:      srv.URL,
		DeliveryTimeout: 2 * time.Second,
	}, nil, zerolog.Nop())

	draft := domain.RecommendationDraft{ID: 1, Brand: "Acme", Tag: "sneaker-drop", Band: domain.BandWatchlist, DraftPath: "drafts/x.md"}

	err := n.deliver(context.Background(), draft)
	assert.Error(t, err)
	var pe *domain.PipelineError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, domain.KindTransientExternal, pe.Kind)
}
