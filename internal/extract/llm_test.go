package extract

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Koolhand111/eva-finance/internal/config"
	"github.com/Koolhand111/eva-finance/internal/domain"
)

func TestLLMClient_Extract_NoProviderURLIsPermanentError(t *testing.T) {
	c := newLLMClient(config.LLMConfig{})
	_, err := c.extract(context.Background(), "some text")
	assert.Error(t, err)
}

func TestLLMClient_Extract_RepairsMalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// trailing comma and unquoted-ish gaps: not strictly valid JSON.
		fmt.Fprint(w, `{"brands": ["Nike",], "tags": ["running"], "sentiment": "positive", "intent": "own",}`)
	}))
	defer srv.Close()

	c := newLLMClient(config.LLMConfig{ProviderURL: srv.URL, Timeout: 2 * time.Second})
	result, err := c.extract(context.Background(), "wearing my nikes on a run")
	require.NoError(t, err)
	assert.Contains(t, result.Brands, "Nike")
	assert.Equal(t, "positive", result.Sentiment)
}

func TestLLMClient_Extract_EmptyFieldsIsPermanentError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	c := newLLMClient(config.LLMConfig{ProviderURL: srv.URL, Timeout: 2 * time.Second})
	_, err := c.extract(context.Background(), "some text")
	assert.Error(t, err)
}

func TestLLMClient_Extract_NonOKStatusIsTransientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newLLMClient(config.LLMConfig{ProviderURL: srv.URL, Timeout: 2 * time.Second})
	_, err := c.extract(context.Background(), "some text")
	assert.Error(t, err)
}

func TestLLMResponse_ToHeuristicResult(t *testing.T) {
	r := &llmResponse{Brands: []string{"Nike"}, Tags: []string{"running"}, Sentiment: "positive", Intent: "own"}
	result := r.toHeuristicResult()

	assert.Equal(t, []string{"Nike"}, result.Brands)
	assert.Equal(t, domain.Positive, result.Sentiment)
	assert.Equal(t, domain.IntentOwn, result.Intent)
}
