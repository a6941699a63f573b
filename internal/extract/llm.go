package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	jsonrepair "github.com/RealAlexandreAI/json-repair"

	"github.com/Koolhand111/eva-finance/internal/config"
	"github.com/Koolhand111/eva-finance/internal/domain"
	"github.com/Koolhand111/eva-finance/internal/httpclient"
)

// llmResponse is the structured-extraction schema requested from the
// model provider (spec.md §4.3 step 1).
type llmResponse struct {
	Brands    []string `json:"brands"`
	Tags      []string `json:"tags"`
	Sentiment string   `json:"sentiment"`
	Intent    string   `json:"intent"`
	Tickers   []string `json:"tickers"`
}

// llmClient calls the configured language-model provider and repairs
// malformed JSON before unmarshalling, per SPEC_FULL.md §4.3A.
type llmClient struct {
	cfg     config.LLMConfig
	client  *http.Client
	breaker *httpclient.Breaker
}

func newLLMClient(cfg config.LLMConfig) *llmClient {
	return &llmClient{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		breaker: httpclient.NewBreaker("llm-extraction"),
	}
}

// extract sends text to the model provider and returns a parsed
// llmResponse. A non-empty response with at least one parseable field
// counts as success; any other outcome is the caller's cue to fall back
// to the heuristic path.
func (c *llmClient) extract(ctx context.Context, text string) (*llmResponse, error) {
	if c.cfg.ProviderURL == "" {
		return nil, domain.NewPermanentExternal("extract", "LLM provider not configured", nil)
	}

	raw, err := c.breaker.Execute(func() (any, error) {
		return c.callProvider(ctx, text)
	})
	if err != nil {
		return nil, domain.NewTransientExternal("extract", "LLM provider call failed", 0, err)
	}
	body := raw.([]byte)

	repaired, err := jsonrepair.RepairJSON(string(body))
	if err != nil {
		return nil, domain.NewPermanentExternal("extract", "LLM response JSON repair failed", err)
	}

	var parsed llmResponse
	if err := json.Unmarshal([]byte(repaired), &parsed); err != nil {
		return nil, domain.NewPermanentExternal("extract", "LLM response unmarshal failed", err)
	}

	if len(parsed.Brands) == 0 && len(parsed.Tags) == 0 && parsed.Sentiment == "" && parsed.Intent == "" {
		return nil, domain.NewPermanentExternal("extract", "LLM response had no parseable fields", nil)
	}
	return &parsed, nil
}

func (c *llmClient) callProvider(ctx context.Context, text string) ([]byte, error) {
	payload, err := json.Marshal(map[string]string{
		"model": c.cfg.Model,
		"text":  text,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.ProviderURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("LLM provider returned %d: %s", resp.StatusCode, string(body))
	}
	return io.ReadAll(resp.Body)
}

func (r *llmResponse) toHeuristicResult() heuristicResult {
	return heuristicResult{
		Brands:    r.Brands,
		Tags:      r.Tags,
		Sentiment: domain.Sentiment(r.Sentiment),
		Intent:    domain.Intent(r.Intent),
	}
}
