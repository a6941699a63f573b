package position

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Koolhand111/eva-finance/internal/config"
	"github.com/Koolhand111/eva-finance/internal/domain"
	"github.com/Koolhand111/eva-finance/internal/httpclient"
)

// PriceClient resolves a ticker's current market price. Its sole production
// implementation is marketPriceClient; tests supply a fake.
type PriceClient interface {
	CurrentPrice(ctx context.Context, ticker string) (float64, error)
}

type marketPriceClient struct {
	cfg     config.PositionConfig
	client  *http.Client
	breaker *httpclient.Breaker
}

// NewPriceClient constructs the breaker-wrapped market-price provider
// client (spec.md §4.9 "fetch the current price").
func NewPriceClient(cfg config.PositionConfig) PriceClient {
	return &marketPriceClient{
		cfg:     cfg,
		client:  &http.Client{Timeout: 10 * time.Second},
		breaker: httpclient.NewBreaker("market-price"),
	}
}

type priceResponse struct {
	Price float64 `json:"price"`
}

func (c *marketPriceClient) CurrentPrice(ctx context.Context, ticker string) (float64, error) {
	raw, err := c.breaker.Execute(func() (any, error) {
		url := fmt.Sprintf("%s?ticker=%s", c.cfg.MarketPriceURL, ticker)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		if c.cfg.MarketPriceKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.cfg.MarketPriceKey)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return nil, fmt.Errorf("market price provider returned %d: %s", resp.StatusCode, string(body))
		}
		var parsed priceResponse
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			return nil, err
		}
		return parsed.Price, nil
	})
	if err != nil {
		return 0, domain.NewTransientExternal("position", "market price fetch failed: "+ticker, 5*time.Second, err)
	}
	return raw.(float64), nil
}
