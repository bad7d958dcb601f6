package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"zionix-swap/pkg/metrics"
)

// CoinGecko fetches USD prices by CoinGecko id
type CoinGecko struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	metrics    *metrics.Metrics
}

// NewCoinGecko creates a CoinGecko client
func NewCoinGecko(baseURL, apiKey string, timeout time.Duration, m *metrics.Metrics) *CoinGecko {
	return &CoinGecko{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		metrics:    m,
	}
}

// PriceUSD returns the current USD price for id
func (c *CoinGecko) PriceUSD(ctx context.Context, id string) (float64, error) {
	q := url.Values{}
	q.Set("ids", id)
	q.Set("vs_currencies", "usd")

	req, err := newJSONRequest(ctx, http.MethodGet, c.baseURL+"/simple/price?"+q.Encode(), nil)
	if err != nil {
		return 0, err
	}
	if c.apiKey != "" {
		req.Header.Set("x-cg-pro-api-key", c.apiKey)
	}

	var resp map[string]map[string]float64
	start := time.Now()
	err = doJSON(c.httpClient, "coingecko", req, &resp)
	c.metrics.ObserveCall("coingecko_price", start)
	if err != nil {
		return 0, err
	}

	price, ok := resp[id]["usd"]
	if !ok {
		return 0, fmt.Errorf("no USD price for %s", id)
	}
	return price, nil
}
