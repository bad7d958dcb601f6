package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"zionix-swap/pkg/metrics"
	"zionix-swap/pkg/types"
)

// ErrMetadataNotFound is returned when the metadata service has no record of a token
var ErrMetadataNotFound = errors.New("token metadata not found")

// Solscan fetches token metadata from the Solscan pro API
type Solscan struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	metrics    *metrics.Metrics
}

// NewSolscan creates a Solscan client
func NewSolscan(baseURL, apiKey string, timeout time.Duration, m *metrics.Metrics) *Solscan {
	return &Solscan{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		metrics:    m,
	}
}

type solscanMetaResponse struct {
	Success bool `json:"success"`
	Data    *struct {
		Address  string   `json:"address"`
		Name     string   `json:"name"`
		Symbol   string   `json:"symbol"`
		Icon     string   `json:"icon"`
		Decimals *uint8   `json:"decimals"`
		Price    *float64 `json:"price"`
	} `json:"data"`
	Errors *struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// TokenMeta fetches name, symbol, decimals, icon and price for a mint
func (s *Solscan) TokenMeta(ctx context.Context, address string) (*types.TokenDescriptor, error) {
	req, err := newJSONRequest(ctx, http.MethodGet, s.baseURL+"/token/meta?address="+url.QueryEscape(address), nil)
	if err != nil {
		return nil, err
	}
	if s.apiKey != "" {
		req.Header.Set("token", s.apiKey)
	}

	var resp solscanMetaResponse
	start := time.Now()
	err = doJSON(s.httpClient, "solscan", req, &resp)
	s.metrics.ObserveCall("solscan_meta", start)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrMetadataNotFound, address)
		}
		return nil, err
	}

	if !resp.Success || resp.Data == nil {
		if resp.Errors != nil && resp.Errors.Message != "" {
			return nil, fmt.Errorf("%w: %s", ErrMetadataNotFound, resp.Errors.Message)
		}
		return nil, fmt.Errorf("%w: %s", ErrMetadataNotFound, address)
	}
	if resp.Data.Decimals == nil || resp.Data.Symbol == "" {
		return nil, fmt.Errorf("incomplete metadata for %s", address)
	}

	token := &types.TokenDescriptor{
		Address:   address,
		Symbol:    resp.Data.Symbol,
		Name:      resp.Data.Name,
		Decimals:  *resp.Data.Decimals,
		LogoURI:   resp.Data.Icon,
		UpdatedAt: time.Now().UTC(),
	}
	if resp.Data.Price != nil {
		token.PriceUSD = *resp.Data.Price
	}
	return token, nil
}

// PriceUSD returns the token's USD price as reported in its metadata
func (s *Solscan) PriceUSD(ctx context.Context, address string) (float64, error) {
	token, err := s.TokenMeta(ctx, address)
	if err != nil {
		return 0, err
	}
	return token.PriceUSD, nil
}
