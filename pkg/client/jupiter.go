package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"cosmossdk.io/math"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"zionix-swap/pkg/logger"
	"zionix-swap/pkg/metrics"
	"zionix-swap/pkg/types"
)

// ErrNoRoute is returned when the aggregator cannot route the pair and amount
var ErrNoRoute = errors.New("no route found")

// QuoteParams are the inputs of an exact-input quote
type QuoteParams struct {
	InputMint      string
	OutputMint     string
	Amount         math.Int
	SlippageBps    int
	PlatformFeeBps int
}

// BuildParams are the inputs of a swap-transaction build
type BuildParams struct {
	UserPublicKey  string
	Quote          *types.Quote
	FeeAccount     string
	PlatformFeeBps int
}

// SwapTransaction is an unsigned transaction returned by the build endpoint
type SwapTransaction struct {
	Transaction               string
	LastValidBlockHeight      uint64
	PrioritizationFeeLamports uint64
}

// Jupiter talks to the Jupiter quote and swap-build APIs
type Jupiter struct {
	quoteURL   string
	swapURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	metrics    *metrics.Metrics
	log        *zap.Logger
}

// JupiterOption configures a Jupiter client
type JupiterOption func(*Jupiter)

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) JupiterOption {
	return func(j *Jupiter) { j.httpClient = &http.Client{Timeout: d} }
}

// WithRateLimit caps outgoing requests per second. Zero disables the limit.
func WithRateLimit(rps float64) JupiterOption {
	return func(j *Jupiter) {
		if rps <= 0 {
			j.limiter = nil
			return
		}
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		j.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithMetrics records call latency
func WithMetrics(m *metrics.Metrics) JupiterOption {
	return func(j *Jupiter) { j.metrics = m }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) JupiterOption {
	return func(j *Jupiter) { j.log = l }
}

// NewJupiter creates a new Jupiter API client
func NewJupiter(quoteURL, swapURL, apiKey string, opts ...JupiterOption) *Jupiter {
	j := &Jupiter{
		quoteURL:   strings.TrimRight(quoteURL, "/"),
		swapURL:    strings.TrimRight(swapURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 20 * time.Second},
	}
	WithRateLimit(5)(j)
	for _, opt := range opts {
		opt(j)
	}
	j.log = logger.OrNop(j.log)
	return j
}

type quoteResponse struct {
	InputMint            string `json:"inputMint"`
	InAmount             string `json:"inAmount"`
	OutputMint           string `json:"outputMint"`
	OutAmount            string `json:"outAmount"`
	OtherAmountThreshold string `json:"otherAmountThreshold"`
	SlippageBps          int    `json:"slippageBps"`
	PriceImpactPct       string `json:"priceImpactPct"`
	PlatformFee          *struct {
		Amount string `json:"amount"`
		FeeBps int    `json:"feeBps"`
	} `json:"platformFee"`
	RoutePlan []struct {
		SwapInfo struct {
			AMMKey     string `json:"ammKey"`
			Label      string `json:"label"`
			InputMint  string `json:"inputMint"`
			OutputMint string `json:"outputMint"`
		} `json:"swapInfo"`
		Percent int `json:"percent"`
	} `json:"routePlan"`
	Error string `json:"error"`
}

// GetQuote requests an exact-input quote
func (j *Jupiter) GetQuote(ctx context.Context, p QuoteParams) (*types.Quote, error) {
	if p.Amount.IsNil() || !p.Amount.IsPositive() {
		return nil, fmt.Errorf("quote amount must be positive")
	}

	q := url.Values{}
	q.Set("inputMint", p.InputMint)
	q.Set("outputMint", p.OutputMint)
	q.Set("amount", p.Amount.String())
	q.Set("slippageBps", strconv.Itoa(p.SlippageBps))
	q.Set("restrictIntermediateTokens", "true")
	if p.PlatformFeeBps > 0 {
		q.Set("platformFeeBps", strconv.Itoa(p.PlatformFeeBps))
	}

	req, err := newJSONRequest(ctx, http.MethodGet, j.quoteURL+"/quote?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	j.authorize(req)

	if err := j.wait(ctx); err != nil {
		return nil, err
	}

	var raw json.RawMessage
	start := time.Now()
	err = doJSON(j.httpClient, "jupiter", req, &raw)
	j.metrics.ObserveCall("jupiter_quote", start)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && isNoRoute(apiErr.Code, apiErr.Message) {
			return nil, fmt.Errorf("%w: %s", ErrNoRoute, apiErr.Message)
		}
		return nil, err
	}

	var resp quoteResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode jupiter quote: %w", err)
	}
	if resp.Error != "" {
		if isNoRoute("", resp.Error) {
			return nil, fmt.Errorf("%w: %s", ErrNoRoute, resp.Error)
		}
		return nil, &APIError{Service: "jupiter", Message: resp.Error}
	}

	outAmount, ok := math.NewIntFromString(resp.OutAmount)
	if !ok || len(resp.RoutePlan) == 0 {
		return nil, ErrNoRoute
	}
	inAmount, ok := math.NewIntFromString(resp.InAmount)
	if !ok {
		inAmount = p.Amount
	}
	threshold, ok := math.NewIntFromString(resp.OtherAmountThreshold)
	if !ok {
		threshold = outAmount
	}

	quote := &types.Quote{
		InputMint:            resp.InputMint,
		OutputMint:           resp.OutputMint,
		InAmount:             inAmount,
		OutAmount:            outAmount,
		OtherAmountThreshold: threshold,
		PriceImpactPct:       resp.PriceImpactPct,
		SlippageBps:          resp.SlippageBps,
		PlatformFeeBps:       p.PlatformFeeBps,
		Raw:                  raw,
	}
	if resp.PlatformFee != nil {
		quote.PlatformFeeBps = resp.PlatformFee.FeeBps
	}
	for _, step := range resp.RoutePlan {
		quote.RoutePlan = append(quote.RoutePlan, types.RouteStep{
			AMMKey:     step.SwapInfo.AMMKey,
			Label:      step.SwapInfo.Label,
			InputMint:  step.SwapInfo.InputMint,
			OutputMint: step.SwapInfo.OutputMint,
			Percent:    step.Percent,
		})
	}

	j.log.Debug("quote received",
		zap.String("inputMint", quote.InputMint),
		zap.String("outputMint", quote.OutputMint),
		zap.Stringer("inAmount", quote.InAmount),
		zap.Stringer("outAmount", quote.OutAmount),
		zap.Int("hops", len(quote.RoutePlan)))

	return quote, nil
}

type buildRequest struct {
	UserPublicKey    string          `json:"userPublicKey"`
	QuoteResponse    json.RawMessage `json:"quoteResponse"`
	WrapAndUnwrapSol bool            `json:"wrapAndUnwrapSol"`
	FeeAccount       string          `json:"feeAccount,omitempty"`
	PlatformFee      *platformFee    `json:"platformFee,omitempty"`
}

type platformFee struct {
	FeeBps     int    `json:"feeBps"`
	FeeAccount string `json:"feeAccount"`
}

type buildResponse struct {
	SwapTransaction           string `json:"swapTransaction"`
	LastValidBlockHeight      uint64 `json:"lastValidBlockHeight"`
	PrioritizationFeeLamports uint64 `json:"prioritizationFeeLamports"`
	Error                     string `json:"error"`
}

// BuildSwap asks the aggregator for an unsigned transaction executing quote
func (j *Jupiter) BuildSwap(ctx context.Context, p BuildParams) (*SwapTransaction, error) {
	if p.Quote == nil || len(p.Quote.Raw) == 0 {
		return nil, fmt.Errorf("a quote is required to build a swap")
	}

	body := buildRequest{
		UserPublicKey:    p.UserPublicKey,
		QuoteResponse:    p.Quote.Raw,
		WrapAndUnwrapSol: true,
	}
	if p.FeeAccount != "" {
		body.FeeAccount = p.FeeAccount
		body.PlatformFee = &platformFee{FeeBps: p.PlatformFeeBps, FeeAccount: p.FeeAccount}
	}

	req, err := newJSONRequest(ctx, http.MethodPost, j.swapURL+"/swap", body)
	if err != nil {
		return nil, err
	}
	j.authorize(req)

	if err := j.wait(ctx); err != nil {
		return nil, err
	}

	var resp buildResponse
	start := time.Now()
	err = doJSON(j.httpClient, "jupiter", req, &resp)
	j.metrics.ObserveCall("jupiter_swap", start)
	if err != nil {
		return nil, err
	}

	if resp.SwapTransaction == "" {
		msg := resp.Error
		if msg == "" {
			msg = "swap transaction missing from response"
		}
		return nil, &APIError{Service: "jupiter", StatusCode: http.StatusOK, Message: msg}
	}

	return &SwapTransaction{
		Transaction:               resp.SwapTransaction,
		LastValidBlockHeight:      resp.LastValidBlockHeight,
		PrioritizationFeeLamports: resp.PrioritizationFeeLamports,
	}, nil
}

func (j *Jupiter) authorize(req *http.Request) {
	if j.apiKey != "" {
		req.Header.Set("x-api-key", j.apiKey)
	}
}

func (j *Jupiter) wait(ctx context.Context) error {
	if j.limiter == nil {
		return nil
	}
	if err := j.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	return nil
}

func isNoRoute(code, msg string) bool {
	switch code {
	case "COULD_NOT_FIND_ANY_ROUTE", "NO_ROUTES_FOUND", "TOKEN_NOT_TRADABLE":
		return true
	}
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "could not find any route") || strings.Contains(msg, "no route")
}
