// Package quote keeps the current swap quote in step with the user's input.
// Requests are debounced and only the most recent one may update the result.
package quote

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cosmossdk.io/math"
	"go.uber.org/zap"

	"zionix-swap/pkg/client"
	"zionix-swap/pkg/logger"
	"zionix-swap/pkg/metrics"
	"zionix-swap/pkg/parser"
	"zionix-swap/pkg/types"
)

const buyAmountPlaces = 6

// ErrMissingToken is returned when either side of the pair is unset
var ErrMissingToken = errors.New("input and output token are required")

// Fetcher requests quotes from the aggregator
type Fetcher interface {
	GetQuote(ctx context.Context, p client.QuoteParams) (*types.Quote, error)
}

// Input is what the user has entered
type Input struct {
	InputToken  *types.TokenDescriptor
	OutputToken *types.TokenDescriptor
	Amount      string
}

// Result is a quote applied for one Input
type Result struct {
	Input     Input
	InAmount  math.Int
	Quote     *types.Quote
	BuyAmount string
	Err       error
}

// Cleared reports whether the result carries no quote
func (r *Result) Cleared() bool {
	return r == nil || r.Quote == nil
}

// Quoter debounces quote requests and applies only the latest response
type Quoter struct {
	fetcher        Fetcher
	debounce       time.Duration
	timeout        time.Duration
	slippageBps    int
	platformFeeBps int
	onUpdate       func(*Result)
	metrics        *metrics.Metrics
	log            *zap.Logger

	// notifyMu orders OnUpdate calls with the sequence they belong to
	notifyMu sync.Mutex

	mu      sync.Mutex
	seq     uint64
	timer   *time.Timer
	cancel  context.CancelFunc
	current *Result
}

// Option configures a Quoter
type Option func(*Quoter)

// WithDebounce sets the quiet period before a request is sent
func WithDebounce(d time.Duration) Option {
	return func(q *Quoter) { q.debounce = d }
}

// WithTimeout bounds each quote request
func WithTimeout(d time.Duration) Option {
	return func(q *Quoter) { q.timeout = d }
}

// WithFees sets the fixed slippage and platform fee in basis points
func WithFees(slippageBps, platformFeeBps int) Option {
	return func(q *Quoter) {
		q.slippageBps = slippageBps
		q.platformFeeBps = platformFeeBps
	}
}

// OnUpdate registers a callback run whenever the current result changes
func OnUpdate(fn func(*Result)) Option {
	return func(q *Quoter) { q.onUpdate = fn }
}

// WithMetrics counts request outcomes
func WithMetrics(m *metrics.Metrics) Option {
	return func(q *Quoter) { q.metrics = m }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(q *Quoter) { q.log = l }
}

// New creates a Quoter
func New(f Fetcher, opts ...Option) *Quoter {
	q := &Quoter{
		fetcher:        f,
		debounce:       500 * time.Millisecond,
		timeout:        20 * time.Second,
		slippageBps:    100,
		platformFeeBps: 100,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.log = logger.OrNop(q.log)
	return q
}

// Request schedules a quote for in after the debounce window. Each call
// supersedes every earlier one. An input that cannot be quoted clears the
// current result at once without contacting the aggregator.
func (q *Quoter) Request(in Input) {
	q.mu.Lock()
	q.seq++
	seq := q.seq
	q.stopLocked()

	if _, err := validate(in); err != nil {
		q.current = nil
		q.mu.Unlock()
		q.metrics.QuoteOutcome(metrics.QuoteCleared)
		q.publish(seq, &Result{Input: in, Err: err})
		return
	}

	q.timer = time.AfterFunc(q.debounce, func() { q.run(seq, in) })
	q.mu.Unlock()
}

// Current returns the applied result, or nil when there is none
func (q *Quoter) Current() *Result {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.current
}

// Stop cancels any pending or in-flight request
func (q *Quoter) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.seq++
	q.stopLocked()
}

func (q *Quoter) stopLocked() {
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
	if q.cancel != nil {
		q.cancel()
		q.cancel = nil
	}
}

func (q *Quoter) run(seq uint64, in Input) {
	q.mu.Lock()
	if seq != q.seq {
		q.mu.Unlock()
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	q.cancel = cancel
	q.mu.Unlock()
	defer cancel()

	res, err := q.Fetch(ctx, in)

	q.mu.Lock()
	if seq != q.seq {
		q.mu.Unlock()
		q.metrics.QuoteOutcome(metrics.QuoteStale)
		q.log.Debug("discarding superseded quote", zap.Uint64("seq", seq))
		return
	}
	q.cancel = nil
	if err != nil {
		q.current = nil
		res = &Result{Input: in, Err: err}
	} else {
		q.current = res
	}
	q.mu.Unlock()

	q.publish(seq, res)
}

// Fetch requests a quote for in immediately, bypassing the debounce.
func (q *Quoter) Fetch(ctx context.Context, in Input) (*Result, error) {
	amount, err := validate(in)
	if err != nil {
		return nil, err
	}

	quote, err := q.fetcher.GetQuote(ctx, client.QuoteParams{
		InputMint:      in.InputToken.Address,
		OutputMint:     in.OutputToken.Address,
		Amount:         amount,
		SlippageBps:    q.slippageBps,
		PlatformFeeBps: q.platformFeeBps,
	})
	if err != nil {
		if errors.Is(err, client.ErrNoRoute) {
			q.metrics.QuoteOutcome(metrics.QuoteNoRoute)
			q.log.Info("no route for pair",
				zap.String("input", in.InputToken.Symbol),
				zap.String("output", in.OutputToken.Symbol))
		} else if !errors.Is(err, context.Canceled) {
			q.metrics.QuoteOutcome(metrics.QuoteError)
			q.log.Warn("quote request failed", zap.Error(err))
		}
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}

	q.metrics.QuoteOutcome(metrics.QuoteOK)
	return &Result{
		Input:     in,
		InAmount:  amount,
		Quote:     quote,
		BuyAmount: parser.FormatUnits(quote.OutAmount, in.OutputToken.Decimals, buyAmountPlaces),
	}, nil
}

// publish hands res to OnUpdate unless a later request has superseded seq.
// OnUpdate must not call Request.
func (q *Quoter) publish(seq uint64, res *Result) {
	if q.onUpdate == nil {
		return
	}
	q.notifyMu.Lock()
	defer q.notifyMu.Unlock()

	q.mu.Lock()
	current := seq == q.seq
	q.mu.Unlock()
	if !current {
		q.log.Debug("skipping superseded update", zap.Uint64("seq", seq))
		return
	}
	q.onUpdate(res)
}

func validate(in Input) (math.Int, error) {
	if in.InputToken == nil || in.OutputToken == nil {
		return math.Int{}, ErrMissingToken
	}
	return parser.ToMinimalUnits(in.Amount, in.InputToken.Decimals)
}
