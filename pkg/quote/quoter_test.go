package quote

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zionix-swap/pkg/client"
	"zionix-swap/pkg/types"
)

var (
	usdt = &types.TokenDescriptor{Address: "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB", Symbol: "USDT", Decimals: 6}
	sol  = &types.TokenDescriptor{Address: types.NativeMint, Symbol: "SOL", Decimals: 9}
)

type fakeFetcher struct {
	mu    sync.Mutex
	calls []client.QuoteParams
	gates map[string]chan struct{}
	err   error
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{gates: map[string]chan struct{}{}}
}

// hold makes requests for amount block until the returned func is called
func (f *fakeFetcher) hold(amount string) func() {
	ch := make(chan struct{})
	f.mu.Lock()
	f.gates[amount] = ch
	f.mu.Unlock()
	return func() { close(ch) }
}

func (f *fakeFetcher) GetQuote(_ context.Context, p client.QuoteParams) (*types.Quote, error) {
	f.mu.Lock()
	f.calls = append(f.calls, p)
	gate := f.gates[p.Amount.String()]
	err := f.err
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return &types.Quote{
		InputMint:  p.InputMint,
		OutputMint: p.OutputMint,
		InAmount:   p.Amount,
		OutAmount:  p.Amount.MulRaw(12),
	}, nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestFetchComputesBuyAmount(t *testing.T) {
	f := &fakeFetcher{}
	q := New(f)

	res, err := q.Fetch(context.Background(), Input{InputToken: usdt, OutputToken: sol, Amount: "10"})
	require.NoError(t, err)

	require.Len(t, f.calls, 1)
	assert.Equal(t, "10000000", f.calls[0].Amount.String())
	assert.Equal(t, 100, f.calls[0].SlippageBps)
	assert.Equal(t, 100, f.calls[0].PlatformFeeBps)
	// 120000000 lamports at 9 decimals
	assert.Equal(t, "0.120000", res.BuyAmount)
}

func TestRequestDebounces(t *testing.T) {
	f := newFakeFetcher()
	q := New(f, WithDebounce(30*time.Millisecond))

	q.Request(Input{InputToken: usdt, OutputToken: sol, Amount: "1"})
	q.Request(Input{InputToken: usdt, OutputToken: sol, Amount: "10"})
	q.Request(Input{InputToken: usdt, OutputToken: sol, Amount: "100"})

	require.Eventually(t, func() bool { return q.Current() != nil }, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)

	assert.Equal(t, 1, f.callCount())
	assert.Equal(t, "100000000", q.Current().InAmount.String())
}

func TestLatestRequestWins(t *testing.T) {
	f := newFakeFetcher()
	release := f.hold("1000000")

	var mu sync.Mutex
	var updates []*Result
	q := New(f, WithDebounce(5*time.Millisecond), OnUpdate(func(r *Result) {
		mu.Lock()
		updates = append(updates, r)
		mu.Unlock()
	}))

	q.Request(Input{InputToken: usdt, OutputToken: sol, Amount: "1"})
	require.Eventually(t, func() bool { return f.callCount() == 1 }, time.Second, time.Millisecond)

	q.Request(Input{InputToken: usdt, OutputToken: sol, Amount: "2"})
	require.Eventually(t, func() bool { return q.Current() != nil }, time.Second, time.Millisecond)

	release()
	time.Sleep(30 * time.Millisecond)

	current := q.Current()
	require.NotNil(t, current)
	assert.Equal(t, "2000000", current.InAmount.String())

	mu.Lock()
	defer mu.Unlock()
	for _, u := range updates {
		assert.Equal(t, "2", u.Input.Amount, "stale result must never be applied")
	}
}

func TestInvalidAmountClearsWithoutRequest(t *testing.T) {
	f := newFakeFetcher()
	q := New(f, WithDebounce(5*time.Millisecond))

	q.Request(Input{InputToken: usdt, OutputToken: sol, Amount: "5"})
	require.Eventually(t, func() bool { return q.Current() != nil }, time.Second, time.Millisecond)

	for _, amount := range []string{"0", "", "-3", "abc"} {
		q.Request(Input{InputToken: usdt, OutputToken: sol, Amount: amount})
		assert.Nil(t, q.Current(), amount)
	}
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, f.callCount())
}

func TestMissingTokenClears(t *testing.T) {
	var got *Result
	q := New(newFakeFetcher(), OnUpdate(func(r *Result) { got = r }))

	q.Request(Input{InputToken: usdt, Amount: "1"})
	require.NotNil(t, got)
	assert.ErrorIs(t, got.Err, ErrMissingToken)
	assert.True(t, got.Cleared())
}

func TestNoRouteClearsQuote(t *testing.T) {
	f := newFakeFetcher()
	updates := make(chan *Result, 4)
	q := New(f, WithDebounce(5*time.Millisecond), OnUpdate(func(r *Result) { updates <- r }))

	q.Request(Input{InputToken: usdt, OutputToken: sol, Amount: "5"})
	select {
	case r := <-updates:
		require.False(t, r.Cleared())
	case <-time.After(time.Second):
		t.Fatal("no quote received")
	}

	f.mu.Lock()
	f.err = client.ErrNoRoute
	f.mu.Unlock()

	q.Request(Input{InputToken: usdt, OutputToken: sol, Amount: "6"})

	select {
	case r := <-updates:
		assert.True(t, errors.Is(r.Err, client.ErrNoRoute))
		assert.Empty(t, r.BuyAmount)
	case <-time.After(time.Second):
		t.Fatal("no update received")
	}
	assert.Nil(t, q.Current())
}

func TestResultMatchesInput(t *testing.T) {
	res, err := New(&fakeFetcher{}).Fetch(context.Background(), Input{InputToken: usdt, OutputToken: sol, Amount: "3"})
	require.NoError(t, err)
	assert.True(t, res.Quote.Matches(usdt.Address, sol.Address, math.NewInt(3_000_000)))
	assert.False(t, res.Quote.Matches(usdt.Address, sol.Address, math.NewInt(3_000_001)))
}

func TestSupersededUpdateIsNotPublished(t *testing.T) {
	var got []*Result
	q := New(newFakeFetcher(), WithDebounce(time.Hour), OnUpdate(func(r *Result) { got = append(got, r) }))

	stale := &Result{Input: Input{InputToken: usdt, OutputToken: sol, Amount: "1"}}
	q.Request(Input{InputToken: usdt, OutputToken: sol, Amount: "2"})
	defer q.Stop()

	// a result computed for an earlier request arrives after the newer one
	q.publish(0, stale)
	assert.Empty(t, got)

	latest := &Result{Input: Input{InputToken: usdt, OutputToken: sol, Amount: "2"}}
	q.publish(1, latest)
	require.Len(t, got, 1)
	assert.Same(t, latest, got[0])
}

func TestUpdatesArriveInRequestOrder(t *testing.T) {
	f := newFakeFetcher()
	entered := make(chan struct{})
	proceed := make(chan struct{})

	var mu sync.Mutex
	var amounts []string
	q := New(f, WithDebounce(time.Millisecond), OnUpdate(func(r *Result) {
		if r.Input.Amount == "1" {
			close(entered)
			<-proceed
		}
		mu.Lock()
		amounts = append(amounts, r.Input.Amount)
		mu.Unlock()
	}))

	q.Request(Input{InputToken: usdt, OutputToken: sol, Amount: "1"})
	<-entered

	cleared := make(chan struct{})
	go func() {
		q.Request(Input{InputToken: usdt, OutputToken: sol, Amount: "0"})
		close(cleared)
	}()
	select {
	case <-cleared:
		t.Fatal("clearing update overtook the one being delivered")
	case <-time.After(20 * time.Millisecond):
	}

	close(proceed)
	<-cleared

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"1", "0"}, amounts)
	assert.Nil(t, q.Current())
}
