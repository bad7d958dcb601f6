package metadata

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zionix-swap/pkg/types"
)

const pyusd = "2b1kV6DkPAnxd5ixfnxCpjxmKwqjjaYmCZfHsFu24GXo"

type fakeSource struct {
	tokens map[string]types.TokenDescriptor
	calls  int
	err    error
}

func (f *fakeSource) TokenMeta(_ context.Context, address string) (*types.TokenDescriptor, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	t, ok := f.tokens[address]
	if !ok {
		return nil, errors.New("not found upstream")
	}
	return &t, nil
}

type fakePrices struct {
	price float64
	calls int
	err   error
}

func (f *fakePrices) PriceUSD(context.Context, string) (float64, error) {
	f.calls++
	return f.price, f.err
}

func newTestRegistry(t *testing.T, src *fakeSource, opts ...RegistryOption) (*Registry, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	r, err := NewRegistry(store, src, opts...)
	require.NoError(t, err)
	return r, store
}

func TestImportThenLookupBySymbol(t *testing.T) {
	src := &fakeSource{tokens: map[string]types.TokenDescriptor{
		pyusd: {Symbol: "PYUSD", Name: "PayPal USD", Decimals: 6, LogoURI: "ipfs://QmIcon"},
	}}
	r, store := newTestRegistry(t, src)
	ctx := context.Background()

	imported, err := r.Import(ctx, pyusd)
	require.NoError(t, err)
	assert.Equal(t, "https://cloudflare-ipfs.com/ipfs/QmIcon", imported.LogoURI)

	found, err := r.LookupSymbol(ctx, "pyusd")
	require.NoError(t, err)
	assert.Equal(t, imported.Symbol, found.Symbol)
	assert.Equal(t, imported.Name, found.Name)
	assert.Equal(t, imported.Decimals, found.Decimals)

	stored, err := store.Get(ctx, pyusd)
	require.NoError(t, err)
	assert.Equal(t, "PYUSD", stored.Symbol)
	assert.Equal(t, 1, src.calls)
}

func TestLookupFallsBackToStore(t *testing.T) {
	r, store := newTestRegistry(t, &fakeSource{})
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, &types.TokenDescriptor{Address: pyusd, Symbol: "PYUSD", Decimals: 6}))

	found, err := r.LookupSymbol(ctx, "PYUSD")
	require.NoError(t, err)
	assert.Equal(t, pyusd, found.Address)

	_, err = r.LookupSymbol(ctx, "NOPE")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestImportRejectsInvalidAddressBeforeFetching(t *testing.T) {
	src := &fakeSource{}
	r, _ := newTestRegistry(t, src)

	for _, addr := range []string{"", "not-an-address", "0OIl0OIl0OIl0OIl0OIl0OIl0OIl0OIl", "1111111111111111111111111111111111111111111"} {
		_, err := r.Import(context.Background(), addr)
		assert.ErrorIs(t, err, ErrInvalidAddress, addr)
	}
	assert.Zero(t, src.calls)
}

func TestGetReadsThrough(t *testing.T) {
	src := &fakeSource{tokens: map[string]types.TokenDescriptor{
		pyusd: {Symbol: "PYUSD", Decimals: 6},
	}}
	r, _ := newTestRegistry(t, src)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		tok, err := r.Get(ctx, pyusd)
		require.NoError(t, err)
		assert.Equal(t, "PYUSD", tok.Symbol)
	}
	assert.Equal(t, 1, src.calls)

	sol, err := r.Get(ctx, types.NativeMint)
	require.NoError(t, err)
	assert.Equal(t, "SOL", sol.Symbol)
	assert.Equal(t, 1, src.calls)
}

func TestGetEvictsLeastRecentlyUsed(t *testing.T) {
	src := &fakeSource{tokens: map[string]types.TokenDescriptor{
		pyusd: {Symbol: "PYUSD", Decimals: 6},
	}}
	r, _ := newTestRegistry(t, src, WithCacheSize(1))
	ctx := context.Background()

	_, err := r.Get(ctx, pyusd)
	require.NoError(t, err)
	_, err = r.Get(ctx, types.NativeMint)
	require.NoError(t, err)

	assert.False(t, r.tokens.Contains(pyusd))
	assert.True(t, r.tokens.Contains(types.NativeMint))
}

func TestResolve(t *testing.T) {
	r, _ := newTestRegistry(t, &fakeSource{})
	ctx := context.Background()

	sol, err := r.Resolve(ctx, "wsol")
	require.NoError(t, err)
	assert.True(t, sol.IsNative())

	usdc, err := r.Resolve(ctx, "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	require.NoError(t, err)
	assert.Equal(t, "USDC", usdc.Symbol)
}

func TestListOrdersPriorityTokens(t *testing.T) {
	r, store := newTestRegistry(t, &fakeSource{})
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, &types.TokenDescriptor{Address: pyusd, Symbol: "PYUSD", Decimals: 6}))
	require.NoError(t, store.Put(ctx, &types.TokenDescriptor{Address: "A7rqejP8LKN8syXMr4tvcKjs2iJ4WE6e7Ba6cYdVeBmP", Symbol: "AAA", Decimals: 6}))

	tokens, err := r.List(ctx)
	require.NoError(t, err)

	var symbols []string
	for _, tok := range tokens {
		symbols = append(symbols, tok.Symbol)
	}
	assert.Equal(t, []string{"SOL", "USDC", "USDT", "JUP", "AAA", "BONK", "PYUSD"}, symbols)
}

func TestRefreshPrice(t *testing.T) {
	prices := &fakePrices{price: 150.25}
	r, store := newTestRegistry(t, &fakeSource{}, WithPriceSource(prices), WithPriceTTL(time.Minute))
	ctx := context.Background()
	require.NoError(t, r.Seed(ctx))

	p, err := r.RefreshPrice(ctx, types.NativeMint)
	require.NoError(t, err)
	assert.Equal(t, 150.25, p)

	p, err = r.RefreshPrice(ctx, types.NativeMint)
	require.NoError(t, err)
	assert.Equal(t, 150.25, p)
	assert.Equal(t, 1, prices.calls)

	stored, err := store.Get(ctx, types.NativeMint)
	require.NoError(t, err)
	assert.Equal(t, 150.25, stored.PriceUSD)
}

func TestRefreshPriceDegradesOnFailure(t *testing.T) {
	prices := &fakePrices{err: errors.New("rate limited")}
	r, _ := newTestRegistry(t, &fakeSource{}, WithPriceSource(prices))

	p, err := r.RefreshPrice(context.Background(), types.NativeMint)
	require.NoError(t, err)
	assert.Zero(t, p)
}

func TestRefreshPriceWithoutSourcesKeepsStoredPrice(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Put(ctx, &types.TokenDescriptor{Address: pyusd, Symbol: "PYUSD", Decimals: 6, PriceUSD: 0.999}))

	r, err := NewRegistry(store, nil)
	require.NoError(t, err)

	p, err := r.RefreshPrice(ctx, pyusd)
	require.NoError(t, err)
	assert.Equal(t, 0.999, p)
}

func TestMemoryStoreUpdatePriceUnknown(t *testing.T) {
	err := NewMemoryStore().UpdatePrice(context.Background(), pyusd, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}
