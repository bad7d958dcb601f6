package metadata

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/mr-tron/base58"
	"go.uber.org/zap"

	"zionix-swap/pkg/logger"
	"zionix-swap/pkg/parser"
	"zionix-swap/pkg/types"
)

// ErrInvalidAddress is returned for strings that are not 32-byte base58 keys
var ErrInvalidAddress = errors.New("invalid token address")

// MetadataSource fetches descriptors from the metadata API
type MetadataSource interface {
	TokenMeta(ctx context.Context, address string) (*types.TokenDescriptor, error)
}

// PriceSource returns USD prices by price-feed id
type PriceSource interface {
	PriceUSD(ctx context.Context, id string) (float64, error)
}

// Registry resolves tokens through an LRU, the store and the metadata API,
// in that order. Fetched tokens are written back to the store.
type Registry struct {
	store    Store
	source   MetadataSource
	prices   PriceSource
	tokens   *lru.Cache[string, *types.TokenDescriptor]
	priceTTL *expirable.LRU[string, float64]
	defaults map[string]*types.TokenDescriptor
	log      *zap.Logger
}

type registryOptions struct {
	cacheSize int
	priceTTL  time.Duration
	prices    PriceSource
	log       *zap.Logger
}

// RegistryOption configures a Registry
type RegistryOption func(*registryOptions)

// WithCacheSize bounds the in-memory token cache
func WithCacheSize(n int) RegistryOption {
	return func(o *registryOptions) { o.cacheSize = n }
}

// WithPriceTTL sets how long a fetched price is reused
func WithPriceTTL(d time.Duration) RegistryOption {
	return func(o *registryOptions) { o.priceTTL = d }
}

// WithPriceSource sets the price feed used for tokens with a feed id
func WithPriceSource(p PriceSource) RegistryOption {
	return func(o *registryOptions) { o.prices = p }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) RegistryOption {
	return func(o *registryOptions) { o.log = l }
}

// NewRegistry creates a registry over store and source
func NewRegistry(store Store, source MetadataSource, opts ...RegistryOption) (*Registry, error) {
	o := registryOptions{cacheSize: 1024, priceTTL: 5 * time.Minute}
	for _, opt := range opts {
		opt(&o)
	}

	tokens, err := lru.New[string, *types.TokenDescriptor](o.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create token cache: %w", err)
	}

	r := &Registry{
		store:    store,
		source:   source,
		prices:   o.prices,
		tokens:   tokens,
		priceTTL: expirable.NewLRU[string, float64](o.cacheSize, nil, o.priceTTL),
		defaults: make(map[string]*types.TokenDescriptor),
		log:      logger.OrNop(o.log),
	}
	for _, t := range DefaultTokens() {
		r.defaults[t.Address] = t
	}
	return r, nil
}

// ValidateAddress checks that s decodes to a 32-byte public key
func ValidateAddress(s string) error {
	if !parser.IsAddress(s) {
		return fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	raw, err := base58.Decode(s)
	if err != nil || len(raw) != 32 {
		return fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	return nil
}

// Seed writes the default tokens into the store when absent
func (r *Registry) Seed(ctx context.Context) error {
	for _, t := range DefaultTokens() {
		if _, err := r.store.Get(ctx, t.Address); err == nil {
			continue
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}
		if err := r.store.Put(ctx, t); err != nil {
			return fmt.Errorf("failed to seed %s: %w", t.Symbol, err)
		}
	}
	return nil
}

// Warm loads tokens into the in-memory cache
func (r *Registry) Warm(tokens []*types.TokenDescriptor) {
	for _, t := range tokens {
		if t != nil && t.Address != "" {
			r.tokens.Add(t.Address, t)
		}
	}
}

// Get returns the descriptor for address, fetching it when unknown
func (r *Registry) Get(ctx context.Context, address string) (*types.TokenDescriptor, error) {
	if err := ValidateAddress(address); err != nil {
		return nil, err
	}
	if t, ok := r.tokens.Get(address); ok {
		return t, nil
	}

	t, err := r.store.Get(ctx, address)
	switch {
	case err == nil:
		r.tokens.Add(address, t)
		return t, nil
	case !errors.Is(err, ErrNotFound):
		r.log.Warn("token store read failed", zap.String("address", address), zap.Error(err))
	}

	if t, ok := r.defaults[address]; ok {
		r.tokens.Add(address, t)
		return t, nil
	}
	return r.fetch(ctx, address)
}

// Import fetches address from the metadata API and stores it, replacing
// any earlier record.
func (r *Registry) Import(ctx context.Context, address string) (*types.TokenDescriptor, error) {
	if err := ValidateAddress(address); err != nil {
		return nil, err
	}
	return r.fetch(ctx, address)
}

// LookupSymbol finds a token by symbol, case-insensitively. Default
// tokens win over stored tokens that reuse their symbol.
func (r *Registry) LookupSymbol(ctx context.Context, symbol string) (*types.TokenDescriptor, error) {
	symbol = parser.NormalizeTokenSymbol(symbol)

	for _, t := range DefaultTokens() {
		if t.Symbol == symbol {
			return r.defaults[t.Address], nil
		}
	}
	for _, t := range r.tokens.Values() {
		if strings.EqualFold(t.Symbol, symbol) {
			return t, nil
		}
	}

	t, err := r.store.FindBySymbol(ctx, symbol)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: %s (import it by address first)", ErrNotFound, symbol)
		}
		return nil, err
	}
	r.tokens.Add(t.Address, t)
	return t, nil
}

// Resolve accepts either a mint address or a symbol
func (r *Registry) Resolve(ctx context.Context, symbolOrAddress string) (*types.TokenDescriptor, error) {
	if parser.IsAddress(symbolOrAddress) {
		return r.Get(ctx, symbolOrAddress)
	}
	return r.LookupSymbol(ctx, symbolOrAddress)
}

// List returns every known token, priority symbols first and the rest
// by symbol. SOL is always included.
func (r *Registry) List(ctx context.Context) ([]*types.TokenDescriptor, error) {
	stored, err := r.store.List(ctx)
	if err != nil {
		return nil, err
	}

	byAddress := make(map[string]*types.TokenDescriptor, len(stored)+len(r.defaults))
	for addr, t := range r.defaults {
		byAddress[addr] = t
	}
	for _, t := range stored {
		byAddress[t.Address] = t
	}

	out := make([]*types.TokenDescriptor, 0, len(byAddress))
	for _, t := range byAddress {
		if t.Symbol != "" {
			out = append(out, t)
		}
	}
	SortTokens(out)
	return out, nil
}

// SortTokens orders tokens by PrioritySymbols, then alphabetically by symbol
func SortTokens(tokens []*types.TokenDescriptor) {
	rank := func(t *types.TokenDescriptor) int {
		for i, s := range PrioritySymbols {
			if strings.EqualFold(t.Symbol, s) {
				return i
			}
		}
		return len(PrioritySymbols)
	}
	sort.SliceStable(tokens, func(i, j int) bool {
		ri, rj := rank(tokens[i]), rank(tokens[j])
		if ri != rj {
			return ri < rj
		}
		return strings.ToUpper(tokens[i].Symbol) < strings.ToUpper(tokens[j].Symbol)
	})
}

var errNoPriceSource = errors.New("no price source configured")

// RefreshPrice returns a current USD price for address. Lookup failures
// fall back to the last known price.
func (r *Registry) RefreshPrice(ctx context.Context, address string) (float64, error) {
	t, err := r.Get(ctx, address)
	if err != nil {
		return 0, err
	}
	if p, ok := r.priceTTL.Get(address); ok {
		return p, nil
	}

	var price float64
	if t.CoingeckoID != "" && r.prices != nil {
		price, err = r.prices.PriceUSD(ctx, t.CoingeckoID)
	} else if r.source != nil {
		var fresh *types.TokenDescriptor
		if fresh, err = r.source.TokenMeta(ctx, address); err == nil {
			price = fresh.PriceUSD
		}
	} else {
		err = errNoPriceSource
	}
	if err != nil {
		r.log.Warn("price refresh failed", zap.String("token", t.Symbol), zap.Error(err))
		return t.PriceUSD, nil
	}

	r.priceTTL.Add(address, price)
	updated := *t
	updated.PriceUSD = price
	updated.UpdatedAt = time.Now().UTC()
	r.tokens.Add(address, &updated)
	if err := r.store.UpdatePrice(ctx, address, price); err != nil && !errors.Is(err, ErrNotFound) {
		r.log.Warn("failed to persist price", zap.String("token", t.Symbol), zap.Error(err))
	}
	return price, nil
}

func (r *Registry) fetch(ctx context.Context, address string) (*types.TokenDescriptor, error) {
	if r.source == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, address)
	}
	t, err := r.source.TokenMeta(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch metadata for %s: %w", address, err)
	}
	t.Address = address
	t.LogoURI = NormalizeImageURL(t.LogoURI)
	if d, ok := r.defaults[address]; ok && t.CoingeckoID == "" {
		t.CoingeckoID = d.CoingeckoID
	}

	if err := r.store.Put(ctx, t); err != nil {
		r.log.Warn("failed to store token", zap.String("address", address), zap.Error(err))
	}
	r.tokens.Add(address, t)
	r.log.Debug("token metadata fetched", zap.String("symbol", t.Symbol), zap.String("address", address))
	return t, nil
}
