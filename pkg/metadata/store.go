// Package metadata resolves token descriptors by address or symbol,
// backed by a store, an in-memory LRU and the external metadata API.
package metadata

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"zionix-swap/pkg/types"
)

// ErrNotFound is returned when a token is not known
var ErrNotFound = errors.New("token not found")

// Store persists token descriptors keyed by mint address
type Store interface {
	Get(ctx context.Context, address string) (*types.TokenDescriptor, error)
	Put(ctx context.Context, token *types.TokenDescriptor) error
	FindBySymbol(ctx context.Context, symbol string) (*types.TokenDescriptor, error)
	List(ctx context.Context) ([]*types.TokenDescriptor, error)
	UpdatePrice(ctx context.Context, address string, priceUSD float64) error
}

// MemoryStore is a process-local Store
type MemoryStore struct {
	mu     sync.RWMutex
	tokens map[string]types.TokenDescriptor
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tokens: make(map[string]types.TokenDescriptor)}
}

func (s *MemoryStore) Get(_ context.Context, address string) (*types.TokenDescriptor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tokens[address]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (s *MemoryStore) Put(_ context.Context, token *types.TokenDescriptor) error {
	if token == nil || token.Address == "" {
		return errors.New("token address is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens[token.Address] = *token
	return nil
}

func (s *MemoryStore) FindBySymbol(_ context.Context, symbol string) (*types.TokenDescriptor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.tokens {
		if strings.EqualFold(t.Symbol, symbol) {
			t := t
			return &t, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) List(_ context.Context) ([]*types.TokenDescriptor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*types.TokenDescriptor, 0, len(s.tokens))
	for _, t := range s.tokens {
		t := t
		out = append(out, &t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out, nil
}

func (s *MemoryStore) UpdatePrice(_ context.Context, address string, priceUSD float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tokens[address]
	if !ok {
		return ErrNotFound
	}
	t.PriceUSD = priceUSD
	t.UpdatedAt = time.Now().UTC()
	s.tokens[address] = t
	return nil
}
