package types

import "time"

// NativeMint is the wrapped-native mint used to denote SOL in quotes.
const NativeMint = "So11111111111111111111111111111111111111112"

// TokenDescriptor describes a fungible asset. Immutable once fetched,
// apart from price refreshes.
type TokenDescriptor struct {
	Address     string    `json:"address" bson:"_id"`
	Symbol      string    `json:"symbol" bson:"symbol"`
	Name        string    `json:"name" bson:"name"`
	Decimals    uint8     `json:"decimals" bson:"decimals"`
	LogoURI     string    `json:"logoURI,omitempty" bson:"logoURI,omitempty"`
	PriceUSD    float64   `json:"priceUsd,omitempty" bson:"priceUsd,omitempty"`
	CoingeckoID string    `json:"coingeckoId,omitempty" bson:"coingeckoId,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt,omitempty" bson:"updatedAt,omitempty"`
}

// IsNative reports whether the token is native SOL
func (t *TokenDescriptor) IsNative() bool {
	return t != nil && t.Address == NativeMint
}
