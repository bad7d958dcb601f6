package metadata

import "zionix-swap/pkg/types"

// PrioritySymbols are listed first, in this order
var PrioritySymbols = []string{"SOL", "USDC", "USDT", "JUP"}

const tokenListAssets = "https://cdn.jsdelivr.net/gh/solana-labs/token-list@main/assets/mainnet/"

// DefaultTokens are always resolvable without the store or the network
func DefaultTokens() []*types.TokenDescriptor {
	return []*types.TokenDescriptor{
		{
			Address:     types.NativeMint,
			Symbol:      "SOL",
			Name:        "Solana",
			Decimals:    9,
			LogoURI:     tokenListAssets + types.NativeMint + "/logo.png",
			CoingeckoID: "solana",
		},
		{
			Address:     "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
			Symbol:      "USDC",
			Name:        "USD Coin",
			Decimals:    6,
			LogoURI:     tokenListAssets + "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v/logo.png",
			CoingeckoID: "usd-coin",
		},
		{
			Address:     "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB",
			Symbol:      "USDT",
			Name:        "USDT",
			Decimals:    6,
			LogoURI:     tokenListAssets + "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB/logo.png",
			CoingeckoID: "tether",
		},
		{
			Address:     "JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN",
			Symbol:      "JUP",
			Name:        "Jupiter",
			Decimals:    6,
			LogoURI:     tokenListAssets + "JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN/logo.png",
			CoingeckoID: "jupiter-exchange-solana",
		},
		{
			Address:     "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263",
			Symbol:      "BONK",
			Name:        "Bonk",
			Decimals:    5,
			LogoURI:     tokenListAssets + "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263/logo.png",
			CoingeckoID: "bonk",
		},
	}
}
