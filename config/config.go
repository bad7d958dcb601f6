package config

import (
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const lamportsPerSOL = 1_000_000_000

// Config holds the application configuration
type Config struct {
	RPCURL      string
	Commitment  string
	KeypairPath string

	Jupiter   JupiterConfig
	Swap      SwapConfig
	FeeServer FeeServerConfig
	Metadata  MetadataConfig
	Cache     CacheConfig
	Log       LogConfig
}

// JupiterConfig configures the quote and swap-build endpoints
type JupiterConfig struct {
	QuoteURL          string
	SwapURL           string
	APIKey            string
	RequestsPerSecond float64
}

// SwapConfig holds the fixed swap parameters
type SwapConfig struct {
	FeeWallet        string
	SlippageBps      int
	PlatformFeeBps   int
	MinFeeReserveSOL float64
	QuoteDebounce    time.Duration
	HTTPTimeout      time.Duration
	SubmitTimeout    time.Duration
	SubmitMaxRetries uint
}

// FeeServerConfig configures the privileged fee-account service.
// FundingSecret is only read by the server process.
type FeeServerConfig struct {
	URL           string
	Listen        string
	FundingSecret string
	FundNativeSOL float64
}

// MetadataConfig configures token metadata lookups and storage
type MetadataConfig struct {
	MongoURI        string
	MongoDatabase   string
	SolscanURL      string
	SolscanAPIKey   string
	CoinGeckoURL    string
	CoinGeckoAPIKey string
	CacheSize       int
	PriceTTL        time.Duration
}

// CacheConfig points at the local persistent cache file
type CacheConfig struct {
	Path string
}

// LogConfig configures the zap logger
type LogConfig struct {
	Level string
	JSON  bool
}

var globalConfig *Config

// Load reads configuration from environment variables and config file
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName(".zionix")
	v.SetConfigType("yaml")
	v.AddConfigPath("$HOME")
	v.AddConfigPath(".")

	setDefaults(v)

	// ZIONIX_SWAP_FEE_WALLET -> swap.fee_wallet
	v.SetEnvPrefix("ZIONIX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		RPCURL:      v.GetString("rpc_url"),
		Commitment:  v.GetString("commitment"),
		KeypairPath: v.GetString("keypair"),
		Jupiter: JupiterConfig{
			QuoteURL:          strings.TrimRight(v.GetString("jupiter.quote_url"), "/"),
			SwapURL:           strings.TrimRight(v.GetString("jupiter.swap_url"), "/"),
			APIKey:            v.GetString("jupiter.api_key"),
			RequestsPerSecond: v.GetFloat64("jupiter.requests_per_second"),
		},
		Swap: SwapConfig{
			FeeWallet:        v.GetString("swap.fee_wallet"),
			SlippageBps:      v.GetInt("swap.slippage_bps"),
			PlatformFeeBps:   v.GetInt("swap.platform_fee_bps"),
			MinFeeReserveSOL: v.GetFloat64("swap.min_fee_reserve_sol"),
			QuoteDebounce:    v.GetDuration("swap.quote_debounce"),
			HTTPTimeout:      v.GetDuration("swap.http_timeout"),
			SubmitTimeout:    v.GetDuration("swap.submit_timeout"),
			SubmitMaxRetries: v.GetUint("swap.submit_max_retries"),
		},
		FeeServer: FeeServerConfig{
			URL:           strings.TrimRight(v.GetString("fee_server.url"), "/"),
			Listen:        v.GetString("fee_server.listen"),
			FundingSecret: v.GetString("fee_server.funding_secret"),
			FundNativeSOL: v.GetFloat64("fee_server.fund_native_sol"),
		},
		Metadata: MetadataConfig{
			MongoURI:        v.GetString("metadata.mongo_uri"),
			MongoDatabase:   v.GetString("metadata.mongo_database"),
			SolscanURL:      strings.TrimRight(v.GetString("metadata.solscan_url"), "/"),
			SolscanAPIKey:   v.GetString("metadata.solscan_api_key"),
			CoinGeckoURL:    strings.TrimRight(v.GetString("metadata.coingecko_url"), "/"),
			CoinGeckoAPIKey: v.GetString("metadata.coingecko_api_key"),
			CacheSize:       v.GetInt("metadata.cache_size"),
			PriceTTL:        v.GetDuration("metadata.price_ttl"),
		},
		Cache: CacheConfig{
			Path: v.GetString("cache.path"),
		},
		Log: LogConfig{
			Level: v.GetString("log.level"),
			JSON:  v.GetBool("log.json"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	globalConfig = cfg
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("rpc_url", "https://api.mainnet-beta.solana.com")
	v.SetDefault("commitment", "confirmed")
	v.SetDefault("keypair", "")

	v.SetDefault("jupiter.quote_url", "https://quote-api.jup.ag/v6")
	v.SetDefault("jupiter.swap_url", "https://api.jup.ag/swap/v1")
	v.SetDefault("jupiter.api_key", "")
	v.SetDefault("jupiter.requests_per_second", 5)

	v.SetDefault("swap.fee_wallet", "")
	v.SetDefault("swap.slippage_bps", 100)
	v.SetDefault("swap.platform_fee_bps", 100)
	v.SetDefault("swap.min_fee_reserve_sol", 0.005)
	v.SetDefault("swap.quote_debounce", 500*time.Millisecond)
	v.SetDefault("swap.http_timeout", 20*time.Second)
	v.SetDefault("swap.submit_timeout", 60*time.Second)
	v.SetDefault("swap.submit_max_retries", 3)

	v.SetDefault("fee_server.url", "http://127.0.0.1:8787")
	v.SetDefault("fee_server.listen", ":8787")
	v.SetDefault("fee_server.funding_secret", "")
	v.SetDefault("fee_server.fund_native_sol", 0.001)

	v.SetDefault("metadata.mongo_uri", "")
	v.SetDefault("metadata.mongo_database", "zionix")
	v.SetDefault("metadata.solscan_url", "https://pro-api.solscan.io/v2.0")
	v.SetDefault("metadata.solscan_api_key", "")
	v.SetDefault("metadata.coingecko_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("metadata.coingecko_api_key", "")
	v.SetDefault("metadata.cache_size", 1024)
	v.SetDefault("metadata.price_ttl", 5*time.Minute)

	v.SetDefault("cache.path", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
}

func (c *Config) validate() error {
	if c.RPCURL == "" {
		return fmt.Errorf("RPC URL not configured. Please set ZIONIX_RPC_URL")
	}
	if c.Swap.SlippageBps < 0 || c.Swap.SlippageBps > 10_000 {
		return fmt.Errorf("slippage must be between 0 and 10000 bps, got %d", c.Swap.SlippageBps)
	}
	if c.Swap.PlatformFeeBps < 0 || c.Swap.PlatformFeeBps > 10_000 {
		return fmt.Errorf("platform fee must be between 0 and 10000 bps, got %d", c.Swap.PlatformFeeBps)
	}
	if c.Swap.MinFeeReserveSOL < 0 {
		return fmt.Errorf("fee reserve cannot be negative")
	}
	if c.Metadata.CacheSize <= 0 {
		return fmt.Errorf("metadata cache size must be positive, got %d", c.Metadata.CacheSize)
	}
	return nil
}

// ValidateForSwap checks the settings that swap execution needs
func (c *Config) ValidateForSwap() error {
	if c.Swap.FeeWallet == "" {
		return fmt.Errorf("fee wallet not found. Please set ZIONIX_SWAP_FEE_WALLET environment variable or swap.fee_wallet in .zionix.yaml")
	}
	return nil
}

// ValidateForServer checks the settings that the fee-account server needs
func (c *Config) ValidateForServer() error {
	if c.FeeServer.FundingSecret == "" {
		return fmt.Errorf("funding key not found. Please set ZIONIX_FEE_SERVER_FUNDING_SECRET on the server host")
	}
	return c.ValidateForSwap()
}

// MinFeeReserveLamports returns the native reserve kept back for fees
func (c *Config) MinFeeReserveLamports() uint64 {
	return uint64(math.Round(c.Swap.MinFeeReserveSOL * lamportsPerSOL))
}

// FundNativeLamports returns the minimum balance the server keeps on the fee wallet
func (c *Config) FundNativeLamports() uint64 {
	return uint64(math.Round(c.FeeServer.FundNativeSOL * lamportsPerSOL))
}

// Get returns the global configuration
func Get() *Config {
	if globalConfig == nil {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
			os.Exit(1)
		}
		return cfg
	}
	return globalConfig
}

// Set updates the global configuration
func Set(cfg *Config) {
	globalConfig = cfg
}
