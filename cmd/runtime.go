package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"zionix-swap/config"
	"zionix-swap/pkg/cache"
	"zionix-swap/pkg/chain"
	"zionix-swap/pkg/client"
	"zionix-swap/pkg/feeaccount"
	"zionix-swap/pkg/logger"
	"zionix-swap/pkg/metadata"
	"zionix-swap/pkg/metrics"
	"zionix-swap/pkg/quote"
	"zionix-swap/pkg/types"
)

// runtime wires the shared clients used by every command
type runtime struct {
	cfg        *config.Config
	log        *zap.Logger
	rpc        *rpc.Client
	commitment rpc.CommitmentType
	promReg    *prometheus.Registry
	metrics    *metrics.Metrics
	jupiter    *client.Jupiter
	registry   *metadata.Registry
	cache      *cache.FileCache
	closers    []func()
}

func newRuntime(cmd *cobra.Command) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	level := cfg.Log.Level
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = "debug"
	}
	log, err := logger.New(level, cfg.Log.JSON)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	rt := &runtime{
		cfg:        cfg,
		log:        log,
		rpc:        chain.NewClient(cfg.RPCURL),
		commitment: chain.ParseCommitment(cfg.Commitment),
		promReg:    reg,
		metrics:    m,
	}
	rt.closers = append(rt.closers, func() { _ = log.Sync() })

	rt.jupiter = client.NewJupiter(cfg.Jupiter.QuoteURL, cfg.Jupiter.SwapURL, cfg.Jupiter.APIKey,
		client.WithTimeout(cfg.Swap.HTTPTimeout),
		client.WithRateLimit(cfg.Jupiter.RequestsPerSecond),
		client.WithMetrics(m),
		client.WithLogger(log),
	)

	if err := rt.openRegistry(); err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}

func (rt *runtime) openRegistry() error {
	cfg := rt.cfg

	var store metadata.Store = metadata.NewMemoryStore()
	if cfg.Metadata.MongoURI != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mongoStore, err := metadata.ConnectMongo(ctx, cfg.Metadata.MongoURI, cfg.Metadata.MongoDatabase)
		if err != nil {
			return err
		}
		rt.closers = append(rt.closers, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = mongoStore.Close(ctx)
		})
		store = mongoStore
	}

	registry, err := metadata.NewRegistry(store,
		client.NewSolscan(cfg.Metadata.SolscanURL, cfg.Metadata.SolscanAPIKey, cfg.Swap.HTTPTimeout, rt.metrics),
		metadata.WithCacheSize(cfg.Metadata.CacheSize),
		metadata.WithPriceTTL(cfg.Metadata.PriceTTL),
		metadata.WithPriceSource(client.NewCoinGecko(cfg.Metadata.CoinGeckoURL, cfg.Metadata.CoinGeckoAPIKey, cfg.Swap.HTTPTimeout, rt.metrics)),
		metadata.WithLogger(rt.log),
	)
	if err != nil {
		return err
	}

	local, err := cache.Open(cfg.Cache.Path)
	if err != nil {
		rt.log.Warn("local cache unavailable", zap.Error(err))
	} else {
		registry.Warm(local.Tokens())
		rt.cache = local
	}

	rt.registry = registry
	return nil
}

// resolveToken finds a token by symbol or address and remembers its icon
func (rt *runtime) resolveToken(ctx context.Context, symbolOrAddress string) (*types.TokenDescriptor, error) {
	t, err := rt.registry.Resolve(ctx, symbolOrAddress)
	if err != nil {
		return nil, err
	}
	if rt.cache != nil && t.LogoURI != "" {
		if _, ok := rt.cache.Image(t.Address); !ok {
			if err := rt.cache.SetImage(t.Address, metadata.NormalizeImageURL(t.LogoURI)); err != nil {
				rt.log.Debug("failed to cache token image", zap.Error(err))
			}
		}
	}
	return t, nil
}

func (rt *runtime) quoter(opts ...quote.Option) *quote.Quoter {
	base := []quote.Option{
		quote.WithDebounce(rt.cfg.Swap.QuoteDebounce),
		quote.WithTimeout(rt.cfg.Swap.HTTPTimeout),
		quote.WithFees(rt.cfg.Swap.SlippageBps, rt.cfg.Swap.PlatformFeeBps),
		quote.WithMetrics(rt.metrics),
		quote.WithLogger(rt.log),
	}
	return quote.New(rt.jupiter, append(base, opts...)...)
}

func (rt *runtime) feeWallet() (solana.PublicKey, error) {
	if err := rt.cfg.ValidateForSwap(); err != nil {
		return solana.PublicKey{}, err
	}
	owner, err := solana.PublicKeyFromBase58(rt.cfg.Swap.FeeWallet)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid fee wallet %q: %w", rt.cfg.Swap.FeeWallet, err)
	}
	return owner, nil
}

func (rt *runtime) provisioner() *feeaccount.Provisioner {
	creator := feeaccount.NewRemoteCreator(rt.cfg.FeeServer.URL, rt.cfg.Swap.HTTPTimeout)
	return feeaccount.NewProvisioner(rt.rpc, creator, rt.metrics, rt.log)
}

func (rt *runtime) balances() *chain.BalanceReader {
	return chain.NewBalanceReader(rt.rpc, rt.commitment, rt.log)
}

// Close releases connections and flushes the logger
func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
}
