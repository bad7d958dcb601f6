package chain

import (
	"context"
	"fmt"
	"strconv"

	"cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"zionix-swap/pkg/logger"
	"zionix-swap/pkg/parser"
)

const nativeDecimals = 9

// Balance is a holder's balance of one asset in minimal units
type Balance struct {
	Mint     solana.PublicKey
	Account  solana.PublicKey
	Amount   uint64
	Decimals uint8
	Found    bool
}

// Int returns the amount as an arbitrary-precision integer
func (b Balance) Int() math.Int {
	return math.NewIntFromUint64(b.Amount)
}

// UIAmount renders the balance in whole-token units
func (b Balance) UIAmount() string {
	return parser.FormatUnits(b.Int(), b.Decimals, int(b.Decimals))
}

// BalanceReader reads native and token balances
type BalanceReader struct {
	client     RPC
	commitment rpc.CommitmentType
	log        *zap.Logger
}

// NewBalanceReader creates a balance reader
func NewBalanceReader(client RPC, commitment rpc.CommitmentType, log *zap.Logger) *BalanceReader {
	return &BalanceReader{
		client:     client,
		commitment: commitment,
		log:        logger.OrNop(log),
	}
}

// NativeLamports returns the holder's native balance in lamports
func (r *BalanceReader) NativeLamports(ctx context.Context, holder solana.PublicKey) (uint64, error) {
	res, err := r.client.GetBalance(ctx, holder, r.commitment)
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return res.Value, nil
}

// Lookup returns the holder's balance of mint. A holder without an account
// under either standard has a zero balance with Found unset; only node
// failures are returned as errors.
func (r *BalanceReader) Lookup(ctx context.Context, holder, mint solana.PublicKey) (Balance, error) {
	if mint.Equals(NativeMint) {
		lamports, err := r.NativeLamports(ctx, holder)
		if err != nil {
			return Balance{Mint: mint, Decimals: nativeDecimals}, err
		}
		return Balance{Mint: mint, Account: holder, Amount: lamports, Decimals: nativeDecimals, Found: true}, nil
	}

	for _, std := range Standards {
		account, err := std.AssociatedAddress(holder, mint)
		if err != nil {
			return Balance{Mint: mint}, err
		}

		res, err := r.client.GetTokenAccountBalance(ctx, account, r.commitment)
		if err != nil {
			if IsAccountMissing(err) {
				continue
			}
			return Balance{Mint: mint}, fmt.Errorf("failed to get token balance: %w", err)
		}
		if res == nil || res.Value == nil {
			continue
		}

		amount, err := strconv.ParseUint(res.Value.Amount, 10, 64)
		if err != nil {
			return Balance{Mint: mint}, fmt.Errorf("failed to parse token balance: %w", err)
		}
		return Balance{
			Mint:     mint,
			Account:  account,
			Amount:   amount,
			Decimals: res.Value.Decimals,
			Found:    true,
		}, nil
	}

	r.log.Debug("no token account", zap.Stringer("holder", holder), zap.Stringer("mint", mint))
	return Balance{Mint: mint}, nil
}

// Read is Lookup for display: node failures are logged and read as zero.
func (r *BalanceReader) Read(ctx context.Context, holder, mint solana.PublicKey) Balance {
	bal, err := r.Lookup(ctx, holder, mint)
	if err != nil {
		r.log.Warn("balance read failed",
			zap.Stringer("holder", holder),
			zap.Stringer("mint", mint),
			zap.Error(err))
		return Balance{Mint: mint, Decimals: bal.Decimals}
	}
	return bal
}
