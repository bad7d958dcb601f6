package swap

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"cosmossdk.io/math"
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"zionix-swap/pkg/chain"
	"zionix-swap/pkg/client"
	"zionix-swap/pkg/feeaccount"
	"zionix-swap/pkg/logger"
	"zionix-swap/pkg/types"
)

const nativeDecimals = 9

var insufficientLamports = regexp.MustCompile(`insufficient lamports (\d+), need (\d+)`)

// SwapAPI builds unsigned swap transactions
type SwapAPI interface {
	BuildSwap(ctx context.Context, p client.BuildParams) (*client.SwapTransaction, error)
}

// FeeAccounts ensures a fee account exists for an owner and mint
type FeeAccounts interface {
	Ensure(ctx context.Context, owner, mint solana.PublicKey) (*types.FeeAccountRecord, error)
}

// Built is a simulated, ready-to-sign swap transaction
type Built struct {
	Transaction          *solana.Transaction
	Quote                *types.Quote
	FeeAccount           *types.FeeAccountRecord
	LastValidBlockHeight uint64
	UnitsConsumed        *uint64
}

// BuilderConfig holds the fixed build parameters
type BuilderConfig struct {
	FeeWallet      solana.PublicKey
	PlatformFeeBps int
	MinFeeReserve  uint64
	Commitment     rpc.CommitmentType
	Timeout        time.Duration
}

// Builder turns a quote into a simulated transaction
type Builder struct {
	api    SwapAPI
	fees   FeeAccounts
	client chain.RPC
	cfg    BuilderConfig
	log    *zap.Logger
}

// NewBuilder creates a Builder
func NewBuilder(api SwapAPI, fees FeeAccounts, client chain.RPC, cfg BuilderConfig, log *zap.Logger) *Builder {
	if cfg.Commitment == "" {
		cfg.Commitment = rpc.CommitmentConfirmed
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	return &Builder{api: api, fees: fees, client: client, cfg: cfg, log: logger.OrNop(log)}
}

// ResolveFeeAccount picks the fee account for q: the input mint first,
// then the output mint.
func (b *Builder) ResolveFeeAccount(ctx context.Context, q *types.Quote) (*types.FeeAccountRecord, error) {
	var causes []string
	for _, m := range []string{q.InputMint, q.OutputMint} {
		mint, err := solana.PublicKeyFromBase58(m)
		if err != nil {
			causes = append(causes, fmt.Sprintf("%s: %v", m, err))
			continue
		}
		rec, err := b.fees.Ensure(ctx, b.cfg.FeeWallet, mint)
		if err == nil && rec.Usable() {
			return rec, nil
		}
		if err == nil {
			err = errors.New("no usable account")
		}
		b.log.Warn("fee account unavailable for mint", zap.String("mint", m), zap.Error(err))
		causes = append(causes, err.Error())
	}
	return nil, fmt.Errorf("%w: %s", feeaccount.ErrFeeAccountMissing, strings.Join(causes, "; "))
}

// Build requests the transaction for q, decodes and simulates it, then
// checks the native reserve.
func (b *Builder) Build(ctx context.Context, q *types.Quote, user solana.PublicKey, fee *types.FeeAccountRecord) (*Built, error) {
	if q == nil {
		return nil, ErrNoQuote
	}

	params := client.BuildParams{
		UserPublicKey:  user.String(),
		Quote:          q,
		PlatformFeeBps: q.PlatformFeeBps,
	}
	if fee.Usable() {
		params.FeeAccount = fee.Address
		if params.PlatformFeeBps == 0 {
			params.PlatformFeeBps = b.cfg.PlatformFeeBps
		}
	}

	buildCtx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	swapTx, err := b.api.BuildSwap(buildCtx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to build swap transaction: %w", err)
	}

	tx, err := decodeTransaction(swapTx.Transaction)
	if err != nil {
		return nil, err
	}

	sim, err := b.client.SimulateTransactionWithOpts(buildCtx, tx, &rpc.SimulateTransactionOpts{
		SigVerify:              false,
		ReplaceRecentBlockhash: true,
		Commitment:             b.cfg.Commitment,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to simulate transaction: %w", err)
	}
	if sim.Value != nil && sim.Value.Err != nil {
		return nil, b.simulationFailure(ctx, user, sim.Value)
	}

	lamports, err := b.client.GetBalance(ctx, user, b.cfg.Commitment)
	if err != nil {
		return nil, fmt.Errorf("failed to read native balance: %w", err)
	}
	if lamports.Value < b.cfg.MinFeeReserve {
		return nil, &InsufficientFundsError{
			Symbol:   "SOL",
			Have:     math.NewIntFromUint64(lamports.Value),
			Need:     math.NewIntFromUint64(b.cfg.MinFeeReserve),
			Decimals: nativeDecimals,
			Purpose:  "network fees",
		}
	}

	built := &Built{
		Transaction:          tx,
		Quote:                q,
		FeeAccount:           fee,
		LastValidBlockHeight: swapTx.LastValidBlockHeight,
	}
	if sim.Value != nil {
		built.UnitsConsumed = sim.Value.UnitsConsumed
	}
	b.log.Debug("swap transaction built",
		zap.String("input", q.InputMint),
		zap.String("output", q.OutputMint),
		zap.Stringer("inAmount", q.InAmount))
	return built, nil
}

func (b *Builder) simulationFailure(ctx context.Context, user solana.PublicKey, res *rpc.SimulateTransactionResult) error {
	raw, err := json.Marshal(res.Err)
	errText := string(raw)
	if err != nil {
		errText = fmt.Sprintf("%v", res.Err)
	}

	for _, line := range res.Logs {
		if m := insufficientLamports.FindStringSubmatch(line); m != nil {
			have, _ := math.NewIntFromString(m[1])
			need, _ := math.NewIntFromString(m[2])
			// The log does not name the account. Only a match on the
			// signer's balance is reported as the user's shortfall.
			purpose := "a transfer in the swap route"
			if bal, err := b.client.GetBalance(ctx, user, b.cfg.Commitment); err == nil && have.Equal(math.NewIntFromUint64(bal.Value)) {
				purpose = "network fees"
			}
			return &InsufficientFundsError{Symbol: "SOL", Have: have, Need: need, Decimals: nativeDecimals, Purpose: purpose}
		}
	}

	if strings.Contains(errText, "InsufficientFundsForFee") || strings.Contains(errText, "InsufficientFundsForRent") {
		have := math.ZeroInt()
		if bal, err := b.client.GetBalance(ctx, user, b.cfg.Commitment); err == nil {
			have = math.NewIntFromUint64(bal.Value)
		}
		return &InsufficientFundsError{
			Symbol:   "SOL",
			Have:     have,
			Need:     math.NewIntFromUint64(b.cfg.MinFeeReserve),
			Decimals: nativeDecimals,
			Purpose:  "network fees",
		}
	}

	return &SimulationError{Err: errText, Logs: res.Logs}
}

func decodeTransaction(encoded string) (*solana.Transaction, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode swap transaction: %w", err)
	}
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize swap transaction: %w", err)
	}
	return tx, nil
}
