package swap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"zionix-swap/pkg/chain"
	"zionix-swap/pkg/logger"
	"zionix-swap/pkg/types"
	"zionix-swap/pkg/wallet"
)

// ExecutorConfig holds submission parameters
type ExecutorConfig struct {
	Commitment    rpc.CommitmentType
	MaxRetries    uint
	SubmitTimeout time.Duration
	PollInterval  time.Duration
}

// Executor signs and submits built transactions
type Executor struct {
	client chain.RPC
	cfg    ExecutorConfig
	log    *zap.Logger
}

// NewExecutor creates an Executor
func NewExecutor(client chain.RPC, cfg ExecutorConfig, log *zap.Logger) *Executor {
	if cfg.Commitment == "" {
		cfg.Commitment = rpc.CommitmentConfirmed
	}
	if cfg.SubmitTimeout <= 0 {
		cfg.SubmitTimeout = 60 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	return &Executor{client: client, cfg: cfg, log: logger.OrNop(log)}
}

// Sign re-stamps the transaction with a fresh blockhash and asks signer
// to sign it. A declined request returns wallet.ErrUserRejected.
func (e *Executor) Sign(ctx context.Context, built *Built, signer wallet.Signer) error {
	recent, err := e.client.GetLatestBlockhash(ctx, e.cfg.Commitment)
	if err != nil {
		return fmt.Errorf("failed to get recent blockhash: %w", err)
	}

	tx := built.Transaction
	tx.Message.RecentBlockhash = recent.Value.Blockhash
	tx.Signatures = make([]solana.Signature, tx.Message.Header.NumRequiredSignatures)
	built.LastValidBlockHeight = recent.Value.LastValidBlockHeight

	if err := signer.SignTransaction(ctx, tx); err != nil {
		if wallet.IsRejection(err) {
			return wallet.ErrUserRejected
		}
		return fmt.Errorf("failed to sign transaction: %w", err)
	}
	return nil
}

// Submit sends a signed transaction. Rebroadcasting is left to the node,
// bounded by MaxRetries.
func (e *Executor) Submit(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.SubmitTimeout)
	defer cancel()

	maxRetries := e.cfg.MaxRetries
	sig, err := e.client.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: e.cfg.Commitment,
		MaxRetries:          &maxRetries,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return solana.Signature{}, fmt.Errorf("transaction submission timed out after %s: %w", e.cfg.SubmitTimeout, err)
		}
		return solana.Signature{}, fmt.Errorf("failed to send transaction: %w", err)
	}

	e.log.Info("swap submitted", zap.Stringer("signature", sig))
	return sig, nil
}

// Execute signs and submits built
func (e *Executor) Execute(ctx context.Context, built *Built, signer wallet.Signer) (solana.Signature, error) {
	if err := e.Sign(ctx, built, signer); err != nil {
		return solana.Signature{}, err
	}
	return e.Submit(ctx, built.Transaction)
}

// Confirm polls until sig reaches the configured commitment or fails
func (e *Executor) Confirm(ctx context.Context, sig solana.Signature) (*types.SwapStatus, error) {
	return chain.WaitForConfirmation(ctx, e.client, sig, e.cfg.Commitment, e.cfg.PollInterval)
}
