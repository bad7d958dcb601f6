package feeaccount

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"zionix-swap/pkg/chain"
	"zionix-swap/pkg/logger"
)

// Provisioned describes a fee account after a server-side provisioning call
type Provisioned struct {
	Address   solana.PublicKey
	Standard  chain.TokenStandard
	Created   bool
	Signature solana.Signature
}

// Funder creates fee accounts paid for by a funding key. It only runs in
// the fee server; the key never leaves that process.
type Funder struct {
	client         chain.RPC
	key            solana.PrivateKey
	commitment     rpc.CommitmentType
	pollInterval   time.Duration
	confirmTimeout time.Duration
	log            *zap.Logger
}

// FunderOption configures a Funder
type FunderOption func(*Funder)

// WithCommitment sets the commitment used for preflight and confirmation
func WithCommitment(c rpc.CommitmentType) FunderOption {
	return func(f *Funder) { f.commitment = c }
}

// WithConfirmation sets how confirmation is polled
func WithConfirmation(interval, timeout time.Duration) FunderOption {
	return func(f *Funder) {
		f.pollInterval = interval
		f.confirmTimeout = timeout
	}
}

// WithFunderLogger sets the logger
func WithFunderLogger(l *zap.Logger) FunderOption {
	return func(f *Funder) { f.log = l }
}

// NewFunder creates a Funder paying with key
func NewFunder(client chain.RPC, key solana.PrivateKey, opts ...FunderOption) *Funder {
	f := &Funder{
		client:         client,
		key:            key,
		commitment:     rpc.CommitmentConfirmed,
		pollInterval:   time.Second,
		confirmTimeout: 60 * time.Second,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.log = logger.OrNop(f.log)
	return f
}

// Payer returns the funding address
func (f *Funder) Payer() solana.PublicKey {
	return f.key.PublicKey()
}

// Provision returns the owner's associated account for mint under the
// mint's own program, creating it when absent.
func (f *Funder) Provision(ctx context.Context, owner, mint solana.PublicKey) (*Provisioned, error) {
	std, err := chain.MintStandard(ctx, f.client, mint)
	if err != nil {
		return nil, err
	}

	ata, err := std.AssociatedAddress(owner, mint)
	if err != nil {
		return nil, err
	}

	exists, err := chain.AccountExists(ctx, f.client, ata)
	if err != nil {
		return nil, fmt.Errorf("failed to check fee account: %w", err)
	}
	if exists {
		f.log.Debug("fee account exists", zap.Stringer("account", ata), zap.String("standard", std.String()))
		return &Provisioned{Address: ata, Standard: std}, nil
	}

	ix := createIdempotentInstruction(f.Payer(), ata, owner, mint, std.ProgramID())
	sig, err := f.send(ctx, ix)
	if err != nil {
		return nil, fmt.Errorf("failed to create fee account: %w", err)
	}

	f.log.Info("fee account created",
		zap.Stringer("account", ata),
		zap.Stringer("mint", mint),
		zap.String("standard", std.String()),
		zap.Stringer("signature", sig))
	return &Provisioned{Address: ata, Standard: std, Created: true, Signature: sig}, nil
}

// CreateFeeAccount provisions the account and returns its address
func (f *Funder) CreateFeeAccount(ctx context.Context, owner, mint solana.PublicKey) (solana.PublicKey, error) {
	p, err := f.Provision(ctx, owner, mint)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return p.Address, nil
}

// EnsureNativeAccount funds owner with the rent-exempt minimum plus
// minLamports when it has no account yet. It reports whether a transfer was sent.
func (f *Funder) EnsureNativeAccount(ctx context.Context, owner solana.PublicKey, minLamports uint64) (bool, error) {
	exists, err := chain.AccountExists(ctx, f.client, owner)
	if err != nil {
		return false, fmt.Errorf("failed to check native account: %w", err)
	}
	if exists {
		return false, nil
	}

	rent, err := f.client.GetMinimumBalanceForRentExemption(ctx, 0, f.commitment)
	if err != nil {
		return false, fmt.Errorf("failed to get rent exemption: %w", err)
	}

	ix := system.NewTransferInstruction(rent+minLamports, f.Payer(), owner).Build()
	sig, err := f.send(ctx, ix)
	if err != nil {
		return false, fmt.Errorf("failed to fund native account: %w", err)
	}

	f.log.Info("native fee account funded",
		zap.Stringer("owner", owner),
		zap.Uint64("lamports", rent+minLamports),
		zap.Stringer("signature", sig))
	return true, nil
}

func (f *Funder) send(ctx context.Context, instructions ...solana.Instruction) (solana.Signature, error) {
	recent, err := f.client.GetLatestBlockhash(ctx, f.commitment)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to get recent blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(instructions, recent.Value.Blockhash, solana.TransactionPayer(f.Payer()))
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to create transaction: %w", err)
	}

	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(f.Payer()) {
			return &f.key
		}
		return nil
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	sig, err := f.client.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: f.commitment,
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to send transaction: %w", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, f.confirmTimeout)
	defer cancel()
	if _, err := chain.WaitForConfirmation(waitCtx, f.client, sig, f.commitment, f.pollInterval); err != nil {
		return sig, fmt.Errorf("transaction %s not confirmed: %w", sig, err)
	}
	return sig, nil
}

// createIdempotentInstruction builds the associated-token-account
// CreateIdempotent instruction for the given token program.
func createIdempotentInstruction(payer, ata, owner, mint, tokenProgram solana.PublicKey) solana.Instruction {
	return solana.NewInstruction(
		solana.SPLAssociatedTokenAccountProgramID,
		solana.AccountMetaSlice{
			solana.Meta(payer).WRITE().SIGNER(),
			solana.Meta(ata).WRITE(),
			solana.Meta(owner),
			solana.Meta(mint),
			solana.Meta(solana.SystemProgramID),
			solana.Meta(tokenProgram),
		},
		[]byte{1},
	)
}
