// Package chain wraps the Solana node calls used by balance reads, fee
// accounts and swap execution.
package chain

import (
	"context"
	"errors"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// NativeMint denotes native SOL in quotes and balance reads.
var NativeMint = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")

// RPC is the subset of *rpc.Client this module depends on
type RPC interface {
	GetBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetBalanceResult, error)
	GetTokenAccountBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetTokenAccountBalanceResult, error)
	GetAccountInfo(ctx context.Context, account solana.PublicKey) (*rpc.GetAccountInfoResult, error)
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
	GetMinimumBalanceForRentExemption(ctx context.Context, dataSize uint64, commitment rpc.CommitmentType) (uint64, error)
	SimulateTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts *rpc.SimulateTransactionOpts) (*rpc.SimulateTransactionResponse, error)
	SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error)
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, transactionSignatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
}

var _ RPC = (*rpc.Client)(nil)

// NewClient connects to a Solana JSON-RPC endpoint
func NewClient(endpoint string) *rpc.Client {
	return rpc.New(endpoint)
}

// ParseCommitment maps a config string to a commitment level
func ParseCommitment(s string) rpc.CommitmentType {
	switch strings.ToLower(s) {
	case "finalized":
		return rpc.CommitmentFinalized
	case "confirmed":
		return rpc.CommitmentConfirmed
	case "processed":
		return rpc.CommitmentProcessed
	default:
		return rpc.CommitmentConfirmed
	}
}

// IsAccountMissing reports whether err means the queried account does not exist
func IsAccountMissing(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, rpc.ErrNotFound) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "could not find account") || strings.Contains(msg, "not found")
}

// AccountExists checks if an account exists on-chain
func AccountExists(ctx context.Context, client RPC, account solana.PublicKey) (bool, error) {
	info, err := client.GetAccountInfo(ctx, account)
	if err != nil {
		if IsAccountMissing(err) {
			return false, nil
		}
		return false, err
	}
	return info != nil && info.Value != nil, nil
}
