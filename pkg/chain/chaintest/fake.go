// Package chaintest provides an in-memory Solana node for tests.
package chaintest

import (
	"context"
	"strconv"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// FakeRPC is a scriptable stand-in for *rpc.Client
type FakeRPC struct {
	mu sync.Mutex

	Lamports       map[solana.PublicKey]uint64
	TokenAccounts  map[solana.PublicKey]rpc.UiTokenAmount
	Accounts       map[solana.PublicKey]*rpc.Account
	Statuses       map[solana.Signature]*rpc.SignatureStatusesResult
	Blockhash      solana.Hash
	RentExemption  uint64
	Simulation     *rpc.SimulateTransactionResult
	SendSignature  solana.Signature
	BalanceErr     error
	TokenErr       error
	AccountErr     error
	SimulateErr    error
	SendErr        error
	BlockhashErr   error
	AutoConfirm    bool

	Sent        []*solana.Transaction
	SentOpts    []rpc.TransactionOpts
	Simulated   []*solana.Transaction
	SimOpts     []*rpc.SimulateTransactionOpts
	TokenReads  []solana.PublicKey
	AccountHits []solana.PublicKey
	OnSend      func(tx *solana.Transaction)
}

// New returns an empty fake node
func New() *FakeRPC {
	return &FakeRPC{
		Lamports:      map[solana.PublicKey]uint64{},
		TokenAccounts: map[solana.PublicKey]rpc.UiTokenAmount{},
		Accounts:      map[solana.PublicKey]*rpc.Account{},
		Statuses:      map[solana.Signature]*rpc.SignatureStatusesResult{},
		Blockhash:     solana.Hash{9, 9, 9},
		RentExemption: 2_039_280,
	}
}

// SetTokenBalance creates a token account holding amount
func (f *FakeRPC) SetTokenBalance(account solana.PublicKey, amount uint64, decimals uint8) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.TokenAccounts[account] = rpc.UiTokenAmount{
		Amount:   strconv.FormatUint(amount, 10),
		Decimals: decimals,
	}
	f.Accounts[account] = &rpc.Account{Owner: solana.TokenProgramID}
}

// SetAccount marks an account as existing with the given owner program
func (f *FakeRPC) SetAccount(account, owner solana.PublicKey) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Accounts[account] = &rpc.Account{Owner: owner}
}

func (f *FakeRPC) GetBalance(_ context.Context, account solana.PublicKey, _ rpc.CommitmentType) (*rpc.GetBalanceResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.BalanceErr != nil {
		return nil, f.BalanceErr
	}
	return &rpc.GetBalanceResult{Value: f.Lamports[account]}, nil
}

func (f *FakeRPC) GetTokenAccountBalance(_ context.Context, account solana.PublicKey, _ rpc.CommitmentType) (*rpc.GetTokenAccountBalanceResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.TokenReads = append(f.TokenReads, account)
	if f.TokenErr != nil {
		return nil, f.TokenErr
	}
	amount, ok := f.TokenAccounts[account]
	if !ok {
		return nil, rpc.ErrNotFound
	}
	return &rpc.GetTokenAccountBalanceResult{Value: &amount}, nil
}

func (f *FakeRPC) GetAccountInfo(_ context.Context, account solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.AccountHits = append(f.AccountHits, account)
	if f.AccountErr != nil {
		return nil, f.AccountErr
	}
	acc, ok := f.Accounts[account]
	if !ok {
		return nil, rpc.ErrNotFound
	}
	return &rpc.GetAccountInfoResult{Value: acc}, nil
}

func (f *FakeRPC) GetLatestBlockhash(_ context.Context, _ rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.BlockhashErr != nil {
		return nil, f.BlockhashErr
	}
	return &rpc.GetLatestBlockhashResult{
		Value: &rpc.LatestBlockhashResult{Blockhash: f.Blockhash, LastValidBlockHeight: 100},
	}, nil
}

func (f *FakeRPC) GetMinimumBalanceForRentExemption(_ context.Context, _ uint64, _ rpc.CommitmentType) (uint64, error) {
	return f.RentExemption, nil
}

func (f *FakeRPC) SimulateTransactionWithOpts(_ context.Context, tx *solana.Transaction, opts *rpc.SimulateTransactionOpts) (*rpc.SimulateTransactionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Simulated = append(f.Simulated, tx)
	f.SimOpts = append(f.SimOpts, opts)
	if f.SimulateErr != nil {
		return nil, f.SimulateErr
	}
	result := f.Simulation
	if result == nil {
		result = &rpc.SimulateTransactionResult{}
	}
	return &rpc.SimulateTransactionResponse{Value: result}, nil
}

func (f *FakeRPC) SendTransactionWithOpts(_ context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error) {
	f.mu.Lock()
	f.Sent = append(f.Sent, tx)
	f.SentOpts = append(f.SentOpts, opts)
	onSend, sendErr, sig := f.OnSend, f.SendErr, f.SendSignature
	f.mu.Unlock()

	if sendErr != nil {
		return solana.Signature{}, sendErr
	}
	if onSend != nil {
		onSend(tx)
	}
	if sig.IsZero() && len(tx.Signatures) > 0 {
		sig = tx.Signatures[0]
	}

	f.mu.Lock()
	if f.AutoConfirm {
		f.Statuses[sig] = &rpc.SignatureStatusesResult{Slot: 1, ConfirmationStatus: rpc.ConfirmationStatusFinalized}
	}
	f.mu.Unlock()
	return sig, nil
}

func (f *FakeRPC) GetSignatureStatuses(_ context.Context, _ bool, sigs ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := &rpc.GetSignatureStatusesResult{}
	for _, sig := range sigs {
		out.Value = append(out.Value, f.Statuses[sig])
	}
	return out, nil
}

// SentCount returns the number of submitted transactions
func (f *FakeRPC) SentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Sent)
}
