package swap

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"zionix-swap/pkg/chain"
	"zionix-swap/pkg/logger"
	"zionix-swap/pkg/metrics"
	"zionix-swap/pkg/types"
	"zionix-swap/pkg/wallet"
)

// Balances reads the balances checked before a swap
type Balances interface {
	NativeLamports(ctx context.Context, holder solana.PublicKey) (uint64, error)
	Lookup(ctx context.Context, holder, mint solana.PublicKey) (chain.Balance, error)
}

// TxBuilder resolves the fee account and builds the transaction
type TxBuilder interface {
	ResolveFeeAccount(ctx context.Context, q *types.Quote) (*types.FeeAccountRecord, error)
	Build(ctx context.Context, q *types.Quote, user solana.PublicKey, fee *types.FeeAccountRecord) (*Built, error)
}

// TxExecutor signs and submits built transactions
type TxExecutor interface {
	Sign(ctx context.Context, built *Built, signer wallet.Signer) error
	Submit(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
}

// Deps are the collaborators of a Session
type Deps struct {
	Balances      Balances
	Builder       TxBuilder
	Executor      TxExecutor
	MinFeeReserve uint64
	Metrics       *metrics.Metrics
	Log           *zap.Logger
}

// Snapshot is a copy of the session's state
type Snapshot struct {
	State      State
	Input      *types.TokenDescriptor
	Output     *types.TokenDescriptor
	Amount     math.Int
	Quote      *types.Quote
	FeeAccount *types.FeeAccountRecord
	Signature  string
	Err        error
}

// Session holds the inputs of one swap and drives it through the Machine
type Session struct {
	deps    Deps
	machine *Machine
	log     *zap.Logger

	mu         sync.Mutex
	input      *types.TokenDescriptor
	output     *types.TokenDescriptor
	amount     math.Int
	quote      *types.Quote
	feeAccount *types.FeeAccountRecord
	signature  string
}

// NewSession creates a session with an idle machine
func NewSession(deps Deps) *Session {
	return &Session{
		deps:    deps,
		machine: NewMachine(),
		log:     logger.OrNop(deps.Log),
	}
}

// Machine returns the session's state machine
func (s *Session) Machine() *Machine {
	return s.machine
}

// SetTokens sets the pair
func (s *Session) SetTokens(input, output *types.TokenDescriptor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.input, s.output = input, output
}

// SetAmount sets the input amount in minimal units
func (s *Session) SetAmount(amount math.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.amount = amount
}

// SetQuote sets the quote to execute
func (s *Session) SetQuote(q *types.Quote) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quote = q
}

// Snapshot returns the current session state
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		State:      s.machine.State(),
		Input:      s.input,
		Output:     s.output,
		Amount:     s.amount,
		Quote:      s.quote,
		FeeAccount: s.feeAccount,
		Signature:  s.signature,
		Err:        s.machine.Err(),
	}
}

// CheckQuote returns ErrStaleQuote unless the quote was taken for the
// current pair and amount.
func (s *Session) CheckQuote() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkQuoteLocked()
}

func (s *Session) checkQuoteLocked() error {
	if s.quote == nil {
		return ErrNoQuote
	}
	if s.input == nil || s.output == nil {
		return ErrStaleQuote
	}
	if !s.quote.Matches(s.input.Address, s.output.Address, s.amount) {
		return ErrStaleQuote
	}
	return nil
}

// checkBuiltQuote also rejects a quote replaced after q was built
func (s *Session) checkBuiltQuote(q *types.Quote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkQuoteLocked(); err != nil {
		return err
	}
	if s.quote != q {
		return ErrStaleQuote
	}
	return nil
}

// Dismiss closes a finished attempt
func (s *Session) Dismiss() error {
	if err := s.machine.Dismiss(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feeAccount = nil
	s.signature = ""
	return nil
}

// Execute runs one attempt. It returns an error only when the attempt
// failed; a declined signature ends in Cancelled with a nil error.
func (s *Session) Execute(ctx context.Context, signer wallet.Signer) (Snapshot, error) {
	if err := s.machine.Begin(); err != nil {
		return s.Snapshot(), err
	}

	s.mu.Lock()
	in, amount, q := s.input, s.amount, s.quote
	err := s.checkQuoteLocked()
	s.feeAccount, s.signature = nil, ""
	s.mu.Unlock()
	if err != nil {
		return s.fail(err)
	}
	user := signer.PublicKey()

	if err := s.checkBalances(ctx, user, in, amount); err != nil {
		return s.fail(err)
	}

	if err := s.machine.Advance(EnsuringFeeAccount); err != nil {
		return s.fail(err)
	}
	fee, err := s.deps.Builder.ResolveFeeAccount(ctx, q)
	if err != nil {
		return s.fail(err)
	}
	s.mu.Lock()
	s.feeAccount = fee
	s.mu.Unlock()

	if err := s.machine.Advance(Building); err != nil {
		return s.fail(err)
	}
	built, err := s.deps.Builder.Build(ctx, q, user, fee)
	if err != nil {
		return s.fail(err)
	}

	if err := s.machine.Advance(AwaitingSignature); err != nil {
		return s.fail(err)
	}
	if err := s.checkBuiltQuote(q); err != nil {
		return s.fail(err)
	}
	if err := s.deps.Executor.Sign(ctx, built, signer); err != nil {
		if errors.Is(err, wallet.ErrUserRejected) {
			if cerr := s.machine.Cancel(); cerr != nil {
				return s.fail(cerr)
			}
			s.deps.Metrics.SwapFinished(string(Cancelled))
			s.log.Info("swap cancelled by user")
			return s.Snapshot(), nil
		}
		return s.fail(err)
	}
	// The prompt can outlast edits to the session.
	if err := s.checkBuiltQuote(q); err != nil {
		return s.fail(err)
	}

	if err := s.machine.Advance(Submitting); err != nil {
		return s.fail(err)
	}
	sig, err := s.deps.Executor.Submit(ctx, built.Transaction)
	if err != nil {
		return s.fail(err)
	}

	s.mu.Lock()
	s.signature = sig.String()
	s.mu.Unlock()

	if err := s.machine.Advance(Succeeded); err != nil {
		return s.fail(err)
	}
	s.deps.Metrics.SwapFinished(string(Succeeded))
	return s.Snapshot(), nil
}

func (s *Session) checkBalances(ctx context.Context, user solana.PublicKey, in *types.TokenDescriptor, amount math.Int) error {
	lamports, err := s.deps.Balances.NativeLamports(ctx, user)
	if err != nil {
		return fmt.Errorf("failed to read SOL balance: %w", err)
	}

	needNative := math.NewIntFromUint64(s.deps.MinFeeReserve)
	if in.IsNative() {
		needNative = needNative.Add(amount)
	}
	haveNative := math.NewIntFromUint64(lamports)
	if haveNative.LT(needNative) {
		purpose := "network fees"
		if in.IsNative() {
			purpose = "this swap plus network fees"
		}
		return &InsufficientFundsError{Symbol: "SOL", Have: haveNative, Need: needNative, Decimals: nativeDecimals, Purpose: purpose}
	}
	if in.IsNative() {
		return nil
	}

	mint, err := solana.PublicKeyFromBase58(in.Address)
	if err != nil {
		return fmt.Errorf("invalid input mint %s: %w", in.Address, err)
	}
	bal, err := s.deps.Balances.Lookup(ctx, user, mint)
	if err != nil {
		return fmt.Errorf("failed to read %s balance: %w", in.Symbol, err)
	}
	if bal.Int().LT(amount) {
		return &InsufficientFundsError{Symbol: in.Symbol, Have: bal.Int(), Need: amount, Decimals: in.Decimals}
	}
	return nil
}

func (s *Session) fail(err error) (Snapshot, error) {
	if ferr := s.machine.Fail(err); ferr != nil {
		s.log.Error("could not record swap failure", zap.Error(ferr))
	}
	s.deps.Metrics.SwapFinished(string(Failed))
	s.log.Warn("swap failed", zap.Error(err))
	return s.Snapshot(), err
}
