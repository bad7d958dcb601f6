package swap

import (
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zionix-swap/pkg/chain/chaintest"
	"zionix-swap/pkg/feeaccount"
	"zionix-swap/pkg/types"
)

const reserve = 5_000_000

type fakeFees struct {
	byMint map[string]*types.FeeAccountRecord
	asked  []string
}

func (f *fakeFees) Ensure(_ context.Context, owner, mint solana.PublicKey) (*types.FeeAccountRecord, error) {
	f.asked = append(f.asked, mint.String())
	if rec, ok := f.byMint[mint.String()]; ok {
		return rec, nil
	}
	return &types.FeeAccountRecord{Owner: owner.String(), Mint: mint.String(), Status: types.FeeAccountMissing},
		errors.New("creation failed")
}

func newTestBuilder(api SwapAPI, fees FeeAccounts, node *chaintest.FakeRPC) *Builder {
	return NewBuilder(api, fees, node, BuilderConfig{
		FeeWallet:      solana.NewWallet().PublicKey(),
		PlatformFeeBps: 100,
		MinFeeReserve:  reserve,
	}, nil)
}

func TestResolveFeeAccountPrefersInput(t *testing.T) {
	fees := &fakeFees{byMint: map[string]*types.FeeAccountRecord{
		usdt.Address: {Address: "in", Status: types.FeeAccountExists},
		sol.Address:  {Address: "out", Status: types.FeeAccountExists},
	}}
	rec, err := newTestBuilder(nil, fees, chaintest.New()).ResolveFeeAccount(context.Background(), testQuote(usdt, sol, 10_000_000))
	require.NoError(t, err)
	assert.Equal(t, "in", rec.Address)
	assert.Equal(t, []string{usdt.Address}, fees.asked)
}

func TestResolveFeeAccountFallsBackToOutput(t *testing.T) {
	fees := &fakeFees{byMint: map[string]*types.FeeAccountRecord{
		sol.Address: {Address: "wallet", Status: types.FeeAccountExists, Standard: types.StandardNative},
	}}
	rec, err := newTestBuilder(nil, fees, chaintest.New()).ResolveFeeAccount(context.Background(), testQuote(usdt, sol, 10_000_000))
	require.NoError(t, err)
	assert.Equal(t, "wallet", rec.Address)
	assert.Equal(t, []string{usdt.Address, sol.Address}, fees.asked)
}

func TestResolveFeeAccountBothMissing(t *testing.T) {
	_, err := newTestBuilder(nil, &fakeFees{}, chaintest.New()).ResolveFeeAccount(context.Background(), testQuote(usdt, sol, 10_000_000))
	assert.ErrorIs(t, err, feeaccount.ErrFeeAccountMissing)
}

func TestBuildSimulatesAndPassesFee(t *testing.T) {
	user := solana.NewWallet().PublicKey()
	node := chaintest.New()
	node.Lamports[user] = 1_000_000_000
	api := &fakeSwapAPI{tx: unsignedSwapTx(t, user)}
	fee := &types.FeeAccountRecord{Address: "FeeAta", Status: types.FeeAccountExists}

	built, err := newTestBuilder(api, nil, node).Build(context.Background(), testQuote(usdt, sol, 10_000_000), user, fee)
	require.NoError(t, err)

	assert.Equal(t, "FeeAta", api.params.FeeAccount)
	assert.Equal(t, 100, api.params.PlatformFeeBps)
	assert.Equal(t, user.String(), api.params.UserPublicKey)
	assert.True(t, built.Transaction.Message.AccountKeys[0].Equals(user))
	assert.Equal(t, uint64(42), built.LastValidBlockHeight)

	require.Len(t, node.SimOpts, 1)
	assert.False(t, node.SimOpts[0].SigVerify)
	assert.True(t, node.SimOpts[0].ReplaceRecentBlockhash)
}

func TestBuildTranslatesInsufficientLamports(t *testing.T) {
	user := solana.NewWallet().PublicKey()
	node := chaintest.New()
	node.Simulation = &rpc.SimulateTransactionResult{
		Err:  map[string]interface{}{"InstructionError": []interface{}{0, map[string]interface{}{"Custom": 1}}},
		Logs: []string{"Program log: Instruction: Transfer", "Transfer: insufficient lamports 1000000, need 3039280"},
	}
	node.Lamports[user] = 1_000_000
	api := &fakeSwapAPI{tx: unsignedSwapTx(t, user)}

	_, err := newTestBuilder(api, nil, node).Build(context.Background(), testQuote(sol, usdt, 1_000_000), user, nil)

	var funds *InsufficientFundsError
	require.ErrorAs(t, err, &funds)
	assert.Equal(t, "1000000", funds.Have.String())
	assert.Equal(t, "3039280", funds.Need.String())
	assert.Equal(t, "2039280", funds.Shortfall().String())
	assert.Equal(t, "network fees", funds.Purpose)
	assert.Contains(t, err.Error(), "have 0.001000 SOL")
	assert.Contains(t, err.Error(), "need 0.003039 SOL")
}

func TestBuildAttributesRouteShortfallToRoute(t *testing.T) {
	user := solana.NewWallet().PublicKey()
	node := chaintest.New()
	node.Simulation = &rpc.SimulateTransactionResult{
		Err:  map[string]interface{}{"InstructionError": []interface{}{2, map[string]interface{}{"Custom": 1}}},
		Logs: []string{"Transfer: insufficient lamports 890880, need 2039280"},
	}
	node.Lamports[user] = 2_000_000_000
	api := &fakeSwapAPI{tx: unsignedSwapTx(t, user)}

	_, err := newTestBuilder(api, nil, node).Build(context.Background(), testQuote(usdt, sol, 10_000_000), user, nil)

	var funds *InsufficientFundsError
	require.ErrorAs(t, err, &funds)
	assert.Equal(t, "a transfer in the swap route", funds.Purpose)
	assert.Contains(t, err.Error(), "insufficient SOL for a transfer in the swap route")
	assert.NotContains(t, err.Error(), "network fees")
}

func TestBuildSurfacesOtherSimulationErrors(t *testing.T) {
	user := solana.NewWallet().PublicKey()
	node := chaintest.New()
	node.Simulation = &rpc.SimulateTransactionResult{
		Err:  "AccountNotFound",
		Logs: []string{"Program JUP6 failed: slippage tolerance exceeded"},
	}
	api := &fakeSwapAPI{tx: unsignedSwapTx(t, user)}

	_, err := newTestBuilder(api, nil, node).Build(context.Background(), testQuote(usdt, sol, 10_000_000), user, nil)

	var simErr *SimulationError
	require.ErrorAs(t, err, &simErr)
	assert.Equal(t, `"AccountNotFound"`, simErr.Err)
	assert.Contains(t, err.Error(), "slippage tolerance exceeded")
}

func TestBuildEnforcesReserve(t *testing.T) {
	user := solana.NewWallet().PublicKey()
	node := chaintest.New()
	node.Lamports[user] = reserve - 1
	api := &fakeSwapAPI{tx: unsignedSwapTx(t, user)}

	_, err := newTestBuilder(api, nil, node).Build(context.Background(), testQuote(usdt, sol, 10_000_000), user, nil)

	var funds *InsufficientFundsError
	require.ErrorAs(t, err, &funds)
	assert.Equal(t, "network fees", funds.Purpose)
}

func TestBuildRejectsUndecodableTransaction(t *testing.T) {
	api := &fakeSwapAPI{tx: "%%%not-base64"}
	_, err := newTestBuilder(api, nil, chaintest.New()).Build(context.Background(), testQuote(usdt, sol, 1), solana.NewWallet().PublicKey(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode")
}
