package chain

import (
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zionix-swap/pkg/chain/chaintest"
)

var (
	holder = solana.NewWallet().PublicKey()
	usdt   = solana.MustPublicKeyFromBase58("Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB")
)

func TestLookupNative(t *testing.T) {
	node := chaintest.New()
	node.Lamports[holder] = 1_500_000_000

	bal, err := NewBalanceReader(node, rpc.CommitmentConfirmed, nil).Lookup(context.Background(), holder, NativeMint)
	require.NoError(t, err)
	assert.True(t, bal.Found)
	assert.Equal(t, uint64(1_500_000_000), bal.Amount)
	assert.Equal(t, "1.500000000", bal.UIAmount())
}

func TestLookupStandardAccount(t *testing.T) {
	node := chaintest.New()
	ata, err := StandardAccount.AssociatedAddress(holder, usdt)
	require.NoError(t, err)
	node.SetTokenBalance(ata, 25_000_000, 6)

	bal, err := NewBalanceReader(node, rpc.CommitmentConfirmed, nil).Lookup(context.Background(), holder, usdt)
	require.NoError(t, err)
	assert.True(t, bal.Found)
	assert.Equal(t, ata, bal.Account)
	assert.Equal(t, "25.000000", bal.UIAmount())
	assert.Len(t, node.TokenReads, 1)
}

func TestLookupFallsThroughToExtendedAccount(t *testing.T) {
	node := chaintest.New()
	ata, err := ExtendedAccount.AssociatedAddress(holder, usdt)
	require.NoError(t, err)
	node.SetTokenBalance(ata, 7, 2)

	bal, err := NewBalanceReader(node, rpc.CommitmentConfirmed, nil).Lookup(context.Background(), holder, usdt)
	require.NoError(t, err)
	assert.True(t, bal.Found)
	assert.Equal(t, ata, bal.Account)
	assert.Equal(t, uint64(7), bal.Amount)
	assert.Len(t, node.TokenReads, 2)
}

func TestLookupNoAccountsIsZero(t *testing.T) {
	node := chaintest.New()

	bal, err := NewBalanceReader(node, rpc.CommitmentConfirmed, nil).Lookup(context.Background(), holder, usdt)
	require.NoError(t, err)
	assert.False(t, bal.Found)
	assert.Zero(t, bal.Amount)
}

func TestReadSwallowsNodeErrors(t *testing.T) {
	node := chaintest.New()
	node.TokenErr = errors.New("connection refused")
	reader := NewBalanceReader(node, rpc.CommitmentConfirmed, nil)

	_, err := reader.Lookup(context.Background(), holder, usdt)
	require.Error(t, err)

	bal := reader.Read(context.Background(), holder, usdt)
	assert.Zero(t, bal.Amount)
	assert.False(t, bal.Found)
}

func TestAssociatedAddressDiffersByStandard(t *testing.T) {
	a, err := StandardAccount.AssociatedAddress(holder, usdt)
	require.NoError(t, err)
	b, err := ExtendedAccount.AssociatedAddress(holder, usdt)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	std, ok := StandardForProgram(Token2022ProgramID)
	assert.True(t, ok)
	assert.Equal(t, ExtendedAccount, std)
}

func TestMintStandard(t *testing.T) {
	node := chaintest.New()
	node.SetAccount(usdt, Token2022ProgramID)

	std, err := MintStandard(context.Background(), node, usdt)
	require.NoError(t, err)
	assert.Equal(t, ExtendedAccount, std)

	node.SetAccount(usdt, solana.SystemProgramID)
	_, err = MintStandard(context.Background(), node, usdt)
	assert.ErrorIs(t, err, ErrUnknownMintProgram)
}
