package swap

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"

	"cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/stretchr/testify/require"

	"zionix-swap/pkg/client"
	"zionix-swap/pkg/types"
)

var (
	usdt = &types.TokenDescriptor{Address: "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB", Symbol: "USDT", Decimals: 6}
	sol  = &types.TokenDescriptor{Address: types.NativeMint, Symbol: "SOL", Decimals: 9}
)

func testQuote(in, out *types.TokenDescriptor, amount int64) *types.Quote {
	return &types.Quote{
		InputMint:            in.Address,
		OutputMint:           out.Address,
		InAmount:             math.NewInt(amount),
		OutAmount:            math.NewInt(61_234_567),
		OtherAmountThreshold: math.NewInt(60_622_221),
		SlippageBps:          100,
		PlatformFeeBps:       100,
		Raw:                  json.RawMessage(`{"inAmount":"10000000"}`),
	}
}

// unsignedSwapTx encodes a transaction paid by user the way the build
// endpoint returns it: zeroed signature slots, base64.
func unsignedSwapTx(t *testing.T, user solana.PublicKey) string {
	t.Helper()
	tx, err := solana.NewTransaction(
		[]solana.Instruction{system.NewTransferInstruction(1, user, solana.NewWallet().PublicKey()).Build()},
		solana.Hash{1, 2, 3},
		solana.TransactionPayer(user),
	)
	require.NoError(t, err)
	tx.Signatures = make([]solana.Signature, tx.Message.Header.NumRequiredSignatures)

	raw, err := tx.MarshalBinary()
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(raw)
}

type fakeSwapAPI struct {
	tx     string
	err    error
	calls  int
	params client.BuildParams
}

func (f *fakeSwapAPI) BuildSwap(_ context.Context, p client.BuildParams) (*client.SwapTransaction, error) {
	f.calls++
	f.params = p
	if f.err != nil {
		return nil, f.err
	}
	return &client.SwapTransaction{Transaction: f.tx, LastValidBlockHeight: 42}, nil
}
