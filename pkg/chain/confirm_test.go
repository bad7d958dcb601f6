package chain

import (
	"context"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zionix-swap/pkg/chain/chaintest"
)

func TestWaitForConfirmation(t *testing.T) {
	node := chaintest.New()
	sig := solana.Signature{1}
	node.Statuses[sig] = &rpc.SignatureStatusesResult{Slot: 42, ConfirmationStatus: rpc.ConfirmationStatusFinalized}

	status, err := WaitForConfirmation(context.Background(), node, sig, rpc.CommitmentConfirmed, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), status.Slot)
	assert.Equal(t, "finalized", status.ConfirmationStatus)
}

func TestWaitForConfirmationFailedTransaction(t *testing.T) {
	node := chaintest.New()
	sig := solana.Signature{2}
	node.Statuses[sig] = &rpc.SignatureStatusesResult{
		ConfirmationStatus: rpc.ConfirmationStatusConfirmed,
		Err:                map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}},
	}

	status, err := WaitForConfirmation(context.Background(), node, sig, rpc.CommitmentConfirmed, time.Millisecond)
	assert.ErrorIs(t, err, ErrTransactionFailed)
	assert.Contains(t, status.Err, "InstructionError")
}

func TestWaitForConfirmationTimesOut(t *testing.T) {
	node := chaintest.New()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := WaitForConfirmation(ctx, node, solana.Signature{3}, rpc.CommitmentConfirmed, 5*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSignatureStatusUnknown(t *testing.T) {
	_, err := SignatureStatus(context.Background(), chaintest.New(), solana.Signature{4})
	assert.ErrorIs(t, err, ErrSignatureUnknown)
}
