package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"zionix-swap/pkg/types"
)

var (
	// ErrSignatureUnknown is returned when the node has no record of a signature
	ErrSignatureUnknown = errors.New("signature not found")
	// ErrTransactionFailed is returned when a landed transaction carries an error
	ErrTransactionFailed = errors.New("transaction failed")
)

// SignatureStatus fetches the current status of a signature
func SignatureStatus(ctx context.Context, client RPC, sig solana.Signature) (*types.SwapStatus, error) {
	res, err := client.GetSignatureStatuses(ctx, true, sig)
	if err != nil {
		return nil, fmt.Errorf("failed to get signature status: %w", err)
	}
	if res == nil || len(res.Value) == 0 || res.Value[0] == nil {
		return nil, ErrSignatureUnknown
	}

	v := res.Value[0]
	status := &types.SwapStatus{
		Signature:          sig.String(),
		Slot:               v.Slot,
		ConfirmationStatus: string(v.ConfirmationStatus),
		Confirmations:      v.Confirmations,
	}
	if v.Err != nil {
		raw, _ := json.Marshal(v.Err)
		status.Err = string(raw)
	}
	return status, nil
}

// WaitForConfirmation polls until the signature reaches the commitment level,
// fails, or ctx ends.
func WaitForConfirmation(ctx context.Context, client RPC, sig solana.Signature, commitment rpc.CommitmentType, interval time.Duration) (*types.SwapStatus, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		status, err := SignatureStatus(ctx, client, sig)
		switch {
		case err == nil && status.Err != "":
			return status, fmt.Errorf("%w: %s", ErrTransactionFailed, status.Err)
		case err == nil && reached(status.ConfirmationStatus, commitment):
			return status, nil
		case err != nil && !errors.Is(err, ErrSignatureUnknown):
			return nil, err
		}

		select {
		case <-ctx.Done():
			return status, ctx.Err()
		case <-ticker.C:
		}
	}
}

func reached(status string, want rpc.CommitmentType) bool {
	rank := map[string]int{
		string(rpc.ConfirmationStatusProcessed): 1,
		string(rpc.ConfirmationStatusConfirmed): 2,
		string(rpc.ConfirmationStatusFinalized): 3,
	}
	return rank[status] >= rank[string(want)] && rank[status] > 0
}
