// Package feeaccount makes sure the platform's fee wallet can receive
// fees in the asset a swap charges them in.
package feeaccount

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"zionix-swap/pkg/chain"
	"zionix-swap/pkg/logger"
	"zionix-swap/pkg/metrics"
	"zionix-swap/pkg/types"
)

// ErrFeeAccountMissing is returned when no fee account exists and none could be created
var ErrFeeAccountMissing = errors.New("fee account unavailable")

// Creator creates fee accounts on behalf of callers that hold no funding key
type Creator interface {
	CreateFeeAccount(ctx context.Context, owner, mint solana.PublicKey) (solana.PublicKey, error)
}

// Provisioner resolves the fee account for an owner and asset
type Provisioner struct {
	client  chain.RPC
	creator Creator
	metrics *metrics.Metrics
	log     *zap.Logger
}

// NewProvisioner creates a provisioner. A nil creator disables creation.
func NewProvisioner(client chain.RPC, creator Creator, m *metrics.Metrics, log *zap.Logger) *Provisioner {
	return &Provisioner{
		client:  client,
		creator: creator,
		metrics: m,
		log:     logger.OrNop(log),
	}
}

// Ensure returns the fee account for owner and mint. The native asset is
// received by the owner address itself. Token accounts are looked up under
// each standard in order, then creation is delegated. When every step fails
// the returned record has status missing and the error wraps
// ErrFeeAccountMissing.
func (p *Provisioner) Ensure(ctx context.Context, owner, mint solana.PublicKey) (*types.FeeAccountRecord, error) {
	rec := &types.FeeAccountRecord{Owner: owner.String(), Mint: mint.String()}

	if mint.Equals(chain.NativeMint) {
		rec.Address = owner.String()
		rec.Standard = types.StandardNative
		rec.Status = types.FeeAccountExists
		p.metrics.FeeAccount(string(types.FeeAccountExists))
		return rec, nil
	}

	for _, std := range chain.Standards {
		addr, err := std.AssociatedAddress(owner, mint)
		if err != nil {
			return p.missing(rec, err)
		}

		exists, err := chain.AccountExists(ctx, p.client, addr)
		if err != nil {
			p.log.Warn("fee account lookup failed",
				zap.String("standard", std.String()),
				zap.Stringer("account", addr),
				zap.Error(err))
			continue
		}
		if exists {
			rec.Address = addr.String()
			rec.Standard = std.Kind()
			rec.Status = types.FeeAccountExists
			p.metrics.FeeAccount(string(types.FeeAccountExists))
			return rec, nil
		}
	}

	if p.creator == nil {
		return p.missing(rec, errors.New("no fee account creator configured"))
	}

	addr, err := p.creator.CreateFeeAccount(ctx, owner, mint)
	if err != nil {
		return p.missing(rec, err)
	}

	rec.Address = addr.String()
	rec.Status = types.FeeAccountCreated
	for _, std := range chain.Standards {
		if derived, err := std.AssociatedAddress(owner, mint); err == nil && derived.Equals(addr) {
			rec.Standard = std.Kind()
			break
		}
	}
	p.metrics.FeeAccount(string(types.FeeAccountCreated))
	p.log.Info("fee account created", zap.String("mint", rec.Mint), zap.String("account", rec.Address))
	return rec, nil
}

func (p *Provisioner) missing(rec *types.FeeAccountRecord, cause error) (*types.FeeAccountRecord, error) {
	rec.Status = types.FeeAccountMissing
	p.metrics.FeeAccount(string(types.FeeAccountMissing))
	p.log.Warn("fee account unavailable", zap.String("mint", rec.Mint), zap.Error(cause))
	return rec, fmt.Errorf("%w for mint %s: %v", ErrFeeAccountMissing, rec.Mint, cause)
}
