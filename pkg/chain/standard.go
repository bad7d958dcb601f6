package chain

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"zionix-swap/pkg/types"
)

// Token2022ProgramID owns mints using the extended account standard
var Token2022ProgramID = solana.MustPublicKeyFromBase58("TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb")

// ErrUnknownMintProgram is returned for mints owned by neither token program
var ErrUnknownMintProgram = errors.New("mint is not owned by a token program")

// TokenStandard is one of the two token-account programs.
type TokenStandard int

const (
	StandardAccount TokenStandard = iota
	ExtendedAccount
)

// Standards lists the standards in resolution order
var Standards = []TokenStandard{StandardAccount, ExtendedAccount}

// ProgramID returns the program that owns accounts of this standard
func (s TokenStandard) ProgramID() solana.PublicKey {
	if s == ExtendedAccount {
		return Token2022ProgramID
	}
	return solana.TokenProgramID
}

// Kind returns the standard as recorded on fee accounts
func (s TokenStandard) Kind() types.AccountStandard {
	if s == ExtendedAccount {
		return types.StandardExtended
	}
	return types.StandardClassic
}

func (s TokenStandard) String() string {
	return string(s.Kind())
}

// AssociatedAddress derives the owner's associated account for mint under this standard
func (s TokenStandard) AssociatedAddress(owner, mint solana.PublicKey) (solana.PublicKey, error) {
	program := s.ProgramID()
	addr, _, err := solana.FindProgramAddress(
		[][]byte{owner[:], program[:], mint[:]},
		solana.SPLAssociatedTokenAccountProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive %s token account: %w", s, err)
	}
	return addr, nil
}

// StandardForProgram maps a token program id back to its standard
func StandardForProgram(program solana.PublicKey) (TokenStandard, bool) {
	switch {
	case program.Equals(solana.TokenProgramID):
		return StandardAccount, true
	case program.Equals(Token2022ProgramID):
		return ExtendedAccount, true
	default:
		return 0, false
	}
}

// MintStandard reads the mint account and reports which program owns it
func MintStandard(ctx context.Context, client RPC, mint solana.PublicKey) (TokenStandard, error) {
	info, err := client.GetAccountInfo(ctx, mint)
	if err != nil {
		if IsAccountMissing(err) {
			return 0, fmt.Errorf("mint %s does not exist", mint)
		}
		return 0, fmt.Errorf("failed to get mint account info: %w", err)
	}
	if info == nil || info.Value == nil {
		return 0, fmt.Errorf("mint %s does not exist", mint)
	}

	std, ok := StandardForProgram(info.Value.Owner)
	if !ok {
		return 0, fmt.Errorf("%w: %s owned by %s", ErrUnknownMintProgram, mint, info.Value.Owner)
	}
	return std, nil
}
