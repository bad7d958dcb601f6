// Package wallet provides the signing capability used to authorize swaps.
package wallet

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gagliardetto/solana-go"
)

// ErrUserRejected is returned when the holder declines to sign
var ErrUserRejected = errors.New("user rejected the request")

// Signer signs transactions on behalf of a wallet
type Signer interface {
	PublicKey() solana.PublicKey
	SignTransaction(ctx context.Context, tx *solana.Transaction) error
}

// IsRejection reports whether err means the holder declined to sign.
// External wallets report this only through their error text.
func IsRejection(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUserRejected) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "user rejected") || strings.Contains(msg, "user cancelled") || strings.Contains(msg, "user canceled")
}

// Approver decides whether a transaction may be signed
type Approver interface {
	Approve(ctx context.Context, signer solana.PublicKey, tx *solana.Transaction) (bool, error)
}

// ApproverFunc adapts a function to Approver
type ApproverFunc func(ctx context.Context, signer solana.PublicKey, tx *solana.Transaction) (bool, error)

// Approve calls f
func (f ApproverFunc) Approve(ctx context.Context, signer solana.PublicKey, tx *solana.Transaction) (bool, error) {
	return f(ctx, signer, tx)
}

// AutoApprove approves every transaction
var AutoApprove = ApproverFunc(func(context.Context, solana.PublicKey, *solana.Transaction) (bool, error) {
	return true, nil
})

// PromptApprover asks on a terminal before each signature
type PromptApprover struct {
	In  io.Reader
	Out io.Writer
}

// Approve prints a summary and reads a y/N answer
func (p PromptApprover) Approve(_ context.Context, signer solana.PublicKey, tx *solana.Transaction) (bool, error) {
	fmt.Fprintf(p.Out, "\nSign transaction as %s (%d instructions)? (y/N): ", signer, len(tx.Message.Instructions))

	response, err := bufio.NewReader(p.In).ReadString('\n')
	if err != nil && response == "" {
		return false, nil
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes", nil
}

// KeypairSigner signs with a local private key after approval
type KeypairSigner struct {
	key      solana.PrivateKey
	approver Approver
}

// NewKeypairSigner creates a signer. A nil approver approves everything.
func NewKeypairSigner(key solana.PrivateKey, approver Approver) *KeypairSigner {
	if approver == nil {
		approver = AutoApprove
	}
	return &KeypairSigner{key: key, approver: approver}
}

// PublicKey returns the signer's address
func (s *KeypairSigner) PublicKey() solana.PublicKey {
	return s.key.PublicKey()
}

// SignTransaction places the signer's signature in its slot of tx
func (s *KeypairSigner) SignTransaction(ctx context.Context, tx *solana.Transaction) error {
	pub := s.PublicKey()

	ok, err := s.approver.Approve(ctx, pub, tx)
	if err != nil {
		return fmt.Errorf("approval failed: %w", err)
	}
	if !ok {
		return ErrUserRejected
	}

	required := int(tx.Message.Header.NumRequiredSignatures)
	idx := -1
	for i := 0; i < required && i < len(tx.Message.AccountKeys); i++ {
		if tx.Message.AccountKeys[i].Equals(pub) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%s is not a required signer of this transaction", pub)
	}

	message, err := tx.Message.MarshalBinary()
	if err != nil {
		return fmt.Errorf("failed to serialize message: %w", err)
	}
	sig, err := s.key.Sign(message)
	if err != nil {
		return fmt.Errorf("failed to sign transaction: %w", err)
	}

	for len(tx.Signatures) < required {
		tx.Signatures = append(tx.Signatures, solana.Signature{})
	}
	tx.Signatures[idx] = sig
	return nil
}

// LoadKeypair reads a solana-keygen JSON file, or parses value as a secret key
func LoadKeypair(value string) (solana.PrivateKey, error) {
	if value == "" {
		return nil, fmt.Errorf("keypair not configured. Use --keypair or set ZIONIX_KEYPAIR")
	}
	if _, err := os.Stat(value); err == nil {
		key, err := solana.PrivateKeyFromSolanaKeygenFile(value)
		if err != nil {
			return nil, fmt.Errorf("invalid keypair file: %w", err)
		}
		return key, nil
	}
	return ParseSecret(value)
}

// ParseSecret parses a secret key given as a JSON byte array or base58
func ParseSecret(secret string) (solana.PrivateKey, error) {
	secret = strings.TrimSpace(secret)
	if strings.HasPrefix(secret, "[") {
		var raw []int
		if err := json.Unmarshal([]byte(secret), &raw); err != nil {
			return nil, fmt.Errorf("invalid secret key array: %w", err)
		}
		if len(raw) != 64 {
			return nil, fmt.Errorf("secret key must be 64 bytes, got %d", len(raw))
		}
		key := make(solana.PrivateKey, len(raw))
		for i, b := range raw {
			if b < 0 || b > 255 {
				return nil, fmt.Errorf("secret key byte %d out of range", i)
			}
			key[i] = byte(b)
		}
		return key, nil
	}

	key, err := solana.PrivateKeyFromBase58(secret)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return key, nil
}
