package parser

import (
	"fmt"
	"regexp"
	"strings"

	"zionix-swap/pkg/types"
)

// Pattern: [swap] <amount> <source_token> to <dest_token>
// Tokens are symbols or mint addresses, so case is kept.
var swapPattern = regexp.MustCompile(`(?i)^(?:swap\s+)?(\d+\.?\d*)\s+(\S+)\s+to\s+(\S+)$`)

var addressPattern = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]{32,44}$`)

// ParseSwapCommand parses a natural language swap command
// Examples:
//   - "swap 1 SOL to USDC"
//   - "10 usdt to sol"
//   - "100 USDC to JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN"
func ParseSwapCommand(command string) (*types.SwapRequest, error) {
	command = strings.Join(strings.Fields(command), " ")

	matches := swapPattern.FindStringSubmatch(command)
	if matches == nil {
		return nil, fmt.Errorf("invalid swap command format. Expected: 'swap <amount> <token> to <token>' (e.g., 'swap 10 USDT to SOL')")
	}

	req := &types.SwapRequest{
		Amount:      strings.TrimSuffix(matches[1], "."),
		SourceToken: NormalizeTokenSymbol(matches[2]),
		DestToken:   NormalizeTokenSymbol(matches[3]),
	}
	if err := ValidateSwapRequest(req); err != nil {
		return nil, err
	}
	return req, nil
}

// ParsePair parses "<token> to <token>" or "<token> <token>" arguments
func ParsePair(args []string) (string, string, error) {
	switch {
	case len(args) == 2:
		return NormalizeTokenSymbol(args[0]), NormalizeTokenSymbol(args[1]), nil
	case len(args) == 3 && strings.EqualFold(args[1], "to"):
		return NormalizeTokenSymbol(args[0]), NormalizeTokenSymbol(args[2]), nil
	default:
		return "", "", fmt.Errorf("invalid token pair. Expected: '<token> to <token>'")
	}
}

// ValidateSwapRequest validates that a swap request has all required fields
func ValidateSwapRequest(req *types.SwapRequest) error {
	if req.Amount == "" {
		return fmt.Errorf("amount is required")
	}
	if req.SourceToken == "" {
		return fmt.Errorf("source token is required")
	}
	if req.DestToken == "" {
		return fmt.Errorf("destination token is required")
	}
	if strings.EqualFold(req.SourceToken, req.DestToken) {
		return fmt.Errorf("source and destination token must differ")
	}
	return nil
}

// IsAddress reports whether s has the shape of a base58 account address
func IsAddress(s string) bool {
	return addressPattern.MatchString(s)
}

// NormalizeTokenSymbol normalizes token symbols to standard format.
// Addresses are returned unchanged.
func NormalizeTokenSymbol(symbol string) string {
	symbol = strings.TrimSpace(symbol)
	if IsAddress(symbol) {
		return symbol
	}
	symbol = strings.ToUpper(symbol)

	aliases := map[string]string{
		"WSOL": "SOL",
	}
	if normalized, exists := aliases[symbol]; exists {
		return normalized
	}

	return symbol
}
