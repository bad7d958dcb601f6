package swap

import (
	"errors"
	"fmt"
	"strings"

	"cosmossdk.io/math"

	"zionix-swap/pkg/parser"
)

var (
	// ErrStaleQuote is returned when the inputs changed after the quote was taken
	ErrStaleQuote = errors.New("quote no longer matches the swap inputs; fetch a new quote")
	// ErrNoQuote is returned when execution starts without a quote
	ErrNoQuote = errors.New("no quote available for this swap")
)

// InsufficientFundsError states the balance a swap needs and what is held
type InsufficientFundsError struct {
	Symbol   string
	Have     math.Int
	Need     math.Int
	Decimals uint8
	Purpose  string
}

// Shortfall is the missing amount in minimal units
func (e *InsufficientFundsError) Shortfall() math.Int {
	if e.Need.IsNil() || e.Have.IsNil() || e.Need.LTE(e.Have) {
		return math.ZeroInt()
	}
	return e.Need.Sub(e.Have)
}

func (e *InsufficientFundsError) Error() string {
	places := int(e.Decimals)
	if places > 6 {
		places = 6
	}
	purpose := e.Purpose
	if purpose == "" {
		purpose = "this swap"
	}

	msg := fmt.Sprintf("insufficient %s for %s: have %s %s", e.Symbol, purpose,
		parser.FormatUnits(e.Have, e.Decimals, places), e.Symbol)
	if e.Need.IsNil() || e.Need.IsZero() {
		return msg
	}
	return fmt.Sprintf("%s, need %s %s (short %s %s)", msg,
		parser.FormatUnits(e.Need, e.Decimals, places), e.Symbol,
		parser.FormatUnits(e.Shortfall(), e.Decimals, places), e.Symbol)
}

// SimulationError is a simulation failure unrelated to funds
type SimulationError struct {
	Err  string
	Logs []string
}

func (e *SimulationError) Error() string {
	if len(e.Logs) == 0 {
		return "transaction simulation failed: " + e.Err
	}
	return fmt.Sprintf("transaction simulation failed: %s\n  %s", e.Err, strings.Join(e.Logs, "\n  "))
}
