package parser

import (
	"errors"
	"fmt"
	"strings"

	"cosmossdk.io/math"
)

// ErrInvalidAmount is returned for empty, non-numeric or non-positive amounts
var ErrInvalidAmount = errors.New("invalid amount")

// ToMinimalUnits converts a decimal amount to the token's smallest unit,
// rounding down.
func ToMinimalUnits(amount string, decimals uint8) (math.Int, error) {
	amount = strings.TrimSuffix(strings.TrimSpace(amount), ".")
	if amount == "" {
		return math.Int{}, fmt.Errorf("%w: amount is empty", ErrInvalidAmount)
	}

	dec, err := math.LegacyNewDecFromStr(amount)
	if err != nil {
		return math.Int{}, fmt.Errorf("%w: %q is not a number", ErrInvalidAmount, amount)
	}
	if !dec.IsPositive() {
		return math.Int{}, fmt.Errorf("%w: amount must be greater than 0", ErrInvalidAmount)
	}

	units := dec.MulInt(pow10(int(decimals))).TruncateInt()
	if !units.IsPositive() {
		return math.Int{}, fmt.Errorf("%w: %s is below the smallest unit", ErrInvalidAmount, amount)
	}
	return units, nil
}

// FormatUnits renders a minimal-unit amount as a decimal string with
// exactly places fractional digits, rounding half up.
func FormatUnits(amount math.Int, decimals uint8, places int) string {
	if amount.IsNil() {
		amount = math.ZeroInt()
	}
	if places < 0 {
		places = 0
	}

	d := int(decimals)
	var scaled math.Int
	if places >= d {
		scaled = amount.Mul(pow10(places - d))
	} else {
		divisor := pow10(d - places)
		scaled = amount.Quo(divisor)
		if amount.Mod(divisor).MulRaw(2).GTE(divisor) {
			scaled = scaled.AddRaw(1)
		}
	}
	return formatFixed(scaled, places)
}

// FormatLamports renders lamports as SOL with four decimals
func FormatLamports(lamports uint64) string {
	return FormatUnits(math.NewIntFromUint64(lamports), 9, 4)
}

func formatFixed(v math.Int, places int) string {
	s := v.String()
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	if places > 0 {
		if len(s) <= places {
			s = strings.Repeat("0", places-len(s)+1) + s
		}
		s = s[:len(s)-places] + "." + s[len(s)-places:]
	}
	if neg {
		s = "-" + s
	}
	return s
}

func pow10(n int) math.Int {
	return math.NewIntWithDecimal(1, n)
}
