// Package units converts token amounts between the human readable
// denomination and base units. All arithmetic is exact decimal arithmetic
// so large or many-decimal amounts never drift.
package units

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// Decimals is the number of decimal places used by 18-decimal tokens.
const Decimals = 18

// MaxExponent bounds the decimal exponent Parse accepts. Scaling a value
// like 1e900000000 to base units would never finish.
const MaxExponent = 100

// ErrInvalidAmount is returned when an amount can't be parsed as a number.
// NaN and Inf are rejected rather than treated as not positive.
var ErrInvalidAmount = errors.New("invalid amount")

// Parse parses a human readable amount like "1.5", "-3" or "2.5e-4".
// Surrounding white space is ignored.
func Parse(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty value", ErrInvalidAmount)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	if exp := d.Exponent(); exp > MaxExponent || exp < -MaxExponent {
		return decimal.Zero, fmt.Errorf("%w: exponent %d out of range: %q", ErrInvalidAmount, exp, s)
	}

	return d, nil
}

// ToBase scales the amount by 10^decimals and rounds the result to the
// nearest integer, half away from zero.
func ToBase(amount decimal.Decimal, decimals int32) *big.Int {
	return amount.Shift(decimals).Round(0).BigInt()
}

// FromBase converts an integer amount of base units back into the human
// readable denomination.
func FromBase(base *big.Int, decimals int32) decimal.Decimal {
	return decimal.NewFromBigInt(base, -decimals)
}

// Format renders the amount truncated to base unit precision without
// trailing zeros or exponent.
func Format(amount decimal.Decimal, decimals int32) string {
	return amount.Truncate(decimals).String()
}
