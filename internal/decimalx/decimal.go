// Package decimalx is the module's single entry point for base-10
// fixed-point arithmetic. Reward math and payout amounts must never touch
// native binary floating point once they are computed from or destined for
// a persisted row — this package is the only place float64 is allowed to
// appear, and only at the literal-constant boundary (round-specific
// coefficients like 9/8 are built from integer ratios with Ratio, never as
// float division).
package decimalx

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// WireScale is the number of fractional digits on-chain amounts are encoded
// with (amount * 10^18), matching the reward token's ERC20 decimals.
const WireScale = 18

func init() {
	// Chained division (pool proportions, effective-share ratios, mcb
	// weight) can compound rounding error across several divides per
	// holder per pool; 34 digits of working precision comfortably clears
	// the spec's >=28 significant digit floor after that compounding.
	decimal.DivisionPrecision = 34
}

// Decimal is an arbitrary-precision signed base-10 rational.
type Decimal = decimal.Decimal

// Zero is the additive identity.
var Zero = decimal.Zero

// NewFromInt builds a Decimal from an int64.
func NewFromInt(v int64) Decimal { return decimal.NewFromInt(v) }

// NewFromString parses a base-10 string (e.g. "123.456") into a Decimal.
func NewFromString(s string) (Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Decimal{}, fmt.Errorf("decimalx: parse %q: %w", s, err)
	}
	return d, nil
}

// NewFromFloatString parses a literal decimal that in the original
// reward-math source was expressed as a Python float (e.g. the round reward
// splits, 0.75, 0.25, 0.1875). These are exact in base 10, so parsing the
// literal's string form rather than going through float64 keeps them exact.
func NewFromFloatString(s string) Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(fmt.Sprintf("decimalx: invalid literal constant %q: %v", s, err))
	}
	return d
}

// Ratio returns num/den rounded to DivisionPrecision (34) fractional digits,
// exact whenever the quotient terminates within that many digits, and
// computed without ever going through float64 — this is how the round-specific piecewise-linear
// coefficients (89/80, 9/8, 44/35, 9/7, ...) must be built; the source
// computed these as Decimal(89/80) which is actually a float division
// performed by the host language before the Decimal constructor ever sees
// it, silently losing precision. This module never reproduces that bug.
func Ratio(num, den int64) Decimal {
	return decimal.NewFromInt(num).DivRound(decimal.NewFromInt(den), int32(decimal.DivisionPrecision))
}

// RoundHalfEven rounds d to places fractional digits using round-half-even
// (banker's rounding), the spec's default rounding mode for all arithmetic
// that isn't explicitly truncated to the wire scale.
func RoundHalfEven(d Decimal, places int32) Decimal {
	return d.RoundBank(places)
}

// ToWireInt truncates d to WireScale fractional digits (round-down, never
// round-half-even) and returns the scaled integer representation used by
// on-chain calls: d * 10^WireScale truncated toward zero.
func ToWireInt(d Decimal) *big.Int {
	scaled := d.Shift(WireScale).Truncate(0)
	return scaled.BigInt()
}

// FromWireInt is the inverse of ToWireInt, used when reading on-chain
// amounts back into Decimal space (e.g. verifying a disperse payload).
func FromWireInt(v *big.Int) Decimal {
	return decimal.NewFromBigInt(v, -WireScale)
}

// IsPositive reports whether d > 0.
func IsPositive(d Decimal) bool { return d.Sign() > 0 }

// Min returns the lesser of a and b.
func Min(a, b Decimal) Decimal {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}

// Abs returns the absolute value of d.
func Abs(d Decimal) Decimal { return d.Abs() }
