package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultDecimals is the token's smallest unit (18 decimals, like wei).
const DefaultDecimals int32 = 18

const (
	basisPointsPerUnit = 10000
	daysPerYear        = 365
	SecondsPerDay      = 86400
)

// ParseAmount parses a decimal amount string and rejects negative values.
func ParseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: negative", ErrInvalidAmount)
	}
	return d, nil
}

// ParsePositiveAmount is ParseAmount that also rejects zero.
func ParsePositiveAmount(s string) (decimal.Decimal, error) {
	d, err := ParseAmount(s)
	if err != nil {
		return d, err
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: must be positive", ErrInvalidAmount)
	}
	return d, nil
}

// PercentOf returns amount * percent / 100 truncated to places fractional digits.
func PercentOf(amount, percent decimal.Decimal, places int32) decimal.Decimal {
	return amount.Mul(percent).Shift(-2).Truncate(places)
}

// SimpleInterest returns principal * aprBps/10000 * days/365 truncated
// toward zero to places fractional digits.
func SimpleInterest(principal decimal.Decimal, aprBps int64, days int64, places int32) decimal.Decimal {
	if aprBps <= 0 || days <= 0 || !principal.IsPositive() {
		return decimal.Zero
	}
	num := principal.Mul(decimal.NewFromInt(aprBps * days))
	q, _ := num.QuoRem(decimal.NewFromInt(basisPointsPerUnit*daysPerYear), places)
	return q
}

// ProRataInterest is SimpleInterest for a fractional holding period given in
// seconds. Used for display accrual only.
func ProRataInterest(principal decimal.Decimal, aprBps int64, seconds int64, places int32) decimal.Decimal {
	if aprBps <= 0 || seconds <= 0 || !principal.IsPositive() {
		return decimal.Zero
	}
	num := principal.Mul(decimal.NewFromInt(aprBps)).Mul(decimal.NewFromInt(seconds))
	q, _ := num.QuoRem(decimal.NewFromInt(basisPointsPerUnit*daysPerYear*SecondsPerDay), places)
	return q
}
