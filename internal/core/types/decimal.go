// Package types provides monetary value types and helpers.
package types

import (
	"github.com/shopspring/decimal"
)

// Money represents a monetary value with full precision.
// Uses decimal.Decimal to avoid floating-point errors.
type Money = decimal.Decimal

// Rate is a decimal fraction (tax rate 0.0825, exchange rate 1.0000).
type Rate = decimal.Decimal

// Fractional digits the storage columns keep for each kind of input.
// Derived amounts are stored unscaled.
const (
	MoneyScale    int32 = 4 // prices and costs entered by hand
	QuantityScale int32 = 4
	RateScale     int32 = 4 // exchange rates
	TaxRateScale  int32 = 6
	DiscountScale int32 = 6
)

// FitsScale reports whether d has no significant digits past places.
// Trailing zeros do not count: 1.50000 fits a scale of 4.
func FitsScale(d decimal.Decimal, places int32) bool {
	return d.Equal(d.Truncate(places))
}

// NewMoneyFromString creates a Money value from a string.
// This is the preferred method for monetary values.
func NewMoneyFromString(s string) (Money, error) {
	return decimal.NewFromString(s)
}

// MustMoney creates a Money value from a string, panics on error.
// Use only for constants and tests.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// MustRate is MustMoney for rates.
func MustRate(s string) Rate {
	return MustMoney(s)
}

// Zero returns zero Money value.
func Zero() Money {
	return decimal.Zero
}

// One is the base exchange rate.
func One() Rate {
	return decimal.NewFromInt(1)
}

// IsOne reports whether rate equals exactly 1.0000.
// Trailing zeros do not matter, any other digit does.
func IsOne(rate Rate) bool {
	return rate.Equal(decimal.NewFromInt(1))
}

// Sum adds all values. The sum of an empty slice is zero.
func Sum(values ...Money) Money {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// Average returns the arithmetic mean, or zero for an empty slice.
func Average(values ...Money) Money {
	if len(values) == 0 {
		return decimal.Zero
	}
	return Sum(values...).Div(decimal.NewFromInt(int64(len(values))))
}

// InUnitRange reports whether 0 <= r <= 1.
func InUnitRange(r Rate) bool {
	return !r.IsNegative() && r.LessThanOrEqual(decimal.NewFromInt(1))
}
