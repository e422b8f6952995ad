// Package money provides decimal helpers for quantities and unit
// prices shared by the matching and validation engines. Adapted from
// the teacher's internal/decimal/money.go, generalized from VND-only
// rounding to the multi-currency qty/price arithmetic OrderFlow needs.
package money

import "github.com/shopspring/decimal"

var Zero = decimal.Zero

func FromInt(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func FromFloat(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func FromString(s string) (decimal.Decimal, error) { return decimal.NewFromString(s) }

// PercentDelta computes |actual - expected| / expected * 100, the δ of
// §4.5.2's price penalty. Returns 0 if expected is zero (caller treats
// that case as "no tier" before calling this).
func PercentDelta(actual, expected decimal.Decimal) decimal.Decimal {
	if expected.IsZero() {
		return Zero
	}
	diff := actual.Sub(expected).Abs()
	return diff.Div(expected).Mul(decimal.NewFromInt(100))
}

// Sum adds a slice of decimals.
func Sum(values []decimal.Decimal) decimal.Decimal {
	result := Zero
	for _, v := range values {
		result = result.Add(v)
	}
	return result
}
