package decimal

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Zero is decimal zero
var Zero = decimal.Zero

var hundred = decimal.NewFromInt(100)

// ParseNumberOr converts loosely typed input (form strings, JSON numbers)
// into a decimal. Missing, unparseable, non-finite and negative input
// yields def.
func ParseNumberOr(input any, def decimal.Decimal) decimal.Decimal {
	var d decimal.Decimal

	switch v := input.(type) {
	case nil:
		return def
	case decimal.Decimal:
		d = v
	case *decimal.Decimal:
		if v == nil {
			return def
		}
		d = *v
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return def
		}
		parsed, err := decimal.NewFromString(s)
		if err != nil {
			return def
		}
		d = parsed
	case json.Number:
		parsed, err := decimal.NewFromString(v.String())
		if err != nil {
			return def
		}
		d = parsed
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return def
		}
		d = decimal.NewFromFloat(v)
	case float32:
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return def
		}
		d = decimal.NewFromFloat32(v)
	case int:
		d = decimal.NewFromInt(int64(v))
	case int32:
		d = decimal.NewFromInt32(v)
	case int64:
		d = decimal.NewFromInt(v)
	default:
		return def
	}

	if d.IsNegative() {
		return def
	}
	return d
}

// ParseIntOr is ParseNumberOr with the fractional part dropped.
func ParseIntOr(input any, def decimal.Decimal) decimal.Decimal {
	return ParseNumberOr(input, def).Truncate(0)
}

// Amount is quantity * rate, unrounded
func Amount(quantity, rate decimal.Decimal) decimal.Decimal {
	return quantity.Mul(rate)
}

// Percent computes amount * (percentage/100) without rounding.
// Rounding is a display concern.
func Percent(amount, percentage decimal.Decimal) decimal.Decimal {
	if percentage.IsZero() {
		return Zero
	}
	return amount.Mul(percentage).Div(hundred)
}

// Sum sums a slice of decimals
func Sum(values []decimal.Decimal) decimal.Decimal {
	result := Zero
	for _, v := range values {
		result = result.Add(v)
	}
	return result
}

// IsPositive returns true if decimal is greater than zero
func IsPositive(d decimal.Decimal) bool {
	return d.GreaterThan(Zero)
}

// Fixed2 renders d with exactly two decimals, half away from zero.
func Fixed2(d decimal.Decimal) string {
	return d.StringFixed(2)
}
