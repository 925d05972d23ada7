package engine

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Safe numeric helpers. Every numeric read in the engine goes through these:
// they never panic, never return NaN or Inf, and map anything unparseable
// to zero.

var oneHundred = decimal.NewFromInt(100)

// dec parses a platform money string into a decimal. Empty, padded, or
// unparseable values become zero.
func dec(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// toDecimal converts a loosely-typed scalar into a decimal, mapping nil,
// non-finite floats, and unknown shapes to zero.
func toDecimal(v any) decimal.Decimal {
	switch x := v.(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		return x
	case string:
		return dec(x)
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return decimal.Zero
		}
		return decimal.NewFromFloat(x)
	case float32:
		return toDecimal(float64(x))
	case int:
		return decimal.NewFromInt(int64(x))
	case int64:
		return decimal.NewFromInt(x)
	default:
		return decimal.Zero
	}
}

// round2 rounds a money amount to 2 decimal places; applied at every
// computed output, never mid-accumulation.
func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// safeDiv divides a by b, returning zero when b is zero.
func safeDiv(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return decimal.Zero
	}
	return a.Div(b)
}

// pct returns part/whole as a 0–100-scaled percentage, rounded to 2 places
// and guarded to 0 when whole is zero.
func pct(part, whole decimal.Decimal) float64 {
	if whole.IsZero() {
		return 0
	}
	f, _ := part.Div(whole).Mul(oneHundred).Round(2).Float64()
	return f
}

// ratio2 returns a/b rounded to 2 places, 0 when b is zero.
func ratio2(a, b decimal.Decimal) float64 {
	if b.IsZero() {
		return 0
	}
	f, _ := a.Div(b).Round(2).Float64()
	return f
}

// money returns d rounded to 2 places as a float, guarding non-finite input.
func money(d decimal.Decimal) float64 {
	f, _ := round2(d).Float64()
	return f
}

// percentageChange returns the percentage delta between a current and a
// previous value. Convention, applied uniformly to every *Change field:
// both zero → 0; previous zero with a non-zero current → ±100 signed by the
// current value; otherwise (cur−prev)/|prev|·100.
func percentageChange(cur, prev decimal.Decimal) float64 {
	if prev.IsZero() {
		if cur.IsZero() {
			return 0
		}
		if cur.IsNegative() {
			return -100
		}
		return 100
	}
	f, _ := cur.Sub(prev).Div(prev.Abs()).Mul(oneHundred).Round(2).Float64()
	return f
}

// countChange is percentageChange over integer counts.
func countChange(cur, prev int64) float64 {
	return percentageChange(decimal.NewFromInt(cur), decimal.NewFromInt(prev))
}

// floatChange is percentageChange over already-derived float metrics
// (margins, rates).
func floatChange(cur, prev float64) float64 {
	return percentageChange(toDecimal(cur), toDecimal(prev))
}
