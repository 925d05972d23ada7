package engine

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ── Cost mode resolution ──────────────────────────────────────────────────────

// CostMode is the closed allocation mode resolved once, at dataset
// construction, from a record's loose frequency/calculation strings.
type CostMode int

const (
	// ModeFixed allocates the value over time: proportional to the overlap
	// with the record's own effective window when both bounds are explicit,
	// proportional to the frequency duration when one is known, and at full
	// value otherwise.
	ModeFixed CostMode = iota
	// ModePerOrder multiplies the value by the window's active order count.
	ModePerOrder
	// ModePerUnit multiplies the value by the window's units sold.
	ModePerUnit
	// ModePercentRevenue takes value% of the window's revenue.
	ModePercentRevenue
)

// ResolveCostMode maps frequency/calculation strings onto a CostMode with a
// fixed precedence: frequency per_order, then frequency per_unit/per_item,
// then calculation percentage, then calculation per_unit, then fixed.
// Unknown values fall through to ModeFixed.
func ResolveCostMode(frequency, calculation string) CostMode {
	freq := strings.ToLower(strings.TrimSpace(frequency))
	calc := strings.ToLower(strings.TrimSpace(calculation))

	switch freq {
	case "per_order":
		return ModePerOrder
	case "per_unit", "per_item":
		return ModePerUnit
	}
	switch calc {
	case "percentage":
		return ModePercentRevenue
	case "per_unit":
		return ModePerUnit
	}
	return ModeFixed
}

// frequencyDurationMs gives the nominal span of a recurring frequency in
// milliseconds. Frequencies without a span (one_time, per_order, percentage,
// anything unknown) return 0.
func frequencyDurationMs(frequency string) int64 {
	const day = int64(24 * 60 * 60 * 1000)
	switch strings.ToLower(strings.TrimSpace(frequency)) {
	case "daily", "day":
		return day
	case "weekly", "week":
		return 7 * day
	case "biweekly":
		return 14 * day
	case "monthly", "month":
		return 30 * day
	case "bimonthly":
		return 60 * day
	case "quarterly", "quarter":
		return 91 * day
	case "semiannual", "semiannually":
		return 182 * day
	case "yearly", "year", "annual", "annually":
		return 365 * day
	default:
		return 0
	}
}

// ── Proration ─────────────────────────────────────────────────────────────────

// ProrationContext carries the window aggregates a mode may scale against.
type ProrationContext struct {
	OrderCount int64
	UnitsSold  int64
	Revenue    decimal.Decimal
}

// Prorate allocates a cost record's value onto a reporting window. It never
// returns an error: a zero value short-circuits to zero, a record whose
// effective range misses the window contributes zero, and unknown
// frequency/calculation strings land in the fixed branch.
func Prorate(c CostRecord, win Window, pctx ProrationContext) decimal.Decimal {
	if c.Value.IsZero() {
		return decimal.Zero
	}

	effStart := c.EffectiveFrom.UnixMilli()
	winStart := win.Start.UnixMilli()
	winEnd := win.End.UnixMilli()

	effEnd := winEnd
	if c.EffectiveTo != nil && c.EffectiveTo.UnixMilli() < effEnd {
		effEnd = c.EffectiveTo.UnixMilli()
	}

	overlapMs := min(winEnd, effEnd) - max(winStart, effStart)
	if overlapMs <= 0 {
		return decimal.Zero
	}

	switch c.Mode {
	case ModePerOrder:
		return c.Value.Mul(decimal.NewFromInt(pctx.OrderCount))
	case ModePerUnit:
		return c.Value.Mul(decimal.NewFromInt(pctx.UnitsSold))
	case ModePercentRevenue:
		if pctx.Revenue.IsPositive() {
			return c.Value.Div(oneHundred).Mul(pctx.Revenue)
		}
		return decimal.Zero
	}

	// Fixed / time-bound. An explicit effective range prorates against its
	// own span; a known frequency duration prorates against that; otherwise
	// the full value applies on any overlap.
	if c.EffectiveTo != nil && c.EffectiveTo.After(c.EffectiveFrom) {
		windowMs := c.EffectiveTo.UnixMilli() - c.EffectiveFrom.UnixMilli()
		return c.Value.Mul(decimal.NewFromInt(overlapMs)).Div(decimal.NewFromInt(windowMs))
	}
	if freqMs := frequencyDurationMs(c.Frequency); freqMs > 0 {
		return c.Value.Mul(decimal.NewFromInt(overlapMs)).Div(decimal.NewFromInt(freqMs))
	}
	return c.Value
}

// prorateCosts sums the prorated value of every active record matching one
// of the given types.
func prorateCosts(records []CostRecord, win Window, pctx ProrationContext, types ...CostType) decimal.Decimal {
	total := decimal.Zero
	for i := range records {
		c := &records[i]
		if !c.IsActive {
			continue
		}
		for _, t := range types {
			if c.Type == t {
				total = total.Add(Prorate(*c, win, pctx))
				break
			}
		}
	}
	return total
}
