package engine_test

import (
	"testing"
	"time"

	"profitscope/internal/engine"

	"github.com/shopspring/decimal"
)

func mustWindow(t *testing.T, from, to string) engine.Window {
	t.Helper()
	start, err := time.Parse("2006-01-02", from)
	if err != nil {
		t.Fatalf("parse %s: %v", from, err)
	}
	end, err := time.Parse("2006-01-02", to)
	if err != nil {
		t.Fatalf("parse %s: %v", to, err)
	}
	w, err := engine.NewWindow(start, end)
	if err != nil {
		t.Fatalf("NewWindow(%s, %s): %v", from, to, err)
	}
	return w
}

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("parse %s: %v", s, err)
	}
	return d
}

func costRecord(value float64, frequency, calculation string, from time.Time, to *time.Time) engine.CostRecord {
	c := engine.CostRecord{
		Value:         decimal.NewFromFloat(value),
		Frequency:     frequency,
		Calculation:   calculation,
		EffectiveFrom: from,
		EffectiveTo:   to,
		IsActive:      true,
	}
	c.Mode = engine.ResolveCostMode(frequency, calculation)
	return c
}

func TestResolveCostMode_Precedence(t *testing.T) {
	tests := []struct {
		name        string
		frequency   string
		calculation string
		want        engine.CostMode
	}{
		{"per_order frequency wins over percentage calc", "per_order", "percentage", engine.ModePerOrder},
		{"per_unit frequency", "per_unit", "fixed", engine.ModePerUnit},
		{"per_item frequency", "per_item", "", engine.ModePerUnit},
		{"percentage calculation", "monthly", "percentage", engine.ModePercentRevenue},
		{"per_unit calculation", "one_time", "per_unit", engine.ModePerUnit},
		{"fixed fallthrough", "monthly", "fixed", engine.ModeFixed},
		{"unknown strings fall to fixed", "fortnightly", "mystery", engine.ModeFixed},
		{"empty strings fall to fixed", "", "", engine.ModeFixed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := engine.ResolveCostMode(tt.frequency, tt.calculation); got != tt.want {
				t.Errorf("ResolveCostMode(%q, %q) = %v, want %v", tt.frequency, tt.calculation, got, tt.want)
			}
		})
	}
}

func TestProrate_ZeroValueShortCircuits(t *testing.T) {
	win := mustWindow(t, "2024-01-01", "2024-01-31")
	ctx := engine.ProrationContext{OrderCount: 100, UnitsSold: 500, Revenue: decimal.NewFromInt(10000)}

	for _, pair := range [][2]string{
		{"per_order", ""},
		{"per_unit", ""},
		{"monthly", "percentage"},
		{"", "per_unit"},
		{"monthly", "fixed"},
		{"", ""},
	} {
		c := costRecord(0, pair[0], pair[1], date(t, "2024-01-01"), nil)
		if got := engine.Prorate(c, win, ctx); !got.IsZero() {
			t.Errorf("Prorate(value=0, freq=%q, calc=%q) = %s, want 0", pair[0], pair[1], got)
		}
	}
}

func TestProrate_PercentageOfRevenue(t *testing.T) {
	win := mustWindow(t, "2024-01-01", "2024-01-31")
	c := costRecord(10, "monthly", "percentage", date(t, "2024-01-01"), nil)

	got := engine.Prorate(c, win, engine.ProrationContext{Revenue: decimal.NewFromInt(1000)})
	if !got.Equal(decimal.NewFromInt(100)) {
		t.Errorf("10%% of 1000 = %s, want 100", got)
	}

	// Zero revenue guards to zero, not an error.
	got = engine.Prorate(c, win, engine.ProrationContext{})
	if !got.IsZero() {
		t.Errorf("10%% of 0 revenue = %s, want 0", got)
	}
}

func TestProrate_PerOrderScalesLinearly(t *testing.T) {
	win := mustWindow(t, "2024-01-01", "2024-01-31")
	c := costRecord(5, "per_order", "", date(t, "2024-01-01"), nil)

	once := engine.Prorate(c, win, engine.ProrationContext{OrderCount: 10})
	twice := engine.Prorate(c, win, engine.ProrationContext{OrderCount: 20})
	if !twice.Equal(once.Mul(decimal.NewFromInt(2))) {
		t.Errorf("doubling order count: %s -> %s, want exact doubling", once, twice)
	}
	if !once.Equal(decimal.NewFromInt(50)) {
		t.Errorf("5 per order x 10 orders = %s, want 50", once)
	}
}

func TestProrate_PerUnitScalesLinearly(t *testing.T) {
	win := mustWindow(t, "2024-01-01", "2024-01-31")
	c := costRecord(2, "per_unit", "", date(t, "2024-01-01"), nil)

	once := engine.Prorate(c, win, engine.ProrationContext{UnitsSold: 30})
	twice := engine.Prorate(c, win, engine.ProrationContext{UnitsSold: 60})
	if !twice.Equal(once.Mul(decimal.NewFromInt(2))) {
		t.Errorf("doubling units sold: %s -> %s, want exact doubling", once, twice)
	}
}

func TestProrate_NoOverlapReturnsZero(t *testing.T) {
	win := mustWindow(t, "2024-01-01", "2024-01-31")
	ctx := engine.ProrationContext{OrderCount: 10, UnitsSold: 10, Revenue: decimal.NewFromInt(1000)}

	// Effective range entirely after the window.
	c := costRecord(100, "per_order", "", date(t, "2024-02-01"), nil)
	if got := engine.Prorate(c, win, ctx); !got.IsZero() {
		t.Errorf("future cost = %s, want 0", got)
	}

	// Effective range entirely before the window.
	to := date(t, "2023-12-31")
	c = costRecord(100, "monthly", "", date(t, "2023-12-01"), &to)
	if got := engine.Prorate(c, win, ctx); !got.IsZero() {
		t.Errorf("expired cost = %s, want 0", got)
	}
}

func TestProrate_TimeBoundUsesOwnEffectiveSpan(t *testing.T) {
	// 20-day effective span, window covers the first 10 days: half the value.
	to := date(t, "2024-01-21")
	c := costRecord(100, "one_time", "fixed", date(t, "2024-01-01"), &to)
	win := mustWindow(t, "2024-01-01", "2024-01-10")

	got := engine.Prorate(c, win, engine.ProrationContext{})
	if s := got.Round(2).StringFixed(2); s != "50.00" {
		t.Errorf("half-overlap proration = %s, want 50.00", s)
	}
}

func TestProrate_FrequencyDurationFallback(t *testing.T) {
	// Monthly cost with an open effective end over a 15-day window: half the
	// nominal 30-day month.
	c := costRecord(300, "monthly", "fixed", date(t, "2023-06-01"), nil)
	win := mustWindow(t, "2024-01-01", "2024-01-15")

	got := engine.Prorate(c, win, engine.ProrationContext{})
	if s := got.Round(2).StringFixed(2); s != "150.00" {
		t.Errorf("monthly over 15 days = %s, want 150.00", s)
	}
}

func TestProrate_UnknownFrequencyChargesFullValue(t *testing.T) {
	c := costRecord(75, "one_time", "fixed", date(t, "2023-06-01"), nil)
	win := mustWindow(t, "2024-01-01", "2024-01-02")

	got := engine.Prorate(c, win, engine.ProrationContext{})
	if !got.Equal(decimal.NewFromInt(75)) {
		t.Errorf("one_time cost on overlap = %s, want full 75", got)
	}
}
