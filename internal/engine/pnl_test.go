package engine_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"profitscope/internal/engine"

	"github.com/shopspring/decimal"
)

func TestComputePnL_InvalidGranularity(t *testing.T) {
	_, err := engine.ComputePnL(nil, engine.Granularity("hourly"))
	if !errors.Is(err, engine.ErrInvalidGranularity) {
		t.Fatalf("got %v, want ErrInvalidGranularity", err)
	}
	if !engine.IsBadInput(err) {
		t.Error("granularity error must classify as bad input")
	}
}

func TestComputePnL_EmptyDataset(t *testing.T) {
	res, err := engine.ComputePnL(nil, engine.GranularityDaily)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Periods) != 0 {
		t.Errorf("periods = %d, want 0", len(res.Periods))
	}
	if !res.Totals.IsTotal || res.Totals.NetRevenue != 0 {
		t.Errorf("totals = %+v, want zero-valued total row", res.Totals)
	}
}

func TestComputePnL_DailyBuckets(t *testing.T) {
	ds := engine.NewDataset(engine.Dataset{
		Orders: []engine.RawOrder{
			{ID: "1", CreatedAt: date(t, "2024-03-01").Add(3 * time.Hour), TotalPrice: "100.00", Status: "open"},
			{ID: "2", CreatedAt: date(t, "2024-03-01").Add(20 * time.Hour), TotalPrice: "50.00", Status: "open"},
			{ID: "3", CreatedAt: date(t, "2024-03-03"), TotalPrice: "80.00", Status: "open"},
		},
	})
	res, err := engine.ComputePnL(ds, engine.GranularityDaily)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Periods) != 2 {
		t.Fatalf("periods = %d, want 2 (gap day has no bucket)", len(res.Periods))
	}
	if res.Periods[0].Label != "2024-03-01" || res.Periods[0].GrossRevenue != 150 {
		t.Errorf("first bucket = %s/%v, want 2024-03-01 with 150", res.Periods[0].Label, res.Periods[0].GrossRevenue)
	}
	if res.Periods[1].Label != "2024-03-03" {
		t.Errorf("buckets not chronological: %s", res.Periods[1].Label)
	}
}

func TestComputePnL_WeeklyBucketsMondayAligned(t *testing.T) {
	// 2024-01-10 is a Wednesday; its week starts Monday 2024-01-08.
	ds := engine.NewDataset(engine.Dataset{
		Orders: []engine.RawOrder{
			{ID: "1", CreatedAt: date(t, "2024-01-10"), TotalPrice: "100.00", Status: "open"},
		},
	})
	res, err := engine.ComputePnL(ds, engine.GranularityWeekly)
	if err != nil {
		t.Fatal(err)
	}
	if res.Periods[0].Start != "2024-01-08" {
		t.Errorf("week start = %s, want Monday 2024-01-08", res.Periods[0].Start)
	}
	if res.Periods[0].End != "2024-01-14" {
		t.Errorf("week end = %s, want Sunday 2024-01-14", res.Periods[0].End)
	}
	if res.Periods[0].Label != "2024-01-08 – 2024-01-14" {
		t.Errorf("label = %q", res.Periods[0].Label)
	}
}

func TestComputePnL_MonthlyBuckets(t *testing.T) {
	ds := engine.NewDataset(engine.Dataset{
		Orders: []engine.RawOrder{
			{ID: "1", CreatedAt: date(t, "2024-01-15"), TotalPrice: "100.00", Status: "open"},
			{ID: "2", CreatedAt: date(t, "2024-02-20"), TotalPrice: "200.00", Status: "open"},
		},
	})
	res, err := engine.ComputePnL(ds, engine.GranularityMonthly)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Periods) != 2 || res.Periods[0].Label != "2024-01" || res.Periods[1].Label != "2024-02" {
		t.Fatalf("monthly buckets wrong: %+v", res.Periods)
	}
}

func TestComputePnL_AdOnlyBucketAppears(t *testing.T) {
	ds := engine.NewDataset(engine.Dataset{
		Orders: []engine.RawOrder{
			{ID: "1", CreatedAt: date(t, "2024-03-01"), TotalPrice: "100.00", Status: "open"},
		},
		AdInsights: []engine.AdInsight{
			{Date: date(t, "2024-03-05"), Spend: decimal.NewFromInt(40)},
		},
	})
	res, err := engine.ComputePnL(ds, engine.GranularityDaily)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Periods) != 2 {
		t.Fatalf("periods = %d, want 2 (spend-only day included)", len(res.Periods))
	}
	if res.Periods[1].AdSpend != 40 || res.Periods[1].GrossRevenue != 0 {
		t.Errorf("ad-only bucket = %+v", res.Periods[1])
	}
}

func TestComputePnL_RetentionScalesRecognizedCosts(t *testing.T) {
	ds := engine.NewDataset(engine.Dataset{
		Orders: []engine.RawOrder{{
			ID: "1", CreatedAt: date(t, "2024-03-01"), TotalPrice: "100.00", Status: "open",
			LineItems: []engine.RawLineItem{{VariantID: "x", Quantity: 1, UnitCost: "80.00"}},
		}},
		Refunds: []engine.Refund{{OrderID: "1", Amount: decimal.NewFromInt(50), CreatedAt: date(t, "2024-03-02")}},
	})
	res, err := engine.ComputePnL(ds, engine.GranularityDaily)
	if err != nil {
		t.Fatal(err)
	}
	p := res.Periods[0]
	if p.NetRevenue != 50 {
		t.Errorf("net revenue = %v, want 50", p.NetRevenue)
	}
	if p.CostRetention != 0.5 {
		t.Errorf("retention = %v, want 0.5", p.CostRetention)
	}
	if p.COGS != 40 { // 80 scaled by retention
		t.Errorf("cogs = %v, want 40", p.COGS)
	}
	if p.NetProfit != 10 { // 50 - 40
		t.Errorf("net profit = %v, want 10", p.NetProfit)
	}
}

func TestComputePnL_TotalIsIndependentOfBucketSum(t *testing.T) {
	// Refunds concentrated in one bucket make the retention factor, and
	// therefore recognized COGS, non-linear: summing bucket profits must
	// NOT reproduce the independently-computed total.
	ds := engine.NewDataset(engine.Dataset{
		Orders: []engine.RawOrder{
			{ID: "1", CreatedAt: date(t, "2024-03-01"), TotalPrice: "100.00", Status: "open",
				LineItems: []engine.RawLineItem{{VariantID: "a", Quantity: 1, UnitCost: "80.00"}}},
			{ID: "2", CreatedAt: date(t, "2024-03-02"), TotalPrice: "100.00", Status: "open",
				LineItems: []engine.RawLineItem{{VariantID: "b", Quantity: 1, UnitCost: "20.00"}}},
		},
		Refunds: []engine.Refund{{OrderID: "1", Amount: decimal.NewFromInt(50), CreatedAt: date(t, "2024-03-01")}},
	})

	res, err := engine.ComputePnL(ds, engine.GranularityDaily)
	if err != nil {
		t.Fatal(err)
	}

	var summed float64
	for _, p := range res.Periods {
		summed += p.NetProfit
	}
	// Bucket 1: net 50, retention 0.5, cogs 40, profit 10.
	// Bucket 2: net 100, retention 1, cogs 20, profit 80.
	if summed != 90 {
		t.Fatalf("summed bucket profit = %v, want 90", summed)
	}
	// Total: net 150, retention 0.75, cogs 75, profit 75.
	if res.Totals.NetProfit != 75 {
		t.Fatalf("total net profit = %v, want 75", res.Totals.NetProfit)
	}
	if math.Abs(summed-res.Totals.NetProfit) < 1e-9 {
		t.Error("total must differ from the bucket sum in this construction")
	}
}

func TestComputePnL_KPIOverlay(t *testing.T) {
	ds := engine.NewDataset(engine.Dataset{
		Orders: []engine.RawOrder{
			{ID: "1", CreatedAt: date(t, "2024-03-01"), TotalPrice: "500.00", Status: "open"},
		},
		AdInsights: []engine.AdInsight{
			{Date: date(t, "2024-03-01"), Spend: decimal.NewFromInt(100)},
		},
		CostRecords: []engine.CostRecord{{
			Type:          engine.CostTypeOperational,
			Value:         decimal.NewFromInt(50),
			Frequency:     "one_time",
			EffectiveFrom: date(t, "2024-01-01"),
			IsActive:      true,
		}},
	})
	res, err := engine.ComputePnL(ds, engine.GranularityMonthly)
	if err != nil {
		t.Fatal(err)
	}

	tot := res.Totals
	if res.KPIs.OperatingExpenses != tot.CustomCosts {
		t.Errorf("operating expenses = %v, want custom costs %v", res.KPIs.OperatingExpenses, tot.CustomCosts)
	}
	wantEBITDA := tot.NetProfit + tot.AdSpend + tot.CustomCosts
	if res.KPIs.EBITDA != wantEBITDA {
		t.Errorf("ebitda = %v, want %v", res.KPIs.EBITDA, wantEBITDA)
	}
	if res.KPIs.MarketingROAS != 5 { // 500 / 100
		t.Errorf("roas = %v, want 5", res.KPIs.MarketingROAS)
	}

	// Export mirrors periods plus a TOTAL row.
	if len(res.ExportRows) != len(res.Periods)+1 {
		t.Errorf("export rows = %d, want %d", len(res.ExportRows), len(res.Periods)+1)
	}
	last := res.ExportRows[len(res.ExportRows)-1]
	if last.Period != "TOTAL" || last.NetProfit != tot.NetProfit {
		t.Errorf("TOTAL export row = %+v", last)
	}
}

func TestComputePnL_ZeroAdSpendGuards(t *testing.T) {
	ds := engine.NewDataset(engine.Dataset{
		Orders: []engine.RawOrder{
			{ID: "1", CreatedAt: date(t, "2024-03-01"), TotalPrice: "100.00", Status: "open"},
		},
	})
	res, err := engine.ComputePnL(ds, engine.GranularityDaily)
	if err != nil {
		t.Fatal(err)
	}
	if res.KPIs.MarketingROAS != 0 || res.KPIs.MarketingROI != 0 {
		t.Errorf("zero-spend KPIs = %v/%v, want 0/0", res.KPIs.MarketingROAS, res.KPIs.MarketingROI)
	}
}
