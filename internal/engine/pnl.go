package engine

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// ── Granularity ───────────────────────────────────────────────────────────────

// Granularity is the calendar bucket size for P&L period tables.
type Granularity string

const (
	GranularityDaily   Granularity = "daily"
	GranularityWeekly  Granularity = "weekly"
	GranularityMonthly Granularity = "monthly"
)

func (g Granularity) valid() bool {
	switch g {
	case GranularityDaily, GranularityWeekly, GranularityMonthly:
		return true
	}
	return false
}

// bucketStart maps a timestamp onto its bucket's first instant. Weekly
// buckets are Monday-aligned; all boundaries are UTC.
func bucketStart(t time.Time, g Granularity) time.Time {
	t = t.UTC()
	switch g {
	case GranularityWeekly:
		day := dayStart(t)
		offset := (int(day.Weekday()) + 6) % 7 // Monday = 0
		return day.AddDate(0, 0, -offset)
	case GranularityMonthly:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return dayStart(t)
	}
}

func bucketEnd(start time.Time, g Granularity) time.Time {
	switch g {
	case GranularityWeekly:
		return dayEnd(start.AddDate(0, 0, 6))
	case GranularityMonthly:
		return dayEnd(start.AddDate(0, 1, -1))
	default:
		return dayEnd(start)
	}
}

func bucketLabel(start time.Time, g Granularity) string {
	switch g {
	case GranularityWeekly:
		return start.Format("2006-01-02") + " – " + start.AddDate(0, 0, 6).Format("2006-01-02")
	case GranularityMonthly:
		return start.Format("2006-01")
	default:
		return start.Format("2006-01-02")
	}
}

// ── Output shapes ─────────────────────────────────────────────────────────────

// PnLPeriod is one bucket row of the P&L table. Rows use a net-revenue
// basis: netRevenue = max(grossRevenue − refunds − rtoLost, 0), and COGS,
// handling and taxes are scaled by the cost-retention factor before profit
// is derived, so returned volume does not carry its originally-recognized
// cost. The "Total" row is computed independently over the full range, not
// by summing buckets.
type PnLPeriod struct {
	Label   string `json:"label"`
	Start   string `json:"start"` // YYYY-MM-DD
	End     string `json:"end"`   // YYYY-MM-DD
	IsTotal bool   `json:"is_total"`

	Orders    int64 `json:"orders"`
	UnitsSold int64 `json:"units_sold"`

	GrossRevenue   float64 `json:"gross_revenue"`
	Refunds        float64 `json:"refunds"`
	RTORevenueLost float64 `json:"rto_revenue_lost"`
	NetRevenue     float64 `json:"net_revenue"`
	CostRetention  float64 `json:"cost_retention"`

	COGS            float64 `json:"cogs"`
	HandlingFees    float64 `json:"handling_fees"`
	Taxes           float64 `json:"taxes"`
	ShippingCosts   float64 `json:"shipping_costs"`
	TransactionFees float64 `json:"transaction_fees"`
	CustomCosts     float64 `json:"custom_costs"`
	AdSpend         float64 `json:"ad_spend"`

	GrossProfit       float64 `json:"gross_profit"`
	NetProfit         float64 `json:"net_profit"`
	GrossProfitMargin float64 `json:"gross_profit_margin"`
	NetProfitMargin   float64 `json:"net_profit_margin"`
}

// PnLKPIs is the KPI overlay computed from the full-range totals.
type PnLKPIs struct {
	OperatingExpenses float64 `json:"operating_expenses"`
	EBITDA            float64 `json:"ebitda"`
	MarketingROAS     float64 `json:"marketing_roas"`
	MarketingROI      float64 `json:"marketing_roi"`
}

// PnLExportRow mirrors the period table exactly, one row per bucket plus one
// TOTAL row.
type PnLExportRow struct {
	Period          string  `json:"period"`
	Orders          int64   `json:"orders"`
	GrossRevenue    float64 `json:"gross_revenue"`
	Refunds         float64 `json:"refunds"`
	NetRevenue      float64 `json:"net_revenue"`
	COGS            float64 `json:"cogs"`
	ShippingCosts   float64 `json:"shipping_costs"`
	TransactionFees float64 `json:"transaction_fees"`
	HandlingFees    float64 `json:"handling_fees"`
	Taxes           float64 `json:"taxes"`
	CustomCosts     float64 `json:"custom_costs"`
	AdSpend         float64 `json:"ad_spend"`
	GrossProfit     float64 `json:"gross_profit"`
	NetProfit       float64 `json:"net_profit"`
	NetProfitMargin float64 `json:"net_profit_margin"`
}

// PnLResult is the full period-bucketed P&L payload.
type PnLResult struct {
	Granularity Granularity    `json:"granularity"`
	KPIs        PnLKPIs        `json:"kpis"`
	Periods     []PnLPeriod    `json:"periods"`
	Totals      PnLPeriod      `json:"totals"`
	ExportRows  []PnLExportRow `json:"export_rows"`
}

// ── Computation ───────────────────────────────────────────────────────────────

// computePeriod runs the shared economics over one bucket (or the full
// range) and applies the net-revenue basis and cost-retention factor.
func computePeriod(d *Dataset, win Window, orders []RawOrder, label string, isTotal bool) PnLPeriod {
	ec := computeEconomics(d, win, orders)

	netRevenue := ec.revenue.Sub(ec.refunds).Sub(ec.rtoLost)
	if netRevenue.IsNegative() {
		netRevenue = decimal.Zero
	}

	// retention = netRevenue/grossRevenue, 1 when there was no revenue.
	retention := decimal.NewFromInt(1)
	if ec.revenue.IsPositive() {
		retention = netRevenue.Div(ec.revenue)
	}

	cogs := ec.cogs.Mul(retention)
	handling := ec.handling.Mul(retention)
	taxes := ec.taxes.Mul(retention)

	grossProfit := netRevenue.Sub(cogs)
	netProfit := netRevenue.
		Sub(cogs).Sub(handling).Sub(taxes).
		Sub(ec.shipping).Sub(ec.transactionFees).Sub(ec.customCosts).
		Sub(ec.adSpend)

	retentionF, _ := retention.Round(4).Float64()

	return PnLPeriod{
		Label:   label,
		Start:   win.Start.Format("2006-01-02"),
		End:     win.End.Format("2006-01-02"),
		IsTotal: isTotal,

		Orders:    ec.activeOrders,
		UnitsSold: ec.unitsSold,

		GrossRevenue:   money(ec.revenue),
		Refunds:        money(ec.refunds),
		RTORevenueLost: money(ec.rtoLost),
		NetRevenue:     money(netRevenue),
		CostRetention:  retentionF,

		COGS:            money(cogs),
		HandlingFees:    money(handling),
		Taxes:           money(taxes),
		ShippingCosts:   money(ec.shipping),
		TransactionFees: money(ec.transactionFees),
		CustomCosts:     money(ec.customCosts),
		AdSpend:         money(ec.adSpend),

		GrossProfit:       money(grossProfit),
		NetProfit:         money(netProfit),
		GrossProfitMargin: pct(grossProfit, netRevenue),
		NetProfitMargin:   pct(netProfit, netRevenue),
	}
}

// ComputePnL buckets activity into calendar periods and computes each
// bucket's P&L plus an independently-computed full-range total. Orders land
// in buckets by creation timestamp, ad insights by date; buckets are sorted
// chronologically. Totals are never the sum of bucket rows: margins,
// retention and proration are non-linear.
func ComputePnL(ds *Dataset, g Granularity) (*PnLResult, error) {
	if !g.valid() {
		return nil, ErrInvalidGranularity
	}
	d := ds.orDefault()

	ordersByBucket := map[time.Time][]RawOrder{}
	for i := range d.Orders {
		key := bucketStart(d.Orders[i].CreatedAt, g)
		ordersByBucket[key] = append(ordersByBucket[key], d.Orders[i])
	}
	// Ad-only buckets still appear in the table.
	for i := range d.AdInsights {
		if d.AdInsights[i].LineItemID != "" {
			continue
		}
		key := bucketStart(d.AdInsights[i].Date, g)
		if _, ok := ordersByBucket[key]; !ok {
			ordersByBucket[key] = nil
		}
	}

	starts := make([]time.Time, 0, len(ordersByBucket))
	for k := range ordersByBucket {
		starts = append(starts, k)
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })

	periods := make([]PnLPeriod, 0, len(starts)+1)
	for _, start := range starts {
		win := Window{Start: start, End: bucketEnd(start, g)}
		periods = append(periods, computePeriod(d, win, ordersByBucket[start], bucketLabel(start, g), false))
	}

	var totals PnLPeriod
	if len(starts) > 0 {
		full := Window{Start: starts[0], End: bucketEnd(starts[len(starts)-1], g)}
		totals = computePeriod(d, full, d.Orders, "Total", true)
	} else {
		totals = PnLPeriod{Label: "Total", IsTotal: true, CostRetention: 1}
	}
	periods = append(periods, totals)

	totalsDec := func(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }
	kpis := PnLKPIs{
		OperatingExpenses: totals.CustomCosts,
		EBITDA:            money(totalsDec(totals.NetProfit).Add(totalsDec(totals.AdSpend)).Add(totalsDec(totals.CustomCosts))),
		MarketingROAS:     ratio2(totalsDec(totals.GrossRevenue), totalsDec(totals.AdSpend)),
		MarketingROI:      pct(totalsDec(totals.NetProfit), totalsDec(totals.AdSpend)),
	}

	exportRows := make([]PnLExportRow, 0, len(periods))
	for i := range periods {
		p := &periods[i]
		label := p.Label
		if p.IsTotal {
			label = "TOTAL"
		}
		exportRows = append(exportRows, PnLExportRow{
			Period:          label,
			Orders:          p.Orders,
			GrossRevenue:    p.GrossRevenue,
			Refunds:         p.Refunds,
			NetRevenue:      p.NetRevenue,
			COGS:            p.COGS,
			ShippingCosts:   p.ShippingCosts,
			TransactionFees: p.TransactionFees,
			HandlingFees:    p.HandlingFees,
			Taxes:           p.Taxes,
			CustomCosts:     p.CustomCosts,
			AdSpend:         p.AdSpend,
			GrossProfit:     p.GrossProfit,
			NetProfit:       p.NetProfit,
			NetProfitMargin: p.NetProfitMargin,
		})
	}

	return &PnLResult{
		Granularity: g,
		KPIs:        kpis,
		Periods:     periods[:len(periods)-1],
		Totals:      totals,
		ExportRows:  exportRows,
	}, nil
}
