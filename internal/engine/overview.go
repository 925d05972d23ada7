package engine

import (
	"github.com/shopspring/decimal"
)

// ── Output shape ──────────────────────────────────────────────────────────────

// OverviewSummary is the organization-wide P&L summary for one window.
// Money fields are rounded to 2 decimals; margins and rates are 0–100-scaled
// plain numbers, guarded to 0 when their denominator is zero. *Change fields
// are populated only when a previous dataset is supplied and follow the
// percentage-change convention in numeric.go.
type OverviewSummary struct {
	Revenue        float64 `json:"revenue"`
	GrossSales     float64 `json:"gross_sales"`
	Discounts      float64 `json:"discounts"`
	Refunds        float64 `json:"refunds"`
	RTORevenueLost float64 `json:"rto_revenue_lost"`
	NetRevenue     float64 `json:"net_revenue"`

	COGS            float64 `json:"cogs"`
	ShippingCosts   float64 `json:"shipping_costs"`
	HandlingFees    float64 `json:"handling_fees"`
	TransactionFees float64 `json:"transaction_fees"`
	Taxes           float64 `json:"taxes"`
	CustomCosts     float64 `json:"custom_costs"`
	AdSpend         float64 `json:"ad_spend"`
	TotalCosts      float64 `json:"total_costs"`

	GrossProfit       float64 `json:"gross_profit"`
	NetProfit         float64 `json:"net_profit"`
	GrossProfitMargin float64 `json:"gross_profit_margin"`
	NetProfitMargin   float64 `json:"net_profit_margin"`

	OrderCount          int64   `json:"order_count"`
	ActiveOrderCount    int64   `json:"active_order_count"`
	CancelledOrderCount int64   `json:"cancelled_order_count"`
	UnitsSold           int64   `json:"units_sold"`
	AOV                 float64 `json:"aov"`

	TotalCustomers     int64   `json:"total_customers"`
	NewCustomers       int64   `json:"new_customers"`
	ReturningCustomers int64   `json:"returning_customers"`
	RepeatCustomerRate float64 `json:"repeat_customer_rate"`
	CAC                float64 `json:"cac"`

	ROAS float64 `json:"roas"`
	POAS float64 `json:"poas"`

	AdImpressions int64 `json:"ad_impressions"`
	AdClicks      int64 `json:"ad_clicks"`
	AdConversions int64 `json:"ad_conversions"`

	RevenueChange            float64 `json:"revenue_change,omitempty"`
	GrossSalesChange         float64 `json:"gross_sales_change,omitempty"`
	DiscountsChange          float64 `json:"discounts_change,omitempty"`
	RefundsChange            float64 `json:"refunds_change,omitempty"`
	NetRevenueChange         float64 `json:"net_revenue_change,omitempty"`
	COGSChange               float64 `json:"cogs_change,omitempty"`
	ShippingCostsChange      float64 `json:"shipping_costs_change,omitempty"`
	HandlingFeesChange       float64 `json:"handling_fees_change,omitempty"`
	TransactionFeesChange    float64 `json:"transaction_fees_change,omitempty"`
	TaxesChange              float64 `json:"taxes_change,omitempty"`
	CustomCostsChange        float64 `json:"custom_costs_change,omitempty"`
	AdSpendChange            float64 `json:"ad_spend_change,omitempty"`
	GrossProfitChange        float64 `json:"gross_profit_change,omitempty"`
	NetProfitChange          float64 `json:"net_profit_change,omitempty"`
	GrossProfitMarginChange  float64 `json:"gross_profit_margin_change,omitempty"`
	NetProfitMarginChange    float64 `json:"net_profit_margin_change,omitempty"`
	OrderCountChange         float64 `json:"order_count_change,omitempty"`
	ActiveOrderCountChange   float64 `json:"active_order_count_change,omitempty"`
	UnitsSoldChange          float64 `json:"units_sold_change,omitempty"`
	AOVChange                float64 `json:"aov_change,omitempty"`
	TotalCustomersChange     float64 `json:"total_customers_change,omitempty"`
	NewCustomersChange       float64 `json:"new_customers_change,omitempty"`
	ReturningCustomersChange float64 `json:"returning_customers_change,omitempty"`
	RepeatCustomerRateChange float64 `json:"repeat_customer_rate_change,omitempty"`
	CACChange                float64 `json:"cac_change,omitempty"`
	ROASChange               float64 `json:"roas_change,omitempty"`

	// Metrics is the compact named-metric map dashboards consume.
	Metrics map[string]float64 `json:"metrics"`
}

// ── Window economics ──────────────────────────────────────────────────────────

// windowEconomics holds the base aggregates for one window, in exact
// decimals, before any output rounding. Both the overview and the P&L
// engine derive from it.
type windowEconomics struct {
	rawOrders       int64
	rawRevenue      decimal.Decimal
	activeOrders    int64
	cancelledOrders int64
	unitsSold       int64

	revenue    decimal.Decimal
	grossSales decimal.Decimal
	discounts  decimal.Decimal

	cogs            decimal.Decimal
	handling        decimal.Decimal
	taxes           decimal.Decimal
	shipping        decimal.Decimal
	transactionFees decimal.Decimal
	customCosts     decimal.Decimal
	adSpend         decimal.Decimal
	refunds         decimal.Decimal
	rtoLost         decimal.Decimal

	totalCustomers     int64
	newCustomers       int64
	returningCustomers int64

	impressions int64
	clicks      int64
	conversions int64
}

// computeEconomics runs the cancellation-exclusion, variant-cost, tax,
// proration and refund logic over one set of orders and ad insights. The
// dataset supplies indexes (variant components, linked transactions and
// refunds, customer master records); win bounds proration and insight dates.
func computeEconomics(d *Dataset, win Window, orders []RawOrder) windowEconomics {
	var ec windowEconomics
	ec.rawRevenue = decimal.Zero
	ec.revenue = decimal.Zero
	ec.grossSales = decimal.Zero
	ec.discounts = decimal.Zero
	ec.cogs = decimal.Zero
	ec.handling = decimal.Zero
	ec.shipping = decimal.Zero
	ec.transactionFees = decimal.Zero
	ec.customCosts = decimal.Zero
	ec.adSpend = decimal.Zero
	ec.refunds = decimal.Zero
	ec.rtoLost = decimal.Zero
	ec.taxes = decimal.Zero

	orderTax := decimal.Zero
	componentTax := decimal.Zero
	anyComponentTax := false

	rawShipping := decimal.Zero
	rawFees := decimal.Zero
	orderRefunded := decimal.Zero
	explicitRefunds := decimal.Zero

	customers := map[string]bool{}

	for i := range orders {
		o := normalizeOrder(&orders[i])
		ec.rawOrders++
		ec.rawRevenue = ec.rawRevenue.Add(o.TotalPrice)
		if o.Cancelled {
			ec.cancelledOrders++
			continue
		}
		ec.activeOrders++
		ec.revenue = ec.revenue.Add(o.TotalPrice)
		ec.grossSales = ec.grossSales.Add(o.SubtotalPrice)
		ec.discounts = ec.discounts.Add(o.TotalDiscounts)
		orderTax = orderTax.Add(o.TotalTax)
		rawShipping = rawShipping.Add(o.ShippingCost)
		rawFees = rawFees.Add(d.transactionFees(o.ID))
		orderRefunded = orderRefunded.Add(o.TotalRefunded)
		explicitRefunds = explicitRefunds.Add(d.refundedAmount(o.ID))

		if o.CustomerID != "" && !customers[o.CustomerID] {
			customers[o.CustomerID] = true
			ec.totalCustomers++
			if d.lifetimeOrders(o.CustomerID) > 1 {
				ec.returningCustomers++
			} else {
				ec.newCustomers++
			}
		}

		for j := range o.LineItems {
			li := &o.LineItems[j]
			qty := decimal.NewFromInt(li.Quantity)
			ec.unitsSold += li.Quantity

			itemCogs := decimal.Zero
			comp, ok := d.variantComponent(li)
			if ok {
				itemCogs = comp.CogsPerUnit.Mul(qty)
				ec.handling = ec.handling.Add(comp.HandlingPerUnit.Mul(qty))
				if comp.TaxPercent.IsPositive() {
					anyComponentTax = true
					rate := comp.TaxPercent
					if rate.GreaterThan(decimal.NewFromInt(1)) {
						rate = rate.Div(oneHundred)
					}
					componentTax = componentTax.Add(dec(li.Price).Mul(qty).Mul(rate))
				}
			}
			if itemCogs.IsZero() {
				// Fall back to any line-supplied cost when the component
				// yields nothing.
				if c := dec(li.TotalCost); !c.IsZero() {
					itemCogs = c
				} else if c := dec(li.UnitCost); !c.IsZero() {
					itemCogs = c.Mul(qty)
				}
			}
			ec.cogs = ec.cogs.Add(itemCogs)
		}
	}

	// A single matched tax component switches the whole window to
	// component-recomputed tax.
	if anyComponentTax {
		ec.taxes = componentTax
	} else {
		ec.taxes = orderTax
	}

	for i := range d.AdInsights {
		ins := &d.AdInsights[i]
		if ins.LineItemID != "" || !win.Contains(ins.Date) {
			continue
		}
		ec.adSpend = ec.adSpend.Add(ins.Spend)
		ec.impressions += ins.Impressions
		ec.clicks += ins.Clicks
		ec.conversions += ins.Conversions
	}

	pctx := ProrationContext{
		OrderCount: ec.activeOrders,
		UnitsSold:  ec.unitsSold,
		Revenue:    ec.revenue,
	}

	// Organization-level cost records take precedence; raw per-order sums
	// only fill in when the prorated total is zero.
	ec.shipping = prorateCosts(d.CostRecords, win, pctx, CostTypeShipping)
	if ec.shipping.IsZero() {
		ec.shipping = rawShipping
	}
	ec.transactionFees = prorateCosts(d.CostRecords, win, pctx, CostTypeTransaction, CostTypePayment)
	if ec.transactionFees.IsZero() {
		ec.transactionFees = rawFees
	}
	// Marketing-type records are operational spend here, never ad spend:
	// insight-reported spend is the canonical ad-spend source.
	ec.customCosts = prorateCosts(d.CostRecords, win, pctx, CostTypeCustom, CostTypeOperational, CostTypeMarketing)
	ec.handling = ec.handling.Add(prorateCosts(d.CostRecords, win, pctx, CostTypeHandling))
	ec.taxes = ec.taxes.Add(prorateCosts(d.CostRecords, win, pctx, CostTypeTax))
	ec.cogs = ec.cogs.Add(prorateCosts(d.CostRecords, win, pctx, CostTypeCOGS, CostTypeProduct))

	if explicitRefunds.IsPositive() {
		ec.refunds = explicitRefunds
	} else {
		ec.refunds = orderRefunded
	}

	rate := manualReturnRate(d.ManualReturnRates, win)
	if rate.IsPositive() && ec.revenue.IsPositive() {
		lost := ec.revenue.Mul(rate).Div(oneHundred)
		if lost.IsNegative() {
			lost = decimal.Zero
		}
		if lost.GreaterThan(ec.revenue) {
			lost = ec.revenue
		}
		ec.rtoLost = lost
	}

	return ec
}

// manualReturnRate picks the latest active entry overlapping the window and
// clamps it to 0–100. No overlapping entry means rate 0.
func manualReturnRate(entries []ManualReturnRateEntry, win Window) decimal.Decimal {
	var best *ManualReturnRateEntry
	for i := range entries {
		e := &entries[i]
		if !e.IsActive {
			continue
		}
		if e.EffectiveFrom != nil && e.EffectiveFrom.After(win.End) {
			continue
		}
		if e.EffectiveTo != nil && e.EffectiveTo.Before(win.Start) {
			continue
		}
		if best == nil || e.UpdatedAt.After(best.UpdatedAt) {
			best = e
		}
	}
	if best == nil {
		return decimal.Zero
	}
	rate := best.Percent
	if rate.IsNegative() {
		return decimal.Zero
	}
	if rate.GreaterThan(oneHundred) {
		return oneHundred
	}
	return rate
}

// ── ComputeOverview ───────────────────────────────────────────────────────────

// ComputeOverview produces the organization-wide P&L summary for one window.
// prev, when non-nil, is the snapshot for the immediately preceding window of
// equal length; every *Change field is then populated. A nil or empty
// dataset yields a fully-populated zero summary.
func ComputeOverview(ds *Dataset, win Window, prev *Dataset) (*OverviewSummary, error) {
	if win.Start.IsZero() || win.End.IsZero() || win.End.Before(win.Start) {
		return nil, ErrInvalidWindow
	}
	d := ds.orDefault()

	ec := computeEconomics(d, win, d.Orders)
	sum := summarize(ec)

	if prev != nil {
		p := prev.orDefault()
		pec := computeEconomics(p, win.Previous(), p.Orders)
		psum := summarize(pec)
		applyChanges(sum, &ec, psum, &pec)
	}
	return sum, nil
}

func summarize(ec windowEconomics) *OverviewSummary {
	grossProfit := ec.revenue.Sub(ec.cogs)
	operating := ec.cogs.Add(ec.shipping).Add(ec.transactionFees).Add(ec.handling).Add(ec.customCosts).Add(ec.taxes)
	netProfit := ec.revenue.Sub(operating).Sub(ec.adSpend).Sub(ec.refunds.Add(ec.rtoLost))
	totalCosts := operating.Add(ec.adSpend)
	netRevenue := ec.revenue.Sub(ec.refunds).Sub(ec.rtoLost)

	s := &OverviewSummary{
		Revenue:        money(ec.revenue),
		GrossSales:     money(ec.grossSales),
		Discounts:      money(ec.discounts),
		Refunds:        money(ec.refunds),
		RTORevenueLost: money(ec.rtoLost),
		NetRevenue:     money(netRevenue),

		COGS:            money(ec.cogs),
		ShippingCosts:   money(ec.shipping),
		HandlingFees:    money(ec.handling),
		TransactionFees: money(ec.transactionFees),
		Taxes:           money(ec.taxes),
		CustomCosts:     money(ec.customCosts),
		AdSpend:         money(ec.adSpend),
		TotalCosts:      money(totalCosts),

		GrossProfit:       money(grossProfit),
		NetProfit:         money(netProfit),
		GrossProfitMargin: pct(grossProfit, ec.revenue),
		NetProfitMargin:   pct(netProfit, ec.revenue),

		OrderCount:          ec.rawOrders,
		ActiveOrderCount:    ec.activeOrders,
		CancelledOrderCount: ec.cancelledOrders,
		UnitsSold:           ec.unitsSold,
		AOV:                 ratio2(ec.revenue, decimal.NewFromInt(ec.activeOrders)),

		TotalCustomers:     ec.totalCustomers,
		NewCustomers:       ec.newCustomers,
		ReturningCustomers: ec.returningCustomers,
		RepeatCustomerRate: pct(decimal.NewFromInt(ec.returningCustomers), decimal.NewFromInt(ec.totalCustomers)),
		CAC:                ratio2(ec.adSpend, decimal.NewFromInt(ec.newCustomers)),

		ROAS: ratio2(ec.revenue, ec.adSpend),
		POAS: ratio2(netProfit, ec.adSpend),

		AdImpressions: ec.impressions,
		AdClicks:      ec.clicks,
		AdConversions: ec.conversions,
	}

	s.Metrics = map[string]float64{
		"revenue":             s.Revenue,
		"gross_sales":         s.GrossSales,
		"discounts":           s.Discounts,
		"refunds":             s.Refunds,
		"rto_revenue_lost":    s.RTORevenueLost,
		"net_revenue":         s.NetRevenue,
		"cogs":                s.COGS,
		"shipping_costs":      s.ShippingCosts,
		"handling_fees":       s.HandlingFees,
		"transaction_fees":    s.TransactionFees,
		"taxes":               s.Taxes,
		"custom_costs":        s.CustomCosts,
		"ad_spend":            s.AdSpend,
		"total_costs":         s.TotalCosts,
		"gross_profit":        s.GrossProfit,
		"net_profit":          s.NetProfit,
		"gross_profit_margin": s.GrossProfitMargin,
		"net_profit_margin":   s.NetProfitMargin,
		"aov":                 s.AOV,
		"roas":                s.ROAS,
		"poas":                s.POAS,
		"cac":                 s.CAC,
		"repeat_customer_rate": s.RepeatCustomerRate,
	}
	return s
}

func applyChanges(cur *OverviewSummary, cec *windowEconomics, prev *OverviewSummary, pec *windowEconomics) {
	cur.RevenueChange = percentageChange(cec.revenue, pec.revenue)
	cur.GrossSalesChange = percentageChange(cec.grossSales, pec.grossSales)
	cur.DiscountsChange = percentageChange(cec.discounts, pec.discounts)
	cur.RefundsChange = percentageChange(cec.refunds, pec.refunds)
	cur.NetRevenueChange = floatChange(cur.NetRevenue, prev.NetRevenue)
	cur.COGSChange = percentageChange(cec.cogs, pec.cogs)
	cur.ShippingCostsChange = percentageChange(cec.shipping, pec.shipping)
	cur.HandlingFeesChange = percentageChange(cec.handling, pec.handling)
	cur.TransactionFeesChange = percentageChange(cec.transactionFees, pec.transactionFees)
	cur.TaxesChange = percentageChange(cec.taxes, pec.taxes)
	cur.CustomCostsChange = percentageChange(cec.customCosts, pec.customCosts)
	cur.AdSpendChange = percentageChange(cec.adSpend, pec.adSpend)
	cur.GrossProfitChange = floatChange(cur.GrossProfit, prev.GrossProfit)
	cur.NetProfitChange = floatChange(cur.NetProfit, prev.NetProfit)
	cur.GrossProfitMarginChange = floatChange(cur.GrossProfitMargin, prev.GrossProfitMargin)
	cur.NetProfitMarginChange = floatChange(cur.NetProfitMargin, prev.NetProfitMargin)
	cur.OrderCountChange = countChange(cec.rawOrders, pec.rawOrders)
	cur.ActiveOrderCountChange = countChange(cec.activeOrders, pec.activeOrders)
	cur.UnitsSoldChange = countChange(cec.unitsSold, pec.unitsSold)
	cur.AOVChange = floatChange(cur.AOV, prev.AOV)
	cur.TotalCustomersChange = countChange(cec.totalCustomers, pec.totalCustomers)
	cur.NewCustomersChange = countChange(cec.newCustomers, pec.newCustomers)
	cur.ReturningCustomersChange = countChange(cec.returningCustomers, pec.returningCustomers)
	cur.RepeatCustomerRateChange = floatChange(cur.RepeatCustomerRate, prev.RepeatCustomerRate)
	cur.CACChange = floatChange(cur.CAC, prev.CAC)
	cur.ROASChange = floatChange(cur.ROAS, prev.ROAS)
}
