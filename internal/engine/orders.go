package engine

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// ── Options ───────────────────────────────────────────────────────────────────

const (
	defaultPageSize = 50
	maxPageSize     = 250
)

// Status filter values accepted by ComputeOrdersAnalytics.
const (
	StatusFilterAll         = "all"
	StatusFilterUnfulfilled = "unfulfilled"
	StatusFilterPartial     = "partial"
	StatusFilterFulfilled   = "fulfilled"
	StatusFilterCancelled   = "cancelled"
	StatusFilterRefunded    = "refunded"
)

// Sort keys accepted by ComputeOrdersAnalytics. Default is created_at
// descending.
const (
	SortByRevenue   = "revenue"
	SortByProfit    = "profit"
	SortByItems     = "items"
	SortByStatus    = "status"
	SortByCreatedAt = "created_at"
)

// OrdersOptions controls filtering, sorting and pagination. Zero values mean
// defaults: status all, no search, created_at descending, page 1, page size
// 50. PageSize above the cap is clamped, a negative PageSize is a contract
// violation.
type OrdersOptions struct {
	Status   string `json:"status,omitempty"`
	Search   string `json:"search,omitempty"`
	SortBy   string `json:"sort_by,omitempty"`
	SortAsc  bool   `json:"sort_asc,omitempty"`
	Page     int    `json:"page,omitempty"`
	PageSize int    `json:"page_size,omitempty"`
}

func (o *OrdersOptions) normalize() error {
	if o.Status == "" {
		o.Status = StatusFilterAll
	}
	switch o.Status {
	case StatusFilterAll, StatusFilterUnfulfilled, StatusFilterPartial,
		StatusFilterFulfilled, StatusFilterCancelled, StatusFilterRefunded:
	default:
		return ErrInvalidStatus
	}
	if o.SortBy == "" {
		o.SortBy = SortByCreatedAt
	}
	switch o.SortBy {
	case SortByRevenue, SortByProfit, SortByItems, SortByStatus, SortByCreatedAt:
	default:
		return ErrInvalidSortKey
	}
	if o.PageSize < 0 {
		return ErrInvalidPageSize
	}
	if o.PageSize == 0 {
		o.PageSize = defaultPageSize
	}
	if o.PageSize > maxPageSize {
		o.PageSize = maxPageSize
	}
	if o.Page < 1 {
		o.Page = 1
	}
	return nil
}

// ── Output shapes ─────────────────────────────────────────────────────────────

// OrderEconomics is one order's canonical economics row.
type OrderEconomics struct {
	OrderID       string  `json:"order_id"`
	OrderNumber   string  `json:"order_number"`
	CreatedAt     string  `json:"created_at"` // RFC 3339, UTC
	CustomerName  string  `json:"customer_name"`
	CustomerEmail string  `json:"customer_email"`
	Status        string  `json:"status"`
	Items         int64   `json:"items"`
	Revenue       float64 `json:"revenue"`
	COGS          float64 `json:"cogs"`
	ShippingCost  float64 `json:"shipping_cost"`
	TaxAmount     float64 `json:"tax_amount"`
	Fees          float64 `json:"fees"`
	TotalCost     float64 `json:"total_cost"`
	Profit        float64 `json:"profit"`
	Margin        float64 `json:"margin"`
	Refunded      float64 `json:"refunded"`
	Cancelled     bool    `json:"cancelled"`
}

// OrdersOverview is the filtered-set rollup above the order table.
type OrdersOverview struct {
	TotalOrders        int64   `json:"total_orders"`
	FulfilledOrders    int64   `json:"fulfilled_orders"`
	FulfillmentRate    float64 `json:"fulfillment_rate"`
	OrdersWithRefund   int64   `json:"orders_with_refund"`
	ReturnRate         float64 `json:"return_rate"`
	AvgFulfillmentCost float64 `json:"avg_fulfillment_cost"`
	TotalRevenue       float64 `json:"total_revenue"`
	TotalProfit        float64 `json:"total_profit"`
	AvgMargin          float64 `json:"avg_margin"`

	TotalOrdersChange     float64 `json:"total_orders_change,omitempty"`
	FulfillmentRateChange float64 `json:"fulfillment_rate_change,omitempty"`
	ReturnRateChange      float64 `json:"return_rate_change,omitempty"`
	TotalRevenueChange    float64 `json:"total_revenue_change,omitempty"`
	TotalProfitChange     float64 `json:"total_profit_change,omitempty"`
}

// OrdersPage is one page of the sorted, filtered order table.
type OrdersPage struct {
	Items      []OrderEconomics `json:"items"`
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
	TotalPages int              `json:"total_pages"`
	TotalCount int              `json:"total_count"`
}

// FulfillmentRollup counts orders per canonical fulfillment class.
type FulfillmentRollup struct {
	Counts map[string]int64 `json:"counts"`
}

// OrderExportRow mirrors the table columns for download; the projection is
// never paginated.
type OrderExportRow struct {
	OrderNumber   string  `json:"order_number"`
	CreatedAt     string  `json:"created_at"`
	CustomerName  string  `json:"customer_name"`
	CustomerEmail string  `json:"customer_email"`
	Status        string  `json:"status"`
	Items         int64   `json:"items"`
	Revenue       float64 `json:"revenue"`
	TotalCost     float64 `json:"total_cost"`
	Profit        float64 `json:"profit"`
	Margin        float64 `json:"margin"`
	Refunded      float64 `json:"refunded"`
}

// OrdersResult is the full per-order analytics payload.
type OrdersResult struct {
	Overview    OrdersOverview    `json:"overview"`
	Page        OrdersPage        `json:"page"`
	Fulfillment FulfillmentRollup `json:"fulfillment"`
	ExportRows  []OrderExportRow  `json:"export_rows"`
}

// ── Computation ───────────────────────────────────────────────────────────────

// orderRow carries the exact decimals alongside the output row so sorting
// and rollups never re-parse rounded floats.
type orderRow struct {
	out       OrderEconomics
	createdAt int64
	revenue   decimal.Decimal
	profit    decimal.Decimal
	shipping  decimal.Decimal
	refunded  decimal.Decimal
}

// buildOrderRows normalizes every order and computes per-order economics:
// cost = COGS + shipping + tax + linked gateway fees, profit = revenue −
// cost, margin guarded to 0 at zero revenue.
func buildOrderRows(d *Dataset) []orderRow {
	rows := make([]orderRow, 0, len(d.Orders))
	for i := range d.Orders {
		o := normalizeOrder(&d.Orders[i])

		cogs := decimal.Zero
		for j := range o.LineItems {
			li := &o.LineItems[j]
			qty := decimal.NewFromInt(li.Quantity)
			itemCogs := decimal.Zero
			if comp, ok := d.variantComponent(li); ok {
				itemCogs = comp.CogsPerUnit.Mul(qty)
			}
			if itemCogs.IsZero() {
				if c := dec(li.TotalCost); !c.IsZero() {
					itemCogs = c
				} else if c := dec(li.UnitCost); !c.IsZero() {
					itemCogs = c.Mul(qty)
				}
			}
			cogs = cogs.Add(itemCogs)
		}

		fees := d.transactionFees(o.ID)
		cost := cogs.Add(o.ShippingCost).Add(o.TotalTax).Add(fees)
		profit := o.TotalPrice.Sub(cost)

		refunded := d.refundedAmount(o.ID)
		if refunded.IsZero() {
			refunded = o.TotalRefunded
		}

		status := o.FulfillmentClass
		if o.Cancelled {
			status = FulfillmentCancelled
		}

		rows = append(rows, orderRow{
			out: OrderEconomics{
				OrderID:       o.ID,
				OrderNumber:   o.Number,
				CreatedAt:     o.CreatedAt.Format("2006-01-02T15:04:05Z"),
				CustomerName:  o.CustomerName,
				CustomerEmail: o.CustomerEmail,
				Status:        status,
				Items:         o.Units,
				Revenue:       money(o.TotalPrice),
				COGS:          money(cogs),
				ShippingCost:  money(o.ShippingCost),
				TaxAmount:     money(o.TotalTax),
				Fees:          money(fees),
				TotalCost:     money(cost),
				Profit:        money(profit),
				Margin:        pct(profit, o.TotalPrice),
				Refunded:      money(refunded),
				Cancelled:     o.Cancelled,
			},
			createdAt: o.CreatedAt.UnixMilli(),
			revenue:   o.TotalPrice,
			profit:    profit,
			shipping:  o.ShippingCost,
			refunded:  refunded,
		})
	}
	return rows
}

func matchesStatus(r *orderRow, status string) bool {
	switch status {
	case StatusFilterAll:
		return true
	case StatusFilterCancelled:
		return r.out.Cancelled
	case StatusFilterRefunded:
		return r.refunded.IsPositive()
	case StatusFilterFulfilled:
		return r.out.Status == FulfillmentFulfilled
	case StatusFilterPartial:
		return r.out.Status == FulfillmentPartial
	case StatusFilterUnfulfilled:
		return r.out.Status == "" || r.out.Status == FulfillmentUnfulfilled || r.out.Status == FulfillmentPending
	}
	return false
}

func matchesSearch(r *orderRow, q string) bool {
	if q == "" {
		return true
	}
	q = strings.ToLower(q)
	return strings.Contains(strings.ToLower(r.out.OrderNumber), q) ||
		strings.Contains(strings.ToLower(r.out.CustomerName), q) ||
		strings.Contains(strings.ToLower(r.out.CustomerEmail), q)
}

func sortRows(rows []orderRow, key string, asc bool) {
	less := func(a, b *orderRow) bool { return a.createdAt < b.createdAt }
	switch key {
	case SortByRevenue:
		less = func(a, b *orderRow) bool { return a.revenue.LessThan(b.revenue) }
	case SortByProfit:
		less = func(a, b *orderRow) bool { return a.profit.LessThan(b.profit) }
	case SortByItems:
		less = func(a, b *orderRow) bool { return a.out.Items < b.out.Items }
	case SortByStatus:
		less = func(a, b *orderRow) bool { return a.out.Status < b.out.Status }
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if asc {
			return less(&rows[i], &rows[j])
		}
		return less(&rows[j], &rows[i])
	})
}

func rollupOrders(rows []orderRow) OrdersOverview {
	var ov OrdersOverview
	revenue := decimal.Zero
	profit := decimal.Zero
	shipping := decimal.Zero
	for i := range rows {
		r := &rows[i]
		ov.TotalOrders++
		if r.out.Status == FulfillmentFulfilled {
			ov.FulfilledOrders++
		}
		if r.refunded.IsPositive() {
			ov.OrdersWithRefund++
		}
		revenue = revenue.Add(r.revenue)
		profit = profit.Add(r.profit)
		shipping = shipping.Add(r.shipping)
	}
	total := decimal.NewFromInt(ov.TotalOrders)
	ov.FulfillmentRate = pct(decimal.NewFromInt(ov.FulfilledOrders), total)
	ov.ReturnRate = pct(decimal.NewFromInt(ov.OrdersWithRefund), total)
	ov.AvgFulfillmentCost = ratio2(shipping, total)
	ov.TotalRevenue = money(revenue)
	ov.TotalProfit = money(profit)
	ov.AvgMargin = pct(profit, revenue)
	return ov
}

// ComputeOrdersAnalytics produces per-order economics with filtering,
// sorting, clamped pagination, fulfillment/return rollups, and a full
// unpaginated export projection. prev, when non-nil, populates the
// overview's *Change fields using the same filter.
func ComputeOrdersAnalytics(ds *Dataset, opts OrdersOptions, prev *Dataset) (*OrdersResult, error) {
	if err := opts.normalize(); err != nil {
		return nil, err
	}
	d := ds.orDefault()

	all := buildOrderRows(d)

	rollup := FulfillmentRollup{Counts: map[string]int64{}}
	for i := range all {
		rollup.Counts[all[i].out.Status]++
	}

	filtered := make([]orderRow, 0, len(all))
	for i := range all {
		if matchesStatus(&all[i], opts.Status) && matchesSearch(&all[i], opts.Search) {
			filtered = append(filtered, all[i])
		}
	}
	sortRows(filtered, opts.SortBy, opts.SortAsc)

	overview := rollupOrders(filtered)

	if prev != nil {
		p := prev.orDefault()
		prows := buildOrderRows(p)
		pf := make([]orderRow, 0, len(prows))
		for i := range prows {
			if matchesStatus(&prows[i], opts.Status) && matchesSearch(&prows[i], opts.Search) {
				pf = append(pf, prows[i])
			}
		}
		pov := rollupOrders(pf)
		overview.TotalOrdersChange = countChange(overview.TotalOrders, pov.TotalOrders)
		overview.FulfillmentRateChange = floatChange(overview.FulfillmentRate, pov.FulfillmentRate)
		overview.ReturnRateChange = floatChange(overview.ReturnRate, pov.ReturnRate)
		overview.TotalRevenueChange = floatChange(overview.TotalRevenue, pov.TotalRevenue)
		overview.TotalProfitChange = floatChange(overview.TotalProfit, pov.TotalProfit)
	}

	// 1-indexed pagination: page clamps into [1, totalPages].
	totalCount := len(filtered)
	totalPages := (totalCount + opts.PageSize - 1) / opts.PageSize
	if totalPages < 1 {
		totalPages = 1
	}
	page := opts.Page
	if page > totalPages {
		page = totalPages
	}
	lo := (page - 1) * opts.PageSize
	hi := min(lo+opts.PageSize, totalCount)
	if lo > totalCount {
		lo = totalCount
	}

	items := make([]OrderEconomics, 0, hi-lo)
	for i := lo; i < hi; i++ {
		items = append(items, filtered[i].out)
	}

	exportRows := make([]OrderExportRow, 0, len(filtered))
	for i := range filtered {
		r := &filtered[i].out
		exportRows = append(exportRows, OrderExportRow{
			OrderNumber:   r.OrderNumber,
			CreatedAt:     r.CreatedAt,
			CustomerName:  r.CustomerName,
			CustomerEmail: r.CustomerEmail,
			Status:        r.Status,
			Items:         r.Items,
			Revenue:       r.Revenue,
			TotalCost:     r.TotalCost,
			Profit:        r.Profit,
			Margin:        r.Margin,
			Refunded:      r.Refunded,
		})
	}

	return &OrdersResult{
		Overview: overview,
		Page: OrdersPage{
			Items:      items,
			Page:       page,
			PageSize:   opts.PageSize,
			TotalPages: totalPages,
			TotalCount: totalCount,
		},
		Fulfillment: rollup,
		ExportRows:  exportRows,
	}, nil
}
