package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// ── Reporting window ──────────────────────────────────────────────────────────

// Window is an inclusive reporting range resolved to UTC day boundaries.
// Start is the first instant of its calendar day, End the last instant of its
// calendar day, both in UTC.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewWindow builds a Window from two timestamps, normalizing both to UTC day
// boundaries. Returns ErrInvalidWindow when either bound is zero or end
// precedes start.
func NewWindow(start, end time.Time) (Window, error) {
	if start.IsZero() || end.IsZero() {
		return Window{}, ErrInvalidWindow
	}
	s := dayStart(start)
	e := dayEnd(end)
	if e.Before(s) {
		return Window{}, ErrInvalidWindow
	}
	return Window{Start: s, End: e}, nil
}

// Previous returns the window of equal length immediately preceding w.
func (w Window) Previous() Window {
	days := int(w.End.Sub(w.Start).Hours()/24) + 1
	return Window{
		Start: w.Start.AddDate(0, 0, -days),
		End:   dayEnd(w.Start.AddDate(0, 0, -1)),
	}
}

// Contains reports whether t falls inside the window (inclusive).
func (w Window) Contains(t time.Time) bool {
	t = t.UTC()
	return !t.Before(w.Start) && !t.After(w.End)
}

func dayStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func dayEnd(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 999999999, time.UTC)
}

// ── Raw snapshot records ──────────────────────────────────────────────────────
//
// Raw records mirror the shapes the upstream platforms actually export:
// money as strings, optional nested money sets, optional shipping-line and
// fulfillment collections (flat and edge/node shaped). The normalizer absorbs
// this heterogeneity; nothing downstream of it reads raw fields directly.

// RawMoney is a single money value in platform string form.
type RawMoney struct {
	Amount string `json:"amount"`
}

// MoneySet is the shop/presentment money pair some platforms attach to
// price fields.
type MoneySet struct {
	ShopMoney        *RawMoney `json:"shop_money,omitempty"`
	PresentmentMoney *RawMoney `json:"presentment_money,omitempty"`
}

// RawShippingLine is one shipping charge on an order. The price fields form
// a per-line fallback chain: discounted price, then price, then original
// price, then the shop money set.
type RawShippingLine struct {
	Title           string    `json:"title,omitempty"`
	Price           string    `json:"price,omitempty"`
	DiscountedPrice string    `json:"discounted_price,omitempty"`
	OriginalPrice   string    `json:"original_price,omitempty"`
	PriceSet        *MoneySet `json:"price_set,omitempty"`
}

// RawAdjustment is an order-level shipping adjustment (refunded shipping,
// carrier corrections).
type RawAdjustment struct {
	Kind   string `json:"kind,omitempty"`
	Amount string `json:"amount,omitempty"`
}

// RawTotals is the nested totals object some exports carry instead of flat
// top-level fields.
type RawTotals struct {
	Shipping string `json:"shipping,omitempty"`
}

// RawFulfillment is one fulfillment sub-record on an order.
type RawFulfillment struct {
	Status         string `json:"status,omitempty"`
	DisplayStatus  string `json:"display_status,omitempty"`
	ShipmentStatus string `json:"shipment_status,omitempty"`
}

// RawFulfillmentEdge is the edge/node container GraphQL-flavored exports wrap
// fulfillments in.
type RawFulfillmentEdge struct {
	Node RawFulfillment `json:"node"`
}

// RawAddress is a shipping or billing address; only identity fields matter
// to the engine.
type RawAddress struct {
	Name      string `json:"name,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// RawCustomer is the structured customer sub-object on an order.
type RawCustomer struct {
	ID          string `json:"id,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	Name        string `json:"name,omitempty"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	Email       string `json:"email,omitempty"`
	OrdersCount int64  `json:"orders_count,omitempty"`
}

// RawLineItem is one line on a raw order. VariantID is the platform's
// internal variant id; AltVariantID is the secondary identifier some
// integrations use instead. UnitCost/TotalCost are optional pre-computed
// cost fields used as a fallback when no variant cost component matches.
type RawLineItem struct {
	ID                string `json:"id,omitempty"`
	VariantID         string `json:"variant_id,omitempty"`
	AltVariantID      string `json:"alt_variant_id,omitempty"`
	Quantity          int64  `json:"quantity"`
	Price             string `json:"price,omitempty"`
	UnitCost          string `json:"unit_cost,omitempty"`
	TotalCost         string `json:"total_cost,omitempty"`
	FulfillmentStatus string `json:"fulfillment_status,omitempty"`
}

// RawOrder is an order as exported by the sales platform, before
// normalization. Status fields are free text and inconsistently populated.
type RawOrder struct {
	ID          string    `json:"id"`
	Number      string    `json:"number,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	CancelledAt time.Time `json:"cancelled_at,omitempty"`

	Status                   string `json:"status,omitempty"`
	FinancialStatus          string `json:"financial_status,omitempty"`
	FulfillmentStatus        string `json:"fulfillment_status,omitempty"`
	DisplayFulfillmentStatus string `json:"display_fulfillment_status,omitempty"`

	Platform   string `json:"platform,omitempty"`
	SourceName string `json:"source_name,omitempty"`
	Currency   string `json:"currency,omitempty"`

	TotalPrice     string `json:"total_price,omitempty"`
	SubtotalPrice  string `json:"subtotal_price,omitempty"`
	TotalDiscounts string `json:"total_discounts,omitempty"`
	TotalTax       string `json:"total_tax,omitempty"`
	TotalRefunded  string `json:"total_refunded,omitempty"`

	TotalShipping         string            `json:"total_shipping,omitempty"`
	Totals                *RawTotals        `json:"totals,omitempty"`
	TotalShippingPriceSet *MoneySet         `json:"total_shipping_price_set,omitempty"`
	ShippingLines         []RawShippingLine `json:"shipping_lines,omitempty"`
	ShippingAdjustments   []RawAdjustment   `json:"shipping_adjustments,omitempty"`

	Fulfillments     []RawFulfillment     `json:"fulfillments,omitempty"`
	FulfillmentEdges []RawFulfillmentEdge `json:"fulfillment_edges,omitempty"`

	CustomerName    string       `json:"customer_name,omitempty"`
	Customer        *RawCustomer `json:"customer,omitempty"`
	Email           string       `json:"email,omitempty"`
	ShippingAddress *RawAddress  `json:"shipping_address,omitempty"`
	BillingAddress  *RawAddress  `json:"billing_address,omitempty"`

	LineItems []RawLineItem `json:"line_items,omitempty"`
}

// ── Supporting records ────────────────────────────────────────────────────────

// Transaction is a payment transaction linked to an order; Fee is the
// gateway-reported processing fee.
type Transaction struct {
	OrderID string          `json:"order_id"`
	Fee     decimal.Decimal `json:"fee"`
	Gateway string          `json:"gateway,omitempty"`
}

// Refund is a refunded amount linked to an order.
type Refund struct {
	OrderID   string          `json:"order_id"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}

// CostType classifies a cost record's business category.
type CostType string

const (
	CostTypeCOGS        CostType = "cogs"
	CostTypeShipping    CostType = "shipping"
	CostTypeHandling    CostType = "handling"
	CostTypeTransaction CostType = "transaction"
	CostTypeTax         CostType = "tax"
	CostTypeMarketing   CostType = "marketing"
	CostTypeOperational CostType = "operational"
	CostTypeCustom      CostType = "custom"
	CostTypeProduct     CostType = "product"
	CostTypePayment     CostType = "payment"
)

// CostRecord is an organization-level cost definition. Frequency and
// Calculation arrive as loose platform strings; Mode is the closed enum
// resolved from them once, at dataset construction.
type CostRecord struct {
	ID             string          `json:"id"`
	OrganizationID string          `json:"organization_id"`
	Type           CostType        `json:"type"`
	Value          decimal.Decimal `json:"value"`
	Calculation    string          `json:"calculation,omitempty"`
	Frequency      string          `json:"frequency,omitempty"`
	EffectiveFrom  time.Time       `json:"effective_from"`
	EffectiveTo    *time.Time      `json:"effective_to,omitempty"`
	IsActive       bool            `json:"is_active"`

	Mode CostMode `json:"-"`
}

// VariantCostComponent is a per-SKU override of COGS/handling/shipping/tax.
// When duplicates exist for one variant, the most recently updated wins.
type VariantCostComponent struct {
	VariantID       string          `json:"variant_id"`
	AltVariantID    string          `json:"alt_variant_id,omitempty"`
	CogsPerUnit     decimal.Decimal `json:"cogs_per_unit"`
	HandlingPerUnit decimal.Decimal `json:"handling_per_unit"`
	ShippingPerUnit decimal.Decimal `json:"shipping_per_unit"`
	TaxPercent      decimal.Decimal `json:"tax_percent"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// ManualReturnRateEntry is an organization-entered estimate of revenue lost
// to returns, used absent itemized refund data. Percent is clamped to 0–100
// at use. Latest-by-update wins when several entries overlap a window.
type ManualReturnRateEntry struct {
	OrganizationID string          `json:"organization_id"`
	Percent        decimal.Decimal `json:"percent"`
	EffectiveFrom  *time.Time      `json:"effective_from,omitempty"`
	EffectiveTo    *time.Time      `json:"effective_to,omitempty"`
	IsActive       bool            `json:"is_active"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// AdInsight is one day of advertising performance. Rows carrying a
// LineItemID are creative-level drill-downs; only account-level rows
// (empty LineItemID) count as canonical ad spend.
type AdInsight struct {
	Date             time.Time       `json:"date"`
	Spend            decimal.Decimal `json:"spend"`
	Impressions      int64           `json:"impressions"`
	Clicks           int64           `json:"clicks"`
	Conversions      int64           `json:"conversions"`
	AddToCart        int64           `json:"add_to_cart,omitempty"`
	InitiateCheckout int64           `json:"initiate_checkout,omitempty"`
	Purchases        int64           `json:"purchases,omitempty"`
	LineItemID       string          `json:"line_item_id,omitempty"`
}

// Customer is a customer master record; OrdersCount is the lifetime order
// count used to tell new from returning customers.
type Customer struct {
	ID          string `json:"id"`
	OrdersCount int64  `json:"orders_count"`
}

// ── Dataset ───────────────────────────────────────────────────────────────────

// Dataset is one organization's read-only, time-filtered snapshot. Build it
// with NewDataset so cost modes are resolved and lookup indexes exist; the
// engine treats a nil dataset as empty.
type Dataset struct {
	Orders            []RawOrder
	Transactions      []Transaction
	Refunds           []Refund
	CostRecords       []CostRecord
	VariantCosts      []VariantCostComponent
	ManualReturnRates []ManualReturnRateEntry
	AdInsights        []AdInsight
	Customers         []Customer

	variantByID    map[string]int
	variantByAltID map[string]int
	txByOrder      map[string][]int
	refundsByOrder map[string][]int
	customerByID   map[string]int
	orderCountByCustomer map[string]int64
}

// NewDataset prepares a snapshot for the engine: timestamps are normalized
// to UTC, cost modes are resolved once, and per-entity indexes are built.
// The input value is not retained; slices are shared, not copied.
func NewDataset(d Dataset) *Dataset {
	ds := d

	for i := range ds.Orders {
		ds.Orders[i].CreatedAt = ds.Orders[i].CreatedAt.UTC()
	}
	for i := range ds.Refunds {
		ds.Refunds[i].CreatedAt = ds.Refunds[i].CreatedAt.UTC()
	}
	for i := range ds.AdInsights {
		ds.AdInsights[i].Date = ds.AdInsights[i].Date.UTC()
	}
	for i := range ds.CostRecords {
		c := &ds.CostRecords[i]
		c.EffectiveFrom = c.EffectiveFrom.UTC()
		if c.EffectiveTo != nil {
			t := c.EffectiveTo.UTC()
			c.EffectiveTo = &t
		}
		c.Mode = ResolveCostMode(c.Frequency, c.Calculation)
	}

	ds.variantByID = make(map[string]int, len(ds.VariantCosts))
	ds.variantByAltID = make(map[string]int, len(ds.VariantCosts))
	for i := range ds.VariantCosts {
		v := &ds.VariantCosts[i]
		if v.VariantID != "" {
			if j, ok := ds.variantByID[v.VariantID]; !ok || v.UpdatedAt.After(ds.VariantCosts[j].UpdatedAt) {
				ds.variantByID[v.VariantID] = i
			}
		}
		if v.AltVariantID != "" {
			if j, ok := ds.variantByAltID[v.AltVariantID]; !ok || v.UpdatedAt.After(ds.VariantCosts[j].UpdatedAt) {
				ds.variantByAltID[v.AltVariantID] = i
			}
		}
	}

	ds.txByOrder = make(map[string][]int, len(ds.Transactions))
	for i := range ds.Transactions {
		id := ds.Transactions[i].OrderID
		ds.txByOrder[id] = append(ds.txByOrder[id], i)
	}
	ds.refundsByOrder = make(map[string][]int, len(ds.Refunds))
	for i := range ds.Refunds {
		id := ds.Refunds[i].OrderID
		ds.refundsByOrder[id] = append(ds.refundsByOrder[id], i)
	}

	ds.customerByID = make(map[string]int, len(ds.Customers))
	for i := range ds.Customers {
		ds.customerByID[ds.Customers[i].ID] = i
	}
	ds.orderCountByCustomer = make(map[string]int64)
	for i := range ds.Orders {
		if c := ds.Orders[i].Customer; c != nil && c.ID != "" {
			ds.orderCountByCustomer[c.ID]++
		}
	}

	return &ds
}

// empty returns a prepared zero-value dataset; used when callers pass nil.
func emptyDataset() *Dataset {
	return NewDataset(Dataset{})
}

func (d *Dataset) orDefault() *Dataset {
	if d == nil {
		return emptyDataset()
	}
	return d
}

// variantComponent resolves a line item to its latest cost component:
// direct variant id first, then the platform alt id, then unresolved.
func (d *Dataset) variantComponent(li *RawLineItem) (*VariantCostComponent, bool) {
	if li.VariantID != "" {
		if i, ok := d.variantByID[li.VariantID]; ok {
			return &d.VariantCosts[i], true
		}
	}
	if li.AltVariantID != "" {
		if i, ok := d.variantByAltID[li.AltVariantID]; ok {
			return &d.VariantCosts[i], true
		}
	}
	return nil, false
}

// transactionFees sums gateway fees linked to one order.
func (d *Dataset) transactionFees(orderID string) decimal.Decimal {
	total := decimal.Zero
	for _, i := range d.txByOrder[orderID] {
		total = total.Add(d.Transactions[i].Fee)
	}
	return total
}

// refundedAmount sums explicit refund records linked to one order.
func (d *Dataset) refundedAmount(orderID string) decimal.Decimal {
	total := decimal.Zero
	for _, i := range d.refundsByOrder[orderID] {
		total = total.Add(d.Refunds[i].Amount)
	}
	return total
}

// lifetimeOrders returns the customer's lifetime order count, falling back
// to the in-snapshot order frequency when no master record exists.
func (d *Dataset) lifetimeOrders(customerID string) int64 {
	if i, ok := d.customerByID[customerID]; ok && d.Customers[i].OrdersCount > 0 {
		return d.Customers[i].OrdersCount
	}
	return d.orderCountByCustomer[customerID]
}
