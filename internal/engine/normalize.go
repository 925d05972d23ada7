package engine

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// The normalizer collapses the heterogeneous raw order shapes into one
// canonical view. All duck-typed fallback reads live here; the aggregators
// never touch raw fields.

// ── Cancellation ──────────────────────────────────────────────────────────────

// isCancelled detects cancelled/voided orders by substring match across the
// free-text status fields. Cancelled orders are excluded from revenue, COGS
// and unit counts but stay in raw totals.
func isCancelled(o *RawOrder) bool {
	if !o.CancelledAt.IsZero() {
		return true
	}
	for _, s := range []string{o.Status, o.FinancialStatus, o.FulfillmentStatus, o.DisplayFulfillmentStatus} {
		ls := strings.ToLower(s)
		if strings.Contains(ls, "cancel") || strings.Contains(ls, "void") {
			return true
		}
	}
	return false
}

// ── Fulfillment status ────────────────────────────────────────────────────────

// Canonical fulfillment classifications.
const (
	FulfillmentFulfilled      = "fulfilled"
	FulfillmentCancelled      = "cancelled"
	FulfillmentPartial        = "partial"
	FulfillmentOutForDelivery = "out_for_delivery"
	FulfillmentInTransit      = "in_transit"
	FulfillmentReadyForPickup = "ready_for_pickup"
	FulfillmentLabelPrinted   = "label_printed"
	FulfillmentLabelPurchased = "label_purchased"
	FulfillmentPending        = "pending"
	FulfillmentScheduled      = "scheduled"
	FulfillmentOnHold         = "on_hold"
	FulfillmentNotDelivered   = "not_delivered"
	FulfillmentReturned       = "returned"
	FulfillmentShipped        = "shipped"
	FulfillmentDelivered      = "delivered"
	FulfillmentUnfulfilled    = "unfulfilled"
)

// Ordered substring rules, first match wins. not_delivered comes before
// delivered and unfulfilled before fulfilled so the longer token cannot be
// shadowed by its suffix.
var fulfillmentRules = []struct {
	needle string
	class  string
}{
	{"partial", FulfillmentPartial},
	{"out_for_delivery", FulfillmentOutForDelivery},
	{"out for delivery", FulfillmentOutForDelivery},
	{"in_transit", FulfillmentInTransit},
	{"in transit", FulfillmentInTransit},
	{"ready_for_pickup", FulfillmentReadyForPickup},
	{"ready for pickup", FulfillmentReadyForPickup},
	{"label_printed", FulfillmentLabelPrinted},
	{"label printed", FulfillmentLabelPrinted},
	{"label_purchased", FulfillmentLabelPurchased},
	{"label purchased", FulfillmentLabelPurchased},
	{"pending", FulfillmentPending},
	{"scheduled", FulfillmentScheduled},
	{"on_hold", FulfillmentOnHold},
	{"on hold", FulfillmentOnHold},
	{"not_delivered", FulfillmentNotDelivered},
	{"not delivered", FulfillmentNotDelivered},
	{"returned", FulfillmentReturned},
	{"shipped", FulfillmentShipped},
	{"delivered", FulfillmentDelivered},
	{"unfulfilled", FulfillmentUnfulfilled},
	{"fulfilled", FulfillmentFulfilled},
}

// fulfillmentCandidates collects status strings in priority order: direct
// fields, then fulfillment sub-records (flat and edge/node), then line-item
// statuses.
func fulfillmentCandidates(o *RawOrder) []string {
	var out []string
	push := func(s string) {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	push(o.FulfillmentStatus)
	push(o.DisplayFulfillmentStatus)
	push(o.Status)
	for i := range o.Fulfillments {
		push(o.Fulfillments[i].Status)
		push(o.Fulfillments[i].DisplayStatus)
		push(o.Fulfillments[i].ShipmentStatus)
	}
	for i := range o.FulfillmentEdges {
		push(o.FulfillmentEdges[i].Node.Status)
		push(o.FulfillmentEdges[i].Node.DisplayStatus)
		push(o.FulfillmentEdges[i].Node.ShipmentStatus)
	}
	for i := range o.LineItems {
		push(o.LineItems[i].FulfillmentStatus)
	}
	return out
}

// classifyFulfillment maps an order onto a canonical fulfillment class.
// Any-cancelled and all-fulfilled take precedence over the ordered rules;
// an order with no status signal anywhere classifies as "".
func classifyFulfillment(o *RawOrder) string {
	cands := fulfillmentCandidates(o)

	for _, c := range cands {
		if strings.Contains(c, "cancel") || strings.Contains(c, "void") {
			return FulfillmentCancelled
		}
	}
	if len(cands) > 0 {
		all := true
		for _, c := range cands {
			if !strings.Contains(c, "fulfilled") || strings.Contains(c, "unfulfilled") || strings.Contains(c, "partial") {
				all = false
				break
			}
		}
		if all {
			return FulfillmentFulfilled
		}
	}

	for _, c := range cands {
		for _, r := range fulfillmentRules {
			if strings.Contains(c, r.needle) {
				return r.class
			}
		}
	}
	return ""
}

// ── Shipping cost ─────────────────────────────────────────────────────────────

type moneyCandidate struct {
	present bool
	value   decimal.Decimal
}

func stringCandidate(s string) moneyCandidate {
	if strings.TrimSpace(s) == "" {
		return moneyCandidate{}
	}
	return moneyCandidate{present: true, value: dec(s)}
}

// shippingLineAmount resolves one shipping line through its per-line
// fallback chain: discounted price, price, original price, shop money set.
func shippingLineAmount(l *RawShippingLine) decimal.Decimal {
	for _, s := range []string{l.DiscountedPrice, l.Price, l.OriginalPrice} {
		if v := dec(s); !v.IsZero() {
			return v
		}
	}
	if l.PriceSet != nil && l.PriceSet.ShopMoney != nil {
		return dec(l.PriceSet.ShopMoney.Amount)
	}
	return decimal.Zero
}

// normalizeShippingCost resolves an order's shipping charge through the
// source-shape fallback chain: flat field, nested totals, money sets
// (shop then presentment), shipping lines, shipping adjustments. The first
// clearly non-zero candidate wins; failing that the first present candidate;
// failing that zero.
func normalizeShippingCost(o *RawOrder) decimal.Decimal {
	var cands []moneyCandidate

	cands = append(cands, stringCandidate(o.TotalShipping))
	if o.Totals != nil {
		cands = append(cands, stringCandidate(o.Totals.Shipping))
	}
	if set := o.TotalShippingPriceSet; set != nil {
		if set.ShopMoney != nil {
			cands = append(cands, stringCandidate(set.ShopMoney.Amount))
		}
		if set.PresentmentMoney != nil {
			cands = append(cands, stringCandidate(set.PresentmentMoney.Amount))
		}
	}
	if len(o.ShippingLines) > 0 {
		sum := decimal.Zero
		for i := range o.ShippingLines {
			sum = sum.Add(shippingLineAmount(&o.ShippingLines[i]))
		}
		cands = append(cands, moneyCandidate{present: true, value: sum})
	}
	if len(o.ShippingAdjustments) > 0 {
		sum := decimal.Zero
		for i := range o.ShippingAdjustments {
			sum = sum.Add(dec(o.ShippingAdjustments[i].Amount))
		}
		cands = append(cands, moneyCandidate{present: true, value: sum})
	}

	for _, c := range cands {
		if c.present && !c.value.IsZero() {
			return c.value
		}
	}
	for _, c := range cands {
		if c.present {
			return c.value
		}
	}
	return decimal.Zero
}

// ── Customer identity ─────────────────────────────────────────────────────────

const guestCheckoutName = "Guest Checkout"

func addressName(a *RawAddress) string {
	if a == nil {
		return ""
	}
	if n := strings.TrimSpace(a.Name); n != "" {
		return n
	}
	return strings.TrimSpace(strings.TrimSpace(a.FirstName) + " " + strings.TrimSpace(a.LastName))
}

// normalizeCustomer cascades through explicit name, the structured customer
// sub-object, address names, then contact fields. Defaults: name
// "Guest Checkout", email "".
func normalizeCustomer(o *RawOrder) (name, email string) {
	name = strings.TrimSpace(o.CustomerName)
	if name == "" && o.Customer != nil {
		for _, n := range []string{
			o.Customer.DisplayName,
			o.Customer.Name,
			strings.TrimSpace(strings.TrimSpace(o.Customer.FirstName) + " " + strings.TrimSpace(o.Customer.LastName)),
		} {
			if n = strings.TrimSpace(n); n != "" {
				name = n
				break
			}
		}
	}
	if name == "" {
		name = addressName(o.ShippingAddress)
	}
	if name == "" {
		name = addressName(o.BillingAddress)
	}
	if o.Customer != nil {
		email = strings.TrimSpace(o.Customer.Email)
	}
	if email == "" {
		email = strings.TrimSpace(o.Email)
	}
	if name == "" {
		name = strings.TrimSpace(email)
	}
	if name == "" {
		name = guestCheckoutName
	}
	return name, email
}

// ── Canonical order ───────────────────────────────────────────────────────────

// NormalizedOrder is the canonical per-order view every aggregator consumes.
type NormalizedOrder struct {
	ID                string
	Number            string
	CreatedAt         time.Time
	Platform          string
	SourceName        string
	Cancelled         bool
	FulfillmentClass  string
	CustomerID        string
	CustomerName      string
	CustomerEmail     string
	TotalPrice        decimal.Decimal
	SubtotalPrice     decimal.Decimal
	TotalDiscounts    decimal.Decimal
	TotalTax          decimal.Decimal
	TotalRefunded     decimal.Decimal
	ShippingCost      decimal.Decimal
	Units             int64
	LineItems         []RawLineItem
}

// normalizeOrder produces the canonical view of one raw order. GrossSales
// falls back to TotalPrice when SubtotalPrice is absent, per the overview
// contract.
func normalizeOrder(o *RawOrder) NormalizedOrder {
	name, email := normalizeCustomer(o)
	var customerID string
	if o.Customer != nil {
		customerID = o.Customer.ID
	}
	units := int64(0)
	for i := range o.LineItems {
		units += o.LineItems[i].Quantity
	}
	sub := o.SubtotalPrice
	if strings.TrimSpace(sub) == "" {
		sub = o.TotalPrice
	}
	return NormalizedOrder{
		ID:               o.ID,
		Number:           o.Number,
		CreatedAt:        o.CreatedAt.UTC(),
		Platform:         strings.TrimSpace(o.Platform),
		SourceName:       strings.TrimSpace(o.SourceName),
		Cancelled:        isCancelled(o),
		FulfillmentClass: classifyFulfillment(o),
		CustomerID:       customerID,
		CustomerName:     name,
		CustomerEmail:    email,
		TotalPrice:       dec(o.TotalPrice),
		SubtotalPrice:    dec(sub),
		TotalDiscounts:   dec(o.TotalDiscounts),
		TotalTax:         dec(o.TotalTax),
		TotalRefunded:    dec(o.TotalRefunded),
		ShippingCost:     normalizeShippingCost(o),
		Units:            units,
		LineItems:        o.LineItems,
	}
}
