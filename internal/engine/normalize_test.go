package engine

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func date2(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("parse %s: %v", s, err)
	}
	return d
}

func TestClassifyFulfillment(t *testing.T) {
	tests := []struct {
		name  string
		order RawOrder
		want  string
	}{
		{"direct fulfilled", RawOrder{FulfillmentStatus: "FULFILLED"}, FulfillmentFulfilled},
		{"direct unfulfilled", RawOrder{FulfillmentStatus: "unfulfilled"}, FulfillmentUnfulfilled},
		{"any cancelled wins", RawOrder{FulfillmentStatus: "fulfilled", Status: "cancelled"}, FulfillmentCancelled},
		{"voided counts as cancelled", RawOrder{FinancialStatus: "", Status: "voided"}, FulfillmentCancelled},
		{"partial beats shipped", RawOrder{FulfillmentStatus: "partially_fulfilled"}, FulfillmentPartial},
		{
			"nested edge node",
			RawOrder{FulfillmentEdges: []RawFulfillmentEdge{{Node: RawFulfillment{DisplayStatus: "IN_TRANSIT"}}}},
			FulfillmentInTransit,
		},
		{
			"flat fulfillment record",
			RawOrder{Fulfillments: []RawFulfillment{{ShipmentStatus: "out_for_delivery"}}},
			FulfillmentOutForDelivery,
		},
		{
			"line item status fallback",
			RawOrder{LineItems: []RawLineItem{{FulfillmentStatus: "on_hold"}}},
			FulfillmentOnHold,
		},
		{
			"not_delivered not shadowed by delivered",
			RawOrder{Fulfillments: []RawFulfillment{{ShipmentStatus: "not_delivered"}}},
			FulfillmentNotDelivered,
		},
		{"no signal anywhere", RawOrder{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyFulfillment(&tt.order); got != tt.want {
				t.Errorf("classifyFulfillment() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalizeShippingCost(t *testing.T) {
	tests := []struct {
		name  string
		order RawOrder
		want  string
	}{
		{"flat field", RawOrder{TotalShipping: "10.00"}, "10"},
		{"nested totals", RawOrder{Totals: &RawTotals{Shipping: "5.50"}}, "5.5"},
		{
			"shop money set",
			RawOrder{TotalShippingPriceSet: &MoneySet{ShopMoney: &RawMoney{Amount: "7.00"}}},
			"7",
		},
		{
			"presentment when shop missing",
			RawOrder{TotalShippingPriceSet: &MoneySet{PresentmentMoney: &RawMoney{Amount: "8.25"}}},
			"8.25",
		},
		{
			"shipping lines with per-line fallback",
			RawOrder{ShippingLines: []RawShippingLine{
				{Price: "4.00"},
				{Price: "0", OriginalPrice: "2.00"},
			}},
			"6",
		},
		{
			"zero flat field skipped for non-zero lines",
			RawOrder{
				TotalShipping: "0.00",
				ShippingLines: []RawShippingLine{{DiscountedPrice: "4.00"}},
			},
			"4",
		},
		{
			"all candidates zero falls back to first present",
			RawOrder{TotalShipping: "0.00", ShippingLines: []RawShippingLine{{Price: "0"}}},
			"0",
		},
		{
			"adjustments as last resort",
			RawOrder{ShippingAdjustments: []RawAdjustment{{Amount: "1.50"}, {Amount: "2.00"}}},
			"3.5",
		},
		{"nothing present", RawOrder{}, "0"},
		{"garbage parses to zero", RawOrder{TotalShipping: "n/a"}, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want, _ := decimal.NewFromString(tt.want)
			if got := normalizeShippingCost(&tt.order); !got.Equal(want) {
				t.Errorf("normalizeShippingCost() = %s, want %s", got, want)
			}
		})
	}
}

func TestNormalizeCustomer(t *testing.T) {
	tests := []struct {
		name      string
		order     RawOrder
		wantName  string
		wantEmail string
	}{
		{"explicit name", RawOrder{CustomerName: "Ada Lovelace"}, "Ada Lovelace", ""},
		{
			"display name from sub-object",
			RawOrder{Customer: &RawCustomer{DisplayName: "Grace H", Email: "g@example.com"}},
			"Grace H", "g@example.com",
		},
		{
			"first plus last",
			RawOrder{Customer: &RawCustomer{FirstName: "Alan", LastName: "Turing"}},
			"Alan Turing", "",
		},
		{
			"shipping address name",
			RawOrder{ShippingAddress: &RawAddress{FirstName: "Edsger", LastName: "Dijkstra"}},
			"Edsger Dijkstra", "",
		},
		{
			"billing address after shipping",
			RawOrder{BillingAddress: &RawAddress{Name: "Barbara Liskov"}},
			"Barbara Liskov", "",
		},
		{
			"contact email as identity",
			RawOrder{Email: "shopper@example.com"},
			"shopper@example.com", "shopper@example.com",
		},
		{"guest default", RawOrder{}, "Guest Checkout", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, email := normalizeCustomer(&tt.order)
			if name != tt.wantName || email != tt.wantEmail {
				t.Errorf("normalizeCustomer() = (%q, %q), want (%q, %q)", name, email, tt.wantName, tt.wantEmail)
			}
		})
	}
}

func TestVariantComponentResolution(t *testing.T) {
	earlier := date2(t, "2024-01-01")
	later := date2(t, "2024-06-01")

	d := NewDataset(Dataset{
		VariantCosts: []VariantCostComponent{
			{VariantID: "v1", CogsPerUnit: decimal.NewFromInt(3), UpdatedAt: earlier},
			{VariantID: "v1", CogsPerUnit: decimal.NewFromInt(5), UpdatedAt: later},
			{VariantID: "v2", AltVariantID: "ext-9", CogsPerUnit: decimal.NewFromInt(7), UpdatedAt: earlier},
		},
	})

	// Duplicate variant ids: the most recently updated component wins.
	comp, ok := d.variantComponent(&RawLineItem{VariantID: "v1"})
	if !ok || !comp.CogsPerUnit.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("latest component should win, got %+v ok=%v", comp, ok)
	}

	// Unknown direct id resolves through the platform alt id.
	comp, ok = d.variantComponent(&RawLineItem{VariantID: "missing", AltVariantID: "ext-9"})
	if !ok || !comp.CogsPerUnit.Equal(decimal.NewFromInt(7)) {
		t.Fatalf("alt-id resolution failed, got %+v ok=%v", comp, ok)
	}

	// Nothing matches: unresolved.
	if _, ok := d.variantComponent(&RawLineItem{VariantID: "missing"}); ok {
		t.Fatal("expected unresolved variant")
	}
}

func TestIsCancelled(t *testing.T) {
	if !isCancelled(&RawOrder{FinancialStatus: "partially_refunded, voided"}) {
		t.Error("voided financial status should cancel")
	}
	if isCancelled(&RawOrder{Status: "open", FulfillmentStatus: "fulfilled"}) {
		t.Error("open order wrongly cancelled")
	}
	if !isCancelled(&RawOrder{CancelledAt: date2(t, "2024-01-01")}) {
		t.Error("cancelled_at timestamp should cancel")
	}
}
