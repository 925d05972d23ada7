package snapshot

import (
	"context"
	"fmt"
	"time"

	"profitscope/internal/engine"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Loader fetches one organization's read-only, time-filtered snapshot. The
// engine never queries storage itself; callers load a snapshot first and
// hand it over.
type Loader interface {
	// Load returns the snapshot for the organization and window. The result
	// is already prepared with engine.NewDataset.
	Load(ctx context.Context, organizationID string, win engine.Window) (*engine.Dataset, error)
}

type pgxLoader struct {
	pool *pgxpool.Pool
}

// NewLoader constructs a Loader backed by the given pool.
func NewLoader(pool *pgxpool.Pool) Loader {
	return &pgxLoader{pool: pool}
}

func (l *pgxLoader) Load(ctx context.Context, organizationID string, win engine.Window) (*engine.Dataset, error) {
	var ds engine.Dataset
	var err error

	if ds.Orders, err = l.loadOrders(ctx, organizationID, win); err != nil {
		return nil, err
	}
	if ds.Transactions, err = l.loadTransactions(ctx, organizationID, win); err != nil {
		return nil, err
	}
	if ds.Refunds, err = l.loadRefunds(ctx, organizationID, win); err != nil {
		return nil, err
	}
	if ds.CostRecords, err = l.loadCostRecords(ctx, organizationID); err != nil {
		return nil, err
	}
	if ds.VariantCosts, err = l.loadVariantCosts(ctx, organizationID); err != nil {
		return nil, err
	}
	if ds.ManualReturnRates, err = l.loadManualReturnRates(ctx, organizationID); err != nil {
		return nil, err
	}
	if ds.AdInsights, err = l.loadAdInsights(ctx, organizationID, win); err != nil {
		return nil, err
	}
	if ds.Customers, err = l.loadCustomers(ctx, organizationID); err != nil {
		return nil, err
	}

	return engine.NewDataset(ds), nil
}

// loadOrders reads order headers plus their line items and shipping lines.
// Money columns come back as text so the engine's safe parsing is the only
// place numbers are interpreted.
func (l *pgxLoader) loadOrders(ctx context.Context, orgID string, win engine.Window) ([]engine.RawOrder, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT id, COALESCE(order_number, ''), created_at, cancelled_at,
		       COALESCE(status, ''), COALESCE(financial_status, ''), COALESCE(fulfillment_status, ''),
		       COALESCE(platform, ''), COALESCE(source_name, ''), COALESCE(currency, ''),
		       COALESCE(total_price::text, ''), COALESCE(subtotal_price::text, ''),
		       COALESCE(total_discounts::text, ''), COALESCE(total_tax::text, ''),
		       COALESCE(total_refunded::text, ''), COALESCE(total_shipping::text, ''),
		       COALESCE(customer_id, ''), COALESCE(customer_name, ''), COALESCE(email, '')
		FROM orders
		WHERE organization_id = $1 AND created_at BETWEEN $2 AND $3
		ORDER BY created_at
	`, orgID, win.Start, win.End)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []engine.RawOrder
	index := map[string]int{}
	for rows.Next() {
		var o engine.RawOrder
		var cancelledAt *time.Time
		var customerID string
		if err := rows.Scan(
			&o.ID, &o.Number, &o.CreatedAt, &cancelledAt,
			&o.Status, &o.FinancialStatus, &o.FulfillmentStatus,
			&o.Platform, &o.SourceName, &o.Currency,
			&o.TotalPrice, &o.SubtotalPrice,
			&o.TotalDiscounts, &o.TotalTax,
			&o.TotalRefunded, &o.TotalShipping,
			&customerID, &o.CustomerName, &o.Email,
		); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		if cancelledAt != nil {
			o.CancelledAt = *cancelledAt
		}
		if customerID != "" {
			o.Customer = &engine.RawCustomer{ID: customerID}
		}
		index[o.ID] = len(orders)
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("order row iteration error: %w", err)
	}

	if err := l.attachLineItems(ctx, orgID, win, orders, index); err != nil {
		return nil, err
	}
	if err := l.attachShippingLines(ctx, orgID, win, orders, index); err != nil {
		return nil, err
	}
	return orders, nil
}

func (l *pgxLoader) attachLineItems(ctx context.Context, orgID string, win engine.Window, orders []engine.RawOrder, index map[string]int) error {
	rows, err := l.pool.Query(ctx, `
		SELECT oi.order_id, oi.id, COALESCE(oi.variant_id, ''), COALESCE(oi.alt_variant_id, ''),
		       oi.quantity, COALESCE(oi.price::text, ''),
		       COALESCE(oi.unit_cost::text, ''), COALESCE(oi.total_cost::text, ''),
		       COALESCE(oi.fulfillment_status, '')
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		WHERE o.organization_id = $1 AND o.created_at BETWEEN $2 AND $3
	`, orgID, win.Start, win.End)
	if err != nil {
		return fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var orderID string
		var li engine.RawLineItem
		if err := rows.Scan(&orderID, &li.ID, &li.VariantID, &li.AltVariantID,
			&li.Quantity, &li.Price, &li.UnitCost, &li.TotalCost, &li.FulfillmentStatus); err != nil {
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		if i, ok := index[orderID]; ok {
			orders[i].LineItems = append(orders[i].LineItems, li)
		}
	}
	return rows.Err()
}

func (l *pgxLoader) attachShippingLines(ctx context.Context, orgID string, win engine.Window, orders []engine.RawOrder, index map[string]int) error {
	rows, err := l.pool.Query(ctx, `
		SELECT sl.order_id, COALESCE(sl.title, ''), COALESCE(sl.price::text, ''),
		       COALESCE(sl.discounted_price::text, ''), COALESCE(sl.original_price::text, '')
		FROM order_shipping_lines sl
		JOIN orders o ON o.id = sl.order_id
		WHERE o.organization_id = $1 AND o.created_at BETWEEN $2 AND $3
	`, orgID, win.Start, win.End)
	if err != nil {
		return fmt.Errorf("failed to query shipping lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var orderID string
		var sl engine.RawShippingLine
		if err := rows.Scan(&orderID, &sl.Title, &sl.Price, &sl.DiscountedPrice, &sl.OriginalPrice); err != nil {
			return fmt.Errorf("failed to scan shipping line: %w", err)
		}
		if i, ok := index[orderID]; ok {
			orders[i].ShippingLines = append(orders[i].ShippingLines, sl)
		}
	}
	return rows.Err()
}

func (l *pgxLoader) loadTransactions(ctx context.Context, orgID string, win engine.Window) ([]engine.Transaction, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT t.order_id, COALESCE(t.fee, 0), COALESCE(t.gateway, '')
		FROM transactions t
		JOIN orders o ON o.id = t.order_id
		WHERE o.organization_id = $1 AND o.created_at BETWEEN $2 AND $3
	`, orgID, win.Start, win.End)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var out []engine.Transaction
	for rows.Next() {
		var t engine.Transaction
		if err := rows.Scan(&t.OrderID, &t.Fee, &t.Gateway); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (l *pgxLoader) loadRefunds(ctx context.Context, orgID string, win engine.Window) ([]engine.Refund, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT r.order_id, COALESCE(r.amount, 0), r.created_at
		FROM refunds r
		JOIN orders o ON o.id = r.order_id
		WHERE o.organization_id = $1 AND o.created_at BETWEEN $2 AND $3
	`, orgID, win.Start, win.End)
	if err != nil {
		return nil, fmt.Errorf("failed to query refunds: %w", err)
	}
	defer rows.Close()

	var out []engine.Refund
	for rows.Next() {
		var r engine.Refund
		if err := rows.Scan(&r.OrderID, &r.Amount, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan refund: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// loadCostRecords returns every cost definition for the organization; the
// engine decides per window which ones overlap.
func (l *pgxLoader) loadCostRecords(ctx context.Context, orgID string) ([]engine.CostRecord, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT id, organization_id, type, COALESCE(value, 0),
		       COALESCE(calculation, ''), COALESCE(frequency, ''),
		       effective_from, effective_to, is_active
		FROM cost_records
		WHERE organization_id = $1
		ORDER BY effective_from
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cost records: %w", err)
	}
	defer rows.Close()

	var out []engine.CostRecord
	for rows.Next() {
		var c engine.CostRecord
		var typ string
		if err := rows.Scan(&c.ID, &c.OrganizationID, &typ, &c.Value,
			&c.Calculation, &c.Frequency, &c.EffectiveFrom, &c.EffectiveTo, &c.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan cost record: %w", err)
		}
		c.Type = engine.CostType(typ)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (l *pgxLoader) loadVariantCosts(ctx context.Context, orgID string) ([]engine.VariantCostComponent, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT COALESCE(variant_id, ''), COALESCE(alt_variant_id, ''),
		       COALESCE(cogs_per_unit, 0), COALESCE(handling_per_unit, 0),
		       COALESCE(shipping_per_unit, 0), COALESCE(tax_percent, 0), updated_at
		FROM variant_cost_components
		WHERE organization_id = $1
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to query variant cost components: %w", err)
	}
	defer rows.Close()

	var out []engine.VariantCostComponent
	for rows.Next() {
		var v engine.VariantCostComponent
		if err := rows.Scan(&v.VariantID, &v.AltVariantID,
			&v.CogsPerUnit, &v.HandlingPerUnit, &v.ShippingPerUnit, &v.TaxPercent, &v.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan variant cost component: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (l *pgxLoader) loadManualReturnRates(ctx context.Context, orgID string) ([]engine.ManualReturnRateEntry, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT organization_id, COALESCE(percent, 0), effective_from, effective_to, is_active, updated_at
		FROM manual_return_rates
		WHERE organization_id = $1
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to query manual return rates: %w", err)
	}
	defer rows.Close()

	var out []engine.ManualReturnRateEntry
	for rows.Next() {
		var e engine.ManualReturnRateEntry
		if err := rows.Scan(&e.OrganizationID, &e.Percent, &e.EffectiveFrom, &e.EffectiveTo, &e.IsActive, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan manual return rate: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (l *pgxLoader) loadAdInsights(ctx context.Context, orgID string, win engine.Window) ([]engine.AdInsight, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT date, COALESCE(spend, 0), COALESCE(impressions, 0), COALESCE(clicks, 0),
		       COALESCE(conversions, 0), COALESCE(add_to_cart, 0), COALESCE(initiate_checkout, 0),
		       COALESCE(purchases, 0), COALESCE(line_item_id, '')
		FROM ad_insights
		WHERE organization_id = $1 AND date BETWEEN $2 AND $3
		ORDER BY date
	`, orgID, win.Start, win.End)
	if err != nil {
		return nil, fmt.Errorf("failed to query ad insights: %w", err)
	}
	defer rows.Close()

	var out []engine.AdInsight
	for rows.Next() {
		var a engine.AdInsight
		if err := rows.Scan(&a.Date, &a.Spend, &a.Impressions, &a.Clicks,
			&a.Conversions, &a.AddToCart, &a.InitiateCheckout, &a.Purchases, &a.LineItemID); err != nil {
			return nil, fmt.Errorf("failed to scan ad insight: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (l *pgxLoader) loadCustomers(ctx context.Context, orgID string) ([]engine.Customer, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT id, COALESCE(orders_count, 0)
		FROM customers
		WHERE organization_id = $1
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to query customers: %w", err)
	}
	defer rows.Close()

	var out []engine.Customer
	for rows.Next() {
		var c engine.Customer
		if err := rows.Scan(&c.ID, &c.OrdersCount); err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
