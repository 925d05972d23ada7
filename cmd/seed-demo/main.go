// seed-demo is a one-shot tool that loads a small demo dataset so the report
// endpoints return something meaningful on a fresh database.
//
// Usage: go run ./cmd/seed-demo
package main

import (
	"context"
	"log"

	"profitscope/internal/config"
	"profitscope/internal/db"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer pool.Close()

	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatalf("Failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	org := cfg.DefaultOrganization

	log.Println("Clearing previous demo data...")
	_, err = tx.Exec(ctx, `
		DELETE FROM orders WHERE organization_id = $1;
		DELETE FROM cost_records WHERE organization_id = $1;
		DELETE FROM variant_cost_components WHERE organization_id = $1;
		DELETE FROM manual_return_rates WHERE organization_id = $1;
		DELETE FROM ad_insights WHERE organization_id = $1;
		DELETE FROM customers WHERE organization_id = $1;
	`, org)
	if err != nil {
		log.Fatalf("Failed to clear demo data: %v", err)
	}

	log.Println("Seeding orders...")
	_, err = tx.Exec(ctx, `
		INSERT INTO orders (id, organization_id, order_number, created_at, status, fulfillment_status,
			platform, source_name, currency, total_price, subtotal_price, total_tax, total_shipping,
			customer_id, customer_name, email)
		VALUES
			('demo-o1', $1, '#1001', NOW() - INTERVAL '20 days', 'open', 'fulfilled',
				'shopify', 'web', 'USD', 120.00, 100.00, 10.00, 10.00, 'demo-c1', 'Demo Customer', 'demo@example.com'),
			('demo-o2', $1, '#1002', NOW() - INTERVAL '12 days', 'open', 'partial',
				'shopify', 'pos', 'USD', 250.00, 250.00, 0, 0, 'demo-c1', 'Demo Customer', 'demo@example.com'),
			('demo-o3', $1, '#1003', NOW() - INTERVAL '5 days', 'cancelled', '',
				'woocommerce', 'web', 'USD', 75.00, 75.00, 0, 0, NULL, 'Guest Checkout', '');

		INSERT INTO order_items (id, order_id, variant_id, quantity, price)
		VALUES
			('demo-i1', 'demo-o1', 'demo-v1', 2, 50.00),
			('demo-i2', 'demo-o2', 'demo-v1', 5, 50.00);

		INSERT INTO transactions (id, order_id, fee, gateway)
		VALUES ('demo-t1', 'demo-o1', 3.60, 'card');

		INSERT INTO refunds (id, order_id, amount, created_at)
		VALUES ('demo-r1', 'demo-o2', 50.00, NOW() - INTERVAL '10 days');
	`, org)
	if err != nil {
		log.Fatalf("Failed to seed orders: %v", err)
	}

	log.Println("Seeding costs, ads and customers...")
	_, err = tx.Exec(ctx, `
		INSERT INTO cost_records (id, organization_id, type, value, frequency, effective_from, is_active)
		VALUES
			('demo-cr1', $1, 'operational', 900.00, 'month', NOW() - INTERVAL '60 days', TRUE),
			('demo-cr2', $1, 'shipping', 2.50, 'per_order', NOW() - INTERVAL '60 days', TRUE);

		INSERT INTO variant_cost_components (id, organization_id, variant_id, cogs_per_unit, handling_per_unit, updated_at)
		VALUES ('demo-vc1', $1, 'demo-v1', 18.00, 1.50, NOW() - INTERVAL '60 days');

		INSERT INTO ad_insights (id, organization_id, date, spend, impressions, clicks, purchases)
		VALUES
			('demo-ad1', $1, NOW() - INTERVAL '20 days', 45.00, 12000, 340, 2),
			('demo-ad2', $1, NOW() - INTERVAL '12 days', 38.00, 9000, 260, 1);

		INSERT INTO customers (id, organization_id, orders_count)
		VALUES ('demo-c1', $1, 2);
	`, org)
	if err != nil {
		log.Fatalf("Failed to seed costs: %v", err)
	}

	if err := tx.Commit(ctx); err != nil {
		log.Fatalf("Failed to commit: %v", err)
	}
	log.Println("Demo data ready.")
}
