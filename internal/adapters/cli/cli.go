package cli

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"time"

	"profitscope/internal/app"
	"profitscope/internal/engine"
)

// Run executes a one-shot CLI command and exits.
// args is os.Args[1:] — the first element is the subcommand name, followed by
// <org> <from> <to> and optional subcommand extras. Dates are YYYY-MM-DD.
func Run(ctx context.Context, svc app.ReportService, args []string) {
	if len(args) < 4 {
		log.Fatal("Usage: server report <command> <org> <from> <to> [extra]\nAvailable: overview, orders, pnl, platforms, channels")
	}

	base := app.ReportRequest{
		OrganizationID: args[1],
		From:           mustDate(args[2]),
		To:             mustDate(args[3]),
	}
	extra := ""
	if len(args) > 4 {
		extra = args[4]
	}

	var result any
	var err error
	switch args[0] {
	case "overview", "ov":
		result, err = svc.GetOverview(ctx, app.OverviewRequest{ReportRequest: base, Compare: extra == "compare"})

	case "orders", "ord":
		result, err = svc.GetOrdersAnalytics(ctx, app.OrdersRequest{ReportRequest: base,
			Options: engine.OrdersOptions{Status: extra}})

	case "pnl":
		g := engine.GranularityMonthly
		if extra != "" {
			g = engine.Granularity(extra)
		}
		result, err = svc.GetPnL(ctx, app.PnLRequest{ReportRequest: base, Granularity: g})

	case "platforms", "plat":
		result, err = svc.GetPlatformMetrics(ctx, base)

	case "channels", "chan":
		result, err = svc.GetChannelRevenue(ctx, base)

	default:
		log.Fatalf("Unknown command: %s\nAvailable: overview, orders, pnl, platforms, channels", args[0])
	}
	if err != nil {
		log.Fatalf("Report failed: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		log.Fatalf("Failed to encode report: %v", err)
	}
}

func mustDate(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		log.Fatalf("Invalid date %q, want YYYY-MM-DD", s)
	}
	return t
}
