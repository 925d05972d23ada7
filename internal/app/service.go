package app

import "context"

// ReportService is the single interface all adapters (Web, CLI) call.
// It decouples presentation from the reporting engine. Implementations must
// contain no fmt.Println, no ANSI codes, and no display logic of any kind.
type ReportService interface {
	// GetOverview returns the profitability overview for the request window,
	// with previous-window deltas when Compare is set.
	GetOverview(ctx context.Context, req OverviewRequest) (*OverviewResult, error)

	// GetOrdersAnalytics returns per-order economics with filtering, search,
	// sorting and pagination, plus an unpaginated export view.
	GetOrdersAnalytics(ctx context.Context, req OrdersRequest) (*OrdersResult, error)

	// GetPnL returns the profit and loss breakdown bucketed by the requested
	// granularity, with an independently computed total row and KPI overlay.
	GetPnL(ctx context.Context, req PnLRequest) (*PnLResult, error)

	// GetPlatformMetrics returns per-platform order and revenue metrics.
	GetPlatformMetrics(ctx context.Context, req ReportRequest) (*PlatformResult, error)

	// GetChannelRevenue returns the revenue breakdown by sales channel.
	GetChannelRevenue(ctx context.Context, req ReportRequest) (*ChannelResult, error)
}
