package app

import "profitscope/internal/engine"

// OverviewResult is returned by GetOverview.
type OverviewResult struct {
	Window  engine.Window           `json:"window"`
	Summary *engine.OverviewSummary `json:"summary"`
	Cached  bool                    `json:"-"`
}

// OrdersResult is returned by GetOrdersAnalytics.
type OrdersResult struct {
	Window engine.Window        `json:"window"`
	Report *engine.OrdersResult `json:"report"`
	Cached bool                 `json:"-"`
}

// PnLResult is returned by GetPnL.
type PnLResult struct {
	Window engine.Window     `json:"window"`
	Report *engine.PnLResult `json:"report"`
	Cached bool              `json:"-"`
}

// PlatformResult is returned by GetPlatformMetrics.
type PlatformResult struct {
	Window engine.Window           `json:"window"`
	Report *engine.PlatformMetrics `json:"report"`
	Cached bool                    `json:"-"`
}

// ChannelResult is returned by GetChannelRevenue.
type ChannelResult struct {
	Window engine.Window            `json:"window"`
	Report *engine.ChannelBreakdown `json:"report"`
	Cached bool                     `json:"-"`
}
