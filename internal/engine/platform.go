package engine

import (
	"sort"

	"github.com/shopspring/decimal"
)

// ── Platform metrics ──────────────────────────────────────────────────────────

// PlatformMetric is one sales platform's rollup. Revenue, units and AOV
// count active orders only; RawOrders includes cancelled ones.
type PlatformMetric struct {
	Platform     string  `json:"platform"`
	RawOrders    int64   `json:"raw_orders"`
	ActiveOrders int64   `json:"active_orders"`
	Revenue      float64 `json:"revenue"`
	UnitsSold    int64   `json:"units_sold"`
	AOV          float64 `json:"aov"`
	RevenueShare float64 `json:"revenue_share"`
}

// PlatformMetrics is the per-platform breakdown, sorted by revenue
// descending.
type PlatformMetrics struct {
	Platforms []PlatformMetric `json:"platforms"`
}

// ComputePlatformMetrics rolls orders up by sales platform. Orders without
// a platform land under "unknown".
func ComputePlatformMetrics(ds *Dataset) *PlatformMetrics {
	d := ds.orDefault()

	type acc struct {
		raw, active, units int64
		revenue            decimal.Decimal
	}
	byPlatform := map[string]*acc{}
	totalRevenue := decimal.Zero

	for i := range d.Orders {
		o := normalizeOrder(&d.Orders[i])
		key := o.Platform
		if key == "" {
			key = "unknown"
		}
		a := byPlatform[key]
		if a == nil {
			a = &acc{revenue: decimal.Zero}
			byPlatform[key] = a
		}
		a.raw++
		if o.Cancelled {
			continue
		}
		a.active++
		a.units += o.Units
		a.revenue = a.revenue.Add(o.TotalPrice)
		totalRevenue = totalRevenue.Add(o.TotalPrice)
	}

	out := &PlatformMetrics{Platforms: make([]PlatformMetric, 0, len(byPlatform))}
	for key, a := range byPlatform {
		out.Platforms = append(out.Platforms, PlatformMetric{
			Platform:     key,
			RawOrders:    a.raw,
			ActiveOrders: a.active,
			Revenue:      money(a.revenue),
			UnitsSold:    a.units,
			AOV:          ratio2(a.revenue, decimal.NewFromInt(a.active)),
			RevenueShare: pct(a.revenue, totalRevenue),
		})
	}
	sort.Slice(out.Platforms, func(i, j int) bool {
		if out.Platforms[i].Revenue != out.Platforms[j].Revenue {
			return out.Platforms[i].Revenue > out.Platforms[j].Revenue
		}
		return out.Platforms[i].Platform < out.Platforms[j].Platform
	})
	return out
}

// ── Channel revenue ───────────────────────────────────────────────────────────

// ChannelRevenue is one sales channel's share of active-order revenue.
type ChannelRevenue struct {
	Channel      string  `json:"channel"`
	Orders       int64   `json:"orders"`
	Revenue      float64 `json:"revenue"`
	RevenueShare float64 `json:"revenue_share"`
	AOV          float64 `json:"aov"`
}

// ChannelBreakdown is revenue by sales channel, sorted by revenue
// descending. Cancelled orders are excluded throughout.
type ChannelBreakdown struct {
	Channels []ChannelRevenue `json:"channels"`
}

// ComputeChannelRevenue rolls active-order revenue up by the order's source
// channel. Orders without a source land under "unknown".
func ComputeChannelRevenue(ds *Dataset) *ChannelBreakdown {
	d := ds.orDefault()

	type acc struct {
		orders  int64
		revenue decimal.Decimal
	}
	byChannel := map[string]*acc{}
	totalRevenue := decimal.Zero

	for i := range d.Orders {
		o := normalizeOrder(&d.Orders[i])
		if o.Cancelled {
			continue
		}
		key := o.SourceName
		if key == "" {
			key = "unknown"
		}
		a := byChannel[key]
		if a == nil {
			a = &acc{revenue: decimal.Zero}
			byChannel[key] = a
		}
		a.orders++
		a.revenue = a.revenue.Add(o.TotalPrice)
		totalRevenue = totalRevenue.Add(o.TotalPrice)
	}

	out := &ChannelBreakdown{Channels: make([]ChannelRevenue, 0, len(byChannel))}
	for key, a := range byChannel {
		out.Channels = append(out.Channels, ChannelRevenue{
			Channel:      key,
			Orders:       a.orders,
			Revenue:      money(a.revenue),
			RevenueShare: pct(a.revenue, totalRevenue),
			AOV:          ratio2(a.revenue, decimal.NewFromInt(a.orders)),
		})
	}
	sort.Slice(out.Channels, func(i, j int) bool {
		if out.Channels[i].Revenue != out.Channels[j].Revenue {
			return out.Channels[i].Revenue > out.Channels[j].Revenue
		}
		return out.Channels[i].Channel < out.Channels[j].Channel
	})
	return out
}
