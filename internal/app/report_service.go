package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"profitscope/internal/cache"
	"profitscope/internal/engine"
	"profitscope/internal/snapshot"
)

type reportService struct {
	loader snapshot.Loader
	cache  cache.ReportCache
	ttl    time.Duration
}

// NewReportService constructs a reportService that satisfies ReportService.
// Cached payloads live for ttl; pass cache.NoopReportCache to disable caching.
func NewReportService(loader snapshot.Loader, reportCache cache.ReportCache, ttl time.Duration) ReportService {
	return &reportService{
		loader: loader,
		cache:  reportCache,
		ttl:    ttl,
	}
}

func (s *reportService) GetOverview(ctx context.Context, req OverviewRequest) (*OverviewResult, error) {
	win, err := engine.NewWindow(req.From, req.To)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("reports:%s:overview:%d:%d:%t",
		req.OrganizationID, win.Start.UnixMilli(), win.End.UnixMilli(), req.Compare)
	var out OverviewResult
	if s.fromCache(ctx, key, &out) {
		return &out, nil
	}

	ds, prev, err := s.load(ctx, req.OrganizationID, win, req.Compare)
	if err != nil {
		return nil, err
	}
	summary, err := engine.ComputeOverview(ds, win, prev)
	if err != nil {
		return nil, err
	}

	out = OverviewResult{Window: win, Summary: summary}
	s.toCache(ctx, key, &out)
	return &out, nil
}

func (s *reportService) GetOrdersAnalytics(ctx context.Context, req OrdersRequest) (*OrdersResult, error) {
	win, err := engine.NewWindow(req.From, req.To)
	if err != nil {
		return nil, err
	}

	o := req.Options
	key := fmt.Sprintf("reports:%s:orders:%d:%d:%t:%s:%s:%s:%t:%d:%d",
		req.OrganizationID, win.Start.UnixMilli(), win.End.UnixMilli(), req.Compare,
		o.Status, o.SortBy, o.Search, o.SortAsc, o.Page, o.PageSize)
	var out OrdersResult
	if s.fromCache(ctx, key, &out) {
		return &out, nil
	}

	ds, prev, err := s.load(ctx, req.OrganizationID, win, req.Compare)
	if err != nil {
		return nil, err
	}
	report, err := engine.ComputeOrdersAnalytics(ds, req.Options, prev)
	if err != nil {
		return nil, err
	}

	out = OrdersResult{Window: win, Report: report}
	s.toCache(ctx, key, &out)
	return &out, nil
}

func (s *reportService) GetPnL(ctx context.Context, req PnLRequest) (*PnLResult, error) {
	win, err := engine.NewWindow(req.From, req.To)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("reports:%s:pnl:%d:%d:%s",
		req.OrganizationID, win.Start.UnixMilli(), win.End.UnixMilli(), req.Granularity)
	var out PnLResult
	if s.fromCache(ctx, key, &out) {
		return &out, nil
	}

	ds, err := s.loader.Load(ctx, req.OrganizationID, win)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	report, err := engine.ComputePnL(ds, req.Granularity)
	if err != nil {
		return nil, err
	}

	out = PnLResult{Window: win, Report: report}
	s.toCache(ctx, key, &out)
	return &out, nil
}

func (s *reportService) GetPlatformMetrics(ctx context.Context, req ReportRequest) (*PlatformResult, error) {
	win, err := engine.NewWindow(req.From, req.To)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("reports:%s:platforms:%d:%d",
		req.OrganizationID, win.Start.UnixMilli(), win.End.UnixMilli())
	var out PlatformResult
	if s.fromCache(ctx, key, &out) {
		return &out, nil
	}

	ds, err := s.loader.Load(ctx, req.OrganizationID, win)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	out = PlatformResult{Window: win, Report: engine.ComputePlatformMetrics(ds)}
	s.toCache(ctx, key, &out)
	return &out, nil
}

func (s *reportService) GetChannelRevenue(ctx context.Context, req ReportRequest) (*ChannelResult, error) {
	win, err := engine.NewWindow(req.From, req.To)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("reports:%s:channels:%d:%d",
		req.OrganizationID, win.Start.UnixMilli(), win.End.UnixMilli())
	var out ChannelResult
	if s.fromCache(ctx, key, &out) {
		return &out, nil
	}

	ds, err := s.loader.Load(ctx, req.OrganizationID, win)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	out = ChannelResult{Window: win, Report: engine.ComputeChannelRevenue(ds)}
	s.toCache(ctx, key, &out)
	return &out, nil
}

// load fetches the window snapshot, plus the preceding window's snapshot when
// compare is set.
func (s *reportService) load(ctx context.Context, orgID string, win engine.Window, compare bool) (*engine.Dataset, *engine.Dataset, error) {
	ds, err := s.loader.Load(ctx, orgID, win)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	if !compare {
		return ds, nil, nil
	}
	prev, err := s.loader.Load(ctx, orgID, win.Previous())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load comparison snapshot: %w", err)
	}
	return ds, prev, nil
}

// fromCache fills out from a cached payload when present. Cache failures are
// logged and treated as misses so reports stay available without Redis.
func (s *reportService) fromCache(ctx context.Context, key string, out any) bool {
	payload, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		log.Printf("report cache get %s: %v", key, err)
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(payload, out); err != nil {
		log.Printf("report cache decode %s: %v", key, err)
		return false
	}
	switch v := out.(type) {
	case *OverviewResult:
		v.Cached = true
	case *OrdersResult:
		v.Cached = true
	case *PnLResult:
		v.Cached = true
	case *PlatformResult:
		v.Cached = true
	case *ChannelResult:
		v.Cached = true
	}
	return true
}

func (s *reportService) toCache(ctx context.Context, key string, result any) {
	payload, err := json.Marshal(result)
	if err != nil {
		log.Printf("report cache encode %s: %v", key, err)
		return
	}
	if err := s.cache.Set(ctx, key, payload, s.ttl); err != nil {
		log.Printf("report cache set %s: %v", key, err)
	}
}
