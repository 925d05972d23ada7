package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"profitscope/internal/engine"
)

type fakeLoader struct {
	ds    *engine.Dataset
	loads int
}

func (f *fakeLoader) Load(ctx context.Context, orgID string, win engine.Window) (*engine.Dataset, error) {
	f.loads++
	return f.ds, nil
}

type memoryCache struct {
	entries map[string][]byte
}

func newMemoryCache() *memoryCache { return &memoryCache{entries: map[string][]byte{}} }

func (m *memoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	payload, ok := m.entries[key]
	return payload, ok, nil
}
func (m *memoryCache) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	m.entries[key] = payload
	return nil
}
func (m *memoryCache) Ping(context.Context) error { return nil }
func (m *memoryCache) Close() error               { return nil }

type brokenCache struct{}

func (brokenCache) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("redis down")
}
func (brokenCache) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("redis down")
}
func (brokenCache) Ping(context.Context) error { return nil }
func (brokenCache) Close() error               { return nil }

func testDataset(t *testing.T) *engine.Dataset {
	t.Helper()
	return engine.NewDataset(engine.Dataset{
		Orders: []engine.RawOrder{
			{ID: "1", CreatedAt: time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC), TotalPrice: "100.00", Status: "open"},
		},
	})
}

func testRequest() ReportRequest {
	return ReportRequest{
		OrganizationID: "org-1",
		From:           time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		To:             time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
	}
}

func TestGetOverview_CachesResult(t *testing.T) {
	loader := &fakeLoader{ds: testDataset(t)}
	svc := NewReportService(loader, newMemoryCache(), time.Minute)
	ctx := context.Background()

	first, err := svc.GetOverview(ctx, OverviewRequest{ReportRequest: testRequest()})
	if err != nil {
		t.Fatal(err)
	}
	if first.Cached {
		t.Error("first call must be computed, not cached")
	}
	if first.Summary.Revenue != 100 {
		t.Errorf("revenue = %v, want 100", first.Summary.Revenue)
	}

	second, err := svc.GetOverview(ctx, OverviewRequest{ReportRequest: testRequest()})
	if err != nil {
		t.Fatal(err)
	}
	if !second.Cached {
		t.Error("second call should come from cache")
	}
	if loader.loads != 1 {
		t.Errorf("loader called %d times, want 1", loader.loads)
	}
	if second.Summary.Revenue != first.Summary.Revenue {
		t.Errorf("cached summary diverged: %v vs %v", second.Summary.Revenue, first.Summary.Revenue)
	}
}

func TestGetOverview_CompareLoadsPreviousWindow(t *testing.T) {
	loader := &fakeLoader{ds: testDataset(t)}
	svc := NewReportService(loader, newMemoryCache(), time.Minute)

	res, err := svc.GetOverview(context.Background(), OverviewRequest{ReportRequest: testRequest(), Compare: true})
	if err != nil {
		t.Fatal(err)
	}
	if loader.loads != 2 {
		t.Errorf("loader called %d times, want 2 (current + previous)", loader.loads)
	}
	if res.Summary == nil {
		t.Fatal("summary missing")
	}
}

func TestGetOverview_InvalidWindow(t *testing.T) {
	svc := NewReportService(&fakeLoader{ds: testDataset(t)}, newMemoryCache(), time.Minute)

	req := OverviewRequest{ReportRequest: ReportRequest{
		OrganizationID: "org-1",
		From:           time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
		To:             time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}}
	_, err := svc.GetOverview(context.Background(), req)
	if !errors.Is(err, engine.ErrInvalidWindow) {
		t.Fatalf("got %v, want ErrInvalidWindow", err)
	}
	if !engine.IsBadInput(err) {
		t.Error("window error must classify as bad input")
	}
}

func TestGetPnL_InvalidGranularityNotCached(t *testing.T) {
	mem := newMemoryCache()
	svc := NewReportService(&fakeLoader{ds: testDataset(t)}, mem, time.Minute)

	req := PnLRequest{ReportRequest: testRequest(), Granularity: engine.Granularity("hourly")}
	if _, err := svc.GetPnL(context.Background(), req); !errors.Is(err, engine.ErrInvalidGranularity) {
		t.Fatalf("got %v, want ErrInvalidGranularity", err)
	}
	if len(mem.entries) != 0 {
		t.Errorf("error responses must not be cached, found %d entries", len(mem.entries))
	}
}

func TestGetPnL_GranularityKeyedSeparately(t *testing.T) {
	loader := &fakeLoader{ds: testDataset(t)}
	svc := NewReportService(loader, newMemoryCache(), time.Minute)
	ctx := context.Background()

	if _, err := svc.GetPnL(ctx, PnLRequest{ReportRequest: testRequest(), Granularity: engine.GranularityDaily}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.GetPnL(ctx, PnLRequest{ReportRequest: testRequest(), Granularity: engine.GranularityMonthly}); err != nil {
		t.Fatal(err)
	}
	if loader.loads != 2 {
		t.Errorf("loader called %d times, want 2 (distinct cache keys)", loader.loads)
	}
}

func TestReports_SurviveBrokenCache(t *testing.T) {
	loader := &fakeLoader{ds: testDataset(t)}
	svc := NewReportService(loader, brokenCache{}, time.Minute)
	ctx := context.Background()

	if _, err := svc.GetOrdersAnalytics(ctx, OrdersRequest{ReportRequest: testRequest()}); err != nil {
		t.Fatalf("orders with broken cache: %v", err)
	}
	if _, err := svc.GetPlatformMetrics(ctx, testRequest()); err != nil {
		t.Fatalf("platforms with broken cache: %v", err)
	}
	if _, err := svc.GetChannelRevenue(ctx, testRequest()); err != nil {
		t.Fatalf("channels with broken cache: %v", err)
	}
}
