package cache

import (
	"context"
	"time"
)

// ReportCache stores rendered report payloads keyed by organization, report
// kind and parameters. Values are opaque JSON bytes; a miss is (nil, false,
// nil) so callers fall through to recomputation without error handling noise.
type ReportCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error
	Ping(ctx context.Context) error
	Close() error
}

// NoopReportCache satisfies ReportCache without storing anything. Used when
// no Redis address is configured.
type NoopReportCache struct{}

func (NoopReportCache) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (NoopReportCache) Set(context.Context, string, []byte, time.Duration) error {
	return nil
}
func (NoopReportCache) Ping(context.Context) error { return nil }
func (NoopReportCache) Close() error               { return nil }
