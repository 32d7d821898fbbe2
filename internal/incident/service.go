package incident

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/stonybrain/cityprotect-api/internal/observability"
)

// Fetcher retrieves the raw incident batch for a time window from the portal.
type Fetcher interface {
	FetchWindow(ctx context.Context, from, to time.Time) ([]RawIncident, error)
}

// ReportCache is the contract the TTL response cache must satisfy.
type ReportCache interface {
	Get(key string) (Report, bool)
	Set(key string, payload Report)
}

// Params identify one report request. Every field participates in the cache
// key: two requests differing in any of them must never share a slot.
type Params struct {
	Hours   int
	Lite    bool
	Limit   int
	Geocode bool
}

// CacheKey composes the response-cache key from all output-affecting parameters.
func (p Params) CacheKey() string {
	return fmt.Sprintf("h=%d|lite=%t|limit=%d|geo=%t", p.Hours, p.Lite, p.Limit, p.Geocode)
}

// Service orchestrates the report pipeline: cache lookup, upstream fetch,
// normalization, aggregation, cache store.
type Service struct {
	fetcher    Fetcher
	normalizer *Normalizer
	cache      ReportCache
	metrics    *observability.Metrics
	clock      clockwork.Clock
}

// NewService creates a Service.
func NewService(fetcher Fetcher, normalizer *Normalizer, cache ReportCache, metrics *observability.Metrics, clock clockwork.Clock) *Service {
	return &Service{
		fetcher:    fetcher,
		normalizer: normalizer,
		cache:      cache,
		metrics:    metrics,
		clock:      clock,
	}
}

// Report returns the aggregate report for the requested window, serving from
// the TTL cache when possible. Upstream failures surface as errors; per-record
// normalization problems never do.
func (s *Service) Report(ctx context.Context, p Params) (Report, error) {
	key := p.CacheKey()
	if r, ok := s.cache.Get(key); ok {
		s.metrics.ResponseCache.WithLabelValues("hit").Inc()
		return r, nil
	}
	s.metrics.ResponseCache.WithLabelValues("miss").Inc()

	now := s.clock.Now().UTC()
	from := now.Add(-time.Duration(p.Hours) * time.Hour)

	raw, err := s.fetcher.FetchWindow(ctx, from, now)
	if err != nil {
		s.metrics.UpstreamRequests.WithLabelValues("error").Inc()
		return Report{}, fmt.Errorf("fetch incidents: %w", err)
	}
	s.metrics.UpstreamRequests.WithLabelValues("success").Inc()

	incidents := s.normalizer.Normalize(ctx, raw, Options{
		Lite:            p.Lite,
		Limit:           p.Limit,
		EnrichAddresses: p.Geocode,
	})
	s.metrics.IncidentsTotal.Add(float64(len(incidents)))

	report := BuildReport(incidents, p.Hours, now)
	s.cache.Set(key, report)

	log.Printf("report built: hours=%d total=%d lite=%t limit=%d geocode=%t",
		p.Hours, report.Total, p.Lite, p.Limit, p.Geocode)
	return report, nil
}
