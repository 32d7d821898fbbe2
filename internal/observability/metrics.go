package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus instruments for the incident pipeline.
type Metrics struct {
	UpstreamRequests *prometheus.CounterVec // labels: outcome={success,error}
	ResponseCache    *prometheus.CounterVec // labels: result={hit,miss}
	GeocodeLookups   *prometheus.CounterVec // labels: outcome={success,error}
	GeocodeCacheHits prometheus.Counter
	IncidentsTotal   prometheus.Counter
	Notifications    *prometheus.CounterVec // labels: outcome={sent,error,empty}
}

// NewMetrics creates and registers all metrics with the default registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.UpstreamRequests,
		m.ResponseCache,
		m.GeocodeLookups,
		m.GeocodeCacheHits,
		m.IncidentsTotal,
		m.Notifications,
	)
	return m
}

// NewMetricsForTesting creates unregistered metrics so parallel tests don't
// trip duplicate-registration panics.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cityprotect_api",
			Name:      "upstream_requests_total",
			Help:      "Incident portal fetches by outcome.",
		}, []string{"outcome"}),
		ResponseCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cityprotect_api",
			Name:      "response_cache_total",
			Help:      "Response cache lookups by result.",
		}, []string{"result"}),
		GeocodeLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cityprotect_api",
			Name:      "geocode_lookups_total",
			Help:      "External reverse-geocode lookups by outcome.",
		}, []string{"outcome"}),
		GeocodeCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cityprotect_api",
			Name:      "geocode_cache_hits_total",
			Help:      "Reverse-geocode lookups served from the local cache.",
		}),
		IncidentsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cityprotect_api",
			Name:      "incidents_normalized_total",
			Help:      "Raw records run through the normalizer.",
		}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cityprotect_api",
			Name:      "notifications_total",
			Help:      "Webhook notification runs by outcome.",
		}, []string{"outcome"}),
	}
}
