package geocode

import (
	"context"
	"log"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/stonybrain/cityprotect-api/internal/observability"
)

// ReverseGeocoder is the outbound lookup the resolver throttles and caches.
type ReverseGeocoder interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) (*string, error)
}

// ResolverConfig tunes the resolver's cache and throttle.
type ResolverConfig struct {
	// Precision is the number of coordinate decimals used for cache keys, so
	// nearby points collapse to one lookup.
	Precision int
	// MaxEntries bounds the cache; roughly the oldest 10% are evicted on
	// overflow.
	MaxEntries int
	// MinInterval is the minimum spacing between external calls, imposed by
	// the provider's usage policy rather than by performance concerns.
	MinInterval time.Duration
}

// Resolver resolves coordinates to addresses through a bounded local cache
// and a fixed-interval rate limit. Failed lookups are cached as nil so the
// same failing coordinate is not retried.
type Resolver struct {
	client  ReverseGeocoder
	limiter *rate.Limiter
	cfg     ResolverConfig
	metrics *observability.Metrics

	mu     sync.Mutex
	values map[string]*string
	order  []string // insertion order, oldest first
}

// NewResolver creates a Resolver around client.
func NewResolver(client ReverseGeocoder, cfg ResolverConfig, metrics *observability.Metrics) *Resolver {
	if cfg.Precision <= 0 {
		cfg.Precision = 5
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 500
	}
	return &Resolver{
		client:  client,
		limiter: rate.NewLimiter(rate.Every(cfg.MinInterval), 1),
		cfg:     cfg,
		metrics: metrics,
		values:  make(map[string]*string),
	}
}

// Resolve returns the address for a coordinate bucket. The bool reports
// whether an external call was made, letting callers enforce a per-batch
// lookup ceiling. Cached values, including cached nils, never cost a call.
func (r *Resolver) Resolve(ctx context.Context, lat, lon float64) (*string, bool) {
	key := r.cacheKey(lat, lon)

	r.mu.Lock()
	if addr, ok := r.values[key]; ok {
		r.mu.Unlock()
		r.metrics.GeocodeCacheHits.Inc()
		return addr, false
	}
	r.mu.Unlock()

	if err := r.limiter.Wait(ctx); err != nil {
		// Context cancelled while throttled; nothing to cache.
		return nil, false
	}

	addr, err := r.client.ReverseGeocode(ctx, lat, lon)
	if err != nil {
		// Degrade to nil and remember it; a coordinate that fails once will
		// keep failing for the duration of this process.
		log.Printf("reverse geocode failed for %s: %v", key, err)
		r.metrics.GeocodeLookups.WithLabelValues("error").Inc()
		addr = nil
	} else {
		r.metrics.GeocodeLookups.WithLabelValues("success").Inc()
	}

	r.store(key, addr)
	return addr, true
}

func (r *Resolver) cacheKey(lat, lon float64) string {
	p := r.cfg.Precision
	return strconv.FormatFloat(lat, 'f', p, 64) + "," + strconv.FormatFloat(lon, 'f', p, 64)
}

func (r *Resolver) store(key string, addr *string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.values[key]; !exists {
		if len(r.values) >= r.cfg.MaxEntries {
			r.evictOldest()
		}
		r.order = append(r.order, key)
	}
	r.values[key] = addr
}

// evictOldest drops roughly the oldest 10% of entries, at least one.
func (r *Resolver) evictOldest() {
	n := r.cfg.MaxEntries / 10
	if n < 1 {
		n = 1
	}
	if n > len(r.order) {
		n = len(r.order)
	}
	for _, k := range r.order[:n] {
		delete(r.values, k)
	}
	r.order = r.order[n:]
}
