package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the core service.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	httpRequests    *prometheus.CounterVec
	authOutcomes    *prometheus.CounterVec
	sessionEvents   *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	storeErrors     *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "crm_operation_duration_seconds",
				Help:    "Duration of service operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crm_http_requests_total",
				Help: "HTTP requests by route pattern and status.",
			},
			[]string{"method", "route", "status"},
		),
		authOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crm_auth_outcomes_total",
				Help: "Authentication decisions by outcome.",
			},
			[]string{"outcome"},
		),
		sessionEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crm_sessions_total",
				Help: "Session lifecycle events.",
			},
			[]string{"event"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crm_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crm_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		storeErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crm_store_unavailable_total",
				Help: "Store calls that failed for connectivity reasons.",
			},
			[]string{"store"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrAuthOutcome counts an authentication decision (e.g. "ok", "TOKEN_EXPIRED").
func (m *Metrics) IncrAuthOutcome(outcome string) {
	m.authOutcomes.WithLabelValues(outcome).Inc()
}

// IncrSessionEvent counts "issued" and "revoked" sessions.
func (m *Metrics) IncrSessionEvent(event string) {
	m.sessionEvents.WithLabelValues(event).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrStoreUnavailable counts a connectivity failure of a store.
func (m *Metrics) IncrStoreUnavailable(store string) {
	m.storeErrors.WithLabelValues(store).Inc()
}

// AuthOutcomeCount returns the cumulative count for an auth outcome.
func (m *Metrics) AuthOutcomeCount(outcome string) float64 {
	return getCounterValue(m.authOutcomes, outcome)
}

// SessionEventCount returns the cumulative count for a session event.
func (m *Metrics) SessionEventCount(event string) float64 {
	return getCounterValue(m.sessionEvents, event)
}

// CacheHitCount returns the cumulative hits for a cache.
func (m *Metrics) CacheHitCount(cache string) float64 {
	return getCounterValue(m.cacheHits, cache)
}

// HTTPMiddleware counts requests by chi route pattern so ids in paths do not
// explode label cardinality.
func (m *Metrics) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).Inc()
		m.RecordRequestDuration("http "+r.Method+" "+route, time.Since(start))
	})
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
