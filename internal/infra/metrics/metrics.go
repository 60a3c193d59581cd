package metrics

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	Registry           *prometheus.Registry
	HTTPRequests       *prometheus.CounterVec
	HTTPDuration       *prometheus.HistogramVec
	HTTPInFlight       prometheus.Gauge
	HTTPErrors         *prometheus.CounterVec
	RedisDegraded      *prometheus.CounterVec
	CacheRequests      *prometheus.CounterVec
	CacheInvalidations *prometheus.CounterVec
	CacheInvalidated   prometheus.Counter
	CacheCircuitState  prometheus.Gauge
	AuthEvents         *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "path", "code"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_in_flight_requests",
				Help: "Number of in-flight HTTP requests.",
			},
		),
		HTTPErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_errors_total",
				Help: "Total number of HTTP 5xx errors.",
			},
			[]string{"method", "path", "code"},
		),
		RedisDegraded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "redis_degraded_total",
				Help: "Total number of Redis degradation events.",
			},
			[]string{"component"},
		),
		CacheRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_requests_total",
				Help: "Task cache lookups by query kind and result (hit, miss, error).",
			},
			[]string{"kind", "result"},
		),
		CacheInvalidations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_invalidations_total",
				Help: "Task cache invalidations by result (ok, failed).",
			},
			[]string{"result"},
		),
		CacheInvalidated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_invalidated_keys_total",
				Help: "Total number of cache keys removed by pattern invalidation.",
			},
		),
		CacheCircuitState: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "cache_circuit_state",
				Help: "Cache circuit breaker state: 0=closed,1=half_open,2=open.",
			},
		),
		AuthEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_events_total",
				Help: "Total number of auth events.",
			},
			[]string{"event"},
		),
	}

	reg.MustRegister(
		m.HTTPRequests,
		m.HTTPDuration,
		m.HTTPInFlight,
		m.HTTPErrors,
		m.RedisDegraded,
		m.CacheRequests,
		m.CacheInvalidations,
		m.CacheInvalidated,
		m.CacheCircuitState,
		m.AuthEvents,
	)

	return m
}

func (m *Metrics) IncAuthEvent(event string) {
	if m == nil {
		return
	}
	m.AuthEvents.WithLabelValues(event).Inc()
}

func (m *Metrics) IncCacheRequest(kind, result string) {
	if m == nil {
		return
	}
	m.CacheRequests.WithLabelValues(kind, result).Inc()
}

// ObserveInvalidation counts deleted keys even when the pass failed midway.
func (m *Metrics) ObserveInvalidation(ok bool, deleted int64) {
	if m == nil {
		return
	}
	if deleted > 0 {
		m.CacheInvalidated.Add(float64(deleted))
	}
	if !ok {
		m.CacheInvalidations.WithLabelValues("failed").Inc()
		return
	}
	m.CacheInvalidations.WithLabelValues("ok").Inc()
}
