package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusMetrics implements Metrics using Prometheus
type PrometheusMetrics struct {
	checksTotal    *prometheus.CounterVec
	checkDuration  prometheus.Histogram
	loginsTotal    *prometheus.CounterVec
	invalidations  prometheus.Counter
	cacheHits      prometheus.Counter
	cacheMisses    prometheus.Counter
	activeSessions prometheus.Gauge

	registry *prometheus.Registry
}

// NewPrometheusMetrics creates a new Prometheus metrics instance
func NewPrometheusMetrics(namespace string) *PrometheusMetrics {
	registry := prometheus.NewRegistry()

	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	checksTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checks_total",
			Help:      "Total number of role/permission checks by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	checkDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "check_duration_seconds",
			Help:      "Duration of individual role/permission checks",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
		},
	)

	loginsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Total number of authentication attempts by realm and outcome",
		},
		[]string{"realm", "outcome"},
	)

	invalidations := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invalidations_total",
			Help:      "Total number of security context invalidations",
		},
	)

	cacheHits := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Total number of decision cache hits",
		},
	)

	cacheMisses := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Total number of decision cache misses",
		},
	)

	activeSessions := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of currently active sessions",
		},
	)

	registry.MustRegister(checksTotal, checkDuration, loginsTotal, invalidations, cacheHits, cacheMisses, activeSessions)

	return &PrometheusMetrics{
		checksTotal:    checksTotal,
		checkDuration:  checkDuration,
		loginsTotal:    loginsTotal,
		invalidations:  invalidations,
		cacheHits:      cacheHits,
		cacheMisses:    cacheMisses,
		activeSessions: activeSessions,
		registry:       registry,
	}
}

// RecordCheck records a single role or permission decision
func (m *PrometheusMetrics) RecordCheck(kind string, granted bool, duration time.Duration) {
	m.checksTotal.WithLabelValues(kind, outcome(granted)).Inc()
	m.checkDuration.Observe(duration.Seconds())
}

// RecordLogin records an authentication attempt against a realm
func (m *PrometheusMetrics) RecordLogin(realm string, success bool) {
	m.loginsTotal.WithLabelValues(realm, outcome(success)).Inc()
}

// RecordInvalidation records a context invalidation
func (m *PrometheusMetrics) RecordInvalidation() {
	m.invalidations.Inc()
}

func (m *PrometheusMetrics) RecordCacheHit()  { m.cacheHits.Inc() }
func (m *PrometheusMetrics) RecordCacheMiss() { m.cacheMisses.Inc() }

func (m *PrometheusMetrics) IncActiveSessions() { m.activeSessions.Inc() }
func (m *PrometheusMetrics) DecActiveSessions() { m.activeSessions.Dec() }

// HTTPHandler returns the Prometheus scrape handler for this registry
func (m *PrometheusMetrics) HTTPHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func outcome(granted bool) string {
	if granted {
		return "granted"
	}
	return "denied"
}
