package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the broker's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	connectionOps   *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	janitorSweeps   *prometheus.CounterVec
	janitorRemovals prometheus.Counter
}

// NewMetrics creates and registers the broker's collectors on registry. A
// nil registry gets a fresh one.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		registry: registry,
		connectionOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fedbridge_connection_operations_total",
			Help: "Connection operations by operation and outcome",
		}, []string{"operation", "status"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fedbridge_http_requests_total",
			Help: "HTTP requests by method, path and status code",
		}, []string{"method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fedbridge_http_request_duration_seconds",
			Help:    "HTTP request latency by method and path",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		janitorSweeps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fedbridge_janitor_sweeps_total",
			Help: "Index-reconciliation sweeps by outcome",
		}, []string{"status"}),
		janitorRemovals: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fedbridge_janitor_dangling_removed_total",
			Help: "Dangling index members removed by the janitor",
		}),
	}

	registry.MustRegister(m.connectionOps, m.httpRequests, m.httpDuration, m.janitorSweeps, m.janitorRemovals)
	return m
}

// ObserveConnectionOp counts one connection operation by outcome.
func (m *Metrics) ObserveConnectionOp(operation string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.connectionOps.WithLabelValues(operation, status).Inc()
}

// ObserveJanitorSweep records one reconciliation sweep.
func (m *Metrics) ObserveJanitorSweep(removed int, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.janitorSweeps.WithLabelValues(status).Inc()
	if removed > 0 {
		m.janitorRemovals.Add(float64(removed))
	}
}

// Handler exposes the registry in Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *metricsResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// HTTPMiddleware records request counts and latencies. The path label uses
// the raw URL path; the API surface is small and fixed, so cardinality
// stays bounded.
func (m *Metrics) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &metricsResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		m.httpRequests.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(rw.statusCode)).Inc()
		m.httpDuration.WithLabelValues(r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}
