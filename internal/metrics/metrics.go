// Package metrics provides a self-contained Prometheus registry with HTTP
// request metrics and upload orchestrator metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "uploads"

// Metrics holds the registry and every collector registered on it.
type Metrics struct {
	reg      *prometheus.Registry
	inflight prometheus.Gauge
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec

	operations *prometheus.CounterVec
	opLatency  *prometheus.HistogramVec
	presigned  prometheus.Counter
	chunkSize  prometheus.Histogram
}

// New creates a Metrics instance with a fresh registry and registers collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		reg: reg,
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of inflight HTTP requests.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests processed, partitioned by status code, method and route.",
		}, []string{"code", "method", "route"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Histogram of latencies for HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"code", "method", "route"}),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orchestrator",
			Name:      "operations_total",
			Help:      "Total orchestrator operations by result.",
		}, []string{"op", "outcome"}),
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "orchestrator",
			Name:      "operation_duration_seconds",
			Help:      "Histogram of orchestrator operation durations in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		presigned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orchestrator",
			Name:      "presigned_urls_total",
			Help:      "Total number of part upload URLs issued.",
		}),
		chunkSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "orchestrator",
			Name:      "chunk_size_bytes",
			Help:      "Chunk sizes chosen for new upload sessions.",
			Buckets:   prometheus.ExponentialBuckets(5<<20, 2, 8),
		}),
	}

	reg.MustRegister(m.inflight, m.requests, m.latency, m.operations, m.opLatency, m.presigned, m.chunkSize)
	return m
}

// Handler returns an http.Handler that serves Prometheus metrics using the internal registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Middleware collects inflight, request count and latency metrics for gin routes.
// Unmatched routes are labelled "unmatched" to keep cardinality bounded.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		m.inflight.Inc()
		defer m.inflight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		code := strconv.Itoa(c.Writer.Status())
		m.requests.WithLabelValues(code, c.Request.Method, route).Inc()
		m.latency.WithLabelValues(code, c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// ObserveOperation records one orchestrator operation.
func (m *Metrics) ObserveOperation(op, outcome string, elapsed time.Duration) {
	m.operations.WithLabelValues(op, outcome).Inc()
	m.opLatency.WithLabelValues(op).Observe(elapsed.Seconds())
}

// AddPresigned counts issued part URLs.
func (m *Metrics) AddPresigned(n int) {
	m.presigned.Add(float64(n))
}

// ObserveChunkSize records a planned chunk size.
func (m *Metrics) ObserveChunkSize(size int64) {
	m.chunkSize.Observe(float64(size))
}

// Registry returns the underlying Prometheus registry for advanced usage.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}
