// Package metrics exposes Prometheus collectors for the view API and the
// live sync channel.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mamadbah2/vendsync/internal/livesync"
)

const namespace = "vendsync"

// Metrics owns a private registry so tests and multiple engines don't collide.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	purchasesTotal      *prometheus.CounterVec
}

// New registers the HTTP and purchase collectors plus the Go runtime ones.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"path"},
		),
		purchasesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "purchases_total",
				Help:      "Purchase attempts by outcome",
			},
			[]string{"outcome"},
		),
	}

	m.registry.MustRegister(
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.purchasesTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// RegisterSyncStats exposes the live sync counters, read on every scrape.
func (m *Metrics) RegisterSyncStats(stats func() livesync.Stats) {
	counter := func(name, help string, value func(livesync.Stats) uint64) prometheus.Collector {
		return prometheus.NewCounterFunc(
			prometheus.CounterOpts{Namespace: namespace, Subsystem: "sync", Name: name, Help: help},
			func() float64 { return float64(value(stats())) },
		)
	}

	m.registry.MustRegister(
		counter("connect_attempts_total", "Push channel dial attempts",
			func(s livesync.Stats) uint64 { return s.ConnectAttempts }),
		counter("connects_total", "Successful push channel connections",
			func(s livesync.Stats) uint64 { return s.Connects }),
		counter("deltas_applied_total", "Stock deltas applied to the cache",
			func(s livesync.Stats) uint64 { return s.DeltasApplied }),
		counter("malformed_frames_total", "Push frames that could not be decoded",
			func(s livesync.Stats) uint64 { return s.MalformedFrames }),
		prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Namespace: namespace, Subsystem: "sync", Name: "connected", Help: "1 while the push channel is connected"},
			func() float64 {
				if stats().State == livesync.StateConnected {
					return 1
				}
				return 0
			},
		),
	)
}

// ObservePurchase counts a purchase attempt with the given outcome.
func (m *Metrics) ObservePurchase(outcome string) {
	m.purchasesTotal.WithLabelValues(outcome).Inc()
}

// Middleware records request counts and latency per route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)

		path := c.FullPath()
		if path == "" {
			path = "undefined"
		}

		m.httpRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpRequestDuration.WithLabelValues(path).Observe(duration.Seconds())
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
