// Package metrics exports HTTP and file-operation counters for Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors on a private registry. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	FilesUploaded       prometheus.Counter
	UploadBytes         prometheus.Counter
	UploadCompensations prometheus.Counter
	FilesDeleted        prometheus.Counter
	FileAccessDenied    prometheus.Counter
}

// New creates the collectors. namespace may be empty.
func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"method", "route"},
		),
		HTTPRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "Current number of HTTP requests being processed",
			},
		),
		FilesUploaded: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "files_uploaded_total",
				Help:      "Uploads recorded in the record store",
			},
		),
		UploadBytes: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "file_upload_bytes_total",
				Help:      "Bytes of recorded uploads",
			},
		),
		UploadCompensations: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upload_compensations_total",
				Help:      "Stored uploads removed because the record insert failed",
			},
		),
		FilesDeleted: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "files_deleted_total",
				Help:      "Files deleted by their owner",
			},
		),
		FileAccessDenied: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "file_access_denied_total",
				Help:      "Download or delete attempts on another user's file",
			},
		),
	}
}

// Registry exposes the private registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware records request count, latency and in-flight requests by
// route template.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}

		start := time.Now()
		m.HTTPRequestsInFlight.Inc()
		defer m.HTTPRequestsInFlight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// UploadRecorded counts a successful upload of size bytes.
func (m *Metrics) UploadRecorded(size int64) {
	if m == nil {
		return
	}
	m.FilesUploaded.Inc()
	m.UploadBytes.Add(float64(size))
}

// UploadCompensated counts a stored upload removed after a failed insert.
func (m *Metrics) UploadCompensated() {
	if m == nil {
		return
	}
	m.UploadCompensations.Inc()
}

// FileDeleted counts an owner delete.
func (m *Metrics) FileDeleted() {
	if m == nil {
		return
	}
	m.FilesDeleted.Inc()
}

// AccessDenied counts an ownership rejection.
func (m *Metrics) AccessDenied() {
	if m == nil {
		return
	}
	m.FileAccessDenied.Inc()
}
