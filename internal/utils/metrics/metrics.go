package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Quota metrics
	LedgerClampsTotal   prometheus.Counter
	QuotaRejectedTotal  *prometheus.CounterVec
	PhotosPurgedTotal   prometheus.Counter
	BytesReleasedTotal  prometheus.Counter
	ReleaseFailureTotal prometheus.Counter
}

// New creates a new Metrics instance registered with reg. A nil reg uses the
// default prometheus registerer.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "photos"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		// HTTP metrics
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_in_flight",
				Help:      "Current number of HTTP requests being processed",
			},
		),

		// Quota metrics
		LedgerClampsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ledger",
				Name:      "clamps_total",
				Help:      "Decrements that would have driven usage below zero",
			},
		),
		QuotaRejectedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "quota",
				Name:      "rejected_total",
				Help:      "Operations rejected by the storage limit",
			},
			[]string{"reason"}, // reason: upload, restore, photo_too_large
		),
		PhotosPurgedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "lifecycle",
				Name:      "purged_total",
				Help:      "Photos permanently removed",
			},
		),
		BytesReleasedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "lifecycle",
				Name:      "bytes_released_total",
				Help:      "Bytes physically released from object storage",
			},
		),
		ReleaseFailureTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "lifecycle",
				Name:      "release_failures_total",
				Help:      "Physical releases that failed after all retries",
			},
		),
	}
}

// --- Convenience methods ---

// RecordHTTPRequest records an HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	statusStr := statusCodeToString(status)
	m.HTTPRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// LedgerClamped records a clamped decrement.
func (m *Metrics) LedgerClamped() {
	m.LedgerClampsTotal.Inc()
}

// QuotaRejected records a rejected operation.
func (m *Metrics) QuotaRejected(reason string) {
	m.QuotaRejectedTotal.WithLabelValues(reason).Inc()
}

// PhotosPurged records permanently removed photos.
func (m *Metrics) PhotosPurged(count int) {
	if count > 0 {
		m.PhotosPurgedTotal.Add(float64(count))
	}
}

// BytesReleased records bytes released from object storage.
func (m *Metrics) BytesReleased(bytes int64) {
	if bytes > 0 {
		m.BytesReleasedTotal.Add(float64(bytes))
	}
}

// ReleaseFailed records a release that gave up.
func (m *Metrics) ReleaseFailed() {
	m.ReleaseFailureTotal.Inc()
}

// statusCodeToString converts an HTTP status code to a string category.
func statusCodeToString(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
