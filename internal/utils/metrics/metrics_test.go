package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMetrics(t *testing.T) (*Metrics, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return New("test", reg), reg
}

func TestNew_RegistersWithRegistry(t *testing.T) {
	m, reg := newTestMetrics(t)
	m.LedgerClamped()
	m.QuotaRejected("upload")
	m.RecordHTTPRequest("GET", "/health", 200, time.Millisecond)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "test_ledger_clamps_total")
	assert.Contains(t, names, "test_quota_rejected_total")
	assert.Contains(t, names, "test_http_requests_total")
}

func TestNew_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New("test", reg)
	assert.Panics(t, func() { New("test", reg) })
}

func TestRecordHTTPRequest(t *testing.T) {
	m, _ := newTestMetrics(t)

	m.RecordHTTPRequest("POST", "/api/v1/photos/delete", 200, 10*time.Millisecond)
	m.RecordHTTPRequest("POST", "/api/v1/photos/delete", 201, 10*time.Millisecond)
	m.RecordHTTPRequest("POST", "/api/v1/photos/restore", 409, 10*time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("POST", "/api/v1/photos/delete", "2xx")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("POST", "/api/v1/photos/restore", "4xx")))
}

func TestQuotaCounters(t *testing.T) {
	m, _ := newTestMetrics(t)

	m.LedgerClamped()
	m.LedgerClamped()
	m.QuotaRejected("restore")
	m.PhotosPurged(3)
	m.PhotosPurged(0)
	m.BytesReleased(4096)
	m.BytesReleased(-1)
	m.ReleaseFailed()

	assert.Equal(t, float64(2), testutil.ToFloat64(m.LedgerClampsTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.QuotaRejectedTotal.WithLabelValues("restore")))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.QuotaRejectedTotal.WithLabelValues("upload")))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.PhotosPurgedTotal))
	assert.Equal(t, float64(4096), testutil.ToFloat64(m.BytesReleasedTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ReleaseFailureTotal))
}

func TestStatusCodeToString(t *testing.T) {
	tests := []struct {
		code     int
		expected string
	}{
		{200, "2xx"},
		{204, "2xx"},
		{301, "3xx"},
		{404, "4xx"},
		{413, "4xx"},
		{500, "5xx"},
		{503, "5xx"},
		{100, "unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, statusCodeToString(tt.code))
	}
}
