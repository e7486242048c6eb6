package photos

// Metrics receives domain counters. The prometheus implementation lives in utils/metrics.
type Metrics interface {
	LedgerClamped()
	QuotaRejected(reason string)
	PhotosPurged(count int)
	BytesReleased(bytes int64)
	ReleaseFailed()
}

type nopMetrics struct{}

func (nopMetrics) LedgerClamped() {}
func (nopMetrics) QuotaRejected(string) {}
func (nopMetrics) PhotosPurged(int) {}
func (nopMetrics) BytesReleased(int64) {}
func (nopMetrics) ReleaseFailed() {}
