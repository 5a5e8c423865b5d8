package monitoring

import (
	"sync/atomic"
	"time"
)

type uploadCounters struct {
	requestsTotal       atomic.Uint64
	requestsFailed      atomic.Uint64
	bytesTotal          atomic.Int64
	durationMicrosTotal atomic.Uint64
}

type UploadStats struct {
	RequestsTotal uint64  `json:"requests_total"`
	FailedTotal   uint64  `json:"failed_total"`
	BytesTotal    int64   `json:"bytes_total"`
	AvgDurationMS float64 `json:"avg_duration_ms"`
}

// RecordUpload accounts one handled image upload. reason is empty on success.
func (m *Metrics) RecordUpload(bytes int64, duration time.Duration, success bool, reason string) {
	m.uploadStats.requestsTotal.Add(1)
	if success {
		m.uploads.WithLabelValues("success").Inc()
	} else {
		m.uploadStats.requestsFailed.Add(1)
		if reason == "" {
			reason = "unknown"
		}
		m.uploads.WithLabelValues(reason).Inc()
	}
	if bytes > 0 {
		m.uploadStats.bytesTotal.Add(bytes)
		m.uploadBytes.Add(float64(bytes))
	}
	if duration > 0 {
		m.uploadStats.durationMicrosTotal.Add(uint64(duration / time.Microsecond))
		m.uploadDuration.Observe(duration.Seconds())
	}
}

func (m *Metrics) UploadStats() UploadStats {
	total := m.uploadStats.requestsTotal.Load()
	totalDurationMicros := m.uploadStats.durationMicrosTotal.Load()
	avgDurationMS := 0.0
	if total > 0 {
		avgDurationMS = float64(totalDurationMicros) / float64(total) / 1000.0
	}

	return UploadStats{
		RequestsTotal: total,
		FailedTotal:   m.uploadStats.requestsFailed.Load(),
		BytesTotal:    m.uploadStats.bytesTotal.Load(),
		AvgDurationMS: avgDurationMS,
	}
}
