package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SessionMetrics tracks upload traffic and per-session throttling.
type SessionMetrics struct {
	UploadBytes prometheus.Histogram
	UploadReuse *prometheus.CounterVec
	RateLimited prometheus.Counter
	StoreErrors *prometheus.CounterVec
}

func NewSessionMetrics(reg prometheus.Registerer) *SessionMetrics {
	f := promauto.With(reg)
	return &SessionMetrics{
		UploadBytes: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "pricecast",
			Subsystem: "session",
			Name:      "upload_bytes",
			Help:      "Size of uploaded CSV files",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 8),
		}),
		UploadReuse: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pricecast",
			Subsystem: "session",
			Name:      "upload_reuse_total",
			Help:      "Requests without a file that looked up the session's previous upload",
		}, []string{"result"}),
		RateLimited: f.NewCounter(prometheus.CounterOpts{
			Namespace: "pricecast",
			Subsystem: "session",
			Name:      "rate_limited_total",
			Help:      "Forecast requests rejected by the per-session limiter",
		}),
		StoreErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pricecast",
			Subsystem: "session",
			Name:      "store_errors_total",
			Help:      "Upload store failures by operation",
		}, []string{"op"}),
	}
}
