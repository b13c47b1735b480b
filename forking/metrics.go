package forking

import (
	"math"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// NewMetricsListener registers the fork cache metrics with reg
func NewMetricsListener(reg prometheus.Registerer) EventListener {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fork",
		Subsystem: "remote",
		Name:      "requests",
	}, []string{"kind"})
	failedRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fork",
		Subsystem: "remote",
		Name:      "failed_requests",
	}, []string{"kind"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fork",
		Subsystem: "remote",
		Name:      "latency",
		Buckets: []float64{
			5000,
			10000,
			50000,
			100000, // 100ms
			250000,
			500000,
			1000000,
			5000000,
			math.Inf(0),
		},
	}, []string{"kind"})
	hits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fork",
		Subsystem: "cache",
		Name:      "hits",
	}, []string{"kind", "source"})
	misses := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fork",
		Subsystem: "cache",
		Name:      "misses",
	}, []string{"kind"})
	reg.MustRegister(requests, failedRequests, latency, hits, misses)

	return &SelectiveListener{
		OnRemoteRequestCb: func(kind Kind, took time.Duration, err error) {
			requests.WithLabelValues(kind.String()).Inc()
			if err != nil {
				failedRequests.WithLabelValues(kind.String()).Inc()
			}
			latency.WithLabelValues(kind.String()).Observe(float64(took.Microseconds()))
		},
		OnCacheHitCb: func(kind Kind, persisted bool) {
			source := "memory"
			if persisted {
				source = "disk"
			}
			hits.WithLabelValues(kind.String(), source).Inc()
		},
		OnCacheMissCb: func(kind Kind) {
			misses.WithLabelValues(kind.String()).Inc()
		},
	}
}
