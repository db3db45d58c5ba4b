package signing

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects signing counters. Use NewMetrics with a dedicated
// registry in tests.
type Metrics struct {
	requests      *prometheus.CounterVec
	fallbacks     *prometheus.CounterVec
	duration      prometheus.Histogram
	documentBytes prometheus.Histogram
}

// NewMetrics registers the signing metrics with reg. A nil reg returns
// metrics that are not exported.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pdfstamp",
			Subsystem: "signing",
			Name:      "requests_total",
			Help:      "Total number of signing requests by outcome",
		}, []string{"outcome"}),
		fallbacks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pdfstamp",
			Subsystem: "signing",
			Name:      "fallbacks_total",
			Help:      "Total number of placements that were substituted",
		}, []string{"kind"}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "pdfstamp",
			Subsystem: "signing",
			Name:      "duration_seconds",
			Help:      "Duration of signing operations in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		documentBytes: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "pdfstamp",
			Subsystem: "signing",
			Name:      "document_bytes",
			Help:      "Size of signed documents in bytes",
			Buckets:   prometheus.ExponentialBuckets(16*1024, 4, 8),
		}),
	}
}
