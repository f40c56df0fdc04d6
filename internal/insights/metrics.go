package insights

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds Prometheus metrics for report generation.
//
// Metrics:
//   - journal_insight_reports_total{outcome} - reports by outcome
//   - journal_insight_fallbacks_total{reason} - primary analyses that fell back
//   - journal_insight_analysis_duration_seconds - primary analysis latency
type Metrics struct {
	ReportsTotal     *prometheus.CounterVec
	FallbacksTotal   *prometheus.CounterVec
	AnalysisDuration prometheus.Histogram
}

// NewMetrics registers the metrics once and returns the shared instance
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			ReportsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "journal_insight_reports_total",
					Help: "Total number of insight reports requested",
				},
				[]string{"outcome"}, // "empty", "success", "fallback", "failed"
			),
			FallbacksTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "journal_insight_fallbacks_total",
					Help: "Total number of primary analyses that fell back to cached tags",
				},
				[]string{"reason"}, // "unavailable", "malformed", "timeout", "other"
			),
			AnalysisDuration: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "journal_insight_analysis_duration_seconds",
					Help:    "Duration of primary history analysis in seconds",
					Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
				},
			),
		}
	})
	return globalMetrics
}
