package metrics

import "github.com/prometheus/client_golang/prometheus"

// ClassificationMetrics tracks how feedback gets its sentiment label.
type ClassificationMetrics struct {
	Classifications *prometheus.CounterVec
	Fallbacks       *prometheus.CounterVec
	RemoteDuration  prometheus.Histogram
}

func NewClassificationMetrics(reg prometheus.Registerer) *ClassificationMetrics {
	m := &ClassificationMetrics{
		Classifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "classifier",
			Name:      "classifications_total",
			Help:      "Total number of classifications, by source and sentiment.",
		}, []string{"source", "sentiment"}),
		Fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "classifier",
			Name:      "fallbacks_total",
			Help:      "Total number of heuristic fallbacks, by reason.",
		}, []string{"reason"}),
		RemoteDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "classifier",
			Name:      "remote_duration_seconds",
			Help:      "Duration of remote classification calls in seconds, including retries.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 16},
		}),
	}

	reg.MustRegister(m.Classifications, m.Fallbacks, m.RemoteDuration)
	return m
}
