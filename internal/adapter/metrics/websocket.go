package metrics

import "github.com/prometheus/client_golang/prometheus"

// LiveFeedMetrics holds Prometheus metrics for the admin live feed.
type LiveFeedMetrics struct {
	ActiveConnections prometheus.Gauge
	MessagesPublished *prometheus.CounterVec
}

func NewLiveFeedMetrics(reg prometheus.Registerer) *LiveFeedMetrics {
	m := &LiveFeedMetrics{
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "live_feed",
			Name:      "active_connections",
			Help:      "Number of connected live feed clients.",
		}),
		MessagesPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "live_feed",
			Name:      "messages_published_total",
			Help:      "Total number of live feed messages published, by event type.",
		}, []string{"event"}),
	}

	reg.MustRegister(m.ActiveConnections, m.MessagesPublished)
	return m
}
