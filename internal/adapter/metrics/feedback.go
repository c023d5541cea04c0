package metrics

import "github.com/prometheus/client_golang/prometheus"

// FeedbackMetrics tracks feedback submissions and moderation.
type FeedbackMetrics struct {
	Submissions *prometheus.CounterVec
	Deletions   prometheus.Counter
}

func NewFeedbackMetrics(reg prometheus.Registerer) *FeedbackMetrics {
	m := &FeedbackMetrics{
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feedback",
			Name:      "submissions_total",
			Help:      "Total number of feedback submissions, by result.",
		}, []string{"result"}),
		Deletions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feedback",
			Name:      "deletions_total",
			Help:      "Total number of feedback entries deleted by admins.",
		}),
	}

	reg.MustRegister(m.Submissions, m.Deletions)
	return m
}
