package metrics

import "github.com/prometheus/client_golang/prometheus"

// CacheMetrics tracks how global sentiment counts are served.
type CacheMetrics struct {
	// Lookups is labelled by layer (memory, redis) and result (hit, miss).
	Lookups *prometheus.CounterVec
	// Invalidations is labelled by origin: local for writes on this instance,
	// remote for pub/sub messages from other instances.
	Invalidations *prometheus.CounterVec
	// DiscardedLoads counts repository reads dropped because an
	// invalidation arrived while they were running.
	DiscardedLoads prometheus.Counter
}

func NewCacheMetrics(reg prometheus.Registerer) *CacheMetrics {
	m := &CacheMetrics{
		Lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sentiment_stats",
			Name:      "cache_lookups_total",
			Help:      "Sentiment count lookups per cache layer and result.",
		}, []string{"layer", "result"}),
		Invalidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sentiment_stats",
			Name:      "cache_invalidations_total",
			Help:      "Sentiment count invalidations after feedback was created or deleted.",
		}, []string{"origin"}),
		DiscardedLoads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sentiment_stats",
			Name:      "discarded_loads_total",
			Help:      "Counts read from Postgres but not cached because feedback changed meanwhile.",
		}),
	}

	reg.MustRegister(m.Lookups, m.Invalidations, m.DiscardedLoads)
	return m
}
