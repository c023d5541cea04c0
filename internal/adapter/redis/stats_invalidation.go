package redis

import (
	"context"
	"log/slog"
)

const statsInvalidationChannel = "stats:invalidate"

// StatsInvalidationSubscriber drops the local in-memory stats whenever any
// instance invalidates the cache.
type StatsInvalidationSubscriber struct {
	cache *StatsCache
}

func NewStatsInvalidationSubscriber(cache *StatsCache) *StatsInvalidationSubscriber {
	return &StatsInvalidationSubscriber{cache: cache}
}

// Start blocks until ctx is cancelled.
func (s *StatsInvalidationSubscriber) Start(ctx context.Context) {
	pubsub := s.cache.rdb.Subscribe(ctx, statsInvalidationChannel)
	defer func() { _ = pubsub.Close() }()

	ch := pubsub.Channel()
	for {
		select {
		case msg := <-ch:
			if msg == nil {
				return
			}
			s.handleInvalidation(msg.Payload)
		case <-ctx.Done():
			return
		}
	}
}

func (s *StatsInvalidationSubscriber) handleInvalidation(payload string) {
	if payload != statsCacheKey {
		slog.Warn("Ignoring unknown stats invalidation message", "payload", payload)
		return
	}

	s.cache.dropLocal(originRemote)
	slog.Debug("Stats cache invalidated via pub/sub")
}
