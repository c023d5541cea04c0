package eventpublisher

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/pscheid92/feedbackpulse/internal/domain"
)

// LiveFeed pushes feedback events to connected admins.
type LiveFeed interface {
	PublishFeedbackCreated(f *domain.Feedback) error
	PublishFeedbackDeleted(id uuid.UUID) error
}

// EventPublisher implements domain.EventPublisher by invalidating the cached
// stats and notifying the live feed. A failed invalidation is logged, not
// returned, since the in-memory layer expires on its own.
type EventPublisher struct {
	feed  LiveFeed
	stats domain.StatsSource
}

var _ domain.EventPublisher = (*EventPublisher)(nil)

func New(feed LiveFeed, stats domain.StatsSource) *EventPublisher {
	return &EventPublisher{feed: feed, stats: stats}
}

func (ep *EventPublisher) PublishFeedbackCreated(ctx context.Context, f *domain.Feedback) error {
	ep.invalidateStats(ctx)
	if err := ep.feed.PublishFeedbackCreated(f); err != nil {
		return fmt.Errorf("publish feedback created: %w", err)
	}
	return nil
}

func (ep *EventPublisher) PublishFeedbackDeleted(ctx context.Context, id uuid.UUID) error {
	ep.invalidateStats(ctx)
	if err := ep.feed.PublishFeedbackDeleted(id); err != nil {
		return fmt.Errorf("publish feedback deleted: %w", err)
	}
	return nil
}

func (ep *EventPublisher) invalidateStats(ctx context.Context) {
	if err := ep.stats.Invalidate(ctx); err != nil {
		slog.WarnContext(ctx, "Failed to invalidate stats cache", "error", err)
	}
}
