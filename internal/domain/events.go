package domain

import (
	"context"

	"github.com/google/uuid"
)

// EventPublisher fans out feedback changes to live subscribers.
type EventPublisher interface {
	PublishFeedbackCreated(ctx context.Context, feedback *Feedback) error
	PublishFeedbackDeleted(ctx context.Context, feedbackID uuid.UUID) error
}
