package websocket

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/centrifugal/centrifuge"
	"github.com/google/uuid"
	"github.com/pscheid92/feedbackpulse/internal/adapter/metrics"
	"github.com/pscheid92/feedbackpulse/internal/domain"
)

const (
	EventFeedbackCreated = "feedback.created"
	EventFeedbackDeleted = "feedback.deleted"
)

type feedbackPayload struct {
	ID        uuid.UUID `json:"id"`
	Content   string    `json:"content"`
	Sentiment string    `json:"sentiment"`
	Score     float64   `json:"score"`
	Percent   int       `json:"percent"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

type feedbackEvent struct {
	Type     string           `json:"type"`
	ID       uuid.UUID        `json:"id"`
	Feedback *feedbackPayload `json:"feedback,omitempty"`
}

// Publisher pushes feedback events onto the admin channel.
type Publisher struct {
	node    *centrifuge.Node
	metrics *metrics.LiveFeedMetrics
}

func NewPublisher(node *centrifuge.Node, m *metrics.LiveFeedMetrics) *Publisher {
	return &Publisher{node: node, metrics: m}
}

func (p *Publisher) PublishFeedbackCreated(f *domain.Feedback) error {
	return p.publish(feedbackEvent{
		Type: EventFeedbackCreated,
		ID:   f.ID,
		Feedback: &feedbackPayload{
			ID:        f.ID,
			Content:   f.Content,
			Sentiment: string(f.Sentiment),
			Score:     f.SentimentScore,
			Percent:   f.Result().Percent(),
			Source:    string(f.Source),
			CreatedAt: f.CreatedAt,
		},
	})
}

func (p *Publisher) PublishFeedbackDeleted(id uuid.UUID) error {
	return p.publish(feedbackEvent{Type: EventFeedbackDeleted, ID: id})
}

func (p *Publisher) publish(event feedbackEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.Type, err)
	}

	if _, err := p.node.Publish(AdminChannel, data); err != nil {
		return fmt.Errorf("publish to channel %s: %w", AdminChannel, err)
	}

	if p.metrics != nil {
		p.metrics.MessagesPublished.WithLabelValues(event.Type).Inc()
	}
	return nil
}
