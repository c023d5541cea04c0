package app

import (
	"context"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/feedbackpulse/internal/adapter/metrics"
	"github.com/pscheid92/feedbackpulse/internal/domain"
)

// Service is the application layer, the only component that references
// multiple domain components. It orchestrates all use cases.
type Service struct {
	users           domain.UserRepository
	feedback        domain.FeedbackRepository
	stats           domain.StatsSource
	classifier      domain.Classifier
	events          domain.EventPublisher
	clock           clockwork.Clock
	metrics         *metrics.FeedbackMetrics
	adminSignupCode string
}

type Deps struct {
	Users      domain.UserRepository
	Feedback   domain.FeedbackRepository
	Stats      domain.StatsSource
	Classifier domain.Classifier
	Events     domain.EventPublisher
	Clock      clockwork.Clock
	Metrics    *metrics.FeedbackMetrics // optional
}

// NewService creates the application layer service. An empty adminSignupCode
// disables admin sign-up.
func NewService(deps Deps, adminSignupCode string) *Service {
	return &Service{
		users:           deps.Users,
		feedback:        deps.Feedback,
		stats:           deps.Stats,
		classifier:      deps.Classifier,
		events:          deps.Events,
		clock:           deps.Clock,
		metrics:         deps.Metrics,
		adminSignupCode: adminSignupCode,
	}
}

// GetUser retrieves a user by ID.
func (s *Service) GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	return s.users.GetByID(ctx, userID)
}

// Classify scores text without storing anything.
func (s *Service) Classify(ctx context.Context, text string) (domain.Classification, error) {
	content, err := normalizeContent(text)
	if err != nil {
		return domain.Classification{}, err
	}
	return s.classifier.Classify(ctx, content), nil
}
