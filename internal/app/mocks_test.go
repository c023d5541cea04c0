package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pscheid92/feedbackpulse/internal/domain"
)

// --- Mock implementations ---

type mockUserRepo struct {
	createFn     func(ctx context.Context, user *domain.User) error
	getByIDFn    func(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	getByEmailFn func(ctx context.Context, email string) (*domain.User, error)
}

func (m *mockUserRepo) Create(ctx context.Context, user *domain.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	user.ID = uuid.New()
	return nil
}

func (m *mockUserRepo) GetByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, userID)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if m.getByEmailFn != nil {
		return m.getByEmailFn(ctx, email)
	}
	return nil, domain.ErrUserNotFound
}

type mockFeedbackRepo struct {
	createFn           func(ctx context.Context, f *domain.Feedback) error
	getByIDFn          func(ctx context.Context, id uuid.UUID) (*domain.Feedback, error)
	listFn             func(ctx context.Context, filter domain.FeedbackFilter) ([]*domain.Feedback, error)
	deleteFn           func(ctx context.Context, id uuid.UUID) error
	countBySentimentFn func(ctx context.Context, userID *uuid.UUID) (domain.SentimentCounts, error)
}

func (m *mockFeedbackRepo) Create(ctx context.Context, f *domain.Feedback) error {
	if m.createFn != nil {
		return m.createFn(ctx, f)
	}
	f.ID = uuid.New()
	return nil
}

func (m *mockFeedbackRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Feedback, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrFeedbackNotFound
}

func (m *mockFeedbackRepo) List(ctx context.Context, filter domain.FeedbackFilter) ([]*domain.Feedback, error) {
	if m.listFn != nil {
		return m.listFn(ctx, filter)
	}
	return nil, nil
}

func (m *mockFeedbackRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockFeedbackRepo) CountBySentiment(ctx context.Context, userID *uuid.UUID) (domain.SentimentCounts, error) {
	if m.countBySentimentFn != nil {
		return m.countBySentimentFn(ctx, userID)
	}
	return domain.SentimentCounts{}, nil
}

type mockStats struct {
	globalCountsFn func(ctx context.Context) (domain.SentimentCounts, error)
}

func (m *mockStats) GlobalCounts(ctx context.Context) (domain.SentimentCounts, error) {
	if m.globalCountsFn != nil {
		return m.globalCountsFn(ctx)
	}
	return domain.SentimentCounts{}, nil
}

func (m *mockStats) Invalidate(context.Context) error { return nil }

type mockClassifier struct {
	classifyFn func(ctx context.Context, text string) domain.Classification
	calls      []string
}

func (m *mockClassifier) Classify(ctx context.Context, text string) domain.Classification {
	m.calls = append(m.calls, text)
	if m.classifyFn != nil {
		return m.classifyFn(ctx, text)
	}
	return domain.Classification{
		Result: domain.SentimentResult{Sentiment: domain.SentimentNeutral, Score: 0.5},
		Source: domain.SourceFallback,
	}
}

type mockEvents struct {
	createdFn func(ctx context.Context, f *domain.Feedback) error
	deletedFn func(ctx context.Context, id uuid.UUID) error
	created   []*domain.Feedback
	deleted   []uuid.UUID
}

func (m *mockEvents) PublishFeedbackCreated(ctx context.Context, f *domain.Feedback) error {
	m.created = append(m.created, f)
	if m.createdFn != nil {
		return m.createdFn(ctx, f)
	}
	return nil
}

func (m *mockEvents) PublishFeedbackDeleted(ctx context.Context, id uuid.UUID) error {
	m.deleted = append(m.deleted, id)
	if m.deletedFn != nil {
		return m.deletedFn(ctx, id)
	}
	return nil
}
