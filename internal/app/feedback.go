package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/pscheid92/feedbackpulse/internal/domain"
	apperrors "github.com/pscheid92/feedbackpulse/internal/platform/errors"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

type SubmitFeedbackRequest struct {
	Content string
	UserID  *uuid.UUID // nil for anonymous feedback
}

// SubmitFeedback classifies and stores feedback. Publishing the event is best
// effort; the stored feedback is returned even if it fails.
func (s *Service) SubmitFeedback(ctx context.Context, req SubmitFeedbackRequest) (*domain.Feedback, error) {
	content, err := normalizeContent(req.Content)
	if err != nil {
		s.recordSubmission("rejected")
		return nil, err
	}

	classification := s.classifier.Classify(ctx, content)

	f := &domain.Feedback{
		UserID:         req.UserID,
		Content:        content,
		Sentiment:      classification.Result.Sentiment,
		SentimentScore: classification.Result.Score,
		Source:         classification.Source,
		CreatedAt:      s.clock.Now().UTC(),
	}
	if err := s.feedback.Create(ctx, f); err != nil {
		s.recordSubmission("error")
		return nil, fmt.Errorf("failed to store feedback: %w", err)
	}
	s.recordSubmission("stored")

	slog.InfoContext(ctx, "Feedback stored",
		"feedback_id", f.ID.String(),
		"sentiment", f.Sentiment,
		"source", f.Source,
		"anonymous", f.UserID == nil,
	)

	if err := s.events.PublishFeedbackCreated(ctx, f); err != nil {
		slog.WarnContext(ctx, "Failed to publish feedback event", "feedback_id", f.ID.String(), "error", err)
	}
	return f, nil
}

// ListFeedbackForUser returns the user's own feedback, newest first.
func (s *Service) ListFeedbackForUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Feedback, error) {
	return s.feedback.List(ctx, domain.FeedbackFilter{UserID: &userID, Limit: clampLimit(limit)})
}

// ListAllFeedback returns feedback from everyone, newest first.
func (s *Service) ListAllFeedback(ctx context.Context, filter domain.FeedbackFilter) ([]*domain.Feedback, error) {
	if filter.Sentiment != "" && !filter.Sentiment.Valid() {
		return nil, apperrors.ValidationError("unknown sentiment filter").WithField("sentiment", string(filter.Sentiment))
	}
	filter.Limit = clampLimit(filter.Limit)
	return s.feedback.List(ctx, filter)
}

// DeleteFeedback removes a feedback entry. Only admins may delete.
func (s *Service) DeleteFeedback(ctx context.Context, actor *domain.User, feedbackID uuid.UUID) error {
	if !actor.IsAdmin() {
		return domain.ErrForbidden
	}

	if err := s.feedback.Delete(ctx, feedbackID); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.Deletions.Inc()
	}

	slog.InfoContext(ctx, "Feedback deleted", "feedback_id", feedbackID.String(), "actor_id", actor.ID.String())

	if err := s.events.PublishFeedbackDeleted(ctx, feedbackID); err != nil {
		slog.WarnContext(ctx, "Failed to publish deletion event", "feedback_id", feedbackID.String(), "error", err)
	}
	return nil
}

// SentimentStats counts feedback per label. A nil userID counts everyone's
// feedback through the stats cache.
func (s *Service) SentimentStats(ctx context.Context, userID *uuid.UUID) (domain.SentimentCounts, error) {
	if userID == nil {
		return s.stats.GlobalCounts(ctx)
	}
	return s.feedback.CountBySentiment(ctx, userID)
}

func (s *Service) recordSubmission(result string) {
	if s.metrics != nil {
		s.metrics.Submissions.WithLabelValues(result).Inc()
	}
}

// normalizeContent trims text and enforces the length bounds in runes.
func normalizeContent(raw string) (string, error) {
	content := strings.TrimSpace(raw)
	if !utf8.ValidString(content) || strings.ContainsRune(content, 0) {
		return "", apperrors.ValidationError("feedback must be valid UTF-8 text without NUL characters")
	}
	n := utf8.RuneCountInString(content)

	switch {
	case n < domain.MinFeedbackLength:
		return "", apperrors.ValidationError(fmt.Sprintf("feedback must be at least %d characters", domain.MinFeedbackLength)).
			WithField("length", n)
	case n > domain.MaxFeedbackLength:
		return "", apperrors.ValidationError(fmt.Sprintf("feedback must be at most %d characters", domain.MaxFeedbackLength)).
			WithField("length", n)
	}
	return content, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return min(limit, MaxListLimit)
}
