package httpserver

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/feedbackpulse/internal/app"
	"github.com/pscheid92/feedbackpulse/internal/domain"
	apperrors "github.com/pscheid92/feedbackpulse/internal/platform/errors"
)

func (s *Server) registerFeedbackRoutes(csrfMiddleware, rateLimiter echo.MiddlewareFunc) {
	s.echo.GET("/", s.handleLanding, csrfMiddleware)
	s.echo.POST("/feedback", s.handleSubmitFeedbackForm, rateLimiter, csrfMiddleware)
	s.echo.POST("/api/feedback", s.handleSubmitFeedbackAPI, rateLimiter)
	s.echo.POST("/api/analyze", s.handleAnalyze, rateLimiter)
}

type landingPageData struct {
	CSRFToken any
	User      *domain.User
	Notices   []string
	Errors    []string
	MinLength int
	MaxLength int
}

func (s *Server) handleLanding(c echo.Context) error {
	user, _ := s.sessionUser(c)
	notices, errs := s.popFlashes(c)

	return s.renderTemplate(c, "landing.html", landingPageData{
		CSRFToken: c.Get("csrf"),
		User:      user,
		Notices:   notices,
		Errors:    errs,
		MinLength: domain.MinFeedbackLength,
		MaxLength: domain.MaxFeedbackLength,
	})
}

// handleSubmitFeedbackForm stores feedback from the landing page form and
// redirects back with the outcome as a flash message. Signed-in users get the
// feedback attributed to them.
func (s *Server) handleSubmitFeedbackForm(c echo.Context) error {
	ctx := c.Request().Context()

	var userID *uuid.UUID
	if user, ok := s.sessionUser(c); ok {
		userID = &user.ID
	}

	f, err := s.app.SubmitFeedback(ctx, app.SubmitFeedbackRequest{
		Content: c.FormValue("content"),
		UserID:  userID,
	})
	switch msg, isValidation := validationMessage(err); {
	case err == nil:
		s.addFlash(c, flashKeyNotice, fmt.Sprintf("Feedback submitted! Sentiment: %s (%d%%)", f.Sentiment, f.Result().Percent()))
	case isValidation:
		s.addFlash(c, flashKeyError, msg)
	default:
		slog.ErrorContext(ctx, "Failed to submit feedback", "error", err)
		s.addFlash(c, flashKeyError, "Failed to submit feedback. Please try again.")
	}

	return s.redirect(c, http.StatusSeeOther, "/")
}

type submitFeedbackRequest struct {
	Content string `json:"content"`
}

type feedbackResponse struct {
	ID        uuid.UUID `json:"id"`
	Sentiment string    `json:"sentiment"`
	Score     float64   `json:"score"`
	Percent   int       `json:"percent"`
	Source    string    `json:"source"`
}

// handleSubmitFeedbackAPI stores anonymous feedback posted as JSON.
func (s *Server) handleSubmitFeedbackAPI(c echo.Context) error {
	var req submitFeedbackRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	f, err := s.app.SubmitFeedback(c.Request().Context(), app.SubmitFeedbackRequest{Content: req.Content})
	if err != nil {
		if _, ok := validationMessage(err); ok {
			return err
		}
		return apperrors.InternalError("failed to submit feedback", err)
	}

	response := feedbackResponse{
		ID:        f.ID,
		Sentiment: string(f.Sentiment),
		Score:     f.SentimentScore,
		Percent:   f.Result().Percent(),
		Source:    string(f.Source),
	}
	if err := c.JSON(http.StatusCreated, response); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

type analyzeRequest struct {
	Text string `json:"text"`
}

type analyzeResponse struct {
	Sentiment  string  `json:"sentiment"`
	Score      float64 `json:"score"`
	Percent    int     `json:"percent"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source"`
}

// handleAnalyze classifies text without storing it.
func (s *Server) handleAnalyze(c echo.Context) error {
	var req analyzeRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	classification, err := s.app.Classify(c.Request().Context(), req.Text)
	if err != nil {
		return err
	}

	response := analyzeResponse{
		Sentiment:  string(classification.Result.Sentiment),
		Score:      classification.Result.Score,
		Percent:    classification.Result.Percent(),
		Confidence: classification.Confidence,
		Source:     string(classification.Source),
	}
	if err := c.JSON(http.StatusOK, response); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}
