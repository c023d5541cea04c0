package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/feedbackpulse/internal/domain"
	apperrors "github.com/pscheid92/feedbackpulse/internal/platform/errors"
)

func (s *Server) registerDashboardRoutes(csrfMiddleware echo.MiddlewareFunc) {
	s.echo.GET("/dashboard", s.handleDashboard, s.requireAuth, csrfMiddleware)
	s.echo.GET("/admin", s.handleAdmin, s.requireAuth, s.requireAdmin, csrfMiddleware)
	s.echo.POST("/admin/feedback/:id/delete", s.handleDeleteFeedback, s.requireAuth, s.requireAdmin, csrfMiddleware)
	s.echo.GET("/api/stats", s.handleStats, s.requireAuth)
}

type feedbackView struct {
	ID        string
	Content   string
	Sentiment string
	Percent   int
	Source    string
	CreatedAt string
	Anonymous bool
}

func newFeedbackViews(items []*domain.Feedback) []feedbackView {
	views := make([]feedbackView, 0, len(items))
	for _, f := range items {
		views = append(views, feedbackView{
			ID:        f.ID.String(),
			Content:   f.Content,
			Sentiment: string(f.Sentiment),
			Percent:   f.Result().Percent(),
			Source:    string(f.Source),
			CreatedAt: f.CreatedAt.UTC().Format(time.DateTime),
			Anonymous: f.UserID == nil,
		})
	}
	return views
}

type dashboardPageData struct {
	CSRFToken any
	Email     string
	IsAdmin   bool
	Counts    domain.SentimentCounts
	Feedback  []feedbackView
	Notices   []string
	Errors    []string
}

func (s *Server) handleDashboard(c echo.Context) error {
	ctx := c.Request().Context()

	user, ok := c.Get(contextKeyUser).(*domain.User)
	if !ok {
		return apperrors.InternalError("invalid user in context", nil)
	}

	items, err := s.app.ListFeedbackForUser(ctx, user.ID, 0)
	if err != nil {
		return apperrors.InternalError("failed to load feedback", err).WithField("user_id", user.ID.String())
	}

	counts, err := s.app.SentimentStats(ctx, &user.ID)
	if err != nil {
		return apperrors.InternalError("failed to load stats", err).WithField("user_id", user.ID.String())
	}

	notices, errs := s.popFlashes(c)
	return s.renderTemplate(c, "dashboard.html", dashboardPageData{
		CSRFToken: c.Get("csrf"),
		Email:     user.Email,
		IsAdmin:   user.IsAdmin(),
		Counts:    counts,
		Feedback:  newFeedbackViews(items),
		Notices:   notices,
		Errors:    errs,
	})
}

type adminPageData struct {
	CSRFToken any
	Email     string
	Counts    domain.SentimentCounts
	Feedback  []feedbackView
	Filter    string
	Limit     int
	Notices   []string
	Errors    []string
}

func (s *Server) handleAdmin(c echo.Context) error {
	ctx := c.Request().Context()

	user, ok := c.Get(contextKeyUser).(*domain.User)
	if !ok {
		return apperrors.InternalError("invalid user in context", nil)
	}

	filter, err := parseFeedbackFilter(c)
	if err != nil {
		return err
	}

	items, err := s.app.ListAllFeedback(ctx, filter)
	if err != nil {
		if _, ok := validationMessage(err); ok {
			return err
		}
		return apperrors.InternalError("failed to load feedback", err)
	}

	counts, err := s.app.SentimentStats(ctx, nil)
	if err != nil {
		return apperrors.InternalError("failed to load stats", err)
	}

	notices, errs := s.popFlashes(c)
	return s.renderTemplate(c, "admin.html", adminPageData{
		CSRFToken: c.Get("csrf"),
		Email:     user.Email,
		Counts:    counts,
		Feedback:  newFeedbackViews(items),
		Filter:    string(filter.Sentiment),
		Limit:     filter.Limit,
		Notices:   notices,
		Errors:    errs,
	})
}

func parseFeedbackFilter(c echo.Context) (domain.FeedbackFilter, error) {
	filter := domain.FeedbackFilter{Sentiment: domain.Sentiment(c.QueryParam("sentiment"))}

	if raw := c.QueryParam("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return filter, apperrors.ValidationError("limit must be a non-negative integer").WithField("limit", raw)
		}
		filter.Limit = limit
	}
	return filter, nil
}

func (s *Server) handleDeleteFeedback(c echo.Context) error {
	ctx := c.Request().Context()

	user, ok := c.Get(contextKeyUser).(*domain.User)
	if !ok {
		return apperrors.InternalError("invalid user in context", nil)
	}

	idStr := c.Param("id")
	feedbackID, err := uuid.Parse(idStr)
	if err != nil {
		return apperrors.ValidationError("invalid feedback ID").WithField("id", idStr)
	}

	err = s.app.DeleteFeedback(ctx, user, feedbackID)
	notFound := errors.Is(err, domain.ErrFeedbackNotFound)
	if err != nil && !notFound {
		return apperrors.InternalError("failed to delete feedback", err).WithField("feedback_id", feedbackID.String())
	}

	if c.Request().Header.Get("X-Requested-With") == "XMLHttpRequest" {
		if notFound {
			return apperrors.NotFoundError("feedback not found").WithField("feedback_id", feedbackID.String())
		}
		if err := c.NoContent(http.StatusNoContent); err != nil {
			return fmt.Errorf("failed to send no-content response: %w", err)
		}
		return nil
	}

	if notFound {
		s.addFlash(c, flashKeyError, "Feedback was already deleted.")
	} else {
		s.addFlash(c, flashKeyNotice, "Feedback deleted.")
	}
	return s.redirect(c, http.StatusSeeOther, "/admin")
}

type statsResponse struct {
	Scope    string `json:"scope"`
	Positive int    `json:"positive"`
	Negative int    `json:"negative"`
	Neutral  int    `json:"neutral"`
	Total    int    `json:"total"`
}

// handleStats returns sentiment counts: global for admins, own for users.
func (s *Server) handleStats(c echo.Context) error {
	user, ok := c.Get(contextKeyUser).(*domain.User)
	if !ok {
		return apperrors.InternalError("invalid user in context", nil)
	}

	scope := "global"
	var userID *uuid.UUID
	if !user.IsAdmin() {
		scope = "user"
		userID = &user.ID
	}

	counts, err := s.app.SentimentStats(c.Request().Context(), userID)
	if err != nil {
		return apperrors.InternalError("failed to load stats", err)
	}

	response := statsResponse{
		Scope:    scope,
		Positive: counts.Positive,
		Negative: counts.Negative,
		Neutral:  counts.Neutral,
		Total:    counts.Total(),
	}
	if err := c.JSON(http.StatusOK, response); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}
