package httpserver

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/feedbackpulse/internal/adapter/metrics"
	"github.com/pscheid92/feedbackpulse/internal/app"
	"github.com/pscheid92/feedbackpulse/internal/domain"
	"github.com/pscheid92/feedbackpulse/internal/platform/config"
	"github.com/pscheid92/feedbackpulse/web"
)

type appService interface {
	SubmitFeedback(ctx context.Context, req app.SubmitFeedbackRequest) (*domain.Feedback, error)
	Classify(ctx context.Context, text string) (domain.Classification, error)
	ListFeedbackForUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Feedback, error)
	ListAllFeedback(ctx context.Context, filter domain.FeedbackFilter) ([]*domain.Feedback, error)
	DeleteFeedback(ctx context.Context, actor *domain.User, feedbackID uuid.UUID) error
	SentimentStats(ctx context.Context, userID *uuid.UUID) (domain.SentimentCounts, error)
	SignUp(ctx context.Context, req app.SignUpRequest) (*domain.User, error)
	SignIn(ctx context.Context, email, password string) (*domain.User, error)
	GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error)
}

type Server struct {
	echo   *echo.Echo
	config *config.Config

	app appService

	websocketHandler http.Handler
	metricsHandler   http.Handler
	httpMetrics      *metrics.HTTPMetrics

	templates *template.Template

	sessionStore *sessions.CookieStore
	healthChecks []HealthCheck
	startTime    time.Time
}

// Handlers groups the optional handlers mounted next to the application routes.
type Handlers struct {
	Websocket   http.Handler
	Metrics     http.Handler
	HTTPMetrics *metrics.HTTPMetrics
}

func NewServer(cfg *config.Config, app appService, handlers Handlers, healthChecks []HealthCheck) (*Server, error) {
	templates, err := template.ParseFS(web.TemplateFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:             e,
		config:           cfg,
		app:              app,
		websocketHandler: handlers.Websocket,
		metricsHandler:   handlers.Metrics,
		httpMetrics:      handlers.HTTPMetrics,
		sessionStore:     setupSessionStore(cfg),
		templates:        templates,
		healthChecks:     healthChecks,
		startTime:        time.Now(),
	}

	srv.registerRoutes()

	return srv, nil
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// Session keys
const (
	sessionName      = "feedbackpulse-session"
	sessionKeyUserID = "user_id"
	flashKeyNotice   = "notice"
	flashKeyError    = "error"
)

func (s *Server) renderTemplate(c echo.Context, name string, data any) error {
	return s.renderTemplateStatus(c, http.StatusOK, name, data)
}

func (s *Server) renderTemplateStatus(c echo.Context, status int, name string, data any) error {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		slog.ErrorContext(c.Request().Context(), "Template execution failed", "path", c.Request().URL.Path, "error", err)
		if err := c.String(http.StatusInternalServerError, "Failed to render page"); err != nil {
			return fmt.Errorf("failed to send error response: %w", err)
		}
		return nil
	}
	if err := c.HTMLBlob(status, buf.Bytes()); err != nil {
		return fmt.Errorf("failed to send HTML response: %w", err)
	}
	return nil
}

func (s *Server) redirect(c echo.Context, status int, target string) error {
	if err := c.Redirect(status, target); err != nil {
		return fmt.Errorf("failed to redirect: %w", err)
	}
	return nil
}

// addFlash stores a one-shot message shown on the next rendered page.
func (s *Server) addFlash(c echo.Context, key, message string) {
	session, err := s.sessionStore.Get(c.Request(), sessionName)
	if err != nil {
		slog.WarnContext(c.Request().Context(), "Failed to decode session for flash", "error", err)
	}
	session.AddFlash(message, key)
	if err := session.Save(c.Request(), c.Response().Writer); err != nil {
		slog.ErrorContext(c.Request().Context(), "Failed to save flash", "error", err)
	}
}

// popFlashes reads and clears the pending notice and error messages.
func (s *Server) popFlashes(c echo.Context) (notices, errs []string) {
	session, err := s.sessionStore.Get(c.Request(), sessionName)
	if err != nil {
		return nil, nil
	}

	for _, v := range session.Flashes(flashKeyNotice) {
		if msg, ok := v.(string); ok {
			notices = append(notices, msg)
		}
	}
	for _, v := range session.Flashes(flashKeyError) {
		if msg, ok := v.(string); ok {
			errs = append(errs, msg)
		}
	}

	if len(notices) > 0 || len(errs) > 0 {
		if err := session.Save(c.Request(), c.Response().Writer); err != nil {
			slog.ErrorContext(c.Request().Context(), "Failed to clear flashes", "error", err)
		}
	}
	return notices, errs
}

func setupSessionStore(cfg *config.Config) *sessions.CookieStore {
	sessionStore := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	sessionStore.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.SessionMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	}
	return sessionStore
}
