package httpserver

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/feedbackpulse/internal/app"
	"github.com/pscheid92/feedbackpulse/internal/domain"
	"github.com/pscheid92/feedbackpulse/internal/platform/config"
	"github.com/stretchr/testify/require"
)

// --- Mock implementations ---

type mockAppService struct {
	submitFeedbackFn      func(ctx context.Context, req app.SubmitFeedbackRequest) (*domain.Feedback, error)
	classifyFn            func(ctx context.Context, text string) (domain.Classification, error)
	listFeedbackForUserFn func(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Feedback, error)
	listAllFeedbackFn     func(ctx context.Context, filter domain.FeedbackFilter) ([]*domain.Feedback, error)
	deleteFeedbackFn      func(ctx context.Context, actor *domain.User, feedbackID uuid.UUID) error
	sentimentStatsFn      func(ctx context.Context, userID *uuid.UUID) (domain.SentimentCounts, error)
	signUpFn              func(ctx context.Context, req app.SignUpRequest) (*domain.User, error)
	signInFn              func(ctx context.Context, email, password string) (*domain.User, error)
	getUserFn             func(ctx context.Context, userID uuid.UUID) (*domain.User, error)
}

func (m *mockAppService) SubmitFeedback(ctx context.Context, req app.SubmitFeedbackRequest) (*domain.Feedback, error) {
	if m.submitFeedbackFn != nil {
		return m.submitFeedbackFn(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAppService) Classify(ctx context.Context, text string) (domain.Classification, error) {
	if m.classifyFn != nil {
		return m.classifyFn(ctx, text)
	}
	return domain.Classification{}, errors.New("not implemented")
}

func (m *mockAppService) ListFeedbackForUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Feedback, error) {
	if m.listFeedbackForUserFn != nil {
		return m.listFeedbackForUserFn(ctx, userID, limit)
	}
	return nil, nil
}

func (m *mockAppService) ListAllFeedback(ctx context.Context, filter domain.FeedbackFilter) ([]*domain.Feedback, error) {
	if m.listAllFeedbackFn != nil {
		return m.listAllFeedbackFn(ctx, filter)
	}
	return nil, nil
}

func (m *mockAppService) DeleteFeedback(ctx context.Context, actor *domain.User, feedbackID uuid.UUID) error {
	if m.deleteFeedbackFn != nil {
		return m.deleteFeedbackFn(ctx, actor, feedbackID)
	}
	return nil
}

func (m *mockAppService) SentimentStats(ctx context.Context, userID *uuid.UUID) (domain.SentimentCounts, error) {
	if m.sentimentStatsFn != nil {
		return m.sentimentStatsFn(ctx, userID)
	}
	return domain.SentimentCounts{}, nil
}

func (m *mockAppService) SignUp(ctx context.Context, req app.SignUpRequest) (*domain.User, error) {
	if m.signUpFn != nil {
		return m.signUpFn(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAppService) SignIn(ctx context.Context, email, password string) (*domain.User, error) {
	if m.signInFn != nil {
		return m.signInFn(ctx, email, password)
	}
	return nil, domain.ErrInvalidCredentials
}

func (m *mockAppService) GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	if m.getUserFn != nil {
		return m.getUserFn(ctx, userID)
	}
	return nil, domain.ErrUserNotFound
}

// usersByID returns a getUserFn serving the given users.
func usersByID(users ...*domain.User) func(context.Context, uuid.UUID) (*domain.User, error) {
	return func(_ context.Context, id uuid.UUID) (*domain.User, error) {
		for _, u := range users {
			if u.ID == id {
				return u, nil
			}
		}
		return nil, domain.ErrUserNotFound
	}
}

// --- Test helpers ---

func newTestUser(role domain.Role) *domain.User {
	return &domain.User{
		ID:        uuid.New(),
		Email:     string(role) + "@example.com",
		Role:      role,
		CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func newTestFeedback(content string, sentiment domain.Sentiment, score float64) *domain.Feedback {
	return &domain.Feedback{
		ID:             uuid.New(),
		Content:        content,
		Sentiment:      sentiment,
		SentimentScore: score,
		Source:         domain.SourceFallback,
		CreatedAt:      time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC),
	}
}

func newTestServer(t *testing.T, app appService, opts ...func(*Server)) *Server {
	t.Helper()

	tmpl := template.Must(template.New("landing.html").Parse(
		`Landing{{if .User}} user:{{.User.Email}}{{end}}{{range .Notices}} notice:{{.}}{{end}}{{range .Errors}} error:{{.}}{{end}}`))
	template.Must(tmpl.New("login.html").Parse(`Login {{.Email}} {{.Error}}`))
	template.Must(tmpl.New("signup.html").Parse(`Signup {{.Email}} {{.Error}}`))
	template.Must(tmpl.New("dashboard.html").Parse(
		`Dashboard {{.Email}} {{.Counts.Positive}}/{{.Counts.Neutral}}/{{.Counts.Negative}}{{range .Feedback}} [{{.Content}}]{{end}}`))
	template.Must(tmpl.New("admin.html").Parse(
		`Admin filter:{{.Filter}}{{range .Feedback}} [{{.ID}}]{{end}}{{range .Notices}} notice:{{.}}{{end}}{{range .Errors}} error:{{.}}{{end}}`))

	store := sessions.NewCookieStore([]byte("test-secret-key-32-bytes-long!!!"))
	store.Options = &sessions.Options{
		Path:   "/",
		MaxAge: 3600,
	}

	e := echo.New()

	srv := &Server{
		echo: e,
		config: &config.Config{
			AppEnv:             "development",
			SessionMaxAge:      time.Hour,
			RateLimitPerSecond: 100,
			RateLimitBurst:     100,
		},
		app:          app,
		sessionStore: store,
		templates:    tmpl,
		startTime:    time.Now(),
	}

	for _, opt := range opts {
		opt(srv)
	}

	// Register routes so endpoints are available for testing
	srv.registerRoutes()

	return srv
}

func withHealthChecks(checks ...HealthCheck) func(*Server) {
	return func(s *Server) {
		s.healthChecks = checks
	}
}

func withWebsocketHandler(h http.Handler) func(*Server) {
	return func(s *Server) {
		s.websocketHandler = h
	}
}

func withMetricsHandler(h http.Handler) func(*Server) {
	return func(s *Server) {
		s.metricsHandler = h
	}
}

func withRateLimit(perSecond float64, burst int) func(*Server) {
	return func(s *Server) {
		s.config.RateLimitPerSecond = perSecond
		s.config.RateLimitBurst = burst
	}
}

// callHandler wraps a handler with error middleware, matching production behavior
func callHandler(handler echo.HandlerFunc, c echo.Context) error {
	return ErrorHandlingMiddleware()(handler)(c)
}

func setSessionUserID(t *testing.T, srv *Server, req *http.Request, rec *httptest.ResponseRecorder, userID uuid.UUID) {
	t.Helper()
	session, err := srv.sessionStore.Get(req, sessionName)
	require.NoError(t, err)
	session.Values[sessionKeyUserID] = userID.String()
	require.NoError(t, session.Save(req, rec))
}

// sessionCookies returns the cookies of a session signed in as userID.
func sessionCookies(t *testing.T, srv *Server, userID uuid.UUID) []*http.Cookie {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	setSessionUserID(t, srv, req, rec, userID)
	return rec.Result().Cookies()
}

func addCookies(req *http.Request, cookies []*http.Cookie) {
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
}

// findCookie returns the named cookie, or nil.
func findCookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}
