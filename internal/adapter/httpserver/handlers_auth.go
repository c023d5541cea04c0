package httpserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/feedbackpulse/internal/app"
	"github.com/pscheid92/feedbackpulse/internal/domain"
	apperrors "github.com/pscheid92/feedbackpulse/internal/platform/errors"
)

// Echo context keys set by requireAuth.
const (
	contextKeyUserID = "userID"
	contextKeyUser   = "user"
)

func (s *Server) registerAuthRoutes(csrfMiddleware, rateLimiter echo.MiddlewareFunc) {
	s.echo.GET("/auth/login", s.handleLoginPage, csrfMiddleware)
	s.echo.POST("/auth/login", s.handleLogin, rateLimiter, csrfMiddleware)
	s.echo.GET("/auth/signup", s.handleSignupPage, csrfMiddleware)
	s.echo.POST("/auth/signup", s.handleSignup, rateLimiter, csrfMiddleware)
	s.echo.POST("/auth/logout", s.handleLogout, s.requireAuth, csrfMiddleware)
}

// sessionUser resolves the user stored in the session. A session pointing at
// a user that no longer exists is invalidated.
func (s *Server) sessionUser(c echo.Context) (*domain.User, bool) {
	session, err := s.sessionStore.Get(c.Request(), sessionName)
	if err != nil {
		return nil, false
	}

	userIDStr, ok := session.Values[sessionKeyUserID].(string)
	if !ok {
		return nil, false
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return nil, false
	}

	user, err := s.app.GetUser(c.Request().Context(), userID)
	if errors.Is(err, domain.ErrUserNotFound) {
		slog.WarnContext(c.Request().Context(), "Session references unknown user, invalidating", "user_id", userID)
		session.Options.MaxAge = -1
		_ = session.Save(c.Request(), c.Response().Writer)
		return nil, false
	}
	if err != nil {
		slog.ErrorContext(c.Request().Context(), "Failed to load session user", "user_id", userID, "error", err)
		return nil, false
	}
	return user, true
}

func (s *Server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, ok := s.sessionUser(c)
		if !ok {
			if strings.HasPrefix(c.Path(), "/api/") {
				return apperrors.UnauthorizedError("login required")
			}
			return s.redirect(c, http.StatusFound, "/auth/login")
		}

		c.Set(contextKeyUserID, user.ID)
		c.Set(contextKeyUser, user)
		return next(c)
	}
}

// requireAdmin must run after requireAuth.
func (s *Server) requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, ok := c.Get(contextKeyUser).(*domain.User)
		if !ok {
			return apperrors.InternalError("missing user in context", nil)
		}
		if !user.IsAdmin() {
			return apperrors.ForbiddenError("admin access required").WithField("user_id", user.ID.String())
		}
		return next(c)
	}
}

// homePath is where a user lands after signing in.
func homePath(user *domain.User) string {
	if user.IsAdmin() {
		return "/admin"
	}
	return "/dashboard"
}

type authPageData struct {
	CSRFToken any
	Email     string
	Error     string
}

func (s *Server) handleLoginPage(c echo.Context) error {
	if user, ok := s.sessionUser(c); ok {
		return s.redirect(c, http.StatusFound, homePath(user))
	}
	return s.renderTemplate(c, "login.html", authPageData{CSRFToken: c.Get("csrf")})
}

func (s *Server) handleLogin(c echo.Context) error {
	ctx := c.Request().Context()
	email := c.FormValue("email")

	user, err := s.app.SignIn(ctx, email, c.FormValue("password"))
	if errors.Is(err, domain.ErrInvalidCredentials) {
		data := authPageData{CSRFToken: c.Get("csrf"), Email: email, Error: "Invalid email or password."}
		return s.renderTemplateStatus(c, http.StatusUnauthorized, "login.html", data)
	}
	if err != nil {
		return apperrors.InternalError("failed to sign in", err)
	}

	if err := s.startSession(c, user); err != nil {
		return err
	}

	slog.InfoContext(ctx, "User logged in", "user_id", user.ID, "role", user.Role)
	return s.redirect(c, http.StatusSeeOther, homePath(user))
}

func (s *Server) handleSignupPage(c echo.Context) error {
	if user, ok := s.sessionUser(c); ok {
		return s.redirect(c, http.StatusFound, homePath(user))
	}
	return s.renderTemplate(c, "signup.html", authPageData{CSRFToken: c.Get("csrf")})
}

func (s *Server) handleSignup(c echo.Context) error {
	ctx := c.Request().Context()
	email := c.FormValue("email")

	user, err := s.app.SignUp(ctx, app.SignUpRequest{
		Email:     email,
		Password:  c.FormValue("password"),
		AdminCode: strings.TrimSpace(c.FormValue("admin_code")),
	})
	if err != nil {
		data := authPageData{CSRFToken: c.Get("csrf"), Email: email}
		if msg, ok := validationMessage(err); ok {
			data.Error = msg
			return s.renderTemplateStatus(c, http.StatusBadRequest, "signup.html", data)
		}
		if errors.Is(err, domain.ErrEmailTaken) {
			data.Error = "An account with this email already exists."
			return s.renderTemplateStatus(c, http.StatusConflict, "signup.html", data)
		}
		return apperrors.InternalError("failed to sign up", err)
	}

	if err := s.startSession(c, user); err != nil {
		return err
	}
	return s.redirect(c, http.StatusSeeOther, homePath(user))
}

// startSession replaces any pre-login session with a fresh one for user.
func (s *Server) startSession(c echo.Context, user *domain.User) error {
	session, err := s.sessionStore.Get(c.Request(), sessionName)
	if err == nil {
		session.Options.MaxAge = -1
		if err := session.Save(c.Request(), c.Response().Writer); err != nil {
			return apperrors.InternalError("failed to invalidate old session", err)
		}
	}

	session, err = s.sessionStore.New(c.Request(), sessionName)
	if err != nil && session == nil {
		return apperrors.InternalError("failed to create new session", err)
	}
	session.Values = map[any]any{}

	session.Values[sessionKeyUserID] = user.ID.String()
	if err := session.Save(c.Request(), c.Response().Writer); err != nil {
		return apperrors.InternalError("failed to save session", err)
	}
	return nil
}

func (s *Server) handleLogout(c echo.Context) error {
	ctx := c.Request().Context()
	userID, _ := c.Get(contextKeyUserID).(uuid.UUID)

	session, err := s.sessionStore.Get(c.Request(), sessionName)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to get session during logout", "error", err)
		session, err = s.sessionStore.New(c.Request(), sessionName)
		if err != nil && session == nil {
			return apperrors.InternalError("failed to create new session during logout", err)
		}
	}
	session.Options.MaxAge = -1

	if err := session.Save(c.Request(), c.Response().Writer); err != nil {
		return apperrors.InternalError("failed to save logout session", err)
	}

	slog.InfoContext(ctx, "User logged out", "user_id", userID)
	return s.redirect(c, http.StatusSeeOther, "/")
}
