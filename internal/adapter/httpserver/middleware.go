package httpserver

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/feedbackpulse/internal/domain"
	"github.com/pscheid92/feedbackpulse/internal/platform/correlation"
	apperrors "github.com/pscheid92/feedbackpulse/internal/platform/errors"
)

// correlationMiddleware reuses a well-formed X-Request-ID or assigns a fresh
// ID, and echoes it back on the response.
func correlationMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := correlation.FromHeader(c.Request().Header.Get(correlation.HeaderName))
		ctx := correlation.WithID(c.Request().Context(), id)
		c.SetRequest(c.Request().WithContext(ctx))
		c.Response().Header().Set(correlation.HeaderName, id)
		return next(c)
	}
}

func ErrorHandlingMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}

			var httpErr *echo.HTTPError
			if errors.As(err, &httpErr) {
				if _, ok := httpErrorTypes[httpErr.Code]; !ok {
					return err
				}
				return HandleError(c, WrapHTTPError(httpErr))
			}

			return HandleError(c, err)
		}
	}
}

// toStructuredError maps domain sentinels onto typed errors before falling
// back to apperrors.AsStructuredError.
func toStructuredError(err error) *apperrors.Error {
	var structuredErr *apperrors.Error
	if errors.As(err, &structuredErr) {
		return structuredErr
	}

	switch {
	case errors.Is(err, domain.ErrFeedbackNotFound):
		return apperrors.NotFoundError("feedback not found")
	case errors.Is(err, domain.ErrUserNotFound):
		return apperrors.NotFoundError("user not found")
	case errors.Is(err, domain.ErrForbidden):
		return apperrors.ForbiddenError("admin access required")
	case errors.Is(err, domain.ErrEmailTaken):
		return apperrors.ConflictError("email already registered")
	case errors.Is(err, domain.ErrInvalidCredentials):
		return apperrors.UnauthorizedError("invalid email or password")
	}

	return apperrors.AsStructuredError(err)
}

func logError(c echo.Context, err *apperrors.Error) {
	attrs := []any{
		"error_type", err.Type,
		"message", err.Message,
		"path", c.Request().URL.Path,
		"method", c.Request().Method,
		"status", err.HTTPStatus(),
	}

	for k, v := range err.Context {
		attrs = append(attrs, k, v)
	}

	if userID := c.Get(contextKeyUserID); userID != nil {
		attrs = append(attrs, "user_id", userID)
	}

	ctx := c.Request().Context()
	switch err.Type {
	case apperrors.TypeValidation:
		slog.InfoContext(ctx, "Validation error", attrs...)
	case apperrors.TypeNotFound:
		slog.InfoContext(ctx, "Not found", attrs...)
	case apperrors.TypeUnauthorized:
		slog.InfoContext(ctx, "Unauthorized", attrs...)
	case apperrors.TypeForbidden:
		slog.WarnContext(ctx, "Forbidden", attrs...)
	case apperrors.TypeConflict:
		slog.WarnContext(ctx, "Conflict", attrs...)
	case apperrors.TypeInternal:
		if err.Cause != nil {
			attrs = append(attrs, "cause", err.Cause)
		}
		slog.ErrorContext(ctx, "Internal error", attrs...)
	case apperrors.TypeExternal:
		if err.Cause != nil {
			attrs = append(attrs, "cause", err.Cause)
		}
		slog.ErrorContext(ctx, "External service error", attrs...)
	default:
		slog.ErrorContext(ctx, "Unknown error type", attrs...)
	}
}

func HandleError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}

	structuredErr := toStructuredError(err)
	logError(c, structuredErr)
	if err := c.JSON(structuredErr.HTTPStatus(), structuredErr.ToResponse()); err != nil {
		return fmt.Errorf("failed to write error response: %w", err)
	}
	return nil
}

// validationMessage returns the client-facing message of a validation error.
func validationMessage(err error) (string, bool) {
	var structuredErr *apperrors.Error
	if errors.As(err, &structuredErr) && structuredErr.Type == apperrors.TypeValidation {
		return structuredErr.Message, true
	}
	return "", false
}

// httpErrorTypes lists the echo errors rendered as structured responses.
// Other codes are left to echo's default handler.
var httpErrorTypes = map[int]apperrors.ErrorType{
	http.StatusBadRequest:          apperrors.TypeValidation,
	http.StatusUnauthorized:        apperrors.TypeUnauthorized,
	http.StatusForbidden:           apperrors.TypeForbidden,
	http.StatusNotFound:            apperrors.TypeNotFound,
	http.StatusConflict:            apperrors.TypeConflict,
	http.StatusInternalServerError: apperrors.TypeInternal,
	http.StatusBadGateway:          apperrors.TypeExternal,
	http.StatusServiceUnavailable:  apperrors.TypeExternal,
}

func WrapHTTPError(httpErr *echo.HTTPError) *apperrors.Error {
	message := "internal server error"
	if httpErr.Message != nil {
		if msg, ok := httpErr.Message.(string); ok {
			message = msg
		}
	}

	errType, ok := httpErrorTypes[httpErr.Code]
	if !ok {
		errType = apperrors.TypeInternal
	}

	err := &apperrors.Error{
		Type:    errType,
		Message: message,
		Context: make(map[string]any),
	}

	if httpErr.Internal != nil {
		err.Cause = httpErr.Internal
	}

	return err
}
