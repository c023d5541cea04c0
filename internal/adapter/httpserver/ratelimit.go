package httpserver

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	apperrors "github.com/pscheid92/feedbackpulse/internal/platform/errors"
	"golang.org/x/time/rate"
)

const rateLimiterExpiry = 5 * time.Minute

// newRateLimiter limits requests per client IP. Each call creates its own
// store, so routes sharing one limiter share one budget.
func newRateLimiter(ratePerSecond float64, burst int) echo.MiddlewareFunc {
	store := middleware.NewRateLimiterMemoryStoreWithConfig(
		middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(ratePerSecond),
			Burst:     burst,
			ExpiresIn: rateLimiterExpiry,
		},
	)

	retryAfter := "1"
	if ratePerSecond > 0 && ratePerSecond < 1 {
		retryAfter = strconv.Itoa(int(1/ratePerSecond + 0.5))
	}

	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		Store: store,
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			slog.InfoContext(c.Request().Context(), "Rate limit exceeded", "client_ip", identifier, "path", c.Path())
			c.Response().Header().Set("Retry-After", retryAfter)
			limited := apperrors.RateLimitedError("rate limit exceeded")
			return c.JSON(limited.HTTPStatus(), limited.ToResponse())
		},
	})
}
