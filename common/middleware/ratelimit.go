package middleware

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/distrodissect/dissector/common/ratelimit"
)

// RequestLimits configures the work-enqueueing rate limits
type RequestLimits struct {
	// Global caps enqueued work across all clients per minute
	Global int64
	// PerClient caps requests from one remote address per minute
	PerClient int64
}

// DefaultRequestLimits suits a single worker consuming the queue
var DefaultRequestLimits = RequestLimits{
	Global:    120,
	PerClient: 30,
}

// RateLimit guards the endpoints that enqueue comparison or diff work.
// Reads stay unlimited; only job-producing routes should carry this.
func RateLimit(limiter *ratelimit.RateLimiter, limits RequestLimits) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()

			// Limit checks fail open
			result, err := limiter.CheckGlobalLimit(ctx, limits.Global)
			if err != nil {
				return next(c)
			}
			if !result.Allowed {
				return tooManyRequests(c, result)
			}

			result, err = limiter.CheckClientLimit(ctx, c.RealIP(), limits.PerClient, 60)
			if err != nil {
				return next(c)
			}
			if !result.Allowed {
				return tooManyRequests(c, result)
			}

			return next(c)
		}
	}
}

func tooManyRequests(c echo.Context, result *ratelimit.Result) error {
	c.Response().Header().Set("Retry-After", fmt.Sprintf("%d", result.RetryAfterSeconds))
	return c.JSON(http.StatusTooManyRequests, map[string]any{
		"error":       "rate limit exceeded",
		"retry_after": result.RetryAfterSeconds,
	})
}
