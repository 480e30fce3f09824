package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Allower decides whether a request identified by key may proceed.
type Allower interface {
	Allow(key string, capacity, refillPerSec float64) bool
}

// RateLimit throttles requests per client IP using a token bucket per route.
func RateLimit(limiter Allower, capacity, refillPerSec float64) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if limiter == nil || capacity <= 0 {
				return next(c)
			}
			key := c.Path() + "|" + c.RealIP()
			if !limiter.Allow(key, capacity, refillPerSec) {
				return c.JSON(http.StatusTooManyRequests, map[string]string{
					"detail": "Request was throttled.",
				})
			}
			return next(c)
		}
	}
}
