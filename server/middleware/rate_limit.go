// Package middleware holds the HTTP middleware shared by the API surface.
package middleware

import (
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	apierr "github.com/studypace/studypace/server/internal/errors"
)

// RateLimiter keeps one token bucket per caller key. Attempt ingestion is
// the hot write path; the limiter shields the card table from a runaway
// client replaying attempts.
type RateLimiter struct {
	limit rate.Limit
	burst int

	mu     sync.Mutex
	limits map[string]*rate.Limiter
}

// NewRateLimiter creates a rate limiter allowing rps requests per second
// per key with the given burst.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if rps <= 0 {
		rps = 10
	}
	if burst <= 0 {
		burst = 20
	}
	return &RateLimiter{
		limit:  rate.Limit(rps),
		burst:  burst,
		limits: make(map[string]*rate.Limiter),
	}
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if limiter, ok := rl.limits[key]; ok {
		return limiter
	}
	limiter := rate.NewLimiter(rl.limit, rl.burst)
	rl.limits[key] = limiter
	return limiter
}

// Allow checks if a request is allowed for the given key.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.getLimiter(key).Allow()
}

// Middleware limits requests per caller: the :user path param when present,
// the remote address otherwise. Over-limit requests get 429 with a
// machine-readable code.
func (rl *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.Param("user")
			if key == "" {
				key = c.RealIP()
			}
			if !rl.Allow(key) {
				return echo.NewHTTPError(http.StatusTooManyRequests, echo.Map{
					"code":    apierr.ErrCodeRateLimitExceeded,
					"message": "too many requests",
				})
			}
			return next(c)
		}
	}
}

// Wait blocks until a request is allowed for the given key or ctx expires.
func (rl *RateLimiter) Wait(c echo.Context, key string) error {
	return rl.getLimiter(key).Wait(c.Request().Context())
}

// Sweep drops idle limiters. Intended to be called periodically; a bucket
// that refilled completely carries no state worth keeping.
func (rl *RateLimiter) Sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, limiter := range rl.limits {
		if limiter.Tokens() >= float64(rl.burst) {
			delete(rl.limits, key)
		}
	}
}
