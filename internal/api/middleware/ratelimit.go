package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// MessageLimiter is the slice of the Redis store the rate limiter needs.
type MessageLimiter interface {
	AllowMessage(ctx context.Context, userID string, limit int, window time.Duration) (bool, error)
}

// RateLimiter throttles message posting per authenticated user using a
// fixed window counter in Redis.
type RateLimiter struct {
	limiter MessageLimiter
	log     zerolog.Logger
	limit   int
	window  time.Duration
}

// NewRateLimiter creates a rate limiter allowing limit messages per window.
func NewRateLimiter(limiter MessageLimiter, logger zerolog.Logger, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{limiter: limiter, log: logger, limit: limit, window: window}
}

// Middleware enforces the limit for the authenticated user. Requests
// without an authenticated user pass through; RequireAuth runs first.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := GetUserFromContext(r.Context())
		if user == nil {
			next.ServeHTTP(w, r)
			return
		}

		allowed, err := rl.limiter.AllowMessage(r.Context(), user.ID, rl.limit, rl.window)
		if err != nil {
			// Fail open: the limiter is protection, not a dependency.
			rl.log.Warn().Err(err).Msg("rate limit check failed")
			next.ServeHTTP(w, r)
			return
		}
		if !allowed {
			jsonError(w, http.StatusTooManyRequests, "message rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}
