package middleware

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/almoud/foodcost/pkg/httputil"
	"github.com/almoud/foodcost/pkg/observability"
)

// RateLimiter throttles requests per client IP using a fixed window counter
// in Redis. A Redis outage fails open: throttling is protection, not a
// correctness requirement, and login must keep working without it.
type RateLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
	logger *observability.Logger
}

// NewRateLimiter creates a limiter allowing limit requests per window.
func NewRateLimiter(client *redis.Client, limit int, window time.Duration, prefix string, logger *observability.Logger) *RateLimiter {
	return &RateLimiter{
		client: client,
		limit:  limit,
		window: window,
		prefix: prefix,
		logger: logger,
	}
}

// Handler rejects clients over the limit with 429. The window is keyed by
// client IP plus the attempted email, so one address hammering a single
// account does not lock out the rest of a NAT.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := fmt.Sprintf("%s:%s", rl.prefix, clientIP(r))
		if email := httputil.PeekBodyField(r, "email"); email != "" {
			key += ":" + email
		}

		count, err := rl.client.Incr(r.Context(), key).Result()
		if err != nil {
			rl.logger.WithError(err).Warn("rate limiter unavailable, allowing request")
			next.ServeHTTP(w, r)
			return
		}
		if count == 1 {
			if err := rl.client.Expire(r.Context(), key, rl.window).Err(); err != nil {
				rl.logger.WithError(err).Warn("failed to set rate limit window")
			}
		}

		if count > int64(rl.limit) {
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(rl.window.Seconds())))
			httputil.WriteTooManyRequests(w, "too many attempts, slow down")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
