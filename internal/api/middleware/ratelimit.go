package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/nikhilgowda/feedpulse/internal/api/response"
	"github.com/nikhilgowda/feedpulse/internal/cache"
)

// RateLimit enforces a fixed-window request limit per client IP. The
// window counter lives in redis so all replicas share the same budget.
// If redis is unreachable the request is allowed through; rate limiting
// is protection, not a dependency.
func RateLimit(c cache.Cache, perMinute int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller := clientIP(r)

			count, err := c.IncrWithExpiry(r.Context(), cache.RateLimitKey(caller), time.Minute)
			if err != nil {
				slog.Warn("rate limit check failed, allowing request", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			if count > int64(perMinute) {
				response.Error(w, http.StatusTooManyRequests,
					"RATE_LIMITED", "Too many requests, slow down", nil)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
