// File: internal/middleware/ratelimit.go
package middleware

import (
	"fmt"
	"log"
	"net/http"

	"github.com/iyunix/go-dualotp/internal/domain"
	"github.com/iyunix/go-dualotp/internal/ratelimit"
)

// RateLimitMiddleware limits requests per client IP. name scopes the counter
// so each route group gets its own budget.
func RateLimitMiddleware(limiter *ratelimit.MemoryRateLimiter, name string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := limiter.ClientIP(r)
			allowed, info := limiter.Allow(name + ":" + clientIP)

			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
			w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
			w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))

			if !allowed {
				log.Printf("[RateLimit] Blocked %s request from %s", name, clientIP)
				retryAfter := int(info.RetryAfter.Seconds())
				w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
				writeError(w, http.StatusTooManyRequests, domain.KindRateLimited,
					"Too many requests. Please try again later.",
					map[string]interface{}{"retryAfter": retryAfter})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ResetOnSuccess clears the client's counter after a 2xx response, so a
// completed verification does not eat into the next one's budget.
func ResetOnSuccess(limiter *ratelimit.MemoryRateLimiter, name string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wrapper := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapper, r)

			if wrapper.statusCode >= 200 && wrapper.statusCode < 300 {
				limiter.RecordSuccess(name + ":" + limiter.ClientIP(r))
			}
		})
	}
}
