// File: internal/middleware/logger.go
package middleware

import (
	"net/http"
	"time"

	"github.com/iyunix/go-dualotp/internal/services"
)

// LoggingMiddleware logs method, path, status and duration of every request.
func LoggingMiddleware(logger services.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapper := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapper, r)

			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapper.statusCode,
				"remote", r.RemoteAddr,
				"duration", time.Since(start),
			)
		})
	}
}
