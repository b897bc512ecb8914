package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/iyunix/go-dualotp/internal/domain"
	"github.com/iyunix/go-dualotp/internal/dtos"
)

func writeError(w http.ResponseWriter, status int, kind domain.ErrorKind, message string, data interface{}) {
	env := dtos.NewEnvelope(status, message)
	env.Kind = kind
	env.Data = data
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(env)
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
