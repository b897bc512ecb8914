package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/iyunix/go-dualotp/internal/domain"
	"github.com/iyunix/go-dualotp/internal/dtos"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeOutcome renders a business outcome from the verification engine.
func writeOutcome(w http.ResponseWriter, o *domain.Outcome) {
	status := o.HTTPStatus()
	env := dtos.NewEnvelope(status, o.Message)
	if data := o.Data(); data != nil {
		env.Data = data
	}
	env.Errors = o.Errors

	switch o.Status {
	case domain.StatusConflict:
		env.Kind = domain.KindConflict
	case domain.StatusRateLimited:
		env.Kind = domain.KindRateLimited
		w.Header().Set("Retry-After", strconv.Itoa(o.RetryAfter))
	case domain.StatusValidationFailed:
		env.Kind = domain.KindValidation
	}
	writeJSON(w, status, env)
}

// writeError renders a failure with its kind. Messages of non-domain errors
// are never exposed.
func writeError(w http.ResponseWriter, err error) {
	kind := domain.KindOf(err)
	status := domain.StatusForKind(kind)
	message := "internal server error"

	var ae *domain.AuthError
	if errors.As(err, &ae) {
		message = ae.Message
		if ae.RetryAfter > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(ae.RetryAfter))
		}
	}
	if status >= http.StatusInternalServerError {
		log.Printf("[Handler] %s: %v", kind, err)
	}

	env := dtos.NewEnvelope(status, message)
	env.Kind = kind
	writeJSON(w, status, env)
}

func writeSuccess(w http.ResponseWriter, message string, data interface{}) {
	env := dtos.NewEnvelope(http.StatusOK, message)
	env.Data = data
	writeJSON(w, http.StatusOK, env)
}

func decodeBody(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return domain.NewError(domain.KindValidation, "request body is required")
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(dst); err != nil {
		return domain.WrapError(domain.KindValidation, "invalid JSON body", err)
	}
	return nil
}
