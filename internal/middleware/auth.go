package middleware

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/iyunix/go-dualotp/internal/domain"
)

// Authenticator resolves a bearer access token to its caller.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*domain.Principal, error)
}

// RequireSession rejects requests without a live session with 401 and
// exposes the identity and session ids to the next handler.
func RequireSession(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, domain.KindAuth, "unauthorized", nil)
				return
			}

			principal, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				log.Printf("[AuthMiddleware] Rejected %s %s: %v", r.Method, r.URL.Path, err)
				writeError(w, http.StatusUnauthorized, domain.KindAuth, "unauthorized", nil)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
