// File: internal/middleware/constants.go
package middleware

import (
	"context"

	"github.com/iyunix/go-dualotp/internal/domain"
)

// Context keys for middleware communication
type contextKey string

const (
	IdentityIDKey contextKey = "user_id"
	SessionIDKey  contextKey = "session_id"
)

// WithPrincipal stores the authenticated caller on ctx.
func WithPrincipal(ctx context.Context, p *domain.Principal) context.Context {
	ctx = context.WithValue(ctx, IdentityIDKey, p.IdentityID)
	return context.WithValue(ctx, SessionIDKey, p.SessionID)
}

// PrincipalFromContext returns the caller placed by RequireSession.
func PrincipalFromContext(ctx context.Context) (*domain.Principal, bool) {
	identityID, ok := ctx.Value(IdentityIDKey).(string)
	if !ok || identityID == "" {
		return nil, false
	}
	sessionID, ok := ctx.Value(SessionIDKey).(string)
	if !ok || sessionID == "" {
		return nil, false
	}
	return &domain.Principal{IdentityID: identityID, SessionID: sessionID}, true
}
