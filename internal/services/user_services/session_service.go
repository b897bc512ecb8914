// File: internal/services/user_services/session_service.go
package user_services

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"

	"github.com/iyunix/go-dualotp/internal/auth"
	"github.com/iyunix/go-dualotp/internal/domain"
	"github.com/iyunix/go-dualotp/internal/repository/session"
)

const refreshSecretBytes = 32

// SessionService mints, refreshes and revokes sessions and backs the auth guard.
type SessionService struct {
	sessions session.SessionRepository
	tokens   *auth.TokenManager
	logger   Logger

	ttl      time.Duration
	hashCost int
	now      func() time.Time
}

// SessionOption customizes a SessionService.
type SessionOption func(*SessionService)

// WithSessionTTL overrides the 7 day absolute session lifetime.
func WithSessionTTL(ttl time.Duration) SessionOption {
	return func(s *SessionService) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithHashCost sets the bcrypt cost used for refresh secrets.
func WithHashCost(cost int) SessionOption {
	return func(s *SessionService) { s.hashCost = cost }
}

// WithSessionClock replaces time.Now for expiry checks.
func WithSessionClock(now func() time.Time) SessionOption {
	return func(s *SessionService) { s.now = now }
}

func NewSessionService(sessions session.SessionRepository, tokens *auth.TokenManager, logger Logger, opts ...SessionOption) *SessionService {
	s := &SessionService{
		sessions: sessions,
		tokens:   tokens,
		logger:   logger,
		ttl:      DefaultSessionTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSession mints a session for a fully verified identity. The raw refresh
// secret is only ever returned here.
func (s *SessionService) CreateSession(ctx context.Context, identityID string) (*domain.SessionTokens, error) {
	ctx, span := tracer.Start(ctx, "SessionService.CreateSession")
	defer span.End()

	sessionID := uuid.NewString()
	secret, err := newRefreshSecret()
	if err != nil {
		return nil, domain.WrapError(domain.KindInternal, "failed to generate refresh secret", err)
	}
	hash, err := domain.HashSecret(secret, s.hashCost)
	if err != nil {
		return nil, domain.WrapError(domain.KindInternal, "failed to hash refresh secret", err)
	}
	access, err := s.tokens.Generate(identityID, sessionID)
	if err != nil {
		return nil, domain.WrapError(domain.KindInternal, "failed to sign access token", err)
	}

	now := s.now()
	err = s.sessions.Insert(ctx, &domain.Session{
		ID:               sessionID,
		IdentityID:       identityID,
		RefreshTokenHash: hash,
		AccessToken:      access,
		Active:           true,
		LastSeenAt:       now,
		ExpiresAt:        now.Add(s.ttl),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		s.logger.Error("failed to persist session", "user_id", identityID, "error", err)
		return nil, domain.WrapError(domain.KindInternal, "failed to create session", err)
	}

	return &domain.SessionTokens{
		AccessToken:  access,
		RefreshToken: secret,
		SessionID:    sessionID,
	}, nil
}

// Refresh rotates the access token of a live session. The presented access
// token may already be expired; its signature must still be valid. The refresh
// secret itself is not rotated.
func (s *SessionService) Refresh(ctx context.Context, accessToken, refreshSecret string) (string, error) {
	ctx, span := tracer.Start(ctx, "SessionService.Refresh")
	defer span.End()

	deny := func(reason string) (string, error) {
		span.SetStatus(codes.Error, reason)
		s.logger.Warn("refresh rejected", "reason", reason)
		return "", domain.NewError(domain.KindAuth, "invalid session")
	}

	if refreshSecret == "" {
		return deny("missing refresh token")
	}
	claims, err := s.tokens.ParseIgnoringExpiry(accessToken)
	if err != nil {
		return deny("bad access token")
	}

	sess, err := s.sessions.FindByID(ctx, claims.SessionID)
	if err != nil {
		span.RecordError(err)
		return "", domain.WrapError(domain.KindInternal, "failed to load session", err)
	}
	if sess == nil || !sess.Usable(s.now()) || sess.IdentityID != claims.IdentityID() {
		return deny("session not usable")
	}
	if !sess.RefreshMatches(refreshSecret) {
		return deny("refresh token mismatch")
	}

	next, err := s.tokens.Generate(sess.IdentityID, sess.ID)
	if err != nil {
		return "", domain.WrapError(domain.KindInternal, "failed to sign access token", err)
	}
	if err := s.sessions.UpdateAccessToken(ctx, sess.ID, next); err != nil {
		span.RecordError(err)
		return "", domain.WrapError(domain.KindInternal, "failed to store access token", err)
	}

	s.logger.Info("access token refreshed", "session_id", sess.ID)
	return next, nil
}

// Invalidate revokes a session permanently.
func (s *SessionService) Invalidate(ctx context.Context, sessionID string) error {
	if err := s.sessions.SetInactive(ctx, sessionID); err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return domain.WrapError(domain.KindNotFound, "session not found", err)
		}
		return domain.WrapError(domain.KindInternal, "failed to close session", err)
	}
	s.logger.Info("session closed", "session_id", sessionID)
	return nil
}

// Touch records activity. Failures are logged and never surface.
func (s *SessionService) Touch(ctx context.Context, sessionID string) {
	if err := s.sessions.TouchLastSeen(ctx, sessionID); err != nil {
		s.logger.Warn("failed to touch session", "session_id", sessionID, "error", err)
	}
}

// Authenticate resolves a bearer token to its caller. The session must be
// active, unexpired and still hold exactly this token. Every failure is
// reported as the same AUTH error.
func (s *SessionService) Authenticate(ctx context.Context, accessToken string) (*domain.Principal, error) {
	ctx, span := tracer.Start(ctx, "SessionService.Authenticate")
	defer span.End()

	unauthorized := domain.NewError(domain.KindAuth, "unauthorized")

	claims, err := s.tokens.Validate(accessToken)
	if err != nil {
		span.SetStatus(codes.Error, "bad token")
		return nil, unauthorized
	}
	sess, err := s.sessions.FindByID(ctx, claims.SessionID)
	if err != nil {
		span.RecordError(err)
		s.logger.Error("failed to load session for auth", "session_id", claims.SessionID, "error", err)
		return nil, unauthorized
	}
	if sess == nil || !sess.Usable(s.now()) || !sameToken(sess.AccessToken, accessToken) {
		span.SetStatus(codes.Error, "session rejected")
		return nil, unauthorized
	}

	s.Touch(ctx, sess.ID)
	return &domain.Principal{IdentityID: sess.IdentityID, SessionID: sess.ID}, nil
}

// sameToken compares tokens in constant time.
func sameToken(stored, presented string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) == 1
}

func newRefreshSecret() (string, error) {
	b := make([]byte, refreshSecretBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
