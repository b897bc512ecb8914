package session

import (
	"context"
	"errors"

	"github.com/iyunix/go-dualotp/internal/domain"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionRepository persists authenticated sessions.
type SessionRepository interface {
	Insert(ctx context.Context, s *domain.Session) error
	FindByID(ctx context.Context, id string) (*domain.Session, error)
	// UpdateAccessToken stores the rotated token and refreshes last-seen.
	UpdateAccessToken(ctx context.Context, id, token string) error
	SetInactive(ctx context.Context, id string) error
	TouchLastSeen(ctx context.Context, id string) error
}
