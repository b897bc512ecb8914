// File: internal/repository/session/gorm_session_repository.go
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/iyunix/go-dualotp/internal/domain"
	"github.com/iyunix/go-dualotp/internal/repository"
)

type gormSessionRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// Option configures the GORM session repository.
type Option func(*gormSessionRepository)

// WithClock overrides the wall clock used for last-seen stamps.
func WithClock(now func() time.Time) Option {
	return func(r *gormSessionRepository) { r.now = now }
}

func NewGormSessionRepository(db *gorm.DB, opts ...Option) SessionRepository {
	r := &gormSessionRepository{db: db, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *gormSessionRepository) Insert(ctx context.Context, s *domain.Session) error {
	if s == nil || strings.TrimSpace(s.ID) == "" {
		return errors.New("session id is required")
	}
	if err := r.db.WithContext(ctx).Create(s).Error; err != nil {
		log.Printf("[SessionRepository] Database error during session creation: %v", err)
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *gormSessionRepository) FindByID(ctx context.Context, id string) (*domain.Session, error) {
	if strings.TrimSpace(id) == "" {
		return nil, nil
	}
	var s domain.Session
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		if repository.IsNotFound(err) {
			return nil, nil
		}
		log.Printf("[SessionRepository] Database query error: %v", err)
		return nil, fmt.Errorf("find session: %w", err)
	}
	return &s, nil
}

func (r *gormSessionRepository) UpdateAccessToken(ctx context.Context, id, token string) error {
	return r.update(ctx, id, "update access token", map[string]interface{}{
		"access_token": token,
		"last_seen_at": r.now().UTC(),
	})
}

func (r *gormSessionRepository) SetInactive(ctx context.Context, id string) error {
	return r.update(ctx, id, "set inactive", map[string]interface{}{
		"active": false,
	})
}

func (r *gormSessionRepository) TouchLastSeen(ctx context.Context, id string) error {
	return r.update(ctx, id, "touch last seen", map[string]interface{}{
		"last_seen_at": r.now().UTC(),
	})
}

func (r *gormSessionRepository) update(ctx context.Context, id, op string, fields map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&domain.Session{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		log.Printf("[SessionRepository] Database error during %s for ID %s: %v", op, id, result.Error)
		return fmt.Errorf("%s: %w", op, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrSessionNotFound
	}
	return nil
}
