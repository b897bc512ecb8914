// File: internal/repository/identity/gorm_identity_repository.go
package identity

import (
	"context"
	"fmt"
	"log"
	"strings"

	"gorm.io/gorm"

	"github.com/iyunix/go-dualotp/internal/domain"
	"github.com/iyunix/go-dualotp/internal/repository"
)

type gormIdentityRepository struct {
	db *gorm.DB
}

func NewGormIdentityRepository(db *gorm.DB) IdentityRepository {
	return &gormIdentityRepository{db: db}
}

func (r *gormIdentityRepository) FindByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	if strings.TrimSpace(email) == "" {
		return nil, nil
	}
	return r.findOne(ctx, "email = ?", email)
}

func (r *gormIdentityRepository) FindByPhone(ctx context.Context, phone string) (*domain.Identity, error) {
	if strings.TrimSpace(phone) == "" {
		return nil, nil
	}
	return r.findOne(ctx, "phone = ?", phone)
}

func (r *gormIdentityRepository) FindByID(ctx context.Context, id string) (*domain.Identity, error) {
	if strings.TrimSpace(id) == "" {
		return nil, nil
	}
	return r.findOne(ctx, "id = ?", id)
}

// Insert creates a skeleton identity with both verified flags cleared.
func (r *gormIdentityRepository) Insert(ctx context.Context, identity *domain.Identity) error {
	if identity == nil || strings.TrimSpace(identity.ID) == "" {
		return fmt.Errorf("identity id is required")
	}
	identity.EmailVerified = false
	identity.PhoneVerified = false

	if err := r.db.WithContext(ctx).Create(identity).Error; err != nil {
		if repository.IsDuplicateKey(err) {
			return domain.ErrContactTaken
		}
		log.Printf("[IdentityRepository] Database error during identity creation: %v", err)
		return fmt.Errorf("insert identity: %w", err)
	}
	return nil
}

func (r *gormIdentityRepository) PromoteChannel(ctx context.Context, id string, p domain.Promotion) error {
	result := r.db.WithContext(ctx).Model(&domain.Identity{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"email_verified": gorm.Expr("email_verified OR ?", p.EmailOK),
			"phone_verified": gorm.Expr("phone_verified OR ?", p.PhoneOK),
			"name":           gorm.Expr("COALESCE(name, ?)", p.Name),
			"phone":          gorm.Expr("COALESCE(phone, ?)", p.Phone),
		})
	return r.checkUpdate(result, id, "promote channel")
}

func (r *gormIdentityRepository) FillMissingContact(ctx context.Context, id string, email, phone *string) error {
	if email == nil && phone == nil {
		return nil
	}
	result := r.db.WithContext(ctx).Model(&domain.Identity{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"email": gorm.Expr("COALESCE(email, ?)", email),
			"phone": gorm.Expr("COALESCE(phone, ?)", phone),
		})
	return r.checkUpdate(result, id, "fill missing contact")
}

func (r *gormIdentityRepository) findOne(ctx context.Context, query string, arg interface{}) (*domain.Identity, error) {
	var identity domain.Identity
	err := r.db.WithContext(ctx).Where(query, arg).First(&identity).Error
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, nil
		}
		log.Printf("[IdentityRepository] Database query error: %v", err)
		return nil, fmt.Errorf("find identity: %w", err)
	}
	return &identity, nil
}

func (r *gormIdentityRepository) checkUpdate(result *gorm.DB, id, op string) error {
	if result.Error != nil {
		if repository.IsDuplicateKey(result.Error) {
			return domain.ErrContactTaken
		}
		log.Printf("[IdentityRepository] Database error during %s for ID %s: %v", op, id, result.Error)
		return fmt.Errorf("%s: %w", op, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrIdentityNotFound
	}
	return nil
}
