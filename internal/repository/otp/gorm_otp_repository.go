// File: internal/repository/otp/gorm_otp_repository.go
package otp

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/iyunix/go-dualotp/internal/domain"
	"github.com/iyunix/go-dualotp/internal/repository"
)

// GormOTPRepository implements OTPRepository using GORM.
type GormOTPRepository struct {
	db     *gorm.DB
	policy Policy
	now    func() time.Time
}

// GormOption configures a GormOTPRepository.
type GormOption func(*GormOTPRepository)

// WithGormClock overrides the wall clock used for windows and expiry.
func WithGormClock(now func() time.Time) GormOption {
	return func(r *GormOTPRepository) { r.now = now }
}

// NewGormOTPRepository creates a new OTP repository.
func NewGormOTPRepository(db *gorm.DB, policy Policy, opts ...GormOption) *GormOTPRepository {
	r := &GormOTPRepository{db: db, policy: policy, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *GormOTPRepository) Issue(ctx context.Context, req domain.IssueRequest) (domain.IssueResult, error) {
	now := r.now().UTC()

	existing, err := r.Fetch(ctx, req.ContactKey, req.Channel, req.Purpose)
	if err != nil {
		return domain.IssueResult{}, err
	}

	if existing == nil || existing.WindowElapsed(now) {
		return r.replace(ctx, req, now)
	}

	if existing.Attempts >= r.policy.MaxAttempts {
		return domain.IssueResult{OK: false, RetryAfter: retryAfterSeconds(existing.WindowEnd, now)}, nil
	}

	hash, err := domain.HashSecret(req.Code, r.policy.HashCost)
	if err != nil {
		return domain.IssueResult{}, fmt.Errorf("hash otp: %w", err)
	}

	// Conditional increment: a concurrent issuance that already hit the cap
	// leaves RowsAffected at zero.
	result := r.db.WithContext(ctx).Model(&domain.OTPChallenge{}).
		Where("id = ? AND attempts < ?", existing.ID, r.policy.MaxAttempts).
		Updates(map[string]interface{}{
			"attempts":   gorm.Expr("attempts + 1"),
			"code_hash":  hash,
			"expires_at": now.Add(req.TTL),
		})
	if result.Error != nil {
		log.Printf("[OTPRepository] Database error incrementing attempts for %s: %v", existing.ID, result.Error)
		return domain.IssueResult{}, fmt.Errorf("update otp: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.IssueResult{OK: false, RetryAfter: retryAfterSeconds(existing.WindowEnd, now)}, nil
	}

	return domain.IssueResult{OK: true, Remaining: r.policy.MaxAttempts - (existing.Attempts + 1)}, nil
}

// replace starts a fresh window for the tuple, overwriting any stale row.
func (r *GormOTPRepository) replace(ctx context.Context, req domain.IssueRequest, now time.Time) (domain.IssueResult, error) {
	hash, err := domain.HashSecret(req.Code, r.policy.HashCost)
	if err != nil {
		return domain.IssueResult{}, fmt.Errorf("hash otp: %w", err)
	}

	row := domain.OTPChallenge{
		ID:         uuid.NewString(),
		ContactKey: req.ContactKey,
		Channel:    req.Channel,
		Purpose:    req.Purpose,
		CodeHash:   hash,
		Attempts:   1,
		WindowEnd:  now.Add(r.policy.Window),
		ExpiresAt:  now.Add(req.TTL),
	}

	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "contact_key"}, {Name: "channel"}, {Name: "purpose"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"id", "code_hash", "attempts", "window_end", "expires_at", "updated_at",
		}),
	}).Create(&row).Error
	if err != nil {
		log.Printf("[OTPRepository] Database error replacing challenge: %v", err)
		return domain.IssueResult{}, fmt.Errorf("replace otp: %w", err)
	}

	return domain.IssueResult{OK: true, Remaining: r.policy.MaxAttempts - 1}, nil
}

// Fetch returns the challenge for the tuple, or nil if there is none.
func (r *GormOTPRepository) Fetch(ctx context.Context, contactKey string, channel domain.Channel, purpose domain.Purpose) (*domain.OTPChallenge, error) {
	var challenge domain.OTPChallenge
	err := r.db.WithContext(ctx).
		Where("contact_key = ? AND channel = ? AND purpose = ?", contactKey, channel, purpose).
		First(&challenge).Error
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch otp: %w", err)
	}
	return &challenge, nil
}

func (r *GormOTPRepository) Delete(ctx context.Context, challenge *domain.OTPChallenge) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("id = ? AND code_hash = ?", challenge.ID, challenge.CodeHash).
		Delete(&domain.OTPChallenge{})
	if result.Error != nil {
		return false, fmt.Errorf("delete otp: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

// DeleteExpired removes rows whose rate-limit window has closed. Rows with an
// expired code but an open window are kept so the attempt count survives.
func (r *GormOTPRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("window_end < ?", r.now().UTC()).
		Delete(&domain.OTPChallenge{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete expired otps: %w", result.Error)
	}
	return result.RowsAffected, nil
}
