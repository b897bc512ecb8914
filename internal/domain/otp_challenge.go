// File: internal/domain/otp_challenge.go
package domain

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Purpose is the business reason an OTP was issued for.
type Purpose string

const (
	PurposeRegistration Purpose = "registration"
	PurposeLogin        Purpose = "login"
)

// Valid reports whether p is a known purpose.
func (p Purpose) Valid() bool {
	return p == PurposeRegistration || p == PurposeLogin
}

// OTPChallenge is the single outstanding code for a (contact, channel, purpose)
// tuple. The plaintext code is never stored.
type OTPChallenge struct {
	ID         string  `gorm:"primaryKey;size:36"`
	ContactKey string  `gorm:"not null;size:254;uniqueIndex:idx_otp_tuple"`
	Channel    Channel `gorm:"not null;size:10;uniqueIndex:idx_otp_tuple"`
	Purpose    Purpose `gorm:"not null;size:20;uniqueIndex:idx_otp_tuple"`
	CodeHash   string  `gorm:"not null;size:100"`

	// Attempts counts issuances inside the current rate-limit window.
	Attempts  int       `gorm:"not null;default:1"`
	WindowEnd time.Time `gorm:"not null"`
	ExpiresAt time.Time `gorm:"index;not null"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName pins the table name.
func (OTPChallenge) TableName() string {
	return "otps"
}

// IsExpired reports whether the code lifetime has elapsed at now.
func (c *OTPChallenge) IsExpired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// WindowElapsed reports whether the rate-limit window has closed at now.
func (c *OTPChallenge) WindowElapsed(now time.Time) bool {
	return now.After(c.WindowEnd)
}

// Matches compares a presented code against the stored hash.
func (c *OTPChallenge) Matches(code string) bool {
	return bcrypt.CompareHashAndPassword([]byte(c.CodeHash), []byte(code)) == nil
}

// HashSecret salts and hashes a code or refresh secret for storage.
func HashSecret(secret string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// IssueRequest asks the OTP store to record a freshly generated code.
type IssueRequest struct {
	ContactKey string
	Channel    Channel
	Purpose    Purpose
	Code       string
	TTL        time.Duration
}

// IssueResult reports the outcome of a rate-limited issuance.
type IssueResult struct {
	OK         bool
	Remaining  int
	RetryAfter int // seconds, only set when OK is false
}
