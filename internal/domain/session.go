// File: internal/domain/session.go
package domain

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Session is one authenticated client session. Only the bcrypt hash of the
// refresh secret is persisted.
type Session struct {
	ID               string    `gorm:"primaryKey;size:36"`
	IdentityID       string    `gorm:"not null;size:36;index"`
	RefreshTokenHash string    `gorm:"not null;size:100"`
	AccessToken      string    `gorm:"type:text;not null"`
	Active           bool      `gorm:"not null;default:true;index"`
	LastSeenAt       time.Time `gorm:"not null"`
	ExpiresAt        time.Time `gorm:"not null"`
	CreatedAt        time.Time
}

// TableName pins the table name.
func (Session) TableName() string {
	return "user_sessions"
}

// Usable reports whether the session can still authenticate at now.
func (s *Session) Usable(now time.Time) bool {
	return s.Active && now.Before(s.ExpiresAt)
}

// RefreshMatches compares a presented refresh secret against the stored hash.
func (s *Session) RefreshMatches(secret string) bool {
	return bcrypt.CompareHashAndPassword([]byte(s.RefreshTokenHash), []byte(secret)) == nil
}

// SessionTokens is returned once, when a session is minted.
type SessionTokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	SessionID    string `json:"sessionId"`
}

// Principal is the authenticated caller exposed to protected handlers.
type Principal struct {
	IdentityID string
	SessionID  string
}
