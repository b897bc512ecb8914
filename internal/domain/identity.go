// File: internal/domain/identity.go
package domain

import (
	"time"
)

// Channel is a contact route that can be verified.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelPhone Channel = "phone"
)

// Identity is one end-user account. Email and Phone are unique when set and are
// never overwritten once stored.
type Identity struct {
	ID            string    `gorm:"primaryKey;size:36" json:"user_id"`
	Name          *string   `gorm:"size:120" json:"name"`
	Email         *string   `gorm:"uniqueIndex;size:254" json:"email"`
	Phone         *string   `gorm:"uniqueIndex;size:20" json:"phone"`
	EmailVerified bool      `gorm:"not null;default:false" json:"email_verified"`
	PhoneVerified bool      `gorm:"not null;default:false" json:"phone_verified"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// IsFullyVerified reports whether both channels have been proven.
func (i *Identity) IsFullyVerified() bool {
	return i.EmailVerified && i.PhoneVerified
}

// Contact returns the stored contact value for the channel, or "" if unset.
func (i *Identity) Contact(ch Channel) string {
	var v *string
	if ch == ChannelPhone {
		v = i.Phone
	} else {
		v = i.Email
	}
	if v == nil {
		return ""
	}
	return *v
}

// MissingChannel names the channel still awaiting verification. Phone is
// reported first unless it is already verified.
func (i *Identity) MissingChannel() Channel {
	if i.PhoneVerified {
		return ChannelEmail
	}
	return ChannelPhone
}

// Promotion describes a channel-verification update. Verified flags accumulate
// (OR) and Name/Phone only fill empty columns.
type Promotion struct {
	EmailOK bool
	PhoneOK bool
	Name    *string
	Phone   *string
}

// StringPtr returns nil for an empty string so optional columns stay NULL.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
