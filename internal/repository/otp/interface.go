package otp

import (
	"context"
	"time"

	"github.com/iyunix/go-dualotp/internal/domain"
)

// OTPRepository stores one live challenge per (contact, channel, purpose).
type OTPRepository interface {
	// Issue records a new code under the rate-limit policy. A closed or
	// missing window starts a fresh row with attempts=1; an open window
	// increments attempts without moving the window end; a capped window
	// reports the seconds left until it closes.
	Issue(ctx context.Context, req domain.IssueRequest) (domain.IssueResult, error)
	Fetch(ctx context.Context, contactKey string, channel domain.Channel, purpose domain.Purpose) (*domain.OTPChallenge, error)
	// Delete consumes challenge if the tuple still holds that exact code and
	// reports whether it was removed. Only one caller can win.
	Delete(ctx context.Context, challenge *domain.OTPChallenge) (bool, error)
}

// Policy holds the issuance limits shared by every store implementation.
type Policy struct {
	Window      time.Duration
	MaxAttempts int
	HashCost    int
}

// DefaultPolicy is a 30 minute window with three issuances.
func DefaultPolicy() Policy {
	return Policy{
		Window:      30 * time.Minute,
		MaxAttempts: 3,
	}
}

func retryAfterSeconds(windowEnd, now time.Time) int {
	secs := int(windowEnd.Sub(now) / time.Second)
	if secs < 0 {
		return 0
	}
	return secs
}
