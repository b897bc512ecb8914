package user_services

import (
	"context"
	"time"

	"github.com/iyunix/go-dualotp/internal/domain"
)

// Logger interface for all user services
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}

// SMSSender delivers a text message to an E.164 number and fails hard on
// provider errors.
type SMSSender interface {
	SendSMS(ctx context.Context, phone, message string) error
}

// EmailSender delivers (or, in development, logs) an email.
type EmailSender interface {
	SendEmail(ctx context.Context, email, subject, message string) error
}

// InitiateRequest asks for a code on one channel.
type InitiateRequest struct {
	Email   string
	Phone   string
	Purpose domain.Purpose
}

// VerifyRequest presents a code for the channel Initiate chose.
type VerifyRequest struct {
	Email   string
	Phone   string
	Code    string
	Name    string
	Purpose domain.Purpose
}

const (
	DefaultCodeTTL    = 5 * time.Minute
	DefaultSessionTTL = 7 * 24 * time.Hour
)
