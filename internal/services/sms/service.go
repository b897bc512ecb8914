package sms

import (
	"context"

	"github.com/iyunix/go-dualotp/internal/services"
)

// Sender delivers SMS through a provider with retry on transient failures.
type Sender struct {
	provider Provider
	retry    *RetryConfig
	logger   services.Logger
}

func NewSender(provider Provider, config *Config, logger services.Logger) *Sender {
	retry := DefaultRetryConfig()
	if config != nil {
		retry = config.retryConfig()
	}
	return &Sender{provider: provider, retry: retry, logger: logger}
}

// SendSMS fails hard once retries are exhausted.
func (s *Sender) SendSMS(ctx context.Context, phone, message string) error {
	err := RetryWithBackoff(ctx, s.retry, func(ctx context.Context) error {
		return s.provider.Send(ctx, phone, message)
	})
	if err != nil {
		s.logger.Error("SMS delivery failed", "phone", services.MaskContact(phone), "error", err)
		return err
	}
	s.logger.Info("SMS sent", "phone", services.MaskContact(phone))
	return nil
}
