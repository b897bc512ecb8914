package mail

import (
	"context"

	"github.com/iyunix/go-dualotp/internal/services"
)

// Sender adapts a Provider to the verification service's email collaborator.
type Sender struct {
	provider Provider
	logger   services.Logger
}

func NewSender(provider Provider, logger services.Logger) *Sender {
	return &Sender{provider: provider, logger: logger}
}

func (s *Sender) SendEmail(ctx context.Context, to, subject, body string) error {
	if err := s.provider.Send(ctx, Message{To: to, Subject: subject, Body: body}); err != nil {
		s.logger.Error("email delivery failed", "email", services.MaskContact(to), "error", err)
		return err
	}
	s.logger.Info("email sent", "email", services.MaskContact(to))
	return nil
}
