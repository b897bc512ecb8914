package sms

import (
	"context"

	"github.com/iyunix/go-dualotp/internal/services"
)

// LogProvider skips delivery and logs the message. Used in development.
type LogProvider struct {
	logger services.Logger
}

func NewLogProvider(logger services.Logger) *LogProvider {
	return &LogProvider{logger: logger}
}

func (p *LogProvider) Send(ctx context.Context, to, body string) error {
	p.logger.Info("[dev] SMS skipped", "to", to, "body", body)
	return nil
}

func (p *LogProvider) HealthCheck(ctx context.Context) error {
	return nil
}
