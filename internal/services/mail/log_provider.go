package mail

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

func (p *LogProvider) Send(ctx context.Context, msg Message) error {
	p.logger.Info("[dev] email skipped", "to", msg.To, "subject", msg.Subject, "body", msg.Body)
	return nil
}
