package sms

import "context"

// Provider delivers one text message to an E.164 number.
type Provider interface {
	Send(ctx context.Context, to, body string) error
	HealthCheck(ctx context.Context) error
}
