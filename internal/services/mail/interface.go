package mail

import "context"

// Message is a single plain-text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Provider delivers one email.
type Provider interface {
	Send(ctx context.Context, msg Message) error
}
