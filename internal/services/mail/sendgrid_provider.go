package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

// SendGridProvider talks to the SendGrid v3 mail/send endpoint.
type SendGridProvider struct {
	config *Config
	client *http.Client
}

func NewSendGridProvider(config *Config) *SendGridProvider {
	return &SendGridProvider{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}
}

type sgAddress struct {
	Email string `json:"email"`
}

type sgPersonalization struct {
	To []sgAddress `json:"to"`
}

type sgContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sgRequest struct {
	Personalizations []sgPersonalization `json:"personalizations"`
	From             sgAddress           `json:"from"`
	Subject          string              `json:"subject"`
	Content          []sgContent         `json:"content"`
}

func (p *SendGridProvider) Send(ctx context.Context, msg Message) error {
	if err := p.config.Validate(); err != nil {
		return &MailError{Type: ErrTypeConfig, Message: "provider not configured", Cause: err}
	}
	if msg.To == "" {
		return &MailError{Type: ErrTypeValidation, Message: "recipient is required"}
	}

	payload := sgRequest{
		Personalizations: []sgPersonalization{{To: []sgAddress{{Email: msg.To}}}},
		From:             sgAddress{Email: p.config.From},
		Subject:          msg.Subject,
		Content:          []sgContent{{Type: "text/plain", Value: msg.Body}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return &MailError{Type: ErrTypeValidation, Message: "failed to encode message", Cause: err}
	}

	endpoint := strings.TrimRight(p.config.APIURL, "/") + "/mail/send"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return &MailError{Type: ErrTypeNetwork, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.config.APIKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return &MailError{Type: ErrTypeNetwork, Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &MailError{Type: ErrTypeProvider, Code: resp.StatusCode, Message: string(respBody)}
}
