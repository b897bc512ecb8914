package sms

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// TwilioProvider posts messages to the Twilio Messages REST endpoint.
type TwilioProvider struct {
	config *Config
	client *http.Client
}

func NewTwilioProvider(config *Config) *TwilioProvider {
	return &TwilioProvider{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

func (p *TwilioProvider) Send(ctx context.Context, to, body string) error {
	if err := p.config.Validate(); err != nil {
		return &SMSError{Type: ErrTypeConfig, Message: "provider not configured", Cause: err}
	}
	if to == "" || body == "" {
		return &SMSError{Type: ErrTypeValidation, Message: "recipient and body are required"}
	}

	form := url.Values{}
	form.Set("From", p.config.From)
	form.Set("To", to)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", strings.TrimRight(p.config.APIURL, "/"), p.config.AccountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return &SMSError{Type: ErrTypeNetwork, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(p.config.AccountSID, p.config.AuthToken)

	resp, err := p.client.Do(req)
	if err != nil {
		return &SMSError{Type: ErrTypeNetwork, Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()

	return p.handleResponse(resp)
}

func (p *TwilioProvider) handleResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	responseBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	if resp.StatusCode == http.StatusTooManyRequests {
		return &SMSError{
			Type:    ErrTypeRateLimit,
			Code:    resp.StatusCode,
			Message: "rate limit exceeded",
		}
	}
	if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized {
		return &SMSError{
			Type:    ErrTypeValidation,
			Code:    resp.StatusCode,
			Message: string(responseBody),
		}
	}

	return &SMSError{
		Type:    ErrTypeProvider,
		Code:    resp.StatusCode,
		Message: string(responseBody),
	}
}

func (p *TwilioProvider) HealthCheck(ctx context.Context) error {
	return p.config.Validate()
}
