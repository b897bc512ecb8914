package sms

import (
	"fmt"
	"time"
)

type Config struct {
	AccountSID string
	AuthToken  string
	From       string
	APIURL     string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

func (c *Config) Validate() error {
	if c.AccountSID == "" {
		return fmt.Errorf("TWILIO_ACCOUNT_SID is required")
	}
	if c.AuthToken == "" {
		return fmt.Errorf("TWILIO_AUTH_TOKEN is required")
	}
	if c.From == "" {
		return fmt.Errorf("TWILIO_FROM is required")
	}
	if c.APIURL == "" {
		return fmt.Errorf("TWILIO_API_URL is required")
	}
	return nil
}

// retryConfig derives the retry policy, falling back to DefaultRetryConfig.
func (c *Config) retryConfig() *RetryConfig {
	rc := DefaultRetryConfig()
	if c.MaxRetries > 0 {
		rc.MaxAttempts = c.MaxRetries
	}
	if c.RetryDelay > 0 {
		rc.Delay = c.RetryDelay
	}
	return rc
}
