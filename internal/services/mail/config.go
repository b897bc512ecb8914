package mail

import (
	"fmt"
	"time"
)

type Config struct {
	APIKey  string
	From    string
	APIURL  string
	Timeout time.Duration
}

func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("SENDGRID_API_KEY is required")
	}
	if c.From == "" {
		return fmt.Errorf("SENDGRID_FROM is required")
	}
	if c.APIURL == "" {
		return fmt.Errorf("SENDGRID_API_URL is required")
	}
	return nil
}
