// File: internal/config/config.go
package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/iyunix/go-dualotp/internal/ratelimit"
)

type Config struct {
	ServerPort  string `env:"SERVER_PORT" envDefault:"8080"`
	Environment string `env:"APP_ENV" envDefault:"dev"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"INFO"`

	JWTSecretKey   string        `env:"JWT_SECRET_KEY"`
	AccessTokenTTL time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"15m"`
	SessionTTL     time.Duration `env:"SESSION_TTL" envDefault:"168h"`
	BcryptCost     int           `env:"BCRYPT_COST" envDefault:"10"`

	OTPTTL         time.Duration `env:"OTP_TTL" envDefault:"5m"`
	OTPWindow      time.Duration `env:"OTP_WINDOW" envDefault:"30m"`
	OTPMaxAttempts int           `env:"OTP_MAX_ATTEMPTS" envDefault:"3"`
	OTPStore       string        `env:"OTP_STORE" envDefault:"sql"`

	DBDriver string `env:"DB_DRIVER" envDefault:"sqlite"`
	DBDSN    string `env:"DB_DSN" envDefault:"dualotp.db"`
	RedisURI string `env:"REDIS_URI"`

	Twilio   TwilioConfig
	SendGrid SendGridConfig

	OTelEndpoint string `env:"OTEL_ENDPOINT"`

	RateLimitRequests int           `env:"RATE_LIMIT_REQUESTS" envDefault:"20"`
	RateLimitWindow   time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
	// Proxy addresses or CIDRs allowed to set X-Forwarded-For / X-Real-IP.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`

	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
}

type TwilioConfig struct {
	AccountSID string        `env:"TWILIO_ACCOUNT_SID"`
	AuthToken  string        `env:"TWILIO_AUTH_TOKEN"`
	From       string        `env:"TWILIO_FROM"`
	APIURL     string        `env:"TWILIO_API_URL" envDefault:"https://api.twilio.com/2010-04-01"`
	Timeout    time.Duration `env:"TWILIO_TIMEOUT" envDefault:"10s"`
	MaxRetries int           `env:"TWILIO_MAX_RETRIES" envDefault:"3"`
}

type SendGridConfig struct {
	APIKey  string        `env:"SENDGRID_API_KEY"`
	From    string        `env:"SENDGRID_FROM"`
	APIURL  string        `env:"SENDGRID_API_URL" envDefault:"https://api.sendgrid.com/v3"`
	Timeout time.Duration `env:"SENDGRID_TIMEOUT" envDefault:"10s"`
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// IsDev reports whether real delivery should be skipped.
func (c *Config) IsDev() bool {
	return strings.EqualFold(c.Environment, "dev")
}

// Load reads configuration from environment variables or .env file.
func Load() (*Config, error) {
	if !strings.EqualFold(os.Getenv("APP_ENV"), "production") {
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found; continuing with environment variables")
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and, in production, the required secrets.
func (c *Config) Validate() error {
	switch c.OTPStore {
	case "sql", "redis":
	default:
		return fmt.Errorf("OTP_STORE must be sql or redis, got %q", c.OTPStore)
	}
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("DB_DRIVER must be sqlite or postgres, got %q", c.DBDriver)
	}
	if c.OTPMaxAttempts < 1 {
		return fmt.Errorf("OTP_MAX_ATTEMPTS must be at least 1")
	}
	if c.OTPStore == "redis" && c.RedisURI == "" {
		return fmt.Errorf("REDIS_URI is required when OTP_STORE=redis")
	}
	if _, err := ratelimit.ParseTrustedProxies(c.TrustedProxies); err != nil {
		return fmt.Errorf("TRUSTED_PROXIES: %w", err)
	}

	// Validation for production environments
	if c.IsProduction() {
		missing := []string{}
		if c.JWTSecretKey == "" {
			missing = append(missing, "JWT_SECRET_KEY")
		}
		if c.Twilio.AccountSID == "" {
			missing = append(missing, "TWILIO_ACCOUNT_SID")
		}
		if c.Twilio.AuthToken == "" {
			missing = append(missing, "TWILIO_AUTH_TOKEN")
		}
		if c.Twilio.From == "" {
			missing = append(missing, "TWILIO_FROM")
		}
		if c.SendGrid.APIKey == "" {
			missing = append(missing, "SENDGRID_API_KEY")
		}
		if c.SendGrid.From == "" {
			missing = append(missing, "SENDGRID_FROM")
		}
		if len(missing) > 0 {
			return fmt.Errorf("missing required production environment variables: %v", missing)
		}
	}
	if c.JWTSecretKey == "" && !c.IsDev() {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	return nil
}
