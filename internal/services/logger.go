package services

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger defines common logging interface for all services
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}

// ProductionLogger is a structured logger for production use
type ProductionLogger struct {
	logger *slog.Logger
}

// NewProductionLogger creates a logger writing to w. JSON output is used when
// structured is true, human-readable text otherwise.
func NewProductionLogger(service string, w io.Writer, level slog.Level, structured bool) *ProductionLogger {
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if structured {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return &ProductionLogger{logger: slog.New(handler).With("service", service)}
}

func (p *ProductionLogger) Info(msg string, keysAndValues ...interface{}) {
	p.logger.Info(msg, keysAndValues...)
}

func (p *ProductionLogger) Error(msg string, keysAndValues ...interface{}) {
	p.logger.Error(msg, keysAndValues...)
}

func (p *ProductionLogger) Debug(msg string, keysAndValues ...interface{}) {
	p.logger.Debug(msg, keysAndValues...)
}

func (p *ProductionLogger) Warn(msg string, keysAndValues ...interface{}) {
	p.logger.Warn(msg, keysAndValues...)
}

// Slog exposes the underlying logger for libraries that take *slog.Logger.
func (p *ProductionLogger) Slog() *slog.Logger {
	return p.logger
}

// NoOpLogger is a logger that does nothing (for testing)
type NoOpLogger struct{}

func (n *NoOpLogger) Info(msg string, keysAndValues ...interface{})  {}
func (n *NoOpLogger) Error(msg string, keysAndValues ...interface{}) {}
func (n *NoOpLogger) Debug(msg string, keysAndValues ...interface{}) {}
func (n *NoOpLogger) Warn(msg string, keysAndValues ...interface{})  {}

// ParseLevel maps LOG_LEVEL values onto slog levels, defaulting to INFO.
func ParseLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger is the environment-based logger factory.
func NewLogger(service, env, level string) Logger {
	if env == "test" {
		return &NoOpLogger{}
	}
	// Use structured logging in production
	return NewProductionLogger(service, os.Stdout, ParseLevel(level), strings.EqualFold(env, "production"))
}

// MaskContact keeps the first four characters of a phone or email for logs.
func MaskContact(v string) string {
	if v == "" {
		return ""
	}
	n := 4
	if len(v) < n {
		n = len(v)
	}
	return v[:n] + "****"
}
