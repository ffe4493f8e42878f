package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"

	"feedback-backend/internal/profanity"
)

const (
	AuthModeHeader = "header"
	AuthModeJWT    = "jwt"
)

type Config struct {
	Port      string
	LogLevel  string
	LogFormat string

	AuthMode  string
	JWTSecret string

	Blocklist []string
	MinLength int
	MaxLength int

	SubmitRatePerMinute float64
	SubmitBurst         int

	NotifyQueueSize int
	CORSOrigins     []string
	ShutdownTimeout time.Duration
}

func Default() *Config {
	return &Config{
		Port:            "8080",
		LogLevel:        "info",
		LogFormat:       "json",
		AuthMode:        AuthModeHeader,
		Blocklist:       append([]string(nil), profanity.DefaultBlocklist...),
		MinLength:       1,
		MaxLength:       500,
		SubmitBurst:     5,
		NotifyQueueSize: 64,
		CORSOrigins:     []string{"*"},
		ShutdownTimeout: 10 * time.Second,
	}
}

func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}
	if c.MinLength < 1 {
		return errors.Errorf("min length must be at least 1, got %d", c.MinLength)
	}
	if c.MaxLength < c.MinLength {
		return errors.Errorf("max length %d is below min length %d", c.MaxLength, c.MinLength)
	}
	switch c.AuthMode {
	case AuthModeHeader:
	case AuthModeJWT:
		if c.JWTSecret == "" {
			return errors.New("JWT_SECRET is required when AUTH_MODE=jwt")
		}
	default:
		return errors.Errorf("unknown auth mode %q", c.AuthMode)
	}
	if len(SplitList(strings.Join(c.Blocklist, ","))) == 0 {
		return errors.New("profanity blocklist is empty")
	}
	if c.SubmitRatePerMinute < 0 {
		return errors.New("submit rate must not be negative")
	}
	if c.NotifyQueueSize < 0 {
		return errors.New("notify queue size must not be negative")
	}
	return nil
}

func (c *Config) Addr() string {
	return ":" + c.Port
}

// SplitList splits a comma-separated value, dropping blanks.
func SplitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
