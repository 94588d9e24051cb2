// Package config handles runtime configuration for the server: development
// defaults overlaid with environment variables. Configuration is injected
// into constructors at startup; nothing reads the environment after load.
package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

// Config holds runtime settings for the vitalscan server.
//
// Fields:
//   - HTTPAddr: bind address for the HTTP endpoint.
//   - DatabaseDriver: "sqlite" or "postgres".
//   - DatabaseDSN: DSN for the selected driver.
//   - SessionSigningKey: HMAC secret for signing session tokens (HS256).
//     Do not use the development default in prod.
//   - SessionTTL: session token lifetime.
//   - AppBaseURL: public base URL embedded in email links.
//   - SMTP*: outbound mail settings, used when MailMode is "smtp".
//   - MailMode: "smtp" or "log" (log prints links to stdout).
//   - Debug: surface internal error details in responses.
type Config struct {
	HTTPAddr          string
	DatabaseDriver    string
	DatabaseDSN       string
	SessionSigningKey string
	SessionTTL        time.Duration
	AppBaseURL        string
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string
	SMTPFrom          string
	MailMode          string
	Debug             bool
}

// LoadDefaults populates Config with development defaults.
// NOTE: These values are insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.HTTPAddr = ":8080"
	c.DatabaseDriver = "sqlite"
	c.DatabaseDSN = "file::memory:?cache=shared"
	c.SessionSigningKey = "development-signing-key"
	c.SessionTTL = 24 * time.Hour
	c.AppBaseURL = "http://localhost:8080"
	c.SMTPPort = 587
	c.MailMode = "log"
	c.Debug = true
}

// LoadConfig builds a Config by applying defaults and overlaying values
// from the environment.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.SessionSigningKey == "" {
		return errors.New("SESSION_SIGNING_KEY must not be empty")
	}

	if c.DatabaseDriver != "sqlite" && c.DatabaseDriver != "postgres" {
		return errors.New("DATABASE_DRIVER must be sqlite or postgres")
	}

	if c.MailMode != "smtp" && c.MailMode != "log" {
		return errors.New("MAIL_MODE must be smtp or log")
	}

	if c.MailMode == "smtp" && c.SMTPHost == "" {
		return errors.New("SMTP_HOST is required when MAIL_MODE=smtp")
	}

	return nil
}

func parseEnv(c *Config) {
	setString(&c.HTTPAddr, "HTTP_ADDR")
	setString(&c.DatabaseDriver, "DATABASE_DRIVER")
	setString(&c.DatabaseDSN, "DATABASE_DSN")
	setString(&c.SessionSigningKey, "SESSION_SIGNING_KEY")
	setString(&c.AppBaseURL, "APP_BASE_URL")
	setString(&c.SMTPHost, "SMTP_HOST")
	setString(&c.SMTPUsername, "SMTP_USERNAME")
	setString(&c.SMTPPassword, "SMTP_PASSWORD")
	setString(&c.SMTPFrom, "SMTP_FROM")
	setString(&c.MailMode, "MAIL_MODE")

	if v, ok := os.LookupEnv("SMTP_PORT"); ok {
		if port, err := strconv.Atoi(v); err == nil {
			c.SMTPPort = port
		}
	}

	if v, ok := os.LookupEnv("SESSION_TTL_HOURS"); ok {
		if hours, err := strconv.Atoi(v); err == nil && hours > 0 {
			c.SessionTTL = time.Duration(hours) * time.Hour
		}
	}

	if v, ok := os.LookupEnv("DEBUG"); ok {
		if debug, err := strconv.ParseBool(v); err == nil {
			c.Debug = debug
		}
	}
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}
