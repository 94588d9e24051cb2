package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalscan/backend/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg := &config.Config{}
	cfg.LoadDefaults()

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "log", cfg.MailMode)
	assert.True(t, cfg.Debug)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("DATABASE_DSN", "postgres://app:secret@db:5432/vitalscan")
	t.Setenv("SESSION_SIGNING_KEY", "prod-signing-key")
	t.Setenv("SESSION_TTL_HOURS", "2")
	t.Setenv("APP_BASE_URL", "https://app.example.com")
	t.Setenv("MAIL_MODE", "smtp")
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("SMTP_PORT", "2525")
	t.Setenv("DEBUG", "false")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "postgres", cfg.DatabaseDriver)
	assert.Equal(t, "postgres://app:secret@db:5432/vitalscan", cfg.DatabaseDSN)
	assert.Equal(t, "prod-signing-key", cfg.SessionSigningKey)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "https://app.example.com", cfg.AppBaseURL)
	assert.Equal(t, "smtp", cfg.MailMode)
	assert.Equal(t, "smtp.example.com", cfg.SMTPHost)
	assert.Equal(t, 2525, cfg.SMTPPort)
	assert.False(t, cfg.Debug)
}

func TestLoadConfigIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("SMTP_PORT", "not-a-port")
	t.Setenv("SESSION_TTL_HOURS", "-3")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 587, cfg.SMTPPort)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *config.Config) {},
		},
		{
			name:    "empty signing key",
			mutate:  func(c *config.Config) { c.SessionSigningKey = "" },
			wantErr: "SESSION_SIGNING_KEY",
		},
		{
			name:    "unknown driver",
			mutate:  func(c *config.Config) { c.DatabaseDriver = "oracle" },
			wantErr: "DATABASE_DRIVER",
		},
		{
			name:    "unknown mail mode",
			mutate:  func(c *config.Config) { c.MailMode = "carrier-pigeon" },
			wantErr: "MAIL_MODE",
		},
		{
			name:    "smtp without host",
			mutate:  func(c *config.Config) { c.MailMode = "smtp" },
			wantErr: "SMTP_HOST",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &config.Config{}
			cfg.LoadDefaults()
			tc.mutate(cfg)

			err := cfg.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
