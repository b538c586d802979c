package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigMethods(t *testing.T) {
	t.Run("Addr returns formatted port", func(t *testing.T) {
		cfg := &Config{Port: 3000}
		assert.Equal(t, ":3000", cfg.Addr())
	})

	t.Run("OTPTTL converts seconds to duration", func(t *testing.T) {
		cfg := &Config{OTPTTLSeconds: 600}
		assert.Equal(t, 600*time.Second, cfg.OTPTTL())
	})

	t.Run("LinkSessionTTL converts seconds to duration", func(t *testing.T) {
		cfg := &Config{LinkSessionTTLSeconds: 900}
		assert.Equal(t, 900*time.Second, cfg.LinkSessionTTL())
	})
}

func TestLoad(t *testing.T) {
	vars := []string{
		"PORT", "DATABASE_URL", "REDIS_URL", "TELEGRAM_BOT_TOKEN",
		"TELEGRAM_WEBHOOK_SECRET", "GEMINI_API_KEY", "RESEND_API_KEY",
		"OTP_TTL_SECONDS", "LINK_SESSION_TTL_SECONDS", "MESSAGES_PER_MINUTE",
		"LOG_LEVEL",
	}

	originalEnv := map[string]string{}
	for _, k := range vars {
		originalEnv[k] = os.Getenv(k)
	}

	defer func() {
		for k, v := range originalEnv {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	setRequired := func() {
		os.Setenv("DATABASE_URL", "postgres://localhost/test")
		os.Setenv("REDIS_URL", "redis://localhost:6379")
		os.Setenv("TELEGRAM_BOT_TOKEN", "123456:abcdef")
		os.Setenv("GEMINI_API_KEY", "test-key")
	}

	t.Run("loads config with defaults", func(t *testing.T) {
		setRequired()
		os.Unsetenv("PORT")
		os.Unsetenv("OTP_TTL_SECONDS")
		os.Unsetenv("LINK_SESSION_TTL_SECONDS")
		os.Unsetenv("MESSAGES_PER_MINUTE")
		os.Unsetenv("LOG_LEVEL")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 8080, cfg.Port)
		assert.Equal(t, "postgres://localhost/test", cfg.DatabaseURL)
		assert.Equal(t, "redis://localhost:6379", cfg.RedisURL)
		assert.Equal(t, 600, cfg.OTPTTLSeconds)
		assert.Equal(t, 900, cfg.LinkSessionTTLSeconds)
		assert.Equal(t, 10, cfg.MessagesPerMinute)
		assert.Equal(t, "info", cfg.LogLevel)
	})

	t.Run("loads custom values", func(t *testing.T) {
		setRequired()
		os.Setenv("PORT", "3000")
		os.Setenv("OTP_TTL_SECONDS", "300")
		os.Setenv("LOG_LEVEL", "debug")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 3000, cfg.Port)
		assert.Equal(t, 300, cfg.OTPTTLSeconds)
		assert.Equal(t, "debug", cfg.LogLevel)
	})

	t.Run("fails without required DATABASE_URL", func(t *testing.T) {
		setRequired()
		os.Unsetenv("DATABASE_URL")

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("fails without required TELEGRAM_BOT_TOKEN", func(t *testing.T) {
		setRequired()
		os.Unsetenv("TELEGRAM_BOT_TOKEN")

		_, err := Load()
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	t.Run("production rejects short internal API token", func(t *testing.T) {
		cfg := &Config{InternalAPIToken: "short"}
		assert.Error(t, cfg.Validate(true))
	})

	t.Run("production rejects known weak secrets", func(t *testing.T) {
		cfg := &Config{InternalAPIToken: "change-me"}
		assert.Error(t, cfg.Validate(true))
	})

	t.Run("production accepts strong token", func(t *testing.T) {
		cfg := &Config{InternalAPIToken: "0123456789abcdef0123456789abcdef"}
		assert.NoError(t, cfg.Validate(true))
	})

	t.Run("development skips secret checks", func(t *testing.T) {
		cfg := &Config{}
		assert.NoError(t, cfg.Validate(false))
	})
}
