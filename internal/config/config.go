package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

var knownWeakSecrets = []string{
	"change-me", "dev-secret-change-me", "secret", "admin", "password",
}

type Config struct {
	Port                  int    `env:"PORT" envDefault:"8080"`
	DatabaseURL           string `env:"DATABASE_URL,required"`
	RedisURL              string `env:"REDIS_URL,required"`
	TelegramBotToken      string `env:"TELEGRAM_BOT_TOKEN,required"`
	TelegramWebhookSecret string `env:"TELEGRAM_WEBHOOK_SECRET"`
	GeminiAPIKey          string `env:"GEMINI_API_KEY,required"`
	ResendAPIKey          string `env:"RESEND_API_KEY"`
	EmailFrom             string `env:"EMAIL_FROM" envDefault:"Exam Predictor <noreply@examprep.app>"`
	PaymentCheckoutURL    string `env:"PAYMENT_CHECKOUT_URL"`
	InternalAPIToken      string `env:"INTERNAL_API_TOKEN"`
	OTPTTLSeconds         int    `env:"OTP_TTL_SECONDS" envDefault:"600"`
	LinkSessionTTLSeconds int    `env:"LINK_SESSION_TTL_SECONDS" envDefault:"900"`
	MessagesPerMinute     int    `env:"MESSAGES_PER_MINUTE" envDefault:"10"`
	LogLevel              string `env:"LOG_LEVEL" envDefault:"info"`
}

func (c *Config) OTPTTL() time.Duration {
	return time.Duration(c.OTPTTLSeconds) * time.Second
}

func (c *Config) LinkSessionTTL() time.Duration {
	return time.Duration(c.LinkSessionTTLSeconds) * time.Second
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) Validate(isProduction bool) error {
	if isProduction {
		if err := validateSecret("INTERNAL_API_TOKEN", c.InternalAPIToken); err != nil {
			return err
		}

		if c.TelegramWebhookSecret == "" {
			log.Warn().Msg("TELEGRAM_WEBHOOK_SECRET is empty in production: webhook secret verification disabled")
		}
		if c.ResendAPIKey == "" {
			log.Warn().Msg("RESEND_API_KEY is empty in production: passcode emails will fail")
		}
		if strings.HasPrefix(c.RedisURL, "redis://") {
			log.Warn().Msg("REDIS_URL uses redis:// (not TLS) in production: consider using rediss://")
		}
	}

	return nil
}

func validateSecret(name, value string) error {
	if len(value) < 32 {
		return fmt.Errorf("%s must be at least 32 characters in production (generate with: openssl rand -base64 32)", name)
	}
	for _, weak := range knownWeakSecrets {
		if value == weak {
			return fmt.Errorf("%s is a known weak default; set a strong secret in production", name)
		}
	}
	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
