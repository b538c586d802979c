package middleware

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/examprep/telegram-bot-go/internal/util"
)

// TelegramSecretMiddleware verifies the secret token Telegram echoes back on
// every webhook delivery (set via setWebhook's secret_token parameter). A
// request without a matching token did not come from Telegram.
type TelegramSecretMiddleware struct {
	secret string
}

func NewTelegramSecretMiddleware(secret string) *TelegramSecretMiddleware {
	return &TelegramSecretMiddleware{secret: secret}
}

func (m *TelegramSecretMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.secret == "" {
			log.Warn().Msg("webhook secret verification bypassed: TELEGRAM_WEBHOOK_SECRET is not configured")
			next.ServeHTTP(w, r)
			return
		}

		token := r.Header.Get("X-Telegram-Bot-Api-Secret-Token")
		if token == "" {
			log.Warn().Msg("telegram secret middleware: missing secret token header")
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "Missing secret token",
			})
			return
		}

		if !util.ConstantTimeEqual(token, m.secret) {
			log.Warn().Msg("telegram secret middleware: invalid secret token")
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "Invalid secret token",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}
