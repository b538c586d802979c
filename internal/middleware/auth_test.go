package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInternalAuthMiddleware(t *testing.T) {
	const validToken = "internal-api-token"

	newHandler := func(t *testing.T, allow bool) http.Handler {
		m := NewInternalAuthMiddleware(validToken)
		return m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !allow {
				t.Fatal("handler should not be called")
			}
			w.WriteHeader(http.StatusOK)
		}))
	}

	t.Run("allows request with valid bearer token", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/internal/v1/credits/topup", nil)
		req.Header.Set("Authorization", "Bearer "+validToken)
		rec := httptest.NewRecorder()

		newHandler(t, true).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("rejects request without token", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/internal/v1/credits/topup", nil)
		rec := httptest.NewRecorder()

		newHandler(t, false).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejects request with wrong token", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/internal/v1/credits/topup", nil)
		req.Header.Set("Authorization", "Bearer wrong-token")
		rec := httptest.NewRecorder()

		newHandler(t, false).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejects non-bearer authorization", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/internal/v1/credits/topup", nil)
		req.Header.Set("Authorization", "Basic "+validToken)
		rec := httptest.NewRecorder()

		newHandler(t, false).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestTelegramSecretMiddleware(t *testing.T) {
	const secret = "webhook-secret-value"

	newHandler := func(t *testing.T, secret string, allow bool) http.Handler {
		m := NewTelegramSecretMiddleware(secret)
		return m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !allow {
				t.Fatal("handler should not be called")
			}
			w.WriteHeader(http.StatusOK)
		}))
	}

	t.Run("allows request with matching secret token", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/webhook/telegram", nil)
		req.Header.Set("X-Telegram-Bot-Api-Secret-Token", secret)
		rec := httptest.NewRecorder()

		newHandler(t, secret, true).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("rejects missing header", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/webhook/telegram", nil)
		rec := httptest.NewRecorder()

		newHandler(t, secret, false).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejects wrong token", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/webhook/telegram", nil)
		req.Header.Set("X-Telegram-Bot-Api-Secret-Token", "not-the-secret")
		rec := httptest.NewRecorder()

		newHandler(t, secret, false).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("bypasses verification when unconfigured", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/webhook/telegram", nil)
		rec := httptest.NewRecorder()

		newHandler(t, "", true).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
