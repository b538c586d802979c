package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResendNotifier_Send(t *testing.T) {
	t.Run("posts passcode email", func(t *testing.T) {
		var got sendEmailRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/emails", r.URL.Path)
			assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		n := NewResendNotifier("test-key", "Bot <noreply@example.com>").WithBaseURL(server.URL)
		err := n.Send(context.Background(), "bob@example.com", "123456")

		assert.NoError(t, err)
		assert.Equal(t, []string{"bob@example.com"}, got.To)
		assert.Contains(t, got.Subject, "123456")
		assert.Contains(t, got.HTML, "123456")
	})

	t.Run("non-2xx status is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer server.Close()

		n := NewResendNotifier("test-key", "Bot <noreply@example.com>").WithBaseURL(server.URL)
		err := n.Send(context.Background(), "bob@example.com", "123456")

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "403")
	})

	t.Run("missing api key is an error", func(t *testing.T) {
		n := NewResendNotifier("", "Bot <noreply@example.com>")
		err := n.Send(context.Background(), "bob@example.com", "123456")
		assert.Error(t, err)
	})
}
