package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_SendMessage(t *testing.T) {
	t.Run("posts to bot endpoint", func(t *testing.T) {
		var got sendMessageRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/bottest-token/sendMessage", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			json.NewEncoder(w).Encode(apiResponse{OK: true})
		}))
		defer server.Close()

		c := NewClient("test-token").WithBaseURL(server.URL)
		err := c.SendMessage(context.Background(), 42, "hello")

		assert.NoError(t, err)
		assert.Equal(t, int64(42), got.ChatID)
		assert.Equal(t, "hello", got.Text)
	})

	t.Run("api error surfaces description", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(apiResponse{OK: false, Description: "chat not found"})
		}))
		defer server.Close()

		c := NewClient("test-token").WithBaseURL(server.URL)
		err := c.SendMessage(context.Background(), 42, "hello")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "chat not found")
	})
}

func TestClient_SendChunked(t *testing.T) {
	var sent []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req sendMessageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		sent = append(sent, req.Text)
		json.NewEncoder(w).Encode(apiResponse{OK: true})
	}))
	defer server.Close()

	c := NewClient("test-token").WithBaseURL(server.URL)
	long := strings.Repeat("line one\n", 1000) // ~9000 chars
	err := c.SendChunked(context.Background(), 42, long)

	require.NoError(t, err)
	assert.Greater(t, len(sent), 1)
	assert.Equal(t, long, strings.Join(sent, ""))
	for _, chunk := range sent {
		assert.LessOrEqual(t, len([]rune(chunk)), MaxMessageLength)
	}
}

func TestSplitMessage(t *testing.T) {
	t.Run("short text is one chunk", func(t *testing.T) {
		chunks := SplitMessage("hello", 10)
		assert.Equal(t, []string{"hello"}, chunks)
	})

	t.Run("prefers newline boundary", func(t *testing.T) {
		chunks := SplitMessage("aaaa\nbbbb\ncccc", 10)
		require.Len(t, chunks, 2)
		assert.Equal(t, "aaaa\nbbbb\n", chunks[0])
		assert.Equal(t, "cccc", chunks[1])
	})

	t.Run("hard split without newline", func(t *testing.T) {
		chunks := SplitMessage(strings.Repeat("a", 25), 10)
		assert.Equal(t, []string{
			strings.Repeat("a", 10),
			strings.Repeat("a", 10),
			strings.Repeat("a", 5),
		}, chunks)
	})

	t.Run("reassembles losslessly", func(t *testing.T) {
		text := strings.Repeat("пример текста\n", 300)
		chunks := SplitMessage(text, 100)
		assert.Equal(t, text, strings.Join(chunks, ""))
	})
}
