package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/examprep/telegram-bot-go/internal/util"
)

// Notifier delivers a passcode to an email address. Fire-and-forget from the
// caller's perspective: an error aborts the issuance step, nothing is retried.
type Notifier interface {
	Send(ctx context.Context, email, code string) error
}

const defaultBaseURL = "https://api.resend.com"

type ResendNotifier struct {
	apiKey  string
	from    string
	baseURL string
	client  *http.Client
}

func NewResendNotifier(apiKey, from string) *ResendNotifier {
	return &ResendNotifier{
		apiKey:  apiKey,
		from:    from,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// WithBaseURL overrides the API endpoint. Used in tests.
func (n *ResendNotifier) WithBaseURL(baseURL string) *ResendNotifier {
	n.baseURL = baseURL
	return n
}

type sendEmailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

func (n *ResendNotifier) Send(ctx context.Context, email, code string) error {
	if n.apiKey == "" {
		return fmt.Errorf("resend api key not configured")
	}

	payload, err := json.Marshal(sendEmailRequest{
		From:    n.from,
		To:      []string{email},
		Subject: fmt.Sprintf("Your verification code: %s", code),
		HTML: fmt.Sprintf(
			"<p>Your verification code is:</p><h2>%s</h2>"+
				"<p>This code expires in 10 minutes.</p>"+
				"<p>Link your Telegram to use your credits on both platforms.</p>",
			code,
		),
	})
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL+"/emails", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+n.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		log.Warn().
			Int("status", resp.StatusCode).
			Str("email", util.MaskEmail(email)).
			Msg("resend rejected passcode email")
		return fmt.Errorf("resend returned status %d: %s", resp.StatusCode, string(body))
	}

	log.Info().Str("email", util.MaskEmail(email)).Msg("passcode email sent")
	return nil
}
