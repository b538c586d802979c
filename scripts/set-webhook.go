package main

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
)

// Registers the bot's webhook with Telegram. Run once per deployment:
//
//	go run scripts/set-webhook.go https://bot.example.com/webhook/telegram
//
// Reads TELEGRAM_BOT_TOKEN and TELEGRAM_WEBHOOK_SECRET from the environment.
func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: go run scripts/set-webhook.go <webhook-url>\n")
		os.Exit(1)
	}

	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		fmt.Fprintln(os.Stderr, "TELEGRAM_BOT_TOKEN is not set")
		os.Exit(1)
	}

	params := url.Values{}
	params.Set("url", os.Args[1])
	if secret := os.Getenv("TELEGRAM_WEBHOOK_SECRET"); secret != "" {
		params.Set("secret_token", secret)
	}

	resp, err := http.PostForm(
		fmt.Sprintf("https://api.telegram.org/bot%s/setWebhook", token),
		params,
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	fmt.Printf("setWebhook returned %s\n", resp.Status)
}
