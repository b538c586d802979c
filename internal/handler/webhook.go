package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/examprep/telegram-bot-go/internal/config"
	"github.com/examprep/telegram-bot-go/internal/errors"
	"github.com/examprep/telegram-bot-go/internal/model"
	"github.com/examprep/telegram-bot-go/internal/service"
	"github.com/examprep/telegram-bot-go/internal/telegram"
)

type Command struct {
	Type string // START, HELP, CREDITS, BUY, LINK, CANCEL
}

func parseCommand(text string) *Command {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "/") {
		return nil
	}

	// Telegram appends the bot name in groups: /credits@SomeBot.
	word := strings.Fields(trimmed)[0]
	if at := strings.Index(word, "@"); at > 0 {
		word = word[:at]
	}

	switch word {
	case "/start":
		return &Command{Type: "START"}
	case "/help":
		return &Command{Type: "HELP"}
	case "/credits":
		return &Command{Type: "CREDITS"}
	case "/buy":
		return &Command{Type: "BUY"}
	case "/link":
		return &Command{Type: "LINK"}
	case "/cancel":
		return &Command{Type: "CANCEL"}
	}
	return nil
}

// ChatLimiter throttles per-chat message handling. Satisfied by
// *service.RateLimiter.
type ChatLimiter interface {
	AllowChat(ctx context.Context, chatID int64) (bool, time.Time)
}

type WebhookHandler struct {
	accounts    *service.AccountService
	linking     *service.LinkingService
	credits     *service.CreditService
	generator   service.Generator
	sender      telegram.Sender
	limiter     ChatLimiter
	checkoutURL string
	genTimeout  time.Duration
}

func NewWebhookHandler(
	accounts *service.AccountService,
	linking *service.LinkingService,
	credits *service.CreditService,
	generator service.Generator,
	sender telegram.Sender,
	limiter ChatLimiter,
	checkoutURL string,
	genTimeout time.Duration,
) *WebhookHandler {
	return &WebhookHandler{
		accounts:    accounts,
		linking:     linking,
		credits:     credits,
		generator:   generator,
		sender:      sender,
		limiter:     limiter,
		checkoutURL: checkoutURL,
		genTimeout:  genTimeout,
	}
}

// Webhook handles one Telegram update. Telegram retries deliveries that do
// not get a 2xx, so everything except a malformed body acks with 200 and any
// user-visible problem goes back through sendMessage instead.
func (h *WebhookHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	var update telegram.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		log.Warn().Err(err).Msg("invalid telegram update")
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	msg := update.Message
	if msg == nil || strings.TrimSpace(msg.Text) == "" {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		return
	}

	chatID := msg.Chat.ID
	var username *string
	if msg.From != nil && msg.From.Username != "" {
		username = &msg.From.Username
	}
	text := strings.TrimSpace(msg.Text)

	log.Info().
		Int64("chatId", chatID).
		Str("text", truncate(text, 50)).
		Msg("received telegram update")

	ctx := r.Context()

	if allowed, resetAt := h.limiter.AllowChat(ctx, chatID); !allowed {
		h.reply(ctx, chatID, fmt.Sprintf(
			"You're sending messages too quickly. Try again after %s.",
			resetAt.UTC().Format("15:04:05 MST"),
		))
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		return
	}

	account, err := h.accounts.FindOrCreateByChat(ctx, chatID, username)
	if err != nil {
		log.Error().Err(err).Int64("chatId", chatID).Msg("failed to find or create account")
		h.reply(ctx, chatID, "Something went wrong, please try again.")
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		return
	}

	if cmd := parseCommand(text); cmd != nil {
		h.reply(ctx, chatID, h.handleCommand(ctx, cmd, chatID, account))
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		return
	}

	if h.linking.Active(chatID) {
		h.reply(ctx, chatID, h.linking.HandleMessage(ctx, chatID, username, text))
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		return
	}

	h.handleTopic(ctx, chatID, account, text)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *WebhookHandler) handleCommand(ctx context.Context, cmd *Command, chatID int64, account *model.Account) string {
	switch cmd.Type {
	case "START":
		return fmt.Sprintf(
			"Welcome! Send me any topic and I'll generate practice questions for it.\n\n"+
				"%s\n\n"+
				"Commands:\n"+
				"/credits - check your balance\n"+
				"/buy - get more credits\n"+
				"/link - link your web account\n"+
				"/help - how this works",
			balanceLine(account),
		)
	case "HELP":
		return "Send a topic (5-500 characters) and I'll reply with a set of practice questions.\n" +
			"Each question set costs one credit; free credits are spent before paid ones.\n\n" +
			"/credits - check your balance\n" +
			"/buy - get more credits\n" +
			"/link - link your web account so credits follow you\n" +
			"/cancel - abort an in-progress link"
	case "CREDITS":
		return balanceLine(account)
	case "BUY":
		if h.checkoutURL == "" {
			return "Purchases aren't available right now, sorry."
		}
		return fmt.Sprintf("Get more credits here:\n%s\n\nCredits bought on the web appear after you /link.", h.checkoutURL)
	case "LINK":
		return h.linking.Start(ctx, chatID)
	case "CANCEL":
		return h.linking.Cancel(chatID)
	}
	return "Unknown command. Send /help for the list."
}

// handleTopic runs the paid question flow. The webhook must ack within
// seconds while generation takes much longer, so the slow part runs detached
// from the request context. Once a request passes the balance precheck and is
// dispatched, the credit is deducted when generation returns, whether or not
// it produced a question set.
func (h *WebhookHandler) handleTopic(ctx context.Context, chatID int64, account *model.Account, topic string) {
	// Bounds are characters, not bytes; multibyte topics count per rune.
	switch n := utf8.RuneCountInString(topic); {
	case n < config.TopicMinLength:
		h.reply(ctx, chatID, errors.TopicTooShort(config.TopicMinLength).Message)
		return
	case n > config.TopicMaxLength:
		h.reply(ctx, chatID, errors.TopicTooLong(config.TopicMaxLength).Message)
		return
	}

	if account.TotalCredits() <= 0 {
		h.reply(ctx, chatID, noCreditsMessage())
		return
	}

	h.reply(ctx, chatID, "Generating your practice questions, give me a minute...")

	go func() {
		genCtx, cancel := context.WithTimeout(context.Background(), h.genTimeout)
		defer cancel()

		questions, genErr := h.generator.GenerateQuestions(genCtx, topic)

		after, err := h.credits.Spend(genCtx, account.ID)
		if err != nil {
			if errors.HasCode(err, errors.ErrCodeNoCredits) {
				// The balance was drained between the precheck and now.
				h.reply(genCtx, chatID, noCreditsMessage())
				return
			}
			log.Error().Err(err).Str("accountId", account.ID).Msg("credit deduction failed")
			h.reply(genCtx, chatID, "Something went wrong, please try again.")
			return
		}

		if genErr != nil {
			log.Error().Err(genErr).Int64("chatId", chatID).Msg("question generation failed")
			h.reply(genCtx, chatID, "Couldn't generate questions for that topic, sorry. Try again or try a different topic.")
			return
		}

		if err := h.sender.SendChunked(genCtx, chatID, questions); err != nil {
			log.Error().Err(err).Int64("chatId", chatID).Msg("failed to deliver questions")
			return
		}
		h.reply(genCtx, chatID, balanceLine(after))
	}()
}

func (h *WebhookHandler) reply(ctx context.Context, chatID int64, text string) {
	if err := h.sender.SendMessage(ctx, chatID, text); err != nil {
		log.Error().Err(err).Int64("chatId", chatID).Msg("failed to send reply")
	}
}

func balanceLine(account *model.Account) string {
	return fmt.Sprintf(
		"You have %d credit(s): %d free, %d paid.",
		account.TotalCredits(), account.FreeCredits, account.PaidCredits,
	)
}

func noCreditsMessage() string {
	return "You're out of credits. Use /buy to get more, or /link if you purchased on the web."
}
