package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/examprep/telegram-bot-go/internal/model"
	"github.com/examprep/telegram-bot-go/internal/repository"
)

type AccountService struct {
	accountRepo   repository.AccountRepository
	signupCredits int
}

func NewAccountService(accountRepo repository.AccountRepository, signupCredits int) *AccountService {
	return &AccountService{
		accountRepo:   accountRepo,
		signupCredits: signupCredits,
	}
}

// FindOrCreateByChat returns the account bound to the chat, creating a
// chat-only account with the signup grant on first contact. Creation races
// with itself across concurrent webhook deliveries; the unique constraint on
// chat_id makes the loser re-read the winner's row.
func (s *AccountService) FindOrCreateByChat(ctx context.Context, chatID int64, chatUsername *string) (*model.Account, error) {
	account, err := s.accountRepo.FindByChatID(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("find account by chat: %w", err)
	}
	if account != nil {
		return account, nil
	}

	account, err = s.accountRepo.CreateFromChat(ctx, model.CreateChatAccountParams{
		ChatID:       chatID,
		ChatUsername: chatUsername,
		FreeCredits:  s.signupCredits,
	})
	if err != nil {
		if existing, findErr := s.accountRepo.FindByChatID(ctx, chatID); findErr == nil && existing != nil {
			return existing, nil
		}
		return nil, fmt.Errorf("create chat account: %w", err)
	}

	log.Info().
		Int64("chatId", chatID).
		Str("accountId", account.ID).
		Int("freeCredits", account.FreeCredits).
		Msg("chat account created")

	return account, nil
}

func (s *AccountService) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	return s.accountRepo.FindByEmail(ctx, email)
}
