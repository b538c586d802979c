package service

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/examprep/telegram-bot-go/internal/database"
	"github.com/examprep/telegram-bot-go/internal/errors"
	"github.com/examprep/telegram-bot-go/internal/model"
	"github.com/examprep/telegram-bot-go/internal/repository"
	"github.com/examprep/telegram-bot-go/internal/util"
)

// TxRunner runs a function inside a database transaction. Satisfied by
// *database.DB.
type TxRunner interface {
	WithTx(ctx context.Context, fn database.TxFunc) error
}

// TopUpDeduper remembers processed payment event ids. Satisfied by the
// redis client.
type TopUpDeduper interface {
	ReserveTopUpEvent(ctx context.Context, eventID string) (bool, error)
	ReleaseTopUpEvent(ctx context.Context, eventID string)
}

type CreditService struct {
	db          TxRunner
	accountRepo repository.AccountRepository
	dedupe      TopUpDeduper
}

func NewCreditService(db TxRunner, accountRepo repository.AccountRepository, dedupe TopUpDeduper) *CreditService {
	return &CreditService{
		db:          db,
		accountRepo: accountRepo,
		dedupe:      dedupe,
	}
}

// Merge binds the chat to the email account and folds a chat-only account's
// balance into it. Runs in one transaction with both rows locked in id order,
// so concurrent merges serialize and the combined balance is never counted
// twice. Re-running a completed merge is a no-op.
func (s *CreditService) Merge(ctx context.Context, chatID int64, chatUsername *string, email string) (*model.Account, error) {
	target, err := s.accountRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("find email account: %w", err)
	}
	if target == nil {
		return nil, errors.AccountNotFound()
	}

	var merged *model.Account
	err = s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		txRepo := s.accountRepo.WithTx(tx)

		source, err := txRepo.FindByChatID(ctx, chatID)
		if err != nil {
			return fmt.Errorf("find chat account: %w", err)
		}

		// Lock in ascending id order so two merges touching the same pair
		// cannot deadlock, then re-read state under the locks.
		ids := []string{target.ID}
		if source != nil && source.ID != target.ID {
			ids = append(ids, source.ID)
			if ids[0] > ids[1] {
				ids[0], ids[1] = ids[1], ids[0]
			}
		}
		locked := make(map[string]*model.Account, len(ids))
		for _, id := range ids {
			account, err := txRepo.FindByIDForUpdate(ctx, id)
			if err != nil {
				return fmt.Errorf("lock account %s: %w", id, err)
			}
			if account != nil {
				locked[id] = account
			}
		}

		target := locked[target.ID]
		if target == nil || target.Email == nil || *target.Email != email {
			return errors.AccountNotFound()
		}
		if target.ChatID != nil {
			if *target.ChatID == chatID {
				merged = target
				return nil
			}
			return errors.EmailAlreadyLinked()
		}

		free, paid := target.FreeCredits, target.PaidCredits
		if source != nil {
			source = locked[source.ID]
		}
		if source != nil && source.ID != target.ID {
			if source.ChatID == nil || *source.ChatID != chatID {
				return errors.InconsistentState("chat account changed during merge")
			}
			if !source.ChatOnly() {
				// The chat is holding a verified account, which the link
				// flow rejects before a merge is ever attempted. Never
				// resolve this by folding or overwriting credits.
				return errors.InconsistentState("chat is bound to a verified account")
			}
			// Chat-only account dissolves into the email account. Delete
			// first so the unique chat_id frees up for the target row.
			free += source.FreeCredits
			paid += source.PaidCredits
			if err := txRepo.Delete(ctx, source.ID); err != nil {
				return fmt.Errorf("delete chat account: %w", err)
			}
		}

		merged, err = txRepo.Merge(ctx, target.ID, model.MergeAccountParams{
			ChatID:       chatID,
			ChatUsername: chatUsername,
			FreeCredits:  free,
			PaidCredits:  paid,
		})
		if err != nil {
			return fmt.Errorf("merge accounts: %w", err)
		}
		if merged == nil {
			return errors.InconsistentState("email account vanished during merge")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("chatId", chatID).
		Str("email", util.MaskEmail(email)).
		Str("accountId", merged.ID).
		Int("freeCredits", merged.FreeCredits).
		Int("paidCredits", merged.PaidCredits).
		Msg("accounts merged")

	return merged, nil
}

// Spend deducts one credit, free pool first. The deduction is a single
// conditional update; with a zero balance nothing matches and the caller
// gets ErrCodeNoCredits.
func (s *CreditService) Spend(ctx context.Context, accountID string) (*model.Account, error) {
	account, err := s.accountRepo.Spend(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("spend credit: %w", err)
	}
	if account != nil {
		return account, nil
	}

	existing, err := s.accountRepo.FindByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("find account: %w", err)
	}
	if existing == nil {
		return nil, errors.AccountNotFound()
	}
	return nil, errors.NoCredits()
}

// TopUp credits a purchase to the email account. The payment provider
// retries webhooks, so each event id is applied at most once; a replay
// returns the current balance without changing it.
func (s *CreditService) TopUp(ctx context.Context, eventID, email string, credits int) (*model.Account, bool, error) {
	set, err := s.dedupe.ReserveTopUpEvent(ctx, eventID)
	if err != nil {
		return nil, false, fmt.Errorf("reserve topup event: %w", err)
	}
	if !set {
		account, err := s.accountRepo.FindByEmail(ctx, email)
		if err != nil {
			return nil, false, fmt.Errorf("find account: %w", err)
		}
		if account == nil {
			return nil, false, errors.AccountNotFound()
		}
		log.Info().Str("eventId", eventID).Msg("duplicate topup event ignored")
		return account, false, nil
	}

	account, err := s.accountRepo.AddPaidCredits(ctx, email, credits)
	if err != nil {
		// Release the reservation so the provider's retry can succeed.
		s.dedupe.ReleaseTopUpEvent(ctx, eventID)
		return nil, false, fmt.Errorf("add paid credits: %w", err)
	}
	if account == nil {
		s.dedupe.ReleaseTopUpEvent(ctx, eventID)
		return nil, false, errors.AccountNotFound()
	}

	log.Info().
		Str("eventId", eventID).
		Str("email", util.MaskEmail(email)).
		Int("credits", credits).
		Int("paidCredits", account.PaidCredits).
		Msg("credits topped up")

	return account, true, nil
}
