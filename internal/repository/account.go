package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/examprep/telegram-bot-go/internal/model"
)

type AccountRepository interface {
	FindByID(ctx context.Context, id string) (*model.Account, error)
	FindByChatID(ctx context.Context, chatID int64) (*model.Account, error)
	FindByEmail(ctx context.Context, email string) (*model.Account, error)
	// FindByIDForUpdate locks the row until the surrounding transaction ends.
	FindByIDForUpdate(ctx context.Context, id string) (*model.Account, error)
	CreateFromChat(ctx context.Context, params model.CreateChatAccountParams) (*model.Account, error)
	// Spend removes exactly one credit (free before paid), bumps total_queries
	// and last_query_at. Returns nil when the balance is zero; the conditional
	// update is what makes concurrent overdraw impossible.
	Spend(ctx context.Context, id string) (*model.Account, error)
	AddPaidCredits(ctx context.Context, email string, credits int) (*model.Account, error)
	// Merge rewrites the surviving account's counters and chat binding.
	Merge(ctx context.Context, id string, params model.MergeAccountParams) (*model.Account, error)
	Delete(ctx context.Context, id string) error
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) AccountRepository
}

type accountRepo struct {
	db sqlxDB
}

// sqlxDB is an interface satisfied by both *sqlx.DB and *sqlx.Tx
type sqlxDB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func NewAccountRepository(db *sqlx.DB) AccountRepository {
	return &accountRepo{db: db}
}

func (r *accountRepo) WithTx(tx *sqlx.Tx) AccountRepository {
	return &accountRepo{db: tx}
}

func (r *accountRepo) FindByID(ctx context.Context, id string) (*model.Account, error) {
	var account model.Account
	err := r.db.GetContext(ctx, &account, `
		SELECT * FROM accounts WHERE id = $1
	`, id)
	return HandleNotFound(&account, err)
}

func (r *accountRepo) FindByChatID(ctx context.Context, chatID int64) (*model.Account, error) {
	var account model.Account
	err := r.db.GetContext(ctx, &account, `
		SELECT * FROM accounts WHERE chat_id = $1
	`, chatID)
	return HandleNotFound(&account, err)
}

func (r *accountRepo) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	var account model.Account
	err := r.db.GetContext(ctx, &account, `
		SELECT * FROM accounts WHERE email = $1
	`, email)
	return HandleNotFound(&account, err)
}

func (r *accountRepo) FindByIDForUpdate(ctx context.Context, id string) (*model.Account, error) {
	var account model.Account
	err := r.db.GetContext(ctx, &account, `
		SELECT * FROM accounts WHERE id = $1 FOR UPDATE
	`, id)
	return HandleNotFound(&account, err)
}

func (r *accountRepo) CreateFromChat(ctx context.Context, params model.CreateChatAccountParams) (*model.Account, error) {
	var account model.Account
	err := r.db.GetContext(ctx, &account, `
		INSERT INTO accounts (chat_id, chat_username, free_credits)
		VALUES ($1, $2, $3)
		RETURNING *
	`, params.ChatID, params.ChatUsername, params.FreeCredits)
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *accountRepo) Spend(ctx context.Context, id string) (*model.Account, error) {
	var account model.Account
	err := r.db.GetContext(ctx, &account, `
		UPDATE accounts SET
			free_credits = CASE WHEN free_credits > 0 THEN free_credits - 1 ELSE free_credits END,
			paid_credits = CASE WHEN free_credits > 0 THEN paid_credits ELSE paid_credits - 1 END,
			total_queries = total_queries + 1,
			last_query_at = NOW(),
			updated_at = NOW()
		WHERE id = $1 AND free_credits + paid_credits > 0
		RETURNING *
	`, id)
	return HandleNotFound(&account, err)
}

func (r *accountRepo) AddPaidCredits(ctx context.Context, email string, credits int) (*model.Account, error) {
	var account model.Account
	err := r.db.GetContext(ctx, &account, `
		UPDATE accounts SET
			paid_credits = paid_credits + $2,
			updated_at = NOW()
		WHERE email = $1
		RETURNING *
	`, email, credits)
	return HandleNotFound(&account, err)
}

func (r *accountRepo) Merge(ctx context.Context, id string, params model.MergeAccountParams) (*model.Account, error) {
	var account model.Account
	err := r.db.GetContext(ctx, &account, `
		UPDATE accounts SET
			chat_id = $2,
			chat_username = $3,
			email_verified = TRUE,
			free_credits = $4,
			paid_credits = $5,
			updated_at = NOW()
		WHERE id = $1
		RETURNING *
	`, id, params.ChatID, params.ChatUsername, params.FreeCredits, params.PaidCredits)
	return HandleNotFound(&account, err)
}

func (r *accountRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	return err
}
