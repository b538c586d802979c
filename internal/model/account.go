package model

import (
	"time"
)

type Account struct {
	ID            string     `db:"id" json:"id"`
	ChatID        *int64     `db:"chat_id" json:"chatId,omitempty"`
	ChatUsername  *string    `db:"chat_username" json:"chatUsername,omitempty"`
	Email         *string    `db:"email" json:"email,omitempty"`
	EmailVerified bool       `db:"email_verified" json:"emailVerified"`
	FreeCredits   int        `db:"free_credits" json:"freeCredits"`
	PaidCredits   int        `db:"paid_credits" json:"paidCredits"`
	TotalQueries  int        `db:"total_queries" json:"totalQueries"`
	LastQueryAt   *time.Time `db:"last_query_at" json:"lastQueryAt,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updatedAt"`
}

// TotalCredits is the spendable balance across both counters.
func (a *Account) TotalCredits() int {
	return a.FreeCredits + a.PaidCredits
}

// Linked reports whether the account is bound to both surfaces: a chat
// identity on one side and a verified email on the other.
func (a *Account) Linked() bool {
	return a.ChatID != nil && a.Email != nil && a.EmailVerified
}

// ChatOnly reports whether the account was lazily created from the chat
// surface and never linked. Such accounts disappear when merged.
func (a *Account) ChatOnly() bool {
	return a.ChatID != nil && a.Email == nil
}

type CreateChatAccountParams struct {
	ChatID       int64
	ChatUsername *string
	FreeCredits  int
}

type MergeAccountParams struct {
	ChatID       int64
	ChatUsername *string
	FreeCredits  int
	PaidCredits  int
}
