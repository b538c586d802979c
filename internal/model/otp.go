package model

import (
	"time"
)

type OTPCode struct {
	ID        string    `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	Code      string    `db:"code" json:"-"`
	ExpiresAt time.Time `db:"expires_at" json:"expiresAt"`
	Used      bool      `db:"used" json:"used"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

type CreateOTPCodeParams struct {
	Email     string
	Code      string
	ExpiresAt time.Time
}
