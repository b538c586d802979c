package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/examprep/telegram-bot-go/internal/model"
)

type OTPCodeRepository interface {
	Create(ctx context.Context, params model.CreateOTPCodeParams) (*model.OTPCode, error)
	// Consume marks a live matching passcode as used and returns it. Returns
	// nil when no unused, unexpired record matches. The check and the mark
	// are one statement, so of two concurrent submissions of the same code
	// at most one can succeed.
	Consume(ctx context.Context, email, code string) (*model.OTPCode, error)
	// FindMatch returns the most recent record for the pair regardless of
	// state. Used only to classify a failed Consume for error reporting.
	FindMatch(ctx context.Context, email, code string) (*model.OTPCode, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

type otpCodeRepo struct {
	db *sqlx.DB
}

func NewOTPCodeRepository(db *sqlx.DB) OTPCodeRepository {
	return &otpCodeRepo{db: db}
}

func (r *otpCodeRepo) Create(ctx context.Context, params model.CreateOTPCodeParams) (*model.OTPCode, error) {
	var otp model.OTPCode
	err := r.db.GetContext(ctx, &otp, `
		INSERT INTO otp_codes (email, code, expires_at)
		VALUES ($1, $2, $3)
		RETURNING *
	`, params.Email, params.Code, params.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return &otp, nil
}

func (r *otpCodeRepo) Consume(ctx context.Context, email, code string) (*model.OTPCode, error) {
	// All conditions live in the UPDATE itself: under READ COMMITTED a
	// blocked concurrent update re-evaluates them against the new row
	// version and matches zero rows.
	var otp model.OTPCode
	err := r.db.GetContext(ctx, &otp, `
		UPDATE otp_codes SET used = TRUE
		WHERE email = $1 AND code = $2 AND used = FALSE AND expires_at > NOW()
		RETURNING *
	`, email, code)
	return HandleNotFound(&otp, err)
}

func (r *otpCodeRepo) FindMatch(ctx context.Context, email, code string) (*model.OTPCode, error) {
	var otp model.OTPCode
	err := r.db.GetContext(ctx, &otp, `
		SELECT * FROM otp_codes
		WHERE email = $1 AND code = $2
		ORDER BY created_at DESC
		LIMIT 1
	`, email, code)
	return HandleNotFound(&otp, err)
}

func (r *otpCodeRepo) DeleteExpired(ctx context.Context) (int64, error) {
	// Hygiene only: expired-but-unused records are already unmatchable by
	// the expires_at condition in Consume.
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM otp_codes
		WHERE expires_at < NOW() OR used = TRUE
	`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
