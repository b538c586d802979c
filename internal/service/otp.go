package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/examprep/telegram-bot-go/internal/errors"
	"github.com/examprep/telegram-bot-go/internal/model"
	"github.com/examprep/telegram-bot-go/internal/notify"
	"github.com/examprep/telegram-bot-go/internal/repository"
	"github.com/examprep/telegram-bot-go/internal/util"
)

type OTPService struct {
	otpRepo  repository.OTPCodeRepository
	notifier notify.Notifier
	ttl      time.Duration
}

func NewOTPService(otpRepo repository.OTPCodeRepository, notifier notify.Notifier, ttl time.Duration) *OTPService {
	return &OTPService{
		otpRepo:  otpRepo,
		notifier: notifier,
		ttl:      ttl,
	}
}

// IssueAndSend generates a fresh passcode for the email and delivers it.
// Earlier unexpired codes stay valid; each is still single-use. A delivery
// failure aborts the issuance from the caller's perspective, and the orphaned
// record just ages out.
func (s *OTPService) IssueAndSend(ctx context.Context, email string) error {
	code, err := util.GeneratePasscode()
	if err != nil {
		return fmt.Errorf("generate passcode: %w", err)
	}

	otp, err := s.otpRepo.Create(ctx, model.CreateOTPCodeParams{
		Email:     email,
		Code:      code,
		ExpiresAt: time.Now().Add(s.ttl),
	})
	if err != nil {
		return fmt.Errorf("store passcode: %w", err)
	}

	if err := s.notifier.Send(ctx, email, code); err != nil {
		log.Error().Err(err).Str("email", util.MaskEmail(email)).Msg("passcode delivery failed")
		return errors.NotifyFailed(err)
	}

	log.Info().
		Str("email", util.MaskEmail(email)).
		Time("expiresAt", otp.ExpiresAt).
		Msg("passcode issued")

	return nil
}

// Verify consumes the passcode. Success is exclusive: the repository marks
// the record used in the same statement that checks it, so a second submission
// of the same code fails no matter how the calls interleave.
func (s *OTPService) Verify(ctx context.Context, email, code string) error {
	if !util.IsValidPasscode(code) {
		return errors.InvalidOTP()
	}

	otp, err := s.otpRepo.Consume(ctx, email, code)
	if err != nil {
		return fmt.Errorf("consume passcode: %w", err)
	}
	if otp != nil {
		log.Info().Str("email", util.MaskEmail(email)).Msg("passcode verified")
		return nil
	}

	// Nothing consumable matched. Look at the latest record for the pair
	// purely to tell the user why.
	match, err := s.otpRepo.FindMatch(ctx, email, code)
	if err != nil {
		return fmt.Errorf("classify passcode failure: %w", err)
	}
	if match != nil && !match.Used && time.Now().After(match.ExpiresAt) {
		return errors.OTPExpired()
	}
	return errors.InvalidOTP()
}
