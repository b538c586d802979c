package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/examprep/telegram-bot-go/internal/errors"
	"github.com/examprep/telegram-bot-go/internal/model"
	"github.com/examprep/telegram-bot-go/internal/util"
)

type linkSession struct {
	state     model.LinkState
	email     string
	updatedAt time.Time
}

// LinkingService drives the link conversation for each chat: prompt for an
// email, send a passcode, verify it, merge. Sessions live in memory; a
// restart simply drops them and the user starts over with /link.
// OTPIssueLimiter bounds passcode emails per address. Satisfied by
// *RateLimiter.
type OTPIssueLimiter interface {
	AllowOTPIssue(ctx context.Context, email string) (bool, time.Time)
}

type LinkingService struct {
	mu       sync.Mutex
	sessions map[int64]*linkSession

	accounts *AccountService
	otp      *OTPService
	credits  *CreditService
	limiter  OTPIssueLimiter
	ttl      time.Duration
}

func NewLinkingService(
	accounts *AccountService,
	otp *OTPService,
	credits *CreditService,
	limiter OTPIssueLimiter,
	ttl time.Duration,
) *LinkingService {
	return &LinkingService{
		sessions: make(map[int64]*linkSession),
		accounts: accounts,
		otp:      otp,
		credits:  credits,
		limiter:  limiter,
		ttl:      ttl,
	}
}

// Active reports whether the chat is mid-link, so the router knows free text
// belongs to this flow rather than the question flow.
func (s *LinkingService) Active(chatID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(chatID) != nil
}

// Start opens a link session and returns the prompt to send back. An already
// linked chat just gets its binding reported; no session opens, so the next
// free-text message still goes to the question flow.
func (s *LinkingService) Start(ctx context.Context, chatID int64) string {
	account, err := s.accounts.accountRepo.FindByChatID(ctx, chatID)
	if err != nil {
		log.Error().Err(err).Int64("chatId", chatID).Msg("link start: lookup failed")
		return "Something went wrong, please try again."
	}

	if account != nil && account.Linked() {
		return fmt.Sprintf(
			"This chat is already linked to %s. You're all set.",
			util.MaskEmail(*account.Email),
		)
	}

	s.mu.Lock()
	s.sessions[chatID] = &linkSession{
		state:     model.LinkStateAwaitingEmail,
		updatedAt: time.Now(),
	}
	s.mu.Unlock()

	return "Let's link your web account. What email address did you sign up with?\nSend /cancel at any time to abort."
}

// Cancel tears down the session. Safe to call when none exists.
func (s *LinkingService) Cancel(chatID int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.get(chatID) == nil {
		return "Nothing to cancel."
	}
	delete(s.sessions, chatID)
	return "Linking cancelled."
}

// HandleMessage consumes one free-text message for an active session and
// returns the reply. The caller must have checked Active first.
func (s *LinkingService) HandleMessage(ctx context.Context, chatID int64, chatUsername *string, text string) string {
	s.mu.Lock()
	session := s.get(chatID)
	s.mu.Unlock()

	if session == nil {
		return "No linking in progress. Send /link to start."
	}

	switch session.state {
	case model.LinkStateAwaitingEmail:
		return s.handleEmail(ctx, chatID, session, text)
	case model.LinkStateAwaitingCode:
		return s.handleCode(ctx, chatID, chatUsername, session, text)
	default:
		s.mu.Lock()
		delete(s.sessions, chatID)
		s.mu.Unlock()
		return "No linking in progress. Send /link to start."
	}
}

func (s *LinkingService) handleEmail(ctx context.Context, chatID int64, session *linkSession, text string) string {
	email := util.NormalizeEmail(text)
	if !util.IsValidEmail(email) {
		return "That doesn't look like an email address. Try again, or /cancel to abort."
	}

	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		log.Error().Err(err).Int64("chatId", chatID).Msg("link: email lookup failed")
		return "Something went wrong, please try again."
	}
	if account == nil {
		return "No account found for that email. Sign up on the website first, then try /link again."
	}
	if account.ChatID != nil {
		s.mu.Lock()
		delete(s.sessions, chatID)
		s.mu.Unlock()
		if *account.ChatID == chatID {
			return fmt.Sprintf("This chat is already linked to %s. You're all set.", util.MaskEmail(email))
		}
		// Bound to someone else. End the conversation before any passcode
		// goes out; the merge-time conflict check stays as a backstop.
		return "That account is already linked to a different chat. Unlink it there first, then send /link again."
	}

	if allowed, resetAt := s.limiter.AllowOTPIssue(ctx, email); !allowed {
		return fmt.Sprintf(
			"Too many codes requested for that email. Try again after %s.",
			resetAt.UTC().Format("15:04 MST"),
		)
	}

	if err := s.otp.IssueAndSend(ctx, email); err != nil {
		if errors.HasCode(err, errors.ErrCodeNotifyFailed) {
			return "Couldn't send the verification email. Check the address and try again."
		}
		log.Error().Err(err).Int64("chatId", chatID).Msg("link: passcode issue failed")
		return "Something went wrong, please try again."
	}

	s.update(chatID, func(sess *linkSession) {
		sess.state = model.LinkStateAwaitingCode
		sess.email = email
	})

	return fmt.Sprintf(
		"Sent a 6-digit code to %s. It expires in 10 minutes.\nReply with the code, or /cancel to abort.",
		util.MaskEmail(email),
	)
}

func (s *LinkingService) handleCode(ctx context.Context, chatID int64, chatUsername *string, session *linkSession, text string) string {
	code := util.NormalizeCode(text)
	if !util.IsValidPasscode(code) {
		return "The code is 6 digits. Try again, or /cancel to abort."
	}

	if err := s.otp.Verify(ctx, session.email, code); err != nil {
		switch {
		case errors.HasCode(err, errors.ErrCodeOTPExpired),
			errors.HasCode(err, errors.ErrCodeInvalidOTP):
			// A failed verification ends the conversation; a fresh /link
			// starts over from the email step.
			s.mu.Lock()
			delete(s.sessions, chatID)
			s.mu.Unlock()
			return "Invalid or expired code. Send /link to try again."
		default:
			log.Error().Err(err).Int64("chatId", chatID).Msg("link: passcode verify failed")
			return "Something went wrong, please try again."
		}
	}

	account, err := s.credits.Merge(ctx, chatID, chatUsername, session.email)
	if err != nil {
		switch {
		case errors.HasCode(err, errors.ErrCodeEmailAlreadyLinked):
			s.mu.Lock()
			delete(s.sessions, chatID)
			s.mu.Unlock()
			return "That account is already linked to a different chat. Unlink it there first."
		case errors.HasCode(err, errors.ErrCodeAccountNotFound):
			s.mu.Lock()
			delete(s.sessions, chatID)
			s.mu.Unlock()
			return "That account no longer exists. Sign up on the website and try /link again."
		default:
			log.Error().Err(err).Int64("chatId", chatID).Msg("link: merge failed")
			return "Verified, but linking failed on our side. Send /link to try again."
		}
	}

	s.mu.Lock()
	delete(s.sessions, chatID)
	s.mu.Unlock()

	return fmt.Sprintf(
		"Linked! Your accounts are now one.\nBalance: %d credit(s) (%d free, %d paid).",
		account.TotalCredits(), account.FreeCredits, account.PaidCredits,
	)
}

// EvictStale drops sessions idle past the TTL. Called from the cleanup job.
func (s *LinkingService) EvictStale() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-s.ttl)
	evicted := 0
	for chatID, session := range s.sessions {
		if session.updatedAt.Before(cutoff) {
			delete(s.sessions, chatID)
			evicted++
		}
	}
	return evicted
}

// get returns the live session for the chat, lazily expiring stale ones.
// Callers hold s.mu.
func (s *LinkingService) get(chatID int64) *linkSession {
	session, ok := s.sessions[chatID]
	if !ok {
		return nil
	}
	if time.Since(session.updatedAt) > s.ttl {
		delete(s.sessions, chatID)
		return nil
	}
	return session
}

func (s *LinkingService) update(chatID int64, fn func(*linkSession)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[chatID]; ok {
		fn(session)
		session.updatedAt = time.Now()
	}
}
