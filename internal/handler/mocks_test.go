package handler

import (
	"context"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/examprep/telegram-bot-go/internal/database"
	"github.com/examprep/telegram-bot-go/internal/model"
	"github.com/examprep/telegram-bot-go/internal/repository"
)

type fakeAccountRepo struct {
	findByIDFunc       func(ctx context.Context, id string) (*model.Account, error)
	findByChatIDFunc   func(ctx context.Context, chatID int64) (*model.Account, error)
	findByEmailFunc    func(ctx context.Context, email string) (*model.Account, error)
	createFromChatFunc func(ctx context.Context, params model.CreateChatAccountParams) (*model.Account, error)
	spendFunc          func(ctx context.Context, id string) (*model.Account, error)
	addPaidFunc        func(ctx context.Context, email string, credits int) (*model.Account, error)
	mergeFunc          func(ctx context.Context, id string, params model.MergeAccountParams) (*model.Account, error)
}

func (f *fakeAccountRepo) FindByID(ctx context.Context, id string) (*model.Account, error) {
	if f.findByIDFunc != nil {
		return f.findByIDFunc(ctx, id)
	}
	return nil, nil
}

func (f *fakeAccountRepo) FindByChatID(ctx context.Context, chatID int64) (*model.Account, error) {
	if f.findByChatIDFunc != nil {
		return f.findByChatIDFunc(ctx, chatID)
	}
	return nil, nil
}

func (f *fakeAccountRepo) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	if f.findByEmailFunc != nil {
		return f.findByEmailFunc(ctx, email)
	}
	return nil, nil
}

func (f *fakeAccountRepo) FindByIDForUpdate(ctx context.Context, id string) (*model.Account, error) {
	if f.findByIDFunc != nil {
		return f.findByIDFunc(ctx, id)
	}
	return nil, nil
}

func (f *fakeAccountRepo) CreateFromChat(ctx context.Context, params model.CreateChatAccountParams) (*model.Account, error) {
	if f.createFromChatFunc != nil {
		return f.createFromChatFunc(ctx, params)
	}
	return nil, nil
}

func (f *fakeAccountRepo) Spend(ctx context.Context, id string) (*model.Account, error) {
	if f.spendFunc != nil {
		return f.spendFunc(ctx, id)
	}
	return nil, nil
}

func (f *fakeAccountRepo) AddPaidCredits(ctx context.Context, email string, credits int) (*model.Account, error) {
	if f.addPaidFunc != nil {
		return f.addPaidFunc(ctx, email, credits)
	}
	return nil, nil
}

func (f *fakeAccountRepo) Merge(ctx context.Context, id string, params model.MergeAccountParams) (*model.Account, error) {
	if f.mergeFunc != nil {
		return f.mergeFunc(ctx, id, params)
	}
	return nil, nil
}

func (f *fakeAccountRepo) Delete(ctx context.Context, id string) error {
	return nil
}

func (f *fakeAccountRepo) WithTx(tx *sqlx.Tx) repository.AccountRepository {
	return f
}

type fakeOTPRepo struct {
	createFunc  func(ctx context.Context, params model.CreateOTPCodeParams) (*model.OTPCode, error)
	consumeFunc func(ctx context.Context, email, code string) (*model.OTPCode, error)
}

func (f *fakeOTPRepo) Create(ctx context.Context, params model.CreateOTPCodeParams) (*model.OTPCode, error) {
	if f.createFunc != nil {
		return f.createFunc(ctx, params)
	}
	return &model.OTPCode{ID: "otp-1", Email: params.Email, ExpiresAt: params.ExpiresAt}, nil
}

func (f *fakeOTPRepo) Consume(ctx context.Context, email, code string) (*model.OTPCode, error) {
	if f.consumeFunc != nil {
		return f.consumeFunc(ctx, email, code)
	}
	return nil, nil
}

func (f *fakeOTPRepo) FindMatch(ctx context.Context, email, code string) (*model.OTPCode, error) {
	return nil, nil
}

func (f *fakeOTPRepo) DeleteExpired(ctx context.Context) (int64, error) {
	return 0, nil
}

type fakeNotifier struct{}

func (fakeNotifier) Send(ctx context.Context, email, code string) error { return nil }

// recordingSender captures outbound messages for assertions.
type recordingSender struct {
	mu       sync.Mutex
	messages []string
}

func (s *recordingSender) SendMessage(ctx context.Context, chatID int64, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, text)
	return nil
}

func (s *recordingSender) SendChunked(ctx context.Context, chatID int64, text string) error {
	return s.SendMessage(ctx, chatID, text)
}

func (s *recordingSender) all() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.messages...)
}

type fakeGenerator struct {
	generateFunc func(ctx context.Context, topic string) (string, error)
}

func (f *fakeGenerator) GenerateQuestions(ctx context.Context, topic string) (string, error) {
	if f.generateFunc != nil {
		return f.generateFunc(ctx, topic)
	}
	return "1. What is testing?\n\nAnswers\n1. Checking behavior.", nil
}

type fakeChatLimiter struct {
	allow bool
}

func (f fakeChatLimiter) AllowChat(ctx context.Context, chatID int64) (bool, time.Time) {
	return f.allow, time.Now().Add(time.Minute)
}

type fakeOTPLimiter struct{}

func (fakeOTPLimiter) AllowOTPIssue(ctx context.Context, email string) (bool, time.Time) {
	return true, time.Time{}
}

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn database.TxFunc) error {
	return fn(nil)
}

type fakeDeduper struct {
	reserved map[string]bool
}

func (f *fakeDeduper) ReserveTopUpEvent(ctx context.Context, eventID string) (bool, error) {
	if f.reserved == nil {
		f.reserved = make(map[string]bool)
	}
	if f.reserved[eventID] {
		return false, nil
	}
	f.reserved[eventID] = true
	return true, nil
}

func (f *fakeDeduper) ReleaseTopUpEvent(ctx context.Context, eventID string) {
	delete(f.reserved, eventID)
}
