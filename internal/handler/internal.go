package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/examprep/telegram-bot-go/internal/errors"
	"github.com/examprep/telegram-bot-go/internal/httputil"
	"github.com/examprep/telegram-bot-go/internal/model"
	"github.com/examprep/telegram-bot-go/internal/service"
	"github.com/examprep/telegram-bot-go/internal/util"
)

// InternalHandler serves the web backend: crediting purchases and reading
// account state. Sits behind bearer auth; never exposed to Telegram traffic.
type InternalHandler struct {
	accounts *service.AccountService
	credits  *service.CreditService
}

func NewInternalHandler(accounts *service.AccountService, credits *service.CreditService) *InternalHandler {
	return &InternalHandler{
		accounts: accounts,
		credits:  credits,
	}
}

type topUpRequest struct {
	EventID string `json:"eventId"`
	Email   string `json:"email"`
	Credits int    `json:"credits"`
}

type accountResponse struct {
	ID            string  `json:"id"`
	Email         *string `json:"email,omitempty"`
	EmailVerified bool    `json:"emailVerified"`
	ChatLinked    bool    `json:"chatLinked"`
	FreeCredits   int     `json:"freeCredits"`
	PaidCredits   int     `json:"paidCredits"`
	TotalQueries  int     `json:"totalQueries"`
}

func formatAccount(account *model.Account) accountResponse {
	return accountResponse{
		ID:            account.ID,
		Email:         account.Email,
		EmailVerified: account.EmailVerified,
		ChatLinked:    account.ChatID != nil,
		FreeCredits:   account.FreeCredits,
		PaidCredits:   account.PaidCredits,
		TotalQueries:  account.TotalQueries,
	}
}

// TopUp credits a completed purchase. Idempotent on eventId: the payment
// provider retries webhooks and each event must land exactly once.
func (h *InternalHandler) TopUp(w http.ResponseWriter, r *http.Request) {
	var req topUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, errors.InvalidInput("body", "not valid JSON"))
		return
	}

	if !util.IsValidUUID(req.EventID) {
		httputil.WriteError(w, errors.InvalidInput("eventId", "must be a UUID"))
		return
	}
	email := util.NormalizeEmail(req.Email)
	if !util.IsValidEmail(email) {
		httputil.WriteError(w, errors.InvalidEmail())
		return
	}
	if req.Credits <= 0 {
		httputil.WriteError(w, errors.InvalidInput("credits", "must be positive"))
		return
	}

	account, applied, err := h.credits.TopUp(r.Context(), req.EventID, email, req.Credits)
	if err != nil {
		if errors.IsAppError(err) {
			httputil.WriteError(w, err)
			return
		}
		log.Error().Err(err).Str("eventId", req.EventID).Msg("topup failed")
		httputil.WriteError(w, errors.Database(err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"applied": applied,
		"account": formatAccount(account),
	})
}

// GetAccount returns the account bound to an email.
func (h *InternalHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	email := util.NormalizeEmail(chi.URLParam(r, "email"))
	if !util.IsValidEmail(email) {
		httputil.WriteError(w, errors.InvalidEmail())
		return
	}

	account, err := h.accounts.FindByEmail(r.Context(), email)
	if err != nil {
		log.Error().Err(err).Msg("account lookup failed")
		httputil.WriteError(w, errors.Database(err))
		return
	}
	if account == nil {
		httputil.WriteError(w, errors.AccountNotFound())
		return
	}

	writeJSON(w, http.StatusOK, formatAccount(account))
}
