package handler

import (
	"encoding/json"
	"net/http"

	"wallet-transfers/internal/domain"
	"wallet-transfers/internal/errors"
	"wallet-transfers/internal/service"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

type AccountHandler struct {
	accountService *service.AccountService
}

func NewAccountHandler(accountService *service.AccountService) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
	}
}

type CreateAccountRequest struct {
	AccountID      int64  `json:"account_id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	InitialBalance string `json:"initial_balance"`
}

type AccountResponse struct {
	AccountID int64  `json:"account_id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Balance   string `json:"balance"`
}

func newAccountResponse(account *domain.Account) AccountResponse {
	return AccountResponse{
		AccountID: account.ID,
		Name:      account.Name,
		Email:     account.Email,
		Balance:   account.Balance.StringFixed(2),
	}
}

func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid request body"))
		return
	}

	initialBalance, err := decimal.NewFromString(req.InitialBalance)
	if err != nil {
		writeError(w, errors.NewAppError(errors.InvalidAmount, "invalid initial_balance format"))
		return
	}

	account, err := h.accountService.CreateAccount(r.Context(), &service.CreateAccountRequest{
		AccountID:      req.AccountID,
		Name:           req.Name,
		Email:          req.Email,
		InitialBalance: initialBalance,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, newAccountResponse(account))
}

func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.accountService.GetAccount(r.Context(), mux.Vars(r)["account_id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newAccountResponse(account))
}

func (h *AccountHandler) ListRecipients(w http.ResponseWriter, r *http.Request) {
	recipients, err := h.accountService.ListRecipients(r.Context(), mux.Vars(r)["account_id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, recipients)
}
