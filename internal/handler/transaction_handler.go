package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"wallet-transfers/internal/domain"
	"wallet-transfers/internal/errors"
	"wallet-transfers/internal/service"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

type TransactionHandler struct {
	transferService    *service.TransferService
	transactionService *service.TransactionService
}

func NewTransactionHandler(transferService *service.TransferService, transactionService *service.TransactionService) *TransactionHandler {
	return &TransactionHandler{
		transferService:    transferService,
		transactionService: transactionService,
	}
}

type TransferRequest struct {
	SenderID   json.Number `json:"sender_id"`
	ReceiverID json.Number `json:"receiver_id"`
	Amount     string      `json:"amount"`
}

type TransactionResponse struct {
	TransactionID string           `json:"transaction_id"`
	Type          string           `json:"type,omitempty"`
	SenderID      int64            `json:"sender_id"`
	ReceiverID    int64            `json:"receiver_id"`
	Amount        string           `json:"amount"`
	CommissionFee string           `json:"commission_fee"`
	TotalDeducted string           `json:"total_deducted"`
	Status        string           `json:"status"`
	CreatedAt     string           `json:"created_at"`
	Sender        *domain.Identity `json:"sender,omitempty"`
	Receiver      *domain.Identity `json:"receiver,omitempty"`
}

type PageMeta struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Total   int `json:"total"`
}

func newTransactionResponse(tx *domain.Transaction) TransactionResponse {
	return TransactionResponse{
		TransactionID: tx.ID.String(),
		SenderID:      tx.SenderID,
		ReceiverID:    tx.ReceiverID,
		Amount:        tx.Amount.StringFixed(2),
		CommissionFee: tx.CommissionFee.StringFixed(2),
		TotalDeducted: tx.TotalDeducted.StringFixed(2),
		Status:        tx.Status,
		CreatedAt:     tx.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z"),
		Sender:        tx.Sender,
		Receiver:      tx.Receiver,
	}
}

func (h *TransactionHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid request body").WithDetails(err.Error()))
		return
	}

	senderID, err := req.SenderID.Int64()
	if err != nil {
		writeError(w, errors.ErrInvalidAccountID.WithDetails("sender_id must be an integer"))
		return
	}

	receiverID, err := req.ReceiverID.Int64()
	if err != nil {
		writeError(w, errors.ErrInvalidAccountID.WithDetails("receiver_id must be an integer"))
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, errors.NewAppError(errors.InvalidAmount, "The amount must be a valid number."))
		return
	}

	transaction, err := h.transferService.Transfer(r.Context(), &service.TransferRequest{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Amount:     amount,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, newTransactionResponse(transaction))
}

func (h *TransactionHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["account_id"]

	page := domain.Page{
		Number:  queryInt(r, "page"),
		PerPage: queryInt(r, "per_page"),
	}

	history, err := h.transactionService.History(r.Context(), accountID, page)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	items := make([]TransactionResponse, 0, len(history.Transactions))
	for _, tx := range history.Transactions {
		item := newTransactionResponse(tx)
		item.Type = tx.Direction(history.AccountID)
		items = append(items, item)
	}

	writeResponse(w, http.StatusOK, Response{
		Data: items,
		Meta: PageMeta{Page: history.Page, PerPage: history.PerPage, Total: history.Total},
	})
}

// CommissionConfig exposes the rate so callers can preview the fee of a transfer.
func (h *TransactionHandler) CommissionConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"commission_rate": h.transferService.CommissionRate().String(),
	})
}

func queryInt(r *http.Request, key string) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return v
}
