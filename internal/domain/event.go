package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventTransactionProcessed is the name completion events are published under.
const EventTransactionProcessed = "transaction.processed"

// TransferCompleted is published once per committed transfer, addressed to the receiver.
type TransferCompleted struct {
	TransactionID uuid.UUID       `json:"transaction_id"`
	SenderID      int64           `json:"sender_id"`
	ReceiverID    int64           `json:"receiver_id"`
	Amount        decimal.Decimal `json:"amount"`
	CommissionFee decimal.Decimal `json:"commission_fee"`
	TotalDeducted decimal.Decimal `json:"total_deducted"`
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	Sender        *Identity       `json:"sender"`
	Receiver      *Identity       `json:"receiver"`
}

func NewTransferCompleted(tx *Transaction) *TransferCompleted {
	return &TransferCompleted{
		TransactionID: tx.ID,
		SenderID:      tx.SenderID,
		ReceiverID:    tx.ReceiverID,
		Amount:        tx.Amount,
		CommissionFee: tx.CommissionFee,
		TotalDeducted: tx.TotalDeducted,
		Status:        tx.Status,
		CreatedAt:     tx.CreatedAt,
		Sender:        tx.Sender,
		Receiver:      tx.Receiver,
	}
}

// Channel is the private per-receiver channel the event is delivered on.
func (e *TransferCompleted) Channel() string {
	return UserChannel(e.ReceiverID)
}

func UserChannel(accountID int64) string {
	return fmt.Sprintf("user.%d", accountID)
}

// Publisher delivers completion events to an external transport.
type Publisher interface {
	Publish(ctx context.Context, event *TransferCompleted) error
}
