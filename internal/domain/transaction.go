package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StatusCompleted is the only status a transfer record is ever written with.
const StatusCompleted = "completed"

type Transaction struct {
	ID            uuid.UUID       `json:"id"`
	SenderID      int64           `json:"sender_id"`
	ReceiverID    int64           `json:"receiver_id"`
	Amount        decimal.Decimal `json:"amount"`
	CommissionFee decimal.Decimal `json:"commission_fee"`
	TotalDeducted decimal.Decimal `json:"total_deducted"`
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`

	// Populated when the record is loaded together with its participants.
	Sender   *Identity `json:"sender,omitempty"`
	Receiver *Identity `json:"receiver,omitempty"`
}

// Direction tells whether the record was sent or received from the point of view of accountID.
func (t *Transaction) Direction(accountID int64) string {
	if t.SenderID == accountID {
		return "sent"
	}
	return "received"
}

type TransactionRepository interface {
	CreateTransaction(ctx context.Context, tx *Transaction) error
	GetTransactionByID(ctx context.Context, id uuid.UUID) (*Transaction, error)
	ListByAccount(ctx context.Context, accountID int64, page Page) ([]*Transaction, int, error)
}

// Page selects a 1-based page of results.
type Page struct {
	Number  int
	PerPage int
}

const DefaultPerPage = 10

func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.PerPage < 1 || p.PerPage > 100 {
		p.PerPage = DefaultPerPage
	}
	return p
}

func (p Page) Offset() int {
	return (p.Number - 1) * p.PerPage
}
