package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type Account struct {
	ID        int64           `json:"account_id"`
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Identity is the display identity of an account, denormalized into records and events.
type Identity struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (a *Account) Identity() *Identity {
	return &Identity{ID: a.ID, Name: a.Name, Email: a.Email}
}

type AccountRepository interface {
	CreateAccount(ctx context.Context, account *Account) error
	GetAccount(ctx context.Context, id int64) (*Account, error)
	GetAccountForUpdate(ctx context.Context, id int64) (*Account, error)
	UpdateAccountBalance(ctx context.Context, id int64, newBalance decimal.Decimal) error
	ListRecipients(ctx context.Context, excludeID int64) ([]*Identity, error)
}
