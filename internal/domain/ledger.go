package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// TransferInput is one unit of work for a Ledger.
type TransferInput struct {
	SenderID       int64
	ReceiverID     int64
	Amount         decimal.Decimal
	CommissionRate decimal.Decimal
}

// Ledger moves funds between two accounts as a single unit of work: both
// accounts are locked in ascending id order, the sender is debited amount plus
// commission, the receiver is credited amount and one completed record is
// appended. Either all of it commits or none of it does.
type Ledger interface {
	Execute(ctx context.Context, in TransferInput) (*Transaction, error)
}
