package repository

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/google/uuid"

	"wallet-transfers/internal/domain"
	"wallet-transfers/internal/errors"
)

// Ledger executes transfers against Postgres using row locks.
type Ledger struct {
	store *Store
}

func NewLedger(store *Store) *Ledger {
	return &Ledger{store: store}
}

var _ domain.Ledger = (*Ledger)(nil)

func (l *Ledger) Execute(ctx context.Context, in domain.TransferInput) (*domain.Transaction, error) {
	if in.SenderID == in.ReceiverID {
		return nil, errors.ErrSameAccountTransfer
	}

	var record *domain.Transaction

	err := l.store.WithTransaction(ctx, func(tx *Store) error {
		accounts := tx.Account()

		sender, receiver, err := lockPair(ctx, accounts, in.SenderID, in.ReceiverID)
		if err != nil {
			return err
		}

		fee, total := domain.Commission(in.Amount, in.CommissionRate)
		if sender.Balance.LessThan(total) {
			return errors.NewInsufficientBalanceError(total, sender.Balance)
		}

		if err := accounts.UpdateAccountBalance(ctx, sender.ID, sender.Balance.Sub(total)); err != nil {
			return err
		}
		if err := accounts.UpdateAccountBalance(ctx, receiver.ID, receiver.Balance.Add(in.Amount)); err != nil {
			return err
		}

		record = &domain.Transaction{
			ID:            uuid.New(),
			SenderID:      sender.ID,
			ReceiverID:    receiver.ID,
			Amount:        in.Amount,
			CommissionFee: fee,
			TotalDeducted: total,
			Status:        domain.StatusCompleted,
			CreatedAt:     time.Now().UTC(),
			Sender:        sender.Identity(),
			Receiver:      receiver.Identity(),
		}
		return tx.Transaction().CreateTransaction(ctx, record)
	})
	if err != nil {
		return nil, err
	}

	return record, nil
}

// lockPair locks both rows, lower id first, so two transfers between the same
// pair of accounts in opposite directions cannot deadlock.
func lockPair(ctx context.Context, accounts domain.AccountRepository, senderID, receiverID int64) (sender, receiver *domain.Account, err error) {
	first, second := senderID, receiverID
	if second < first {
		first, second = second, first
	}

	locked := make(map[int64]*domain.Account, 2)
	for _, id := range []int64{first, second} {
		account, err := accounts.GetAccountForUpdate(ctx, id)
		if err != nil {
			if stderrors.Is(err, errors.ErrAccountNotFound) {
				return nil, nil, notFoundFor(id, senderID)
			}
			return nil, nil, err
		}
		locked[id] = account
	}

	return locked[senderID], locked[receiverID], nil
}

func notFoundFor(id, senderID int64) error {
	if id == senderID {
		return errors.ErrSenderNotFound
	}
	return errors.ErrReceiverNotFound
}
