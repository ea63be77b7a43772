package service

import (
	"context"
	"log/slog"

	"wallet-transfers/internal/domain"
)

// TransactionService serves an account's transfer history.
type TransactionService struct {
	storage domain.Storage
	logger  *slog.Logger
}

func NewTransactionService(storage domain.Storage, logger *slog.Logger) *TransactionService {
	return &TransactionService{
		storage: storage,
		logger:  logger,
	}
}

type HistoryPage struct {
	AccountID    int64
	Transactions []*domain.Transaction
	Total        int
	Page         int
	PerPage      int
}

func (s *TransactionService) History(ctx context.Context, accountID string, page domain.Page) (*HistoryPage, error) {
	id, err := parseAccountID(accountID)
	if err != nil {
		return nil, err
	}

	if _, err := s.storage.Account().GetAccount(ctx, id); err != nil {
		return nil, err
	}

	page = page.Normalize()
	transactions, total, err := s.storage.Transaction().ListByAccount(ctx, id, page)
	if err != nil {
		return nil, err
	}

	return &HistoryPage{
		AccountID:    id,
		Transactions: transactions,
		Total:        total,
		Page:         page.Number,
		PerPage:      page.PerPage,
	}, nil
}
