package service

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"wallet-transfers/internal/domain"
	"wallet-transfers/internal/errors"
)

// TransferService validates transfer requests, hands them to the ledger and
// announces every committed transfer to the receiver.
type TransferService struct {
	ledger         domain.Ledger
	publisher      domain.Publisher
	commissionRate decimal.Decimal
	logger         *slog.Logger
}

func NewTransferService(
	ledger domain.Ledger,
	publisher domain.Publisher,
	commissionRate decimal.Decimal,
	logger *slog.Logger,
) *TransferService {
	return &TransferService{
		ledger:         ledger,
		publisher:      publisher,
		commissionRate: commissionRate,
		logger:         logger,
	}
}

type TransferRequest struct {
	SenderID   int64
	ReceiverID int64
	Amount     decimal.Decimal
}

func (s *TransferService) CommissionRate() decimal.Decimal {
	return s.commissionRate
}

// Transfer performs one transfer. There is no deduplication: every successful
// call moves money and produces a new record. Errors are either domain errors
// from the errors package or ErrTransferFailed.
func (s *TransferService) Transfer(ctx context.Context, req *TransferRequest) (*domain.Transaction, error) {
	s.logger.Info("Processing transfer",
		"sender_id", req.SenderID,
		"receiver_id", req.ReceiverID,
		"amount", req.Amount)

	if err := s.validateTransfer(req); err != nil {
		s.logger.Warn("Transfer rejected", "sender_id", req.SenderID, "error", err)
		return nil, err
	}

	transaction, err := s.ledger.Execute(ctx, domain.TransferInput{
		SenderID:       req.SenderID,
		ReceiverID:     req.ReceiverID,
		Amount:         req.Amount,
		CommissionRate: s.commissionRate,
	})
	if err != nil {
		if errors.IsDomain(err) {
			s.logger.Warn("Transfer declined", "sender_id", req.SenderID, "receiver_id", req.ReceiverID, "error", err)
			return nil, err
		}
		s.logger.Error("Transfer failed", "sender_id", req.SenderID, "receiver_id", req.ReceiverID, "error", err)
		return nil, errors.ErrTransferFailed
	}

	s.logger.Info("Transfer completed successfully",
		"transaction_id", transaction.ID,
		"commission_fee", transaction.CommissionFee,
		"total_deducted", transaction.TotalDeducted)

	s.notify(ctx, transaction)
	return transaction, nil
}

// notify publishes after commit. A failed publish does not undo the transfer;
// it is logged and dropped.
func (s *TransferService) notify(ctx context.Context, transaction *domain.Transaction) {
	if s.publisher == nil {
		return
	}

	event := domain.NewTransferCompleted(transaction)
	if err := s.publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		s.logger.Error("Failed to publish transfer notification",
			"transaction_id", transaction.ID,
			"channel", event.Channel(),
			"error", err)
	}
}

func (s *TransferService) validateTransfer(req *TransferRequest) error {
	if !domain.ValidAmount(req.Amount) {
		return errors.ErrInvalidAmount
	}

	if req.SenderID == req.ReceiverID {
		return errors.ErrSameAccountTransfer
	}

	return nil
}
