package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"wallet-transfers/internal/domain"
	"wallet-transfers/internal/errors"
)

// Records are always read together with both participants' display identity.
const transactionSelect = `
	SELECT t.id, t.sender_id, t.receiver_id, t.amount, t.commission_fee, t.total_deducted, t.status, t.created_at,
		s.name, s.email, r.name, r.email
	FROM transactions t
	JOIN accounts s ON s.id = t.sender_id
	JOIN accounts r ON r.id = t.receiver_id
`

type transactionRepository struct {
	db     SQLExecutor
	logger *slog.Logger
}

func NewTransactionRepository(db SQLExecutor, logger *slog.Logger) domain.TransactionRepository {
	return &transactionRepository{
		db:     db,
		logger: logger,
	}
}

// CreateTransaction appends a record. Records are never updated afterwards.
func (r *transactionRepository) CreateTransaction(ctx context.Context, tx *domain.Transaction) error {
	query := `
		INSERT INTO transactions
		(id, sender_id, receiver_id, amount, commission_fee, total_deducted, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		query,
		tx.ID,
		tx.SenderID,
		tx.ReceiverID,
		tx.Amount.StringFixed(domain.MonetaryPlaces),
		tx.CommissionFee.StringFixed(domain.MonetaryPlaces),
		tx.TotalDeducted.StringFixed(domain.MonetaryPlaces),
		tx.Status,
		tx.CreatedAt,
	)

	if err != nil {
		r.logger.Error("Failed to create transaction",
			"sender_id", tx.SenderID,
			"receiver_id", tx.ReceiverID,
			"amount", tx.Amount,
			"error", err)
		return errors.NewAppError(errors.InternalError, "failed to create transaction").WithDetails(err.Error())
	}

	r.logger.Info("Transaction created successfully", "transaction_id", tx.ID)
	return nil
}

func (r *transactionRepository) GetTransactionByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	query := transactionSelect + ` WHERE t.id = $1`

	transaction, err := scanTransactionRow(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get transaction", "transaction_id", id, "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to get transaction").WithDetails(err.Error())
	}

	return transaction, nil
}

// ListByAccount returns one page of records the account sent or received,
// newest first, along with the total number of such records.
func (r *transactionRepository) ListByAccount(ctx context.Context, accountID int64, page domain.Page) ([]*domain.Transaction, int, error) {
	page = page.Normalize()

	var total int
	countQuery := `SELECT COUNT(*) FROM transactions WHERE sender_id = $1 OR receiver_id = $1`
	if err := r.db.QueryRowContext(ctx, countQuery, accountID).Scan(&total); err != nil {
		r.logger.Error("Failed to count transactions", "account_id", accountID, "error", err)
		return nil, 0, errors.NewAppError(errors.InternalError, "failed to count transactions").WithDetails(err.Error())
	}

	query := transactionSelect + `
		WHERE t.sender_id = $1 OR t.receiver_id = $1
		ORDER BY t.created_at DESC, t.id
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, accountID, page.PerPage, page.Offset())
	if err != nil {
		r.logger.Error("Failed to list transactions", "account_id", accountID, "error", err)
		return nil, 0, errors.NewAppError(errors.InternalError, "failed to list transactions").WithDetails(err.Error())
	}
	defer rows.Close()

	transactions := make([]*domain.Transaction, 0, page.PerPage)
	for rows.Next() {
		transaction, err := scanTransactionRow(rows)
		if err != nil {
			return nil, 0, errors.NewAppError(errors.InternalError, "failed to scan transaction").WithDetails(err.Error())
		}
		transactions = append(transactions, transaction)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, errors.NewAppError(errors.InternalError, "failed to list transactions").WithDetails(err.Error())
	}
	return transactions, total, nil
}

func scanTransactionRow(row scanner) (*domain.Transaction, error) {
	var (
		transaction                 domain.Transaction
		amountStr, feeStr, totalStr string
		sender, receiver            domain.Identity
	)

	if err := row.Scan(
		&transaction.ID,
		&transaction.SenderID,
		&transaction.ReceiverID,
		&amountStr,
		&feeStr,
		&totalStr,
		&transaction.Status,
		&transaction.CreatedAt,
		&sender.Name,
		&sender.Email,
		&receiver.Name,
		&receiver.Email,
	); err != nil {
		return nil, err
	}

	var err error
	if transaction.Amount, err = decimal.NewFromString(amountStr); err != nil {
		return nil, err
	}
	if transaction.CommissionFee, err = decimal.NewFromString(feeStr); err != nil {
		return nil, err
	}
	if transaction.TotalDeducted, err = decimal.NewFromString(totalStr); err != nil {
		return nil, err
	}

	sender.ID = transaction.SenderID
	receiver.ID = transaction.ReceiverID
	transaction.Sender = &sender
	transaction.Receiver = &receiver

	return &transaction, nil
}
