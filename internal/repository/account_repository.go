package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"wallet-transfers/internal/domain"
	"wallet-transfers/internal/errors"
)

const accountColumns = `id, name, email, balance, created_at, updated_at`

type accountRepository struct {
	db     SQLExecutor
	logger *slog.Logger
}

func NewAccountRepository(db SQLExecutor, logger *slog.Logger) domain.AccountRepository {
	return &accountRepository{
		db:     db,
		logger: logger,
	}
}

func (r *accountRepository) CreateAccount(ctx context.Context, account *domain.Account) error {
	query := `
		INSERT INTO accounts (id, name, email, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		query,
		account.ID,
		account.Name,
		account.Email,
		account.Balance.String(),
		now,
		now,
	)

	if err != nil {
		var pqErr *pq.Error
		if stderrors.As(err, &pqErr) && pqErr.Code == "23505" { // unique_violation
			r.logger.Warn("Duplicate account creation attempt", "account_id", account.ID)
			return errors.ErrDuplicateAccount
		}
		r.logger.Error("Failed to create account", "account_id", account.ID, "error", err)
		return errors.NewAppError(errors.InternalError, "failed to create account").WithDetails(err.Error())
	}

	account.CreatedAt = now
	account.UpdatedAt = now
	r.logger.Info("Account created successfully", "account_id", account.ID)
	return nil
}

func (r *accountRepository) GetAccount(ctx context.Context, id int64) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	return r.scanAccount(ctx, query, id)
}

// GetAccountForUpdate takes a row lock held until the surrounding transaction ends.
func (r *accountRepository) GetAccountForUpdate(ctx context.Context, id int64) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 FOR UPDATE`

	return r.scanAccount(ctx, query, id)
}

func (r *accountRepository) scanAccount(ctx context.Context, query string, id int64) (*domain.Account, error) {
	account, err := scanAccountRow(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			r.logger.Warn("Account not found", "account_id", id)
			return nil, errors.ErrAccountNotFound
		}
		r.logger.Error("Failed to get account", "account_id", id, "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to get account").WithDetails(err.Error())
	}

	return account, nil
}

func scanAccountRow(row scanner) (*domain.Account, error) {
	var account domain.Account
	var balanceStr string

	if err := row.Scan(
		&account.ID,
		&account.Name,
		&account.Email,
		&balanceStr,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		return nil, err
	}

	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		return nil, err
	}

	account.Balance = balance
	return &account, nil
}

func (r *accountRepository) UpdateAccountBalance(ctx context.Context, id int64, newBalance decimal.Decimal) error {
	query := `
		UPDATE accounts
		SET balance = $1, updated_at = $2
		WHERE id = $3
	`

	result, err := r.db.ExecContext(ctx, query, newBalance.String(), time.Now().UTC(), id)
	if err != nil {
		r.logger.Error("Failed to update account balance", "account_id", id, "error", err)
		return errors.NewAppError(errors.InternalError, "failed to update account balance").WithDetails(err.Error())
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewAppError(errors.InternalError, "failed to get rows affected").WithDetails(err.Error())
	}

	if rowsAffected == 0 {
		r.logger.Warn("No account found to update", "account_id", id)
		return errors.ErrAccountNotFound
	}

	r.logger.Debug("Account balance updated", "account_id", id, "new_balance", newBalance)
	return nil
}

// ListRecipients returns every account except excludeID, ordered by name.
func (r *accountRepository) ListRecipients(ctx context.Context, excludeID int64) ([]*domain.Identity, error) {
	query := `SELECT id, name, email FROM accounts WHERE id <> $1 ORDER BY name, id`

	rows, err := r.db.QueryContext(ctx, query, excludeID)
	if err != nil {
		r.logger.Error("Failed to list recipients", "account_id", excludeID, "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to list recipients").WithDetails(err.Error())
	}
	defer rows.Close()

	recipients := make([]*domain.Identity, 0)
	for rows.Next() {
		var identity domain.Identity
		if err := rows.Scan(&identity.ID, &identity.Name, &identity.Email); err != nil {
			return nil, errors.NewAppError(errors.InternalError, "failed to scan recipient").WithDetails(err.Error())
		}
		recipients = append(recipients, &identity)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.NewAppError(errors.InternalError, "failed to list recipients").WithDetails(err.Error())
	}
	return recipients, nil
}
