package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"wallet-transfers/internal/domain"
	"wallet-transfers/internal/errors"
)

// Store provides a unified interface for all repository operations with transaction support
type Store struct {
	executor SQLExecutor
	logger   *slog.Logger
}

// NewStore creates a new Store instance
func NewStore(db DB, logger *slog.Logger) *Store {
	return &Store{
		executor: db,
		logger:   logger,
	}
}

// Account returns an AccountRepository using the current executor
func (s *Store) Account() domain.AccountRepository {
	return NewAccountRepository(s.executor, s.logger)
}

// Transaction returns a TransactionRepository using the current executor
func (s *Store) Transaction() domain.TransactionRepository {
	return NewTransactionRepository(s.executor, s.logger)
}

// Ping checks the underlying database connection.
func (s *Store) Ping(ctx context.Context) error {
	db, ok := s.executor.(interface{ PingContext(context.Context) error })
	if !ok {
		return nil
	}
	return db.PingContext(ctx)
}

// WithTransaction runs fn against a Store bound to a single database
// transaction. The transaction commits when fn returns nil and rolls back on
// error or panic, so row locks taken inside fn are released on every path.
func (s *Store) WithTransaction(ctx context.Context, fn func(*Store) error) error {
	// Only a DB can begin transactions; a Store already bound to one cannot nest
	db, ok := s.executor.(DB)
	if !ok {
		return errors.ErrCannotBeginTransaction
	}

	tx, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}

	txStore := &Store{
		executor: tx,
		logger:   s.logger,
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(txStore); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("Failed to roll back transaction", "error", rbErr)
		}
		return err
	}

	return tx.Commit()
}
