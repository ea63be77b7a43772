package service

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"wallet-transfers/internal/domain"
	"wallet-transfers/internal/errors"
)

// maxInitialBalance caps the opening balance of a new account.
var maxInitialBalance = decimal.NewFromInt(10_000_000_000)

type AccountService struct {
	storage domain.Storage
	logger  *slog.Logger
}

func NewAccountService(storage domain.Storage, logger *slog.Logger) *AccountService {
	return &AccountService{
		storage: storage,
		logger:  logger,
	}
}

type CreateAccountRequest struct {
	AccountID      int64
	Name           string
	Email          string
	InitialBalance decimal.Decimal
}

func (s *AccountService) CreateAccount(ctx context.Context, req *CreateAccountRequest) (*domain.Account, error) {
	s.logger.Info("Creating account", "account_id", req.AccountID, "initial_balance", req.InitialBalance)

	if req.InitialBalance.IsNegative() {
		return nil, errors.ErrInvalidAmount
	}

	if req.InitialBalance.GreaterThan(maxInitialBalance) {
		return nil, errors.NewAppError(errors.InvalidAmount, "initial balance exceeds maximum limit")
	}

	if !req.InitialBalance.Equal(req.InitialBalance.Truncate(domain.MonetaryPlaces)) {
		return nil, errors.NewAppError(errors.InvalidAmount, "initial balance must have at most two decimal places")
	}

	if req.AccountID <= 0 {
		return nil, errors.NewAppError(errors.InvalidInput, "account ID must be positive")
	}

	account := &domain.Account{
		ID:      req.AccountID,
		Name:    strings.TrimSpace(req.Name),
		Email:   strings.TrimSpace(req.Email),
		Balance: req.InitialBalance,
	}

	if err := s.storage.Account().CreateAccount(ctx, account); err != nil {
		return nil, err
	}

	return account, nil
}

func (s *AccountService) GetAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	id, err := parseAccountID(accountID)
	if err != nil {
		return nil, err
	}

	return s.storage.Account().GetAccount(ctx, id)
}

// ListRecipients returns everyone the account can send money to.
func (s *AccountService) ListRecipients(ctx context.Context, accountID string) ([]*domain.Identity, error) {
	id, err := parseAccountID(accountID)
	if err != nil {
		return nil, err
	}

	if _, err := s.storage.Account().GetAccount(ctx, id); err != nil {
		return nil, err
	}

	return s.storage.Account().ListRecipients(ctx, id)
}

func parseAccountID(accountID string) (int64, error) {
	id, err := strconv.ParseInt(accountID, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.ErrInvalidAccountID
	}
	return id, nil
}
