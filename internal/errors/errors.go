package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
)

type ErrorCode string

const (
	AccountNotFound       ErrorCode = "account_not_found"
	SenderNotFound        ErrorCode = "sender_not_found"
	ReceiverNotFound      ErrorCode = "receiver_not_found"
	DuplicateAccount      ErrorCode = "duplicate_account"
	InsufficientBalance   ErrorCode = "insufficient_balance"
	InvalidAmount         ErrorCode = "invalid_amount"
	InvalidAccountID      ErrorCode = "invalid_account_id"
	InvalidInput          ErrorCode = "invalid_input"
	SameAccountTransfer   ErrorCode = "same_account_transfer"
	TransferFailed        ErrorCode = "transfer_failed"
	InternalError         ErrorCode = "internal_error"
	CannotBeginUnitOfWork ErrorCode = "cannot_begin_unit_of_work"
)

type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`

	// Set only for insufficient_balance.
	Required  decimal.Decimal `json:"-"`
	Available decimal.Decimal `json:"-"`
}

func (e AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches on code, so copies produced by WithDetails still compare equal to
// the predefined values. Sender and receiver lookups also match AccountNotFound.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	if e.Code == t.Code {
		return true
	}
	return t.Code == AccountNotFound && (e.Code == SenderNotFound || e.Code == ReceiverNotFound)
}

func NewAppError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

func NewAppErrorf(code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// WithDetails returns a copy carrying details; the receiver is left untouched.
func (e *AppError) WithDetails(details string) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

// NewInsufficientBalanceError reports the shortfall with both amounts at two decimals.
func NewInsufficientBalanceError(required, available decimal.Decimal) *AppError {
	return &AppError{
		Code: InsufficientBalance,
		Message: fmt.Sprintf("Insufficient balance. You need %s but only have %s.",
			required.StringFixed(2), available.StringFixed(2)),
		Required:  required,
		Available: available,
	}
}

// AsAppError unwraps err into an *AppError when it carries one.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsDomain reports whether err is a business-rule failure safe to show callers as is.
func IsDomain(err error) bool {
	appErr, ok := AsAppError(err)
	if !ok {
		return false
	}
	switch appErr.Code {
	case AccountNotFound, SenderNotFound, ReceiverNotFound, InsufficientBalance,
		InvalidAmount, SameAccountTransfer, InvalidAccountID, InvalidInput, DuplicateAccount:
		return true
	}
	return false
}

func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case AccountNotFound, SenderNotFound, ReceiverNotFound:
		return http.StatusNotFound
	case DuplicateAccount:
		return http.StatusConflict
	case InsufficientBalance:
		return http.StatusUnprocessableEntity
	case InvalidAmount, InvalidAccountID, InvalidInput, SameAccountTransfer:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Predefined errors for common cases
var (
	ErrAccountNotFound        = NewAppError(AccountNotFound, "account not found")
	ErrSenderNotFound         = NewAppError(SenderNotFound, "Sender not found.")
	ErrReceiverNotFound       = NewAppError(ReceiverNotFound, "Receiver not found.")
	ErrDuplicateAccount       = NewAppError(DuplicateAccount, "account already exists")
	ErrInsufficientBalance    = NewAppError(InsufficientBalance, "insufficient balance")
	ErrInvalidAmount          = NewAppError(InvalidAmount, "Invalid transaction amount.")
	ErrInvalidAccountID       = NewAppError(InvalidAccountID, "invalid account id")
	ErrSameAccountTransfer    = NewAppError(SameAccountTransfer, "You cannot send money to yourself.")
	ErrTransferFailed         = NewAppError(TransferFailed, "Something went wrong. Please try again later.")
	ErrCannotBeginTransaction = NewAppError(CannotBeginUnitOfWork, "cannot begin a transaction on this executor")
)
