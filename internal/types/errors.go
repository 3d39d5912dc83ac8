package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a specific error type
type ErrorCode string

const (
	// Wallet errors
	ErrInsufficientFunds ErrorCode = "INSUFFICIENT_FUNDS"
	ErrInvalidAmount     ErrorCode = "INVALID_AMOUNT"
	ErrPayoutNotPending  ErrorCode = "PAYOUT_NOT_PENDING"

	// Scholarship errors
	ErrCommissionNotEarned ErrorCode = "COMMISSION_NOT_EARNED"

	// Lookup errors
	ErrNotFound        ErrorCode = "NOT_FOUND"
	ErrInvalidArgument ErrorCode = "INVALID_ARGUMENT"

	// System errors
	ErrInternalError ErrorCode = "INTERNAL_ERROR"
	ErrDatabaseError ErrorCode = "DATABASE_ERROR"
)

// LedgerError represents a business-rule or system error raised by the ledger
type LedgerError struct {
	Code    ErrorCode
	Message string
	Err     error // Underlying error, if any
}

// Error implements the error interface
func (e *LedgerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *LedgerError) Unwrap() error {
	return e.Err
}

// NewLedgerError creates a new LedgerError
func NewLedgerError(code ErrorCode, message string) *LedgerError {
	return &LedgerError{
		Code:    code,
		Message: message,
	}
}

// WrapError wraps an existing error in a LedgerError
func WrapError(code ErrorCode, message string, err error) *LedgerError {
	return &LedgerError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsLedgerError checks if an error is a LedgerError and has a specific code
func IsLedgerError(err error, code ErrorCode) bool {
	var ledgerErr *LedgerError
	if err == nil {
		return false
	}
	if ok := As(err, &ledgerErr); !ok {
		return false
	}
	return ledgerErr.Code == code
}

// As finds the first LedgerError in err's chain
func As(err error, target **LedgerError) bool {
	if target == nil || err == nil {
		return false
	}
	return errors.As(err, target)
}
