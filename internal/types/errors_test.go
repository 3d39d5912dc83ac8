package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

type ErrorTestSuite struct {
	suite.Suite
}

func TestErrorSuite(t *testing.T) {
	suite.Run(t, new(ErrorTestSuite))
}

func (s *ErrorTestSuite) TestNewLedgerError() {
	err := NewLedgerError(ErrInsufficientFunds, "requested 100.00, available 25.00")

	s.Equal(ErrInsufficientFunds, err.Code)
	s.Equal("requested 100.00, available 25.00", err.Message)
	s.Nil(err.Err)
}

func (s *ErrorTestSuite) TestWrapError() {
	underlying := errors.New("database is locked")

	err := WrapError(ErrDatabaseError, "failed to save wallet", underlying)

	s.Equal(ErrDatabaseError, err.Code)
	s.Equal("failed to save wallet", err.Message)
	s.ErrorIs(err, underlying, "Underlying error should be reachable through Unwrap")
}

func (s *ErrorTestSuite) TestErrorString() {
	testCases := []struct {
		name     string
		err      *LedgerError
		expected string
	}{
		{
			name:     "Simple error",
			err:      NewLedgerError(ErrInsufficientFunds, "insufficient funds"),
			expected: "INSUFFICIENT_FUNDS: insufficient funds",
		},
		{
			name:     "Wrapped error",
			err:      WrapError(ErrDatabaseError, "failed to save payout", errors.New("disk I/O error")),
			expected: "DATABASE_ERROR: failed to save payout (disk I/O error)",
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			s.Equal(tc.expected, tc.err.Error(), "Error string should match expected format")
		})
	}
}

func (s *ErrorTestSuite) TestIsLedgerError() {
	// Setup
	ledgerErr := NewLedgerError(ErrInsufficientFunds, "insufficient funds")
	regularErr := errors.New("regular error")

	// Test cases
	testCases := []struct {
		name     string
		err      error
		code     ErrorCode
		expected bool
	}{
		{
			name:     "Matching ledger error",
			err:      ledgerErr,
			code:     ErrInsufficientFunds,
			expected: true,
		},
		{
			name:     "Non-matching ledger error",
			err:      ledgerErr,
			code:     ErrPayoutNotPending,
			expected: false,
		},
		{
			name:     "Regular error",
			err:      regularErr,
			code:     ErrInsufficientFunds,
			expected: false,
		},
		{
			name:     "Nil error",
			err:      nil,
			code:     ErrInsufficientFunds,
			expected: false,
		},
	}

	// Execute and assert
	for _, tc := range testCases {
		s.Run(tc.name, func() {
			result := IsLedgerError(tc.err, tc.code)
			s.Equal(tc.expected, result, "IsLedgerError result should match expected value")
		})
	}
}

func (s *ErrorTestSuite) TestAs() {
	// Setup
	ledgerErr := NewLedgerError(ErrInsufficientFunds, "insufficient funds")
	regularErr := errors.New("regular error")

	// Test cases
	testCases := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "Ledger error",
			err:      ledgerErr,
			expected: true,
		},
		{
			name:     "Regular error",
			err:      regularErr,
			expected: false,
		},
		{
			name:     "Nil error",
			err:      nil,
			expected: false,
		},
	}

	// Execute and assert
	for _, tc := range testCases {
		s.Run(tc.name, func() {
			var target *LedgerError
			result := As(tc.err, &target)
			s.Equal(tc.expected, result, "As result should match expected value")
			if tc.expected {
				s.Equal(ledgerErr, target, "Target should be set to the ledger error")
			}
		})
	}
}

func (s *ErrorTestSuite) TestAsFindsWrappedError() {
	ledgerErr := NewLedgerError(ErrPayoutNotPending, "payout already processed")
	wrapped := fmt.Errorf("approve payout: %w", ledgerErr)

	var target *LedgerError
	s.True(As(wrapped, &target), "As should unwrap fmt-wrapped errors")
	s.Equal(ledgerErr, target)
	s.True(IsLedgerError(wrapped, ErrPayoutNotPending))
	s.False(IsLedgerError(wrapped, ErrInsufficientFunds))
}
