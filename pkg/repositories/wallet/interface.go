package wallet

import (
	"context"
	"errors"
	"time"

	"github.com/fadedpez/agentledger/pkg/entities"
)

var (
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrPayoutNotFound      = errors.New("payout not found")
	ErrCommissionNotFound  = errors.New("commission not found")
	ErrDuplicateCommission = errors.New("commission already exists for application")
)

// Tx is the set of operations available while an agent's wallet is locked.
// Every read made through Tx happens after the lock was taken.
type Tx interface {
	// LockWallet returns the agent's wallet, creating a zero-balance wallet stamped now if absent
	LockWallet(agentID string, now time.Time) (*entities.Wallet, error)

	// SaveWallet persists new balances for the locked wallet
	SaveWallet(wallet *entities.Wallet) error

	// GetPayout reads a payout inside the transaction
	GetPayout(payoutID string) (*entities.Payout, error)

	// CreatePayout inserts a payout
	CreatePayout(payout *entities.Payout) error

	// UpdatePayout persists payout status changes
	UpdatePayout(payout *entities.Payout) error

	// GetCommissionByApplication returns ErrCommissionNotFound if the application has no commission
	GetCommissionByApplication(applicationID string) (*entities.Commission, error)

	// CreateCommission inserts a commission; ErrDuplicateCommission if the application already has one
	CreateCommission(commission *entities.Commission) error

	// AddTransaction appends a ledger entry
	AddTransaction(transaction *entities.Transaction) error
}

// Repository defines the interface for wallet data operations
type Repository interface {
	// WithLock runs fn in a transaction that holds the agent's wallet lock.
	// Any error returned by fn rolls back every write made through tx.
	WithLock(ctx context.Context, agentID string, fn func(tx Tx) error) error

	// GetWallet retrieves a wallet by agent ID
	GetWallet(ctx context.Context, agentID string) (*entities.Wallet, error)

	// GetPayout retrieves a payout by ID
	GetPayout(ctx context.Context, payoutID string) (*entities.Payout, error)

	// ListPayouts returns an agent's payouts, newest first. Empty status lists all.
	ListPayouts(ctx context.Context, agentID string, status entities.PayoutStatus) ([]*entities.Payout, error)

	// ListCommissions returns an agent's money commissions, newest first
	ListCommissions(ctx context.Context, agentID string) ([]*entities.Commission, error)

	// GetTransactions retrieves recent ledger entries for an agent, newest first
	GetTransactions(ctx context.Context, agentID string, limit int) ([]*entities.Transaction, error)

	// Close releases any resources used by the repository
	Close() error
}
