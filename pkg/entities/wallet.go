package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet holds an agent's two commission balances
type Wallet struct {
	AgentID          string
	AvailableBalance decimal.Decimal // Withdrawable funds
	PendingBalance   decimal.Decimal // Funds locked in pending payout requests
	CreatedAt        time.Time
	LastUpdated      time.Time
}

// Total returns available + pending
func (w *Wallet) Total() decimal.Decimal {
	return w.AvailableBalance.Add(w.PendingBalance)
}

// TransactionType represents the type of wallet ledger entry
type TransactionType string

const (
	TransactionTypeCommission     TransactionType = "COMMISSION"
	TransactionTypePayoutRequest  TransactionType = "PAYOUT_REQUEST"
	TransactionTypePayoutPaid     TransactionType = "PAYOUT_PAID"
	TransactionTypePayoutRejected TransactionType = "PAYOUT_REJECTED"
)

// Transaction represents a single wallet ledger entry
type Transaction struct {
	ID             string          // Unique identifier
	AgentID        string          // Agent owning the wallet
	Amount         decimal.Decimal // Amount moved by the operation, always positive
	Type           TransactionType // Type of ledger entry
	ReferenceID    string          // Commission or payout ID
	Description    string          // Human-readable description
	Timestamp      time.Time       // When the entry was written
	AvailableAfter decimal.Decimal // Available balance after this entry
	PendingAfter   decimal.Decimal // Pending balance after this entry
}

// PayoutStatus is the lifecycle state of a payout request
type PayoutStatus string

const (
	PayoutStatusPending  PayoutStatus = "pending"
	PayoutStatusPaid     PayoutStatus = "paid"
	PayoutStatusRejected PayoutStatus = "rejected"
)

// IsTerminal reports whether no further transition is allowed
func (s PayoutStatus) IsTerminal() bool {
	return s == PayoutStatusPaid || s == PayoutStatusRejected
}

// Payout is a withdrawal request by an agent
type Payout struct {
	ID              string
	AgentID         string
	Amount          decimal.Decimal
	Status          PayoutStatus
	Notes           string
	RejectionReason string
	ProcessedBy     string
	RequestedAt     time.Time
	ProcessedAt     *time.Time
}

// Commission is the monetary reward earned for one approved application
type Commission struct {
	ID            string
	AgentID       string
	ApplicationID string // Unique: at most one commission per application
	Amount        decimal.Decimal
	CreatedAt     time.Time
}
