package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fadedpez/agentledger/internal/logging"
	"github.com/fadedpez/agentledger/internal/types"
	"github.com/fadedpez/agentledger/pkg/entities"
	"github.com/fadedpez/agentledger/pkg/notify"
	walletRepo "github.com/fadedpez/agentledger/pkg/repositories/wallet"
	"github.com/shopspring/decimal"
)

// Service handles wallet business logic. Every balance change happens inside
// walletRepo.Repository.WithLock and appends a ledger entry.
type Service struct {
	repo     walletRepo.Repository
	notifier notify.Notifier
	logger   *logging.Logger
}

// NewService creates a new wallet service
func NewService(repo walletRepo.Repository, notifier notify.Notifier, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default
	}
	if notifier == nil {
		notifier = notify.NewLogNotifier(logger)
	}
	return &Service{
		repo:     repo,
		notifier: notifier,
		logger:   logger,
	}
}

// Ensure Service implements CommissionRecorder
var _ CommissionRecorder = (*Service)(nil)

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return types.NewLedgerError(types.ErrInvalidAmount, fmt.Sprintf("amount must be positive, got %s", amount))
	}
	return nil
}

// Credit adds amount to the agent's available balance
func (s *Service) Credit(ctx context.Context, agentID string, amount decimal.Decimal, referenceID, description string, now time.Time) (*entities.Wallet, error) {
	if err := validateAmount(amount); err != nil {
		return nil, err
	}

	var result *entities.Wallet
	err := s.repo.WithLock(ctx, agentID, func(tx walletRepo.Tx) error {
		wallet, err := tx.LockWallet(agentID, now)
		if err != nil {
			return err
		}

		wallet.AvailableBalance = wallet.AvailableBalance.Add(amount)
		wallet.LastUpdated = now
		if err := tx.SaveWallet(wallet); err != nil {
			return err
		}

		result = wallet
		return tx.AddTransaction(ledgerEntry(wallet, amount, entities.TransactionTypeCommission, referenceID, description, now))
	})
	if err != nil {
		return nil, s.fail("credit", agentID, err)
	}

	s.logger.Info("Credited %s to agent %s (available=%s)", amount, agentID, result.AvailableBalance)
	return result, nil
}

// RequestPayout moves amount from available to pending and opens a pending payout
func (s *Service) RequestPayout(ctx context.Context, agentID string, amount decimal.Decimal, notes string, now time.Time) (*entities.Payout, error) {
	if err := validateAmount(amount); err != nil {
		return nil, err
	}

	var payout *entities.Payout
	err := s.repo.WithLock(ctx, agentID, func(tx walletRepo.Tx) error {
		wallet, err := tx.LockWallet(agentID, now)
		if err != nil {
			return err
		}

		if amount.GreaterThan(wallet.AvailableBalance) {
			return types.NewLedgerError(types.ErrInsufficientFunds,
				fmt.Sprintf("requested %s but only %s is available", amount, wallet.AvailableBalance))
		}

		wallet.AvailableBalance = wallet.AvailableBalance.Sub(amount)
		wallet.PendingBalance = wallet.PendingBalance.Add(amount)
		wallet.LastUpdated = now
		if err := tx.SaveWallet(wallet); err != nil {
			return err
		}

		payout = &entities.Payout{
			AgentID:     agentID,
			Amount:      amount,
			Status:      entities.PayoutStatusPending,
			Notes:       notes,
			RequestedAt: now,
		}
		if err := tx.CreatePayout(payout); err != nil {
			return err
		}

		return tx.AddTransaction(ledgerEntry(wallet, amount, entities.TransactionTypePayoutRequest, payout.ID, "Payout requested", now))
	})
	if err != nil {
		return nil, s.fail("request payout", agentID, err)
	}

	s.logger.Info("Agent %s requested payout %s of %s", agentID, payout.ID, amount)
	s.notify(ctx, notify.Event{
		Type:        notify.EventPayoutRequested,
		AgentID:     agentID,
		ReferenceID: payout.ID,
		Amount:      amount,
		Detail:      notes,
		OccurredAt:  now,
	})
	return payout, nil
}

// ApprovePayout releases the pending funds of a payout and marks it paid
func (s *Service) ApprovePayout(ctx context.Context, payoutID string, actor entities.Actor, now time.Time) (*entities.Payout, error) {
	payout, err := s.processPayout(ctx, payoutID, now, func(wallet *entities.Wallet, payout *entities.Payout) entities.TransactionType {
		wallet.PendingBalance = wallet.PendingBalance.Sub(payout.Amount)
		payout.Status = entities.PayoutStatusPaid
		payout.ProcessedBy = actor.ID
		return entities.TransactionTypePayoutPaid
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Payout %s of %s approved by %s", payout.ID, payout.Amount, actor.ID)
	s.notify(ctx, notify.Event{
		Type:        notify.EventPayoutApproved,
		AgentID:     payout.AgentID,
		ReferenceID: payout.ID,
		Amount:      payout.Amount,
		OccurredAt:  now,
	})
	return payout, nil
}

// RejectPayout returns the pending funds of a payout to the available balance
func (s *Service) RejectPayout(ctx context.Context, payoutID string, actor entities.Actor, reason string, now time.Time) (*entities.Payout, error) {
	payout, err := s.processPayout(ctx, payoutID, now, func(wallet *entities.Wallet, payout *entities.Payout) entities.TransactionType {
		wallet.PendingBalance = wallet.PendingBalance.Sub(payout.Amount)
		wallet.AvailableBalance = wallet.AvailableBalance.Add(payout.Amount)
		payout.Status = entities.PayoutStatusRejected
		payout.RejectionReason = reason
		payout.ProcessedBy = actor.ID
		return entities.TransactionTypePayoutRejected
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Payout %s of %s rejected by %s: %s", payout.ID, payout.Amount, actor.ID, reason)
	s.notify(ctx, notify.Event{
		Type:        notify.EventPayoutRejected,
		AgentID:     payout.AgentID,
		ReferenceID: payout.ID,
		Amount:      payout.Amount,
		Detail:      reason,
		OccurredAt:  now,
	})
	return payout, nil
}

// processPayout settles a pending payout under the owning agent's wallet lock
func (s *Service) processPayout(ctx context.Context, payoutID string, now time.Time, settle func(*entities.Wallet, *entities.Payout) entities.TransactionType) (*entities.Payout, error) {
	existing, err := s.repo.GetPayout(ctx, payoutID)
	if err != nil {
		if errors.Is(err, walletRepo.ErrPayoutNotFound) {
			return nil, types.WrapError(types.ErrNotFound, fmt.Sprintf("payout %s not found", payoutID), err)
		}
		return nil, s.fail("load payout", payoutID, err)
	}

	var payout *entities.Payout
	err = s.repo.WithLock(ctx, existing.AgentID, func(tx walletRepo.Tx) error {
		// Re-read under the lock; a concurrent call may have settled it
		locked, err := tx.GetPayout(payoutID)
		if err != nil {
			return err
		}
		if locked.Status != entities.PayoutStatusPending {
			return types.NewLedgerError(types.ErrPayoutNotPending,
				fmt.Sprintf("payout %s is %s", payoutID, locked.Status))
		}

		wallet, err := tx.LockWallet(locked.AgentID, now)
		if err != nil {
			return err
		}
		if wallet.PendingBalance.LessThan(locked.Amount) {
			return types.NewLedgerError(types.ErrInternalError,
				fmt.Sprintf("pending balance %s is below payout amount %s", wallet.PendingBalance, locked.Amount))
		}

		txType := settle(wallet, locked)
		processedAt := now
		locked.ProcessedAt = &processedAt
		wallet.LastUpdated = now

		if err := tx.SaveWallet(wallet); err != nil {
			return err
		}
		if err := tx.UpdatePayout(locked); err != nil {
			return err
		}

		payout = locked
		return tx.AddTransaction(ledgerEntry(wallet, locked.Amount, txType, locked.ID, string(locked.Status), now))
	})
	if err != nil {
		return nil, s.fail("process payout", payoutID, err)
	}
	return payout, nil
}

// RecordCommission creates the money commission for an approved application
// and credits it. It returns created=false with the existing commission when
// the application was already paid.
func (s *Service) RecordCommission(ctx context.Context, application *entities.Application, now time.Time) (*entities.Commission, bool, error) {
	if application.CommissionType != entities.CommissionTypeMoney {
		return nil, false, types.NewLedgerError(types.ErrInvalidArgument,
			fmt.Sprintf("application %s is not a money commission", application.ID))
	}
	if err := validateAmount(application.CommissionAmount); err != nil {
		return nil, false, err
	}

	var commission *entities.Commission
	created := false
	err := s.repo.WithLock(ctx, application.AgentID, func(tx walletRepo.Tx) error {
		existing, err := tx.GetCommissionByApplication(application.ID)
		if err == nil {
			commission = existing
			return nil
		}
		if !errors.Is(err, walletRepo.ErrCommissionNotFound) {
			return err
		}

		wallet, err := tx.LockWallet(application.AgentID, now)
		if err != nil {
			return err
		}

		commission = &entities.Commission{
			AgentID:       application.AgentID,
			ApplicationID: application.ID,
			Amount:        application.CommissionAmount,
			CreatedAt:     now,
		}
		if err := tx.CreateCommission(commission); err != nil {
			return err
		}

		wallet.AvailableBalance = wallet.AvailableBalance.Add(commission.Amount)
		wallet.LastUpdated = now
		if err := tx.SaveWallet(wallet); err != nil {
			return err
		}

		created = true
		description := fmt.Sprintf("Commission for application %s", application.ID)
		return tx.AddTransaction(ledgerEntry(wallet, commission.Amount, entities.TransactionTypeCommission, commission.ID, description, now))
	})
	if err != nil {
		return nil, false, s.fail("record commission", application.ID, err)
	}

	if !created {
		s.logger.Info("Application %s already has commission %s", application.ID, commission.ID)
		return commission, false, nil
	}

	s.logger.Info("Recorded commission %s of %s for agent %s", commission.ID, commission.Amount, commission.AgentID)
	s.notify(ctx, notify.Event{
		Type:        notify.EventCommissionRecorded,
		AgentID:     commission.AgentID,
		ReferenceID: commission.ID,
		Amount:      commission.Amount,
		OccurredAt:  now,
	})
	return commission, true, nil
}

// GetWallet returns the agent's wallet, or a zero wallet if the agent has none yet
func (s *Service) GetWallet(ctx context.Context, agentID string) (*entities.Wallet, error) {
	wallet, err := s.repo.GetWallet(ctx, agentID)
	if err == nil {
		return wallet, nil
	}
	if errors.Is(err, walletRepo.ErrWalletNotFound) {
		return &entities.Wallet{AgentID: agentID}, nil
	}
	return nil, types.WrapError(types.ErrDatabaseError, "error loading wallet", err)
}

// ListPayouts returns an agent's payouts, newest first. Empty status lists all.
func (s *Service) ListPayouts(ctx context.Context, agentID string, status entities.PayoutStatus) ([]*entities.Payout, error) {
	payouts, err := s.repo.ListPayouts(ctx, agentID, status)
	if err != nil {
		return nil, types.WrapError(types.ErrDatabaseError, "error listing payouts", err)
	}
	return payouts, nil
}

// ListCommissions returns an agent's money commissions, newest first
func (s *Service) ListCommissions(ctx context.Context, agentID string) ([]*entities.Commission, error) {
	commissions, err := s.repo.ListCommissions(ctx, agentID)
	if err != nil {
		return nil, types.WrapError(types.ErrDatabaseError, "error listing commissions", err)
	}
	return commissions, nil
}

// GetRecentTransactions returns the agent's latest ledger entries, newest first
func (s *Service) GetRecentTransactions(ctx context.Context, agentID string, limit int) ([]*entities.Transaction, error) {
	if limit <= 0 {
		limit = 10
	}
	transactions, err := s.repo.GetTransactions(ctx, agentID, limit)
	if err != nil {
		return nil, types.WrapError(types.ErrDatabaseError, "error listing transactions", err)
	}
	return transactions, nil
}

func ledgerEntry(wallet *entities.Wallet, amount decimal.Decimal, txType entities.TransactionType, referenceID, description string, now time.Time) *entities.Transaction {
	return &entities.Transaction{
		AgentID:        wallet.AgentID,
		Amount:         amount,
		Type:           txType,
		ReferenceID:    referenceID,
		Description:    description,
		Timestamp:      now,
		AvailableAfter: wallet.AvailableBalance,
		PendingAfter:   wallet.PendingBalance,
	}
}

// fail logs and classifies an error returned from a locked operation.
// Business-rule errors pass through; anything else is a persistence failure.
func (s *Service) fail(operation, subject string, err error) error {
	var ledgerErr *types.LedgerError
	if types.As(err, &ledgerErr) {
		s.logger.Info("%s for %s refused: %s", operation, subject, ledgerErr.Message)
		return err
	}

	wrapped := types.WrapError(types.ErrDatabaseError, fmt.Sprintf("error during %s for %s", operation, subject), err)
	s.logger.LogError(wrapped)
	return wrapped
}

func (s *Service) notify(ctx context.Context, event notify.Event) {
	if err := s.notifier.Notify(ctx, event); err != nil {
		s.logger.Warn("Failed to send %s notification for agent %s: %v", event.Type, event.AgentID, err)
	}
}
