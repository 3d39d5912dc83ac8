package wallet

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/fadedpez/agentledger/pkg/db"
	"github.com/fadedpez/agentledger/pkg/entities"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type RepositoryTestSuite struct {
	suite.Suite
	newRepo func(t *testing.T) Repository
	repo    Repository
	ctx     context.Context
	now     time.Time
}

func (s *RepositoryTestSuite) SetupTest() {
	s.repo = s.newRepo(s.T())
	s.ctx = context.Background()
	s.now = time.Date(2026, time.August, 10, 9, 0, 0, 0, time.UTC)
}

func (s *RepositoryTestSuite) TearDownTest() {
	s.repo.Close()
}

func TestMemoryRepository(t *testing.T) {
	suite.Run(t, &RepositoryTestSuite{newRepo: func(t *testing.T) Repository {
		return NewMemoryRepository()
	}})
}

func TestSQLiteRepository(t *testing.T) {
	suite.Run(t, &RepositoryTestSuite{newRepo: func(t *testing.T) Repository {
		database, err := db.Open(filepath.Join(t.TempDir(), "wallet.db"))
		require.NoError(t, err)
		t.Cleanup(func() { database.Close() })
		return NewSQLiteRepository(database)
	}})
}

func (s *RepositoryTestSuite) TestLockWalletCreatesZeroWallet() {
	_, err := s.repo.GetWallet(s.ctx, "agent-1")
	s.ErrorIs(err, ErrWalletNotFound)

	err = s.repo.WithLock(s.ctx, "agent-1", func(tx Tx) error {
		wallet, err := tx.LockWallet("agent-1", s.now)
		s.Require().NoError(err)
		s.True(wallet.AvailableBalance.IsZero())
		s.True(wallet.PendingBalance.IsZero())
		return nil
	})
	s.Require().NoError(err)

	wallet, err := s.repo.GetWallet(s.ctx, "agent-1")
	s.Require().NoError(err)
	s.True(wallet.Total().IsZero())
	s.True(s.now.Equal(wallet.CreatedAt))
}

func (s *RepositoryTestSuite) TestSaveWalletKeepsDecimalPrecision() {
	err := s.repo.WithLock(s.ctx, "agent-1", func(tx Tx) error {
		wallet, err := tx.LockWallet("agent-1", s.now)
		if err != nil {
			return err
		}
		wallet.AvailableBalance = decimal.RequireFromString("1234.56")
		wallet.PendingBalance = decimal.RequireFromString("0.01")
		return tx.SaveWallet(wallet)
	})
	s.Require().NoError(err)

	wallet, err := s.repo.GetWallet(s.ctx, "agent-1")
	s.Require().NoError(err)
	s.Equal("1234.56", wallet.AvailableBalance.String())
	s.Equal("0.01", wallet.PendingBalance.String())
}

func (s *RepositoryTestSuite) TestWithLockRollsBackOnError() {
	boom := errors.New("boom")

	err := s.repo.WithLock(s.ctx, "agent-1", func(tx Tx) error {
		wallet, err := tx.LockWallet("agent-1", s.now)
		s.Require().NoError(err)
		wallet.AvailableBalance = decimal.NewFromInt(500)
		s.Require().NoError(tx.SaveWallet(wallet))
		s.Require().NoError(tx.CreateCommission(&entities.Commission{
			AgentID: "agent-1", ApplicationID: "app-1", Amount: decimal.NewFromInt(500), CreatedAt: s.now,
		}))
		s.Require().NoError(tx.AddTransaction(&entities.Transaction{
			AgentID: "agent-1", Amount: decimal.NewFromInt(500), Type: entities.TransactionTypeCommission, Timestamp: s.now,
		}))
		return boom
	})
	s.ErrorIs(err, boom)

	_, err = s.repo.GetWallet(s.ctx, "agent-1")
	s.ErrorIs(err, ErrWalletNotFound)

	commissions, err := s.repo.ListCommissions(s.ctx, "agent-1")
	s.Require().NoError(err)
	s.Empty(commissions)

	transactions, err := s.repo.GetTransactions(s.ctx, "agent-1", 10)
	s.Require().NoError(err)
	s.Empty(transactions)
}

func (s *RepositoryTestSuite) TestCreateCommissionRejectsDuplicateApplication() {
	create := func() error {
		return s.repo.WithLock(s.ctx, "agent-1", func(tx Tx) error {
			if _, err := tx.LockWallet("agent-1", s.now); err != nil {
				return err
			}
			return tx.CreateCommission(&entities.Commission{
				AgentID: "agent-1", ApplicationID: "app-1", Amount: decimal.NewFromInt(100), CreatedAt: s.now,
			})
		})
	}

	s.Require().NoError(create())
	s.ErrorIs(create(), ErrDuplicateCommission)

	err := s.repo.WithLock(s.ctx, "agent-1", func(tx Tx) error {
		commission, err := tx.GetCommissionByApplication("app-1")
		s.Require().NoError(err)
		s.Equal("100", commission.Amount.String())

		_, err = tx.GetCommissionByApplication("app-2")
		s.ErrorIs(err, ErrCommissionNotFound)
		return nil
	})
	s.NoError(err)
}

func (s *RepositoryTestSuite) TestPayoutLifecycle() {
	payout := &entities.Payout{
		AgentID:     "agent-1",
		Amount:      decimal.NewFromInt(250),
		Status:      entities.PayoutStatusPending,
		Notes:       "monthly",
		RequestedAt: s.now,
	}

	err := s.repo.WithLock(s.ctx, "agent-1", func(tx Tx) error {
		if _, err := tx.LockWallet("agent-1", s.now); err != nil {
			return err
		}
		return tx.CreatePayout(payout)
	})
	s.Require().NoError(err)
	s.NotEmpty(payout.ID)

	processedAt := s.now.Add(time.Hour)
	err = s.repo.WithLock(s.ctx, "agent-1", func(tx Tx) error {
		stored, err := tx.GetPayout(payout.ID)
		if err != nil {
			return err
		}
		stored.Status = entities.PayoutStatusPaid
		stored.ProcessedBy = "admin-1"
		stored.ProcessedAt = &processedAt
		return tx.UpdatePayout(stored)
	})
	s.Require().NoError(err)

	stored, err := s.repo.GetPayout(s.ctx, payout.ID)
	s.Require().NoError(err)
	s.Equal(entities.PayoutStatusPaid, stored.Status)
	s.Equal("admin-1", stored.ProcessedBy)
	s.Require().NotNil(stored.ProcessedAt)
	s.True(processedAt.Equal(*stored.ProcessedAt))

	pending, err := s.repo.ListPayouts(s.ctx, "agent-1", entities.PayoutStatusPending)
	s.Require().NoError(err)
	s.Empty(pending)

	all, err := s.repo.ListPayouts(s.ctx, "agent-1", "")
	s.Require().NoError(err)
	s.Len(all, 1)

	_, err = s.repo.GetPayout(s.ctx, "missing")
	s.ErrorIs(err, ErrPayoutNotFound)
}

func (s *RepositoryTestSuite) TestGetTransactionsNewestFirstWithLimit() {
	err := s.repo.WithLock(s.ctx, "agent-1", func(tx Tx) error {
		if _, err := tx.LockWallet("agent-1", s.now); err != nil {
			return err
		}
		for i := 1; i <= 3; i++ {
			err := tx.AddTransaction(&entities.Transaction{
				AgentID:        "agent-1",
				Amount:         decimal.NewFromInt(int64(i)),
				Type:           entities.TransactionTypeCommission,
				Timestamp:      s.now.Add(time.Duration(i) * time.Minute),
				AvailableAfter: decimal.NewFromInt(int64(i)),
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	s.Require().NoError(err)

	transactions, err := s.repo.GetTransactions(s.ctx, "agent-1", 2)
	s.Require().NoError(err)
	s.Require().Len(transactions, 2)
	s.Equal("3", transactions[0].Amount.String())
	s.Equal("2", transactions[1].Amount.String())
}

func TestMemoryWithLockHonorsCancelledContext(t *testing.T) {
	repo := NewMemoryRepository()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := repo.WithLock(ctx, "agent-1", func(tx Tx) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
