package wallet

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fadedpez/agentledger/internal/logging"
	"github.com/fadedpez/agentledger/internal/types"
	"github.com/fadedpez/agentledger/pkg/entities"
	"github.com/fadedpez/agentledger/pkg/notify"
	mock_notify "github.com/fadedpez/agentledger/pkg/notify/mock"
	walletRepo "github.com/fadedpez/agentledger/pkg/repositories/wallet"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type ServiceTestSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	notifier *mock_notify.MockNotifier
	repo     *walletRepo.MemoryRepository
	service  *Service
	ctx      context.Context
	now      time.Time
	admin    entities.Actor
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceTestSuite))
}

func (s *ServiceTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.notifier = mock_notify.NewMockNotifier(s.ctrl)
	s.notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	s.repo = walletRepo.NewMemoryRepository()
	s.service = NewService(s.repo, s.notifier, logging.New(&bytes.Buffer{}, logging.DEBUG))
	s.ctx = context.Background()
	s.now = time.Date(2026, time.August, 15, 10, 0, 0, 0, time.UTC)
	s.admin = entities.Actor{ID: "admin-1", Role: entities.RoleAdminStaff}
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func (s *ServiceTestSuite) assertBalances(agentID, available, pending string) {
	wallet, err := s.service.GetWallet(s.ctx, agentID)
	s.Require().NoError(err)
	s.True(dec(available).Equal(wallet.AvailableBalance), "available: want %s got %s", available, wallet.AvailableBalance)
	s.True(dec(pending).Equal(wallet.PendingBalance), "pending: want %s got %s", pending, wallet.PendingBalance)
}

func (s *ServiceTestSuite) TestRequestAndApprovePayout() {
	_, err := s.service.Credit(s.ctx, "agent-1", dec("50"), "c-1", "commission", s.now)
	s.Require().NoError(err)
	_, err = s.service.Credit(s.ctx, "agent-1", dec("75"), "c-2", "commission", s.now)
	s.Require().NoError(err)
	s.assertBalances("agent-1", "125", "0")

	payout, err := s.service.RequestPayout(s.ctx, "agent-1", dec("100"), "", s.now)
	s.Require().NoError(err)
	s.Equal(entities.PayoutStatusPending, payout.Status)
	s.assertBalances("agent-1", "25", "100")

	paid, err := s.service.ApprovePayout(s.ctx, payout.ID, s.admin, s.now.Add(time.Hour))
	s.Require().NoError(err)
	s.Equal(entities.PayoutStatusPaid, paid.Status)
	s.Equal("admin-1", paid.ProcessedBy)
	s.Require().NotNil(paid.ProcessedAt)
	s.assertBalances("agent-1", "25", "0")
}

func (s *ServiceTestSuite) TestRejectPayoutRefundsInFull() {
	_, err := s.service.Credit(s.ctx, "agent-1", dec("125"), "c-1", "commission", s.now)
	s.Require().NoError(err)

	payout, err := s.service.RequestPayout(s.ctx, "agent-1", dec("100"), "", s.now)
	s.Require().NoError(err)
	s.assertBalances("agent-1", "25", "100")

	rejected, err := s.service.RejectPayout(s.ctx, payout.ID, s.admin, "bank details missing", s.now)
	s.Require().NoError(err)
	s.Equal(entities.PayoutStatusRejected, rejected.Status)
	s.Equal("bank details missing", rejected.RejectionReason)
	s.assertBalances("agent-1", "125", "0")
}

func (s *ServiceTestSuite) TestInsufficientFundsLeavesWalletUnchanged() {
	_, err := s.service.Credit(s.ctx, "agent-1", dec("40"), "c-1", "commission", s.now)
	s.Require().NoError(err)

	_, err = s.service.RequestPayout(s.ctx, "agent-1", dec("40.01"), "", s.now)
	s.True(types.IsLedgerError(err, types.ErrInsufficientFunds))
	s.assertBalances("agent-1", "40", "0")

	payouts, err := s.service.ListPayouts(s.ctx, "agent-1", "")
	s.Require().NoError(err)
	s.Empty(payouts)
}

func (s *ServiceTestSuite) TestNonPositiveAmountsAreRejected() {
	_, err := s.service.Credit(s.ctx, "agent-1", decimal.Zero, "c-1", "commission", s.now)
	s.True(types.IsLedgerError(err, types.ErrInvalidAmount))

	_, err = s.service.RequestPayout(s.ctx, "agent-1", dec("-5"), "", s.now)
	s.True(types.IsLedgerError(err, types.ErrInvalidAmount))
}

func (s *ServiceTestSuite) TestPayoutCanOnlyBeSettledOnce() {
	_, err := s.service.Credit(s.ctx, "agent-1", dec("10"), "c-1", "commission", s.now)
	s.Require().NoError(err)
	payout, err := s.service.RequestPayout(s.ctx, "agent-1", dec("10"), "", s.now)
	s.Require().NoError(err)

	_, err = s.service.ApprovePayout(s.ctx, payout.ID, s.admin, s.now)
	s.Require().NoError(err)

	_, err = s.service.RejectPayout(s.ctx, payout.ID, s.admin, "late", s.now)
	s.True(types.IsLedgerError(err, types.ErrPayoutNotPending))
	s.assertBalances("agent-1", "0", "0")

	_, err = s.service.ApprovePayout(s.ctx, "missing", s.admin, s.now)
	s.True(types.IsLedgerError(err, types.ErrNotFound))
}

func (s *ServiceTestSuite) TestConcurrentPayoutRequestsNeverOverdraw() {
	_, err := s.service.Credit(s.ctx, "agent-1", dec("50"), "c-1", "commission", s.now)
	s.Require().NoError(err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.service.RequestPayout(s.ctx, "agent-1", dec("10"), "", s.now); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	s.Equal(5, succeeded)
	s.assertBalances("agent-1", "0", "50")
}

func (s *ServiceTestSuite) TestLedgerEntriesTrackBalances() {
	_, err := s.service.Credit(s.ctx, "agent-1", dec("100"), "c-1", "commission", s.now)
	s.Require().NoError(err)
	payout, err := s.service.RequestPayout(s.ctx, "agent-1", dec("30"), "", s.now.Add(time.Minute))
	s.Require().NoError(err)

	entries, err := s.service.GetRecentTransactions(s.ctx, "agent-1", 10)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)

	s.Equal(entities.TransactionTypePayoutRequest, entries[0].Type)
	s.Equal(payout.ID, entries[0].ReferenceID)
	s.True(dec("70").Equal(entries[0].AvailableAfter))
	s.True(dec("30").Equal(entries[0].PendingAfter))

	s.Equal(entities.TransactionTypeCommission, entries[1].Type)
	s.True(dec("100").Equal(entries[1].AvailableAfter))
}

func (s *ServiceTestSuite) TestRecordCommissionIsIdempotent() {
	application := &entities.Application{
		ID:               "app-1",
		AgentID:          "agent-1",
		Status:           entities.StatusApproved,
		CommissionType:   entities.CommissionTypeMoney,
		CommissionAmount: dec("300"),
	}

	first, created, err := s.service.RecordCommission(s.ctx, application, s.now)
	s.Require().NoError(err)
	s.True(created)

	second, created, err := s.service.RecordCommission(s.ctx, application, s.now)
	s.Require().NoError(err)
	s.False(created)
	s.Equal(first.ID, second.ID)
	s.assertBalances("agent-1", "300", "0")

	commissions, err := s.service.ListCommissions(s.ctx, "agent-1")
	s.Require().NoError(err)
	s.Len(commissions, 1)
}

func (s *ServiceTestSuite) TestRecordCommissionRejectsScholarshipApplications() {
	application := &entities.Application{
		ID:             "app-1",
		AgentID:        "agent-1",
		CommissionType: entities.CommissionTypeScholarship,
	}
	_, _, err := s.service.RecordCommission(s.ctx, application, s.now)
	s.True(types.IsLedgerError(err, types.ErrInvalidArgument))
}

func (s *ServiceTestSuite) TestPayoutNotifications() {
	ctrl := gomock.NewController(s.T())
	notifier := mock_notify.NewMockNotifier(ctrl)
	service := NewService(walletRepo.NewMemoryRepository(), notifier, logging.New(&bytes.Buffer{}, logging.INFO))

	_, err := service.Credit(s.ctx, "agent-2", dec("20"), "c-1", "commission", s.now)
	s.Require().NoError(err)

	notifier.EXPECT().Notify(gomock.Any(), gomock.Cond(func(x any) bool {
		event, ok := x.(notify.Event)
		return ok && event.Type == notify.EventPayoutRequested && event.AgentID == "agent-2"
	})).Return(nil)
	payout, err := service.RequestPayout(s.ctx, "agent-2", dec("20"), "", s.now)
	s.Require().NoError(err)

	notifier.EXPECT().Notify(gomock.Any(), gomock.Cond(func(x any) bool {
		event, ok := x.(notify.Event)
		return ok && event.Type == notify.EventPayoutRejected && event.ReferenceID == payout.ID
	})).Return(nil)
	_, err = service.RejectPayout(s.ctx, payout.ID, s.admin, "duplicate", s.now)
	s.Require().NoError(err)
}
