package inventory

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/fadedpez/agentledger/internal/logging"
	"github.com/fadedpez/agentledger/pkg/entities"
	mock_reporting "github.com/fadedpez/agentledger/pkg/reporting/mock"
	scholarshipRepo "github.com/fadedpez/agentledger/pkg/repositories/scholarship"
	"github.com/fadedpez/agentledger/pkg/requirements"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type ServiceTestSuite struct {
	suite.Suite
	repo    *scholarshipRepo.MemoryRepository
	reqs    *requirements.Table
	service *Service
	ctx     context.Context
	now     time.Time
	key     entities.InventoryKey
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceTestSuite))
}

func (s *ServiceTestSuite) SetupTest() {
	s.repo = scholarshipRepo.NewMemoryRepository()
	s.reqs = requirements.NewTable()
	s.service = NewService(s.repo, s.reqs, nil, logging.New(&bytes.Buffer{}, logging.DEBUG))
	s.ctx = context.Background()
	s.now = time.Date(2026, time.September, 1, 8, 0, 0, 0, time.UTC)
	s.key = entities.InventoryKey{UniversityID: "univ-1", DegreeID: "degree-1", DegreeName: "Master", ApplicationYear: 2026}
}

// seed creates points for agentID and commissions that redeem none of them
func (s *ServiceTestSuite) seed(agentID string, points, commissions int) {
	combo := entities.Combination{AgentID: agentID, UniversityID: s.key.UniversityID, DegreeID: s.key.DegreeID}
	err := s.repo.WithCombinationLock(s.ctx, combo, func(tx scholarshipRepo.Tx) error {
		for n := 0; n < points; n++ {
			if err := tx.CreatePoint(&entities.ScholarshipPoint{
				AgentID: agentID, UniversityID: s.key.UniversityID, DegreeID: s.key.DegreeID,
				DegreeName: s.key.DegreeName, ApplicationID: fmt.Sprintf("%s-app-%d", agentID, n),
				Status: entities.PointStatusActive, ApplicationYear: s.key.ApplicationYear,
				EarnedAt: s.now, ExpiresAt: s.now.AddDate(0, 3, 0),
			}); err != nil {
				return err
			}
		}
		for n := 0; n < commissions; n++ {
			if err := tx.CreateCommission(&entities.ScholarshipCommission{
				AgentID: agentID, UniversityID: s.key.UniversityID, DegreeID: s.key.DegreeID,
				DegreeName: s.key.DegreeName, QualifyingPointsCount: 5,
				Status: entities.ScholarshipStatusEarned, ApplicationYear: s.key.ApplicationYear, EarnedAt: s.now,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	s.Require().NoError(err)
}

func (s *ServiceTestSuite) assertDecimal(want string, got decimal.Decimal, field string) {
	s.True(decimal.RequireFromString(want).Equal(got), "%s: want %s got %s", field, want, got)
}

func (s *ServiceTestSuite) TestDefaultThresholds() {
	system, agent := s.service.Thresholds("univ-1", "Master")
	s.Equal(4, system)
	s.Equal(5, agent)

	s.reqs.Set("univ-1", "Master", entities.ScholarshipRequirement{MinStudents: 8})
	system, agent = s.service.Thresholds("univ-1", "Master")
	s.Equal(4, system)
	s.Equal(8, agent)
}

func (s *ServiceTestSuite) TestRecalculate() {
	s.seed("agent-1", 12, 2)
	s.seed("agent-2", 8, 1)

	inventory, err := s.service.Recalculate(s.ctx, s.key, s.now)
	s.Require().NoError(err)

	s.Equal(20, inventory.TotalApplications)
	s.assertDecimal("5", inventory.TotalFromUniversity, "total_from_university")
	s.assertDecimal("3", inventory.ScholarshipsGivenToAgents, "given")
	s.assertDecimal("1", inventory.MarginScholarships, "margin")
	s.assertDecimal("1", inventory.UnclaimedScholarships, "unclaimed")
	s.assertDecimal("2", inventory.AvailableScholarships, "available")
	s.Equal(entities.InventoryStatusActive, inventory.Status)
	s.Equal("total_applications / system_threshold",
		inventory.CalculationDetails["formulas"].(map[string]interface{})["total_from_university"])
}

func (s *ServiceTestSuite) TestFractionalObligations() {
	s.seed("agent-1", 7, 0)

	inventory, err := s.service.Recalculate(s.ctx, s.key, s.now)
	s.Require().NoError(err)

	s.assertDecimal("1.75", inventory.TotalFromUniversity, "total_from_university")
	s.assertDecimal("0.35", inventory.MarginScholarships, "margin")
	s.assertDecimal("1.4", inventory.UnclaimedScholarships, "unclaimed")
	s.assertDecimal("1.75", inventory.AvailableScholarships, "available")
}

func (s *ServiceTestSuite) TestNegativeSpreadsClampToZero() {
	s.reqs.Set("univ-1", "Master", entities.ScholarshipRequirement{MinStudents: 3, MinAgentScholarships: 6})
	s.seed("agent-1", 6, 3)

	inventory, err := s.service.Recalculate(s.ctx, s.key, s.now)
	s.Require().NoError(err)

	s.assertDecimal("1", inventory.TotalFromUniversity, "total_from_university")
	s.True(inventory.MarginScholarships.IsZero())
	s.True(inventory.UnclaimedScholarships.IsZero())
	s.True(inventory.AvailableScholarships.IsZero())
}

func (s *ServiceTestSuite) TestRecalculateIsPure() {
	s.seed("agent-1", 9, 1)

	first, err := s.service.Recalculate(s.ctx, s.key, s.now)
	s.Require().NoError(err)
	second, err := s.service.Recalculate(s.ctx, s.key, s.now.Add(time.Hour))
	s.Require().NoError(err)

	s.Equal(first.ID, second.ID)
	s.Equal(first.TotalApplications, second.TotalApplications)
	s.True(first.TotalFromUniversity.Equal(second.TotalFromUniversity))
	s.True(first.MarginScholarships.Equal(second.MarginScholarships))
	s.True(first.UnclaimedScholarships.Equal(second.UnclaimedScholarships))
	s.True(first.AvailableScholarships.Equal(second.AvailableScholarships))
	s.Equal(first.CalculationDetails, second.CalculationDetails)

	inventories, err := s.service.ListInventories(s.ctx, 2026)
	s.Require().NoError(err)
	s.Len(inventories, 1)
}

func (s *ServiceTestSuite) TestRecalculateKeepsClosedStatus() {
	s.seed("agent-1", 4, 0)
	_, err := s.service.Recalculate(s.ctx, s.key, s.now)
	s.Require().NoError(err)

	closed, err := s.repo.CloseInventoriesBeforeYear(s.ctx, 2027)
	s.Require().NoError(err)
	s.Equal(1, closed)

	inventory, err := s.service.Recalculate(s.ctx, s.key, s.now)
	s.Require().NoError(err)
	s.Equal(entities.InventoryStatusClosed, inventory.Status)
}

func (s *ServiceTestSuite) TestRecalculateAllInventories() {
	s.seed("agent-1", 5, 1)
	other := s.key
	s.key = entities.InventoryKey{UniversityID: "univ-2", DegreeID: "degree-9", DegreeName: "Bachelor", ApplicationYear: 2026}
	s.seed("agent-1", 3, 0)
	s.key = other

	summary, err := s.service.RecalculateAllInventories(s.ctx, 2026, s.now)
	s.Require().NoError(err)
	s.Equal(2, summary.Processed)
	s.Zero(summary.Failed)
	s.Len(summary.Details, 2)

	summary, err = s.service.RecalculateAllInventories(s.ctx, 2025, s.now)
	s.Require().NoError(err)
	s.Zero(summary.Processed)
}

func TestPublishFailureIsNotFatal(t *testing.T) {
	ctrl := gomock.NewController(t)
	publisher := mock_reporting.NewMockPublisher(ctrl)
	publisher.EXPECT().
		PublishInventory(gomock.Any(), gomock.Any()).
		Return(errors.New("cluster unavailable"))

	service := NewService(scholarshipRepo.NewMemoryRepository(), requirements.NewTable(), publisher, logging.New(&bytes.Buffer{}, logging.INFO))
	key := entities.InventoryKey{UniversityID: "univ-1", DegreeID: "degree-1", DegreeName: "Master", ApplicationYear: 2026}

	inventory, err := service.Recalculate(context.Background(), key, time.Now())
	assert.NoError(t, err)
	assert.Equal(t, 0, inventory.TotalApplications)
	assert.True(t, inventory.AvailableScholarships.IsZero())
}
