package application

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/fadedpez/agentledger/pkg/db"
	"github.com/fadedpez/agentledger/pkg/entities"
	"github.com/shopspring/decimal"
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
	s.now = time.Date(2026, time.September, 1, 8, 30, 0, 0, time.UTC)
}

func TestMemoryRepository(t *testing.T) {
	suite.Run(t, &RepositoryTestSuite{newRepo: func(t *testing.T) Repository {
		return NewMemoryRepository()
	}})
}

func TestSQLiteRepository(t *testing.T) {
	suite.Run(t, &RepositoryTestSuite{newRepo: func(t *testing.T) Repository {
		database, err := db.Open(filepath.Join(t.TempDir(), "applications.db"))
		require.NoError(t, err)
		t.Cleanup(func() { database.Close() })
		return NewSQLiteRepository(database)
	}})
}

func (s *RepositoryTestSuite) newApplication() *entities.Application {
	return &entities.Application{
		AgentID:          "agent-1",
		StudentID:        "student-1",
		ProgramID:        "program-1",
		UniversityID:     "univ-1",
		DegreeID:         "degree-1",
		DegreeName:       "Master",
		Status:           entities.StatusSubmitted,
		CommissionType:   entities.CommissionTypeMoney,
		CommissionAmount: decimal.RequireFromString("750.50"),
		CreatedAt:        s.now,
		UpdatedAt:        s.now,
	}
}

func (s *RepositoryTestSuite) TestSaveAndGet() {
	application := s.newApplication()
	submittedAt := s.now
	application.SubmittedAt = &submittedAt

	s.Require().NoError(s.repo.Save(s.ctx, application))
	s.NotEmpty(application.ID)

	stored, err := s.repo.Get(s.ctx, application.ID)
	s.Require().NoError(err)
	s.Equal(entities.StatusSubmitted, stored.Status)
	s.Equal("750.5", stored.CommissionAmount.String())
	s.Require().NotNil(stored.SubmittedAt)
	s.True(submittedAt.Equal(*stored.SubmittedAt))
	s.Nil(stored.ApprovedAt)

	_, err = s.repo.Get(s.ctx, "missing")
	s.ErrorIs(err, ErrApplicationNotFound)
}

func (s *RepositoryTestSuite) TestApplyTransitionWritesHistory() {
	application := s.newApplication()
	s.Require().NoError(s.repo.Save(s.ctx, application))

	application.Status = entities.StatusApplied
	history := &entities.StatusHistory{
		ApplicationID: application.ID,
		FromStatus:    entities.StatusSubmitted,
		ToStatus:      entities.StatusApplied,
		ActorID:       "admin-1",
		ActorRole:     entities.RoleAdminStaff,
		Metadata:      map[string]string{"channel": "portal"},
		CreatedAt:     s.now,
	}
	s.Require().NoError(s.repo.ApplyTransition(s.ctx, application, history))

	stored, err := s.repo.Get(s.ctx, application.ID)
	s.Require().NoError(err)
	s.Equal(entities.StatusApplied, stored.Status)

	records, err := s.repo.ListHistory(s.ctx, application.ID)
	s.Require().NoError(err)
	s.Require().Len(records, 1)
	s.Equal(entities.StatusSubmitted, records[0].FromStatus)
	s.Equal(entities.StatusApplied, records[0].ToStatus)
	s.Equal(entities.RoleAdminStaff, records[0].ActorRole)
	s.Equal("portal", records[0].Metadata["channel"])
}

func (s *RepositoryTestSuite) TestApplyTransitionDetectsConflict() {
	application := s.newApplication()
	s.Require().NoError(s.repo.Save(s.ctx, application))

	application.Status = entities.StatusRejected
	stale := &entities.StatusHistory{
		ApplicationID: application.ID,
		FromStatus:    entities.StatusApplied,
		ToStatus:      entities.StatusRejected,
		ActorID:       "admin-1",
		ActorRole:     entities.RoleSuperAdmin,
		CreatedAt:     s.now,
	}
	s.ErrorIs(s.repo.ApplyTransition(s.ctx, application, stale), ErrStatusConflict)

	stored, err := s.repo.Get(s.ctx, application.ID)
	s.Require().NoError(err)
	s.Equal(entities.StatusSubmitted, stored.Status)

	records, err := s.repo.ListHistory(s.ctx, application.ID)
	s.Require().NoError(err)
	s.Empty(records)
}

func (s *RepositoryTestSuite) TestListByStatus() {
	first := s.newApplication()
	first.Status = entities.StatusApproved
	second := s.newApplication()
	second.Status = entities.StatusApproved
	second.CreatedAt = s.now.Add(time.Hour)
	other := s.newApplication()

	for _, application := range []*entities.Application{second, first, other} {
		s.Require().NoError(s.repo.Save(s.ctx, application))
	}

	approved, err := s.repo.ListByStatus(s.ctx, entities.StatusApproved)
	s.Require().NoError(err)
	s.Require().Len(approved, 2)
	s.Equal(first.ID, approved[0].ID)
	s.Equal(second.ID, approved[1].ID)
}
