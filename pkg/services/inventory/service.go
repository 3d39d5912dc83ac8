package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fadedpez/agentledger/internal/logging"
	"github.com/fadedpez/agentledger/internal/types"
	"github.com/fadedpez/agentledger/pkg/entities"
	"github.com/fadedpez/agentledger/pkg/reporting"
	scholarshipRepo "github.com/fadedpez/agentledger/pkg/repositories/scholarship"
	"github.com/fadedpez/agentledger/pkg/requirements"
	"github.com/shopspring/decimal"
)

const (
	DefaultSystemThreshold = 4
	DefaultAgentThreshold  = 5

	// Decimal places kept on persisted inventory values
	precision = 4
)

// Service recomputes the admin scholarship inventory from points and
// commissions. Every recompute starts from scratch; nothing is incremental.
type Service struct {
	repo         scholarshipRepo.Repository
	requirements requirements.Source
	publisher    reporting.Publisher
	logger       *logging.Logger
}

// NewService creates a new inventory service. publisher may be nil.
func NewService(repo scholarshipRepo.Repository, reqs requirements.Source, publisher reporting.Publisher, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default
	}
	return &Service{
		repo:         repo,
		requirements: reqs,
		publisher:    publisher,
		logger:       logger,
	}
}

// Thresholds returns the system and agent thresholds for a degree,
// falling back to the defaults when unconfigured
func (s *Service) Thresholds(universityID, degreeName string) (system, agent int) {
	system, agent = DefaultSystemThreshold, DefaultAgentThreshold
	req, ok := s.requirements.Lookup(universityID, degreeName)
	if !ok {
		return system, agent
	}
	if req.MinAgentScholarships > 0 {
		system = req.MinAgentScholarships
	}
	if req.MinStudents > 0 {
		agent = req.MinStudents
	}
	return system, agent
}

// Recalculate re-derives and persists the inventory row for key
func (s *Service) Recalculate(ctx context.Context, key entities.InventoryKey, now time.Time) (*entities.AdminScholarshipInventory, error) {
	totalApplications, err := s.repo.CountPointsByKey(ctx, key)
	if err != nil {
		return nil, types.WrapError(types.ErrDatabaseError, "error counting points", err)
	}
	completed, err := s.repo.CountCommissionsByKey(ctx, key)
	if err != nil {
		return nil, types.WrapError(types.ErrDatabaseError, "error counting commissions", err)
	}

	systemThreshold, agentThreshold := s.Thresholds(key.UniversityID, key.DegreeName)
	inventory := calculate(key, totalApplications, completed, systemThreshold, agentThreshold)

	existing, err := s.repo.GetInventory(ctx, key)
	switch {
	case err == nil:
		inventory.ID = existing.ID
		inventory.Status = existing.Status
	case errors.Is(err, scholarshipRepo.ErrInventoryNotFound):
		inventory.Status = entities.InventoryStatusActive
	default:
		return nil, types.WrapError(types.ErrDatabaseError, "error loading inventory", err)
	}
	inventory.LastCalculatedAt = now

	if err := s.repo.SaveInventory(ctx, inventory); err != nil {
		wrapped := types.WrapError(types.ErrDatabaseError, fmt.Sprintf("error saving inventory %s/%s/%d", key.UniversityID, key.DegreeID, key.ApplicationYear), err)
		s.logger.LogError(wrapped)
		return nil, wrapped
	}

	s.logger.Debug("Inventory %s %s %d: total=%d available=%s",
		key.UniversityID, key.DegreeName, key.ApplicationYear, totalApplications, inventory.AvailableScholarships)

	if s.publisher != nil {
		if err := s.publisher.PublishInventory(ctx, inventory); err != nil {
			s.logger.Warn("Failed to publish inventory %s: %v", inventory.ID, err)
		}
	}
	return inventory, nil
}

// calculate is the pure inventory formula
func calculate(key entities.InventoryKey, totalApplications, completed, systemThreshold, agentThreshold int) *entities.AdminScholarshipInventory {
	total := decimal.NewFromInt(int64(totalApplications))
	totalFromUniversity := total.Div(decimal.NewFromInt(int64(systemThreshold)))
	theoretical := total.Div(decimal.NewFromInt(int64(agentThreshold)))

	margin := decimal.Max(decimal.Zero, totalFromUniversity.Sub(theoretical))
	unclaimed := decimal.Max(decimal.Zero, theoretical.Sub(decimal.NewFromInt(int64(completed))))
	available := margin.Add(unclaimed)

	details := map[string]interface{}{
		"total_applications":             totalApplications,
		"system_threshold":               systemThreshold,
		"agent_threshold":                agentThreshold,
		"completed_agent_scholarships":   completed,
		"total_from_university":          totalFromUniversity.Round(precision).String(),
		"theoretical_agent_scholarships": theoretical.Round(precision).String(),
		"formulas": map[string]interface{}{
			"total_from_university":          "total_applications / system_threshold",
			"theoretical_agent_scholarships": "total_applications / agent_threshold",
			"margin":                         "max(0, total_from_university - theoretical_agent_scholarships)",
			"unclaimed":                      "max(0, theoretical_agent_scholarships - completed_agent_scholarships)",
			"available":                      "margin + unclaimed",
		},
	}

	return &entities.AdminScholarshipInventory{
		UniversityID:              key.UniversityID,
		DegreeID:                  key.DegreeID,
		DegreeName:                key.DegreeName,
		ApplicationYear:           key.ApplicationYear,
		TotalApplications:         totalApplications,
		TotalFromUniversity:       totalFromUniversity.Round(precision),
		ScholarshipsGivenToAgents: decimal.NewFromInt(int64(completed)),
		MarginScholarships:        margin.Round(precision),
		UnclaimedScholarships:     unclaimed.Round(precision),
		AvailableScholarships:     available.Round(precision),
		CalculationDetails:        details,
	}
}

// RecalculateAllInventories recomputes every key with points in year.
// One failing key is recorded and the sweep continues.
func (s *Service) RecalculateAllInventories(ctx context.Context, year int, now time.Time) (*entities.RepairSummary, error) {
	keys, err := s.repo.InventoryKeys(ctx, year)
	if err != nil {
		return nil, types.WrapError(types.ErrDatabaseError, "error listing inventory keys", err)
	}

	summary := &entities.RepairSummary{}
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		summary.Processed++

		name := fmt.Sprintf("%s/%s/%d", key.UniversityID, key.DegreeID, key.ApplicationYear)
		inventory, err := s.Recalculate(ctx, key, now)
		if err != nil {
			s.logger.Error("Inventory %s failed: %v", name, err)
			summary.AddError(name, err)
			continue
		}
		summary.Details = append(summary.Details, fmt.Sprintf("%s: available %s", name, inventory.AvailableScholarships))
	}

	s.logger.Info("Recalculated %d inventor(ies) for %d (%d failed)", summary.Processed-summary.Failed, year, summary.Failed)
	return summary, nil
}

// ListInventories returns the stored inventory rows of year, or all rows when year is 0
func (s *Service) ListInventories(ctx context.Context, year int) ([]*entities.AdminScholarshipInventory, error) {
	inventories, err := s.repo.ListInventories(ctx, year)
	if err != nil {
		return nil, types.WrapError(types.ErrDatabaseError, "error listing inventories", err)
	}
	return inventories, nil
}
