package scholarship

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fadedpez/agentledger/internal/logging"
	"github.com/fadedpez/agentledger/internal/types"
	"github.com/fadedpez/agentledger/pkg/academic"
	"github.com/fadedpez/agentledger/pkg/entities"
	"github.com/fadedpez/agentledger/pkg/notify"
	scholarshipRepo "github.com/fadedpez/agentledger/pkg/repositories/scholarship"
	"github.com/fadedpez/agentledger/pkg/requirements"
)

// Service handles scholarship point accrual and commission redemption.
// Point counts are only read and acted on inside WithCombinationLock.
type Service struct {
	repo         scholarshipRepo.Repository
	requirements requirements.Source
	notifier     notify.Notifier
	logger       *logging.Logger
}

// NewService creates a new scholarship service
func NewService(repo scholarshipRepo.Repository, reqs requirements.Source, notifier notify.Notifier, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default
	}
	if notifier == nil {
		notifier = notify.NewLogNotifier(logger)
	}
	return &Service{
		repo:         repo,
		requirements: reqs,
		notifier:     notifier,
		logger:       logger,
	}
}

// agentThreshold returns the points needed per agent scholarship, or 0 when
// the degree has no scholarship accrual
func (s *Service) agentThreshold(universityID, degreeName string) int {
	req, ok := s.requirements.Lookup(universityID, degreeName)
	if !ok || req.MinStudents <= 0 {
		return 0
	}
	return req.MinStudents
}

// ProcessApprovedApplication awards the scholarship point of an approved
// application and redeems any commission the new point completes.
// Precondition failures are reported in the result, not as errors.
func (s *Service) ProcessApprovedApplication(ctx context.Context, application *entities.Application, now time.Time) (*entities.ProcessResult, error) {
	result := &entities.ProcessResult{}
	logger := s.logger.With(map[string]interface{}{
		"application_id": application.ID,
		"agent_id":       application.AgentID,
	})

	result.Debugf("commission_type=%s status=%s", application.CommissionType, application.Status)
	if application.CommissionType != entities.CommissionTypeScholarship {
		logger.Info("Skipping point: application is not a scholarship commission")
		return result.Fail("application is not a scholarship commission"), nil
	}
	if application.Status != entities.StatusApproved {
		logger.Info("Skipping point: application is %s", application.Status)
		return result.Fail(fmt.Sprintf("application is %s, not approved", application.Status)), nil
	}

	if missing := missingRelations(application); len(missing) > 0 {
		result.Debugf("missing relations: %v", missing)
		logger.Info("Skipping point: unresolved relations %v", missing)
		return result.Fail(fmt.Sprintf("application is missing %v", missing)), nil
	}

	existing, err := s.repo.GetPointByApplication(ctx, application.ID)
	if err == nil {
		result.Success = true
		result.Message = "application already has a scholarship point"
		result.Point = existing
		result.Debugf("existing point %s", existing.ID)
		return result, nil
	}
	if !errors.Is(err, scholarshipRepo.ErrPointNotFound) {
		return nil, s.fail("load point", application.ID, err)
	}

	threshold := s.agentThreshold(application.UniversityID, application.DegreeName)
	result.Debugf("agent threshold for %s/%s is %d", application.UniversityID, application.DegreeName, threshold)
	if threshold == 0 {
		logger.Info("Skipping point: no scholarship requirement for %s %s", application.UniversityID, application.DegreeName)
		return result.Fail("no scholarship requirement configured for this degree"), nil
	}

	year := academic.CycleYear(now)
	if !academic.InEarningWindow(now) {
		result.Debugf("approved after the %d earning window, point carries to the next cutoff", year)
	}
	point := &entities.ScholarshipPoint{
		AgentID:         application.AgentID,
		UniversityID:    application.UniversityID,
		DegreeID:        application.DegreeID,
		DegreeName:      application.DegreeName,
		ProgramID:       application.ProgramID,
		ApplicationID:   application.ID,
		StudentID:       application.StudentID,
		Status:          entities.PointStatusActive,
		ApplicationYear: year,
		CycleStart:      academic.CycleStart(year, now.Location()),
		CycleEnd:        academic.CycleEnd(year, now.Location()),
		EarnedAt:        now,
		ExpiresAt:       academic.PointExpiry(now),
	}

	var minted []*entities.ScholarshipCommission
	duplicate := false
	combo := application.Combination()
	err = s.repo.WithCombinationLock(ctx, combo, func(tx scholarshipRepo.Tx) error {
		if found, err := tx.GetPointByApplication(application.ID); err == nil {
			point = found
			duplicate = true
			return nil
		} else if !errors.Is(err, scholarshipRepo.ErrPointNotFound) {
			return err
		}

		if err := tx.CreatePoint(point); err != nil {
			return err
		}

		minted, err = s.redeem(tx, combo, application.DegreeName, threshold, now)
		return err
	})
	if err != nil {
		return nil, s.fail("award point", application.ID, err)
	}

	result.Success = true
	result.Point = point
	if duplicate {
		result.Message = "application already has a scholarship point"
		return result, nil
	}

	result.CommissionsCreated = len(minted)
	result.Message = fmt.Sprintf("awarded point %s", point.ID)
	result.Debugf("point %s expires %s", point.ID, point.ExpiresAt.Format(time.RFC3339))
	for _, commission := range minted {
		result.Debugf("minted %s from %d points", commission.CommissionNumber, commission.QualifyingPointsCount)
	}

	logger.Info("Awarded scholarship point %s (%d commission(s) minted)", point.ID, len(minted))
	s.announce(ctx, minted, now)
	return result, nil
}

func missingRelations(application *entities.Application) []string {
	missing := make([]string, 0)
	if application.StudentID == "" {
		missing = append(missing, "student")
	}
	if application.ProgramID == "" {
		missing = append(missing, "program")
	}
	if application.UniversityID == "" {
		missing = append(missing, "university")
	}
	if application.DegreeID == "" || application.DegreeName == "" {
		missing = append(missing, "degree")
	}
	return missing
}

// CheckAndCreateCommissions mints every commission the active points of the
// combination justify and returns how many were created
func (s *Service) CheckAndCreateCommissions(ctx context.Context, combo entities.Combination, degreeName string, now time.Time) (int, error) {
	threshold := s.agentThreshold(combo.UniversityID, degreeName)
	if threshold == 0 {
		s.logger.Info("No scholarship requirement for %s %s, nothing to redeem", combo.UniversityID, degreeName)
		return 0, nil
	}

	var minted []*entities.ScholarshipCommission
	err := s.repo.WithCombinationLock(ctx, combo, func(tx scholarshipRepo.Tx) error {
		var err error
		minted, err = s.redeem(tx, combo, degreeName, threshold, now)
		return err
	})
	if err != nil {
		return 0, s.fail("redeem commissions", combo.String(), err)
	}

	s.announce(ctx, minted, now)
	return len(minted), nil
}

// redeem converts every full threshold of active points into a commission.
// Minting consumes the points, so the active count alone decides how many
// commissions are still owed.
func (s *Service) redeem(tx scholarshipRepo.Tx, combo entities.Combination, degreeName string, threshold int, now time.Time) ([]*entities.ScholarshipCommission, error) {
	active, err := tx.CountActivePoints(combo)
	if err != nil {
		return nil, err
	}

	toCreate := active / threshold
	minted := make([]*entities.ScholarshipCommission, 0, toCreate)
	for i := 0; i < toCreate; i++ {
		commission, err := mint(tx, combo, degreeName, threshold, now)
		if err != nil {
			return nil, err
		}
		minted = append(minted, commission)
	}
	return minted, nil
}

// mint creates one earned commission and redeems up to threshold of the
// oldest active points into it
func mint(tx scholarshipRepo.Tx, combo entities.Combination, degreeName string, threshold int, now time.Time) (*entities.ScholarshipCommission, error) {
	oldest, err := tx.OldestActivePoints(combo, threshold)
	if err != nil {
		return nil, err
	}

	commission := &entities.ScholarshipCommission{
		AgentID:               combo.AgentID,
		UniversityID:          combo.UniversityID,
		DegreeID:              combo.DegreeID,
		DegreeName:            degreeName,
		QualifyingPointsCount: threshold,
		Status:                entities.ScholarshipStatusEarned,
		ApplicationYear:       academic.CycleYear(now),
		EarnedAt:              now,
	}
	if err := tx.CreateCommission(commission); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(oldest))
	for _, p := range oldest {
		ids = append(ids, p.ID)
	}
	if len(ids) > 0 {
		if err := tx.MarkPointsRedeemed(ids, commission.ID, now); err != nil {
			return nil, err
		}
	}
	return commission, nil
}

// FixMissingScholarships backfills commissions that the current cycle's
// points justify but that were never minted, then redeems any full threshold
// of still-active points carried over from earlier cycles. An empty agentID
// repairs every agent. Per-combination failures are collected and the sweep
// continues.
func (s *Service) FixMissingScholarships(ctx context.Context, agentID string, now time.Time) (*entities.RepairSummary, error) {
	year := academic.CycleYear(now)
	combos, err := s.repairCombinations(ctx, agentID, year)
	if err != nil {
		return nil, s.fail("list combinations", agentID, err)
	}

	summary := &entities.RepairSummary{}
	for _, combo := range combos {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		summary.Processed++

		created, err := s.fixCombination(ctx, combo, year, now)
		if err != nil {
			s.logger.Error("Repair of %s failed: %v", combo, err)
			summary.AddError(combo.String(), err)
			continue
		}
		if created > 0 {
			summary.Created += created
			summary.Details = append(summary.Details, fmt.Sprintf("%s: created %d", combo, created))
		}
	}

	s.logger.Info("Scholarship repair for cycle %d: processed=%d created=%d failed=%d",
		year, summary.Processed, summary.Created, summary.Failed)
	return summary, nil
}

// repairCombinations returns the combinations with points in year plus those
// still holding active points from earlier cycles
func (s *Service) repairCombinations(ctx context.Context, agentID string, year int) ([]entities.Combination, error) {
	combos, err := s.repo.Combinations(ctx, agentID, year)
	if err != nil {
		return nil, err
	}
	active, err := s.repo.ListPoints(ctx, scholarshipRepo.PointFilter{AgentID: agentID, Status: entities.PointStatusActive})
	if err != nil {
		return nil, err
	}

	seen := make(map[entities.Combination]bool, len(combos))
	for _, combo := range combos {
		seen[combo] = true
	}
	for _, p := range active {
		if combo := p.Combination(); !seen[combo] {
			seen[combo] = true
			combos = append(combos, combo)
		}
	}
	return combos, nil
}

func (s *Service) fixCombination(ctx context.Context, combo entities.Combination, year int, now time.Time) (int, error) {
	points, err := s.repo.ListPoints(ctx, scholarshipRepo.PointFilter{
		AgentID:      combo.AgentID,
		UniversityID: combo.UniversityID,
		DegreeID:     combo.DegreeID,
	})
	if err != nil {
		return 0, err
	}
	if len(points) == 0 {
		return 0, nil
	}
	degreeName := points[len(points)-1].DegreeName

	threshold := s.agentThreshold(combo.UniversityID, degreeName)
	if threshold == 0 {
		return 0, nil
	}

	var minted []*entities.ScholarshipCommission
	err = s.repo.WithCombinationLock(ctx, combo, func(tx scholarshipRepo.Tx) error {
		total, err := tx.CountPoints(combo, year)
		if err != nil {
			return err
		}
		existing, err := tx.CountCommissions(combo, year)
		if err != nil {
			return err
		}

		missing := total/threshold - existing
		for i := 0; i < missing; i++ {
			commission, err := mint(tx, combo, degreeName, threshold, now)
			if err != nil {
				return err
			}
			minted = append(minted, commission)
		}

		carried, err := s.redeem(tx, combo, degreeName, threshold, now)
		if err != nil {
			return err
		}
		minted = append(minted, carried...)
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.announce(ctx, minted, now)
	return len(minted), nil
}

// ExpireOldPoints expires every active point past its expiry
func (s *Service) ExpireOldPoints(ctx context.Context, now time.Time) (int, error) {
	count, err := s.repo.ExpirePoints(ctx, now)
	if err != nil {
		return 0, s.fail("expire points", "all agents", err)
	}
	s.logger.Info("Expired %d scholarship point(s)", count)
	return count, nil
}

// ResetForNewCycle closes out every cycle before the one now falls in:
// unused commissions expire and inventories close. Points expire only once
// their own cutoff has passed, so carried-over points survive the reset.
func (s *Service) ResetForNewCycle(ctx context.Context, now time.Time) (*entities.CycleReset, error) {
	year := academic.CycleYear(now)
	reset := &entities.CycleReset{CycleYear: year}

	var err error
	if reset.CommissionsExpired, err = s.repo.ExpireCommissionsBeforeYear(ctx, year, now); err != nil {
		return nil, s.fail("expire commissions", fmt.Sprint(year), err)
	}
	if reset.PointsExpired, err = s.repo.ExpirePoints(ctx, now); err != nil {
		return nil, s.fail("expire points", fmt.Sprint(year), err)
	}
	if reset.InventoriesClosed, err = s.repo.CloseInventoriesBeforeYear(ctx, year); err != nil {
		return nil, s.fail("close inventories", fmt.Sprint(year), err)
	}

	s.logger.Info("Reset for cycle %d: %d commission(s) and %d point(s) expired, %d inventor(ies) closed",
		year, reset.CommissionsExpired, reset.PointsExpired, reset.InventoriesClosed)
	return reset, nil
}

// UseCommission spends an earned scholarship commission on an application
func (s *Service) UseCommission(ctx context.Context, commissionID, applicationID string, now time.Time) (*entities.ScholarshipCommission, error) {
	existing, err := s.repo.GetCommission(ctx, commissionID)
	if err != nil {
		if errors.Is(err, scholarshipRepo.ErrCommissionNotFound) {
			return nil, types.WrapError(types.ErrNotFound, fmt.Sprintf("scholarship commission %s not found", commissionID), err)
		}
		return nil, s.fail("load commission", commissionID, err)
	}

	combo := entities.Combination{AgentID: existing.AgentID, UniversityID: existing.UniversityID, DegreeID: existing.DegreeID}
	var used *entities.ScholarshipCommission
	err = s.repo.WithCombinationLock(ctx, combo, func(tx scholarshipRepo.Tx) error {
		commission, err := tx.GetCommission(commissionID)
		if err != nil {
			return err
		}
		if commission.Status != entities.ScholarshipStatusEarned {
			return types.NewLedgerError(types.ErrCommissionNotEarned,
				fmt.Sprintf("scholarship commission %s is %s", commission.CommissionNumber, commission.Status))
		}

		usedAt := now
		commission.Status = entities.ScholarshipStatusUsed
		commission.UsedAt = &usedAt
		commission.UsedInApplicationID = applicationID
		used = commission
		return tx.SaveCommission(commission)
	})
	if err != nil {
		return nil, s.fail("use commission", commissionID, err)
	}

	s.logger.Info("Scholarship commission %s used on application %s", used.CommissionNumber, applicationID)
	return used, nil
}

// AgentProgress returns the agent's scholarship progress per combination
func (s *Service) AgentProgress(ctx context.Context, agentID string) ([]*entities.ScholarshipProgress, error) {
	combos, err := s.repo.Combinations(ctx, agentID, 0)
	if err != nil {
		return nil, types.WrapError(types.ErrDatabaseError, "error listing combinations", err)
	}

	result := make([]*entities.ScholarshipProgress, 0, len(combos))
	for _, combo := range combos {
		points, err := s.repo.ListPoints(ctx, scholarshipRepo.PointFilter{
			AgentID:      combo.AgentID,
			UniversityID: combo.UniversityID,
			DegreeID:     combo.DegreeID,
		})
		if err != nil {
			return nil, types.WrapError(types.ErrDatabaseError, "error listing points", err)
		}
		commissions, err := s.repo.ListCommissions(ctx, scholarshipRepo.CommissionFilter{
			AgentID:      combo.AgentID,
			UniversityID: combo.UniversityID,
			DegreeID:     combo.DegreeID,
		})
		if err != nil {
			return nil, types.WrapError(types.ErrDatabaseError, "error listing commissions", err)
		}

		progress := &entities.ScholarshipProgress{Combination: combo}
		for _, p := range points {
			progress.DegreeName = p.DegreeName
			if p.Status == entities.PointStatusActive {
				progress.ActivePoints++
			}
		}
		for _, c := range commissions {
			switch c.Status {
			case entities.ScholarshipStatusEarned:
				progress.EarnedCommissions++
			case entities.ScholarshipStatusUsed:
				progress.UsedCommissions++
			case entities.ScholarshipStatusExpired:
				progress.ExpiredCommissions++
			}
		}

		progress.Threshold = s.agentThreshold(combo.UniversityID, progress.DegreeName)
		progress.ThresholdConfigured = progress.Threshold > 0
		if progress.ThresholdConfigured {
			progress.PointsToNext = progress.Threshold - progress.ActivePoints%progress.Threshold
		}
		result = append(result, progress)
	}
	return result, nil
}

// ListCommissions returns scholarship commissions matching filter
func (s *Service) ListCommissions(ctx context.Context, filter scholarshipRepo.CommissionFilter) ([]*entities.ScholarshipCommission, error) {
	commissions, err := s.repo.ListCommissions(ctx, filter)
	if err != nil {
		return nil, types.WrapError(types.ErrDatabaseError, "error listing scholarship commissions", err)
	}
	return commissions, nil
}

func (s *Service) announce(ctx context.Context, minted []*entities.ScholarshipCommission, now time.Time) {
	for _, commission := range minted {
		s.logger.Info("Agent %s earned scholarship %s (%s %s)",
			commission.AgentID, commission.CommissionNumber, commission.UniversityID, commission.DegreeName)

		event := notify.Event{
			Type:        notify.EventScholarshipEarned,
			AgentID:     commission.AgentID,
			ReferenceID: commission.CommissionNumber,
			Detail:      fmt.Sprintf("%s %s", commission.UniversityID, commission.DegreeName),
			OccurredAt:  now,
		}
		if err := s.notifier.Notify(ctx, event); err != nil {
			s.logger.Warn("Failed to send %s notification for agent %s: %v", event.Type, event.AgentID, err)
		}
	}
}

// fail logs and classifies an error returned from a locked operation
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
