package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/fadedpez/agentledger/internal/logging"
	"github.com/fadedpez/agentledger/pkg/academic"
	"github.com/fadedpez/agentledger/pkg/entities"
)

const (
	TaskExpirePoints           = "expire_points"
	TaskRecalculateInventories = "recalculate_inventories"
	TaskFixScholarships        = "fix_scholarships"
	TaskCycleReset             = "cycle_reset"
)

// ScholarshipMaintainer is the scholarship side of the reconciliation jobs
type ScholarshipMaintainer interface {
	ExpireOldPoints(ctx context.Context, now time.Time) (int, error)
	FixMissingScholarships(ctx context.Context, agentID string, now time.Time) (*entities.RepairSummary, error)
	ResetForNewCycle(ctx context.Context, now time.Time) (*entities.CycleReset, error)
}

// InventoryMaintainer is the inventory side of the reconciliation jobs
type InventoryMaintainer interface {
	RecalculateAllInventories(ctx context.Context, year int, now time.Time) (*entities.RepairSummary, error)
}

// Schedules holds the cron expression of each job. Empty disables the job.
type Schedules struct {
	ExpirePoints           string
	RecalculateInventories string
	FixScholarships        string
	CycleReset             string
}

// Jobs are the reconciliation entry points run by the scheduler
type Jobs struct {
	scholarships ScholarshipMaintainer
	inventories  InventoryMaintainer
	clock        func() time.Time
	logger       *logging.Logger
}

// NewJobs creates the reconciliation jobs. clock defaults to time.Now.
func NewJobs(scholarships ScholarshipMaintainer, inventories InventoryMaintainer, clock func() time.Time, logger *logging.Logger) *Jobs {
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = logging.Default
	}
	return &Jobs{
		scholarships: scholarships,
		inventories:  inventories,
		clock:        clock,
		logger:       logger,
	}
}

// Register adds every job with a non-empty schedule to s
func (j *Jobs) Register(s *Scheduler, schedules Schedules) error {
	tasks := []struct {
		name     string
		schedule string
		fn       func(context.Context) error
	}{
		{TaskExpirePoints, schedules.ExpirePoints, j.ExpirePoints},
		{TaskRecalculateInventories, schedules.RecalculateInventories, j.RecalculateInventories},
		{TaskFixScholarships, schedules.FixScholarships, j.FixScholarships},
		{TaskCycleReset, schedules.CycleReset, j.ResetCycle},
	}

	for _, t := range tasks {
		if t.schedule == "" {
			j.logger.Info("Task %s is disabled", t.name)
			continue
		}
		if err := s.AddTask(t.name, t.schedule, t.fn); err != nil {
			return err
		}
	}
	return nil
}

// ExpirePoints expires points past their cutoff
func (j *Jobs) ExpirePoints(ctx context.Context) error {
	_, err := j.scholarships.ExpireOldPoints(ctx, j.clock())
	return err
}

// RecalculateInventories recomputes the current cycle's inventories
func (j *Jobs) RecalculateInventories(ctx context.Context) error {
	now := j.clock()
	summary, err := j.inventories.RecalculateAllInventories(ctx, academic.CycleYear(now), now)
	if err != nil {
		return err
	}
	return summaryError("inventory recompute", summary)
}

// FixScholarships backfills missing commissions for every agent
func (j *Jobs) FixScholarships(ctx context.Context) error {
	summary, err := j.scholarships.FixMissingScholarships(ctx, "", j.clock())
	if err != nil {
		return err
	}
	return summaryError("scholarship repair", summary)
}

// ResetCycle closes out prior cycles. It is safe to run on any date.
func (j *Jobs) ResetCycle(ctx context.Context) error {
	_, err := j.scholarships.ResetForNewCycle(ctx, j.clock())
	return err
}

// summaryError reports per-item failures of a sweep so they reach the task log
func summaryError(name string, summary *entities.RepairSummary) error {
	if summary == nil || summary.Failed == 0 {
		return nil
	}
	return fmt.Errorf("%s: %d of %d failed: %v", name, summary.Failed, summary.Processed, summary.Errors)
}
