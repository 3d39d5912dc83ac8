// Package approval routes an approved application to its reward path
package approval

import (
	"context"
	"fmt"
	"time"

	"github.com/fadedpez/agentledger/internal/logging"
	"github.com/fadedpez/agentledger/internal/types"
	"github.com/fadedpez/agentledger/pkg/entities"
	"github.com/fadedpez/agentledger/pkg/services/application"
	walletService "github.com/fadedpez/agentledger/pkg/services/wallet"
)

// PointProcessor is the scholarship path taken when an application is approved
type PointProcessor interface {
	ProcessApprovedApplication(ctx context.Context, application *entities.Application, now time.Time) (*entities.ProcessResult, error)
}

// InventoryRecalculator refreshes the admin inventory after a new point
type InventoryRecalculator interface {
	Recalculate(ctx context.Context, key entities.InventoryKey, now time.Time) (*entities.AdminScholarshipInventory, error)
}

// Dispatcher implements application.ApprovalHandler
type Dispatcher struct {
	commissions walletService.CommissionRecorder
	points      PointProcessor
	inventory   InventoryRecalculator
	logger      *logging.Logger
}

var _ application.ApprovalHandler = (*Dispatcher)(nil)

// NewDispatcher creates a dispatcher. inventory may be nil.
func NewDispatcher(commissions walletService.CommissionRecorder, points PointProcessor, inventory InventoryRecalculator, logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Default
	}
	return &Dispatcher{
		commissions: commissions,
		points:      points,
		inventory:   inventory,
		logger:      logger,
	}
}

// HandleApproval creates the money commission or the scholarship point of
// an approved application, depending on its commission type
func (d *Dispatcher) HandleApproval(ctx context.Context, app *entities.Application, actor entities.Actor, now time.Time) error {
	switch app.CommissionType {
	case entities.CommissionTypeMoney:
		commission, created, err := d.commissions.RecordCommission(ctx, app, now)
		if err != nil {
			return err
		}
		if created {
			d.logger.Info("Approval of %s by %s credited commission %s", app.ID, actor.ID, commission.ID)
		}
		return nil

	case entities.CommissionTypeScholarship:
		result, err := d.points.ProcessApprovedApplication(ctx, app, now)
		if err != nil {
			return err
		}
		if !result.Success {
			d.logger.Info("No scholarship point for %s: %s", app.ID, result.Message)
			return nil
		}

		if d.inventory != nil && result.Point != nil {
			key := entities.InventoryKey{
				UniversityID:    app.UniversityID,
				DegreeID:        app.DegreeID,
				DegreeName:      app.DegreeName,
				ApplicationYear: result.Point.ApplicationYear,
			}
			if _, err := d.inventory.Recalculate(ctx, key, now); err != nil {
				// Point and commissions are committed; the scheduled recompute catches up
				d.logger.Warn("Inventory refresh after %s failed: %v", app.ID, err)
			}
		}
		return nil

	default:
		return types.NewLedgerError(types.ErrInvalidArgument,
			fmt.Sprintf("application %s has no commission type", app.ID))
	}
}
