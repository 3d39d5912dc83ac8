// Package application implements the table-driven application status engine
package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fadedpez/agentledger/internal/logging"
	"github.com/fadedpez/agentledger/internal/types"
	"github.com/fadedpez/agentledger/pkg/entities"
	appRepo "github.com/fadedpez/agentledger/pkg/repositories/application"
)

// transitions lists the statuses reachable from each non-terminal status
var transitions = map[entities.ApplicationStatus][]entities.ApplicationStatus{
	entities.StatusNeedsReview:               {entities.StatusSubmitted, entities.StatusRejected},
	entities.StatusSubmitted:                 {entities.StatusAdditionalDocumentsNeeded, entities.StatusApplied, entities.StatusRejected},
	entities.StatusAdditionalDocumentsNeeded: {entities.StatusSubmitted, entities.StatusRejected},
	entities.StatusApplied:                   {entities.StatusOfferReceived, entities.StatusRejected},
	entities.StatusOfferReceived:             {entities.StatusPaymentApproval, entities.StatusRejected},
	entities.StatusPaymentApproval:           {entities.StatusReadyForApproval, entities.StatusRejected},
	entities.StatusReadyForApproval:          {entities.StatusApproved, entities.StatusRejected},
}

// rolePermissions restricts non-admin roles to specific transitions
var rolePermissions = map[entities.Role]map[entities.ApplicationStatus][]entities.ApplicationStatus{
	entities.RoleAgent: {
		entities.StatusAdditionalDocumentsNeeded: {entities.StatusSubmitted},
		entities.StatusOfferReceived:             {entities.StatusPaymentApproval},
	},
}

// AllowedTransitions returns the statuses reachable from status, ignoring role
func AllowedTransitions(status entities.ApplicationStatus) []entities.ApplicationStatus {
	return append([]entities.ApplicationStatus(nil), transitions[status]...)
}

func contains(statuses []entities.ApplicationStatus, status entities.ApplicationStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

// ApprovalHandler is invoked once an application has been persisted as approved
type ApprovalHandler interface {
	HandleApproval(ctx context.Context, application *entities.Application, actor entities.Actor, now time.Time) error
}

// Engine moves applications through their lifecycle
type Engine struct {
	repo      appRepo.Repository
	approvals ApprovalHandler
	logger    *logging.Logger
}

// NewEngine creates a status engine. approvals may be nil.
func NewEngine(repo appRepo.Repository, approvals ApprovalHandler, logger *logging.Logger) *Engine {
	if logger == nil {
		logger = logging.Default
	}
	return &Engine{repo: repo, approvals: approvals, logger: logger}
}

// CanTransitionTo reports whether role may move application to status
func (e *Engine) CanTransitionTo(application *entities.Application, status entities.ApplicationStatus, role entities.Role) bool {
	if application.Status.IsTerminal() {
		return false
	}
	if !contains(transitions[application.Status], status) {
		return false
	}
	if role.IsAdmin() {
		return true
	}
	return contains(rolePermissions[role][application.Status], status)
}

// TransitionTo validates and applies a status change, recording history.
//
// An invalid transition returns (false, nil). A persistence failure returns
// (false, err) with nothing written. When the application reaches approved
// and the approval handler fails, the transition stands and (true, err) is
// returned so the caller can run the reconciliation jobs.
func (e *Engine) TransitionTo(ctx context.Context, applicationID string, status entities.ApplicationStatus, actor entities.Actor, reason string, metadata map[string]string, now time.Time) (bool, error) {
	logger := e.logger.With(map[string]interface{}{
		"application_id": applicationID,
		"to_status":      string(status),
		"actor_id":       actor.ID,
		"actor_role":     string(actor.Role),
	})

	application, err := e.repo.Get(ctx, applicationID)
	if err != nil {
		if errors.Is(err, appRepo.ErrApplicationNotFound) {
			logger.Warn("Transition refused: application not found")
			return false, nil
		}
		wrapped := types.WrapError(types.ErrDatabaseError, "error loading application", err)
		logger.LogError(wrapped)
		return false, wrapped
	}

	from := application.Status
	if !e.CanTransitionTo(application, status, actor.Role) {
		logger.Warn("Invalid transition %s -> %s for role %s", from, status, actor.Role)
		return false, nil
	}

	applySideEffects(application, status, actor, reason, now)

	history := &entities.StatusHistory{
		ApplicationID: application.ID,
		FromStatus:    from,
		ToStatus:      status,
		ActorID:       actor.ID,
		ActorRole:     actor.Role,
		Reason:        reason,
		Metadata:      metadata,
		CreatedAt:     now,
	}

	if err := e.repo.ApplyTransition(ctx, application, history); err != nil {
		if errors.Is(err, appRepo.ErrStatusConflict) {
			logger.Warn("Transition %s -> %s lost a race with a concurrent change", from, status)
			return false, nil
		}
		wrapped := types.WrapError(types.ErrDatabaseError, fmt.Sprintf("error persisting transition %s -> %s", from, status), err)
		logger.LogError(wrapped)
		return false, wrapped
	}

	logger.Info("Application moved %s -> %s", from, status)

	if status == entities.StatusApproved && e.approvals != nil {
		if err := e.approvals.HandleApproval(ctx, application, actor, now); err != nil {
			logger.Error("Approval side effects failed: %v", err)
			return true, err
		}
	}
	return true, nil
}

// History returns the recorded transitions of an application, oldest first
func (e *Engine) History(ctx context.Context, applicationID string) ([]*entities.StatusHistory, error) {
	history, err := e.repo.ListHistory(ctx, applicationID)
	if err != nil {
		return nil, types.WrapError(types.ErrDatabaseError, "error loading status history", err)
	}
	return history, nil
}

func applySideEffects(application *entities.Application, status entities.ApplicationStatus, actor entities.Actor, reason string, now time.Time) {
	at := now
	application.Status = status
	application.UpdatedAt = now

	switch status {
	case entities.StatusSubmitted:
		if application.SubmittedAt == nil {
			application.SubmittedAt = &at
		}
	case entities.StatusAdditionalDocumentsNeeded:
		application.DocumentsRequestedAt = &at
	case entities.StatusReadyForApproval:
		application.PaymentVerifiedAt = &at
		application.PaymentVerifiedBy = actor.ID
	case entities.StatusApproved:
		application.ApprovedAt = &at
		application.ApprovedBy = actor.ID
	case entities.StatusRejected:
		application.RejectedAt = &at
		application.RejectedBy = actor.ID
		application.RejectionReason = reason
	}
}
