// Package notify delivers ledger events to back-office admins
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/fadedpez/agentledger/internal/logging"
	"github.com/shopspring/decimal"
)

// EventType identifies what happened in the ledger
type EventType string

const (
	EventCommissionRecorded EventType = "commission_recorded"
	EventPayoutRequested    EventType = "payout_requested"
	EventPayoutApproved     EventType = "payout_approved"
	EventPayoutRejected     EventType = "payout_rejected"
	EventScholarshipEarned  EventType = "scholarship_earned"
)

// Event is a single notification
type Event struct {
	Type        EventType
	AgentID     string
	ReferenceID string          // Payout, commission or scholarship commission ID
	Amount      decimal.Decimal // Zero for scholarship events
	Detail      string
	OccurredAt  time.Time
}

//go:generate mockgen -source=$GOFILE -destination=mock/mock.go -package=mock_notify
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// Format renders an event as a single chat line
func Format(event Event) string {
	var line string
	switch event.Type {
	case EventCommissionRecorded:
		line = fmt.Sprintf("💰 Commission of %s credited to agent %s", event.Amount.StringFixed(2), event.AgentID)
	case EventPayoutRequested:
		line = fmt.Sprintf("📤 Agent %s requested a payout of %s", event.AgentID, event.Amount.StringFixed(2))
	case EventPayoutApproved:
		line = fmt.Sprintf("✅ Payout of %s to agent %s approved", event.Amount.StringFixed(2), event.AgentID)
	case EventPayoutRejected:
		line = fmt.Sprintf("❌ Payout of %s to agent %s rejected", event.Amount.StringFixed(2), event.AgentID)
	case EventScholarshipEarned:
		line = fmt.Sprintf("🎓 Agent %s earned scholarship %s", event.AgentID, event.ReferenceID)
	default:
		line = fmt.Sprintf("%s for agent %s", event.Type, event.AgentID)
	}

	if event.Detail != "" {
		line += " (" + event.Detail + ")"
	}
	return line
}

// LogNotifier writes events to the log. Used when no chat channel is configured.
type LogNotifier struct {
	logger *logging.Logger
}

// NewLogNotifier creates a notifier backed by logger
func NewLogNotifier(logger *logging.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify implements Notifier
func (n *LogNotifier) Notify(ctx context.Context, event Event) error {
	n.logger.With(map[string]interface{}{
		"event":        string(event.Type),
		"agent_id":     event.AgentID,
		"reference_id": event.ReferenceID,
	}).Info("%s", Format(event))
	return nil
}
