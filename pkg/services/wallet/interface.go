package wallet

import (
	"context"
	"time"

	"github.com/fadedpez/agentledger/pkg/entities"
)

// CommissionRecorder is the money path taken when an application is approved
//
//go:generate mockgen -source=$GOFILE -destination=mock/mock.go -package=mock_wallet_service
type CommissionRecorder interface {
	RecordCommission(ctx context.Context, application *entities.Application, now time.Time) (*entities.Commission, bool, error)
}
