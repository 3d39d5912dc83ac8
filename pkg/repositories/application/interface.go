package application

import (
	"context"
	"errors"

	"github.com/fadedpez/agentledger/pkg/entities"
)

var (
	ErrApplicationNotFound = errors.New("application not found")
	ErrStatusConflict      = errors.New("application status changed concurrently")
)

// Repository defines the interface for application data operations
type Repository interface {
	// Get retrieves an application by ID
	Get(ctx context.Context, applicationID string) (*entities.Application, error)

	// Save creates or updates an application
	Save(ctx context.Context, application *entities.Application) error

	// ApplyTransition persists the application and appends the history record
	// in one transaction. It fails with ErrStatusConflict if the stored status
	// is no longer history.FromStatus.
	ApplyTransition(ctx context.Context, application *entities.Application, history *entities.StatusHistory) error

	// ListHistory returns the transitions of an application, oldest first
	ListHistory(ctx context.Context, applicationID string) ([]*entities.StatusHistory, error)

	// ListByStatus returns applications in the given status, oldest first
	ListByStatus(ctx context.Context, status entities.ApplicationStatus) ([]*entities.Application, error)

	// Close releases any resources used by the repository
	Close() error
}
