package application

import (
	"context"
	"sort"
	"sync"

	"github.com/fadedpez/agentledger/pkg/entities"
	"github.com/google/uuid"
)

// MemoryRepository implements Repository using in-memory storage
type MemoryRepository struct {
	mu           sync.RWMutex
	applications map[string]*entities.Application
	history      map[string][]*entities.StatusHistory
}

// NewMemoryRepository creates a new in-memory application repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		applications: make(map[string]*entities.Application),
		history:      make(map[string][]*entities.StatusHistory),
	}
}

// Get retrieves an application by ID
func (r *MemoryRepository) Get(ctx context.Context, applicationID string) (*entities.Application, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	application, ok := r.applications[applicationID]
	if !ok {
		return nil, ErrApplicationNotFound
	}
	return copyApplication(application), nil
}

// Save creates or updates an application
func (r *MemoryRepository) Save(ctx context.Context, application *entities.Application) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if application.ID == "" {
		application.ID = uuid.New().String()
	}
	r.applications[application.ID] = copyApplication(application)
	return nil
}

// ApplyTransition implements Repository
func (r *MemoryRepository) ApplyTransition(ctx context.Context, application *entities.Application, history *entities.StatusHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.applications[application.ID]
	if !ok {
		return ErrApplicationNotFound
	}
	if current.Status != history.FromStatus {
		return ErrStatusConflict
	}

	if history.ID == "" {
		history.ID = uuid.New().String()
	}
	historyCopy := *history
	r.applications[application.ID] = copyApplication(application)
	r.history[application.ID] = append(r.history[application.ID], &historyCopy)
	return nil
}

// ListHistory returns the transitions of an application, oldest first
func (r *MemoryRepository) ListHistory(ctx context.Context, applicationID string) ([]*entities.StatusHistory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*entities.StatusHistory, 0, len(r.history[applicationID]))
	for _, h := range r.history[applicationID] {
		historyCopy := *h
		result = append(result, &historyCopy)
	}
	return result, nil
}

// ListByStatus returns applications in the given status, oldest first
func (r *MemoryRepository) ListByStatus(ctx context.Context, status entities.ApplicationStatus) ([]*entities.Application, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*entities.Application, 0)
	for _, application := range r.applications {
		if application.Status == status {
			result = append(result, copyApplication(application))
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// Close implements Repository
func (r *MemoryRepository) Close() error {
	return nil
}

func copyApplication(application *entities.Application) *entities.Application {
	applicationCopy := *application
	return &applicationCopy
}
