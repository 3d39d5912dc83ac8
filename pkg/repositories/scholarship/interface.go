package scholarship

import (
	"context"
	"errors"
	"time"

	"github.com/fadedpez/agentledger/pkg/entities"
)

var (
	ErrPointNotFound      = errors.New("scholarship point not found")
	ErrDuplicatePoint     = errors.New("scholarship point already exists for application")
	ErrPointNotActive     = errors.New("scholarship point is not active")
	ErrCommissionNotFound = errors.New("scholarship commission not found")
	ErrInventoryNotFound  = errors.New("scholarship inventory not found")
)

// PointFilter narrows ListPoints. Zero-valued fields match everything.
type PointFilter struct {
	AgentID         string
	UniversityID    string
	DegreeID        string
	Status          entities.PointStatus
	ApplicationYear int
}

// CommissionFilter narrows ListCommissions. Zero-valued fields match everything.
type CommissionFilter struct {
	AgentID         string
	UniversityID    string
	DegreeID        string
	Status          entities.ScholarshipCommissionStatus
	ApplicationYear int
}

// Tx is the set of operations available while a combination is locked
type Tx interface {
	// GetPointByApplication returns ErrPointNotFound if the application has no point
	GetPointByApplication(applicationID string) (*entities.ScholarshipPoint, error)

	// CreatePoint inserts a point; ErrDuplicatePoint if the application already has one
	CreatePoint(point *entities.ScholarshipPoint) error

	// CountActivePoints counts active points of the combination
	CountActivePoints(combo entities.Combination) (int, error)

	// CountPoints counts points of the combination in a cycle year, any status
	CountPoints(combo entities.Combination, year int) (int, error)

	// OldestActivePoints returns up to limit active points ordered by earned_at ascending
	OldestActivePoints(combo entities.Combination, limit int) ([]*entities.ScholarshipPoint, error)

	// MarkPointsRedeemed moves active points to redeemed. Fails with ErrPointNotActive
	// if any of them is no longer active.
	MarkPointsRedeemed(pointIDs []string, commissionID string, at time.Time) error

	// CountCommissions counts commissions of the combination in a cycle year with any of the statuses
	CountCommissions(combo entities.Combination, year int, statuses ...entities.ScholarshipCommissionStatus) (int, error)

	// CreateCommission inserts a commission, assigning the next SC-{year}-{seq} number when unset
	CreateCommission(commission *entities.ScholarshipCommission) error

	// GetCommission reads a commission inside the transaction
	GetCommission(commissionID string) (*entities.ScholarshipCommission, error)

	// SaveCommission persists commission status changes
	SaveCommission(commission *entities.ScholarshipCommission) error
}

// Repository defines the interface for scholarship data operations
type Repository interface {
	// WithCombinationLock runs fn in a transaction that holds the lock of one
	// (agent, university, degree) combination. Any error returned by fn rolls
	// back every write made through tx.
	WithCombinationLock(ctx context.Context, combo entities.Combination, fn func(tx Tx) error) error

	GetPointByApplication(ctx context.Context, applicationID string) (*entities.ScholarshipPoint, error)
	ListPoints(ctx context.Context, filter PointFilter) ([]*entities.ScholarshipPoint, error)
	GetCommission(ctx context.Context, commissionID string) (*entities.ScholarshipCommission, error)
	ListCommissions(ctx context.Context, filter CommissionFilter) ([]*entities.ScholarshipCommission, error)

	// Combinations lists distinct combinations that have points. Empty agentID
	// matches every agent and year 0 matches every cycle year.
	Combinations(ctx context.Context, agentID string, year int) ([]entities.Combination, error)

	// ExpirePoints moves active points whose expiry is before now to expired
	ExpirePoints(ctx context.Context, now time.Time) (int, error)

	// ExpireCommissionsBeforeYear expires earned commissions of cycle years before year
	ExpireCommissionsBeforeYear(ctx context.Context, year int, now time.Time) (int, error)

	// InventoryKeys lists the (university, degree, year) keys that have points in year
	InventoryKeys(ctx context.Context, year int) ([]entities.InventoryKey, error)

	// CountPointsByKey counts points of any status for the key
	CountPointsByKey(ctx context.Context, key entities.InventoryKey) (int, error)

	// CountCommissionsByKey counts commissions of any status for the key
	CountCommissionsByKey(ctx context.Context, key entities.InventoryKey) (int, error)

	GetInventory(ctx context.Context, key entities.InventoryKey) (*entities.AdminScholarshipInventory, error)

	// SaveInventory creates or replaces the inventory row for its key
	SaveInventory(ctx context.Context, inventory *entities.AdminScholarshipInventory) error

	ListInventories(ctx context.Context, year int) ([]*entities.AdminScholarshipInventory, error)

	// CloseInventoriesBeforeYear closes active inventories of years before year
	CloseInventoriesBeforeYear(ctx context.Context, year int) (int, error)

	// Close releases any resources used by the repository
	Close() error
}
