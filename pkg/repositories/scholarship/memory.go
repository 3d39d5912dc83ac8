package scholarship

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fadedpez/agentledger/pkg/entities"
	"github.com/fadedpez/agentledger/pkg/repositories/keylock"
	"github.com/google/uuid"
)

type pointRow struct {
	point *entities.ScholarshipPoint
	seq   int64 // insertion order, breaks earned_at ties
}

type inventoryKey struct {
	universityID string
	degreeID     string
	year         int
}

func keyOf(universityID, degreeID string, year int) inventoryKey {
	return inventoryKey{universityID: universityID, degreeID: degreeID, year: year}
}

// MemoryRepository implements Repository using in-memory storage
type MemoryRepository struct {
	mu          sync.RWMutex
	locks       *keylock.Set
	seq         int64
	numbers     map[int]int // last commission sequence per year, never reused
	points      map[string]*pointRow
	pointByApp  map[string]string
	commissions map[string]*entities.ScholarshipCommission
	inventories map[inventoryKey]*entities.AdminScholarshipInventory
}

// NewMemoryRepository creates a new in-memory scholarship repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		locks:       keylock.New(),
		numbers:     make(map[int]int),
		points:      make(map[string]*pointRow),
		pointByApp:  make(map[string]string),
		commissions: make(map[string]*entities.ScholarshipCommission),
		inventories: make(map[inventoryKey]*entities.AdminScholarshipInventory),
	}
}

type memoryTx struct {
	repo *MemoryRepository
	undo []func()
}

// WithCombinationLock implements Repository
func (r *MemoryRepository) WithCombinationLock(ctx context.Context, combo entities.Combination, fn func(tx Tx) error) error {
	unlock := r.locks.Lock(combo.String())
	defer unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &memoryTx{repo: r}
	if err := fn(tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

func (t *memoryTx) rollback() {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()

	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
}

func (t *memoryTx) GetPointByApplication(applicationID string) (*entities.ScholarshipPoint, error) {
	t.repo.mu.RLock()
	defer t.repo.mu.RUnlock()
	return t.repo.pointByApplication(applicationID)
}

func (t *memoryTx) CreatePoint(point *entities.ScholarshipPoint) error {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()

	if _, exists := t.repo.pointByApp[point.ApplicationID]; exists {
		return ErrDuplicatePoint
	}
	if point.ID == "" {
		point.ID = uuid.New().String()
	}

	t.repo.seq++
	pointCopy := *point
	t.repo.points[point.ID] = &pointRow{point: &pointCopy, seq: t.repo.seq}
	t.repo.pointByApp[point.ApplicationID] = point.ID

	id, applicationID := point.ID, point.ApplicationID
	t.undo = append(t.undo, func() {
		delete(t.repo.points, id)
		delete(t.repo.pointByApp, applicationID)
	})
	return nil
}

func (t *memoryTx) CountActivePoints(combo entities.Combination) (int, error) {
	t.repo.mu.RLock()
	defer t.repo.mu.RUnlock()

	count := 0
	for _, row := range t.repo.points {
		if row.point.Combination() == combo && row.point.Status == entities.PointStatusActive {
			count++
		}
	}
	return count, nil
}

func (t *memoryTx) CountPoints(combo entities.Combination, year int) (int, error) {
	t.repo.mu.RLock()
	defer t.repo.mu.RUnlock()

	count := 0
	for _, row := range t.repo.points {
		if row.point.Combination() == combo && row.point.ApplicationYear == year {
			count++
		}
	}
	return count, nil
}

func (t *memoryTx) OldestActivePoints(combo entities.Combination, limit int) ([]*entities.ScholarshipPoint, error) {
	t.repo.mu.RLock()
	defer t.repo.mu.RUnlock()

	rows := make([]*pointRow, 0)
	for _, row := range t.repo.points {
		if row.point.Combination() == combo && row.point.Status == entities.PointStatusActive {
			rows = append(rows, row)
		}
	}
	sortRows(rows)

	result := make([]*entities.ScholarshipPoint, 0, limit)
	for _, row := range rows {
		if len(result) == limit {
			break
		}
		pointCopy := *row.point
		result = append(result, &pointCopy)
	}
	return result, nil
}

func (t *memoryTx) MarkPointsRedeemed(pointIDs []string, commissionID string, at time.Time) error {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()

	for _, id := range pointIDs {
		row, ok := t.repo.points[id]
		if !ok {
			return ErrPointNotFound
		}
		if row.point.Status != entities.PointStatusActive {
			return ErrPointNotActive
		}
	}

	for _, id := range pointIDs {
		row := t.repo.points[id]
		previous := row.point
		redeemed := *previous
		redeemedAt := at
		redeemed.Status = entities.PointStatusRedeemed
		redeemed.RedeemedAt = &redeemedAt
		redeemed.RedeemedInCommissionID = commissionID
		row.point = &redeemed
		t.undo = append(t.undo, func() { row.point = previous })
	}
	return nil
}

func (t *memoryTx) CountCommissions(combo entities.Combination, year int, statuses ...entities.ScholarshipCommissionStatus) (int, error) {
	t.repo.mu.RLock()
	defer t.repo.mu.RUnlock()

	count := 0
	for _, c := range t.repo.commissions {
		if c.AgentID != combo.AgentID || c.UniversityID != combo.UniversityID || c.DegreeID != combo.DegreeID {
			continue
		}
		if year != 0 && c.ApplicationYear != year {
			continue
		}
		if len(statuses) > 0 && !hasStatus(statuses, c.Status) {
			continue
		}
		count++
	}
	return count, nil
}

func (t *memoryTx) CreateCommission(commission *entities.ScholarshipCommission) error {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()

	if commission.ID == "" {
		commission.ID = uuid.New().String()
	}
	if commission.CommissionNumber == "" {
		t.repo.numbers[commission.ApplicationYear]++
		commission.CommissionNumber = entities.FormatCommissionNumber(commission.ApplicationYear, t.repo.numbers[commission.ApplicationYear])
	}

	commissionCopy := *commission
	t.repo.commissions[commission.ID] = &commissionCopy
	id := commission.ID
	t.undo = append(t.undo, func() { delete(t.repo.commissions, id) })
	return nil
}

func (t *memoryTx) GetCommission(commissionID string) (*entities.ScholarshipCommission, error) {
	t.repo.mu.RLock()
	defer t.repo.mu.RUnlock()
	return t.repo.commission(commissionID)
}

func (t *memoryTx) SaveCommission(commission *entities.ScholarshipCommission) error {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()

	previous, ok := t.repo.commissions[commission.ID]
	if !ok {
		return ErrCommissionNotFound
	}
	commissionCopy := *commission
	t.repo.commissions[commission.ID] = &commissionCopy
	t.undo = append(t.undo, func() { t.repo.commissions[commission.ID] = previous })
	return nil
}

func (r *MemoryRepository) pointByApplication(applicationID string) (*entities.ScholarshipPoint, error) {
	id, ok := r.pointByApp[applicationID]
	if !ok {
		return nil, ErrPointNotFound
	}
	pointCopy := *r.points[id].point
	return &pointCopy, nil
}

func (r *MemoryRepository) commission(commissionID string) (*entities.ScholarshipCommission, error) {
	c, ok := r.commissions[commissionID]
	if !ok {
		return nil, ErrCommissionNotFound
	}
	commissionCopy := *c
	return &commissionCopy, nil
}

// GetPointByApplication retrieves the point earned by an application
func (r *MemoryRepository) GetPointByApplication(ctx context.Context, applicationID string) (*entities.ScholarshipPoint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.pointByApplication(applicationID)
}

// ListPoints returns matching points ordered by earned_at ascending
func (r *MemoryRepository) ListPoints(ctx context.Context, filter PointFilter) ([]*entities.ScholarshipPoint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows := make([]*pointRow, 0)
	for _, row := range r.points {
		if filter.matches(row.point) {
			rows = append(rows, row)
		}
	}
	sortRows(rows)

	result := make([]*entities.ScholarshipPoint, 0, len(rows))
	for _, row := range rows {
		pointCopy := *row.point
		result = append(result, &pointCopy)
	}
	return result, nil
}

// GetCommission retrieves a scholarship commission by ID
func (r *MemoryRepository) GetCommission(ctx context.Context, commissionID string) (*entities.ScholarshipCommission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.commission(commissionID)
}

// ListCommissions returns matching commissions ordered by commission number
func (r *MemoryRepository) ListCommissions(ctx context.Context, filter CommissionFilter) ([]*entities.ScholarshipCommission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*entities.ScholarshipCommission, 0)
	for _, c := range r.commissions {
		if filter.matches(c) {
			commissionCopy := *c
			result = append(result, &commissionCopy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CommissionNumber < result[j].CommissionNumber
	})
	return result, nil
}

// Combinations implements Repository
func (r *MemoryRepository) Combinations(ctx context.Context, agentID string, year int) ([]entities.Combination, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[entities.Combination]bool)
	result := make([]entities.Combination, 0)
	for _, row := range r.points {
		p := row.point
		if agentID != "" && p.AgentID != agentID {
			continue
		}
		if year != 0 && p.ApplicationYear != year {
			continue
		}
		combo := p.Combination()
		if !seen[combo] {
			seen[combo] = true
			result = append(result, combo)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].String() < result[j].String()
	})
	return result, nil
}

// ExpirePoints implements Repository
func (r *MemoryRepository) ExpirePoints(ctx context.Context, now time.Time) (int, error) {
	return r.expirePoints(func(p *entities.ScholarshipPoint) bool {
		return p.ExpiresAt.Before(now)
	}), nil
}

func (r *MemoryRepository) expirePoints(match func(p *entities.ScholarshipPoint) bool) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, row := range r.points {
		if row.point.Status != entities.PointStatusActive || !match(row.point) {
			continue
		}
		expired := *row.point
		expired.Status = entities.PointStatusExpired
		row.point = &expired
		count++
	}
	return count
}

// ExpireCommissionsBeforeYear implements Repository
func (r *MemoryRepository) ExpireCommissionsBeforeYear(ctx context.Context, year int, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for id, c := range r.commissions {
		if c.Status != entities.ScholarshipStatusEarned || c.ApplicationYear >= year {
			continue
		}
		expired := *c
		expiredAt := now
		expired.Status = entities.ScholarshipStatusExpired
		expired.ExpiredAt = &expiredAt
		r.commissions[id] = &expired
		count++
	}
	return count, nil
}

// InventoryKeys implements Repository
func (r *MemoryRepository) InventoryKeys(ctx context.Context, year int) ([]entities.InventoryKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[inventoryKey]bool)
	result := make([]entities.InventoryKey, 0)
	for _, row := range r.points {
		p := row.point
		if p.ApplicationYear != year {
			continue
		}
		k := keyOf(p.UniversityID, p.DegreeID, p.ApplicationYear)
		if seen[k] {
			continue
		}
		seen[k] = true
		result = append(result, entities.InventoryKey{
			UniversityID:    p.UniversityID,
			DegreeID:        p.DegreeID,
			DegreeName:      p.DegreeName,
			ApplicationYear: p.ApplicationYear,
		})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].UniversityID != result[j].UniversityID {
			return result[i].UniversityID < result[j].UniversityID
		}
		return result[i].DegreeID < result[j].DegreeID
	})
	return result, nil
}

// CountPointsByKey implements Repository
func (r *MemoryRepository) CountPointsByKey(ctx context.Context, key entities.InventoryKey) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, row := range r.points {
		p := row.point
		if p.UniversityID == key.UniversityID && p.DegreeID == key.DegreeID && p.ApplicationYear == key.ApplicationYear {
			count++
		}
	}
	return count, nil
}

// CountCommissionsByKey implements Repository
func (r *MemoryRepository) CountCommissionsByKey(ctx context.Context, key entities.InventoryKey) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, c := range r.commissions {
		if c.UniversityID == key.UniversityID && c.DegreeID == key.DegreeID && c.ApplicationYear == key.ApplicationYear {
			count++
		}
	}
	return count, nil
}

// GetInventory implements Repository
func (r *MemoryRepository) GetInventory(ctx context.Context, key entities.InventoryKey) (*entities.AdminScholarshipInventory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	inventory, ok := r.inventories[keyOf(key.UniversityID, key.DegreeID, key.ApplicationYear)]
	if !ok {
		return nil, ErrInventoryNotFound
	}
	return copyInventory(inventory), nil
}

// SaveInventory implements Repository
func (r *MemoryRepository) SaveInventory(ctx context.Context, inventory *entities.AdminScholarshipInventory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := keyOf(inventory.UniversityID, inventory.DegreeID, inventory.ApplicationYear)
	if existing, ok := r.inventories[k]; ok {
		inventory.ID = existing.ID
	} else if inventory.ID == "" {
		inventory.ID = uuid.New().String()
	}
	r.inventories[k] = copyInventory(inventory)
	return nil
}

// ListInventories implements Repository
func (r *MemoryRepository) ListInventories(ctx context.Context, year int) ([]*entities.AdminScholarshipInventory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*entities.AdminScholarshipInventory, 0)
	for _, inventory := range r.inventories {
		if year == 0 || inventory.ApplicationYear == year {
			result = append(result, copyInventory(inventory))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.ApplicationYear != b.ApplicationYear {
			return a.ApplicationYear < b.ApplicationYear
		}
		if a.UniversityID != b.UniversityID {
			return a.UniversityID < b.UniversityID
		}
		return a.DegreeID < b.DegreeID
	})
	return result, nil
}

// CloseInventoriesBeforeYear implements Repository
func (r *MemoryRepository) CloseInventoriesBeforeYear(ctx context.Context, year int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for k, inventory := range r.inventories {
		if inventory.ApplicationYear >= year || inventory.Status != entities.InventoryStatusActive {
			continue
		}
		closed := copyInventory(inventory)
		closed.Status = entities.InventoryStatusClosed
		r.inventories[k] = closed
		count++
	}
	return count, nil
}

// Close implements Repository
func (r *MemoryRepository) Close() error {
	return nil
}

func sortRows(rows []*pointRow) {
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].point.EarnedAt.Equal(rows[j].point.EarnedAt) {
			return rows[i].point.EarnedAt.Before(rows[j].point.EarnedAt)
		}
		return rows[i].seq < rows[j].seq
	})
}

func hasStatus(statuses []entities.ScholarshipCommissionStatus, status entities.ScholarshipCommissionStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

func (f PointFilter) matches(p *entities.ScholarshipPoint) bool {
	return (f.AgentID == "" || p.AgentID == f.AgentID) &&
		(f.UniversityID == "" || p.UniversityID == f.UniversityID) &&
		(f.DegreeID == "" || p.DegreeID == f.DegreeID) &&
		(f.Status == "" || p.Status == f.Status) &&
		(f.ApplicationYear == 0 || p.ApplicationYear == f.ApplicationYear)
}

func (f CommissionFilter) matches(c *entities.ScholarshipCommission) bool {
	return (f.AgentID == "" || c.AgentID == f.AgentID) &&
		(f.UniversityID == "" || c.UniversityID == f.UniversityID) &&
		(f.DegreeID == "" || c.DegreeID == f.DegreeID) &&
		(f.Status == "" || c.Status == f.Status) &&
		(f.ApplicationYear == 0 || c.ApplicationYear == f.ApplicationYear)
}

func copyInventory(inventory *entities.AdminScholarshipInventory) *entities.AdminScholarshipInventory {
	inventoryCopy := *inventory
	if inventory.CalculationDetails != nil {
		inventoryCopy.CalculationDetails = make(map[string]interface{}, len(inventory.CalculationDetails))
		for k, v := range inventory.CalculationDetails {
			inventoryCopy.CalculationDetails[k] = v
		}
	}
	return &inventoryCopy
}
