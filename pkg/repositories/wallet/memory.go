package wallet

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fadedpez/agentledger/pkg/entities"
	"github.com/fadedpez/agentledger/pkg/repositories/keylock"
	"github.com/google/uuid"
)

// MemoryRepository implements Repository using in-memory storage
type MemoryRepository struct {
	mu           sync.RWMutex
	locks        *keylock.Set
	wallets      map[string]*entities.Wallet
	payouts      map[string]*entities.Payout
	commissions  map[string]*entities.Commission // keyed by application ID
	transactions map[string][]*entities.Transaction
}

// NewMemoryRepository creates a new in-memory wallet repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		locks:        keylock.New(),
		wallets:      make(map[string]*entities.Wallet),
		payouts:      make(map[string]*entities.Payout),
		commissions:  make(map[string]*entities.Commission),
		transactions: make(map[string][]*entities.Transaction),
	}
}

// memoryTx applies writes immediately and keeps an undo log for rollback
type memoryTx struct {
	repo *MemoryRepository
	undo []func()
}

// WithLock implements Repository
func (r *MemoryRepository) WithLock(ctx context.Context, agentID string, fn func(tx Tx) error) error {
	unlock := r.locks.Lock(agentID)
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

func (t *memoryTx) LockWallet(agentID string, now time.Time) (*entities.Wallet, error) {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()

	if wallet, ok := t.repo.wallets[agentID]; ok {
		walletCopy := *wallet
		return &walletCopy, nil
	}

	wallet := &entities.Wallet{AgentID: agentID, CreatedAt: now, LastUpdated: now}
	stored := *wallet
	t.repo.wallets[agentID] = &stored
	t.undo = append(t.undo, func() { delete(t.repo.wallets, agentID) })
	return wallet, nil
}

func (t *memoryTx) SaveWallet(wallet *entities.Wallet) error {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()

	previous, existed := t.repo.wallets[wallet.AgentID]
	walletCopy := *wallet
	t.repo.wallets[wallet.AgentID] = &walletCopy
	t.undo = append(t.undo, func() {
		if existed {
			t.repo.wallets[wallet.AgentID] = previous
		} else {
			delete(t.repo.wallets, wallet.AgentID)
		}
	})
	return nil
}

func (t *memoryTx) GetPayout(payoutID string) (*entities.Payout, error) {
	t.repo.mu.RLock()
	defer t.repo.mu.RUnlock()

	payout, ok := t.repo.payouts[payoutID]
	if !ok {
		return nil, ErrPayoutNotFound
	}
	payoutCopy := *payout
	return &payoutCopy, nil
}

func (t *memoryTx) CreatePayout(payout *entities.Payout) error {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()

	if payout.ID == "" {
		payout.ID = uuid.New().String()
	}
	payoutCopy := *payout
	t.repo.payouts[payout.ID] = &payoutCopy
	id := payout.ID
	t.undo = append(t.undo, func() { delete(t.repo.payouts, id) })
	return nil
}

func (t *memoryTx) UpdatePayout(payout *entities.Payout) error {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()

	previous, ok := t.repo.payouts[payout.ID]
	if !ok {
		return ErrPayoutNotFound
	}
	payoutCopy := *payout
	t.repo.payouts[payout.ID] = &payoutCopy
	t.undo = append(t.undo, func() { t.repo.payouts[payout.ID] = previous })
	return nil
}

func (t *memoryTx) GetCommissionByApplication(applicationID string) (*entities.Commission, error) {
	t.repo.mu.RLock()
	defer t.repo.mu.RUnlock()

	commission, ok := t.repo.commissions[applicationID]
	if !ok {
		return nil, ErrCommissionNotFound
	}
	commissionCopy := *commission
	return &commissionCopy, nil
}

func (t *memoryTx) CreateCommission(commission *entities.Commission) error {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()

	if _, exists := t.repo.commissions[commission.ApplicationID]; exists {
		return ErrDuplicateCommission
	}
	if commission.ID == "" {
		commission.ID = uuid.New().String()
	}
	commissionCopy := *commission
	t.repo.commissions[commission.ApplicationID] = &commissionCopy
	applicationID := commission.ApplicationID
	t.undo = append(t.undo, func() { delete(t.repo.commissions, applicationID) })
	return nil
}

func (t *memoryTx) AddTransaction(transaction *entities.Transaction) error {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()

	if transaction.ID == "" {
		transaction.ID = uuid.New().String()
	}
	txCopy := *transaction
	agentID := transaction.AgentID
	t.repo.transactions[agentID] = append(t.repo.transactions[agentID], &txCopy)
	t.undo = append(t.undo, func() {
		entries := t.repo.transactions[agentID]
		t.repo.transactions[agentID] = entries[:len(entries)-1]
	})
	return nil
}

// GetWallet retrieves a wallet by agent ID
func (r *MemoryRepository) GetWallet(ctx context.Context, agentID string) (*entities.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wallet, exists := r.wallets[agentID]
	if !exists {
		return nil, ErrWalletNotFound
	}

	walletCopy := *wallet
	return &walletCopy, nil
}

// GetPayout retrieves a payout by ID
func (r *MemoryRepository) GetPayout(ctx context.Context, payoutID string) (*entities.Payout, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	payout, ok := r.payouts[payoutID]
	if !ok {
		return nil, ErrPayoutNotFound
	}
	payoutCopy := *payout
	return &payoutCopy, nil
}

// ListPayouts returns an agent's payouts, newest first
func (r *MemoryRepository) ListPayouts(ctx context.Context, agentID string, status entities.PayoutStatus) ([]*entities.Payout, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*entities.Payout, 0)
	for _, payout := range r.payouts {
		if payout.AgentID != agentID {
			continue
		}
		if status != "" && payout.Status != status {
			continue
		}
		payoutCopy := *payout
		result = append(result, &payoutCopy)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].RequestedAt.After(result[j].RequestedAt)
	})
	return result, nil
}

// ListCommissions returns an agent's money commissions, newest first
func (r *MemoryRepository) ListCommissions(ctx context.Context, agentID string) ([]*entities.Commission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*entities.Commission, 0)
	for _, commission := range r.commissions {
		if commission.AgentID != agentID {
			continue
		}
		commissionCopy := *commission
		result = append(result, &commissionCopy)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// GetTransactions retrieves recent ledger entries for an agent, newest first
func (r *MemoryRepository) GetTransactions(ctx context.Context, agentID string, limit int) ([]*entities.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	transactions := r.transactions[agentID]
	result := make([]*entities.Transaction, 0, limit)
	for i := len(transactions) - 1; i >= 0 && len(result) < limit; i-- {
		txCopy := *transactions[i]
		result = append(result, &txCopy)
	}
	return result, nil
}

// Close implements Repository
func (r *MemoryRepository) Close() error {
	return nil
}
