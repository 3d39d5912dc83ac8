package wallet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fadedpez/agentledger/pkg/db"
	"github.com/fadedpez/agentledger/pkg/entities"
	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
)

// queryer is satisfied by both *sql.DB and *sql.Tx
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

const (
	selectWalletSQL = `SELECT agent_id, available_balance, pending_balance, created_at, updated_at FROM wallets WHERE agent_id = ?`

	selectPayoutSQL = `
		SELECT id, agent_id, amount, status, notes, rejection_reason, processed_by, requested_at, processed_at
		FROM payouts`

	selectCommissionSQL = `SELECT id, agent_id, application_id, amount, created_at FROM commissions`
)

// SQLiteRepository implements Repository using SQLite
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a wallet repository on a database opened by db.Open
func NewSQLiteRepository(database *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: database}
}

type sqliteTx struct {
	ctx context.Context
	tx  *sql.Tx
}

// WithLock implements Repository. The transaction begins IMMEDIATE, so the
// database write lock is held for the whole of fn.
func (r *SQLiteRepository) WithLock(ctx context.Context, agentID string, fn func(tx Tx) error) error {
	return db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		return fn(&sqliteTx{ctx: ctx, tx: tx})
	})
}

func (t *sqliteTx) LockWallet(agentID string, now time.Time) (*entities.Wallet, error) {
	wallet, err := scanWallet(t.tx.QueryRowContext(t.ctx, selectWalletSQL, agentID))
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, ErrWalletNotFound) {
		return nil, err
	}

	wallet = &entities.Wallet{AgentID: agentID, CreatedAt: now, LastUpdated: now}
	_, err = t.tx.ExecContext(t.ctx,
		`INSERT INTO wallets (agent_id, available_balance, pending_balance, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		agentID, wallet.AvailableBalance.String(), wallet.PendingBalance.String(), db.FormatTime(now), db.FormatTime(now),
	)
	if err != nil {
		return nil, fmt.Errorf("error creating wallet: %w", err)
	}
	return wallet, nil
}

func (t *sqliteTx) SaveWallet(wallet *entities.Wallet) error {
	query := `
		INSERT INTO wallets (agent_id, available_balance, pending_balance, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(agent_id) DO UPDATE SET
			available_balance = excluded.available_balance,
			pending_balance = excluded.pending_balance,
			updated_at = excluded.updated_at
	`

	_, err := t.tx.ExecContext(t.ctx, query,
		wallet.AgentID,
		wallet.AvailableBalance.String(),
		wallet.PendingBalance.String(),
		db.FormatTime(wallet.CreatedAt),
		db.FormatTime(wallet.LastUpdated),
	)
	if err != nil {
		return fmt.Errorf("error saving wallet: %w", err)
	}
	return nil
}

func (t *sqliteTx) GetPayout(payoutID string) (*entities.Payout, error) {
	return getPayout(t.ctx, t.tx, payoutID)
}

func (t *sqliteTx) CreatePayout(payout *entities.Payout) error {
	if payout.ID == "" {
		payout.ID = uuid.New().String()
	}

	query := `
		INSERT INTO payouts (id, agent_id, amount, status, notes, rejection_reason, processed_by, requested_at, processed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := t.tx.ExecContext(t.ctx, query,
		payout.ID,
		payout.AgentID,
		payout.Amount.String(),
		string(payout.Status),
		payout.Notes,
		payout.RejectionReason,
		payout.ProcessedBy,
		db.FormatTime(payout.RequestedAt),
		db.FormatNullTime(payout.ProcessedAt),
	)
	if err != nil {
		return fmt.Errorf("error creating payout: %w", err)
	}
	return nil
}

func (t *sqliteTx) UpdatePayout(payout *entities.Payout) error {
	query := `
		UPDATE payouts
		SET status = ?, rejection_reason = ?, processed_by = ?, processed_at = ?
		WHERE id = ?
	`

	result, err := t.tx.ExecContext(t.ctx, query,
		string(payout.Status),
		payout.RejectionReason,
		payout.ProcessedBy,
		db.FormatNullTime(payout.ProcessedAt),
		payout.ID,
	)
	if err != nil {
		return fmt.Errorf("error updating payout: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrPayoutNotFound
	}
	return nil
}

func (t *sqliteTx) GetCommissionByApplication(applicationID string) (*entities.Commission, error) {
	row := t.tx.QueryRowContext(t.ctx, selectCommissionSQL+` WHERE application_id = ?`, applicationID)
	return scanCommission(row)
}

func (t *sqliteTx) CreateCommission(commission *entities.Commission) error {
	if commission.ID == "" {
		commission.ID = uuid.New().String()
	}

	_, err := t.tx.ExecContext(t.ctx,
		`INSERT INTO commissions (id, agent_id, application_id, amount, created_at) VALUES (?, ?, ?, ?, ?)`,
		commission.ID,
		commission.AgentID,
		commission.ApplicationID,
		commission.Amount.String(),
		db.FormatTime(commission.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateCommission
		}
		return fmt.Errorf("error creating commission: %w", err)
	}
	return nil
}

func (t *sqliteTx) AddTransaction(transaction *entities.Transaction) error {
	if transaction.ID == "" {
		transaction.ID = uuid.New().String()
	}

	query := `
		INSERT INTO wallet_transactions (
			id, agent_id, amount, type, reference_id, description, timestamp, available_after, pending_after
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := t.tx.ExecContext(t.ctx, query,
		transaction.ID,
		transaction.AgentID,
		transaction.Amount.String(),
		string(transaction.Type),
		transaction.ReferenceID,
		transaction.Description,
		db.FormatTime(transaction.Timestamp),
		transaction.AvailableAfter.String(),
		transaction.PendingAfter.String(),
	)
	if err != nil {
		return fmt.Errorf("error adding transaction: %w", err)
	}
	return nil
}

// GetWallet retrieves a wallet by agent ID
func (r *SQLiteRepository) GetWallet(ctx context.Context, agentID string) (*entities.Wallet, error) {
	return scanWallet(r.db.QueryRowContext(ctx, selectWalletSQL, agentID))
}

// GetPayout retrieves a payout by ID
func (r *SQLiteRepository) GetPayout(ctx context.Context, payoutID string) (*entities.Payout, error) {
	return getPayout(ctx, r.db, payoutID)
}

// ListPayouts returns an agent's payouts, newest first
func (r *SQLiteRepository) ListPayouts(ctx context.Context, agentID string, status entities.PayoutStatus) ([]*entities.Payout, error) {
	query := selectPayoutSQL + ` WHERE agent_id = ?`
	args := []interface{}{agentID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY requested_at DESC, rowid DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying payouts: %w", err)
	}
	defer rows.Close()

	payouts := make([]*entities.Payout, 0)
	for rows.Next() {
		payout, err := scanPayout(rows)
		if err != nil {
			return nil, err
		}
		payouts = append(payouts, payout)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payouts: %w", err)
	}
	return payouts, nil
}

// ListCommissions returns an agent's money commissions, newest first
func (r *SQLiteRepository) ListCommissions(ctx context.Context, agentID string) ([]*entities.Commission, error) {
	rows, err := r.db.QueryContext(ctx, selectCommissionSQL+` WHERE agent_id = ? ORDER BY created_at DESC, rowid DESC`, agentID)
	if err != nil {
		return nil, fmt.Errorf("error querying commissions: %w", err)
	}
	defer rows.Close()

	commissions := make([]*entities.Commission, 0)
	for rows.Next() {
		commission, err := scanCommission(rows)
		if err != nil {
			return nil, err
		}
		commissions = append(commissions, commission)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating commissions: %w", err)
	}
	return commissions, nil
}

// GetTransactions retrieves recent ledger entries for an agent, newest first
func (r *SQLiteRepository) GetTransactions(ctx context.Context, agentID string, limit int) ([]*entities.Transaction, error) {
	query := `
		SELECT id, agent_id, amount, type, reference_id, description, timestamp, available_after, pending_after
		FROM wallet_transactions
		WHERE agent_id = ?
		ORDER BY timestamp DESC, rowid DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, agentID, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying transactions: %w", err)
	}
	defer rows.Close()

	transactions := make([]*entities.Transaction, 0, limit)
	for rows.Next() {
		var tx entities.Transaction
		var txType, timestamp string
		var referenceID, description sql.NullString

		err := rows.Scan(
			&tx.ID,
			&tx.AgentID,
			&tx.Amount,
			&txType,
			&referenceID,
			&description,
			&timestamp,
			&tx.AvailableAfter,
			&tx.PendingAfter,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning transaction: %w", err)
		}

		tx.Type = entities.TransactionType(txType)
		tx.ReferenceID = referenceID.String
		tx.Description = description.String
		if tx.Timestamp, err = db.ParseTime(timestamp); err != nil {
			return nil, err
		}
		transactions = append(transactions, &tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return transactions, nil
}

// Close implements Repository. The database handle is owned by the caller of db.Open.
func (r *SQLiteRepository) Close() error {
	return nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanWallet(row scanner) (*entities.Wallet, error) {
	var wallet entities.Wallet
	var createdAt, updatedAt string

	err := row.Scan(&wallet.AgentID, &wallet.AvailableBalance, &wallet.PendingBalance, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("error getting wallet: %w", err)
	}

	if wallet.CreatedAt, err = db.ParseTime(createdAt); err != nil {
		return nil, err
	}
	if wallet.LastUpdated, err = db.ParseTime(updatedAt); err != nil {
		return nil, err
	}
	return &wallet, nil
}

func getPayout(ctx context.Context, q queryer, payoutID string) (*entities.Payout, error) {
	return scanPayout(q.QueryRowContext(ctx, selectPayoutSQL+` WHERE id = ?`, payoutID))
}

func scanPayout(row scanner) (*entities.Payout, error) {
	var payout entities.Payout
	var status, requestedAt string
	var processedAt sql.NullString

	err := row.Scan(
		&payout.ID,
		&payout.AgentID,
		&payout.Amount,
		&status,
		&payout.Notes,
		&payout.RejectionReason,
		&payout.ProcessedBy,
		&requestedAt,
		&processedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPayoutNotFound
		}
		return nil, fmt.Errorf("error getting payout: %w", err)
	}

	payout.Status = entities.PayoutStatus(status)
	if payout.RequestedAt, err = db.ParseTime(requestedAt); err != nil {
		return nil, err
	}
	if payout.ProcessedAt, err = db.ParseNullTime(processedAt); err != nil {
		return nil, err
	}
	return &payout, nil
}

func scanCommission(row scanner) (*entities.Commission, error) {
	var commission entities.Commission
	var createdAt string

	err := row.Scan(&commission.ID, &commission.AgentID, &commission.ApplicationID, &commission.Amount, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCommissionNotFound
		}
		return nil, fmt.Errorf("error getting commission: %w", err)
	}

	if commission.CreatedAt, err = db.ParseTime(createdAt); err != nil {
		return nil, err
	}
	return &commission, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
