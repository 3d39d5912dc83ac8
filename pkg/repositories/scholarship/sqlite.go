package scholarship

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fadedpez/agentledger/pkg/db"
	"github.com/fadedpez/agentledger/pkg/entities"
	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
)

const (
	pointColumns = `id, agent_id, university_id, degree_id, degree_name, program_id, application_id, student_id,
		status, application_year, cycle_start, cycle_end, earned_at, expires_at, redeemed_at, redeemed_in_commission_id`

	commissionColumns = `id, commission_number, agent_id, university_id, degree_id, degree_name, qualifying_points_count,
		status, application_year, earned_at, used_at, used_in_application_id, expired_at`

	inventoryColumns = `id, university_id, degree_id, degree_name, application_year, total_applications,
		total_scholarships_from_university, scholarships_given_to_agents, margin_scholarships,
		unclaimed_scholarships, available_scholarships, calculation_details, status, last_calculated_at`

	combinationWhere = `agent_id = ? AND university_id = ? AND degree_id = ?`
)

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type scanner interface {
	Scan(dest ...interface{}) error
}

// SQLiteRepository implements Repository using SQLite
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a scholarship repository on a database opened by db.Open
func NewSQLiteRepository(database *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: database}
}

type sqliteTx struct {
	ctx context.Context
	tx  *sql.Tx
}

// WithCombinationLock implements Repository. The IMMEDIATE transaction holds
// the database write lock, which covers the combination for the whole of fn.
func (r *SQLiteRepository) WithCombinationLock(ctx context.Context, combo entities.Combination, fn func(tx Tx) error) error {
	return db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		return fn(&sqliteTx{ctx: ctx, tx: tx})
	})
}

func comboArgs(combo entities.Combination) []interface{} {
	return []interface{}{combo.AgentID, combo.UniversityID, combo.DegreeID}
}

func (t *sqliteTx) GetPointByApplication(applicationID string) (*entities.ScholarshipPoint, error) {
	return getPointByApplication(t.ctx, t.tx, applicationID)
}

func (t *sqliteTx) CreatePoint(point *entities.ScholarshipPoint) error {
	if point.ID == "" {
		point.ID = uuid.New().String()
	}

	query := `INSERT INTO scholarship_points (` + pointColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := t.tx.ExecContext(t.ctx, query,
		point.ID,
		point.AgentID,
		point.UniversityID,
		point.DegreeID,
		point.DegreeName,
		point.ProgramID,
		point.ApplicationID,
		point.StudentID,
		string(point.Status),
		point.ApplicationYear,
		db.FormatTime(point.CycleStart),
		db.FormatTime(point.CycleEnd),
		db.FormatTime(point.EarnedAt),
		db.FormatTime(point.ExpiresAt),
		db.FormatNullTime(point.RedeemedAt),
		point.RedeemedInCommissionID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicatePoint
		}
		return fmt.Errorf("error creating scholarship point: %w", err)
	}
	return nil
}

func (t *sqliteTx) CountActivePoints(combo entities.Combination) (int, error) {
	args := append(comboArgs(combo), string(entities.PointStatusActive))
	return count(t.ctx, t.tx, `SELECT COUNT(*) FROM scholarship_points WHERE `+combinationWhere+` AND status = ?`, args...)
}

func (t *sqliteTx) CountPoints(combo entities.Combination, year int) (int, error) {
	args := append(comboArgs(combo), year)
	return count(t.ctx, t.tx, `SELECT COUNT(*) FROM scholarship_points WHERE `+combinationWhere+` AND application_year = ?`, args...)
}

func (t *sqliteTx) OldestActivePoints(combo entities.Combination, limit int) ([]*entities.ScholarshipPoint, error) {
	query := `SELECT ` + pointColumns + ` FROM scholarship_points
		WHERE ` + combinationWhere + ` AND status = ?
		ORDER BY earned_at ASC, rowid ASC
		LIMIT ?`
	args := append(comboArgs(combo), string(entities.PointStatusActive), limit)
	return queryPoints(t.ctx, t.tx, query, args...)
}

func (t *sqliteTx) MarkPointsRedeemed(pointIDs []string, commissionID string, at time.Time) error {
	query := `
		UPDATE scholarship_points
		SET status = ?, redeemed_at = ?, redeemed_in_commission_id = ?
		WHERE id = ? AND status = ?
	`

	for _, id := range pointIDs {
		result, err := t.tx.ExecContext(t.ctx, query,
			string(entities.PointStatusRedeemed),
			db.FormatTime(at),
			commissionID,
			id,
			string(entities.PointStatusActive),
		)
		if err != nil {
			return fmt.Errorf("error redeeming scholarship point: %w", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("error getting rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return ErrPointNotActive
		}
	}
	return nil
}

func (t *sqliteTx) CountCommissions(combo entities.Combination, year int, statuses ...entities.ScholarshipCommissionStatus) (int, error) {
	query := `SELECT COUNT(*) FROM scholarship_commissions WHERE ` + combinationWhere
	args := comboArgs(combo)
	if year != 0 {
		query += ` AND application_year = ?`
		args = append(args, year)
	}
	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, status := range statuses {
			placeholders[i] = "?"
			args = append(args, string(status))
		}
		query += ` AND status IN (` + strings.Join(placeholders, ", ") + `)`
	}
	return count(t.ctx, t.tx, query, args...)
}

func (t *sqliteTx) CreateCommission(commission *entities.ScholarshipCommission) error {
	if commission.ID == "" {
		commission.ID = uuid.New().String()
	}
	if commission.CommissionNumber == "" {
		existing, err := count(t.ctx, t.tx, `SELECT COUNT(*) FROM scholarship_commissions WHERE application_year = ?`, commission.ApplicationYear)
		if err != nil {
			return err
		}
		commission.CommissionNumber = entities.FormatCommissionNumber(commission.ApplicationYear, existing+1)
	}

	query := `INSERT INTO scholarship_commissions (` + commissionColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := t.tx.ExecContext(t.ctx, query,
		commission.ID,
		commission.CommissionNumber,
		commission.AgentID,
		commission.UniversityID,
		commission.DegreeID,
		commission.DegreeName,
		commission.QualifyingPointsCount,
		string(commission.Status),
		commission.ApplicationYear,
		db.FormatTime(commission.EarnedAt),
		db.FormatNullTime(commission.UsedAt),
		commission.UsedInApplicationID,
		db.FormatNullTime(commission.ExpiredAt),
	)
	if err != nil {
		return fmt.Errorf("error creating scholarship commission: %w", err)
	}
	return nil
}

func (t *sqliteTx) GetCommission(commissionID string) (*entities.ScholarshipCommission, error) {
	return getCommission(t.ctx, t.tx, commissionID)
}

func (t *sqliteTx) SaveCommission(commission *entities.ScholarshipCommission) error {
	query := `
		UPDATE scholarship_commissions
		SET status = ?, used_at = ?, used_in_application_id = ?, expired_at = ?
		WHERE id = ?
	`

	result, err := t.tx.ExecContext(t.ctx, query,
		string(commission.Status),
		db.FormatNullTime(commission.UsedAt),
		commission.UsedInApplicationID,
		db.FormatNullTime(commission.ExpiredAt),
		commission.ID,
	)
	if err != nil {
		return fmt.Errorf("error saving scholarship commission: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrCommissionNotFound
	}
	return nil
}

// GetPointByApplication retrieves the point earned by an application
func (r *SQLiteRepository) GetPointByApplication(ctx context.Context, applicationID string) (*entities.ScholarshipPoint, error) {
	return getPointByApplication(ctx, r.db, applicationID)
}

// ListPoints returns matching points ordered by earned_at ascending
func (r *SQLiteRepository) ListPoints(ctx context.Context, filter PointFilter) ([]*entities.ScholarshipPoint, error) {
	conditions, args := filterConditions(filter.AgentID, filter.UniversityID, filter.DegreeID, string(filter.Status), filter.ApplicationYear)
	query := `SELECT ` + pointColumns + ` FROM scholarship_points` + conditions + ` ORDER BY earned_at ASC, rowid ASC`
	return queryPoints(ctx, r.db, query, args...)
}

// GetCommission retrieves a scholarship commission by ID
func (r *SQLiteRepository) GetCommission(ctx context.Context, commissionID string) (*entities.ScholarshipCommission, error) {
	return getCommission(ctx, r.db, commissionID)
}

// ListCommissions returns matching commissions ordered by commission number
func (r *SQLiteRepository) ListCommissions(ctx context.Context, filter CommissionFilter) ([]*entities.ScholarshipCommission, error) {
	conditions, args := filterConditions(filter.AgentID, filter.UniversityID, filter.DegreeID, string(filter.Status), filter.ApplicationYear)
	query := `SELECT ` + commissionColumns + ` FROM scholarship_commissions` + conditions + ` ORDER BY commission_number ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying scholarship commissions: %w", err)
	}
	defer rows.Close()

	result := make([]*entities.ScholarshipCommission, 0)
	for rows.Next() {
		commission, err := scanCommission(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, commission)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating scholarship commissions: %w", err)
	}
	return result, nil
}

// Combinations implements Repository
func (r *SQLiteRepository) Combinations(ctx context.Context, agentID string, year int) ([]entities.Combination, error) {
	conditions, args := filterConditions(agentID, "", "", "", year)
	query := `SELECT DISTINCT agent_id, university_id, degree_id FROM scholarship_points` + conditions +
		` ORDER BY agent_id, university_id, degree_id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying combinations: %w", err)
	}
	defer rows.Close()

	result := make([]entities.Combination, 0)
	for rows.Next() {
		var combo entities.Combination
		if err := rows.Scan(&combo.AgentID, &combo.UniversityID, &combo.DegreeID); err != nil {
			return nil, fmt.Errorf("error scanning combination: %w", err)
		}
		result = append(result, combo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating combinations: %w", err)
	}
	return result, nil
}

// ExpirePoints implements Repository
func (r *SQLiteRepository) ExpirePoints(ctx context.Context, now time.Time) (int, error) {
	return r.exec(ctx, `UPDATE scholarship_points SET status = ? WHERE status = ? AND expires_at < ?`,
		string(entities.PointStatusExpired), string(entities.PointStatusActive), db.FormatTime(now))
}

// ExpireCommissionsBeforeYear implements Repository
func (r *SQLiteRepository) ExpireCommissionsBeforeYear(ctx context.Context, year int, now time.Time) (int, error) {
	return r.exec(ctx, `UPDATE scholarship_commissions SET status = ?, expired_at = ? WHERE status = ? AND application_year < ?`,
		string(entities.ScholarshipStatusExpired), db.FormatTime(now), string(entities.ScholarshipStatusEarned), year)
}

// InventoryKeys implements Repository
func (r *SQLiteRepository) InventoryKeys(ctx context.Context, year int) ([]entities.InventoryKey, error) {
	query := `
		SELECT university_id, degree_id, MIN(degree_name), application_year
		FROM scholarship_points
		WHERE application_year = ?
		GROUP BY university_id, degree_id, application_year
		ORDER BY university_id, degree_id
	`

	rows, err := r.db.QueryContext(ctx, query, year)
	if err != nil {
		return nil, fmt.Errorf("error querying inventory keys: %w", err)
	}
	defer rows.Close()

	result := make([]entities.InventoryKey, 0)
	for rows.Next() {
		var key entities.InventoryKey
		if err := rows.Scan(&key.UniversityID, &key.DegreeID, &key.DegreeName, &key.ApplicationYear); err != nil {
			return nil, fmt.Errorf("error scanning inventory key: %w", err)
		}
		result = append(result, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating inventory keys: %w", err)
	}
	return result, nil
}

// CountPointsByKey implements Repository
func (r *SQLiteRepository) CountPointsByKey(ctx context.Context, key entities.InventoryKey) (int, error) {
	return count(ctx, r.db, `SELECT COUNT(*) FROM scholarship_points WHERE university_id = ? AND degree_id = ? AND application_year = ?`,
		key.UniversityID, key.DegreeID, key.ApplicationYear)
}

// CountCommissionsByKey implements Repository
func (r *SQLiteRepository) CountCommissionsByKey(ctx context.Context, key entities.InventoryKey) (int, error) {
	return count(ctx, r.db, `SELECT COUNT(*) FROM scholarship_commissions WHERE university_id = ? AND degree_id = ? AND application_year = ?`,
		key.UniversityID, key.DegreeID, key.ApplicationYear)
}

// GetInventory implements Repository
func (r *SQLiteRepository) GetInventory(ctx context.Context, key entities.InventoryKey) (*entities.AdminScholarshipInventory, error) {
	query := `SELECT ` + inventoryColumns + ` FROM admin_scholarship_inventories
		WHERE university_id = ? AND degree_id = ? AND application_year = ?`
	return scanInventory(r.db.QueryRowContext(ctx, query, key.UniversityID, key.DegreeID, key.ApplicationYear))
}

// SaveInventory implements Repository
func (r *SQLiteRepository) SaveInventory(ctx context.Context, inventory *entities.AdminScholarshipInventory) error {
	if inventory.ID == "" {
		inventory.ID = uuid.New().String()
	}

	details, err := json.Marshal(inventory.CalculationDetails)
	if err != nil {
		return fmt.Errorf("error encoding calculation details: %w", err)
	}

	query := `
		INSERT INTO admin_scholarship_inventories (` + inventoryColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(university_id, degree_id, application_year) DO UPDATE SET
			degree_name = excluded.degree_name,
			total_applications = excluded.total_applications,
			total_scholarships_from_university = excluded.total_scholarships_from_university,
			scholarships_given_to_agents = excluded.scholarships_given_to_agents,
			margin_scholarships = excluded.margin_scholarships,
			unclaimed_scholarships = excluded.unclaimed_scholarships,
			available_scholarships = excluded.available_scholarships,
			calculation_details = excluded.calculation_details,
			status = excluded.status,
			last_calculated_at = excluded.last_calculated_at
	`

	return db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, query,
			inventory.ID,
			inventory.UniversityID,
			inventory.DegreeID,
			inventory.DegreeName,
			inventory.ApplicationYear,
			inventory.TotalApplications,
			inventory.TotalFromUniversity.String(),
			inventory.ScholarshipsGivenToAgents.String(),
			inventory.MarginScholarships.String(),
			inventory.UnclaimedScholarships.String(),
			inventory.AvailableScholarships.String(),
			string(details),
			string(inventory.Status),
			db.FormatTime(inventory.LastCalculatedAt),
		)
		if err != nil {
			return fmt.Errorf("error saving scholarship inventory: %w", err)
		}

		// Keep the caller's view of the ID in line with the stored row
		err = tx.QueryRowContext(ctx,
			`SELECT id FROM admin_scholarship_inventories WHERE university_id = ? AND degree_id = ? AND application_year = ?`,
			inventory.UniversityID, inventory.DegreeID, inventory.ApplicationYear,
		).Scan(&inventory.ID)
		if err != nil {
			return fmt.Errorf("error reading scholarship inventory id: %w", err)
		}
		return nil
	})
}

// ListInventories implements Repository
func (r *SQLiteRepository) ListInventories(ctx context.Context, year int) ([]*entities.AdminScholarshipInventory, error) {
	query := `SELECT ` + inventoryColumns + ` FROM admin_scholarship_inventories`
	args := []interface{}{}
	if year != 0 {
		query += ` WHERE application_year = ?`
		args = append(args, year)
	}
	query += ` ORDER BY application_year, university_id, degree_id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying scholarship inventories: %w", err)
	}
	defer rows.Close()

	result := make([]*entities.AdminScholarshipInventory, 0)
	for rows.Next() {
		inventory, err := scanInventory(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, inventory)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating scholarship inventories: %w", err)
	}
	return result, nil
}

// CloseInventoriesBeforeYear implements Repository
func (r *SQLiteRepository) CloseInventoriesBeforeYear(ctx context.Context, year int) (int, error) {
	return r.exec(ctx, `UPDATE admin_scholarship_inventories SET status = ? WHERE status = ? AND application_year < ?`,
		string(entities.InventoryStatusClosed), string(entities.InventoryStatusActive), year)
}

// Close implements Repository. The database handle is owned by the caller of db.Open.
func (r *SQLiteRepository) Close() error {
	return nil
}

func (r *SQLiteRepository) exec(ctx context.Context, query string, args ...interface{}) (int, error) {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("error updating scholarship records: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("error getting rows affected: %w", err)
	}
	return int(rowsAffected), nil
}

func count(ctx context.Context, q queryer, query string, args ...interface{}) (int, error) {
	var n int
	if err := q.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("error counting scholarship records: %w", err)
	}
	return n, nil
}

func filterConditions(agentID, universityID, degreeID, status string, year int) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	add := func(column string, value interface{}) {
		conditions = append(conditions, column+" = ?")
		args = append(args, value)
	}
	if agentID != "" {
		add("agent_id", agentID)
	}
	if universityID != "" {
		add("university_id", universityID)
	}
	if degreeID != "" {
		add("degree_id", degreeID)
	}
	if status != "" {
		add("status", status)
	}
	if year != 0 {
		add("application_year", year)
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func getPointByApplication(ctx context.Context, q queryer, applicationID string) (*entities.ScholarshipPoint, error) {
	row := q.QueryRowContext(ctx, `SELECT `+pointColumns+` FROM scholarship_points WHERE application_id = ?`, applicationID)
	return scanPoint(row)
}

func queryPoints(ctx context.Context, q queryer, query string, args ...interface{}) ([]*entities.ScholarshipPoint, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying scholarship points: %w", err)
	}
	defer rows.Close()

	result := make([]*entities.ScholarshipPoint, 0)
	for rows.Next() {
		point, err := scanPoint(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, point)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating scholarship points: %w", err)
	}
	return result, nil
}

func scanPoint(row scanner) (*entities.ScholarshipPoint, error) {
	var p entities.ScholarshipPoint
	var status, cycleStart, cycleEnd, earnedAt, expiresAt string
	var redeemedAt sql.NullString

	err := row.Scan(
		&p.ID,
		&p.AgentID,
		&p.UniversityID,
		&p.DegreeID,
		&p.DegreeName,
		&p.ProgramID,
		&p.ApplicationID,
		&p.StudentID,
		&status,
		&p.ApplicationYear,
		&cycleStart,
		&cycleEnd,
		&earnedAt,
		&expiresAt,
		&redeemedAt,
		&p.RedeemedInCommissionID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPointNotFound
		}
		return nil, fmt.Errorf("error scanning scholarship point: %w", err)
	}

	p.Status = entities.PointStatus(status)
	if p.CycleStart, err = db.ParseTime(cycleStart); err != nil {
		return nil, err
	}
	if p.CycleEnd, err = db.ParseTime(cycleEnd); err != nil {
		return nil, err
	}
	if p.EarnedAt, err = db.ParseTime(earnedAt); err != nil {
		return nil, err
	}
	if p.ExpiresAt, err = db.ParseTime(expiresAt); err != nil {
		return nil, err
	}
	if p.RedeemedAt, err = db.ParseNullTime(redeemedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func getCommission(ctx context.Context, q queryer, commissionID string) (*entities.ScholarshipCommission, error) {
	row := q.QueryRowContext(ctx, `SELECT `+commissionColumns+` FROM scholarship_commissions WHERE id = ?`, commissionID)
	return scanCommission(row)
}

func scanCommission(row scanner) (*entities.ScholarshipCommission, error) {
	var c entities.ScholarshipCommission
	var status, earnedAt string
	var usedAt, expiredAt sql.NullString

	err := row.Scan(
		&c.ID,
		&c.CommissionNumber,
		&c.AgentID,
		&c.UniversityID,
		&c.DegreeID,
		&c.DegreeName,
		&c.QualifyingPointsCount,
		&status,
		&c.ApplicationYear,
		&earnedAt,
		&usedAt,
		&c.UsedInApplicationID,
		&expiredAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCommissionNotFound
		}
		return nil, fmt.Errorf("error scanning scholarship commission: %w", err)
	}

	c.Status = entities.ScholarshipCommissionStatus(status)
	if c.EarnedAt, err = db.ParseTime(earnedAt); err != nil {
		return nil, err
	}
	if c.UsedAt, err = db.ParseNullTime(usedAt); err != nil {
		return nil, err
	}
	if c.ExpiredAt, err = db.ParseNullTime(expiredAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func scanInventory(row scanner) (*entities.AdminScholarshipInventory, error) {
	var inv entities.AdminScholarshipInventory
	var details, status, lastCalculatedAt string

	err := row.Scan(
		&inv.ID,
		&inv.UniversityID,
		&inv.DegreeID,
		&inv.DegreeName,
		&inv.ApplicationYear,
		&inv.TotalApplications,
		&inv.TotalFromUniversity,
		&inv.ScholarshipsGivenToAgents,
		&inv.MarginScholarships,
		&inv.UnclaimedScholarships,
		&inv.AvailableScholarships,
		&details,
		&status,
		&lastCalculatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInventoryNotFound
		}
		return nil, fmt.Errorf("error scanning scholarship inventory: %w", err)
	}

	inv.Status = entities.InventoryStatus(status)
	if err := json.Unmarshal([]byte(details), &inv.CalculationDetails); err != nil {
		return nil, fmt.Errorf("error decoding calculation details: %w", err)
	}
	if inv.LastCalculatedAt, err = db.ParseTime(lastCalculatedAt); err != nil {
		return nil, err
	}
	return &inv, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
