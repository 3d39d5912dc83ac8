package application

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fadedpez/agentledger/pkg/db"
	"github.com/fadedpez/agentledger/pkg/entities"
	"github.com/google/uuid"
)

const selectApplicationSQL = `
	SELECT id, agent_id, student_id, program_id, university_id, degree_id, degree_name,
		status, commission_type, commission_amount,
		submitted_at, documents_requested_at, payment_verified_at, payment_verified_by,
		approved_at, approved_by, rejected_at, rejected_by, rejection_reason,
		created_at, updated_at
	FROM applications`

const upsertApplicationSQL = `
	INSERT INTO applications (
		id, agent_id, student_id, program_id, university_id, degree_id, degree_name,
		status, commission_type, commission_amount,
		submitted_at, documents_requested_at, payment_verified_at, payment_verified_by,
		approved_at, approved_by, rejected_at, rejected_by, rejection_reason,
		created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		agent_id = excluded.agent_id,
		student_id = excluded.student_id,
		program_id = excluded.program_id,
		university_id = excluded.university_id,
		degree_id = excluded.degree_id,
		degree_name = excluded.degree_name,
		status = excluded.status,
		commission_type = excluded.commission_type,
		commission_amount = excluded.commission_amount,
		submitted_at = excluded.submitted_at,
		documents_requested_at = excluded.documents_requested_at,
		payment_verified_at = excluded.payment_verified_at,
		payment_verified_by = excluded.payment_verified_by,
		approved_at = excluded.approved_at,
		approved_by = excluded.approved_by,
		rejected_at = excluded.rejected_at,
		rejected_by = excluded.rejected_by,
		rejection_reason = excluded.rejection_reason,
		updated_at = excluded.updated_at
`

// SQLiteRepository implements Repository using SQLite
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates an application repository on a database opened by db.Open
func NewSQLiteRepository(database *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: database}
}

// Get retrieves an application by ID
func (r *SQLiteRepository) Get(ctx context.Context, applicationID string) (*entities.Application, error) {
	return scanApplication(r.db.QueryRowContext(ctx, selectApplicationSQL+` WHERE id = ?`, applicationID))
}

// Save creates or updates an application
func (r *SQLiteRepository) Save(ctx context.Context, application *entities.Application) error {
	if application.ID == "" {
		application.ID = uuid.New().String()
	}
	if _, err := r.db.ExecContext(ctx, upsertApplicationSQL, applicationArgs(application)...); err != nil {
		return fmt.Errorf("error saving application: %w", err)
	}
	return nil
}

// ApplyTransition implements Repository
func (r *SQLiteRepository) ApplyTransition(ctx context.Context, application *entities.Application, history *entities.StatusHistory) error {
	if history.ID == "" {
		history.ID = uuid.New().String()
	}

	metadata, err := json.Marshal(history.Metadata)
	if err != nil {
		return fmt.Errorf("error encoding history metadata: %w", err)
	}

	return db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var current string
		err := tx.QueryRowContext(ctx, `SELECT status FROM applications WHERE id = ?`, application.ID).Scan(&current)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrApplicationNotFound
			}
			return fmt.Errorf("error reading application status: %w", err)
		}
		if entities.ApplicationStatus(current) != history.FromStatus {
			return ErrStatusConflict
		}

		if _, err := tx.ExecContext(ctx, upsertApplicationSQL, applicationArgs(application)...); err != nil {
			return fmt.Errorf("error saving application: %w", err)
		}

		query := `
			INSERT INTO application_status_history (
				id, application_id, from_status, to_status, actor_id, actor_role, reason, metadata, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`
		_, err = tx.ExecContext(ctx, query,
			history.ID,
			history.ApplicationID,
			string(history.FromStatus),
			string(history.ToStatus),
			history.ActorID,
			string(history.ActorRole),
			history.Reason,
			string(metadata),
			db.FormatTime(history.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("error recording status history: %w", err)
		}
		return nil
	})
}

// ListHistory returns the transitions of an application, oldest first
func (r *SQLiteRepository) ListHistory(ctx context.Context, applicationID string) ([]*entities.StatusHistory, error) {
	query := `
		SELECT id, application_id, from_status, to_status, actor_id, actor_role, reason, metadata, created_at
		FROM application_status_history
		WHERE application_id = ?
		ORDER BY created_at ASC, rowid ASC
	`

	rows, err := r.db.QueryContext(ctx, query, applicationID)
	if err != nil {
		return nil, fmt.Errorf("error querying status history: %w", err)
	}
	defer rows.Close()

	result := make([]*entities.StatusHistory, 0)
	for rows.Next() {
		var h entities.StatusHistory
		var fromStatus, toStatus, role, metadata, createdAt string

		err := rows.Scan(&h.ID, &h.ApplicationID, &fromStatus, &toStatus, &h.ActorID, &role, &h.Reason, &metadata, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("error scanning status history: %w", err)
		}

		h.FromStatus = entities.ApplicationStatus(fromStatus)
		h.ToStatus = entities.ApplicationStatus(toStatus)
		h.ActorRole = entities.Role(role)
		if err := json.Unmarshal([]byte(metadata), &h.Metadata); err != nil {
			return nil, fmt.Errorf("error decoding history metadata: %w", err)
		}
		if h.CreatedAt, err = db.ParseTime(createdAt); err != nil {
			return nil, err
		}
		result = append(result, &h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating status history: %w", err)
	}
	return result, nil
}

// ListByStatus returns applications in the given status, oldest first
func (r *SQLiteRepository) ListByStatus(ctx context.Context, status entities.ApplicationStatus) ([]*entities.Application, error) {
	rows, err := r.db.QueryContext(ctx, selectApplicationSQL+` WHERE status = ? ORDER BY created_at ASC, rowid ASC`, string(status))
	if err != nil {
		return nil, fmt.Errorf("error querying applications: %w", err)
	}
	defer rows.Close()

	result := make([]*entities.Application, 0)
	for rows.Next() {
		application, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, application)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating applications: %w", err)
	}
	return result, nil
}

// Close implements Repository. The database handle is owned by the caller of db.Open.
func (r *SQLiteRepository) Close() error {
	return nil
}

func applicationArgs(a *entities.Application) []interface{} {
	return []interface{}{
		a.ID,
		a.AgentID,
		a.StudentID,
		a.ProgramID,
		a.UniversityID,
		a.DegreeID,
		a.DegreeName,
		string(a.Status),
		string(a.CommissionType),
		a.CommissionAmount.String(),
		db.FormatNullTime(a.SubmittedAt),
		db.FormatNullTime(a.DocumentsRequestedAt),
		db.FormatNullTime(a.PaymentVerifiedAt),
		a.PaymentVerifiedBy,
		db.FormatNullTime(a.ApprovedAt),
		a.ApprovedBy,
		db.FormatNullTime(a.RejectedAt),
		a.RejectedBy,
		a.RejectionReason,
		db.FormatTime(a.CreatedAt),
		db.FormatTime(a.UpdatedAt),
	}
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanApplication(row scanner) (*entities.Application, error) {
	var a entities.Application
	var status, commissionType, createdAt, updatedAt string
	var submittedAt, documentsRequestedAt, paymentVerifiedAt, approvedAt, rejectedAt sql.NullString

	err := row.Scan(
		&a.ID,
		&a.AgentID,
		&a.StudentID,
		&a.ProgramID,
		&a.UniversityID,
		&a.DegreeID,
		&a.DegreeName,
		&status,
		&commissionType,
		&a.CommissionAmount,
		&submittedAt,
		&documentsRequestedAt,
		&paymentVerifiedAt,
		&a.PaymentVerifiedBy,
		&approvedAt,
		&a.ApprovedBy,
		&rejectedAt,
		&a.RejectedBy,
		&a.RejectionReason,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrApplicationNotFound
		}
		return nil, fmt.Errorf("error getting application: %w", err)
	}

	a.Status = entities.ApplicationStatus(status)
	a.CommissionType = entities.CommissionType(commissionType)

	for _, field := range []struct {
		src sql.NullString
		dst **time.Time
	}{
		{submittedAt, &a.SubmittedAt},
		{documentsRequestedAt, &a.DocumentsRequestedAt},
		{paymentVerifiedAt, &a.PaymentVerifiedAt},
		{approvedAt, &a.ApprovedAt},
		{rejectedAt, &a.RejectedAt},
	} {
		if *field.dst, err = db.ParseNullTime(field.src); err != nil {
			return nil, err
		}
	}

	if a.CreatedAt, err = db.ParseTime(createdAt); err != nil {
		return nil, err
	}
	if a.UpdatedAt, err = db.ParseTime(updatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}
