package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/hcm-campaign-api/internal/models"
)

// ErrDuplicateAssignment signals a (campaign, employee) uniqueness breach.
var ErrDuplicateAssignment = errors.New("assignment already exists for employee")

// AssignmentRepository persists per-employee campaign assignments.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs the repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// FindByID loads one assignment within the tenant.
func (r *AssignmentRepository) FindByID(ctx context.Context, tenantID, id string) (*models.Assignment, error) {
	const query = `SELECT * FROM campaign_assignments WHERE tenant_id = $1 AND id = $2`
	var assignment models.Assignment
	if err := r.db.GetContext(ctx, &assignment, query, tenantID, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("get assignment: %w", err)
	}
	return &assignment, nil
}

// ListByCampaign returns assignments for a campaign with employee details.
func (r *AssignmentRepository) ListByCampaign(ctx context.Context, filter models.AssignmentFilter) ([]models.AssignmentDetail, int, error) {
	where := `a.tenant_id = $1 AND a.campaign_id = $2`
	args := []interface{}{filter.TenantID, filter.CampaignID}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where += fmt.Sprintf(" AND a.status = $%d", len(args))
	}
	return r.listDetails(ctx, where, args, filter.Page, filter.PageSize)
}

// ListByEmployee returns assignments held by one employee across campaigns.
func (r *AssignmentRepository) ListByEmployee(ctx context.Context, filter models.AssignmentFilter) ([]models.AssignmentDetail, int, error) {
	where := `a.tenant_id = $1 AND a.employee_id = $2`
	args := []interface{}{filter.TenantID, filter.EmployeeID}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where += fmt.Sprintf(" AND a.status = $%d", len(args))
	}
	return r.listDetails(ctx, where, args, filter.Page, filter.PageSize)
}

func (r *AssignmentRepository) listDetails(ctx context.Context, where string, args []interface{}, page, pageSize int) ([]models.AssignmentDetail, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM campaign_assignments a WHERE `+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count assignments: %w", err)
	}

	if pageSize <= 0 {
		pageSize = 20
	}
	if page <= 0 {
		page = 1
	}
	args = append(args, pageSize, (page-1)*pageSize)

	query := `
SELECT a.*, e.full_name AS employee_name, e.email AS employee_email
FROM campaign_assignments a
JOIN employees e ON e.id = a.employee_id AND e.tenant_id = a.tenant_id
WHERE ` + where + fmt.Sprintf(`
ORDER BY a.employee_id ASC, a.id ASC
LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	var assignments []models.AssignmentDetail
	if err := r.db.SelectContext(ctx, &assignments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list assignments: %w", err)
	}
	return assignments, total, nil
}

// ListEmployeeIDs returns the employee ids assigned to a campaign,
// regardless of assignment status.
func (r *AssignmentRepository) ListEmployeeIDs(ctx context.Context, tenantID, campaignID string) ([]int64, error) {
	const query = `SELECT employee_id FROM campaign_assignments WHERE tenant_id = $1 AND campaign_id = $2 ORDER BY employee_id ASC`
	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, query, tenantID, campaignID); err != nil {
		return nil, fmt.Errorf("list assignment employees: %w", err)
	}
	return ids, nil
}

// ListByCampaignAndEmployees returns existing rows for the given employees,
// used by add() to reactivate CANCELLED rows instead of duplicating.
func (r *AssignmentRepository) ListByCampaignAndEmployees(ctx context.Context, tenantID, campaignID string, employeeIDs []int64) ([]models.Assignment, error) {
	const query = `SELECT * FROM campaign_assignments WHERE tenant_id = $1 AND campaign_id = $2 AND employee_id = ANY($3) ORDER BY employee_id ASC`
	var assignments []models.Assignment
	if err := r.db.SelectContext(ctx, &assignments, query, tenantID, campaignID, pq.Array(employeeIDs)); err != nil {
		return nil, fmt.Errorf("list assignments by employees: %w", err)
	}
	return assignments, nil
}

// BulkInsert adds new assignments and reactivates previously cancelled rows
// in one transaction. Inserts rely on the (campaign_id, employee_id) unique
// constraint for final protection.
func (r *AssignmentRepository) BulkInsert(ctx context.Context, inserts []models.Assignment, reactivateIDs []string, audit *models.AuditLog) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bulk assignment tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	const insertQuery = `INSERT INTO campaign_assignments
(id, tenant_id, campaign_id, employee_id, status, assigned_by, assigned_at, reminder_count)
VALUES (:id, :tenant_id, :campaign_id, :employee_id, :status, :assigned_by, :assigned_at, :reminder_count)`
	for i := range inserts {
		if inserts[i].ID == "" {
			inserts[i].ID = uuid.NewString()
		}
		if inserts[i].AssignedAt.IsZero() {
			inserts[i].AssignedAt = now
		}
		if _, err = tx.NamedExecContext(ctx, insertQuery, inserts[i]); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("employee %d: %w", inserts[i].EmployeeID, ErrDuplicateAssignment)
			}
			return fmt.Errorf("insert assignment: %w", err)
		}
	}

	if len(reactivateIDs) > 0 {
		const reactivateQuery = `UPDATE campaign_assignments
SET status = 'ASSIGNED', assigned_at = $1, reminder_count = 0, last_reminder_at = NULL, completed_at = NULL
WHERE id = ANY($2)`
		if _, err = tx.ExecContext(ctx, reactivateQuery, now, pq.Array(reactivateIDs)); err != nil {
			return fmt.Errorf("reactivate assignments: %w", err)
		}
	}

	if err = insertAuditTx(ctx, tx, audit); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit bulk assignments: %w", err)
	}
	return nil
}

// UpdateStatus writes the assignment status, stamping completed_at when the
// new status is COMPLETED.
func (r *AssignmentRepository) UpdateStatus(ctx context.Context, tenantID, id string, status models.AssignmentStatus) error {
	now := time.Now().UTC()
	var result sql.Result
	var err error
	if status == models.AssignmentCompleted {
		const query = `UPDATE campaign_assignments SET status = $1, completed_at = $2 WHERE tenant_id = $3 AND id = $4`
		result, err = r.db.ExecContext(ctx, query, status, now, tenantID, id)
	} else {
		const query = `UPDATE campaign_assignments SET status = $1 WHERE tenant_id = $2 AND id = $3`
		result, err = r.db.ExecContext(ctx, query, status, tenantID, id)
	}
	if err != nil {
		return fmt.Errorf("update assignment status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check updated assignment rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes one assignment. Eligibility is enforced by the assignment
// manager before calling.
func (r *AssignmentRepository) Delete(ctx context.Context, tenantID, id string) error {
	const query = `DELETE FROM campaign_assignments WHERE tenant_id = $1 AND id = $2`
	result, err := r.db.ExecContext(ctx, query, tenantID, id)
	if err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deleted assignment rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// MarkReminded increments the reminder counter and stamps the send time.
func (r *AssignmentRepository) MarkReminded(ctx context.Context, tenantID, id string, at time.Time) error {
	const query = `UPDATE campaign_assignments SET reminder_count = reminder_count + 1, last_reminder_at = $1 WHERE tenant_id = $2 AND id = $3`
	if _, err := r.db.ExecContext(ctx, query, at, tenantID, id); err != nil {
		return fmt.Errorf("mark assignment reminded: %w", err)
	}
	return nil
}

// ListReminderCandidates returns assignments eligible for a reminder: the
// campaign has reminders enabled, the assignment is still open and the last
// reminder is older than the campaign cadence (or the default).
func (r *AssignmentRepository) ListReminderCandidates(ctx context.Context, now time.Time, defaultFrequencyDays int) ([]models.ReminderCandidate, error) {
	const query = `
SELECT a.id AS assignment_id, a.campaign_id, c.name AS campaign_name, a.tenant_id, a.employee_id,
       a.reminder_count, a.last_reminder_at, c.reminder_settings
FROM campaign_assignments a
JOIN campaigns c ON c.id = a.campaign_id
WHERE c.status IN ('ACTIVE', 'IN_PROGRESS')
  AND (c.reminder_settings ->> 'enabled')::boolean = TRUE
  AND a.status IN ('ASSIGNED', 'IN_PROGRESS')
  AND a.completed_at IS NULL
  AND (a.last_reminder_at IS NULL
       OR a.last_reminder_at <= $1::timestamptz - make_interval(days => COALESCE(NULLIF((c.reminder_settings ->> 'frequency_days')::int, 0), $2)))
ORDER BY a.tenant_id ASC, a.employee_id ASC, a.id ASC`
	var candidates []models.ReminderCandidate
	if err := r.db.SelectContext(ctx, &candidates, query, now, defaultFrequencyDays); err != nil {
		return nil, fmt.Errorf("list reminder candidates: %w", err)
	}
	return candidates, nil
}

func isUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "23505"
	}
	return false
}
