package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/hcm-campaign-api/internal/models"
)

// CampaignRepository persists campaigns of both families. Every query takes
// the tenant as its first predicate.
type CampaignRepository struct {
	db *sqlx.DB
}

// NewCampaignRepository constructs the repository.
func NewCampaignRepository(db *sqlx.DB) *CampaignRepository {
	return &CampaignRepository{db: db}
}

const campaignColumns = `id, tenant_id, family, template_id, name, description, start_date, end_date,
       status, frequency, mandatory, allow_retakes, max_attempts, anonymous_responses,
       reminder_settings, target_audience, created_by, created_at, updated_at, archived_at, has_responses`

// CreateWithAssignments inserts the campaign, one ASSIGNED row per employee
// and the audit entry in a single transaction.
func (r *CampaignRepository) CreateWithAssignments(ctx context.Context, campaign *models.Campaign, assignments []models.Assignment, audit *models.AuditLog) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create campaign tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if campaign.ID == "" {
		campaign.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if campaign.CreatedAt.IsZero() {
		campaign.CreatedAt = now
	}
	campaign.UpdatedAt = campaign.CreatedAt

	const insertCampaign = `INSERT INTO campaigns (` + campaignColumns + `)
VALUES (:id, :tenant_id, :family, :template_id, :name, :description, :start_date, :end_date,
        :status, :frequency, :mandatory, :allow_retakes, :max_attempts, :anonymous_responses,
        :reminder_settings, :target_audience, :created_by, :created_at, :updated_at, :archived_at, :has_responses)`
	if _, err = tx.NamedExecContext(ctx, insertCampaign, campaign); err != nil {
		return fmt.Errorf("insert campaign: %w", err)
	}

	const insertAssignment = `INSERT INTO campaign_assignments
(id, tenant_id, campaign_id, employee_id, status, assigned_by, assigned_at, reminder_count)
VALUES (:id, :tenant_id, :campaign_id, :employee_id, :status, :assigned_by, :assigned_at, :reminder_count)`
	for i := range assignments {
		if assignments[i].ID == "" {
			assignments[i].ID = uuid.NewString()
		}
		assignments[i].CampaignID = campaign.ID
		assignments[i].TenantID = campaign.TenantID
		if assignments[i].AssignedAt.IsZero() {
			assignments[i].AssignedAt = now
		}
		if _, err = tx.NamedExecContext(ctx, insertAssignment, assignments[i]); err != nil {
			return fmt.Errorf("insert assignment for employee %d: %w", assignments[i].EmployeeID, err)
		}
	}

	if err = insertAuditTx(ctx, tx, audit); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create campaign: %w", err)
	}
	return nil
}

// FindByID loads one campaign with template descriptors and counters.
func (r *CampaignRepository) FindByID(ctx context.Context, tenantID, id string) (*models.CampaignDetail, error) {
	const query = `
SELECT c.*, t.name AS template_name, t.type AS template_type, t.question_count,
       (SELECT COUNT(*) FROM campaign_assignments a WHERE a.campaign_id = c.id) AS assignments_total,
       (SELECT COUNT(*) FROM campaign_responses r WHERE r.campaign_id = c.id) AS response_count
FROM campaigns c
JOIN campaign_templates t ON t.id = c.template_id
WHERE c.tenant_id = $1 AND c.id = $2`
	var detail models.CampaignDetail
	if err := r.db.GetContext(ctx, &detail, query, tenantID, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("get campaign: %w", err)
	}
	return &detail, nil
}

// List returns campaigns matching the filter plus the unpaged total.
func (r *CampaignRepository) List(ctx context.Context, filter models.CampaignFilter) ([]models.CampaignDetail, int, error) {
	where := `c.tenant_id = $1 AND c.family = $2`
	args := []interface{}{filter.TenantID, filter.Family}

	if filter.Status != "" {
		args = append(args, filter.Status)
		where += fmt.Sprintf(" AND c.status = $%d", len(args))
	}
	if filter.TemplateID != "" {
		args = append(args, filter.TemplateID)
		where += fmt.Sprintf(" AND c.template_id = $%d", len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where += fmt.Sprintf(" AND (c.name ILIKE $%d OR c.description ILIKE $%d)", len(args), len(args))
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM campaigns c WHERE ` + where
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count campaigns: %w", err)
	}

	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	args = append(args, pageSize, (page-1)*pageSize)

	query := `
SELECT c.*, t.name AS template_name, t.type AS template_type, t.question_count,
       (SELECT COUNT(*) FROM campaign_assignments a WHERE a.campaign_id = c.id) AS assignments_total,
       (SELECT COUNT(*) FROM campaign_responses r WHERE r.campaign_id = c.id) AS response_count
FROM campaigns c
JOIN campaign_templates t ON t.id = c.template_id
WHERE ` + where + fmt.Sprintf(`
ORDER BY c.start_date DESC, c.id ASC
LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	var campaigns []models.CampaignDetail
	if err := r.db.SelectContext(ctx, &campaigns, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list campaigns: %w", err)
	}
	return campaigns, total, nil
}

// ListIntersecting returns campaigns of both families whose window touches
// [start, end], optionally including terminal statuses.
func (r *CampaignRepository) ListIntersecting(ctx context.Context, filter models.CalendarFilter) ([]models.CampaignDetail, int, error) {
	where := `c.tenant_id = $1 AND c.start_date <= $2 AND c.end_date >= $3`
	args := []interface{}{filter.TenantID, filter.EndDate, filter.StartDate}

	if !filter.IncludeCompleted {
		args = append(args, pq.Array([]string{string(models.CampaignCompleted), string(models.CampaignArchived), string(models.CampaignCancelled)}))
		where += fmt.Sprintf(" AND c.status <> ALL($%d)", len(args))
	}
	if filter.EmployeeID > 0 {
		args = append(args, filter.EmployeeID)
		where += fmt.Sprintf(" AND EXISTS (SELECT 1 FROM campaign_assignments a WHERE a.campaign_id = c.id AND a.employee_id = $%d)", len(args))
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM campaigns c WHERE `+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count calendar campaigns: %w", err)
	}

	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	args = append(args, pageSize, (page-1)*pageSize)

	query := `
SELECT c.*, t.name AS template_name, t.type AS template_type, t.question_count,
       (SELECT COUNT(*) FROM campaign_assignments a WHERE a.campaign_id = c.id) AS assignments_total,
       (SELECT COUNT(*) FROM campaign_responses r WHERE r.campaign_id = c.id) AS response_count
FROM campaigns c
JOIN campaign_templates t ON t.id = c.template_id
WHERE ` + where + fmt.Sprintf(`
ORDER BY c.start_date ASC, c.id ASC
LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	var campaigns []models.CampaignDetail
	if err := r.db.SelectContext(ctx, &campaigns, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list calendar campaigns: %w", err)
	}
	return campaigns, total, nil
}

// ListOverlappingSnapshots loads the conflict detector snapshot: one row per
// (campaign, candidate employee) for non-terminal campaigns overlapping the
// window. Ordering makes detector output deterministic.
func (r *CampaignRepository) ListOverlappingSnapshots(ctx context.Context, tenantID string, start, end time.Time, employeeIDs []int64, excludeCampaignID string) ([]models.CampaignSnapshot, error) {
	const query = `
SELECT c.id AS campaign_id, c.name, c.family, c.status, t.type AS template_type, t.question_count,
       COALESCE(c.mandatory, FALSE) AS mandatory, c.start_date, c.end_date,
       a.employee_id, a.status AS assignment_status
FROM campaigns c
JOIN campaign_templates t ON t.id = c.template_id
JOIN campaign_assignments a ON a.campaign_id = c.id
WHERE c.tenant_id = $1
  AND c.status = ANY($2)
  AND c.start_date <= $3
  AND c.end_date >= $4
  AND a.employee_id = ANY($5)
  AND a.status NOT IN ('EXPIRED', 'CANCELLED')
  AND ($6 = '' OR c.id <> $6)
ORDER BY a.employee_id ASC, c.id ASC`
	statuses := make([]string, 0, len(models.NonTerminalCampaignStatuses))
	for _, s := range models.NonTerminalCampaignStatuses {
		statuses = append(statuses, string(s))
	}
	var snapshots []models.CampaignSnapshot
	if err := r.db.SelectContext(ctx, &snapshots, query, tenantID, pq.Array(statuses), end, start, pq.Array(employeeIDs), excludeCampaignID); err != nil {
		return nil, fmt.Errorf("load conflict snapshot: %w", err)
	}
	return snapshots, nil
}

// UpdateStatus writes the new status, stamping archived_at when archiving.
func (r *CampaignRepository) UpdateStatus(ctx context.Context, tenantID, id string, status models.CampaignStatus, audit *models.AuditLog) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin status tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	var result sql.Result
	if status == models.CampaignArchived {
		const query = `UPDATE campaigns SET status = $1, archived_at = $2, updated_at = $2 WHERE tenant_id = $3 AND id = $4`
		result, err = tx.ExecContext(ctx, query, status, now, tenantID, id)
	} else {
		const query = `UPDATE campaigns SET status = $1, updated_at = $2 WHERE tenant_id = $3 AND id = $4`
		result, err = tx.ExecContext(ctx, query, status, now, tenantID, id)
	}
	if err != nil {
		return fmt.Errorf("update campaign status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check updated campaign rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	if err = insertAuditTx(ctx, tx, audit); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit campaign status: %w", err)
	}
	return nil
}

// UpdateWindow atomically rewrites the campaign window.
func (r *CampaignRepository) UpdateWindow(ctx context.Context, tenantID, id string, start, end time.Time, audit *models.AuditLog) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reschedule tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `UPDATE campaigns SET start_date = $1, end_date = $2, updated_at = $3 WHERE tenant_id = $4 AND id = $5`
	result, err := tx.ExecContext(ctx, query, start, end, time.Now().UTC(), tenantID, id)
	if err != nil {
		return fmt.Errorf("update campaign window: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rescheduled campaign rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	if err = insertAuditTx(ctx, tx, audit); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit campaign reschedule: %w", err)
	}
	return nil
}

// Delete removes the campaign and cascades its assignments in one
// transaction. Refusal checks (responses, started assignments) belong to the
// lifecycle engine.
func (r *CampaignRepository) Delete(ctx context.Context, tenantID, id string, audit *models.AuditLog) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete campaign tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM campaign_assignments WHERE tenant_id = $1 AND campaign_id = $2`, tenantID, id); err != nil {
		return fmt.Errorf("delete campaign assignments: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM campaigns WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return fmt.Errorf("delete campaign: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deleted campaign rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	if err = insertAuditTx(ctx, tx, audit); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete campaign: %w", err)
	}
	return nil
}

// CountResponses returns how many responses exist for the campaign.
func (r *CampaignRepository) CountResponses(ctx context.Context, tenantID, campaignID string) (int, error) {
	const query = `SELECT COUNT(*) FROM campaign_responses WHERE tenant_id = $1 AND campaign_id = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, tenantID, campaignID); err != nil {
		return 0, fmt.Errorf("count campaign responses: %w", err)
	}
	return count, nil
}

// CountStartedAssignments returns how many assignments have left ASSIGNED.
func (r *CampaignRepository) CountStartedAssignments(ctx context.Context, tenantID, campaignID string) (int, error) {
	const query = `SELECT COUNT(*) FROM campaign_assignments WHERE tenant_id = $1 AND campaign_id = $2 AND status <> 'ASSIGNED'`
	var count int
	if err := r.db.GetContext(ctx, &count, query, tenantID, campaignID); err != nil {
		return 0, fmt.Errorf("count started assignments: %w", err)
	}
	return count, nil
}

// StatusCounts aggregates assignment counts by status for one campaign.
func (r *CampaignRepository) StatusCounts(ctx context.Context, tenantID, campaignID string) (map[models.AssignmentStatus]int, error) {
	const query = `SELECT status, COUNT(*) AS count FROM campaign_assignments WHERE tenant_id = $1 AND campaign_id = $2 GROUP BY status`
	rows := []struct {
		Status models.AssignmentStatus `db:"status"`
		Count  int                     `db:"count"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query, tenantID, campaignID); err != nil {
		return nil, fmt.Errorf("aggregate assignment statuses: %w", err)
	}
	counts := make(map[models.AssignmentStatus]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// StatusCountsForCampaigns aggregates assignment counts by status for many
// campaigns at once, for list endpoints.
func (r *CampaignRepository) StatusCountsForCampaigns(ctx context.Context, tenantID string, campaignIDs []string) (map[string]map[models.AssignmentStatus]int, error) {
	if len(campaignIDs) == 0 {
		return map[string]map[models.AssignmentStatus]int{}, nil
	}
	const query = `SELECT campaign_id, status, COUNT(*) AS count FROM campaign_assignments WHERE tenant_id = $1 AND campaign_id = ANY($2) GROUP BY campaign_id, status`
	rows := []struct {
		CampaignID string                  `db:"campaign_id"`
		Status     models.AssignmentStatus `db:"status"`
		Count      int                     `db:"count"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query, tenantID, pq.Array(campaignIDs)); err != nil {
		return nil, fmt.Errorf("aggregate assignment statuses: %w", err)
	}
	counts := make(map[string]map[models.AssignmentStatus]int, len(campaignIDs))
	for _, row := range rows {
		if counts[row.CampaignID] == nil {
			counts[row.CampaignID] = make(map[models.AssignmentStatus]int)
		}
		counts[row.CampaignID][row.Status] = row.Count
	}
	return counts, nil
}

// CountByStatus aggregates campaign counts per family and status within a
// window, for calendar stats.
func (r *CampaignRepository) CountByStatus(ctx context.Context, tenantID string, start, end time.Time) (map[models.CampaignFamily]map[models.CampaignStatus]int, error) {
	const query = `
SELECT family, status, COUNT(*) AS count
FROM campaigns
WHERE tenant_id = $1 AND start_date <= $2 AND end_date >= $3
GROUP BY family, status`
	rows := []struct {
		Family models.CampaignFamily `db:"family"`
		Status models.CampaignStatus `db:"status"`
		Count  int                   `db:"count"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query, tenantID, end, start); err != nil {
		return nil, fmt.Errorf("aggregate campaign statuses: %w", err)
	}
	counts := make(map[models.CampaignFamily]map[models.CampaignStatus]int)
	for _, row := range rows {
		if counts[row.Family] == nil {
			counts[row.Family] = make(map[models.CampaignStatus]int)
		}
		counts[row.Family][row.Status] = row.Count
	}
	return counts, nil
}

func insertAuditTx(ctx context.Context, tx *sqlx.Tx, audit *models.AuditLog) error {
	if audit == nil {
		return nil
	}
	if audit.ID == "" {
		audit.ID = uuid.NewString()
	}
	if audit.CreatedAt.IsZero() {
		audit.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO audit_logs (id, tenant_id, user_id, action, resource, resource_id, details, ip_address, user_agent, created_at)
VALUES (:id, :tenant_id, :user_id, :action, :resource, :resource_id, :details, :ip_address, :user_agent, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, audit); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}
