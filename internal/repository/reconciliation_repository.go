package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/hcm-campaign-api/internal/models"
)

// reconcileLockKey identifies the sweep's Postgres advisory lock. Only one
// instance behind the load balancer may run a given sweep.
const reconcileLockKey int64 = 0x6863635F737767 // "hcc_swg"

// ReconciliationRepository holds the sweep SQL. Each method is one stage and
// wraps its own writes so a failing stage never aborts the rest.
type ReconciliationRepository struct {
	db *sqlx.DB
}

// NewReconciliationRepository constructs the repository.
func NewReconciliationRepository(db *sqlx.DB) *ReconciliationRepository {
	return &ReconciliationRepository{db: db}
}

// TryLock attempts the sweep advisory lock without blocking.
func (r *ReconciliationRepository) TryLock(ctx context.Context) (bool, error) {
	var acquired bool
	if err := r.db.GetContext(ctx, &acquired, `SELECT pg_try_advisory_lock($1)`, reconcileLockKey); err != nil {
		return false, fmt.Errorf("acquire reconcile lock: %w", err)
	}
	return acquired, nil
}

// Unlock releases the sweep advisory lock.
func (r *ReconciliationRepository) Unlock(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `SELECT pg_advisory_unlock($1)`, reconcileLockKey); err != nil {
		return fmt.Errorf("release reconcile lock: %w", err)
	}
	return nil
}

// ActivateDue moves PLANNED campaigns whose start has been reached to
// ACTIVE and returns how many changed.
func (r *ReconciliationRepository) ActivateDue(ctx context.Context, today time.Time) (int64, error) {
	const query = `UPDATE campaigns SET status = 'ACTIVE', updated_at = $1 WHERE status = 'PLANNED' AND start_date <= $2`
	result, err := r.db.ExecContext(ctx, query, time.Now().UTC(), today)
	if err != nil {
		return 0, fmt.Errorf("activate due campaigns: %w", err)
	}
	return result.RowsAffected()
}

// CompleteEnded transitions running campaigns past their end to COMPLETED
// and expires their open assignments, atomically.
func (r *ReconciliationRepository) CompleteEnded(ctx context.Context, today time.Time) (completed int64, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin complete tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var ids []string
	const selectQuery = `SELECT id FROM campaigns WHERE status IN ('ACTIVE', 'IN_PROGRESS', 'PAUSED') AND end_date < $1 FOR UPDATE`
	if err = tx.SelectContext(ctx, &ids, selectQuery, today); err != nil {
		return 0, fmt.Errorf("select ended campaigns: %w", err)
	}
	if len(ids) == 0 {
		err = tx.Commit()
		return 0, err
	}

	now := time.Now().UTC()
	query, args, err := sqlx.In(`UPDATE campaigns SET status = 'COMPLETED', updated_at = ? WHERE id IN (?)`, now, ids)
	if err != nil {
		return 0, fmt.Errorf("build complete query: %w", err)
	}
	if _, err = tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
		return 0, fmt.Errorf("complete ended campaigns: %w", err)
	}

	query, args, err = sqlx.In(`UPDATE campaign_assignments SET status = 'EXPIRED' WHERE campaign_id IN (?) AND status IN ('ASSIGNED', 'IN_PROGRESS')`, ids)
	if err != nil {
		return 0, fmt.Errorf("build expire query: %w", err)
	}
	if _, err = tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
		return 0, fmt.Errorf("expire open assignments: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit complete stage: %w", err)
	}
	return int64(len(ids)), nil
}

// NearEndCampaign pairs a closing campaign with its open assignment count.
type NearEndCampaign struct {
	CampaignID string                `db:"campaign_id"`
	TenantID   string                `db:"tenant_id"`
	Name       string                `db:"name"`
	Family     models.CampaignFamily `db:"family"`
	EndDate    time.Time             `db:"end_date"`
	OpenCount  int                   `db:"open_count"`
}

// ListNearEnd returns running campaigns ending within the warning window
// that still have uncompleted assignments.
func (r *ReconciliationRepository) ListNearEnd(ctx context.Context, today time.Time, nearEndDays int) ([]NearEndCampaign, error) {
	const query = `
SELECT c.id AS campaign_id, c.tenant_id, c.name, c.family, c.end_date,
       COUNT(a.id) AS open_count
FROM campaigns c
JOIN campaign_assignments a ON a.campaign_id = c.id AND a.status IN ('ASSIGNED', 'IN_PROGRESS')
WHERE c.status IN ('ACTIVE', 'IN_PROGRESS') AND c.end_date >= $1 AND c.end_date <= $2
GROUP BY c.id, c.tenant_id, c.name, c.family, c.end_date
ORDER BY c.end_date ASC, c.id ASC`
	var campaigns []NearEndCampaign
	if err := r.db.SelectContext(ctx, &campaigns, query, today, today.AddDate(0, 0, nearEndDays)); err != nil {
		return nil, fmt.Errorf("list near-end campaigns: %w", err)
	}
	return campaigns, nil
}

// ArchiveOld moves COMPLETED campaigns whose end passed the retention
// horizon to ARCHIVED.
func (r *ReconciliationRepository) ArchiveOld(ctx context.Context, today time.Time, archiveAfterDays int) (int64, error) {
	cutoff := today.AddDate(0, 0, -archiveAfterDays)
	now := time.Now().UTC()
	const query = `UPDATE campaigns SET status = 'ARCHIVED', archived_at = $1, updated_at = $1 WHERE status = 'COMPLETED' AND end_date < $2`
	result, err := r.db.ExecContext(ctx, query, now, cutoff)
	if err != nil {
		return 0, fmt.Errorf("archive old campaigns: %w", err)
	}
	return result.RowsAffected()
}

// DeleteOrphanAssignments removes assignments whose campaign is gone.
func (r *ReconciliationRepository) DeleteOrphanAssignments(ctx context.Context) (int64, error) {
	const query = `DELETE FROM campaign_assignments a WHERE NOT EXISTS (SELECT 1 FROM campaigns c WHERE c.id = a.campaign_id)`
	result, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("delete orphan assignments: %w", err)
	}
	return result.RowsAffected()
}

// RepairResponseFlags sets has_responses on campaigns that gained responses
// without the flag being flipped.
func (r *ReconciliationRepository) RepairResponseFlags(ctx context.Context) (int64, error) {
	const query = `
UPDATE campaigns c SET has_responses = TRUE, updated_at = $1
WHERE c.has_responses = FALSE
  AND EXISTS (SELECT 1 FROM campaign_responses r WHERE r.campaign_id = c.id)`
	result, err := r.db.ExecContext(ctx, query, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("repair response flags: %w", err)
	}
	return result.RowsAffected()
}

// FindDuplicateNonTerminal detects employees holding more than one open
// assignment in overlapping windows within one tenant. Surfaced only; the
// sweep never auto-resolves.
func (r *ReconciliationRepository) FindDuplicateNonTerminal(ctx context.Context) ([]models.DuplicateAssignment, error) {
	const query = `
SELECT a1.tenant_id, a1.employee_id, COUNT(DISTINCT a1.id) AS count
FROM campaign_assignments a1
JOIN campaigns c1 ON c1.id = a1.campaign_id
JOIN campaign_assignments a2 ON a2.employee_id = a1.employee_id AND a2.tenant_id = a1.tenant_id AND a2.id <> a1.id
JOIN campaigns c2 ON c2.id = a2.campaign_id
WHERE a1.status IN ('ASSIGNED', 'IN_PROGRESS')
  AND a2.status IN ('ASSIGNED', 'IN_PROGRESS')
  AND c1.family = c2.family
  AND c1.start_date <= c2.end_date AND c1.end_date >= c2.start_date
GROUP BY a1.tenant_id, a1.employee_id
ORDER BY a1.tenant_id ASC, a1.employee_id ASC`
	var duplicates []models.DuplicateAssignment
	if err := r.db.SelectContext(ctx, &duplicates, query); err != nil {
		return nil, fmt.Errorf("find duplicate assignments: %w", err)
	}
	return duplicates, nil
}
