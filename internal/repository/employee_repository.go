package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// EmployeeRepository reads assignment targets. Employee lifecycle belongs to
// the profile subsystem; the core only verifies membership.
type EmployeeRepository struct {
	db *sqlx.DB
}

// NewEmployeeRepository constructs the repository.
func NewEmployeeRepository(db *sqlx.DB) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

// ActiveIDs returns which of the given ids are active employees of the
// tenant, in ascending order.
func (r *EmployeeRepository) ActiveIDs(ctx context.Context, tenantID string, ids []int64) ([]int64, error) {
	const query = `SELECT id FROM employees WHERE tenant_id = $1 AND active = TRUE AND id = ANY($2) ORDER BY id ASC`
	var active []int64
	if err := r.db.SelectContext(ctx, &active, query, tenantID, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("list active employees: %w", err)
	}
	return active, nil
}
