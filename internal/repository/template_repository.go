package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/hcm-campaign-api/internal/models"
)

// TemplateRepository reads campaign templates. The core never mutates
// templates beyond the usage counter.
type TemplateRepository struct {
	db *sqlx.DB
}

// NewTemplateRepository constructs the repository.
func NewTemplateRepository(db *sqlx.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// FindAccessible loads an active template visible to the tenant: either
// tenant-owned or global.
func (r *TemplateRepository) FindAccessible(ctx context.Context, tenantID, id string) (*models.Template, error) {
	const query = `SELECT * FROM campaign_templates WHERE id = $1 AND active = TRUE AND (tenant_id IS NULL OR tenant_id = $2)`
	var template models.Template
	if err := r.db.GetContext(ctx, &template, query, id, tenantID); err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("get template: %w", err)
	}
	return &template, nil
}

// IncrementUsage bumps the usage counter after a campaign creation or a
// question generation run.
func (r *TemplateRepository) IncrementUsage(ctx context.Context, id string) error {
	const query = `UPDATE campaign_templates SET usage_count = usage_count + 1 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("increment template usage: %w", err)
	}
	return nil
}
