package models

import "time"

// Template is an assessment or engagement questionnaire referenced by
// campaigns. Tenant-scoped when tenant_id is set, global otherwise. The
// campaign core only reads templates and bumps usage counters.
type Template struct {
	ID            string         `db:"id" json:"id"`
	TenantID      *string        `db:"tenant_id" json:"tenant_id,omitempty"`
	Family        CampaignFamily `db:"family" json:"family"`
	Type          string         `db:"type" json:"type"`
	Name          string         `db:"name" json:"name"`
	QuestionCount int            `db:"question_count" json:"question_count"`
	Active        bool           `db:"active" json:"active"`
	UsageCount    int            `db:"usage_count" json:"usage_count"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
}

// AccessibleTo reports whether the template may be used by the tenant.
func (t *Template) AccessibleTo(tenantID string) bool {
	return t.TenantID == nil || *t.TenantID == tenantID
}
