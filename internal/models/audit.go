package models

import "time"

// AuditAction constants represent actions to be logged.
const (
	AuditActionCampaignCreate     = "CAMPAIGN_CREATE"
	AuditActionCampaignUpdate     = "CAMPAIGN_UPDATE"
	AuditActionCampaignDelete     = "CAMPAIGN_DELETE"
	AuditActionCampaignReschedule = "CAMPAIGN_RESCHEDULE"
	AuditActionCampaignDuplicate  = "CAMPAIGN_DUPLICATE"
	AuditActionAssignmentAdd      = "ASSIGNMENT_ADD"
	AuditActionAssignmentRemove   = "ASSIGNMENT_REMOVE"
	AuditActionAssignmentUpdate   = "ASSIGNMENT_UPDATE"
	AuditActionReminderSent       = "REMINDER_SENT"
	AuditActionReconcileSweep     = "RECONCILE_SWEEP"
	AuditActionAdapterFailure     = "ADAPTER_FAILURE"
)

// AuditLog is an append-only trail record. The core never deletes entries.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	TenantID   string    `db:"tenant_id" json:"tenant_id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	Details    []byte    `db:"details" json:"details,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
