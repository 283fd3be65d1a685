package models

import "time"

// Response is a submission against an assignment. It is owned outside the
// campaign core: the core counts responses and refuses campaign deletion
// while any exist, but never writes or drops them.
type Response struct {
	ID           string    `db:"id" json:"id"`
	TenantID     string    `db:"tenant_id" json:"tenant_id"`
	CampaignID   string    `db:"campaign_id" json:"campaign_id"`
	AssignmentID string    `db:"assignment_id" json:"assignment_id"`
	EmployeeID   int64     `db:"employee_id" json:"employee_id"`
	SubmittedAt  time.Time `db:"submitted_at" json:"submitted_at"`
	Payload      []byte    `db:"payload" json:"payload,omitempty"`
}
