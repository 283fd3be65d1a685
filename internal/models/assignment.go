package models

import "time"

// AssignmentStatus is the per-employee lifecycle state inside a campaign.
type AssignmentStatus string

const (
	AssignmentAssigned   AssignmentStatus = "ASSIGNED"
	AssignmentInProgress AssignmentStatus = "IN_PROGRESS"
	AssignmentCompleted  AssignmentStatus = "COMPLETED"
	AssignmentExpired    AssignmentStatus = "EXPIRED"
	AssignmentCancelled  AssignmentStatus = "CANCELLED"
)

// Terminal reports whether the assignment can no longer change state.
func (s AssignmentStatus) Terminal() bool {
	return s == AssignmentCompleted || s == AssignmentExpired || s == AssignmentCancelled
}

var assignmentTransitions = map[AssignmentStatus][]AssignmentStatus{
	AssignmentAssigned:   {AssignmentInProgress, AssignmentExpired, AssignmentCancelled},
	AssignmentInProgress: {AssignmentCompleted, AssignmentExpired},
}

// CanTransitionAssignment reports whether an assignment status move is legal.
func CanTransitionAssignment(from, to AssignmentStatus) bool {
	for _, allowed := range assignmentTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Assignment is the per-employee slot within a campaign. The
// (campaign_id, employee_id) pair is unique.
type Assignment struct {
	ID             string           `db:"id" json:"id"`
	TenantID       string           `db:"tenant_id" json:"tenant_id"`
	CampaignID     string           `db:"campaign_id" json:"campaign_id"`
	EmployeeID     int64            `db:"employee_id" json:"employee_id"`
	Status         AssignmentStatus `db:"status" json:"status"`
	AssignedBy     string           `db:"assigned_by" json:"assigned_by"`
	AssignedAt     time.Time        `db:"assigned_at" json:"assigned_at"`
	LastReminderAt *time.Time       `db:"last_reminder_at" json:"last_reminder_at,omitempty"`
	ReminderCount  int              `db:"reminder_count" json:"reminder_count"`
	LastAccessedAt *time.Time       `db:"last_accessed_at" json:"last_accessed_at,omitempty"`
	CompletedAt    *time.Time       `db:"completed_at" json:"completed_at,omitempty"`
}

// AssignmentDetail enriches an assignment with employee descriptors.
type AssignmentDetail struct {
	Assignment
	EmployeeName  string `db:"employee_name" json:"employee_name"`
	EmployeeEmail string `db:"employee_email" json:"employee_email"`
}

// AssignmentFilter narrows assignment list queries.
type AssignmentFilter struct {
	TenantID   string
	CampaignID string
	EmployeeID int64
	Status     AssignmentStatus
	Page       int
	PageSize   int
}

// ReminderCandidate is an assignment eligible for a reminder, joined with
// the campaign reminder settings needed to deliver it.
type ReminderCandidate struct {
	AssignmentID   string                 `db:"assignment_id" json:"assignment_id"`
	CampaignID     string                 `db:"campaign_id" json:"campaign_id"`
	CampaignName   string                 `db:"campaign_name" json:"campaign_name"`
	TenantID       string                 `db:"tenant_id" json:"tenant_id"`
	EmployeeID     int64                  `db:"employee_id" json:"employee_id"`
	ReminderCount  int                    `db:"reminder_count" json:"reminder_count"`
	LastReminderAt *time.Time             `db:"last_reminder_at" json:"last_reminder_at,omitempty"`
	Settings       ReminderSettingsColumn `db:"reminder_settings" json:"settings"`
}

// DuplicateAssignment flags an employee holding more than one non-terminal
// assignment over overlapping windows. Surfaced by the integrity sweep,
// never auto-resolved.
type DuplicateAssignment struct {
	TenantID   string `db:"tenant_id" json:"tenant_id"`
	EmployeeID int64  `db:"employee_id" json:"employee_id"`
	Count      int    `db:"count" json:"count"`
}
