package dto

import "github.com/noah-isme/hcm-campaign-api/internal/models"

// AddAssignmentsRequest bulk-adds employees to a campaign.
type AddAssignmentsRequest struct {
	EmployeeIDs []int64 `json:"employee_ids" validate:"required,min=1,dive,gt=0"`
}

// UpdateAssignmentStatusRequest moves one assignment through its lifecycle.
type UpdateAssignmentStatusRequest struct {
	Status models.AssignmentStatus `json:"status" validate:"required"`
}

// BulkAssignmentAction enumerates supported bulk operations.
type BulkAssignmentAction string

const (
	BulkActionUpdateStatus BulkAssignmentAction = "update_status"
	BulkActionCancel       BulkAssignmentAction = "cancel"
	BulkActionRemind       BulkAssignmentAction = "remind"
)

// BulkAssignmentRequest applies one action to many assignments. Partial
// success is permitted; the response lists successes and failures.
type BulkAssignmentRequest struct {
	AssignmentIDs []string                `json:"assignment_ids" validate:"required,min=1"`
	Action        BulkAssignmentAction    `json:"action" validate:"required"`
	Status        models.AssignmentStatus `json:"status,omitempty"`
}

// BulkAssignmentFailure describes one failed item in a bulk request.
type BulkAssignmentFailure struct {
	AssignmentID string `json:"assignment_id"`
	Code         string `json:"code"`
	Message      string `json:"message"`
}

// BulkAssignmentResult reports the bulk outcome.
type BulkAssignmentResult struct {
	Succeeded []string                `json:"succeeded"`
	Failed    []BulkAssignmentFailure `json:"failed"`
}

// AssignmentQuery holds list filters bound from the query string.
type AssignmentQuery struct {
	Status string `form:"status"`
	Page   int    `form:"page,default=1"`
	Limit  int    `form:"limit,default=20"`
}
