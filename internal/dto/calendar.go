package dto

import (
	"time"

	"github.com/noah-isme/hcm-campaign-api/internal/models"
)

// CalendarQuery bounds the unified range query.
type CalendarQuery struct {
	Start            string `form:"start" validate:"required"`
	End              string `form:"end" validate:"required"`
	IncludeCompleted bool   `form:"include_completed"`
	EmployeeID       int64  `form:"employee_id"`
	Page             int    `form:"page,default=1"`
	Limit            int    `form:"limit,default=50"`
}

// CalendarStatsQuery selects the aggregation period.
type CalendarStatsQuery struct {
	Period string `form:"period,default=month"`
}

// CalendarRescheduleRequest is the drag-drop reschedule payload. It names
// the family explicitly because the calendar spans both.
type CalendarRescheduleRequest struct {
	CampaignID     string                `json:"campaign_id" validate:"required"`
	Family         models.CampaignFamily `json:"family" validate:"required"`
	StartDate      time.Time             `json:"start_date" validate:"required"`
	EndDate        time.Time             `json:"end_date" validate:"required"`
	CheckConflicts bool                  `json:"check_conflicts"`
}

// CalendarCheckConflictsRequest runs the cross-family detector from the
// calendar surface.
type CalendarCheckConflictsRequest struct {
	EmployeeIDs       []int64   `json:"employee_ids" validate:"required,min=1,dive,gt=0"`
	StartDate         time.Time `json:"start_date" validate:"required"`
	EndDate           time.Time `json:"end_date" validate:"required"`
	ExcludeCampaignID string    `json:"exclude_campaign_id,omitempty"`
}
