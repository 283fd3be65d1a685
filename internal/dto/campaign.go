package dto

import (
	"time"

	"github.com/noah-isme/hcm-campaign-api/internal/models"
)

// CreateCampaignRequest is the shared create payload for both families.
// Family-specific flags are optional and validated per family by the
// lifecycle engine.
type CreateCampaignRequest struct {
	TemplateID  string           `json:"template_id" validate:"required"`
	Name        string           `json:"name" validate:"required,min=3,max=200"`
	Description string           `json:"description" validate:"max=2000"`
	EmployeeIDs []int64          `json:"employee_ids" validate:"required,min=1,dive,gt=0"`
	StartDate   time.Time        `json:"start_date" validate:"required"`
	EndDate     time.Time        `json:"end_date" validate:"required"`
	Frequency   models.Frequency `json:"frequency" validate:"required"`

	Mandatory    *bool `json:"mandatory,omitempty"`
	AllowRetakes *bool `json:"allow_retakes,omitempty"`
	MaxAttempts  *int  `json:"max_attempts,omitempty" validate:"omitempty,gt=0"`

	AnonymousResponses *bool                    `json:"anonymous_responses,omitempty"`
	ReminderSettings   *models.ReminderSettings `json:"reminder_settings,omitempty"`

	CheckConflicts bool `json:"check_conflicts"`
}

// CampaignQuery holds list filters bound from the query string.
type CampaignQuery struct {
	Status     string `form:"status"`
	TemplateID string `form:"template_id"`
	Search     string `form:"search"`
	Page       int    `form:"page,default=1"`
	Limit      int    `form:"limit,default=20"`
}

// UpdateCampaignStatusRequest moves a campaign through its state machine.
type UpdateCampaignStatusRequest struct {
	Status models.CampaignStatus `json:"status" validate:"required"`
}

// DuplicateCampaignRequest copies a campaign under a new name.
type DuplicateCampaignRequest struct {
	Name               string `json:"name" validate:"required,min=3,max=200"`
	IncludeAssignments bool   `json:"include_assignments"`
}

// CloneCampaignRequest copies a campaign with its window shifted by a whole
// number of days, which may be negative.
type CloneCampaignRequest struct {
	Name               string `json:"name" validate:"required,min=3,max=200"`
	DayShift           int    `json:"day_shift"`
	IncludeAssignments bool   `json:"include_assignments"`
}

// RescheduleCampaignRequest rewrites the campaign window.
type RescheduleCampaignRequest struct {
	StartDate      time.Time `json:"start_date" validate:"required"`
	EndDate        time.Time `json:"end_date" validate:"required"`
	CheckConflicts bool      `json:"check_conflicts"`
}

// CheckConflictsRequest runs the detector without persisting anything.
type CheckConflictsRequest struct {
	EmployeeIDs       []int64   `json:"employee_ids" validate:"required,min=1,dive,gt=0"`
	StartDate         time.Time `json:"start_date" validate:"required"`
	EndDate           time.Time `json:"end_date" validate:"required"`
	AssessmentType    string    `json:"assessment_type,omitempty"`
	ExcludeCampaignID string    `json:"exclude_campaign_id,omitempty"`
}

// CampaignResponse is the enriched read shape returned by get endpoints.
type CampaignResponse struct {
	models.CampaignDetail
	Stats models.CampaignStats `json:"stats"`
}

// CreateCampaignResult pairs the created campaign with detector warnings.
type CreateCampaignResult struct {
	Campaign *models.Campaign         `json:"campaign"`
	Warnings []models.ConflictWarning `json:"-"`
}
