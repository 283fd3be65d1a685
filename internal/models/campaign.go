package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// CampaignFamily distinguishes the two campaign kinds sharing one table.
type CampaignFamily string

const (
	FamilyAssessment CampaignFamily = "assessment"
	FamilyEngagement CampaignFamily = "engagement"
)

// Valid reports whether the family is one of the two known tags.
func (f CampaignFamily) Valid() bool {
	return f == FamilyAssessment || f == FamilyEngagement
}

// CampaignStatus is the lifecycle state of a campaign.
type CampaignStatus string

const (
	CampaignPlanned    CampaignStatus = "PLANNED"
	CampaignActive     CampaignStatus = "ACTIVE"
	CampaignInProgress CampaignStatus = "IN_PROGRESS"
	CampaignPaused     CampaignStatus = "PAUSED"
	CampaignCompleted  CampaignStatus = "COMPLETED"
	CampaignArchived   CampaignStatus = "ARCHIVED"
	CampaignCancelled  CampaignStatus = "CANCELLED"
)

// NonTerminalCampaignStatuses are states still eligible for scheduling and
// conflict evaluation.
var NonTerminalCampaignStatuses = []CampaignStatus{
	CampaignPlanned, CampaignActive, CampaignInProgress, CampaignPaused,
}

// Terminal reports whether no further transitions are allowed out of s,
// ARCHIVED being reachable from COMPLETED only.
func (s CampaignStatus) Terminal() bool {
	return s == CampaignArchived || s == CampaignCancelled
}

// Frequency is the recurrence cadence recorded on a campaign.
type Frequency string

const (
	FrequencyOnce      Frequency = "once"
	FrequencyWeekly    Frequency = "weekly"
	FrequencyBiweekly  Frequency = "biweekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyAnnually  Frequency = "annually"
)

// Valid reports whether the frequency is a known cadence.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyOnce, FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly, FrequencyQuarterly, FrequencyAnnually:
		return true
	}
	return false
}

// ReminderSettings configures engagement reminder cadence. Stored as JSONB.
type ReminderSettings struct {
	Enabled       bool     `json:"enabled"`
	FrequencyDays int      `json:"frequency_days"`
	Channels      []string `json:"channels"`
	CustomMessage string   `json:"custom_message,omitempty"`
}

// ReminderSettingsColumn is the nullable JSONB column wrapper for reminder
// settings; assessment campaigns store NULL.
type ReminderSettingsColumn struct {
	Valid    bool
	Settings ReminderSettings
}

// Value implements driver.Valuer.
func (r ReminderSettingsColumn) Value() (driver.Value, error) {
	if !r.Valid {
		return nil, nil
	}
	return json.Marshal(r.Settings)
}

// Scan implements sql.Scanner.
func (r *ReminderSettingsColumn) Scan(src interface{}) error {
	if src == nil {
		r.Valid = false
		return nil
	}
	if err := scanJSON(src, &r.Settings); err != nil {
		return err
	}
	r.Valid = true
	return nil
}

// MarshalJSON renders NULL columns as JSON null.
func (r ReminderSettingsColumn) MarshalJSON() ([]byte, error) {
	if !r.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(r.Settings)
}

// UnmarshalJSON accepts either null or a settings object.
func (r *ReminderSettingsColumn) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		r.Valid = false
		return nil
	}
	if err := json.Unmarshal(data, &r.Settings); err != nil {
		return err
	}
	r.Valid = true
	return nil
}

// TargetAudience snapshots the employee selection at campaign creation.
type TargetAudience struct {
	EmployeeIDs []int64   `json:"employee_ids"`
	TotalCount  int       `json:"total_count"`
	SelectedAt  time.Time `json:"selected_at"`
}

// Value implements driver.Valuer.
func (t TargetAudience) Value() (driver.Value, error) {
	return json.Marshal(t)
}

// Scan implements sql.Scanner.
func (t *TargetAudience) Scan(src interface{}) error {
	return scanJSON(src, t)
}

func scanJSON(src, dst interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("unsupported jsonb source type %T", src)
	}
}

// Campaign is a time-bounded instantiation of a template assigned to a set
// of employees. Both families share this shape; family-specific flags are
// nullable and only populated for their own family.
type Campaign struct {
	ID          string         `db:"id" json:"id"`
	TenantID    string         `db:"tenant_id" json:"tenant_id"`
	Family      CampaignFamily `db:"family" json:"family"`
	TemplateID  string         `db:"template_id" json:"template_id"`
	Name        string         `db:"name" json:"name"`
	Description string         `db:"description" json:"description"`
	StartDate   time.Time      `db:"start_date" json:"start_date"`
	EndDate     time.Time      `db:"end_date" json:"end_date"`
	Status      CampaignStatus `db:"status" json:"status"`
	Frequency   Frequency      `db:"frequency" json:"frequency"`

	// Assessment-only flags.
	Mandatory    *bool `db:"mandatory" json:"mandatory,omitempty"`
	AllowRetakes *bool `db:"allow_retakes" json:"allow_retakes,omitempty"`
	MaxAttempts  *int  `db:"max_attempts" json:"max_attempts,omitempty"`

	// Engagement-only flags.
	AnonymousResponses *bool                  `db:"anonymous_responses" json:"anonymous_responses,omitempty"`
	ReminderSettings   ReminderSettingsColumn `db:"reminder_settings" json:"reminder_settings"`

	TargetAudience TargetAudience `db:"target_audience" json:"target_audience"`

	CreatedBy    string     `db:"created_by" json:"created_by"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
	ArchivedAt   *time.Time `db:"archived_at" json:"archived_at,omitempty"`
	HasResponses bool       `db:"has_responses" json:"has_responses"`
}

// CampaignDetail enriches a campaign with template descriptors for reads.
type CampaignDetail struct {
	Campaign
	TemplateName     string `db:"template_name" json:"template_name"`
	TemplateType     string `db:"template_type" json:"template_type"`
	QuestionCount    int    `db:"question_count" json:"question_count"`
	AssignmentsTotal int    `db:"assignments_total" json:"assignments_total"`
	ResponseCount    int    `db:"response_count" json:"response_count"`
}

// CampaignFilter narrows campaign list queries. TenantID is mandatory and is
// composed at the tenancy gate, never here.
type CampaignFilter struct {
	TenantID   string
	Family     CampaignFamily
	Status     CampaignStatus
	TemplateID string
	Search     string
	Page       int
	PageSize   int
}

// CampaignStats summarises assignment progress for one campaign.
type CampaignStats struct {
	TotalAssignments int                      `json:"total_assignments"`
	ByStatus         map[AssignmentStatus]int `json:"by_status"`
	ResponseCount    int                      `json:"response_count"`
	QuestionCount    int                      `json:"question_count"`
	CompletionRate   float64                  `json:"completion_rate"`
}

// campaignTransitions enumerates legal status moves per family. Time guards
// (start reached, end passed, archive age) are enforced by the lifecycle
// engine on top of this table.
var campaignTransitions = map[CampaignFamily]map[CampaignStatus][]CampaignStatus{
	FamilyAssessment: {
		CampaignPlanned:   {CampaignActive, CampaignCancelled},
		CampaignActive:    {CampaignCompleted, CampaignCancelled},
		CampaignCompleted: {CampaignArchived},
	},
	FamilyEngagement: {
		CampaignPlanned:    {CampaignActive, CampaignCancelled},
		CampaignActive:     {CampaignInProgress, CampaignPaused, CampaignCompleted, CampaignCancelled},
		CampaignInProgress: {CampaignActive, CampaignPaused, CampaignCompleted, CampaignCancelled},
		CampaignPaused:     {CampaignActive, CampaignCompleted, CampaignCancelled},
		CampaignCompleted:  {CampaignArchived},
	},
}

// CanTransition reports whether moving from one status to another is legal
// for the family.
func CanTransition(family CampaignFamily, from, to CampaignStatus) bool {
	table, ok := campaignTransitions[family]
	if !ok {
		return false
	}
	for _, allowed := range table[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
