package models

import (
	"fmt"
	"time"
)

// Conflict severities and kinds emitted by the detector.
const (
	ConflictSeverityError   = "error"
	ConflictSeverityWarning = "warning"

	ConflictKindDuplicate         = "duplicate"
	ConflictKindOverlap           = "overlap"
	ConflictKindOverload          = "overload"
	ConflictKindCognitiveOverload = "cognitive_overload"
)

// Conflict describes one collision between a candidate window and an
// existing assignment.
type Conflict struct {
	EmployeeID   int64          `json:"employee_id"`
	CampaignID   string         `json:"campaign_id"`
	CampaignName string         `json:"campaign_name"`
	Family       CampaignFamily `json:"family"`
	TemplateType string         `json:"template_type,omitempty"`
	Kind         string         `json:"kind"`
	Severity     string         `json:"severity"`
	StartDate    time.Time      `json:"start_date"`
	EndDate      time.Time      `json:"end_date"`
	Message      string         `json:"message"`
}

// ConflictWarning is a non-blocking advisory attached to successful results.
type ConflictWarning struct {
	EmployeeID  int64  `json:"employee_id"`
	Kind        string `json:"kind"`
	Message     string `json:"message"`
	LoadMinutes int    `json:"load_minutes,omitempty"`
}

// ConflictSuggestions carries remediation proposals.
type ConflictSuggestions struct {
	SkipEmployeeIDs []int64 `json:"skip_employee_ids,omitempty"`
	ShiftStartDays  int     `json:"shift_start_days,omitempty"`
	ExtendEndDays   int     `json:"extend_end_days,omitempty"`
}

// ConflictSummary aggregates the report.
type ConflictSummary struct {
	ErrorCount        int `json:"error_count"`
	WarningCount      int `json:"warning_count"`
	EmployeesAffected int `json:"employees_affected"`
}

// ConflictReport is the full detector output. For identical inputs the
// report is stable: conflicts and warnings are ordered by
// (employee_id, campaign_id) ascending.
type ConflictReport struct {
	Conflicts   []Conflict          `json:"conflicts"`
	Warnings    []ConflictWarning   `json:"warnings"`
	Suggestions ConflictSuggestions `json:"suggestions"`
	Summary     ConflictSummary     `json:"summary"`
}

// HasErrors reports whether any conflict carries error severity.
func (r *ConflictReport) HasErrors() bool {
	for _, c := range r.Conflicts {
		if c.Severity == ConflictSeverityError {
			return true
		}
	}
	return false
}

// ConflictDetectedError carries the detector report through the error chain
// so handlers can attach it as response details.
type ConflictDetectedError struct {
	Report *ConflictReport
}

// Error implements the error interface.
func (e *ConflictDetectedError) Error() string {
	if e == nil || e.Report == nil {
		return "conflicts detected"
	}
	return fmt.Sprintf("conflicts detected: %d errors, %d warnings", e.Report.Summary.ErrorCount, e.Report.Summary.WarningCount)
}

// CampaignSnapshot is one existing campaign with the candidate employees it
// already covers, as loaded for conflict evaluation.
type CampaignSnapshot struct {
	CampaignID    string           `db:"campaign_id"`
	Name          string           `db:"name"`
	Family        CampaignFamily   `db:"family"`
	Status        CampaignStatus   `db:"status"`
	TemplateType  string           `db:"template_type"`
	QuestionCount int              `db:"question_count"`
	Mandatory     bool             `db:"mandatory"`
	StartDate     time.Time        `db:"start_date"`
	EndDate       time.Time        `db:"end_date"`
	EmployeeID    int64            `db:"employee_id"`
	AssignmentSt  AssignmentStatus `db:"assignment_status"`
}
