package models

import "time"

// CalendarEntry is the uniform projection of a campaign on the unified
// calendar, spanning both families.
type CalendarEntry struct {
	ID           string         `json:"id"`
	Family       CampaignFamily `json:"family"`
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	TemplateName string         `json:"template_name"`
	StartDate    time.Time      `json:"start_date"`
	EndDate      time.Time      `json:"end_date"`
	Status       CampaignStatus `json:"status"`
	Frequency    Frequency      `json:"frequency"`
	Progress     float64        `json:"progress"`
	Stats        CampaignStats  `json:"stats"`
	Assignments  []Assignment   `json:"assignments,omitempty"`
}

// CalendarFilter narrows the unified range query.
type CalendarFilter struct {
	TenantID         string
	StartDate        time.Time
	EndDate          time.Time
	IncludeCompleted bool
	EmployeeID       int64
	Page             int
	PageSize         int
}

// CalendarPeriod selects the stats aggregation window.
type CalendarPeriod string

const (
	PeriodWeek    CalendarPeriod = "week"
	PeriodMonth   CalendarPeriod = "month"
	PeriodQuarter CalendarPeriod = "quarter"
	PeriodYear    CalendarPeriod = "year"
)

// Valid reports whether the period is recognised.
func (p CalendarPeriod) Valid() bool {
	switch p {
	case PeriodWeek, PeriodMonth, PeriodQuarter, PeriodYear:
		return true
	}
	return false
}

// CalendarStats aggregates counts by status per family plus totals.
type CalendarStats struct {
	Period    CalendarPeriod                            `json:"period"`
	ByFamily  map[CampaignFamily]map[CampaignStatus]int `json:"by_family"`
	ActiveNow int                                       `json:"active_now"`
	Upcoming  int                                       `json:"upcoming"`
	Generated time.Time                                 `json:"generated_at"`
}
