package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hcm-campaign-api/internal/dto"
	"github.com/noah-isme/hcm-campaign-api/internal/models"
	"github.com/noah-isme/hcm-campaign-api/internal/service"
	appErrors "github.com/noah-isme/hcm-campaign-api/pkg/errors"
	"github.com/noah-isme/hcm-campaign-api/pkg/response"
)

// CalendarHandler serves the unified cross-family calendar.
type CalendarHandler struct {
	calendar *service.CalendarService
}

// NewCalendarHandler constructs the handler.
func NewCalendarHandler(calendar *service.CalendarService) *CalendarHandler {
	return &CalendarHandler{calendar: calendar}
}

// Range godoc
// @Summary Campaigns of both families intersecting a window
// @Tags Calendar
// @Produce json
// @Param start query string true "Window start (RFC 3339 or YYYY-MM-DD)"
// @Param end query string true "Window end"
// @Param include_completed query bool false "Include COMPLETED campaigns"
// @Param employee_id query int false "Only campaigns covering this employee"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /calendar [get]
func (h *CalendarHandler) Range(c *gin.Context) {
	var query dto.CalendarQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	start, err := parseDate(query.Start)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid start date"))
		return
	}
	end, err := parseDate(query.End)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid end date"))
		return
	}
	filter := models.CalendarFilter{
		TenantID:         tenantFromContext(c),
		StartDate:        start,
		EndDate:          end,
		IncludeCompleted: query.IncludeCompleted,
		EmployeeID:       query.EmployeeID,
		Page:             query.Page,
		PageSize:         query.Limit,
	}
	entries, total, err := h.calendar.Range(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, models.NewPagination(query.Page, query.Limit, total))
}

// Stats godoc
// @Summary Aggregate campaign counts for the current period
// @Tags Calendar
// @Produce json
// @Param period query string false "week, month, quarter or year" default(month)
// @Success 200 {object} response.Envelope
// @Router /calendar/stats [get]
func (h *CalendarHandler) Stats(c *gin.Context) {
	var query dto.CalendarStatsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	stats, err := h.calendar.Stats(c.Request.Context(), tenantFromContext(c), models.CalendarPeriod(query.Period))
	if err != nil {
		respondError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Reschedule godoc
// @Summary Drag-drop reschedule from the calendar
// @Tags Calendar
// @Accept json
// @Produce json
// @Param payload body dto.CalendarRescheduleRequest true "Reschedule payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope "Conflict report under details"
// @Router /calendar/reschedule [post]
func (h *CalendarHandler) Reschedule(c *gin.Context) {
	var req dto.CalendarRescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	campaign, err := h.calendar.Reschedule(c.Request.Context(), tenantFromContext(c), req, actorFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, campaign, nil)
}

// CheckConflicts godoc
// @Summary Cross-family conflict dry run
// @Tags Calendar
// @Accept json
// @Produce json
// @Param payload body dto.CalendarCheckConflictsRequest true "Candidate window"
// @Success 200 {object} response.Envelope
// @Router /calendar/check-conflicts [post]
func (h *CalendarHandler) CheckConflicts(c *gin.Context) {
	var req dto.CalendarCheckConflictsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	report, err := h.calendar.CheckConflicts(c.Request.Context(), tenantFromContext(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}
