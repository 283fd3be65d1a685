package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hcm-campaign-api/internal/dto"
	"github.com/noah-isme/hcm-campaign-api/internal/models"
	"github.com/noah-isme/hcm-campaign-api/internal/service"
	appErrors "github.com/noah-isme/hcm-campaign-api/pkg/errors"
	"github.com/noah-isme/hcm-campaign-api/pkg/response"
)

// AssignmentHandler serves per-campaign assignment endpoints.
type AssignmentHandler struct {
	assignments *service.AssignmentService
}

// NewAssignmentHandler constructs the handler.
func NewAssignmentHandler(assignments *service.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{assignments: assignments}
}

// ListByCampaign godoc
// @Summary List a campaign's assignments
// @Tags Assignments
// @Produce json
// @Param family path string true "Campaign family"
// @Param id path string true "Campaign ID"
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /campaigns/{family}/{id}/assignments [get]
func (h *AssignmentHandler) ListByCampaign(c *gin.Context) {
	var query dto.AssignmentQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	filter := models.AssignmentFilter{
		TenantID:   tenantFromContext(c),
		CampaignID: c.Param("id"),
		Status:     models.AssignmentStatus(query.Status),
		Page:       query.Page,
		PageSize:   query.Limit,
	}
	assignments, total, err := h.assignments.ListByCampaign(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignments, models.NewPagination(query.Page, query.Limit, total))
}

// ListByEmployee godoc
// @Summary List one employee's assignments across campaigns
// @Tags Assignments
// @Produce json
// @Param employeeId path int true "Employee ID"
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /employees/{employeeId}/assignments [get]
func (h *AssignmentHandler) ListByEmployee(c *gin.Context) {
	employeeID, err := strconv.ParseInt(c.Param("employeeId"), 10, 64)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid employee id"))
		return
	}
	var query dto.AssignmentQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	filter := models.AssignmentFilter{
		TenantID:   tenantFromContext(c),
		EmployeeID: employeeID,
		Status:     models.AssignmentStatus(query.Status),
		Page:       query.Page,
		PageSize:   query.Limit,
	}
	assignments, total, err := h.assignments.ListByEmployee(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignments, models.NewPagination(query.Page, query.Limit, total))
}

// Add godoc
// @Summary Bulk-add employees to a campaign
// @Tags Assignments
// @Accept json
// @Produce json
// @Param family path string true "Campaign family"
// @Param id path string true "Campaign ID"
// @Param payload body dto.AddAssignmentsRequest true "Employee ids"
// @Success 201 {object} response.Envelope
// @Router /campaigns/{family}/{id}/assignments [post]
func (h *AssignmentHandler) Add(c *gin.Context) {
	var req dto.AddAssignmentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	added, err := h.assignments.Add(c.Request.Context(), tenantFromContext(c), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Created(c, added)
}

// Remove godoc
// @Summary Remove an assignment the employee has not touched
// @Tags Assignments
// @Param family path string true "Campaign family"
// @Param id path string true "Campaign ID"
// @Param assignmentId path string true "Assignment ID"
// @Success 204
// @Router /campaigns/{family}/{id}/assignments/{assignmentId} [delete]
func (h *AssignmentHandler) Remove(c *gin.Context) {
	err := h.assignments.Remove(c.Request.Context(), tenantFromContext(c), c.Param("id"), c.Param("assignmentId"), actorFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}
	response.NoContent(c)
}

// UpdateStatus godoc
// @Summary Move one assignment through its lifecycle
// @Tags Assignments
// @Accept json
// @Produce json
// @Param family path string true "Campaign family"
// @Param id path string true "Campaign ID"
// @Param assignmentId path string true "Assignment ID"
// @Param payload body dto.UpdateAssignmentStatusRequest true "New status"
// @Success 200 {object} response.Envelope
// @Router /campaigns/{family}/{id}/assignments/{assignmentId}/status [patch]
func (h *AssignmentHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateAssignmentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	assignment, err := h.assignments.UpdateStatus(c.Request.Context(), tenantFromContext(c), c.Param("id"), c.Param("assignmentId"), req.Status, actorFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignment, nil)
}

// Bulk godoc
// @Summary Apply one action to many assignments
// @Tags Assignments
// @Accept json
// @Produce json
// @Param family path string true "Campaign family"
// @Param id path string true "Campaign ID"
// @Param payload body dto.BulkAssignmentRequest true "Bulk action"
// @Success 200 {object} response.Envelope "Partial success with failures listed"
// @Router /campaigns/{family}/{id}/assignments/bulk [post]
func (h *AssignmentHandler) Bulk(c *gin.Context) {
	var req dto.BulkAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.assignments.Bulk(c.Request.Context(), tenantFromContext(c), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
