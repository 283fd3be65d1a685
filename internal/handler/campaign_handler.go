package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hcm-campaign-api/internal/adapter"
	"github.com/noah-isme/hcm-campaign-api/internal/dto"
	"github.com/noah-isme/hcm-campaign-api/internal/models"
	"github.com/noah-isme/hcm-campaign-api/internal/service"
	appErrors "github.com/noah-isme/hcm-campaign-api/pkg/errors"
	"github.com/noah-isme/hcm-campaign-api/pkg/response"
)

// CampaignHandler serves campaign lifecycle endpoints for both families.
type CampaignHandler struct {
	campaigns   *service.CampaignService
	assignments *service.AssignmentService
	pdf         *adapter.PDFRenderer
	analytics   *adapter.AnalyticsEmitter
}

// NewCampaignHandler constructs the handler.
func NewCampaignHandler(
	campaigns *service.CampaignService,
	assignments *service.AssignmentService,
	pdf *adapter.PDFRenderer,
	analytics *adapter.AnalyticsEmitter,
) *CampaignHandler {
	return &CampaignHandler{
		campaigns:   campaigns,
		assignments: assignments,
		pdf:         pdf,
		analytics:   analytics,
	}
}

// respondError renders an error, attaching the conflict report as details
// when one travelled with it.
func respondError(c *gin.Context, err error) {
	var conflictErr *models.ConflictDetectedError
	if errors.As(err, &conflictErr) && conflictErr.Report != nil {
		response.ErrorWithDetails(c, err, conflictErr.Report)
		return
	}
	response.Error(c, err)
}

// List godoc
// @Summary List campaigns of one family
// @Tags Campaigns
// @Produce json
// @Param family path string true "Campaign family" Enums(assessments, engagements)
// @Param status query string false "Filter by status"
// @Param template_id query string false "Filter by template"
// @Param search query string false "Name search"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /campaigns/{family} [get]
func (h *CampaignHandler) List(c *gin.Context) {
	family := familyFromPath(c)
	if family == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown campaign family"))
		return
	}
	var query dto.CampaignQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	filter := models.CampaignFilter{
		TenantID:   tenantFromContext(c),
		Family:     family,
		Status:     models.CampaignStatus(query.Status),
		TemplateID: query.TemplateID,
		Search:     query.Search,
		Page:       query.Page,
		PageSize:   query.Limit,
	}
	campaigns, total, err := h.campaigns.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, campaigns, models.NewPagination(query.Page, query.Limit, total))
}

// Get godoc
// @Summary Get one campaign with stats
// @Tags Campaigns
// @Produce json
// @Param family path string true "Campaign family"
// @Param id path string true "Campaign ID"
// @Success 200 {object} response.Envelope
// @Router /campaigns/{family}/{id} [get]
func (h *CampaignHandler) Get(c *gin.Context) {
	campaign, err := h.campaigns.Get(c.Request.Context(), tenantFromContext(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, campaign, nil)
}

// Create godoc
// @Summary Create a campaign with its initial assignments
// @Tags Campaigns
// @Accept json
// @Produce json
// @Param family path string true "Campaign family"
// @Param payload body dto.CreateCampaignRequest true "Campaign payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope "Conflict report under details"
// @Router /campaigns/{family} [post]
func (h *CampaignHandler) Create(c *gin.Context) {
	family := familyFromPath(c)
	if family == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown campaign family"))
		return
	}
	var req dto.CreateCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	tenantID := tenantFromContext(c)
	result, err := h.campaigns.Create(c.Request.Context(), tenantID, family, req, actorFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}
	h.emit(c, tenantID, "campaign.created", result.Campaign.ID)
	if len(result.Warnings) > 0 {
		response.JSONWithWarnings(c, http.StatusCreated, result.Campaign, result.Warnings)
		return
	}
	response.Created(c, result.Campaign)
}

// Delete godoc
// @Summary Delete a campaign without responses or started assignments
// @Tags Campaigns
// @Param family path string true "Campaign family"
// @Param id path string true "Campaign ID"
// @Success 204
// @Router /campaigns/{family}/{id} [delete]
func (h *CampaignHandler) Delete(c *gin.Context) {
	tenantID := tenantFromContext(c)
	if err := h.campaigns.Delete(c.Request.Context(), tenantID, c.Param("id"), actorFromContext(c)); err != nil {
		respondError(c, err)
		return
	}
	h.emit(c, tenantID, "campaign.deleted", c.Param("id"))
	response.NoContent(c)
}

// UpdateStatus godoc
// @Summary Move a campaign through its state machine
// @Tags Campaigns
// @Accept json
// @Produce json
// @Param family path string true "Campaign family"
// @Param id path string true "Campaign ID"
// @Param payload body dto.UpdateCampaignStatusRequest true "New status"
// @Success 200 {object} response.Envelope
// @Router /campaigns/{family}/{id}/status [patch]
func (h *CampaignHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateCampaignStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	tenantID := tenantFromContext(c)
	campaign, err := h.campaigns.UpdateStatus(c.Request.Context(), tenantID, c.Param("id"), req.Status, actorFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}
	h.emit(c, tenantID, "campaign.status_changed", campaign.ID)
	response.JSON(c, http.StatusOK, campaign, nil)
}

// Notify godoc
// @Summary Queue reminders for a campaign's eligible assignments
// @Tags Campaigns
// @Produce json
// @Param family path string true "Campaign family"
// @Param id path string true "Campaign ID"
// @Success 200 {object} response.Envelope
// @Router /campaigns/{family}/{id}/notify [post]
func (h *CampaignHandler) Notify(c *gin.Context) {
	queued, err := h.assignments.NotifyCampaign(c.Request.Context(), tenantFromContext(c), c.Param("id"), actorFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"queued": queued}, nil)
}

// Stats godoc
// @Summary Assignment progress summary for one campaign
// @Tags Campaigns
// @Produce json
// @Param family path string true "Campaign family"
// @Param id path string true "Campaign ID"
// @Success 200 {object} response.Envelope
// @Router /campaigns/{family}/{id}/stats [get]
func (h *CampaignHandler) Stats(c *gin.Context) {
	stats, err := h.campaigns.Stats(c.Request.Context(), tenantFromContext(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Duplicate godoc
// @Summary Copy a campaign under a new name
// @Tags Campaigns
// @Accept json
// @Produce json
// @Param family path string true "Campaign family"
// @Param id path string true "Campaign ID"
// @Param payload body dto.DuplicateCampaignRequest true "Duplicate payload"
// @Success 201 {object} response.Envelope
// @Router /campaigns/{family}/{id}/duplicate [post]
func (h *CampaignHandler) Duplicate(c *gin.Context) {
	var req dto.DuplicateCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	tenantID := tenantFromContext(c)
	campaign, err := h.campaigns.Duplicate(c.Request.Context(), tenantID, c.Param("id"), req, actorFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}
	h.emit(c, tenantID, "campaign.duplicated", campaign.ID)
	response.Created(c, campaign)
}

// Clone godoc
// @Summary Copy a campaign with a shifted window
// @Tags Campaigns
// @Accept json
// @Produce json
// @Param family path string true "Campaign family"
// @Param id path string true "Campaign ID"
// @Param payload body dto.CloneCampaignRequest true "Clone payload"
// @Success 201 {object} response.Envelope
// @Router /campaigns/{family}/{id}/clone [post]
func (h *CampaignHandler) Clone(c *gin.Context) {
	var req dto.CloneCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	tenantID := tenantFromContext(c)
	campaign, err := h.campaigns.CloneWithShift(c.Request.Context(), tenantID, c.Param("id"), req, actorFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}
	h.emit(c, tenantID, "campaign.cloned", campaign.ID)
	response.Created(c, campaign)
}

// Reschedule godoc
// @Summary Rewrite the campaign window
// @Tags Campaigns
// @Accept json
// @Produce json
// @Param family path string true "Campaign family"
// @Param id path string true "Campaign ID"
// @Param payload body dto.RescheduleCampaignRequest true "Reschedule payload"
// @Success 200 {object} response.Envelope
// @Router /campaigns/{family}/{id}/reschedule [patch]
func (h *CampaignHandler) Reschedule(c *gin.Context) {
	var req dto.RescheduleCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	tenantID := tenantFromContext(c)
	campaign, err := h.campaigns.Reschedule(c.Request.Context(), tenantID, c.Param("id"), req, actorFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}
	h.emit(c, tenantID, "campaign.rescheduled", campaign.ID)
	response.JSON(c, http.StatusOK, campaign, nil)
}

// CheckConflicts godoc
// @Summary Dry-run the conflict detector for one family
// @Tags Campaigns
// @Accept json
// @Produce json
// @Param family path string true "Campaign family"
// @Param payload body dto.CheckConflictsRequest true "Candidate window"
// @Success 200 {object} response.Envelope
// @Router /campaigns/{family}/check-conflicts [post]
func (h *CampaignHandler) CheckConflicts(c *gin.Context) {
	family := familyFromPath(c)
	if family == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown campaign family"))
		return
	}
	var req dto.CheckConflictsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	report, err := h.campaigns.CheckConflicts(c.Request.Context(), tenantFromContext(c), family, req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// ExportPDF godoc
// @Summary Download a campaign summary PDF
// @Tags Campaigns
// @Produce application/pdf
// @Param family path string true "Campaign family"
// @Param id path string true "Campaign ID"
// @Success 200 {file} binary
// @Router /campaigns/{family}/{id}/export/pdf [get]
func (h *CampaignHandler) ExportPDF(c *gin.Context) {
	tenantID := tenantFromContext(c)
	campaign, err := h.campaigns.Get(c.Request.Context(), tenantID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	assignments, _, err := h.assignments.ListByCampaign(c.Request.Context(), models.AssignmentFilter{
		TenantID:   tenantID,
		CampaignID: campaign.ID,
		PageSize:   500,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	document, err := h.pdf.RenderCampaignSummary(campaign.CampaignDetail, campaign.Stats, assignments)
	if err != nil {
		respondError(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "failed to render pdf"))
		return
	}
	filename := fmt.Sprintf("campaign-%s.pdf", campaign.ID)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", document)
}

func (h *CampaignHandler) emit(c *gin.Context, tenantID, event, campaignID string) {
	if h.analytics == nil {
		return
	}
	h.analytics.Emit(c.Request.Context(), adapter.AnalyticsEvent{
		TenantID:   tenantID,
		Event:      event,
		CampaignID: campaignID,
		Actor:      actorFromContext(c),
	})
}
