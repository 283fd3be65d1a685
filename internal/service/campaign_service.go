package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/hcm-campaign-api/internal/dto"
	"github.com/noah-isme/hcm-campaign-api/internal/models"
	"github.com/noah-isme/hcm-campaign-api/pkg/clock"
	"github.com/noah-isme/hcm-campaign-api/pkg/config"
	appErrors "github.com/noah-isme/hcm-campaign-api/pkg/errors"
)

type campaignStore interface {
	CreateWithAssignments(ctx context.Context, campaign *models.Campaign, assignments []models.Assignment, audit *models.AuditLog) error
	FindByID(ctx context.Context, tenantID, id string) (*models.CampaignDetail, error)
	List(ctx context.Context, filter models.CampaignFilter) ([]models.CampaignDetail, int, error)
	UpdateStatus(ctx context.Context, tenantID, id string, status models.CampaignStatus, audit *models.AuditLog) error
	UpdateWindow(ctx context.Context, tenantID, id string, start, end time.Time, audit *models.AuditLog) error
	Delete(ctx context.Context, tenantID, id string, audit *models.AuditLog) error
	CountResponses(ctx context.Context, tenantID, campaignID string) (int, error)
	CountStartedAssignments(ctx context.Context, tenantID, campaignID string) (int, error)
	StatusCounts(ctx context.Context, tenantID, campaignID string) (map[models.AssignmentStatus]int, error)
	StatusCountsForCampaigns(ctx context.Context, tenantID string, campaignIDs []string) (map[string]map[models.AssignmentStatus]int, error)
}

type templateReader interface {
	FindAccessible(ctx context.Context, tenantID, id string) (*models.Template, error)
	IncrementUsage(ctx context.Context, id string) error
}

type employeeReader interface {
	ActiveIDs(ctx context.Context, tenantID string, ids []int64) ([]int64, error)
}

type conflictChecker interface {
	Check(ctx context.Context, q ConflictQuery) (*models.ConflictReport, error)
}

type assignmentEmployeeReader interface {
	ListEmployeeIDs(ctx context.Context, tenantID, campaignID string) ([]int64, error)
}

// CampaignService is the lifecycle engine for both campaign families.
type CampaignService struct {
	store       campaignStore
	templates   templateReader
	employees   employeeReader
	conflicts   conflictChecker
	assignments assignmentEmployeeReader
	clk         clock.Clock
	cfg         config.CampaignConfig
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewCampaignService constructs the lifecycle engine.
func NewCampaignService(
	store campaignStore,
	templates templateReader,
	employees employeeReader,
	conflicts conflictChecker,
	assignments assignmentEmployeeReader,
	clk clock.Clock,
	cfg config.CampaignConfig,
	validate *validator.Validate,
	logger *zap.Logger,
) *CampaignService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &CampaignService{
		store:       store,
		templates:   templates,
		employees:   employees,
		conflicts:   conflicts,
		assignments: assignments,
		clk:         clk,
		cfg:         cfg,
		validator:   validate,
		logger:      logger,
	}
}

// Create validates the payload, runs the conflict detector and persists the
// campaign with its initial assignments in one transaction. Detector errors
// refuse the create; warnings are returned alongside success.
func (s *CampaignService) Create(ctx context.Context, tenantID string, family models.CampaignFamily, req dto.CreateCampaignRequest, actor string) (*dto.CreateCampaignResult, error) {
	if tenantID == "" {
		return nil, appErrors.ErrTenantMissing
	}
	if !family.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown campaign family")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid campaign payload")
	}
	if !req.Frequency.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown frequency")
	}
	if err := s.validateWindow(req.StartDate, req.EndDate); err != nil {
		return nil, err
	}

	template, err := s.templates.FindAccessible(ctx, tenantID, req.TemplateID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrTemplateNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load template")
	}
	if template.Family != family {
		return nil, appErrors.Clone(appErrors.ErrTemplateNotFound, "template belongs to a different campaign family")
	}

	active, err := s.employees.ActiveIDs(ctx, tenantID, req.EmployeeIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify employees")
	}
	if len(active) != len(dedupe(req.EmployeeIDs)) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "one or more employees are unknown or inactive")
	}

	query := ConflictQuery{
		TenantID:    tenantID,
		EmployeeIDs: active,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Family:      family,
		CrossFamily: req.CheckConflicts,
	}
	if family == models.FamilyAssessment {
		query.AssessmentType = template.Type
	}
	report, err := s.conflicts.Check(ctx, query)
	if err != nil {
		return nil, err
	}
	if report.HasErrors() {
		return nil, appErrors.Wrap(&models.ConflictDetectedError{Report: report},
			appErrors.ErrConflictDetected.Code, appErrors.ErrConflictDetected.Status, appErrors.ErrConflictDetected.Message)
	}

	now := s.clk.Now()
	campaign := &models.Campaign{
		TenantID:    tenantID,
		Family:      family,
		TemplateID:  template.ID,
		Name:        req.Name,
		Description: req.Description,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Status:      models.CampaignPlanned,
		Frequency:   req.Frequency,
		TargetAudience: models.TargetAudience{
			EmployeeIDs: active,
			TotalCount:  len(active),
			SelectedAt:  now,
		},
		CreatedBy: actor,
	}
	switch family {
	case models.FamilyAssessment:
		campaign.Mandatory = req.Mandatory
		campaign.AllowRetakes = req.AllowRetakes
		campaign.MaxAttempts = req.MaxAttempts
	case models.FamilyEngagement:
		campaign.AnonymousResponses = req.AnonymousResponses
		if req.ReminderSettings != nil {
			campaign.ReminderSettings = models.ReminderSettingsColumn{Valid: true, Settings: *req.ReminderSettings}
		}
	}

	assignments := make([]models.Assignment, 0, len(active))
	for _, employeeID := range active {
		assignments = append(assignments, models.Assignment{
			TenantID:   tenantID,
			EmployeeID: employeeID,
			Status:     models.AssignmentAssigned,
			AssignedBy: actor,
		})
	}

	audit := s.auditEntry(tenantID, actor, models.AuditActionCampaignCreate, campaign.Name, map[string]interface{}{
		"family":    string(family),
		"employees": len(active),
	})
	if err := s.store.CreateWithAssignments(ctx, campaign, assignments, audit); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create campaign")
	}

	if err := s.templates.IncrementUsage(ctx, template.ID); err != nil {
		s.logger.Warn("template usage increment failed", zap.String("template_id", template.ID), zap.Error(err))
	}

	return &dto.CreateCampaignResult{Campaign: campaign, Warnings: report.Warnings}, nil
}

// List returns campaigns with per-campaign stats and the unpaged total.
func (s *CampaignService) List(ctx context.Context, filter models.CampaignFilter) ([]dto.CampaignResponse, int, error) {
	if filter.TenantID == "" {
		return nil, 0, appErrors.ErrTenantMissing
	}
	campaigns, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list campaigns")
	}
	ids := make([]string, 0, len(campaigns))
	for _, c := range campaigns {
		ids = append(ids, c.ID)
	}
	counts, err := s.store.StatusCountsForCampaigns(ctx, filter.TenantID, ids)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate assignment stats")
	}
	responses := make([]dto.CampaignResponse, 0, len(campaigns))
	for _, c := range campaigns {
		responses = append(responses, dto.CampaignResponse{
			CampaignDetail: c,
			Stats:          buildStats(c, counts[c.ID]),
		})
	}
	return responses, total, nil
}

// Get returns one campaign with full stats.
func (s *CampaignService) Get(ctx context.Context, tenantID, id string) (*dto.CampaignResponse, error) {
	detail, err := s.loadCampaign(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	counts, err := s.store.StatusCounts(ctx, tenantID, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate assignment stats")
	}
	return &dto.CampaignResponse{CampaignDetail: *detail, Stats: buildStats(*detail, counts)}, nil
}

// Stats returns the assignment progress summary for one campaign.
func (s *CampaignService) Stats(ctx context.Context, tenantID, id string) (*models.CampaignStats, error) {
	resp, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	return &resp.Stats, nil
}

// UpdateStatus moves a campaign through its state machine, enforcing the
// family table plus the time guards.
func (s *CampaignService) UpdateStatus(ctx context.Context, tenantID, id string, newStatus models.CampaignStatus, actor string) (*models.CampaignDetail, error) {
	detail, err := s.loadCampaign(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if !models.CanTransition(detail.Family, detail.Status, newStatus) {
		return nil, appErrors.Clone(appErrors.ErrIllegalTransition,
			fmt.Sprintf("cannot move %s campaign from %s to %s", detail.Family, detail.Status, newStatus))
	}

	now := s.clk.Now()
	switch {
	case newStatus == models.CampaignActive && detail.Status == models.CampaignPlanned && detail.StartDate.After(now):
		return nil, appErrors.Clone(appErrors.ErrIllegalTransition, "campaign cannot activate before its start date")
	case newStatus == models.CampaignCompleted && detail.Status == models.CampaignActive && !detail.EndDate.Before(now):
		return nil, appErrors.Clone(appErrors.ErrIllegalTransition, "campaign cannot complete before its end date")
	case newStatus == models.CampaignArchived && now.Sub(detail.EndDate) < time.Duration(s.cfg.ArchiveAfterDays)*24*time.Hour:
		return nil, appErrors.Clone(appErrors.ErrIllegalTransition,
			fmt.Sprintf("completed campaigns archive only after %d days", s.cfg.ArchiveAfterDays))
	}

	audit := s.auditEntry(tenantID, actor, models.AuditActionCampaignUpdate, id, map[string]interface{}{
		"from": string(detail.Status),
		"to":   string(newStatus),
	})
	if err := s.store.UpdateStatus(ctx, tenantID, id, newStatus, audit); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update campaign status")
	}
	detail.Status = newStatus
	return detail, nil
}

// Delete removes a campaign and its assignments unless responses exist or
// any assignment has started.
func (s *CampaignService) Delete(ctx context.Context, tenantID, id string, actor string) error {
	detail, err := s.loadCampaign(ctx, tenantID, id)
	if err != nil {
		return err
	}

	responses, err := s.store.CountResponses(ctx, tenantID, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count responses")
	}
	if responses > 0 {
		return appErrors.Clone(appErrors.ErrHasResponses,
			fmt.Sprintf("campaign has %d responses and cannot be deleted", responses))
	}

	started, err := s.store.CountStartedAssignments(ctx, tenantID, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count started assignments")
	}
	if started > 0 {
		return appErrors.Clone(appErrors.ErrHasStartedAssignments,
			fmt.Sprintf("campaign has %d assignments beyond ASSIGNED", started))
	}

	audit := s.auditEntry(tenantID, actor, models.AuditActionCampaignDelete, id, map[string]interface{}{
		"name": detail.Name,
	})
	if err := s.store.Delete(ctx, tenantID, id, audit); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete campaign")
	}
	return nil
}

// Duplicate copies a campaign under a new name with a fresh PLANNED status.
// Responses are never copied.
func (s *CampaignService) Duplicate(ctx context.Context, tenantID, id string, req dto.DuplicateCampaignRequest, actor string) (*models.Campaign, error) {
	return s.clone(ctx, tenantID, id, req.Name, 0, req.IncludeAssignments, actor)
}

// CloneWithShift copies a campaign with the window shifted by dayShift days.
func (s *CampaignService) CloneWithShift(ctx context.Context, tenantID, id string, req dto.CloneCampaignRequest, actor string) (*models.Campaign, error) {
	return s.clone(ctx, tenantID, id, req.Name, req.DayShift, req.IncludeAssignments, actor)
}

func (s *CampaignService) clone(ctx context.Context, tenantID, id, newName string, dayShift int, includeAssignments bool, actor string) (*models.Campaign, error) {
	if newName == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "name is required")
	}
	source, err := s.loadCampaign(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	now := s.clk.Now()
	copyCampaign := source.Campaign
	copyCampaign.ID = ""
	copyCampaign.Name = newName
	copyCampaign.Status = models.CampaignPlanned
	copyCampaign.StartDate = clock.AddDays(source.StartDate, dayShift)
	copyCampaign.EndDate = clock.AddDays(source.EndDate, dayShift)
	copyCampaign.CreatedBy = actor
	copyCampaign.CreatedAt = time.Time{}
	copyCampaign.ArchivedAt = nil
	copyCampaign.HasResponses = false

	var assignments []models.Assignment
	if includeAssignments {
		employeeIDs, err := s.assignments.ListEmployeeIDs(ctx, tenantID, id)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load source assignments")
		}
		copyCampaign.TargetAudience = models.TargetAudience{
			EmployeeIDs: employeeIDs,
			TotalCount:  len(employeeIDs),
			SelectedAt:  now,
		}
		for _, employeeID := range employeeIDs {
			assignments = append(assignments, models.Assignment{
				TenantID:   tenantID,
				EmployeeID: employeeID,
				Status:     models.AssignmentAssigned,
				AssignedBy: actor,
			})
		}
	} else {
		copyCampaign.TargetAudience = models.TargetAudience{SelectedAt: now}
	}

	audit := s.auditEntry(tenantID, actor, models.AuditActionCampaignDuplicate, id, map[string]interface{}{
		"new_name":  newName,
		"day_shift": dayShift,
	})
	if err := s.store.CreateWithAssignments(ctx, &copyCampaign, assignments, audit); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to duplicate campaign")
	}
	return &copyCampaign, nil
}

// Reschedule rewrites the campaign window, optionally re-running the
// conflict detector with this campaign excluded.
func (s *CampaignService) Reschedule(ctx context.Context, tenantID, id string, req dto.RescheduleCampaignRequest, actor string) (*models.CampaignDetail, error) {
	detail, err := s.loadCampaign(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if detail.Status == models.CampaignCompleted || detail.Status == models.CampaignArchived {
		return nil, appErrors.Clone(appErrors.ErrIllegalTransition,
			fmt.Sprintf("%s campaigns cannot be rescheduled", detail.Status))
	}
	if err := s.validateWindow(req.StartDate, req.EndDate); err != nil {
		return nil, err
	}

	if req.CheckConflicts {
		employeeIDs, err := s.assignments.ListEmployeeIDs(ctx, tenantID, id)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load campaign assignments")
		}
		if len(employeeIDs) > 0 {
			query := ConflictQuery{
				TenantID:          tenantID,
				EmployeeIDs:       employeeIDs,
				StartDate:         req.StartDate,
				EndDate:           req.EndDate,
				Family:            detail.Family,
				ExcludeCampaignID: id,
			}
			if detail.Family == models.FamilyAssessment {
				query.AssessmentType = detail.TemplateType
			}
			report, err := s.conflicts.Check(ctx, query)
			if err != nil {
				return nil, err
			}
			if report.HasErrors() {
				return nil, appErrors.Wrap(&models.ConflictDetectedError{Report: report},
					appErrors.ErrConflictDetected.Code, appErrors.ErrConflictDetected.Status, appErrors.ErrConflictDetected.Message)
			}
		}
	}

	audit := s.auditEntry(tenantID, actor, models.AuditActionCampaignReschedule, id, map[string]interface{}{
		"start": req.StartDate.Format(time.RFC3339),
		"end":   req.EndDate.Format(time.RFC3339),
	})
	if err := s.store.UpdateWindow(ctx, tenantID, id, req.StartDate, req.EndDate, audit); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reschedule campaign")
	}
	detail.StartDate = req.StartDate
	detail.EndDate = req.EndDate
	return detail, nil
}

// CheckConflicts exposes the detector for dry runs from the API.
func (s *CampaignService) CheckConflicts(ctx context.Context, tenantID string, family models.CampaignFamily, req dto.CheckConflictsRequest) (*models.ConflictReport, error) {
	query := ConflictQuery{
		TenantID:          tenantID,
		EmployeeIDs:       req.EmployeeIDs,
		StartDate:         req.StartDate,
		EndDate:           req.EndDate,
		Family:            family,
		AssessmentType:    req.AssessmentType,
		ExcludeCampaignID: req.ExcludeCampaignID,
	}
	return s.conflicts.Check(ctx, query)
}

func (s *CampaignService) loadCampaign(ctx context.Context, tenantID, id string) (*models.CampaignDetail, error) {
	if tenantID == "" {
		return nil, appErrors.ErrTenantMissing
	}
	detail, err := s.store.FindByID(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "campaign not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load campaign")
	}
	return detail, nil
}

func (s *CampaignService) validateWindow(start, end time.Time) error {
	if !start.Before(end) {
		return appErrors.Clone(appErrors.ErrValidation, "campaign window must start before it ends")
	}
	maxDuration := time.Duration(s.cfg.MaxDurationDays) * 24 * time.Hour
	if s.cfg.MaxDurationDays > 0 && end.Sub(start) > maxDuration {
		return appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("campaign window exceeds %d days", s.cfg.MaxDurationDays))
	}
	if s.cfg.EnforceMinDuration {
		if end.Sub(start) < time.Duration(s.cfg.MinDurationDays)*24*time.Hour {
			return appErrors.Clone(appErrors.ErrValidation,
				fmt.Sprintf("campaign window must span at least %d days", s.cfg.MinDurationDays))
		}
	}
	if s.cfg.EnforceFutureStart {
		if start.Before(clock.StartOfDay(s.clk.Now())) {
			return appErrors.Clone(appErrors.ErrValidation, "campaign cannot start in the past")
		}
	}
	return nil
}

func (s *CampaignService) auditEntry(tenantID, actor, action, resourceID string, details map[string]interface{}) *models.AuditLog {
	payload, _ := json.Marshal(details)
	entry := &models.AuditLog{
		TenantID:   tenantID,
		Action:     action,
		Resource:   "campaign",
		ResourceID: &resourceID,
		Details:    payload,
	}
	if actor != "" {
		entry.UserID = &actor
	}
	return entry
}

func buildStats(c models.CampaignDetail, counts map[models.AssignmentStatus]int) models.CampaignStats {
	if counts == nil {
		counts = map[models.AssignmentStatus]int{}
	}
	stats := models.CampaignStats{
		TotalAssignments: c.AssignmentsTotal,
		ByStatus:         counts,
		ResponseCount:    c.ResponseCount,
		QuestionCount:    c.QuestionCount,
	}
	if c.AssignmentsTotal > 0 {
		if c.Family == models.FamilyEngagement {
			stats.CompletionRate = float64(c.ResponseCount) / float64(c.AssignmentsTotal) * 100
		} else {
			stats.CompletionRate = float64(counts[models.AssignmentCompleted]) / float64(c.AssignmentsTotal) * 100
		}
	}
	return stats
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	result := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}
