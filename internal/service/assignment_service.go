package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/hcm-campaign-api/internal/dto"
	"github.com/noah-isme/hcm-campaign-api/internal/models"
	"github.com/noah-isme/hcm-campaign-api/internal/repository"
	"github.com/noah-isme/hcm-campaign-api/pkg/clock"
	"github.com/noah-isme/hcm-campaign-api/pkg/config"
	appErrors "github.com/noah-isme/hcm-campaign-api/pkg/errors"
	"github.com/noah-isme/hcm-campaign-api/pkg/jobs"
)

type assignmentStore interface {
	FindByID(ctx context.Context, tenantID, id string) (*models.Assignment, error)
	ListByCampaign(ctx context.Context, filter models.AssignmentFilter) ([]models.AssignmentDetail, int, error)
	ListByEmployee(ctx context.Context, filter models.AssignmentFilter) ([]models.AssignmentDetail, int, error)
	ListByCampaignAndEmployees(ctx context.Context, tenantID, campaignID string, employeeIDs []int64) ([]models.Assignment, error)
	BulkInsert(ctx context.Context, inserts []models.Assignment, reactivateIDs []string, audit *models.AuditLog) error
	UpdateStatus(ctx context.Context, tenantID, id string, status models.AssignmentStatus) error
	Delete(ctx context.Context, tenantID, id string) error
	MarkReminded(ctx context.Context, tenantID, id string, at time.Time) error
	ListReminderCandidates(ctx context.Context, now time.Time, defaultFrequencyDays int) ([]models.ReminderCandidate, error)
}

type assignmentCampaignReader interface {
	FindByID(ctx context.Context, tenantID, id string) (*models.CampaignDetail, error)
}

type reminderSink interface {
	Deliver(ctx context.Context, candidate models.ReminderCandidate) error
}

type auditWriter interface {
	CreateAuditLog(ctx context.Context, entry *models.AuditLog) error
}

// AssignmentService manages per-employee campaign slots and reminder
// dispatch. Reminder delivery runs on a background queue so mutations never
// block on the notification sink.
type AssignmentService struct {
	store     assignmentStore
	campaigns assignmentCampaignReader
	employees employeeReader
	sink      reminderSink
	audits    auditWriter
	clk       clock.Clock
	cfg       config.CampaignConfig
	logger    *zap.Logger

	reminders *jobs.Queue
}

// NewAssignmentService constructs the assignment manager with its reminder
// worker queue. Call StartWorkers before dispatching reminders.
func NewAssignmentService(
	store assignmentStore,
	campaigns assignmentCampaignReader,
	employees employeeReader,
	sink reminderSink,
	audits auditWriter,
	clk clock.Clock,
	cfg config.CampaignConfig,
	notifyCfg config.NotificationConfig,
	logger *zap.Logger,
) *AssignmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clk == nil {
		clk = clock.Real{}
	}
	s := &AssignmentService{
		store:     store,
		campaigns: campaigns,
		employees: employees,
		sink:      sink,
		audits:    audits,
		clk:       clk,
		cfg:       cfg,
		logger:    logger,
	}
	s.reminders = jobs.NewQueue("reminders", s.handleReminderJob, jobs.QueueConfig{
		Workers:    notifyCfg.WorkerConcurrency,
		MaxRetries: notifyCfg.WorkerRetries,
		RetryDelay: notifyCfg.RetryDelay,
		Logger:     logger,
	})
	return s
}

// StartWorkers starts the reminder queue.
func (s *AssignmentService) StartWorkers(ctx context.Context) {
	s.reminders.Start(ctx)
}

// StopWorkers drains the reminder queue.
func (s *AssignmentService) StopWorkers() {
	s.reminders.Stop()
}

// Add bulk-adds employees to a campaign. Employees with a CANCELLED row are
// reactivated instead of duplicated; employees already holding an open slot
// are refused.
func (s *AssignmentService) Add(ctx context.Context, tenantID, campaignID string, req dto.AddAssignmentsRequest, actor string) ([]models.Assignment, error) {
	if tenantID == "" {
		return nil, appErrors.ErrTenantMissing
	}
	campaign, err := s.campaigns.FindByID(ctx, tenantID, campaignID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "campaign not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load campaign")
	}
	if campaign.Status.Terminal() || campaign.Status == models.CampaignCompleted {
		return nil, appErrors.Clone(appErrors.ErrIllegalTransition,
			fmt.Sprintf("cannot add assignments to a %s campaign", campaign.Status))
	}

	wanted := dedupe(req.EmployeeIDs)
	active, err := s.employees.ActiveIDs(ctx, tenantID, wanted)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify employees")
	}
	if len(active) != len(wanted) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "one or more employees are unknown or inactive")
	}

	existing, err := s.store.ListByCampaignAndEmployees(ctx, tenantID, campaignID, wanted)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load existing assignments")
	}
	existingByEmployee := make(map[int64]models.Assignment, len(existing))
	for _, a := range existing {
		existingByEmployee[a.EmployeeID] = a
	}

	var inserts []models.Assignment
	var reactivateIDs []string
	for _, employeeID := range wanted {
		current, ok := existingByEmployee[employeeID]
		switch {
		case !ok:
			inserts = append(inserts, models.Assignment{
				TenantID:   tenantID,
				CampaignID: campaignID,
				EmployeeID: employeeID,
				Status:     models.AssignmentAssigned,
				AssignedBy: actor,
			})
		case current.Status == models.AssignmentCancelled:
			reactivateIDs = append(reactivateIDs, current.ID)
		default:
			return nil, appErrors.Clone(appErrors.ErrTemplateConstraint,
				fmt.Sprintf("employee %d is already assigned to this campaign", employeeID))
		}
	}
	if len(inserts) == 0 && len(reactivateIDs) == 0 {
		return []models.Assignment{}, nil
	}

	audit := s.auditEntry(tenantID, actor, models.AuditActionAssignmentAdd, campaignID, map[string]interface{}{
		"added":       len(inserts),
		"reactivated": len(reactivateIDs),
	})
	if err := s.store.BulkInsert(ctx, inserts, reactivateIDs, audit); err != nil {
		if errors.Is(err, repository.ErrDuplicateAssignment) {
			return nil, appErrors.Wrap(err, appErrors.ErrTemplateConstraint.Code, appErrors.ErrTemplateConstraint.Status, "employee already assigned")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add assignments")
	}
	return inserts, nil
}

// Remove deletes one assignment. Only ASSIGNED and CANCELLED slots can be
// removed; anything the employee has touched stays for the record.
func (s *AssignmentService) Remove(ctx context.Context, tenantID, campaignID, assignmentID string, actor string) error {
	assignment, err := s.loadAssignment(ctx, tenantID, campaignID, assignmentID)
	if err != nil {
		return err
	}
	if assignment.Status != models.AssignmentAssigned && assignment.Status != models.AssignmentCancelled {
		return appErrors.Clone(appErrors.ErrAssignmentStarted,
			fmt.Sprintf("assignment is %s and cannot be removed", assignment.Status))
	}
	if err := s.store.Delete(ctx, tenantID, assignmentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove assignment")
	}
	audit := s.auditEntry(tenantID, actor, models.AuditActionAssignmentRemove, campaignID, map[string]interface{}{
		"assignment_id": assignmentID,
		"employee_id":   assignment.EmployeeID,
	})
	if err := s.audits.CreateAuditLog(ctx, audit); err != nil {
		s.logger.Warn("assignment removal audit failed", zap.String("assignment_id", assignmentID), zap.Error(err))
	}
	return nil
}

// UpdateStatus moves one assignment through its lifecycle table.
func (s *AssignmentService) UpdateStatus(ctx context.Context, tenantID, campaignID, assignmentID string, newStatus models.AssignmentStatus, actor string) (*models.Assignment, error) {
	assignment, err := s.loadAssignment(ctx, tenantID, campaignID, assignmentID)
	if err != nil {
		return nil, err
	}
	if !models.CanTransitionAssignment(assignment.Status, newStatus) {
		return nil, appErrors.Clone(appErrors.ErrIllegalTransition,
			fmt.Sprintf("cannot move assignment from %s to %s", assignment.Status, newStatus))
	}
	if err := s.store.UpdateStatus(ctx, tenantID, assignmentID, newStatus); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update assignment")
	}
	assignment.Status = newStatus
	if newStatus == models.AssignmentCompleted {
		now := s.clk.Now()
		assignment.CompletedAt = &now
	}
	audit := s.auditEntry(tenantID, actor, models.AuditActionAssignmentUpdate, campaignID, map[string]interface{}{
		"assignment_id": assignmentID,
		"to":            string(newStatus),
	})
	if err := s.audits.CreateAuditLog(ctx, audit); err != nil {
		s.logger.Warn("assignment update audit failed", zap.String("assignment_id", assignmentID), zap.Error(err))
	}
	return assignment, nil
}

// Bulk applies one action to many assignments with partial success.
func (s *AssignmentService) Bulk(ctx context.Context, tenantID, campaignID string, req dto.BulkAssignmentRequest, actor string) (*dto.BulkAssignmentResult, error) {
	if tenantID == "" {
		return nil, appErrors.ErrTenantMissing
	}
	result := &dto.BulkAssignmentResult{
		Succeeded: []string{},
		Failed:    []dto.BulkAssignmentFailure{},
	}
	for _, assignmentID := range req.AssignmentIDs {
		var err error
		switch req.Action {
		case dto.BulkActionUpdateStatus:
			_, err = s.UpdateStatus(ctx, tenantID, campaignID, assignmentID, req.Status, actor)
		case dto.BulkActionCancel:
			_, err = s.UpdateStatus(ctx, tenantID, campaignID, assignmentID, models.AssignmentCancelled, actor)
		case dto.BulkActionRemind:
			err = s.remindOne(ctx, tenantID, campaignID, assignmentID)
		default:
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown bulk action %q", req.Action))
		}
		if err != nil {
			appErr := appErrors.FromError(err)
			result.Failed = append(result.Failed, dto.BulkAssignmentFailure{
				AssignmentID: assignmentID,
				Code:         appErr.Code,
				Message:      appErr.Message,
			})
			continue
		}
		result.Succeeded = append(result.Succeeded, assignmentID)
	}
	return result, nil
}

// ListByCampaign returns a campaign's assignments with employee details.
func (s *AssignmentService) ListByCampaign(ctx context.Context, filter models.AssignmentFilter) ([]models.AssignmentDetail, int, error) {
	if filter.TenantID == "" {
		return nil, 0, appErrors.ErrTenantMissing
	}
	assignments, total, err := s.store.ListByCampaign(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	return assignments, total, nil
}

// ListByEmployee returns one employee's assignments across campaigns.
func (s *AssignmentService) ListByEmployee(ctx context.Context, filter models.AssignmentFilter) ([]models.AssignmentDetail, int, error) {
	if filter.TenantID == "" {
		return nil, 0, appErrors.ErrTenantMissing
	}
	assignments, total, err := s.store.ListByEmployee(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	return assignments, total, nil
}

// NotifyCampaign enqueues reminders for every eligible open assignment of one
// campaign and returns how many were queued.
func (s *AssignmentService) NotifyCampaign(ctx context.Context, tenantID, campaignID string, actor string) (int, error) {
	if tenantID == "" {
		return 0, appErrors.ErrTenantMissing
	}
	if _, err := s.campaigns.FindByID(ctx, tenantID, campaignID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, appErrors.Clone(appErrors.ErrNotFound, "campaign not found")
		}
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load campaign")
	}
	candidates, err := s.store.ListReminderCandidates(ctx, s.clk.Now(), s.cfg.ReminderFrequencyDays)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reminder candidates")
	}
	queued := 0
	for _, candidate := range candidates {
		if candidate.TenantID != tenantID || candidate.CampaignID != campaignID {
			continue
		}
		if err := s.enqueueReminder(candidate); err != nil {
			s.logger.Warn("failed to queue reminder", zap.String("assignment_id", candidate.AssignmentID), zap.Error(err))
			continue
		}
		queued++
	}
	if queued > 0 {
		audit := s.auditEntry(tenantID, actor, models.AuditActionReminderSent, campaignID, map[string]interface{}{
			"queued": queued,
		})
		if err := s.audits.CreateAuditLog(ctx, audit); err != nil {
			s.logger.Warn("reminder audit failed", zap.String("campaign_id", campaignID), zap.Error(err))
		}
	}
	return queued, nil
}

// DispatchDueReminders queues reminders for every eligible assignment across
// tenants. The reconciliation sweep calls this as its final stage.
func (s *AssignmentService) DispatchDueReminders(ctx context.Context) (int, error) {
	candidates, err := s.store.ListReminderCandidates(ctx, s.clk.Now(), s.cfg.ReminderFrequencyDays)
	if err != nil {
		return 0, fmt.Errorf("list reminder candidates: %w", err)
	}
	queued := 0
	for _, candidate := range candidates {
		if err := s.enqueueReminder(candidate); err != nil {
			s.logger.Warn("failed to queue reminder", zap.String("assignment_id", candidate.AssignmentID), zap.Error(err))
			continue
		}
		queued++
	}
	return queued, nil
}

func (s *AssignmentService) remindOne(ctx context.Context, tenantID, campaignID, assignmentID string) error {
	assignment, err := s.loadAssignment(ctx, tenantID, campaignID, assignmentID)
	if err != nil {
		return err
	}
	if assignment.Status.Terminal() {
		return appErrors.Clone(appErrors.ErrIllegalTransition,
			fmt.Sprintf("assignment is %s and cannot be reminded", assignment.Status))
	}
	return s.enqueueReminder(models.ReminderCandidate{
		AssignmentID:   assignment.ID,
		CampaignID:     assignment.CampaignID,
		TenantID:       assignment.TenantID,
		EmployeeID:     assignment.EmployeeID,
		ReminderCount:  assignment.ReminderCount,
		LastReminderAt: assignment.LastReminderAt,
	})
}

func (s *AssignmentService) enqueueReminder(candidate models.ReminderCandidate) error {
	return s.reminders.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    "reminder",
		Payload: candidate,
	})
}

func (s *AssignmentService) handleReminderJob(ctx context.Context, job jobs.Job) error {
	candidate, ok := job.Payload.(models.ReminderCandidate)
	if !ok {
		s.logger.Error("reminder job carried unexpected payload", zap.String("job_id", job.ID))
		return nil
	}
	if err := s.sink.Deliver(ctx, candidate); err != nil {
		return fmt.Errorf("deliver reminder for assignment %s: %w", candidate.AssignmentID, err)
	}
	if err := s.store.MarkReminded(ctx, candidate.TenantID, candidate.AssignmentID, s.clk.Now()); err != nil {
		s.logger.Warn("failed to mark assignment reminded", zap.String("assignment_id", candidate.AssignmentID), zap.Error(err))
	}
	return nil
}

func (s *AssignmentService) loadAssignment(ctx context.Context, tenantID, campaignID, assignmentID string) (*models.Assignment, error) {
	if tenantID == "" {
		return nil, appErrors.ErrTenantMissing
	}
	assignment, err := s.store.FindByID(ctx, tenantID, assignmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	if campaignID != "" && assignment.CampaignID != campaignID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
	}
	return assignment, nil
}

func (s *AssignmentService) auditEntry(tenantID, actor, action, resourceID string, details map[string]interface{}) *models.AuditLog {
	payload, _ := json.Marshal(details)
	entry := &models.AuditLog{
		TenantID:   tenantID,
		Action:     action,
		Resource:   "assignment",
		ResourceID: &resourceID,
		Details:    payload,
	}
	if actor != "" {
		entry.UserID = &actor
	}
	return entry
}
