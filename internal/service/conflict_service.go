package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/hcm-campaign-api/internal/models"
	"github.com/noah-isme/hcm-campaign-api/pkg/clock"
	"github.com/noah-isme/hcm-campaign-api/pkg/config"
	appErrors "github.com/noah-isme/hcm-campaign-api/pkg/errors"
)

// minutesPerQuestion is the cognitive-load heuristic applied across all
// incomplete overlapping campaigns for one employee.
const minutesPerQuestion = 2

type conflictStore interface {
	ListOverlappingSnapshots(ctx context.Context, tenantID string, start, end time.Time, employeeIDs []int64, excludeCampaignID string) ([]models.CampaignSnapshot, error)
}

// ConflictQuery describes one candidate scheduling decision.
type ConflictQuery struct {
	TenantID          string
	EmployeeIDs       []int64
	StartDate         time.Time
	EndDate           time.Time
	Family            models.CampaignFamily
	AssessmentType    string
	ExcludeCampaignID string

	// CrossFamily switches to the unified-calendar semantics: collisions
	// from either family count, mandatory assessments escalate to errors.
	CrossFamily bool
}

// ConflictService evaluates candidate windows against existing assignments.
// Evaluation is a pure function of the loaded snapshot, so the lifecycle
// engine calls it without any back-edge into campaign services.
type ConflictService struct {
	store  conflictStore
	cfg    config.CampaignConfig
	logger *zap.Logger
}

// NewConflictService constructs the detector.
func NewConflictService(store conflictStore, cfg config.CampaignConfig, logger *zap.Logger) *ConflictService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConflictService{store: store, cfg: cfg, logger: logger}
}

// Check loads the overlap snapshot and evaluates it.
func (s *ConflictService) Check(ctx context.Context, q ConflictQuery) (*models.ConflictReport, error) {
	if q.TenantID == "" {
		return nil, appErrors.ErrTenantMissing
	}
	if len(q.EmployeeIDs) == 0 || !q.StartDate.Before(q.EndDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "conflict check requires employees and a valid window")
	}
	snapshot, err := s.store.ListOverlappingSnapshots(ctx, q.TenantID, q.StartDate, q.EndDate, q.EmployeeIDs, q.ExcludeCampaignID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load overlapping campaigns")
	}
	report := s.Evaluate(q, snapshot)
	s.logger.Debug("conflict check evaluated",
		zap.String("tenant_id", q.TenantID),
		zap.Int("employees", len(q.EmployeeIDs)),
		zap.Int("errors", report.Summary.ErrorCount),
		zap.Int("warnings", report.Summary.WarningCount))
	return report, nil
}

// Evaluate classifies the snapshot against the query. It is deterministic:
// output arrays are ordered by (employee_id, campaign_id) ascending.
func (s *ConflictService) Evaluate(q ConflictQuery, snapshot []models.CampaignSnapshot) *models.ConflictReport {
	report := &models.ConflictReport{
		Conflicts: []models.Conflict{},
		Warnings:  []models.ConflictWarning{},
	}

	perEmployee := make(map[int64][]models.CampaignSnapshot)
	for _, row := range snapshot {
		if row.AssignmentSt == models.AssignmentExpired || row.AssignmentSt == models.AssignmentCancelled {
			continue
		}
		if !clock.Overlaps(q.StartDate, q.EndDate, row.StartDate, row.EndDate) {
			continue
		}
		if !q.CrossFamily && q.Family.Valid() && row.Family != q.Family {
			continue
		}
		perEmployee[row.EmployeeID] = append(perEmployee[row.EmployeeID], row)
	}

	employees := append([]int64(nil), q.EmployeeIDs...)
	sort.Slice(employees, func(i, j int) bool { return employees[i] < employees[j] })

	affected := make(map[int64]struct{})
	duplicateEmployees := make(map[int64]struct{})
	overlapWarnings := 0
	overloadWarnings := 0

	for _, employeeID := range employees {
		rows := perEmployee[employeeID]
		if len(rows) == 0 {
			continue
		}
		sort.Slice(rows, func(i, j int) bool { return rows[i].CampaignID < rows[j].CampaignID })
		affected[employeeID] = struct{}{}

		loadMinutes := 0
		for _, row := range rows {
			conflict := models.Conflict{
				EmployeeID:   employeeID,
				CampaignID:   row.CampaignID,
				CampaignName: row.Name,
				Family:       row.Family,
				TemplateType: row.TemplateType,
				StartDate:    row.StartDate,
				EndDate:      row.EndDate,
			}

			switch {
			case q.Family == models.FamilyAssessment && q.AssessmentType != "" &&
				row.Family == models.FamilyAssessment && row.TemplateType == q.AssessmentType:
				conflict.Kind = models.ConflictKindDuplicate
				conflict.Severity = models.ConflictSeverityError
				conflict.Message = fmt.Sprintf("employee %d already has a %s assessment in an overlapping window", employeeID, q.AssessmentType)
				duplicateEmployees[employeeID] = struct{}{}
			case q.CrossFamily && row.Family == models.FamilyAssessment && row.Mandatory:
				conflict.Kind = models.ConflictKindOverlap
				conflict.Severity = models.ConflictSeverityError
				conflict.Message = fmt.Sprintf("employee %d collides with mandatory assessment %q", employeeID, row.Name)
			default:
				conflict.Kind = models.ConflictKindOverlap
				conflict.Severity = models.ConflictSeverityWarning
				conflict.Message = fmt.Sprintf("employee %d is already covered by %q in an overlapping window", employeeID, row.Name)
			}
			report.Conflicts = append(report.Conflicts, conflict)

			if row.AssignmentSt != models.AssignmentCompleted {
				loadMinutes += row.QuestionCount * minutesPerQuestion
			}
		}

		overlapMessage := fmt.Sprintf("employee %d participates in %d overlapping campaigns", employeeID, len(rows))
		if len(rows) == 1 {
			overlapMessage = fmt.Sprintf("employee %d already participates in overlapping campaign %q", employeeID, rows[0].Name)
		}
		report.Warnings = append(report.Warnings, models.ConflictWarning{
			EmployeeID: employeeID,
			Kind:       models.ConflictKindOverlap,
			Message:    overlapMessage,
		})
		overlapWarnings++
		if loadMinutes > s.cfg.CognitiveLoadMinutes {
			report.Warnings = append(report.Warnings, models.ConflictWarning{
				EmployeeID:  employeeID,
				Kind:        models.ConflictKindOverload,
				Message:     fmt.Sprintf("employee %d faces an estimated %d minutes of concurrent assessment effort", employeeID, loadMinutes),
				LoadMinutes: loadMinutes,
			})
			overloadWarnings++
		}
		if q.CrossFamily && len(rows) >= s.cfg.OverloadWarnThreshold {
			report.Warnings = append(report.Warnings, models.ConflictWarning{
				EmployeeID: employeeID,
				Kind:       models.ConflictKindCognitiveOverload,
				Message:    fmt.Sprintf("employee %d has %d collisions across campaign families", employeeID, len(rows)),
			})
		}
	}

	if len(duplicateEmployees) > 0 {
		skip := make([]int64, 0, len(duplicateEmployees))
		for id := range duplicateEmployees {
			skip = append(skip, id)
		}
		sort.Slice(skip, func(i, j int) bool { return skip[i] < skip[j] })
		report.Suggestions.SkipEmployeeIDs = skip
	}
	if overlapWarnings >= 5 {
		report.Suggestions.ShiftStartDays = 30
	}
	if overloadWarnings > 0 {
		report.Suggestions.ExtendEndDays = 14
	}

	for _, c := range report.Conflicts {
		if c.Severity == models.ConflictSeverityError {
			report.Summary.ErrorCount++
		}
	}
	report.Summary.WarningCount = len(report.Warnings)
	report.Summary.EmployeesAffected = len(affected)

	return report
}
