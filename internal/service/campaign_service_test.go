package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hcm-campaign-api/internal/dto"
	"github.com/noah-isme/hcm-campaign-api/internal/models"
	"github.com/noah-isme/hcm-campaign-api/pkg/clock"
	"github.com/noah-isme/hcm-campaign-api/pkg/config"
	appErrors "github.com/noah-isme/hcm-campaign-api/pkg/errors"
)

var campaignTestCfg = config.CampaignConfig{
	ReminderFrequencyDays: 7,
	MaxDurationDays:       90,
	ArchiveAfterDays:      90,
	CognitiveLoadMinutes:  120,
	OverloadWarnThreshold: 3,
	MinDurationDays:       7,
}

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

type campaignStoreStub struct {
	created     *models.Campaign
	assignments []models.Assignment
	detail      *models.CampaignDetail
	findErr     error
	list        []models.CampaignDetail
	listTotal   int
	updated     models.CampaignStatus
	window      [2]time.Time
	deleted     bool
	responses   int
	started     int
	counts      map[models.AssignmentStatus]int
	manyCounts  map[string]map[models.AssignmentStatus]int
}

func (s *campaignStoreStub) CreateWithAssignments(ctx context.Context, campaign *models.Campaign, assignments []models.Assignment, audit *models.AuditLog) error {
	campaign.ID = "new-campaign"
	s.created = campaign
	s.assignments = assignments
	return nil
}

func (s *campaignStoreStub) FindByID(ctx context.Context, tenantID, id string) (*models.CampaignDetail, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	if s.detail == nil {
		return nil, sql.ErrNoRows
	}
	copy := *s.detail
	return &copy, nil
}

func (s *campaignStoreStub) List(ctx context.Context, filter models.CampaignFilter) ([]models.CampaignDetail, int, error) {
	return s.list, s.listTotal, nil
}

func (s *campaignStoreStub) UpdateStatus(ctx context.Context, tenantID, id string, status models.CampaignStatus, audit *models.AuditLog) error {
	s.updated = status
	return nil
}

func (s *campaignStoreStub) UpdateWindow(ctx context.Context, tenantID, id string, start, end time.Time, audit *models.AuditLog) error {
	s.window = [2]time.Time{start, end}
	return nil
}

func (s *campaignStoreStub) Delete(ctx context.Context, tenantID, id string, audit *models.AuditLog) error {
	s.deleted = true
	return nil
}

func (s *campaignStoreStub) CountResponses(ctx context.Context, tenantID, campaignID string) (int, error) {
	return s.responses, nil
}

func (s *campaignStoreStub) CountStartedAssignments(ctx context.Context, tenantID, campaignID string) (int, error) {
	return s.started, nil
}

func (s *campaignStoreStub) StatusCounts(ctx context.Context, tenantID, campaignID string) (map[models.AssignmentStatus]int, error) {
	return s.counts, nil
}

func (s *campaignStoreStub) StatusCountsForCampaigns(ctx context.Context, tenantID string, campaignIDs []string) (map[string]map[models.AssignmentStatus]int, error) {
	return s.manyCounts, nil
}

type templateReaderStub struct {
	template  *models.Template
	err       error
	usage     int
	usageErr  error
	lastFound string
}

func (s *templateReaderStub) FindAccessible(ctx context.Context, tenantID, id string) (*models.Template, error) {
	s.lastFound = id
	if s.err != nil {
		return nil, s.err
	}
	return s.template, nil
}

func (s *templateReaderStub) IncrementUsage(ctx context.Context, id string) error {
	s.usage++
	return s.usageErr
}

type employeeReaderStub struct {
	active []int64
	err    error
}

func (s *employeeReaderStub) ActiveIDs(ctx context.Context, tenantID string, ids []int64) ([]int64, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.active != nil {
		return s.active, nil
	}
	return ids, nil
}

type conflictCheckerStub struct {
	report    *models.ConflictReport
	err       error
	lastQuery ConflictQuery
	calls     int
}

func (s *conflictCheckerStub) Check(ctx context.Context, q ConflictQuery) (*models.ConflictReport, error) {
	s.calls++
	s.lastQuery = q
	if s.err != nil {
		return nil, s.err
	}
	if s.report != nil {
		return s.report, nil
	}
	return &models.ConflictReport{}, nil
}

type assignmentReaderStub struct {
	employeeIDs []int64
}

func (s *assignmentReaderStub) ListEmployeeIDs(ctx context.Context, tenantID, campaignID string) ([]int64, error) {
	return s.employeeIDs, nil
}

func newTestCampaignService(store *campaignStoreStub, templates *templateReaderStub, employees *employeeReaderStub, conflicts *conflictCheckerStub, assignments *assignmentReaderStub) *CampaignService {
	if store == nil {
		store = &campaignStoreStub{}
	}
	if templates == nil {
		templates = &templateReaderStub{template: &models.Template{ID: "tpl-1", Family: models.FamilyAssessment, Type: "personality", QuestionCount: 20}}
	}
	if employees == nil {
		employees = &employeeReaderStub{}
	}
	if conflicts == nil {
		conflicts = &conflictCheckerStub{}
	}
	if assignments == nil {
		assignments = &assignmentReaderStub{}
	}
	return NewCampaignService(store, templates, employees, conflicts, assignments,
		clock.Fixed{Instant: testNow}, campaignTestCfg, nil, nil)
}

func validCreateRequest() dto.CreateCampaignRequest {
	return dto.CreateCampaignRequest{
		TemplateID:  "tpl-1",
		Name:        "Q2 Personality Review",
		EmployeeIDs: []int64{1, 2, 3},
		StartDate:   testNow.AddDate(0, 0, 1),
		EndDate:     testNow.AddDate(0, 0, 15),
		Frequency:   models.FrequencyOnce,
	}
}

func TestCampaignCreateHappyPath(t *testing.T) {
	store := &campaignStoreStub{}
	templates := &templateReaderStub{template: &models.Template{ID: "tpl-1", Family: models.FamilyAssessment, Type: "personality", QuestionCount: 20}}
	conflicts := &conflictCheckerStub{}
	svc := newTestCampaignService(store, templates, nil, conflicts, nil)

	result, err := svc.Create(context.Background(), "t1", models.FamilyAssessment, validCreateRequest(), "user-1")
	require.NoError(t, err)
	require.NotNil(t, result.Campaign)

	assert.Equal(t, models.CampaignPlanned, result.Campaign.Status)
	assert.Equal(t, "t1", result.Campaign.TenantID)
	assert.Equal(t, 3, result.Campaign.TargetAudience.TotalCount)
	assert.Len(t, store.assignments, 3)
	for _, a := range store.assignments {
		assert.Equal(t, models.AssignmentAssigned, a.Status)
	}
	assert.Equal(t, 1, templates.usage)
	assert.Equal(t, "personality", conflicts.lastQuery.AssessmentType)
}

func TestCampaignCreateTenantRequired(t *testing.T) {
	svc := newTestCampaignService(nil, nil, nil, nil, nil)
	_, err := svc.Create(context.Background(), "", models.FamilyAssessment, validCreateRequest(), "user-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrTenantMissing.Code, appErrors.FromError(err).Code)
}

func TestCampaignCreateWindowInverted(t *testing.T) {
	svc := newTestCampaignService(nil, nil, nil, nil, nil)
	req := validCreateRequest()
	req.StartDate, req.EndDate = req.EndDate, req.StartDate

	_, err := svc.Create(context.Background(), "t1", models.FamilyAssessment, req, "user-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCampaignCreateWindowTooLong(t *testing.T) {
	svc := newTestCampaignService(nil, nil, nil, nil, nil)
	req := validCreateRequest()
	req.EndDate = req.StartDate.AddDate(0, 0, 120)

	_, err := svc.Create(context.Background(), "t1", models.FamilyAssessment, req, "user-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCampaignCreateTemplateFamilyMismatch(t *testing.T) {
	templates := &templateReaderStub{template: &models.Template{ID: "tpl-1", Family: models.FamilyEngagement, Type: "pulse"}}
	svc := newTestCampaignService(nil, templates, nil, nil, nil)

	_, err := svc.Create(context.Background(), "t1", models.FamilyAssessment, validCreateRequest(), "user-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrTemplateNotFound.Code, appErrors.FromError(err).Code)
}

func TestCampaignCreateTemplateMissing(t *testing.T) {
	templates := &templateReaderStub{err: sql.ErrNoRows}
	svc := newTestCampaignService(nil, templates, nil, nil, nil)

	_, err := svc.Create(context.Background(), "t1", models.FamilyAssessment, validCreateRequest(), "user-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrTemplateNotFound.Code, appErrors.FromError(err).Code)
}

func TestCampaignCreateUnknownEmployee(t *testing.T) {
	employees := &employeeReaderStub{active: []int64{1, 2}}
	svc := newTestCampaignService(nil, nil, employees, nil, nil)

	_, err := svc.Create(context.Background(), "t1", models.FamilyAssessment, validCreateRequest(), "user-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCampaignCreateRefusedOnConflictErrors(t *testing.T) {
	conflicts := &conflictCheckerStub{report: &models.ConflictReport{
		Conflicts: []models.Conflict{{EmployeeID: 1, CampaignID: "c9", Kind: models.ConflictKindDuplicate, Severity: models.ConflictSeverityError}},
		Summary:   models.ConflictSummary{ErrorCount: 1},
	}}
	store := &campaignStoreStub{}
	svc := newTestCampaignService(store, nil, nil, conflicts, nil)

	_, err := svc.Create(context.Background(), "t1", models.FamilyAssessment, validCreateRequest(), "user-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflictDetected.Code, appErrors.FromError(err).Code)
	assert.Nil(t, store.created)

	var detected *models.ConflictDetectedError
	require.True(t, errors.As(err, &detected))
	assert.Equal(t, 1, detected.Report.Summary.ErrorCount)
}

func TestCampaignCreateSucceedsWithWarnings(t *testing.T) {
	conflicts := &conflictCheckerStub{report: &models.ConflictReport{
		Warnings: []models.ConflictWarning{{EmployeeID: 1, Kind: models.ConflictKindOverlap}},
		Summary:  models.ConflictSummary{WarningCount: 1},
	}}
	svc := newTestCampaignService(nil, nil, nil, conflicts, nil)

	result, err := svc.Create(context.Background(), "t1", models.FamilyAssessment, validCreateRequest(), "user-1")
	require.NoError(t, err)
	require.Len(t, result.Warnings, 1)
}

func TestCampaignCreateEngagementFields(t *testing.T) {
	store := &campaignStoreStub{}
	templates := &templateReaderStub{template: &models.Template{ID: "tpl-2", Family: models.FamilyEngagement, Type: "pulse", QuestionCount: 8}}
	svc := newTestCampaignService(store, templates, nil, nil, nil)

	anonymous := true
	req := validCreateRequest()
	req.TemplateID = "tpl-2"
	req.AnonymousResponses = &anonymous
	req.ReminderSettings = &models.ReminderSettings{Enabled: true, FrequencyDays: 3, Channels: []string{"email"}}

	result, err := svc.Create(context.Background(), "t1", models.FamilyEngagement, req, "user-1")
	require.NoError(t, err)
	require.NotNil(t, result.Campaign.AnonymousResponses)
	assert.True(t, *result.Campaign.AnonymousResponses)
	assert.True(t, result.Campaign.ReminderSettings.Valid)
	assert.Equal(t, 3, result.Campaign.ReminderSettings.Settings.FrequencyDays)
	assert.Nil(t, result.Campaign.Mandatory)
}

func campaignDetail(family models.CampaignFamily, status models.CampaignStatus) *models.CampaignDetail {
	return &models.CampaignDetail{
		Campaign: models.Campaign{
			ID:        "c1",
			TenantID:  "t1",
			Family:    family,
			Name:      "Existing",
			StartDate: testNow.AddDate(0, 0, -10),
			EndDate:   testNow.AddDate(0, 0, -1),
			Status:    status,
			Frequency: models.FrequencyOnce,
		},
		TemplateName:     "Template",
		TemplateType:     "personality",
		QuestionCount:    20,
		AssignmentsTotal: 4,
		ResponseCount:    2,
	}
}

func TestCampaignUpdateStatusLegalTransition(t *testing.T) {
	store := &campaignStoreStub{detail: campaignDetail(models.FamilyAssessment, models.CampaignActive)}
	svc := newTestCampaignService(store, nil, nil, nil, nil)

	detail, err := svc.UpdateStatus(context.Background(), "t1", "c1", models.CampaignCompleted, "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.CampaignCompleted, detail.Status)
	assert.Equal(t, models.CampaignCompleted, store.updated)
}

func TestCampaignUpdateStatusIllegalTransition(t *testing.T) {
	store := &campaignStoreStub{detail: campaignDetail(models.FamilyAssessment, models.CampaignActive)}
	svc := newTestCampaignService(store, nil, nil, nil, nil)

	_, err := svc.UpdateStatus(context.Background(), "t1", "c1", models.CampaignPaused, "user-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrIllegalTransition.Code, appErrors.FromError(err).Code)
}

func TestCampaignActivateBeforeStartRefused(t *testing.T) {
	detail := campaignDetail(models.FamilyAssessment, models.CampaignPlanned)
	detail.StartDate = testNow.AddDate(0, 0, 5)
	detail.EndDate = testNow.AddDate(0, 0, 20)
	store := &campaignStoreStub{detail: detail}
	svc := newTestCampaignService(store, nil, nil, nil, nil)

	_, err := svc.UpdateStatus(context.Background(), "t1", "c1", models.CampaignActive, "user-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrIllegalTransition.Code, appErrors.FromError(err).Code)
}

func TestCampaignCompleteBeforeEndRefused(t *testing.T) {
	detail := campaignDetail(models.FamilyAssessment, models.CampaignActive)
	detail.EndDate = testNow.AddDate(0, 0, 5)
	store := &campaignStoreStub{detail: detail}
	svc := newTestCampaignService(store, nil, nil, nil, nil)

	_, err := svc.UpdateStatus(context.Background(), "t1", "c1", models.CampaignCompleted, "user-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrIllegalTransition.Code, appErrors.FromError(err).Code)
}

func TestCampaignArchiveBeforeRetentionRefused(t *testing.T) {
	detail := campaignDetail(models.FamilyAssessment, models.CampaignCompleted)
	detail.EndDate = testNow.AddDate(0, 0, -30)
	store := &campaignStoreStub{detail: detail}
	svc := newTestCampaignService(store, nil, nil, nil, nil)

	_, err := svc.UpdateStatus(context.Background(), "t1", "c1", models.CampaignArchived, "user-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrIllegalTransition.Code, appErrors.FromError(err).Code)
}

func TestCampaignArchiveAfterRetention(t *testing.T) {
	detail := campaignDetail(models.FamilyAssessment, models.CampaignCompleted)
	detail.EndDate = testNow.AddDate(0, 0, -120)
	store := &campaignStoreStub{detail: detail}
	svc := newTestCampaignService(store, nil, nil, nil, nil)

	updated, err := svc.UpdateStatus(context.Background(), "t1", "c1", models.CampaignArchived, "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.CampaignArchived, updated.Status)
}

func TestCampaignDeleteRefusedWithResponses(t *testing.T) {
	store := &campaignStoreStub{detail: campaignDetail(models.FamilyEngagement, models.CampaignActive), responses: 5}
	svc := newTestCampaignService(store, nil, nil, nil, nil)

	err := svc.Delete(context.Background(), "t1", "c1", "user-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrHasResponses.Code, appErrors.FromError(err).Code)
	assert.False(t, store.deleted)
}

func TestCampaignDeleteRefusedWithStartedAssignments(t *testing.T) {
	store := &campaignStoreStub{detail: campaignDetail(models.FamilyAssessment, models.CampaignActive), started: 2}
	svc := newTestCampaignService(store, nil, nil, nil, nil)

	err := svc.Delete(context.Background(), "t1", "c1", "user-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrHasStartedAssignments.Code, appErrors.FromError(err).Code)
}

func TestCampaignDeleteClean(t *testing.T) {
	store := &campaignStoreStub{detail: campaignDetail(models.FamilyAssessment, models.CampaignPlanned)}
	svc := newTestCampaignService(store, nil, nil, nil, nil)

	require.NoError(t, svc.Delete(context.Background(), "t1", "c1", "user-1"))
	assert.True(t, store.deleted)
}

func TestCampaignCloneZeroShiftEqualsDuplicate(t *testing.T) {
	source := campaignDetail(models.FamilyAssessment, models.CampaignCompleted)
	assignments := &assignmentReaderStub{employeeIDs: []int64{1, 2}}

	dupStore := &campaignStoreStub{detail: source}
	dupSvc := newTestCampaignService(dupStore, nil, nil, nil, assignments)
	duplicated, err := dupSvc.Duplicate(context.Background(), "t1", "c1", dto.DuplicateCampaignRequest{Name: "Copy", IncludeAssignments: true}, "user-1")
	require.NoError(t, err)

	cloneStore := &campaignStoreStub{detail: source}
	cloneSvc := newTestCampaignService(cloneStore, nil, nil, nil, assignments)
	cloned, err := cloneSvc.CloneWithShift(context.Background(), "t1", "c1", dto.CloneCampaignRequest{Name: "Copy", DayShift: 0, IncludeAssignments: true}, "user-1")
	require.NoError(t, err)

	assert.Equal(t, duplicated.StartDate, cloned.StartDate)
	assert.Equal(t, duplicated.EndDate, cloned.EndDate)
	assert.Equal(t, duplicated.Status, cloned.Status)
	assert.Equal(t, duplicated.TargetAudience.EmployeeIDs, cloned.TargetAudience.EmployeeIDs)
	assert.Len(t, cloneStore.assignments, 2)
}

func TestCampaignCloneShiftsWindow(t *testing.T) {
	source := campaignDetail(models.FamilyAssessment, models.CampaignCompleted)
	store := &campaignStoreStub{detail: source}
	svc := newTestCampaignService(store, nil, nil, nil, nil)

	cloned, err := svc.CloneWithShift(context.Background(), "t1", "c1", dto.CloneCampaignRequest{Name: "Next Quarter", DayShift: 90}, "user-1")
	require.NoError(t, err)
	assert.Equal(t, source.StartDate.AddDate(0, 0, 90), cloned.StartDate)
	assert.Equal(t, source.EndDate.AddDate(0, 0, 90), cloned.EndDate)
	assert.Equal(t, models.CampaignPlanned, cloned.Status)
	assert.False(t, cloned.HasResponses)
}

func TestCampaignRescheduleRefusedWhenCompleted(t *testing.T) {
	store := &campaignStoreStub{detail: campaignDetail(models.FamilyAssessment, models.CampaignCompleted)}
	svc := newTestCampaignService(store, nil, nil, nil, nil)

	_, err := svc.Reschedule(context.Background(), "t1", "c1", dto.RescheduleCampaignRequest{
		StartDate: testNow.AddDate(0, 0, 1),
		EndDate:   testNow.AddDate(0, 0, 10),
	}, "user-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrIllegalTransition.Code, appErrors.FromError(err).Code)
}

func TestCampaignRescheduleChecksConflictsExcludingSelf(t *testing.T) {
	detail := campaignDetail(models.FamilyAssessment, models.CampaignActive)
	store := &campaignStoreStub{detail: detail}
	conflicts := &conflictCheckerStub{}
	assignments := &assignmentReaderStub{employeeIDs: []int64{4, 5}}
	svc := newTestCampaignService(store, nil, nil, conflicts, assignments)

	start := testNow.AddDate(0, 0, 2)
	end := testNow.AddDate(0, 0, 12)
	updated, err := svc.Reschedule(context.Background(), "t1", "c1", dto.RescheduleCampaignRequest{
		StartDate:      start,
		EndDate:        end,
		CheckConflicts: true,
	}, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, conflicts.calls)
	assert.Equal(t, "c1", conflicts.lastQuery.ExcludeCampaignID)
	assert.Equal(t, []int64{4, 5}, conflicts.lastQuery.EmployeeIDs)
	assert.Equal(t, start, updated.StartDate)
	assert.Equal(t, [2]time.Time{start, end}, store.window)
}

func TestCampaignListAttachesStats(t *testing.T) {
	detail := campaignDetail(models.FamilyAssessment, models.CampaignActive)
	store := &campaignStoreStub{
		list:      []models.CampaignDetail{*detail},
		listTotal: 1,
		manyCounts: map[string]map[models.AssignmentStatus]int{
			"c1": {models.AssignmentCompleted: 2, models.AssignmentAssigned: 2},
		},
	}
	svc := newTestCampaignService(store, nil, nil, nil, nil)

	campaigns, total, err := svc.List(context.Background(), models.CampaignFilter{TenantID: "t1", Family: models.FamilyAssessment})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, campaigns, 1)
	assert.InDelta(t, 50.0, campaigns[0].Stats.CompletionRate, 0.01)
}

func TestCampaignGetEngagementCompletionRate(t *testing.T) {
	detail := campaignDetail(models.FamilyEngagement, models.CampaignActive)
	detail.ResponseCount = 3
	store := &campaignStoreStub{detail: detail, counts: map[models.AssignmentStatus]int{models.AssignmentAssigned: 4}}
	svc := newTestCampaignService(store, nil, nil, nil, nil)

	resp, err := svc.Get(context.Background(), "t1", "c1")
	require.NoError(t, err)
	assert.InDelta(t, 75.0, resp.Stats.CompletionRate, 0.01)
}

func TestCampaignGetNotFound(t *testing.T) {
	store := &campaignStoreStub{}
	svc := newTestCampaignService(store, nil, nil, nil, nil)

	_, err := svc.Get(context.Background(), "t1", "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCampaignCreateIdempotentValidation(t *testing.T) {
	// Same invalid payload refused the same way on every attempt.
	svc := newTestCampaignService(nil, nil, nil, nil, nil)
	req := validCreateRequest()
	req.Frequency = models.Frequency("daily")

	for i := 0; i < 2; i++ {
		_, err := svc.Create(context.Background(), "t1", models.FamilyAssessment, req, "user-1")
		require.Error(t, err, fmt.Sprintf("attempt %d", i))
		assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	}
}
