package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hcm-campaign-api/internal/middleware"
	"github.com/noah-isme/hcm-campaign-api/internal/models"
	"github.com/noah-isme/hcm-campaign-api/internal/service"
	"github.com/noah-isme/hcm-campaign-api/pkg/clock"
	"github.com/noah-isme/hcm-campaign-api/pkg/config"
	appErrors "github.com/noah-isme/hcm-campaign-api/pkg/errors"
)

var handlerTestNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

type storeMock struct {
	detail  *models.CampaignDetail
	created *models.Campaign
}

func (m *storeMock) CreateWithAssignments(ctx context.Context, campaign *models.Campaign, assignments []models.Assignment, audit *models.AuditLog) error {
	campaign.ID = "new-campaign"
	m.created = campaign
	return nil
}

func (m *storeMock) FindByID(ctx context.Context, tenantID, id string) (*models.CampaignDetail, error) {
	if m.detail == nil {
		return nil, sql.ErrNoRows
	}
	return m.detail, nil
}

func (m *storeMock) List(ctx context.Context, filter models.CampaignFilter) ([]models.CampaignDetail, int, error) {
	return nil, 0, nil
}

func (m *storeMock) UpdateStatus(ctx context.Context, tenantID, id string, status models.CampaignStatus, audit *models.AuditLog) error {
	return nil
}

func (m *storeMock) UpdateWindow(ctx context.Context, tenantID, id string, start, end time.Time, audit *models.AuditLog) error {
	return nil
}

func (m *storeMock) Delete(ctx context.Context, tenantID, id string, audit *models.AuditLog) error {
	return nil
}

func (m *storeMock) CountResponses(ctx context.Context, tenantID, campaignID string) (int, error) {
	return 0, nil
}

func (m *storeMock) CountStartedAssignments(ctx context.Context, tenantID, campaignID string) (int, error) {
	return 0, nil
}

func (m *storeMock) StatusCounts(ctx context.Context, tenantID, campaignID string) (map[models.AssignmentStatus]int, error) {
	return nil, nil
}

func (m *storeMock) StatusCountsForCampaigns(ctx context.Context, tenantID string, campaignIDs []string) (map[string]map[models.AssignmentStatus]int, error) {
	return nil, nil
}

type templateMock struct{}

func (m *templateMock) FindAccessible(ctx context.Context, tenantID, id string) (*models.Template, error) {
	return &models.Template{ID: id, Family: models.FamilyAssessment, Type: "skills", QuestionCount: 10}, nil
}

func (m *templateMock) IncrementUsage(ctx context.Context, id string) error { return nil }

type employeeMock struct{}

func (m *employeeMock) ActiveIDs(ctx context.Context, tenantID string, ids []int64) ([]int64, error) {
	return ids, nil
}

type conflictMock struct {
	report *models.ConflictReport
}

func (m *conflictMock) Check(ctx context.Context, q service.ConflictQuery) (*models.ConflictReport, error) {
	if m.report != nil {
		return m.report, nil
	}
	return &models.ConflictReport{}, nil
}

type assignmentReaderMock struct{}

func (m *assignmentReaderMock) ListEmployeeIDs(ctx context.Context, tenantID, campaignID string) ([]int64, error) {
	return nil, nil
}

func newHandlerCampaignService(store *storeMock, conflicts *conflictMock) *service.CampaignService {
	if store == nil {
		store = &storeMock{}
	}
	if conflicts == nil {
		conflicts = &conflictMock{}
	}
	cfg := config.CampaignConfig{
		ReminderFrequencyDays: 7,
		MaxDurationDays:       90,
		ArchiveAfterDays:      90,
		CognitiveLoadMinutes:  120,
		OverloadWarnThreshold: 3,
	}
	return service.NewCampaignService(store, &templateMock{}, &employeeMock{}, conflicts, &assignmentReaderMock{},
		clock.Fixed{Instant: handlerTestNow}, cfg, nil, nil)
}

func newCampaignTestContext(t *testing.T, method, target string, body []byte, family string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var reader *bytes.Buffer
	if body == nil {
		reader = bytes.NewBuffer(nil)
	} else {
		reader = bytes.NewBuffer(body)
	}
	req, err := http.NewRequest(method, target, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	if family != "" {
		c.Params = gin.Params{{Key: "family", Value: family}}
	}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1", TenantID: "t1", Role: models.RoleHRManager})
	c.Set(middleware.ContextTenantKey, "t1")
	return c, w
}

func createBody(t *testing.T) []byte {
	t.Helper()
	payload := map[string]interface{}{
		"template_id":  "tpl-1",
		"name":         "Quarterly Skills",
		"employee_ids": []int64{1, 2},
		"start_date":   handlerTestNow.AddDate(0, 0, 1).Format(time.RFC3339),
		"end_date":     handlerTestNow.AddDate(0, 0, 15).Format(time.RFC3339),
		"frequency":    "once",
	}
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return raw
}

func TestCampaignHandlerListUnknownFamily(t *testing.T) {
	handler := NewCampaignHandler(newHandlerCampaignService(nil, nil), nil, nil, nil)

	c, w := newCampaignTestContext(t, http.MethodGet, "/campaigns/unknown", nil, "unknown")
	handler.List(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	var envelope struct {
		Success bool `json:"success"`
		Error   struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.False(t, envelope.Success)
	assert.Equal(t, appErrors.ErrValidation.Code, envelope.Error.Code)
}

func TestCampaignHandlerCreateInvalidBody(t *testing.T) {
	handler := NewCampaignHandler(newHandlerCampaignService(nil, nil), nil, nil, nil)

	c, w := newCampaignTestContext(t, http.MethodPost, "/campaigns/assessments", []byte(`{"name":`), "assessments")
	handler.Create(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCampaignHandlerCreateSuccess(t *testing.T) {
	store := &storeMock{}
	handler := NewCampaignHandler(newHandlerCampaignService(store, nil), nil, nil, nil)

	c, w := newCampaignTestContext(t, http.MethodPost, "/campaigns/assessments", createBody(t), "assessments")
	handler.Create(c)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.NotNil(t, store.created)
	assert.Equal(t, "t1", store.created.TenantID)

	var envelope struct {
		Success bool `json:"success"`
		Data    struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.True(t, envelope.Success)
	assert.Equal(t, "new-campaign", envelope.Data.ID)
	assert.Equal(t, string(models.CampaignPlanned), envelope.Data.Status)
}

func TestCampaignHandlerCreateConflictCarriesReport(t *testing.T) {
	conflicts := &conflictMock{report: &models.ConflictReport{
		Conflicts: []models.Conflict{{
			EmployeeID: 1,
			CampaignID: "c9",
			Kind:       models.ConflictKindDuplicate,
			Severity:   models.ConflictSeverityError,
		}},
		Summary: models.ConflictSummary{ErrorCount: 1, EmployeesAffected: 1},
	}}
	store := &storeMock{}
	handler := NewCampaignHandler(newHandlerCampaignService(store, conflicts), nil, nil, nil)

	c, w := newCampaignTestContext(t, http.MethodPost, "/campaigns/assessments", createBody(t), "assessments")
	handler.Create(c)

	require.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	assert.Nil(t, store.created)

	var envelope struct {
		Success bool `json:"success"`
		Error   struct {
			Code string `json:"code"`
		} `json:"error"`
		Details struct {
			Conflicts []struct {
				EmployeeID int64  `json:"employee_id"`
				CampaignID string `json:"campaign_id"`
			} `json:"conflicts"`
		} `json:"details"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, appErrors.ErrConflictDetected.Code, envelope.Error.Code)
	require.Len(t, envelope.Details.Conflicts, 1)
	assert.Equal(t, "c9", envelope.Details.Conflicts[0].CampaignID)
}

func TestCampaignHandlerGetNotFound(t *testing.T) {
	handler := NewCampaignHandler(newHandlerCampaignService(nil, nil), nil, nil, nil)

	c, w := newCampaignTestContext(t, http.MethodGet, "/campaigns/assessments/missing", nil, "assessments")
	c.Params = append(c.Params, gin.Param{Key: "id", Value: "missing"})
	handler.Get(c)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestCampaignHandlerGetSuccess(t *testing.T) {
	store := &storeMock{detail: &models.CampaignDetail{
		Campaign: models.Campaign{
			ID:        "c1",
			TenantID:  "t1",
			Family:    models.FamilyAssessment,
			Name:      "Existing",
			StartDate: handlerTestNow,
			EndDate:   handlerTestNow.AddDate(0, 0, 14),
			Status:    models.CampaignActive,
		},
		TemplateName:     "Skills",
		AssignmentsTotal: 2,
	}}
	handler := NewCampaignHandler(newHandlerCampaignService(store, nil), nil, nil, nil)

	c, w := newCampaignTestContext(t, http.MethodGet, "/campaigns/assessments/c1", nil, "assessments")
	c.Params = append(c.Params, gin.Param{Key: "id", Value: "c1"})
	handler.Get(c)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var envelope struct {
		Success bool `json:"success"`
		Data    struct {
			ID    string `json:"id"`
			Stats struct {
				TotalAssignments int `json:"total_assignments"`
			} `json:"stats"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.True(t, envelope.Success)
	assert.Equal(t, "c1", envelope.Data.ID)
	assert.Equal(t, 2, envelope.Data.Stats.TotalAssignments)
}

func TestCampaignHandlerUpdateStatusIllegal(t *testing.T) {
	store := &storeMock{detail: &models.CampaignDetail{
		Campaign: models.Campaign{
			ID:        "c1",
			TenantID:  "t1",
			Family:    models.FamilyAssessment,
			StartDate: handlerTestNow.AddDate(0, 0, -10),
			EndDate:   handlerTestNow.AddDate(0, 0, -1),
			Status:    models.CampaignActive,
		},
	}}
	handler := NewCampaignHandler(newHandlerCampaignService(store, nil), nil, nil, nil)

	body := []byte(fmt.Sprintf(`{"status":%q}`, models.CampaignPaused))
	c, w := newCampaignTestContext(t, http.MethodPatch, "/campaigns/assessments/c1/status", body, "assessments")
	c.Params = append(c.Params, gin.Param{Key: "id", Value: "c1"})
	handler.UpdateStatus(c)

	require.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, appErrors.ErrIllegalTransition.Code, envelope.Error.Code)
}
