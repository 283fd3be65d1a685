package service

import (
	"context"
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

type calendarStoreStub struct {
	campaigns []models.CampaignDetail
	total     int
	byStatus  map[models.CampaignFamily]map[models.CampaignStatus]int
	counts    map[string]map[models.AssignmentStatus]int
}

func (s *calendarStoreStub) ListIntersecting(ctx context.Context, filter models.CalendarFilter) ([]models.CampaignDetail, int, error) {
	return s.campaigns, s.total, nil
}

func (s *calendarStoreStub) CountByStatus(ctx context.Context, tenantID string, start, end time.Time) (map[models.CampaignFamily]map[models.CampaignStatus]int, error) {
	return s.byStatus, nil
}

func (s *calendarStoreStub) StatusCountsForCampaigns(ctx context.Context, tenantID string, campaignIDs []string) (map[string]map[models.AssignmentStatus]int, error) {
	return s.counts, nil
}

type reschedulerStub struct {
	detail  *models.CampaignDetail
	err     error
	lastReq dto.RescheduleCampaignRequest
	lastID  string
}

func (s *reschedulerStub) Reschedule(ctx context.Context, tenantID, id string, req dto.RescheduleCampaignRequest, actor string) (*models.CampaignDetail, error) {
	s.lastID = id
	s.lastReq = req
	return s.detail, s.err
}

func newTestCalendarService(store *calendarStoreStub, campaigns *reschedulerStub, conflicts *conflictCheckerStub) *CalendarService {
	if store == nil {
		store = &calendarStoreStub{}
	}
	if campaigns == nil {
		campaigns = &reschedulerStub{}
	}
	if conflicts == nil {
		conflicts = &conflictCheckerStub{}
	}
	return NewCalendarService(store, campaigns, conflicts, nil,
		clock.Fixed{Instant: testNow}, config.CalendarConfig{StatsCacheTTL: time.Minute}, nil)
}

func TestCalendarRangeBuildsEntries(t *testing.T) {
	store := &calendarStoreStub{
		campaigns: []models.CampaignDetail{
			{
				Campaign: models.Campaign{
					ID:        "c1",
					Family:    models.FamilyAssessment,
					Name:      "Skills Review",
					StartDate: testNow,
					EndDate:   testNow.AddDate(0, 0, 14),
					Status:    models.CampaignActive,
					Frequency: models.FrequencyOnce,
				},
				TemplateName:     "Skills",
				AssignmentsTotal: 10,
			},
		},
		total: 1,
		counts: map[string]map[models.AssignmentStatus]int{
			"c1": {models.AssignmentCompleted: 4},
		},
	}
	svc := newTestCalendarService(store, nil, nil)

	entries, total, err := svc.Range(context.Background(), models.CalendarFilter{
		TenantID:  "t1",
		StartDate: testNow,
		EndDate:   testNow.AddDate(0, 1, 0),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, entries, 1)
	assert.Equal(t, "c1", entries[0].ID)
	assert.Equal(t, models.FamilyAssessment, entries[0].Family)
	assert.InDelta(t, 40.0, entries[0].Progress, 0.01)
	assert.Equal(t, "Skills", entries[0].TemplateName)
}

func TestCalendarRangeInvalidWindow(t *testing.T) {
	svc := newTestCalendarService(nil, nil, nil)

	_, _, err := svc.Range(context.Background(), models.CalendarFilter{
		TenantID:  "t1",
		StartDate: testNow,
		EndDate:   testNow,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCalendarStatsAggregation(t *testing.T) {
	store := &calendarStoreStub{
		byStatus: map[models.CampaignFamily]map[models.CampaignStatus]int{
			models.FamilyAssessment: {
				models.CampaignActive:  2,
				models.CampaignPlanned: 1,
			},
			models.FamilyEngagement: {
				models.CampaignInProgress: 1,
				models.CampaignPaused:     1,
				models.CampaignPlanned:    2,
				models.CampaignCompleted:  3,
			},
		},
	}
	svc := newTestCalendarService(store, nil, nil)

	stats, err := svc.Stats(context.Background(), "t1", models.PeriodMonth)
	require.NoError(t, err)
	assert.Equal(t, models.PeriodMonth, stats.Period)
	assert.Equal(t, 4, stats.ActiveNow)
	assert.Equal(t, 3, stats.Upcoming)
	assert.Equal(t, testNow, stats.Generated)
}

func TestCalendarStatsUnknownPeriod(t *testing.T) {
	svc := newTestCalendarService(nil, nil, nil)

	_, err := svc.Stats(context.Background(), "t1", models.CalendarPeriod("decade"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCalendarStatsTenantRequired(t *testing.T) {
	svc := newTestCalendarService(nil, nil, nil)

	_, err := svc.Stats(context.Background(), "", models.PeriodWeek)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrTenantMissing.Code, appErrors.FromError(err).Code)
}

func TestCalendarRescheduleDelegates(t *testing.T) {
	rescheduler := &reschedulerStub{detail: &models.CampaignDetail{
		Campaign: models.Campaign{ID: "c1", Status: models.CampaignActive},
	}}
	svc := newTestCalendarService(nil, rescheduler, nil)

	start := testNow.AddDate(0, 0, 2)
	end := testNow.AddDate(0, 0, 16)
	detail, err := svc.Reschedule(context.Background(), "t1", dto.CalendarRescheduleRequest{
		CampaignID:     "c1",
		Family:         models.FamilyAssessment,
		StartDate:      start,
		EndDate:        end,
		CheckConflicts: true,
	}, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "c1", detail.ID)
	assert.Equal(t, "c1", rescheduler.lastID)
	assert.Equal(t, start, rescheduler.lastReq.StartDate)
	assert.True(t, rescheduler.lastReq.CheckConflicts)
}

func TestCalendarCheckConflictsCrossFamily(t *testing.T) {
	conflicts := &conflictCheckerStub{}
	svc := newTestCalendarService(nil, nil, conflicts)

	_, err := svc.CheckConflicts(context.Background(), "t1", dto.CalendarCheckConflictsRequest{
		EmployeeIDs: []int64{1, 2},
		StartDate:   testNow,
		EndDate:     testNow.AddDate(0, 0, 7),
	})
	require.NoError(t, err)
	assert.True(t, conflicts.lastQuery.CrossFamily)
	assert.Equal(t, "t1", conflicts.lastQuery.TenantID)
}

func TestPeriodWindowSpans(t *testing.T) {
	start := clock.StartOfDay(testNow)
	cases := []struct {
		period models.CalendarPeriod
		end    time.Time
	}{
		{models.PeriodWeek, start.AddDate(0, 0, 7)},
		{models.PeriodMonth, start.AddDate(0, 1, 0)},
		{models.PeriodQuarter, start.AddDate(0, 3, 0)},
		{models.PeriodYear, start.AddDate(1, 0, 0)},
	}
	for _, tc := range cases {
		gotStart, gotEnd := periodWindow(testNow, tc.period)
		assert.Equal(t, start, gotStart, string(tc.period))
		assert.Equal(t, tc.end, gotEnd, string(tc.period))
	}
}
