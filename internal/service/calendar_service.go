package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/hcm-campaign-api/internal/dto"
	"github.com/noah-isme/hcm-campaign-api/internal/models"
	"github.com/noah-isme/hcm-campaign-api/pkg/clock"
	"github.com/noah-isme/hcm-campaign-api/pkg/config"
	appErrors "github.com/noah-isme/hcm-campaign-api/pkg/errors"
)

type calendarStore interface {
	ListIntersecting(ctx context.Context, filter models.CalendarFilter) ([]models.CampaignDetail, int, error)
	CountByStatus(ctx context.Context, tenantID string, start, end time.Time) (map[models.CampaignFamily]map[models.CampaignStatus]int, error)
	StatusCountsForCampaigns(ctx context.Context, tenantID string, campaignIDs []string) (map[string]map[models.AssignmentStatus]int, error)
}

type campaignRescheduler interface {
	Reschedule(ctx context.Context, tenantID, id string, req dto.RescheduleCampaignRequest, actor string) (*models.CampaignDetail, error)
}

var calendarPeriods = []models.CalendarPeriod{
	models.PeriodWeek, models.PeriodMonth, models.PeriodQuarter, models.PeriodYear,
}

// CalendarService serves the unified cross-family calendar: range queries,
// cached period stats, drag-drop rescheduling and cross-family conflict
// checks.
type CalendarService struct {
	store     calendarStore
	campaigns campaignRescheduler
	conflicts conflictChecker
	cache     *redis.Client
	clk       clock.Clock
	cfg       config.CalendarConfig
	logger    *zap.Logger
}

// NewCalendarService constructs the calendar read path. cache may be nil, in
// which case stats are computed on every call.
func NewCalendarService(
	store calendarStore,
	campaigns campaignRescheduler,
	conflicts conflictChecker,
	cache *redis.Client,
	clk clock.Clock,
	cfg config.CalendarConfig,
	logger *zap.Logger,
) *CalendarService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &CalendarService{
		store:     store,
		campaigns: campaigns,
		conflicts: conflicts,
		cache:     cache,
		clk:       clk,
		cfg:       cfg,
		logger:    logger,
	}
}

// Range returns every campaign of either family intersecting the window as
// uniform calendar entries, ordered by start date.
func (s *CalendarService) Range(ctx context.Context, filter models.CalendarFilter) ([]models.CalendarEntry, int, error) {
	if filter.TenantID == "" {
		return nil, 0, appErrors.ErrTenantMissing
	}
	if !filter.StartDate.Before(filter.EndDate) {
		return nil, 0, appErrors.Clone(appErrors.ErrValidation, "calendar window must start before it ends")
	}
	campaigns, total, err := s.store.ListIntersecting(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load calendar range")
	}

	ids := make([]string, 0, len(campaigns))
	for _, c := range campaigns {
		ids = append(ids, c.ID)
	}
	counts, err := s.store.StatusCountsForCampaigns(ctx, filter.TenantID, ids)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate assignment stats")
	}

	entries := make([]models.CalendarEntry, 0, len(campaigns))
	for _, c := range campaigns {
		stats := buildStats(c, counts[c.ID])
		entries = append(entries, models.CalendarEntry{
			ID:           c.ID,
			Family:       c.Family,
			Name:         c.Name,
			Description:  c.Description,
			TemplateName: c.TemplateName,
			StartDate:    c.StartDate,
			EndDate:      c.EndDate,
			Status:       c.Status,
			Frequency:    c.Frequency,
			Progress:     stats.CompletionRate,
			Stats:        stats,
		})
	}
	return entries, total, nil
}

// Stats returns aggregate campaign counts for the period containing now,
// served from Redis when a fresh copy exists.
func (s *CalendarService) Stats(ctx context.Context, tenantID string, period models.CalendarPeriod) (*models.CalendarStats, error) {
	if tenantID == "" {
		return nil, appErrors.ErrTenantMissing
	}
	if !period.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown calendar period %q", period))
	}

	key := s.statsKey(tenantID, period)
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, key).Bytes(); err == nil {
			var cached models.CalendarStats
			if err := json.Unmarshal(raw, &cached); err == nil {
				return &cached, nil
			}
		}
	}

	now := s.clk.Now()
	start, end := periodWindow(now, period)
	byFamily, err := s.store.CountByStatus(ctx, tenantID, start, end)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate calendar stats")
	}

	stats := &models.CalendarStats{
		Period:    period,
		ByFamily:  byFamily,
		Generated: now,
	}
	for _, counts := range byFamily {
		stats.ActiveNow += counts[models.CampaignActive] + counts[models.CampaignInProgress] + counts[models.CampaignPaused]
		stats.Upcoming += counts[models.CampaignPlanned]
	}

	if s.cache != nil {
		if raw, err := json.Marshal(stats); err == nil {
			if err := s.cache.Set(ctx, key, raw, s.cfg.StatsCacheTTL).Err(); err != nil {
				s.logger.Warn("failed to cache calendar stats", zap.String("key", key), zap.Error(err))
			}
		}
	}
	return stats, nil
}

// Reschedule applies a drag-drop window change through the lifecycle engine
// and invalidates the tenant's cached stats.
func (s *CalendarService) Reschedule(ctx context.Context, tenantID string, req dto.CalendarRescheduleRequest, actor string) (*models.CampaignDetail, error) {
	detail, err := s.campaigns.Reschedule(ctx, tenantID, req.CampaignID, dto.RescheduleCampaignRequest{
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		CheckConflicts: req.CheckConflicts,
	}, actor)
	if err != nil {
		return nil, err
	}
	s.invalidateStats(ctx, tenantID)
	return detail, nil
}

// CheckConflicts runs the detector in cross-family mode for the calendar
// surface.
func (s *CalendarService) CheckConflicts(ctx context.Context, tenantID string, req dto.CalendarCheckConflictsRequest) (*models.ConflictReport, error) {
	return s.conflicts.Check(ctx, ConflictQuery{
		TenantID:          tenantID,
		EmployeeIDs:       req.EmployeeIDs,
		StartDate:         req.StartDate,
		EndDate:           req.EndDate,
		ExcludeCampaignID: req.ExcludeCampaignID,
		CrossFamily:       true,
	})
}

func (s *CalendarService) statsKey(tenantID string, period models.CalendarPeriod) string {
	return fmt.Sprintf("calendar:stats:%s:%s", tenantID, period)
}

func (s *CalendarService) invalidateStats(ctx context.Context, tenantID string) {
	if s.cache == nil {
		return
	}
	keys := make([]string, 0, len(calendarPeriods))
	for _, period := range calendarPeriods {
		keys = append(keys, s.statsKey(tenantID, period))
	}
	if err := s.cache.Del(ctx, keys...).Err(); err != nil {
		s.logger.Warn("failed to invalidate calendar stats", zap.String("tenant_id", tenantID), zap.Error(err))
	}
}

func periodWindow(now time.Time, period models.CalendarPeriod) (time.Time, time.Time) {
	start := clock.StartOfDay(now)
	switch period {
	case models.PeriodWeek:
		return start, start.AddDate(0, 0, 7)
	case models.PeriodMonth:
		return start, start.AddDate(0, 1, 0)
	case models.PeriodQuarter:
		return start, start.AddDate(0, 3, 0)
	default:
		return start, start.AddDate(1, 0, 0)
	}
}
