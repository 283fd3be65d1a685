package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/hcm-campaign-api/internal/models"
	"github.com/noah-isme/hcm-campaign-api/internal/repository"
	"github.com/noah-isme/hcm-campaign-api/pkg/clock"
	"github.com/noah-isme/hcm-campaign-api/pkg/config"
)

type reconcileStore interface {
	TryLock(ctx context.Context) (bool, error)
	Unlock(ctx context.Context) error
	ActivateDue(ctx context.Context, today time.Time) (int64, error)
	CompleteEnded(ctx context.Context, today time.Time) (int64, error)
	ListNearEnd(ctx context.Context, today time.Time, nearEndDays int) ([]repository.NearEndCampaign, error)
	ArchiveOld(ctx context.Context, today time.Time, archiveAfterDays int) (int64, error)
	DeleteOrphanAssignments(ctx context.Context) (int64, error)
	RepairResponseFlags(ctx context.Context) (int64, error)
	FindDuplicateNonTerminal(ctx context.Context) ([]models.DuplicateAssignment, error)
}

type reminderDispatcher interface {
	DispatchDueReminders(ctx context.Context) (int, error)
}

// SweepReport summarises one reconciliation run. Every stage reports even
// when a sibling stage failed.
type SweepReport struct {
	StartedAt        time.Time                    `json:"started_at"`
	Duration         time.Duration                `json:"duration"`
	Activated        int64                        `json:"activated"`
	Completed        int64                        `json:"completed"`
	NearEnd          []repository.NearEndCampaign `json:"near_end,omitempty"`
	Archived         int64                        `json:"archived"`
	OrphansRemoved   int64                        `json:"orphans_removed"`
	FlagsRepaired    int64                        `json:"flags_repaired"`
	Duplicates       []models.DuplicateAssignment `json:"duplicates,omitempty"`
	RemindersQueued  int                          `json:"reminders_queued"`
	StageErrors      []string                     `json:"stage_errors,omitempty"`
	SkippedLockTaken bool                         `json:"skipped_lock_taken,omitempty"`
}

// dirty reports whether the sweep changed state or surfaced findings. A
// clean pass leaves no audit trail, so re-running a sweep over a settled
// database is a no-op end to end.
func (r *SweepReport) dirty() bool {
	return r.Activated > 0 || r.Completed > 0 || r.Archived > 0 ||
		r.OrphansRemoved > 0 || r.FlagsRepaired > 0 || r.RemindersQueued > 0 ||
		len(r.Duplicates) > 0 || len(r.StageErrors) > 0
}

// ReconciliationService runs the periodic sweep that drives time-based
// campaign transitions and repairs drift. Stages run in order; a failing
// stage is logged and counted, never fatal to the rest.
type ReconciliationService struct {
	store     reconcileStore
	reminders reminderDispatcher
	audits    auditWriter
	clk       clock.Clock
	cfg       config.ReconciliationConfig
	campaigns config.CampaignConfig
	metrics   *Metrics
	logger    *zap.Logger
}

// NewReconciliationService constructs the sweep.
func NewReconciliationService(
	store reconcileStore,
	reminders reminderDispatcher,
	audits auditWriter,
	clk clock.Clock,
	cfg config.ReconciliationConfig,
	campaigns config.CampaignConfig,
	metrics *Metrics,
	logger *zap.Logger,
) *ReconciliationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &ReconciliationService{
		store:     store,
		reminders: reminders,
		audits:    audits,
		clk:       clk,
		cfg:       cfg,
		campaigns: campaigns,
		metrics:   metrics,
		logger:    logger,
	}
}

// Run executes one sweep under the advisory lock. When another instance
// holds the lock the run is skipped, not queued.
func (s *ReconciliationService) Run(ctx context.Context) (*SweepReport, error) {
	report := &SweepReport{StartedAt: s.clk.Now()}

	acquired, err := s.store.TryLock(ctx)
	if err != nil {
		return nil, err
	}
	if !acquired {
		report.SkippedLockTaken = true
		if s.metrics != nil {
			s.metrics.SweepSkipped.Inc()
		}
		s.logger.Info("reconciliation sweep skipped, lock held elsewhere")
		return report, nil
	}
	defer func() {
		if err := s.store.Unlock(ctx); err != nil {
			s.logger.Error("failed to release reconcile lock", zap.Error(err))
		}
	}()

	today := clock.StartOfDay(report.StartedAt)

	s.stage(report, "activate", func() error {
		n, err := s.store.ActivateDue(ctx, today)
		report.Activated = n
		s.countStage("activate", n)
		return err
	})

	s.stage(report, "complete", func() error {
		n, err := s.store.CompleteEnded(ctx, today)
		report.Completed = n
		s.countStage("complete", n)
		return err
	})

	s.stage(report, "near_end", func() error {
		nearEnd, err := s.store.ListNearEnd(ctx, today, s.cfg.NearEndDays)
		if err != nil {
			return err
		}
		report.NearEnd = nearEnd
		s.countStage("near_end", int64(len(nearEnd)))
		for _, c := range nearEnd {
			s.logger.Warn("campaign nearing end with open assignments",
				zap.String("campaign_id", c.CampaignID),
				zap.String("tenant_id", c.TenantID),
				zap.String("name", c.Name),
				zap.Time("end_date", c.EndDate),
				zap.Int("days_left", clock.DaysBetween(today, c.EndDate)),
				zap.Int("open_assignments", c.OpenCount))
		}
		return nil
	})

	s.stage(report, "archive", func() error {
		n, err := s.store.ArchiveOld(ctx, today, s.campaigns.ArchiveAfterDays)
		report.Archived = n
		s.countStage("archive", n)
		return err
	})

	s.stage(report, "orphans", func() error {
		n, err := s.store.DeleteOrphanAssignments(ctx)
		report.OrphansRemoved = n
		s.countStage("orphans", n)
		return err
	})

	s.stage(report, "response_flags", func() error {
		n, err := s.store.RepairResponseFlags(ctx)
		report.FlagsRepaired = n
		s.countStage("response_flags", n)
		return err
	})

	s.stage(report, "duplicates", func() error {
		duplicates, err := s.store.FindDuplicateNonTerminal(ctx)
		if err != nil {
			return err
		}
		report.Duplicates = duplicates
		s.countStage("duplicates", int64(len(duplicates)))
		for _, d := range duplicates {
			s.logger.Warn("employee holds overlapping open assignments",
				zap.String("tenant_id", d.TenantID),
				zap.Int64("employee_id", d.EmployeeID),
				zap.Int("count", d.Count))
		}
		return nil
	})

	s.stage(report, "reminders", func() error {
		queued, err := s.reminders.DispatchDueReminders(ctx)
		report.RemindersQueued = queued
		s.countStage("reminders", int64(queued))
		return err
	})

	report.Duration = s.clk.Now().Sub(report.StartedAt)
	if s.metrics != nil {
		s.metrics.SweepRuns.Inc()
		s.metrics.SweepDuration.Observe(report.Duration.Seconds())
	}
	if report.dirty() {
		s.recordAudit(ctx, report)
	}

	s.logger.Info("reconciliation sweep finished",
		zap.Int64("activated", report.Activated),
		zap.Int64("completed", report.Completed),
		zap.Int("near_end", len(report.NearEnd)),
		zap.Int64("archived", report.Archived),
		zap.Int64("orphans_removed", report.OrphansRemoved),
		zap.Int64("flags_repaired", report.FlagsRepaired),
		zap.Int("duplicates", len(report.Duplicates)),
		zap.Int("reminders_queued", report.RemindersQueued),
		zap.Int("stage_errors", len(report.StageErrors)),
		zap.Duration("duration", report.Duration))
	return report, nil
}

// RunPeriodically blocks, running sweeps on the configured interval until
// the context is cancelled. One sweep runs immediately at start.
func (s *ReconciliationService) RunPeriodically(ctx context.Context) {
	if !s.cfg.Enabled {
		s.logger.Info("reconciliation disabled")
		return
	}
	if _, err := s.Run(ctx); err != nil {
		s.logger.Error("reconciliation sweep failed", zap.Error(err))
	}

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Run(ctx); err != nil {
				s.logger.Error("reconciliation sweep failed", zap.Error(err))
			}
		}
	}
}

func (s *ReconciliationService) stage(report *SweepReport, name string, fn func() error) {
	if err := fn(); err != nil {
		report.StageErrors = append(report.StageErrors, name)
		if s.metrics != nil {
			s.metrics.SweepStageErrors.WithLabelValues(name).Inc()
		}
		s.logger.Error("reconciliation stage failed", zap.String("stage", name), zap.Error(err))
	}
}

func (s *ReconciliationService) countStage(name string, n int64) {
	if s.metrics != nil && n > 0 {
		s.metrics.SweepStageActions.WithLabelValues(name).Add(float64(n))
	}
}

func (s *ReconciliationService) recordAudit(ctx context.Context, report *SweepReport) {
	if s.audits == nil {
		return
	}
	details, _ := json.Marshal(report)
	entry := &models.AuditLog{
		TenantID: "system",
		Action:   models.AuditActionReconcileSweep,
		Resource: "campaign",
		Details:  details,
	}
	if err := s.audits.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to record sweep audit", zap.Error(err))
	}
}
