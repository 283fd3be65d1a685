package adapter

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/hcm-campaign-api/internal/models"
)

// LogNotificationSink is the default reminder sink. It records the delivery
// intent in the structured log; real channel fan-out (email, chat) lives in
// the platform's notification service and consumes the same payload.
type LogNotificationSink struct {
	logger *zap.Logger
}

// NewLogNotificationSink constructs the sink.
func NewLogNotificationSink(logger *zap.Logger) *LogNotificationSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotificationSink{logger: logger}
}

// Deliver emits one reminder.
func (s *LogNotificationSink) Deliver(ctx context.Context, candidate models.ReminderCandidate) error {
	fields := []zap.Field{
		zap.String("tenant_id", candidate.TenantID),
		zap.String("campaign_id", candidate.CampaignID),
		zap.String("campaign_name", candidate.CampaignName),
		zap.String("assignment_id", candidate.AssignmentID),
		zap.Int64("employee_id", candidate.EmployeeID),
		zap.Int("reminder_count", candidate.ReminderCount),
	}
	if candidate.Settings.Valid {
		fields = append(fields, zap.Strings("channels", candidate.Settings.Settings.Channels))
		if candidate.Settings.Settings.CustomMessage != "" {
			fields = append(fields, zap.String("custom_message", candidate.Settings.Settings.CustomMessage))
		}
	}
	s.logger.Info("campaign reminder dispatched", fields...)
	return nil
}
