package adapter

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const analyticsStream = "campaign:events"

// AnalyticsEvent is one fact pushed to the analytics pipeline.
type AnalyticsEvent struct {
	TenantID   string                 `json:"tenant_id"`
	Event      string                 `json:"event"`
	CampaignID string                 `json:"campaign_id,omitempty"`
	Actor      string                 `json:"actor,omitempty"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// AnalyticsEmitter pushes domain events onto a Redis list consumed by the
// analytics pipeline. Emission is fire-and-forget: a down pipeline never
// fails a campaign mutation.
type AnalyticsEmitter struct {
	client *redis.Client
	logger *zap.Logger
}

// NewAnalyticsEmitter constructs the emitter. client may be nil, in which
// case events are dropped silently.
func NewAnalyticsEmitter(client *redis.Client, logger *zap.Logger) *AnalyticsEmitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsEmitter{client: client, logger: logger}
}

// Emit pushes one event.
func (e *AnalyticsEmitter) Emit(ctx context.Context, event AnalyticsEvent) {
	if e.client == nil {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	raw, err := json.Marshal(event)
	if err != nil {
		e.logger.Warn("failed to encode analytics event", zap.String("event", event.Event), zap.Error(err))
		return
	}
	if err := e.client.RPush(ctx, analyticsStream, raw).Err(); err != nil {
		e.logger.Warn("failed to emit analytics event", zap.String("event", event.Event), zap.Error(err))
	}
}
