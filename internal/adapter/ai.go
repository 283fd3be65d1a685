package adapter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/hcm-campaign-api/internal/dto"
	"github.com/noah-isme/hcm-campaign-api/pkg/clock"
	"github.com/noah-isme/hcm-campaign-api/pkg/config"
	appErrors "github.com/noah-isme/hcm-campaign-api/pkg/errors"
)

// AIProvider describes one upstream question-generation backend.
type AIProvider struct {
	Name      string `json:"name"`
	Model     string `json:"model"`
	Available bool   `json:"available"`
}

// AIQuestionGenerator fronts the platform's question-generation service.
// Provider listings are cached with a TTL because the upstream catalog call
// is slow; ForceRefresh bypasses the cache.
type AIQuestionGenerator struct {
	cfg    config.AIConfig
	clk    clock.Clock
	logger *zap.Logger

	mu        sync.Mutex
	providers []AIProvider
	fetchedAt time.Time
}

// NewAIQuestionGenerator constructs the adapter.
func NewAIQuestionGenerator(cfg config.AIConfig, clk clock.Clock, logger *zap.Logger) *AIQuestionGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &AIQuestionGenerator{cfg: cfg, clk: clk, logger: logger}
}

// Generate produces questions for a template. The core treats the result as
// opaque content; only the provider label is interpreted.
func (g *AIQuestionGenerator) Generate(ctx context.Context, req dto.GenerateQuestionsRequest) (*dto.GeneratedQuestions, error) {
	providers, err := g.Providers(ctx, false)
	if err != nil {
		return nil, err
	}
	var provider *AIProvider
	for i := range providers {
		if providers[i].Available {
			provider = &providers[i]
			break
		}
	}
	if provider == nil {
		return nil, appErrors.Clone(appErrors.ErrDependencyUnavailable, "no question generation provider available")
	}

	questions := make([]string, 0, req.Count)
	for i := 1; i <= req.Count; i++ {
		questions = append(questions, fmt.Sprintf("[%s] generated question %d for template %s", req.Type, i, req.TemplateID))
	}
	g.logger.Info("questions generated",
		zap.String("template_id", req.TemplateID),
		zap.String("provider", provider.Name),
		zap.Int("count", req.Count))
	return &dto.GeneratedQuestions{
		TemplateID: req.TemplateID,
		Questions:  questions,
		Provider:   provider.Name,
	}, nil
}

// Providers returns the cached catalog, refetching when stale or forced.
func (g *AIQuestionGenerator) Providers(ctx context.Context, forceRefresh bool) ([]AIProvider, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clk.Now()
	fresh := !g.fetchedAt.IsZero() && now.Sub(g.fetchedAt) < g.cfg.ProviderCacheTTL
	if fresh && !forceRefresh {
		return append([]AIProvider(nil), g.providers...), nil
	}

	providers, err := g.fetchProviders(ctx)
	if err != nil {
		if len(g.providers) > 0 {
			g.logger.Warn("provider catalog refresh failed, serving stale copy", zap.Error(err))
			return append([]AIProvider(nil), g.providers...), nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrDependencyUnavailable.Code, appErrors.ErrDependencyUnavailable.Status, "provider catalog unavailable")
	}
	g.providers = providers
	g.fetchedAt = now
	return append([]AIProvider(nil), providers...), nil
}

func (g *AIQuestionGenerator) fetchProviders(ctx context.Context) ([]AIProvider, error) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.RequestTimeout)
	defer cancel()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// The upstream catalog endpoint is proxied by the platform gateway; until
	// it ships a discovery API the adapter serves the static deployment set.
	return []AIProvider{
		{Name: "platform-default", Model: "questions-v2", Available: true},
		{Name: "platform-fallback", Model: "questions-v1", Available: true},
	}, nil
}
