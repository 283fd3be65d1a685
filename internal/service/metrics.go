package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the Prometheus collectors shared across the API and the
// reconciliation sweep.
type Metrics struct {
	Registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	SweepRuns         prometheus.Counter
	SweepSkipped      prometheus.Counter
	SweepStageActions *prometheus.CounterVec
	SweepStageErrors  *prometheus.CounterVec
	SweepDuration     prometheus.Histogram
}

// NewMetrics builds and registers all collectors on a fresh registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		Registry: registry,
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "campaign_api_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "campaign_api_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		SweepRuns: factory.NewCounter(prometheus.CounterOpts{
			Name: "campaign_reconcile_runs_total",
			Help: "Completed reconciliation sweeps.",
		}),
		SweepSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "campaign_reconcile_skipped_total",
			Help: "Sweeps skipped because another instance held the lock.",
		}),
		SweepStageActions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "campaign_reconcile_stage_actions_total",
			Help: "Rows changed per reconciliation stage.",
		}, []string{"stage"}),
		SweepStageErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "campaign_reconcile_stage_errors_total",
			Help: "Failures per reconciliation stage.",
		}, []string{"stage"}),
		SweepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "campaign_reconcile_duration_seconds",
			Help:    "Wall time of one full sweep.",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
		}),
	}
}

// Handler returns the Prometheus scrape handler for the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// ObserveHTTPRequest records one served request.
func (m *Metrics) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
