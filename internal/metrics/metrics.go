package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors for alerting and delivery.
type Metrics struct {
	AlertsCreated    prometheus.Counter
	AlertsSuppressed *prometheus.CounterVec
	AlertErrors      prometheus.Counter
	SweepRuns        prometheus.Counter
	SweepDuration    prometheus.Histogram
	Pushes           *prometheus.CounterVec
	EventsDropped    prometheus.Counter
	Connections      prometheus.Gauge

	gatherer prometheus.Gatherer
}

// New registers the collectors on reg. Tests pass a fresh prometheus.NewRegistry().
func New(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		AlertsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "stockroom_low_stock_alerts_total",
			Help: "Low-stock notifications written",
		}),
		AlertsSuppressed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "stockroom_low_stock_alerts_suppressed_total",
			Help: "Low-stock evaluations suppressed, by reason",
		}, []string{"reason"}),
		AlertErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "stockroom_low_stock_alert_errors_total",
			Help: "Low-stock evaluations that failed",
		}),
		SweepRuns: f.NewCounter(prometheus.CounterOpts{
			Name: "stockroom_sweep_runs_total",
			Help: "Completed low-stock sweeps",
		}),
		SweepDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "stockroom_sweep_duration_seconds",
			Help:    "Low-stock sweep duration",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		Pushes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "stockroom_notification_pushes_total",
			Help: "Notification pushes by result",
		}, []string{"result"}),
		EventsDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "stockroom_realtime_events_dropped_total",
			Help: "Events dropped because a connection buffer was full",
		}),
		Connections: f.NewGauge(prometheus.GaugeOpts{
			Name: "stockroom_realtime_connections",
			Help: "Open realtime connections",
		}),
		gatherer: reg,
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
