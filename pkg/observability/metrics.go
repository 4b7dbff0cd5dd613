package observability

import (
	"context"
	"net/http"

	"github.com/aretw0/launchpad/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "launchpad"

// Metrics holds the collectors. Each instance owns its own registry.
type Metrics struct {
	registry *prometheus.Registry

	Scripts  *prometheus.CounterVec
	Steps    *prometheus.HistogramVec
	Sessions *prometheus.CounterVec
	Live     prometheus.Gauge
	Triggers *prometheus.CounterVec
}

// NewMetrics creates and registers the collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Scripts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scripts_total",
			Help:      "Scripts finished, by outcome.",
		}, []string{"outcome"}),
		Steps: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Duration of steps, by method and outcome.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
		}, []string{"method", "outcome"}),
		Sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Session lifecycle events.",
		}, []string{"event"}),
		Live: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_live",
			Help:      "Sessions currently running.",
		}),
		Triggers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trigger_resolutions_total",
			Help:      "Watch resolutions, by mode and whether the process exited first.",
		}, []string{"mode", "exited"}),
	}
	m.registry.MustRegister(m.Scripts, m.Steps, m.Sessions, m.Live, m.Triggers)
	return m
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Hooks records metrics for every lifecycle event.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnScriptLeave: func(_ context.Context, e *domain.ScriptEvent) {
			m.Scripts.WithLabelValues(outcome(e.Err)).Inc()
		},
		OnStepEnd: func(_ context.Context, e *domain.StepEvent) {
			m.Steps.WithLabelValues(e.Method, outcome(e.Err)).Observe(e.Duration.Seconds())
		},
		OnSessionSpawn: func(context.Context, *domain.SessionEvent) {
			m.Sessions.WithLabelValues("spawn").Inc()
			m.Live.Inc()
		},
		OnSessionExit: func(context.Context, *domain.SessionEvent) {
			m.Sessions.WithLabelValues("exit").Inc()
			m.Live.Dec()
		},
		OnTrigger: func(_ context.Context, e *domain.TriggerEvent) {
			exited := "false"
			if e.Exited {
				exited = "true"
			}
			m.Triggers.WithLabelValues(string(e.Mode), exited).Inc()
		},
	}
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
