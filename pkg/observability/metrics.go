package observability

import (
	"context"

	"github.com/aretw0/tablecast/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the render collectors.
type Metrics struct {
	Attempts        *prometheus.CounterVec
	AttemptDuration *prometheus.HistogramVec
	Renders         *prometheus.CounterVec
	RenderDuration  prometheus.Histogram
	InFlight        prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tablecast_strategy_attempts_total",
			Help: "Strategy attempts by strategy and outcome kind (ok on success).",
		}, []string{"strategy", "kind"}),
		AttemptDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tablecast_strategy_attempt_duration_seconds",
			Help:    "Duration of strategy attempts.",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
		}, []string{"strategy"}),
		Renders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tablecast_renders_total",
			Help: "Render invocations by result and winning strategy.",
		}, []string{"result", "strategy"}),
		RenderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tablecast_render_duration_seconds",
			Help:    "End-to-end duration of render invocations.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tablecast_strategy_attempts_in_flight",
			Help: "Strategy attempts currently running.",
		}),
	}

	for _, c := range []prometheus.Collector{m.Attempts, m.AttemptDuration, m.Renders, m.RenderDuration, m.InFlight} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks feeding the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnAttemptStart: func(_ context.Context, e *domain.AttemptEvent) {
			m.InFlight.Inc()
		},
		OnAttemptEnd: func(_ context.Context, e *domain.AttemptEvent) {
			m.InFlight.Dec()
			kind := string(e.Kind)
			if kind == "" {
				kind = "ok"
			}
			m.Attempts.WithLabelValues(e.Strategy, kind).Inc()
			m.AttemptDuration.WithLabelValues(e.Strategy).Observe(e.Duration.Seconds())
		},
		OnRenderEnd: func(_ context.Context, e *domain.RenderEvent) {
			result := "failure"
			if e.OK {
				result = "success"
			}
			m.Renders.WithLabelValues(result, e.Strategy).Inc()
			m.RenderDuration.Observe(e.Duration.Seconds())
		},
	}
}
