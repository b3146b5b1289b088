// Package metrics собирает метрики роутера: решения по состояниям, сбои гейтов и их задержку.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/magabrotheeeer/kuitter-gate/internal/models"
)

const namespace = "kuitter_gate"

// Gate метрики роутера.
type Gate struct {
	decisions *prometheus.CounterVec
	failures  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
}

// NewGate создаёт метрики и регистрирует их в reg.
func NewGate(reg prometheus.Registerer) *Gate {
	g := &Gate{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Routing decisions by resulting state.",
		}, []string{"state"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gate_failures_total",
			Help:      "Gate checks that returned an error.",
		}, []string{"gate"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gate_check_duration_seconds",
			Help:      "Duration of a single gate check.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"gate"}),
	}
	reg.MustRegister(g.decisions, g.failures, g.latency)
	return g
}

// Decision учитывает итоговое решение.
func (g *Gate) Decision(d models.Decision) {
	if g == nil {
		return
	}
	g.decisions.WithLabelValues(d.State.String()).Inc()
}

// Check учитывает одну проверку гейта.
func (g *Gate) Check(gate string, took time.Duration, err error) {
	if g == nil {
		return
	}
	g.latency.WithLabelValues(gate).Observe(took.Seconds())
	if err != nil {
		g.failures.WithLabelValues(gate).Inc()
	}
}
