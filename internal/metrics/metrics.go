// metrics — Prometheus-коллекторы конвейера. Методы безопасны для nil-получателя.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker"
)

const namespace = "myoutfood"

// Metrics — набор коллекторов.
type Metrics struct {
	runs          *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	admission     *prometheus.CounterVec
	historyWrites *prometheus.CounterVec
	breakerState  *prometheus.GaugeVec
}

// New регистрирует коллекторы в reg (обычно prometheus.DefaultRegisterer).
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_total",
			Help:      "Pipeline runs by outcome (success, degraded or error kind).",
		}, []string{"outcome"}),
		stageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of external stage calls.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60, 90},
		}, []string{"stage", "result"}),
		admission: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admission_decisions_total",
			Help:      "Rate limiter decisions.",
		}, []string{"decision"}),
		historyWrites: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_writes_total",
			Help:      "History append attempts by result.",
		}, []string{"result"}),
		breakerState: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "breaker_state",
			Help:      "Circuit breaker state: 0 closed, 1 half-open, 2 open.",
		}, []string{"breaker"}),
	}
}

func (m *Metrics) ObserveRun(outcome string) {
	if m == nil {
		return
	}

	m.runs.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveStage(stage, result string, d time.Duration) {
	if m == nil {
		return
	}

	m.stageDuration.WithLabelValues(stage, result).Observe(d.Seconds())
}

func (m *Metrics) ObserveAdmission(allowed bool) {
	if m == nil {
		return
	}

	decision := "rejected"
	if allowed {
		decision = "allowed"
	}

	m.admission.WithLabelValues(decision).Inc()
}

func (m *Metrics) ObserveHistoryWrite(err error) {
	if m == nil {
		return
	}

	result := "ok"
	if err != nil {
		result = "error"
	}

	m.historyWrites.WithLabelValues(result).Inc()
}

// BreakerStateChanged — хук для breaker.Settings.OnStateChange.
func (m *Metrics) BreakerStateChanged(name string, _, to gobreaker.State) {
	if m == nil {
		return
	}

	m.breakerState.WithLabelValues(name).Set(float64(to))
}
