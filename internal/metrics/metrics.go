// Package metrics exposes Prometheus collectors fed by runner events.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/perbu/artifacts/internal/actions"
	"github.com/perbu/artifacts/internal/engine"
)

const (
	namespace = "artifacts"
	subsystem = "engine"
)

// Metrics implements engine.Observer. A nil *Metrics ignores every event.
type Metrics struct {
	tasks         *prometheus.CounterVec
	taskDuration  *prometheus.HistogramVec
	cooldown      *prometheus.HistogramVec
	runnersActive prometheus.Gauge
}

var _ engine.Observer = (*Metrics)(nil)

// MustNewMetrics creates the collectors and registers them with reg, or the
// default registerer when reg is nil. Collectors that are already registered
// are reused, so building Metrics twice against one registry is safe.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		tasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "tasks_total",
			Help:      "Executed tasks by character, action and outcome.",
		}, []string{"character", "action", "status"}),
		taskDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "task_duration_seconds",
			Help:      "Time spent waiting for the API to answer an action.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"action"}),
		cooldown: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cooldown_seconds",
			Help:      "Cooldowns waited out after an action.",
			Buckets:   []float64{1, 2, 5, 10, 20, 30, 60, 120, 300},
		}, []string{"character"}),
		runnersActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "runners_active",
			Help:      "Runners currently executing their queue.",
		}),
	}

	m.tasks = register(reg, m.tasks)
	m.taskDuration = register(reg, m.taskDuration)
	m.cooldown = register(reg, m.cooldown)
	m.runnersActive = register(reg, m.runnersActive)
	return m
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

func (m *Metrics) RunStarted(string) {
	if m == nil {
		return
	}
	m.runnersActive.Inc()
}

func (m *Metrics) RunFinished(string, error) {
	if m == nil {
		return
	}
	m.runnersActive.Dec()
}

func (m *Metrics) TaskStarted(string, engine.Task) {}

func (m *Metrics) TaskCompleted(name string, task engine.Task, _ engine.Outcome, elapsed time.Duration) {
	if m == nil {
		return
	}
	action := actions.Name(task.ActionID())
	m.tasks.WithLabelValues(name, action, "ok").Inc()
	m.taskDuration.WithLabelValues(action).Observe(elapsed.Seconds())
}

func (m *Metrics) TaskFailed(name string, task engine.Task, _ error, elapsed time.Duration) {
	if m == nil {
		return
	}
	action := actions.Name(task.ActionID())
	m.tasks.WithLabelValues(name, action, "error").Inc()
	m.taskDuration.WithLabelValues(action).Observe(elapsed.Seconds())
}

func (m *Metrics) CooldownStarted(name string, wait time.Duration) {
	if m == nil {
		return
	}
	m.cooldown.WithLabelValues(name).Observe(wait.Seconds())
}
