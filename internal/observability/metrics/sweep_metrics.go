package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// SweepMetrics tracks delinquency sweep runs and dispatch outcomes.
type SweepMetrics struct {
	sweepRuns            prometheus.Counter
	notificationsCreated *prometheus.CounterVec
	dispatched           *prometheus.CounterVec
}

var (
	sweepMetricsOnce sync.Once
	sweepMetrics     *SweepMetrics
)

// Sweep returns the process-wide sweep metrics, registering them on
// first use.
func Sweep() *SweepMetrics {
	sweepMetricsOnce.Do(func() {
		sweepMetrics = newSweepMetrics(prometheus.DefaultRegisterer, Config{})
	})
	return sweepMetrics
}

func newSweepMetrics(registerer prometheus.Registerer, cfg Config) *SweepMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &SweepMetrics{
		sweepRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.namespace(),
			Name:      "sweep_runs_total",
			Help:      "Completed delinquency sweep passes.",
		}),
		notificationsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.namespace(),
			Name:      "sweep_notifications_created_total",
			Help:      "Notifications created by the sweep, by type.",
		}, []string{"type"}),
		dispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.namespace(),
			Name:      "notifications_dispatched_total",
			Help:      "Dispatch attempts by outcome.",
		}, []string{"outcome"}),
	}

	for _, c := range []prometheus.Collector{m.sweepRuns, m.notificationsCreated, m.dispatched} {
		if err := registerer.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			panic(err)
		}
	}
	return m
}

func (m *SweepMetrics) RecordRun(createdUpcoming, createdOverdue, createdDisconnection int) {
	if m == nil {
		return
	}
	m.sweepRuns.Inc()
	m.notificationsCreated.WithLabelValues("upcoming_due").Add(float64(createdUpcoming))
	m.notificationsCreated.WithLabelValues("overdue").Add(float64(createdOverdue))
	m.notificationsCreated.WithLabelValues("disconnection_pending").Add(float64(createdDisconnection))
}

func (m *SweepMetrics) RecordDispatch(sent, failed int) {
	if m == nil {
		return
	}
	m.dispatched.WithLabelValues("sent").Add(float64(sent))
	m.dispatched.WithLabelValues("failed").Add(float64(failed))
}
