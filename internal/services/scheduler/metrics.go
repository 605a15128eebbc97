package scheduler

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type jobMetrics struct {
	runs      *prometheus.CounterVec
	affected  *prometheus.CounterVec
	durations *prometheus.HistogramVec
}

var (
	jobMetricsOnce sync.Once
	jobMetricsInst *jobMetrics
)

func globalJobMetrics() *jobMetrics {
	jobMetricsOnce.Do(func() {
		jobMetricsInst = newJobMetrics()
	})
	return jobMetricsInst
}

func newJobMetrics() *jobMetrics {
	return &jobMetrics{
		runs: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "warrantyflow",
			Subsystem: "scheduler",
			Name:      "job_runs_total",
			Help:      "Scheduled job executions, labeled by job and result",
		}, []string{"job", "status"}),
		affected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "warrantyflow",
			Subsystem: "scheduler",
			Name:      "job_items_total",
			Help:      "Items changed by scheduled jobs (policies inserted, tickets reconciled)",
		}, []string{"job"}),
		durations: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "warrantyflow",
			Subsystem: "scheduler",
			Name:      "job_duration_seconds",
			Help:      "Duration of scheduled job executions",
			Buckets:   prometheus.DefBuckets,
		}, []string{"job"}),
	}
}

func (m *jobMetrics) recordRun(job string) func(err error) {
	if m == nil {
		return func(error) {}
	}
	timer := prometheus.NewTimer(m.durations.WithLabelValues(job))
	return func(err error) {
		timer.ObserveDuration()
		status := "success"
		if err != nil {
			status = "failure"
		}
		m.runs.WithLabelValues(job, status).Inc()
	}
}

func (m *jobMetrics) recordItems(job string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.affected.WithLabelValues(job).Add(float64(n))
}
