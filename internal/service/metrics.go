package service

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type warrantyMetrics struct {
	outcomes   *prometheus.CounterVec
	tickets    *prometheus.CounterVec
	catalog    prometheus.Counter
	deliveries *prometheus.CounterVec
}

var (
	warrantyMetricsOnce sync.Once
	warrantyMetricsInst *warrantyMetrics
)

func globalWarrantyMetrics() *warrantyMetrics {
	warrantyMetricsOnce.Do(func() {
		warrantyMetricsInst = newWarrantyMetrics()
	})
	return warrantyMetricsInst
}

func newWarrantyMetrics() *warrantyMetrics {
	return &warrantyMetrics{
		outcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "warrantyflow",
			Subsystem: "claims",
			Name:      "evaluations_total",
			Help:      "Claim evaluations, labeled by outcome",
		}, []string{"outcome"}),
		tickets: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "warrantyflow",
			Subsystem: "tickets",
			Name:      "transitions_total",
			Help:      "Ticket lifecycle transitions, labeled by action",
		}, []string{"action"}),
		catalog: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "warrantyflow",
			Subsystem: "catalog",
			Name:      "policies_inserted_total",
			Help:      "Policies inserted by catalog synchronisation",
		}),
		deliveries: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "warrantyflow",
			Subsystem: "replacements",
			Name:      "deliveries_total",
			Help:      "Replacement deliveries, labeled by source and result",
		}, []string{"source", "status"}),
	}
}

func (m *warrantyMetrics) recordOutcome(outcome string) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(outcome).Inc()
}

func (m *warrantyMetrics) recordTicket(action string) {
	if m == nil {
		return
	}
	m.tickets.WithLabelValues(action).Inc()
}

func (m *warrantyMetrics) recordCatalog(inserted int) {
	if m == nil || inserted <= 0 {
		return
	}
	m.catalog.Add(float64(inserted))
}

func (m *warrantyMetrics) recordDelivery(source string, success bool) {
	if m == nil {
		return
	}
	status := "success"
	if !success {
		status = "failure"
	}
	m.deliveries.WithLabelValues(source, status).Inc()
}
