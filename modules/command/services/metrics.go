package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "command",
		Subsystem: "requests",
		Name:      "created_total",
		Help:      "Total number of command requests created broken down by type.",
	}, []string{"type"})

	requestsResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "command",
		Subsystem: "requests",
		Name:      "resolved_total",
		Help:      "Total number of command requests resolved broken down by type and outcome.",
	}, []string{"type", "outcome"})

	reviewRollbacks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "command",
		Subsystem: "requests",
		Name:      "review_rollbacks_total",
		Help:      "Total number of review changes rolled back after a failed resolution.",
	})
)

func recordCreated(requestType string) {
	requestsCreated.WithLabelValues(requestType).Inc()
}

func recordResolved(requestType string, approved bool) {
	outcome := "rejected"
	if approved {
		outcome = "approved"
	}
	requestsResolved.WithLabelValues(requestType, outcome).Inc()
}
