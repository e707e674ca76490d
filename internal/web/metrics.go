package web

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vaultd",
		Name:      "operations_total",
		Help:      "Count of vault operations by kind and outcome.",
	}, []string{"kind", "outcome"})

	operationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "vaultd",
		Name:      "operation_duration_seconds",
		Help:      "Latency of vault operations by kind.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"kind"})
)

func observeOperation(kind string, seconds float64, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "rejected"
	}
	operationsTotal.WithLabelValues(kind, outcome).Inc()
	operationDuration.WithLabelValues(kind).Observe(seconds)
}
