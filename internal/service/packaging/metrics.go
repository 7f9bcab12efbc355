package packaging

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the lifecycle operations and the stock mutator.
var (
	operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "packtrack_operations_total",
		Help: "Packaging lifecycle operations by action and outcome.",
	}, []string{"action", "outcome"})

	operationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "packtrack_operation_duration_seconds",
		Help:    "Packaging lifecycle operation latency by action.",
		Buckets: prometheus.DefBuckets,
	}, []string{"action"})

	stockWritesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "packtrack_stock_writes_total",
		Help: "Product stock writes by outcome.",
	}, []string{"outcome"})

	stockClampedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "packtrack_stock_clamped_total",
		Help: "Stock writes clamped at zero instead of going negative.",
	})
)

const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
)

func observeOperation(action string, fatal bool, seconds float64) {
	outcome := outcomeSuccess
	if fatal {
		outcome = outcomeFailure
	}
	operationsTotal.WithLabelValues(action, outcome).Inc()
	operationDuration.WithLabelValues(action).Observe(seconds)
}
