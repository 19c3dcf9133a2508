package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	GatewayErrors     *prometheus.CounterVec
}

// NewMetrics creates metrics registered with the default registry.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith creates metrics registered with reg.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		OperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dpd_operations_total",
				Help: "Total number of workflow operations by operation and status",
			},
			[]string{"operation", "status"},
		),
		OperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dpd_operation_duration_seconds",
				Help:    "Workflow operation duration in seconds by operation",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		GatewayErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dpd_gateway_errors_total",
				Help: "Total failed operations by operation and error kind",
			},
			[]string{"operation", "kind"},
		),
	}
}

// RecordOperation records an operation outcome. Status is "ok", "rejected"
// (business failure) or "error".
func (m *Metrics) RecordOperation(operation, status string, duration float64) {
	m.OperationsTotal.WithLabelValues(operation, status).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(duration)
}

// RecordError records a failed operation by error kind.
func (m *Metrics) RecordError(operation, kind string) {
	m.GatewayErrors.WithLabelValues(operation, kind).Inc()
}
