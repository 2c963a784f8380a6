package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// AnnotationMetrics tracks inspection annotation reconciliation. A nil
// *AnnotationMetrics records nothing.
type AnnotationMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	rowsWritten       prometheus.Counter
	rowsSoftDeleted   prometheus.Counter
	rowsRemoved       prometheus.Counter
	errorsTotal       *prometheus.CounterVec
}

// NewAnnotationMetrics creates and registers annotation metrics.
func NewAnnotationMetrics(registry prometheus.Registerer) (*AnnotationMetrics, error) {
	m := &AnnotationMetrics{
		operationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "annotation_operations_total",
			Help: "Total annotation operations by operation and status",
		}, []string{"operation", "status"}),
		operationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "annotation_operation_duration_seconds",
			Help:    "Duration of annotation operations",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount12),
		}, []string{"operation"}),
		rowsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "annotation_rows_written_total",
			Help: "Total annotation rows inserted by replace operations",
		}),
		rowsSoftDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "annotation_rows_soft_deleted_total",
			Help: "Total annotation rows written with is_deleted set",
		}),
		rowsRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "annotation_rows_removed_total",
			Help: "Total annotation rows removed by delete-all operations",
		}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "annotation_errors_total",
			Help: "Total annotation errors by operation and error type",
		}, []string{"operation", "error_type"}),
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register annotation metrics: %w", err)
	}
	return m, nil
}

// ObserveReplace records a successful replace.
func (m *AnnotationMetrics) ObserveReplace(seconds float64, written, softDeleted int) {
	if m == nil {
		return
	}
	m.operationsTotal.WithLabelValues(OpReplace, StatusSuccess).Inc()
	m.operationDuration.WithLabelValues(OpReplace).Observe(seconds)
	m.rowsWritten.Add(float64(written))
	m.rowsSoftDeleted.Add(float64(softDeleted))
}

// ObserveDeleteAll records a successful delete-all.
func (m *AnnotationMetrics) ObserveDeleteAll(seconds float64, removed int64) {
	if m == nil {
		return
	}
	m.operationsTotal.WithLabelValues(OpDeleteAll, StatusSuccess).Inc()
	m.operationDuration.WithLabelValues(OpDeleteAll).Observe(seconds)
	m.rowsRemoved.Add(float64(removed))
}

// RecordOperation counts an operation outcome.
func (m *AnnotationMetrics) RecordOperation(operation, status string) {
	if m == nil {
		return
	}
	m.operationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordError counts a failed operation.
func (m *AnnotationMetrics) RecordError(operation, errorType string) {
	if m == nil {
		return
	}
	m.operationsTotal.WithLabelValues(operation, StatusError).Inc()
	m.errorsTotal.WithLabelValues(operation, errorType).Inc()
}

// Describe implements prometheus.Collector.
func (m *AnnotationMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.operationsTotal.Describe(ch)
	m.operationDuration.Describe(ch)
	m.rowsWritten.Describe(ch)
	m.rowsSoftDeleted.Describe(ch)
	m.rowsRemoved.Describe(ch)
	m.errorsTotal.Describe(ch)
}

// Collect implements prometheus.Collector.
func (m *AnnotationMetrics) Collect(ch chan<- prometheus.Metric) {
	m.operationsTotal.Collect(ch)
	m.operationDuration.Collect(ch)
	m.rowsWritten.Collect(ch)
	m.rowsSoftDeleted.Collect(ch)
	m.rowsRemoved.Collect(ch)
	m.errorsTotal.Collect(ch)
}
