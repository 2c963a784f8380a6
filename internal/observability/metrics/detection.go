package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// DetectionMetrics tracks anomaly detection runs. A nil *DetectionMetrics
// records nothing.
type DetectionMetrics struct {
	runsTotal       *prometheus.CounterVec
	runDuration     *prometheus.HistogramVec
	findingsTotal   *prometheus.CounterVec
	engineAvailable *prometheus.GaugeVec
	recordsStored   *prometheus.CounterVec
}

// NewDetectionMetrics creates and registers detection metrics.
func NewDetectionMetrics(registry prometheus.Registerer) (*DetectionMetrics, error) {
	m := &DetectionMetrics{
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "detection_runs_total",
			Help: "Total detection runs by engine and status",
		}, []string{"engine", "status"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "detection_run_duration_seconds",
			Help:    "Engine call latency",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms*10, BucketFactor2, BucketCount12),
		}, []string{"engine"}),
		findingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "detection_findings_total",
			Help: "Total findings by severity bucket",
		}, []string{"severity"}),
		engineAvailable: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "detection_engine_available",
			Help: "Engine availability from the last health probe (1 available, 0 unavailable)",
		}, []string{"engine"}),
		recordsStored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "detection_records_stored_total",
			Help: "Detection records persisted by status",
		}, []string{"status"}),
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register detection metrics: %w", err)
	}
	return m, nil
}

// ObserveRun records one engine invocation.
func (m *DetectionMetrics) ObserveRun(engine, status string, seconds float64) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(engine, status).Inc()
	m.runDuration.WithLabelValues(engine).Observe(seconds)
}

// AddFindings counts findings by severity.
func (m *DetectionMetrics) AddFindings(critical, warning, uncertain int) {
	if m == nil {
		return
	}
	m.findingsTotal.WithLabelValues("critical").Add(float64(critical))
	m.findingsTotal.WithLabelValues("warning").Add(float64(warning))
	m.findingsTotal.WithLabelValues("uncertain").Add(float64(uncertain))
}

// SetEngineAvailable records a health probe result.
func (m *DetectionMetrics) SetEngineAvailable(engine string, available bool) {
	if m == nil {
		return
	}
	v := 0.0
	if available {
		v = 1
	}
	m.engineAvailable.WithLabelValues(engine).Set(v)
}

// RecordStored counts record persistence outcomes.
func (m *DetectionMetrics) RecordStored(status string) {
	if m == nil {
		return
	}
	m.recordsStored.WithLabelValues(status).Inc()
}

// Describe implements prometheus.Collector.
func (m *DetectionMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.runsTotal.Describe(ch)
	m.runDuration.Describe(ch)
	m.findingsTotal.Describe(ch)
	m.engineAvailable.Describe(ch)
	m.recordsStored.Describe(ch)
}

// Collect implements prometheus.Collector.
func (m *DetectionMetrics) Collect(ch chan<- prometheus.Metric) {
	m.runsTotal.Collect(ch)
	m.runDuration.Collect(ch)
	m.findingsTotal.Collect(ch)
	m.engineAvailable.Collect(ch)
	m.recordsStored.Collect(ch)
}
