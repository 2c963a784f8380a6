package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MQTT operation labels.
const (
	MQTTOpConnect        = "connect"
	MQTTOpPublish        = "publish"
	MQTTOpConnectionLost = "connection_lost"
)

// MQTTMetrics tracks the detection event publisher. A nil *MQTTMetrics
// records nothing.
type MQTTMetrics struct {
	Connected      prometheus.Gauge
	Published      prometheus.Counter
	Errors         *prometheus.CounterVec
	PayloadBytes   prometheus.Histogram
	PublishLatency prometheus.Histogram
}

// NewMQTTMetrics creates and registers MQTT metrics.
func NewMQTTMetrics(registry prometheus.Registerer) (*MQTTMetrics, error) {
	m := &MQTTMetrics{
		Connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mqtt_connected",
			Help: "Whether the broker connection is up (1) or down (0)",
		}),
		Published: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mqtt_detection_events_published_total",
			Help: "Detection events acknowledged by the broker",
		}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mqtt_errors_total",
			Help: "MQTT failures by operation",
		}, []string{"operation"}),
		PayloadBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mqtt_payload_bytes",
			Help:    "Size of published detection events",
			Buckets: prometheus.ExponentialBuckets(256, 2, 8),
		}),
		PublishLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mqtt_publish_duration_seconds",
			Help:    "Time from publish to broker acknowledgement",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount12),
		}),
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register MQTT metrics: %w", err)
	}
	return m, nil
}

// SetConnected records the broker connection state.
func (m *MQTTMetrics) SetConnected(connected bool) {
	if m == nil {
		return
	}
	if connected {
		m.Connected.Set(1)
		return
	}
	m.Connected.Set(0)
}

// ObservePublish records an acknowledged event.
func (m *MQTTMetrics) ObservePublish(sizeBytes int, latency time.Duration) {
	if m == nil {
		return
	}
	m.Published.Inc()
	m.PayloadBytes.Observe(float64(sizeBytes))
	m.PublishLatency.Observe(latency.Seconds())
}

// RecordError counts a failed operation.
func (m *MQTTMetrics) RecordError(operation string) {
	if m == nil {
		return
	}
	m.Errors.WithLabelValues(operation).Inc()
}

// Describe implements prometheus.Collector.
func (m *MQTTMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.Connected.Describe(ch)
	m.Published.Describe(ch)
	m.Errors.Describe(ch)
	m.PayloadBytes.Describe(ch)
	m.PublishLatency.Describe(ch)
}

// Collect implements prometheus.Collector.
func (m *MQTTMetrics) Collect(ch chan<- prometheus.Metric) {
	m.Connected.Collect(ch)
	m.Published.Collect(ch)
	m.Errors.Collect(ch)
	m.PayloadBytes.Collect(ch)
	m.PublishLatency.Collect(ch)
}
